package config

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/architeacher/natours/internal/ports"
	"github.com/cenkalti/backoff/v5"
	"github.com/kelseyhightower/envconfig"
)

const (
	secretsDataPath     = "data"
	secretsMetadataPath = "metadata"
)

var ErrSecretsDisabled = errors.New("secret storage is not enabled")

// Loader overlays secrets from Vault onto the service configuration and
// reloads them on SIGHUP or when the secret version changes.
type Loader struct {
	cfg              *ServiceConfig
	secretsRepo      ports.SecretsRepository
	configSignalChan chan os.Signal
	reloadErrors     chan error
	ticker           *time.Ticker
	lastVersion      uint
}

func Init() (*ServiceConfig, error) {
	cfg := &ServiceConfig{}

	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("unable to parse service configuration: %w", err)
	}

	return cfg, nil
}

func NewLoader(cfg *ServiceConfig, secretsRepo ports.SecretsRepository, initialVersion uint) *Loader {
	return &Loader{
		cfg:              cfg,
		secretsRepo:      secretsRepo,
		configSignalChan: make(chan os.Signal, 1),
		reloadErrors:     make(chan error, 1),
		lastVersion:      initialVersion,
	}
}

func (l *Loader) WatchConfigSignals(ctx context.Context) <-chan error {
	signal.Notify(l.configSignalChan, syscall.SIGHUP, syscall.SIGUSR1)

	if l.cfg.SecretsStorage.Enabled && l.cfg.SecretsStorage.PollInterval > 0 {
		l.ticker = time.NewTicker(l.cfg.SecretsStorage.PollInterval)
	}

	go func() {
		defer signal.Stop(l.configSignalChan)
		defer close(l.reloadErrors)

		var reloadTickerChan <-chan time.Time
		if l.ticker != nil {
			defer l.ticker.Stop()

			reloadTickerChan = l.ticker.C
		}

		for {
			select {
			case <-ctx.Done():
				return

			case <-reloadTickerChan:
				l.handleConfigReload(ctx)

			case sig := <-l.configSignalChan:
				switch sig {
				case syscall.SIGHUP:
					l.handleConfigReload(ctx)

				case syscall.SIGUSR1:
					l.DumpConfig()
				}
			}
		}
	}()

	return l.reloadErrors
}

// DumpConfig prints the configuration with credentials redacted.
func (l *Loader) DumpConfig() {
	redacted := *l.cfg
	redacted.Auth.JWTSecret = redact(redacted.Auth.JWTSecret)
	redacted.Database.URI = redact(redacted.Database.URI)
	redacted.Cache.Password = redact(redacted.Cache.Password)
	redacted.SecretsStorage.Token = redact(redacted.SecretsStorage.Token)
	redacted.SecretsStorage.SecretID = redact(redacted.SecretsStorage.SecretID)

	configJSON, err := json.MarshalIndent(redacted, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stdout, "Error marshaling config: %v\n", err)

		return
	}

	fmt.Fprintf(os.Stdout, "\n=== Configuration Dump ===\n%s\n=== End Configuration ===\n\n", string(configJSON))
}

// Load authenticates against Vault, applies the stored secrets to cfg and
// returns the secret version they came from.
func (l *Loader) Load(ctx context.Context, cfg *ServiceConfig) (uint, error) {
	if !cfg.SecretsStorage.Enabled {
		return 0, ErrSecretsDisabled
	}

	if err := l.authenticate(ctx, cfg.SecretsStorage); err != nil {
		return 0, fmt.Errorf("failed to authenticate with Vault: %w", err)
	}

	data, err := l.loadSecretsFromPath(ctx, cfg, secretsDataPath)
	if err != nil {
		return 0, fmt.Errorf("failed to load secrets from Vault: %w", err)
	}

	if err := applySecretsToConfig(cfg, data); err != nil {
		return 0, fmt.Errorf("failed to apply secrets to config: %w", err)
	}

	metadata, err := l.loadSecretsFromPath(ctx, cfg, secretsMetadataPath)
	if err != nil {
		return 0, fmt.Errorf("failed to load secret metadata: %w", err)
	}

	version, err := secretVersion(metadata)
	if err != nil {
		return 0, fmt.Errorf("failed to get secret version: %w", err)
	}

	return version, nil
}

func (l *Loader) authenticate(ctx context.Context, cfg SecretsStorage) error {
	switch strings.ToLower(cfg.AuthMethod) {
	case "token":
		if cfg.Token == "" {
			return fmt.Errorf("token is required for token auth method")
		}

		l.secretsRepo.SetToken(cfg.Token)

		return nil

	case "approle":
		if cfg.RoleID == "" || cfg.SecretID == "" {
			return fmt.Errorf("role_id and secret_id are required for approle auth method")
		}

		resp, err := l.secretsRepo.WriteWithContext(ctx, "auth/approle/login", map[string]any{
			"role_id":   cfg.RoleID,
			"secret_id": cfg.SecretID,
		})
		if err != nil {
			return fmt.Errorf("failed to authenticate via approle: %w", err)
		}

		if resp == nil || resp.Auth == nil {
			return fmt.Errorf("no auth info returned from Vault")
		}

		l.secretsRepo.SetToken(resp.Auth.ClientToken)

		return nil

	default:
		return fmt.Errorf("unsupported auth method: %s", cfg.AuthMethod)
	}
}

func (l *Loader) handleConfigReload(ctx context.Context) {
	metadata, err := l.loadSecretsFromPath(ctx, l.cfg, secretsMetadataPath)
	if err != nil {
		l.reportReloadStatus(fmt.Errorf("failed to load secret metadata: %w", err))

		return
	}

	currentVersion, err := secretVersion(metadata)
	if err != nil {
		l.reportReloadStatus(fmt.Errorf("failed to get secret version: %w", err))

		return
	}

	if currentVersion == l.lastVersion {
		return
	}

	version, err := l.Load(ctx, l.cfg)
	if err != nil {
		l.reportReloadStatus(err)

		return
	}

	l.lastVersion = version
	l.reportReloadStatus(nil)
}

// loadSecretsFromPath reads apps/<data|metadata>/<mount> and returns the
// nested map stored under the path type.
func (l *Loader) loadSecretsFromPath(ctx context.Context, cfg *ServiceConfig, pathType string) (map[string]any, error) {
	path := fmt.Sprintf("apps/%s/%s", pathType, cfg.SecretsStorage.MountPath)

	ctx, cancel := context.WithTimeout(ctx, cfg.SecretsStorage.Timeout)
	defer cancel()

	expBackoff := backoff.NewExponentialBackOff()
	expBackoff.InitialInterval = cfg.Backoff.BaseDelay
	expBackoff.Multiplier = cfg.Backoff.Multiplier
	expBackoff.RandomizationFactor = cfg.Backoff.Jitter
	expBackoff.MaxInterval = cfg.Backoff.MaxDelay

	secret, err := backoff.Retry(
		ctx,
		func() (map[string]any, error) {
			secret, err := l.secretsRepo.GetSecrets(ctx, path)
			if err != nil {
				return nil, err
			}

			if secret == nil {
				return nil, nil
			}

			return secret.Data, nil
		},
		backoff.WithMaxTries(cfg.SecretsStorage.MaxRetries+1),
		backoff.WithBackOff(expBackoff),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to read from path %s after %d retries: %w", path, cfg.SecretsStorage.MaxRetries, err)
	}

	if secret == nil {
		return nil, nil
	}

	if pathType == secretsMetadataPath {
		return secret, nil
	}

	result, ok := secret[secretsDataPath].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("invalid secret format at path %s, missing %q key", path, secretsDataPath)
	}

	return result, nil
}

func (l *Loader) reportReloadStatus(err error) {
	select {
	case l.reloadErrors <- err:
	default:
	}
}

func secretVersion(metadata map[string]any) (uint, error) {
	currentVersion, ok := metadata["current_version"]
	if !ok {
		return 0, nil
	}

	switch v := currentVersion.(type) {
	case float64:
		return uint(v), nil
	case int:
		return uint(v), nil
	case uint:
		return v, nil
	case json.Number:
		version, err := v.Int64()
		if err != nil {
			return 0, fmt.Errorf("failed to parse version: %w", err)
		}

		return uint(version), nil
	default:
		return 0, fmt.Errorf("unexpected version type: %T", currentVersion)
	}
}

func applySecretsToConfig(cfg *ServiceConfig, data map[string]any) error {
	for key, value := range data {
		strValue, ok := value.(string)
		if !ok || strValue == "" {
			continue
		}

		if err := os.Setenv(key, strValue); err != nil {
			return fmt.Errorf("failed to set environment variable %s: %w", key, err)
		}

		switch key {
		case "AUTH_JWT_SECRET":
			cfg.Auth.JWTSecret = strValue
		case "DATABASE_URI":
			cfg.Database.URI = strValue
		case "CACHE_PASSWORD":
			cfg.Cache.Password = strValue
		}
	}

	return nil
}

func redact(value string) string {
	if value == "" {
		return ""
	}

	return "********"
}
