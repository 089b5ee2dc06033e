package runtime

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/architeacher/natours/internal/config"
	"github.com/architeacher/natours/pkg/logger"
)

func TestNew(t *testing.T) {
	t.Parallel()

	t.Run("creates service context with default values", func(t *testing.T) {
		t.Parallel()

		serviceCtx := New()

		require.NotNil(t, serviceCtx)
		require.NotNil(t, serviceCtx.shutdownChannel)
		require.Nil(t, serviceCtx.deps)
		require.Nil(t, serviceCtx.serverReady)
		require.Empty(t, serviceCtx.dependencyOptions)
	})

	t.Run("creates service context with options", func(t *testing.T) {
		t.Parallel()

		ch := make(chan os.Signal, 1)
		serviceCtx := New(
			WithServiceTermination(ch),
			WithWaitingForServer(),
			WithDependencyOptions(func(*dependencies) error { return nil }),
		)

		require.NotNil(t, serviceCtx)
		require.Equal(t, ch, serviceCtx.shutdownChannel)
		require.NotNil(t, serviceCtx.serverReady)
		require.Len(t, serviceCtx.dependencyOptions, 1)
	})
}

func TestWithConfigLoader_RejectsInvalidConfiguration(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		mutate  func(cfg *config.ServiceConfig)
		wantErr bool
	}{
		{name: "valid", mutate: func(*config.ServiceConfig) {}},
		{name: "missing jwt secret", mutate: func(cfg *config.ServiceConfig) { cfg.Auth.JWTSecret = "" }, wantErr: true},
		{name: "compression level out of range", mutate: func(cfg *config.ServiceConfig) { cfg.Compression.Level = 12 }, wantErr: true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			cfg := &config.ServiceConfig{
				Auth:        config.Auth{JWTSecret: "my-ultra-secure-and-ultra-long-secret"},
				Query:       config.Query{MaxLimit: 100},
				Compression: config.Compression{Level: 6, MinSize: 1024},
			}
			tc.mutate(cfg)

			deps := &dependencies{config: cfg}

			err := WithConfigLoader(t.Context())(deps)
			if tc.wantErr {
				require.Error(t, err)

				return
			}

			require.NoError(t, err)
			require.Nil(t, deps.configLoader)
		})
	}
}

func TestCleanup_ContinuesPastFailures(t *testing.T) {
	t.Parallel()

	var closed []string

	serviceCtx := New()
	serviceCtx.deps = &dependencies{
		infra: infrastructureDep{logger: logger.NewTestLogger()},
		cleanupFuncs: map[string]func(ctx context.Context) error{
			"database": func(context.Context) error {
				closed = append(closed, "database")

				return errors.New("connection reset")
			},
			"cache": func(context.Context) error {
				closed = append(closed, "cache")

				return nil
			},
		},
	}

	serviceCtx.drainServers(t.Context())
	serviceCtx.cleanup(t.Context())

	require.ElementsMatch(t, []string{"database", "cache"}, closed)
}
