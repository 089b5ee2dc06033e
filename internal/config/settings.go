package config

import (
	"fmt"
	"time"
)

// Compile time variables are set by -ldflags.
var (
	ServiceVersion string
	CommitSHA      string
)

const (
	Development = 1 << iota
	Sandbox
	Staging
	Production
)

type (
	ServiceConfig struct {
		App                   App                   `json:"app"`
		SecretsStorage        SecretsStorage        `json:"secrets_storage"`
		PublicHTTPServer      PublicHTTPServer      `json:"public_http_server"`
		AdminHTTPServer       AdminHTTPServer       `json:"admin_http_server"`
		Database              Database              `json:"database"`
		Auth                  Auth                  `json:"auth"`
		Query                 Query                 `json:"query"`
		Backoff               Backoff               `json:"backoff"`
		CircuitBreaker        CircuitBreaker        `json:"circuit_breaker"`
		Cache                 Cache                 `json:"cache"`
		QueryCache            QueryCache            `json:"query_cache"`
		ThrottledRateLimiting ThrottledRateLimiting `json:"throttled_rate_limiting"`
		Idempotency           Idempotency           `json:"idempotency"`
		Compression           Compression           `json:"compression"`
		Security              Security              `json:"security"`
		Logging               Logging               `json:"logging"`
		Telemetry             Telemetry             `json:"telemetry"`
	}

	App struct {
		ServiceName string      `envconfig:"APP_SERVICE_NAME" default:"natours" json:"service_name"`
		APIVersion  string      `envconfig:"APP_API_VERSION" default:"v1" json:"api_version"`
		Env         Environment `json:"environment"`
	}

	Environment struct {
		Name string `envconfig:"APP_ENVIRONMENT" default:"development" json:"env"`
	}

	SecretsStorage struct {
		Enabled       bool          `envconfig:"VAULT_ENABLED" default:"false" json:"enabled"`
		Address       string        `envconfig:"VAULT_ADDRESS" default:"http://vault:8200" json:"address"`
		Token         string        `envconfig:"VAULT_TOKEN" default:"" json:"token,omitempty"`
		RoleID        string        `envconfig:"VAULT_ROLE_ID" default:"" json:"role_id,omitempty"`
		SecretID      string        `envconfig:"VAULT_SECRET_ID" default:"" json:"secret_id,omitempty"`
		AuthMethod    string        `envconfig:"VAULT_AUTH_METHOD" default:"token" json:"auth_method"`
		MountPath     string        `envconfig:"VAULT_MOUNT_PATH" default:"natours" json:"mount_path"`
		Namespace     string        `envconfig:"VAULT_NAMESPACE" default:"" json:"namespace,omitempty"`
		Timeout       time.Duration `envconfig:"VAULT_TIMEOUT" default:"30s" json:"timeout"`
		MaxRetries    uint          `envconfig:"VAULT_MAX_RETRIES" default:"3" json:"max_retries"`
		TLSSkipVerify bool          `envconfig:"VAULT_TLS_SKIP_VERIFY" default:"false" json:"tls_skip_verify"`
		PollInterval  time.Duration `envconfig:"VAULT_POLL_INTERVAL" default:"24h" json:"poll_interval"`
	}

	PublicHTTPServer struct {
		Host            string        `envconfig:"HTTP_SERVER_HOST" default:"0.0.0.0" json:"host"`
		Port            uint          `envconfig:"HTTP_SERVER_PORT" default:"3000" json:"port"`
		ReadTimeout     time.Duration `envconfig:"HTTP_READ_TIMEOUT" default:"15s" json:"read_timeout"`
		WriteTimeout    time.Duration `envconfig:"HTTP_WRITE_TIMEOUT" default:"15s" json:"write_timeout"`
		IdleTimeout     time.Duration `envconfig:"HTTP_IDLE_TIMEOUT" default:"60s" json:"idle_timeout"`
		ShutdownTimeout time.Duration `envconfig:"HTTP_SHUTDOWN_TIMEOUT" default:"30s" json:"shutdown_timeout"`
	}

	AdminHTTPServer struct {
		Enabled         bool          `envconfig:"ADMIN_HTTP_SERVER_ENABLED" default:"true" json:"enabled"`
		Host            string        `envconfig:"ADMIN_HTTP_SERVER_HOST" default:"127.0.0.1" json:"host"`
		Port            uint          `envconfig:"ADMIN_HTTP_SERVER_PORT" default:"3001" json:"port"`
		ReadTimeout     time.Duration `envconfig:"ADMIN_HTTP_READ_TIMEOUT" default:"15s" json:"read_timeout"`
		WriteTimeout    time.Duration `envconfig:"ADMIN_HTTP_WRITE_TIMEOUT" default:"15s" json:"write_timeout"`
		IdleTimeout     time.Duration `envconfig:"ADMIN_HTTP_IDLE_TIMEOUT" default:"60s" json:"idle_timeout"`
		ShutdownTimeout time.Duration `envconfig:"ADMIN_HTTP_SHUTDOWN_TIMEOUT" default:"30s" json:"shutdown_timeout"`
	}

	Database struct {
		URI              string        `envconfig:"DATABASE_URI" default:"mongodb://mongo:27017" json:"uri,omitempty"`
		Name             string        `envconfig:"DATABASE_NAME" default:"natours" json:"name"`
		MaxPoolSize      uint64        `envconfig:"DATABASE_MAX_POOL_SIZE" default:"50" json:"max_pool_size"`
		MinPoolSize      uint64        `envconfig:"DATABASE_MIN_POOL_SIZE" default:"5" json:"min_pool_size"`
		ConnectTimeout   time.Duration `envconfig:"DATABASE_CONNECT_TIMEOUT" default:"10s" json:"connect_timeout"`
		OperationTimeout time.Duration `envconfig:"DATABASE_OPERATION_TIMEOUT" default:"5s" json:"operation_timeout"`
		ConnectAttempts  uint          `envconfig:"DATABASE_CONNECT_ATTEMPTS" default:"5" json:"connect_attempts"`
		EnsureIndexes    bool          `envconfig:"DATABASE_ENSURE_INDEXES" default:"true" json:"ensure_indexes"`
	}

	// Auth verifies HS256 tokens. Issuer is only enforced when set.
	Auth struct {
		JWTSecret  string        `envconfig:"AUTH_JWT_SECRET" default:"" json:"jwt_secret,omitempty"`
		CookieName string        `envconfig:"AUTH_COOKIE_NAME" default:"jwt" json:"cookie_name"`
		Issuer     string        `envconfig:"AUTH_ISSUER" default:"" json:"issuer"`
		ExpiresIn  time.Duration `envconfig:"AUTH_JWT_EXPIRES_IN" default:"2160h" json:"expires_in"`
	}

	Query struct {
		MaxLimit int `envconfig:"QUERY_MAX_LIMIT" default:"100" json:"max_limit"`
	}

	Backoff struct {
		BaseDelay  time.Duration `envconfig:"BACKOFF_BASE_DELAY" default:"1s" json:"base_delay"`
		Multiplier float64       `envconfig:"BACKOFF_MULTIPLIER" default:"1.5" json:"multiplier"`
		Jitter     float64       `envconfig:"BACKOFF_JITTER" default:"0.3" json:"jitter"`
		MaxDelay   time.Duration `envconfig:"BACKOFF_MAX_DELAY" default:"10s" json:"max_delay"`
	}

	CircuitBreaker struct {
		Enabled          bool          `envconfig:"DATABASE_CB_ENABLED" default:"true" json:"enabled"`
		MaxRequests      uint32        `envconfig:"DATABASE_CB_MAX_REQUESTS" default:"5" json:"max_requests"`
		Interval         time.Duration `envconfig:"DATABASE_CB_INTERVAL" default:"60s" json:"interval"`
		Timeout          time.Duration `envconfig:"DATABASE_CB_TIMEOUT" default:"30s" json:"timeout"`
		FailureThreshold uint32        `envconfig:"DATABASE_CB_FAILURE_THRESHOLD" default:"5" json:"failure_threshold"`
	}

	Cache struct {
		Enabled       bool          `envconfig:"CACHE_ENABLED" default:"true" json:"enabled"`
		Address       string        `envconfig:"CACHE_ADDRESS" default:"keydb:6379" json:"address"`
		Password      string        `envconfig:"CACHE_PASSWORD" default:"" json:"password,omitempty"`
		DB            uint          `envconfig:"CACHE_DB" default:"0" json:"db"`
		PoolSize      uint          `envconfig:"CACHE_POOL_SIZE" default:"10" json:"pool_size"`
		MinIdleConns  uint          `envconfig:"CACHE_MIN_IDLE_CONNS" default:"3" json:"min_idle_conns"`
		DialTimeout   time.Duration `envconfig:"CACHE_DIAL_TIMEOUT" default:"5s" json:"dial_timeout"`
		ReadTimeout   time.Duration `envconfig:"CACHE_READ_TIMEOUT" default:"3s" json:"read_timeout"`
		WriteTimeout  time.Duration `envconfig:"CACHE_WRITE_TIMEOUT" default:"3s" json:"write_timeout"`
		PoolTimeout   time.Duration `envconfig:"CACHE_POOL_TIMEOUT" default:"5s" json:"pool_timeout"`
		MaxRetries    uint          `envconfig:"CACHE_MAX_RETRIES" default:"3" json:"max_retries"`
		DefaultExpiry time.Duration `envconfig:"CACHE_DEFAULT_EXPIRY" default:"24h" json:"default_expiry"`
	}

	QueryCache struct {
		Enabled  bool          `envconfig:"QUERY_CACHE_ENABLED" default:"true" json:"enabled"`
		StatsTTL time.Duration `envconfig:"QUERY_CACHE_STATS_TTL" default:"5m" json:"stats_ttl"`
		PlanTTL  time.Duration `envconfig:"QUERY_CACHE_PLAN_TTL" default:"10m" json:"plan_ttl"`
	}

	ThrottledRateLimiting struct {
		Enabled          bool          `envconfig:"RATE_LIMITING_ENABLED" default:"true" json:"enabled"`
		MaxRequests      uint          `envconfig:"RATE_LIMITING_MAX_REQUESTS" default:"100" json:"max_requests"`
		Window           time.Duration `envconfig:"RATE_LIMITING_WINDOW" default:"1h" json:"window"`
		BurstSize        uint          `envconfig:"RATE_LIMITING_BURST_SIZE" default:"100" json:"burst_size"`
		PathPrefix       string        `envconfig:"RATE_LIMITING_PATH_PREFIX" default:"/api" json:"path_prefix"`
		GracefulDegraded bool          `envconfig:"RATE_LIMITING_GRACEFUL_DEGRADED" default:"true" json:"graceful_degraded"`
	}

	Idempotency struct {
		Enabled          bool          `envconfig:"IDEMPOTENCY_ENABLED" default:"true" json:"enabled"`
		CacheTTL         time.Duration `envconfig:"IDEMPOTENCY_CACHE_TTL" default:"24h" json:"cache_ttl"`
		LockTTL          time.Duration `envconfig:"IDEMPOTENCY_LOCK_TTL" default:"30s" json:"lock_ttl"`
		RequiredMethods  []string      `envconfig:"IDEMPOTENCY_REQUIRED_METHODS" default:"POST" json:"required_methods"`
		HeaderName       string        `envconfig:"IDEMPOTENCY_HEADER" default:"Idempotency-Key" json:"header_name"`
		ReplayedHeader   string        `envconfig:"IDEMPOTENCY_REPLAYED_HEADER" default:"Idempotent-Replayed" json:"replayed_header"`
		GracefulDegraded bool          `envconfig:"IDEMPOTENCY_GRACEFUL_DEGRADED" default:"true" json:"graceful_degraded"`
	}

	// Compression holds the configuration for HTTP response compression middleware.
	Compression struct {
		Enabled bool `envconfig:"COMPRESSION_ENABLED" default:"true" json:"enabled"`

		// Level sets the compression level (1-9).
		Level int `envconfig:"COMPRESSION_LEVEL" default:"6" json:"level"`

		// MinSize is the smallest body, in bytes, that gets compressed.
		MinSize int `envconfig:"COMPRESSION_MIN_SIZE" default:"1024" json:"min_size"`

		// ContentTypes falls back to the text based defaults when empty.
		ContentTypes []string `envconfig:"COMPRESSION_CONTENT_TYPES" json:"content_types"`

		SkipPaths []string `envconfig:"COMPRESSION_SKIP_PATHS" default:"/health" json:"skip_paths"`
	}

	// Security.ParameterWhitelist lists the query keys that may repeat.
	Security struct {
		AllowedOrigins     []string `envconfig:"CORS_ALLOWED_ORIGINS" default:"*" json:"allowed_origins"`
		BodyLimit          int64    `envconfig:"BODY_LIMIT_BYTES" default:"30720" json:"body_limit"`
		ParameterWhitelist []string `envconfig:"HPP_WHITELIST" default:"duration,difficulty,ratingAverage,ratingQuantity,price,maxGroupSize" json:"parameter_whitelist"`
	}

	Logging struct {
		Level     string    `envconfig:"LOG_LEVEL" default:"info" json:"level"`
		Format    string    `envconfig:"LOG_FORMAT" default:"json" json:"format"`
		AccessLog AccessLog `json:"access_log"`
	}

	AccessLog struct {
		Enabled            bool `envconfig:"ACCESS_LOG_ENABLED" default:"true" json:"enabled"`
		LogHealthChecks    bool `envconfig:"ACCESS_LOG_HEALTH_CHECKS" default:"false" json:"log_health_checks"`
		IncludeQueryParams bool `envconfig:"ACCESS_LOG_INCLUDE_QUERY_PARAMS" default:"true" json:"include_query_params"`
	}

	Telemetry struct {
		Enabled      bool    `envconfig:"OTEL_ENABLED" default:"false" json:"enabled"`
		ExporterType string  `envconfig:"OTEL_EXPORTER" default:"grpc" json:"exporter_type"`
		OTLPEndpoint string  `envconfig:"OTEL_EXPORTER_OTLP_ENDPOINT" default:"" json:"otlp_endpoint"`
		Metrics      Metrics `json:"metrics"`
		Traces       Traces  `json:"traces"`
	}

	Metrics struct {
		Enabled bool `envconfig:"METRICS_ENABLED" default:"false" json:"enabled"`
	}

	Traces struct {
		Enabled      bool    `envconfig:"TRACES_ENABLED" default:"false" json:"enabled"`
		SamplerRatio float64 `envconfig:"TRACES_SAMPLER_RATIO" default:"1.0" json:"sampler_ratio"`
	}
)

func (c *ServiceConfig) GetEnvironment() int {
	switch c.App.Env.Name {
	case "production", "prod":
		return Production
	case "staging", "stg":
		return Staging
	case "sandbox", "sbx":
		return Sandbox
	default:
		return Development
	}
}

func (c *ServiceConfig) IsProduction() bool {
	return c.GetEnvironment() == Production
}

func (c *ServiceConfig) Validate() error {
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth jwt secret must be set")
	}

	if c.Query.MaxLimit < 1 {
		return fmt.Errorf("query max limit must be positive, got %d", c.Query.MaxLimit)
	}

	return c.Compression.Validate()
}

func (c *Compression) Validate() error {
	if c.Level < 1 || c.Level > 9 {
		return fmt.Errorf("compression level must be between 1 and 9, got %d", c.Level)
	}

	if c.MinSize < 0 {
		return fmt.Errorf("compression min_size must be non-negative, got %d", c.MinSize)
	}

	return nil
}
