package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/Netflix/go-env"
	"github.com/google/uuid"
	"github.com/nov03/bgdeploy-ts/internal/logger"
)

// DefaultPort is the port the embedded server listens on unless PORT is set
const DefaultPort = 80

// Environment variables with defaults
type ServerEnvironment struct {

	// http server settings
	Environment           string        `env:"ENVIRONMENT,default=dev"`
	Host                  string        `env:"HOST,default=0.0.0.0"`
	Port                  int           `env:"PORT,default=80"`
	LogLevel              string        `env:"LOG_LEVEL,default=info"`
	InstanceID            string        `env:"INSTANCE_ID"`
	ReadTimeout           time.Duration `env:"READ_TIMEOUT,default=15s"`
	ReadHeaderTimeout     time.Duration `env:"READ_HEADER_TIMEOUT,default=10s"`
	WriteTimeout          time.Duration `env:"WRITE_TIMEOUT,default=15s"`
	IdleTimeout           time.Duration `env:"IDLE_TIMEOUT,default=60s"`
	HandlerTimeout        time.Duration `env:"HANDLER_TIMEOUT,default=60s"`
	ServerShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT,default=10s"`

	// request limits
	RateLimitRPS        int32 `env:"RATE_LIMIT_RPS,default=0"`
	RateLimitBurst      int32 `env:"RATE_LIMIT_BURST,default=200"`
	MaxRequestBodyBytes int64 `env:"MAX_REQUEST_BODY_BYTES,default=1048576"`

	// health, readiness and version endpoints. Disabled by default so the server exposes no routes at all.
	InfraRoutesEnabled bool `env:"INFRA_ROUTES_ENABLED,default=false"`

	unknownFileKeys []string
}

var validEnvs = map[string]bool{
	"dev":     true,
	"test":    true,
	"prod":    true,
	"staging": true,
}

// Load reads the configuration from the environment and validates it.
//
// When path is not empty the TOML file at path is read first. Its keys use the environment variable names
// (e.g PORT = 80) and are overridden by variables set in the process environment.
// overrides (typically command line flags) take precedence over both and may be nil.
func Load(path string, overrides env.EnvSet) (*ServerEnvironment, error) {
	es, err := env.EnvironToEnvSet(os.Environ())
	if err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}
	return load(es, path, overrides)
}

func load(es env.EnvSet, path string, overrides env.EnvSet) (*ServerEnvironment, error) {
	var unknown []string
	if path != "" {
		fileSet, err := loadFile(path)
		if err != nil {
			return nil, err
		}
		for key, value := range fileSet {
			if _, ok := es[key]; !ok {
				es[key] = value
			}
		}
		unknown = unknownKeys(fileSet)
	}
	for key, value := range overrides {
		es[key] = value
	}

	var cfg ServerEnvironment
	if err := env.Unmarshal(es, &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal environment variables: %w", err)
	}

	if cfg.InstanceID == "" {
		cfg.InstanceID = uuid.NewString()
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.unknownFileKeys = unknown
	return &cfg, nil
}

// UnknownFileKeys returns the config file keys that do not name a setting, sorted.
// Such keys are ignored, they are usually typos.
func (c *ServerEnvironment) UnknownFileKeys() []string {
	return c.unknownFileKeys
}

// Addr returns the host:port the server listens on
func (c *ServerEnvironment) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// Validate checks the configuration values
func (c *ServerEnvironment) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("PORT must be between 1 and 65535, got %d", c.Port)
	}
	if !validEnvs[c.Environment] {
		return fmt.Errorf("invalid ENVIRONMENT: %s", c.Environment)
	}
	if !logger.ValidLogLevel(c.LogLevel) {
		return fmt.Errorf("invalid LOG_LEVEL: %s", c.LogLevel)
	}

	if c.RateLimitRPS > 0 && c.RateLimitBurst < 1 {
		return fmt.Errorf("RATE_LIMIT_BURST must be at least 1 when rate limiting is enabled")
	}
	if c.MaxRequestBodyBytes < 1 {
		return fmt.Errorf("MAX_REQUEST_BODY_BYTES must be at least 1")
	}

	timeouts := []struct {
		name  string
		value time.Duration
	}{
		{"READ_TIMEOUT", c.ReadTimeout},
		{"READ_HEADER_TIMEOUT", c.ReadHeaderTimeout},
		{"WRITE_TIMEOUT", c.WriteTimeout},
		{"IDLE_TIMEOUT", c.IdleTimeout},
		{"HANDLER_TIMEOUT", c.HandlerTimeout},
		{"SERVER_SHUTDOWN_TIMEOUT", c.ServerShutdownTimeout},
	}
	for _, to := range timeouts {
		if to.value <= 0 {
			return fmt.Errorf("%s must be greater than 0", to.name)
		}
	}

	return nil
}

// RestartRequired lists the settings that differ between c and next and can only be applied by restarting the server.
// LOG_LEVEL is applied without a restart and INSTANCE_ID is ignored.
func (c *ServerEnvironment) RestartRequired(next *ServerEnvironment) []string {
	var changed []string
	add := func(name string, differ bool) {
		if differ {
			changed = append(changed, name)
		}
	}
	add("ENVIRONMENT", c.Environment != next.Environment)
	add("HOST", c.Host != next.Host)
	add("PORT", c.Port != next.Port)
	add("READ_TIMEOUT", c.ReadTimeout != next.ReadTimeout)
	add("READ_HEADER_TIMEOUT", c.ReadHeaderTimeout != next.ReadHeaderTimeout)
	add("WRITE_TIMEOUT", c.WriteTimeout != next.WriteTimeout)
	add("IDLE_TIMEOUT", c.IdleTimeout != next.IdleTimeout)
	add("HANDLER_TIMEOUT", c.HandlerTimeout != next.HandlerTimeout)
	add("SERVER_SHUTDOWN_TIMEOUT", c.ServerShutdownTimeout != next.ServerShutdownTimeout)
	add("RATE_LIMIT_RPS", c.RateLimitRPS != next.RateLimitRPS)
	add("RATE_LIMIT_BURST", c.RateLimitBurst != next.RateLimitBurst)
	add("MAX_REQUEST_BODY_BYTES", c.MaxRequestBodyBytes != next.MaxRequestBodyBytes)
	add("INFRA_ROUTES_ENABLED", c.InfraRoutesEnabled != next.InfraRoutesEnabled)
	return changed
}
