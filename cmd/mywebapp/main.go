package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/Netflix/go-env"
	"github.com/nov03/bgdeploy-ts/internal/config"
	"github.com/nov03/bgdeploy-ts/internal/logger"
	"github.com/nov03/bgdeploy-ts/internal/server"
	"github.com/nov03/bgdeploy-ts/internal/version"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// options holds the command line flags. Flags override the environment and the config file,
// but only when they are set explicitly.
type options struct {
	configPath string
	host       string
	port       int
	logLevel   string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var opts options

	cmd := &cobra.Command{
		Use:   "mywebapp",
		Short: "mywebapp HTTP server",
		Long: strings.TrimSpace(`
mywebapp starts an embedded HTTP server listening on port 80 on all interfaces.

The server defines no application routes: every request receives the default
JSON not-found response. Health, readiness and version endpoints can be enabled
with INFRA_ROUTES_ENABLED=true.

The server is configured with environment variables (see internal/config),
optionally layered over a TOML file given with --config.`),
		Example: strings.TrimSpace(`
  mywebapp
  PORT=8080 LOG_LEVEL=debug mywebapp
  mywebapp --config /etc/mywebapp/config.toml --port 8080`),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			changed := map[string]bool{}
			cmd.Flags().Visit(func(f *pflag.Flag) { changed[f.Name] = true })

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return run(ctx, opts, changed)
		},
	}

	v := version.Get()
	cmd.Version = fmt.Sprintf("%s (built %s, commit %s)", v.Version, v.BuildDate, v.GitCommit)

	cmd.Flags().StringVar(&opts.configPath, "config", "", "path to a TOML config file (keys use the environment variable names)")
	cmd.Flags().StringVar(&opts.host, "host", "", "listen host (overrides HOST, default 0.0.0.0)")
	cmd.Flags().IntVar(&opts.port, "port", config.DefaultPort, "listen port (overrides PORT)")
	cmd.Flags().StringVar(&opts.logLevel, "log-level", "", "log level: debug, info, warn, error or none (overrides LOG_LEVEL)")

	return cmd
}

// flagOverrides returns the explicitly set flags keyed by the environment variable they override
func flagOverrides(opts options, changed map[string]bool) env.EnvSet {
	overrides := env.EnvSet{}
	if changed["host"] {
		overrides["HOST"] = opts.host
	}
	if changed["port"] {
		overrides["PORT"] = strconv.Itoa(opts.port)
	}
	if changed["log-level"] {
		overrides["LOG_LEVEL"] = opts.logLevel
	}
	return overrides
}

func run(ctx context.Context, opts options, changed map[string]bool) error {
	if opts.configPath != "" && !config.FileExists(opts.configPath) {
		err := fmt.Errorf("config file not found: %s", opts.configPath)
		log.Printf("failed to load configuration: %v", err.Error())
		return err
	}

	overrides := flagOverrides(opts, changed)
	cfg, err := config.Load(opts.configPath, overrides)
	if err != nil {
		log.Printf("failed to load configuration: %v", err.Error())
		return err
	}

	var logLevel slog.LevelVar
	logLevel.Set(logger.ParseLogLevel(cfg.LogLevel))
	appLogger := logger.InitLogger(&logLevel, cfg.Environment)

	appLogger.Info("Configuration loaded",
		slog.String("ENVIRONMENT", cfg.Environment),
		slog.String("HOST", cfg.Host),
		slog.Int("PORT", cfg.Port),
		slog.String("LOG_LEVEL", cfg.LogLevel),
		slog.String("INSTANCE_ID", cfg.InstanceID),
		slog.Bool("INFRA_ROUTES_ENABLED", cfg.InfraRoutesEnabled),
		slog.Int("RATE_LIMIT_RPS", int(cfg.RateLimitRPS)),
		slog.Int64("MAX_REQUEST_BODY_BYTES", cfg.MaxRequestBodyBytes),
		slog.String("CONFIG_FILE", opts.configPath),
	)
	config.WarnUnknownFileKeys(appLogger, opts.configPath, cfg)

	if opts.configPath != "" {
		current := cfg
		err := config.Watch(ctx, opts.configPath, overrides, appLogger, func(next *config.ServerEnvironment) {
			if pending := current.RestartRequired(next); len(pending) > 0 {
				appLogger.Warn("config file changed settings that require a restart",
					slog.String("settings", strings.Join(pending, ",")))
			}

			level := logger.ParseLogLevel(next.LogLevel)
			if level != logLevel.Level() {
				logLevel.Set(level)
				appLogger.Info("log level changed", slog.String("LOG_LEVEL", next.LogLevel))
			}
		})
		if err != nil {
			appLogger.Warn("config file changes will not be applied until restart", slog.String("error", err.Error()))
		}
	}

	appLogger.Info("Starting server", slog.String("version", version.Get().Version))

	srv, err := server.NewServer(cfg, appLogger)
	if err != nil {
		appLogger.Error("Failed to create server", slog.String("error", err.Error()))
		return err
	}

	if err := srv.Start(ctx); err != nil {
		attrs := []any{slog.String("error", err.Error())}
		if hint := server.StartupHint(err); hint != "" {
			attrs = append(attrs, slog.String("hint", hint))
		}
		appLogger.Error("Server error", attrs...)
		return err
	}

	appLogger.Info("server shutdown complete")
	return nil
}
