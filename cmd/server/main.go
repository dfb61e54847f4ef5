package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/fsguard/internal/infrastructure/config"
	"github.com/GriffinCanCode/fsguard/internal/logging"
	"github.com/GriffinCanCode/fsguard/internal/server"
)

var version = "dev"

type options struct {
	configFile string
	transport  string
	addr       string
	logLevel   string
	dev        bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var opts options
	cmd := &cobra.Command{
		Use:   "fsguard [allowed-directory...]",
		Short: "Policy-guarded filesystem and media-metadata tools",
		Long: `fsguard serves filesystem and media-metadata tools to agents over MCP (stdio)
or HTTP. Every path is checked against an allow-list and destructive operations
on sensitive paths need explicit confirmation.

Allowed directories given as arguments replace FSGUARD_ALLOWED_DIRS and the
config file's list.`,
		Version:      version,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(opts, args)
			if err != nil {
				return err
			}
			return run(cmd.Context(), cfg)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.configFile, "config", "c", "", "YAML or TOML config file")
	flags.StringVar(&opts.transport, "transport", "", "Transport: stdio or http")
	flags.StringVar(&opts.addr, "addr", "", "HTTP listen address (host:port)")
	flags.StringVar(&opts.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	flags.BoolVar(&opts.dev, "dev", false, "Development logging")
	return cmd
}

// loadConfig layers environment, config file, flags and positional directories.
func loadConfig(opts options, dirs []string) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if opts.configFile != "" {
		if err := cfg.LoadFile(opts.configFile); err != nil {
			return nil, err
		}
	}
	if len(dirs) > 0 {
		if err := cfg.SetDirectories(dirs); err != nil {
			return nil, err
		}
	}

	if opts.transport != "" {
		cfg.Server.Transport = opts.transport
	}
	if opts.addr != "" {
		host, port, err := net.SplitHostPort(opts.addr)
		if err != nil {
			return nil, fmt.Errorf("invalid --addr: %w", err)
		}
		cfg.Server.Host, cfg.Server.Port = host, port
	}
	if opts.logLevel != "" {
		cfg.Logging.Level = opts.logLevel
	}
	if opts.dev {
		cfg.Logging.Development = true
	}
	return cfg, cfg.Validate()
}

func run(ctx context.Context, cfg *config.Config) error {
	log, err := logging.New(logging.Config{
		Level:       cfg.Logging.Level,
		Development: cfg.Logging.Development,
		File:        cfg.Logging.File,
		MaxSizeMB:   cfg.Logging.MaxSizeMB,
		MaxBackups:  cfg.Logging.MaxBackups,
		MaxAgeDays:  cfg.Logging.MaxAgeDays,
	})
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer log.Close()

	log.Info("Starting fsguard",
		zap.String("version", version),
		zap.String("transport", cfg.Server.Transport),
	)

	srv, err := server.New(cfg, log.Logger, version)
	if err != nil {
		log.Error("Failed to create server", zap.Error(err))
		return err
	}
	if err := srv.Run(ctx, os.Stdin, os.Stdout); err != nil {
		log.Error("Server error", zap.Error(err))
		return err
	}
	log.Info("Server stopped")
	return nil
}
