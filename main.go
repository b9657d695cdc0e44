package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/awion/sentinel-dash/config"
	"github.com/awion/sentinel-dash/public/client"
	"github.com/awion/sentinel-dash/public/logger"
	"github.com/awion/sentinel-dash/public/metrics"
	"github.com/awion/sentinel-dash/ui"
)

type rootOptions struct {
	configPath string
	apiURL     string
	verbose    bool
}

func main() {
	if err := newRootCmd(os.Stdin, os.Stdout).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd(in io.Reader, out io.Writer) *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:           "sentinel-dash",
		Short:         "Terminal dashboard for the SentinelForge SOC",
		Version:       config.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDashboard(cmd.Context(), opts, in, out)
		},
	}
	root.SetVersionTemplate("SentinelForge dashboard v{{.Version}}\n")
	root.SetOut(out)

	root.PersistentFlags().StringVar(&opts.configPath, "config", "config.yaml", "Path to configuration file")
	root.Flags().StringVar(&opts.apiURL, "api", "", "SOC server base URL (overrides api.baseURL)")
	root.Flags().BoolVar(&opts.verbose, "verbose", false, "Enable verbose logging")

	root.AddCommand(newInitConfigCmd(opts, out))
	return root
}

func newInitConfigCmd(opts *rootOptions, out io.Writer) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init-config",
		Short: "Write a default configuration file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := os.Stat(opts.configPath); err == nil && !force {
				return fmt.Errorf("configuration file already exists: %s (use --force to overwrite)", opts.configPath)
			}
			if err := config.CreateDefaultConfig(opts.configPath); err != nil {
				return err
			}
			fmt.Fprintf(out, "Saved configuration to %s\n", opts.configPath)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing file")
	return cmd
}

func runDashboard(parent context.Context, opts *rootOptions, in io.Reader, out io.Writer) error {
	if parent == nil {
		parent = context.Background()
	}

	// Load configuration
	cfg, err := config.LoadConfig(opts.configPath)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}
	if opts.apiURL != "" {
		cfg.API.BaseURL = opts.apiURL
	}
	if opts.verbose {
		cfg.Logging.Verbose = true
	}

	log, err := logger.New(logger.Options{
		Level:   cfg.Logging.Level,
		Format:  cfg.Logging.Format,
		File:    cfg.Logging.File,
		Verbose: cfg.Logging.Verbose,
	})
	if err != nil {
		return fmt.Errorf("initializing logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	// Metrics
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.NewMetrics(reg)

	apiClient, err := client.NewClient(cfg.API, nil, log.Named("api"), m)
	if err != nil {
		return fmt.Errorf("initializing api client: %w", err)
	}

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Metrics.Enabled {
		srv := startMetricsServer(cfg.Metrics.Addr, reg, log)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	configureColor(cfg.Dashboard.ColorEnabled)

	probeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	if err := apiClient.Health(probeCtx); err != nil {
		log.Warn("server health check failed", zap.String("server", apiClient.BaseURL()), zap.Error(err))
	}
	cancel()

	cli, err := ui.NewCLI(apiClient, ui.Options{
		Logger:   log.Named("dashboard"),
		Metrics:  m,
		LogLimit: cfg.Dashboard.LogLimit,
	}, ui.CLIConfig{
		RefreshInterval: cfg.Dashboard.RefreshInterval,
		MaxCellWidth:    cfg.Dashboard.MaxCellWidth,
		ServerURL:       apiClient.BaseURL(),
	}, in, out)
	if err != nil {
		return fmt.Errorf("initializing dashboard: %w", err)
	}

	log.Info("dashboard starting",
		zap.String("server", apiClient.BaseURL()),
		zap.Duration("refresh_interval", cfg.Dashboard.RefreshInterval))

	cli.Start(ctx)
	defer cli.Stop()

	done := make(chan error, 1)
	go func() { done <- cli.Run(ctx) }()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		fmt.Fprintln(out, "\nReceived interrupt, shutting down...")
		return nil
	}
}

// configureColor turns terminal colors off when disabled in config. When
// enabled, color keeps its own terminal detection.
func configureColor(enabled bool) {
	if !enabled {
		color.NoColor = true
	}
}

func startMetricsServer(addr string, reg *prometheus.Registry, log *zap.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info("metrics listener started", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("metrics listener failed", zap.Error(err))
		}
	}()
	return srv
}
