package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"live-dashboard/src/cache"
	"live-dashboard/src/config"
	"live-dashboard/src/dashboard"
	"live-dashboard/src/data_source"
	"live-dashboard/src/filterwatch"
	"live-dashboard/src/grpc_control"
	"live-dashboard/src/interfaces"
	"live-dashboard/src/logger"
	"live-dashboard/src/network"
	"live-dashboard/src/push"
	"live-dashboard/src/render"
	"live-dashboard/src/server"
	"live-dashboard/src/storage"
	"live-dashboard/src/utils"

	"github.com/spf13/cobra"
)

var (
	configPath string
	logLevel   string
	showTable  bool

	rootCmd = &cobra.Command{
		Use:   "live-dashboard [flags]",
		Short: "Live data dashboard backed by a pull API and a push channel",
		Long: `live-dashboard keeps a bounded cache of the latest data points, derives
chart views from it and serves them over HTTP and WebSocket.

Examples:
  live-dashboard                               # Defaults, backend on localhost:8080
  live-dashboard --config config/default.yaml  # Load a config file
  live-dashboard --table --log-level ERROR     # Print the recent table to the terminal`,
		SilenceUsage: true,
		RunE:         runDashboard,
	}

	initConfigCmd = &cobra.Command{
		Use:   "init-config <path>",
		Short: "Write a config file holding every default",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.Default().Save(args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Config written to %s\n", args[0])
			return nil
		},
	}
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "",
		"Path to the YAML config file (defaults apply when empty)")
	rootCmd.Flags().StringVar(&logLevel, "log-level", "",
		"Override the configured log level (DEBUG, INFO, WARNING, ERROR)")
	rootCmd.Flags().BoolVar(&showTable, "table", false,
		"Print the recent points table and statistics to stdout")

	rootCmd.AddCommand(initConfigCmd)
}

// -----------------------------------------------------------------------------

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// -----------------------------------------------------------------------------

func loadConfig() (*config.Config, error) {
	cfg := config.Default()
	if configPath != "" {
		loaded, err := config.NewConfig(configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// newSource builds the pull source the config asks for.
func newSource(cfg *config.Config, log *logger.Logger) (interfaces.IPullSource, error) {
	switch cfg.Source.Type {
	case "sqlite":
		return storage.NewSQLiteSource(cfg.Source.DBPath, log.Named("sqlite"))
	case "postgres":
		return storage.NewPostgresSource(cfg.Source.DBConnectionString, log.Named("postgres"))
	case "rest":
		nm := network.NewNetworkManager(&cfg.Source, log.Named("network"))
		return data_source.NewRESTSource(cfg.Source.BaseURL, nm, log.Named("rest")), nil
	}
	return nil, fmt.Errorf("unsupported source type '%s'", cfg.Source.Type)
}

// -----------------------------------------------------------------------------

func runDashboard(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("error loading config: %w", err)
	}
	appLogger := logger.NewLogger(cfg.MConfig, cfg.Name)

	// 1. Pull source
	source, err := newSource(cfg, appLogger)
	if err != nil {
		appLogger.Critical("Failed to init source: %v", err)
		return err
	}
	defer source.Close()

	// 2. Sinks: the hub for viewers, PNG for exports, optionally the terminal
	hub := server.NewHub(appLogger.Named("hub"))
	png := render.NewPNGSink(cfg.Export, appLogger.Named("export"))
	sinks := render.MultiSink{hub, png}
	if showTable {
		sinks = append(sinks, render.NewTableSink(os.Stdout))
	}

	// 3. Dashboard
	liveCache := cache.NewLiveSeriesCache(cfg.Cache.Capacity, appLogger.Named("cache"))
	calendar := utils.NewRefreshCalendar(cfg.Refresh.Calendar, appLogger.Named("calendar"))
	dash := dashboard.NewDashboard(cfg.MConfig, liveCache, source, sinks, hub, calendar, appLogger.Named("dashboard"))
	hub.SetProvider(dash)

	var health *grpc_control.HealthService
	if cfg.GrpcPort > 0 {
		health = grpc_control.NewHealthService(cfg.MConfig, appLogger.Named("grpc"))
		dash.WatchConnection(health.ObserveConnection)
	}

	// 4. Run everything until a signal arrives
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	spawn := func(name string, fn func(context.Context) error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := fn(ctx); err != nil && !errors.Is(err, context.Canceled) {
				appLogger.Error("%s stopped: %v", name, err)
				errs <- fmt.Errorf("%s: %w", name, err)
				stop()
			}
		}()
	}

	spawn("hub", func(ctx context.Context) error {
		hub.Run(ctx)
		return nil
	})
	spawn("dashboard", dash.Run)

	if cfg.Push.Enabled {
		client := push.NewClient(&cfg.Push, appLogger.Named("push"))
		spawn("push", func(ctx context.Context) error { return client.Run(ctx, dash) })
	} else {
		appLogger.Info("Push channel disabled, relying on periodic refreshes")
	}

	if cfg.Filter.WatchFile != "" {
		watcher, err := filterwatch.NewWatcher(cfg.Filter.WatchFile, dash.SetFilter, appLogger.Named("filter"))
		if err != nil {
			appLogger.Warning("Filter file watching disabled: %v", err)
		} else {
			spawn("filter watcher", watcher.Run)
		}
	}

	if health != nil {
		spawn("grpc health", health.Start)
	}

	api := server.NewAPIServer(cfg.MConfig, dash, hub, png, appLogger.Named("api"))
	spawn("api", api.Start)

	appLogger.Info("Dashboard running on http://%s:%d", cfg.Host, cfg.Port)
	<-ctx.Done()
	appLogger.Info("Shutting down...")
	wg.Wait()

	close(errs)
	return <-errs
}
