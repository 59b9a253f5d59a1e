package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"fibermap/editor-go/internal/backend"
	"fibermap/editor-go/internal/config"
	"fibermap/editor-go/internal/db"
	"fibermap/editor-go/internal/editor"
	"fibermap/editor-go/internal/httpapi"
	"fibermap/editor-go/internal/metrics"
	"fibermap/editor-go/internal/network"
	"fibermap/editor-go/internal/observability"
	"fibermap/editor-go/internal/routing"
	"fibermap/editor-go/internal/syncworker"
)

var (
	configPath string
	jsonOutput bool
)

var rootCmd = &cobra.Command{
	Use:          "editor-go",
	Short:        "Fiber network map editing service",
	SilenceUsage: true,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the editor HTTP service",
	RunE:  runServe,
}

var elementsCmd = &cobra.Command{
	Use:   "elements",
	Short: "Fetch the backend element collection and summarize it",
	RunE:  runElements,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", os.Getenv("EDITOR_CONFIG"), "YAML config file (env EDITOR_CONFIG)")
	elementsCmd.Flags().BoolVar(&jsonOutput, "json", false, "Print every element as JSON")

	rootCmd.AddCommand(serveCmd, elementsCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadConfig() (config.Config, zerolog.Logger, error) {
	cfg, err := config.Load(configPath, os.Getenv)
	if err != nil {
		return config.Config{}, zerolog.Nop(), err
	}
	return cfg, httpapi.NewLoggerWithFormat(cfg.Log.Level, cfg.Log.Format), nil
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := observability.InitTracing(ctx, cfg.Tracing, logger)
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer observability.ShutdownWithTimeout(context.Background(), shutdownTracing, logger)

	var pool *db.Pool
	if cfg.Database.URL != "" {
		p, err := db.Open(ctx, cfg.Database.URL)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to database")
		}
		defer p.Close()
		pool = p
	}

	m := metrics.New()
	store := backend.New(logger, cfg.Backend.URL, cfg.Backend.Timeout)
	directions := routing.NewDirections(logger, cfg.Directions.URL, cfg.Directions.APIKey, cfg.Directions.Timeout)
	geometry := routing.NewGeometry(cfg.Editor.PathStepMeters)

	collection := editor.NewCollection(logger, store, m)
	workflow := editor.NewWorkflow(logger, store, geometry, directions, collection, m)
	sessions := editor.NewRegistry(logger, m, editor.RegistryOptions{
		StepInterval: cfg.Editor.StepInterval,
		IdleTTL:      cfg.Editor.SessionIdleTTL,
	})

	worker := syncworker.New(logger, collection, sessions, syncworker.Options{
		RefreshInterval: cfg.Sync.RefreshInterval,
		SweepInterval:   cfg.Sync.SweepInterval,
		RefreshTimeout:  cfg.Backend.Timeout,
		MaxBackoff:      cfg.Sync.MaxBackoff,
	})
	go worker.Run(ctx)

	h := httpapi.NewHandler(logger, pool, httpapi.Options{
		Sessions:       sessions,
		Workflow:       workflow,
		Metrics:        m,
		RequestTimeout: cfg.HTTP.RequestTimeout,
	})
	srv := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           h.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", cfg.HTTP.Addr).Str("backend", cfg.Backend.URL).Msg("editor-go listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("http server error")
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
	logger.Info().Msg("shutdown complete")
	return nil
}

func runElements(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), cfg.Backend.Timeout)
	defer cancel()

	items, err := backend.New(logger, cfg.Backend.URL, cfg.Backend.Timeout).ListElements(ctx)
	if err != nil {
		return fmt.Errorf("list elements: %w", err)
	}

	out := cmd.OutOrStdout()
	if jsonOutput {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(items)
	}

	type summary struct {
		count  int
		length float64
		full   int
	}
	byKind := make(map[network.Kind]*summary)
	for _, e := range items {
		s, ok := byKind[e.Kind]
		if !ok {
			s = &summary{}
			byKind[e.Kind] = s
		}
		s.count++
		s.length += e.Length
		if c := e.Capacity(); c > 0 && len(e.UnusedCoreColors()) == 0 {
			s.full++
		}
	}
	kinds := make([]string, 0, len(byKind))
	for k := range byKind {
		kinds = append(kinds, string(k))
	}
	sort.Strings(kinds)

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "KIND\tCOUNT\tLENGTH_M\tFULL")
	for _, k := range kinds {
		s := byKind[network.Kind(k)]
		fmt.Fprintf(tw, "%s\t%d\t%.0f\t%d\n", k, s.count, s.length, s.full)
	}
	fmt.Fprintf(tw, "total\t%d\t\t\n", len(items))
	return tw.Flush()
}
