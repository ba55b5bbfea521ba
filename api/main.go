package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"fieldrisk/api/analysis"
	"fieldrisk/api/logging"
	"fieldrisk/api/observability"
	"fieldrisk/api/render"
	"fieldrisk/api/riskclient"
	"fieldrisk/api/roi"
	"fieldrisk/api/selection"
	"fieldrisk/api/session"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "fieldrisk",
		Short: "Field risk dashboard backend",
		Long: `fieldrisk serves the map dashboard: it keeps each browser's selected
region, runs risk and time-series analysis against the analysis service,
and hands back render-ready views.`,
		SilenceUsage: true,
	}
	root.PersistentFlags().String("env-file", "", "Load environment from this file before reading config")
	root.AddCommand(newServeCmd(), newAnalyzeCmd())
	return root
}

func configFromFlags(cmd *cobra.Command) (Config, error) {
	envFile, _ := cmd.Flags().GetString("env-file")
	if envFile != "" {
		return loadConfig(envFile)
	}
	return loadConfig()
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the dashboard HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := configFromFlags(cmd)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg)
		},
	}
}

func serve(ctx context.Context, cfg Config) error {
	log := logging.New(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})
	if cfg.DefaultSecret() {
		log.Warn(ctx, "SESSION_SECRET is the built-in default; session tokens can be forged. Set SESSION_SECRET in production.")
	}

	shutdownTracing, err := observability.InitTracing(ctx, observability.TracingConfig{
		Enabled:     cfg.TracingEnabled,
		ServiceName: "fieldrisk",
		Exporter:    cfg.TracingExporter,
		Endpoint:    cfg.OTLPEndpoint,
	}, log)
	if err != nil {
		return fmt.Errorf("tracing: %w", err)
	}
	defer observability.ShutdownWithTimeout(ctx, shutdownTracing, log)

	initCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	app, err := newApp(initCtx, cfg, log, nil)
	cancel()
	if err != nil {
		return err
	}
	defer app.close(context.Background())

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           app.routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info(gctx, "fieldrisk API listening",
			logging.String("addr", srv.Addr),
			logging.String("analysis_service", app.client.BaseURL()),
			logging.String("run_store", cfg.RunStore),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		return app.sessions.Run(gctx, time.Minute)
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		log.Info(shutdownCtx, "shutting down")
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func newAnalyzeCmd() *cobra.Command {
	var (
		lat, lng   float64
		polygon    string
		serviceURL string
	)
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Run one analysis from the command line and print the views",
		Example: `  fieldrisk analyze --lat 39.5 --lng 32.8
  fieldrisk analyze --polygon "39.50,32.80;39.51,32.80;39.51,32.81"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := configFromFlags(cmd)
			if err != nil {
				return err
			}
			if serviceURL != "" {
				cfg.AnalysisServiceURL = serviceURL
			}

			var ev selection.Event
			switch {
			case polygon != "":
				ring, err := parseLatLngList(polygon)
				if err != nil {
					return err
				}
				ev = selection.DrawCreated{Shape: roi.ShapePolygon, Geometry: roi.Geometry{Rings: [][]roi.LatLng{ring}}}
			case cmd.Flags().Changed("lat") && cmd.Flags().Changed("lng"):
				ev = selection.GotoRequested{Lat: lat, Lng: lng}
			default:
				return errors.New("either --lat and --lng or --polygon is required")
			}

			log := logging.New(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat, Output: cmd.ErrOrStderr()})
			client := riskclient.New(cfg.AnalysisServiceURL, riskclient.WithTimeout(cfg.RemoteTimeout), riskclient.WithLogger(log))
			view, err := analyzeOnce(cmd.Context(), client, log, ev)

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if encErr := enc.Encode(view); encErr != nil {
				return encErr
			}
			return err
		},
	}
	cmd.Flags().Float64Var(&lat, "lat", 0, "Latitude of a point region")
	cmd.Flags().Float64Var(&lng, "lng", 0, "Longitude of a point region")
	cmd.Flags().StringVar(&polygon, "polygon", "", `Polygon vertices as "lat,lng;lat,lng;..."`)
	cmd.Flags().StringVar(&serviceURL, "service-url", "", "Override ANALYSIS_SERVICE_URL")
	return cmd
}

// analyzeOnce drives a throwaway session context through one event and one
// run, the same path the HTTP API takes.
func analyzeOnce(ctx context.Context, svc analysis.RiskService, log logging.Logger, ev selection.Event) (render.View, error) {
	sc := session.NewContext("cli", session.Wiring{Service: svc, Logger: log})
	if err := sc.Apply(ctx, ev); err != nil {
		return sc.View(), err
	}
	if _, err := sc.Orchestrator.Run(ctx); err != nil {
		return sc.View(), err
	}
	return sc.View(), nil
}

// parseLatLngList parses "lat,lng;lat,lng;...".
func parseLatLngList(s string) ([]roi.LatLng, error) {
	var out []roi.LatLng
	for _, pair := range strings.Split(s, ";") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		parts := strings.Split(pair, ",")
		if len(parts) != 2 {
			return nil, roi.Invalidf("bad vertex %q, want lat,lng", pair)
		}
		la, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
		if err != nil {
			return nil, roi.Invalidf("bad latitude in %q", pair)
		}
		ln, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
		if err != nil {
			return nil, roi.Invalidf("bad longitude in %q", pair)
		}
		out = append(out, roi.LatLng{Lat: la, Lng: ln})
	}
	return out, nil
}
