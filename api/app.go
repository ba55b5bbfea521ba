package main

import (
	"context"
	"fmt"
	"time"

	"fieldrisk/api/analysis"
	"fieldrisk/api/logging"
	"fieldrisk/api/observability"
	"fieldrisk/api/riskclient"
	"fieldrisk/api/runlog"
	"fieldrisk/api/session"

	"github.com/prometheus/client_golang/prometheus"
)

// App is the process-wide application context. Everything a handler needs
// hangs off it; there is no package-level state.
type App struct {
	cfg      Config
	log      logging.Logger
	client   *riskclient.Client
	sessions *session.Store
	journal  runlog.Journal
	metrics  *observability.Collector
	started  time.Time
}

func newApp(ctx context.Context, cfg Config, log logging.Logger, reg prometheus.Registerer) (*App, error) {
	if log == nil {
		log = logging.Noop()
	}
	metrics, err := observability.NewCollector(reg)
	if err != nil {
		return nil, fmt.Errorf("metrics: %w", err)
	}

	journal, err := runlog.Open(ctx, runlog.Options{
		Backend:    cfg.RunStore,
		MongoURI:   cfg.MongoURI,
		MongoDB:    cfg.MongoDB,
		SQLitePath: cfg.SQLitePath,
	})
	if err != nil {
		return nil, fmt.Errorf("run journal (%s): %w", cfg.RunStore, err)
	}

	client := riskclient.New(cfg.AnalysisServiceURL,
		riskclient.WithTimeout(cfg.RemoteTimeout),
		riskclient.WithLogger(log),
		riskclient.WithObserver(metrics),
	)

	sessions := session.NewStore(session.Wiring{
		Service:   client,
		Logger:    log,
		EventHook: metrics.SelectionEvent,
		BusyHook:  metrics.SetBusy,
		Observers: func(sessionID string) []analysis.RunObserver {
			return []analysis.RunObserver{metrics, runlog.NewObserver(journal, sessionID, log)}
		},
	}, session.WithTTL(cfg.SessionTTL), session.WithCountHook(metrics.SetSessions))

	return &App{
		cfg:      cfg,
		log:      log,
		client:   client,
		sessions: sessions,
		journal:  journal,
		metrics:  metrics,
		started:  time.Now(),
	}, nil
}

func (a *App) close(ctx context.Context) {
	if err := a.journal.Close(ctx); err != nil {
		a.log.Warn(ctx, "closing run journal", logging.Err(err))
	}
}
