// Package runlog keeps a journal of analysis runs: when they started, what
// region they covered and how they ended.
package runlog

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"fieldrisk/api/analysis"
	"fieldrisk/api/logging"
)

// ErrUnknownBackend is returned by Open for an unrecognized RUN_STORE value.
var ErrUnknownBackend = errors.New("runlog: unknown backend")

// Record is one journal row. A run is written when it starts and rewritten
// when it finishes.
type Record struct {
	RunID      string          `json:"run_id" bson:"_id"`
	SessionID  string          `json:"session_id" bson:"sessionId"`
	ROIKind    string          `json:"roi_kind" bson:"roiKind"`
	ROI        json.RawMessage `json:"roi" bson:"roi"`
	State      string          `json:"state" bson:"state"`
	Error      string          `json:"error,omitempty" bson:"error,omitempty"`
	WindowFrom string          `json:"window_from" bson:"windowFrom"`
	WindowTo   string          `json:"window_to" bson:"windowTo"`
	StartedAt  time.Time       `json:"started_at" bson:"startedAt"`
	FinishedAt *time.Time      `json:"finished_at,omitempty" bson:"finishedAt,omitempty"`
}

// Journal stores run records.
type Journal interface {
	Save(ctx context.Context, r Record) error
	List(ctx context.Context, sessionID string, limit int) ([]Record, error)
	Close(ctx context.Context) error
}

// RecordOf converts a run into a journal row.
func RecordOf(sessionID string, run analysis.Run) Record {
	rec := Record{
		RunID:      run.ID,
		SessionID:  sessionID,
		ROIKind:    run.ROI.Kind().String(),
		State:      run.State.String(),
		Error:      run.Message,
		WindowFrom: run.Window.Start.String(),
		WindowTo:   run.Window.End.String(),
		StartedAt:  run.StartedAt,
	}
	if b, err := json.Marshal(run.ROI); err == nil {
		rec.ROI = b
	}
	if !run.FinishedAt.IsZero() {
		t := run.FinishedAt
		rec.FinishedAt = &t
	}
	return rec
}

// Observer writes a session's runs into a journal. Write failures are logged
// and never reach the pipeline.
type Observer struct {
	journal   Journal
	sessionID string
	log       logging.Logger
	timeout   time.Duration
}

// SaveTimeout bounds each journal write; RunStarted blocks the run until
// the write returns.
const SaveTimeout = 3 * time.Second

func NewObserver(j Journal, sessionID string, log logging.Logger) *Observer {
	if log == nil {
		log = logging.Noop()
	}
	return &Observer{journal: j, sessionID: sessionID, log: log, timeout: SaveTimeout}
}

func (o *Observer) RunStarted(ctx context.Context, run analysis.Run)  { o.save(ctx, run) }
func (o *Observer) RunFinished(ctx context.Context, run analysis.Run) { o.save(ctx, run) }
func (o *Observer) RunRejected(context.Context, error)                {}

func (o *Observer) save(ctx context.Context, run analysis.Run) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), o.timeout)
	defer cancel()
	if err := o.journal.Save(ctx, RecordOf(o.sessionID, run)); err != nil {
		o.log.Warn(ctx, "run journal write failed", logging.String("run_id", run.ID), logging.Err(err))
	}
}

// Nop discards everything.
type Nop struct{}

func (Nop) Save(context.Context, Record) error                  { return nil }
func (Nop) List(context.Context, string, int) ([]Record, error) { return nil, nil }
func (Nop) Close(context.Context) error                         { return nil }

// Options selects and configures a backend.
type Options struct {
	Backend    string // none, mongo, sqlite
	MongoURI   string
	MongoDB    string
	SQLitePath string
}

// Open returns the journal named by opts.Backend.
func Open(ctx context.Context, opts Options) (Journal, error) {
	switch opts.Backend {
	case "", "none":
		return Nop{}, nil
	case "mongo":
		m, err := OpenMongo(ctx, opts.MongoURI, opts.MongoDB)
		if err != nil {
			return nil, err
		}
		return m, nil
	case "sqlite":
		s, err := OpenSQLite(ctx, opts.SQLitePath)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, ErrUnknownBackend
	}
}
