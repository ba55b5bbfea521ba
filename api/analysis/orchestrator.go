// Package analysis sequences the remote risk and time-series calls for the
// currently selected region and drives the display adapters.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"fieldrisk/api/logging"
	"fieldrisk/api/models"
	"fieldrisk/api/riskclient"
	"fieldrisk/api/roi"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// ErrRunInProgress is returned when Run is called while another run has not
// finished. The second call makes no remote calls and leaves the indicator
// alone.
var ErrRunInProgress = errors.New("analysis: run already in progress")

var (
	errAborted    = errors.New("analysis: run aborted")
	errNoResponse = errors.New("empty response")
)

// Source yields the region to analyze. *selection.Machine satisfies it.
type Source interface {
	Current() roi.ROI
}

// RiskService is the subset of the remote client the pipeline needs.
type RiskService interface {
	Risk(ctx context.Context, r roi.ROI, fieldID *string) (*models.RiskResponse, error)
	Analyze(ctx context.Context, r roi.ROI, start, end models.Date) (*models.AnalyzeResponse, error)
}

type RiskDisplay interface {
	UpdateRisk(models.RiskAssessment)
}

type CurrentDisplay interface {
	UpdateCurrent(models.CurrentStatus)
}

type ChartDisplay interface {
	UpdateChart([]models.TimeseriesPoint)
}

// Notifier shows a failure message to the user.
type Notifier interface {
	Notify(msg string)
}

// Indicator is the loading indicator. SetBusy(true) is always paired with a
// later SetBusy(false).
type Indicator interface {
	SetBusy(bool)
}

// Displays groups the render targets. Nil members are skipped.
type Displays struct {
	Risk      RiskDisplay
	Current   CurrentDisplay
	Chart     ChartDisplay
	Notifier  Notifier
	Indicator Indicator
}

// RunObserver is told about every run that starts and every call that is
// refused before starting.
type RunObserver interface {
	RunStarted(ctx context.Context, r Run)
	RunFinished(ctx context.Context, r Run)
	RunRejected(ctx context.Context, err error)
}

type Option func(*Orchestrator)

// WithClock replaces time.Now; the time-series window is derived from it.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) {
		if now != nil {
			o.now = now
		}
	}
}

func WithLogger(l logging.Logger) Option {
	return func(o *Orchestrator) {
		if l != nil {
			o.log = l
		}
	}
}

// WithObserver adds a lifecycle observer. Observers run synchronously.
func WithObserver(obs RunObserver) Option {
	return func(o *Orchestrator) {
		if obs != nil {
			o.observers = append(o.observers, obs)
		}
	}
}

// Orchestrator runs the analysis pipeline. It never mutates the selection.
type Orchestrator struct {
	source    Source
	svc       RiskService
	out       Displays
	now       func() time.Time
	log       logging.Logger
	observers []RunObserver
	tracer    trace.Tracer

	mu      sync.Mutex
	running bool
	last    *Run
}

// New wires an orchestrator. source and svc are required.
func New(source Source, svc RiskService, out Displays, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		source: source,
		svc:    svc,
		out:    out,
		now:    time.Now,
		log:    logging.Noop(),
		tracer: otel.Tracer("fieldrisk/analysis"),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Busy reports whether a run is in flight.
func (o *Orchestrator) Busy() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.running
}

// Last returns the most recent run, finished or not.
func (o *Orchestrator) Last() (Run, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.last == nil {
		return Run{}, false
	}
	return *o.last, true
}

// Run analyzes the current region: risk first, then the trailing-year time
// series. A failed remote call stops the pipeline; display updates already
// made by earlier steps stay in place.
func (o *Orchestrator) Run(ctx context.Context) (Run, error) {
	region := o.source.Current()
	if region.IsEmpty() {
		err := roi.Invalidf("no ROI selected")
		o.rejected(ctx, err)
		return Run{}, err
	}

	run, err := o.begin(region)
	if err != nil {
		o.rejected(ctx, err)
		return Run{}, err
	}
	finished := false
	defer func() {
		if !finished {
			o.finish(run, errAborted)
		}
	}()

	ctx, span := o.tracer.Start(ctx, "analysis.run", trace.WithAttributes(
		attribute.String("run.id", run.ID),
		attribute.String("roi.kind", region.Kind().String()),
	))
	defer span.End()

	for _, obs := range o.observers {
		obs.RunStarted(ctx, run)
	}

	o.setBusy(true)
	defer o.setBusy(false)

	stepErr := o.steps(ctx, &run)

	run = o.finish(run, stepErr)
	finished = true
	if stepErr != nil {
		span.RecordError(stepErr)
		span.SetStatus(codes.Error, "analysis failed")
		o.log.Warn(ctx, "analysis failed", logging.String("run_id", run.ID), logging.Err(stepErr))
		if o.out.Notifier != nil {
			o.out.Notifier.Notify(run.Message)
		}
	} else {
		o.log.Info(ctx, "analysis finished",
			logging.String("run_id", run.ID),
			logging.String("roi_kind", region.Kind().String()),
			logging.Any("elapsed", run.Duration().String()),
		)
	}
	for _, obs := range o.observers {
		obs.RunFinished(ctx, run)
	}
	return run, stepErr
}

// steps runs the pipeline. A panic in the service or a display becomes the
// run's error.
func (o *Orchestrator) steps(ctx context.Context, run *Run) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("%w: %v", errAborted, p)
		}
	}()

	risk, err := o.svc.Risk(ctx, run.ROI, nil)
	if err != nil {
		return fmt.Errorf("risk: %w", err)
	}
	if risk == nil {
		return fmt.Errorf("risk: %w", errNoResponse)
	}
	if risk.Success {
		if o.out.Risk != nil {
			o.out.Risk.UpdateRisk(risk.Risk)
		}
		if o.out.Current != nil {
			o.out.Current.UpdateCurrent(risk.Current)
		}
	} else {
		o.log.Warn(ctx, "risk response without success flag", logging.String("run_id", run.ID))
	}

	series, err := o.svc.Analyze(ctx, run.ROI, run.Window.Start, run.Window.End)
	if err != nil {
		return fmt.Errorf("timeseries: %w", err)
	}
	if series == nil {
		return fmt.Errorf("timeseries: %w", errNoResponse)
	}
	if series.Success && len(series.Timeseries) > 0 && o.out.Chart != nil {
		o.out.Chart.UpdateChart(series.Timeseries)
	}
	return nil
}

func (o *Orchestrator) begin(region roi.ROI) (Run, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.running {
		return Run{}, ErrRunInProgress
	}
	now := o.now()
	run := &Run{
		ID:        uuid.NewString(),
		ROI:       region,
		State:     Running,
		Window:    TrailingYear(now),
		StartedAt: now.UTC(),
	}
	o.running = true
	o.last = run
	return *run, nil
}

func (o *Orchestrator) finish(run Run, err error) Run {
	run.FinishedAt = o.now().UTC()
	run.State = Succeeded
	if err != nil {
		run.State = Failed
		run.Err = err
		run.Message = riskclient.UserMessage(err)
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	o.running = false
	if o.last != nil && o.last.ID == run.ID {
		*o.last = run
	}
	return run
}

func (o *Orchestrator) setBusy(on bool) {
	if o.out.Indicator != nil {
		o.out.Indicator.SetBusy(on)
	}
}

func (o *Orchestrator) rejected(ctx context.Context, err error) {
	o.log.Debug(ctx, "analysis refused", logging.Err(err))
	for _, obs := range o.observers {
		obs.RunRejected(ctx, err)
	}
}
