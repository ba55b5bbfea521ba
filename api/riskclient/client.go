// Package riskclient talks JSON over HTTP to the remote analysis/risk
// service.
package riskclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"fieldrisk/api/logging"
	"fieldrisk/api/models"
	"fieldrisk/api/roi"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// DefaultBaseURL is used when no address is configured.
const DefaultBaseURL = "http://localhost:5000/api"

// Call outcomes reported to a CallObserver.
const (
	OutcomeOK             = "ok"
	OutcomeRemoteError    = "remote_error"
	OutcomeTransportError = "transport_error"
	OutcomeClientError    = "client_error"
)

// CallObserver receives one observation per remote call.
type CallObserver interface {
	ObserveRemoteCall(call, outcome string, elapsed time.Duration)
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the transport. Timeouts live on the http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithTimeout bounds every call.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.Timeout = d }
}

func WithLogger(l logging.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.log = l
		}
	}
}

func WithObserver(o CallObserver) Option {
	return func(c *Client) { c.observer = o }
}

// Client is safe for concurrent use.
type Client struct {
	baseURL  string
	http     *http.Client
	log      logging.Logger
	observer CallObserver
	tracer   trace.Tracer
}

// New builds a client for baseURL ("" or "local" means DefaultBaseURL).
func New(baseURL string, opts ...Option) *Client {
	if baseURL == "" || baseURL == "local" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 25 * time.Second},
		log:     logging.Noop(),
		tracer:  otel.Tracer("fieldrisk/riskclient"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the normalized service address.
func (c *Client) BaseURL() string { return c.baseURL }

// Risk calls POST /risk.
func (c *Client) Risk(ctx context.Context, r roi.ROI, fieldID *string) (*models.RiskResponse, error) {
	if r.IsEmpty() {
		return nil, roi.Invalidf("no ROI selected")
	}
	var out models.RiskResponse
	if err := c.do(ctx, "risk", http.MethodPost, "/risk", models.RegionRequest{Coordinates: r, FieldID: fieldID}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Analyze calls POST /analyze for the [start, end] window.
func (c *Client) Analyze(ctx context.Context, r roi.ROI, start, end models.Date) (*models.AnalyzeResponse, error) {
	if r.IsEmpty() {
		return nil, roi.Invalidf("no ROI selected")
	}
	var out models.AnalyzeResponse
	req := models.WindowRequest{Coordinates: r, StartDate: start.String(), EndDate: end.String()}
	if err := c.do(ctx, "analyze", http.MethodPost, "/analyze", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Timeseries calls POST /timeseries for the [start, end] window.
func (c *Client) Timeseries(ctx context.Context, r roi.ROI, start, end models.Date) (*models.TimeseriesResponse, error) {
	if r.IsEmpty() {
		return nil, roi.Invalidf("no ROI selected")
	}
	var out models.TimeseriesResponse
	req := models.WindowRequest{Coordinates: r, StartDate: start.String(), EndDate: end.String()}
	if err := c.do(ctx, "timeseries", http.MethodPost, "/timeseries", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Current calls POST /current.
func (c *Client) Current(ctx context.Context, r roi.ROI) (*models.CurrentResponse, error) {
	if r.IsEmpty() {
		return nil, roi.Invalidf("no ROI selected")
	}
	var out models.CurrentResponse
	if err := c.do(ctx, "current", http.MethodPost, "/current", models.RegionRequest{Coordinates: r}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Baseline calls POST /baseline. fieldID lets the service cache the result.
func (c *Client) Baseline(ctx context.Context, r roi.ROI, fieldID *string) (*models.BaselineResponse, error) {
	if r.IsEmpty() {
		return nil, roi.Invalidf("no ROI selected")
	}
	var out models.BaselineResponse
	if err := c.do(ctx, "baseline", http.MethodPost, "/baseline", models.RegionRequest{Coordinates: r, FieldID: fieldID}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// do sends in as JSON and decodes a 2xx body into out.
func (c *Client) do(ctx context.Context, call, method, path string, in, out any) (err error) {
	ctx, span := c.tracer.Start(ctx, "riskclient."+call,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("http.method", method), attribute.String("remote.call", call)),
	)
	start := time.Now()
	defer func() {
		outcome := OutcomeOK
		switch err.(type) {
		case nil:
		case *TransportError:
			outcome = OutcomeTransportError
		case *RemoteServiceError:
			outcome = OutcomeRemoteError
		default:
			outcome = OutcomeClientError
		}
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, outcome)
			c.log.Warn(ctx, "remote call failed", logging.String("call", call), logging.Err(err))
		}
		if c.observer != nil {
			c.observer.ObserveRemoteCall(call, outcome, time.Since(start))
		}
		span.End()
	}()

	var body io.Reader
	if in != nil {
		b, merr := json.Marshal(in)
		if merr != nil {
			return fmt.Errorf("marshal %s request: %w", call, merr)
		}
		body = bytes.NewReader(b)
	}

	req, rerr := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if rerr != nil {
		return fmt.Errorf("build %s request: %w", call, rerr)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	resp, derr := c.http.Do(req)
	if derr != nil {
		return &TransportError{Call: call, Err: unwrapURLError(derr)}
	}
	defer resp.Body.Close()
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	data, rerr := io.ReadAll(resp.Body)
	if rerr != nil {
		return &TransportError{Call: call, Err: rerr}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &RemoteServiceError{Call: call, Status: resp.StatusCode, Message: serverMessage(data)}
	}
	if out == nil {
		return nil
	}
	if uerr := json.Unmarshal(data, out); uerr != nil {
		return &RemoteServiceError{Call: call, Status: resp.StatusCode, Message: GenericMessage, Err: fmt.Errorf("decode %s response: %w", call, uerr)}
	}
	return nil
}

// serverMessage pulls {"error": "..."} out of a failure body.
func serverMessage(data []byte) string {
	var e struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(data, &e); err == nil && strings.TrimSpace(e.Error) != "" {
		return e.Error
	}
	return GenericMessage
}

// unwrapURLError drops the "Post \"http://...\":" prefix so users see the
// cause, not the URL.
func unwrapURLError(err error) error {
	if ue, ok := err.(*url.Error); ok && ue.Err != nil {
		return ue.Err
	}
	return err
}
