package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"fieldrisk/api/logging"
	"fieldrisk/api/riskclient"
	"fieldrisk/api/roi"
	"fieldrisk/api/selection"

	"github.com/prometheus/client_golang/prometheus"
)

const riskBody = `{"success":true,"risk":{"final_level":"Orta","rule_based":{"score":45,"factors":["NDVI düşüşü"],"z_score":-1.2,"trend":{"direction":"decreasing"}}},"current":{"ndvi_mean":0.35,"ndmi_mean":0.05,"date":"2024-10-10"}}`

const analyzeBody = `{"success":true,"timeseries":[{"date":"2024-09-01","ndvi_mean":0.5,"ndmi_mean":0.1},{"date":"2024-09-15","ndvi_mean":0.45,"ndmi_mean":null}]}`

// fakeAnalysisService answers the endpoints the dashboard calls.
func fakeAnalysisService(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/risk", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(riskBody))
	})
	mux.HandleFunc("/analyze", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(analyzeBody))
	})
	mux.HandleFunc("/timeseries", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"success":true,"count":1,"data":[{"date":"2024-09-01","ndvi_mean":0.5,"ndmi_mean":0.1}]}`))
	})
	mux.HandleFunc("/fields", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			_, _ = w.Write([]byte(`{"success":true,"fields":[{"id":"f1","name":"Kuzey","coordinates":[32.8,39.5]}]}`))
		case http.MethodPost:
			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write([]byte(`{"success":true,"field":{"id":"f2","name":"Yeni","coordinates":[32.8,39.5]}}`))
		}
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestApp(t *testing.T, serviceURL string) *App {
	t.Helper()
	cfg := Config{
		Port:               "0",
		AnalysisServiceURL: serviceURL,
		RemoteTimeout:      2 * time.Second,
		SessionSecret:      "test-secret",
		SessionTTL:         time.Hour,
		RunStore:           "sqlite",
		SQLitePath:         filepath.Join(t.TempDir(), "runs.db"),
		CORSOrigins:        []string{"*"},
	}
	app, err := newApp(context.Background(), cfg, logging.Noop(), prometheus.NewRegistry())
	if err != nil {
		t.Fatalf("newApp: %v", err)
	}
	t.Cleanup(func() { app.close(context.Background()) })
	return app
}

func call(t *testing.T, h http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
}

func startSession(t *testing.T, h http.Handler) string {
	t.Helper()
	rec := call(t, h, http.MethodPost, "/api/session", "", nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create session: status %d", rec.Code)
	}
	var resp sessionResp
	decode(t, rec, &resp)
	if resp.Token == "" || resp.SessionID == "" {
		t.Fatalf("create session: empty token or id: %+v", resp)
	}
	return resp.Token
}

func TestGotoThenAnalyze(t *testing.T) {
	svc := fakeAnalysisService(t)
	h := newTestApp(t, svc.URL).routes()
	token := startSession(t, h)

	rec := call(t, h, http.MethodPost, "/api/session/events", token, map[string]any{"type": "goto", "lat": 39.5, "lng": 32.8})
	if rec.Code != http.StatusOK {
		t.Fatalf("goto: status %d body %s", rec.Code, rec.Body.String())
	}
	var view map[string]any
	decode(t, rec, &view)
	if view["coordinates"] != "Nokta: 39.50000, 32.80000" {
		t.Errorf("coordinates got %v", view["coordinates"])
	}
	if view["analyze_enabled"] != true {
		t.Errorf("analyze should be enabled after goto")
	}
	if _, ok := view["recentre"]; !ok {
		t.Errorf("goto should ask the map to recentre")
	}

	rec = call(t, h, http.MethodPost, "/api/session/analyze", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("analyze: status %d body %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Run struct {
			ID    string `json:"id"`
			State string `json:"state"`
		} `json:"run"`
		View struct {
			Loading bool `json:"loading"`
			Risk    *struct {
				Level    string `json:"level"`
				Category string `json:"category"`
			} `json:"risk"`
			Chart struct {
				Labels []string `json:"labels"`
				Empty  bool     `json:"empty"`
			} `json:"chart"`
		} `json:"view"`
	}
	decode(t, rec, &resp)
	if resp.Run.State != "succeeded" || resp.Run.ID == "" {
		t.Errorf("run got %+v", resp.Run)
	}
	if resp.View.Loading {
		t.Errorf("indicator still engaged after run")
	}
	if resp.View.Risk == nil || resp.View.Risk.Level != "Orta" || resp.View.Risk.Category != "medium" {
		t.Errorf("risk panel got %+v", resp.View.Risk)
	}
	if resp.View.Chart.Empty || len(resp.View.Chart.Labels) != 2 {
		t.Errorf("chart got %+v", resp.View.Chart)
	}

	rec = call(t, h, http.MethodGet, "/api/session/view", token, nil)
	var after struct {
		Coordinates string `json:"coordinates"`
		LastRun     *struct {
			ID string `json:"id"`
		} `json:"last_run"`
	}
	decode(t, rec, &after)
	if after.LastRun == nil || after.LastRun.ID != resp.Run.ID {
		t.Errorf("view should carry the last run, got %+v", after.LastRun)
	}
	if after.Coordinates != "Nokta: 39.50000, 32.80000" {
		t.Errorf("coordinates got %q", after.Coordinates)
	}

	rec = call(t, h, http.MethodGet, "/api/session/runs", token, nil)
	var runs struct {
		Runs []struct {
			RunID string `json:"run_id"`
			State string `json:"state"`
		} `json:"runs"`
	}
	decode(t, rec, &runs)
	if len(runs.Runs) != 1 || runs.Runs[0].RunID != resp.Run.ID || runs.Runs[0].State != "succeeded" {
		t.Errorf("journal got %+v", runs.Runs)
	}
}

func TestSessionRoutesNeedToken(t *testing.T) {
	h := newTestApp(t, "http://127.0.0.1:1").routes()

	if rec := call(t, h, http.MethodGet, "/api/session/view", "", nil); rec.Code != http.StatusUnauthorized {
		t.Errorf("no token: status %d", rec.Code)
	}
	if rec := call(t, h, http.MethodGet, "/api/session/view", "garbage", nil); rec.Code != http.StatusUnauthorized {
		t.Errorf("bad token: status %d", rec.Code)
	}

	other, err := signSessionToken("another-secret", "whatever", time.Hour)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if rec := call(t, h, http.MethodGet, "/api/session/view", other, nil); rec.Code != http.StatusUnauthorized {
		t.Errorf("foreign token: status %d", rec.Code)
	}
}

func TestEndedSessionIsRejected(t *testing.T) {
	h := newTestApp(t, "http://127.0.0.1:1").routes()
	token := startSession(t, h)

	if rec := call(t, h, http.MethodDelete, "/api/session", token, nil); rec.Code != http.StatusNoContent {
		t.Fatalf("end session: status %d", rec.Code)
	}
	if rec := call(t, h, http.MethodGet, "/api/session/view", token, nil); rec.Code != http.StatusUnauthorized {
		t.Errorf("view after end: status %d", rec.Code)
	}
}

func TestEditWithoutSelectionConflicts(t *testing.T) {
	h := newTestApp(t, "http://127.0.0.1:1").routes()
	token := startSession(t, h)

	rec := call(t, h, http.MethodPost, "/api/session/events", token, map[string]any{
		"type":    "draw:edited",
		"shape":   "polygon",
		"latlngs": [][]map[string]float64{{{"lat": 39.5, "lng": 32.8}, {"lat": 39.6, "lng": 32.8}, {"lat": 39.6, "lng": 32.9}}},
	})
	if rec.Code != http.StatusConflict {
		t.Errorf("status %d, want 409", rec.Code)
	}
}

func TestGotoWithoutCoordinatesIsRejected(t *testing.T) {
	h := newTestApp(t, "http://127.0.0.1:1").routes()
	token := startSession(t, h)

	rec := call(t, h, http.MethodPost, "/api/session/events", token, map[string]any{"type": "goto", "lat": 39.5})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status %d, want 400", rec.Code)
	}
	var resp errorResp
	decode(t, rec, &resp)
	if !strings.Contains(resp.Error, "Lütfen geçerli koordinatlar girin") {
		t.Errorf("error got %q", resp.Error)
	}
}

func TestAnalyzeWithoutSelection(t *testing.T) {
	h := newTestApp(t, "http://127.0.0.1:1").routes()
	token := startSession(t, h)

	rec := call(t, h, http.MethodPost, "/api/session/analyze", token, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status %d, want 400", rec.Code)
	}
	var resp map[string]any
	decode(t, rec, &resp)
	if _, ok := resp["run"]; ok {
		t.Errorf("rejected request should not report a run")
	}
}

func TestAnalyzeRemoteFailure(t *testing.T) {
	svc := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"success":false,"error":"Uydu verisi alınamadı"}`))
	}))
	defer svc.Close()

	h := newTestApp(t, svc.URL).routes()
	token := startSession(t, h)
	call(t, h, http.MethodPost, "/api/session/events", token, map[string]any{"type": "click", "lat": 39.5, "lng": 32.8})

	rec := call(t, h, http.MethodPost, "/api/session/analyze", token, nil)
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status %d, want 502", rec.Code)
	}
	var resp struct {
		Run struct {
			State string `json:"state"`
		} `json:"run"`
		View struct {
			Error   string `json:"error"`
			Loading bool   `json:"loading"`
		} `json:"view"`
		Error string `json:"error"`
	}
	decode(t, rec, &resp)
	if resp.Run.State != "failed" {
		t.Errorf("run state got %q", resp.Run.State)
	}
	if resp.Error != "Uydu verisi alınamadı" || resp.View.Error != "Uydu verisi alınamadı" {
		t.Errorf("errors got %q / %q", resp.Error, resp.View.Error)
	}
	if resp.View.Loading {
		t.Errorf("indicator still engaged after failure")
	}
}

func TestClearResetsSelection(t *testing.T) {
	h := newTestApp(t, "http://127.0.0.1:1").routes()
	token := startSession(t, h)
	call(t, h, http.MethodPost, "/api/session/events", token, map[string]any{"type": "click", "lat": 39.5, "lng": 32.8})

	rec := call(t, h, http.MethodPost, "/api/session/clear", token, nil)
	var view map[string]any
	decode(t, rec, &view)
	if view["analyze_enabled"] != false {
		t.Errorf("analyze should be disabled after clear")
	}
	if view["coordinates"] != roi.NoSelectionText {
		t.Errorf("coordinates got %v", view["coordinates"])
	}
}

func TestFieldsProxy(t *testing.T) {
	svc := fakeAnalysisService(t)
	h := newTestApp(t, svc.URL).routes()

	rec := call(t, h, http.MethodGet, "/api/fields/", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list: status %d", rec.Code)
	}
	var list struct {
		Fields []struct {
			ID string `json:"id"`
		} `json:"fields"`
	}
	decode(t, rec, &list)
	if len(list.Fields) != 1 || list.Fields[0].ID != "f1" {
		t.Errorf("fields got %+v", list.Fields)
	}

	token := startSession(t, h)
	call(t, h, http.MethodPost, "/api/session/events", token, map[string]any{"type": "click", "lat": 39.5, "lng": 32.8})
	rec = call(t, h, http.MethodPost, "/api/session/fields", token, map[string]string{"name": "Yeni"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("save selection: status %d body %s", rec.Code, rec.Body.String())
	}
}

func TestHealth(t *testing.T) {
	app := newTestApp(t, "http://127.0.0.1:1")
	h := app.routes()
	startSession(t, h)

	rec := call(t, h, http.MethodGet, "/health", "", nil)
	var resp healthResp
	decode(t, rec, &resp)
	if resp.Status != "ok" || resp.Sessions != 1 {
		t.Errorf("health got %+v", resp)
	}
	if rec.Header().Get(requestIDHeader) == "" {
		t.Errorf("missing %s header", requestIDHeader)
	}
}

func TestAnalyzeOnceForPolygon(t *testing.T) {
	svc := fakeAnalysisService(t)
	ring, err := parseLatLngList("39.50,32.80;39.51,32.80;39.51,32.81")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	view, err := analyzeOnce(context.Background(), riskclient.New(svc.URL), logging.Noop(), selection.DrawCreated{
		Shape:    roi.ShapePolygon,
		Geometry: roi.Geometry{Rings: [][]roi.LatLng{ring}},
	})
	if err != nil {
		t.Fatalf("analyzeOnce: %v", err)
	}
	if view.Risk == nil || view.Chart.Empty {
		t.Errorf("expected risk and chart views, got %+v", view)
	}
	if view.AreaHectares <= 0 {
		t.Errorf("expected a positive area, got %v", view.AreaHectares)
	}
}

func TestTimeseriesWindow(t *testing.T) {
	svc := fakeAnalysisService(t)
	h := newTestApp(t, svc.URL).routes()
	token := startSession(t, h)

	if rec := call(t, h, http.MethodPost, "/api/session/timeseries", token, nil); rec.Code != http.StatusBadRequest {
		t.Errorf("empty selection: status %d, want 400", rec.Code)
	}

	call(t, h, http.MethodPost, "/api/session/events", token, map[string]any{"type": "click", "lat": 39.5, "lng": 32.8})
	rec := call(t, h, http.MethodPost, "/api/session/timeseries", token, map[string]string{"start_date": "2024-01-01", "end_date": "2024-06-30"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d body %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Data []map[string]any `json:"data"`
	}
	decode(t, rec, &resp)
	if len(resp.Data) != 1 {
		t.Errorf("data got %v", resp.Data)
	}

	rec = call(t, h, http.MethodPost, "/api/session/timeseries", token, map[string]string{"start_date": "yesterday"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad date: status %d, want 400", rec.Code)
	}
}
