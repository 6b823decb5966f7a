package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"CandleCast/internal/domain/models"
	"CandleCast/internal/repository"
	"CandleCast/internal/service/ratelimit"
	"CandleCast/internal/usecase"
	xlogger "CandleCast/pkg/logger"
)

type stubPublisher struct {
	err  error
	sent []models.Message
}

func (p *stubPublisher) Send(_ context.Context, _, _ string, msg models.Message) error {
	p.sent = append(p.sent, msg)
	return p.err
}

func (p *stubPublisher) Close() error { return nil }

type stubCollector struct {
	limit int
	res   usecase.DeliveryResult
	err   error
}

func (s *stubCollector) Collect(_ context.Context, limit int) (usecase.DeliveryResult, error) {
	s.limit = limit
	return s.res, s.err
}

func newStage(t *testing.T, pub *stubPublisher) *usecase.Stage {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sent_to_advisor.json")
	return usecase.NewStage(usecase.StageParams{
		Name:        "analyst",
		Peer:        "advisor.in",
		MessageType: models.TypeAnalysis,
		Publisher:   pub,
		Snapshots:   repository.NewFileSnapshotStore(path, "analyst", nil, 0, xlogger.Nop()),
		Log:         xlogger.Nop(),
	})
}

func serve(h *OpsHandler, method, target, body string) *httptest.ResponseRecorder {
	e := echo.New()
	h.RegisterRoutes(e)
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	h := NewOpsHandler(xlogger.Nop(), newStage(t, &stubPublisher{}), nil, nil, map[string]HealthCheck{
		"clickhouse": func(context.Context) error { return nil },
	})
	rec := serve(h, http.MethodGet, "/healthz", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body)
	}
	if !strings.Contains(rec.Body.String(), `"state":"idle"`) || !strings.Contains(rec.Body.String(), `"clickhouse":"ok"`) {
		t.Fatalf("body %s", rec.Body)
	}

	h.checks["redis"] = func(context.Context) error { return errors.New("connection refused") }
	rec = serve(h, http.MethodGet, "/healthz", "")
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
}

func TestSnapshotAndResend(t *testing.T) {
	pub := &stubPublisher{}
	stage := newStage(t, pub)
	h := NewOpsHandler(xlogger.Nop(), stage, nil, nil, nil)

	if rec := serve(h, http.MethodGet, "/api/snapshot", ""); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 before any run, got %d", rec.Code)
	}
	if rec := serve(h, http.MethodPost, "/api/resend", ""); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 resend before any run, got %d", rec.Code)
	}

	run, err := stage.Begin(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	run.Forward(models.AnalysisResult{Summary: models.Summary{LatestTime: "2024-01-01T00:00:00", LastClose: 42}})

	rec := serve(h, http.MethodGet, "/api/snapshot", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("snapshot status %d", rec.Code)
	}
	var snap models.AnalysisResult
	if err := json.Unmarshal(rec.Body.Bytes(), &snap); err != nil || snap.Summary.LastClose != 42 {
		t.Fatalf("snapshot body %s (%v)", rec.Body, err)
	}

	rec = serve(h, http.MethodPost, "/api/resend", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("resend status %d: %s", rec.Code, rec.Body)
	}
	if len(pub.sent) != 2 {
		t.Fatalf("expected first send plus resend, got %d", len(pub.sent))
	}

	pub.err = errors.New("broker down")
	rec = serve(h, http.MethodPost, "/api/resend", "")
	if rec.Code != http.StatusBadGateway || !strings.Contains(rec.Body.String(), "broker down") {
		t.Fatalf("expected 502 with reason, got %d %s", rec.Code, rec.Body)
	}
}

func TestCollectRoute(t *testing.T) {
	stage := newStage(t, &stubPublisher{})
	if rec := serve(NewOpsHandler(xlogger.Nop(), stage, nil, nil, nil), http.MethodPost, "/api/collect", ""); rec.Code == http.StatusOK {
		t.Fatalf("collect must not be routed without a collector")
	}

	col := &stubCollector{res: usecase.DeliveryResult{Status: usecase.StatusDelivered, RunID: "r1"}}
	h := NewOpsHandler(xlogger.Nop(), stage, col, ratelimit.PerMinute(2), nil)

	rec := serve(h, http.MethodPost, "/api/collect", `{"limit":500}`)
	if rec.Code != http.StatusOK || col.limit != 500 {
		t.Fatalf("collect status %d limit %d: %s", rec.Code, col.limit, rec.Body)
	}

	rec = serve(h, http.MethodPost, "/api/collect", `{"limit":5000}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for oversized limit, got %d", rec.Code)
	}

	rec = serve(h, http.MethodPost, "/api/collect", "")
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 after burst, got %d", rec.Code)
	}
}

func TestCollectErrors(t *testing.T) {
	stage := newStage(t, &stubPublisher{})
	col := &stubCollector{err: usecase.ErrStageBusy}
	h := NewOpsHandler(xlogger.Nop(), stage, col, nil, nil)

	if rec := serve(h, http.MethodPost, "/api/collect", ""); rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
	col.err = models.ErrUpstreamTimeout
	if rec := serve(h, http.MethodPost, "/api/collect", ""); rec.Code != http.StatusGatewayTimeout {
		t.Fatalf("expected 504, got %d", rec.Code)
	}
}
