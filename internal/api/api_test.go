package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/vietddude/bridge/internal/core/domain"
	"github.com/vietddude/bridge/internal/infra/rpc"
	"github.com/vietddude/bridge/internal/infra/storage/memory"
)

type mockRunner struct {
	run      domain.Run
	startErr error
	busy     bool
	requests []domain.Request
}

func (m *mockRunner) Start(ctx context.Context, req domain.Request) (domain.Run, error) {
	m.requests = append(m.requests, req)
	if m.startErr != nil {
		return m.run, m.startErr
	}
	m.run = domain.NewRun(req)
	m.run.Outcome.State = domain.OutcomeInProgress
	m.busy = true
	return m.run, nil
}

func (m *mockRunner) Snapshot() domain.Run { return m.run }
func (m *mockRunner) Busy() bool           { return m.busy }
func (m *mockRunner) Cancel() bool         { return m.busy }

func (m *mockRunner) Reset() error {
	if m.busy {
		return domain.ErrBusy
	}
	m.run = domain.Run{Outcome: domain.Outcome{State: domain.OutcomeNotStarted}}
	return nil
}

func init() {
	gin.SetMode(gin.TestMode)
}

func do(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func TestStartBridge(t *testing.T) {
	runner := &mockRunner{}
	s := NewServer(runner)

	w := do(t, s, http.MethodPost, "/bridge", `{"amount":"1.5"}`)
	if w.Code != http.StatusAccepted {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	if len(runner.requests) != 1 || runner.requests[0].SourceAmount != "1.5" {
		t.Errorf("requests = %+v", runner.requests)
	}

	var run domain.Run
	if err := json.Unmarshal(w.Body.Bytes(), &run); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if run.Outcome.State != domain.OutcomeInProgress {
		t.Errorf("state = %s", run.Outcome.State)
	}
}

func TestStartBridge_Errors(t *testing.T) {
	tests := []struct {
		name string
		body string
		err  error
		want int
	}{
		{"missing amount", `{}`, nil, http.StatusBadRequest},
		{"bad json", `{`, nil, http.StatusBadRequest},
		{"busy", `{"amount":"1"}`, domain.ErrBusy, http.StatusConflict},
		{"precondition", `{"amount":"0"}`, domain.NewPreconditionError(errors.New("amount must be positive")), http.StatusBadRequest},
		{"unexpected", `{"amount":"1"}`, errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewServer(&mockRunner{startErr: tt.err})
			if w := do(t, s, http.MethodPost, "/bridge", tt.body); w.Code != tt.want {
				t.Errorf("status = %d, want %d, body = %s", w.Code, tt.want, w.Body.String())
			}
		})
	}
}

func TestStatusCancelReset(t *testing.T) {
	runner := &mockRunner{}
	s := NewServer(runner)
	do(t, s, http.MethodPost, "/bridge", `{"amount":"1"}`)

	w := do(t, s, http.MethodGet, "/status", "")
	var status statusResponse
	if err := json.Unmarshal(w.Body.Bytes(), &status); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !status.Busy || status.Run.SourceAmount != "1" {
		t.Errorf("status = %+v", status)
	}

	if w := do(t, s, http.MethodPost, "/reset", ""); w.Code != http.StatusConflict {
		t.Errorf("reset while busy: status = %d", w.Code)
	}
	if w := do(t, s, http.MethodPost, "/cancel", ""); !strings.Contains(w.Body.String(), `"cancelled":true`) {
		t.Errorf("cancel body = %s", w.Body.String())
	}

	runner.busy = false
	if w := do(t, s, http.MethodPost, "/reset", ""); w.Code != http.StatusOK {
		t.Errorf("reset: status = %d", w.Code)
	}
}

func TestRuns(t *testing.T) {
	repo := memory.NewRunRepo(memory.NewMemoryStorage())
	run := domain.NewRun(domain.Request{SourceAmount: "3"})
	_ = repo.Save(context.Background(), run)
	s := NewServer(&mockRunner{}, WithJournal(repo))

	w := do(t, s, http.MethodGet, "/runs?limit=10", "")
	var runs []domain.Run
	if err := json.Unmarshal(w.Body.Bytes(), &runs); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(runs) != 1 || runs[0].ID != run.ID {
		t.Errorf("runs = %+v", runs)
	}

	if w := do(t, s, http.MethodGet, "/runs/"+run.ID.String(), ""); w.Code != http.StatusOK {
		t.Errorf("get: status = %d", w.Code)
	}
	if w := do(t, s, http.MethodGet, "/runs/"+uuid.NewString(), ""); w.Code != http.StatusNotFound {
		t.Errorf("get unknown: status = %d", w.Code)
	}
	if w := do(t, s, http.MethodGet, "/runs/not-a-uuid", ""); w.Code != http.StatusBadRequest {
		t.Errorf("get invalid: status = %d", w.Code)
	}
	if w := do(t, s, http.MethodGet, "/runs?limit=-1", ""); w.Code != http.StatusBadRequest {
		t.Errorf("bad limit: status = %d", w.Code)
	}

	if w := do(t, NewServer(&mockRunner{}), http.MethodGet, "/runs", ""); w.Code != http.StatusNotFound {
		t.Errorf("journal disabled: status = %d", w.Code)
	}
}

func TestHealth(t *testing.T) {
	providers := func() map[string]rpc.HealthStatus {
		return map[string]rpc.HealthStatus{"alchemy": {Available: true}}
	}

	s := NewServer(&mockRunner{},
		WithHealthCheck("database", func(ctx context.Context) error { return nil }),
		WithProviderHealth("ethereum", providers),
	)
	w := do(t, s, http.MethodGet, "/health", "")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "alchemy") {
		t.Errorf("status = %d, body = %s", w.Code, w.Body.String())
	}

	s = NewServer(&mockRunner{},
		WithHealthCheck("redis", func(ctx context.Context) error { return errors.New("connection refused") }),
	)
	w = do(t, s, http.MethodGet, "/health", "")
	if w.Code != http.StatusServiceUnavailable || !strings.Contains(w.Body.String(), "connection refused") {
		t.Errorf("status = %d, body = %s", w.Code, w.Body.String())
	}
}

func TestMetricsEndpoint(t *testing.T) {
	w := do(t, NewServer(&mockRunner{}), http.MethodGet, "/metrics", "")
	if w.Code != http.StatusOK {
		t.Errorf("status = %d", w.Code)
	}
}

func TestServer_RunStopsWithContext(t *testing.T) {
	s := NewServer(&mockRunner{})
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- s.Run(ctx, 0) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run returned %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
