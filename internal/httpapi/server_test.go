package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"tintero.dev/escriba/internal/pipeline"
)

type stubRunner struct {
	started  chan struct{}
	release  chan struct{}
	report   pipeline.RunReport
	runCalls int
}

func newStubRunner() *stubRunner {
	return &stubRunner{
		started: make(chan struct{}, 8),
		release: make(chan struct{}),
		report:  pipeline.RunReport{RunID: "run-1", Candidates: 3, Published: 2, Duplicates: 1},
	}
}

func (r *stubRunner) Run(_ context.Context, _ pipeline.RunOptions) (pipeline.RunReport, error) {
	r.runCalls++
	r.started <- struct{}{}
	<-r.release
	return r.report, nil
}

func newTestServer(runner Runner) *Server {
	return NewServer(runner, zerolog.Nop(), Options{
		SheetBackend:  "excel",
		PublishTarget: "https://blog.example.com",
	})
}

func TestTriggerRun_ConflictWhileRunning(t *testing.T) {
	t.Parallel()

	runner := newStubRunner()
	server := newTestServer(runner)
	e := server.newEcho()

	first := httptest.NewRecorder()
	e.ServeHTTP(first, httptest.NewRequest(http.MethodPost, "/api/v1/runs", strings.NewReader(`{}`)))
	if first.Code != http.StatusAccepted {
		t.Fatalf("expected 202 for first trigger, got %d: %s", first.Code, first.Body.String())
	}

	// Wait until the background run is actually in flight.
	select {
	case <-runner.started:
	case <-time.After(2 * time.Second):
		t.Fatal("run did not start")
	}

	second := httptest.NewRecorder()
	e.ServeHTTP(second, httptest.NewRequest(http.MethodPost, "/api/v1/runs", strings.NewReader(`{}`)))
	if second.Code != http.StatusConflict {
		t.Fatalf("expected 409 while a run is in progress, got %d", second.Code)
	}

	close(runner.release)

	deadline := time.Now().Add(2 * time.Second)
	for {
		server.mu.Lock()
		running := server.running
		server.mu.Unlock()
		if !running {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("run never finished")
		}
		time.Sleep(5 * time.Millisecond)
	}

	// A third trigger is accepted again; release is already closed, so the
	// run completes immediately.
	third := httptest.NewRecorder()
	e.ServeHTTP(third, httptest.NewRequest(http.MethodPost, "/api/v1/runs", strings.NewReader(`{}`)))
	if third.Code != http.StatusAccepted {
		t.Fatalf("expected 202 after run finished, got %d", third.Code)
	}
	<-runner.started
}

func TestLatestRun(t *testing.T) {
	t.Parallel()

	runner := newStubRunner()
	server := newTestServer(runner)
	e := server.newEcho()

	empty := httptest.NewRecorder()
	e.ServeHTTP(empty, httptest.NewRequest(http.MethodGet, "/api/v1/runs/latest", nil))
	if empty.Code != http.StatusNotFound {
		t.Fatalf("expected 404 before any run, got %d", empty.Code)
	}

	server.mu.Lock()
	server.latest = &runner.report
	server.mu.Unlock()

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/runs/latest", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var body struct {
		Status string             `json:"status"`
		Data   pipeline.RunReport `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if body.Status != "success" || body.Data.RunID != "run-1" {
		t.Fatalf("unexpected body: %+v", body)
	}
}

func TestHealth(t *testing.T) {
	t.Parallel()

	server := newTestServer(newStubRunner())
	e := server.newEcho()

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var body struct {
		Data map[string]any `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if body.Data["sheet_backend"] != "excel" {
		t.Fatalf("unexpected health payload: %+v", body.Data)
	}
}
