package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/giveawaysclub/sgtracker/internal/processor"
)

type blockingRunner struct {
	mu      sync.Mutex
	calls   []processor.RunOptions
	release chan struct{}
}

func (b *blockingRunner) Run(ctx context.Context, opts processor.RunOptions) (*processor.Result, error) {
	b.mu.Lock()
	b.calls = append(b.calls, opts)
	b.mu.Unlock()
	<-b.release
	return &processor.Result{StopReason: processor.StopCutoff}, nil
}

func TestHealth(t *testing.T) {
	srv := &server{runner: &blockingRunner{release: make(chan struct{})}}
	rec := httptest.NewRecorder()
	srv.routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if got := strings.TrimSpace(rec.Body.String()); got != `{"status":"ok"}` {
		t.Errorf("body = %q", got)
	}
}

func TestRun_AcceptsThenConflicts(t *testing.T) {
	r := &blockingRunner{release: make(chan struct{})}
	srv := &server{runner: r}
	h := srv.routes()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/run?all=true", nil))
	if rec.Code != http.StatusAccepted {
		t.Fatalf("first run status = %d, want %d", rec.Code, http.StatusAccepted)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/run", nil))
	if rec.Code != http.StatusConflict {
		t.Errorf("second run status = %d, want %d", rec.Code, http.StatusConflict)
	}

	close(r.release)
	srv.wg.Wait()

	if len(r.calls) != 1 {
		t.Fatalf("runner called %d times, want 1", len(r.calls))
	}
	if !r.calls[0].FetchAll || r.calls[0].SkipCV {
		t.Errorf("options = %+v, want FetchAll only", r.calls[0])
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/run", nil))
	if rec.Code != http.StatusAccepted {
		t.Errorf("run after completion status = %d, want %d", rec.Code, http.StatusAccepted)
	}
	srv.wg.Wait()
}

func TestRun_RejectsGet(t *testing.T) {
	srv := &server{runner: &blockingRunner{release: make(chan struct{})}}
	rec := httptest.NewRecorder()
	srv.routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/run", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusMethodNotAllowed)
	}
}
