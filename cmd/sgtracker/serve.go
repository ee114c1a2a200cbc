package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/giveawaysclub/sgtracker/internal/processor"
)

const runTimeout = 10 * time.Minute

// runner is the part of the processor the HTTP server drives.
type runner interface {
	Run(ctx context.Context, opts processor.RunOptions) (*processor.Result, error)
}

type server struct {
	runner  runner
	running atomic.Bool
	wg      sync.WaitGroup
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve an HTTP endpoint that triggers fetch runs.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := loadApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		srv := &server{runner: a.processor}
		httpServer := &http.Server{
			Addr:         ":" + a.config.Port,
			Handler:      srv.routes(),
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		}

		go func() {
			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
			sig := <-sigCh
			slog.Info("Received signal, shutting down gracefully...", "signal", sig)

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := httpServer.Shutdown(shutdownCtx); err != nil {
				slog.Error("HTTP server shutdown error", "error", err)
			}
		}()

		slog.Info("Listening on port", "port", a.config.Port)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("failed to listen and serve: %w", err)
		}
		srv.wg.Wait()
		slog.Info("Server stopped.")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func (s *server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /run", s.handleRun)
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, `{"status":"ok"}`)
	})
	return mux
}

// handleRun starts a fetch in the background so the response is not held
// open for the whole page loop.
func (s *server) handleRun(w http.ResponseWriter, r *http.Request) {
	if !s.running.CompareAndSwap(false, true) {
		http.Error(w, processor.ErrRunInProgress.Error(), http.StatusConflict)
		return
	}
	opts := processor.RunOptions{
		FetchAll: r.URL.Query().Get("all") == "true",
		SkipCV:   r.URL.Query().Get("skip_cv") == "true",
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.running.Store(false)
		defer func() {
			if r := recover(); r != nil {
				slog.Error("Panic in fetch run", "panic", r)
			}
		}()
		ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
		defer cancel()

		res, err := s.runner.Run(ctx, opts)
		if err != nil {
			slog.Error("Fetch run failed", "error", err)
			return
		}
		slog.Info("Fetch run finished",
			"total", res.Total,
			"new", res.New,
			"updated", res.Updated,
			"pages", res.Pages,
			"stop_reason", res.StopReason)
	}()

	w.WriteHeader(http.StatusAccepted)
	fmt.Fprintln(w, "Fetch run started.")
}
