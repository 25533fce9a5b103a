package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/roach88/readtrack/internal/progress"
	"github.com/roach88/readtrack/internal/store"
)

// maxBufferBytes bounds PUT /api/data and POST /api/records bodies.
const maxBufferBytes = 8 << 20

// SnapshotStore persists serialized buffers. *store.Store implements it.
type SnapshotStore interface {
	Save(ctx context.Context, buf []byte, reason string) (store.Snapshot, bool, error)
	History(ctx context.Context, limit int) ([]store.Snapshot, error)
	Prune(ctx context.Context, keep int) (int64, error)
}

// Server serves one Tracker.
type Server struct {
	mu      sync.Mutex
	tracker *progress.Tracker
	snaps   SnapshotStore

	logger *slog.Logger
	now    func() time.Time
	keep   int
	router chi.Router
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the request and persistence logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock sets the clock used to stamp readAt on admitted records.
func WithClock(now func() time.Time) Option {
	return func(s *Server) {
		if now != nil {
			s.now = now
		}
	}
}

// WithKeep prunes snapshots down to keep after each save. Zero disables
// pruning.
func WithKeep(keep int) Option {
	return func(s *Server) { s.keep = keep }
}

// New builds a Server around tracker. snaps may be nil, in which case
// mutations stay in memory.
func New(tracker *progress.Tracker, snaps SnapshotStore, opts ...Option) *Server {
	s := &Server{
		tracker: tracker,
		snaps:   snaps,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.router = s.routes()
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Route("/api", func(r chi.Router) {
		r.Get("/sources", s.makeHandler(s.handleListSources))

		r.Route("/records", func(r chi.Router) {
			r.Get("/", s.makeHandler(s.handleListRecords))
			r.Post("/", s.makeHandler(s.handleAdmitRecord))
			r.Get("/exists", s.makeHandler(s.handleExists))
		})

		r.Get("/data", s.makeHandler(s.handleExport))
		r.Put("/data", s.makeHandler(s.handleReplace))
		r.Get("/snapshots", s.makeHandler(s.handleSnapshots))
	})
	return r
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s.logger.Info("http server shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http server shutdown: %w", err)
	}
	return nil
}

// persist saves the current buffer. When the save fails the tracker is
// restored to prev, the buffer it held before the mutation. Callers hold s.mu.
func (s *Server) persist(ctx context.Context, reason string, prev []byte) (*store.Snapshot, error) {
	if s.snaps == nil {
		return nil, nil
	}

	snap, created, err := s.snaps.Save(ctx, s.tracker.Serialize(), reason)
	if err != nil {
		s.tracker.ReplaceAll(prev)
		s.logger.Warn("snapshot save failed, change rolled back", "reason", reason, "error", err)
		return nil, fmt.Errorf("persist snapshot: %w", err)
	}
	if created && s.keep > 0 {
		if n, err := s.snaps.Prune(ctx, s.keep); err != nil {
			s.logger.Warn("prune snapshots failed", "error", err)
		} else if n > 0 {
			s.logger.Debug("pruned snapshots", "deleted", n)
		}
	}
	s.logger.Debug("snapshot saved", "id", snap.ID, "seq", snap.Seq, "created", created, "reason", reason)
	return &snap, nil
}
