// Package server exposes one editing session over HTTP: upload a photo, edit
// the text and blur, fetch the latest preview, and mail the result.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/xob0t/covercard/pkg/delivery"
	"github.com/xob0t/covercard/pkg/scheduler"
)

// Sender starts a delivery job. *delivery.Worker satisfies it.
type Sender interface {
	Start(ctx context.Context, job delivery.Job) <-chan delivery.Progress
}

// RecipientStore remembers the last recipient. *settings.Store satisfies it.
type RecipientStore interface {
	Recipient() string
	SaveRecipient(addr string) error
}

// Deps are the collaborators of a Server. Sender and Recipients may be nil:
// sending then answers 503 and recipients are never remembered.
type Deps struct {
	Scheduler  *scheduler.Scheduler
	Sender     Sender
	Recipients RecipientStore
	Logger     *slog.Logger
	// MaxUpload bounds image uploads in bytes.
	MaxUpload int64
	// MaxAssets bounds how many uploads are kept in memory.
	MaxAssets int
}

// Server holds the HTTP handlers for one session.
type Server struct {
	sched      *scheduler.Scheduler
	sender     Sender
	recipients RecipientStore
	logger     *slog.Logger
	maxUpload  int64

	assets *assetManager
	jobs   *jobTracker

	// baseCtx outlives requests so a send keeps running after the response.
	baseCtx context.Context
}

// New creates a server. It panics without a scheduler.
func New(d Deps) *Server {
	if d.Scheduler == nil {
		panic("server: nil scheduler")
	}
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	if d.MaxUpload <= 0 {
		d.MaxUpload = 25 << 20
	}
	if d.MaxAssets <= 0 {
		d.MaxAssets = 8
	}
	return &Server{
		sched:      d.Scheduler,
		sender:     d.Sender,
		recipients: d.Recipients,
		logger:     d.Logger,
		maxUpload:  d.MaxUpload,
		assets:     newAssetManager(d.MaxAssets),
		jobs:       newJobTracker(),
		baseCtx:    context.Background(),
	}
}

// Handler returns the routed API.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)

	r.Get("/api/health", s.handleHealth)

	r.Post("/api/image", s.handleImage)
	r.Post("/api/text", s.handleText)
	r.Post("/api/blur", s.handleBlur)
	r.Get("/api/state", s.handleState)

	r.Get("/api/preview", s.handlePreview)
	r.Get("/api/preview/plain", s.handlePreviewPlain)

	r.Get("/api/assets", s.handleListAssets)
	r.Get("/api/assets/{assetId}", s.handleGetAsset)
	r.Post("/api/assets/{assetId}/select", s.handleSelectAsset)

	r.Get("/api/recipient", s.handleGetRecipient)
	r.Post("/api/send", s.handleSend)
	r.Get("/api/jobs/{jobId}", s.handleGetJob)

	return r
}

// Run serves on bind until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, bind string) error {
	s.baseCtx = ctx
	httpSrv := &http.Server{
		Addr:              bind,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(_ net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("preview server listening", slog.String("bind", bind))
		errCh <- httpSrv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve %s: %w", bind, err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	}
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("http request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", ww.Status()),
			slog.Duration("elapsed", time.Since(start)),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}
