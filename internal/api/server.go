package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/clipforge/clipforge/internal/catalog"
	"github.com/clipforge/clipforge/internal/events"
	"github.com/clipforge/clipforge/internal/pipeline"
	"github.com/clipforge/clipforge/internal/playback"
	"github.com/clipforge/clipforge/internal/providers"
	"github.com/clipforge/clipforge/internal/queue"
)

// SpeechService synthesizes narration audio. Satisfied by
// providers.Client.
type SpeechService interface {
	Synthesize(ctx context.Context, script, voice, provider string) (providers.SpeechResult, error)
}

// Processor runs end-to-end video processing. Satisfied by
// pipeline.Orchestrator.
type Processor interface {
	Start(ctx context.Context, req pipeline.Request) (string, error)
	LoadState(jobID string) (pipeline.State, error)
}

type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

type ServerConfig struct {
	Port         int
	Catalog      *catalog.Catalog
	Queue        *queue.Queue
	Processor    Processor
	Speech       SpeechService
	Search       catalog.Completer
	Files        playback.FileService
	Bus          *events.Bus
	TmpDir       string
	UploadsDir   string
	PublishedDir string
	DailyTarget  int
	Logger       *slog.Logger
	StartTime    time.Time
}

func NewServer(cfg ServerConfig) *Server {
	router := NewRouter(cfg)

	return &Server{
		httpServer: &http.Server{
			Addr:        fmt.Sprintf("127.0.0.1:%d", cfg.Port),
			Handler:     router,
			ReadTimeout: 15 * time.Second,
			// No write timeout: event streams and large video
			// responses stay open indefinitely.
			WriteTimeout: 0,
			IdleTimeout:  60 * time.Second,
		},
		logger: cfg.Logger,
	}
}

func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", "addr", s.httpServer.Addr)
	err := s.httpServer.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) Addr() string {
	return s.httpServer.Addr
}
