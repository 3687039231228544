package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"storyreel/internal/backgrounds"
	"storyreel/internal/jobs"
	"storyreel/internal/library"
	"storyreel/internal/logging"
	"storyreel/internal/render"
	"storyreel/internal/stories"
	"storyreel/internal/workflow"
)

// Submitter queues render requests and reports queue state.
type Submitter interface {
	Submit(ctx context.Context, req workflow.Request) (string, error)
	Status() workflow.StatusSummary
}

// JobReader reads job history.
type JobReader interface {
	List(ctx context.Context, filter jobs.ListFilter) ([]jobs.Record, error)
	Get(ctx context.Context, idOrPrefix string) (jobs.Record, error)
	Stats(ctx context.Context) (map[render.State]int, error)
}

// StoryFetcher fetches a subreddit listing into the story library.
type StoryFetcher interface {
	Fetch(ctx context.Context, subreddit string) (stories.FetchResult, error)
}

// BackgroundLister lists background folders.
type BackgroundLister interface {
	Folders() ([]backgrounds.Folder, error)
}

// Dependencies wires the handlers. Fetcher and Backgrounds are optional.
type Dependencies struct {
	Library     *library.Library
	Workflow    Submitter
	Jobs        JobReader
	Fetcher     StoryFetcher
	Backgrounds BackgroundLister
	OutputDir   string
	LogPath     string
	Token       string
	Logger      *slog.Logger
}

type handlers struct {
	deps   Dependencies
	logger *slog.Logger
}

// NewRouter constructs the gin engine with every route registered.
func NewRouter(deps Dependencies) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	h := &handlers{deps: deps, logger: logging.NewComponentLogger(deps.Logger, "api")}

	r := gin.New()
	r.Use(gin.Recovery(), h.requestLogger())
	r.GET("/api/health", handleHealth)

	authed := r.Group("/api", bearerAuth(deps.Token))
	authed.GET("/status", h.handleStatus)
	registerRecordRoutes(authed.Group("/stories"), deps.Library.Stories, h)
	registerRecordRoutes(authed.Group("/videos"), deps.Library.Videos, h)
	authed.POST("/stories/fetch", h.handleFetchStories)
	authed.POST("/generate", h.handleGenerate)
	authed.GET("/jobs", h.handleListJobs)
	authed.GET("/jobs/:id", h.handleGetJob)
	authed.GET("/outputs", h.handleListOutputs)
	authed.GET("/outputs/:name", h.handleDownloadOutput)
	authed.GET("/backgrounds", h.handleListBackgrounds)
	authed.GET("/logs", h.handleLogs)
	return r
}

// Server runs the router on the configured bind address.
type Server struct {
	bind   string
	logger *slog.Logger
	server *http.Server

	listener net.Listener
}

// NewServer returns a server for router. It returns nil when bind is empty.
func NewServer(bind string, router http.Handler, logger *slog.Logger) *Server {
	if bind == "" {
		return nil
	}
	return &Server{
		bind:   bind,
		logger: logging.NewComponentLogger(logger, "api"),
		server: &http.Server{
			Handler:           router,
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      5 * time.Minute,
			IdleTimeout:       60 * time.Second,
		},
	}
}

// Start listens and serves in the background until ctx is canceled.
func (s *Server) Start(ctx context.Context) error {
	if s == nil {
		return nil
	}
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.listener = listener

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("api server error", logging.Error(err))
		}
	}()
	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	s.logger.Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

// Addr returns the bound address once started.
func (s *Server) Addr() string {
	if s == nil || s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Stop shuts the server down gracefully.
func (s *Server) Stop() {
	if s == nil {
		return
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = s.server.Shutdown(shutdownCtx)
}
