package api

import (
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"storyreel/internal/jobs"
	"storyreel/internal/library"
	"storyreel/internal/logging"
	"storyreel/internal/logs"
	"storyreel/internal/render"
	"storyreel/internal/services"
	"storyreel/internal/workflow"
)

const (
	defaultJobLimit = 50
	defaultLogLines = 200
	maxLogLines     = 5000
)

func handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *handlers) handleStatus(c *gin.Context) {
	body := gin.H{}
	if h.deps.Workflow != nil {
		body["workflow"] = h.deps.Workflow.Status()
	}
	if h.deps.Jobs != nil {
		stats, err := h.deps.Jobs.Stats(c.Request.Context())
		if err != nil {
			h.writeError(c, err)
			return
		}
		counts := make(map[string]int, len(stats))
		for state, n := range stats {
			counts[string(state)] = n
		}
		body["jobs"] = counts
	}
	c.JSON(http.StatusOK, body)
}

func registerRecordRoutes[T library.Record](g *gin.RouterGroup, store *library.Store[T], h *handlers) {
	g.GET("", func(c *gin.Context) {
		entries, err := store.List()
		if err != nil {
			h.writeError(c, err)
			return
		}
		if entries == nil {
			entries = []library.Entry[T]{}
		}
		c.JSON(http.StatusOK, entries)
	})
	g.POST("", func(c *gin.Context) {
		var body struct {
			Name   string `json:"name"`
			Config T      `json:"config"`
		}
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if _, err := store.Get(body.Name); err == nil {
			c.JSON(http.StatusConflict, gin.H{"error": "record " + body.Name + " already exists"})
			return
		}
		name, err := store.Put(body.Name, body.Config)
		if err != nil {
			h.writeError(c, err)
			return
		}
		c.JSON(http.StatusCreated, library.Entry[T]{Name: name, Record: body.Config})
	})
	g.GET("/:name", func(c *gin.Context) {
		record, err := store.Get(c.Param("name"))
		if err != nil {
			h.writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, record)
	})
	g.PUT("/:name", func(c *gin.Context) {
		var record T
		if err := c.ShouldBindJSON(&record); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		name, err := store.Put(c.Param("name"), record)
		if err != nil {
			h.writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, library.Entry[T]{Name: name, Record: record})
	})
	g.DELETE("/:name", func(c *gin.Context) {
		if err := store.Delete(c.Param("name")); err != nil {
			h.writeError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	})
}

func (h *handlers) handleFetchStories(c *gin.Context) {
	if h.deps.Fetcher == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "story fetching is not configured"})
		return
	}
	var body struct {
		Subreddit string `json:"subreddit"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	result, err := h.deps.Fetcher.Fetch(c.Request.Context(), body.Subreddit)
	if err != nil {
		h.writeError(c, err)
		return
	}
	if result.Saved == nil {
		result.Saved = []string{}
	}
	c.JSON(http.StatusOK, result)
}

func (h *handlers) handleGenerate(c *gin.Context) {
	var req workflow.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	req.Source = "api"
	id, err := h.deps.Workflow.Submit(c.Request.Context(), req)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"job_id": id, "status": "queued"})
}

type jobView struct {
	ID             string     `json:"id"`
	Title          string     `json:"title"`
	Source         string     `json:"source"`
	OutputPath     string     `json:"output_path,omitempty"`
	PublishedURL   string     `json:"published_url,omitempty"`
	State          string     `json:"state"`
	FailedIn       string     `json:"failed_in,omitempty"`
	ErrorKind      string     `json:"error_kind,omitempty"`
	ErrorMessage   string     `json:"error_message,omitempty"`
	ElapsedSeconds float64    `json:"elapsed_seconds"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
	FinishedAt     *time.Time `json:"finished_at,omitempty"`
}

func fromRecord(r jobs.Record) jobView {
	return jobView{
		ID:             r.ID,
		Title:          r.Title,
		Source:         r.Source,
		OutputPath:     r.OutputPath,
		PublishedURL:   r.PublishedURL,
		State:          string(r.State),
		FailedIn:       string(r.FailedIn),
		ErrorKind:      r.ErrorKind,
		ErrorMessage:   r.ErrorMessage,
		ElapsedSeconds: r.Elapsed.Seconds(),
		CreatedAt:      r.CreatedAt,
		UpdatedAt:      r.UpdatedAt,
		FinishedAt:     r.FinishedAt,
	}
}

func (h *handlers) handleListJobs(c *gin.Context) {
	filter := jobs.ListFilter{Limit: defaultJobLimit}
	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a non-negative integer"})
			return
		}
		filter.Limit = limit
	}
	for _, state := range c.QueryArray("state") {
		for part := range strings.SplitSeq(state, ",") {
			if part = strings.ToUpper(strings.TrimSpace(part)); part != "" {
				filter.States = append(filter.States, render.State(part))
			}
		}
	}
	records, err := h.deps.Jobs.List(c.Request.Context(), filter)
	if err != nil {
		h.writeError(c, err)
		return
	}
	views := make([]jobView, 0, len(records))
	for _, r := range records {
		views = append(views, fromRecord(r))
	}
	c.JSON(http.StatusOK, views)
}

func (h *handlers) handleGetJob(c *gin.Context) {
	record, err := h.deps.Jobs.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, fromRecord(record))
}

type outputView struct {
	Name     string    `json:"name"`
	Path     string    `json:"path"`
	Size     int64     `json:"size"`
	Modified time.Time `json:"modified"`
}

func (h *handlers) handleListOutputs(c *gin.Context) {
	entries, err := os.ReadDir(h.deps.OutputDir)
	if err != nil && !os.IsNotExist(err) {
		h.writeError(c, services.Wrap(services.ErrFileSystem, "api", "list outputs", h.deps.OutputDir, err))
		return
	}
	outputs := []outputView{}
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") || render.IsTransientArtifact(name, false) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		outputs = append(outputs, outputView{
			Name:     name,
			Path:     filepath.Join(h.deps.OutputDir, name),
			Size:     info.Size(),
			Modified: info.ModTime().UTC(),
		})
	}
	slices.SortFunc(outputs, func(a, b outputView) int { return b.Modified.Compare(a.Modified) })
	c.JSON(http.StatusOK, outputs)
}

// handleDownloadOutput sends a finished video as an attachment. Only plain
// file names inside the output directory are served.
func (h *handlers) handleDownloadOutput(c *gin.Context) {
	name := filepath.Base(c.Param("name"))
	if name == "." || name == ".." || name == string(filepath.Separator) || strings.HasPrefix(name, ".") {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid output name"})
		return
	}
	path := filepath.Join(h.deps.OutputDir, name)
	if rel, err := filepath.Rel(h.deps.OutputDir, path); err != nil || rel != name {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid output name"})
		return
	}
	if render.IsTransientArtifact(name, false) {
		c.JSON(http.StatusNotFound, gin.H{"error": "output not found"})
		return
	}
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		c.JSON(http.StatusNotFound, gin.H{"error": "output not found"})
		return
	}
	c.FileAttachment(path, name)
}

func (h *handlers) handleListBackgrounds(c *gin.Context) {
	if h.deps.Backgrounds == nil {
		c.JSON(http.StatusOK, []any{})
		return
	}
	folders, err := h.deps.Backgrounds.Folders()
	if err != nil {
		h.writeError(c, err)
		return
	}
	if folders == nil {
		c.JSON(http.StatusOK, []any{})
		return
	}
	c.JSON(http.StatusOK, folders)
}

// handleLogs returns log lines. Without offset it returns the last lines;
// with offset it returns what was appended since, so clients can poll.
func (h *handlers) handleLogs(c *gin.Context) {
	if h.deps.LogPath == "" {
		c.JSON(http.StatusNotFound, gin.H{"error": "file logging is disabled"})
		return
	}
	opts := logs.TailOptions{Offset: -1, Limit: defaultLogLines, Match: strings.TrimSpace(c.Query("job"))}
	if raw := c.Query("offset"); raw != "" {
		offset, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || offset < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "offset must be a non-negative integer"})
			return
		}
		opts.Offset = offset
	}
	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		opts.Limit = min(limit, maxLogLines)
	}
	result, err := logs.Tail(c.Request.Context(), h.deps.LogPath, opts)
	if err != nil {
		h.writeError(c, services.Wrap(services.ErrFileSystem, "api", "tail logs", h.deps.LogPath, err))
		return
	}
	if result.Lines == nil {
		result.Lines = []string{}
	}
	c.JSON(http.StatusOK, result)
}

func (h *handlers) writeError(c *gin.Context, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		logging.WarnWithContext(h.logger, "api request failed", "api_error",
			logging.String("path", c.FullPath()),
			logging.Error(err),
		)
	}
	c.JSON(status, gin.H{"error": err.Error(), "kind": services.Kind(err)})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, services.ErrValidation), errors.Is(err, services.ErrConfiguration):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrResourceExhausted):
		return http.StatusServiceUnavailable
	case errors.Is(err, services.ErrExternalService):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
