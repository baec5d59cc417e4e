package ingest

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pevans/jobhawk/pages"
	"github.com/pevans/jobhawk/queue"
	"github.com/pevans/jobhawk/report"
)

// Enqueuer hands a batch to the scraper workers.
type Enqueuer interface {
	Enqueue(ctx context.Context, b queue.Batch) error
}

// APIServer represents the HTTP API the scraper talks to.
type APIServer struct {
	store    *Store
	pages    *pages.PageStore
	enqueuer Enqueuer
	apiKey   string
	logger   *slog.Logger
}

// NewAPIServer creates a new API server. When enqueuer is non-nil, every
// page listing also opens a push and queues the pages for scraping.
func NewAPIServer(store *Store, pageStore *pages.PageStore, enqueuer Enqueuer, apiKey string, logger *slog.Logger) *APIServer {
	if logger == nil {
		logger = slog.Default()
	}
	return &APIServer{
		store:    store,
		pages:    pageStore,
		enqueuer: enqueuer,
		apiKey:   apiKey,
		logger:   logger.With("component", "ingest"),
	}
}

// SetupRouter configures the Gin router with all API routes.
func (s *APIServer) SetupRouter() *gin.Engine {
	router := gin.Default()

	api := router.Group("/api", s.requireAPIKey)
	api.GET("/pages/list", s.HandleListPages)
	api.POST("/push/create", s.HandleCreatePush)
	api.POST("/push/update", s.HandleUpdatePush)
	api.GET("/jobs", s.HandleListJobs)

	return router
}

// PushResponse represents the response to both push endpoints.
type PushResponse struct {
	PushID   int   `json:"push_id"`
	NNewJobs int   `json:"n_new_jobs"`
	NewJobs  []Job `json:"new_jobs"`
}

// errorResponse creates a standardized error response.
func errorResponse(code, message string) gin.H {
	return gin.H{
		"error": gin.H{
			"code":    code,
			"message": message,
		},
	}
}

// handleError maps domain errors to HTTP responses.
func (s *APIServer) handleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrPushNotFound):
		c.JSON(http.StatusNotFound, errorResponse("not_found", err.Error()))
	default:
		s.logger.Error("request failed", "path", c.FullPath(), "error", err)
		c.JSON(http.StatusInternalServerError, errorResponse("internal_error", "Failed to process request"))
	}
}

// requireAPIKey rejects requests without the configured key. An empty
// configured key disables the check.
func (s *APIServer) requireAPIKey(c *gin.Context) {
	if s.apiKey == "" {
		c.Next()
		return
	}

	got := c.GetHeader(report.APIKeyHeader)
	if subtle.ConstantTimeCompare([]byte(got), []byte(s.apiKey)) != 1 {
		c.AbortWithStatusJSON(http.StatusUnauthorized, errorResponse("unauthorized", "Invalid API key"))
		return
	}
	c.Next()
}

// HandleListPages handles GET /api/pages/list.
func (s *APIServer) HandleListPages(c *gin.Context) {
	list, err := s.pages.ListPages(pages.PageFilter{})
	if err != nil {
		s.handleError(c, err)
		return
	}

	if s.enqueuer != nil && len(list) > 0 {
		pushID, err := s.store.CreatePush(nil)
		if err != nil {
			s.handleError(c, err)
			return
		}
		if err := s.enqueuer.Enqueue(c.Request.Context(), queue.Batch{PushID: pushID, Pages: list}); err != nil {
			s.handleError(c, err)
			return
		}
		s.logger.Info("queued pages", "push_id", pushID, "pages", len(list))
	}

	c.JSON(http.StatusOK, list)
}

// HandleCreatePush handles POST /api/push/create. It records a new push
// for a batch that was not started by the server.
func (s *APIServer) HandleCreatePush(c *gin.Context) {
	payload, raw, ok := s.bindPayload(c)
	if !ok {
		return
	}

	pushID, err := s.store.CreatePush(raw)
	if err != nil {
		s.handleError(c, err)
		return
	}

	s.merge(c, http.StatusCreated, pushID, payload)
}

// HandleUpdatePush handles POST /api/push/update. The push must have been
// opened by a page listing.
func (s *APIServer) HandleUpdatePush(c *gin.Context) {
	payload, raw, ok := s.bindPayload(c)
	if !ok {
		return
	}

	pushID := payload.Data.PushID
	if err := s.store.UpdatePush(pushID, raw); err != nil {
		s.handleError(c, err)
		return
	}

	s.merge(c, http.StatusOK, pushID, payload)
}

// HandleListJobs handles GET /api/jobs.
func (s *APIServer) HandleListJobs(c *gin.Context) {
	jobs, err := s.store.ListJobs(0)
	if err != nil {
		s.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, jobs)
}

func (s *APIServer) bindPayload(c *gin.Context) (*report.Payload, json.RawMessage, bool) {
	var payload report.Payload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("bad_request", "Invalid push payload"))
		return nil, nil, false
	}

	raw, err := json.Marshal(payload.Data)
	if err != nil {
		s.handleError(c, err)
		return nil, nil, false
	}
	return &payload, raw, true
}

func (s *APIServer) merge(c *gin.Context, status, pushID int, payload *report.Payload) {
	newJobs, err := s.store.MergeJobs(pushID, payload.Data.Jobs)
	if err != nil {
		s.handleError(c, err)
		return
	}

	s.logger.Info("received push",
		"push_id", pushID,
		"jobs", len(payload.Data.Jobs),
		"new_jobs", len(newJobs),
		"errors", len(payload.Data.Errors),
	)

	c.JSON(status, PushResponse{
		PushID:   pushID,
		NNewJobs: len(newJobs),
		NewJobs:  newJobs,
	})
}
