package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/DocSandbox/backend/internal/domain/documents"
	"github.com/GriffinCanCode/DocSandbox/backend/internal/infrastructure/monitoring"
)

// Version is reported by the root endpoint.
const Version = "0.3.0"

// SubscriberCounter reports connected event stream subscribers.
type SubscriberCounter interface {
	Subscribers() int
}

// LevelController reads and changes the process log level.
type LevelController interface {
	Level() string
	SetLevel(level string) error
}

// Handlers contains all HTTP handlers
type Handlers struct {
	docs      *documents.Service
	events    SubscriberCounter
	metrics   *monitoring.Metrics
	logger    *zap.Logger
	levels    LevelController
	maxUpload int64
	started   time.Time
}

// NewHandlers creates a new handler set. events and metrics may be nil.
func NewHandlers(docs *documents.Service, events SubscriberCounter, metrics *monitoring.Metrics, logger *zap.Logger) *Handlers {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handlers{
		docs:    docs,
		events:  events,
		metrics: metrics,
		logger:  logger,
		started: time.Now(),
	}
}

// WithUploadLimit caps decompressed upload bodies at n bytes. Zero or less
// leaves uploads unbounded.
func (h *Handlers) WithUploadLimit(n int64) *Handlers {
	h.maxUpload = n
	return h
}

// WithLogLevel enables the log level endpoints.
func (h *Handlers) WithLogLevel(levels LevelController) *Handlers {
	h.levels = levels
	return h
}

// createRequest is the body of POST /documents.
type createRequest struct {
	ParentID    string `json:"parent_id" binding:"required"`
	MIMEType    string `json:"mime_type" binding:"required"`
	DisplayName string `json:"display_name" binding:"required"`
}

// listResponse wraps a set of documents.
type listResponse struct {
	Documents []documents.Document `json:"documents"`
	Count     int                  `json:"count"`
}

func list(docs []documents.Document) listResponse {
	if docs == nil {
		docs = []documents.Document{}
	}
	return listResponse{Documents: docs, Count: len(docs)}
}

// requireID reads the id query parameter or rejects the request.
func requireID(c *gin.Context) (string, bool) {
	id := c.Query("id")
	if id == "" {
		badRequest(c, "missing id parameter")
		return "", false
	}
	return id, true
}

// Root handles health check
func (h *Handlers) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "online",
		"service": "DocSandbox",
		"version": Version,
		"root_id": h.docs.RootID(),
	})
}

// Health handles detailed health check
func (h *Handlers) Health(c *gin.Context) {
	status := "healthy"
	code := http.StatusOK
	if _, err := h.docs.QueryDocument(h.docs.RootID()); err != nil {
		status = "degraded"
		code = http.StatusServiceUnavailable
		h.logger.Warn("Health check failed", zap.Error(err))
	}

	body := gin.H{
		"status":         status,
		"root":           h.docs.Codec().Base(),
		"uptime_seconds": time.Since(h.started).Seconds(),
	}
	if h.events != nil {
		body["event_subscribers"] = h.events.Subscribers()
	}
	if h.metrics != nil {
		body["open_handles"] = h.metrics.Snapshot().OpenHandles
	}
	c.JSON(code, body)
}

// Roots lists the exposed roots
func (h *Handlers) Roots(c *gin.Context) {
	roots, err := h.docs.Roots(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"roots": roots})
}

// QueryDocument returns one metadata row
func (h *Handlers) QueryDocument(c *gin.Context) {
	id, ok := requireID(c)
	if !ok {
		return
	}
	doc, err := h.docs.QueryDocument(id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, doc)
}

// DocumentType returns the MIME type of a document
func (h *Handlers) DocumentType(c *gin.Context) {
	id, ok := requireID(c)
	if !ok {
		return
	}
	mime, err := h.docs.DocumentType(id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id, "mime_type": mime})
}

// Children lists the immediate children of a directory
func (h *Handlers) Children(c *gin.Context) {
	id, ok := requireID(c)
	if !ok {
		return
	}
	docs, err := h.docs.ListChildren(id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, list(docs))
}

// Search finds files below a directory by name
func (h *Handlers) Search(c *gin.Context) {
	id, ok := requireID(c)
	if !ok {
		return
	}
	docs, err := h.docs.Search(c.Request.Context(), id, c.Query("query"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, list(docs))
}

// Recent lists the most recently modified files below a directory
func (h *Handlers) Recent(c *gin.Context) {
	id := c.DefaultQuery("id", h.docs.RootID())
	docs, err := h.docs.Recent(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, list(docs))
}

// Create makes a new file or directory
func (h *Handlers) Create(c *gin.Context) {
	var req createRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	id, err := h.docs.Create(req.ParentID, req.MIMEType, req.DisplayName)
	if err != nil {
		respondError(c, err)
		return
	}
	c.Header("X-Document-ID", id)
	c.JSON(http.StatusCreated, gin.H{"id": id})
}

// Delete removes a file or an empty directory
func (h *Handlers) Delete(c *gin.Context) {
	id, ok := requireID(c)
	if !ok {
		return
	}
	if err := h.docs.Delete(id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
