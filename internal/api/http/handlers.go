package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/framehost/internal/channel"
	"github.com/GriffinCanCode/framehost/internal/domain/frames"
	"github.com/GriffinCanCode/framehost/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/framehost/internal/sandbox"
	"github.com/GriffinCanCode/framehost/internal/shared/id"
)

// Version is reported by the root endpoint.
const Version = "0.1.0"

// Handlers contains all HTTP handlers
type Handlers struct {
	frames  *frames.Manager
	pool    *sandbox.Pool
	metrics *monitoring.Metrics
	logger  *zap.Logger
}

// NewHandlers creates a new handler set. pool may be nil when the
// in-process sandbox is disabled.
func NewHandlers(manager *frames.Manager, pool *sandbox.Pool, metrics *monitoring.Metrics, logger *zap.Logger) *Handlers {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handlers{
		frames:  manager,
		pool:    pool,
		metrics: metrics,
		logger:  logger.Named("http"),
	}
}

// RegisterRoutes mounts the REST endpoints on router.
func (h *Handlers) RegisterRoutes(router gin.IRouter) {
	router.GET("/", h.Root)
	router.GET("/health", h.Health)

	router.POST("/frames", h.CreateFrame)
	router.GET("/frames", h.ListFrames)
	router.GET("/frames/:id", h.GetFrame)
	router.DELETE("/frames/:id", h.DeleteFrame)
	router.POST("/frames/:id/screenshot", h.RequestScreenshot)
	router.GET("/frames/:id/screenshot", h.GetScreenshot)
	router.POST("/frames/:id/keys", h.ForwardKey)
	router.POST("/frames/:id/run", h.RunFrame)
}

// Root handles health check
func (h *Handlers) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "online",
		"service": "framehost",
		"version": Version,
	})
}

// Health handles detailed health check
func (h *Handlers) Health(c *gin.Context) {
	sb := gin.H{"enabled": h.pool != nil}
	if h.pool != nil {
		sb["pool"] = h.pool.Stats()
	}
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"frames":  h.frames.Stats(),
		"sandbox": sb,
		"metrics": h.metrics.Snapshot(),
	})
}

// CreateFrameRequest is the body of POST /frames.
type CreateFrameRequest struct {
	Source      string `json:"source" binding:"required"`
	Language    string `json:"language"`
	Origin      string `json:"origin"`
	IndentWidth *int   `json:"indent_width"`
	Writable    *bool  `json:"writable"`
	Profile     string `json:"profile"`
}

// CreateFrame starts a frame session
func (h *Handlers) CreateFrame(c *gin.Context) {
	var req CreateFrameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sess, err := h.frames.Create(frames.CreateRequest{
		Source:      req.Source,
		Language:    req.Language,
		Origin:      req.Origin,
		IndentWidth: req.IndentWidth,
		Writable:    req.Writable,
		Profile:     req.Profile,
	})
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, sess.Info())
}

// ListFrames lists all frame sessions
func (h *Handlers) ListFrames(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"frames":   h.frames.List(),
		"stats":    h.frames.Stats(),
		"profiles": h.frames.Profiles(),
	})
}

// GetFrame returns one session
func (h *Handlers) GetFrame(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, sess.Info())
}

// DeleteFrame tears a session down
func (h *Handlers) DeleteFrame(c *gin.Context) {
	frameID, ok := h.frameID(c)
	if !ok {
		return
	}
	if err := h.frames.Close(frameID); err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"frame_id": frameID,
	})
}

// RequestScreenshot asks the frame for a screenshot
func (h *Handlers) RequestScreenshot(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}
	if err := sess.RequestScreenshot(); err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"requested": true, "frame_id": sess.ID})
}

// GetScreenshot returns the persisted screenshot bytes
func (h *Handlers) GetScreenshot(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}
	rec, err := sess.Screenshot(c.Request.Context())
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.Header("X-Screenshot-ID", rec.ID)
	c.Header("ETag", rec.ETag)
	c.Header("Last-Modified", rec.CreatedAt.UTC().Format(http.TimeFormat))
	if match := c.GetHeader("If-None-Match"); match != "" && match == rec.ETag {
		c.Status(http.StatusNotModified)
		return
	}
	c.Data(http.StatusOK, rec.MIME, rec.Data)
}

// KeyRequest is the body of POST /frames/:id/keys.
type KeyRequest struct {
	Type  string `json:"type" binding:"required"`
	Which int    `json:"which"`
}

// ForwardKey relays a keyboard event to the frame
func (h *Handlers) ForwardKey(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}
	var req KeyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := sess.ForwardKey(req.Type, req.Which); err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"forwarded": true, "frame_id": sess.ID})
}

// RunFrame runs the session's program in a fresh in-process frame,
// replacing any frame started earlier.
func (h *Handlers) RunFrame(c *gin.Context) {
	if h.pool == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "sandbox is disabled"})
		return
	}
	sess, ok := h.session(c)
	if !ok {
		return
	}
	sess.SetFrame(nil)

	ctx := c.Request.Context()
	if budget := h.pool.Config().Timeout + h.pool.Config().AcquireTimeout; budget > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, budget)
		defer cancel()
	}

	start := time.Now()
	frame, result, err := sandbox.Start(ctx, h.pool, sess, h.logger)
	if err != nil {
		h.metrics.RecordSandboxRun("rejected", time.Since(start))
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	sess.SetFrame(frame)

	status := "ok"
	if result.Error != nil {
		status = "error"
	}
	h.metrics.RecordSandboxRun(status, result.Duration)

	c.JSON(http.StatusOK, gin.H{
		"frame_id":    sess.ID,
		"ok":          result.Error == nil,
		"console":     result.Console,
		"duration_ms": result.Duration.Milliseconds(),
		"report":      sess.LastReport(),
	})
}

func (h *Handlers) frameID(c *gin.Context) (id.FrameID, bool) {
	frameID, err := id.ParseFrameID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return "", false
	}
	return frameID, true
}

func (h *Handlers) session(c *gin.Context) (*frames.Session, bool) {
	frameID, ok := h.frameID(c)
	if !ok {
		return nil, false
	}
	sess, err := h.frames.Get(frameID)
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return nil, false
	}
	return sess, true
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, frames.ErrNotFound), errors.Is(err, frames.ErrNoScreenshot):
		return http.StatusNotFound
	case errors.Is(err, frames.ErrNotReady), errors.Is(err, frames.ErrAttached):
		return http.StatusConflict
	case errors.Is(err, frames.ErrReadOnly):
		return http.StatusForbidden
	case errors.Is(err, frames.ErrUnsupportedEvent), errors.Is(err, sandbox.ErrUnsupportedLanguage):
		return http.StatusBadRequest
	case errors.Is(err, channel.ErrClosed), errors.Is(err, frames.ErrClosed):
		return http.StatusGone
	case errors.Is(err, sandbox.ErrTimeout), errors.Is(err, sandbox.ErrPoolClosed),
		errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
