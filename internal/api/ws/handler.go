package ws

import (
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/framehost/internal/domain/frames"
	"github.com/GriffinCanCode/framehost/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/framehost/internal/shared/id"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10

	roleFrame = "frame"
	roleHost  = "host"
)

var errOriginMismatch = errors.New("target origin does not match the connected frame")

// Handler manages WebSocket connections
type Handler struct {
	frames     *frames.Manager
	metrics    *monitoring.Metrics
	logger     *zap.Logger
	maxMessage int64
	upgrader   websocket.Upgrader
}

// NewHandler creates a new WebSocket handler. maxMessage bounds a single
// inbound frame message; zero means unlimited.
func NewHandler(manager *frames.Manager, metrics *monitoring.Metrics, logger *zap.Logger, maxMessage int64) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		frames:     manager,
		metrics:    metrics,
		logger:     logger.Named("ws"),
		maxMessage: maxMessage,
		upgrader: websocket.Upgrader{
			// Origins are checked per message by the session channel.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

func (h *Handler) session(c *gin.Context) (*frames.Session, bool) {
	frameID, err := id.ParseFrameID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return nil, false
	}
	sess, err := h.frames.Get(frameID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return nil, false
	}
	return sess, true
}

// conn serializes writes; gorilla allows one concurrent writer.
type conn struct {
	*websocket.Conn
	mu sync.Mutex
}

func (c *conn) write(messageType int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.SetWriteDeadline(time.Now().Add(writeWait))
	return c.WriteMessage(messageType, data)
}

func (c *conn) writeJSON(v interface{}) error {
	data, err := sonic.Marshal(v)
	if err != nil {
		return err
	}
	return c.write(websocket.TextMessage, data)
}

func (c *conn) closeWith(code int, text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, text), time.Now().Add(writeWait))
}
