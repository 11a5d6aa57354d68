package ws

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/framehost/internal/channel"
	"github.com/GriffinCanCode/framehost/internal/domain/frames"
)

// frameTransport delivers host messages over the frame's connection. Like
// window.postMessage, nothing is delivered when the frame's origin differs
// from the target origin.
type frameTransport struct {
	conn   *conn
	origin string
}

func (t *frameTransport) PostMessage(data []byte, targetOrigin string) error {
	if targetOrigin != "*" && targetOrigin != t.origin {
		return errOriginMismatch
	}
	return t.conn.write(websocket.TextMessage, data)
}

// FrameConnect handles the embedded frame's connection.
func (h *Handler) FrameConnect(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}
	if sess.Attached() {
		c.JSON(http.StatusConflict, gin.H{"error": frames.ErrAttached.Error()})
		return
	}

	origin := c.GetHeader("Origin")
	ws, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("WebSocket upgrade failed", zap.Error(err))
		return
	}
	cn := &conn{Conn: ws}
	defer cn.Close()

	logger := h.logger.With(zap.String("frame_id", sess.ID.String()), zap.String("origin", origin))

	detach, err := sess.Attach(&frameTransport{conn: cn, origin: origin})
	if err != nil {
		cn.closeWith(websocket.ClosePolicyViolation, err.Error())
		return
	}
	defer detach()

	h.metrics.IncWSConnections(roleFrame)
	defer h.metrics.DecWSConnections(roleFrame)
	logger.Info("Frame connected")

	if h.maxMessage > 0 {
		cn.SetReadLimit(h.maxMessage)
	}

	for {
		messageType, data, err := cn.ReadMessage()
		if err != nil {
			if errors.Is(err, websocket.ErrReadLimit) {
				logger.Warn("Frame message too large", zap.Int64("limit", h.maxMessage))
			} else if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Warn("Frame connection error", zap.Error(err))
			}
			break
		}
		if messageType != websocket.TextMessage && messageType != websocket.BinaryMessage {
			continue
		}
		sess.Receive(channel.RawEvent{Origin: origin, Data: data})
	}

	logger.Info("Frame disconnected")
}
