package ws

import (
	"errors"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/framehost/internal/domain/frames"
)

// HostCommand is a message from the host UI.
type HostCommand struct {
	Type  string `json:"type"`
	Event string `json:"event,omitempty"`
	Which int    `json:"which,omitempty"`
}

// HostReply is a server message that is not a frame notification.
type HostReply struct {
	Type      string       `json:"type"`
	Frame     *frames.Info `json:"frame,omitempty"`
	Command   string       `json:"command,omitempty"`
	Error     string       `json:"error,omitempty"`
	Timestamp int64        `json:"timestamp"`
}

// HostEvents streams session notifications to the host UI and accepts
// host commands.
func (h *Handler) HostEvents(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}

	ws, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("WebSocket upgrade failed", zap.Error(err))
		return
	}
	cn := &conn{Conn: ws}
	defer cn.Close()

	logger := h.logger.With(zap.String("frame_id", sess.ID.String()))

	notes, unsubscribe := sess.Subscribe(64)
	defer unsubscribe()

	h.metrics.IncWSConnections(roleHost)
	defer h.metrics.DecWSConnections(roleHost)

	info := sess.Info()
	if err := cn.writeJSON(HostReply{Type: "info", Frame: &info, Timestamp: time.Now().Unix()}); err != nil {
		return
	}

	done := make(chan struct{})
	defer close(done)
	go h.pump(cn, notes, done, logger)

	cn.SetReadDeadline(time.Now().Add(pongWait))
	cn.SetPongHandler(func(string) error {
		cn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := cn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Warn("Host connection error", zap.Error(err))
			}
			return
		}
		cn.SetReadDeadline(time.Now().Add(pongWait))

		var cmd HostCommand
		if err := sonic.Unmarshal(data, &cmd); err != nil {
			h.reply(cn, "", errors.New("malformed command"))
			continue
		}
		h.handleCommand(cn, sess, cmd)
	}
}

func (h *Handler) handleCommand(cn *conn, sess *frames.Session, cmd HostCommand) {
	switch cmd.Type {
	case "ping":
		cn.writeJSON(HostReply{Type: "pong", Timestamp: time.Now().Unix()})
	case "screenshot":
		h.reply(cn, cmd.Type, sess.RequestScreenshot())
	case "key":
		h.reply(cn, cmd.Type, sess.ForwardKey(cmd.Event, cmd.Which))
	default:
		h.reply(cn, cmd.Type, errors.New("unknown command"))
	}
}

func (h *Handler) reply(cn *conn, command string, err error) {
	r := HostReply{Type: "ack", Command: command, Timestamp: time.Now().Unix()}
	if err != nil {
		r.Type = "rejected"
		r.Error = err.Error()
	}
	cn.writeJSON(r)
}

// pump forwards notifications and keeps the connection alive until done
// or the session closes.
func (h *Handler) pump(cn *conn, notes <-chan frames.Notification, done <-chan struct{}, logger *zap.Logger) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case n, ok := <-notes:
			if !ok {
				cn.closeWith(websocket.CloseNormalClosure, "frame closed")
				return
			}
			if err := cn.writeJSON(n); err != nil {
				logger.Debug("Failed to write notification", zap.Error(err))
				return
			}
		case <-ticker.C:
			if err := cn.write(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}
