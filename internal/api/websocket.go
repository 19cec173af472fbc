package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"alert-service/internal/logging"
	"alert-service/internal/realtime"
)

const (
	writeTimeout = 10 * time.Second
	pongWait     = 60 * time.Second
	pingPeriod   = (pongWait * 9) / 10
	sendBufSize  = 32
	maxFrameSize = 4096
)

var (
	errSessionClosed = errors.New("session closed")
	errSendBufFull   = errors.New("session send buffer full")
)

// Registry is satisfied by *realtime.Hub.
type Registry interface {
	Join(userID string, s realtime.Subscriber) error
	Leave(userID string, s realtime.Subscriber)
	LeaveAll(s realtime.Subscriber)
}

// clientMessage is what a client sends after connecting, e.g.
// {"action":"join","user_id":"..."}.
type clientMessage struct {
	Action string `json:"action"`
	UserID string `json:"user_id"`
}

type WSHandler struct {
	registry Registry
	logger   *logging.Logger
	upgrader websocket.Upgrader
}

func NewWSHandler(registry Registry, logger *logging.Logger) *WSHandler {
	return &WSHandler{
		registry: registry,
		logger:   logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			// origin policy is enforced by the gateway
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Serve upgrades the request and runs the session until the client
// disconnects. The session receives nothing until it joins a user group.
func (h *WSHandler) Serve(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warnf("WebSocket upgrade failed: %v", err)
		return
	}

	s := &session{
		id:   uuid.NewString(),
		conn: conn,
		send: make(chan []byte, sendBufSize),
		done: make(chan struct{}),
	}
	h.logger.Debugf("Session %s connected from %s", s.id, c.ClientIP())

	go s.writePump()
	h.readPump(s)

	h.registry.LeaveAll(s)
	s.close()
	h.logger.Debugf("Session %s disconnected", s.id)
}

func (h *WSHandler) readPump(s *session) {
	s.conn.SetReadLimit(maxFrameSize)
	_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var msg clientMessage
		if err := s.conn.ReadJSON(&msg); err != nil {
			var syntaxErr *json.SyntaxError
			var typeErr *json.UnmarshalTypeError
			if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
				s.reply("error", "malformed message")
				continue
			}
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Warnf("Session %s read failed: %v", s.id, err)
			}
			return
		}

		switch msg.Action {
		case "join":
			if msg.UserID == "" {
				s.reply("error", "user_id is required")
				continue
			}
			if err := h.registry.Join(msg.UserID, s); err != nil {
				s.reply("error", err.Error())
				continue
			}
			s.reply("joined", msg.UserID)
		case "leave":
			h.registry.Leave(msg.UserID, s)
			s.reply("left", msg.UserID)
		default:
			s.reply("error", "unknown action")
		}
	}
}

// session is one websocket connection. It implements realtime.Subscriber.
type session struct {
	id   string
	conn *websocket.Conn
	send chan []byte

	done      chan struct{}
	closeOnce sync.Once
}

func (s *session) ID() string { return s.id }

// Send queues evt without blocking. A slow client is reported so the hub
// evicts it.
func (s *session) Send(evt realtime.Event) error {
	data, err := json.Marshal(evt)
	if err != nil {
		return err
	}
	return s.enqueue(data)
}

func (s *session) enqueue(data []byte) error {
	select {
	case <-s.done:
		return errSessionClosed
	default:
	}
	select {
	case s.send <- data:
		return nil
	case <-s.done:
		return errSessionClosed
	default:
		return errSendBufFull
	}
}

func (s *session) reply(kind, detail string) {
	data, _ := json.Marshal(map[string]string{"type": kind, "detail": detail})
	_ = s.enqueue(data)
}

func (s *session) close() {
	s.closeOnce.Do(func() { close(s.done) })
}

func (s *session) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		s.conn.Close()
	}()

	for {
		select {
		case msg := <-s.send:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := s.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				s.close()
				return
			}
		case <-ticker.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				s.close()
				return
			}
		case <-s.done:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			_ = s.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		}
	}
}
