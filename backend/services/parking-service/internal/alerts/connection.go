package alerts

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	readLimit  = 4096
	pongWait   = 60 * time.Second
	sendBuffer = 16
)

// Connection wraps one driver websocket. Drivers only listen; incoming frames are read to
// keep the pong deadline moving and otherwise discarded.
type Connection struct {
	userID       int64
	ws           *websocket.Conn
	send         chan []byte
	writeTimeout time.Duration
	logger       *zap.Logger
	done         chan struct{}
}

func newConnection(userID int64, ws *websocket.Conn, writeTimeout time.Duration, logger *zap.Logger) *Connection {
	return &Connection{
		userID:       userID,
		ws:           ws,
		send:         make(chan []byte, sendBuffer),
		writeTimeout: writeTimeout,
		logger:       logger,
		done:         make(chan struct{}),
	}
}

// Send enqueues msg without blocking; it reports false when the buffer is full or the
// connection is gone.
func (c *Connection) Send(msg []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- msg:
		return true
	default:
		c.logger.Warn("dropping alert, buffer full", zap.Int64("user_id", c.userID))
		return false
	}
}

// Ping asks the writer to send a ping frame.
func (c *Connection) Ping() error {
	return c.ws.WriteControl(websocket.PingMessage, []byte("ping"), time.Now().Add(c.writeTimeout))
}

func (c *Connection) readPump() {
	defer close(c.done)
	c.ws.SetReadLimit(readLimit)
	_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.ws.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *Connection) writePump(ctx context.Context) {
	defer c.ws.Close()
	for {
		select {
		case <-ctx.Done():
			_ = c.ws.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, ""), time.Now().Add(c.writeTimeout))
			return
		case <-c.done:
			return
		case msg := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(c.writeTimeout))
			if err := c.ws.WriteMessage(websocket.TextMessage, msg); err != nil {
				c.logger.Info("alert write failed", zap.Int64("user_id", c.userID), zap.Error(err))
				return
			}
		}
	}
}

// Server upgrades HTTP requests to alert websockets.
type Server struct {
	hub          *Hub
	upgrader     websocket.Upgrader
	writeTimeout time.Duration
	logger       *zap.Logger
}

// NewServer builds the websocket endpoint. An empty origins list accepts any origin.
func NewServer(hub *Hub, origins []string, writeTimeout time.Duration, logger *zap.Logger) *Server {
	if writeTimeout <= 0 {
		writeTimeout = 10 * time.Second
	}
	allowed := make(map[string]struct{}, len(origins))
	for _, o := range origins {
		allowed[o] = struct{}{}
	}
	return &Server{
		hub:          hub,
		writeTimeout: writeTimeout,
		logger:       logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				if len(allowed) == 0 {
					return true
				}
				_, ok := allowed[r.Header.Get("Origin")]
				return ok
			},
		},
	}
}

// Serve upgrades the request for userID and blocks until the connection closes.
func (s *Server) Serve(w http.ResponseWriter, r *http.Request, userID int64) {
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	conn := newConnection(userID, ws, s.writeTimeout, s.logger)
	s.hub.Register(userID, conn)
	s.logger.Info("alerts client connected", zap.Int64("user_id", userID))

	ctx, cancel := context.WithCancel(context.Background())
	go conn.writePump(ctx)
	conn.readPump()

	cancel()
	s.hub.Unregister(userID, conn)
	s.logger.Info("alerts client disconnected", zap.Int64("user_id", userID))
}
