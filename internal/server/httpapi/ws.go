package httpapi

import (
	"encoding/json"
	"net/http"
	"slices"
	"time"

	"github.com/dmitrijs2005/sketchhub/internal/common"
	"github.com/dmitrijs2005/sketchhub/internal/logging"
	"github.com/dmitrijs2005/sketchhub/internal/server/broadcast"
	"github.com/dmitrijs2005/sketchhub/internal/server/metrics"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxInboundSize = 512
)

// wsServer streams hub envelopes to WebSocket clients. Each connection has
// a write pump (hub to socket plus pings) and a read pump that only
// watches for close and pong frames.
type wsServer struct {
	hub      *broadcast.Hub
	upgrader websocket.Upgrader
	logger   logging.Logger
	metrics  *metrics.Metrics
}

func newWSServer(hub *broadcast.Hub, origins []string, logger logging.Logger, m *metrics.Metrics) *wsServer {
	return &wsServer{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(origins),
		},
		logger:  logger.With("component", "ws"),
		metrics: m,
	}
}

// originChecker admits non-browser clients (no Origin header) and browsers
// from the configured origins.
func originChecker(origins []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" || len(origins) == 0 || slices.Contains(origins, "*") {
			return true
		}
		return slices.Contains(origins, origin)
	}
}

func (s *wsServer) serve(c *gin.Context) {
	if s.hub == nil {
		abort(c, http.StatusServiceUnavailable, "broadcasting is disabled")
		return
	}

	channels := c.QueryArray("channel")
	if len(channels) == 0 {
		channels = common.Channels
	}
	for _, ch := range channels {
		if !slices.Contains(common.Channels, ch) {
			abort(c, http.StatusBadRequest, "unknown channel "+ch)
			return
		}
	}

	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.Warn(c.Request.Context(), "websocket upgrade failed", "error", err)
		return
	}

	ctx := c.Request.Context()
	sub := s.hub.Subscribe(channels...)
	if s.metrics != nil {
		s.metrics.WSConnections.Inc()
		defer s.metrics.WSConnections.Dec()
	}
	s.logger.Debug(ctx, "subscriber connected", "channels", channels, "remote", c.ClientIP())

	go s.writePump(conn, sub)
	s.readPump(conn, sub)

	s.logger.Debug(ctx, "subscriber disconnected", "remote", c.ClientIP())
}

func (s *wsServer) readPump(conn *websocket.Conn, sub *broadcast.Subscription) {
	defer func() {
		s.hub.Unsubscribe(sub)
		conn.Close()
	}()

	conn.SetReadLimit(maxInboundSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (s *wsServer) writePump(conn *websocket.Conn, sub *broadcast.Subscription) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for _, ch := range sub.Channels() {
		ack, _ := json.Marshal(broadcast.Envelope{Channel: ch, Event: common.EventSubscribed, Data: json.RawMessage(`{}`)})
		if err := s.write(conn, websocket.TextMessage, ack); err != nil {
			return
		}
	}

	for {
		select {
		case frame, ok := <-sub.C:
			if !ok {
				_ = s.write(conn, websocket.CloseMessage, nil)
				return
			}
			if err := s.write(conn, websocket.TextMessage, frame); err != nil {
				return
			}
		case <-ticker.C:
			if err := s.write(conn, websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (s *wsServer) write(conn *websocket.Conn, messageType int, data []byte) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteMessage(messageType, data)
}
