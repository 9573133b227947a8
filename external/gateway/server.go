package gateway

import (
	"log/slog"
	"net/http"

	"github.com/foxseedlab/tsunagin/internal/config"
	"github.com/foxseedlab/tsunagin/internal/hub"
	"github.com/foxseedlab/tsunagin/internal/relay"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// Server hosts the client websocket endpoint. Each accepted connection gets
// one hub client and one relay; the read loop below is the only goroutine
// that drives the relay.
type Server struct {
	cfg      *config.Config
	registry *hub.Hub
	newRelay relay.Factory
	engine   *gin.Engine
	upgrader websocket.Upgrader
}

func NewServer(cfg *config.Config, registry *hub.Hub, newRelay relay.Factory) *Server {
	if !cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}
	s := &Server{
		cfg:      cfg,
		registry: registry,
		newRelay: newRelay,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.GET("/healthz", s.handleHealthz)
	engine.GET("/ws", s.handleWebSocket)
	s.engine = engine
	return s
}

// Handler exposes the router for the HTTP server in cmd.
func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) handleHealthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "clients": s.registry.Len()})
}

func (s *Server) handleWebSocket(c *gin.Context) {
	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		slog.Error("websocket upgrade failed", "error", err, "remote", c.Request.RemoteAddr)
		return
	}
	slog.Info("client connected", "remote", conn.RemoteAddr().String())

	client := hub.NewClient(conn)
	s.registry.Add(client)
	go client.WritePump()

	r := s.newRelay(client)
	s.readLoop(conn, r)

	// Disconnect handling runs before the hub entry goes away so the
	// teardown broadcast can still reach every observer.
	r.HandleDisconnect()
	s.registry.Remove(client)
	_ = conn.Close()
	slog.Info("client disconnected", "remote", conn.RemoteAddr().String())
}

func (s *Server) readLoop(conn *websocket.Conn, r *relay.Relay) {
	for {
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				slog.Debug("client read ended", "error", err)
			}
			return
		}
		switch messageType {
		case websocket.TextMessage:
			r.HandleControl(data)
		case websocket.BinaryMessage:
			r.HandleBinary(data)
		}
	}
}
