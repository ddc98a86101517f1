package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"socket-gateway/internal/config"
	"socket-gateway/internal/gateway"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Connections come from the mobile applications, not browsers; the
	// credential gate is the admission control.
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Server hosts the websocket upgrade endpoint. Every other HTTP request is
// rejected with a 404.
type Server struct {
	logger *slog.Logger
	gw     *gateway.Gateway
	http   *http.Server
}

func New(cfg *config.AppConfig, logger *slog.Logger, gw *gateway.Gateway) *Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())

	s := &Server{
		logger: logger,
		gw:     gw,
		http: &http.Server{
			Addr:    fmt.Sprintf("%s:%s", cfg.Host, cfg.Port),
			Handler: engine,
		},
	}

	engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	engine.GET("/ws", s.handleSocket)
	engine.NoRoute(func(c *gin.Context) {
		logger.Error("received plain http request", "url", c.Request.URL.String())
		c.Status(http.StatusNotFound)
	})

	return s
}

// handleSocket gates the connection on the static application credentials,
// then upgrades it and registers the session.
func (s *Server) handleSocket(c *gin.Context) {
	creds := gateway.CredentialsFromHeader(c.Request.Header)

	if err := s.gw.Authenticate(creds); err != nil {
		s.logger.Error("connection rejected", "application", creds.Application, "error", err)
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.Error("websocket upgrade failed", "error", err)
		return
	}

	client := gateway.NewClient(s.gw, conn, creds.Application)
	s.gw.Register(client)
	client.Start()
}

// Run blocks serving connections until the listener is closed.
func (s *Server) Run() error {
	s.logger.Info("listening for connections", "address", s.http.Addr)
	if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown closes the listening socket.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}
