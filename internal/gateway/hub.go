package gateway

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"sync/atomic"

	"socket-gateway/internal/models"
)

// BackendProxy is the slice of the backend client the dispatcher needs.
type BackendProxy interface {
	ProxyEvent(ctx context.Context, event models.ClientEvent, token string) models.Envelope
	FetchZoneCourses(ctx context.Context, eventType, zone string) models.Envelope
}

// Gateway owns the two shared registries and the set of live socket clients.
// All room and session mutation funnels through its methods; no other
// component touches the registries directly.
type Gateway struct {
	logger *slog.Logger
	proxy  BackendProxy

	conns *ConnectionRegistry
	rooms *RoomRegistry

	mu      sync.RWMutex
	clients map[string]*Client

	// draining short-circuits every mutating request with a 503 while
	// existing sockets stay open for the shutdown grace window.
	draining atomic.Bool

	authKey    string
	authSecret string

	ctx    context.Context
	cancel context.CancelFunc
}

func New(logger *slog.Logger, proxy BackendProxy, authKey, authSecret string) *Gateway {
	ctx, cancel := context.WithCancel(context.Background())

	return &Gateway{
		logger:     logger,
		proxy:      proxy,
		conns:      NewConnectionRegistry(),
		rooms:      NewRoomRegistry(),
		clients:    make(map[string]*Client),
		authKey:    authKey,
		authSecret: authSecret,
		ctx:        ctx,
		cancel:     cancel,
	}
}

// Connections exposes the session registry, read-mostly (tests, healthcheck).
func (g *Gateway) Connections() *ConnectionRegistry {
	return g.conns
}

// Rooms exposes the room registry.
func (g *Gateway) Rooms() *RoomRegistry {
	return g.rooms
}

// BlockNewRequests puts the gateway into drain mode.
func (g *Gateway) BlockNewRequests() {
	g.draining.Store(true)
	g.logger.Debug("drain: block new requests during shutdown")
}

// Draining reports whether the gateway is refusing new work.
func (g *Gateway) Draining() bool {
	return g.draining.Load()
}

// Stop cancels the gateway context; in-flight backend calls get released.
func (g *Gateway) Stop() {
	g.cancel()
}

// Register admits an authenticated socket: the client becomes addressable and
// its session entry is created with no tokens and no user type yet.
func (g *Gateway) Register(c *Client) {
	g.mu.Lock()
	g.clients[c.id] = c
	g.mu.Unlock()

	g.conns.Update(c.id, ConnectionUpdate{
		Application: ptr(c.application),
		Connected:   ptr(true),
		CoursesSent: ptr(false),
	})

	g.logger.Info("connection registered", "connID", c.id, "application", c.application)
}

// EmitTo sends one event message to a single connection. Unknown ids are a
// no-op: the socket may have disconnected between lookup and send.
func (g *Gateway) EmitTo(id string, msg models.EventMessage) {
	g.mu.RLock()
	client, ok := g.clients[id]
	g.mu.RUnlock()

	if !ok {
		return
	}
	client.emit(msg)
}

// BroadcastToRoom fans one event message out to every current member of the
// room. Delivery is best effort; slow consumers are dropped, not waited on.
func (g *Gateway) BroadcastToRoom(room string, msg models.EventMessage) {
	payload, err := json.Marshal(msg)
	if err != nil {
		g.logger.Error("broadcast marshal failed", "room", room, "error", err)
		return
	}

	for _, id := range g.rooms.Members(room) {
		g.mu.RLock()
		client, ok := g.clients[id]
		g.mu.RUnlock()

		if ok {
			client.enqueue(payload)
		}
	}
}

// detachFromRoom is the single authoritative way to take a connection out of
// room state: it removes the id from whichever room holds it and clears the
// session's room channel.
func (g *Gateway) detachFromRoom(id string) (string, bool) {
	room, ok := g.rooms.RemoveByID(id)
	if ok {
		g.conns.Update(id, ConnectionUpdate{RoomChannel: ptr("")})
	}
	return room, ok
}
