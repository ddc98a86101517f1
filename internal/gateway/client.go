package gateway

import (
	"encoding/json"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"socket-gateway/internal/models"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 4096
)

// Client wraps one websocket and pumps frames between the socket and the
// gateway dispatcher. Events of a single client are dispatched one at a time
// by the read pump; only broadcasts and course pushes run detached.
type Client struct {
	id          string
	application string
	gateway     *Gateway
	conn        *websocket.Conn
	send        chan []byte
	closed      int32
}

func NewClient(g *Gateway, conn *websocket.Conn, application string) *Client {
	return &Client{
		id:          uuid.New().String(),
		application: application,
		gateway:     g,
		conn:        conn,
		send:        make(chan []byte, 256),
	}
}

// ID returns the opaque session identifier, stable for the socket's lifetime.
func (c *Client) ID() string {
	return c.id
}

// Start launches the read and write pumps.
func (c *Client) Start() {
	go c.writePump()
	go c.readPump()
}

// emit marshals and enqueues one event message for this socket.
func (c *Client) emit(msg models.EventMessage) {
	payload, err := json.Marshal(msg)
	if err != nil {
		c.gateway.logger.Error("emit marshal failed", "connID", c.id, "error", err)
		return
	}
	c.enqueue(payload)
}

// enqueue hands a frame to the write pump without blocking the caller. A full
// buffer means the consumer is stalled; the frame is dropped.
func (c *Client) enqueue(payload []byte) {
	if atomic.LoadInt32(&c.closed) == 1 {
		return
	}
	select {
	case c.send <- payload:
	default:
		c.gateway.logger.Warn("send buffer full, dropping frame", "connID", c.id)
	}
}

func (c *Client) readPump() {
	defer func() {
		c.gateway.handleDisconnect(c)
		c.close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, payload, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.gateway.logger.Warn("unexpected close", "connID", c.id, "error", err)
			}
			return
		}

		var frame models.Frame
		if err := json.Unmarshal(payload, &frame); err != nil {
			c.gateway.logger.Error("invalid frame received", "connID", c.id, "error", err)
			continue
		}

		c.gateway.dispatch(c, frame)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.close()
	}()

	for {
		select {
		case payload, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) close() {
	if atomic.CompareAndSwapInt32(&c.closed, 0, 1) {
		c.conn.Close()
	}
}
