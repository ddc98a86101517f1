package gateway

import (
	"encoding/json"

	"socket-gateway/internal/models"
)

// dispatch routes one inbound frame to its handler. A malformed payload or a
// panicking handler drops the event and keeps the connection alive.
func (g *Gateway) dispatch(c *Client, frame models.Frame) {
	defer func() {
		if r := recover(); r != nil {
			g.logger.Error("handler panic, event dropped", "connID", c.id, "event", frame.Event, "panic", r)
		}
	}()

	switch frame.Event {
	case models.FrameJoinRoom:
		var room string
		if err := json.Unmarshal(frame.Data, &room); err != nil {
			g.logger.Error("invalid join-room payload", "connID", c.id, "error", err)
			return
		}
		g.handleJoinRoom(c, room)

	case models.FrameLeaveRoom:
		g.handleLeaveRoom(c)

	case models.FrameChangeToken:
		var tokens models.TokenChange
		if err := json.Unmarshal(frame.Data, &tokens); err != nil {
			g.logger.Error("invalid change-token payload", "connID", c.id, "error", err)
			return
		}
		g.handleChangeToken(c, tokens)

	case models.FrameMessage:
		var event models.ClientEvent
		if err := json.Unmarshal(frame.Data, &event); err != nil {
			g.logger.Error("invalid message payload", "connID", c.id, "error", err)
			return
		}
		g.handleMessage(c, event)

	default:
		g.logger.Warn("unknown frame event", "connID", c.id, "event", frame.Event)
	}
}

func (g *Gateway) handleJoinRoom(c *Client, room string) {
	if g.Draining() {
		c.emit(models.EventMessage{Type: models.FrameJoinRoom, Data: models.ServiceUnavailable()})
		return
	}

	conn, _ := g.conns.Get(c.id)

	// The user must have identified itself before joining any room.
	if !conn.UserType.Valid() {
		c.emit(models.EventMessage{
			Type: models.FrameJoinRoom,
			Data: models.Envelope{
				StatusCode: 422,
				I18n:       "error.user.unknow-type",
				Reason:     "UNKNOW_USER_TYPE",
			},
		})
		return
	}

	// Clients may only join private ride rooms; zone channels carry hyphens.
	if conn.UserType == models.UserClient && IsZoneRoom(room) {
		c.emit(models.EventMessage{
			Type: models.FrameJoinRoom,
			User: conn.UserType.Ptr(),
			Data: models.Envelope{
				StatusCode: 403,
				I18n:       "error.user.not-allowed",
				Reason:     "PUBLIC_ROOM_FORBIDDEN_TO_CLIENT",
			},
		})
		return
	}

	g.detachFromRoom(c.id)
	g.rooms.AddMember(room, c.id)
	// A join starts a new room tenure, so the course push becomes due again.
	g.conns.Update(c.id, ConnectionUpdate{RoomChannel: ptr(room), CoursesSent: ptr(false)})

	c.emit(models.EventMessage{
		Type: models.FrameJoinRoom,
		User: conn.UserType.Ptr(),
		Data: models.Envelope{
			StatusCode: 200,
			I18n:       "room.joined",
			Reason:     "OK",
			Values:     models.RawValues(map[string]string{"zone_id": room}),
		},
	})

	// First-connection push runs detached; its outcome never affects the ack.
	go g.sendFirstCourseList(c, conn.UserType, room)
}

func (g *Gateway) handleLeaveRoom(c *Client) {
	if g.Draining() {
		c.emit(models.EventMessage{Type: models.FrameLeaveRoom, Data: models.ServiceUnavailable()})
		return
	}

	room, ok := g.detachFromRoom(c.id)
	conn, _ := g.conns.Get(c.id)

	values := map[string]any{"zone_id": nil}
	if ok {
		values["zone_id"] = room
	}

	c.emit(models.EventMessage{
		Type: models.FrameLeaveRoom,
		User: conn.UserType.Ptr(),
		Data: models.Envelope{
			StatusCode: 200,
			I18n:       "room.left",
			Reason:     "OK",
			Values:     models.RawValues(values),
		},
	})
}

// handleChangeToken lets a session swap its identity tokens. Known weakness:
// anyone holding the socket can overwrite the session's identity; kept as-is
// pending a product decision on the trust model. Rotation demotes the session
// to unidentified, so the caller must re-identify before rejoining a room.
func (g *Gateway) handleChangeToken(c *Client, tokens models.TokenChange) {
	if g.Draining() {
		c.emit(models.EventMessage{Type: models.FrameChangeToken, Data: models.ServiceUnavailable()})
		return
	}

	conn, _ := g.conns.Get(c.id)

	if tokens.AccessToken == "" || tokens.RefreshToken == "" {
		c.emit(models.EventMessage{
			Type: models.FrameChangeToken,
			User: conn.UserType.Ptr(),
			Data: models.Envelope{
				StatusCode: 400,
				I18n:       "error.tokens.missing",
				Reason:     "MISSING_TOKENS",
			},
		})
		return
	}

	g.detachFromRoom(c.id)
	g.conns.Update(c.id, ConnectionUpdate{
		RoomChannel:  ptr(""),
		AccessToken:  ptr(tokens.AccessToken),
		RefreshToken: ptr(tokens.RefreshToken),
		UserType:     ptr(models.UserType("")),
		CoursesSent:  ptr(false),
	})

	c.emit(models.EventMessage{
		Type: models.FrameChangeToken,
		User: conn.UserType.Ptr(),
		Data: models.Envelope{
			StatusCode: 200,
			I18n:       "tokens.added",
			Reason:     "OK",
			Values:     models.RawValues(map[string]any{"user_type": nil}),
		},
	})
}

// handleMessage proxies a generic event to the backend and acknowledges with
// the backend envelope. Successful responses run the forwarding rules first,
// so the ack carries any user type the rules just stored.
func (g *Gateway) handleMessage(c *Client, event models.ClientEvent) {
	if g.Draining() {
		c.emit(models.EventMessage{Type: event.Type, Data: models.ServiceUnavailable()})
		return
	}

	conn, _ := g.conns.Get(c.id)
	g.logger.Info("message received", "connID", c.id, "application", conn.Application, "event", event.Type)

	response := g.proxy.ProxyEvent(g.ctx, event, conn.AccessToken)

	if response.StatusCode == 200 {
		g.applyForwardingRules(c, event.Type, response)
	}

	conn, _ = g.conns.Get(c.id)
	c.emit(models.EventMessage{
		Type: event.Type,
		User: conn.UserType.Ptr(),
		Data: response,
	})
}

// handleDisconnect runs on transport close: detach from room state and drop
// the session. Cleanup failures are logged, never propagated.
func (g *Gateway) handleDisconnect(c *Client) {
	defer func() {
		if r := recover(); r != nil {
			g.logger.Error("disconnect cleanup failed", "connID", c.id, "panic", r)
		}
	}()

	g.detachFromRoom(c.id)
	g.conns.Remove(c.id)

	g.mu.Lock()
	delete(g.clients, c.id)
	g.mu.Unlock()

	g.logger.Info("connection closed", "connID", c.id)
}
