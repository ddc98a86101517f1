package gateway

import (
	"github.com/tidwall/gjson"

	"socket-gateway/internal/models"
)

// CourseAlertsEvent is the fixed event type of every zone course broadcast.
const CourseAlertsEvent = "course-alerts-in-zone"

// applyForwardingRules runs the per-event post-processing of a successful
// backend response: session updates, private-room forwards and public-zone
// course broadcasts.
//
// course-client-cancel historically appeared in both the forward and the
// broadcast groups; only the forward branch was ever reachable, and that
// behavior is kept (see DESIGN.md).
func (g *Gateway) applyForwardingRules(c *Client, eventType string, response models.Envelope) {
	g.logger.Debug("forwarding rules", "connID", c.id, "event", eventType)

	switch eventType {
	case "client-login", "driver-login":
		g.storeLogin(c.id, response.Values)

	case "client-me", "driver-me":
		g.storeUserType(c.id, response.Values)

	case "coordinate-save":
		// Position updates go to the peer in the connection's own ride room.
		g.forwardToPrivateRoom(c.id, eventType, response, false)

	case "course-computed-driver-accept":
		// The client is notified in the ride room and the zone sees the
		// updated course list.
		g.forwardToPrivateRoom(c.id, eventType, response, true)
		go g.broadcastZoneCourses(c.id, zoneID(response.Values))

	case "course-client-cancel", "course-driver-cancel", "course-driver-start", "course-driver-close":
		// Both parties of the ride must be notified.
		g.forwardToPrivateRoom(c.id, eventType, response, true)

	case "course-computed-save", "course-computed-client-accept-price",
		"course-normal-save", "course-normal-client-propose-price",
		"course-normal-driver-propose-price", "course-normal-client-accept-contract":
		go g.broadcastZoneCourses(c.id, zoneID(response.Values))
	}
}

// storeLogin captures the tokens and user type a login response carries. The
// session leaves any room it was in and becomes eligible for a fresh course
// push.
func (g *Gateway) storeLogin(id string, values []byte) {
	g.detachFromRoom(id)

	userType := models.UserType(gjson.GetBytes(values, "user_type").String())
	g.conns.Update(id, ConnectionUpdate{
		RoomChannel:  ptr(""),
		AccessToken:  ptr(gjson.GetBytes(values, "access_token").String()),
		RefreshToken: ptr(gjson.GetBytes(values, "refresh_token").String()),
		UserType:     &userType,
		CoursesSent:  ptr(false),
	})
}

// storeUserType captures the user type from a "me" response, when present.
func (g *Gateway) storeUserType(id string, values []byte) {
	userType := models.UserType(gjson.GetBytes(values, "user_type").String())
	if userType == "" {
		return
	}
	g.conns.Update(id, ConnectionUpdate{UserType: &userType})
}

// forwardToPrivateRoom re-emits a backend response into a private ride room.
// With useResponseRoom the target is the id embedded in the response payload,
// not the sender's own room; either way the target must be a non-hyphenated
// private channel, never a zone.
func (g *Gateway) forwardToPrivateRoom(id, eventType string, response models.Envelope, useResponseRoom bool) bool {
	conn, _ := g.conns.Get(id)

	msg := models.EventMessage{
		Type: "private-" + eventType,
		User: conn.UserType.Ptr(),
		Data: response,
	}

	if useResponseRoom {
		target := gjson.GetBytes(response.Values, "id").String()
		if target == "" || IsZoneRoom(target) {
			return false
		}
		g.BroadcastToRoom(target, msg)
		return true
	}

	if conn.RoomChannel == "" || IsZoneRoom(conn.RoomChannel) {
		return false
	}
	g.BroadcastToRoom(conn.RoomChannel, msg)
	return true
}

// broadcastZoneCourses re-fetches the zone's course list and pushes it to
// every member of the zone room. The envelope goes out even when the fetch
// fails, so zone members always receive a fresh status.
func (g *Gateway) broadcastZoneCourses(id, zone string) {
	if zone == "" {
		return
	}

	conn, _ := g.conns.Get(id)
	response := g.proxy.FetchZoneCourses(g.ctx, CourseAlertsEvent, zone)

	if response.StatusCode != 200 {
		g.logger.Warn("zone course fetch failed", "zone", zone, "statusCode", response.StatusCode)
	}

	g.BroadcastToRoom(zone, models.EventMessage{
		Type: CourseAlertsEvent,
		User: conn.UserType.Ptr(),
		Data: response,
	})
}

// sendFirstCourseList pushes the zone's current course list to a driver that
// just joined a zone and has not received it this room tenure. Unlike the
// zone broadcast, a failing fetch sends nothing and leaves the flag unset so
// a later join can retry.
func (g *Gateway) sendFirstCourseList(c *Client, userType models.UserType, zone string) {
	if userType != models.UserDriver {
		return
	}

	conn, ok := g.conns.Get(c.id)
	if !ok || conn.CoursesSent {
		return
	}

	response := g.proxy.FetchZoneCourses(g.ctx, CourseAlertsEvent, zone)
	if response.StatusCode != 200 {
		return
	}

	c.emit(models.EventMessage{
		Type: CourseAlertsEvent,
		User: conn.UserType.Ptr(),
		Data: response,
	})
	g.conns.Update(c.id, ConnectionUpdate{CoursesSent: ptr(true)})
}

func zoneID(values []byte) string {
	return gjson.GetBytes(values, "zone_id").String()
}
