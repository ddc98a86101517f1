package gateway

import (
	"testing"
	"time"

	"socket-gateway/internal/models"
)

func TestLoginForwarding(t *testing.T) {
	g := newTestGateway(t, &fakeProxy{courseResponse: models.Envelope{StatusCode: 200}})
	c := newTestClient(g, "d1")
	identify(g, c, models.UserDriver)
	g.handleJoinRoom(c, "zone-1")
	waitFrame(t, c)
	waitFrame(t, c)

	response := models.Envelope{
		StatusCode: 200,
		Values: models.RawValues(map[string]string{
			"access_token":  "at",
			"refresh_token": "rt",
			"user_type":     "UserDriver",
		}),
	}
	g.applyForwardingRules(c, "driver-login", response)

	conn, _ := g.conns.Get("d1")
	if conn.AccessToken != "at" || conn.RefreshToken != "rt" {
		t.Error("login tokens not stored")
	}
	if conn.UserType != models.UserDriver {
		t.Error("login user type not stored")
	}
	if conn.RoomChannel != "" || len(g.rooms.Members("zone-1")) != 0 {
		t.Error("login must detach from any room")
	}
	if conn.CoursesSent {
		t.Error("login must reset the course push flag")
	}
}

func TestUserMeForwarding(t *testing.T) {
	t.Run("StoresUserType", func(t *testing.T) {
		g := newTestGateway(t, &fakeProxy{})
		c := newTestClient(g, "c1")

		response := models.Envelope{StatusCode: 200, Values: models.RawValues(map[string]string{"user_type": "UserClient"})}
		g.applyForwardingRules(c, "client-me", response)

		conn, _ := g.conns.Get("c1")
		if conn.UserType != models.UserClient {
			t.Errorf("user type not stored: %q", conn.UserType)
		}
	})

	t.Run("AbsentUserTypeIgnored", func(t *testing.T) {
		g := newTestGateway(t, &fakeProxy{})
		c := newTestClient(g, "c1")

		g.applyForwardingRules(c, "client-me", models.Envelope{StatusCode: 200})

		conn, _ := g.conns.Get("c1")
		if conn.UserType.Valid() {
			t.Error("missing user_type must leave the session untouched")
		}
	})
}

func TestCoordinateSaveForwarding(t *testing.T) {
	t.Run("ForwardsToOwnPrivateRoom", func(t *testing.T) {
		g := newTestGateway(t, &fakeProxy{courseResponse: models.Envelope{StatusCode: 200}})
		driver := newTestClient(g, "d1")
		client := newTestClient(g, "c1")
		identify(g, driver, models.UserDriver)
		identify(g, client, models.UserClient)
		g.handleJoinRoom(driver, "64f0")
		waitFrame(t, driver)
		waitFrame(t, driver) // drivers get the course push even in a private room tenure
		g.handleJoinRoom(client, "64f0")
		waitFrame(t, client)

		response := models.Envelope{StatusCode: 200, Values: models.RawValues(map[string]float64{"lat": 4.05})}
		g.applyForwardingRules(driver, "coordinate-save", response)

		msg := waitFrame(t, client)
		if msg.Type != "private-coordinate-save" {
			t.Errorf("unexpected forward type: %q", msg.Type)
		}
		if msg.Data.StatusCode != 200 {
			t.Errorf("unexpected forwarded envelope: %+v", msg.Data)
		}
	})

	t.Run("NeverForwardsFromZoneRoom", func(t *testing.T) {
		g := newTestGateway(t, &fakeProxy{courseResponse: models.Envelope{StatusCode: 500}})
		driver := newTestClient(g, "d1")
		identify(g, driver, models.UserDriver)
		g.handleJoinRoom(driver, "zone-1")
		waitFrame(t, driver)

		g.applyForwardingRules(driver, "coordinate-save", models.Envelope{StatusCode: 200})
		expectNoFrame(t, driver)
	})
}

func TestResponseRoomForwarding(t *testing.T) {
	t.Run("TargetsRoomFromResponsePayload", func(t *testing.T) {
		g := newTestGateway(t, &fakeProxy{courseResponse: models.Envelope{StatusCode: 200}})
		driver := newTestClient(g, "d1")
		peer := newTestClient(g, "c1")
		identify(g, driver, models.UserDriver)
		identify(g, peer, models.UserClient)
		g.handleJoinRoom(driver, "zone-1")
		waitFrame(t, driver)
		waitFrame(t, driver)
		g.handleJoinRoom(peer, "64f0")
		waitFrame(t, peer)

		// The target room comes from the response payload, not from the
		// sender's own (different) room.
		response := models.Envelope{StatusCode: 200, Values: models.RawValues(map[string]string{"id": "64f0"})}
		g.applyForwardingRules(driver, "course-driver-start", response)

		msg := waitFrame(t, peer)
		if msg.Type != "private-course-driver-start" {
			t.Errorf("unexpected forward type: %q", msg.Type)
		}
		expectNoFrame(t, driver)
	})

	t.Run("HyphenatedIdNotForwarded", func(t *testing.T) {
		g := newTestGateway(t, &fakeProxy{})
		driver := newTestClient(g, "d1")
		peer := newTestClient(g, "c1")
		identify(g, peer, models.UserClient)
		g.handleJoinRoom(peer, "64f0")
		waitFrame(t, peer)

		response := models.Envelope{StatusCode: 200, Values: models.RawValues(map[string]string{"id": "zone-2"})}
		g.applyForwardingRules(driver, "course-driver-start", response)
		expectNoFrame(t, peer)
	})
}

func TestZoneCourseBroadcast(t *testing.T) {
	t.Run("BroadcastsFreshCourses", func(t *testing.T) {
		proxy := &fakeProxy{courseResponse: models.Envelope{StatusCode: 200, I18n: "courses.list"}}
		g := newTestGateway(t, proxy)
		d1 := newTestClient(g, "d1")
		d2 := newTestClient(g, "d2")
		identify(g, d1, models.UserDriver)
		identify(g, d2, models.UserDriver)
		g.handleJoinRoom(d1, "zone-1")
		waitFrame(t, d1)
		waitFrame(t, d1)
		g.handleJoinRoom(d2, "zone-1")
		waitFrame(t, d2)
		waitFrame(t, d2)

		response := models.Envelope{StatusCode: 200, Values: models.RawValues(map[string]string{"zone_id": "zone-1"})}
		g.applyForwardingRules(d1, "course-normal-save", response)

		for _, c := range []*Client{d1, d2} {
			msg := waitFrame(t, c)
			if msg.Type != CourseAlertsEvent || msg.Data.I18n != "courses.list" {
				t.Errorf("unexpected broadcast: %+v", msg)
			}
		}
	})

	t.Run("BroadcastsEvenWhenFetchFails", func(t *testing.T) {
		proxy := &fakeProxy{courseResponse: models.Envelope{StatusCode: 200}}
		g := newTestGateway(t, proxy)
		d1 := newTestClient(g, "d1")
		identify(g, d1, models.UserDriver)
		g.handleJoinRoom(d1, "zone-1")
		waitFrame(t, d1)
		waitFrame(t, d1)

		proxy.mu.Lock()
		proxy.courseResponse = models.Envelope{StatusCode: 503, Reason: "backend down"}
		proxy.mu.Unlock()

		response := models.Envelope{StatusCode: 200, Values: models.RawValues(map[string]string{"zone_id": "zone-1"})}
		g.applyForwardingRules(d1, "course-computed-save", response)

		msg := waitFrame(t, d1)
		if msg.Type != CourseAlertsEvent || msg.Data.StatusCode != 503 {
			t.Errorf("failing fetch must still be broadcast: %+v", msg)
		}
	})
}

func TestDriverAcceptForwardsAndBroadcasts(t *testing.T) {
	proxy := &fakeProxy{courseResponse: models.Envelope{StatusCode: 200, I18n: "courses.list"}}
	g := newTestGateway(t, proxy)
	driver := newTestClient(g, "d1")
	client := newTestClient(g, "c1")
	identify(g, driver, models.UserDriver)
	identify(g, client, models.UserClient)
	g.handleJoinRoom(driver, "zone-1")
	waitFrame(t, driver)
	waitFrame(t, driver)
	g.handleJoinRoom(client, "64f0")
	waitFrame(t, client)

	response := models.Envelope{
		StatusCode: 200,
		Values:     models.RawValues(map[string]string{"id": "64f0", "zone_id": "zone-1"}),
	}
	g.applyForwardingRules(driver, "course-computed-driver-accept", response)

	private := waitFrame(t, client)
	if private.Type != "private-course-computed-driver-accept" {
		t.Errorf("unexpected private forward: %q", private.Type)
	}

	broadcast := waitFrame(t, driver)
	if broadcast.Type != CourseAlertsEvent {
		t.Errorf("unexpected zone broadcast: %q", broadcast.Type)
	}
}

// course-client-cancel appears twice in the historical rule list; only the
// private-forward branch was reachable and that is the behavior kept.
func TestClientCancelForwardsWithoutBroadcast(t *testing.T) {
	proxy := &fakeProxy{courseResponse: models.Envelope{StatusCode: 200}}
	g := newTestGateway(t, proxy)
	driver := newTestClient(g, "d1")
	peer := newTestClient(g, "c1")
	identify(g, peer, models.UserClient)
	g.handleJoinRoom(peer, "64f0")
	waitFrame(t, peer)

	response := models.Envelope{
		StatusCode: 200,
		Values:     models.RawValues(map[string]string{"id": "64f0", "zone_id": "zone-1"}),
	}
	g.applyForwardingRules(driver, "course-client-cancel", response)

	msg := waitFrame(t, peer)
	if msg.Type != "private-course-client-cancel" {
		t.Errorf("unexpected forward type: %q", msg.Type)
	}

	time.Sleep(50 * time.Millisecond)
	if zones := proxy.zones(); len(zones) != 0 {
		t.Errorf("cancel must not trigger a zone course fetch, got %v", zones)
	}
}
