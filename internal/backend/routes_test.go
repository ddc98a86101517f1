package backend

import "testing"

func TestRouteTableResolve(t *testing.T) {
	table := NewRouteTable()
	table.Replace([]Route{
		{Event: "client-login", Path: "/auth/login", Method: "POST"},
		{Event: "client-me", Path: "/users/me", Method: "GET"},
		{Event: "course-normal-save", Path: "/courses", Method: "POST"},
		{Event: "course-normal-save", Path: "/courses", Method: "GET"},
	})

	t.Run("MatchWithBody", func(t *testing.T) {
		route, ok := table.Resolve("client-login", true)
		if !ok {
			t.Fatal("expected a route")
		}
		if route.Path != "/auth/login" || route.Method != "POST" {
			t.Errorf("unexpected route: %+v", route)
		}
	})

	t.Run("NoBodyOnlyMatchesGet", func(t *testing.T) {
		if _, ok := table.Resolve("client-login", false); ok {
			t.Error("body-less resolve should not match a POST route")
		}
		route, ok := table.Resolve("client-me", false)
		if !ok || route.Method != "GET" {
			t.Errorf("expected the GET route, got %+v ok=%v", route, ok)
		}
	})

	t.Run("FirstMatchWins", func(t *testing.T) {
		route, ok := table.Resolve("course-normal-save", true)
		if !ok || route.Method != "POST" {
			t.Errorf("expected the first declared route, got %+v ok=%v", route, ok)
		}
	})

	t.Run("UnknownEvent", func(t *testing.T) {
		if _, ok := table.Resolve("no-such-event", true); ok {
			t.Error("unknown event should not resolve")
		}
	})
}

func TestRouteTableReplace(t *testing.T) {
	table := NewRouteTable()

	if table.Loaded() {
		t.Error("fresh table should not be loaded")
	}
	if _, ok := table.Resolve("client-me", false); ok {
		t.Error("empty table should resolve nothing")
	}

	table.Replace([]Route{{Event: "client-me", Path: "/users/me", Method: "GET"}})
	if !table.Loaded() {
		t.Error("table should be loaded after replace")
	}

	// A replace swaps the whole table; stale routes disappear.
	table.Replace([]Route{{Event: "driver-me", Path: "/drivers/me", Method: "GET"}})
	if _, ok := table.Resolve("client-me", false); ok {
		t.Error("stale route survived replace")
	}
	if _, ok := table.Resolve("driver-me", false); !ok {
		t.Error("new route missing after replace")
	}
}
