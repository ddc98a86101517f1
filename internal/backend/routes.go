package backend

import (
	"net/http"
	"sync"
)

// Route maps one logical socket event to a concrete backend HTTP target.
// Regexp is provided by the backend but not evaluated here.
type Route struct {
	Event  string `json:"event"`
	Path   string `json:"path"`
	Method string `json:"method"`
	Regexp string `json:"regexp"`
}

// Configuration is the payload of the backend's /app/configuration endpoint.
type Configuration struct {
	Name   string  `json:"name"`
	Tag    string  `json:"tag"`
	Routes []Route `json:"routes"`
}

// RouteTable holds the current event-to-route mapping. The whole table is
// replaced atomically on every successful configuration poll; readers keep
// using the stale table until then.
type RouteTable struct {
	mu     sync.RWMutex
	routes []Route
	loaded bool
}

func NewRouteTable() *RouteTable {
	return &RouteTable{}
}

// Replace swaps in a new route list.
func (t *RouteTable) Replace(routes []Route) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.routes = routes
	t.loaded = true
}

// Loaded reports whether a configuration poll has ever succeeded.
func (t *RouteTable) Loaded() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.loaded
}

// Resolve finds the first route whose event matches. A body-less call only
// matches GET routes, so the same event name can map to a read and a write
// target depending on whether the caller sent a payload.
func (t *RouteTable) Resolve(event string, withBody bool) (Route, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	for _, route := range t.routes {
		if route.Event != event {
			continue
		}
		if withBody || route.Method == http.MethodGet {
			return route, true
		}
	}
	return Route{}, false
}
