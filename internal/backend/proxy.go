package backend

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"socket-gateway/internal/config"
	"socket-gateway/internal/models"
)

const (
	configurationPath = "/app/configuration"

	// Poll cadence for the route table: short retry until the first success,
	// long refresh afterwards.
	retryInterval   = 2 * time.Second
	refreshInterval = 180 * time.Second
)

// Proxy issues authenticated HTTP calls to the backend API. Every call
// resolves to an envelope; no failure escapes past this boundary.
type Proxy struct {
	logger *slog.Logger
	client *http.Client
	table  *RouteTable

	baseURL       string
	backendSecret string
	socketPassKey string

	retryInterval   time.Duration
	refreshInterval time.Duration
}

func NewProxy(logger *slog.Logger, cfg *config.AppConfig) *Proxy {
	return &Proxy{
		logger:          logger,
		client:          &http.Client{},
		table:           NewRouteTable(),
		baseURL:         strings.TrimRight(cfg.BackendURL, "/"),
		backendSecret:   cfg.BackendSecret,
		socketPassKey:   cfg.SocketPassKey,
		retryInterval:   retryInterval,
		refreshInterval: refreshInterval,
	}
}

// Routes exposes the current route table.
func (p *Proxy) Routes() *RouteTable {
	return p.table
}

// Run polls the backend configuration endpoint for the lifetime of the
// process: every failure reschedules after the short retry interval, every
// success after the long refresh interval.
func (p *Proxy) Run(ctx context.Context) {
	retry := backoff.NewConstantBackOff(p.retryInterval)

	for {
		var next time.Duration
		if p.LoadConfiguration(ctx) {
			retry.Reset()
			next = p.refreshInterval
		} else {
			next = retry.NextBackOff()
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(next):
		}
	}
}

// LoadConfiguration fetches the route table once. The configuration endpoint
// takes no auth header.
func (p *Proxy) LoadConfiguration(ctx context.Context) bool {
	response := p.call(ctx, http.MethodGet, configurationPath, "", nil)

	p.logger.Debug("load events configuration", "statusCode", response.StatusCode)

	if response.StatusCode != http.StatusOK {
		return false
	}

	var configuration Configuration
	if err := json.Unmarshal(response.Values, &configuration); err != nil {
		p.logger.Error("invalid configuration payload", "error", err)
		return false
	}

	p.table.Replace(configuration.Routes)
	return true
}

// ProxyEvent resolves a route for the event type and forwards the event
// payload to the backend, carrying the user's bearer token when present.
// An unresolvable event yields a local 404 envelope without a network call.
func (p *Proxy) ProxyEvent(ctx context.Context, event models.ClientEvent, token string) models.Envelope {
	route, ok := p.table.Resolve(event.Type, event.HasBody())
	if !ok {
		return models.UnknownRoute()
	}

	auth := ""
	if token != "" {
		auth = "Bearer " + token
	}

	var body []byte
	if route.Method != http.MethodGet {
		body = event.Data
	}

	return p.call(ctx, route.Method, route.Path, auth, body)
}

// FetchZoneCourses asks the backend for the current course list of a zone.
// This is a service-to-service call signed with the socket pass key, not a
// per-user bearer token.
func (p *Proxy) FetchZoneCourses(ctx context.Context, eventType, zone string) models.Envelope {
	route, ok := p.table.Resolve(eventType, true)
	if !ok {
		return models.UnknownRoute()
	}

	var body []byte
	if route.Method != http.MethodGet {
		body, _ = json.Marshal(map[string]string{"channel": zone})
	}

	return p.call(ctx, route.Method, route.Path, "Token "+p.signature(), body)
}

// signature is the hex HMAC-SHA256 of the socket pass key under the backend
// shared secret.
func (p *Proxy) signature() string {
	mac := hmac.New(sha256.New, []byte(p.backendSecret))
	mac.Write([]byte(p.socketPassKey))
	return hex.EncodeToString(mac.Sum(nil))
}

// call is the single network primitive. A 2xx response's JSON body is the
// envelope verbatim; everything else is normalized into a synthesized
// envelope with a best-effort status and reason.
func (p *Proxy) call(ctx context.Context, method, path, auth string, body []byte) models.Envelope {
	response := models.Envelope{
		StatusCode: http.StatusOK,
		I18n:       "unknow-response",
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	request, err := http.NewRequestWithContext(ctx, method, p.baseURL+path, reader)
	if err != nil {
		p.logger.Error("http request build failed", "error", err)
		response.StatusCode = 422
		response.Reason = err.Error()
		return response
	}

	if auth != "" {
		request.Header.Set("Authorization", auth)
	}
	if body != nil {
		request.Header.Set("Content-Type", "application/json")
	}

	p.logger.Debug("http request", "method", method, "path", path)

	resp, err := p.client.Do(request)
	if err != nil {
		p.logger.Error("http transport failure", "error", err)
		response.StatusCode = 422
		response.Reason = err.Error()
		return response
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		p.logger.Error("http body read failed", "error", err)
		response.StatusCode = 422
		response.Reason = err.Error()
		return response
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		response.StatusCode = resp.StatusCode
		response.Reason = string(payload)
		return response
	}

	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &response); err != nil {
			p.logger.Error("http response decode failed", "error", err)
			response = models.Envelope{StatusCode: 422, I18n: "unknow-response", Reason: err.Error()}
		}
	}

	return response
}
