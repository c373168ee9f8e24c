package main

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"signup/internal/platform/config"
	"signup/internal/registration/handler"
	"signup/pkg/testutil"
)

type capturedSink struct {
	mu     sync.Mutex
	bodies []map[string]any
}

func (c *capturedSink) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var body map[string]any
	_ = json.NewDecoder(r.Body).Decode(&body)
	c.mu.Lock()
	c.bodies = append(c.bodies, body)
	c.mu.Unlock()
	w.WriteHeader(http.StatusOK)
}

func (c *capturedSink) received() []map[string]any {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]map[string]any(nil), c.bodies...)
}

func newTestApp(t *testing.T, mutate func(*config.Config)) *app {
	t.Helper()
	cfg := config.Defaults()
	cfg.Admin.Token = "admin"
	if mutate != nil {
		mutate(&cfg)
	}
	require.NoError(t, cfg.Validate())

	a, err := newApp(context.Background(), cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	t.Cleanup(a.close)
	return a
}

func TestApp_InMemoryRegistrationMirrorsToEndpoint(t *testing.T) {
	sink := &capturedSink{}
	endpoint := httptest.NewServer(sink)
	defer endpoint.Close()

	a := newTestApp(t, func(cfg *config.Config) {
		cfg.Mirror.Endpoint = endpoint.URL
		cfg.Mirror.Source = "webinar.example.com"
	})
	require.NotNil(t, a.dispatcher)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.dispatcher.Run(ctx) }()

	router := a.server.Handler
	rr := testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodPost, "/sessions", nil))
	testutil.AssertStatus(t, rr, http.StatusCreated)
	sess := testutil.UnmarshalResponse[handler.SessionResponse](t, rr).Session
	require.NotNil(t, sess)

	rr = testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodPost, "/sessions/"+string(sess.ID)+"/registration", map[string]any{
		"name":       "Sara",
		"email":      "sara@example.com",
		"phone":      "09123456789",
		"role":       "faculty",
		"university": "Tehran",
	}))
	testutil.AssertStatusOK(t, rr)

	require.Eventually(t, func() bool { return len(sink.received()) == 1 }, 2*time.Second, 10*time.Millisecond)
	got := sink.received()[0]
	assert.Equal(t, "primary", got["formType"])
	assert.Equal(t, "webinar.example.com", got["source"])
	assert.Equal(t, "sara@example.com", got["email"])

	cancel()
	require.NoError(t, <-done)
}

func TestApp_MirrorDisabledByDefault(t *testing.T) {
	a := newTestApp(t, nil)
	assert.Nil(t, a.dispatcher)
}

func TestRouter_OperationalEndpoints(t *testing.T) {
	a := newTestApp(t, nil)
	router := a.server.Handler

	rr := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/healthz"))
	testutil.AssertStatusOK(t, rr)
	assert.NotEmpty(t, rr.Header().Get("X-Request-ID"))

	rr = testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/metrics"))
	testutil.AssertStatusOK(t, rr)
	assert.Contains(t, rr.Body.String(), "signup_http_requests_total")
}

func TestRouter_HealthReportsFailingCheck(t *testing.T) {
	a := newTestApp(t, nil)
	a.checks["database"] = func(context.Context) error { return assert.AnError }

	rr := testutil.DoRequest(a.server.Handler, testutil.NewRequest(t, http.MethodGet, "/healthz"))
	testutil.AssertStatus(t, rr, http.StatusServiceUnavailable)
}

func TestRouter_CORSPreflight(t *testing.T) {
	a := newTestApp(t, nil)

	req := testutil.NewRequest(t, http.MethodOptions, "/sessions")
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rr := testutil.DoRequest(a.server.Handler, req)

	assert.Equal(t, "http://localhost:5173", rr.Header().Get("Access-Control-Allow-Origin"))
}

func TestRouter_AdminRequiresToken(t *testing.T) {
	a := newTestApp(t, nil)

	rr := testutil.DoRequest(a.server.Handler, testutil.NewRequest(t, http.MethodGet, "/admin/registrations/"+"00000000-0000-0000-0000-000000000000"))
	testutil.AssertStatus(t, rr, http.StatusUnauthorized)
}
