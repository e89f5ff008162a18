package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bark-bank/bark/internal/config"
	"github.com/bark-bank/bark/internal/logging"
)

type client struct {
	t     *testing.T
	app   *fiber.App
	token string
}

func (c client) call(method, path, body string, headers ...string) (int, map[string]any) {
	c.t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	if c.token != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+c.token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	resp, err := c.app.Test(req, 5000)
	require.NoError(c.t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(c.t, err)
	out := map[string]any{}
	if len(raw) > 0 {
		require.NoError(c.t, json.Unmarshal(raw, &out), string(raw))
	}
	return resp.StatusCode, out
}

func newTestServer(t *testing.T, lockBackend string) *Server {
	t.Helper()
	mr := miniredis.RunT(t)
	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { cache.Close() })

	cfg := config.Config{
		AppName:           "bark-test",
		AppEnv:            "test",
		Port:              "0",
		IdempotencyTTL:    time.Minute,
		LockTimeout:       time.Second,
		LockBackend:       lockBackend,
		HistoryPageSize:   2,
		JWTSecret:         "test-secret",
		AccessTokenTTL:    time.Minute,
		LoginRateLimit:    10,
		ReconcileSchedule: "@every 1h",
		AdminUsername:     "root",
		AdminPassword:     "rootpassword",
	}
	srv, err := New(cfg, nil, cache, logging.Discard())
	require.NoError(t, err)
	require.NoError(t, srv.Bootstrap(context.Background()))
	return srv
}

func login(t *testing.T, app *fiber.App, username, password string, register bool) client {
	t.Helper()
	anon := client{t: t, app: app}
	creds := `{"username":"` + username + `","password":"` + password + `"}`
	if register {
		status, _ := anon.call(fiber.MethodPost, "/api/v1/users", creds)
		require.Equal(t, http.StatusCreated, status)
	}
	status, tok := anon.call(fiber.MethodPost, "/api/v1/auth/token", creds)
	require.Equal(t, http.StatusOK, status)
	return client{t: t, app: app, token: tok["access_token"].(string)}
}

func TestEndToEndTransfer(t *testing.T) {
	for _, backend := range []string{config.LockBackendLocal, config.LockBackendRedis} {
		t.Run(backend, func(t *testing.T) {
			srv := newTestServer(t, backend)
			app := srv.App()

			alice := login(t, app, "alice", "alicepassword", true)
			bob := login(t, app, "bob", "bobpassword1", true)

			status, a := alice.call(fiber.MethodPost, "/api/v1/accounts", `{"initial_deposit":"100"}`)
			require.Equal(t, http.StatusCreated, status)
			status, b := bob.call(fiber.MethodPost, "/api/v1/accounts", `{"initial_deposit":"1"}`)
			require.Equal(t, http.StatusCreated, status)
			aID, bID := a["id"].(string), b["id"].(string)

			body := `{"from_account_id":"` + aID + `","to_account_id":"` + bID + `","amount":"30"}`
			status, _ = alice.call(fiber.MethodPost, "/api/v1/transfers", body)
			assert.Equal(t, http.StatusBadRequest, status, "Idempotency-Key is required")

			status, tr := alice.call(fiber.MethodPost, "/api/v1/transfers", body, "Idempotency-Key", "k1")
			require.Equal(t, http.StatusCreated, status)
			assert.Equal(t, "30.0000", tr["amount"])

			// A replay must not move money twice.
			status, replay := alice.call(fiber.MethodPost, "/api/v1/transfers", body, "Idempotency-Key", "k1")
			require.Equal(t, http.StatusCreated, status)
			assert.Equal(t, tr["id"], replay["id"])

			status, me := alice.call(fiber.MethodGet, "/api/v1/me", "")
			require.Equal(t, http.StatusOK, status)
			assert.Equal(t, "alice", me["username"])

			status, bal := alice.call(fiber.MethodGet, "/api/v1/accounts/"+aID+"/balance", "")
			require.Equal(t, http.StatusOK, status)
			assert.Equal(t, "70.0000", bal["balance"])

			status, _ = bob.call(fiber.MethodPost, "/api/v1/transfers", body, "Idempotency-Key", "k2")
			assert.Equal(t, http.StatusForbidden, status)

			status, e := alice.call(fiber.MethodPost, "/api/v1/transfers",
				`{"from_account_id":"`+aID+`","to_account_id":"`+bID+`","amount":"80"}`, "Idempotency-Key", "k3")
			assert.Equal(t, http.StatusBadRequest, status)
			assert.Equal(t, "insufficient_funds", e["error"].(map[string]any)["kind"])

			status, hist := bob.call(fiber.MethodGet, "/api/v1/accounts/"+bID+"/transfers", "")
			require.Equal(t, http.StatusOK, status)
			assert.Len(t, hist["transfers"], 1)

			report, err := srv.components.Reconciler.Run(context.Background())
			require.NoError(t, err)
			assert.Empty(t, report.Mismatches)

			root := login(t, app, "root", "rootpassword", false)
			status, holds := root.call(fiber.MethodGet, "/api/v1/admin/quarantine", "")
			require.Equal(t, http.StatusOK, status)
			assert.Empty(t, holds["holds"])
			status, _ = alice.call(fiber.MethodGet, "/api/v1/admin/quarantine", "")
			assert.Equal(t, http.StatusForbidden, status)

			status, health := client{t: t, app: app}.call(fiber.MethodGet, "/healthz", "")
			require.Equal(t, http.StatusOK, status)
			assert.EqualValues(t, 0, health["quarantined"])
		})
	}
}

func TestNewRejectsBadSchedule(t *testing.T) {
	cfg := config.Config{AppEnv: "dev", LockBackend: config.LockBackendLocal, HistoryPageSize: 10, JWTSecret: "x", ReconcileSchedule: "whenever"}
	_, err := New(cfg, nil, nil, logging.Discard())
	assert.Error(t, err)
}

func TestNewRequiresBackendsOutsideDev(t *testing.T) {
	cfg := config.Config{AppEnv: "production", LockBackend: config.LockBackendLocal, HistoryPageSize: 10, JWTSecret: "x"}
	_, err := New(cfg, nil, nil, logging.Discard())
	assert.Error(t, err)
}
