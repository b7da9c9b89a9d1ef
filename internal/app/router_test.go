package app

import (
	"bytes"
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"routedesk-service/internal/metrics"
	"routedesk-service/internal/pkg/clock"
	"routedesk-service/internal/pkg/jwt"
	"routedesk-service/internal/repository/memory"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type envelope struct {
	Success  bool            `json:"success"`
	Message  string          `json:"message"`
	Data     json.RawMessage `json:"data"`
	Warnings []string        `json:"warnings"`
}

type testApp struct {
	t   *testing.T
	app *App
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	gin.SetMode(gin.TestMode)

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	loc, err := time.LoadLocation("America/Sao_Paulo")
	require.NoError(t, err)

	a := Build(Deps{
		Store:           memory.NewStore(),
		Redis:           client,
		JWT:             jwt.NewManager(priv, &priv.PublicKey, jwt.Config{Issuer: "routedesk", Audience: "routedesk-staff", TTL: time.Hour}),
		Clock:           clock.System{Location: loc},
		Location:        loc,
		Metrics:         metrics.New(),
		Logger:          zap.NewNop(),
		CycleSampleSize: 3,
		CallDailyGoal:   400,
	})
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go a.Hub.Run(ctx)

	require.NoError(t, a.Auth.EnsureManagerExists(ctx, "boss", "s3cret-pass", "The Boss", time.Now()))
	return &testApp{t: t, app: a}
}

func (ta *testApp) do(method, path, token string, body interface{}) (int, envelope) {
	ta.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(ta.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	ta.app.Engine.ServeHTTP(w, req)

	var env envelope
	if w.Header().Get("Content-Type") == "application/json; charset=utf-8" {
		require.NoError(ta.t, json.Unmarshal(w.Body.Bytes(), &env))
	}
	return w.Code, env
}

func (ta *testApp) login(username, password string) string {
	ta.t.Helper()
	code, env := ta.do(http.MethodPost, "/api/v1/auth/login", "", gin.H{"username": username, "password": password})
	require.Equal(ta.t, http.StatusOK, code, env.Message)
	var data struct {
		AccessToken string `json:"access_token"`
	}
	require.NoError(ta.t, json.Unmarshal(env.Data, &data))
	return data.AccessToken
}

func decode[T any](t *testing.T, raw json.RawMessage) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(raw, &v))
	return v
}

func TestHealthAndMetrics(t *testing.T) {
	ta := newTestApp(t)

	code, _ := ta.do(http.MethodGet, "/api/v1/health", "", nil)
	assert.Equal(t, http.StatusOK, code)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	ta.app.Engine.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "routedesk_http_request_duration_seconds")
}

func TestAuthGuards(t *testing.T) {
	ta := newTestApp(t)

	code, _ := ta.do(http.MethodGet, "/api/v1/auth/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, code)

	code, _ = ta.do(http.MethodPost, "/api/v1/auth/login", "", gin.H{"username": "boss", "password": "wrong-pass"})
	assert.Equal(t, http.StatusUnauthorized, code)

	boss := ta.login("boss", "s3cret-pass")
	code, env := ta.do(http.MethodPost, "/api/v1/users", boss, gin.H{"username": "dave", "password": "driver-pass", "role": "delivery_agent"})
	require.Equal(t, http.StatusCreated, code, env.Message)

	dave := ta.login("dave", "driver-pass")
	code, env = ta.do(http.MethodGet, "/api/v1/auth/me", dave, nil)
	require.Equal(t, http.StatusOK, code)
	me := decode[struct {
		Landing string `json:"landing"`
	}](t, env.Data)
	assert.Equal(t, "delivery_board", me.Landing)

	code, _ = ta.do(http.MethodGet, "/api/v1/reports/dashboard", dave, nil)
	assert.Equal(t, http.StatusForbidden, code)
	code, _ = ta.do(http.MethodPost, "/api/v1/users", dave, gin.H{"username": "x", "password": "whatever-1", "role": "manager"})
	assert.Equal(t, http.StatusForbidden, code)

	code, _ = ta.do(http.MethodPost, "/api/v1/auth/logout", dave, nil)
	require.Equal(t, http.StatusOK, code)
	code, _ = ta.do(http.MethodGet, "/api/v1/auth/me", dave, nil)
	assert.Equal(t, http.StatusUnauthorized, code)
}

func TestPlanAndDeliver(t *testing.T) {
	ta := newTestApp(t)
	boss := ta.login("boss", "s3cret-pass")

	code, env := ta.do(http.MethodPost, "/api/v1/users", boss, gin.H{"username": "dave", "password": "driver-pass", "role": "delivery_agent"})
	require.Equal(t, http.StatusCreated, code, env.Message)
	daveID := decode[struct {
		ID int64 `json:"id"`
	}](t, env.Data).ID

	code, env = ta.do(http.MethodPost, "/api/v1/customers", boss, gin.H{"name": "Maria", "neighborhood": "Centro", "phone": "(11) 9999-0000"})
	require.Equal(t, http.StatusCreated, code, env.Message)
	mariaID := decode[struct {
		ID    int64  `json:"id"`
		Phone string `json:"phone"`
	}](t, env.Data)
	assert.Equal(t, "1199990000", mariaID.Phone)

	code, env = ta.do(http.MethodPost, "/api/v1/customers", boss, gin.H{"name": "Maria"})
	assert.Equal(t, http.StatusConflict, code, env.Message)

	code, env = ta.do(http.MethodPost, "/api/v1/routes/bulk", boss, gin.H{"agent_id": daveID, "customer_ids": []int64{mariaID.ID}})
	require.Equal(t, http.StatusCreated, code, env.Message)
	assert.True(t, env.Success)

	dave := ta.login("dave", "driver-pass")
	code, env = ta.do(http.MethodGet, "/api/v1/visits/board", dave, nil)
	require.Equal(t, http.StatusOK, code, env.Message)
	board := decode[struct {
		Pending []struct {
			ID           int64  `json:"id"`
			CustomerName string `json:"customer_name"`
		} `json:"pending"`
	}](t, env.Data)
	require.Len(t, board.Pending, 1)
	visitID := board.Pending[0].ID

	outcomePath := fmt.Sprintf("/api/v1/visits/%d/outcome", visitID)
	code, env = ta.do(http.MethodPost, outcomePath, dave, gin.H{"sold": true, "amount": "120.50", "latitude": "abc", "longitude": "-46.6"})
	require.Equal(t, http.StatusOK, code, env.Message)
	assert.True(t, env.Success)
	assert.Len(t, env.Warnings, 1)

	code, _ = ta.do(http.MethodPost, outcomePath, dave, gin.H{"sold": false})
	assert.Equal(t, http.StatusConflict, code)

	code, env = ta.do(http.MethodGet, "/api/v1/reports/dashboard?start=bogus", boss, nil)
	require.Equal(t, http.StatusOK, code, env.Message)
	dash := decode[struct {
		Visits struct {
			Realized  int `json:"realized"`
			Finalized int `json:"finalized"`
		} `json:"visits"`
		Warnings []string `json:"warnings"`
	}](t, env.Data)
	assert.Equal(t, 1, dash.Visits.Realized)
	assert.Equal(t, 1, dash.Visits.Finalized)
	assert.Len(t, dash.Warnings, 1)

	code, env = ta.do(http.MethodGet, fmt.Sprintf("/api/v1/customers/%d", mariaID.ID), dave, nil)
	require.Equal(t, http.StatusOK, code, env.Message)
	maria := decode[struct {
		Status struct {
			DaysSinceLastPurchase *int `json:"days_since_last_purchase"`
		} `json:"status"`
	}](t, env.Data)
	require.NotNil(t, maria.Status.DaysSinceLastPurchase)
	assert.Equal(t, 0, *maria.Status.DaysSinceLastPurchase)
}
