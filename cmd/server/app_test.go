package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/phrazzld/learnplan-api/internal/api"
	"github.com/phrazzld/learnplan-api/internal/config"
	"github.com/phrazzld/learnplan-api/internal/platform/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			Port:            8080,
			LogLevel:        "debug",
			ShutdownTimeout: 5 * time.Second,
			ReadTimeout:     5 * time.Second,
			WriteTimeout:    5 * time.Second,
		},
		Database: config.DatabaseConfig{Driver: "memory", MaxOpenConns: 1},
		Auth: config.AuthConfig{
			JWTSecret:            "test-secret-that-is-long-enough-for-testing",
			TokenLifetimeMinutes: 60,
			BCryptCost:           4,
		},
		Notifications: config.NotificationsConfig{
			QueueSize:      16,
			WorkerCount:    2,
			WebhookTimeout: time.Second,
		},
		Discover: config.DiscoverConfig{DefaultPageSize: 10, MaxPageSize: 50},
	}
}

func newTestApp(t *testing.T) *application {
	t.Helper()
	cfg := testConfig()
	require.NoError(t, cfg.Validate())
	log, _ := logger.NewTestLogger(t)

	db, err := setupAppDatabase(context.Background(), cfg, log)
	require.NoError(t, err)
	app, err := newApplication(cfg, log, db)
	require.NoError(t, err)
	return app
}

type client struct {
	t      *testing.T
	server *httptest.Server
}

func (c client) call(method, path, token string, body, out interface{}) int {
	c.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(c.t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, c.server.URL+path, &buf)
	require.NoError(c.t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := c.server.Client().Do(req)
	require.NoError(c.t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(c.t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func (c client) register(name string) api.AuthResponse {
	c.t.Helper()
	var resp api.AuthResponse
	status := c.call(http.MethodPost, "/api/auth/register", "", api.RegisterRequest{
		Email:    name + "@example.com",
		Username: name,
		Password: "correct horse battery",
	}, &resp)
	require.Equal(c.t, http.StatusCreated, status)
	return resp
}

func TestApplication_EnrollmentNotifiesOwner(t *testing.T) {
	app := newTestApp(t)
	app.taskRunner.Start()
	t.Cleanup(func() { app.cleanup(context.Background()) })

	server := httptest.NewServer(app.setupRouter())
	t.Cleanup(server.Close)
	c := client{t: t, server: server}

	owner := c.register("owner")
	learner := c.register("learner")

	var plan api.PlanDetailResponse
	status := c.call(http.MethodPost, "/api/plans", owner.AccessToken, api.CreatePlanRequest{
		Title:      "Databases",
		Visibility: "PUBLIC",
		Topics:     []api.TopicRequest{{Title: "B-trees"}, {Title: "WAL"}},
	}, &plan)
	require.Equal(t, http.StatusCreated, status)

	var discovered api.DiscoverResponse
	require.Equal(t, http.StatusOK, c.call(http.MethodGet, "/api/discover/recent", "", nil, &discovered))
	require.Len(t, discovered.Plans, 1)
	assert.Equal(t, plan.ID, discovered.Plans[0].ID)

	var enrollment api.EnrollmentResponse
	status = c.call(http.MethodPost, "/api/plans/"+plan.ID.String()+"/enroll", learner.AccessToken, nil, &enrollment)
	require.Equal(t, http.StatusCreated, status)

	require.Eventually(t, func() bool {
		var inbox []api.NotificationResponse
		if c.call(http.MethodGet, "/api/notifications", owner.AccessToken, nil, &inbox) != http.StatusOK {
			return false
		}
		return len(inbox) == 1 && inbox[0].Type == "ENROLLMENT" && inbox[0].ActorID == learner.UserID
	}, 2*time.Second, 10*time.Millisecond)

	// the actor is never notified about their own enrollment
	var learnerInbox []api.NotificationResponse
	require.Equal(t, http.StatusOK, c.call(http.MethodGet, "/api/notifications", learner.AccessToken, nil, &learnerInbox))
	assert.Empty(t, learnerInbox)
}

func TestApplication_Health(t *testing.T) {
	app := newTestApp(t)
	rec := httptest.NewRecorder()
	app.setupRouter().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get("X-Trace-ID"))
}

func TestApplication_ServeStopsOnCancel(t *testing.T) {
	app := newTestApp(t)
	app.taskRunner.Start()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.serve(ctx, ln, app.setupRouter()) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + ln.Addr().String() + "/health")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestMemoryDatabase_RejectsMigrations(t *testing.T) {
	log, _ := logger.NewTestLogger(t)
	db, err := setupAppDatabase(context.Background(), testConfig(), log)
	require.NoError(t, err)

	err = db.migrate(context.Background(), "up")
	assert.ErrorContains(t, err, "postgres")
}

func TestNewApplication_RejectsShortSecret(t *testing.T) {
	cfg := testConfig()
	cfg.Auth.JWTSecret = "short"
	log, _ := logger.NewTestLogger(t)
	db, err := setupAppDatabase(context.Background(), cfg, log)
	require.NoError(t, err)

	_, err = newApplication(cfg, log, db)
	assert.Error(t, err)
}

func TestSetupNotifier_Webhook(t *testing.T) {
	cfg := testConfig()
	cfg.Notifications.WebhookURL = "http://127.0.0.1:9/hook"
	log, _ := logger.NewTestLogger(t)
	db, err := setupAppDatabase(context.Background(), cfg, log)
	require.NoError(t, err)

	notifier, err := setupNotifier(cfg.Notifications, db, log)
	require.NoError(t, err)
	assert.Len(t, notifier, 2)
}
