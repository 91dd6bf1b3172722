package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/phrazzld/learnplan-api/internal/api/middleware"
	"github.com/phrazzld/learnplan-api/internal/api/shared"
	"github.com/phrazzld/learnplan-api/internal/config"
	"github.com/phrazzld/learnplan-api/internal/platform/logger"
	"github.com/phrazzld/learnplan-api/internal/platform/memory"
	"github.com/phrazzld/learnplan-api/internal/service"
	"github.com/phrazzld/learnplan-api/internal/service/auth"
	"github.com/phrazzld/learnplan-api/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type testServer struct {
	t       *testing.T
	handler http.Handler
}

// newTestServer wires the handlers the way cmd/server does, over the
// in-memory backend.
func newTestServer(t *testing.T) *testServer {
	t.Helper()
	log, _ := logger.NewTestLogger(t)
	db := memory.NewDB(bcrypt.MinCost, log)

	plans, err := service.NewPlanService(db, nil, service.DefaultPlanServiceConfig(), log)
	require.NoError(t, err)
	users, err := service.NewUserService(db, auth.NewBcryptVerifier(), log)
	require.NoError(t, err)
	jwtService, err := auth.NewJWTService(config.AuthConfig{
		JWTSecret:            "test-secret-that-is-long-enough-for-testing",
		TokenLifetimeMinutes: 60,
	})
	require.NoError(t, err)

	authHandler := NewAuthHandler(users, jwtService, log)
	planHandler := NewPlanHandler(plans, log)
	notificationHandler := NewNotificationHandler(users, log)
	authMiddleware := middleware.NewAuthMiddleware(jwtService)

	r := chi.NewRouter()
	r.Use(middleware.TraceMiddleware(log))
	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/register", authHandler.Register)
		r.Post("/auth/login", authHandler.Login)
		r.Get("/discover/popular", planHandler.Discover(store.DiscoverPopular))
		r.Get("/discover/recent", planHandler.Discover(store.DiscoverRecent))
		r.Get("/discover/search", planHandler.Discover(store.DiscoverSearch))

		r.Group(func(r chi.Router) {
			r.Use(authMiddleware.Authenticate)
			r.Get("/plans", planHandler.ListMyPlans)
			r.Post("/plans", planHandler.CreatePlan)
			r.Get("/plans/{id}", planHandler.GetPlan)
			r.Put("/plans/{id}", planHandler.UpdatePlan)
			r.Delete("/plans/{id}", planHandler.DeletePlan)
			r.Patch("/plans/{id}/visibility", planHandler.SetVisibility)
			r.Get("/plans/{id}/topics", planHandler.ListTopics)
			r.Post("/plans/{id}/topics", planHandler.AddTopic)
			r.Post("/plans/{id}/enroll", planHandler.Enroll)
			r.Get("/plans/{id}/enrollments", planHandler.ListParticipants)
			r.Get("/plans/{id}/progress", planHandler.PlanProgress)
			r.Get("/topics/{id}", planHandler.GetTopic)
			r.Put("/topics/{id}", planHandler.UpdateTopic)
			r.Patch("/topics/{id}/status", planHandler.SetTopicStatus)
			r.Delete("/topics/{id}", planHandler.DeleteTopic)
			r.Get("/enrollments", planHandler.ListMyEnrollments)
			r.Get("/enrollments/{id}", planHandler.GetEnrollment)
			r.Delete("/enrollments/{id}", planHandler.Unenroll)
			r.Put("/enrollments/{id}/topics/{topicId}", planHandler.MarkTopic)
			r.Get("/notifications", notificationHandler.List)
		})
	})
	return &testServer{t: t, handler: r}
}

func (s *testServer) do(method, path, token string, body interface{}) *httptest.ResponseRecorder {
	s.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if raw, ok := body.(string); ok {
			buf.WriteString(raw)
		} else {
			require.NoError(s.t, json.NewEncoder(&buf).Encode(body))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) register(name string) AuthResponse {
	s.t.Helper()
	rec := s.do(http.MethodPost, "/api/auth/register", "", RegisterRequest{
		Email:    name + "@example.com",
		Username: name,
		Password: "correct horse battery",
	})
	require.Equal(s.t, http.StatusCreated, rec.Code, rec.Body.String())
	var resp AuthResponse
	decode(s.t, rec, &resp)
	return resp
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.NewDecoder(rec.Body).Decode(v))
}

func errorBody(t *testing.T, rec *httptest.ResponseRecorder) shared.ErrorResponse {
	t.Helper()
	var body shared.ErrorResponse
	decode(t, rec, &body)
	return body
}

func TestAuthHandlers(t *testing.T) {
	t.Parallel()
	s := newTestServer(t)

	ada := s.register("ada")
	assert.NotEqual(t, uuid.Nil, ada.UserID)
	assert.NotEmpty(t, ada.AccessToken)
	assert.NotEmpty(t, ada.ExpiresAt)

	rec := s.do(http.MethodPost, "/api/auth/login", "", LoginRequest{Email: "ADA@example.com", Password: "correct horse battery"})
	require.Equal(t, http.StatusOK, rec.Code)
	var login AuthResponse
	decode(t, rec, &login)
	assert.Equal(t, ada.UserID, login.UserID)

	tests := []struct {
		name       string
		path       string
		body       interface{}
		wantStatus int
		wantError  string
	}{
		{
			name:       "wrong password",
			path:       "/api/auth/login",
			body:       LoginRequest{Email: "ada@example.com", Password: "wrong horse battery"},
			wantStatus: http.StatusUnauthorized,
			wantError:  "Invalid credentials",
		},
		{
			name:       "unknown email",
			path:       "/api/auth/login",
			body:       LoginRequest{Email: "nobody@example.com", Password: "correct horse battery"},
			wantStatus: http.StatusUnauthorized,
			wantError:  "Invalid credentials",
		},
		{
			name:       "duplicate email",
			path:       "/api/auth/register",
			body:       RegisterRequest{Email: "ada@example.com", Username: "ada2", Password: "correct horse battery"},
			wantStatus: http.StatusConflict,
			wantError:  "Email already exists",
		},
		{
			name:       "short password",
			path:       "/api/auth/register",
			body:       RegisterRequest{Email: "bob@example.com", Username: "bob", Password: "short"},
			wantStatus: http.StatusBadRequest,
			wantError:  "Invalid password: too short",
		},
		{
			name:       "missing email",
			path:       "/api/auth/register",
			body:       map[string]string{"username": "bob", "password": "correct horse battery"},
			wantStatus: http.StatusBadRequest,
			wantError:  "Invalid email: required field",
		},
		{
			name:       "malformed json",
			path:       "/api/auth/register",
			body:       `{"email":`,
			wantStatus: http.StatusBadRequest,
			wantError:  "Invalid request format",
		},
		{
			name:       "unknown field",
			path:       "/api/auth/login",
			body:       `{"email":"ada@example.com","password":"x","admin":true}`,
			wantStatus: http.StatusBadRequest,
			wantError:  "Invalid request format",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(http.MethodPost, tt.path, "", tt.body)
			assert.Equal(t, tt.wantStatus, rec.Code)
			body := errorBody(t, rec)
			assert.Equal(t, tt.wantError, body.Error)
			assert.NotEmpty(t, body.TraceID)
		})
	}
}

func TestPlanLifecycle(t *testing.T) {
	t.Parallel()
	s := newTestServer(t)
	owner := s.register("owner")
	learner := s.register("learner")
	stranger := s.register("stranger")

	rec := s.do(http.MethodPost, "/api/plans", owner.AccessToken, CreatePlanRequest{
		Title:      "Learn Go",
		Visibility: "PRIVATE",
		Tags:       []string{"Go", "backend"},
		Topics:     []TopicRequest{{Title: "Tour"}, {Title: "Effective Go", MaterialLink: "https://go.dev/doc/effective_go"}},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var plan PlanDetailResponse
	decode(t, rec, &plan)
	assert.True(t, plan.IsOwner)
	assert.Equal(t, []string{"go", "backend"}, plan.Tags)
	require.Len(t, plan.Topics, 2)
	planPath := "/api/plans/" + plan.ID.String()

	// private plans are hidden from everyone else
	rec = s.do(http.MethodGet, planPath, stranger.AccessToken, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Plan not found", errorBody(t, rec).Error)
	rec = s.do(http.MethodPost, planPath+"/enroll", learner.AccessToken, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(http.MethodPatch, planPath+"/visibility", owner.AccessToken, VisibilityRequest{Visibility: "shared"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(http.MethodPut, planPath, stranger.AccessToken, map[string]string{"title": "Mine now"})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "You do not own this plan", errorBody(t, rec).Error)

	rec = s.do(http.MethodPost, planPath+"/enroll", owner.AccessToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(http.MethodPost, planPath+"/enroll", learner.AccessToken, nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	var enrollment EnrollmentResponse
	decode(t, rec, &enrollment)
	assert.Equal(t, "ACTIVE", string(enrollment.Status))
	assert.Empty(t, enrollment.CompletedTopicIDs)

	rec = s.do(http.MethodPost, planPath+"/enroll", learner.AccessToken, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "Already enrolled in this plan", errorBody(t, rec).Error)

	markPath := "/api/enrollments/" + enrollment.ID.String() + "/topics/" + plan.Topics[0].ID.String()
	rec = s.do(http.MethodPut, markPath, learner.AccessToken, map[string]bool{"completed": true})
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &enrollment)
	assert.Equal(t, 50, enrollment.Progress.Percentage)

	rec = s.do(http.MethodPut, markPath, learner.AccessToken, map[string]string{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid completed: required field", errorBody(t, rec).Error)

	rec = s.do(http.MethodPut, markPath, owner.AccessToken, map[string]bool{"completed": true})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(http.MethodGet, planPath, learner.AccessToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var seen PlanDetailResponse
	decode(t, rec, &seen)
	assert.True(t, seen.IsEnrolled)
	require.NotNil(t, seen.Enrollment)
	assert.Equal(t, 50, seen.Enrollment.Progress.Percentage)
	assert.Equal(t, int64(1), seen.ViewCount)

	rec = s.do(http.MethodGet, planPath+"/progress", owner.AccessToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var prog PlanProgressResponse
	decode(t, rec, &prog)
	assert.Equal(t, 1, prog.Aggregate.EnrollmentCount)
	assert.Equal(t, 50, prog.Aggregate.AverageLearnerPercentage)

	rec = s.do(http.MethodGet, planPath+"/enrollments", owner.AccessToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var participants []ParticipantResponse
	decode(t, rec, &participants)
	require.Len(t, participants, 1)
	assert.Equal(t, "learner", participants[0].Username)

	rec = s.do(http.MethodGet, "/api/enrollments", learner.AccessToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var mine []EnrollmentResponse
	decode(t, rec, &mine)
	require.Len(t, mine, 1)
	assert.Equal(t, "Learn Go", mine[0].PlanTitle)

	rec = s.do(http.MethodGet, "/api/enrollments/"+enrollment.ID.String(), stranger.AccessToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(http.MethodDelete, "/api/enrollments/"+enrollment.ID.String(), owner.AccessToken, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = s.do(http.MethodDelete, planPath, owner.AccessToken, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = s.do(http.MethodGet, planPath, owner.AccessToken, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestTopicHandlers(t *testing.T) {
	t.Parallel()
	s := newTestServer(t)
	owner := s.register("owner")

	rec := s.do(http.MethodPost, "/api/plans", owner.AccessToken, CreatePlanRequest{Title: "Plan"})
	require.Equal(t, http.StatusCreated, rec.Code)
	var plan PlanDetailResponse
	decode(t, rec, &plan)
	topicsPath := "/api/plans/" + plan.ID.String() + "/topics"

	rec = s.do(http.MethodPost, topicsPath, owner.AccessToken, TopicRequest{Title: "First"})
	require.Equal(t, http.StatusCreated, rec.Code)
	var topic TopicResponse
	decode(t, rec, &topic)
	assert.Equal(t, 0, topic.OrderIndex)
	topicPath := "/api/topics/" + topic.ID.String()

	rec = s.do(http.MethodPost, topicsPath, owner.AccessToken, TopicRequest{Title: "Bad link", MaterialLink: "not a url"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(http.MethodPatch, topicPath+"/status", owner.AccessToken, TopicStatusRequest{Status: "in_progress"})
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &topic)
	assert.Equal(t, "IN_PROGRESS", string(topic.Status))

	rec = s.do(http.MethodPatch, topicPath+"/status", owner.AccessToken, TopicStatusRequest{Status: "DONE"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid topic status", errorBody(t, rec).Error)

	rec = s.do(http.MethodGet, topicPath, owner.AccessToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &topic)
	assert.Equal(t, "First", topic.Title)

	// the plan is private, so other users cannot see its topics
	stranger := s.register("stranger")
	rec = s.do(http.MethodGet, topicPath, stranger.AccessToken, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Topic not found", errorBody(t, rec).Error)
	rec = s.do(http.MethodGet, topicPath, "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	title := "Renamed"
	rec = s.do(http.MethodPut, topicPath, owner.AccessToken, UpdateTopicRequest{Title: &title})
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &topic)
	assert.Equal(t, title, topic.Title)

	rec = s.do(http.MethodGet, topicsPath, owner.AccessToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var topics []TopicResponse
	decode(t, rec, &topics)
	assert.Len(t, topics, 1)

	rec = s.do(http.MethodDelete, topicPath, owner.AccessToken, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = s.do(http.MethodDelete, topicPath, owner.AccessToken, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Topic not found", errorBody(t, rec).Error)
}

func TestDiscoverHandlers(t *testing.T) {
	t.Parallel()
	s := newTestServer(t)
	owner := s.register("owner")

	for _, v := range []string{"PUBLIC", "PUBLIC", "SHARED"} {
		rec := s.do(http.MethodPost, "/api/plans", owner.AccessToken, CreatePlanRequest{
			Title: "Distributed systems", Visibility: v, Tags: []string{"raft"},
		})
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	rec := s.do(http.MethodGet, "/api/discover/recent?size=1", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var page DiscoverResponse
	decode(t, rec, &page)
	assert.Equal(t, "recent", page.Mode)
	assert.Equal(t, 1, page.Size)
	assert.Len(t, page.Plans, 1)

	rec = s.do(http.MethodGet, "/api/discover/search?query=RAFT", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &page)
	assert.Equal(t, 10, page.Size)
	assert.Len(t, page.Plans, 2)

	tests := []struct {
		path      string
		wantError string
	}{
		{"/api/discover/search", "Search query is required"},
		{"/api/discover/popular?page=-1", "Page is out of range"},
		{"/api/discover/popular?page=9223372036854775807", "Page is out of range"},
		{"/api/discover/popular?size=1000", "Page size out of range"},
		{"/api/discover/popular?page=abc", "Invalid page: must be an integer"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := s.do(http.MethodGet, tt.path, "", nil)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, tt.wantError, errorBody(t, rec).Error)
		})
	}
}

func TestAuthenticatedRoutesRequireToken(t *testing.T) {
	t.Parallel()
	s := newTestServer(t)
	owner := s.register("owner")

	rec := s.do(http.MethodGet, "/api/plans", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(http.MethodGet, "/api/plans", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Invalid token", errorBody(t, rec).Error)

	rec = s.do(http.MethodGet, "/api/plans/not-a-uuid", owner.AccessToken, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid id: has invalid format", errorBody(t, rec).Error)

	rec = s.do(http.MethodGet, "/api/plans", owner.AccessToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var plans []PlanResponse
	decode(t, rec, &plans)
	assert.Empty(t, plans)

	rec = s.do(http.MethodGet, "/api/notifications?limit=5", owner.AccessToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var inbox []NotificationResponse
	decode(t, rec, &inbox)
	assert.Empty(t, inbox)

	rec = s.do(http.MethodGet, "/api/notifications?limit=500", owner.AccessToken, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
