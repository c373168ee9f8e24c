package handler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"signup/internal/platform/middleware"
	"signup/internal/registration/models"
	"signup/internal/registration/pipeline"
	"signup/internal/registration/store"
	"signup/pkg/testutil"
)

const adminToken = "secret-token"

type flakyStore struct {
	*store.InMemoryStore
	failInsert bool
}

func (f *flakyStore) InsertRegistration(ctx context.Context, rec models.RegistrationRecord) (models.RegistrationID, error) {
	if f.failInsert {
		return models.RegistrationID{}, errors.New("pq: could not connect to server at 10.1.2.3")
	}
	return f.InMemoryStore.InsertRegistration(ctx, rec)
}

func newRouter(t *testing.T) (http.Handler, *flakyStore) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	regs := &flakyStore{InMemoryStore: store.NewInMemory()}
	svc := pipeline.New(pipeline.NewInMemorySessionStore(time.Hour), regs, pipeline.WithLogger(logger))

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestTime)
	New(svc, logger, adminToken).Register(r)
	return r, regs
}

func validBody() map[string]any {
	return map[string]any{
		"name":       "A",
		"email":      "a@x.com",
		"phone":      "09123456789",
		"role":       "student",
		"university": "U",
	}
}

func startSession(t *testing.T, router http.Handler) *pipeline.Session {
	t.Helper()
	rr := testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodPost, "/sessions", nil))
	testutil.AssertStatus(t, rr, http.StatusCreated)
	resp := testutil.UnmarshalResponse[SessionResponse](t, rr)
	require.NotNil(t, resp.Session)
	return resp.Session
}

func post(t *testing.T, router http.Handler, path string, body any) (int, *SessionResponse) {
	t.Helper()
	rr := testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodPost, path, body))
	return rr.Code, testutil.UnmarshalResponse[SessionResponse](t, rr)
}

func TestFullRegistrationFlow(t *testing.T) {
	router, regs := newRouter(t)
	sess := startSession(t, router)
	assert.Equal(t, pipeline.StateIdle, sess.State)
	assert.Equal(t, pipeline.FormPrimary, sess.Feedback.Form)

	status, resp := post(t, router, "/sessions/"+string(sess.ID)+"/registration", validBody())
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, pipeline.StateAwaitingSupplemental, resp.Session.State)
	assert.Equal(t, "registration completed", resp.Session.Feedback.Message)
	require.NotNil(t, resp.Session.RegistrationID)
	assert.Equal(t, 1, regs.Count())

	status, resp = post(t, router, "/sessions/"+string(sess.ID)+"/supplemental", map[string]any{
		"major":             "Biology",
		"educationLevel":    "PhD",
		"usedServiceBefore": false,
	})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, pipeline.StateDone, resp.Session.State)
	assert.Equal(t, "additional information saved", resp.Session.Feedback.Message)

	rr := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/sessions/"+string(sess.ID)))
	testutil.AssertStatusOK(t, rr)
}

func TestSubmitPrimary_ValidationRejection(t *testing.T) {
	router, regs := newRouter(t)
	sess := startSession(t, router)

	body := validBody()
	body["phone"] = "123"
	status, resp := post(t, router, "/sessions/"+string(sess.ID)+"/registration", body)

	assert.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Equal(t, "validation_error", resp.Error)
	require.NotNil(t, resp.Session)
	assert.Contains(t, resp.Session.Feedback.FieldErrors, "phone")
	assert.Equal(t, "phone", resp.Session.Feedback.HighlightField)
	assert.Equal(t, 0, regs.Count(), "no store write on validation failure")
}

func TestSubmitPrimary_DuplicateEmail(t *testing.T) {
	router, regs := newRouter(t)

	first := startSession(t, router)
	status, _ := post(t, router, "/sessions/"+string(first.ID)+"/registration", validBody())
	require.Equal(t, http.StatusOK, status)

	second := startSession(t, router)
	status, resp := post(t, router, "/sessions/"+string(second.ID)+"/registration", validBody())

	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "conflict", resp.Error)
	assert.Equal(t, "this email is already registered", resp.ErrorDescription)
	assert.Equal(t, "email", resp.Session.Feedback.HighlightField)
	assert.Nil(t, resp.Session.RegistrationID)
	assert.Equal(t, 1, regs.Count())
}

func TestSubmitPrimary_StoreFailureHidesDetail(t *testing.T) {
	router, regs := newRouter(t)
	regs.failInsert = true
	sess := startSession(t, router)

	rr := testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodPost, "/sessions/"+string(sess.ID)+"/registration", validBody()))

	testutil.AssertStatus(t, rr, http.StatusServiceUnavailable)
	assert.NotContains(t, rr.Body.String(), "10.1.2.3")
	resp := testutil.UnmarshalResponse[SessionResponse](t, rr)
	assert.Equal(t, pipeline.StateError, resp.Session.State)
	assert.Equal(t, "a@x.com", resp.Session.Primary.Email, "input preserved")
	assert.True(t, resp.Session.Feedback.FormEnabled)
}

func TestInvalidState(t *testing.T) {
	router, _ := newRouter(t)
	sess := startSession(t, router)

	status, resp := post(t, router, "/sessions/"+string(sess.ID)+"/decline", nil)
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "invalid_state", resp.Error)
	assert.Equal(t, pipeline.StateIdle, resp.Session.State)

	status, resp = post(t, router, "/sessions/"+string(sess.ID)+"/supplemental", map[string]any{"major": "x", "educationLevel": "PhD"})
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "invalid_state", resp.Error)
}

func TestUnknownSession(t *testing.T) {
	router, _ := newRouter(t)

	rr := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/sessions/not-a-uuid"))
	testutil.AssertStatusAndError(t, rr, http.StatusNotFound, "not_found")

	rr = testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/sessions/"+string(pipeline.NewSessionID())))
	testutil.AssertStatusAndError(t, rr, http.StatusNotFound, "not_found")
}

func TestMalformedBody(t *testing.T) {
	router, _ := newRouter(t)
	sess := startSession(t, router)

	rr := testutil.DoRequest(router, testutil.NewRequestWithBody(t, http.MethodPost, "/sessions/"+string(sess.ID)+"/registration", `{"name":`))
	testutil.AssertStatusAndError(t, rr, http.StatusBadRequest, "bad_request")
}

func TestAdminReadBack(t *testing.T) {
	router, _ := newRouter(t)
	sess := startSession(t, router)
	_, resp := post(t, router, "/sessions/"+string(sess.ID)+"/registration", validBody())
	require.NotNil(t, resp.Session.RegistrationID)
	path := "/admin/registrations/" + resp.Session.RegistrationID.String()

	t.Run("token required", func(t *testing.T) {
		rr := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, path))
		testutil.AssertStatus(t, rr, http.StatusUnauthorized)
	})

	t.Run("returns committed record", func(t *testing.T) {
		req := testutil.NewRequest(t, http.MethodGet, path)
		req.Header.Set(middleware.AdminTokenHeader, adminToken)
		rr := testutil.DoRequest(router, req)
		testutil.AssertStatusOK(t, rr)
		details := testutil.UnmarshalResponse[models.RegistrationDetails](t, rr)
		assert.Equal(t, "a@x.com", details.Registration.Email)
		assert.Nil(t, details.Supplemental)
	})

	t.Run("malformed id", func(t *testing.T) {
		req := testutil.NewRequest(t, http.MethodGet, "/admin/registrations/xyz")
		req.Header.Set(middleware.AdminTokenHeader, adminToken)
		rr := testutil.DoRequest(router, req)
		testutil.AssertStatusAndError(t, rr, http.StatusBadRequest, "bad_request")
	})
}

func TestDeclineScenario(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	regs := store.NewInMemory()
	svc := pipeline.New(pipeline.NewInMemorySessionStore(time.Hour), regs, pipeline.WithLogger(logger))
	router := chi.NewRouter()
	New(svc, logger, adminToken).Register(router)

	pinned := time.Date(2025, 11, 3, 9, 30, 0, 0, time.UTC)
	do := func(t *testing.T, path string, body any) *SessionResponse {
		t.Helper()
		req := testutil.NewJSONRequest(t, http.MethodPost, path, body)
		req = testutil.WithRequestID(testutil.WithRequestTime(req, pinned), "req-decline")
		rr := testutil.DoRequest(router, req)
		testutil.AssertStatusOK(t, rr)
		return testutil.UnmarshalResponse[SessionResponse](t, rr)
	}

	var sess *pipeline.Session
	t.Run("registered participant", func(t *testing.T) {
		sess = startSession(t, router)
		resp := do(t, "/sessions/"+string(sess.ID)+"/registration", validBody())
		require.Equal(t, pipeline.StateAwaitingSupplemental, resp.Session.State)
		assert.True(t, resp.Session.Feedback.CanDecline)
		assert.Equal(t, pinned, resp.Session.UpdatedAt)
	})

	t.Run("closing the additional form", func(t *testing.T) {
		resp := do(t, "/sessions/"+string(sess.ID)+"/decline", nil)
		assert.Equal(t, pipeline.StateDone, resp.Session.State)
		assert.Equal(t, pipeline.FormNone, resp.Session.Feedback.Form)
	})

	t.Run("primary record untouched and nothing more accepted", func(t *testing.T) {
		assert.Equal(t, 1, regs.Count())
		status, resp := post(t, router, "/sessions/"+string(sess.ID)+"/supplemental", map[string]any{"major": "x", "educationLevel": "PhD"})
		assert.Equal(t, http.StatusConflict, status)
		assert.Equal(t, "invalid_state", resp.Error)
	})
}
