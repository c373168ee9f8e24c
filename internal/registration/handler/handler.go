package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"signup/internal/platform/middleware"
	"signup/internal/registration/models"
	"signup/internal/registration/pipeline"
	dErrors "signup/pkg/domain-errors"
	"signup/pkg/platform/httputil"
)

const maxBodyBytes = 64 << 10

// Service defines the registration pipeline operations.
type Service interface {
	Start(ctx context.Context) (*pipeline.Session, error)
	Get(ctx context.Context, id pipeline.SessionID) (*pipeline.Session, error)
	SubmitPrimary(ctx context.Context, id pipeline.SessionID, input models.RegistrationInput) (*pipeline.Session, error)
	SubmitSupplemental(ctx context.Context, id pipeline.SessionID, input models.SupplementalInput) (*pipeline.Session, error)
	Decline(ctx context.Context, id pipeline.SessionID) (*pipeline.Session, error)
	Registration(ctx context.Context, id models.RegistrationID) (*models.RegistrationDetails, error)
}

// Handler serves the registration session API.
type Handler struct {
	service    Service
	logger     *slog.Logger
	adminToken string
}

// New creates a registration Handler. An empty adminToken disables the
// read-back routes.
func New(service Service, logger *slog.Logger, adminToken string) *Handler {
	return &Handler{service: service, logger: logger, adminToken: adminToken}
}

// SessionResponse wraps every session operation. Error fields are set when
// the operation failed; Session is still present whenever it exists.
type SessionResponse struct {
	Session          *pipeline.Session `json:"session,omitempty"`
	Error            string            `json:"error,omitempty"`
	ErrorDescription string            `json:"error_description,omitempty"`
}

// Register mounts the session and admin routes on r.
func (h *Handler) Register(r chi.Router) {
	r.Route("/sessions", func(r chi.Router) {
		r.Use(middleware.ContentTypeJSON)
		r.Post("/", h.handleStart)
		r.Get("/{id}", h.handleGet)
		r.Post("/{id}/registration", h.handleSubmitPrimary)
		r.Post("/{id}/supplemental", h.handleSubmitSupplemental)
		r.Post("/{id}/decline", h.handleDecline)
	})
	r.Route("/admin", func(r chi.Router) {
		r.Use(middleware.RequireAdminToken(h.adminToken, h.logger))
		r.Get("/registrations/{id}", h.handleGetRegistration)
	})
}

func (h *Handler) handleStart(w http.ResponseWriter, r *http.Request) {
	sess, err := h.service.Start(r.Context())
	if err != nil {
		h.writeSession(w, nil, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, SessionResponse{Session: sess})
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionID(r)
	if !ok {
		h.writeSession(w, nil, errSessionNotFound)
		return
	}
	sess, err := h.service.Get(r.Context(), id)
	h.writeSession(w, sess, err)
}

func (h *Handler) handleSubmitPrimary(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionID(r)
	if !ok {
		h.writeSession(w, nil, errSessionNotFound)
		return
	}
	var input models.RegistrationInput
	if !h.decode(w, r, &input) {
		return
	}
	sess, err := h.service.SubmitPrimary(r.Context(), id, input)
	h.writeSession(w, sess, err)
}

func (h *Handler) handleSubmitSupplemental(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionID(r)
	if !ok {
		h.writeSession(w, nil, errSessionNotFound)
		return
	}
	var input models.SupplementalInput
	if !h.decode(w, r, &input) {
		return
	}
	sess, err := h.service.SubmitSupplemental(r.Context(), id, input)
	h.writeSession(w, sess, err)
}

func (h *Handler) handleDecline(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionID(r)
	if !ok {
		h.writeSession(w, nil, errSessionNotFound)
		return
	}
	sess, err := h.service.Decline(r.Context(), id)
	h.writeSession(w, sess, err)
}

func (h *Handler) handleGetRegistration(w http.ResponseWriter, r *http.Request) {
	id, err := models.ParseRegistrationID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid registration id"))
		return
	}
	details, err := h.service.Registration(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, details)
}

var errSessionNotFound = dErrors.New(dErrors.CodeNotFound, "session not found")

func sessionID(r *http.Request) (pipeline.SessionID, bool) {
	return pipeline.ParseSessionID(chi.URLParam(r, "id"))
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		h.logger.WarnContext(r.Context(), "invalid registration request body",
			"request_id", middleware.GetRequestID(r.Context()),
			"error", err.Error(),
		)
		h.writeSession(w, nil, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return false
	}
	return true
}

// writeSession renders the session with the status implied by err.
// Internal error detail never reaches the body.
func (h *Handler) writeSession(w http.ResponseWriter, sess *pipeline.Session, err error) {
	if err == nil {
		httputil.WriteJSON(w, http.StatusOK, SessionResponse{Session: sess})
		return
	}
	code := dErrors.CodeOf(err)
	resp := SessionResponse{Session: sess, Error: string(code)}
	if code != dErrors.CodeInternal {
		resp.ErrorDescription = dErrors.Message(err)
	}
	httputil.WriteJSON(w, dErrors.ToHTTPStatus(code), resp)
}
