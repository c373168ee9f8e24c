// Package pipeline sequences the two-phase registration flow.
//
// Each registrant session owns a Machine persisted in a SessionStore. An
// operation loads the session, checks the transition, validates input,
// claims the in-flight state with a versioned compare-and-swap, performs the
// single authoritative store write, dispatches the mirror copy without
// waiting, and records the outcome. Only the claimant of Submitting or
// SubmittingSupplemental ever contacts the registration store.
package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"signup/internal/platform/tracing"
	"signup/internal/registration/metrics"
	"signup/internal/registration/mirror"
	"signup/internal/registration/models"
	"signup/internal/registration/validation"
	dErrors "signup/pkg/domain-errors"
	"signup/pkg/platform/sentinel"
	"signup/pkg/requestcontext"
)

// User-facing feedback text.
const (
	MsgPrimaryAccepted      = "registration completed"
	MsgSupplementalAccepted = "additional information saved"
	MsgDuplicateEmail       = "this email is already registered"
	MsgPrimaryFailed        = "registration failed, please try again"
	MsgSupplementalFailed   = "could not save additional information, please try again or close the form"
	MsgFixFields            = "please correct the highlighted fields"
	MsgMissingRegistration  = "registration details are missing, please submit the registration form first"
)

var (
	primaryFieldOrder = []string{
		models.FieldName, models.FieldEmail, models.FieldPhone, models.FieldRole, models.FieldUniversity,
	}
	supplementalFieldOrder = []string{
		models.FieldMajor, models.FieldEducationLevel, models.FieldPreviousExperience,
	}
)

// Service runs registration sessions.
type Service struct {
	sessions      SessionStore
	registrations RegistrationStore
	mirror        Mirror
	validator     *validation.Validator
	logger        *slog.Logger
	metrics       *metrics.Metrics
	tracer        trace.Tracer
	now           func() time.Time

	inFlightTimeout time.Duration
	persistBackoff  time.Duration
}

const (
	defaultInFlightTimeout = time.Minute
	persistAttempts        = 4
)

type Option func(s *Service)

// WithMirror sets the analytics mirror. Without it mirroring is disabled.
func WithMirror(m Mirror) Option {
	return func(s *Service) {
		if m != nil {
			s.mirror = m
		}
	}
}

func WithValidator(v *validation.Validator) Option {
	return func(s *Service) {
		if v != nil {
			s.validator = v
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithTracer(t trace.Tracer) Option {
	return func(s *Service) {
		if t != nil {
			s.tracer = t
		}
	}
}

// WithClock overrides the fallback clock used outside HTTP requests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithInFlightTimeout bounds how long a session may stay in a submitting
// state. Older in-flight sessions are treated as failed so the registrant
// regains control. It should exceed the request timeout.
func WithInFlightTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.inFlightTimeout = d
		}
	}
}

// New constructs a Service.
func New(sessions SessionStore, registrations RegistrationStore, opts ...Option) *Service {
	s := &Service{
		sessions:      sessions,
		registrations: registrations,
		mirror:        mirror.Disabled{},
		validator:     validation.New(),
		logger:        slog.Default(),
		tracer:        otel.Tracer(tracing.TracerName),
		now:           time.Now,

		inFlightTimeout: defaultInFlightTimeout,
		persistBackoff:  25 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// =============================================================================
// Session lifecycle
// =============================================================================

// Start opens a new session in Idle.
func (s *Service) Start(ctx context.Context) (*Session, error) {
	now := s.clock(ctx)
	sess := &Session{ID: NewSessionID(), CreatedAt: now}
	sess.apply(NewMachine(), now)

	if err := s.sessions.Create(ctx, sess); err != nil {
		return nil, s.sessionError(ctx, err, "failed to create session")
	}
	s.logger.InfoContext(ctx, "registration session started",
		"request_id", requestcontext.RequestID(ctx),
		"session_id", sess.ID,
	)
	return sess, nil
}

// Get returns the current snapshot of a session.
func (s *Service) Get(ctx context.Context, id SessionID) (*Session, error) {
	sess, err := s.sessions.Get(ctx, id)
	if err != nil {
		return nil, s.sessionError(ctx, err, "failed to load session")
	}
	s.expireStale(ctx, sess)
	return sess, nil
}

// =============================================================================
// Primary phase
// =============================================================================

// SubmitPrimary validates and persists the primary form. The returned
// session is non-nil whenever the session exists, including on error, so
// callers can render the feedback.
func (s *Service) SubmitPrimary(ctx context.Context, id SessionID, input models.RegistrationInput) (*Session, error) {
	ctx, span := s.tracer.Start(ctx, "registration.submit_primary",
		trace.WithAttributes(attribute.String("session.id", string(id))))
	defer span.End()

	sess, err := s.sessions.Get(ctx, id)
	if err != nil {
		return nil, s.spanError(span, s.sessionError(ctx, err, "failed to load session"))
	}
	s.expireStale(ctx, sess)
	claimed, err := sess.Next(EventSubmitPrimary)
	if err != nil {
		s.metrics.IncrementSubmission(metrics.PhasePrimary, metrics.OutcomeInvalid)
		return sess, s.spanError(span, err)
	}

	result := s.validator.ValidateRegistration(&input)
	sess.Primary = input
	if !result.OK() {
		return s.rejectInput(ctx, span, sess, result, primaryFieldOrder, metrics.PhasePrimary)
	}

	now := s.clock(ctx)
	sess.apply(claimed, now)
	if err := s.claim(ctx, sess); err != nil {
		return s.reload(ctx, sess), s.spanError(span, err)
	}

	record := input.ToRecord(now)
	record.Email = strings.ToLower(record.Email)

	start := time.Now()
	regID, insertErr := s.registrations.InsertRegistration(ctx, record)
	s.metrics.ObserveStoreLatency(metrics.PhasePrimary, time.Since(start).Seconds())

	// The outcome is recorded even if the request context was cancelled
	// during the insert; otherwise the session would stay in Submitting.
	persistCtx := context.WithoutCancel(ctx)

	if insertErr != nil {
		next, _ := sess.Next(EventPrimaryRejected)
		sess.apply(next, s.clock(ctx))
		opErr := s.primaryFailure(ctx, sess, insertErr)
		if err := s.persist(persistCtx, sess); err != nil {
			return sess, s.spanError(span, err)
		}
		return sess, s.spanError(span, opErr)
	}

	record.ID = regID
	s.mirror.Primary(persistCtx, record)

	next, _ := sess.Next(EventPrimaryAccepted)
	sess.apply(next, s.clock(ctx))
	sess.RegistrationID = &regID
	sess.Feedback.Outcome = OutcomeSuccess
	sess.Feedback.Message = MsgPrimaryAccepted
	if err := s.persist(persistCtx, sess); err != nil {
		return sess, s.spanError(span, err)
	}

	s.metrics.IncrementSubmission(metrics.PhasePrimary, metrics.OutcomeAccepted)
	span.SetAttributes(attribute.String("registration.id", regID.String()))
	s.logger.InfoContext(ctx, "registration accepted",
		"request_id", requestcontext.RequestID(ctx),
		"session_id", sess.ID,
		"registration_id", regID.String(),
	)
	return sess, nil
}

func (s *Service) primaryFailure(ctx context.Context, sess *Session, err error) error {
	if errors.Is(err, sentinel.ErrAlreadyUsed) {
		sess.Feedback.Outcome = OutcomeConflict
		sess.Feedback.Message = MsgDuplicateEmail
		sess.Feedback.HighlightField = models.FieldEmail
		sess.Feedback.FieldErrors = map[string][]string{models.FieldEmail: {MsgDuplicateEmail}}
		s.metrics.IncrementSubmission(metrics.PhasePrimary, metrics.OutcomeConflict)
		s.logger.InfoContext(ctx, "duplicate registration rejected",
			"request_id", requestcontext.RequestID(ctx),
			"session_id", sess.ID,
		)
		return dErrors.Wrap(err, dErrors.CodeConflict, MsgDuplicateEmail)
	}

	sess.Feedback.Outcome = OutcomeFailure
	sess.Feedback.Message = MsgPrimaryFailed
	s.metrics.IncrementSubmission(metrics.PhasePrimary, metrics.OutcomeFailed)
	s.logger.ErrorContext(ctx, "registration store insert failed",
		"request_id", requestcontext.RequestID(ctx),
		"session_id", sess.ID,
		"error", err,
	)
	return dErrors.Wrap(err, dErrors.CodeUnavailable, MsgPrimaryFailed)
}

// =============================================================================
// Supplemental phase
// =============================================================================

// SubmitSupplemental validates and persists the supplemental form against
// the session's registration. A failure leaves the primary record untouched.
func (s *Service) SubmitSupplemental(ctx context.Context, id SessionID, input models.SupplementalInput) (*Session, error) {
	ctx, span := s.tracer.Start(ctx, "registration.submit_supplemental",
		trace.WithAttributes(attribute.String("session.id", string(id))))
	defer span.End()

	sess, err := s.sessions.Get(ctx, id)
	if err != nil {
		return nil, s.spanError(span, s.sessionError(ctx, err, "failed to load session"))
	}
	s.expireStale(ctx, sess)
	claimed, err := sess.Next(EventSubmitSupplemental)
	if err != nil {
		s.metrics.IncrementSubmission(metrics.PhaseSupplemental, metrics.OutcomeInvalid)
		return sess, s.spanError(span, err)
	}
	if sess.RegistrationID == nil || sess.RegistrationID.IsNil() {
		s.metrics.IncrementSubmission(metrics.PhaseSupplemental, metrics.OutcomeInvalid)
		s.logger.ErrorContext(ctx, "supplemental submission without registration id",
			"request_id", requestcontext.RequestID(ctx),
			"session_id", sess.ID,
		)
		return sess, s.spanError(span, dErrors.New(dErrors.CodeInvalidState, MsgMissingRegistration))
	}
	regID := *sess.RegistrationID

	result := s.validator.ValidateSupplemental(&input)
	sess.Supplemental = input
	if !result.OK() {
		return s.rejectInput(ctx, span, sess, result, supplementalFieldOrder, metrics.PhaseSupplemental)
	}

	now := s.clock(ctx)
	sess.apply(claimed, now)
	if err := s.claim(ctx, sess); err != nil {
		return s.reload(ctx, sess), s.spanError(span, err)
	}

	record := input.ToRecord(regID, now)

	start := time.Now()
	upsertErr := s.registrations.UpsertSupplemental(ctx, regID, record)
	s.metrics.ObserveStoreLatency(metrics.PhaseSupplemental, time.Since(start).Seconds())

	persistCtx := context.WithoutCancel(ctx)

	if upsertErr != nil {
		next, _ := sess.Next(EventSupplementalFailed)
		sess.apply(next, s.clock(ctx))
		sess.Feedback.Outcome = OutcomeFailure
		sess.Feedback.Message = MsgSupplementalFailed
		s.metrics.IncrementSubmission(metrics.PhaseSupplemental, metrics.OutcomeFailed)
		s.logger.ErrorContext(ctx, "supplemental upsert failed",
			"request_id", requestcontext.RequestID(ctx),
			"session_id", sess.ID,
			"registration_id", regID.String(),
			"error", upsertErr,
		)
		if err := s.persist(persistCtx, sess); err != nil {
			return sess, s.spanError(span, err)
		}
		return sess, s.spanError(span, dErrors.Wrap(upsertErr, dErrors.CodeUnavailable, MsgSupplementalFailed))
	}

	s.mirror.Supplemental(persistCtx, record)

	next, _ := sess.Next(EventSupplementalAccepted)
	sess.apply(next, s.clock(ctx))
	sess.Feedback.Outcome = OutcomeSuccess
	sess.Feedback.Message = MsgSupplementalAccepted
	if err := s.persist(persistCtx, sess); err != nil {
		return sess, s.spanError(span, err)
	}

	s.metrics.IncrementSubmission(metrics.PhaseSupplemental, metrics.OutcomeAccepted)
	s.logger.InfoContext(ctx, "supplemental info saved",
		"request_id", requestcontext.RequestID(ctx),
		"session_id", sess.ID,
		"registration_id", regID.String(),
	)
	return sess, nil
}

// Decline closes the supplemental step. The primary registration is not
// touched.
func (s *Service) Decline(ctx context.Context, id SessionID) (*Session, error) {
	sess, err := s.sessions.Get(ctx, id)
	if err != nil {
		return nil, s.sessionError(ctx, err, "failed to load session")
	}
	s.expireStale(ctx, sess)
	next, err := sess.Next(EventDecline)
	if err != nil {
		return sess, err
	}
	sess.apply(next, s.clock(ctx))
	if err := s.claim(ctx, sess); err != nil {
		return s.reload(ctx, sess), err
	}
	s.metrics.IncrementSubmission(metrics.PhaseSupplemental, metrics.OutcomeDeclined)
	s.logger.InfoContext(ctx, "supplemental step declined",
		"request_id", requestcontext.RequestID(ctx),
		"session_id", sess.ID,
	)
	return sess, nil
}

// =============================================================================
// Read-back
// =============================================================================

// Registration returns a committed registration and its supplemental info,
// if any.
func (s *Service) Registration(ctx context.Context, id models.RegistrationID) (*models.RegistrationDetails, error) {
	rec, err := s.registrations.FindRegistration(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "registration not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load registration")
	}
	details := &models.RegistrationDetails{Registration: *rec}

	supp, err := s.registrations.FindSupplemental(ctx, id)
	switch {
	case err == nil:
		details.Supplemental = supp
	case errors.Is(err, sentinel.ErrNotFound):
	default:
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load supplemental info")
	}
	return details, nil
}

// =============================================================================
// Helpers
// =============================================================================

// rejectInput records field errors without changing state.
func (s *Service) rejectInput(
	ctx context.Context,
	span trace.Span,
	sess *Session,
	result validation.Result,
	order []string,
	phase string,
) (*Session, error) {
	sess.apply(sess.Machine, s.clock(ctx))
	sess.Feedback.Outcome = OutcomeValidation
	sess.Feedback.Message = MsgFixFields
	sess.Feedback.FieldErrors = result.Fields
	sess.Feedback.HighlightField = firstField(result, order)
	s.metrics.IncrementSubmission(phase, metrics.OutcomeRejected)

	if err := s.claim(ctx, sess); err != nil {
		return s.reload(ctx, sess), s.spanError(span, err)
	}
	return sess, s.spanError(span, result.Err())
}

// claim writes sess if nobody else has written since it was loaded.
func (s *Service) claim(ctx context.Context, sess *Session) error {
	err := s.sessions.CompareAndSwap(ctx, sess, sess.Version)
	if errors.Is(err, sentinel.ErrConflict) {
		return dErrors.New(dErrors.CodeInvalidState, "a submission is already in progress")
	}
	if err != nil {
		return s.sessionError(ctx, err, "failed to save session")
	}
	return nil
}

// persist records the outcome of a claimed write. Only the claimant can move
// a session out of an in-flight state, so transient failures are retried
// with a doubling backoff. If every attempt fails the session is left in
// flight until expireStale releases it.
func (s *Service) persist(ctx context.Context, sess *Session) error {
	expected := sess.Version
	backoff := s.persistBackoff
	var err error
	for attempt := 1; attempt <= persistAttempts; attempt++ {
		err = s.sessions.CompareAndSwap(ctx, sess, expected)
		if err == nil {
			return nil
		}
		if errors.Is(err, sentinel.ErrConflict) {
			if attempt > 1 && s.landed(ctx, sess, expected) {
				return nil
			}
			break
		}
		if attempt == persistAttempts {
			break
		}
		s.logger.WarnContext(ctx, "retrying submission outcome write",
			"request_id", requestcontext.RequestID(ctx),
			"session_id", sess.ID,
			"attempt", attempt,
			"error", err,
		)
		if !sleep(ctx, backoff) {
			break
		}
		backoff *= 2
	}
	s.logger.ErrorContext(ctx, "failed to record submission outcome",
		"request_id", requestcontext.RequestID(ctx),
		"session_id", sess.ID,
		"state", sess.Machine.String(),
		"error", err,
	)
	return s.sessionError(ctx, err, "failed to save session")
}

// landed reports whether an earlier attempt whose reply was lost did write
// sess. On success sess.Version is brought up to date.
func (s *Service) landed(ctx context.Context, sess *Session, expected int64) bool {
	stored, err := s.sessions.Get(ctx, sess.ID)
	if err != nil || stored.Version != expected+1 || stored.Machine != sess.Machine {
		return false
	}
	sess.Version = stored.Version
	return true
}

// expireStale moves a session whose in-flight write outlived inFlightTimeout
// to the Error state of its phase. The change is not stored on its own; the
// caller's next compare-and-swap writes it against the loaded version.
func (s *Service) expireStale(ctx context.Context, sess *Session) {
	now := s.clock(ctx)
	if !sess.InFlight() || now.Sub(sess.UpdatedAt) <= s.inFlightTimeout {
		return
	}
	from, since := sess.Machine, sess.UpdatedAt
	next, err := sess.Next(EventExpired)
	if err != nil {
		return
	}
	sess.apply(next, now)
	sess.Feedback.Outcome = OutcomeFailure
	sess.Feedback.Message = MsgPrimaryFailed
	if next.FailedPhase == PhaseSupplemental {
		sess.Feedback.Message = MsgSupplementalFailed
	}
	s.logger.WarnContext(ctx, "expired stale in-flight submission",
		"request_id", requestcontext.RequestID(ctx),
		"session_id", sess.ID,
		"state", from.String(),
		"since", since,
	)
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// reload returns the stored snapshot after a lost claim, falling back to the
// caller's copy.
func (s *Service) reload(ctx context.Context, sess *Session) *Session {
	current, err := s.sessions.Get(ctx, sess.ID)
	if err != nil {
		return sess
	}
	return current
}

func (s *Service) sessionError(ctx context.Context, err error, msg string) error {
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "session not found")
	case errors.Is(err, sentinel.ErrUnavailable):
		s.logger.ErrorContext(ctx, msg,
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "session storage unavailable, please try again")
	default:
		s.logger.ErrorContext(ctx, msg,
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		return dErrors.Wrap(err, dErrors.CodeInternal, msg)
	}
}

func (s *Service) spanError(span trace.Span, err error) error {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, string(dErrors.CodeOf(err)))
	}
	return err
}

func (s *Service) clock(ctx context.Context) time.Time {
	if t, ok := requestcontext.NowFromContext(ctx); ok {
		return t.UTC()
	}
	return s.now().UTC()
}

func firstField(result validation.Result, order []string) string {
	for _, f := range order {
		if _, ok := result.Fields[f]; ok {
			return f
		}
	}
	if names := result.FieldNames(); len(names) > 0 {
		return names[0]
	}
	return ""
}
