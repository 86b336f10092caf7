// Package api exposes HTTP handlers for the planner service.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"example.com/planner/internal/auth"
	"example.com/planner/internal/calendar"
	"example.com/planner/internal/domain"
	"example.com/planner/internal/persistence"
	"example.com/planner/internal/preferences"
)

const (
	defaultListLimit = 20
	maxListLimit     = 100
	maxBodyBytes     = 1 << 20
)

// Handler coordinates HTTP requests with the domain service.
type Handler struct {
	service *domain.Service
	prefs   preferences.Store
	now     func() time.Time
	logger  zerolog.Logger
}

// HandlerOption configures a Handler.
type HandlerOption func(*Handler)

// WithClock overrides the clock used to default the calendar date.
func WithClock(now func() time.Time) HandlerOption {
	return func(h *Handler) { h.now = now }
}

// WithHandlerLogger sets the logger used for server errors.
func WithHandlerLogger(logger zerolog.Logger) HandlerOption {
	return func(h *Handler) { h.logger = logger }
}

// NewHandler builds a Handler.
func NewHandler(service *domain.Service, prefs preferences.Store, opts ...HandlerOption) *Handler {
	h := &Handler{service: service, prefs: prefs, now: time.Now, logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// RegisterRoutes wires endpoints to the router.
func (h *Handler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/healthz", healthz).Methods(http.MethodGet)

	v1 := r.PathPrefix("/v1").Subrouter()
	v1.HandleFunc("/activities", h.createActivity).Methods(http.MethodPost)
	v1.HandleFunc("/activities", h.listActivities).Methods(http.MethodGet)
	v1.HandleFunc("/activities/{id}", h.getActivity).Methods(http.MethodGet)
	v1.HandleFunc("/activities/{id}", h.updateActivity).Methods(http.MethodPut)
	v1.HandleFunc("/activities/{id}", h.deleteActivity).Methods(http.MethodDelete)
	v1.HandleFunc("/activities/{id}/review", h.reviewActivity).Methods(http.MethodPost)
	v1.HandleFunc("/calendar", h.calendarView).Methods(http.MethodGet)
	v1.HandleFunc("/calendar/grid", h.calendarGrid).Methods(http.MethodGet)
	v1.HandleFunc("/lead-times", h.leadTimes).Methods(http.MethodGet)
	v1.HandleFunc("/moods", h.moods).Methods(http.MethodGet)
	v1.HandleFunc("/preferences", h.getPreferences).Methods(http.MethodGet)
	v1.HandleFunc("/preferences", h.putPreferences).Methods(http.MethodPut)

	// Subrouters answer method mismatches themselves, so both levels need
	// the handlers.
	for _, router := range []*mux.Router{r, v1} {
		router.MethodNotAllowedHandler = http.HandlerFunc(methodNotAllowed)
		router.NotFoundHandler = http.HandlerFunc(notFound)
	}
}

func methodNotAllowed(w http.ResponseWriter, _ *http.Request) {
	writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
}

func notFound(w http.ResponseWriter, _ *http.Request) {
	writeError(w, http.StatusNotFound, "not_found", "no such endpoint")
}

// healthz reports a simple OK status for container health checks.
func healthz(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (h *Handler) createActivity(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireClaims(w, r, auth.CanWrite, auth.ScopePlannerWrite)
	if !ok {
		return
	}

	var req ActivityRequest
	if !decodeBody(w, r, &req) {
		return
	}

	userID := strings.TrimSpace(req.UserID)
	if userID == "" {
		userID = claims.Subject
	}

	aggregate, replay, err := h.service.CreateActivity(r.Context(), domain.CreateActivityInput{
		TenantID:        claims.TenantID,
		UserID:          userID,
		IdempotencyKey:  r.Header.Get("Idempotency-Key"),
		ActivityDetails: req.details(),
	})
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	status := http.StatusCreated
	if replay {
		status = http.StatusOK
	}
	writeJSON(w, status, CreateActivityResponse{
		Activity: toActivityView(*aggregate, labelsFor(r)),
		Replay:   replay,
	})
}

func (h *Handler) getActivity(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireClaims(w, r, auth.CanRead, auth.ScopePlannerRead)
	if !ok {
		return
	}

	aggregate, err := h.service.GetActivity(r.Context(), claims.TenantID, mux.Vars(r)["id"])
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toActivityView(*aggregate, labelsFor(r)))
}

func (h *Handler) updateActivity(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireClaims(w, r, auth.CanWrite, auth.ScopePlannerWrite)
	if !ok {
		return
	}

	var req ActivityRequest
	if !decodeBody(w, r, &req) {
		return
	}

	aggregate, err := h.service.UpdateActivity(r.Context(), domain.UpdateActivityInput{
		TenantID:        claims.TenantID,
		ActivityID:      mux.Vars(r)["id"],
		ExpectedVersion: req.Version,
		ActivityDetails: req.details(),
	})
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toActivityView(*aggregate, labelsFor(r)))
}

func (h *Handler) deleteActivity(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireClaims(w, r, auth.CanWrite, auth.ScopePlannerWrite)
	if !ok {
		return
	}

	if err := h.service.DeleteActivity(r.Context(), claims.TenantID, mux.Vars(r)["id"]); err != nil {
		h.writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) reviewActivity(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireClaims(w, r, auth.CanWrite, auth.ScopePlannerWrite)
	if !ok {
		return
	}

	var req ReviewRequest
	if !decodeBody(w, r, &req) {
		return
	}

	aggregate, err := h.service.ReviewActivity(r.Context(), domain.ReviewActivityInput{
		TenantID:   claims.TenantID,
		ActivityID: mux.Vars(r)["id"],
		Rating:     req.Rating,
		Review:     req.Review,
		Mood:       domain.Mood(req.Mood),
	})
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toActivityView(*aggregate, labelsFor(r)))
}

func (h *Handler) listActivities(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireClaims(w, r, auth.CanRead, auth.ScopePlannerRead)
	if !ok {
		return
	}

	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		userID = claims.Subject
	}

	limit := defaultListLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = min(parsed, maxListLimit)
		}
	}

	cursor, err := persistence.DecodeCursor(r.URL.Query().Get("cursor"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", "invalid cursor")
		return
	}

	aggregates, next, err := h.service.ListActivitiesByUser(r.Context(), claims.TenantID, userID, cursor, limit)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	labels := labelsFor(r)
	items := make([]ActivityView, 0, len(aggregates))
	for _, agg := range aggregates {
		items = append(items, toActivityView(agg, labels))
	}
	writeJSON(w, http.StatusOK, ListActivitiesResponse{
		Items:      items,
		NextCursor: persistence.EncodeCursor(next),
	})
}

func (h *Handler) getPreferences(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireClaims(w, r, auth.CanRead, auth.ScopePlannerRead)
	if !ok {
		return
	}

	prefs, err := h.prefs.Get(r.Context(), claims.TenantID, preferenceOwner(r, claims))
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, prefs)
}

func (h *Handler) putPreferences(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireClaims(w, r, auth.CanWrite, auth.ScopePlannerWrite)
	if !ok {
		return
	}

	var req preferences.Preferences
	if !decodeBody(w, r, &req) {
		return
	}

	saved, err := h.prefs.Put(r.Context(), claims.TenantID, preferenceOwner(r, claims), req)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

// preferenceOwner is the partner whose settings are addressed; callers
// default to their own.
func preferenceOwner(r *http.Request, claims *auth.Claims) string {
	if userID := strings.TrimSpace(r.URL.Query().Get("user_id")); userID != "" {
		return userID
	}
	return claims.Subject
}

func (h *Handler) moods(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireClaims(w, r, auth.CanRead, auth.ScopePlannerRead); !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string][]domain.Mood{"moods": domain.Moods()})
}

// requireClaims writes 401/403 and reports false when the request may not proceed.
func requireClaims(w http.ResponseWriter, r *http.Request, allowed func(*auth.Claims) bool, scope string) (*auth.Claims, bool) {
	claims, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
		return nil, false
	}
	if !allowed(claims) {
		writeError(w, http.StatusForbidden, "forbidden", "scope "+scope+" required")
		return nil, false
	}
	return claims, true
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "unable to parse body: "+err.Error())
		return false
	}
	return true
}

func (h *Handler) writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrActivityNotFound):
		writeError(w, http.StatusNotFound, "not_found", "activity not found")
	case errors.Is(err, domain.ErrInvalidActivity), errors.Is(err, preferences.ErrInvalidPreference):
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
	case errors.Is(err, domain.ErrVersionConflict):
		writeError(w, http.StatusConflict, "version_conflict", err.Error())
	case errors.Is(err, domain.ErrReviewNotAllowed):
		writeError(w, http.StatusUnprocessableEntity, "review_not_allowed", err.Error())
	default:
		h.logger.Error().Err(err).Msg("request failed")
		writeError(w, http.StatusInternalServerError, "server_error", "internal error")
	}
}

// labelsFor picks lead time labels from ?lang or Accept-Language.
func labelsFor(r *http.Request) calendar.LeadTimeLabels {
	if lang := r.URL.Query().Get("lang"); lang != "" {
		if tag, ok := calendar.SupportedLanguage(lang); ok {
			return calendar.LabelsFor(tag)
		}
	}
	return calendar.LabelsFor(calendar.MatchLanguage(r.Header.Get("Accept-Language")))
}

func writeError(w http.ResponseWriter, status int, code, detail string) {
	payload := map[string]string{
		"type":   code,
		"detail": detail,
	}
	writeJSON(w, status, payload)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
