package api

import (
	"net/http"
	"strconv"
	"time"

	"cloud.google.com/go/civil"

	"example.com/planner/internal/auth"
	"example.com/planner/internal/calendar"
	"example.com/planner/internal/domain"
)

// calendarView serves the marker map and agenda for ?date (default today)
// in ?mode. Without ?theme the caller's saved theme is used.
func (h *Handler) calendarView(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireClaims(w, r, auth.CanRead, auth.ScopePlannerRead)
	if !ok {
		return
	}
	q := r.URL.Query()

	date := civil.DateOf(h.now())
	if raw := q.Get("date"); raw != "" {
		parsed, err := civil.ParseDate(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "validation_failed", "date must be YYYY-MM-DD")
			return
		}
		date = parsed
	}

	mode, err := calendar.ParseWindowMode(q.Get("mode"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
		return
	}

	theme, err := calendar.ParseThemeMode(q.Get("theme"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
		return
	}
	if q.Get("theme") == "" && h.prefs != nil {
		if saved, err := h.prefs.Get(r.Context(), claims.TenantID, claims.Subject); err == nil {
			theme = saved.Theme
		} else {
			h.logger.Warn().Err(err).Str("tenant_id", claims.TenantID).Msg("preferences lookup failed, using system theme")
		}
	}

	view, cached, err := h.service.CalendarView(r.Context(), domain.CalendarQuery{
		TenantID: claims.TenantID,
		UserID:   q.Get("user_id"),
		Date:     date,
		Mode:     mode,
		Theme:    theme,
	})
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	if cached {
		w.Header().Set("X-Cache", "HIT")
	} else {
		w.Header().Set("X-Cache", "MISS")
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *Handler) calendarGrid(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireClaims(w, r, auth.CanRead, auth.ScopePlannerRead); !ok {
		return
	}

	today := civil.DateOf(h.now())
	year, month := today.Year, today.Month
	if raw := r.URL.Query().Get("year"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > 9999 {
			writeError(w, http.StatusBadRequest, "validation_failed", "year must be between 1 and 9999")
			return
		}
		year = parsed
	}
	if raw := r.URL.Query().Get("month"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > 12 {
			writeError(w, http.StatusBadRequest, "validation_failed", "month must be between 1 and 12")
			return
		}
		month = time.Month(parsed)
	}

	writeJSON(w, http.StatusOK, GridResponse{
		Year:     year,
		Month:    int(month),
		Weekdays: weekdayNames,
		Cells:    calendar.MonthGrid(year, month),
	})
}

var weekdayNames = []string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"}

func (h *Handler) leadTimes(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireClaims(w, r, auth.CanRead, auth.ScopePlannerRead); !ok {
		return
	}

	labels := labelsFor(r)
	w.Header().Set("Content-Language", labels.Language().String())
	w.Header().Add("Vary", "Accept-Language")
	writeJSON(w, http.StatusOK, LeadTimesResponse{
		Language: labels.Language().String(),
		Default:  calendar.DefaultLeadTime,
		Options:  labels.Options(),
	})
}
