package web

import (
	"fmt"
	"net/http"
	"strconv"

	"apptcal/internal/ics"
	appLog "apptcal/internal/log"
	"apptcal/internal/manager"
	"apptcal/internal/model"
)

// maxWindowDays bounds the days parameter of /api/occurrences (ten years).
const maxWindowDays = 3660

// occurrencesResponse is the JSON response shape for /api/occurrences.
type occurrencesResponse struct {
	Occurrences     []occurrenceDTO `json:"occurrences"`
	TruncatedIDs    []string        `json:"truncated_ids,omitempty"`
	RangeStart      model.Date      `json:"range_start"`
	RangeEnd        model.Date      `json:"range_end"`
	DisplayTimeZone string          `json:"display_timezone"`
}

// occurrenceDTO is a JSON-friendly view of occurrences.
type occurrenceDTO struct {
	AppointmentID string     `json:"appointment_id"`
	InstanceKey   string     `json:"instance_key"`
	Kind          model.Kind `json:"kind"`
	Description   string     `json:"description"`
	Date          model.Date `json:"date"`
}

// handleOccurrences returns expanded occurrences within a date window.
//
// GET /api/occurrences?from=2024-01-01&days=7
//   - from: first date of the window (default: today in config.Timezone)
//   - days: window length in days, 1..maxWindowDays (default: config.HorizonDays)
func (s *Server) handleOccurrences(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	loc := s.cfg.Location()

	from := model.DateOf(s.now().In(loc))
	if raw := q.Get("from"); raw != "" {
		d, err := model.ParseDate(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid from: expected yyyy-mm-dd")
			return
		}
		from = d
	}

	days := min(s.cfg.HorizonDays, maxWindowDays)
	if raw := q.Get("days"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxWindowDays {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid days: expected 1..%d", maxWindowDays))
			return
		}
		days = n
	}
	to := from.AddDays(days - 1)

	var appts []*model.Appointment
	s.book.View(func(m *manager.Manager) {
		appts = m.Appointments()
	})

	res, err := ics.ExpandOccurrences(appts, ics.ExpandConfig{
		RangeStart:             from,
		RangeEnd:               to,
		MaxOccurrencesPerEvent: s.cfg.MaxOccurrences,
	})
	if err != nil {
		appLog.Error("api occurrences: expand failed", err)
		writeError(w, http.StatusInternalServerError, "failed to expand appointments")
		return
	}

	dtos := make([]occurrenceDTO, 0, len(res.Occurrences))
	for _, occ := range res.Occurrences {
		dtos = append(dtos, occurrenceDTO{
			AppointmentID: occ.AppointmentID.String(),
			InstanceKey:   occ.InstanceKey,
			Kind:          occ.Kind,
			Description:   occ.Description,
			Date:          occ.Date,
		})
	}

	appLog.Debug("api occurrences request",
		"range_start", from,
		"range_end", to,
		"count", len(dtos),
		"timezone", loc.String(),
	)

	writeJSON(w, http.StatusOK, occurrencesResponse{
		Occurrences:     dtos,
		TruncatedIDs:    res.TruncatedEvents,
		RangeStart:      from,
		RangeEnd:        to,
		DisplayTimeZone: loc.String(),
	})
}

// handleExport serves every appointment as an iCalendar file.
func (s *Server) handleExport(w http.ResponseWriter, _ *http.Request) {
	var appts []*model.Appointment
	s.book.View(func(m *manager.Manager) {
		appts = m.Appointments()
	})

	body := ics.Export(appts, s.now())

	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="apptcal.ics"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(body))
}
