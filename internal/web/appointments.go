package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"apptcal/internal/ics"
	appLog "apptcal/internal/log"
	"apptcal/internal/manager"
	"apptcal/internal/model"
)

const maxBodyBytes = 1 << 20

// appointmentRequest is the JSON body for create and update.
type appointmentRequest struct {
	Kind        string `json:"kind"`
	Start       string `json:"start"`
	End         string `json:"end"`
	Description string `json:"description"`
}

// build parses the request fields and constructs a new appointment.
func (req appointmentRequest) build() (*model.Appointment, error) {
	kind, err := model.ParseKind(req.Kind)
	if err != nil {
		return nil, err
	}
	start, err := optionalDate("start", req.Start)
	if err != nil {
		return nil, err
	}
	end, err := optionalDate("end", req.End)
	if err != nil {
		return nil, err
	}
	// Missing dates are reported by model.New as InvalidRangeError.
	return model.New(kind, start, end, req.Description)
}

func optionalDate(field, v string) (model.Date, error) {
	if strings.TrimSpace(v) == "" {
		return model.Date{}, nil
	}
	d, err := model.ParseDate(v)
	if err != nil {
		return model.Date{}, fmt.Errorf("%s: %w", field, err)
	}
	return d, nil
}

// appointmentDTO is the JSON view of an appointment.
type appointmentDTO struct {
	ID          string     `json:"id"`
	Kind        model.Kind `json:"kind"`
	Start       model.Date `json:"start"`
	End         model.Date `json:"end"`
	Description string     `json:"description"`
	Display     string     `json:"display"`
}

func toDTO(a *model.Appointment) appointmentDTO {
	return appointmentDTO{
		ID:          a.ID().String(),
		Kind:        a.Kind(),
		Start:       a.Start(),
		End:         a.End(),
		Description: a.Description(),
		Display:     a.Describe(),
	}
}

func toDTOs(appts []*model.Appointment) []appointmentDTO {
	out := make([]appointmentDTO, 0, len(appts))
	for _, a := range appts {
		out = append(out, toDTO(a))
	}
	return out
}

// onResponse is the JSON response shape for /api/appointments/on.
type onResponse struct {
	Date         model.Date       `json:"date"`
	Until        *model.Date      `json:"until,omitempty"`
	Appointments []appointmentDTO `json:"appointments"`
	// Found is the description of the first match, empty when none.
	Found string `json:"found"`
}

// importResponse is the JSON response shape for /api/import.
type importResponse struct {
	Added   []appointmentDTO `json:"added"`
	Skipped []string         `json:"skipped"`
}

func (s *Server) handleList(w http.ResponseWriter, _ *http.Request) {
	var appts []*model.Appointment
	s.book.View(func(m *manager.Manager) {
		appts = m.Appointments()
	})
	writeJSON(w, http.StatusOK, toDTOs(appts))
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	a, ok := s.decodeAppointment(w, r)
	if !ok {
		return
	}

	s.book.Update(func(m *manager.Manager) {
		m.Add(a)
	})
	appLog.Info("appointment added", "id", a.ID(), "display", a.Describe())
	writeJSON(w, http.StatusCreated, toDTO(a))
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var (
		a     *model.Appointment
		found bool
	)
	s.book.View(func(m *manager.Manager) {
		a, found = m.Get(id)
	})
	if !found {
		writeError(w, http.StatusNotFound, "appointment not found")
		return
	}
	writeJSON(w, http.StatusOK, toDTO(a))
}

// handleUpdate replaces an appointment. The replacement gets a new ID; the
// old ID is stale afterwards.
func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	next, ok := s.decodeAppointment(w, r)
	if !ok {
		return
	}

	var replaced bool
	s.book.Update(func(m *manager.Manager) {
		replaced = m.Update(id, next)
	})
	if !replaced {
		writeError(w, http.StatusNotFound, "appointment not found")
		return
	}
	appLog.Info("appointment updated", "old_id", id, "new_id", next.ID(), "display", next.Describe())
	writeJSON(w, http.StatusOK, toDTO(next))
}

// handleDelete removes an appointment. Unknown IDs are not an error.
func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var removed bool
	s.book.Update(func(m *manager.Manager) {
		removed = m.Delete(id)
	})
	appLog.Info("appointment delete", "id", id, "removed", removed)
	w.WriteHeader(http.StatusNoContent)
}

// handleOn answers "what is on this date" (or within a date range).
//
// GET /api/appointments/on?date=2024-01-03[&until=2024-01-10]
func (s *Server) handleOn(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	date, err := model.ParseDate(q.Get("date"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid date: expected yyyy-mm-dd")
		return
	}

	var until *model.Date
	if raw := q.Get("until"); raw != "" {
		u, err := model.ParseDate(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid until: expected yyyy-mm-dd")
			return
		}
		until = &u
	}

	var found []*model.Appointment
	s.book.View(func(m *manager.Manager) {
		found = m.AppointmentsOn(date, until)
	})

	resp := onResponse{
		Date:         date,
		Until:        until,
		Appointments: toDTOs(found),
	}
	if len(found) > 0 {
		resp.Found = found[0].Description()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
		return
	}

	res, err := ics.ParseICS(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid iCalendar payload")
		return
	}

	s.book.Update(func(m *manager.Manager) {
		for _, a := range res.Appointments {
			m.Add(a)
		}
	})

	skipped := res.Skipped
	if skipped == nil {
		skipped = []string{}
	}
	writeJSON(w, http.StatusOK, importResponse{
		Added:   toDTOs(res.Appointments),
		Skipped: skipped,
	})
}

// decodeAppointment reads an appointmentRequest and builds the appointment,
// writing a 400 response on failure.
func (s *Server) decodeAppointment(w http.ResponseWriter, r *http.Request) (*model.Appointment, bool) {
	var req appointmentRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return nil, false
	}

	a, err := req.build()
	if err != nil {
		var rangeErr *model.InvalidRangeError
		switch {
		case errors.As(err, &rangeErr):
			writeError(w, http.StatusBadRequest, rangeErr.Error())
		case errors.Is(err, model.ErrUnknownKind):
			writeError(w, http.StatusBadRequest, "kind must be one of: one-time, daily, monthly")
		default:
			writeError(w, http.StatusBadRequest, err.Error())
		}
		return nil, false
	}
	return a, true
}

func pathID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid appointment id")
		return uuid.UUID{}, false
	}
	return id, true
}
