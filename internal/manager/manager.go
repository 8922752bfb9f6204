// Package manager holds the in-memory appointment collection and answers
// date queries against it.
package manager

import (
	"slices"
	"sync"

	"github.com/google/uuid"

	appLog "apptcal/internal/log"
	"apptcal/internal/model"
)

// Manager owns an ordered collection of appointments.
//
// Manager is not safe for concurrent use. Hosts with more than one caller
// wrap it in Locked.
type Manager struct {
	appointments []*model.Appointment
}

// New returns an empty Manager.
func New() *Manager {
	return &Manager{}
}

// Add appends a. Content-identical appointments are kept as separate
// entries; nil is ignored.
func (m *Manager) Add(a *model.Appointment) {
	if a == nil {
		return
	}
	m.appointments = append(m.appointments, a)
	appLog.Debug("appointment added", "id", a.ID(), "kind", a.Kind(), "count", len(m.appointments))
}

// Delete removes the appointment with the given ID. It reports whether an
// entry was removed; an unknown ID is a no-op.
func (m *Manager) Delete(id uuid.UUID) bool {
	i := m.indexOf(id)
	if i < 0 {
		appLog.Debug("delete: appointment not found", "id", id)
		return false
	}
	m.appointments = slices.Delete(m.appointments, i, i+1)
	appLog.Debug("appointment deleted", "id", id, "count", len(m.appointments))
	return true
}

// Update replaces the appointment with the given ID by next, keeping its
// position. It reports whether a replacement happened; an unknown ID or a
// nil next is a no-op. After a successful update the old ID no longer
// matches anything.
func (m *Manager) Update(id uuid.UUID, next *model.Appointment) bool {
	if next == nil {
		return false
	}
	i := m.indexOf(id)
	if i < 0 {
		appLog.Debug("update: appointment not found", "id", id)
		return false
	}
	m.appointments[i] = next
	appLog.Debug("appointment updated", "old_id", id, "new_id", next.ID())
	return true
}

// Get returns the appointment with the given ID.
func (m *Manager) Get(id uuid.UUID) (*model.Appointment, bool) {
	i := m.indexOf(id)
	if i < 0 {
		return nil, false
	}
	return m.appointments[i], true
}

// Appointments returns a snapshot of the collection in storage order.
// Appointments are immutable, so sharing the pointers is safe.
func (m *Manager) Appointments() []*model.Appointment {
	return slices.Clone(m.appointments)
}

// Len returns the number of stored appointments.
func (m *Manager) Len() int {
	return len(m.appointments)
}

// AppointmentsOn returns, in storage order, the appointments active on date
// when until is nil, or active on at least one day of [date, *until]
// otherwise. A range with date after *until matches nothing.
func (m *Manager) AppointmentsOn(date model.Date, until *model.Date) []*model.Appointment {
	out := make([]*model.Appointment, 0)
	if until != nil && date.After(*until) {
		return out
	}

	for _, a := range m.appointments {
		var hit bool
		if until == nil {
			hit = a.OccursOn(date)
		} else {
			hit = a.OccursBetween(date, *until)
		}
		if hit {
			out = append(out, a)
		}
	}
	return out
}

func (m *Manager) indexOf(id uuid.UUID) int {
	return slices.IndexFunc(m.appointments, func(a *model.Appointment) bool {
		return a.ID() == id
	})
}

// Locked serializes access to a Manager shared by concurrent callers
// (HTTP handlers and the agenda job).
type Locked struct {
	mu sync.RWMutex
	m  *Manager
}

// NewLocked wraps m. A nil m gets a fresh empty Manager.
func NewLocked(m *Manager) *Locked {
	if m == nil {
		m = New()
	}
	return &Locked{m: m}
}

// View runs fn with shared access. fn must not mutate the manager.
func (l *Locked) View(fn func(m *Manager)) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	fn(l.m)
}

// Update runs fn with exclusive access.
func (l *Locked) Update(fn func(m *Manager)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fn(l.m)
}
