package booking

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"healthcare-booking-server/internal/models"
	"healthcare-booking-server/internal/store"
)

type fixedClock struct{ now time.Time }

func (c *fixedClock) Now() time.Time { return c.now }

// memAppointments mirrors the database guarantees: unique active slot key and
// versioned updates.
type memAppointments struct {
	mu      sync.Mutex
	records map[string]models.Appointment
	seq     int

	listErr error
}

func newMemAppointments() *memAppointments {
	return &memAppointments{records: map[string]models.Appointment{}}
}

func (m *memAppointments) slotTaken(key *string, exceptID string) bool {
	if key == nil {
		return false
	}
	for id, r := range m.records {
		if id != exceptID && r.ActiveSlotKey != nil && *r.ActiveSlotKey == *key {
			return true
		}
	}
	return false
}

func (m *memAppointments) Create(_ context.Context, a *models.Appointment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.slotTaken(a.ActiveSlotKey, "") {
		return store.ErrDuplicate
	}
	if a.ID == "" {
		m.seq++
		a.ID = fmt.Sprintf("appt-%d", m.seq)
	}
	m.records[a.ID] = clone(*a)
	return nil
}

func (m *memAppointments) GetByID(_ context.Context, id string) (*models.Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.records[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	c := clone(r)
	return &c, nil
}

func (m *memAppointments) Update(_ context.Context, a *models.Appointment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.records[a.ID]
	if !ok {
		return store.ErrNotFound
	}
	if r.Version != a.Version {
		return store.ErrStale
	}
	if m.slotTaken(a.ActiveSlotKey, a.ID) {
		return store.ErrDuplicate
	}
	a.Version++
	m.records[a.ID] = clone(*a)
	return nil
}

func (m *memAppointments) List(_ context.Context, f store.AppointmentFilter) ([]models.Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	var out []models.Appointment
	for _, r := range m.records {
		if f.PatientID != "" && r.PatientID != f.PatientID {
			continue
		}
		if f.DoctorID != "" && r.DoctorID != f.DoctorID {
			continue
		}
		if f.Status != "" && r.Status != f.Status {
			continue
		}
		out = append(out, clone(r))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memAppointments) ExistsActiveInSlot(_ context.Context, doctorID, date, clock string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.records {
		if r.DoctorID == doctorID && r.AppointmentDate == date && r.AppointmentTime == clock && r.IsActive() {
			return true, nil
		}
	}
	return false, nil
}

func (m *memAppointments) ListReviewed(_ context.Context, doctorID string) ([]models.Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	var out []models.Appointment
	for _, r := range m.records {
		if r.DoctorID == doctorID && r.HasReview() {
			out = append(out, clone(r))
		}
	}
	return out, nil
}

func (m *memAppointments) put(a models.Appointment) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a.SyncSlotKey()
	if m.slotTaken(a.ActiveSlotKey, a.ID) {
		panic(fmt.Sprintf("fixture %s reuses active slot %s", a.ID, *a.ActiveSlotKey))
	}
	m.records[a.ID] = clone(a)
}

func (m *memAppointments) activeInSlot(doctorID, date, clock string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, r := range m.records {
		if r.DoctorID == doctorID && r.AppointmentDate == date && r.AppointmentTime == clock && r.IsActive() {
			n++
		}
	}
	return n
}

func clone(a models.Appointment) models.Appointment {
	if a.Reviews != nil {
		a.Reviews = append([]models.Review(nil), a.Reviews...)
	}
	if a.ActiveSlotKey != nil {
		k := *a.ActiveSlotKey
		a.ActiveSlotKey = &k
	}
	return a
}

type memDoctors struct {
	mu      sync.Mutex
	records map[string]models.Doctor

	// staleWrites makes the next n UpdateRating calls lose the race.
	staleWrites int
	writes      int
}

func newMemDoctors(docs ...models.Doctor) *memDoctors {
	m := &memDoctors{records: map[string]models.Doctor{}}
	for _, d := range docs {
		m.records[d.ID] = d
	}
	return m
}

func (m *memDoctors) GetByID(_ context.Context, id string) (*models.Doctor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.records[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &d, nil
}

func (m *memDoctors) UpdateRating(_ context.Context, id string, rating models.Rating, version int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.records[id]
	if !ok {
		return store.ErrNotFound
	}
	if m.staleWrites > 0 {
		m.staleWrites--
		d.Version++
		m.records[id] = d
		return store.ErrStale
	}
	if d.Version != version {
		return store.ErrStale
	}
	d.Rating = rating
	d.Version++
	m.records[id] = d
	m.writes++
	return nil
}

func (m *memDoctors) rating(id string) models.Rating {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.records[id].Rating
}

func testDoctor(id string, fee float64) models.Doctor {
	return models.Doctor{
		BaseModel:       models.BaseModel{ID: id},
		Name:            "Dr. " + id,
		Specialization:  "Cardiology",
		ConsultationFee: fee,
		IsActive:        true,
	}
}
