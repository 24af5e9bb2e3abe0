package booking

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"healthcare-booking-server/internal/models"
	"healthcare-booking-server/internal/store"
)

var testNow = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

type harness struct {
	svc   *Service
	appts *memAppointments
	docs  *memDoctors
	clock *fixedClock
}

func newHarness(t *testing.T, opts ...Option) *harness {
	t.Helper()
	h := &harness{
		appts: newMemAppointments(),
		docs:  newMemDoctors(testDoctor("doc-1", 200), testDoctor("doc-2", 150)),
		clock: &fixedClock{now: testNow},
	}
	opts = append([]Option{WithClock(h.clock)}, opts...)
	h.svc = NewService(h.appts, h.docs, opts...)
	return h
}

// seed stores an appointment scheduled `in` from now.
func (h *harness) seed(id string, status models.AppointmentStatus, in time.Duration) models.Appointment {
	at := h.clock.now.Add(in)
	a := models.Appointment{
		BaseModel:        models.BaseModel{ID: id},
		PatientID:        "pat-1",
		DoctorID:         "doc-1",
		AppointmentDate:  at.Format(models.DateLayout),
		AppointmentTime:  at.Format(models.TimeLayout),
		Duration:         30,
		Status:           status,
		ConsultationType: models.ConsultationInPerson,
		Reason:           "checkup",
		Reviews:          []models.Review{},
	}
	h.appts.put(a)
	return a
}

func bookReq(patient, doctor, date, clock string) BookingRequest {
	return BookingRequest{PatientID: patient, DoctorID: doctor, Date: date, Time: clock, Reason: "chest pain"}
}

var (
	patient = Actor{UserID: "pat-1", Role: models.RolePatient}
	doctor  = Actor{UserID: "doc-1", Role: models.RoleDoctor}
	admin   = Actor{UserID: "adm-1", Role: models.RoleAdmin}
)

func TestBookThenConflict(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	a, err := h.svc.Book(ctx, bookReq("pat-1", "doc-1", "2026-03-11", "10:00"))
	require.NoError(t, err)
	assert.Equal(t, models.StatusScheduled, a.Status)
	assert.Equal(t, 200.0, a.Payment.Amount)
	assert.Equal(t, models.PaymentPending, a.Payment.Status)
	assert.Equal(t, 30, a.Duration)
	assert.Equal(t, models.ConsultationInPerson, a.ConsultationType)
	assert.Empty(t, a.Reviews)
	require.NotNil(t, a.ActiveSlotKey)

	_, err = h.svc.Book(ctx, bookReq("pat-2", "doc-1", "2026-03-11", "10:00"))
	assert.ErrorIs(t, err, ErrConflict)

	// same slot, other doctor
	_, err = h.svc.Book(ctx, bookReq("pat-2", "doc-2", "2026-03-11", "10:00"))
	assert.NoError(t, err)
}

func TestBookRejections(t *testing.T) {
	h := newHarness(t)
	h.docs.records["doc-off"] = models.Doctor{BaseModel: models.BaseModel{ID: "doc-off"}, IsActive: false}

	tests := []struct {
		name string
		req  BookingRequest
		want error
	}{
		{"unknown doctor", bookReq("pat-1", "nobody", "2026-03-11", "10:00"), ErrNotFound},
		{"inactive doctor", bookReq("pat-1", "doc-off", "2026-03-11", "10:00"), ErrNotFound},
		{"exactly now", bookReq("pat-1", "doc-1", "2026-03-10", "09:00"), ErrInvalidInput},
		{"past", bookReq("pat-1", "doc-1", "2026-03-09", "10:00"), ErrInvalidInput},
		{"bad date", bookReq("pat-1", "doc-1", "2026-02-30", "10:00"), ErrInvalidInput},
		{"bad time", bookReq("pat-1", "doc-1", "2026-03-11", "24:00"), ErrInvalidInput},
		{"missing reason", BookingRequest{PatientID: "pat-1", DoctorID: "doc-1", Date: "2026-03-11", Time: "10:00"}, ErrInvalidInput},
		{"bad consultation", func() BookingRequest {
			r := bookReq("pat-1", "doc-1", "2026-03-11", "10:00")
			r.ConsultationType = "carrier-pigeon"
			return r
		}(), ErrInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.svc.Book(context.Background(), tt.req)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestBookOneMinuteAheadSucceeds(t *testing.T) {
	h := newHarness(t)
	_, err := h.svc.Book(context.Background(), bookReq("pat-1", "doc-1", "2026-03-10", "09:01"))
	assert.NoError(t, err)
}

func TestBookDuplicateKeyFromStoreIsConflict(t *testing.T) {
	h := newHarness(t)
	// a concurrent booking won between the check and the insert
	taken := models.SlotKey("doc-1", "2026-03-11", "10:00")
	h.appts.records["ghost"] = models.Appointment{
		BaseModel:     models.BaseModel{ID: "ghost"},
		DoctorID:      "doc-2",
		ActiveSlotKey: &taken,
	}
	_, err := h.svc.Book(context.Background(), bookReq("pat-1", "doc-1", "2026-03-11", "10:00"))
	assert.ErrorIs(t, err, ErrConflict)
}

func TestBookRejectsUnpaddedSlotSpelling(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.svc.Book(ctx, bookReq("pat-1", "doc-1", "2026-03-11", "09:30"))
	require.NoError(t, err)

	for _, alias := range []struct{ date, clock string }{
		{"2026-03-11", "9:30"},
		{"2026-3-11", "09:30"},
	} {
		_, err = h.svc.Book(ctx, bookReq("pat-2", "doc-1", alias.date, alias.clock))
		assert.ErrorIs(t, err, ErrInvalidInput, "%s %s", alias.date, alias.clock)

		_, err = h.svc.IsSlotAvailable(ctx, "doc-1", alias.date, alias.clock)
		assert.ErrorIs(t, err, ErrInvalidInput)
	}
	assert.Equal(t, 1, h.appts.activeInSlot("doc-1", "2026-03-11", "09:30"))
	assert.Len(t, h.appts.records, 1)
}

func TestSaveDuplicateSlotIsConflict(t *testing.T) {
	h := newHarness(t)
	a := h.seed("a1", models.StatusScheduled, 72*time.Hour)
	// a row the unique index already holds for the same slot
	key := models.SlotKey(a.DoctorID, a.AppointmentDate, a.AppointmentTime)
	h.appts.records["ghost"] = models.Appointment{BaseModel: models.BaseModel{ID: "ghost"}, ActiveSlotKey: &key}

	_, err := h.svc.Update(context.Background(), "a1", doctor, ConfirmIntent{})
	var be *Error
	require.ErrorAs(t, err, &be)
	assert.Equal(t, KindConflict, be.Kind)
}

func TestFixturesCannotShareActiveSlot(t *testing.T) {
	h := newHarness(t)
	h.seed("a1", models.StatusScheduled, 72*time.Hour)
	h.seed("done", models.StatusCancelled, 72*time.Hour)
	assert.Panics(t, func() { h.seed("a2", models.StatusConfirmed, 72*time.Hour) })
}

func TestBookFreesSlotAfterCancel(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	a, err := h.svc.Book(ctx, bookReq("pat-1", "doc-1", "2026-03-14", "10:00"))
	require.NoError(t, err)

	_, err = h.svc.Cancel(ctx, a.ID, patient, "")
	require.NoError(t, err)

	_, err = h.svc.Book(ctx, bookReq("pat-2", "doc-1", "2026-03-14", "10:00"))
	assert.NoError(t, err)
}

func TestCancelByPatientBeforeCutoff(t *testing.T) {
	h := newHarness(t)
	h.seed("a1", models.StatusScheduled, 48*time.Hour)

	a, err := h.svc.Cancel(context.Background(), "a1", patient, "change of plan")
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, a.Status)
	assert.Equal(t, models.RolePatient, a.CancelledBy)
	assert.Equal(t, "change of plan", a.CancellationReason)
	require.NotNil(t, a.CancelledAt)
	assert.True(t, a.CancelledAt.Equal(testNow))
	assert.Nil(t, a.ActiveSlotKey)
}

func TestCancelInsideCutoff(t *testing.T) {
	h := newHarness(t)
	h.seed("a1", models.StatusScheduled, 2*time.Hour)

	_, err := h.svc.Cancel(context.Background(), "a1", patient, "too late")
	assert.ErrorIs(t, err, ErrPolicyViolation)

	stored, _ := h.appts.GetByID(context.Background(), "a1")
	assert.Equal(t, models.StatusScheduled, stored.Status)
}

func TestCancelCutoffBoundaries(t *testing.T) {
	tests := []struct {
		name string
		in   time.Duration
		want error
	}{
		{"24h minus a minute", 24*time.Hour - time.Minute, ErrPolicyViolation},
		{"exactly 24h", 24 * time.Hour, ErrPolicyViolation},
		{"24h plus a minute", 24*time.Hour + time.Minute, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			h.seed("a1", models.StatusConfirmed, tt.in)
			_, err := h.svc.Cancel(context.Background(), "a1", doctor, "")
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestAdminCancelIgnoresCutoff(t *testing.T) {
	h := newHarness(t)
	h.seed("a1", models.StatusScheduled, time.Hour)

	a, err := h.svc.Cancel(context.Background(), "a1", admin, "clinic closed")
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, a.CancelledBy)
}

func TestCancelTwiceIsInvalidState(t *testing.T) {
	h := newHarness(t)
	h.seed("a1", models.StatusScheduled, 72*time.Hour)
	ctx := context.Background()

	first, err := h.svc.Cancel(ctx, "a1", patient, "first")
	require.NoError(t, err)

	h.clock.now = h.clock.now.Add(time.Hour)
	_, err = h.svc.Cancel(ctx, "a1", patient, "second")
	assert.ErrorIs(t, err, ErrInvalidState)

	stored, _ := h.appts.GetByID(ctx, "a1")
	assert.Equal(t, "first", stored.CancellationReason)
	assert.True(t, stored.CancelledAt.Equal(*first.CancelledAt))
}

func TestCancelTerminalStatuses(t *testing.T) {
	for _, status := range []models.AppointmentStatus{models.StatusCompleted, models.StatusNoShow, models.StatusCancelled} {
		t.Run(string(status), func(t *testing.T) {
			h := newHarness(t)
			h.seed("a1", status, 72*time.Hour)
			_, err := h.svc.Cancel(context.Background(), "a1", admin, "")
			assert.ErrorIs(t, err, ErrInvalidState)
		})
	}
}

func TestCancelForbiddenForStranger(t *testing.T) {
	h := newHarness(t)
	h.seed("a1", models.StatusScheduled, 72*time.Hour)
	_, err := h.svc.Cancel(context.Background(), "a1", Actor{UserID: "pat-9", Role: models.RolePatient}, "")
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestCancelReasonTooLong(t *testing.T) {
	h := newHarness(t)
	h.seed("a1", models.StatusScheduled, 72*time.Hour)
	long := make([]rune, maxReasonLen+1)
	for i := range long {
		long[i] = 'é'
	}
	_, err := h.svc.Cancel(context.Background(), "a1", patient, string(long))
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestCancelUnknownAppointment(t *testing.T) {
	h := newHarness(t)
	_, err := h.svc.Cancel(context.Background(), "missing", patient, "")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAddReviewUpdatesRating(t *testing.T) {
	h := newHarness(t)
	h.seed("a1", models.StatusCompleted, -24*time.Hour)
	ctx := context.Background()

	a, err := h.svc.AddReview(ctx, "a1", "pat-1", 5, "great")
	require.NoError(t, err)
	require.Len(t, a.Reviews, 1)
	assert.Equal(t, 5, a.Reviews[0].Rating)
	assert.Equal(t, "pat-1", a.Reviews[0].User)
	assert.Equal(t, models.Rating{Average: 5, Count: 1}, h.docs.rating("doc-1"))

	_, err = h.svc.AddReview(ctx, "a1", "pat-1", 4, "again")
	assert.ErrorIs(t, err, ErrInvalidState)
	assert.Equal(t, models.Rating{Average: 5, Count: 1}, h.docs.rating("doc-1"))
}

func TestAddReviewRejections(t *testing.T) {
	h := newHarness(t)
	h.seed("done", models.StatusCompleted, -24*time.Hour)
	h.seed("open", models.StatusConfirmed, 24*time.Hour)
	ctx := context.Background()

	_, err := h.svc.AddReview(ctx, "open", "pat-1", 4, "")
	assert.ErrorIs(t, err, ErrInvalidState)

	_, err = h.svc.AddReview(ctx, "done", "pat-2", 4, "")
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = h.svc.AddReview(ctx, "done", "pat-1", 0, "")
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = h.svc.AddReview(ctx, "done", "pat-1", 6, "")
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = h.svc.AddReview(ctx, "nope", "pat-1", 3, "")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAddReviewSurvivesAggregatorFailure(t *testing.T) {
	h := newHarness(t)
	h.seed("a1", models.StatusCompleted, -24*time.Hour)
	h.appts.listErr = errors.New("replica unavailable")

	a, err := h.svc.AddReview(context.Background(), "a1", "pat-1", 3, "")
	require.NoError(t, err)
	assert.True(t, a.HasReview())
	assert.Equal(t, models.Rating{}, h.docs.rating("doc-1"))
}

func TestUpdateDoctorCompletesConfirmed(t *testing.T) {
	h := newHarness(t)
	h.seed("a1", models.StatusConfirmed, time.Hour)
	ctx := context.Background()

	intent, err := StatusIntent(models.StatusCompleted, "")
	require.NoError(t, err)

	_, err = h.svc.Update(ctx, "a1", patient, intent)
	assert.ErrorIs(t, err, ErrForbidden)

	a, err := h.svc.Update(ctx, "a1", doctor, intent)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, a.Status)
	assert.Nil(t, a.ActiveSlotKey)
}

func TestUpdateTransitions(t *testing.T) {
	tests := []struct {
		name   string
		from   models.AppointmentStatus
		intent UpdateIntent
		want   models.AppointmentStatus
		err    error
	}{
		{"confirm scheduled", models.StatusScheduled, ConfirmIntent{}, models.StatusConfirmed, nil},
		{"confirm confirmed", models.StatusConfirmed, ConfirmIntent{}, "", ErrInvalidState},
		{"complete scheduled", models.StatusScheduled, CompleteIntent{}, models.StatusCompleted, nil},
		{"complete cancelled", models.StatusCancelled, CompleteIntent{}, "", ErrInvalidState},
		{"no-show confirmed", models.StatusConfirmed, NoShowIntent{}, models.StatusNoShow, nil},
		{"no-show completed", models.StatusCompleted, NoShowIntent{}, "", ErrInvalidState},
		{"cancel no-show", models.StatusNoShow, CancelIntent{}, "", ErrInvalidState},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			h.seed("a1", tt.from, 72*time.Hour)
			a, err := h.svc.Update(context.Background(), "a1", doctor, tt.intent)
			if tt.err != nil {
				assert.ErrorIs(t, err, tt.err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, a.Status)
		})
	}
}

func TestStatusIntentRejectsScheduled(t *testing.T) {
	_, err := StatusIntent(models.StatusScheduled, "")
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = StatusIntent("rescheduled", "")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestUpdateCancelCutoff(t *testing.T) {
	h := newHarness(t)
	h.seed("a1", models.StatusScheduled, 2*time.Hour)
	_, err := h.svc.Update(context.Background(), "a1", patient, CancelIntent{Reason: "sick"})
	assert.ErrorIs(t, err, ErrPolicyViolation)

	lenient := newHarness(t, WithUpdateCancelCutoff(false))
	lenient.seed("a1", models.StatusScheduled, 2*time.Hour)
	a, err := lenient.svc.Update(context.Background(), "a1", patient, CancelIntent{Reason: "sick"})
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, a.Status)
	assert.Equal(t, models.RolePatient, a.CancelledBy)
}

func TestUpdateCompleteWithNotes(t *testing.T) {
	h := newHarness(t)
	h.seed("a1", models.StatusConfirmed, time.Hour)
	notes, rx := "stable", "rest"

	a, err := h.svc.Update(context.Background(), "a1", doctor,
		CompleteIntent{}, NotesIntent{Notes: &notes, Prescription: &rx})
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, a.Status)
	assert.Equal(t, "stable", a.Notes)
	assert.Equal(t, "rest", a.Prescription)

	more := "follow-up"
	_, err = h.svc.Update(context.Background(), "a1", doctor, NotesIntent{Notes: &more})
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestUpdateNotesForbiddenForPatient(t *testing.T) {
	h := newHarness(t)
	h.seed("a1", models.StatusScheduled, time.Hour)
	notes := "self-diagnosed"
	_, err := h.svc.Update(context.Background(), "a1", patient, NotesIntent{Notes: &notes})
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestUpdateClinicalEdit(t *testing.T) {
	h := newHarness(t)
	h.seed("a1", models.StatusScheduled, 72*time.Hour)
	h.seed("a2", models.StatusConfirmed, 73*time.Hour)
	ctx := context.Background()
	symptoms := "cough"
	video := models.ConsultationVideo

	a, err := h.svc.Update(ctx, "a1", patient, ClinicalEditIntent{Symptoms: &symptoms, ConsultationType: &video})
	require.NoError(t, err)
	assert.Equal(t, "cough", a.Symptoms)
	assert.Equal(t, models.ConsultationVideo, a.ConsultationType)
	assert.Equal(t, "checkup", a.Reason)

	_, err = h.svc.Update(ctx, "a2", patient, ClinicalEditIntent{Symptoms: &symptoms})
	assert.ErrorIs(t, err, ErrInvalidState)

	_, err = h.svc.Update(ctx, "a1", doctor, ClinicalEditIntent{Symptoms: &symptoms})
	assert.ErrorIs(t, err, ErrForbidden)

	empty := ""
	_, err = h.svc.Update(ctx, "a1", patient, ClinicalEditIntent{Reason: &empty})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestUpdateRejectsAdminAndEmpty(t *testing.T) {
	h := newHarness(t)
	h.seed("a1", models.StatusScheduled, 72*time.Hour)
	_, err := h.svc.Update(context.Background(), "a1", admin, ConfirmIntent{})
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = h.svc.Update(context.Background(), "a1", doctor)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestUpdateIsAllOrNothing(t *testing.T) {
	h := newHarness(t)
	h.seed("a1", models.StatusScheduled, 72*time.Hour)
	notes := "x"
	// the second intent fails so the first must not be persisted
	_, err := h.svc.Update(context.Background(), "a1", doctor, NotesIntent{Notes: &notes}, ConfirmIntent{}, ConfirmIntent{})
	assert.ErrorIs(t, err, ErrInvalidState)

	stored, _ := h.appts.GetByID(context.Background(), "a1")
	assert.Equal(t, models.StatusScheduled, stored.Status)
	assert.Empty(t, stored.Notes)
}

func TestUpdateStaleWriteIsConflict(t *testing.T) {
	h := newHarness(t)
	h.seed("a1", models.StatusScheduled, 72*time.Hour)
	stale, _ := h.appts.GetByID(context.Background(), "a1")

	_, err := h.svc.Update(context.Background(), "a1", doctor, ConfirmIntent{})
	require.NoError(t, err)

	stale.Status = models.StatusCancelled
	err = h.svc.save(context.Background(), stale)
	assert.ErrorIs(t, err, ErrConflict)
	assert.True(t, errors.Is(h.appts.Update(context.Background(), stale), store.ErrStale))
}

func TestGetAndList(t *testing.T) {
	h := newHarness(t)
	h.seed("a1", models.StatusScheduled, 72*time.Hour)
	other := h.seed("a2", models.StatusCompleted, -72*time.Hour)
	other.PatientID = "pat-2"
	h.appts.put(other)
	ctx := context.Background()

	_, err := h.svc.Get(ctx, "a1", patient)
	assert.NoError(t, err)
	_, err = h.svc.Get(ctx, "a2", patient)
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = h.svc.Get(ctx, "a2", admin)
	assert.NoError(t, err)

	mine, err := h.svc.ListForActor(ctx, patient, "")
	require.NoError(t, err)
	assert.Len(t, mine, 1)

	docs, err := h.svc.ListForActor(ctx, doctor, models.StatusCompleted)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "a2", docs[0].ID)

	all, err := h.svc.ListForActor(ctx, admin, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	_, err = h.svc.ListForActor(ctx, admin, "bogus")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestLocationShiftsNow(t *testing.T) {
	berlin, err := time.LoadLocation("Europe/Berlin")
	require.NoError(t, err)
	h := newHarness(t, WithLocation(berlin))

	// 09:00 UTC is 10:00 in Berlin in March before DST
	_, err = h.svc.Book(context.Background(), bookReq("pat-1", "doc-1", "2026-03-10", "09:30"))
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = h.svc.Book(context.Background(), bookReq("pat-1", "doc-1", "2026-03-10", "10:30"))
	assert.NoError(t, err)
}
