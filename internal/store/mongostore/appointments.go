package mongostore

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"healthcare-booking-server/internal/models"
	"healthcare-booking-server/internal/store"
)

// AppointmentStore implements booking.AppointmentStore on MongoDB.
type AppointmentStore struct {
	coll *mongo.Collection
}

func NewAppointmentStore(db *mongo.Database) *AppointmentStore {
	return &AppointmentStore{coll: db.Collection(AppointmentsCollection)}
}

func (s *AppointmentStore) Create(ctx context.Context, a *models.Appointment) error {
	a.EnsureID()
	now := time.Now().UTC()
	a.CreatedAt, a.UpdatedAt = now, now
	_, err := s.coll.InsertOne(ctx, a)
	return translate(err, "create appointment")
}

func (s *AppointmentStore) GetByID(ctx context.Context, id string) (*models.Appointment, error) {
	var a models.Appointment
	if err := s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&a); err != nil {
		return nil, translate(err, "get appointment")
	}
	return &a, nil
}

// Update replaces the document when the stored version still matches.
// activeSlotKey is omitted once the slot is released, which drops the
// document out of the partial unique index.
func (s *AppointmentStore) Update(ctx context.Context, a *models.Appointment) error {
	expected := a.Version
	a.Version = expected + 1
	a.UpdatedAt = time.Now().UTC()
	res, err := s.coll.ReplaceOne(ctx, bson.M{"_id": a.ID, "version": expected}, a)
	if err != nil {
		a.Version = expected
		return translate(err, "update appointment")
	}
	if res.MatchedCount == 0 {
		a.Version = expected
		return versionMiss(ctx, s.coll, a.ID, "update appointment")
	}
	return nil
}

func (s *AppointmentStore) List(ctx context.Context, filter store.AppointmentFilter) ([]models.Appointment, error) {
	q := bson.M{}
	if filter.PatientID != "" {
		q["patientId"] = filter.PatientID
	}
	if filter.DoctorID != "" {
		q["doctorId"] = filter.DoctorID
	}
	if filter.Status != "" {
		q["status"] = filter.Status
	}
	opts := options.Find().SetSort(bson.D{
		{Key: "appointmentDate", Value: -1},
		{Key: "appointmentTime", Value: -1},
	})
	return s.find(ctx, q, opts, "list appointments")
}

func (s *AppointmentStore) ExistsActiveInSlot(ctx context.Context, doctorID, date, clock string) (bool, error) {
	n, err := s.coll.CountDocuments(ctx, bson.M{
		"doctorId":        doctorID,
		"appointmentDate": date,
		"appointmentTime": clock,
		"status":          bson.M{"$in": models.ActiveStatuses},
	}, options.Count().SetLimit(1))
	if err != nil {
		return false, translate(err, "check slot")
	}
	return n > 0, nil
}

func (s *AppointmentStore) ListReviewed(ctx context.Context, doctorID string) ([]models.Appointment, error) {
	return s.find(ctx, bson.M{
		"doctorId":  doctorID,
		"reviews.0": bson.M{"$exists": true},
	}, nil, "list reviewed appointments")
}

func (s *AppointmentStore) find(ctx context.Context, q bson.M, opts *options.FindOptions, op string) ([]models.Appointment, error) {
	cursor, err := s.coll.Find(ctx, q, opts)
	if err != nil {
		return nil, translate(err, op)
	}
	list := []models.Appointment{}
	if err := cursor.All(ctx, &list); err != nil {
		return nil, translate(err, op)
	}
	return list, nil
}
