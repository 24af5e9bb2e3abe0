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

// DoctorStore is the doctor directory on MongoDB.
type DoctorStore struct {
	coll *mongo.Collection
}

func NewDoctorStore(db *mongo.Database) *DoctorStore {
	return &DoctorStore{coll: db.Collection(DoctorsCollection)}
}

func (s *DoctorStore) Create(ctx context.Context, d *models.Doctor) error {
	d.EnsureID()
	now := time.Now().UTC()
	d.CreatedAt, d.UpdatedAt = now, now
	_, err := s.coll.InsertOne(ctx, d)
	return translate(err, "create doctor")
}

func (s *DoctorStore) GetByID(ctx context.Context, id string) (*models.Doctor, error) {
	var d models.Doctor
	if err := s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&d); err != nil {
		return nil, translate(err, "get doctor")
	}
	return &d, nil
}

func (s *DoctorStore) List(ctx context.Context, filter store.DoctorFilter) ([]models.Doctor, error) {
	q := bson.M{}
	if filter.ActiveOnly {
		q["isActive"] = true
	}
	if filter.Specialization != "" {
		q["specialization"] = filter.Specialization
	}
	cursor, err := s.coll.Find(ctx, q, options.Find().SetSort(bson.D{{Key: "name", Value: 1}}))
	if err != nil {
		return nil, translate(err, "list doctors")
	}
	list := []models.Doctor{}
	if err := cursor.All(ctx, &list); err != nil {
		return nil, translate(err, "list doctors")
	}
	return list, nil
}

func (s *DoctorStore) UpdateProfile(ctx context.Context, d *models.Doctor) error {
	res, err := s.coll.UpdateOne(ctx,
		bson.M{"_id": d.ID, "version": d.Version},
		bson.M{
			"$set": bson.M{
				"name":            d.Name,
				"specialization":  d.Specialization,
				"consultationFee": d.ConsultationFee,
				"isActive":        d.IsActive,
				"updatedAt":       time.Now().UTC(),
			},
			"$inc": bson.M{"version": 1},
		})
	if err != nil {
		return translate(err, "update doctor")
	}
	if res.MatchedCount == 0 {
		return versionMiss(ctx, s.coll, d.ID, "update doctor")
	}
	d.Version++
	return nil
}

func (s *DoctorStore) UpdateRating(ctx context.Context, id string, rating models.Rating, version int) error {
	res, err := s.coll.UpdateOne(ctx,
		bson.M{"_id": id, "version": version},
		bson.M{
			"$set": bson.M{"rating": rating, "updatedAt": time.Now().UTC()},
			"$inc": bson.M{"version": 1},
		})
	if err != nil {
		return translate(err, "update doctor rating")
	}
	if res.MatchedCount == 0 {
		return versionMiss(ctx, s.coll, id, "update doctor rating")
	}
	return nil
}
