// Package mongostore persists the booking domain in MongoDB.
package mongostore

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"healthcare-booking-server/internal/store"
)

// Collection names.
const (
	AppointmentsCollection = "appointments"
	DoctorsCollection      = "doctors"
	UsersCollection        = "users"
)

// Connect dials MongoDB and verifies the connection.
func Connect(ctx context.Context, uri string) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect to mongodb")
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, errors.Wrap(err, "failed to ping mongodb")
	}
	return client, nil
}

// EnsureIndexes creates the indexes the stores rely on. The partial unique
// index on activeSlotKey only covers documents holding a slot, so cancelled
// and finished appointments never collide.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	_, err := db.Collection(AppointmentsCollection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "activeSlotKey", Value: 1}},
			Options: options.Index().
				SetName("uniq_active_slot").
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"activeSlotKey": bson.M{"$exists": true}}),
		},
		{Keys: bson.D{{Key: "doctorId", Value: 1}, {Key: "appointmentDate", Value: 1}, {Key: "appointmentTime", Value: 1}}},
		{Keys: bson.D{{Key: "patientId", Value: 1}}},
	})
	if err != nil {
		return errors.Wrap(err, "failed to create appointment indexes")
	}

	_, err = db.Collection(UsersCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return errors.Wrap(err, "failed to create user indexes")
	}

	_, err = db.Collection(DoctorsCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "specialization", Value: 1}, {Key: "isActive", Value: 1}},
	})
	return errors.Wrap(err, "failed to create doctor indexes")
}

func translate(err error, op string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return errors.Wrap(store.ErrNotFound, op)
	case mongo.IsDuplicateKeyError(err):
		return errors.Wrap(store.ErrDuplicate, op)
	}
	return errors.Wrap(err, op)
}

// versionMiss decides between not found and stale after a versioned write matched nothing.
func versionMiss(ctx context.Context, coll *mongo.Collection, id, op string) error {
	n, err := coll.CountDocuments(ctx, bson.M{"_id": id}, options.Count().SetLimit(1))
	if err != nil {
		return errors.Wrap(err, op)
	}
	if n == 0 {
		return errors.Wrap(store.ErrNotFound, op)
	}
	return errors.Wrap(store.ErrStale, op)
}
