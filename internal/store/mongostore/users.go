package mongostore

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"healthcare-booking-server/internal/models"
	"healthcare-booking-server/internal/store"
)

// UserStore is the user directory on MongoDB.
type UserStore struct {
	users   *mongo.Collection
	doctors *mongo.Collection
}

func NewUserStore(db *mongo.Database) *UserStore {
	return &UserStore{
		users:   db.Collection(UsersCollection),
		doctors: db.Collection(DoctorsCollection),
	}
}

// Create inserts the user and, when given, the doctor profile. Standalone
// deployments have no transactions, so a failed profile insert removes the
// user again.
func (s *UserStore) Create(ctx context.Context, u *models.User, profile *models.Doctor) error {
	u.EnsureID()
	now := time.Now().UTC()
	u.CreatedAt, u.UpdatedAt = now, now
	if _, err := s.users.InsertOne(ctx, u); err != nil {
		return translate(err, "create user")
	}
	if profile == nil {
		return nil
	}
	profile.ID = u.ID
	profile.CreatedAt, profile.UpdatedAt = now, now
	if _, err := s.doctors.InsertOne(ctx, profile); err != nil {
		if _, delErr := s.users.DeleteOne(ctx, bson.M{"_id": u.ID}); delErr != nil {
			return errors.Wrapf(err, "create doctor profile (user %s left behind: %v)", u.ID, delErr)
		}
		return translate(err, "create doctor profile")
	}
	return nil
}

func (s *UserStore) GetByID(ctx context.Context, id string) (*models.User, error) {
	var u models.User
	if err := s.users.FindOne(ctx, bson.M{"_id": id}).Decode(&u); err != nil {
		return nil, translate(err, "get user")
	}
	return &u, nil
}

func (s *UserStore) List(ctx context.Context, filter store.UserFilter) ([]models.User, error) {
	q := bson.M{}
	if filter.Role != "" {
		q["role"] = filter.Role
	}
	cursor, err := s.users.Find(ctx, q, options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}))
	if err != nil {
		return nil, translate(err, "list users")
	}
	list := []models.User{}
	if err := cursor.All(ctx, &list); err != nil {
		return nil, translate(err, "list users")
	}
	return list, nil
}

func (s *UserStore) SetActive(ctx context.Context, id string, active bool) error {
	now := time.Now().UTC()
	res, err := s.users.UpdateOne(ctx, bson.M{"_id": id},
		bson.M{"$set": bson.M{"isActive": active, "updatedAt": now}})
	if err != nil {
		return translate(err, "set user active")
	}
	if res.MatchedCount == 0 {
		return errors.Wrap(store.ErrNotFound, "set user active")
	}
	_, err = s.doctors.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$set": bson.M{"isActive": active, "updatedAt": now},
		"$inc": bson.M{"version": 1},
	})
	return translate(err, "set doctor active")
}
