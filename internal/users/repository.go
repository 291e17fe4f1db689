package users

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

var (
	ErrNotFound       = errors.New("users: profile not found")
	ErrDuplicatePhone = errors.New("users: phone already registered")
)

// Repository is the persistence contract for user profiles.
//
// AppendCall MUST be append-only: no method rewrites or removes existing call
// records. The store's per-document atomic update is the only concurrency
// primitive assumed.
type Repository interface {
	FindByPhone(ctx context.Context, phone string) (User, error)
	Insert(ctx context.Context, u User) error
	Update(ctx context.Context, phone string, patch ProfileUpdate, now time.Time) error
	AppendCall(ctx context.Context, phone string, rec CallRecord, now time.Time) error
	TouchLastUpdated(ctx context.Context, phone string, now time.Time) error
	Count(ctx context.Context) (int64, error)
}

// MongoRepo stores profiles in the Users collection.
type MongoRepo struct {
	coll *mongo.Collection
}

func NewMongoRepo(coll *mongo.Collection) *MongoRepo {
	return &MongoRepo{coll: coll}
}

func (r *MongoRepo) FindByPhone(ctx context.Context, phone string) (User, error) {
	var u User
	err := r.coll.FindOne(ctx, bson.M{"phone": phone}).Decode(&u)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return User{}, ErrNotFound
		}
		return User{}, fmt.Errorf("users: find by phone: %w", err)
	}
	return u, nil
}

func (r *MongoRepo) Insert(ctx context.Context, u User) error {
	_, err := r.coll.InsertOne(ctx, u)
	if err != nil {
		// The unique phone index is the source of truth for find-or-create
		// races: a duplicate key here means another request created the
		// profile first.
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicatePhone
		}
		return fmt.Errorf("users: insert: %w", err)
	}
	return nil
}

func (r *MongoRepo) Update(ctx context.Context, phone string, patch ProfileUpdate, now time.Time) error {
	set := bson.M{"last_updated": now}
	if patch.Name != nil {
		set["name"] = *patch.Name
	}
	if patch.Email != nil {
		set["email"] = *patch.Email
	}
	if patch.Profession != nil {
		set["profession"] = *patch.Profession
	}
	if patch.Bio != nil {
		set["bio"] = *patch.Bio
	}
	if patch.BioParts != nil {
		set["bio_parts"] = *patch.BioParts
	}
	res, err := r.coll.UpdateOne(ctx, bson.M{"phone": phone}, bson.M{"$set": set})
	if err != nil {
		return fmt.Errorf("users: update: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *MongoRepo) AppendCall(ctx context.Context, phone string, rec CallRecord, now time.Time) error {
	res, err := r.coll.UpdateOne(ctx, bson.M{"phone": phone}, bson.M{
		"$push": bson.M{"calls": rec},
		"$set":  bson.M{"last_updated": now},
	})
	if err != nil {
		return fmt.Errorf("users: append call: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *MongoRepo) TouchLastUpdated(ctx context.Context, phone string, now time.Time) error {
	res, err := r.coll.UpdateOne(ctx, bson.M{"phone": phone}, bson.M{
		"$set": bson.M{"last_updated": now},
	})
	if err != nil {
		return fmt.Errorf("users: touch: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *MongoRepo) Count(ctx context.Context) (int64, error) {
	n, err := r.coll.CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, fmt.Errorf("users: count: %w", err)
	}
	return n, nil
}
