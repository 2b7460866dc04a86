// internal/repository/mongo/checkin_repo.go
package mongo

import (
	"context"
	"errors"
	"time"

	"pulsefit/plan-engine/internal/domain"
	"pulsefit/plan-engine/internal/repository"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const checkinCollectionName = "checkins"

// mongoCheckInRepository implements repository.CheckInRepository
type mongoCheckInRepository struct {
	collection *mongo.Collection
}

// NewMongoCheckInRepository creates a new check-in repository.
func NewMongoCheckInRepository(db *mongo.Database) repository.CheckInRepository {
	return &mongoCheckInRepository{
		collection: db.Collection(checkinCollectionName),
	}
}

// Create inserts a new daily check-in.
func (r *mongoCheckInRepository) Create(ctx context.Context, checkin *domain.CheckIn) (primitive.ObjectID, error) {
	if checkin.UserID == primitive.NilObjectID || checkin.Date == "" {
		return primitive.NilObjectID, errors.New("check-in requires userId and date")
	}
	checkin.ID = primitive.NewObjectID()
	checkin.CreatedAt = time.Now().UTC()

	result, err := r.collection.InsertOne(ctx, checkin)
	if err != nil {
		return primitive.NilObjectID, err
	}
	insertedID, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return primitive.NilObjectID, errors.New("failed to convert inserted check-in ID")
	}
	return insertedID, nil
}

// GetByUserAndDate retrieves the check-in for one calendar day, if present.
func (r *mongoCheckInRepository) GetByUserAndDate(ctx context.Context, userID primitive.ObjectID, date string) (*domain.CheckIn, error) {
	var checkin domain.CheckIn
	err := r.collection.FindOne(ctx, bson.M{"userId": userID, "date": date}).Decode(&checkin)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &checkin, nil
}

// GetByUser retrieves all check-ins for a user, oldest first.
func (r *mongoCheckInRepository) GetByUser(ctx context.Context, userID primitive.ObjectID) ([]domain.CheckIn, error) {
	var checkins []domain.CheckIn
	findOptions := options.Find().SetSort(bson.D{{Key: "date", Value: 1}})

	cursor, err := r.collection.Find(ctx, bson.M{"userId": userID}, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	if err = cursor.All(ctx, &checkins); err != nil {
		return nil, err
	}
	return checkins, nil
}

// GetRecent retrieves up to limit check-ins, newest first.
func (r *mongoCheckInRepository) GetRecent(ctx context.Context, userID primitive.ObjectID, limit int) ([]domain.CheckIn, error) {
	var checkins []domain.CheckIn
	findOptions := options.Find().
		SetSort(bson.D{{Key: "date", Value: -1}}).
		SetLimit(int64(limit))

	cursor, err := r.collection.Find(ctx, bson.M{"userId": userID}, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	if err = cursor.All(ctx, &checkins); err != nil {
		return nil, err
	}
	return checkins, nil
}

// EnsureCheckInIndexes creates necessary indexes. Call during startup.
func EnsureCheckInIndexes(ctx context.Context, collection *mongo.Collection) {
	indexes := []mongo.IndexModel{
		{
			// One check-in per user per calendar day.
			Keys:    bson.D{{Key: "userId", Value: 1}, {Key: "date", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
	}
	_, _ = collection.Indexes().CreateMany(ctx, indexes)
}
