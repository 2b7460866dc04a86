// internal/repository/mongo/plan_repo.go
package mongo

import (
	"context"
	"errors"

	"pulsefit/plan-engine/internal/domain"
	"pulsefit/plan-engine/internal/repository"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const planCollectionName = "base_plans"

// mongoPlanRepository implements repository.PlanRepository
type mongoPlanRepository struct {
	collection *mongo.Collection
}

// NewMongoPlanRepository creates a new base-plan repository.
func NewMongoPlanRepository(db *mongo.Database) repository.PlanRepository {
	return &mongoPlanRepository{
		collection: db.Collection(planCollectionName),
	}
}

// Create inserts a new base plan. The plan ID is assigned by the generation
// pipeline (UUID), not here, so local and remote copies keep one identity.
func (r *mongoPlanRepository) Create(ctx context.Context, plan *domain.WeeklyBasePlan) error {
	if plan.ID == "" || plan.UserID == primitive.NilObjectID {
		return errors.New("plan requires an id and a userId")
	}
	_, err := r.collection.InsertOne(ctx, plan)
	return err
}

// GetByID retrieves a single base plan by its ID.
func (r *mongoPlanRepository) GetByID(ctx context.Context, id string) (*domain.WeeklyBasePlan, error) {
	var plan domain.WeeklyBasePlan
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&plan)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &plan, nil
}

// GetByUser retrieves all plans for a user, newest first.
func (r *mongoPlanRepository) GetByUser(ctx context.Context, userID primitive.ObjectID) ([]domain.WeeklyBasePlan, error) {
	var plans []domain.WeeklyBasePlan
	findOptions := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})

	cursor, err := r.collection.Find(ctx, bson.M{"userId": userID}, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	if err = cursor.All(ctx, &plans); err != nil {
		return nil, err
	}
	// Empty slice when the user has no plans (not an error).
	return plans, nil
}

// GetActiveByUser retrieves the user's single active plan, if any.
func (r *mongoPlanRepository) GetActiveByUser(ctx context.Context, userID primitive.ObjectID) (*domain.WeeklyBasePlan, error) {
	var plan domain.WeeklyBasePlan
	err := r.collection.FindOne(ctx, bson.M{"userId": userID, "isActive": true}).Decode(&plan)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &plan, nil
}

// Update replaces the mutable fields of an existing plan.
func (r *mongoPlanRepository) Update(ctx context.Context, plan *domain.WeeklyBasePlan) error {
	if plan.ID == "" {
		return errors.New("plan ID is required for update")
	}
	updateDoc := bson.M{
		"$set": bson.M{
			"name":          plan.Name,
			"days":          plan.Days,
			"isActive":      plan.IsActive,
			"isLocked":      plan.IsLocked,
			"status":        plan.Status,
			"stats":         plan.Stats,
			"activatedAt":   plan.ActivatedAt,
			"deactivatedAt": plan.DeactivatedAt,
		},
	}
	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": plan.ID}, updateDoc)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// Upsert writes a full plan document, inserting it when absent. Used by the
// snapshot sync path where merged remote plans may not exist locally yet.
func (r *mongoPlanRepository) Upsert(ctx context.Context, plan *domain.WeeklyBasePlan) error {
	if plan.ID == "" {
		return errors.New("plan ID is required for upsert")
	}
	opts := options.Replace().SetUpsert(true)
	_, err := r.collection.ReplaceOne(ctx, bson.M{"_id": plan.ID}, plan, opts)
	return err
}

// Delete removes a plan irreversibly.
func (r *mongoPlanRepository) Delete(ctx context.Context, id string) error {
	if id == "" {
		return errors.New("plan ID is required for deletion")
	}
	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// EnsurePlanIndexes creates necessary indexes. Call during startup.
func EnsurePlanIndexes(ctx context.Context, collection *mongo.Collection) {
	indexes := []mongo.IndexModel{
		{
			// Main query pattern: a user's plans ordered by creation time.
			Keys:    bson.D{{Key: "userId", Value: 1}, {Key: "createdAt", Value: -1}},
			Options: options.Index(),
		},
		{
			// Quickly find the single active plan for a user.
			Keys:    bson.D{{Key: "userId", Value: 1}, {Key: "isActive", Value: 1}},
			Options: options.Index(),
		},
	}
	_, _ = collection.Indexes().CreateMany(ctx, indexes)
}
