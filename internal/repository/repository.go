package repository

import (
	"context"

	"pulsefit/plan-engine/internal/domain"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Error constants for the repository layer.
var (
	ErrNotFound     = RepositoryError("not found")
	ErrUpdateFailed = RepositoryError("update failed")
	ErrDeleteFailed = RepositoryError("delete failed")
)

// RepositoryError helps distinguish repository errors.
type RepositoryError string

func (e RepositoryError) Error() string {
	return string(e)
}

// UserRepository defines the interface for interacting with user accounts.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) (primitive.ObjectID, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.User, error)
}

// ProfileRepository stores the single generation profile per user.
type ProfileRepository interface {
	Upsert(ctx context.Context, profile *domain.UserProfile) error
	GetByUser(ctx context.Context, userID primitive.ObjectID) (*domain.UserProfile, error)
}

// PlanRepository defines the interface for interacting with base plans.
// Lifecycle invariants (single active plan, delete guards, cooldown) are
// enforced by the plan service under its per-user write lock; the repository
// only does per-document reads and writes.
type PlanRepository interface {
	Create(ctx context.Context, plan *domain.WeeklyBasePlan) error
	GetByID(ctx context.Context, id string) (*domain.WeeklyBasePlan, error)
	// GetByUser returns all plans for the user, newest first.
	GetByUser(ctx context.Context, userID primitive.ObjectID) ([]domain.WeeklyBasePlan, error)
	GetActiveByUser(ctx context.Context, userID primitive.ObjectID) (*domain.WeeklyBasePlan, error)
	Update(ctx context.Context, plan *domain.WeeklyBasePlan) error
	Upsert(ctx context.Context, plan *domain.WeeklyBasePlan) error
	Delete(ctx context.Context, id string) error
}

// CheckInRepository defines the interface for daily wellness check-ins.
// Check-ins are append-only from this subsystem's point of view.
type CheckInRepository interface {
	Create(ctx context.Context, checkin *domain.CheckIn) (primitive.ObjectID, error)
	GetByUserAndDate(ctx context.Context, userID primitive.ObjectID, date string) (*domain.CheckIn, error)
	// GetByUser returns all check-ins for the user, oldest first.
	GetByUser(ctx context.Context, userID primitive.ObjectID) ([]domain.CheckIn, error)
	// GetRecent returns up to limit check-ins, newest first.
	GetRecent(ctx context.Context, userID primitive.ObjectID, limit int) ([]domain.CheckIn, error)
}
