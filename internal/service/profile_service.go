package service

import (
	"context"
	"errors"
	"fmt"

	"pulsefit/plan-engine/internal/clock"
	"pulsefit/plan-engine/internal/domain"
	"pulsefit/plan-engine/internal/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

var ErrInvalidProfile = errors.New("invalid profile")

// ProfileService manages the single generation profile per user.
type ProfileService interface {
	Save(ctx context.Context, userID primitive.ObjectID, profile *domain.UserProfile) (*domain.UserProfile, error)
	Get(ctx context.Context, userID primitive.ObjectID) (*domain.UserProfile, error)
}

type profileService struct {
	profileRepo repository.ProfileRepository
	clock       clock.Clock
}

// NewProfileService creates a new instance of profileService.
func NewProfileService(profileRepo repository.ProfileRepository, clk clock.Clock) ProfileService {
	return &profileService{profileRepo: profileRepo, clock: clk}
}

// Save validates and upserts the user's profile. A profile update never
// touches existing plans; it only changes what the next generation sees.
func (s *profileService) Save(ctx context.Context, userID primitive.ObjectID, profile *domain.UserProfile) (*domain.UserProfile, error) {
	if err := validateProfile(profile); err != nil {
		return nil, err
	}
	profile.UserID = userID
	profile.UpdatedAt = s.clock.Now()
	if err := s.profileRepo.Upsert(ctx, profile); err != nil {
		return nil, err
	}
	return profile, nil
}

func (s *profileService) Get(ctx context.Context, userID primitive.ObjectID) (*domain.UserProfile, error) {
	profile, err := s.profileRepo.GetByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrProfileNotFound
		}
		return nil, err
	}
	return profile, nil
}

func validateProfile(p *domain.UserProfile) error {
	if p == nil {
		return ErrInvalidProfile
	}
	switch p.Goal {
	case domain.GoalWeightLoss, domain.GoalMuscleGain, domain.GoalMaintenance, domain.GoalEndurance:
	default:
		return fmt.Errorf("%w: unknown goal %q", ErrInvalidProfile, p.Goal)
	}
	switch p.Diet {
	case domain.DietVegetarian, domain.DietEggitarian, domain.DietNonVeg:
	default:
		return fmt.Errorf("%w: unknown diet preference %q", ErrInvalidProfile, p.Diet)
	}
	if p.TrainingDays < 1 || p.TrainingDays > 7 {
		return fmt.Errorf("%w: training days must be between 1 and 7", ErrInvalidProfile)
	}
	for _, eq := range p.Equipment {
		switch eq {
		case domain.EquipmentBodyweight, domain.EquipmentDumbbells, domain.EquipmentBarbell,
			domain.EquipmentKettlebell, domain.EquipmentBands, domain.EquipmentFullGym:
		default:
			return fmt.Errorf("%w: unknown equipment %q", ErrInvalidProfile, eq)
		}
	}
	if p.Intensity.Level != 0 && (p.Intensity.Level < 1 || p.Intensity.Level > 10) {
		return fmt.Errorf("%w: intensity level must be between 1 and 10", ErrInvalidProfile)
	}
	return nil
}
