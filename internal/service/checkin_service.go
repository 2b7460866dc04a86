package service

import (
	"context"
	"errors"
	"fmt"
	"log"

	"pulsefit/plan-engine/internal/clock"
	"pulsefit/plan-engine/internal/domain"
	"pulsefit/plan-engine/internal/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	ErrCheckInExists  = errors.New("a check-in already exists for this date")
	ErrInvalidCheckIn = errors.New("invalid check-in")
)

// CheckInService records and reads daily wellness check-ins. History is
// append-only: stats and titration both derive from it and nothing ever
// rewrites a past entry.
type CheckInService interface {
	Record(ctx context.Context, userID primitive.ObjectID, checkin *domain.CheckIn) (*domain.CheckIn, error)
	Today(ctx context.Context, userID primitive.ObjectID) (*domain.CheckIn, error)
	List(ctx context.Context, userID primitive.ObjectID) ([]domain.CheckIn, error)
}

type checkinService struct {
	checkinRepo repository.CheckInRepository
	clock       clock.Clock
}

// NewCheckInService creates a new instance of checkinService.
func NewCheckInService(checkinRepo repository.CheckInRepository, clk clock.Clock) CheckInService {
	return &checkinService{checkinRepo: checkinRepo, clock: clk}
}

// Record validates and stores today's check-in. The server clock decides the
// date; one check-in per user per day.
func (s *checkinService) Record(ctx context.Context, userID primitive.ObjectID, checkin *domain.CheckIn) (*domain.CheckIn, error) {
	if err := validateCheckIn(checkin); err != nil {
		return nil, err
	}

	checkin.UserID = userID
	checkin.Date = s.clock.Now().Format(dateLayout)

	if _, err := s.checkinRepo.GetByUserAndDate(ctx, userID, checkin.Date); err == nil {
		return nil, ErrCheckInExists
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	id, err := s.checkinRepo.Create(ctx, checkin)
	if err != nil {
		return nil, err
	}
	checkin.ID = id
	log.Printf("INFO: recorded check-in for user %s on %s", userID.Hex(), checkin.Date)
	return checkin, nil
}

// Today returns the check-in for the server's current date.
func (s *checkinService) Today(ctx context.Context, userID primitive.ObjectID) (*domain.CheckIn, error) {
	checkin, err := s.checkinRepo.GetByUserAndDate(ctx, userID, s.clock.Now().Format(dateLayout))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNoCheckInToday
		}
		return nil, err
	}
	return checkin, nil
}

func (s *checkinService) List(ctx context.Context, userID primitive.ObjectID) ([]domain.CheckIn, error) {
	return s.checkinRepo.GetByUser(ctx, userID)
}

func validateCheckIn(c *domain.CheckIn) error {
	if c == nil {
		return ErrInvalidCheckIn
	}
	for name, v := range map[string]int{
		"energy":     c.Energy,
		"stress":     c.Stress,
		"motivation": c.Motivation,
	} {
		if v < 1 || v > 10 {
			return fmt.Errorf("%w: %s must be between 1 and 10", ErrInvalidCheckIn, name)
		}
	}
	if c.SleepHrs < 0 || c.SleepHrs > 24 {
		return fmt.Errorf("%w: sleep hours must be between 0 and 24", ErrInvalidCheckIn)
	}
	if c.WeightKg != nil && (*c.WeightKg < 20 || *c.WeightKg > 400) {
		return fmt.Errorf("%w: weight must be between 20 and 400 kg", ErrInvalidCheckIn)
	}
	return nil
}
