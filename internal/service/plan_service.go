// internal/service/plan_service.go
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"pulsefit/plan-engine/internal/ai"
	"pulsefit/plan-engine/internal/clock"
	"pulsefit/plan-engine/internal/domain"
	"pulsefit/plan-engine/internal/repository"
	"pulsefit/plan-engine/internal/storage"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// --- Error Definitions ---
// Lifecycle errors surface to the API verbatim for user-facing messaging.
// AI-path errors never appear here: they are recovered internally by the
// deterministic fallback generator.
var (
	ErrProfileNotFound    = errors.New("generation profile not set up for this user")
	ErrPlanNotFound       = errors.New("plan not found")
	ErrEmptyPlanName      = errors.New("plan name cannot be empty")
	ErrCannotDeleteActive = errors.New("cannot delete the currently active plan")
	ErrCannotDeleteLast   = errors.New("cannot delete the only remaining plan")
	ErrNoActivePlan       = errors.New("no active plan")
	ErrPlanLocked         = errors.New("plan is locked")
	ErrNoCheckInToday     = errors.New("no check-in recorded for today")
)

// TooSoonError reports how long until regeneration is allowed again.
type TooSoonError struct {
	Remaining time.Duration
}

func (e *TooSoonError) Error() string {
	return fmt.Sprintf("a new plan can be generated in %s", e.Remaining.Round(time.Minute))
}

// CompletionClient is the slice of *ai.Client the orchestrator needs.
// Tests substitute a stub.
type CompletionClient interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// RegenerationStatus answers "can I regenerate, and if not, when?".
type RegenerationStatus struct {
	CanRegenerate bool          `json:"canRegenerate"`
	TimeRemaining time.Duration `json:"timeRemainingSeconds"`
}

type PlanService interface {
	GeneratePlan(ctx context.Context, userID primitive.ObjectID) (*domain.WeeklyBasePlan, error)
	GetPlans(ctx context.Context, userID primitive.ObjectID) ([]domain.WeeklyBasePlan, error)
	GetPlan(ctx context.Context, userID primitive.ObjectID, planID string) (*domain.WeeklyBasePlan, error)
	Activate(ctx context.Context, userID primitive.ObjectID, planID string) (*domain.WeeklyBasePlan, error)
	Rename(ctx context.Context, userID primitive.ObjectID, planID, name string) error
	Delete(ctx context.Context, userID primitive.ObjectID, planID string) error
	Regeneration(ctx context.Context, userID primitive.ObjectID) (*RegenerationStatus, error)
	AdjustToday(ctx context.Context, userID primitive.ObjectID) (*domain.WeeklyBasePlan, error)
	PlanStats(ctx context.Context, userID primitive.ObjectID, planID string) (*domain.PlanStats, error)
	Sync(ctx context.Context, userID primitive.ObjectID) ([]domain.WeeklyBasePlan, error)
}

// planService implements PlanService. All mutating operations run under a
// per-user mutex: the plan collection is the only shared mutable resource,
// and single-writer discipline keeps the single-active invariant and the
// cooldown check-then-create race closed.
type planService struct {
	planRepo    repository.PlanRepository
	profileRepo repository.ProfileRepository
	checkinRepo repository.CheckInRepository
	completions CompletionClient
	snapshots   storage.SnapshotStorage
	clock       clock.Clock
	cooldown    time.Duration
	maxAttempts int
	retryBase   time.Duration

	mu        sync.Mutex
	userLocks map[string]*sync.Mutex
}

// NewPlanService creates a new instance of planService.
func NewPlanService(
	planRepo repository.PlanRepository,
	profileRepo repository.ProfileRepository,
	checkinRepo repository.CheckInRepository,
	completions CompletionClient,
	snapshots storage.SnapshotStorage,
	clk clock.Clock,
	cooldown time.Duration,
	maxAttempts int,
	retryBase time.Duration,
) PlanService {
	if cooldown <= 0 {
		cooldown = 14 * 24 * time.Hour
	}
	if maxAttempts < 1 {
		maxAttempts = 3
	}
	if retryBase <= 0 {
		retryBase = 2 * time.Second
	}
	return &planService{
		planRepo:    planRepo,
		profileRepo: profileRepo,
		checkinRepo: checkinRepo,
		completions: completions,
		snapshots:   snapshots,
		clock:       clk,
		cooldown:    cooldown,
		maxAttempts: maxAttempts,
		retryBase:   retryBase,
		userLocks:   make(map[string]*sync.Mutex),
	}
}

// lockUser serializes all writes to one user's plan collection.
func (s *planService) lockUser(userID primitive.ObjectID) func() {
	key := userID.Hex()
	s.mu.Lock()
	lock, ok := s.userLocks[key]
	if !ok {
		lock = &sync.Mutex{}
		s.userLocks[key] = lock
	}
	s.mu.Unlock()
	lock.Lock()
	return lock.Unlock
}

// === Generation ===

// GeneratePlan runs the full base-plan pipeline: prompt -> completion ->
// repair -> validate, with the deterministic fallback behind it. The user
// always gets a complete plan unless the cooldown blocks creation or the
// caller cancels.
func (s *planService) GeneratePlan(ctx context.Context, userID primitive.ObjectID) (*domain.WeeklyBasePlan, error) {
	profile, err := s.profileRepo.GetByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrProfileNotFound
		}
		return nil, err
	}

	// Cheap pre-check before paying for a completion. The authoritative
	// check happens again under the write lock below.
	existing, err := s.planRepo.GetByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if remaining, ok := s.cooldownRemaining(existing); !ok {
		return nil, &TooSoonError{Remaining: remaining}
	}

	recent, err := s.checkinRepo.GetRecent(ctx, userID, 7)
	if err != nil {
		log.Printf("WARN: could not load recent check-ins for %s, generating without them: %v", userID.Hex(), err)
		recent = nil
	}

	days, source, err := s.generateWeek(ctx, profile, recent)
	if err != nil {
		// Only cancellation reaches here; nothing has been written.
		return nil, err
	}

	unlock := s.lockUser(userID)
	defer unlock()

	// Re-check under the lock: a concurrent generation may have committed
	// between our pre-check and now.
	existing, err = s.planRepo.GetByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if remaining, ok := s.cooldownRemaining(existing); !ok {
		return nil, &TooSoonError{Remaining: remaining}
	}

	now := s.clock.Now()
	plan := &domain.WeeklyBasePlan{
		ID:        uuid.NewString(),
		UserID:    userID,
		Name:      "Plan of " + now.Format("Jan 2, 2006"),
		Source:    source,
		Days:      days,
		Status:    domain.PlanStatusArchived,
		CreatedAt: now,
	}
	// The first plan after onboarding activates itself; later plans stay
	// archived until the user explicitly activates them.
	if len(existing) == 0 {
		plan.IsActive = true
		plan.Status = domain.PlanStatusActive
		activatedAt := now
		plan.ActivatedAt = &activatedAt
	}

	if err := s.planRepo.Create(ctx, plan); err != nil {
		return nil, err
	}
	log.Printf("INFO: created base plan %s for user %s (source=%s, active=%t)", plan.ID, userID.Hex(), source, plan.IsActive)
	return plan, nil
}

// generateWeek tries the AI path a bounded number of times with increasing
// backoff, then commits to the fallback generator. Attempts are sequential;
// no concurrent completions are ever in flight for one plan target.
func (s *planService) generateWeek(ctx context.Context, profile *domain.UserProfile, recent []domain.CheckIn) (map[domain.Weekday]domain.DayPlan, domain.PlanSource, error) {
	prompt := ai.BuildWeeklyPlanPrompt(profile, recent)

	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return nil, "", ctx.Err()
			case <-time.After(s.retryBase * time.Duration(attempt-1)):
			}
		}

		raw, err := s.completions.Complete(ctx, prompt.System, prompt.User)
		if err != nil {
			if ctx.Err() != nil {
				return nil, "", ctx.Err()
			}
			log.Printf("WARN: completion attempt %d/%d failed: %v", attempt, s.maxAttempts, err)
			continue
		}
		days, err := ai.DecodeWeeklyPlan(raw)
		if err != nil {
			log.Printf("WARN: attempt %d/%d produced unusable JSON: %v", attempt, s.maxAttempts, err)
			continue
		}
		if err := ai.ValidateWeek(days); err != nil {
			log.Printf("WARN: attempt %d/%d failed validation: %v", attempt, s.maxAttempts, err)
			continue
		}
		return days, domain.PlanSourceAI, nil
	}
	if ctx.Err() != nil {
		return nil, "", ctx.Err()
	}

	// Exhausting the attempt budget is the normal trigger for the fallback,
	// not an error condition.
	log.Printf("INFO: AI generation exhausted %d attempts; using deterministic fallback", s.maxAttempts)
	return ai.FallbackWeeklyPlan(profile), domain.PlanSourceFallback, nil
}

// === Versioning / lifecycle ===

func (s *planService) GetPlans(ctx context.Context, userID primitive.ObjectID) ([]domain.WeeklyBasePlan, error) {
	return s.planRepo.GetByUser(ctx, userID)
}

func (s *planService) GetPlan(ctx context.Context, userID primitive.ObjectID, planID string) (*domain.WeeklyBasePlan, error) {
	return s.ownedPlan(ctx, userID, planID)
}

// Activate makes the target plan the single active one. Idempotent when the
// target is already active.
func (s *planService) Activate(ctx context.Context, userID primitive.ObjectID, planID string) (*domain.WeeklyBasePlan, error) {
	unlock := s.lockUser(userID)
	defer unlock()

	target, err := s.ownedPlan(ctx, userID, planID)
	if err != nil {
		return nil, err
	}
	if target.IsActive {
		return target, nil
	}

	now := s.clock.Now()
	current, err := s.planRepo.GetActiveByUser(ctx, userID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}
	if current != nil {
		current.IsActive = false
		current.Status = domain.PlanStatusArchived
		deactivatedAt := now
		current.DeactivatedAt = &deactivatedAt
		if err := s.planRepo.Update(ctx, current); err != nil {
			return nil, err
		}
	}

	target.IsActive = true
	target.Status = domain.PlanStatusActive
	activatedAt := now
	target.ActivatedAt = &activatedAt
	target.DeactivatedAt = nil
	if err := s.planRepo.Update(ctx, target); err != nil {
		return nil, err
	}
	log.Printf("INFO: user %s activated plan %s", userID.Hex(), planID)
	return target, nil
}

func (s *planService) Rename(ctx context.Context, userID primitive.ObjectID, planID, name string) error {
	if strings.TrimSpace(name) == "" {
		return ErrEmptyPlanName
	}
	unlock := s.lockUser(userID)
	defer unlock()

	plan, err := s.ownedPlan(ctx, userID, planID)
	if err != nil {
		return err
	}
	if plan.IsLocked {
		return ErrPlanLocked
	}
	plan.Name = strings.TrimSpace(name)
	return s.planRepo.Update(ctx, plan)
}

// Delete removes a plan irreversibly. The active plan and the last
// remaining plan are protected; the collection never empties once
// onboarding has produced a plan.
func (s *planService) Delete(ctx context.Context, userID primitive.ObjectID, planID string) error {
	unlock := s.lockUser(userID)
	defer unlock()

	target, err := s.ownedPlan(ctx, userID, planID)
	if err != nil {
		return err
	}
	if target.IsActive {
		return ErrCannotDeleteActive
	}
	plans, err := s.planRepo.GetByUser(ctx, userID)
	if err != nil {
		return err
	}
	if len(plans) <= 1 {
		return ErrCannotDeleteLast
	}
	if err := s.planRepo.Delete(ctx, target.ID); err != nil {
		return err
	}
	log.Printf("INFO: user %s deleted plan %s", userID.Hex(), planID)
	return nil
}

func (s *planService) Regeneration(ctx context.Context, userID primitive.ObjectID) (*RegenerationStatus, error) {
	plans, err := s.planRepo.GetByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	remaining, ok := s.cooldownRemaining(plans)
	return &RegenerationStatus{CanRegenerate: ok, TimeRemaining: remaining}, nil
}

// cooldownRemaining evaluates the regeneration window against the trusted
// clock. The boundary is inclusive: at exactly the cooldown, regeneration
// is allowed again.
func (s *planService) cooldownRemaining(plans []domain.WeeklyBasePlan) (time.Duration, bool) {
	if len(plans) == 0 {
		return 0, true
	}
	var latest time.Time
	for _, p := range plans {
		if p.CreatedAt.After(latest) {
			latest = p.CreatedAt
		}
	}
	elapsed := s.clock.Now().Sub(latest)
	if elapsed >= s.cooldown {
		return 0, true
	}
	return s.cooldown - elapsed, false
}

// === Titration ===

// AdjustToday replaces today's day in the active plan with an adjusted copy
// driven by today's check-in. The other six days are untouched. On any AI
// failure the day degrades to a rule-adjusted copy of the existing template,
// never a freshly invented one.
func (s *planService) AdjustToday(ctx context.Context, userID primitive.ObjectID) (*domain.WeeklyBasePlan, error) {
	profile, err := s.profileRepo.GetByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrProfileNotFound
		}
		return nil, err
	}
	active, err := s.planRepo.GetActiveByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNoActivePlan
		}
		return nil, err
	}
	if active.IsLocked {
		return nil, ErrPlanLocked
	}

	now := s.clock.Now()
	today := domain.WeekdayOf(now)

	checkin, err := s.checkinRepo.GetByUserAndDate(ctx, userID, now.Format(dateLayout))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNoCheckInToday
		}
		return nil, err
	}

	var adjusted domain.DayPlan
	if base, ok := active.Days[today]; ok {
		adjusted, err = s.titrateDay(ctx, profile, base, *checkin)
		if err != nil {
			return nil, err
		}
	} else {
		// Plans merged from older snapshots can be missing a day. Synthesize
		// one deterministically rather than failing the adjustment.
		log.Printf("WARN: plan %s has no entry for %s, synthesizing one", active.ID, today)
		adjusted = ai.FallbackDay(profile, checkin)
	}

	unlock := s.lockUser(userID)
	defer unlock()

	// Re-fetch under the lock so a concurrent write is not clobbered; only
	// today's entry is replaced.
	plan, err := s.planRepo.GetByID(ctx, active.ID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrPlanNotFound
		}
		return nil, err
	}
	plan.Days[today] = adjusted
	if err := s.planRepo.Update(ctx, plan); err != nil {
		return nil, err
	}
	log.Printf("INFO: user %s titrated %s on plan %s", userID.Hex(), today, plan.ID)
	return plan, nil
}

// titrateDay runs the single-day pipeline with the same attempt budget as
// base generation. The recovery path is the rule-adjusted existing day.
func (s *planService) titrateDay(ctx context.Context, profile *domain.UserProfile, base domain.DayPlan, checkin domain.CheckIn) (domain.DayPlan, error) {
	prompt, err := ai.BuildTitrationPrompt(profile, base, checkin)
	if err != nil {
		log.Printf("WARN: could not compose titration prompt, using rule adjustment: %v", err)
		return ai.AdjustDay(base, checkin), nil
	}

	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return domain.DayPlan{}, ctx.Err()
			case <-time.After(s.retryBase * time.Duration(attempt-1)):
			}
		}

		raw, err := s.completions.Complete(ctx, prompt.System, prompt.User)
		if err != nil {
			if ctx.Err() != nil {
				return domain.DayPlan{}, ctx.Err()
			}
			log.Printf("WARN: titration attempt %d/%d failed: %v", attempt, s.maxAttempts, err)
			continue
		}
		day, err := ai.DecodeDayPlan(raw)
		if err != nil {
			log.Printf("WARN: titration attempt %d/%d produced unusable JSON: %v", attempt, s.maxAttempts, err)
			continue
		}
		if err := ai.ValidateDay(day); err != nil {
			log.Printf("WARN: titration attempt %d/%d failed validation: %v", attempt, s.maxAttempts, err)
			continue
		}
		return *day, nil
	}
	if ctx.Err() != nil {
		return domain.DayPlan{}, ctx.Err()
	}
	return ai.AdjustDay(base, checkin), nil
}

// === Stats and sync ===

// PlanStats recomputes statistics from check-in history and caches the
// result on the plan document as a convenience copy. History remains the
// source of truth; the cache is refreshed on every call.
func (s *planService) PlanStats(ctx context.Context, userID primitive.ObjectID, planID string) (*domain.PlanStats, error) {
	plan, err := s.ownedPlan(ctx, userID, planID)
	if err != nil {
		return nil, err
	}
	checkins, err := s.checkinRepo.GetByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	stats := ComputeStats(plan, checkins, s.clock.Now())

	plan.Stats = &stats
	if err := s.planRepo.Update(ctx, plan); err != nil {
		log.Printf("WARN: could not cache stats on plan %s: %v", planID, err)
	}
	return &stats, nil
}

// Sync merges the local collection with the remote snapshot and writes the
// merged set back to both sides. The blob store is last-write-wins; all
// merge intelligence lives here.
func (s *planService) Sync(ctx context.Context, userID primitive.ObjectID) ([]domain.WeeklyBasePlan, error) {
	unlock := s.lockUser(userID)
	defer unlock()

	local, err := s.planRepo.GetByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	var remote []domain.WeeklyBasePlan
	data, err := s.snapshots.Get(ctx, userID.Hex())
	switch {
	case err == nil:
		if err := json.Unmarshal(data, &remote); err != nil {
			log.Printf("WARN: remote snapshot for %s is corrupt, treating as empty: %v", userID.Hex(), err)
			remote = nil
		}
	case errors.Is(err, storage.ErrSnapshotNotFound):
		// First sync for this user.
	default:
		return nil, err
	}

	merged := MergePlans(local, remote)
	for i := range merged {
		merged[i].UserID = userID
		if err := s.planRepo.Upsert(ctx, &merged[i]); err != nil {
			return nil, err
		}
	}

	out, err := json.Marshal(merged)
	if err != nil {
		return nil, err
	}
	if err := s.snapshots.Put(ctx, userID.Hex(), out); err != nil {
		return nil, err
	}
	log.Printf("INFO: synced %d plans for user %s (%d local, %d remote)", len(merged), userID.Hex(), len(local), len(remote))
	return merged, nil
}

// ownedPlan fetches a plan and verifies ownership. Plans belonging to other
// users are indistinguishable from missing ones.
func (s *planService) ownedPlan(ctx context.Context, userID primitive.ObjectID, planID string) (*domain.WeeklyBasePlan, error) {
	plan, err := s.planRepo.GetByID(ctx, planID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrPlanNotFound
		}
		return nil, err
	}
	if plan.UserID != userID {
		return nil, ErrPlanNotFound
	}
	return plan, nil
}
