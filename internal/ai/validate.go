// internal/ai/validate.go
package ai

import (
	"fmt"
	"math"

	"pulsefit/plan-engine/internal/domain"
)

// Plausibility bounds for per-day nutrition numbers. Out-of-bound values are
// a validation failure, never silently clamped: a plan that fails here goes
// to the fallback generator instead.
const (
	MinDailyKcal  = 800
	MaxDailyKcal  = 6000
	MaxProteinG   = 500
	MaxHydrationL = 10
)

// ValidateWeek asserts that a decoded base plan contains exactly the 7
// canonical weekday keys and that every day passes the per-day checks.
func ValidateWeek(days map[domain.Weekday]domain.DayPlan) error {
	if len(days) == 0 {
		return &SchemaError{Reason: "plan has no days"}
	}
	for _, wd := range domain.WeekOrder {
		if _, ok := days[wd]; !ok {
			return &SchemaError{Reason: fmt.Sprintf("missing day %q", wd)}
		}
	}
	if len(days) != len(domain.WeekOrder) {
		for key := range days {
			if !isCanonicalWeekday(key) {
				return &SchemaError{Reason: fmt.Sprintf("unexpected day key %q", key)}
			}
		}
	}
	for _, wd := range domain.WeekOrder {
		day := days[wd]
		if err := validateDay(string(wd), &day); err != nil {
			return err
		}
	}
	return nil
}

// ValidateDay asserts the single-day contract used by titration.
func ValidateDay(day *domain.DayPlan) error {
	return validateDay("day", day)
}

func validateDay(label string, day *domain.DayPlan) error {
	if len(day.Workout.Blocks) == 0 {
		return &SchemaError{Reason: label + ": workout has no blocks"}
	}
	for _, block := range day.Workout.Blocks {
		if block.Name == "" {
			return &SchemaError{Reason: label + ": workout block without a name"}
		}
		if len(block.Items) == 0 {
			return &SchemaError{Reason: fmt.Sprintf("%s: workout block %q has no items", label, block.Name)}
		}
		for _, item := range block.Items {
			if item.Exercise == "" {
				return &SchemaError{Reason: fmt.Sprintf("%s: workout block %q has an unnamed exercise", label, block.Name)}
			}
		}
	}

	n := day.Nutrition
	if len(n.Meals) == 0 {
		return &SchemaError{Reason: label + ": nutrition has no meals"}
	}
	for _, meal := range n.Meals {
		if len(meal.Items) == 0 {
			return &SchemaError{Reason: fmt.Sprintf("%s: meal %q has no items", label, meal.Name)}
		}
	}
	if !isFinite(n.TotalKcal) || n.TotalKcal < MinDailyKcal || n.TotalKcal > MaxDailyKcal {
		return &SchemaError{Reason: fmt.Sprintf("%s: total_kcal %.0f outside %d-%d", label, n.TotalKcal, MinDailyKcal, MaxDailyKcal)}
	}
	if !isFinite(n.ProteinG) || n.ProteinG <= 0 || n.ProteinG > MaxProteinG {
		return &SchemaError{Reason: fmt.Sprintf("%s: protein_g %.0f implausible", label, n.ProteinG)}
	}
	if !isFinite(n.HydrationL) || n.HydrationL <= 0 || n.HydrationL > MaxHydrationL {
		return &SchemaError{Reason: fmt.Sprintf("%s: hydration_l %.1f implausible", label, n.HydrationL)}
	}

	if len(day.Recovery.Mobility) == 0 {
		return &SchemaError{Reason: label + ": recovery has no mobility entries"}
	}
	if len(day.Recovery.Sleep) == 0 {
		return &SchemaError{Reason: label + ": recovery has no sleep entries"}
	}
	return nil
}

func isCanonicalWeekday(key domain.Weekday) bool {
	for _, wd := range domain.WeekOrder {
		if key == wd {
			return true
		}
	}
	return false
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
