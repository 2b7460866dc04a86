// internal/service/stats.go
//
// Pure derivations over immutable history: plan statistics and the
// local/remote collection merge. Both are recomputable at any time and are
// never the sole source of truth for anything.
package service

import (
	"sort"
	"strings"
	"time"

	"pulsefit/plan-engine/internal/domain"
)

const dateLayout = "2006-01-02"

// ComputeStats derives plan statistics from check-in history for the plan's
// active window. The function is pure: identical inputs yield identical
// outputs, and check-in order does not matter (they are sorted internally).
func ComputeStats(plan *domain.WeeklyBasePlan, checkins []domain.CheckIn, now time.Time) domain.PlanStats {
	start := plan.CreatedAt
	if plan.ActivatedAt != nil {
		start = *plan.ActivatedAt
	}
	end := now
	if plan.DeactivatedAt != nil {
		end = *plan.DeactivatedAt
	}
	if end.Before(start) {
		end = start
	}
	startDay := start.UTC().Format(dateLayout)
	endDay := end.UTC().Format(dateLayout)

	// ISO dates compare lexicographically, so the window filter is a string
	// range check and sorting is stable regardless of input order.
	inWindow := make([]domain.CheckIn, 0, len(checkins))
	for _, ci := range checkins {
		if ci.Date >= startDay && ci.Date <= endDay {
			inWindow = append(inWindow, ci)
		}
	}
	sort.Slice(inWindow, func(i, j int) bool {
		if inWindow[i].Date != inWindow[j].Date {
			return inWindow[i].Date < inWindow[j].Date
		}
		return inWindow[i].CreatedAt.Before(inWindow[j].CreatedAt)
	})

	stats := domain.PlanStats{}

	daysActive := calendarDaysBetween(startDay, endDay)
	stats.DaysActive = &daysActive

	seen := make(map[string]struct{}, len(inWindow))
	workouts := 0
	weightSamples := 0
	var firstWeight, lastWeight float64
	for _, ci := range inWindow {
		if _, dup := seen[ci.Date]; !dup {
			seen[ci.Date] = struct{}{}
			if d, err := time.Parse(dateLayout, ci.Date); err == nil {
				if day, ok := plan.Days[domain.WeekdayOf(d)]; ok && isWorkoutDay(day) {
					workouts++
				}
			}
		}
		if ci.WeightKg != nil {
			if weightSamples == 0 {
				firstWeight = *ci.WeightKg
			}
			lastWeight = *ci.WeightKg
			weightSamples++
		}
	}
	stats.TotalWorkouts = &workouts

	if daysActive > 0 {
		consistency := 100 * float64(len(seen)) / float64(daysActive)
		if consistency > 100 {
			consistency = 100
		}
		stats.ConsistencyPercent = &consistency
	}

	// Weight change needs at least two samples to mean anything.
	if weightSamples >= 2 {
		change := lastWeight - firstWeight
		stats.WeightChangeKg = &change
	}

	return stats
}

func calendarDaysBetween(startDay, endDay string) int {
	s, err1 := time.Parse(dateLayout, startDay)
	e, err2 := time.Parse(dateLayout, endDay)
	if err1 != nil || err2 != nil || e.Before(s) {
		return 1
	}
	return int(e.Sub(s).Hours()/24) + 1
}

// isWorkoutDay distinguishes training days from rest/recovery templates.
func isWorkoutDay(day domain.DayPlan) bool {
	for _, focus := range day.Workout.Focus {
		f := strings.ToLower(focus)
		if f == "recovery" || f == "rest" {
			return false
		}
	}
	return len(day.Workout.Blocks) > 0
}

// MergePlans unions the local and remote plan collections by plan ID. On
// conflict the remote plan's core fields win, but any stats field the remote
// left empty is filled from the local copy. The result is sorted by creation
// time then ID and re-normalized to at most one active plan, so the merge is
// idempotent and independent of input element order.
func MergePlans(local, remote []domain.WeeklyBasePlan) []domain.WeeklyBasePlan {
	byID := make(map[string]domain.WeeklyBasePlan, len(local)+len(remote))
	for _, p := range local {
		byID[p.ID] = p
	}
	for _, r := range remote {
		if l, ok := byID[r.ID]; ok {
			merged := r
			merged.Stats = mergeStats(r.Stats, l.Stats)
			byID[r.ID] = merged
		} else {
			byID[r.ID] = r
		}
	}

	out := make([]domain.WeeklyBasePlan, 0, len(byID))
	for _, p := range byID {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	normalizeActive(out)
	return out
}

// mergeStats union-fills nil stats fields on the remote copy from the local
// one. Remote non-nil fields always win.
func mergeStats(remote, local *domain.PlanStats) *domain.PlanStats {
	if remote == nil {
		return local
	}
	if local == nil {
		return remote
	}
	merged := *remote
	if merged.WeightChangeKg == nil {
		merged.WeightChangeKg = local.WeightChangeKg
	}
	if merged.ConsistencyPercent == nil {
		merged.ConsistencyPercent = local.ConsistencyPercent
	}
	if merged.DaysActive == nil {
		merged.DaysActive = local.DaysActive
	}
	if merged.TotalWorkouts == nil {
		merged.TotalWorkouts = local.TotalWorkouts
	}
	return &merged
}

// normalizeActive restores the single-active invariant after a union: when
// both sides claim an active plan, the most recently activated one keeps the
// flag (ties broken by ID for determinism) and the rest are archived.
func normalizeActive(plans []domain.WeeklyBasePlan) {
	winner := -1
	for i := range plans {
		if !plans[i].IsActive {
			continue
		}
		if winner < 0 || activationTime(&plans[i]).After(activationTime(&plans[winner])) ||
			(activationTime(&plans[i]).Equal(activationTime(&plans[winner])) && plans[i].ID > plans[winner].ID) {
			winner = i
		}
	}
	for i := range plans {
		if plans[i].IsActive && i != winner {
			plans[i].IsActive = false
			plans[i].Status = domain.PlanStatusArchived
		}
	}
}

func activationTime(p *domain.WeeklyBasePlan) time.Time {
	if p.ActivatedAt != nil {
		return *p.ActivatedAt
	}
	return p.CreatedAt
}
