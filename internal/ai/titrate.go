// internal/ai/titrate.go
package ai

import (
	"strings"

	"pulsefit/plan-engine/internal/domain"
)

// sorenessPatterns maps reported sore muscle groups to exercise-name
// keywords that load them. Matching is lowercase substring.
var sorenessPatterns = map[string][]string{
	"legs":      {"squat", "lunge", "deadlift", "leg", "calf", "glute", "bridge"},
	"quads":     {"squat", "lunge", "leg press", "step"},
	"hamstring": {"deadlift", "curl", "bridge", "hinge"},
	"glutes":    {"squat", "lunge", "bridge", "thrust", "deadlift"},
	"chest":     {"bench", "push-up", "pushup", "press", "dip", "fly"},
	"shoulders": {"press", "raise", "pike", "handstand"},
	"back":      {"row", "pulldown", "pull-up", "pullup", "deadlift"},
	"arms":      {"curl", "dip", "triceps", "extension"},
	"core":      {"plank", "crunch", "dead bug", "sit-up"},
}

var travelCircuit = []domain.WorkoutBlock{
	{
		Name: "Travel circuit",
		Items: []domain.ExerciseItem{
			{Exercise: "Bodyweight squat", Sets: 3, Reps: "15-20", RIR: 3},
			{Exercise: "Push-up", Sets: 3, Reps: "10-15", RIR: 3},
			{Exercise: "Reverse lunge", Sets: 3, Reps: "10 per leg", RIR: 3},
			{Exercise: "Plank", Sets: 3, Reps: "30-45s", RIR: 3},
		},
	},
}

// AdjustDay applies the fixed titration rule table to a copy of the existing
// base day. This is the recovery path when the AI titration fails: the worst
// case is "today's template, lightly adjusted", never an invented day.
// Pure function; the input day is not mutated.
func AdjustDay(base domain.DayPlan, checkin domain.CheckIn) domain.DayPlan {
	day := cloneDay(base)

	if checkin.Traveling {
		day.Workout.Blocks = cloneBlocks(travelCircuit)
		day.Workout.Focus = []string{"Travel"}
		day.Workout.Notes = appendNote(day.Workout.Notes, "Short bodyweight session while traveling.")
		return day
	}

	if len(checkin.Soreness) > 0 {
		day.Workout.Blocks = substituteSore(day.Workout.Blocks, checkin.Soreness)
		day.Workout.Notes = appendNote(day.Workout.Notes, "Adjusted around reported soreness.")
	}

	lowRecovery := (checkin.Energy > 0 && checkin.Energy < 5) || (checkin.SleepHrs > 0 && checkin.SleepHrs < 6)
	strongRecovery := checkin.Energy >= 8 && checkin.SleepHrs >= 7.5

	if lowRecovery {
		reduceVolume(day.Workout.Blocks)
		day.Workout.Notes = appendNote(day.Workout.Notes, "Reduced volume: low energy or short sleep.")
	} else if strongRecovery {
		addBonusSet(day.Workout.Blocks)
		day.Workout.Notes = appendNote(day.Workout.Notes, "Added one set: strong recovery today.")
	}

	return day
}

// reduceVolume trims working sets by roughly a quarter and caps intensity
// so nothing is taken close to failure.
func reduceVolume(blocks []domain.WorkoutBlock) {
	for bi := range blocks {
		for ii := range blocks[bi].Items {
			item := &blocks[bi].Items[ii]
			if item.Sets > 1 {
				item.Sets -= (item.Sets + 3) / 4 // 25% rounded up, never below 1
				if item.Sets < 1 {
					item.Sets = 1
				}
			}
			if item.RIR != 0 && item.RIR < 3 {
				item.RIR = 3
			}
		}
	}
}

// addBonusSet adds a single set to the first weighted item of the first
// non-warmup block. One set, once.
func addBonusSet(blocks []domain.WorkoutBlock) {
	for bi := range blocks {
		if strings.EqualFold(blocks[bi].Name, "warmup") {
			continue
		}
		for ii := range blocks[bi].Items {
			if blocks[bi].Items[ii].Sets > 0 {
				blocks[bi].Items[ii].Sets++
				return
			}
		}
	}
}

// substituteSore removes items that load sore muscle groups. A block that
// empties is replaced with mobility work rather than dropped, so the day
// still validates.
func substituteSore(blocks []domain.WorkoutBlock, soreness []string) []domain.WorkoutBlock {
	var keywords []string
	for _, sore := range soreness {
		if patterns, ok := sorenessPatterns[strings.ToLower(strings.TrimSpace(sore))]; ok {
			keywords = append(keywords, patterns...)
		}
	}
	if len(keywords) == 0 {
		return blocks
	}

	out := make([]domain.WorkoutBlock, 0, len(blocks))
	for _, block := range blocks {
		kept := block.Items[:0:0]
		for _, item := range block.Items {
			name := strings.ToLower(item.Exercise)
			hits := false
			for _, kw := range keywords {
				if strings.Contains(name, kw) {
					hits = true
					break
				}
			}
			if !hits {
				kept = append(kept, item)
			}
		}
		if len(kept) == 0 {
			kept = []domain.ExerciseItem{
				{Exercise: "Gentle mobility for sore areas", Reps: "8-10 min"},
			}
		}
		block.Items = kept
		out = append(out, block)
	}
	return out
}

func appendNote(notes, extra string) string {
	if notes == "" {
		return extra
	}
	return notes + " " + extra
}

func cloneDay(d domain.DayPlan) domain.DayPlan {
	out := d
	out.Workout.Focus = append([]string(nil), d.Workout.Focus...)
	out.Workout.Blocks = cloneBlocks(d.Workout.Blocks)
	out.Nutrition.Meals = make([]domain.Meal, len(d.Nutrition.Meals))
	for i, meal := range d.Nutrition.Meals {
		meal.Items = append([]domain.MealItem(nil), meal.Items...)
		out.Nutrition.Meals[i] = meal
	}
	out.Recovery.Mobility = append([]string(nil), d.Recovery.Mobility...)
	out.Recovery.Sleep = append([]string(nil), d.Recovery.Sleep...)
	out.Recovery.Supplements = append([]string(nil), d.Recovery.Supplements...)
	return out
}

func cloneBlocks(blocks []domain.WorkoutBlock) []domain.WorkoutBlock {
	out := make([]domain.WorkoutBlock, len(blocks))
	for i, b := range blocks {
		b.Items = append([]domain.ExerciseItem(nil), b.Items...)
		out[i] = b
	}
	return out
}
