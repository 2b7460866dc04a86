// internal/ai/fallback.go
//
// Deterministic plan generator used whenever the AI path fails. It needs no
// network, depends only on the profile (and optionally a check-in), and its
// output must always satisfy the same validator as AI output.
package ai

import (
	"fmt"
	"strings"

	"pulsefit/plan-engine/internal/domain"
)

// --- Exercise pools ---
// Keyed by focus label. The bodyweight pools are the floor every user can
// do; weighted pools require at least one piece of real equipment.

var bodyweightPool = map[string][]domain.ExerciseItem{
	"Push": {
		{Exercise: "Push-up", Sets: 4, Reps: "8-15", RIR: 2},
		{Exercise: "Pike push-up", Sets: 3, Reps: "6-10", RIR: 2},
		{Exercise: "Triceps dip (chair)", Sets: 3, Reps: "8-12", RIR: 2},
	},
	"Pull": {
		{Exercise: "Inverted row (table)", Sets: 4, Reps: "8-12", RIR: 2},
		{Exercise: "Doorframe row", Sets: 3, Reps: "10-15", RIR: 2},
		{Exercise: "Reverse snow angel", Sets: 3, Reps: "12-15", RIR: 3},
	},
	"Legs": {
		{Exercise: "Bodyweight squat", Sets: 4, Reps: "12-20", RIR: 2},
		{Exercise: "Walking lunge", Sets: 3, Reps: "10-12 per leg", RIR: 2},
		{Exercise: "Single-leg glute bridge", Sets: 3, Reps: "10-15", RIR: 2},
		{Exercise: "Calf raise", Sets: 3, Reps: "15-20", RIR: 3},
	},
	"Full Body": {
		{Exercise: "Burpee", Sets: 3, Reps: "8-12", RIR: 3},
		{Exercise: "Bodyweight squat", Sets: 3, Reps: "12-20", RIR: 2},
		{Exercise: "Push-up", Sets: 3, Reps: "8-15", RIR: 2},
		{Exercise: "Plank", Sets: 3, Reps: "30-60s", RIR: 3},
	},
}

var weightedPool = map[string][]domain.ExerciseItem{
	"Push": {
		{Exercise: "Dumbbell bench press", Sets: 4, Reps: "8-12", RIR: 2},
		{Exercise: "Overhead press", Sets: 3, Reps: "6-10", RIR: 2},
		{Exercise: "Lateral raise", Sets: 3, Reps: "12-15", RIR: 3},
	},
	"Pull": {
		{Exercise: "Bent-over row", Sets: 4, Reps: "8-12", RIR: 2},
		{Exercise: "Lat pulldown or pull-up", Sets: 3, Reps: "8-12", RIR: 2},
		{Exercise: "Biceps curl", Sets: 3, Reps: "10-15", RIR: 3},
	},
	"Legs": {
		{Exercise: "Goblet squat", Sets: 4, Reps: "8-12", RIR: 2},
		{Exercise: "Romanian deadlift", Sets: 3, Reps: "8-12", RIR: 2},
		{Exercise: "Split squat", Sets: 3, Reps: "8-10 per leg", RIR: 2},
		{Exercise: "Standing calf raise", Sets: 3, Reps: "12-15", RIR: 3},
	},
	"Full Body": {
		{Exercise: "Goblet squat", Sets: 3, Reps: "8-12", RIR: 2},
		{Exercise: "Dumbbell bench press", Sets: 3, Reps: "8-12", RIR: 2},
		{Exercise: "Bent-over row", Sets: 3, Reps: "8-12", RIR: 2},
		{Exercise: "Farmer carry", Sets: 3, Reps: "30-40m", RIR: 3},
	},
}

var warmupBlock = domain.WorkoutBlock{
	Name: "Warmup",
	Items: []domain.ExerciseItem{
		{Exercise: "Light cardio (march or jog in place)", Reps: "3-5 min"},
		{Exercise: "Arm circles and leg swings", Reps: "2 min"},
	},
}

var restDayBlock = domain.WorkoutBlock{
	Name: "Active recovery",
	Items: []domain.ExerciseItem{
		{Exercise: "Easy walk", Reps: "20-30 min"},
		{Exercise: "Full-body stretch", Reps: "10 min"},
	},
}

// --- Meal templates ---
// Templates per dietary preference are disjoint by construction: the
// non-veg template never appears in a vegetarian plan and vice versa.

var mealTemplates = map[domain.DietPreference][]domain.Meal{
	domain.DietVegetarian: {
		{Name: "Breakfast", Items: []domain.MealItem{{Food: "Oats with milk and banana", Qty: "1 bowl"}, {Food: "Mixed nuts", Qty: "30 g"}}},
		{Name: "Lunch", Items: []domain.MealItem{{Food: "Paneer and vegetable curry with rice", Qty: "1 plate"}, {Food: "Curd", Qty: "150 g"}}},
		{Name: "Snack", Items: []domain.MealItem{{Food: "Greek yogurt", Qty: "200 g"}, {Food: "Apple", Qty: "1"}}},
		{Name: "Dinner", Items: []domain.MealItem{{Food: "Lentil dal with whole-wheat roti", Qty: "2 roti"}, {Food: "Sauteed greens", Qty: "1 cup"}}},
		{Name: "Evening snack", Items: []domain.MealItem{{Food: "Cottage cheese", Qty: "100 g"}}},
	},
	domain.DietEggitarian: {
		{Name: "Breakfast", Items: []domain.MealItem{{Food: "3-egg omelette with toast", Qty: "1 serving"}, {Food: "Orange", Qty: "1"}}},
		{Name: "Lunch", Items: []domain.MealItem{{Food: "Egg curry with rice", Qty: "1 plate"}, {Food: "Salad", Qty: "1 bowl"}}},
		{Name: "Snack", Items: []domain.MealItem{{Food: "Boiled eggs", Qty: "2"}, {Food: "Banana", Qty: "1"}}},
		{Name: "Dinner", Items: []domain.MealItem{{Food: "Paneer bhurji with roti", Qty: "2 roti"}, {Food: "Steamed vegetables", Qty: "1 cup"}}},
		{Name: "Evening snack", Items: []domain.MealItem{{Food: "Greek yogurt", Qty: "200 g"}}},
	},
	domain.DietNonVeg: {
		{Name: "Breakfast", Items: []domain.MealItem{{Food: "Scrambled eggs with toast", Qty: "1 serving"}, {Food: "Banana", Qty: "1"}}},
		{Name: "Lunch", Items: []domain.MealItem{{Food: "Grilled chicken breast with rice", Qty: "1 plate"}, {Food: "Salad", Qty: "1 bowl"}}},
		{Name: "Snack", Items: []domain.MealItem{{Food: "Tuna on crackers", Qty: "1 tin"}}},
		{Name: "Dinner", Items: []domain.MealItem{{Food: "Baked fish with sweet potato", Qty: "1 serving"}, {Food: "Steamed broccoli", Qty: "1 cup"}}},
		{Name: "Evening snack", Items: []domain.MealItem{{Food: "Cottage cheese", Qty: "100 g"}}},
	},
}

var activityMultipliers = map[domain.ActivityLevel]float64{
	domain.ActivitySedentary:  1.2,
	domain.ActivityLight:      1.375,
	domain.ActivityModerate:   1.55,
	domain.ActivityActive:     1.725,
	domain.ActivityVeryActive: 1.9,
}

// NutritionTargets computes daily kcal and protein from the profile: BMR
// (Mifflin-St Jeor) x activity multiplier, then a 15% deficit for weight
// loss or 15% surplus for muscle gain. An explicit calorie target on the
// profile wins. Results are always within the validator's bounds.
func NutritionTargets(p *domain.UserProfile) (kcal, proteinG float64) {
	weight := p.WeightKg
	if weight <= 0 {
		weight = 72
	}
	height := p.HeightCm
	if height <= 0 {
		height = 170
	}
	age := float64(p.Age)
	if age <= 0 {
		age = 30
	}

	bmr := 10*weight + 6.25*height - 5*age
	switch p.Sex {
	case domain.SexFemale:
		bmr -= 161
	case domain.SexMale:
		bmr += 5
	default:
		bmr -= 78 // midpoint when unreported
	}

	mult, ok := activityMultipliers[p.ActivityLevel]
	if !ok {
		mult = activityMultipliers[domain.ActivityModerate]
	}
	kcal = bmr * mult

	switch p.Goal {
	case domain.GoalWeightLoss:
		kcal *= 0.85
	case domain.GoalMuscleGain:
		kcal *= 1.15
	}

	if p.DailyCalorieTarget > 0 {
		kcal = float64(p.DailyCalorieTarget)
	}
	if kcal < MinDailyKcal {
		kcal = MinDailyKcal
	}
	if kcal > MaxDailyKcal {
		kcal = MaxDailyKcal
	}

	proteinG = 1.8 * weight
	if p.Goal == domain.GoalMuscleGain {
		proteinG = 2.0 * weight
	}
	if proteinG < 60 {
		proteinG = 60
	}
	if proteinG > 240 {
		proteinG = 240
	}
	return kcal, proteinG
}

// FallbackWeeklyPlan builds a complete 7-day plan from the profile alone.
// Training days are spread evenly across the week; the remainder are active
// recovery days. Output is deterministic for a given profile.
func FallbackWeeklyPlan(p *domain.UserProfile) map[domain.Weekday]domain.DayPlan {
	trainingDays := p.TrainingDays
	if trainingDays < 1 {
		trainingDays = 3
	}
	if trainingDays > 7 {
		trainingDays = 7
	}

	focusCycle := []string{"Push", "Pull", "Legs", "Full Body"}
	days := make(map[domain.Weekday]domain.DayPlan, len(domain.WeekOrder))
	trained := 0
	for i, wd := range domain.WeekOrder {
		// Even spacing: day i trains iff the running quota crosses an integer.
		isTraining := (i+1)*trainingDays/7 > i*trainingDays/7
		if isTraining {
			focus := focusCycle[trained%len(focusCycle)]
			days[wd] = fallbackTrainingDay(p, focus)
			trained++
		} else {
			days[wd] = fallbackRestDay(p)
		}
	}
	return days
}

// FallbackDay builds a single replacement day. When the check-in reports
// low energy (< 5) the day becomes a reduced-volume recovery session.
func FallbackDay(p *domain.UserProfile, checkin *domain.CheckIn) domain.DayPlan {
	if checkin != nil && checkin.Energy > 0 && checkin.Energy < 5 {
		return fallbackRestDay(p)
	}
	return fallbackTrainingDay(p, "Full Body")
}

func fallbackTrainingDay(p *domain.UserProfile, focus string) domain.DayPlan {
	pool := weightedPool
	if p.BodyweightOnly() {
		pool = bodyweightPool
	}
	main := filterAvoided(pool[focus], p.AvoidExercises)
	if len(main) == 0 {
		// Everything in the pool was on the avoid list; fall back to a
		// generic conditioning block rather than an empty workout.
		main = []domain.ExerciseItem{
			{Exercise: "Brisk incline walk", Reps: "25-30 min"},
			{Exercise: "Plank", Sets: 3, Reps: "30-60s", RIR: 3},
		}
	}

	blocks := []domain.WorkoutBlock{warmupBlock, {Name: "Main", Items: main}}
	// Short sessions drop the accessory work instead of squeezing it in.
	if p.SessionMinutes == 0 || p.SessionMinutes > 35 {
		blocks = append(blocks, domain.WorkoutBlock{
			Name: "Core and carry",
			Items: []domain.ExerciseItem{
				{Exercise: "Plank", Sets: 3, Reps: "30-60s", RIR: 3},
				{Exercise: "Dead bug", Sets: 3, Reps: "10 per side", RIR: 3},
			},
		})
	}

	day := domain.DayPlan{
		Workout: domain.Workout{
			Focus:  []string{focus},
			Blocks: blocks,
			Notes:  fmt.Sprintf("Deterministic template for a %s day. Progress load when all sets hit the top of the rep range.", strings.ToLower(focus)),
		},
		Nutrition: fallbackNutrition(p, true),
		Recovery: domain.Recovery{
			Mobility: []string{"5 min hip and shoulder openers after training"},
			Sleep:    []string{"Target 7.5-8.5 hours", "Screens off 30 min before bed"},
		},
	}
	return day
}

func fallbackRestDay(p *domain.UserProfile) domain.DayPlan {
	return domain.DayPlan{
		Workout: domain.Workout{
			Focus:  []string{"Recovery"},
			Blocks: []domain.WorkoutBlock{restDayBlock},
			Notes:  "Rest day. Keep moving gently; nothing strenuous.",
		},
		Nutrition: fallbackNutrition(p, false),
		Recovery: domain.Recovery{
			Mobility:  []string{"10 min full-body mobility flow", "5 min breathing practice"},
			Sleep:     []string{"Target 8 hours", "Consistent wake time"},
			CareNotes: "Use this day to catch up on sleep and hydration.",
		},
	}
}

func fallbackNutrition(p *domain.UserProfile, trainingDay bool) domain.Nutrition {
	kcal, protein := NutritionTargets(p)
	if !trainingDay && p.Goal == domain.GoalWeightLoss {
		// Slightly lower intake on rest days, still inside validator bounds.
		if kcal*0.95 >= MinDailyKcal {
			kcal *= 0.95
		}
	}

	template, ok := mealTemplates[p.Diet]
	if !ok {
		template = mealTemplates[domain.DietVegetarian]
	}
	mealCount := p.MealsPerDay
	if mealCount < 2 {
		mealCount = 3
	}
	if mealCount > len(template) {
		mealCount = len(template)
	}
	meals := make([]domain.Meal, mealCount)
	copy(meals, template[:mealCount])

	hydration := 2.5
	if trainingDay {
		hydration = 3.0
	}
	return domain.Nutrition{
		TotalKcal:  float64(int(kcal)),
		ProteinG:   float64(int(protein)),
		Meals:      meals,
		HydrationL: hydration,
	}
}

// filterAvoided drops any pool entry whose name matches an avoided exercise
// (case-insensitive substring match in either direction).
func filterAvoided(items []domain.ExerciseItem, avoid []string) []domain.ExerciseItem {
	if len(avoid) == 0 {
		out := make([]domain.ExerciseItem, len(items))
		copy(out, items)
		return out
	}
	var out []domain.ExerciseItem
	for _, item := range items {
		name := strings.ToLower(item.Exercise)
		blocked := false
		for _, a := range avoid {
			a = strings.ToLower(strings.TrimSpace(a))
			if a == "" {
				continue
			}
			if strings.Contains(name, a) || strings.Contains(a, name) {
				blocked = true
				break
			}
		}
		if !blocked {
			out = append(out, item)
		}
	}
	return out
}
