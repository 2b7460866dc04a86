// internal/domain/plan.go
package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Weekday is one of the 7 canonical lowercase day keys used in the plan
// wire format ("monday".."sunday").
type Weekday string

const (
	Monday    Weekday = "monday"
	Tuesday   Weekday = "tuesday"
	Wednesday Weekday = "wednesday"
	Thursday  Weekday = "thursday"
	Friday    Weekday = "friday"
	Saturday  Weekday = "saturday"
	Sunday    Weekday = "sunday"
)

// WeekOrder lists the canonical weekday keys in calendar order. Every base
// plan must contain exactly these 7 keys.
var WeekOrder = []Weekday{Monday, Tuesday, Wednesday, Thursday, Friday, Saturday, Sunday}

// WeekdayOf maps a time.Weekday to the canonical plan key.
func WeekdayOf(t time.Time) Weekday {
	switch t.Weekday() {
	case time.Monday:
		return Monday
	case time.Tuesday:
		return Tuesday
	case time.Wednesday:
		return Wednesday
	case time.Thursday:
		return Thursday
	case time.Friday:
		return Friday
	case time.Saturday:
		return Saturday
	default:
		return Sunday
	}
}

// ExerciseItem is one entry inside a workout block.
type ExerciseItem struct {
	Exercise string `bson:"exercise" json:"exercise"`
	Sets     int    `bson:"sets,omitempty" json:"sets,omitempty"`
	Reps     string `bson:"reps,omitempty" json:"reps,omitempty"`
	RIR      int    `bson:"rir,omitempty" json:"RIR,omitempty"`
}

// WorkoutBlock groups exercises under a named section ("Warmup", "Main", ...).
type WorkoutBlock struct {
	Name  string         `bson:"name" json:"name"`
	Items []ExerciseItem `bson:"items" json:"items"`
}

type Workout struct {
	Focus  []string       `bson:"focus" json:"focus"`
	Blocks []WorkoutBlock `bson:"blocks" json:"blocks"`
	Notes  string         `bson:"notes,omitempty" json:"notes,omitempty"`
}

type MealItem struct {
	Food string `bson:"food" json:"food"`
	Qty  string `bson:"qty,omitempty" json:"qty,omitempty"`
}

type Meal struct {
	Name  string     `bson:"name" json:"name"`
	Items []MealItem `bson:"items" json:"items"`
}

type Nutrition struct {
	TotalKcal  float64 `bson:"totalKcal" json:"total_kcal"`
	ProteinG   float64 `bson:"proteinG" json:"protein_g"`
	Meals      []Meal  `bson:"meals" json:"meals"`
	HydrationL float64 `bson:"hydrationL" json:"hydration_l"`
}

type Recovery struct {
	Mobility    []string `bson:"mobility" json:"mobility"`
	Sleep       []string `bson:"sleep" json:"sleep"`
	Supplements []string `bson:"supplements,omitempty" json:"supplements,omitempty"`
	CareNotes   string   `bson:"careNotes,omitempty" json:"careNotes,omitempty"`
}

// DayPlan is one day of a base plan: workout, nutrition and recovery.
type DayPlan struct {
	Workout   Workout   `bson:"workout" json:"workout"`
	Nutrition Nutrition `bson:"nutrition" json:"nutrition"`
	Recovery  Recovery  `bson:"recovery" json:"recovery"`
}

// PlanStatus mirrors the active/archived state machine. Exactly one plan per
// user may be active at a time; archival is the only non-terminal exit.
type PlanStatus string

const (
	PlanStatusActive   PlanStatus = "active"
	PlanStatusArchived PlanStatus = "archived"
)

// PlanSource records which path produced the plan.
type PlanSource string

const (
	PlanSourceAI       PlanSource = "ai"
	PlanSourceFallback PlanSource = "fallback"
)

// PlanStats is derived from check-in history while the plan was active.
// Fields are pointers so a merge can distinguish "not computed" from zero.
type PlanStats struct {
	WeightChangeKg     *float64 `bson:"weightChangeKg,omitempty" json:"weightChangeKg,omitempty"`
	ConsistencyPercent *float64 `bson:"consistencyPercent,omitempty" json:"consistencyPercent,omitempty"`
	DaysActive         *int     `bson:"daysActive,omitempty" json:"daysActive,omitempty"`
	TotalWorkouts      *int     `bson:"totalWorkouts,omitempty" json:"totalWorkouts,omitempty"`
}

// WeeklyBasePlan is a generated 7-day template. The ID is an opaque UUID
// assigned at generation time so local and remote copies of the same plan
// merge by identity.
type WeeklyBasePlan struct {
	ID            string              `bson:"_id" json:"id"`
	UserID        primitive.ObjectID  `bson:"userId" json:"userId"`
	Name          string              `bson:"name,omitempty" json:"name,omitempty"`
	Source        PlanSource          `bson:"source" json:"source"`
	Days          map[Weekday]DayPlan `bson:"days" json:"days"`
	IsActive      bool                `bson:"isActive" json:"isActive"`
	IsLocked      bool                `bson:"isLocked" json:"isLocked"`
	Status        PlanStatus          `bson:"status" json:"status"`
	Stats         *PlanStats          `bson:"stats,omitempty" json:"stats,omitempty"`
	CreatedAt     time.Time           `bson:"createdAt" json:"createdAt"`
	ActivatedAt   *time.Time          `bson:"activatedAt,omitempty" json:"activatedAt,omitempty"`
	DeactivatedAt *time.Time          `bson:"deactivatedAt,omitempty" json:"deactivatedAt,omitempty"`
}
