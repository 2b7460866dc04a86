package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Goal is the user's primary training objective.
type Goal string

const (
	GoalWeightLoss  Goal = "weight_loss"
	GoalMuscleGain  Goal = "muscle_gain"
	GoalMaintenance Goal = "maintenance"
	GoalEndurance   Goal = "endurance"
)

// Equipment the user has access to. "bodyweight" is always a valid floor.
type Equipment string

const (
	EquipmentBodyweight Equipment = "bodyweight"
	EquipmentDumbbells  Equipment = "dumbbells"
	EquipmentBarbell    Equipment = "barbell"
	EquipmentKettlebell Equipment = "kettlebell"
	EquipmentBands      Equipment = "bands"
	EquipmentFullGym    Equipment = "full_gym"
)

// DietPreference is a single-select choice. Meal templates for different
// preferences are disjoint, so generation can never leak excluded foods.
type DietPreference string

const (
	DietVegetarian DietPreference = "vegetarian"
	DietEggitarian DietPreference = "eggitarian"
	DietNonVeg     DietPreference = "non_veg"
)

type ActivityLevel string

const (
	ActivitySedentary  ActivityLevel = "sedentary"
	ActivityLight      ActivityLevel = "light"
	ActivityModerate   ActivityLevel = "moderate"
	ActivityActive     ActivityLevel = "active"
	ActivityVeryActive ActivityLevel = "very_active"
)

type Sex string

const (
	SexMale   Sex = "male"
	SexFemale Sex = "female"
)

type TrainingLevel string

const (
	LevelBeginner     TrainingLevel = "beginner"
	LevelIntermediate TrainingLevel = "intermediate"
	LevelAdvanced     TrainingLevel = "advanced"
)

type IntensityStyle string

const (
	IntensitySteady     IntensityStyle = "steady"
	IntensityModerate   IntensityStyle = "moderate"
	IntensityAggressive IntensityStyle = "aggressive"
)

// IntensityPreference pairs a named style with a 1-10 effort level.
type IntensityPreference struct {
	Style IntensityStyle `bson:"style" json:"style"`
	Level int            `bson:"level" json:"level"` // 1-10
}

// UserProfile is the immutable input to plan generation. It is owned by the
// caller: the generation pipeline reads it and never writes it back.
type UserProfile struct {
	UserID             primitive.ObjectID  `bson:"_id" json:"userId"`
	Goal               Goal                `bson:"goal" json:"goal"`
	Equipment          []Equipment         `bson:"equipment" json:"equipment"`
	Diet               DietPreference      `bson:"diet" json:"diet"`
	TrainingDays       int                 `bson:"trainingDays" json:"trainingDays"` // 1-7
	Age                int                 `bson:"age,omitempty" json:"age,omitempty"`
	Sex                Sex                 `bson:"sex,omitempty" json:"sex,omitempty"`
	HeightCm           float64             `bson:"heightCm,omitempty" json:"heightCm,omitempty"`
	WeightKg           float64             `bson:"weightKg,omitempty" json:"weightKg,omitempty"`
	ActivityLevel      ActivityLevel       `bson:"activityLevel" json:"activityLevel"`
	DailyCalorieTarget int                 `bson:"dailyCalorieTarget,omitempty" json:"dailyCalorieTarget,omitempty"`
	AvoidExercises     []string            `bson:"avoidExercises,omitempty" json:"avoidExercises,omitempty"`
	PreferredExercises []string            `bson:"preferredExercises,omitempty" json:"preferredExercises,omitempty"`
	SessionMinutes     int                 `bson:"sessionMinutes" json:"sessionMinutes"`
	FastingWindow      string              `bson:"fastingWindow,omitempty" json:"fastingWindow,omitempty"` // e.g. "16:8"
	MealsPerDay        int                 `bson:"mealsPerDay" json:"mealsPerDay"`
	SpecialRequest     string              `bson:"specialRequest,omitempty" json:"specialRequest,omitempty"`
	Intensity          IntensityPreference `bson:"intensity" json:"intensity"`
	TrainingLevel      TrainingLevel       `bson:"trainingLevel" json:"trainingLevel"`
	UpdatedAt          time.Time           `bson:"updatedAt" json:"updatedAt"`
}

// HasEquipment reports whether the profile includes the given equipment.
func (p *UserProfile) HasEquipment(eq Equipment) bool {
	for _, e := range p.Equipment {
		if e == eq {
			return true
		}
	}
	return false
}

// BodyweightOnly is true when the user has no weighted equipment at all.
func (p *UserProfile) BodyweightOnly() bool {
	for _, e := range p.Equipment {
		if e != EquipmentBodyweight {
			return false
		}
	}
	return true
}
