// internal/domain/checkin.go
package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// WokeFeeling is the self-reported state on waking.
type WokeFeeling string

const (
	WokeRested WokeFeeling = "rested"
	WokeOkay   WokeFeeling = "okay"
	WokeTired  WokeFeeling = "tired"
)

// CheckIn is a daily wellness snapshot. Check-ins are read-only inputs to
// titration and plan stats; this subsystem never mutates them after creation.
type CheckIn struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID     primitive.ObjectID `bson:"userId" json:"userId"`
	Date       string             `bson:"date" json:"date"` // "2006-01-02", user-local day
	Energy     int                `bson:"energy" json:"energy"`         // 1-10
	Stress     int                `bson:"stress" json:"stress"`         // 1-10
	SleepHrs   float64            `bson:"sleepHrs" json:"sleepHrs"`
	WokeAs     WokeFeeling        `bson:"wokeAs" json:"wokeAs"`
	Soreness   []string           `bson:"soreness,omitempty" json:"soreness,omitempty"` // muscle groups
	Mood       string             `bson:"mood,omitempty" json:"mood,omitempty"`
	Motivation int                `bson:"motivation" json:"motivation"` // 1-10
	Traveling  bool               `bson:"traveling,omitempty" json:"traveling,omitempty"`
	WeightKg   *float64           `bson:"weightKg,omitempty" json:"weightKg,omitempty"` // optional morning weigh-in
	CreatedAt  time.Time          `bson:"createdAt" json:"createdAt"`
}
