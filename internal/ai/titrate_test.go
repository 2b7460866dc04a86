package ai

import (
	"strings"
	"testing"

	"pulsefit/plan-engine/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func trainingDayForTitration() domain.DayPlan {
	day := validDay()
	day.Workout.Blocks = []domain.WorkoutBlock{
		{Name: "Warmup", Items: []domain.ExerciseItem{{Exercise: "Arm circles", Reps: "2 min"}}},
		{Name: "Main", Items: []domain.ExerciseItem{
			{Exercise: "Goblet squat", Sets: 4, Reps: "8-12", RIR: 2},
			{Exercise: "Bench press", Sets: 4, Reps: "8-12", RIR: 2},
		}},
	}
	return day
}

func TestAdjustDayDoesNotMutateInput(t *testing.T) {
	base := trainingDayForTitration()
	AdjustDay(base, domain.CheckIn{Energy: 2, SleepHrs: 4})
	assert.Equal(t, 4, base.Workout.Blocks[1].Items[0].Sets)
	assert.Equal(t, 2, base.Workout.Blocks[1].Items[0].RIR)
}

func TestAdjustDayLowEnergyReducesVolume(t *testing.T) {
	base := trainingDayForTitration()
	day := AdjustDay(base, domain.CheckIn{Energy: 3, SleepHrs: 8})

	item := day.Workout.Blocks[1].Items[0]
	assert.Equal(t, 3, item.Sets) // 4 - ceil(4/4) = 3
	assert.GreaterOrEqual(t, item.RIR, 3)
	assert.NoError(t, ValidateDay(&day))
}

func TestAdjustDayShortSleepAlsoReduces(t *testing.T) {
	base := trainingDayForTitration()
	day := AdjustDay(base, domain.CheckIn{Energy: 7, SleepHrs: 5})
	assert.Equal(t, 3, day.Workout.Blocks[1].Items[0].Sets)
}

func TestAdjustDayStrongRecoveryAddsOneSet(t *testing.T) {
	base := trainingDayForTitration()
	day := AdjustDay(base, domain.CheckIn{Energy: 9, SleepHrs: 8})

	// One set on the first main lift, warmup untouched.
	assert.Equal(t, 5, day.Workout.Blocks[1].Items[0].Sets)
	assert.Equal(t, 4, day.Workout.Blocks[1].Items[1].Sets)
	assert.Equal(t, 0, day.Workout.Blocks[0].Items[0].Sets)
}

func TestAdjustDaySorenessSubstitution(t *testing.T) {
	base := trainingDayForTitration()
	day := AdjustDay(base, domain.CheckIn{Energy: 7, SleepHrs: 8, Soreness: []string{"legs"}})

	for _, item := range day.Workout.Blocks[1].Items {
		assert.NotContains(t, strings.ToLower(item.Exercise), "squat")
	}
	// Bench press stays.
	found := false
	for _, item := range day.Workout.Blocks[1].Items {
		if item.Exercise == "Bench press" {
			found = true
		}
	}
	assert.True(t, found)
	assert.NoError(t, ValidateDay(&day))
}

func TestAdjustDaySorenessNeverEmptiesABlock(t *testing.T) {
	base := trainingDayForTitration()
	day := AdjustDay(base, domain.CheckIn{Energy: 7, SleepHrs: 8, Soreness: []string{"legs", "chest"}})

	require.NotEmpty(t, day.Workout.Blocks)
	for _, block := range day.Workout.Blocks {
		assert.NotEmpty(t, block.Items, "block %q emptied", block.Name)
	}
	assert.NoError(t, ValidateDay(&day))
}

func TestAdjustDayTravelingOverridesEverything(t *testing.T) {
	base := trainingDayForTitration()
	day := AdjustDay(base, domain.CheckIn{Energy: 2, SleepHrs: 4, Traveling: true, Soreness: []string{"legs"}})

	assert.Equal(t, []string{"Travel"}, day.Workout.Focus)
	require.Len(t, day.Workout.Blocks, 1)
	assert.Equal(t, "Travel circuit", day.Workout.Blocks[0].Name)
	assert.NoError(t, ValidateDay(&day))
}
