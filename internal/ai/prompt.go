// internal/ai/prompt.go
package ai

import (
	"encoding/json"
	"fmt"
	"strings"

	"pulsefit/plan-engine/internal/domain"
)

// Prompt is the system/user message pair sent to the completion endpoint.
type Prompt struct {
	System string
	User   string
}

const weeklySystemPrompt = `You are an expert strength coach and sports nutritionist.
You design 7-day training, nutrition and recovery plans tailored to one person.
Respond with a SINGLE JSON object and nothing else: no markdown fences, no commentary.
The object must have exactly this shape:
{"days": {"monday": DAY, "tuesday": DAY, "wednesday": DAY, "thursday": DAY, "friday": DAY, "saturday": DAY, "sunday": DAY}}
where DAY is:
{"workout": {"focus": [string], "blocks": [{"name": string, "items": [{"exercise": string, "sets": number, "reps": string, "RIR": number}]}], "notes": string},
 "nutrition": {"total_kcal": number, "protein_g": number, "meals": [{"name": string, "items": [{"food": string, "qty": string}]}], "hydration_l": number},
 "recovery": {"mobility": [string], "sleep": [string], "supplements": [string], "careNotes": string}}
Every day must include all three sections. Rest days still get a workout section with a light mobility block.
Use only exercises achievable with the listed equipment and never include avoided exercises or excluded foods.`

const titrationSystemPrompt = `You are an expert strength coach adjusting ONE day of an existing training plan
based on today's wellness check-in.
Respond with a SINGLE JSON object and nothing else: the adjusted day in the same shape
as the current day JSON you are given (workout, nutrition, recovery). No markdown fences, no commentary.
Keep the adjustment conservative: this is a titration of the existing day, not a new plan.`

// titrationRules is the fixed adjustment-rule table embedded verbatim in
// every titration prompt so the model's latitude is bounded.
const titrationRules = `Adjustment rules (apply every rule that matches, in order):
1. Energy below 5 or sleep under 6 hours: reduce total working sets by 20-30% and cap intensity (no set below RIR 2).
2. Reported soreness: substitute or skip movements loading the sore muscle groups; replace with mobility work if a block empties.
3. Traveling today: replace the session with a short bodyweight-only circuit of at most 25 minutes.
4. Strong recovery (energy 8+ and sleep 7.5h+): you may add one set to one main lift. Nothing more.
5. Never change total_kcal or protein_g by more than 10%. Never invent foods outside the current day's meals.`

// profileLines renders every populated profile field as one constraint line.
// The enumeration is deterministic and exhaustive so a missing constraint in
// a prompt is a bug here, not a formatting accident downstream.
func profileLines(p *domain.UserProfile) []string {
	lines := []string{
		fmt.Sprintf("- Goal: %s", p.Goal),
		fmt.Sprintf("- Training days per week: %d", p.TrainingDays),
		fmt.Sprintf("- Available equipment: %s", joinEquipment(p.Equipment)),
		fmt.Sprintf("- Dietary preference: %s (exclude all foods outside this preference)", p.Diet),
		fmt.Sprintf("- Activity level: %s", p.ActivityLevel),
		fmt.Sprintf("- Training level: %s", p.TrainingLevel),
		fmt.Sprintf("- Intensity: %s, level %d/10", p.Intensity.Style, p.Intensity.Level),
	}
	if p.SessionMinutes > 0 {
		lines = append(lines, fmt.Sprintf("- Maximum session length: %d minutes", p.SessionMinutes))
	}
	if p.MealsPerDay > 0 {
		lines = append(lines, fmt.Sprintf("- Meals per day: %d", p.MealsPerDay))
	}
	if p.Age > 0 {
		lines = append(lines, fmt.Sprintf("- Age: %d", p.Age))
	}
	if p.Sex != "" {
		lines = append(lines, fmt.Sprintf("- Sex: %s", p.Sex))
	}
	if p.HeightCm > 0 {
		lines = append(lines, fmt.Sprintf("- Height: %.0f cm", p.HeightCm))
	}
	if p.WeightKg > 0 {
		lines = append(lines, fmt.Sprintf("- Weight: %.1f kg", p.WeightKg))
	}
	if p.DailyCalorieTarget > 0 {
		lines = append(lines, fmt.Sprintf("- Daily calorie target: %d kcal (use this, do not recompute)", p.DailyCalorieTarget))
	}
	if len(p.AvoidExercises) > 0 {
		lines = append(lines, fmt.Sprintf("- Never include these exercises: %s", strings.Join(p.AvoidExercises, ", ")))
	}
	if len(p.PreferredExercises) > 0 {
		lines = append(lines, fmt.Sprintf("- Prefer these exercises where sensible: %s", strings.Join(p.PreferredExercises, ", ")))
	}
	if p.FastingWindow != "" {
		lines = append(lines, fmt.Sprintf("- Fasting window: %s (schedule meals inside the eating window)", p.FastingWindow))
	}
	if p.SpecialRequest != "" {
		lines = append(lines, fmt.Sprintf("- Special request: %s", p.SpecialRequest))
	}
	return lines
}

func joinEquipment(eqs []domain.Equipment) string {
	if len(eqs) == 0 {
		return string(domain.EquipmentBodyweight)
	}
	parts := make([]string, len(eqs))
	for i, e := range eqs {
		parts[i] = string(e)
	}
	return strings.Join(parts, ", ")
}

// BuildWeeklyPlanPrompt composes the base-plan request. Recent check-ins, if
// any, are summarized so the model can bias volume toward current recovery.
func BuildWeeklyPlanPrompt(p *domain.UserProfile, recent []domain.CheckIn) Prompt {
	var b strings.Builder
	b.WriteString("Create a complete 7-day plan for this person:\n\n")
	for _, line := range profileLines(p) {
		b.WriteString(line)
		b.WriteString("\n")
	}
	if len(recent) > 0 {
		b.WriteString("\nRecent daily check-ins (newest first):\n")
		for _, ci := range recent {
			b.WriteString(fmt.Sprintf("- %s: energy %d/10, stress %d/10, sleep %.1fh, motivation %d/10",
				ci.Date, ci.Energy, ci.Stress, ci.SleepHrs, ci.Motivation))
			if len(ci.Soreness) > 0 {
				b.WriteString(", sore: " + strings.Join(ci.Soreness, "/"))
			}
			b.WriteString("\n")
		}
	}
	b.WriteString("\nReturn only the JSON object described in the system message.")
	return Prompt{System: weeklySystemPrompt, User: b.String()}
}

// BuildTitrationPrompt composes the single-day adjustment request. The
// current day's JSON is embedded verbatim so the model edits rather than
// reinvents, and the fixed rule table bounds what it may change.
func BuildTitrationPrompt(p *domain.UserProfile, day domain.DayPlan, today domain.CheckIn) (Prompt, error) {
	dayJSON, err := json.MarshalIndent(day, "", "  ")
	if err != nil {
		return Prompt{}, err
	}

	var b strings.Builder
	b.WriteString("Person:\n")
	for _, line := range profileLines(p) {
		b.WriteString(line)
		b.WriteString("\n")
	}
	b.WriteString("\nToday's check-in:\n")
	b.WriteString(fmt.Sprintf("- Energy: %d/10\n- Stress: %d/10\n- Sleep: %.1f hours\n- Woke feeling: %s\n- Motivation: %d/10\n",
		today.Energy, today.Stress, today.SleepHrs, today.WokeAs, today.Motivation))
	if len(today.Soreness) > 0 {
		b.WriteString("- Sore muscle groups: " + strings.Join(today.Soreness, ", ") + "\n")
	}
	if today.Traveling {
		b.WriteString("- Traveling today: yes\n")
	}
	b.WriteString("\nCurrent plan for today:\n")
	b.Write(dayJSON)
	b.WriteString("\n\n")
	b.WriteString(titrationRules)
	b.WriteString("\n\nReturn only the adjusted day as a JSON object.")
	return Prompt{System: titrationSystemPrompt, User: b.String()}, nil
}
