package mealplan

import (
	"bytes"
	"strings"
)

const (
	notProvided = "Not provided"
	noneValue   = "None"

	// NoDataSummary is the summary produced for an empty payload.
	NoDataSummary = "No data provided"
)

// Section headers, in the order they appear in every summary.
const (
	HeaderPersonal = "Personal Information:"
	HeaderDiet     = "Diet Preferences:"
	HeaderGoals    = "Goal Settings:"
)

// Normalize renders a raw payload into the flat textual summary embedded in the prompt.
// It never fails: payloads that are not a profile in any accepted form are returned as text.
func Normalize(raw []byte) string {
	trimmed := bytes.TrimSpace(raw)
	if IsEmptyPayload(trimmed) {
		return NoDataSummary
	}
	profile, ok := DecodeProfile(trimmed)
	if !ok {
		return strings.ToValidUTF8(string(trimmed), "�")
	}
	return profile.Summary()
}

// Summary renders every known field in a fixed order.
func (p PatientProfile) Summary() string {
	pi, dp, gs := p.PersonalInfo, p.DietPreferences, p.GoalSettings

	lines := []string{
		HeaderPersonal,
		"Patient's Age: " + pi.Age.Or(notProvided),
		"Patient's Weight: " + withUnit(pi.Weight, pi.WeightUnit, "kg", "lbs"),
		"Patient's Height: " + withUnit(pi.Height, pi.HeightUnit, "cm", "in"),
		"Patient's Gender: " + pi.Gender.Or(notProvided),
		"ZIP Code: " + pi.ZipCode.Or(notProvided),
		"Medical Conditions: " + pi.MedicalConditions.Join(noneValue),
		"HbA1c: " + pi.HbA1c.Or(notProvided),
		"Medications: " + pi.Medications.Join(noneValue),
		"",
		HeaderDiet,
		"Preferred Cuisines: " + dp.Cuisines.Join(noneValue),
		"Other Cuisine: " + dp.OtherCuisine.Or(noneValue),
		"Allergies: " + dp.Allergies.Join(noneValue),
		"Dietary Preferences: " + dp.DietaryPreferences.Join(noneValue),
		"Batch Cooking: " + yesNo(bool(dp.BatchCooking)),
		"Strictness Level: " + dp.StrictnessLevel.Or(notProvided),
		"",
		HeaderGoals,
		"Health Goal: " + gs.HealthGoal.Or(notProvided),
		"Calorie Reduction: " + gs.CalorieReduction.Or(notProvided),
		"Meal Plan Days: " + gs.MealPlanDays.Or(notProvided),
		"Meals Per Day: " + gs.MealsPerDay.Or(notProvided),
		"Activity Level: " + gs.ActivityLevel.Or(notProvided),
	}
	return strings.Join(lines, "\n")
}

// withUnit appends the measurement unit only when a value is present.
// Unknown units fall back to the default.
func withUnit(v, unit Value, defaultUnit, altUnit string) string {
	if !v.IsSet() {
		return notProvided
	}
	u := defaultUnit
	if strings.EqualFold(unit.String(), altUnit) {
		u = altUnit
	}
	return v.String() + " " + u
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}
