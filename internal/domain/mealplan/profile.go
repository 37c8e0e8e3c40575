package mealplan

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// PatientProfile is the questionnaire payload submitted by the client.
// Every field is optional and tolerant of loose typing.
type PatientProfile struct {
	PersonalInfo    PersonalInfo    `json:"personal_info"`
	DietPreferences DietPreferences `json:"diet_preferences"`
	GoalSettings    GoalSettings    `json:"goal_settings"`
}

// PersonalInfo holds demographic and medical details.
type PersonalInfo struct {
	Age               Value     `json:"age"`
	Weight            Value     `json:"weight"`
	WeightUnit        Value     `json:"weight_unit"`
	Height            Value     `json:"height"`
	HeightUnit        Value     `json:"height_unit"`
	Gender            Value     `json:"gender"`
	ZipCode           Value     `json:"zip_code"`
	MedicalConditions StringSet `json:"medical_conditions"`
	HbA1c             Value     `json:"hba1c"`
	Medications       StringSet `json:"medications"`
}

// DietPreferences holds cuisine and restriction choices.
type DietPreferences struct {
	Cuisines           StringSet `json:"cuisines"`
	OtherCuisine       Value     `json:"other_cuisine"`
	Allergies          StringSet `json:"allergies"`
	DietaryPreferences StringSet `json:"dietary_preferences"`
	BatchCooking       Flag      `json:"batch_cooking"`
	StrictnessLevel    Value     `json:"strictness_level"`
}

// GoalSettings holds plan shape and targets.
type GoalSettings struct {
	HealthGoal       Value `json:"health_goal"`
	CalorieReduction Value `json:"calorie_reduction"`
	MealPlanDays     Value `json:"meal_plan_days"`
	MealsPerDay      Value `json:"meals_per_day"`
	ActivityLevel    Value `json:"activity_level"`
}

// UnmarshalJSON ignores a section that is not an object.
func (p *PersonalInfo) UnmarshalJSON(data []byte) error {
	type plain PersonalInfo
	var out plain
	lenient(data, &out)
	*p = PersonalInfo(out)
	return nil
}

// UnmarshalJSON ignores a section that is not an object.
func (d *DietPreferences) UnmarshalJSON(data []byte) error {
	type plain DietPreferences
	var out plain
	lenient(data, &out)
	*d = DietPreferences(out)
	return nil
}

// UnmarshalJSON ignores a section that is not an object.
func (g *GoalSettings) UnmarshalJSON(data []byte) error {
	type plain GoalSettings
	var out plain
	lenient(data, &out)
	*g = GoalSettings(out)
	return nil
}

func lenient[T any](data []byte, dst *T) {
	var zero T
	if err := json.Unmarshal(data, dst); err != nil {
		*dst = zero
	}
}

// Value is a scalar field. Numbers and booleans keep their JSON spelling.
type Value struct {
	text string
	set  bool
}

// NewValue builds a present value.
func NewValue(text string) Value {
	text = strings.TrimSpace(text)
	return Value{text: text, set: text != ""}
}

// UnmarshalJSON accepts any JSON value; null and blank strings count as absent.
func (v *Value) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	*v = Value{}
	switch {
	case len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")):
	case trimmed[0] == '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err == nil {
			*v = NewValue(s)
		}
	case trimmed[0] == '{' || trimmed[0] == '[':
		var buf bytes.Buffer
		if err := json.Compact(&buf, trimmed); err == nil {
			*v = NewValue(buf.String())
		}
	default:
		*v = NewValue(string(trimmed))
	}
	return nil
}

// MarshalJSON renders absent values as null.
func (v Value) MarshalJSON() ([]byte, error) {
	if !v.set {
		return []byte("null"), nil
	}
	return json.Marshal(v.text)
}

// IsSet reports whether the field was provided.
func (v Value) IsSet() bool { return v.set }

// String returns the raw text, empty when absent.
func (v Value) String() string { return v.text }

// Or returns the text or the fallback when absent.
func (v Value) Or(fallback string) string {
	if !v.set {
		return fallback
	}
	return v.text
}

// Int parses the value as a whole number.
func (v Value) Int() (int, bool) {
	if !v.set {
		return 0, false
	}
	if n, err := strconv.Atoi(v.text); err == nil {
		return n, true
	}
	f, err := strconv.ParseFloat(v.text, 64)
	if err != nil || f != float64(int(f)) {
		return 0, false
	}
	return int(f), true
}

// StringSet is a list field. It accepts a JSON array or a comma separated string.
type StringSet []string

// UnmarshalJSON never fails; unusable input leaves the set empty.
func (s *StringSet) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	*s = nil
	if len(trimmed) == 0 {
		return nil
	}
	switch trimmed[0] {
	case '[':
		var items []Value
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return nil
		}
		for _, item := range items {
			if item.IsSet() {
				*s = append(*s, item.String())
			}
		}
	case '"':
		var raw string
		if err := json.Unmarshal(trimmed, &raw); err != nil {
			return nil
		}
		for _, part := range strings.Split(raw, ",") {
			if part = strings.TrimSpace(part); part != "" {
				*s = append(*s, part)
			}
		}
	default:
		var single Value
		_ = single.UnmarshalJSON(trimmed)
		if single.IsSet() && !strings.HasPrefix(single.String(), "{") {
			*s = StringSet{single.String()}
		}
	}
	return nil
}

// Join renders the set as a comma separated list or the fallback when empty.
func (s StringSet) Join(fallback string) string {
	if len(s) == 0 {
		return fallback
	}
	return strings.Join(s, ", ")
}

// Flag is a yes/no field that tolerates strings and numbers.
type Flag bool

// UnmarshalJSON never fails; anything unrecognized is false.
func (f *Flag) UnmarshalJSON(data []byte) error {
	var v Value
	_ = v.UnmarshalJSON(data)
	switch strings.ToLower(v.String()) {
	case "true", "yes", "y", "on", "1":
		*f = true
	default:
		n, err := strconv.ParseFloat(v.String(), 64)
		*f = Flag(err == nil && n != 0)
	}
	return nil
}

var sectionKeys = []string{"personal_info", "diet_preferences", "goal_settings"}

const maxUnwrapDepth = 2

// DecodeProfile interprets a raw payload as a profile. It unwraps a JSON string holding the
// document and a single-key object whose key is the JSON document. The second return value
// is false when the payload is not a JSON object in any of those forms.
func DecodeProfile(raw []byte) (PatientProfile, bool) {
	return decodeProfile(bytes.TrimSpace(raw), 0)
}

func decodeProfile(raw []byte, depth int) (PatientProfile, bool) {
	if len(raw) == 0 || depth > maxUnwrapDepth {
		return PatientProfile{}, false
	}
	switch raw[0] {
	case '{':
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(raw, &fields); err != nil {
			return PatientProfile{}, false
		}
		if len(fields) == 1 && !hasSectionKey(fields) {
			for key := range fields {
				if profile, ok := decodeProfile([]byte(strings.TrimSpace(key)), depth+1); ok {
					return profile, true
				}
			}
		}
		var profile PatientProfile
		if err := json.Unmarshal(raw, &profile); err != nil {
			return PatientProfile{}, false
		}
		return profile, true
	case '"':
		var text string
		if err := json.Unmarshal(raw, &text); err != nil {
			return PatientProfile{}, false
		}
		return decodeProfile(bytes.TrimSpace([]byte(text)), depth+1)
	default:
		return PatientProfile{}, false
	}
}

func hasSectionKey(fields map[string]json.RawMessage) bool {
	for key := range fields {
		for _, section := range sectionKeys {
			if strings.EqualFold(key, section) {
				return true
			}
		}
	}
	return false
}

// IsEmptyPayload reports whether a request body carries no usable data:
// blank, null, an empty string, an empty object or an empty array.
func IsEmptyPayload(raw []byte) bool {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return true
	}
	var decoded any
	if err := json.Unmarshal(trimmed, &decoded); err != nil {
		return false
	}
	switch v := decoded.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(v) == ""
	case map[string]any:
		return len(v) == 0
	case []any:
		return len(v) == 0
	}
	return false
}
