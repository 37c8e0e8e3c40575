package mealplan

import (
	"bytes"
	"encoding/json"
	"errors"
	"strconv"
	"strings"

	apperrors "github.com/yanqian/mealplan-ai/pkg/errors"
)

// Document is a decoded provider answer. The typed sections are the ones the
// service checks; the provider's bytes are kept and are what gets serialized.
type Document struct {
	MealPlan        map[string]map[string]string `json:"meal_plan"`
	NutritionalInfo json.RawMessage              `json:"nutritional_info,omitempty"`
	ShoppingList    []ShoppingItem               `json:"shopping_list"`
	Recipes         map[string]Recipe            `json:"recipes"`

	raw json.RawMessage
}

// documentFields has the same layout as Document without its JSON methods.
type documentFields Document

// NutritionalInfo aggregates daily and per-meal nutrient data.
type NutritionalInfo struct {
	DailyTotals   DailyTotals                         `json:"daily_totals"`
	MealBreakdown map[string]map[string]MealNutrition `json:"meal_breakdown,omitempty"`
	Notes         Text                                `json:"notes"`
}

// DailyTotals are the per-day targets.
type DailyTotals struct {
	Calories       Text           `json:"calories"`
	Macronutrients Macronutrients `json:"macronutrients"`
	Fiber          Text           `json:"fiber"`
	Sodium         Text           `json:"sodium"`
	Potassium      Text           `json:"potassium"`
	Phosphorus     Text           `json:"phosphorus"`
	Calcium        Text           `json:"calcium"`
	VitaminD       Text           `json:"vitamin_d"`
}

// Macronutrients splits daily energy by macro.
type Macronutrients struct {
	Carbohydrates MacroShare `json:"carbohydrates"`
	Proteins      MacroShare `json:"proteins"`
	Fats          MacroShare `json:"fats"`
}

// MacroShare is one macro's share of daily energy.
type MacroShare struct {
	Percentage Text `json:"percentage"`
	Grams      Text `json:"grams"`
}

// UnmarshalJSON accepts a bare value such as "50%" as the percentage.
func (m *MacroShare) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] != '{' {
		*m = MacroShare{}
		return m.Percentage.UnmarshalJSON(trimmed)
	}
	type plain MacroShare
	return json.Unmarshal(trimmed, (*plain)(m))
}

// MealNutrition is the breakdown for a single meal.
type MealNutrition struct {
	Calories       Text       `json:"calories"`
	Macronutrients MealMacros `json:"macronutrients"`
}

// MealMacros are the macro amounts of a single meal.
type MealMacros struct {
	Carbohydrates Text `json:"carbohydrates"`
	Proteins      Text `json:"proteins"`
	Fats          Text `json:"fats"`
}

// ShoppingItem is one grocery list entry.
type ShoppingItem struct {
	Ingredient Text `json:"ingredient"`
	Quantity   Text `json:"quantity"`
}

// UnmarshalJSON accepts a bare string entry as the ingredient.
func (s *ShoppingItem) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] != '{' {
		*s = ShoppingItem{}
		return s.Ingredient.UnmarshalJSON(trimmed)
	}
	type plain ShoppingItem
	return json.Unmarshal(trimmed, (*plain)(s))
}

// Recipe is keyed by the meal name used in the meal plan.
type Recipe struct {
	Ingredients  []Ingredient `json:"ingredients"`
	Instructions Text         `json:"instructions"`
}

// UnmarshalJSON accepts a recipe given as bare instructions.
func (r *Recipe) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] != '{' {
		*r = Recipe{}
		return r.Instructions.UnmarshalJSON(trimmed)
	}
	type plain Recipe
	return json.Unmarshal(trimmed, (*plain)(r))
}

// Ingredient is a recipe line item.
type Ingredient struct {
	Item     Text `json:"item"`
	Quantity Text `json:"quantity"`
}

// UnmarshalJSON accepts a bare string line as the item.
func (i *Ingredient) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] != '{' {
		*i = Ingredient{}
		return i.Item.UnmarshalJSON(trimmed)
	}
	type plain Ingredient
	return json.Unmarshal(trimmed, (*plain)(i))
}

// Text is a leaf of the document rendered as text. Numbers and booleans are kept
// verbatim, arrays are joined line by line and objects are kept as compact JSON.
type Text string

// UnmarshalJSON never rejects well-formed JSON.
func (t *Text) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	switch {
	case len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")):
		*t = ""
	case trimmed[0] == '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return err
		}
		*t = Text(s)
	case trimmed[0] == '[':
		var items []Text
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return err
		}
		lines := make([]string, 0, len(items))
		for _, item := range items {
			if item != "" {
				lines = append(lines, string(item))
			}
		}
		*t = Text(strings.Join(lines, "\n"))
	case trimmed[0] == '{':
		var buf bytes.Buffer
		if err := json.Compact(&buf, trimmed); err != nil {
			return err
		}
		*t = Text(buf.String())
	default:
		*t = Text(trimmed)
	}
	return nil
}

// Decode parses a provider answer. It does not repair or strip anything beyond
// surrounding whitespace; every failure is reported as malformed output. Only
// meal_plan, recipes and shopping_list are checked. The trimmed answer is kept
// unchanged for serialization.
func Decode(raw string) (Document, error) {
	trimmed := bytes.TrimSpace([]byte(raw))
	if len(trimmed) == 0 {
		return Document{}, apperrors.Wrap(CodeMalformedOutput, "the AI response was empty", nil)
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &fields); err != nil {
		var syntaxErr *json.SyntaxError
		if errors.As(err, &syntaxErr) {
			return Document{}, apperrors.Wrap(CodeMalformedOutput, "the AI response was not valid JSON", err)
		}
		return Document{}, apperrors.Wrap(CodeMalformedOutput, "the AI response is not a JSON object", err)
	}
	if fields == nil {
		return Document{}, apperrors.Wrap(CodeMalformedOutput, "the AI response is not a JSON object", nil)
	}

	doc := Document{raw: trimmed}
	if err := decodeSection(fields, "meal_plan", true, &doc.MealPlan, decodeMealPlan); err != nil {
		return Document{}, err
	}
	if err := decodeSection(fields, "recipes", true, &doc.Recipes, decodeRecipes); err != nil {
		return Document{}, err
	}
	if err := decodeSection(fields, "shopping_list", false, &doc.ShoppingList, decodeShoppingList); err != nil {
		return Document{}, err
	}
	if info, ok := fields["nutritional_info"]; ok && !isNull(info) {
		doc.NutritionalInfo = info
	}
	return doc, nil
}

func decodeSection[T any](fields map[string]json.RawMessage, key string, required bool, dst *T, decode func(json.RawMessage) (T, error)) error {
	section, ok := fields[key]
	if !ok || isNull(section) {
		if required {
			return apperrors.Wrap(CodeMalformedOutput, "the AI response is missing "+key, nil)
		}
		return nil
	}
	value, err := decode(section)
	if err != nil {
		return apperrors.Wrap(CodeMalformedOutput, "the AI response has an unexpected "+key+" shape", err)
	}
	*dst = value
	return nil
}

func decodeMealPlan(section json.RawMessage) (map[string]map[string]string, error) {
	var days map[string]map[string]Text
	if err := json.Unmarshal(section, &days); err != nil {
		return nil, err
	}
	if days == nil {
		return nil, errors.New("meal_plan is not an object")
	}
	out := make(map[string]map[string]string, len(days))
	for day, slots := range days {
		meals := make(map[string]string, len(slots))
		for slot, meal := range slots {
			meals[slot] = string(meal)
		}
		out[day] = meals
	}
	return out, nil
}

func decodeRecipes(section json.RawMessage) (map[string]Recipe, error) {
	var recipes map[string]Recipe
	if err := json.Unmarshal(section, &recipes); err != nil {
		return nil, err
	}
	if recipes == nil {
		return nil, errors.New("recipes is not an object")
	}
	return recipes, nil
}

func decodeShoppingList(section json.RawMessage) ([]ShoppingItem, error) {
	var items []ShoppingItem
	if err := json.Unmarshal(section, &items); err != nil {
		return nil, err
	}
	return items, nil
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

// Raw returns the provider answer the document was decoded from. Documents built
// in code are serialized from their typed sections.
func (d Document) Raw() json.RawMessage {
	if len(d.raw) > 0 {
		return d.raw
	}
	out, err := json.Marshal(documentFields(d))
	if err != nil {
		return nil
	}
	return out
}

// MarshalJSON writes the provider answer unchanged.
func (d Document) MarshalJSON() ([]byte, error) {
	if len(d.raw) > 0 {
		return d.raw, nil
	}
	return json.Marshal(documentFields(d))
}

// UnmarshalJSON restores a document written by MarshalJSON.
func (d *Document) UnmarshalJSON(data []byte) error {
	if isNull(data) {
		*d = Document{}
		return nil
	}
	doc, err := Decode(string(data))
	if err != nil {
		return err
	}
	*d = doc
	return nil
}

// Nutrition decodes the nutritional_info section. It is informational and not
// part of validation, so callers should treat an error as "not available".
func (d Document) Nutrition() (NutritionalInfo, error) {
	var info NutritionalInfo
	if len(d.NutritionalInfo) == 0 {
		return info, nil
	}
	err := json.Unmarshal(d.NutritionalInfo, &info)
	return info, err
}

// Days returns the meal plan day keys in calendar order.
func (d Document) Days() []string {
	return sortedDayKeys(d.MealPlan)
}

func sortedDayKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sortDayKeys(keys)
	return keys
}

// dayNumber extracts the trailing number of keys such as "Day 12".
func dayNumber(key string) (int, bool) {
	fields := strings.Fields(key)
	if len(fields) == 0 {
		return 0, false
	}
	n, err := strconv.Atoi(fields[len(fields)-1])
	return n, err == nil
}
