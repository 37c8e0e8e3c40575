package mealplan

import (
	"cmp"
	"slices"
	"strings"
)

// IntegrityViolation is a meal slot naming a recipe that is not in the recipes section.
type IntegrityViolation struct {
	Day    string `json:"day"`
	Slot   string `json:"slot"`
	Recipe string `json:"recipe"`
}

// IntegrityViolations lists every dangling recipe reference, ordered by day then slot.
// Blank slots are not references and are skipped.
func (d Document) IntegrityViolations() []IntegrityViolation {
	var out []IntegrityViolation
	for _, day := range d.Days() {
		slots := d.MealPlan[day]
		names := make([]string, 0, len(slots))
		for slot := range slots {
			names = append(names, slot)
		}
		slices.Sort(names)
		for _, slot := range names {
			recipe := slots[slot]
			if strings.TrimSpace(recipe) == "" {
				continue
			}
			if _, ok := d.Recipes[recipe]; !ok {
				out = append(out, IntegrityViolation{Day: day, Slot: slot, Recipe: recipe})
			}
		}
	}
	return out
}

// HasReferentialIntegrity reports whether every meal slot resolves to a recipe.
func (d Document) HasReferentialIntegrity() bool {
	return len(d.IntegrityViolations()) == 0
}

func sortDayKeys(keys []string) {
	slices.SortFunc(keys, func(a, b string) int {
		na, okA := dayNumber(a)
		nb, okB := dayNumber(b)
		switch {
		case okA && okB && na != nb:
			return cmp.Compare(na, nb)
		case okA != okB:
			if okA {
				return -1
			}
			return 1
		}
		return cmp.Compare(a, b)
	})
}
