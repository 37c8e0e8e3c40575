package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/yanqian/mealplan-ai/internal/domain/mealplan"
)

var slotOrder = map[string]int{"Breakfast": 0, "Snack": 1, "Lunch": 2, "Dinner": 3}

func orderedSlots(day map[string]string) []string {
	slots := make([]string, 0, len(day))
	for slot := range day {
		slots = append(slots, slot)
	}
	sort.Slice(slots, func(i, j int) bool {
		oi, iok := slotOrder[slots[i]]
		oj, jok := slotOrder[slots[j]]
		switch {
		case iok && jok:
			return oi < oj
		case iok != jok:
			return iok
		default:
			return slots[i] < slots[j]
		}
	})
	return slots
}

func renderMarkdown(doc mealplan.Document) string {
	var b strings.Builder
	b.WriteString("# Meal Plan\n\n")
	for _, day := range doc.Days() {
		fmt.Fprintf(&b, "## %s\n\n", day)
		meals := doc.MealPlan[day]
		for _, slot := range orderedSlots(meals) {
			meal := meals[slot]
			if meal == "" {
				continue
			}
			fmt.Fprintf(&b, "- **%s**: %s\n", slot, meal)
		}
		b.WriteString("\n")
	}

	info, err := doc.Nutrition()
	if err != nil {
		info = mealplan.NutritionalInfo{}
	}
	totals := info.DailyTotals
	if totals.Calories != "" {
		b.WriteString("## Daily Targets\n\n")
		fmt.Fprintf(&b, "| Nutrient | Target |\n|---|---|\n")
		for _, row := range [][2]string{
			{"Calories", string(totals.Calories)},
			{"Carbohydrates", string(totals.Macronutrients.Carbohydrates.Grams)},
			{"Proteins", string(totals.Macronutrients.Proteins.Grams)},
			{"Fats", string(totals.Macronutrients.Fats.Grams)},
			{"Fiber", string(totals.Fiber)},
			{"Sodium", string(totals.Sodium)},
		} {
			if row[1] != "" {
				fmt.Fprintf(&b, "| %s | %s |\n", row[0], row[1])
			}
		}
		b.WriteString("\n")
	}

	if len(doc.ShoppingList) > 0 {
		b.WriteString("## Shopping List\n\n")
		for _, item := range doc.ShoppingList {
			fmt.Fprintf(&b, "- [ ] %s (%s)\n", item.Ingredient, item.Quantity)
		}
		b.WriteString("\n")
	}

	names := make([]string, 0, len(doc.Recipes))
	for name := range doc.Recipes {
		names = append(names, name)
	}
	sort.Strings(names)
	if len(names) > 0 {
		b.WriteString("## Recipes\n\n")
	}
	for _, name := range names {
		recipe := doc.Recipes[name]
		fmt.Fprintf(&b, "### %s\n\n", name)
		for _, ing := range recipe.Ingredients {
			fmt.Fprintf(&b, "- %s: %s\n", ing.Item, ing.Quantity)
		}
		if recipe.Instructions != "" {
			fmt.Fprintf(&b, "\n%s\n", recipe.Instructions)
		}
		b.WriteString("\n")
	}

	if violations := doc.IntegrityViolations(); len(violations) > 0 {
		b.WriteString("> Some meals have no recipe: ")
		parts := make([]string, 0, len(violations))
		for _, v := range violations {
			parts = append(parts, fmt.Sprintf("%s %s (%s)", v.Day, v.Slot, v.Recipe))
		}
		b.WriteString(strings.Join(parts, ", "))
		b.WriteString("\n")
	}
	return b.String()
}
