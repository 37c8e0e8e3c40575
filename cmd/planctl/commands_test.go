package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/yanqian/mealplan-ai/internal/domain/mealplan"
	apperrors "github.com/yanqian/mealplan-ai/pkg/errors"
)

const planDocument = `{
  "meal_plan": {
    "Day 2": {"Breakfast": "Greek Yogurt Bowl", "Lunch": "", "Dinner": "Baked Salmon"},
    "Day 1": {"Dinner": "Lentil Soup", "Breakfast": "Oatmeal", "Snack": "Apple Slices"}
  },
  "nutritional_info": {"daily_totals": {"calories": "1800 kcal", "macronutrients": {"proteins": {"grams": "90 g"}}}},
  "shopping_list": [{"ingredient": "Rolled oats", "quantity": "500 g"}],
  "recipes": {
    "Oatmeal": {"ingredients": [{"item": "Rolled oats", "quantity": "1/2 cup"}], "instructions": "Simmer 5 minutes."},
    "Lentil Soup": {"ingredients": [], "instructions": "Cook lentils."},
    "Apple Slices": {"ingredients": [], "instructions": "Slice."},
    "Greek Yogurt Bowl": {"ingredients": [], "instructions": "Combine."}
  }
}`

func run(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

func TestNormalizeCmd(t *testing.T) {
	out, _, err := run(t, `{"personal_info":{"age":61}}`, "normalize")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(out, mealplan.HeaderPersonal))
	require.Contains(t, out, "Patient's Age: 61")
}

func TestNormalizeCmd_ReadsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profile.json")
	require.NoError(t, os.WriteFile(path, []byte("\ufeff"+`{"goal_settings":{"meal_plan_days":"4"}}`), 0o600))

	out, _, err := run(t, "", "normalize", path)
	require.NoError(t, err)
	require.Contains(t, out, "Meal Plan Days: 4")

	_, _, err = run(t, "", "normalize", filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)
}

func TestPromptCmd(t *testing.T) {
	profile := `{"goal_settings":{"meal_plan_days":"3"}}`
	out, _, err := run(t, profile, "prompt")
	require.NoError(t, err)
	require.Equal(t, mealplan.Compose(mealplan.Normalize([]byte(profile)))+"\n", out)
}

func TestValidateCmd(t *testing.T) {
	out, _, err := run(t, planDocument, "validate")
	require.NoError(t, err)
	require.Contains(t, out, "days: 2\n")
	require.Contains(t, out, "recipes: 4\n")
	require.Contains(t, out, "integrity violations: 1\n")
	require.Contains(t, out, `Day 2 / Dinner -> "Baked Salmon" has no recipe`)

	_, _, err = run(t, planDocument, "validate", "--strict")
	require.True(t, apperrors.IsCode(err, mealplan.CodeInconsistentPlan))

	_, _, err = run(t, "not json at all", "validate")
	require.True(t, apperrors.IsCode(err, mealplan.CodeMalformedOutput))
}

func TestRenderCmd_Raw(t *testing.T) {
	out, _, err := run(t, planDocument, "render", "--raw")
	require.NoError(t, err)

	day1 := strings.Index(out, "## Day 1")
	day2 := strings.Index(out, "## Day 2")
	require.True(t, day1 >= 0 && day2 > day1, out)

	breakfast := strings.Index(out, "**Breakfast**: Oatmeal")
	snack := strings.Index(out, "**Snack**: Apple Slices")
	dinner := strings.Index(out, "**Dinner**: Lentil Soup")
	require.True(t, breakfast < snack && snack < dinner, out)

	require.NotContains(t, out, "**Lunch**")
	require.Contains(t, out, "| Calories | 1800 kcal |")
	require.Contains(t, out, "- [ ] Rolled oats (500 g)")
	require.Contains(t, out, "### Oatmeal")
	require.Contains(t, out, "Day 2 Dinner (Baked Salmon)")
}

func TestRenderCmd_Styled(t *testing.T) {
	out, _, err := run(t, planDocument, "render", "--width", "60")
	require.NoError(t, err)
	require.Contains(t, out, "Oatmeal")
}

func TestTokenCmd_RequiresSecret(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("CONFIG_PATH", "")
	t.Setenv("AUTH_JWT_SECRET", "")

	_, _, err := run(t, "", "token", "--subject", "clinic")
	require.EqualError(t, err, "auth.jwtSecret is not configured")
}

func TestRenderCmd_UnreadableNutritionIsSkipped(t *testing.T) {
	answer := `{"meal_plan":{"Day 1":{"Breakfast":"Oatmeal"}},"nutritional_info":{"daily_totals":{"calories":"1800","macronutrients":"balanced"}},"recipes":{"Oatmeal":{"instructions":"Boil."}}}`
	out, _, err := run(t, answer, "render", "--raw")
	require.NoError(t, err)
	require.NotContains(t, out, "Daily Targets")
	require.Contains(t, out, "**Breakfast**: Oatmeal")
}
