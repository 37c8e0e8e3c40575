package mealplan

import (
	_ "embed"
	"strings"
)

// PromptVersion identifies the embedded rule and schema assets.
const PromptVersion = "v1"

const profileHeader = "Below is the patient's data in JSON form:"

var (
	//go:embed templates/v1/rules.txt
	promptRules string
	//go:embed templates/v1/reminder.txt
	schemaReminder string
	//go:embed templates/v1/schema.json
	schemaExample string
	//go:embed templates/v1/closing.txt
	schemaClosing string
)

// SchemaContract is the output contract block appended to every prompt.
func SchemaContract() string {
	return schemaReminder + schemaExample + schemaClosing
}

// SchemaExample returns the worked skeleton the provider is asked to follow.
func SchemaExample() string {
	return schemaExample
}

// Compose builds the full prompt for a normalized profile summary.
func Compose(summary string) string {
	contract := SchemaContract()
	var b strings.Builder
	b.Grow(len(promptRules) + len(profileHeader) + len(summary) + len(contract) + 8)
	b.WriteString(promptRules)
	b.WriteString("\n")
	b.WriteString(profileHeader)
	b.WriteString("\n")
	b.WriteString(summary)
	b.WriteString("\n\n")
	b.WriteString(contract)
	return b.String()
}

// ComposeRepair builds a follow-up prompt after a response failed to decode.
func ComposeRepair(prompt, response string, decodeErr error) string {
	reason := "the response was not valid JSON"
	if decodeErr != nil {
		reason = decodeErr.Error()
	}
	var b strings.Builder
	b.WriteString(prompt)
	b.WriteString("\nYour previous answer could not be used: ")
	b.WriteString(reason)
	b.WriteString(".\nPrevious answer:\n")
	b.WriteString(strings.TrimSpace(response))
	b.WriteString("\n\nReply again with only the corrected JSON document.\n")
	b.WriteString(schemaClosing)
	return b.String()
}
