package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/yanqian/mealplan-ai/internal/domain/mealplan"
	"github.com/yanqian/mealplan-ai/internal/domain/planjob"
)

func TestJobEncoding_PlainTextPayload(t *testing.T) {
	created := time.Date(2025, 3, 1, 9, 30, 0, 0, time.UTC)
	job := planjob.Job{
		ID:        "job-1",
		Status:    planjob.StatusQueued,
		RequestID: "req-1",
		Payload:   []byte("age 52, diabetic, 3 days"),
		CreatedAt: created,
		UpdatedAt: created,
	}

	raw, err := encodeJob(job)
	require.NoError(t, err)

	restored, err := decodeJob(raw)
	require.NoError(t, err)
	require.Equal(t, job, restored)
}

func TestJobEncoding_KeepsProviderAnswer(t *testing.T) {
	answer := `{"meal_plan":{"Day 1":{"Breakfast":"Oatmeal"}},"recipes":{"Oatmeal":{"instructions":"Boil.","prep_time":"5 min"}}}`
	doc, err := mealplan.Decode(answer)
	require.NoError(t, err)

	raw, err := encodeJob(planjob.Job{ID: "job-2", Status: planjob.StatusCompleted, Payload: []byte(`{"personal_info":{}}`), Result: &doc})
	require.NoError(t, err)

	restored, err := decodeJob(raw)
	require.NoError(t, err)
	require.NotNil(t, restored.Result)
	require.Equal(t, answer, string(restored.Result.Raw()))
	require.Equal(t, []byte(`{"personal_info":{}}`), restored.Payload)
}

func TestJobEncoding_RejectsCorruptRecord(t *testing.T) {
	_, err := decodeJob([]byte("{"))
	require.Error(t, err)
}
