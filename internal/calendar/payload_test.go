package calendar

import (
	"encoding/json"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/agenda/internal/failure"
)

const saoPaulo = "America/Sao_Paulo"

func strPtr(s string) *string { return &s }

func mustLoc(t *testing.T, name string) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation(name)
	require.NoError(t, err)
	return loc
}

func encode(t *testing.T, v any) map[string]any {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	var m map[string]any
	require.NoError(t, json.Unmarshal(data, &m))
	return m
}

func TestBuildEvent(t *testing.T) {
	loc := mustLoc(t, saoPaulo)
	start := time.Date(2025, time.August, 5, 9, 0, 0, 0, loc)

	tests := []struct {
		name   string
		fields EventFields
		check  func(t *testing.T, payload map[string]any)
	}{
		{
			name:   "minimal event omits optional fields",
			fields: EventFields{Summary: "Reunião com o João", Start: start, End: start.Add(time.Hour)},
			check: func(t *testing.T, p map[string]any) {
				assert.Equal(t, "Reunião com o João", p["summary"])
				assert.NotContains(t, p, "description")
				assert.NotContains(t, p, "location")
				assert.NotContains(t, p, "recurrence")
				assert.Equal(t, map[string]any{"dateTime": "2025-08-05T09:00:00-03:00", "timeZone": saoPaulo}, p["start"])
				assert.Equal(t, map[string]any{"dateTime": "2025-08-05T10:00:00-03:00", "timeZone": saoPaulo}, p["end"])
			},
		},
		{
			name: "optional fields are copied",
			fields: EventFields{
				Summary:     "Dentista",
				Description: strPtr("Limpeza"),
				Location:    strPtr("Rua Augusta, 100"),
				Start:       start,
				End:         start.Add(30 * time.Minute),
			},
			check: func(t *testing.T, p map[string]any) {
				assert.Equal(t, "Limpeza", p["description"])
				assert.Equal(t, "Rua Augusta, 100", p["location"])
			},
		},
		{
			name:   "explicit empty description is still sent",
			fields: EventFields{Summary: "Almoço", Description: strPtr(""), Start: start, End: start.Add(time.Hour)},
			check: func(t *testing.T, p map[string]any) {
				assert.Contains(t, p, "description")
				assert.Equal(t, "", p["description"])
				assert.NotContains(t, p, "location")
			},
		},
		{
			name:   "explicit zone renders wall clock in that zone",
			fields: EventFields{Summary: "Voo", TimeZone: strPtr("America/Manaus"), Start: start, End: start.Add(time.Hour)},
			check: func(t *testing.T, p map[string]any) {
				assert.Equal(t, map[string]any{"dateTime": "2025-08-05T08:00:00-04:00", "timeZone": "America/Manaus"}, p["start"])
			},
		},
		{
			name:   "recurrence gets the RRULE prefix",
			fields: EventFields{Summary: "Academia", Start: start, End: start.Add(time.Hour), Recurrence: []string{"FREQ=WEEKLY;BYDAY=MO,WE", "RRULE:COUNT=3"}},
			check: func(t *testing.T, p map[string]any) {
				assert.Equal(t, []any{"RRULE:FREQ=WEEKLY;BYDAY=MO,WE", "RRULE:COUNT=3"}, p["recurrence"])
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			event, err := BuildEvent(tt.fields, saoPaulo)
			require.NoError(t, err)
			tt.check(t, encode(t, event))
		})
	}
}

func TestBuildEvent_Validation(t *testing.T) {
	loc := mustLoc(t, saoPaulo)
	start := time.Date(2025, time.August, 5, 9, 0, 0, 0, loc)

	tests := []struct {
		name   string
		fields EventFields
		field  string
	}{
		{name: "missing summary", fields: EventFields{Summary: "  ", Start: start, End: start.Add(time.Hour)}, field: "summary"},
		{name: "missing start", fields: EventFields{Summary: "x", End: start}, field: "start"},
		{name: "end before start", fields: EventFields{Summary: "x", Start: start, End: start.Add(-time.Hour)}, field: "end"},
		{name: "end equals start", fields: EventFields{Summary: "x", Start: start, End: start}, field: "end"},
		{name: "unknown zone", fields: EventFields{Summary: "x", TimeZone: strPtr("Mars/Base"), Start: start, End: start.Add(time.Hour)}, field: "timeZone"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := BuildEvent(tt.fields, saoPaulo)
			require.Error(t, err)
			assert.Equal(t, failure.KindValidation, failure.KindOf(err))
			assert.Equal(t, tt.field, failure.FieldOf(err))
		})
	}
}

func TestBuildPatch(t *testing.T) {
	loc := mustLoc(t, saoPaulo)
	start := time.Date(2025, time.August, 11, 15, 0, 0, 0, loc)
	end := start.Add(time.Hour)

	t.Run("empty patch encodes as empty object", func(t *testing.T) {
		event, err := BuildPatch(EventPatch{}, saoPaulo)
		require.NoError(t, err)
		assert.Empty(t, encode(t, event))
	})

	t.Run("only summary", func(t *testing.T) {
		event, err := BuildPatch(EventPatch{Summary: strPtr("Reunião de time")}, saoPaulo)
		require.NoError(t, err)
		assert.Equal(t, map[string]any{"summary": "Reunião de time"}, encode(t, event))
	})

	t.Run("times only", func(t *testing.T) {
		event, err := BuildPatch(EventPatch{Start: &start, End: &end}, saoPaulo)
		require.NoError(t, err)
		p := encode(t, event)
		assert.Len(t, p, 2)
		assert.Equal(t, "2025-08-11T15:00:00-03:00", p["start"].(map[string]any)["dateTime"])
		assert.Equal(t, "2025-08-11T16:00:00-03:00", p["end"].(map[string]any)["dateTime"])
	})

	t.Run("clearing the location", func(t *testing.T) {
		event, err := BuildPatch(EventPatch{Location: strPtr("")}, saoPaulo)
		require.NoError(t, err)
		assert.Equal(t, map[string]any{"location": ""}, encode(t, event))
	})

	t.Run("end before start", func(t *testing.T) {
		before := start.Add(-time.Minute)
		_, err := BuildPatch(EventPatch{Start: &start, End: &before}, saoPaulo)
		require.Error(t, err)
		assert.Equal(t, "end", failure.FieldOf(err))
	})

	t.Run("blank summary", func(t *testing.T) {
		_, err := BuildPatch(EventPatch{Summary: strPtr(" ")}, saoPaulo)
		require.Error(t, err)
		assert.Equal(t, "summary", failure.FieldOf(err))
	})
}

func TestEventPatch_IsEmpty(t *testing.T) {
	now := time.Now()
	assert.True(t, EventPatch{}.IsEmpty())
	assert.True(t, EventPatch{TimeZone: strPtr(saoPaulo)}.IsEmpty())
	assert.False(t, EventPatch{Start: &now}.IsEmpty())
	assert.False(t, EventPatch{Description: strPtr("")}.IsEmpty())
}
