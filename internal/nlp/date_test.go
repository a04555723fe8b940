package nlp

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mexicoCity(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("America/Mexico_City")
	require.NoError(t, err)
	return loc
}

func TestExtractDate(t *testing.T) {
	loc := mexicoCity(t)
	// Tuesday.
	now := time.Date(2026, 3, 10, 10, 0, 0, 0, loc)
	at := func(month time.Month, day, hour, minute int) time.Time {
		return time.Date(2026, month, day, hour, minute, 0, 0, loc)
	}

	tests := []struct {
		text string
		want time.Time
	}{
		{"mañana a las 3pm", at(3, 11, 15, 0)},
		{"Recuérdame comprar leche mañana urgente", at(3, 11, 12, 0)},
		{"hoy", at(3, 10, 12, 0)},
		{"pasado mañana", at(3, 12, 12, 0)},
		{"el viernes", at(3, 13, 12, 0)},
		{"el martes", at(3, 10, 12, 0)},
		{"el próximo martes", at(3, 17, 12, 0)},
		{"el lunes que viene a las 9am", at(3, 16, 9, 0)},
		{"a las 11", at(3, 10, 11, 0)},
		{"a las 9", at(3, 11, 9, 0)},
		{"15:30", at(3, 10, 15, 30)},
		{"a la 1 de la tarde", at(3, 10, 13, 0)},
		{"a las 3 y media de la tarde", at(3, 10, 15, 30)},
		{"a las 8 de la noche", at(3, 10, 20, 0)},
		{"mañana por la tarde", at(3, 11, 16, 0)},
		{"esta noche", at(3, 10, 20, 0)},
		{"al mediodía", at(3, 10, 12, 0)},
		{"en 2 horas", at(3, 10, 12, 0)},
		{"dentro de media hora", at(3, 10, 10, 30)},
		{"en tres días", at(3, 13, 10, 0)},
		{"15/11", at(11, 15, 12, 0)},
		{"2026-12-24", at(12, 24, 12, 0)},
		{"el 15 de noviembre a las 8 de la noche", at(11, 15, 20, 0)},
		{"mañana a las 6 p.m.", at(3, 11, 18, 0)},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			got, ok := ExtractDate(tt.text, now)
			require.True(t, ok)
			assert.True(t, tt.want.Equal(got), "want %s, got %s", tt.want, got)
		})
	}
}

func TestExtractDatePastDayRollsToNextYear(t *testing.T) {
	loc := mexicoCity(t)
	now := time.Date(2026, 3, 10, 10, 0, 0, 0, loc)

	got, ok := ExtractDate("el 1 de febrero", now)
	require.True(t, ok)
	assert.True(t, time.Date(2027, 2, 1, 12, 0, 0, 0, loc).Equal(got), got.String())

	got, ok = ExtractDate("01/02/2026", now)
	require.True(t, ok)
	assert.True(t, time.Date(2026, 2, 1, 12, 0, 0, 0, loc).Equal(got), "explicit year is kept")
}

func TestExtractDateNone(t *testing.T) {
	now := time.Date(2026, 3, 10, 10, 0, 0, 0, mexicoCity(t))

	for _, text := range []string{
		"",
		"comprar leche",
		"completar 1",
		"tomar 2 pastillas",
		"eliminar la 3",
		"31/02",
		"en la oficina",
	} {
		_, ok := ExtractDate(text, now)
		assert.False(t, ok, text)
	}
}

func TestExtractDateUsesNowLocation(t *testing.T) {
	loc := mexicoCity(t)
	// 01:00 UTC on the 11th is still the 10th in Mexico City.
	now := time.Date(2026, 3, 11, 1, 0, 0, 0, time.UTC).In(loc)

	got, ok := ExtractDate("mañana", now)
	require.True(t, ok)
	assert.True(t, time.Date(2026, 3, 11, 12, 0, 0, 0, loc).Equal(got), got.String())
}
