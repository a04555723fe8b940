package compose

import (
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/task-assistant/internal/model"
)

func lines(s string) []string {
	return strings.Split(s, "\n")
}

func mexicoCity(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("America/Mexico_City")
	require.NoError(t, err)
	return loc
}

func TestTaskCreated(t *testing.T) {
	loc := mexicoCity(t)
	due := time.Date(2026, 3, 11, 12, 0, 0, 0, loc).UTC()

	got := TaskCreated(model.Task{Title: "comprar leche", DueAt: &due, Priority: model.PriorityHigh}, loc)
	want := []string{
		`✅ Tarea creada: "comprar leche"`,
		"📅 Fecha: 11/03/2026 12:00",
		"⚡ Prioridad: 🔴 Alta",
	}
	if diff := cmp.Diff(want, lines(got)); diff != "" {
		t.Errorf("TaskCreated mismatch (-want +got):\n%s", diff)
	}

	got = TaskCreated(model.Task{Title: "leer", Priority: model.PriorityLow}, loc)
	assert.Equal(t, "✅ Tarea creada: \"leer\"\n⚡ Prioridad: 🟢 Baja", got)
}

func TestTaskList(t *testing.T) {
	loc := mexicoCity(t)
	due := time.Date(2026, 3, 10, 14, 0, 0, 0, loc)

	got := TaskList([]Listed{
		{Position: 2, Task: model.Task{Title: "B", DueAt: &due, Priority: model.PriorityMedium}},
		{Position: 3, Task: model.Task{Title: "C", Priority: model.PriorityLow}},
	}, nil, loc)
	want := []string{
		"📋 *Tus tareas pendientes:*",
		"",
		"2. B - 10/03 14:00 [🟡 Media]",
		"3. C [🟢 Baja]",
		"",
		`💡 Escribe "completar 2" para marcarla como hecha.`,
	}
	if diff := cmp.Diff(want, lines(got)); diff != "" {
		t.Errorf("TaskList mismatch (-want +got):\n%s", diff)
	}
}

func TestTaskListEmpty(t *testing.T) {
	loc := mexicoCity(t)
	day := time.Date(2026, 3, 10, 0, 0, 0, 0, loc)

	assert.Equal(t, "📭 No tienes tareas pendientes.", TaskList(nil, nil, loc))
	assert.Equal(t, "📭 No tienes tareas pendientes para el 10/03.", TaskList(nil, &day, loc))
}

func TestNoSuchTask(t *testing.T) {
	assert.Equal(t, "❌ No existe la tarea #5. Tienes 3 tareas pendientes.", NoSuchTask(5, 3))
}

func TestReminder(t *testing.T) {
	loc := mexicoCity(t)
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, loc)
	due := now.Add(3 * time.Hour)

	got := Reminder(model.DueReminder{
		Task: &model.Task{Title: "dentista", DueAt: &due, Priority: model.PriorityHigh},
		User: model.User{Timezone: "America/Mexico_City"},
	}, now, time.UTC)
	want := []string{
		"⏰ *Recordatorio*",
		"",
		"📌 *Tarea:* dentista",
		"⏱️ *Vence en:* 3 hora(s)",
		"📅 *Fecha:* 10/03/2026 12:00",
		"⚡ *Prioridad:* 🔴 Alta",
		"",
		`💡 Responde "lista" para ver todas tus tareas.`,
	}
	if diff := cmp.Diff(want, lines(got)); diff != "" {
		t.Errorf("Reminder mismatch (-want +got):\n%s", diff)
	}
}

func TestReminderWithoutTask(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	got := Reminder(model.DueReminder{Reminder: model.Reminder{Message: "tomar agua"}}, now, time.UTC)
	assert.Contains(t, got, "📋 tomar agua")

	got = Reminder(model.DueReminder{}, now, time.UTC)
	assert.Contains(t, got, "Tienes un recordatorio programado.")
}

func TestReminderFallsBackToDefaultTimezone(t *testing.T) {
	loc := mexicoCity(t)
	due := time.Date(2026, 3, 10, 18, 30, 0, 0, time.UTC)
	now := due.Add(-time.Hour)

	for _, tz := range []string{"", "Mars/Olympus_Mons"} {
		got := Reminder(model.DueReminder{
			Task: &model.Task{Title: "dentista", DueAt: &due},
			User: model.User{Timezone: tz},
		}, now, loc)
		assert.Contains(t, got, "📅 *Fecha:* 10/03/2026 12:30", tz)
	}
}

func TestDigestOrder(t *testing.T) {
	loc := mexicoCity(t)
	now := time.Date(2026, 3, 10, 8, 0, 0, 0, loc)
	late := now.Add(-48 * time.Hour)
	today := now.Add(6 * time.Hour)
	soon := now.Add(30 * time.Hour)

	got := Digest(DigestData{
		Name:     "Pablo",
		Now:      now,
		Overdue:  []model.Task{{Title: "vencida", DueAt: &late}},
		Today:    []model.Task{{Title: "hoy", DueAt: &today}},
		Upcoming: []model.Task{{Title: "pronto", DueAt: &soon}},
	})
	want := []string{
		"☀️ *¡Buenos días Pablo!*",
		"📅 *martes, 10 de marzo*",
		"",
		"🚨 *Tareas Vencidas:*",
		"1. vencida (08/03)",
		"",
		"📋 *Tareas para Hoy (1):*",
		"1. hoy - 14:00",
		"",
		"📆 *Próximas Tareas:*",
		"• pronto (11/03)",
		"",
		"💪 *¡Que tengas un excelente día!*",
	}
	if diff := cmp.Diff(want, lines(got)); diff != "" {
		t.Errorf("Digest mismatch (-want +got):\n%s", diff)
	}
}

func TestDigestNothingPending(t *testing.T) {
	now := time.Date(2026, 3, 10, 8, 0, 0, 0, mexicoCity(t))

	got := Digest(DigestData{Name: "Pablo", Now: now})
	assert.Contains(t, got, "¡No tienes tareas pendientes!")
	assert.NotContains(t, got, "Vencidas")
}
