package compose

import (
	"fmt"
	"strings"
	"time"

	"github.com/nhle/task-assistant/internal/model"
)

var (
	spanishWeekdays = [...]string{"domingo", "lunes", "martes", "miércoles", "jueves", "viernes", "sábado"}
	spanishMonths   = [...]string{
		"enero", "febrero", "marzo", "abril", "mayo", "junio",
		"julio", "agosto", "septiembre", "octubre", "noviembre", "diciembre",
	}
)

// LongDate formats t like "martes, 10 de marzo".
func LongDate(t time.Time) string {
	return fmt.Sprintf("%s, %02d de %s", spanishWeekdays[t.Weekday()], t.Day(), spanishMonths[t.Month()-1])
}

var priorityEmoji = map[model.Priority]string{
	model.PriorityHigh:   "🔴",
	model.PriorityMedium: "🟡",
	model.PriorityLow:    "🟢",
}

// Reminder renders a due reminder for its owner at now. Times are shown in
// the user's timezone, or in fallback when it is unset or unknown.
func Reminder(r model.DueReminder, now time.Time, fallback *time.Location) string {
	loc := r.User.Location(fallback)

	var b strings.Builder
	b.WriteString("⏰ *Recordatorio*\n\n")
	switch {
	case r.Task != nil:
		fmt.Fprintf(&b, "📌 *Tarea:* %s\n", r.Task.Title)
		if r.Task.Description != "" {
			fmt.Fprintf(&b, "📝 *Descripción:* %s\n", r.Task.Description)
		}
		if r.Task.DueAt != nil {
			hours := int(r.Task.DueAt.Sub(now).Hours())
			if hours >= 0 {
				fmt.Fprintf(&b, "⏱️ *Vence en:* %d hora(s)\n", hours)
			}
			fmt.Fprintf(&b, "📅 *Fecha:* %s\n", r.Task.DueAt.In(loc).Format(dateTimeLayout))
		}
		fmt.Fprintf(&b, "⚡ *Prioridad:* %s\n", PriorityLabel(r.Task.Priority))
	case r.Message != "":
		fmt.Fprintf(&b, "📋 %s\n", r.Message)
	default:
		b.WriteString("📋 Tienes un recordatorio programado.\n")
	}
	b.WriteString("\n💡 Responde \"lista\" para ver todas tus tareas.")
	return b.String()
}

// DigestData is the content of one user's daily summary.
type DigestData struct {
	Name     string
	Now      time.Time // in the user's location
	Overdue  []model.Task
	Today    []model.Task
	Upcoming []model.Task
}

// Empty reports whether the digest has nothing to show.
func (d DigestData) Empty() bool {
	return len(d.Overdue) == 0 && len(d.Today) == 0 && len(d.Upcoming) == 0
}

// Digest renders the daily summary: overdue, then today, then upcoming.
func Digest(d DigestData) string {
	loc := d.Now.Location()

	var b strings.Builder
	fmt.Fprintf(&b, "☀️ *¡Buenos días %s!*\n", d.Name)
	fmt.Fprintf(&b, "📅 *%s*\n\n", LongDate(d.Now))

	if d.Empty() {
		b.WriteString("✨ ¡No tienes tareas pendientes!\n")
		b.WriteString("Disfruta tu día 😊\n")
	}

	if len(d.Overdue) > 0 {
		b.WriteString("🚨 *Tareas Vencidas:*\n")
		for i, t := range d.Overdue {
			fmt.Fprintf(&b, "%d. %s%s\n", i+1, t.Title, dueSuffix(t, loc, dayLayout, " (%s)"))
		}
		b.WriteString("\n")
	}

	if len(d.Today) > 0 {
		fmt.Fprintf(&b, "📋 *Tareas para Hoy (%d):*\n", len(d.Today))
		for i, t := range d.Today {
			fmt.Fprintf(&b, "%d. %s%s\n", i+1, t.Title, dueSuffix(t, loc, clockLayout, " - %s"))
		}
		b.WriteString("\n")
	}

	if len(d.Upcoming) > 0 {
		b.WriteString("📆 *Próximas Tareas:*\n")
		for _, t := range d.Upcoming {
			fmt.Fprintf(&b, "• %s%s\n", t.Title, dueSuffix(t, loc, dayLayout, " (%s)"))
		}
		b.WriteString("\n")
	}

	b.WriteString("💪 *¡Que tengas un excelente día!*")
	return b.String()
}

func dueSuffix(t model.Task, loc *time.Location, layout, format string) string {
	if t.DueAt == nil {
		return ""
	}
	return fmt.Sprintf(format, t.DueAt.In(loc).Format(layout))
}

// HealthAlert tells administrators that the health ping keeps failing.
func HealthAlert(failures int, lastErr, url string) string {
	return fmt.Sprintf("🚨 *ALERTA DEL SISTEMA*\n\n"+
		"El servicio de health check está fallando.\n"+
		"Fallos consecutivos: %d\n"+
		"Último error: %s\n"+
		"URL: %s", failures, lastErr, url)
}
