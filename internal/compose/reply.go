// Package compose renders every message the assistant sends. All functions
// are pure; times are shown in the location passed in.
package compose

import (
	"fmt"
	"strings"
	"time"

	"github.com/nhle/task-assistant/internal/model"
)

const (
	dateTimeLayout = "02/01/2006 15:04"
	shortLayout    = "02/01 15:04"
	dayLayout      = "02/01"
	clockLayout    = "15:04"
)

// PriorityLabel returns the colored Spanish label of a priority.
func PriorityLabel(p model.Priority) string {
	switch p {
	case model.PriorityHigh:
		return "🔴 Alta"
	case model.PriorityMedium:
		return "🟡 Media"
	case model.PriorityLow:
		return "🟢 Baja"
	default:
		return string(p)
	}
}

// TaskCreated confirms a new task.
func TaskCreated(task model.Task, loc *time.Location) string {
	var b strings.Builder
	fmt.Fprintf(&b, "✅ Tarea creada: \"%s\"", task.Title)
	if task.DueAt != nil {
		fmt.Fprintf(&b, "\n📅 Fecha: %s", task.DueAt.In(loc).Format(dateTimeLayout))
	}
	fmt.Fprintf(&b, "\n⚡ Prioridad: %s", PriorityLabel(task.Priority))
	return b.String()
}

// AskTitle asks the user to say what the task is.
func AskTitle() string {
	return "❓ Por favor, dime qué tarea quieres crear. Ejemplo: \"Recuérdame estudiar IA mañana a las 6pm\""
}

// Listed is a task together with its position in the pending listing.
type Listed struct {
	Position int
	Task     model.Task
}

// TaskList renders pending tasks. When day is non-nil the listing was
// narrowed to that date; positions still refer to the full listing.
func TaskList(items []Listed, day *time.Time, loc *time.Location) string {
	if len(items) == 0 {
		if day != nil {
			return fmt.Sprintf("📭 No tienes tareas pendientes para el %s.", day.In(loc).Format(dayLayout))
		}
		return "📭 No tienes tareas pendientes."
	}

	var b strings.Builder
	if day != nil {
		fmt.Fprintf(&b, "📋 *Tus tareas pendientes para el %s:*\n\n", day.In(loc).Format(dayLayout))
	} else {
		b.WriteString("📋 *Tus tareas pendientes:*\n\n")
	}
	for _, it := range items {
		fmt.Fprintf(&b, "%d. %s", it.Position, it.Task.Title)
		if it.Task.DueAt != nil {
			fmt.Fprintf(&b, " - %s", it.Task.DueAt.In(loc).Format(shortLayout))
		}
		fmt.Fprintf(&b, " [%s]\n", PriorityLabel(it.Task.Priority))
	}
	fmt.Fprintf(&b, "\n💡 Escribe \"completar %d\" para marcarla como hecha.", items[0].Position)
	return b.String()
}

// AskOrdinalComplete asks which task to complete.
func AskOrdinalComplete() string {
	return "❓ Por favor indica el número de la tarea. Ejemplo: \"completar 2\""
}

// AskOrdinalDelete asks which task to delete.
func AskOrdinalDelete() string {
	return "❓ Por favor indica el número de la tarea a eliminar. Ejemplo: \"borrar 3\""
}

// NoSuchTask reports an ordinal outside the pending listing.
func NoSuchTask(n, pending int) string {
	return fmt.Sprintf("❌ No existe la tarea #%d. Tienes %d tareas pendientes.", n, pending)
}

// TaskCompleted confirms a completion.
func TaskCompleted(task model.Task) string {
	return fmt.Sprintf("✅ Tarea completada: \"%s\"", task.Title)
}

// TaskDeleted confirms a deletion.
func TaskDeleted(task model.Task) string {
	return fmt.Sprintf("🗑️ Tarea eliminada: \"%s\"", task.Title)
}

// TaskChanged tells the user the task moved on before the command landed.
func TaskChanged(n int) string {
	return fmt.Sprintf("⚠️ La tarea #%d cambió mientras tanto. Escribe \"lista\" para ver tus pendientes.", n)
}

// Greeting greets the user by name.
func Greeting(name string) string {
	return fmt.Sprintf("¡Hola %s! 👋 ¿En qué puedo ayudarte hoy?", name)
}

// Fallback is the reply to a message that was not understood.
func Fallback() string {
	return "No entendí tu mensaje. Escribe \"ayuda\" para ver qué puedo hacer."
}

// Apology is sent when a request failed on our side.
func Apology() string {
	return "❌ Hubo un error al procesar tu mensaje. Por favor intenta de nuevo."
}

// Help lists what the assistant can do.
func Help() string {
	return `🤖 *Asistente Personal 24/7*

Puedo ayudarte con:

📝 *Crear tareas:*
"Recuérdame estudiar IA mañana a las 6pm"
"Tengo que comprar leche urgente"

📋 *Ver tareas:*
"Lista mis tareas"
"Qué tengo pendiente hoy"

✅ *Completar tareas:*
"Completar 1"
"Marca como hecha la 2"

🗑️ *Eliminar tareas:*
"Borrar tarea 3"
"Eliminar la 1"

⏰ Recibirás recordatorios automáticos antes de cada fecha límite.`
}
