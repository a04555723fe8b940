package nlp

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/nhle/task-assistant/internal/model"
)

func TestExtractPriority(t *testing.T) {
	tests := []struct {
		text string
		want model.Priority
	}{
		{"comprar leche urgente", model.PriorityHigh},
		{"es IMPORTANTE", model.PriorityHigh},
		{"prioridad alta", model.PriorityHigh},
		{"prioridad media", model.PriorityMedium},
		{"normal", model.PriorityMedium},
		{"prioridad baja", model.PriorityLow},
		{"lavar el coche cuando pueda", model.PriorityLow},
		{"baja pero urgente", model.PriorityHigh},
		{"faltan cosas", model.PriorityMedium},
		{"comprar pan", model.PriorityMedium},
		{"", model.PriorityMedium},
		{"algo urgentísimo", model.PriorityHigh},
		{"prioridad altísima", model.PriorityHigh},
		{"tarea urgentemente pagar luz", model.PriorityHigh},
		{"muy importantes", model.PriorityHigh},
		{"junta a las 3 y media baja", model.PriorityLow},
		{"a las tres y media", model.PriorityMedium},
		{"llamar a medianoche cuando pueda", model.PriorityLow},
		{"algo inmediato", model.PriorityMedium},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractPriority(tt.text))
		})
	}
}

func TestExtractOrdinal(t *testing.T) {
	tests := []struct {
		text string
		want int
		ok   bool
	}{
		{"Completar 1", 1, true},
		{"Marca como hecha la 2", 2, true},
		{"borrar tarea 12 y 3", 12, true},
		{"borrar", 0, false},
		{"eliminar 0", 0, false},
		{"a las 3pm", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			n, ok := ExtractOrdinal(tt.text)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, n)
		})
	}
}

func TestExtractTitle(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{"Recuérdame comprar leche mañana urgente", "comprar leche"},
		{"Recuérdame estudiar IA mañana a las 6pm", "estudiar IA"},
		{"Tengo que pagar la luz el viernes", "pagar la luz"},
		{"Nueva tarea: llamar a mamá el 15/11 prioridad alta", "llamar a mamá"},
		{"recuérdame que mañana tengo dentista", "tengo dentista"},
		{"necesito renovar el pasaporte para el 3 de abril", "renovar el pasaporte"},
		{"tengo que pagar la luz urgentísimo", "pagar la luz"},
		{"recuérdame mañana", UntitledTask},
		{"recuérdame", UntitledTask},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractTitle(tt.text))
		})
	}
}
