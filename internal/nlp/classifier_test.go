package nlp

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeedCorpusClassifiesItself(t *testing.T) {
	c := NewClassifier()
	corpus := SeedCorpus()
	require.NotEmpty(t, corpus)

	for _, ex := range corpus {
		intent, confidence := c.Classify(ex.Text)
		assert.Equal(t, ex.Intent, intent, ex.Text)
		assert.GreaterOrEqual(t, confidence, ConfidenceThreshold, ex.Text)
	}
}

func TestSeedCorpusCoversEveryIntent(t *testing.T) {
	seen := make(map[Intent]bool)
	for _, ex := range SeedCorpus() {
		seen[ex.Intent] = true
	}
	for i := Unknown + 1; i < NumIntents; i++ {
		assert.True(t, seen[i], i.String())
	}
}

func TestClassify(t *testing.T) {
	c := NewClassifier()

	tests := []struct {
		text string
		want Intent
	}{
		{"Recuérdame comprar leche mañana urgente", CreateTask},
		{"Tengo que pagar la luz el viernes", CreateTask},
		{"Lista mis tareas", ListTasks},
		{"mostrar mis tareas", ListTasks},
		{"Qué tengo pendiente hoy", ListTasks},
		{"Completar 1", CompleteTask},
		{"Marca como hecha la 2", CompleteTask},
		{"Eliminar la 1", DeleteTask},
		{"Borrar tarea 3", DeleteTask},
		{"completa la tarea 2", CompleteTask},
		{"termina la 1", CompleteTask},
		{"borra la 3", DeleteTask},
		{"elimina la 2", DeleteTask},
		{"tareas de mañana", ListTasks},
		{"¿Qué puedes hacer?", Help},
		{"Buenos días", Greeting},
		{"hola!", Greeting},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			got, confidence := c.Classify(tt.text)
			assert.Equal(t, tt.want, got)
			assert.GreaterOrEqual(t, confidence, ConfidenceThreshold)
			assert.LessOrEqual(t, confidence, 1.0)
		})
	}
}

func TestClassifyWithoutKnownFeatures(t *testing.T) {
	c := NewClassifier()

	for _, text := range []string{"", "   ", "algo cualquiera", "xyz", "12345", "🙂"} {
		intent, confidence := c.Classify(text)
		assert.Equal(t, Unknown, intent, text)
		assert.Zero(t, confidence, text)
	}
}

func TestClassifyUntrained(t *testing.T) {
	var c Classifier
	intent, confidence := c.Classify("hola")
	assert.Equal(t, Unknown, intent)
	assert.Zero(t, confidence)
}

func TestTrainReplacesState(t *testing.T) {
	c := NewClassifier()
	c.Train([]Example{
		{Text: "hola", Intent: Help},
		{Text: "adios", Intent: Greeting},
	})

	intent, _ := c.Classify("hola")
	assert.Equal(t, Help, intent)

	c.Train(SeedCorpus())
	intent, _ = c.Classify("hola")
	assert.Equal(t, Greeting, intent)
}

func TestClassifyConcurrent(t *testing.T) {
	c := NewClassifier()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				intent, _ := c.Classify("lista mis tareas")
				assert.Equal(t, ListTasks, intent)
			}
		}()
	}
	wg.Wait()
}

func TestParseCorpusRejectsUnknownLabel(t *testing.T) {
	_, err := ParseCorpus([]byte("FLY_TO_MOON:\n  - vuela\n"))
	assert.Error(t, err)

	_, err = ParseCorpus([]byte("UNKNOWN:\n  - algo\n"))
	assert.Error(t, err)
}

func TestIntentString(t *testing.T) {
	assert.Equal(t, "CREATE_TASK", CreateTask.String())
	assert.Equal(t, "UNKNOWN", Unknown.String())
	assert.Equal(t, "Intent(42)", Intent(42).String())

	for i := Unknown; i < NumIntents; i++ {
		got, err := ParseIntent(i.String())
		require.NoError(t, err)
		assert.Equal(t, i, got)
	}
}
