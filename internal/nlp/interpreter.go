package nlp

import (
	"strconv"
	"strings"
	"time"

	"github.com/nhle/task-assistant/internal/model"
)

// Entities holds what was extracted for the classified intent. Only the
// fields relevant to the intent are populated.
type Entities struct {
	Title    string
	Due      *time.Time
	Priority model.Priority

	// Ordinal is the 1-based listing position; zero when absent.
	Ordinal int

	// Day is the date a listing is filtered to. DayExplicit is false when
	// the user named no date and Day defaulted to today.
	Day         *time.Time
	DayExplicit bool
}

// Map renders the populated entities as strings, for Task.Origin.
func (e Entities) Map() map[string]string {
	m := make(map[string]string)
	if e.Title != "" {
		m["title"] = e.Title
	}
	if e.Due != nil {
		m["due"] = e.Due.Format(time.RFC3339)
	}
	if e.Priority != "" {
		m["priority"] = string(e.Priority)
	}
	if e.Ordinal > 0 {
		m["ordinal"] = strconv.Itoa(e.Ordinal)
	}
	if e.Day != nil && e.DayExplicit {
		m["day"] = e.Day.Format(time.DateOnly)
	}
	return m
}

// Result is the interpretation of one inbound message.
type Result struct {
	Intent     Intent
	Confidence float64
	Entities   Entities
	Text       string
}

// Interpreter turns free text into an intent plus entities.
type Interpreter struct {
	classifier *Classifier
}

// NewInterpreter returns an interpreter backed by c.
func NewInterpreter(c *Classifier) *Interpreter {
	return &Interpreter{classifier: c}
}

// Interpret classifies text and extracts the entities its intent needs.
// Dates are resolved against now, which must already be in the user's
// location. Results below ConfidenceThreshold are Unknown.
func (in *Interpreter) Interpret(text string, now time.Time) Result {
	res := Result{Text: text}

	intent, confidence := in.classifier.Classify(text)
	res.Confidence = confidence
	if strings.TrimSpace(text) == "" || confidence < ConfidenceThreshold {
		return res
	}
	res.Intent = intent

	switch intent {
	case CreateTask:
		res.Entities.Title = ExtractTitle(text)
		res.Entities.Priority = ExtractPriority(text)
		if due, ok := ExtractDate(text, now); ok {
			res.Entities.Due = &due
		}
	case CompleteTask, DeleteTask:
		if n, ok := ExtractOrdinal(text); ok {
			res.Entities.Ordinal = n
		}
	case ListTasks:
		day, ok := ExtractDate(text, now)
		if !ok {
			day = now
		}
		y, m, d := day.Date()
		start := time.Date(y, m, d, 0, 0, 0, 0, now.Location())
		res.Entities.Day = &start
		res.Entities.DayExplicit = ok
	}
	return res
}
