package nlp

import "fmt"

// Intent is the closed set of commands the assistant understands.
type Intent int

const (
	Unknown Intent = iota
	CreateTask
	ListTasks
	CompleteTask
	DeleteTask
	Help
	Greeting

	// NumIntents is the number of intents, for tables indexed by Intent.
	NumIntents
)

var intentLabels = [NumIntents]string{
	Unknown:      "UNKNOWN",
	CreateTask:   "CREATE_TASK",
	ListTasks:    "LIST_TASKS",
	CompleteTask: "COMPLETE_TASK",
	DeleteTask:   "DELETE_TASK",
	Help:         "HELP",
	Greeting:     "GREETING",
}

// String returns the wire label of the intent, e.g. "CREATE_TASK".
func (i Intent) String() string {
	if i < 0 || i >= NumIntents {
		return fmt.Sprintf("Intent(%d)", int(i))
	}
	return intentLabels[i]
}

// ParseIntent maps a label back to its Intent.
func ParseIntent(label string) (Intent, error) {
	for i, l := range intentLabels {
		if l == label {
			return Intent(i), nil
		}
	}
	return Unknown, fmt.Errorf("unknown intent label %q", label)
}
