package nlp

import (
	_ "embed"
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"
)

//go:embed corpus.yaml
var seedCorpusYAML []byte

// Example is one labelled training utterance.
type Example struct {
	Text   string
	Intent Intent
}

// ParseCorpus decodes a YAML mapping of intent label to utterances.
// Examples are returned grouped by intent in enum order.
func ParseCorpus(data []byte) ([]Example, error) {
	var raw map[string][]string
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decoding corpus: %w", err)
	}

	byIntent := make(map[Intent][]string, len(raw))
	for label, utterances := range raw {
		intent, err := ParseIntent(label)
		if err != nil {
			return nil, err
		}
		if intent == Unknown {
			return nil, fmt.Errorf("corpus may not train %s", Unknown)
		}
		byIntent[intent] = utterances
	}

	intents := make([]Intent, 0, len(byIntent))
	for intent := range byIntent {
		intents = append(intents, intent)
	}
	sort.Slice(intents, func(a, b int) bool { return intents[a] < intents[b] })

	var examples []Example
	for _, intent := range intents {
		for _, text := range byIntent[intent] {
			examples = append(examples, Example{Text: text, Intent: intent})
		}
	}
	return examples, nil
}

// SeedCorpus returns the built-in training set.
func SeedCorpus() []Example {
	examples, err := ParseCorpus(seedCorpusYAML)
	if err != nil {
		panic(fmt.Sprintf("embedded corpus: %v", err))
	}
	return examples
}
