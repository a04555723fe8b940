package nlp

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/nhle/task-assistant/internal/model"
)

// UntitledTask is the title used when nothing remains after stripping
// commands, dates and priorities from a create request.
const UntitledTask = "Tarea sin título"

type priorityKeyword struct {
	phrase []string
	// stem lets the last word carry any suffix: "urgentísimo", "urgentemente".
	stem     bool
	priority model.Priority
}

// priorityKeywords is checked in order; the first keyword present wins,
// wherever it appears in the text.
var priorityKeywords = []priorityKeyword{
	{[]string{"urgent"}, true, model.PriorityHigh},
	{[]string{"importan"}, true, model.PriorityHigh},
	{[]string{"alta"}, false, model.PriorityHigh},
	{[]string{"altisim"}, true, model.PriorityHigh},
	{[]string{"media"}, false, model.PriorityMedium},
	{[]string{"normal"}, false, model.PriorityMedium},
	{[]string{"baja"}, false, model.PriorityLow},
	{[]string{"bajisim"}, true, model.PriorityLow},
	{[]string{"cuando", "pueda"}, false, model.PriorityLow},
}

func (kw priorityKeyword) matchAt(words []word, i int) bool {
	last := len(kw.phrase) - 1
	if i+last >= len(words) {
		return false
	}
	for k, p := range kw.phrase {
		w := words[i+k].Norm
		if w != p && !(kw.stem && k == last && strings.HasPrefix(w, p)) {
			return false
		}
	}
	// "a las 3 y media" is a time, not a priority.
	return !(kw.phrase[0] == "media" && halfPastHour(words, i))
}

func halfPastHour(words []word, i int) bool {
	if i < 2 || words[i-1].Norm != "y" {
		return false
	}
	h := words[i-2].Norm
	if n, err := strconv.Atoi(h); err == nil {
		return n >= 0 && n <= 24
	}
	n, ok := numberWords[h]
	return ok && n >= 1 && n <= 12
}

// ExtractPriority returns the priority named in text, or medium. Keywords
// match on word stems, so "urgentísimo" and "altísima" count.
func ExtractPriority(text string) model.Priority {
	words := splitWords(text)
	for _, kw := range priorityKeywords {
		for i := range words {
			if kw.matchAt(words, i) {
				return kw.priority
			}
		}
	}
	return model.PriorityMedium
}

func phraseAt(words []word, i int, phrase []string) bool {
	if i+len(phrase) > len(words) {
		return false
	}
	for k, p := range phrase {
		if words[i+k].Norm != p {
			return false
		}
	}
	return true
}

var ordinalRe = regexp.MustCompile(`\b(\d+)\b`)

// ExtractOrdinal returns the first standalone number in text, the 1-based
// position a user reads off a listing. Zero is not a position.
func ExtractOrdinal(text string) (int, bool) {
	m := ordinalRe.FindStringSubmatch(text)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

// leadingCommands are stripped from the front of a create request,
// longest first.
var leadingCommands = [][]string{
	{"no", "olvides", "recordarme"},
	{"anota", "que", "debo"},
	{"agenda", "una", "tarea"},
	{"crear", "una", "tarea"},
	{"agregar", "una", "tarea"},
	{"crear", "tarea"},
	{"agregar", "tarea"},
	{"anadir", "tarea"},
	{"nueva", "tarea"},
	{"tengo", "que"},
	{"anota", "que"},
	{"recuerdame"},
	{"recordarme"},
	{"recuerda"},
	{"necesito"},
	{"anadir"},
	{"agregar"},
	{"anota"},
	{"agenda"},
}

// connectors are dropped when they dangle at either end of a title.
var connectors = map[string]bool{
	"que": true, "a": true, "al": true, "de": true, "del": true, "el": true,
	"la": true, "las": true, "los": true, "en": true, "para": true,
	"por": true, "con": true, "y": true, "prioridad": true,
}

// ExtractTitle returns what remains of a create request once the command
// words, temporal expressions and priority keywords are removed.
func ExtractTitle(text string) string {
	words := splitWords(text)
	_, drop := scanTemporal(words)

	start := 0
	for _, cmd := range leadingCommands {
		if phraseAt(words, 0, cmd) {
			start = len(cmd)
			break
		}
	}
	for i := 0; i < start; i++ {
		drop[i] = true
	}

	for _, kw := range priorityKeywords {
		for i := range words {
			if kw.matchAt(words, i) {
				for k := range kw.phrase {
					drop[i+k] = true
				}
			}
		}
	}

	var kept []word
	for i, w := range words {
		if !drop[i] {
			kept = append(kept, w)
		}
	}
	for len(kept) > 0 && connectors[kept[0].Norm] {
		kept = kept[1:]
	}
	for len(kept) > 0 && connectors[kept[len(kept)-1].Norm] {
		kept = kept[:len(kept)-1]
	}

	parts := make([]string, len(kept))
	for i, w := range kept {
		parts[i] = w.Raw
	}
	title := strings.Join(parts, " ")
	if title == "" {
		return UntitledTask
	}
	return title
}
