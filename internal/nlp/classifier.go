package nlp

import (
	"math"
	"sync"
)

const (
	// ConfidenceThreshold is the minimum posterior for a non-Unknown result.
	ConfidenceThreshold = 0.5

	// smoothing is the Lidstone pseudo-count added to every feature.
	smoothing = 0.1
)

// Classifier is a multinomial naive Bayes intent classifier. It is safe
// for concurrent Classify calls; Train replaces its state.
type Classifier struct {
	mu sync.RWMutex

	docCount   [NumIntents]int
	featCount  [NumIntents]map[string]int
	totalFeats [NumIntents]int
	vocab      map[string]struct{}
	totalDocs  int
}

// NewClassifier returns a classifier trained on the seed corpus.
func NewClassifier() *Classifier {
	c := &Classifier{}
	c.Train(SeedCorpus())
	return c
}

// Train fits the model to examples, discarding any previous training.
// Examples labelled Unknown are ignored.
func (c *Classifier) Train(examples []Example) {
	var (
		docCount   [NumIntents]int
		featCount  [NumIntents]map[string]int
		totalFeats [NumIntents]int
		totalDocs  int
	)
	vocab := make(map[string]struct{})
	for i := range featCount {
		featCount[i] = make(map[string]int)
	}

	for _, ex := range examples {
		if ex.Intent <= Unknown || ex.Intent >= NumIntents {
			continue
		}
		docCount[ex.Intent]++
		totalDocs++
		for _, f := range Features(ex.Text) {
			featCount[ex.Intent][f]++
			totalFeats[ex.Intent]++
			vocab[f] = struct{}{}
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.docCount = docCount
	c.featCount = featCount
	c.totalFeats = totalFeats
	c.vocab = vocab
	c.totalDocs = totalDocs
}

// Classify returns the most probable intent for text and its posterior.
// Text with no feature seen in training yields (Unknown, 0). The threshold
// is not applied here; see Interpret.
func (c *Classifier) Classify(text string) (Intent, float64) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.totalDocs == 0 {
		return Unknown, 0
	}

	var known []string
	for _, f := range Features(text) {
		if _, ok := c.vocab[f]; ok {
			known = append(known, f)
		}
	}
	if len(known) == 0 {
		return Unknown, 0
	}

	v := float64(len(c.vocab))
	logPost := make([]float64, NumIntents)
	best := Unknown
	maxLog := math.Inf(-1)
	for i := Unknown + 1; i < NumIntents; i++ {
		if c.docCount[i] == 0 {
			logPost[i] = math.Inf(-1)
			continue
		}
		lp := math.Log(float64(c.docCount[i]) / float64(c.totalDocs))
		denom := float64(c.totalFeats[i]) + smoothing*v
		for _, f := range known {
			lp += math.Log((float64(c.featCount[i][f]) + smoothing) / denom)
		}
		logPost[i] = lp
		if lp > maxLog {
			maxLog = lp
			best = i
		}
	}
	if best == Unknown {
		return Unknown, 0
	}

	// log-sum-exp keeps the normalisation stable for long inputs.
	var z float64
	for i := Unknown + 1; i < NumIntents; i++ {
		if math.IsInf(logPost[i], -1) {
			continue
		}
		z += math.Exp(logPost[i] - maxLog)
	}
	return best, 1 / z
}
