package backend

import (
	"context"
	"hash/fnv"
	"log/slog"
	"math"
	"strconv"

	"github.com/doublewordai/arbiter/internal/engine"
)

// Static is an in-process classifier that produces stable, softmax-shaped
// pseudo-probabilities derived from a hash of each input. It stands in for a
// real accelerator engine in development and tests: the response shape,
// label mapping, and usage accounting all match what a real backend returns,
// but the scores carry no meaning.
type Static struct {
	id2label   map[int]string
	numClasses int
	logger     *slog.Logger
}

// NewStatic creates a static backend. An empty id2label defaults to a
// two-class mapping.
func NewStatic(id2label map[int]string, logger *slog.Logger) *Static {
	if logger == nil {
		logger = slog.Default()
	}
	if len(id2label) == 0 {
		id2label = map[int]string{0: "LABEL_0", 1: "LABEL_1"}
	}
	return &Static{
		id2label:   id2label,
		numClasses: len(id2label),
		logger:     logger.With("component", "static-backend"),
	}
}

// ClassifyBatch implements engine.BatchClassifier. Requests with empty input
// fail individually; the call itself never fails.
func (s *Static) ClassifyBatch(ctx context.Context, reqs []engine.ClassificationRequest) ([]engine.Result, error) {
	results := make([]engine.Result, len(reqs))

	for i, req := range reqs {
		if len(req.Input) == 0 {
			results[i] = engine.Result{Err: engine.ErrEmptyInput}
			continue
		}

		data := make([]engine.ClassificationData, len(req.Input))
		for j, text := range req.Input {
			probs := s.probs(text)
			data[j] = engine.ClassificationData{
				Index:      j,
				Label:      s.label(argmax(probs)),
				Probs:      probs,
				NumClasses: s.numClasses,
			}
		}

		results[i] = engine.Result{Response: &engine.ClassificationResponse{
			ID:      engine.NewResponseID(),
			Object:  engine.ObjectList,
			Created: engine.Now(),
			Model:   req.Model,
			Data:    data,
			Usage:   engine.EstimateUsage(req.Input),
		}}
	}

	s.logger.Debug("batch classified", "batch_size", len(reqs))
	return results, nil
}

// probs derives a softmax-normalized probability vector from an FNV-1a hash
// of the text, so repeated inputs score identically.
func (s *Static) probs(text string) []float64 {
	h := fnv.New64a()
	h.Write([]byte(text))
	state := h.Sum64()

	logits := make([]float64, s.numClasses)
	for i := range logits {
		state = state*6364136223846793005 + 1442695040888963407
		logits[i] = float64(state>>40) / float64(1<<24)
	}

	var sum float64
	for i, l := range logits {
		logits[i] = math.Exp(l)
		sum += logits[i]
	}
	for i := range logits {
		logits[i] /= sum
	}
	return logits
}

// label resolves a class id, falling back to LABEL_<n> for ids the mapping
// does not cover.
func (s *Static) label(id int) string {
	if label, ok := s.id2label[id]; ok {
		return label
	}
	return "LABEL_" + strconv.Itoa(id)
}

func argmax(probs []float64) int {
	best := 0
	for i, p := range probs {
		if p > probs[best] {
			best = i
		}
	}
	return best
}
