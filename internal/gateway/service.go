package gateway

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/doublewordai/arbiter/internal/audit"
	"github.com/doublewordai/arbiter/internal/engine"
)

// ClassifyService implements the fanout edge. A K-input client request is
// split into K single-input sub-requests submitted to the classifier
// concurrently, so the batch scheduler can coalesce across inputs and not
// just across requests. The sub-responses are merged back into one response
// preserving input order.
type ClassifyService struct {
	classifier engine.Classifier
	publisher  *audit.Publisher // optional
	logger     *slog.Logger
}

// NewClassifyService creates the fanout service. publisher may be nil to
// disable usage event publishing.
func NewClassifyService(classifier engine.Classifier, publisher *audit.Publisher, logger *slog.Logger) *ClassifyService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ClassifyService{
		classifier: classifier,
		publisher:  publisher,
		logger:     logger.With("component", "classify-service"),
	}
}

// Classify handles one client request end to end. Any sub-request failure
// fails the whole request; partial success is never exposed.
func (s *ClassifyService) Classify(ctx context.Context, req engine.ClassificationRequest) (*engine.ClassificationResponse, error) {
	if len(req.Input) == 0 {
		return nil, engine.ErrEmptyInput
	}

	start := time.Now()

	// Fan out: one sub-request per input string, all submitted concurrently.
	responses := make([]*engine.ClassificationResponse, len(req.Input))
	errs := make([]error, len(req.Input))

	var wg sync.WaitGroup
	for i, text := range req.Input {
		wg.Add(1)
		go func(i int, text string) {
			defer wg.Done()
			sub := engine.ClassificationRequest{
				Model: req.Model,
				Input: []string{text},
			}
			responses[i], errs[i] = s.classifier.Classify(ctx, sub)
		}(i, text)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			s.logger.Error("sub-request failed",
				"input_index", i,
				"model", req.Model,
				"error", err,
			)
			return nil, fmt.Errorf("classify input %d: %w", i, err)
		}
	}

	// Merge in input order, rewriting each result's index to the position
	// of its originating input within the client request.
	var data []engine.ClassificationData
	var promptTokens, completionTokens uint32
	for i, resp := range responses {
		for _, d := range resp.Data {
			d.Index = i
			data = append(data, d)
		}
		promptTokens += resp.Usage.PromptTokens
		completionTokens += resp.Usage.CompletionTokens
	}

	merged := &engine.ClassificationResponse{
		ID:      engine.NewResponseID(),
		Object:  engine.ObjectList,
		Created: engine.Now(),
		Model:   req.Model,
		Data:    data,
		Usage: engine.Usage{
			PromptTokens:     promptTokens,
			TotalTokens:      promptTokens + completionTokens,
			CompletionTokens: completionTokens,
		},
	}

	s.logger.Debug("classification complete",
		"response_id", merged.ID,
		"input_count", len(req.Input),
		"duration_ms", time.Since(start).Milliseconds(),
	)

	s.publishUsage(merged, len(req.Input), time.Since(start))

	return merged, nil
}

// publishUsage emits a usage event if a publisher is configured. Failures
// are logged only.
func (s *ClassifyService) publishUsage(resp *engine.ClassificationResponse, inputs int, elapsed time.Duration) {
	if s.publisher == nil {
		return
	}

	err := s.publisher.Publish(audit.Event{
		ID:           resp.ID,
		Model:        resp.Model,
		InputCount:   inputs,
		PromptTokens: resp.Usage.PromptTokens,
		TotalTokens:  resp.Usage.TotalTokens,
		DurationMS:   elapsed.Milliseconds(),
		CreatedAt:    resp.Created,
	})
	if err != nil {
		s.logger.Warn("failed to publish usage event",
			"response_id", resp.ID,
			"error", err,
		)
	}
}
