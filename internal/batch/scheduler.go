package batch

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/doublewordai/arbiter/internal/engine"
	"github.com/doublewordai/arbiter/internal/observability"
)

// outcome is the single value delivered through a request's result sink.
type outcome struct {
	resp *engine.ClassificationResponse
	err  error
}

// queuedRequest pairs a request with its result sink. The sink is a
// 1-buffered channel written exactly once by the driver, so delivery never
// blocks even if the submitter has already abandoned its wait.
type queuedRequest struct {
	req  engine.ClassificationRequest
	sink chan outcome
}

// Scheduler coalesces concurrent Classify calls into batches for a
// BatchClassifier backend.
//
// Admission happens over an unbuffered channel: a submitter blocks until the
// driver accepts the record, which bounds the in-flight set and guarantees
// that a successful hand-off means the request is in the driver's custody.
// The queue itself is owned exclusively by the driver goroutine; there is no
// shared mutable state and no locking.
type Scheduler struct {
	cfg     Config
	backend engine.BatchClassifier
	metrics *observability.Metrics
	logger  *slog.Logger

	admit chan *queuedRequest
	done  chan struct{}
	once  sync.Once
}

// NewScheduler creates a scheduler for the given backend. Run must be called
// for submissions to make progress.
func NewScheduler(cfg Config, backend engine.BatchClassifier, metrics *observability.Metrics, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		cfg:     cfg.normalized(),
		backend: backend,
		metrics: metrics,
		logger:  logger.With("component", "batch-scheduler"),
		admit:   make(chan *queuedRequest), // rendezvous: submitters wait for the driver
		done:    make(chan struct{}),
	}
}

// Classify submits one request and blocks until the scheduler delivers its
// outcome. It returns engine.ErrQueueClosed after Close, or the context
// error if ctx is cancelled while waiting at either suspension point.
func (s *Scheduler) Classify(ctx context.Context, req engine.ClassificationRequest) (*engine.ClassificationResponse, error) {
	if len(req.Input) == 0 {
		return nil, engine.ErrEmptyInput
	}

	qr := &queuedRequest{
		req:  req,
		sink: make(chan outcome, 1),
	}

	select {
	case s.admit <- qr:
	case <-s.done:
		return nil, engine.ErrQueueClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	select {
	case out := <-qr.sink:
		return out.resp, out.err
	case <-ctx.Done():
		// The driver still delivers into the buffered sink; the value is
		// simply never read.
		return nil, ctx.Err()
	}
}

// Close stops admission. It is safe to call more than once and from any
// goroutine. The driver drains whatever is queued, delivers those outcomes,
// and then Run returns.
func (s *Scheduler) Close() {
	s.once.Do(func() {
		close(s.done)
	})
}

// Run is the driver loop. It owns the queue for its lifetime, handling one
// wakeup per iteration: an admission (with an immediate flush once the queue
// reaches BatchSize), a tick (flushing any partial batch), or shutdown
// (drain, flush, exit). Run returns nil after a clean drain, or the context
// error if ctx is cancelled, in which case queued requests are failed with
// engine.ErrQueueClosed.
func (s *Scheduler) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.cfg.TickDuration())
	defer ticker.Stop()

	s.logger.Info("scheduler started",
		"batch_size", s.cfg.BatchSize,
		"tick_duration", s.cfg.TickDuration(),
	)

	var queue []*queuedRequest

	for {
		select {
		case qr := <-s.admit:
			queue = append(queue, qr)
			s.metrics.QueueDepth.Add(ctx, 1)
			s.logger.Debug("request queued", "queue_size", len(queue))

			if len(queue) >= s.cfg.BatchSize {
				queue = s.flush(ctx, queue)
			}

		case <-ticker.C:
			if len(queue) > 0 {
				s.logger.Debug("tick flush", "pending", len(queue))
				queue = s.flush(ctx, queue)
			}

		case <-s.done:
			s.logger.Info("scheduler closing, draining queue", "pending", len(queue))
			for len(queue) > 0 {
				queue = s.flush(ctx, queue)
			}
			return nil

		case <-ctx.Done():
			s.logger.Warn("scheduler context cancelled", "pending", len(queue))
			for _, qr := range queue {
				qr.sink <- outcome{err: engine.ErrQueueClosed}
			}
			s.metrics.QueueDepth.Add(context.Background(), -int64(len(queue)))
			return ctx.Err()
		}
	}
}

// flush drains up to BatchSize requests from the head of the queue, invokes
// the backend once, and delivers one outcome per sink in drain order. A
// batch-level backend error is fanned out to every sink in the batch. The
// remaining queue is returned.
func (s *Scheduler) flush(ctx context.Context, queue []*queuedRequest) []*queuedRequest {
	n := min(s.cfg.BatchSize, len(queue))
	if n == 0 {
		return queue
	}
	batch := queue[:n:n]
	rest := queue[n:]

	reqs := make([]engine.ClassificationRequest, n)
	for i, qr := range batch {
		reqs[i] = qr.req
	}

	start := time.Now()
	results, err := s.backend.ClassifyBatch(ctx, reqs)
	elapsed := time.Since(start)

	s.metrics.BatchSize.Record(ctx, int64(n))
	s.metrics.BatchFlushLatency.Record(ctx, float64(elapsed.Milliseconds()))
	s.metrics.QueueDepth.Add(ctx, -int64(n))

	switch {
	case err != nil:
		s.logger.Error("batch failed", "batch_size", n, "error", err)
		s.metrics.BackendErrors.Add(ctx, 1)
		s.deliverAll(batch, fmt.Errorf("%w: %v", engine.ErrBackend, err))

	case len(results) != n:
		s.logger.Error("backend returned wrong result count",
			"batch_size", n,
			"result_count", len(results),
		)
		s.metrics.BackendErrors.Add(ctx, 1)
		s.deliverAll(batch, fmt.Errorf("%w: got %d results for %d requests", engine.ErrBackend, len(results), n))

	default:
		for i, qr := range batch {
			res := results[i]
			if res.Err != nil {
				s.metrics.BackendErrors.Add(ctx, 1)
				qr.sink <- outcome{err: fmt.Errorf("%w: %v", engine.ErrBackend, res.Err)}
				continue
			}
			qr.sink <- outcome{resp: res.Response}
		}
		s.logger.Info("batch processed",
			"batch_size", n,
			"duration_ms", elapsed.Milliseconds(),
		)
	}

	return rest
}

// deliverAll fails every sink in the batch with the same error.
func (s *Scheduler) deliverAll(batch []*queuedRequest, err error) {
	for _, qr := range batch {
		qr.sink <- outcome{err: err}
	}
}
