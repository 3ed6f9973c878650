package engine

import "context"

// Classifier is the single-request classification surface. The HTTP edge
// submits one sub-request per input string through this interface; the batch
// scheduler implements it.
type Classifier interface {
	Classify(ctx context.Context, req ClassificationRequest) (*ClassificationResponse, error)
}

// Result is a per-request outcome within a batch: exactly one of Response or
// Err is set.
type Result struct {
	Response *ClassificationResponse
	Err      error
}

// BatchClassifier is the contract every inference backend must satisfy.
//
// ClassifyBatch returns one Result per request, in the same order as the
// input slice. A Result with a non-nil Err indicates failure of that request
// only. A non-nil error return means the call as a whole produced no
// per-request results.
type BatchClassifier interface {
	ClassifyBatch(ctx context.Context, reqs []ClassificationRequest) ([]Result, error)
}
