// Package engine defines the classification request/response model and the
// contracts between the HTTP edge, the batch scheduler, and the pluggable
// inference backend.
package engine

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// ClassificationRequest is a unit of work submitted to the scheduler.
// Input must contain at least one string.
type ClassificationRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

// ClassificationResponse is the aggregated result for one request. The JSON
// shape follows the OpenAI-style list response so existing clients can
// consume it unchanged.
type ClassificationResponse struct {
	ID      string               `json:"id"`
	Object  string               `json:"object"`
	Created int64                `json:"created"`
	Model   string               `json:"model"`
	Data    []ClassificationData `json:"data"`
	Usage   Usage                `json:"usage"`
}

// ClassificationData is the per-input outcome. Index is the position of the
// input string within the originating request.
type ClassificationData struct {
	Index      int       `json:"index"`
	Label      string    `json:"label"`
	Probs      []float64 `json:"probs"`
	NumClasses int       `json:"num_classes"`
}

// Usage holds token accounting for a response.
type Usage struct {
	PromptTokens        uint32 `json:"prompt_tokens"`
	TotalTokens         uint32 `json:"total_tokens"`
	CompletionTokens    uint32 `json:"completion_tokens"`
	PromptTokensDetails any    `json:"prompt_tokens_details"`
}

// ObjectList is the object tag carried by every classification response.
const ObjectList = "list"

// NewResponseID returns a process-unique response id of the form
// "classify-<32 hex chars>". UUIDv7 keeps ids time-sortable.
func NewResponseID() string {
	id := uuid.Must(uuid.NewV7())
	return "classify-" + strings.ReplaceAll(id.String(), "-", "")
}

// EstimateTokens approximates the token count of a text as ceil(len/4).
// This is a byte-length heuristic, not a real tokenizer count.
func EstimateTokens(text string) uint32 {
	return uint32((len(text) + 3) / 4)
}

// EstimateUsage builds Usage for a set of input strings. Classification
// produces no completion tokens, so total equals the prompt estimate.
func EstimateUsage(input []string) Usage {
	var prompt uint32
	for _, text := range input {
		prompt += EstimateTokens(text)
	}
	return Usage{
		PromptTokens:     prompt,
		TotalTokens:      prompt,
		CompletionTokens: 0,
	}
}

// Now returns the current unix timestamp for response Created fields.
func Now() int64 {
	return time.Now().Unix()
}
