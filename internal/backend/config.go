// Package backend provides the inference backends driven by the batch
// scheduler: an in-process deterministic classifier for development and
// tests, and a remote adapter that forwards batches to an upstream
// inference service.
package backend

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/doublewordai/arbiter/internal/engine"
)

// Backend kinds accepted by Config.Kind.
const (
	KindStatic = "static"
	KindRemote = "remote"
)

// Config holds backend configuration.
type Config struct {
	// Kind selects the backend implementation ("static" or "remote").
	Kind string `env:"BACKEND" envDefault:"static"`

	// ID2Label maps class ids to labels for the static backend, in the
	// form "0=No Claim,1=Claim".
	ID2Label string `env:"ID2LABEL"`

	// Endpoint is the base URL of the upstream inference service used by
	// the remote backend.
	Endpoint string `env:"BACKEND_ENDPOINT" envDefault:"http://127.0.0.1:8500"`

	// Timeout bounds a single upstream batch call.
	Timeout time.Duration `env:"BACKEND_TIMEOUT" envDefault:"30s"`

	// MaxRetries is the number of retries for retryable upstream failures.
	MaxRetries int `env:"BACKEND_MAX_RETRIES" envDefault:"2"`
}

// New constructs the backend selected by cfg.Kind.
func New(cfg Config, logger *slog.Logger) (engine.BatchClassifier, error) {
	switch cfg.Kind {
	case KindStatic:
		id2label, err := ParseID2Label(cfg.ID2Label)
		if err != nil {
			return nil, err
		}
		return NewStatic(id2label, logger), nil
	case KindRemote:
		return NewRemote(cfg, logger), nil
	default:
		return nil, fmt.Errorf("unknown backend kind %q", cfg.Kind)
	}
}

// ParseID2Label parses a "0=No Claim,1=Claim" style mapping. An empty input
// yields an empty map; malformed pairs are an error.
func ParseID2Label(raw string) (map[int]string, error) {
	id2label := make(map[int]string)
	if raw == "" {
		return id2label, nil
	}

	for _, pair := range strings.Split(raw, ",") {
		id, label, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, fmt.Errorf("malformed id2label pair %q", pair)
		}
		n, err := strconv.Atoi(strings.TrimSpace(id))
		if err != nil {
			return nil, fmt.Errorf("malformed id2label id %q: %w", id, err)
		}
		id2label[n] = label
	}

	return id2label, nil
}
