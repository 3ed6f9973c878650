// Package audit publishes per-request classification usage events to NATS
// for downstream accounting. Publishing is fire-and-forget: failures are
// logged and never surfaced to clients.
package audit

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/nats-io/nats.go"
)

// Config holds audit publishing configuration. Publishing is disabled when
// URL is empty.
type Config struct {
	// URL is the NATS server URL (e.g. "nats://127.0.0.1:4222").
	URL string `env:"NATS_URL"`

	// SubjectPrefix is the subject prefix for usage events; the sanitized
	// model name is appended.
	SubjectPrefix string `env:"NATS_SUBJECT_PREFIX" envDefault:"arbiter.classifications"`
}

// Enabled reports whether a NATS URL was configured.
func (c Config) Enabled() bool {
	return c.URL != ""
}

// Event is the usage record published after each successful classification.
type Event struct {
	ID           string `json:"id"`
	Model        string `json:"model"`
	InputCount   int    `json:"input_count"`
	PromptTokens uint32 `json:"prompt_tokens"`
	TotalTokens  uint32 `json:"total_tokens"`
	DurationMS   int64  `json:"duration_ms"`
	CreatedAt    int64  `json:"created_at"`
}

// Publisher publishes usage events to NATS.
type Publisher struct {
	conn          *nats.Conn
	subjectPrefix string
	logger        *slog.Logger
}

// Connect dials NATS and returns a publisher.
func Connect(cfg Config, logger *slog.Logger) (*Publisher, error) {
	if logger == nil {
		logger = slog.Default()
	}

	conn, err := nats.Connect(cfg.URL,
		nats.Name("arbiter-server"),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}

	return &Publisher{
		conn:          conn,
		subjectPrefix: cfg.SubjectPrefix,
		logger:        logger.With("component", "audit-publisher"),
	}, nil
}

// Publish sends one usage event. The subject is derived from the event's
// model name.
func (p *Publisher) Publish(ev Event) error {
	subject := p.subjectPrefix + "." + sanitizeToken(ev.Model)

	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal usage event: %w", err)
	}

	if err := p.conn.Publish(subject, data); err != nil {
		return fmt.Errorf("publish usage event: %w", err)
	}

	p.logger.Debug("usage event published",
		"response_id", ev.ID,
		"subject", subject,
	)
	return nil
}

// Drain flushes pending publishes and closes the connection.
func (p *Publisher) Drain() error {
	return p.conn.Drain()
}

// sanitizeToken makes a model name safe for use as a NATS subject token.
// Model ids commonly contain "/" (hub namespaces), which would otherwise
// split the subject.
func sanitizeToken(model string) string {
	if model == "" {
		return "unknown"
	}
	replacer := strings.NewReplacer(
		"/", "-",
		".", "-",
		" ", "-",
		"*", "-",
		">", "-",
	)
	return replacer.Replace(model)
}
