// Package notify publishes build events to NATS.
package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"git.home.luguber.info/inful/deploybuilder/internal/pipeline"
)

// DefaultTimeout bounds connecting and flushing.
const DefaultTimeout = 5 * time.Second

// ErrNoURL is returned when a publisher is requested without a server URL.
var ErrNoURL = errors.New("nats url is required")

// Event is the JSON payload published after each build.
type Event struct {
	BuildID      string           `json:"build_id"`
	Outcome      string           `json:"outcome"`
	Reached      string           `json:"reached"`
	FailedStage  string           `json:"failed_stage,omitempty"`
	Error        string           `json:"error,omitempty"`
	EntryCreated bool             `json:"entry_created"`
	OutputDir    string           `json:"output_dir"`
	GitCommit    string           `json:"git_commit,omitempty"`
	GitBranch    string           `json:"git_branch,omitempty"`
	Version      string           `json:"version,omitempty"`
	StartedAt    time.Time        `json:"started_at"`
	DurationMS   int64            `json:"duration_ms"`
	Stages       map[string]int64 `json:"stages_ms,omitempty"`
	Warnings     []string         `json:"warnings,omitempty"`
}

// NewEvent builds the event for a finished report.
func NewEvent(r *pipeline.BuildReport) Event {
	ev := Event{
		BuildID:      r.BuildID,
		Outcome:      string(r.Outcome),
		Reached:      string(r.Reached),
		FailedStage:  string(r.FailedStage),
		Error:        r.Error,
		EntryCreated: r.EntryCreated,
		OutputDir:    r.OutputDir,
		GitCommit:    r.GitCommit,
		GitBranch:    r.GitBranch,
		Version:      r.Version,
		StartedAt:    r.Start.UTC(),
		DurationMS:   r.Duration().Milliseconds(),
		Warnings:     r.Warnings,
	}
	if len(r.StageDurations) > 0 {
		ev.Stages = make(map[string]int64, len(r.StageDurations))
		for name, d := range r.StageDurations {
			ev.Stages[string(name)] = d.Milliseconds()
		}
	}
	return ev
}

// Conn is the subset of *nats.Conn the publisher needs.
type Conn interface {
	Publish(subject string, data []byte) error
	FlushTimeout(timeout time.Duration) error
	Close()
}

// Publisher sends build events to a subject.
type Publisher struct {
	conn    Conn
	subject string
	timeout time.Duration
}

// Connect dials the NATS server at url.
func Connect(url, subject string) (*Publisher, error) {
	if url == "" {
		return nil, ErrNoURL
	}
	conn, err := nats.Connect(url,
		nats.Name("deploybuilder"),
		nats.Timeout(DefaultTimeout),
		nats.NoReconnect(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	return NewPublisher(conn, subject), nil
}

// NewPublisher wraps an existing connection.
func NewPublisher(conn Conn, subject string) *Publisher {
	return &Publisher{conn: conn, subject: subject, timeout: DefaultTimeout}
}

// Publish sends the event for r and waits for the server to acknowledge the flush.
func (p *Publisher) Publish(r *pipeline.BuildReport) error {
	data, err := json.Marshal(NewEvent(r))
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	if err := p.conn.Publish(p.subject, data); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}
	if err := p.conn.FlushTimeout(p.timeout); err != nil {
		return fmt.Errorf("failed to flush event: %w", err)
	}
	slog.Debug("Published build event", "subject", p.subject, "build_id", r.BuildID)
	return nil
}

// Name identifies the publisher in sink logs.
func (p *Publisher) Name() string { return "notify" }

// Record publishes r. The context is unused; FlushTimeout bounds the call.
func (p *Publisher) Record(_ context.Context, r *pipeline.BuildReport) error {
	return p.Publish(r)
}

// Close closes the underlying connection.
func (p *Publisher) Close() {
	if p.conn != nil {
		p.conn.Close()
	}
}
