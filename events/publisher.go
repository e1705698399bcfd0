package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
)

// Publisher publishes engine events to NATS. It wraps an existing
// connection; connection lifecycle belongs to the caller.
type Publisher struct {
	nc     *nats.Conn
	logger *slog.Logger
}

// NewPublisher creates a publisher over an established connection.
func NewPublisher(nc *nats.Conn, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{nc: nc, logger: logger}
}

// publishJSON publishes a JSON-encoded event.
// NATS Publish is synchronous and doesn't support context cancellation
// directly, so the context is checked before publishing.
func (p *Publisher) publishJSON(ctx context.Context, subject string, v any) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context cancelled before publish: %w", err)
	}

	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if err := p.nc.Publish(subject, data); err != nil {
		return fmt.Errorf("publish %s: %w", subject, err)
	}

	p.logger.Debug("Published event", "subject", subject)
	return nil
}

// StageAdvanced publishes a StageAdvancedEvent.
func (p *Publisher) StageAdvanced(ctx context.Context, ev StageAdvancedEvent) error {
	return p.publishJSON(ctx, SubjectStageAdvanced, ev)
}

// StageHeld publishes a StageHeldEvent.
func (p *Publisher) StageHeld(ctx context.Context, ev StageHeldEvent) error {
	return p.publishJSON(ctx, SubjectStageHeld, ev)
}

// WorkflowCompleted publishes a WorkflowCompletedEvent.
func (p *Publisher) WorkflowCompleted(ctx context.Context, ev WorkflowCompletedEvent) error {
	return p.publishJSON(ctx, SubjectWorkflowCompleted, ev)
}

// TimeAggregated publishes a TimeAggregatedEvent.
func (p *Publisher) TimeAggregated(ctx context.Context, ev TimeAggregatedEvent) error {
	return p.publishJSON(ctx, SubjectTimeAggregated, ev)
}

func newEventID() string {
	return uuid.NewString()
}
