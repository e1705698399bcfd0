// Package events publishes engine outcomes as typed NATS domain events.
//
// Each event type has its own subject under "workflow.events.<domain>.<action>",
// enabling type-safe subscription and subject-based routing. Publishing
// is entirely optional: the engine never depends on this package, and a
// caller that does not configure NATS simply never constructs a
// Publisher.
package events

import (
	"time"

	"github.com/c360studio/stageflow/workflow"
)

// Per-event-type subjects.
const (
	// SubjectStageAdvanced carries StageAdvancedEvent.
	SubjectStageAdvanced = "workflow.events.stage.advanced"
	// SubjectStageHeld carries StageHeldEvent.
	SubjectStageHeld = "workflow.events.stage.held"
	// SubjectWorkflowCompleted carries WorkflowCompletedEvent.
	SubjectWorkflowCompleted = "workflow.events.workflow.completed"
	// SubjectTimeAggregated carries TimeAggregatedEvent.
	SubjectTimeAggregated = "workflow.events.time.aggregated"
)

// StageAdvancedEvent is published when a completed task moves to a new
// stage or sub-stage.
type StageAdvancedEvent struct {
	EventID      string    `json:"event_id"`
	WorkflowID   string    `json:"workflow_id"`
	FromStage    string    `json:"from_stage,omitempty"`
	FromSubStage string    `json:"from_sub_stage,omitempty"`
	ToStage      string    `json:"to_stage"`
	ToSubStage   string    `json:"to_sub_stage,omitempty"`
	FromRoot     bool      `json:"from_root,omitempty"`
	At           time.Time `json:"at"`
}

// StageHeldEvent is published when a transition is a no-op: a terminal
// stage, a dead end, or a zero-stage workflow.
type StageHeldEvent struct {
	EventID    string    `json:"event_id"`
	WorkflowID string    `json:"workflow_id"`
	Stage      string    `json:"stage,omitempty"`
	SubStage   string    `json:"sub_stage,omitempty"`
	At         time.Time `json:"at"`
}

// WorkflowCompletedEvent is published when a task completes at a final
// stage of its workflow.
type WorkflowCompletedEvent struct {
	EventID    string    `json:"event_id"`
	WorkflowID string    `json:"workflow_id"`
	Stage      string    `json:"stage"`
	SubStage   string    `json:"sub_stage,omitempty"`
	At         time.Time `json:"at"`
}

// TimeAggregatedEvent is published alongside WorkflowCompletedEvent when
// cumulative time accounting is enabled.
type TimeAggregatedEvent struct {
	EventID      string        `json:"event_id"`
	WorkflowID   string        `json:"workflow_id"`
	Records      int           `json:"records"`
	TotalElapsed time.Duration `json:"total_elapsed"`
	At           time.Time     `json:"at"`
}

// NewStageAdvanced builds a StageAdvancedEvent from a resolved context
// and its transition result. The caller supplies the timestamp so event
// times line up with its own record keeping.
func NewStageAdvanced(rc *workflow.ResolvedContext, res workflow.TransitionResult, at time.Time) StageAdvancedEvent {
	ev := StageAdvancedEvent{
		EventID:    newEventID(),
		WorkflowID: rc.Workflow.ID,
		ToStage:    res.NextStageID,
		ToSubStage: res.NextSubStageID,
		FromRoot:   rc.IsRootTask,
		At:         at,
	}
	if !rc.IsRootTask {
		ev.FromStage = rc.Stage.ID
	}
	if rc.SubStage != nil {
		ev.FromSubStage = rc.SubStage.ID
	}
	return ev
}

// NewStageHeld builds a StageHeldEvent from a resolved context.
func NewStageHeld(rc *workflow.ResolvedContext, at time.Time) StageHeldEvent {
	ev := StageHeldEvent{
		EventID:    newEventID(),
		WorkflowID: rc.Workflow.ID,
		At:         at,
	}
	if !rc.IsRootTask {
		ev.Stage = rc.Stage.ID
	}
	if rc.SubStage != nil {
		ev.SubStage = rc.SubStage.ID
	}
	return ev
}

// NewWorkflowCompleted builds a WorkflowCompletedEvent for a context
// that IsFinal reported true for.
func NewWorkflowCompleted(rc *workflow.ResolvedContext, at time.Time) WorkflowCompletedEvent {
	ev := WorkflowCompletedEvent{
		EventID:    newEventID(),
		WorkflowID: rc.Workflow.ID,
		Stage:      rc.Stage.ID,
		At:         at,
	}
	if rc.SubStage != nil {
		ev.SubStage = rc.SubStage.ID
	}
	return ev
}

// NewTimeAggregated builds a TimeAggregatedEvent from a record set.
func NewTimeAggregated(workflowID string, records []workflow.TimeRecord, at time.Time) TimeAggregatedEvent {
	return TimeAggregatedEvent{
		EventID:      newEventID(),
		WorkflowID:   workflowID,
		Records:      len(records),
		TotalElapsed: workflow.AggregateElapsed(records),
		At:           at,
	}
}
