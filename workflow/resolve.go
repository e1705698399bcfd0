package workflow

import (
	"errors"
	"fmt"
)

// Sentinel errors for annotation resolution. All are routine and locally
// recoverable: a caller iterating tasks should treat any of them as "not
// a workflow task right now" and skip processing, never abort the batch.
var (
	// ErrNoParentWorkflow is returned when an inherit annotation has no
	// enclosing workflow task to inherit from.
	ErrNoParentWorkflow = errors.New("no parent workflow to inherit")
	// ErrUnknownWorkflow is returned when the annotation references a
	// workflow id missing from the loaded definitions.
	ErrUnknownWorkflow = errors.New("unknown workflow")
	// ErrUnknownStage is returned when the annotation references a stage
	// id missing from the resolved workflow.
	ErrUnknownStage = errors.New("unknown stage")
	// ErrUnknownSubStage is returned when the annotation references a
	// sub-stage id missing from the resolved stage.
	ErrUnknownSubStage = errors.New("unknown sub-stage")
)

// Lookup supplies workflow definitions by id. catalog.Catalog implements
// it; a plain DefinitionSet works for tests and one-shot callers.
type Lookup interface {
	Definition(id string) (*Definition, bool)
}

// DefinitionSet is a Lookup over a slice of definitions.
type DefinitionSet []*Definition

// Definition implements Lookup.
func (s DefinitionSet) Definition(id string) (*Definition, bool) {
	for _, d := range s {
		if d != nil && d.ID == id {
			return d, true
		}
	}
	return nil, false
}

// AncestorFunc reports the workflow id of the nearest enclosing workflow
// task, typically by walking upward through less-indented tasks in the
// containing document. It is consulted only for inherit annotations. The
// caller closes over the task's position; the engine never sees the
// document.
type AncestorFunc func() (workflowID string, ok bool)

// ResolvedContext is the fully looked-up, validated form of an
// annotation. Transition and terminality evaluation take a
// ResolvedContext rather than raw input, which is what enforces
// resolve-before-evaluate ordering.
type ResolvedContext struct {
	// Workflow is the resolved definition.
	Workflow *Definition

	// Stage is the resolved stage, or the synthetic root stage for a
	// root task.
	Stage *Stage

	// SubStage is the resolved sub-stage, if the annotation named one.
	SubStage *SubStage

	// IsRootTask is true when the task declares workflow membership
	// without being at any named stage.
	IsRootTask bool
}

// Resolve turns an annotation into a ResolvedContext against the given
// definitions. ancestor may be nil when the caller cannot supply one; an
// inherit annotation then fails with ErrNoParentWorkflow.
//
// Resolve is a pure function: identical inputs produce identical
// outputs, and failures are returned values, never panics.
func Resolve(ann Annotation, defs Lookup, ancestor AncestorFunc) (*ResolvedContext, error) {
	workflowID := ann.Workflow.ID
	if ann.Workflow.Inherit {
		if ancestor == nil {
			return nil, ErrNoParentWorkflow
		}
		id, ok := ancestor()
		if !ok {
			return nil, ErrNoParentWorkflow
		}
		workflowID = id
	}

	def, ok := defs.Definition(workflowID)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownWorkflow, workflowID)
	}

	// An empty stage id means bare workflow membership with no stage
	// marker, which resolves the same as the explicit root sentinel.
	if ann.Stage.Root || ann.Stage.StageID == "" {
		return &ResolvedContext{
			Workflow:   def,
			Stage:      rootStage(),
			IsRootTask: true,
		}, nil
	}

	stage, ok := def.StageByID(ann.Stage.StageID)
	if !ok {
		return nil, fmt.Errorf("%w: %q in workflow %q", ErrUnknownStage, ann.Stage.StageID, def.ID)
	}

	rc := &ResolvedContext{Workflow: def, Stage: stage}

	if ann.Stage.SubStageID != "" {
		sub, ok := stage.SubStageByID(ann.Stage.SubStageID)
		if !ok {
			return nil, fmt.Errorf("%w: %q in stage %q", ErrUnknownSubStage, ann.Stage.SubStageID, stage.ID)
		}
		rc.SubStage = sub
	}

	return rc, nil
}
