package workflow

// Annotation is the structured form of a task's workflow marker, parsed
// from task text by an external extractor before it reaches the engine.
// It names which workflow the task belongs to and where in that workflow
// the task currently sits.
type Annotation struct {
	Workflow WorkflowRef
	Stage    StageRef
}

// WorkflowRef names a workflow either directly by id or via the inherit
// sentinel, which defers to the nearest enclosing workflow task.
type WorkflowRef struct {
	// Inherit requests resolution through the ancestor lookup instead
	// of a concrete id.
	Inherit bool

	// ID is the workflow id when Inherit is false.
	ID string
}

// WorkflowID returns a reference to a concrete workflow.
func WorkflowID(id string) WorkflowRef {
	return WorkflowRef{ID: id}
}

// InheritWorkflow returns the inherit sentinel.
func InheritWorkflow() WorkflowRef {
	return WorkflowRef{Inherit: true}
}

// StageRef locates a task within a workflow: either the root sentinel
// (bare membership, not yet at any named stage) or a concrete stage id,
// optionally paired with a sub-stage id.
type StageRef struct {
	// Root marks bare workflow membership with no stage marker.
	Root bool

	// StageID is the stage id when Root is false.
	StageID string

	// SubStageID optionally names a sub-stage of StageID. Only
	// meaningful for cycle stages; resolution fails on mismatches
	// rather than silently ignoring it.
	SubStageID string
}

// RootStage returns the root sentinel.
func RootStage() StageRef {
	return StageRef{Root: true}
}

// StageID returns a reference to a concrete stage.
func StageID(id string) StageRef {
	return StageRef{StageID: id}
}

// SubStageID returns a reference to a sub-stage within a stage.
func SubStageID(stageID, subStageID string) StageRef {
	return StageRef{StageID: stageID, SubStageID: subStageID}
}
