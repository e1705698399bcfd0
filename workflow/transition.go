package workflow

// TransitionResult describes where a completed task goes next. When
// SameStage is true the transition is a no-op: a terminal stage, a
// dead-end, or a zero-stage workflow. The external task-text mutator
// owns writing the outcome back into the document; for a non-no-op
// result that normally means generating a new downstream task.
type TransitionResult struct {
	// NextStageID is the stage the workflow run moves to. On a no-op it
	// echoes the input stage (empty for a root task over a zero-stage
	// workflow).
	NextStageID string `json:"next_stage_id"`

	// NextSubStageID is the sub-stage within NextStageID, or empty.
	NextSubStageID string `json:"next_sub_stage_id,omitempty"`

	// SameStage is true when the result is identical to the input
	// stage/sub-stage pair.
	SameStage bool `json:"same_stage"`
}

// ShouldGenerateTask reports whether the result warrants a new
// downstream task.
func (r TransitionResult) ShouldGenerateTask() bool {
	return !r.SameStage
}

// Transition computes the next stage and sub-stage for a resolved
// context. It is a total function: "nowhere to go" is reported as
// SameStage=true, never as an error.
//
// Rule order: synthetic root, terminal, cycle with a current sub-stage,
// then linear resolution (which also covers a cycle entered without a
// sub-stage). Explicit next/can_proceed_to links always outrank
// positional succession, so definitions can be reordered for display
// without changing behavior as long as explicit links are set. A link
// referencing a stage absent from the definition is treated as "no such
// transition" and the next rule in priority order applies.
func Transition(rc *ResolvedContext) TransitionResult {
	def := rc.Workflow
	stage := rc.Stage

	hold := TransitionResult{NextStageID: stage.ID, SameStage: true}
	currentSub := ""
	if rc.SubStage != nil {
		currentSub = rc.SubStage.ID
		hold.NextSubStageID = currentSub
	}

	switch {
	case stage.Kind == KindRoot:
		// Completing the root starts the first stage.
		if len(def.Stages) == 0 {
			return hold
		}
		return TransitionResult{NextStageID: def.Stages[0].ID}

	case stage.Kind == KindTerminal:
		return hold

	case stage.Kind == KindCycle && rc.SubStage != nil:
		return cycleTransition(def, stage, rc.SubStage, currentSub)

	default:
		// Linear, cycle without a current sub-stage, and any
		// unrecognized non-terminal kind.
		if id, ok := firstResolvable(def, stage.Next); ok {
			return stamp(TransitionResult{NextStageID: id}, stage.ID, currentSub)
		}
		if id, ok := firstResolvable(def, stage.CanProceedTo); ok {
			return stamp(TransitionResult{NextStageID: id}, stage.ID, currentSub)
		}
		if idx := def.StageIndex(stage.ID); idx >= 0 && idx+1 < len(def.Stages) {
			return stamp(TransitionResult{NextStageID: def.Stages[idx+1].ID}, stage.ID, currentSub)
		}
		return hold
	}
}

// cycleTransition advances within a cycle stage's sub-stage chain:
// follow the sub-stage's next link, then escape through the stage's
// can_proceed_to exit, then wrap back to the first sub-stage.
func cycleTransition(def *Definition, stage *Stage, sub *SubStage, currentSub string) TransitionResult {
	if sub.Next != "" {
		if next, ok := stage.SubStageByID(sub.Next); ok {
			return stamp(TransitionResult{
				NextStageID:    stage.ID,
				NextSubStageID: next.ID,
			}, stage.ID, currentSub)
		}
	}
	if id, ok := firstResolvable(def, stage.CanProceedTo); ok {
		return stamp(TransitionResult{NextStageID: id}, stage.ID, currentSub)
	}
	if len(stage.SubStages) > 0 {
		return stamp(TransitionResult{
			NextStageID:    stage.ID,
			NextSubStageID: stage.SubStages[0].ID,
		}, stage.ID, currentSub)
	}
	return TransitionResult{NextStageID: stage.ID, NextSubStageID: currentSub, SameStage: true}
}

// firstResolvable returns the first id in ids that names a stage present
// in the definition. Dangling references are skipped.
func firstResolvable(def *Definition, ids IDList) (string, bool) {
	for _, id := range ids {
		if _, ok := def.StageByID(id); ok {
			return id, true
		}
	}
	return "", false
}

// stamp marks a result as a no-op if it reproduces the input pair.
func stamp(r TransitionResult, fromStage, fromSub string) TransitionResult {
	r.SameStage = r.NextStageID == fromStage && r.NextSubStageID == fromSub
	return r
}
