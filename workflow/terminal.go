package workflow

// IsFinal reports whether a resolved context is the functional end of
// its workflow. A parent-completion collaborator uses this to decide
// whether completing the task should also trigger completion logic on
// its structural parent.
//
// A nil context stands for a task with no workflow annotation at all,
// which is trivially final for parent-completion purposes. A root task
// is never final: completing it only starts the first stage.
//
// A stage with no outgoing edges that is not the last element of the
// canonical ordering is deliberately treated as not final. That shape
// usually means a misconfigured definition, and prematurely marking
// ancestors complete is the worse failure; only "no outgoing edges" plus
// "last in the canonical ordering" counts as the true end.
func IsFinal(rc *ResolvedContext) bool {
	if rc == nil {
		return true
	}
	if rc.IsRootTask {
		return false
	}

	def := rc.Workflow
	stage := rc.Stage

	if stage.Kind == KindTerminal {
		return true
	}

	if stage.Kind == KindCycle && rc.SubStage != nil {
		if subAdvances(stage, rc.SubStage) {
			return false
		}
		return deadEnded(def, stage) && lastStage(def, stage)
	}

	// Linear, or cycle without a current sub-stage.
	return deadEnded(def, stage) && lastStage(def, stage)
}

// subAdvances reports whether the sub-stage's next link resolves within
// its parent stage.
func subAdvances(stage *Stage, sub *SubStage) bool {
	if sub.Next == "" {
		return false
	}
	_, ok := stage.SubStageByID(sub.Next)
	return ok
}

// deadEnded reports whether the stage has no resolvable outgoing edge.
func deadEnded(def *Definition, stage *Stage) bool {
	if _, ok := firstResolvable(def, stage.Next); ok {
		return false
	}
	if _, ok := firstResolvable(def, stage.CanProceedTo); ok {
		return false
	}
	return true
}

func lastStage(def *Definition, stage *Stage) bool {
	idx := def.StageIndex(stage.ID)
	return idx >= 0 && idx == len(def.Stages)-1
}
