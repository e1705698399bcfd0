package workflow

import "testing"

func mustResolve(t *testing.T, defs Lookup, ann Annotation) *ResolvedContext {
	t.Helper()
	rc, err := Resolve(ann, defs, nil)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	return rc
}

func TestTransition_Root(t *testing.T) {
	defs := testDefinitions()

	rc := mustResolve(t, defs, Annotation{Workflow: WorkflowID("writing"), Stage: RootStage()})
	got := Transition(rc)
	if got.SameStage || got.NextStageID != "draft" || got.NextSubStageID != "" {
		t.Fatalf("root transition = %+v", got)
	}
	if !got.ShouldGenerateTask() {
		t.Fatal("root completion should generate the first stage task")
	}

	// Zero-stage workflow: the root has nowhere to go.
	rc = mustResolve(t, defs, Annotation{Workflow: WorkflowID("empty"), Stage: RootStage()})
	got = Transition(rc)
	if !got.SameStage || got.NextStageID != "" {
		t.Fatalf("zero-stage root transition = %+v", got)
	}
}

func TestTransition_Terminal(t *testing.T) {
	rc := mustResolve(t, testDefinitions(), Annotation{Workflow: WorkflowID("writing"), Stage: StageID("done")})
	got := Transition(rc)
	if !got.SameStage || got.NextStageID != "done" {
		t.Fatalf("terminal transition = %+v", got)
	}
}

func TestTransition_LinearPriority(t *testing.T) {
	tests := []struct {
		name     string
		def      *Definition
		stage    string
		wantNext string
		wantSame bool
	}{
		{
			name: "explicit next outranks positional successor",
			def: &Definition{ID: "w", Stages: []Stage{
				{ID: "a", Kind: KindLinear, Next: IDList{"c"}},
				{ID: "b", Kind: KindLinear},
				{ID: "c", Kind: KindTerminal},
			}},
			stage:    "a",
			wantNext: "c",
		},
		{
			name: "first of next list wins",
			def: &Definition{ID: "w", Stages: []Stage{
				{ID: "a", Kind: KindLinear, Next: IDList{"c", "b"}},
				{ID: "b", Kind: KindLinear},
				{ID: "c", Kind: KindTerminal},
			}},
			stage:    "a",
			wantNext: "c",
		},
		{
			name: "can_proceed_to when next absent",
			def: &Definition{ID: "w", Stages: []Stage{
				{ID: "a", Kind: KindLinear, CanProceedTo: IDList{"c"}},
				{ID: "b", Kind: KindLinear},
				{ID: "c", Kind: KindTerminal},
			}},
			stage:    "a",
			wantNext: "c",
		},
		{
			name: "positional successor as default",
			def: &Definition{ID: "w", Stages: []Stage{
				{ID: "a", Kind: KindLinear},
				{ID: "b", Kind: KindTerminal},
			}},
			stage:    "a",
			wantNext: "b",
		},
		{
			name: "dangling next falls through to positional successor",
			def: &Definition{ID: "w", Stages: []Stage{
				{ID: "a", Kind: KindLinear, Next: IDList{"ghost"}},
				{ID: "b", Kind: KindTerminal},
			}},
			stage:    "a",
			wantNext: "b",
		},
		{
			name: "dead-end last stage holds",
			def: &Definition{ID: "w", Stages: []Stage{
				{ID: "a", Kind: KindLinear},
				{ID: "b", Kind: KindLinear},
			}},
			stage:    "b",
			wantNext: "b",
			wantSame: true,
		},
		{
			name: "cycle without current sub-stage resolves linearly",
			def: &Definition{ID: "w", Stages: []Stage{
				{ID: "a", Kind: KindCycle, SubStages: []SubStage{{ID: "x"}}},
				{ID: "b", Kind: KindTerminal},
			}},
			stage:    "a",
			wantNext: "b",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rc := mustResolve(t, DefinitionSet{tt.def}, Annotation{
				Workflow: WorkflowID(tt.def.ID),
				Stage:    StageID(tt.stage),
			})
			got := Transition(rc)
			if got.NextStageID != tt.wantNext || got.SameStage != tt.wantSame {
				t.Fatalf("transition = %+v, want next %q same %v", got, tt.wantNext, tt.wantSame)
			}
			if got.NextSubStageID != "" {
				t.Fatalf("unexpected sub-stage in %+v", got)
			}
		})
	}
}

func TestTransition_CycleSubChain(t *testing.T) {
	def := &Definition{ID: "w", Stages: []Stage{
		{ID: "review", Kind: KindCycle, SubStages: []SubStage{
			{ID: "s1", Next: "s2"},
			{ID: "s2", Next: "s3"},
			{ID: "s3"},
		}},
		{ID: "done", Kind: KindTerminal},
	}}
	defs := DefinitionSet{def}

	// Walk the chain: s1 -> s2 -> s3, then wrap back to s1 because the
	// stage declares no exit.
	at := "s1"
	want := []string{"s2", "s3", "s1"}
	for _, next := range want {
		rc := mustResolve(t, defs, Annotation{Workflow: WorkflowID("w"), Stage: SubStageID("review", at)})
		got := Transition(rc)
		if got.SameStage || got.NextStageID != "review" || got.NextSubStageID != next {
			t.Fatalf("at %q: transition = %+v, want sub %q", at, got, next)
		}
		at = next
	}
}

func TestTransition_CycleExit(t *testing.T) {
	def := &Definition{ID: "w", Stages: []Stage{
		{ID: "review", Kind: KindCycle, SubStages: []SubStage{
			{ID: "s1", Next: "s2"},
			{ID: "s2"},
		}, CanProceedTo: IDList{"done"}},
		{ID: "done", Kind: KindTerminal},
	}}
	defs := DefinitionSet{def}

	rc := mustResolve(t, defs, Annotation{Workflow: WorkflowID("w"), Stage: SubStageID("review", "s2")})
	got := Transition(rc)
	if got.SameStage || got.NextStageID != "done" || got.NextSubStageID != "" {
		t.Fatalf("cycle exit = %+v", got)
	}
}

func TestTransition_CycleEdgeCases(t *testing.T) {
	tests := []struct {
		name  string
		stage Stage
		sub   string
		want  TransitionResult
	}{
		{
			name: "dangling sub-stage next falls through to wrap",
			stage: Stage{ID: "c", Kind: KindCycle, SubStages: []SubStage{
				{ID: "s1", Next: "ghost"},
				{ID: "s2"},
			}},
			sub:  "s1",
			want: TransitionResult{NextStageID: "c", NextSubStageID: "s1", SameStage: true},
		},
		{
			name: "single sub-stage wraps onto itself",
			stage: Stage{ID: "c", Kind: KindCycle, SubStages: []SubStage{
				{ID: "only"},
			}},
			sub:  "only",
			want: TransitionResult{NextStageID: "c", NextSubStageID: "only", SameStage: true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			def := &Definition{ID: "w", Stages: []Stage{tt.stage}}
			rc := mustResolve(t, DefinitionSet{def}, Annotation{
				Workflow: WorkflowID("w"),
				Stage:    SubStageID(tt.stage.ID, tt.sub),
			})
			got := Transition(rc)
			if got != tt.want {
				t.Fatalf("transition = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestTransition_SpecScenario(t *testing.T) {
	// W = [A(linear, next=B), B(terminal)].
	def := &Definition{ID: "W", Stages: []Stage{
		{ID: "A", Kind: KindLinear, Next: IDList{"B"}},
		{ID: "B", Kind: KindTerminal},
	}}
	defs := DefinitionSet{def}

	rcA := mustResolve(t, defs, Annotation{Workflow: WorkflowID("W"), Stage: StageID("A")})
	got := Transition(rcA)
	if got.SameStage || got.NextStageID != "B" {
		t.Fatalf("A transition = %+v", got)
	}
	if IsFinal(rcA) {
		t.Fatal("A must not be final")
	}

	rcB := mustResolve(t, defs, Annotation{Workflow: WorkflowID("W"), Stage: StageID("B")})
	if !IsFinal(rcB) {
		t.Fatal("B must be final")
	}
}
