package workflow

import (
	"errors"
	"testing"
)

func testDefinitions() DefinitionSet {
	return DefinitionSet{
		&Definition{ID: "writing", Name: "Writing", Stages: []Stage{
			{ID: "draft", Kind: KindLinear, Next: IDList{"review"}},
			{ID: "review", Kind: KindCycle, SubStages: []SubStage{
				{ID: "read", Next: "annotate"},
				{ID: "annotate"},
			}, CanProceedTo: IDList{"done"}},
			{ID: "done", Kind: KindTerminal},
		}},
		&Definition{ID: "empty"},
	}
}

func TestResolve_RootAnnotation(t *testing.T) {
	rc, err := Resolve(Annotation{
		Workflow: WorkflowID("writing"),
		Stage:    RootStage(),
	}, testDefinitions(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !rc.IsRootTask {
		t.Fatal("expected IsRootTask")
	}
	if rc.Stage.Kind != KindRoot {
		t.Fatalf("root stage kind = %q", rc.Stage.Kind)
	}
	if rc.SubStage != nil {
		t.Fatal("root context must not carry a sub-stage")
	}
	if rc.Workflow.ID != "writing" {
		t.Fatalf("workflow = %q", rc.Workflow.ID)
	}

	// Bare membership without a stage marker resolves to the root too.
	bare, err := Resolve(Annotation{Workflow: WorkflowID("writing")}, testDefinitions(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !bare.IsRootTask {
		t.Fatal("expected IsRootTask for bare membership")
	}
}

func TestResolve_StageAndSubStage(t *testing.T) {
	rc, err := Resolve(Annotation{
		Workflow: WorkflowID("writing"),
		Stage:    SubStageID("review", "annotate"),
	}, testDefinitions(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rc.IsRootTask {
		t.Fatal("unexpected IsRootTask")
	}
	if rc.Stage.ID != "review" || rc.SubStage == nil || rc.SubStage.ID != "annotate" {
		t.Fatalf("resolved %q/%v", rc.Stage.ID, rc.SubStage)
	}
}

func TestResolve_Inherit(t *testing.T) {
	defs := testDefinitions()

	rc, err := Resolve(Annotation{
		Workflow: InheritWorkflow(),
		Stage:    StageID("draft"),
	}, defs, func() (string, bool) { return "writing", true })
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rc.Workflow.ID != "writing" {
		t.Fatalf("workflow = %q", rc.Workflow.ID)
	}

	_, err = Resolve(Annotation{
		Workflow: InheritWorkflow(),
		Stage:    StageID("draft"),
	}, defs, func() (string, bool) { return "", false })
	if !errors.Is(err, ErrNoParentWorkflow) {
		t.Fatalf("expected ErrNoParentWorkflow, got %v", err)
	}

	_, err = Resolve(Annotation{
		Workflow: InheritWorkflow(),
		Stage:    StageID("draft"),
	}, defs, nil)
	if !errors.Is(err, ErrNoParentWorkflow) {
		t.Fatalf("expected ErrNoParentWorkflow with nil lookup, got %v", err)
	}
}

func TestResolve_Errors(t *testing.T) {
	defs := testDefinitions()

	tests := []struct {
		name string
		ann  Annotation
		want error
	}{
		{
			name: "unknown workflow",
			ann:  Annotation{Workflow: WorkflowID("ghost"), Stage: RootStage()},
			want: ErrUnknownWorkflow,
		},
		{
			name: "unknown stage",
			ann:  Annotation{Workflow: WorkflowID("writing"), Stage: StageID("ghost")},
			want: ErrUnknownStage,
		},
		{
			name: "unknown sub-stage",
			ann:  Annotation{Workflow: WorkflowID("writing"), Stage: SubStageID("review", "ghost")},
			want: ErrUnknownSubStage,
		},
		{
			name: "sub-stage on stage without sub-stages",
			ann:  Annotation{Workflow: WorkflowID("writing"), Stage: SubStageID("draft", "read")},
			want: ErrUnknownSubStage,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rc, err := Resolve(tt.ann, defs, nil)
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
			if rc != nil {
				t.Fatal("expected nil context on failure")
			}
		})
	}
}

func TestResolve_IsPure(t *testing.T) {
	defs := testDefinitions()
	ann := Annotation{Workflow: WorkflowID("writing"), Stage: SubStageID("review", "read")}

	first, err := Resolve(ann, defs, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := Resolve(ann, defs, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first.Stage != second.Stage || first.SubStage != second.SubStage || first.Workflow != second.Workflow {
		t.Fatal("identical inputs must resolve to identical outputs")
	}
}
