// Package workflow provides the Stageflow engine: resolution of task
// annotations against workflow definitions, stage transition rules,
// terminality evaluation, and per-stage time accounting.
//
// The engine is a pure computation library. Definitions are read-only
// inputs, every operation is a total or error-returning pure function,
// and all per-task state is owned by the caller. How annotations are
// spelled inside task text, and how transitions are written back into a
// document, are collaborator concerns outside this package.
package workflow

import (
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"
)

// StageKind classifies how a stage behaves when a task at that stage
// completes.
type StageKind string

const (
	// KindLinear is a stage with a single successor, resolved from its
	// explicit links or its position in the definition.
	KindLinear StageKind = "linear"
	// KindCycle is a repeatable stage that may contain a chain of
	// sub-stages which loop until an explicit exit is taken.
	KindCycle StageKind = "cycle"
	// KindTerminal is an end state. Terminal stages never advance.
	KindTerminal StageKind = "terminal"
	// KindRoot marks the synthetic root stage constructed at resolution
	// time for tasks that declare workflow membership without being at
	// any named stage. It is never valid in an authored definition.
	KindRoot StageKind = "root"
)

// String returns the string representation of the kind.
func (k StageKind) String() string {
	return string(k)
}

// IsValid returns true if the kind may appear in an authored definition.
// KindRoot is internal to the resolver and is deliberately excluded.
func (k StageKind) IsValid() bool {
	switch k {
	case KindLinear, KindCycle, KindTerminal:
		return true
	default:
		return false
	}
}

// IDList is an ordered list of stage ids that unmarshals from either a
// single YAML scalar or a sequence, so simple definitions can write
// `next: review` instead of `next: [review]`.
type IDList []string

// UnmarshalYAML implements yaml.Unmarshaler.
func (l *IDList) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		var id string
		if err := value.Decode(&id); err != nil {
			return err
		}
		*l = IDList{id}
		return nil
	case yaml.SequenceNode:
		var ids []string
		if err := value.Decode(&ids); err != nil {
			return err
		}
		*l = IDList(ids)
		return nil
	default:
		return fmt.Errorf("line %d: expected id or list of ids", value.Line)
	}
}

// SubStage is a finer-grained step nested within a Cycle stage. Sub-stages
// form an optional chain via Next; the last sub-stage in a chain leaves
// Next empty.
type SubStage struct {
	// ID identifies the sub-stage within its parent stage.
	ID string `yaml:"id" json:"id"`

	// Name is the human-readable label.
	Name string `yaml:"name,omitempty" json:"name,omitempty"`

	// Next is the id of the following sub-stage in the same parent
	// stage, or empty at the end of the chain.
	Next string `yaml:"next,omitempty" json:"next,omitempty"`
}

// Stage is one step of a workflow.
type Stage struct {
	// ID identifies the stage within its definition.
	ID string `yaml:"id" json:"id"`

	// Name is the human-readable label.
	Name string `yaml:"name,omitempty" json:"name,omitempty"`

	// Kind selects the transition behavior. Loaders treat an empty kind
	// as linear; the engine treats any unrecognized non-terminal kind
	// the same way.
	Kind StageKind `yaml:"kind,omitempty" json:"kind,omitempty"`

	// Next lists explicit successor ids, in priority order. Used by
	// linear stages; the first resolvable entry wins.
	Next IDList `yaml:"next,omitempty" json:"next,omitempty"`

	// CanProceedTo is an explicit fan-out usable by any non-terminal
	// kind. For a cycle stage it is the exit taken once the sub-stage
	// chain is exhausted.
	CanProceedTo IDList `yaml:"can_proceed_to,omitempty" json:"can_proceed_to,omitempty"`

	// SubStages is the ordered sub-cycle chain. Meaningful only when
	// Kind is cycle.
	SubStages []SubStage `yaml:"sub_stages,omitempty" json:"sub_stages,omitempty"`
}

// SubStageByID returns the sub-stage with the given id, if present.
func (s *Stage) SubStageByID(id string) (*SubStage, bool) {
	for i := range s.SubStages {
		if s.SubStages[i].ID == id {
			return &s.SubStages[i], true
		}
	}
	return nil, false
}

// Definition is an immutable workflow definition: a named, ordered set of
// stages a task can progress through. Definitions are loaded once from
// configuration and treated as read-only by the engine.
type Definition struct {
	// ID identifies the workflow; annotations reference it.
	ID string `yaml:"id" json:"id"`

	// Name is the human-readable title.
	Name string `yaml:"name,omitempty" json:"name,omitempty"`

	// Stages is the canonical ordered stage sequence.
	Stages []Stage `yaml:"stages" json:"stages"`
}

// StageByID returns the stage with the given id, if present.
func (d *Definition) StageByID(id string) (*Stage, bool) {
	for i := range d.Stages {
		if d.Stages[i].ID == id {
			return &d.Stages[i], true
		}
	}
	return nil, false
}

// StageIndex returns the position of the stage with the given id in the
// canonical ordering, or -1 if absent.
func (d *Definition) StageIndex(id string) int {
	for i := range d.Stages {
		if d.Stages[i].ID == id {
			return i
		}
	}
	return -1
}

// FirstSubStage returns the first sub-stage of the stage with the given
// id. Callers generating the initial child task when a cycle stage is
// entered use this to pick the starting sub-stage.
func (d *Definition) FirstSubStage(stageID string) (*SubStage, bool) {
	stage, ok := d.StageByID(stageID)
	if !ok || len(stage.SubStages) == 0 {
		return nil, false
	}
	return &stage.SubStages[0], true
}

// Validate checks the structural invariants of an authored definition:
// a non-empty id, at least one stage, unique stage ids, valid kinds,
// unique sub-stage ids per stage, and sub-stage links that stay within
// their parent stage. Dangling Next/CanProceedTo stage references are
// reported here as authoring mistakes, although the engine degrades them
// to "no such transition" at runtime rather than failing.
func (d *Definition) Validate() error {
	var errs []error

	if d.ID == "" {
		errs = append(errs, errors.New("workflow id is required"))
	}
	if len(d.Stages) == 0 {
		errs = append(errs, errors.New("workflow must define at least one stage"))
	}

	seen := make(map[string]bool, len(d.Stages))
	for i := range d.Stages {
		stage := &d.Stages[i]
		if stage.ID == "" {
			errs = append(errs, fmt.Errorf("stage %d: id is required", i))
			continue
		}
		if seen[stage.ID] {
			errs = append(errs, fmt.Errorf("stage %q: duplicate id", stage.ID))
		}
		seen[stage.ID] = true

		if stage.Kind != "" && !stage.Kind.IsValid() {
			errs = append(errs, fmt.Errorf("stage %q: invalid kind %q", stage.ID, stage.Kind))
		}
		if stage.Kind == KindTerminal && (len(stage.Next) > 0 || len(stage.CanProceedTo) > 0) {
			// Terminal always wins at runtime; flag the contradiction.
			errs = append(errs, fmt.Errorf("stage %q: terminal stage must not declare successors", stage.ID))
		}
		if len(stage.SubStages) > 0 && stage.Kind != KindCycle {
			errs = append(errs, fmt.Errorf("stage %q: sub_stages require kind cycle", stage.ID))
		}

		errs = append(errs, d.validateSubStages(stage)...)
	}

	// Dangling cross-stage references, checked after all ids are known.
	for i := range d.Stages {
		stage := &d.Stages[i]
		for _, id := range stage.Next {
			if !seen[id] {
				errs = append(errs, fmt.Errorf("stage %q: next references unknown stage %q", stage.ID, id))
			}
		}
		for _, id := range stage.CanProceedTo {
			if !seen[id] {
				errs = append(errs, fmt.Errorf("stage %q: can_proceed_to references unknown stage %q", stage.ID, id))
			}
		}
	}

	return errors.Join(errs...)
}

func (d *Definition) validateSubStages(stage *Stage) []error {
	var errs []error

	seen := make(map[string]bool, len(stage.SubStages))
	for j := range stage.SubStages {
		sub := &stage.SubStages[j]
		if sub.ID == "" {
			errs = append(errs, fmt.Errorf("stage %q: sub-stage %d: id is required", stage.ID, j))
			continue
		}
		if seen[sub.ID] {
			errs = append(errs, fmt.Errorf("stage %q: sub-stage %q: duplicate id", stage.ID, sub.ID))
		}
		seen[sub.ID] = true
	}
	for j := range stage.SubStages {
		sub := &stage.SubStages[j]
		if sub.Next != "" && !seen[sub.Next] {
			errs = append(errs, fmt.Errorf("stage %q: sub-stage %q: next references unknown sub-stage %q", stage.ID, sub.ID, sub.Next))
		}
	}

	return errs
}

// rootStage builds the synthetic root stage for a definition. It exists
// only inside a ResolvedContext; it is never stored in Stages and cannot
// collide with an authored stage because it is identified by kind, not
// by a reserved id string.
func rootStage() *Stage {
	return &Stage{Kind: KindRoot}
}
