package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/nats-io/nats.go"

	"github.com/c360studio/stageflow/catalog"
	"github.com/c360studio/stageflow/config"
	"github.com/c360studio/stageflow/events"
	"github.com/c360studio/stageflow/workflow"
)

// maxSimulatedHops bounds a simulation walk; cycle stages wrap forever
// by design, so the walk needs a cutoff.
const maxSimulatedHops = 25

// AppOptions configures application construction.
type AppOptions struct {
	// ConfigPath loads a specific config file instead of the layered
	// default chain.
	ConfigPath string

	// Definitions overrides the configured definition glob patterns.
	Definitions []string

	// Logger for application logging.
	Logger *slog.Logger
}

// App wires the catalog, config, and optional event publisher behind
// the CLI commands.
type App struct {
	cfg       *config.Config
	loader    *catalog.Loader
	catalog   *catalog.Catalog
	nc        *nats.Conn
	publisher *events.Publisher
	logger    *slog.Logger
}

// NewApp builds the application from options.
func NewApp(opts AppOptions) (*App, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var cfg *config.Config
	var err error
	if opts.ConfigPath != "" {
		cfg, err = config.LoadFromFile(opts.ConfigPath)
	} else {
		cfg, err = config.NewLoader(logger).Load()
	}
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	if len(opts.Definitions) > 0 {
		cfg.Definitions.Paths = opts.Definitions
	}

	app := &App{
		cfg:     cfg,
		loader:  catalog.NewLoader(logger),
		catalog: catalog.New(),
		logger:  logger,
	}

	defs, err := app.loader.LoadGlob(cfg.Definitions.Paths)
	if err != nil {
		return nil, fmt.Errorf("load definitions: %w", err)
	}
	app.catalog.Replace(defs)
	logger.Debug("Loaded definitions", "count", app.catalog.Len())

	if cfg.Events.Enabled {
		nc, err := nats.Connect(cfg.Events.URL, nats.Name(appName))
		if err != nil {
			// Event publishing is best-effort; commands still work.
			logger.Warn("NATS unavailable, events disabled",
				"url", cfg.Events.URL,
				"error", err)
		} else {
			app.nc = nc
			app.publisher = events.NewPublisher(nc, logger)
		}
	}

	return app, nil
}

// Close releases the NATS connection if one was established. Safe to
// call on an App that never connected.
func (a *App) Close() {
	if a.nc != nil {
		a.nc.Close()
	}
}

// Validate loads each definition file matched by the patterns (the
// configured ones by default) and reports per-file results. It returns
// an error when any file is invalid so scripts get a failing exit code.
func (a *App) Validate(w io.Writer, patterns []string) error {
	if len(patterns) == 0 {
		patterns = a.cfg.Definitions.Paths
	}

	defs, failures, err := a.loader.LoadGlobReport(patterns)
	if err != nil {
		return err
	}

	for _, def := range defs {
		fmt.Fprintf(w, "ok      %s (%d stages)\n", def.ID, len(def.Stages))
	}
	for _, failure := range failures {
		fmt.Fprintf(w, "invalid %s: %v\n", failure.Path, failure.Err)
	}

	if len(failures) > 0 {
		return fmt.Errorf("%d invalid definition file(s)", len(failures))
	}
	return nil
}

// List prints the loaded workflows with their stage sequences.
func (a *App) List(w io.Writer) error {
	defs := a.catalog.List()
	if len(defs) == 0 {
		fmt.Fprintln(w, "no workflows loaded")
		return nil
	}

	for _, def := range defs {
		name := def.Name
		if name == "" {
			name = def.ID
		}
		fmt.Fprintf(w, "%s (%s)\n", name, def.ID)
		for _, stage := range def.Stages {
			fmt.Fprintf(w, "  %-10s %s%s\n", stage.Kind, stage.ID, describeStage(&stage))
		}
	}
	return nil
}

func describeStage(stage *workflow.Stage) string {
	var parts []string
	if len(stage.Next) > 0 {
		parts = append(parts, "next: "+strings.Join(stage.Next, ", "))
	}
	if len(stage.CanProceedTo) > 0 {
		parts = append(parts, "exit: "+strings.Join(stage.CanProceedTo, ", "))
	}
	if len(stage.SubStages) > 0 {
		subs := make([]string, len(stage.SubStages))
		for i, sub := range stage.SubStages {
			subs[i] = sub.ID
		}
		parts = append(parts, "sub: "+strings.Join(subs, " > "))
	}
	if len(parts) == 0 {
		return ""
	}
	return "  [" + strings.Join(parts, "; ") + "]"
}

// Simulate resolves a starting point in the workflow and repeatedly
// applies the transition rules, printing each hop. from is empty for
// the workflow root, or "stage" / "stage.substage".
func (a *App) Simulate(w io.Writer, workflowID, from string) error {
	ctx := context.Background()
	ann := workflow.Annotation{
		Workflow: workflow.WorkflowID(workflowID),
		Stage:    parseFrom(from),
	}

	var records []workflow.TimeRecord
	entered := time.Now()

	for hop := 0; hop < maxSimulatedHops; hop++ {
		rc, err := workflow.Resolve(ann, a.catalog, nil)
		if err != nil {
			return err
		}

		fmt.Fprintf(w, "%2d. %s\n", hop+1, describePosition(rc))

		if a.cfg.Behavior.CumulativeTimeEnabled() && !rc.IsRootTask {
			now := time.Now()
			rec := workflow.StartRecord(rc.Stage.ID, subStageID(rc), entered)
			records = append(records, workflow.CloseRecord(rec, now))
			entered = now
		}

		if workflow.IsFinal(rc) {
			fmt.Fprintln(w, "    workflow complete")
			a.publishCompletion(ctx, rc, records)
			return nil
		}

		res := workflow.Transition(rc)
		a.publishTransition(ctx, rc, res)

		if res.SameStage {
			fmt.Fprintln(w, "    holds in place (no outgoing transition)")
			return nil
		}

		ann.Stage = nextStageRef(rc.Workflow, res)
	}

	fmt.Fprintf(w, "    stopped after %d hops (cycle continues)\n", maxSimulatedHops)
	return nil
}

func (a *App) publishTransition(ctx context.Context, rc *workflow.ResolvedContext, res workflow.TransitionResult) {
	if a.publisher == nil {
		return
	}
	var err error
	if res.SameStage {
		err = a.publisher.StageHeld(ctx, events.NewStageHeld(rc, time.Now()))
	} else {
		err = a.publisher.StageAdvanced(ctx, events.NewStageAdvanced(rc, res, time.Now()))
	}
	if err != nil {
		a.logger.Warn("Failed to publish transition event", "error", err)
	}
}

func (a *App) publishCompletion(ctx context.Context, rc *workflow.ResolvedContext, records []workflow.TimeRecord) {
	if a.publisher == nil {
		return
	}
	if err := a.publisher.WorkflowCompleted(ctx, events.NewWorkflowCompleted(rc, time.Now())); err != nil {
		a.logger.Warn("Failed to publish completion event", "error", err)
	}
	if a.cfg.Behavior.CumulativeTimeEnabled() {
		ev := events.NewTimeAggregated(rc.Workflow.ID, records, time.Now())
		if err := a.publisher.TimeAggregated(ctx, ev); err != nil {
			a.logger.Warn("Failed to publish time event", "error", err)
		}
	}
}

// Watch keeps the catalog in sync with the definition files on disk,
// reloading on every debounced change batch. It blocks until ctx is
// cancelled.
func (a *App) Watch(ctx context.Context) error {
	var dirs []string
	seen := make(map[string]bool)
	for _, pattern := range a.cfg.Definitions.Paths {
		base, _ := doublestar.SplitPattern(pattern)
		if !seen[base] {
			seen[base] = true
			dirs = append(dirs, base)
		}
	}

	watcher, err := catalog.NewWatcher(catalog.WatcherConfig{
		Dirs:          dirs,
		DebounceDelay: a.cfg.Definitions.DebounceDelay,
		Logger:        a.logger,
	})
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Start(ctx); err != nil {
		return fmt.Errorf("start watcher: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events():
			if !ok {
				return nil
			}
			defs, err := a.loader.LoadGlob(a.cfg.Definitions.Paths)
			if err != nil {
				a.logger.Error("Reload failed", "error", err)
				continue
			}
			a.catalog.Replace(defs)
			a.logger.Info("Reloaded definitions",
				"workflows", len(defs),
				"changed_files", len(ev.Paths))
		}
	}
}

// parseFrom interprets the --from flag: empty means the workflow root,
// "stage" or "stage.substage" name a starting position.
func parseFrom(from string) workflow.StageRef {
	if from == "" {
		return workflow.RootStage()
	}
	if stage, sub, ok := strings.Cut(from, "."); ok {
		return workflow.SubStageID(stage, sub)
	}
	return workflow.StageID(from)
}

func describePosition(rc *workflow.ResolvedContext) string {
	if rc.IsRootTask {
		return "root of " + rc.Workflow.ID
	}
	pos := rc.Stage.ID
	if rc.SubStage != nil {
		pos += "." + rc.SubStage.ID
	}
	return fmt.Sprintf("%s (%s)", pos, rc.Stage.Kind)
}

func subStageID(rc *workflow.ResolvedContext) string {
	if rc.SubStage == nil {
		return ""
	}
	return rc.SubStage.ID
}

// nextStageRef converts a transition result into the next hop's stage
// reference. Entering a cycle stage drops into its first sub-stage,
// emulating the document collaborator that creates the first sub-stage
// child task when a cycle stage is entered.
func nextStageRef(def *workflow.Definition, res workflow.TransitionResult) workflow.StageRef {
	if res.NextSubStageID != "" {
		return workflow.SubStageID(res.NextStageID, res.NextSubStageID)
	}
	if sub, ok := def.FirstSubStage(res.NextStageID); ok {
		return workflow.SubStageID(res.NextStageID, sub.ID)
	}
	return workflow.StageID(res.NextStageID)
}
