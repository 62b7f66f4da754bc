package workflow

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Executor walks a definition in dependency order, resolves each step's
// parameters, dispatches to the registered handler, and records outcomes.
//
// Scheduling is single-threaded and cooperative: steps run to completion
// synchronously with no preemption, because several step types drive a
// graphics host that is only valid from one designated thread. A definition
// re-run against the same seed context produces the same step order and,
// for pure steps, the same context at every point.
type Executor struct {
	registry *Registry
	logger   *zap.Logger
	state    State
}

// NewExecutor creates an executor over the given registry. A nil logger
// falls back to a no-op logger.
func NewExecutor(registry *Registry, logger *zap.Logger) *Executor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Executor{registry: registry, logger: logger, state: StateIdle}
}

// State returns the executor's current lifecycle state.
func (e *Executor) State() State {
	return e.state
}

// Run executes the definition against the given run context. The context
// must not be shared with any other run. The returned report always carries
// the terminal state; the error is non-nil for validation failures and step
// failures, nil for Completed and Exited runs.
func (e *Executor) Run(ctx context.Context, def *Definition, rc *Context) (*RunReport, error) {
	report := &RunReport{RunID: uuid.NewString()}

	e.state = StateValidating
	order, err := e.validate(def)
	if err != nil {
		e.state = StateFailed
		report.State = StateFailed
		report.Status = StateFailed.String()
		report.FailureReason = err.Error()
		if engineErr, ok := err.(*Error); ok {
			report.FailedStepID = engineErr.StepID
		}
		e.logger.Error("workflow validation failed",
			zap.String("runID", report.RunID),
			zap.Error(err))
		return report, err
	}

	e.state = StateRunning
	e.logger.Info("workflow run started",
		zap.String("runID", report.RunID),
		zap.Int("steps", len(order)))

	resolver := NewResolver(def, rc)

	for _, idx := range order {
		step := def.Steps[idx]
		start := time.Now()

		params, err := resolver.ResolveParams(step)
		if err != nil {
			return e.fail(report, step, err, time.Since(start))
		}

		result, err := e.registry.Dispatch(ctx, step, params, rc)
		if err != nil {
			return e.fail(report, step, err, time.Since(start))
		}

		switch result.Kind {
		case ResultErrored:
			return e.fail(report, step, fmt.Errorf("step reported failure: %s", result.Message), time.Since(start))

		case ResultExited:
			report.Steps = append(report.Steps, StepRecord{
				StepID:   step.ID,
				Plugin:   step.Plugin,
				Status:   "exited",
				Message:  result.Message,
				Duration: time.Since(start),
			})
			e.state = StateExited
			report.State = StateExited
			report.Status = StateExited.String()
			report.ExitCode = result.ExitCode
			e.logger.Info("workflow run exited",
				zap.String("runID", report.RunID),
				zap.String("stepID", step.ID),
				zap.Int("exitCode", result.ExitCode),
				zap.String("message", result.Message))
			return report, nil

		default:
			report.Steps = append(report.Steps, StepRecord{
				StepID:   step.ID,
				Plugin:   step.Plugin,
				Status:   "success",
				Message:  result.Message,
				Duration: time.Since(start),
			})
			e.logger.Debug("step completed",
				zap.String("runID", report.RunID),
				zap.String("stepID", step.ID),
				zap.String("plugin", step.Plugin),
				zap.Duration("duration", time.Since(start)))
		}
	}

	e.state = StateCompleted
	report.State = StateCompleted
	report.Status = StateCompleted.String()
	e.logger.Info("workflow run completed",
		zap.String("runID", report.RunID),
		zap.Int("steps", len(report.Steps)))
	return report, nil
}

func (e *Executor) fail(report *RunReport, step StepDefinition, err error, elapsed time.Duration) (*RunReport, error) {
	report.Steps = append(report.Steps, StepRecord{
		StepID:   step.ID,
		Plugin:   step.Plugin,
		Status:   "failed",
		Message:  err.Error(),
		Duration: elapsed,
	})
	e.state = StateFailed
	report.State = StateFailed
	report.Status = StateFailed.String()
	report.FailedStepID = step.ID
	report.FailureReason = err.Error()
	e.logger.Error("workflow run failed",
		zap.String("runID", report.RunID),
		zap.String("stepID", step.ID),
		zap.String("plugin", step.Plugin),
		zap.Error(err))
	return report, err
}

// validate performs the pre-flight pass: unique ids, resolvable dependency
// ids, an acyclic dependency relation, a registered handler for every
// plugin name, and well-formed parameter tokens whose variables-namespace
// keys exist. Any violation prevents every step from running, so a
// definition with one bad step name fails before partial side effects.
// On success it returns the execution order: a topological sort with ties
// between independent steps broken by definition order.
func (e *Executor) validate(def *Definition) ([]int, error) {
	if def == nil || len(def.Steps) == 0 {
		return nil, NewError("VALIDATE", "", "definition has no steps", ErrInvalidDefinition)
	}

	index := make(map[string]int, len(def.Steps))
	for i, step := range def.Steps {
		if step.ID == "" {
			return nil, NewError("VALIDATE", "", fmt.Sprintf("step %d has an empty id", i), ErrInvalidDefinition)
		}
		if _, dup := index[step.ID]; dup {
			return nil, NewError("VALIDATE", step.ID, "id used by more than one step", ErrDuplicateStepID)
		}
		index[step.ID] = i
	}

	// Plugin names are checked as a batch so every bad step is named at once.
	var unknown []string
	for _, step := range def.Steps {
		if !e.registry.HasHandler(step.Plugin) {
			unknown = append(unknown, fmt.Sprintf("step %q (plugin %q)", step.ID, step.Plugin))
		}
	}
	if len(unknown) > 0 {
		return nil, NewError("VALIDATE", firstStepID(def, e.registry), strings.Join(unknown, ", "), ErrUnknownPlugin)
	}

	indegree := make([]int, len(def.Steps))
	dependents := make([][]int, len(def.Steps))
	for i, step := range def.Steps {
		for _, dep := range step.DependsOn {
			j, ok := index[dep]
			if !ok {
				return nil, NewError("VALIDATE", step.ID, "depends on unknown step "+dep, ErrUnknownDependency)
			}
			indegree[i]++
			dependents[j] = append(dependents[j], i)
		}
	}

	// Kahn's algorithm with a sorted ready list keeps ties in definition
	// order, which makes the execution order deterministic.
	var ready []int
	for i, d := range indegree {
		if d == 0 {
			ready = append(ready, i)
		}
	}
	sort.Ints(ready)

	order := make([]int, 0, len(def.Steps))
	for len(ready) > 0 {
		i := ready[0]
		ready = ready[1:]
		order = append(order, i)
		for _, j := range dependents[i] {
			indegree[j]--
			if indegree[j] == 0 {
				ready = insertSorted(ready, j)
			}
		}
	}

	if len(order) != len(def.Steps) {
		witness := cycleWitness(def, index)
		return nil, NewError("VALIDATE", "", "dependency cycle: "+strings.Join(witness, " -> "), ErrCyclicDependency)
	}

	// Variable-table references are checkable before anything runs; context
	// references are not, since entries appear as steps execute.
	if err := checkVariableTokens(def); err != nil {
		return nil, err
	}

	return order, nil
}

func insertSorted(list []int, v int) []int {
	pos := sort.SearchInts(list, v)
	list = append(list, 0)
	copy(list[pos+1:], list[pos:])
	list[pos] = v
	return list
}

// cycleWitness extracts one deterministic cycle path for error reporting.
// It walks steps in definition order with a three-color DFS and returns the
// first back-edge cycle it finds.
func cycleWitness(def *Definition, index map[string]int) []string {
	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make([]int, len(def.Steps))
	var stack []int
	var cycle []int

	var visit func(i int) bool
	visit = func(i int) bool {
		color[i] = gray
		stack = append(stack, i)
		for _, dep := range def.Steps[i].DependsOn {
			j := index[dep]
			if color[j] == gray {
				// Found a back edge; slice the stack from j onward.
				for k, s := range stack {
					if s == j {
						cycle = append(cycle, stack[k:]...)
						cycle = append(cycle, j)
						return true
					}
				}
			}
			if color[j] == white && visit(j) {
				return true
			}
		}
		stack = stack[:len(stack)-1]
		color[i] = black
		return false
	}

	for i := range def.Steps {
		if color[i] == white && visit(i) {
			break
		}
	}

	names := make([]string, len(cycle))
	for i, s := range cycle {
		names[i] = def.Steps[s].ID
	}
	return names
}

// firstStepID returns the id of the first step whose plugin is unregistered.
func firstStepID(def *Definition, registry *Registry) string {
	for _, step := range def.Steps {
		if !registry.HasHandler(step.Plugin) {
			return step.ID
		}
	}
	return ""
}
