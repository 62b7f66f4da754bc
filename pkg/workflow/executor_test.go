package workflow

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordHandler appends each executed step id to a shared slice.
func recordHandler(plugin string, executed *[]string) HandlerFunc {
	return HandlerFunc{
		Plugin: plugin,
		Fn: func(ctx context.Context, step StepDefinition, params Params, rc *Context) (StepResult, error) {
			*executed = append(*executed, step.ID)
			return Success(), nil
		},
	}
}

func step(id, plugin string, deps ...string) StepDefinition {
	return StepDefinition{ID: id, Plugin: plugin, DependsOn: deps}
}

func TestExecutorRunsInDependencyOrder(t *testing.T) {
	var executed []string
	registry := NewRegistry()
	registry.Register(recordHandler("test.noop", &executed))

	def := &Definition{Steps: []StepDefinition{
		step("present", "test.noop", "draw"),
		step("draw", "test.noop", "init"),
		step("init", "test.noop"),
	}}

	executor := NewExecutor(registry, nil)
	report, err := executor.Run(context.Background(), def, NewContext())
	require.NoError(t, err)

	assert.Equal(t, []string{"init", "draw", "present"}, executed)
	assert.Equal(t, StateCompleted, executor.State())
	assert.Equal(t, "completed", report.Status)
	assert.Len(t, report.Steps, 3)
	assert.NotEmpty(t, report.RunID)
}

func TestExecutorBreaksTiesByDefinitionOrder(t *testing.T) {
	var executed []string
	registry := NewRegistry()
	registry.Register(recordHandler("test.noop", &executed))

	// b, a, and c are all independent; they must run in definition order.
	def := &Definition{Steps: []StepDefinition{
		step("b", "test.noop"),
		step("a", "test.noop"),
		step("c", "test.noop"),
		step("last", "test.noop", "a", "b", "c"),
	}}

	_, err := NewExecutor(registry, nil).Run(context.Background(), def, NewContext())
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "a", "c", "last"}, executed)
}

func TestExecutorRejectsDuplicateStepIDs(t *testing.T) {
	registry := NewRegistry()
	registry.Register(noopHandler("test.noop"))

	def := &Definition{Steps: []StepDefinition{
		step("dup", "test.noop"),
		step("dup", "test.noop"),
	}}

	report, err := NewExecutor(registry, nil).Run(context.Background(), def, NewContext())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDuplicateStepID)
	assert.Equal(t, "failed", report.Status)
	assert.Equal(t, "dup", report.FailedStepID)
}

func TestExecutorRejectsUnknownPluginNamingTheStep(t *testing.T) {
	registry := NewRegistry()
	registry.Register(noopHandler("test.noop"))

	def := &Definition{Steps: []StepDefinition{
		step("fine", "test.noop"),
		step("broken", "test.missing"),
		step("also_broken", "test.gone"),
	}}

	report, err := NewExecutor(registry, nil).Run(context.Background(), def, NewContext())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownPlugin)
	assert.Equal(t, "broken", report.FailedStepID)
	// Every offending step is named, not just the first.
	assert.Contains(t, err.Error(), "broken")
	assert.Contains(t, err.Error(), "also_broken")
}

func TestExecutorRejectsUnknownDependency(t *testing.T) {
	registry := NewRegistry()
	registry.Register(noopHandler("test.noop"))

	def := &Definition{Steps: []StepDefinition{
		step("a", "test.noop", "ghost"),
	}}

	_, err := NewExecutor(registry, nil).Run(context.Background(), def, NewContext())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownDependency)
}

func TestExecutorDetectsCycleBeforeAnySideEffect(t *testing.T) {
	var executed []string
	registry := NewRegistry()
	registry.Register(recordHandler("test.noop", &executed))

	def := &Definition{Steps: []StepDefinition{
		step("a", "test.noop", "c"),
		step("b", "test.noop", "a"),
		step("c", "test.noop", "b"),
	}}

	report, err := NewExecutor(registry, nil).Run(context.Background(), def, NewContext())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCyclicDependency)
	assert.Empty(t, executed, "no step may run when the graph is cyclic")
	assert.Empty(t, report.Steps)

	// The error names a concrete cycle path.
	assert.Contains(t, err.Error(), "->")
}

func TestExecutorRejectsEmptyDefinition(t *testing.T) {
	registry := NewRegistry()

	_, err := NewExecutor(registry, nil).Run(context.Background(), nil, NewContext())
	assert.ErrorIs(t, err, ErrInvalidDefinition)

	_, err = NewExecutor(registry, nil).Run(context.Background(), &Definition{}, NewContext())
	assert.ErrorIs(t, err, ErrInvalidDefinition)
}

func TestExecutorHaltsOnErroredStep(t *testing.T) {
	var executed []string
	registry := NewRegistry()
	registry.Register(recordHandler("test.noop", &executed))
	registry.Register(HandlerFunc{
		Plugin: "test.fail",
		Fn: func(ctx context.Context, step StepDefinition, params Params, rc *Context) (StepResult, error) {
			return Errored("pixel check below minimum"), nil
		},
	})

	def := &Definition{Steps: []StepDefinition{
		step("first", "test.noop"),
		step("check", "test.fail", "first"),
		step("after", "test.noop", "check"),
	}}

	executor := NewExecutor(registry, nil)
	report, err := executor.Run(context.Background(), def, NewContext())
	require.Error(t, err)
	assert.Equal(t, StateFailed, executor.State())
	assert.Equal(t, "check", report.FailedStepID)
	assert.Contains(t, report.FailureReason, "pixel check below minimum")
	assert.Equal(t, []string{"first"}, executed, "steps after the failure must not run")

	require.Len(t, report.Steps, 2)
	assert.Equal(t, "success", report.Steps[0].Status)
	assert.Equal(t, "failed", report.Steps[1].Status)
}

func TestExecutorHaltsOnHandlerError(t *testing.T) {
	registry := NewRegistry()
	sentinel := errors.New("host unavailable")
	registry.Register(HandlerFunc{
		Plugin: "test.err",
		Fn: func(ctx context.Context, step StepDefinition, params Params, rc *Context) (StepResult, error) {
			return StepResult{}, sentinel
		},
	})

	def := &Definition{Steps: []StepDefinition{step("boom", "test.err")}}

	report, err := NewExecutor(registry, nil).Run(context.Background(), def, NewContext())
	require.Error(t, err)
	assert.ErrorIs(t, err, sentinel)
	assert.Equal(t, "boom", report.FailedStepID)
}

func TestExecutorExitStopsRunWithoutError(t *testing.T) {
	var executed []string
	registry := NewRegistry()
	registry.Register(recordHandler("test.noop", &executed))
	registry.Register(HandlerFunc{
		Plugin: "test.exit",
		Fn: func(ctx context.Context, step StepDefinition, params Params, rc *Context) (StepResult, error) {
			return Exited(3, "done early"), nil
		},
	})

	def := &Definition{Steps: []StepDefinition{
		step("first", "test.noop"),
		step("leave", "test.exit", "first"),
		step("never", "test.noop", "leave"),
	}}

	executor := NewExecutor(registry, nil)
	report, err := executor.Run(context.Background(), def, NewContext())
	require.NoError(t, err, "an exit is a deliberate outcome, not a failure")
	assert.Equal(t, StateExited, executor.State())
	assert.Equal(t, "exited", report.Status)
	assert.Equal(t, 3, report.ExitCode)
	assert.Equal(t, []string{"first"}, executed)

	require.Len(t, report.Steps, 2)
	assert.Equal(t, "exited", report.Steps[1].Status)
	assert.Equal(t, "done early", report.Steps[1].Message)
}

func TestExecutorPrevalidatesVariableTokens(t *testing.T) {
	var executed []string
	registry := NewRegistry()
	registry.Register(recordHandler("test.noop", &executed))

	// A variables-namespace token naming an undeclared variable fails in the
	// pre-flight pass, before any handler runs.
	def := &Definition{Steps: []StepDefinition{
		step("first", "test.noop"),
		{ID: "s1", Plugin: "test.noop", DependsOn: []string{"first"}, Parameters: map[string]Value{
			"w": Text("${variables.missing}"),
		}},
	}}

	report, err := NewExecutor(registry, nil).Run(context.Background(), def, NewContext())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnresolvedVariable)
	assert.Equal(t, "s1", report.FailedStepID)
	assert.Empty(t, executed)
}

func TestExecutorFailsOnUnresolvedContextToken(t *testing.T) {
	registry := NewRegistry()
	registry.Register(noopHandler("test.noop"))

	// Context tokens pass pre-flight and fail at the step's turn when the
	// key was never written.
	def := &Definition{Steps: []StepDefinition{
		{ID: "s1", Plugin: "test.noop", Parameters: map[string]Value{
			"w": Text("${context.missing}"),
		}},
	}}

	report, err := NewExecutor(registry, nil).Run(context.Background(), def, NewContext())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnresolvedVariable)
	assert.Equal(t, "s1", report.FailedStepID)
	require.Len(t, report.Steps, 1)
	assert.Equal(t, "failed", report.Steps[0].Status)
}

func TestExecutorResolvesParametersFreshPerStep(t *testing.T) {
	registry := NewRegistry()
	registry.Register(HandlerFunc{
		Plugin: "test.set",
		Fn: func(ctx context.Context, step StepDefinition, params Params, rc *Context) (StepResult, error) {
			rc.Set("produced", Number(42))
			return Success(), nil
		},
	})
	var got float64
	registry.Register(HandlerFunc{
		Plugin: "test.read",
		Fn: func(ctx context.Context, step StepDefinition, params Params, rc *Context) (StepResult, error) {
			got = params.Number("in", -1)
			return Success(), nil
		},
	})

	// The second step's token resolves against context written by the first.
	def := &Definition{Steps: []StepDefinition{
		step("produce", "test.set"),
		{ID: "consume", Plugin: "test.read", DependsOn: []string{"produce"},
			Parameters: map[string]Value{"in": Text("${context.produced}")}},
	}}

	_, err := NewExecutor(registry, nil).Run(context.Background(), def, NewContext())
	require.NoError(t, err)
	assert.Equal(t, 42.0, got)
}
