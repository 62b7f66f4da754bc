// Package system provides run-control step handlers.
package system

import (
	"context"

	"go.uber.org/zap"

	"github.com/lumenworks/prism/pkg/workflow"
)

// ExitStep is the terminal step type. It is the only step permitted to end
// a run early: it inspects the context and hands the executor an Exited
// result carrying the chosen status code.
//
// Parameters: either an unconditional "status_code" (default 0), or a
// triple of "condition" (a context key naming a boolean), "code_on_true"
// (default 0) and "code_on_false" (default 1). A missing or non-boolean
// condition value counts as false. An optional "message" is diagnostic
// only and never affects control flow.
type ExitStep struct {
	logger *zap.Logger
}

// NewExitStep creates the exit step handler.
func NewExitStep(logger *zap.Logger) *ExitStep {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExitStep{logger: logger}
}

// PluginType returns the plugin name this handler serves.
func (s *ExitStep) PluginType() string { return "system.exit" }

// Execute selects the termination code and reports it to the executor.
func (s *ExitStep) Execute(_ context.Context, step workflow.StepDefinition, params workflow.Params, rc *workflow.Context) (workflow.StepResult, error) {
	message := params.Text("message", "")

	if conditionKey, ok := params.Get("condition"); ok {
		key := conditionKey.AsText()
		condition := false
		if v, present := rc.Get(key); present && v.Kind() == workflow.KindBool {
			condition = v.AsBool()
		}

		code := int(params.Number("code_on_false", 1))
		if condition {
			code = int(params.Number("code_on_true", 0))
		}

		s.logger.Info("exit step evaluated condition",
			zap.String("stepID", step.ID),
			zap.String("condition", key),
			zap.Bool("value", condition),
			zap.Int("code", code))
		return workflow.Exited(code, message), nil
	}

	code := int(params.Number("status_code", 0))
	s.logger.Info("exit step selected status code",
		zap.String("stepID", step.ID),
		zap.Int("code", code))
	return workflow.Exited(code, message), nil
}
