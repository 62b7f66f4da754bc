// Package vars provides steps that move values in and out of the shared
// run context.
package vars

import (
	"context"
	"fmt"

	"github.com/lumenworks/prism/pkg/workflow"
)

// SetStep writes a value into the context under "key".
type SetStep struct{}

// NewSetStep creates the var.set handler.
func NewSetStep() *SetStep { return &SetStep{} }

func (s *SetStep) PluginType() string { return "var.set" }

func (s *SetStep) Execute(_ context.Context, step workflow.StepDefinition, params workflow.Params, rc *workflow.Context) (workflow.StepResult, error) {
	key, err := params.RequireText(step.ID, "key")
	if err != nil {
		return workflow.StepResult{}, err
	}
	value, ok := params.Get("value")
	if !ok {
		return workflow.StepResult{}, workflow.NewError("MISSING_PARAMETER", step.ID, "parameter value", workflow.ErrMissingParameter)
	}
	rc.Set(key, value)
	return workflow.Success(), nil
}

// GetStep copies the context entry named by "key" to the key named by
// "target". A missing source falls back to the "default" parameter; with
// no default, the step fails.
type GetStep struct{}

// NewGetStep creates the var.get handler.
func NewGetStep() *GetStep { return &GetStep{} }

func (s *GetStep) PluginType() string { return "var.get" }

func (s *GetStep) Execute(_ context.Context, step workflow.StepDefinition, params workflow.Params, rc *workflow.Context) (workflow.StepResult, error) {
	key, err := params.RequireText(step.ID, "key")
	if err != nil {
		return workflow.StepResult{}, err
	}
	target := params.Text("target", key)

	if v, ok := rc.Get(key); ok {
		rc.Set(target, v)
		return workflow.Success(), nil
	}
	if def, ok := params.Get("default"); ok {
		rc.Set(target, def)
		return workflow.Success(), nil
	}
	return workflow.Errored(fmt.Sprintf("context key %q not set and no default given", key)), nil
}

// DeleteStep removes the context entry named by "key". Deleting an absent
// key succeeds.
type DeleteStep struct{}

// NewDeleteStep creates the var.delete handler.
func NewDeleteStep() *DeleteStep { return &DeleteStep{} }

func (s *DeleteStep) PluginType() string { return "var.delete" }

func (s *DeleteStep) Execute(_ context.Context, step workflow.StepDefinition, params workflow.Params, rc *workflow.Context) (workflow.StepResult, error) {
	key, err := params.RequireText(step.ID, "key")
	if err != nil {
		return workflow.StepResult{}, err
	}
	rc.Remove(key)
	return workflow.Success(), nil
}
