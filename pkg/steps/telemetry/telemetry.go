// Package telemetry provides the step that publishes run events onto the
// notification bus.
package telemetry

import (
	"context"

	"github.com/lumenworks/prism/pkg/events"
	"github.com/lumenworks/prism/pkg/workflow"
)

// PublishStep pushes an event onto the bus.
//
// Parameters: "event" (required type tag), "payload" (optional, any value),
// "deferred" (default false; true enqueues for the next ProcessQueue
// instead of dispatching immediately).
type PublishStep struct {
	bus *events.Bus
}

// NewPublishStep creates the telemetry.publish handler.
func NewPublishStep(bus *events.Bus) *PublishStep {
	return &PublishStep{bus: bus}
}

func (s *PublishStep) PluginType() string { return "telemetry.publish" }

func (s *PublishStep) Execute(_ context.Context, step workflow.StepDefinition, params workflow.Params, _ *workflow.Context) (workflow.StepResult, error) {
	eventType, err := params.RequireText(step.ID, "event")
	if err != nil {
		return workflow.StepResult{}, err
	}

	var payload interface{}
	if v, ok := params.Get("payload"); ok {
		payload = v
	}

	event := events.Event{Type: eventType, Payload: payload}
	if params.Bool("deferred", false) {
		s.bus.PublishAsync(event)
	} else {
		s.bus.Publish(event)
	}
	return workflow.Success(), nil
}
