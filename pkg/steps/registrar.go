// Package steps wires the built-in step handlers into a registry.
package steps

import (
	"go.uber.org/zap"

	"github.com/lumenworks/prism/pkg/events"
	"github.com/lumenworks/prism/pkg/steps/graphics"
	"github.com/lumenworks/prism/pkg/steps/system"
	"github.com/lumenworks/prism/pkg/steps/telemetry"
	"github.com/lumenworks/prism/pkg/steps/validation"
	"github.com/lumenworks/prism/pkg/steps/vars"
	"github.com/lumenworks/prism/pkg/workflow"
)

// Options carries the collaborators the built-in steps need.
type Options struct {
	// Logger is shared by all handlers; nil means no logging.
	Logger *zap.Logger
	// Host is the graphics subsystem boundary. When nil the graphics step
	// family is not registered.
	Host graphics.Host
	// Bus is the telemetry notifier. When nil the telemetry step family is
	// not registered.
	Bus *events.Bus
}

// RegisterDefaults registers every built-in step family on the registry.
func RegisterDefaults(registry *workflow.Registry, opts Options) {
	registry.Register(system.NewExitStep(opts.Logger))

	registry.Register(vars.NewSetStep())
	registry.Register(vars.NewGetStep())
	registry.Register(vars.NewDeleteStep())

	registry.Register(validation.NewHasColorsStep(opts.Logger))
	registry.Register(validation.NewNotEmptyStep(opts.Logger))
	registry.Register(validation.NewDimensionsStep())
	registry.Register(validation.NewColorPresentStep())

	if opts.Host != nil {
		registry.Register(graphics.NewInitStep(opts.Host, opts.Logger))
		registry.Register(graphics.NewFrameBeginStep(opts.Host))
		registry.Register(graphics.NewFrameEndStep(opts.Host))
		registry.Register(graphics.NewScreenshotStep(opts.Host, opts.Logger))
	}

	if opts.Bus != nil {
		registry.Register(telemetry.NewPublishStep(opts.Bus))
	}
}
