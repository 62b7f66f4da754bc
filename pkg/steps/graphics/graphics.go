// Package graphics provides steps that drive the rendering host. The host
// itself (window/surface creation, shader loading, draw submission) is an
// external collaborator behind the Host interface; these steps only call
// across that boundary and record outcomes in the run context.
//
// All graphics calls must happen on the one thread the host designates,
// which is why the executor runs steps strictly sequentially.
package graphics

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/lumenworks/prism/pkg/workflow"
)

// Context keys written by the graphics steps.
const (
	ContextKeyInitialized    = "graphics.initialized"
	ContextKeyScreenshotPath = "graphics.screenshot_path"
	ContextKeyFrameCount     = "graphics.frame_count"
)

// Host is the boundary to the graphics subsystem.
type Host interface {
	// Init creates the window/surface and device resources.
	Init(width, height int, title string) error
	// BeginFrame opens a frame for draw submission.
	BeginFrame() error
	// EndFrame submits and presents the frame.
	EndFrame() error
	// CaptureScreenshot writes the current framebuffer to path.
	CaptureScreenshot(path string) error
}

// InitStep initializes the graphics host.
//
// Parameters: "width" (default 800), "height" (default 600), "title"
// (default "prism"). Sets graphics.initialized in the context.
type InitStep struct {
	host   Host
	logger *zap.Logger
}

// NewInitStep creates the graphics.init handler.
func NewInitStep(host Host, logger *zap.Logger) *InitStep {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InitStep{host: host, logger: logger}
}

func (s *InitStep) PluginType() string { return "graphics.init" }

func (s *InitStep) Execute(_ context.Context, step workflow.StepDefinition, params workflow.Params, rc *workflow.Context) (workflow.StepResult, error) {
	width := int(params.Number("width", 800))
	height := int(params.Number("height", 600))
	title := params.Text("title", "prism")

	if err := s.host.Init(width, height, title); err != nil {
		return workflow.Errored(fmt.Sprintf("graphics host init failed: %v", err)), nil
	}

	rc.Set(ContextKeyInitialized, workflow.Bool(true))
	s.logger.Info("graphics host initialized",
		zap.String("stepID", step.ID),
		zap.Int("width", width),
		zap.Int("height", height),
		zap.String("title", title))
	return workflow.Success(), nil
}

// FrameBeginStep opens a frame.
type FrameBeginStep struct {
	host Host
}

// NewFrameBeginStep creates the graphics.frame_begin handler.
func NewFrameBeginStep(host Host) *FrameBeginStep { return &FrameBeginStep{host: host} }

func (s *FrameBeginStep) PluginType() string { return "graphics.frame_begin" }

func (s *FrameBeginStep) Execute(_ context.Context, _ workflow.StepDefinition, _ workflow.Params, _ *workflow.Context) (workflow.StepResult, error) {
	if err := s.host.BeginFrame(); err != nil {
		return workflow.Errored(fmt.Sprintf("begin frame failed: %v", err)), nil
	}
	return workflow.Success(), nil
}

// FrameEndStep submits and presents a frame, incrementing
// graphics.frame_count in the context.
type FrameEndStep struct {
	host Host
}

// NewFrameEndStep creates the graphics.frame_end handler.
func NewFrameEndStep(host Host) *FrameEndStep { return &FrameEndStep{host: host} }

func (s *FrameEndStep) PluginType() string { return "graphics.frame_end" }

func (s *FrameEndStep) Execute(_ context.Context, _ workflow.StepDefinition, _ workflow.Params, rc *workflow.Context) (workflow.StepResult, error) {
	if err := s.host.EndFrame(); err != nil {
		return workflow.Errored(fmt.Sprintf("end frame failed: %v", err)), nil
	}
	rc.Set(ContextKeyFrameCount, workflow.Number(rc.Number(ContextKeyFrameCount, 0)+1))
	return workflow.Success(), nil
}

// ScreenshotStep captures the framebuffer to a file.
//
// Parameters: "path" (required). Records the artifact location under
// graphics.screenshot_path so validation steps can find it.
type ScreenshotStep struct {
	host   Host
	logger *zap.Logger
}

// NewScreenshotStep creates the graphics.screenshot handler.
func NewScreenshotStep(host Host, logger *zap.Logger) *ScreenshotStep {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ScreenshotStep{host: host, logger: logger}
}

func (s *ScreenshotStep) PluginType() string { return "graphics.screenshot" }

func (s *ScreenshotStep) Execute(_ context.Context, step workflow.StepDefinition, params workflow.Params, rc *workflow.Context) (workflow.StepResult, error) {
	path, err := params.RequireText(step.ID, "path")
	if err != nil {
		return workflow.StepResult{}, err
	}
	if err := s.host.CaptureScreenshot(path); err != nil {
		return workflow.Errored(fmt.Sprintf("screenshot capture failed: %v", err)), nil
	}
	rc.Set(ContextKeyScreenshotPath, workflow.Text(path))
	s.logger.Info("screenshot captured",
		zap.String("stepID", step.ID),
		zap.String("path", path))
	return workflow.Success(), nil
}
