// Package validation provides steps that assert predicates over rendered
// pixel artifacts. A failed predicate is a step-level error and halts the
// run: a pipeline that produced an empty or wrong image must not silently
// pass.
package validation

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/lumenworks/prism/pkg/pixelcsv"
	"github.com/lumenworks/prism/pkg/workflow"
)

// ContextKeyNonBlackPixels is where HasColorsStep records its count.
const ContextKeyNonBlackPixels = "validation.non_black_pixels"

// HasColorsStep asserts that a rendered image contains color data rather
// than a blank buffer.
//
// Parameters: "path" (required), "min_non_black_pixels" (default 1),
// "channel_threshold" (default 50). A pixel counts when any RGB channel
// exceeds the threshold. The observed count is written to the context
// under ContextKeyNonBlackPixels.
type HasColorsStep struct {
	logger *zap.Logger
}

// NewHasColorsStep creates the validation.csv_has_colors handler.
func NewHasColorsStep(logger *zap.Logger) *HasColorsStep {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HasColorsStep{logger: logger}
}

func (s *HasColorsStep) PluginType() string { return "validation.csv_has_colors" }

func (s *HasColorsStep) Execute(_ context.Context, step workflow.StepDefinition, params workflow.Params, rc *workflow.Context) (workflow.StepResult, error) {
	buf, result := loadBuffer(step, params)
	if buf == nil {
		return result, nil
	}

	threshold := uint8(params.Number("channel_threshold", 50))
	minPixels := int(params.Number("min_non_black_pixels", 1))

	count := buf.CountNonBlack(threshold)
	rc.Set(ContextKeyNonBlackPixels, workflow.Number(float64(count)))

	s.logger.Debug("counted non-black pixels",
		zap.String("stepID", step.ID),
		zap.Int("count", count),
		zap.Int("minimum", minPixels))

	if count < minPixels {
		return workflow.Errored(fmt.Sprintf("image has %d pixels above channel threshold %d, need at least %d", count, threshold, minPixels)), nil
	}
	return workflow.Success(), nil
}

// NotEmptyStep asserts that a rendered image is not mostly dark.
//
// Parameters: "path" (required), "brightness_threshold" (default 30).
type NotEmptyStep struct {
	logger *zap.Logger
}

// NewNotEmptyStep creates the validation.csv_not_empty handler.
func NewNotEmptyStep(logger *zap.Logger) *NotEmptyStep {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotEmptyStep{logger: logger}
}

func (s *NotEmptyStep) PluginType() string { return "validation.csv_not_empty" }

func (s *NotEmptyStep) Execute(_ context.Context, step workflow.StepDefinition, params workflow.Params, _ *workflow.Context) (workflow.StepResult, error) {
	buf, result := loadBuffer(step, params)
	if buf == nil {
		return result, nil
	}

	threshold := uint8(params.Number("brightness_threshold", 30))
	if buf.IsMostlyEmpty(threshold) {
		stats := buf.Brightness()
		return workflow.Errored(fmt.Sprintf("image is mostly empty below brightness %d (min %d, max %d, avg %.1f)",
			threshold, stats.Min, stats.Max, stats.Average)), nil
	}
	return workflow.Success(), nil
}

// DimensionsStep asserts exact image dimensions.
//
// Parameters: "path", "width", "height" (all required).
type DimensionsStep struct{}

// NewDimensionsStep creates the validation.csv_dimensions handler.
func NewDimensionsStep() *DimensionsStep { return &DimensionsStep{} }

func (s *DimensionsStep) PluginType() string { return "validation.csv_dimensions" }

func (s *DimensionsStep) Execute(_ context.Context, step workflow.StepDefinition, params workflow.Params, _ *workflow.Context) (workflow.StepResult, error) {
	buf, result := loadBuffer(step, params)
	if buf == nil {
		return result, nil
	}
	width, err := params.RequireNumber(step.ID, "width")
	if err != nil {
		return workflow.StepResult{}, err
	}
	height, err := params.RequireNumber(step.ID, "height")
	if err != nil {
		return workflow.StepResult{}, err
	}
	if !buf.VerifyDimensions(int(width), int(height)) {
		return workflow.Errored(fmt.Sprintf("image is %dx%d, expected %dx%d",
			buf.Width(), buf.Height(), int(width), int(height))), nil
	}
	return workflow.Success(), nil
}

// ColorPresentStep asserts that a specific color occurs in the image.
//
// Parameters: "path", "color" (hex text like "#ff8800" or "ff8800",
// required), "tolerance" (default 5), "min_count" (default 1).
type ColorPresentStep struct{}

// NewColorPresentStep creates the validation.csv_color_present handler.
func NewColorPresentStep() *ColorPresentStep { return &ColorPresentStep{} }

func (s *ColorPresentStep) PluginType() string { return "validation.csv_color_present" }

func (s *ColorPresentStep) Execute(_ context.Context, step workflow.StepDefinition, params workflow.Params, _ *workflow.Context) (workflow.StepResult, error) {
	buf, result := loadBuffer(step, params)
	if buf == nil {
		return result, nil
	}
	colorText, err := params.RequireText(step.ID, "color")
	if err != nil {
		return workflow.StepResult{}, err
	}
	color, err := parseHexColor(colorText)
	if err != nil {
		return workflow.StepResult{}, workflow.NewError("VALIDATION", step.ID, "parameter color", err)
	}

	tolerance := uint8(params.Number("tolerance", 5))
	minCount := int(params.Number("min_count", 1))

	count := buf.CountWithinTolerance(color, tolerance)
	if count < minCount {
		return workflow.Errored(fmt.Sprintf("color #%s matched %d pixels within tolerance %d, need at least %d",
			color.Hex(), count, tolerance, minCount)), nil
	}
	return workflow.Success(), nil
}

// loadBuffer reads the step's "path" parameter and loads the pixel buffer.
// On failure it returns a nil buffer and the errored result to report.
func loadBuffer(step workflow.StepDefinition, params workflow.Params) (*pixelcsv.Buffer, workflow.StepResult) {
	path := params.Text("path", "")
	if path == "" {
		return nil, workflow.Errored("parameter path is required")
	}
	buf, err := pixelcsv.Load(path)
	if err != nil {
		return nil, workflow.Errored(fmt.Sprintf("cannot load pixel data from %s: %v", path, err))
	}
	return buf, workflow.StepResult{}
}

func parseHexColor(s string) (pixelcsv.Pixel, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(s) != 6 {
		return pixelcsv.Pixel{}, fmt.Errorf("color %q must be 6 hex digits", s)
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return pixelcsv.Pixel{}, fmt.Errorf("color %q is not valid hex", s)
	}
	return pixelcsv.Opaque(uint8(v>>16), uint8(v>>8), uint8(v)), nil
}
