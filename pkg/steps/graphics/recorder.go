package graphics

import "fmt"

// RecorderHost is a Host that records the calls made against it. It backs
// tests and headless dry runs of workflow definitions.
type RecorderHost struct {
	Calls       []string
	Initialized bool
	Width       int
	Height      int
	Title       string
	Screenshots []string

	// FailOn makes the named call return an error, for failure-path tests.
	FailOn string
}

func (h *RecorderHost) Init(width, height int, title string) error {
	if h.FailOn == "Init" {
		return fmt.Errorf("forced init failure")
	}
	h.Calls = append(h.Calls, "Init")
	h.Initialized = true
	h.Width, h.Height, h.Title = width, height, title
	return nil
}

func (h *RecorderHost) BeginFrame() error {
	if h.FailOn == "BeginFrame" {
		return fmt.Errorf("forced begin-frame failure")
	}
	h.Calls = append(h.Calls, "BeginFrame")
	return nil
}

func (h *RecorderHost) EndFrame() error {
	if h.FailOn == "EndFrame" {
		return fmt.Errorf("forced end-frame failure")
	}
	h.Calls = append(h.Calls, "EndFrame")
	return nil
}

func (h *RecorderHost) CaptureScreenshot(path string) error {
	if h.FailOn == "CaptureScreenshot" {
		return fmt.Errorf("forced screenshot failure")
	}
	h.Calls = append(h.Calls, "CaptureScreenshot")
	h.Screenshots = append(h.Screenshots, path)
	return nil
}

// Ensure RecorderHost implements Host
var _ Host = (*RecorderHost)(nil)
