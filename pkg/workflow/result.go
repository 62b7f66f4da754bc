package workflow

import "time"

// ResultKind classifies a step handler's outcome.
type ResultKind int

const (
	// ResultSuccess means the step completed and the run may advance.
	ResultSuccess ResultKind = iota
	// ResultErrored means the step failed; the run halts as Failed.
	ResultErrored
	// ResultExited requests early termination with a status code. Only the
	// system.exit step produces it.
	ResultExited
)

// StepResult is what a handler reports back to the executor.
type StepResult struct {
	Kind ResultKind
	// ExitCode carries the requested process status code for ResultExited.
	ExitCode int
	// Message is diagnostic text; for errors it explains the failure.
	Message string
}

// Success returns a successful step result.
func Success() StepResult {
	return StepResult{Kind: ResultSuccess}
}

// Errored returns a failed step result with the given message.
func Errored(message string) StepResult {
	return StepResult{Kind: ResultErrored, Message: message}
}

// Exited returns an early-termination result carrying a status code.
func Exited(code int, message string) StepResult {
	return StepResult{Kind: ResultExited, ExitCode: code, Message: message}
}

// State is the executor's lifecycle state.
type State int

const (
	StateIdle State = iota
	StateValidating
	StateRunning
	StateCompleted
	StateFailed
	StateExited
)

// String returns the state's name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateValidating:
		return "validating"
	case StateRunning:
		return "running"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	case StateExited:
		return "exited"
	default:
		return "unknown"
	}
}

// StepRecord captures the outcome of one executed step.
type StepRecord struct {
	StepID  string `json:"step_id"`
	Plugin  string `json:"plugin"`
	Status  string `json:"status"` // "success", "failed", "exited"
	Message string `json:"message,omitempty"`
	// Duration serializes as integer nanoseconds under "duration_ns".
	Duration time.Duration `json:"duration_ns"`
}

// RunReport summarizes one workflow run.
type RunReport struct {
	RunID         string       `json:"run_id"`
	State         State        `json:"-"`
	Status        string       `json:"status"` // terminal state name
	Steps         []StepRecord `json:"steps"`
	ExitCode      int          `json:"exit_code,omitempty"`
	FailedStepID  string       `json:"failed_step_id,omitempty"`
	FailureReason string       `json:"failure_reason,omitempty"`
}
