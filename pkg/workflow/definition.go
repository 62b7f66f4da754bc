package workflow

// StepDefinition is one node in a workflow graph. It names the plugin that
// handles it, carries raw (possibly token-bearing) parameters, and lists the
// step ids that must complete before it runs.
type StepDefinition struct {
	// ID uniquely identifies the step within its definition
	ID string

	// Plugin is the registered step type that handles this step,
	// e.g. "graphics.init" or "system.exit"
	Plugin string

	// Parameters maps parameter names to raw values; text values may contain
	// ${variables.key} and ${context.key} tokens
	Parameters map[string]Value

	// DependsOn lists the ids of steps that must complete first
	DependsOn []string
}

// Definition is a loaded workflow graph: an ordered sequence of step
// definitions plus a table of variable defaults. A Definition is immutable
// once loaded; runtime overrides live in the Context and never mutate it.
type Definition struct {
	Steps     []StepDefinition
	Variables map[string]Value
}

// Step returns the step with the given id, or nil when absent.
func (d *Definition) Step(id string) *StepDefinition {
	for i := range d.Steps {
		if d.Steps[i].ID == id {
			return &d.Steps[i]
		}
	}
	return nil
}

// Variable returns the default value for name and whether it exists.
func (d *Definition) Variable(name string) (Value, bool) {
	v, ok := d.Variables[name]
	return v, ok
}

// Params is the fully resolved parameter set handed to a step handler.
type Params map[string]Value

// Get returns the parameter and whether it was supplied.
func (p Params) Get(name string) (Value, bool) {
	v, ok := p[name]
	return v, ok
}

// Number returns the parameter coerced to a number, or def when absent.
func (p Params) Number(name string, def float64) float64 {
	if v, ok := p[name]; ok {
		return v.AsNumber()
	}
	return def
}

// Text returns the parameter coerced to text, or def when absent.
func (p Params) Text(name string, def string) string {
	if v, ok := p[name]; ok {
		return v.AsText()
	}
	return def
}

// Bool returns the parameter coerced to a bool, or def when absent.
func (p Params) Bool(name string, def bool) bool {
	if v, ok := p[name]; ok {
		return v.AsBool()
	}
	return def
}

// RequireText returns the parameter as text or an ErrMissingParameter
// wrapped with the step id.
func (p Params) RequireText(stepID, name string) (string, error) {
	v, ok := p[name]
	if !ok {
		return "", NewError("MISSING_PARAMETER", stepID, "parameter "+name, ErrMissingParameter)
	}
	return v.AsText(), nil
}

// RequireNumber returns the parameter as a number or an ErrMissingParameter
// wrapped with the step id.
func (p Params) RequireNumber(stepID, name string) (float64, error) {
	v, ok := p[name]
	if !ok {
		return 0, NewError("MISSING_PARAMETER", stepID, "parameter "+name, ErrMissingParameter)
	}
	return v.AsNumber(), nil
}
