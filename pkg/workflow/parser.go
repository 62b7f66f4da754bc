package workflow

import (
	"fmt"
	"os"

	"github.com/tidwall/gjson"
)

// ParseDefinition loads a workflow definition from its JSON wire format:
//
//	{
//	  "variables": { "num_frames": { "value": 120 }, ... },
//	  "steps": [
//	    { "id": "init", "plugin": "graphics.init",
//	      "parameters": { "width": 800, "title": "${variables.title}" },
//	      "depends_on": ["earlier_step"] },
//	    ...
//	  ]
//	}
//
// Parameter and variable values must be strings, numbers, bools, or
// homogeneous arrays of strings or numbers. Structural problems are
// load-time errors wrapping ErrInvalidDefinition; graph-level checks
// (cycles, unknown plugins) belong to the Executor's validation pass.
func ParseDefinition(data []byte) (*Definition, error) {
	if !gjson.ValidBytes(data) {
		return nil, NewError("PARSE", "", "document is not valid JSON", ErrInvalidDefinition)
	}

	doc := gjson.ParseBytes(data)
	stepsNode := doc.Get("steps")
	if !stepsNode.Exists() || !stepsNode.IsArray() {
		return nil, NewError("PARSE", "", "member 'steps' must be an array", ErrInvalidDefinition)
	}

	def := &Definition{Variables: make(map[string]Value)}

	if varsNode := doc.Get("variables"); varsNode.Exists() {
		if !varsNode.IsObject() {
			return nil, NewError("PARSE", "", "member 'variables' must be an object", ErrInvalidDefinition)
		}
		var parseErr error
		varsNode.ForEach(func(key, entry gjson.Result) bool {
			raw := entry
			// Entries are written as {"value": ...}; a bare literal is
			// accepted for hand-written definitions.
			if entry.IsObject() {
				raw = entry.Get("value")
				if !raw.Exists() {
					parseErr = NewError("PARSE", "", fmt.Sprintf("variable %q has no 'value' field", key.String()), ErrInvalidDefinition)
					return false
				}
			}
			v, err := valueFromJSON(key.String(), raw)
			if err != nil {
				parseErr = err
				return false
			}
			def.Variables[key.String()] = v
			return true
		})
		if parseErr != nil {
			return nil, parseErr
		}
	}

	var parseErr error
	seen := make(map[string]bool)
	stepsNode.ForEach(func(_, stepNode gjson.Result) bool {
		step, err := parseStep(stepNode)
		if err != nil {
			parseErr = err
			return false
		}
		if seen[step.ID] {
			parseErr = NewError("PARSE", step.ID, "id used by more than one step", ErrDuplicateStepID)
			return false
		}
		seen[step.ID] = true
		def.Steps = append(def.Steps, step)
		return true
	})
	if parseErr != nil {
		return nil, parseErr
	}

	if len(def.Steps) == 0 {
		return nil, NewError("PARSE", "", "definition has no steps", ErrInvalidDefinition)
	}

	return def, nil
}

// LoadDefinition reads and parses a workflow definition file.
func LoadDefinition(path string) (*Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, NewError("PARSE", "", fmt.Sprintf("read %s", path), err)
	}
	return ParseDefinition(data)
}

func parseStep(node gjson.Result) (StepDefinition, error) {
	var step StepDefinition

	id := node.Get("id")
	if !id.Exists() || id.Type != gjson.String || id.String() == "" {
		return step, NewError("PARSE", "", "step member 'id' must be a non-empty string", ErrInvalidDefinition)
	}
	step.ID = id.String()

	plugin := node.Get("plugin")
	if !plugin.Exists() || plugin.Type != gjson.String || plugin.String() == "" {
		return step, NewError("PARSE", step.ID, "member 'plugin' must be a non-empty string", ErrInvalidDefinition)
	}
	step.Plugin = plugin.String()

	step.Parameters = make(map[string]Value)
	if paramsNode := node.Get("parameters"); paramsNode.Exists() {
		if !paramsNode.IsObject() {
			return step, NewError("PARSE", step.ID, "member 'parameters' must be an object", ErrInvalidDefinition)
		}
		var parseErr error
		paramsNode.ForEach(func(key, raw gjson.Result) bool {
			v, err := valueFromJSON(key.String(), raw)
			if err != nil {
				parseErr = NewError("PARSE", step.ID, err.Error(), ErrInvalidDefinition)
				return false
			}
			step.Parameters[key.String()] = v
			return true
		})
		if parseErr != nil {
			return step, parseErr
		}
	}

	if depsNode := node.Get("depends_on"); depsNode.Exists() {
		if !depsNode.IsArray() {
			return step, NewError("PARSE", step.ID, "member 'depends_on' must be an array", ErrInvalidDefinition)
		}
		var parseErr error
		depsNode.ForEach(func(_, dep gjson.Result) bool {
			if dep.Type != gjson.String || dep.String() == "" {
				parseErr = NewError("PARSE", step.ID, "'depends_on' entries must be non-empty strings", ErrInvalidDefinition)
				return false
			}
			step.DependsOn = append(step.DependsOn, dep.String())
			return true
		})
		if parseErr != nil {
			return step, parseErr
		}
	}

	return step, nil
}

// valueFromJSON converts a JSON literal into a Value. Arrays must hold only
// strings or only numbers; mixing them is rejected, as is any nested object.
func valueFromJSON(name string, raw gjson.Result) (Value, error) {
	switch raw.Type {
	case gjson.String:
		return Text(raw.String()), nil
	case gjson.Number:
		return Number(raw.Float()), nil
	case gjson.True:
		return Bool(true), nil
	case gjson.False:
		return Bool(false), nil
	}

	if raw.IsArray() {
		var items []Value
		var hasText, hasNumber bool
		var convErr error
		raw.ForEach(func(_, entry gjson.Result) bool {
			switch entry.Type {
			case gjson.String:
				hasText = true
				items = append(items, Text(entry.String()))
			case gjson.Number:
				hasNumber = true
				items = append(items, Number(entry.Float()))
			default:
				convErr = fmt.Errorf("array %q must contain strings or numbers", name)
				return false
			}
			return true
		})
		if convErr != nil {
			return Value{}, convErr
		}
		if hasText && hasNumber {
			return Value{}, fmt.Errorf("array %q cannot mix string and number values", name)
		}
		return List(items...), nil
	}

	return Value{}, fmt.Errorf("value %q must be a string, number, bool, or array", name)
}
