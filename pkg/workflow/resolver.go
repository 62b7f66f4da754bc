package workflow

import (
	"fmt"
	"strings"
)

// Resolver rewrites ${variables.key} and ${context.key} tokens inside raw
// parameter values into concrete Values immediately before a step runs.
// It performs single-level literal substitution only; it is not an
// expression evaluator, and text that merely looks like arithmetic between
// two tokens resolves as plain text.
type Resolver struct {
	def *Definition
	ctx *Context
}

// NewResolver creates a resolver over one definition's variable table and
// the live run context.
func NewResolver(def *Definition, ctx *Context) *Resolver {
	return &Resolver{def: def, ctx: ctx}
}

// ResolveParams resolves every parameter of a step. A missing key is a hard
// failure for that parameter, never a silent default: a mis-set camera
// distance defaulting to zero costs far more to debug than a loud error.
func (r *Resolver) ResolveParams(step StepDefinition) (Params, error) {
	resolved := make(Params, len(step.Parameters))
	for name, raw := range step.Parameters {
		v, err := r.Resolve(raw)
		if err != nil {
			return nil, NewError("RESOLVE", step.ID, fmt.Sprintf("parameter %q", name), err)
		}
		resolved[name] = v
	}
	return resolved, nil
}

// Resolve materializes a single raw Value. Number and bool variants pass
// through untouched; lists resolve element-wise; text is scanned for tokens.
func (r *Resolver) Resolve(raw Value) (Value, error) {
	switch raw.Kind() {
	case KindText:
		return r.resolveText(raw.AsText())
	case KindList:
		items := raw.AsList()
		out := make([]Value, len(items))
		for i, item := range items {
			v, err := r.Resolve(item)
			if err != nil {
				return Value{}, err
			}
			out[i] = v
		}
		return List(out...), nil
	default:
		return raw, nil
	}
}

func (r *Resolver) resolveText(s string) (Value, error) {
	start := strings.Index(s, "${")
	if start < 0 {
		return Text(s), nil
	}

	// A token spanning the whole string keeps the referenced value's type:
	// "${variables.num_frames}" stays numeric when the variable is numeric.
	if strings.HasPrefix(s, "${") && strings.HasSuffix(s, "}") && strings.Index(s, "}") == len(s)-1 {
		return r.lookup(s[2 : len(s)-1])
	}

	// Embedded tokens substitute as text concatenation.
	var b strings.Builder
	rest := s
	for {
		idx := strings.Index(rest, "${")
		if idx < 0 {
			b.WriteString(rest)
			break
		}
		b.WriteString(rest[:idx])
		rest = rest[idx+2:]
		end := strings.Index(rest, "}")
		if end < 0 {
			return Value{}, fmt.Errorf("%w: unterminated token in %q", ErrUnresolvedVariable, s)
		}
		v, err := r.lookup(rest[:end])
		if err != nil {
			return Value{}, err
		}
		b.WriteString(v.AsText())
		rest = rest[end+1:]
	}
	return Text(b.String()), nil
}

// scanTokens extracts every ${...} token body from s. An unterminated token
// is an error.
func scanTokens(s string) ([]string, error) {
	var tokens []string
	rest := s
	for {
		idx := strings.Index(rest, "${")
		if idx < 0 {
			return tokens, nil
		}
		rest = rest[idx+2:]
		end := strings.Index(rest, "}")
		if end < 0 {
			return nil, fmt.Errorf("%w: unterminated token in %q", ErrUnresolvedVariable, s)
		}
		tokens = append(tokens, rest[:end])
		rest = rest[end+1:]
	}
}

// checkVariableTokens verifies, before any step runs, that every token in
// the definition's parameters is well formed, uses a known namespace, and
// that variables-namespace tokens name a declared variable. Context tokens
// are left to run time since context entries appear as steps execute.
func checkVariableTokens(def *Definition) error {
	var walk func(stepID, param string, v Value) error
	walk = func(stepID, param string, v Value) error {
		switch v.Kind() {
		case KindText:
			tokens, err := scanTokens(v.AsText())
			if err != nil {
				return NewError("VALIDATE", stepID, fmt.Sprintf("parameter %q", param), err)
			}
			for _, token := range tokens {
				dot := strings.Index(token, ".")
				if dot <= 0 || dot == len(token)-1 {
					return NewError("VALIDATE", stepID, fmt.Sprintf("parameter %q", param),
						fmt.Errorf("%w: token %q must have the form namespace.key", ErrUnresolvedVariable, token))
				}
				namespace, key := token[:dot], token[dot+1:]
				switch namespace {
				case "context":
				case "variables":
					if _, ok := def.Variable(key); !ok {
						return NewError("VALIDATE", stepID, fmt.Sprintf("parameter %q", param),
							fmt.Errorf("%w: no variable %q", ErrUnresolvedVariable, key))
					}
				default:
					return NewError("VALIDATE", stepID, fmt.Sprintf("parameter %q", param),
						fmt.Errorf("%w: unknown namespace %q", ErrUnresolvedVariable, namespace))
				}
			}
		case KindList:
			for _, item := range v.AsList() {
				if err := walk(stepID, param, item); err != nil {
					return err
				}
			}
		}
		return nil
	}

	for _, step := range def.Steps {
		for name, raw := range step.Parameters {
			if err := walk(step.ID, name, raw); err != nil {
				return err
			}
		}
	}
	return nil
}

// lookup resolves one namespace.key token body.
func (r *Resolver) lookup(token string) (Value, error) {
	dot := strings.Index(token, ".")
	if dot <= 0 || dot == len(token)-1 {
		return Value{}, fmt.Errorf("%w: token %q must have the form namespace.key", ErrUnresolvedVariable, token)
	}
	namespace, key := token[:dot], token[dot+1:]

	switch namespace {
	case "variables":
		if r.def != nil {
			if v, ok := r.def.Variable(key); ok {
				return v, nil
			}
		}
		return Value{}, fmt.Errorf("%w: no variable %q", ErrUnresolvedVariable, key)
	case "context":
		if r.ctx != nil {
			if v, ok := r.ctx.Get(key); ok {
				return v, nil
			}
		}
		return Value{}, fmt.Errorf("%w: no context key %q", ErrUnresolvedVariable, key)
	default:
		return Value{}, fmt.Errorf("%w: unknown namespace %q", ErrUnresolvedVariable, namespace)
	}
}
