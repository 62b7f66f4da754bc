package workflow

import "context"

// StepHandler executes one step type. Handlers receive the resolved
// parameters and the shared run context; they mutate the context and/or
// trigger side effects in the graphics host and report a StepResult.
// Returning a non-nil error is equivalent to a ResultErrored result.
type StepHandler interface {
	// Execute runs the step's logic.
	Execute(ctx context.Context, step StepDefinition, params Params, rc *Context) (StepResult, error)

	// PluginType returns the plugin name this handler serves.
	PluginType() string
}

// HandlerFunc adapts a function to the StepHandler interface.
type HandlerFunc struct {
	Plugin string
	Fn     func(ctx context.Context, step StepDefinition, params Params, rc *Context) (StepResult, error)
}

func (h HandlerFunc) Execute(ctx context.Context, step StepDefinition, params Params, rc *Context) (StepResult, error) {
	return h.Fn(ctx, step, params, rc)
}

func (h HandlerFunc) PluginType() string { return h.Plugin }

// Registry maps plugin names to step handlers. It is constructed once at
// startup and passed into the Executor; there is no ambient global state.
type Registry struct {
	handlers map[string]StepHandler
}

// NewRegistry creates an empty step registry.
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]StepHandler)}
}

// Register associates the handler's plugin name with the handler. The last
// registration for a name wins.
func (r *Registry) Register(handler StepHandler) {
	r.handlers[handler.PluginType()] = handler
}

// Dispatch invokes the handler registered for the step's plugin name.
func (r *Registry) Dispatch(ctx context.Context, step StepDefinition, params Params, rc *Context) (StepResult, error) {
	handler, ok := r.handlers[step.Plugin]
	if !ok {
		return StepResult{}, NewError("DISPATCH", step.ID, "plugin "+step.Plugin, ErrUnknownPlugin)
	}
	return handler.Execute(ctx, step, params, rc)
}

// HasHandler checks whether a handler exists for a plugin name.
func (r *Registry) HasHandler(pluginType string) bool {
	_, ok := r.handlers[pluginType]
	return ok
}

// RegisteredTypes returns all registered plugin names.
func (r *Registry) RegisteredTypes() []string {
	types := make([]string, 0, len(r.handlers))
	for pluginType := range r.handlers {
		types = append(types, pluginType)
	}
	return types
}
