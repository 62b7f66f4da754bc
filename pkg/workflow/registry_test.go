package workflow

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noopHandler(plugin string) HandlerFunc {
	return HandlerFunc{
		Plugin: plugin,
		Fn: func(ctx context.Context, step StepDefinition, params Params, rc *Context) (StepResult, error) {
			return Success(), nil
		},
	}
}

func TestRegistryRegisterAndDispatch(t *testing.T) {
	registry := NewRegistry()
	called := false
	registry.Register(HandlerFunc{
		Plugin: "test.echo",
		Fn: func(ctx context.Context, step StepDefinition, params Params, rc *Context) (StepResult, error) {
			called = true
			rc.Set("echoed", params["msg"])
			return Success(), nil
		},
	})

	require.True(t, registry.HasHandler("test.echo"))
	assert.False(t, registry.HasHandler("test.unknown"))

	rc := NewContext()
	result, err := registry.Dispatch(context.Background(),
		StepDefinition{ID: "s1", Plugin: "test.echo"},
		Params{"msg": Text("hi")}, rc)
	require.NoError(t, err)
	assert.Equal(t, ResultSuccess, result.Kind)
	assert.True(t, called)
	assert.Equal(t, "hi", rc.Text("echoed", ""))
}

func TestRegistryDispatchUnknownPlugin(t *testing.T) {
	registry := NewRegistry()

	_, err := registry.Dispatch(context.Background(),
		StepDefinition{ID: "s1", Plugin: "nope"}, Params{}, NewContext())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownPlugin)
}

func TestRegistryLastRegistrationWins(t *testing.T) {
	registry := NewRegistry()
	registry.Register(HandlerFunc{
		Plugin: "test.step",
		Fn: func(ctx context.Context, step StepDefinition, params Params, rc *Context) (StepResult, error) {
			return Errored("old handler"), nil
		},
	})
	registry.Register(noopHandler("test.step"))

	result, err := registry.Dispatch(context.Background(),
		StepDefinition{ID: "s1", Plugin: "test.step"}, Params{}, NewContext())
	require.NoError(t, err)
	assert.Equal(t, ResultSuccess, result.Kind)
}

func TestRegistryRegisteredTypes(t *testing.T) {
	registry := NewRegistry()
	registry.Register(noopHandler("a"))
	registry.Register(noopHandler("b"))

	assert.ElementsMatch(t, []string{"a", "b"}, registry.RegisteredTypes())
}
