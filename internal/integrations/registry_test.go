package integrations

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_GetUnknownServiceType(t *testing.T) {
	reg := NewRegistry()

	_, err := reg.Get("SMOKE_SIGNALS")
	assert.Error(t, err)
}

func TestRegistry_RegisterAndGet(t *testing.T) {
	reg := NewRegistry()
	openai := NewOpenAIIntegration("http://localhost:8080/v1", "test-model")
	reg.Register("OPENAI", openai)

	got, err := reg.Get("OPENAI")
	require.NoError(t, err)
	assert.Same(t, openai, got)
}

func TestRegistry_MustGet(t *testing.T) {
	reg := NewRegistry()
	openai := NewOpenAIIntegration("http://localhost:8080/v1", "test-model")
	reg.Register("OPENAI", openai)

	assert.NotPanics(t, func() {
		assert.Same(t, openai, reg.MustGet("OPENAI"))
	})
	assert.Panics(t, func() { reg.MustGet("NOTION") })
}
