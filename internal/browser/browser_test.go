package browser

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/webcapsule/webcapsule/internal/models"
)

func TestTabRegistry_Lifecycle(t *testing.T) {
	registry := newTabRegistry()

	first := registry.add(nil)
	second := registry.add(nil)
	assert.NotEqual(t, first, second, "handles must be unique")

	_, ok := registry.get(first)
	assert.True(t, ok)
	assert.Len(t, registry.handles(), 2)

	registry.remove(first)
	_, ok = registry.get(first)
	assert.False(t, ok)
	assert.Len(t, registry.handles(), 1)
}

func TestEventHub_DispatchAndUnsubscribe(t *testing.T) {
	hub := newEventHub()

	var received []models.PageEvent
	hub.subscribe("tab-1", func(event models.PageEvent) {
		received = append(received, event)
	})

	hub.dispatch("tab-1", models.EventMutation)
	hub.dispatch("tab-2", models.EventMutation) // no subscriber, dropped
	require.Len(t, received, 1)
	assert.Equal(t, models.EventMutation, received[0].Type)
	assert.Equal(t, models.PageHandle("tab-1"), received[0].Handle)

	hub.unsubscribe("tab-1")
	hub.dispatch("tab-1", models.EventScroll)
	assert.Len(t, received, 1)
}

func TestSplitBrowserArg(t *testing.T) {
	name, values := splitBrowserArg("--no-sandbox")
	assert.Equal(t, "no-sandbox", name)
	assert.Empty(t, values)

	name, values = splitBrowserArg("--blink-settings=imagesEnabled=false")
	assert.Equal(t, "blink-settings", name)
	assert.Equal(t, []string{"imagesEnabled=false"}, values)

	name, _ = splitBrowserArg("--")
	assert.Equal(t, "", name)
}

func TestAgentScriptIsAFunctionExpression(t *testing.T) {
	trimmed := strings.TrimSpace(agentJS)
	assert.True(t, strings.HasPrefix(trimmed, "() =>"), "agent script must be directly evaluable")
	assert.Contains(t, agentJS, "__webcapsuleAgent")
	assert.Contains(t, agentJS, "collectContent")
}
