package browser

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	_ "embed"

	"github.com/go-rod/rod"
	"github.com/webcapsule/webcapsule/internal/common"
	"github.com/webcapsule/webcapsule/internal/models"
	"github.com/ysmood/gson"
)

//go:embed agent.js
var agentJS string

// sendScript routes one request through the in-page agent. The answer comes
// back as a JSON string so the host never depends on object serialization
// quirks of the remote protocol.
const sendScript = `(action, payload) => {
	if (!window.__webcapsuleAgent) {
		return null;
	}
	return JSON.stringify(window.__webcapsuleAgent.handle(action, payload));
}`

// eventHub fans page events out to at most one subscriber per page.
type eventHub struct {
	mu       sync.RWMutex
	handlers map[models.PageHandle]func(models.PageEvent)
}

func newEventHub() *eventHub {
	return &eventHub{handlers: make(map[models.PageHandle]func(models.PageEvent))}
}

func (h *eventHub) subscribe(handle models.PageHandle, fn func(models.PageEvent)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.handlers[handle] = fn
}

func (h *eventHub) unsubscribe(handle models.PageHandle) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.handlers, handle)
}

func (h *eventHub) dispatch(handle models.PageHandle, eventType models.PageEventType) {
	h.mu.RLock()
	fn := h.handlers[handle]
	h.mu.RUnlock()
	if fn != nil {
		fn(models.PageEvent{Handle: handle, Type: eventType, At: time.Now()})
	}
}

// Inject evaluates the agent script in the page. Injection is idempotent,
// the agent refuses to install twice.
func (m *Manager) Inject(ctx context.Context, handle models.PageHandle) error {
	page, ok := m.tabs.get(handle)
	if !ok {
		return common.ErrPageNotFound
	}

	if _, err := page.Context(ctx).Eval(agentJS); err != nil {
		return common.WrapError(err, "failed to inject agent")
	}

	m.logger.Debug().Str("page", string(handle)).Msg("Agent injected")
	return nil
}

// Send delivers one request to the page's agent and returns its JSON reply
func (m *Manager) Send(ctx context.Context, handle models.PageHandle, action string, payload any) (json.RawMessage, error) {
	page, ok := m.tabs.get(handle)
	if !ok {
		return nil, common.ErrPageNotFound
	}

	result, err := page.Context(ctx).Eval(sendScript, action, payload)
	if err != nil {
		return nil, common.WrapError(common.ErrChannelGone, err.Error())
	}

	if result.Value.Nil() {
		return nil, common.ErrAgentUnreachable
	}

	reply := result.Value.Str()
	if reply == "" || reply == "null" {
		return nil, common.ErrAgentUnreachable
	}
	return json.RawMessage(reply), nil
}

// Subscribe registers the event handler for a page. A second Subscribe for
// the same page replaces the previous handler.
func (m *Manager) Subscribe(handle models.PageHandle, fn func(models.PageEvent)) {
	m.hub.subscribe(handle, fn)
}

// Unsubscribe removes the page's event handler
func (m *Manager) Unsubscribe(handle models.PageHandle) {
	m.hub.unsubscribe(handle)
}

// exposeEmitBinding installs the host-side binding the agent uses to report
// mutation and scroll events.
func (m *Manager) exposeEmitBinding(page *rod.Page, handle models.PageHandle) error {
	_, err := page.Expose("webcapsuleEmit", func(arg gson.JSON) (interface{}, error) {
		var event struct {
			Type string `json:"type"`
		}
		if err := json.Unmarshal([]byte(arg.Str()), &event); err != nil {
			m.logger.Warn().Err(err).Str("page", string(handle)).Msg("Malformed agent event")
			return nil, nil
		}

		switch models.PageEventType(event.Type) {
		case models.EventMutation:
			m.hub.dispatch(handle, models.EventMutation)
		case models.EventScroll:
			m.hub.dispatch(handle, models.EventScroll)
		default:
			m.logger.Debug().Str("type", event.Type).Msg("Ignoring unknown agent event")
		}
		return nil, nil
	})
	return err
}
