package bridge

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/webcapsule/webcapsule/internal/common"
	"github.com/webcapsule/webcapsule/internal/models"
)

// fakeChannel scripts the agent's probe behaviour.
type fakeChannel struct {
	mu         sync.Mutex
	probeCalls int
	sendTimes  []time.Time
	respond    func(action string, call int) (json.RawMessage, error)
}

func (fc *fakeChannel) Send(ctx context.Context, _ models.PageHandle, action string, _ any) (json.RawMessage, error) {
	fc.mu.Lock()
	fc.probeCalls++
	call := fc.probeCalls
	fc.sendTimes = append(fc.sendTimes, time.Now())
	fc.mu.Unlock()
	return fc.respond(action, call)
}

func (fc *fakeChannel) Subscribe(models.PageHandle, func(models.PageEvent)) {}
func (fc *fakeChannel) Unsubscribe(models.PageHandle)                      {}

type fakeInjector struct {
	mu    sync.Mutex
	calls int
	times []time.Time
}

func (fi *fakeInjector) Inject(context.Context, models.PageHandle) error {
	fi.mu.Lock()
	defer fi.mu.Unlock()
	fi.calls++
	fi.times = append(fi.times, time.Now())
	return nil
}

func fastConfig() BridgeConfig {
	return BridgeConfig{
		ProbeTimeout:   50 * time.Millisecond,
		SettleDelay:    5 * time.Millisecond,
		BackoffUnit:    10 * time.Millisecond,
		MaxAttempts:    3,
		RequestTimeout: 100 * time.Millisecond,
	}
}

func TestEnsureAgentReady_CheapPath(t *testing.T) {
	channel := &fakeChannel{
		respond: func(string, int) (json.RawMessage, error) {
			return json.RawMessage(`{"injected":true}`), nil
		},
	}
	injector := &fakeInjector{}
	b := NewContentScriptBridge(injector, channel, fastConfig(), zerolog.Nop())

	ready := b.EnsureAgentReady(context.Background(), "tab-1")

	assert.True(t, ready)
	assert.Equal(t, 0, injector.calls, "responsive agent must not trigger injection")
	assert.Equal(t, 1, channel.probeCalls)
}

func TestEnsureAgentReady_AllAttemptsFail(t *testing.T) {
	channel := &fakeChannel{
		respond: func(string, int) (json.RawMessage, error) {
			return nil, common.ErrChannelGone
		},
	}
	injector := &fakeInjector{}
	cfg := fastConfig()
	b := NewContentScriptBridge(injector, channel, cfg, zerolog.Nop())

	start := time.Now()
	ready := b.EnsureAgentReady(context.Background(), "tab-1")

	assert.False(t, ready)
	assert.Equal(t, cfg.MaxAttempts, injector.calls, "exactly MaxAttempts injection attempts are made")

	// Each attempt is preceded by attempt*BackoffUnit; the whole sequence
	// cannot have finished before the cumulative backoff elapsed.
	minElapsed := 1*cfg.BackoffUnit + 2*cfg.BackoffUnit + 3*cfg.BackoffUnit
	assert.GreaterOrEqual(t, time.Since(start), minElapsed)

	// Injection N happens only after its backoff.
	injector.mu.Lock()
	defer injector.mu.Unlock()
	require.Len(t, injector.times, 3)
	assert.GreaterOrEqual(t, injector.times[0].Sub(start), 1*cfg.BackoffUnit)
	assert.GreaterOrEqual(t, injector.times[1].Sub(injector.times[0]), 2*cfg.BackoffUnit)
	assert.GreaterOrEqual(t, injector.times[2].Sub(injector.times[1]), 3*cfg.BackoffUnit)
}

func TestEnsureAgentReady_SucceedsAfterInjection(t *testing.T) {
	channel := &fakeChannel{
		respond: func(_ string, call int) (json.RawMessage, error) {
			if call == 1 {
				return nil, common.ErrChannelGone
			}
			return json.RawMessage(`{"injected":true}`), nil
		},
	}
	injector := &fakeInjector{}
	b := NewContentScriptBridge(injector, channel, fastConfig(), zerolog.Nop())

	ready := b.EnsureAgentReady(context.Background(), "tab-1")

	assert.True(t, ready)
	assert.Equal(t, 1, injector.calls)
}

func TestEnsureAgentReady_ContextCancelled(t *testing.T) {
	channel := &fakeChannel{
		respond: func(string, int) (json.RawMessage, error) {
			return nil, common.ErrChannelGone
		},
	}
	b := NewContentScriptBridge(&fakeInjector{}, channel, fastConfig(), zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.False(t, b.EnsureAgentReady(ctx, "tab-1"))
}

func TestRequest_Timeout(t *testing.T) {
	channel := &fakeChannel{
		respond: func(string, int) (json.RawMessage, error) {
			time.Sleep(50 * time.Millisecond)
			return nil, context.DeadlineExceeded
		},
	}
	b := NewContentScriptBridge(&fakeInjector{}, channel, fastConfig(), zerolog.Nop())

	_, err := b.Request(context.Background(), "tab-1", "collectContent", nil, 10*time.Millisecond)
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrRequestTimeout)
}

func TestRequest_TransportError(t *testing.T) {
	channel := &fakeChannel{
		respond: func(string, int) (json.RawMessage, error) {
			return nil, common.ErrChannelGone
		},
	}
	b := NewContentScriptBridge(&fakeInjector{}, channel, fastConfig(), zerolog.Nop())

	_, err := b.Request(context.Background(), "tab-1", "collectContent", nil, 0)
	require.Error(t, err)

	var transportErr *common.TransportError
	assert.ErrorAs(t, err, &transportErr)
	assert.ErrorIs(t, err, common.ErrChannelGone)
}

func TestRequest_Success(t *testing.T) {
	channel := &fakeChannel{
		respond: func(action string, _ int) (json.RawMessage, error) {
			assert.Equal(t, "collectContent", action)
			return json.RawMessage(`{"title":"hello"}`), nil
		},
	}
	b := NewContentScriptBridge(&fakeInjector{}, channel, fastConfig(), zerolog.Nop())

	response, err := b.Request(context.Background(), "tab-1", "collectContent", nil, 0)
	require.NoError(t, err)
	assert.JSONEq(t, `{"title":"hello"}`, string(response))
}
