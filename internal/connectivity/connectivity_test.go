package connectivity

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakePinger struct {
	mu  sync.Mutex
	err error
}

func (f *fakePinger) PingContext(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.err
}

func (f *fakePinger) setErr(err error) {
	f.mu.Lock()
	f.err = err
	f.mu.Unlock()
}

func waitEvent(t *testing.T, events <-chan State) State {
	t.Helper()
	select {
	case state := <-events:
		return state
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for connectivity event")
		return Offline
	}
}

func TestProbeEmitsTransitions(t *testing.T) {
	pinger := &fakePinger{err: errors.New("refused")}
	probe := NewProbe(pinger, 10*time.Millisecond, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	probe.Start(ctx)
	defer probe.Close()

	assert.False(t, probe.Online(), "starts offline when the target is unreachable")

	pinger.setErr(nil)
	assert.Equal(t, Online, waitEvent(t, probe.Events()))
	assert.True(t, probe.Online())

	pinger.setErr(errors.New("refused"))
	assert.Equal(t, Offline, waitEvent(t, probe.Events()))
	assert.False(t, probe.Online())
}

func TestProbeInitialOnline(t *testing.T) {
	probe := NewProbe(&fakePinger{}, time.Hour, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	probe.Start(ctx)
	defer probe.Close()

	assert.True(t, probe.Online(), "initial check runs synchronously")
	assert.Equal(t, Online, waitEvent(t, probe.Events()))
}

func TestProbeNoDuplicateEvents(t *testing.T) {
	probe := NewProbe(&fakePinger{}, 5*time.Millisecond, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	probe.Start(ctx)
	defer probe.Close()

	require.Equal(t, Online, waitEvent(t, probe.Events()))

	// Steady state produces no further events.
	select {
	case state := <-probe.Events():
		t.Fatalf("unexpected event %v", state)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "online", Online.String())
	assert.Equal(t, "offline", Offline.String())
}
