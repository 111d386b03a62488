package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errUpstream = errors.New("upstream 503")

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestBreaker(t *testing.T, threshold int) (*CircuitBreaker, *fakeClock) {
	t.Helper()
	cfg := DefaultConfig("weather")
	cfg.FailureThreshold = threshold
	cfg.SleepWindow = 10 * time.Second

	cb, err := NewCircuitBreaker(cfg)
	require.NoError(t, err)
	clock := &fakeClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	cb.now = clock.now
	return cb, clock
}

func fail(context.Context) error    { return errUpstream }
func succeed(context.Context) error { return nil }

func TestCircuitBreaker_OpensAfterThreshold(t *testing.T) {
	cb, _ := newTestBreaker(t, 3)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		assert.ErrorIs(t, cb.Execute(ctx, fail), errUpstream)
	}
	assert.Equal(t, StateOpen, cb.State())

	calls := 0
	err := cb.Execute(ctx, func(context.Context) error { calls++; return nil })
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.Zero(t, calls, "open breaker must not call through")
	assert.Equal(t, uint64(1), cb.Metrics().Rejected)
}

func TestCircuitBreaker_SuccessResetsCount(t *testing.T) {
	cb, _ := newTestBreaker(t, 2)
	ctx := context.Background()

	_ = cb.Execute(ctx, fail)
	require.NoError(t, cb.Execute(ctx, succeed))
	_ = cb.Execute(ctx, fail)

	assert.Equal(t, StateClosed, cb.State())
	assert.Equal(t, 1, cb.Metrics().ConsecutiveFailures)
}

func TestCircuitBreaker_HalfOpenRecovery(t *testing.T) {
	cb, clock := newTestBreaker(t, 1)
	ctx := context.Background()

	_ = cb.Execute(ctx, fail)
	require.Equal(t, StateOpen, cb.State())

	clock.advance(11 * time.Second)
	require.NoError(t, cb.Execute(ctx, succeed))
	assert.Equal(t, StateClosed, cb.State())
}

func TestCircuitBreaker_HalfOpenFailureReopens(t *testing.T) {
	cb, clock := newTestBreaker(t, 1)
	ctx := context.Background()

	_ = cb.Execute(ctx, fail)
	clock.advance(11 * time.Second)
	_ = cb.Execute(ctx, fail)
	assert.Equal(t, StateOpen, cb.State())

	assert.ErrorIs(t, cb.Execute(ctx, succeed), ErrCircuitOpen)
}

func TestCircuitBreaker_HalfOpenLimitsConcurrentTrials(t *testing.T) {
	cb, clock := newTestBreaker(t, 1)
	ctx := context.Background()

	_ = cb.Execute(ctx, fail)
	clock.advance(11 * time.Second)

	release := make(chan struct{})
	started := make(chan struct{})
	done := make(chan error)
	go func() {
		done <- cb.Execute(ctx, func(context.Context) error {
			close(started)
			<-release
			return nil
		})
	}()
	<-started

	assert.ErrorIs(t, cb.Execute(ctx, succeed), ErrCircuitOpen)
	close(release)
	require.NoError(t, <-done)
	assert.Equal(t, StateClosed, cb.State())
}

func TestCircuitBreaker_PanicReleasesHalfOpenSlot(t *testing.T) {
	cb, clock := newTestBreaker(t, 1)
	ctx := context.Background()

	_ = cb.Execute(ctx, fail)
	clock.advance(11 * time.Second)

	assert.PanicsWithValue(t, "boom", func() {
		_ = cb.Execute(ctx, func(context.Context) error { panic("boom") })
	})
	assert.Equal(t, StateOpen, cb.State(), "a panic counts as a failed trial")
	assert.Equal(t, uint64(2), cb.Metrics().TotalFailures)

	clock.advance(11 * time.Second)
	require.NoError(t, cb.Execute(ctx, succeed))
	assert.Equal(t, StateClosed, cb.State())
}

func TestCircuitBreaker_PanicCountsInClosedState(t *testing.T) {
	cb, _ := newTestBreaker(t, 2)
	ctx := context.Background()

	assert.Panics(t, func() {
		_ = cb.Execute(ctx, func(context.Context) error { panic("boom") })
	})
	assert.Equal(t, StateClosed, cb.State())
	assert.Equal(t, 1, cb.Metrics().ConsecutiveFailures)
}

func TestCircuitBreaker_CancellationDoesNotCount(t *testing.T) {
	cb, _ := newTestBreaker(t, 1)

	err := cb.Execute(context.Background(), func(context.Context) error { return context.Canceled })
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, StateClosed, cb.State())
}

func TestCircuitBreaker_StateChangeCallbackAndReset(t *testing.T) {
	var transitions []string
	cfg := DefaultConfig("weather")
	cfg.FailureThreshold = 1
	cfg.OnStateChange = func(name string, from, to CircuitState) {
		transitions = append(transitions, from.String()+"->"+to.String())
	}
	cb, err := NewCircuitBreaker(cfg)
	require.NoError(t, err)

	_ = cb.Execute(context.Background(), fail)
	cb.Reset()

	assert.Equal(t, []string{"closed->open", "open->closed"}, transitions)
	assert.Equal(t, StateClosed, cb.State())
}

func TestConfig_Validate(t *testing.T) {
	cfg := DefaultConfig("x")
	cfg.FailureThreshold = 0
	_, err := NewCircuitBreaker(cfg)
	assert.Error(t, err)

	cfg = DefaultConfig("x")
	cfg.SleepWindow = 0
	_, err = NewCircuitBreaker(cfg)
	assert.Error(t, err)
}

func TestCircuitState_String(t *testing.T) {
	assert.Equal(t, "closed", StateClosed.String())
	assert.Equal(t, "open", StateOpen.String())
	assert.Equal(t, "half-open", StateHalfOpen.String())
	assert.Equal(t, "unknown", CircuitState(9).String())
}
