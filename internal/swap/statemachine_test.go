package swap

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTakerPhaseSequence(t *testing.T) {
	now := time.Now()
	d := newDeal(RoleTaker, now)
	assert.Equal(t, PhaseSwapCreated, d.Phase)

	d.advancePhase(PhaseSwapRequested, now)
	assert.Equal(t, PhaseSwapRequested, d.Phase)

	d.advancePhase(PhaseAmountSent, now)
	assert.Equal(t, PhaseAmountSent, d.Phase)
	assert.Equal(t, now, d.ExecuteTime)

	d.advancePhase(PhaseAmountReceived, now)
	assert.Equal(t, PhaseAmountReceived, d.Phase)

	d.advancePhase(PhaseSwapCompleted, now)
	assert.Equal(t, PhaseSwapCompleted, d.Phase)
	assert.Equal(t, StateCompleted, d.State)
	assert.Equal(t, now, d.CompletionTime)
}

func TestMakerCannotTakeTakerOnlyTransition(t *testing.T) {
	d := newDeal(RoleMaker, time.Now())
	assert.Panics(t, func() {
		d.advancePhase(PhaseSwapRequested, time.Now())
	})
}

func TestCannotSkipPhases(t *testing.T) {
	d := newDeal(RoleTaker, time.Now())
	assert.Panics(t, func() {
		d.advancePhase(PhaseAmountSent, time.Now())
	})
}

func TestCannotAdvanceNonActiveDeal(t *testing.T) {
	d := newDeal(RoleTaker, time.Now())
	d.Fail("boom")
	assert.Panics(t, func() {
		d.advancePhase(PhaseSwapRequested, time.Now())
	})
}

// TestDoubleError checks that failing an already-failed deal appends to
// the reason instead of re-emitting swap.failed or resetting state.
func TestDoubleError(t *testing.T) {
	d := newDeal(RoleTaker, time.Now())

	first := d.Fail("A")
	assert.True(t, first)
	assert.Equal(t, "A", d.StateReason)
	assert.Equal(t, StateError, d.State)

	second := d.Fail("B")
	assert.False(t, second)
	assert.Equal(t, "A; B", d.StateReason)
}

func TestFailOnCompletedDealPanics(t *testing.T) {
	now := time.Now()
	d := newDeal(RoleTaker, now)
	d.advancePhase(PhaseSwapRequested, now)
	d.advancePhase(PhaseAmountSent, now)
	d.advancePhase(PhaseAmountReceived, now)
	d.advancePhase(PhaseSwapCompleted, now)

	assert.Panics(t, func() { d.Fail("too late") })
}

func TestDoneChannelResolvesOnce(t *testing.T) {
	d := newDeal(RoleTaker, time.Now())
	result := SwapResult{RHash: d.RHashHex()}
	d.resolveDone(true, result)

	select {
	case out := <-d.Done():
		assert.True(t, out.Completed)
		assert.Equal(t, result, out.Result)
	default:
		t.Fatal("expected outcome on Done channel")
	}

	// A second resolveDone must not block or panic.
	d.resolveDone(false, SwapResult{})
}

func TestIsStale(t *testing.T) {
	now := time.Now()
	d := newDeal(RoleTaker, now)
	assert.False(t, d.IsStale(now, time.Hour))
	assert.True(t, d.IsStale(now.Add(2*time.Hour), time.Hour))

	d.Fail("done")
	assert.False(t, d.IsStale(now.Add(2*time.Hour), time.Hour), "only Active deals are stale")
}
