package swap

import (
	"fmt"
	"time"
)

// legalTransitions enumerates the per-role phase graph. Violations are
// programming errors, not protocol errors: they panic rather than return
// an error, treating an illegal phase transition as an assertion failure.
var legalTransitions = map[Role]map[Phase]Phase{
	RoleTaker: {
		PhaseSwapCreated:    PhaseSwapRequested,
		PhaseSwapRequested:  PhaseAmountSent,
		PhaseAmountSent:     PhaseAmountReceived,
		PhaseAmountReceived: PhaseSwapCompleted,
	},
	RoleMaker: {
		PhaseSwapCreated:    PhaseSwapAgreed,
		PhaseSwapAgreed:     PhaseAmountSent,
		PhaseAmountSent:     PhaseAmountReceived,
		PhaseAmountReceived: PhaseSwapCompleted,
	},
}

// advancePhase moves d to the next phase in its role's sequence, asserting
// every precondition the phase graph requires. now stamps ExecuteTime /
// CompletionTime where the transition requires it.
func (d *Deal) advancePhase(next Phase, now time.Time) {
	if d.State != StateActive {
		panic(fmt.Sprintf("swap: illegal phase advance on non-active deal %s: state=%s", d.RHashHex(), d.State))
	}

	want, ok := legalTransitions[d.MyRole][d.Phase]
	if !ok || want != next {
		panic(fmt.Sprintf("swap: illegal transition for deal %s: role=%s phase=%s -> %s", d.RHashHex(), d.MyRole, d.Phase, next))
	}

	d.Phase = next

	switch next {
	case PhaseAmountSent:
		d.ExecuteTime = now
	case PhaseSwapCompleted:
		d.CompletionTime = now
		d.State = StateCompleted
	}
}

// buildSwapResult snapshots the fields a swap.paid handler needs, called by
// whichever caller drives the deal into AmountReceived.
func (d *Deal) buildSwapResult() SwapResult {
	return SwapResult{
		OrderID:       d.OrderID,
		LocalID:       d.LocalOrderID,
		PairID:        d.PairID,
		Quantity:      d.Quantity,
		AmountReceived: d.MakerAmount,
		AmountSent:    d.TakerAmount,
		RHash:         d.RHashHex(),
		PeerPubKey:    d.PeerPubKey,
		Role:          d.MyRole,
	}
}

// Fail transitions the deal from Active to Error, or — if it is already in
// Error — concatenates the new reason onto state_reason without
// re-emitting swap.failed. Returns true the first time (the caller should
// emit swap.failed and notify the peer only on that first transition).
func (d *Deal) Fail(reason string) (first bool) {
	switch d.State {
	case StateActive:
		d.State = StateError
		d.StateReason = reason
		return true
	case StateError:
		d.StateReason = d.StateReason + "; " + reason
		return false
	default:
		// Completed deals are frozen; a Fail call here would be a
		// programming error upstream, not a protocol condition to signal.
		panic(fmt.Sprintf("swap: Fail called on %s deal %s: %s", d.State, d.RHashHex(), reason))
	}
}

// resolveDone delivers the single terminal Outcome on d.Done(). Called
// exactly once, from the point where the deal reaches AmountReceived
// (swap.paid) or first fails (swap.failed), whichever comes first.
func (d *Deal) resolveDone(completed bool, result SwapResult) {
	select {
	case d.done <- Outcome{Completed: completed, Result: result, Deal: d}:
	default:
		// Already resolved; a deal emits only one of swap.paid/swap.failed,
		// so this never happens in practice, but a non-blocking send keeps
		// a bug here from deadlocking a caller.
	}
}
