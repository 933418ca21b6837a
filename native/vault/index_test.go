package vault

import (
	"math/big"
	"testing"
)

func newTestState(rateBps uint64, deployedAt uint64) *VaultState {
	state := NewVaultState(deployedAt, nil)
	if err := setRate(state, rateBps); err != nil {
		panic(err)
	}
	return state
}

func TestPeekIndexZeroRateInvariance(t *testing.T) {
	state := newTestState(0, 1_000)
	got, err := PeekIndex(state, 50_000_000)
	if err != nil {
		t.Fatalf("peek: %v", err)
	}
	if got.Cmp(state.Index) != 0 {
		t.Fatalf("zero-rate peek must return the stored index: got %s want %s", got, state.Index)
	}
}

func TestPeekIndexZeroTimeInvariance(t *testing.T) {
	state := newTestState(1000, 1_000)
	got, err := PeekIndex(state, state.LastRefresh)
	if err != nil {
		t.Fatalf("peek: %v", err)
	}
	if got.Cmp(state.Index) != 0 {
		t.Fatalf("same-timestamp peek must return the stored index: got %s want %s", got, state.Index)
	}
}

func TestPeekIndexNeverDecreases(t *testing.T) {
	state := newTestState(5000, 0)
	prev := new(big.Int).Set(state.Index)
	for _, now := range []uint64{0, 1, 60, 3_600, 86_400, secondsPerYear, 10 * secondsPerYear} {
		got, err := PeekIndex(state, now)
		if err != nil {
			t.Fatalf("peek at %d: %v", now, err)
		}
		if got.Cmp(prev) < 0 {
			t.Fatalf("index decreased at %d: %s < %s", now, got, prev)
		}
		prev = got
	}
}

func TestAdvanceMonotoneAcrossRefreshes(t *testing.T) {
	state := newTestState(1000, 0)
	prev := new(big.Int).Set(state.Index)
	for _, now := range []uint64{10, 10, 500, 500, 86_400, 86_400 * 30, secondsPerYear} {
		if _, err := advance(state, now); err != nil {
			t.Fatalf("advance to %d: %v", now, err)
		}
		if state.Index.Cmp(prev) < 0 {
			t.Fatalf("index regressed at %d: %s < %s", now, state.Index, prev)
		}
		if state.LastRefresh > now {
			t.Fatalf("lastRefresh ran ahead of now: %d > %d", state.LastRefresh, now)
		}
		prev = new(big.Int).Set(state.Index)
	}
}

func TestAdvanceIdempotentPerTimestamp(t *testing.T) {
	state := newTestState(1000, 0)
	changed, err := advance(state, 86_400)
	if err != nil {
		t.Fatalf("first advance: %v", err)
	}
	if !changed {
		t.Fatalf("expected first advance to change state")
	}
	want := new(big.Int).Set(state.Index)

	changed, err = advance(state, 86_400)
	if err != nil {
		t.Fatalf("second advance: %v", err)
	}
	if changed {
		t.Fatalf("advance at an already-touched timestamp must be a no-op")
	}
	if state.Index.Cmp(want) != 0 {
		t.Fatalf("growth double-applied: got %s want %s", state.Index, want)
	}
}

func TestAdvanceIgnoresEarlierTimestamp(t *testing.T) {
	state := newTestState(1000, 10_000)
	changed, err := advance(state, 5_000)
	if err != nil {
		t.Fatalf("advance: %v", err)
	}
	if changed {
		t.Fatalf("advance must not move backwards in time")
	}
	if state.LastRefresh != 10_000 {
		t.Fatalf("lastRefresh regressed to %d", state.LastRefresh)
	}
}

func TestOneYearAtTenPercent(t *testing.T) {
	state := newTestState(1000, 0)
	if _, err := advance(state, secondsPerYear); err != nil {
		t.Fatalf("advance: %v", err)
	}

	// Linear approximation over a single untouched year: index ~= 1.1 ray
	// within one part in 1e9.
	want := new(big.Int).Mul(ray, big.NewInt(11))
	want.Quo(want, big.NewInt(10))
	diff := new(big.Int).Sub(want, state.Index)
	if diff.Sign() < 0 {
		diff.Neg(diff)
	}
	tolerance := new(big.Int).Quo(ray, big.NewInt(1_000_000_000))
	if diff.Cmp(tolerance) > 0 {
		t.Fatalf("index after one year at 10%% APR off by %s: got %s want ~%s", diff, state.Index, want)
	}
}

func TestSetRateCeiling(t *testing.T) {
	state := newTestState(0, 0)
	before := state.Clone()

	if err := setRate(state, MaxRateBps+1); err != ErrRateTooHigh {
		t.Fatalf("expected ErrRateTooHigh, got %v", err)
	}
	if state.RateBps != before.RateBps || state.RatePerSecond.Cmp(before.RatePerSecond) != 0 {
		t.Fatalf("rejected rate change mutated state")
	}

	if err := setRate(state, MaxRateBps); err != nil {
		t.Fatalf("ceiling rate must be accepted: %v", err)
	}
	if state.RateBps != MaxRateBps {
		t.Fatalf("rate not applied: got %d", state.RateBps)
	}
	if state.RatePerSecond.Cmp(ratePerSecondFromBps(MaxRateBps)) != 0 {
		t.Fatalf("per-second cache not recomputed")
	}
}

func TestPeekIndexOverflow(t *testing.T) {
	state := newTestState(5000, 0)
	nearMax := new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))
	state.Index = nearMax

	if _, err := PeekIndex(state, secondsPerYear); err != ErrOverflow {
		t.Fatalf("expected ErrOverflow, got %v", err)
	}
	if _, err := advance(state, secondsPerYear); err != ErrOverflow {
		t.Fatalf("advance must surface the overflow, got %v", err)
	}
	if state.LastRefresh != 0 {
		t.Fatalf("failed advance mutated lastRefresh: %d", state.LastRefresh)
	}
	if state.Index.Cmp(nearMax) != 0 {
		t.Fatalf("failed advance mutated index")
	}
}
