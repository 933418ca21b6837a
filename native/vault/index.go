package vault

import "math/big"

// PeekIndex computes the index grown to now without mutating state. Growth is
// linear over the single elapsed interval since the last refresh; compounding
// emerges from the natural call frequency across intervals. The result never
// decreases and fails with ErrOverflow rather than truncating.
func PeekIndex(state *VaultState, now uint64) (*big.Int, error) {
	if state == nil {
		return big.NewInt(0), nil
	}
	state.EnsureDefaults()
	current := new(big.Int).Set(state.Index)
	if state.RatePerSecond.Sign() == 0 || now <= state.LastRefresh {
		return current, nil
	}
	elapsed := new(big.Int).SetUint64(now - state.LastRefresh)
	accumulated := new(big.Int).Mul(state.RatePerSecond, elapsed)
	growth := accumulated.Add(accumulated, ray)
	next := mulDiv(current, growth, ray, RoundDown)
	return checkedWord(next)
}

// advance applies the lazy refresh to the supplied working copy, reporting
// whether stored fields changed. Callers persist and emit only on change, so
// refreshing twice at the same timestamp never double-applies growth.
func advance(state *VaultState, now uint64) (bool, error) {
	if state == nil {
		return false, errNilState
	}
	state.EnsureDefaults()
	if now <= state.LastRefresh {
		return false, nil
	}
	next, err := PeekIndex(state, now)
	if err != nil {
		return false, err
	}
	state.Index = next
	state.LastRefresh = now
	return true, nil
}

// setRate validates and applies a new annual rate to the working copy. The
// caller must have refreshed first so elapsed time accrues under the old rate;
// the new rate is never back-dated.
func setRate(state *VaultState, rateBps uint64) error {
	if state == nil {
		return errNilState
	}
	if rateBps > MaxRateBps {
		return ErrRateTooHigh
	}
	state.RateBps = rateBps
	state.RatePerSecond = ratePerSecondFromBps(rateBps)
	return nil
}
