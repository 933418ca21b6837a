package vault

import "math/big"

// VaultState captures the global accounting state for one deployed vault.
// Amounts are denominated in wei-scale base-asset units; the index is stored
// at ray (1e27) precision.
type VaultState struct {
	// Index is the cumulative growth multiplier converting between shares
	// and assets. It starts at exactly one ray and never decreases.
	Index *big.Int
	// LastRefresh records the unix timestamp of the last persisted index
	// recomputation.
	LastRefresh uint64
	// RateBps is the administrator-set annual yield rate in basis points.
	RateBps uint64
	// RatePerSecond caches RateBps converted to ray precision per second.
	// It is recomputed only when RateBps changes.
	RatePerSecond *big.Int
	// Capacity bounds the theoretical total asset value the vault accepts.
	Capacity *big.Int
	// TotalShares is the aggregate share supply across all holders.
	TotalShares *big.Int
}

// NewVaultState initialises vault state at deployment time: index at one ray,
// zero rate, and the supplied capacity ceiling.
func NewVaultState(deployedAt uint64, capacity *big.Int) *VaultState {
	state := &VaultState{
		Index:         new(big.Int).Set(ray),
		LastRefresh:   deployedAt,
		RatePerSecond: big.NewInt(0),
		Capacity:      big.NewInt(0),
		TotalShares:   big.NewInt(0),
	}
	if capacity != nil && capacity.Sign() > 0 {
		state.Capacity = new(big.Int).Set(capacity)
	}
	return state
}

// Clone returns a deep copy of the vault state.
func (s *VaultState) Clone() *VaultState {
	if s == nil {
		return nil
	}
	clone := &VaultState{
		LastRefresh: s.LastRefresh,
		RateBps:     s.RateBps,
	}
	if s.Index != nil {
		clone.Index = new(big.Int).Set(s.Index)
	}
	if s.RatePerSecond != nil {
		clone.RatePerSecond = new(big.Int).Set(s.RatePerSecond)
	}
	if s.Capacity != nil {
		clone.Capacity = new(big.Int).Set(s.Capacity)
	}
	if s.TotalShares != nil {
		clone.TotalShares = new(big.Int).Set(s.TotalShares)
	}
	return clone
}

// EnsureDefaults populates nil fields so decoded or zero-value states are safe
// to operate on. A missing index is restored to one ray, never zero.
func (s *VaultState) EnsureDefaults() {
	if s == nil {
		return
	}
	if s.Index == nil || s.Index.Sign() == 0 {
		s.Index = new(big.Int).Set(ray)
	}
	if s.RatePerSecond == nil {
		s.RatePerSecond = big.NewInt(0)
	}
	if s.Capacity == nil {
		s.Capacity = big.NewInt(0)
	}
	if s.TotalShares == nil {
		s.TotalShares = big.NewInt(0)
	}
}
