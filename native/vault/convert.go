package vault

import "math/big"

// AssetsToShares converts a base-asset amount into shares at the supplied
// index. A zero index degrades to zero rather than dividing by zero; the
// engine's invariants make that branch unreachable in practice.
func AssetsToShares(assets, index *big.Int, rounding Rounding) (*big.Int, error) {
	if index == nil || index.Sign() == 0 {
		return big.NewInt(0), nil
	}
	return checkedWord(mulDiv(assets, ray, index, rounding))
}

// SharesToAssets converts a share amount into base-asset units at the supplied
// index.
func SharesToAssets(shares, index *big.Int, rounding Rounding) (*big.Int, error) {
	return checkedWord(mulDiv(shares, index, ray, rounding))
}

// MaxIssuable returns the asset headroom left under the capacity ceiling. A
// zero ceiling closes the vault to new issuance.
func MaxIssuable(theoreticalTotalAssets, capacity *big.Int) *big.Int {
	if capacity == nil {
		return big.NewInt(0)
	}
	if theoreticalTotalAssets == nil {
		return new(big.Int).Set(capacity)
	}
	if theoreticalTotalAssets.Cmp(capacity) >= 0 {
		return big.NewInt(0)
	}
	return new(big.Int).Sub(capacity, theoreticalTotalAssets)
}
