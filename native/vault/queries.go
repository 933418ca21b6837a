package vault

import (
	"math/big"

	"yieldvault/crypto"
)

// PeekCurrentIndex returns the theoretical index as of now without persisting
// anything. Preview and quote paths use this instead of the stored index.
func (e *Engine) PeekCurrentIndex(now uint64) (*big.Int, error) {
	state, err := e.loadState()
	if err != nil {
		return nil, err
	}
	return PeekIndex(state, now)
}

// State returns a deep copy of the persisted vault state.
func (e *Engine) State() (*VaultState, error) {
	state, err := e.loadState()
	if err != nil {
		return nil, err
	}
	return state.Clone(), nil
}

// TotalAssets reports the theoretical total asset value backing the share
// supply at the freshly peeked index.
func (e *Engine) TotalAssets(now uint64) (*big.Int, error) {
	state, err := e.loadState()
	if err != nil {
		return nil, err
	}
	index, err := PeekIndex(state, now)
	if err != nil {
		return nil, err
	}
	return SharesToAssets(state.TotalShares, index, RoundDown)
}

// PreviewDeposit quotes the shares a deposit of the given assets would mint.
func (e *Engine) PreviewDeposit(assets *big.Int, now uint64) (*big.Int, error) {
	index, err := e.PeekCurrentIndex(now)
	if err != nil {
		return nil, err
	}
	return AssetsToShares(assets, index, RoundDown)
}

// PreviewMint quotes the assets required to mint the given shares.
func (e *Engine) PreviewMint(shares *big.Int, now uint64) (*big.Int, error) {
	index, err := e.PeekCurrentIndex(now)
	if err != nil {
		return nil, err
	}
	return SharesToAssets(shares, index, RoundUp)
}

// PreviewWithdraw quotes the shares burned to withdraw the given assets.
func (e *Engine) PreviewWithdraw(assets *big.Int, now uint64) (*big.Int, error) {
	index, err := e.PeekCurrentIndex(now)
	if err != nil {
		return nil, err
	}
	return AssetsToShares(assets, index, RoundUp)
}

// PreviewRedeem quotes the assets paid for redeeming the given shares.
func (e *Engine) PreviewRedeem(shares *big.Int, now uint64) (*big.Int, error) {
	index, err := e.PeekCurrentIndex(now)
	if err != nil {
		return nil, err
	}
	return SharesToAssets(shares, index, RoundDown)
}

// MaxDeposit reports the asset headroom remaining under the capacity ceiling
// at the freshly peeked index.
func (e *Engine) MaxDeposit(now uint64) (*big.Int, error) {
	state, err := e.loadState()
	if err != nil {
		return nil, err
	}
	index, err := PeekIndex(state, now)
	if err != nil {
		return nil, err
	}
	theoretical, err := SharesToAssets(state.TotalShares, index, RoundDown)
	if err != nil {
		return nil, err
	}
	return MaxIssuable(theoretical, state.Capacity), nil
}

// MaxMint reports the share amount still mintable under the capacity ceiling.
func (e *Engine) MaxMint(now uint64) (*big.Int, error) {
	state, err := e.loadState()
	if err != nil {
		return nil, err
	}
	index, err := PeekIndex(state, now)
	if err != nil {
		return nil, err
	}
	theoretical, err := SharesToAssets(state.TotalShares, index, RoundDown)
	if err != nil {
		return nil, err
	}
	return AssetsToShares(MaxIssuable(theoretical, state.Capacity), index, RoundDown)
}

// SharesOf returns the share balance held by an address.
func (e *Engine) SharesOf(addr crypto.Address) (*big.Int, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	return e.balance(e.shareSymbol, addr)
}

// AssetsOf returns the base asset balance held by an address.
func (e *Engine) AssetsOf(addr crypto.Address) (*big.Int, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	return e.balance(e.assetSymbol, addr)
}

// MaxRedeemable reports the assets an address could actually collect right
// now: the minimum of the share-proportional claim and the treasury's on-hand
// balance.
func (e *Engine) MaxRedeemable(addr crypto.Address, now uint64) (*big.Int, error) {
	state, err := e.loadState()
	if err != nil {
		return nil, err
	}
	index, err := PeekIndex(state, now)
	if err != nil {
		return nil, err
	}
	held, err := e.balance(e.shareSymbol, addr)
	if err != nil {
		return nil, err
	}
	claim, err := SharesToAssets(held, index, RoundDown)
	if err != nil {
		return nil, err
	}
	onHand, err := e.balance(e.assetSymbol, e.moduleAddr)
	if err != nil {
		return nil, err
	}
	if claim.Cmp(onHand) > 0 {
		return new(big.Int).Set(onHand), nil
	}
	return claim, nil
}
