package vault

import (
	"errors"
	"math/big"
	"strings"

	"yieldvault/core/events"
	"yieldvault/crypto"
	nativecommon "yieldvault/native/common"
)

var (
	errNilState            = errors.New("vault engine: state not configured")
	errInvalidAmount       = errors.New("vault engine: amount must be positive")
	errInsufficientBalance = errors.New("vault engine: insufficient balance")
	errInsufficientShares  = errors.New("vault engine: insufficient shares")
	errCapacityExceeded    = errors.New("vault engine: deposit exceeds capacity")
	errZeroShares          = errors.New("vault engine: amount too small to mint shares")
	errProtectedToken      = errors.New("vault engine: token cannot be rescued")
	errNothingToRescue     = errors.New("vault engine: no balance to rescue")

	// ErrRateTooHigh rejects annual rates above the safety ceiling.
	ErrRateTooHigh = errors.New("vault engine: rate exceeds safety ceiling")
	// ErrOverflow marks a value that does not fit the 256-bit storage width.
	ErrOverflow = errors.New("vault engine: arithmetic overflow")
)

type engineState interface {
	VaultState() (*VaultState, error)
	PutVaultState(state *VaultState) error
	Balance(symbol string, addr crypto.Address) (*big.Int, error)
	PutBalance(symbol string, addr crypto.Address, amount *big.Int) error
}

// Engine orchestrates the state transitions for the savings vault. All
// mutating entry points refresh the index first, compute conversions against
// the refreshed index, and only then touch balances. Failures surface before
// any persistence so the stored state is never left half-updated.
type Engine struct {
	state       engineState
	moduleAddr  crypto.Address
	assetSymbol string
	shareSymbol string
	emitter     events.Emitter
	pauses      nativecommon.PauseView
}

// NewEngine constructs a vault engine bound to the module treasury address and
// the asset/share token symbols it accounts for.
func NewEngine(moduleAddr crypto.Address, assetSymbol, shareSymbol string) *Engine {
	return &Engine{
		moduleAddr:  moduleAddr,
		assetSymbol: strings.TrimSpace(assetSymbol),
		shareSymbol: strings.TrimSpace(shareSymbol),
	}
}

// SetState wires the engine to the external persistence layer.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetEmitter wires the observability event sink.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if e == nil {
		return
	}
	e.emitter = emitter
}

// SetPauses wires the pause switch consulted before every mutating operation.
func (e *Engine) SetPauses(p nativecommon.PauseView) {
	if e == nil {
		return
	}
	e.pauses = p
}

// ModuleAddress returns the treasury address holding vault custody balances.
func (e *Engine) ModuleAddress() crypto.Address { return e.moduleAddr }

// AssetSymbol returns the base asset token symbol.
func (e *Engine) AssetSymbol() string { return e.assetSymbol }

// ShareSymbol returns the share token symbol.
func (e *Engine) ShareSymbol() string { return e.shareSymbol }

func (e *Engine) emit(evt events.Event) {
	if e == nil || e.emitter == nil || evt == nil {
		return
	}
	e.emitter.Emit(evt)
}

func (e *Engine) loadState() (*VaultState, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	state, err := e.state.VaultState()
	if err != nil {
		return nil, err
	}
	if state == nil {
		state = NewVaultState(0, nil)
	}
	state.EnsureDefaults()
	return state, nil
}

func (e *Engine) balance(symbol string, addr crypto.Address) (*big.Int, error) {
	bal, err := e.state.Balance(symbol, addr)
	if err != nil {
		return nil, err
	}
	if bal == nil {
		return big.NewInt(0), nil
	}
	return bal, nil
}

// Refresh recomputes and persists the index as of now. It is a no-op when the
// timestamp has already been touched; the index-update event fires only when
// stored state actually changed.
func (e *Engine) Refresh(now uint64) error {
	state, err := e.loadState()
	if err != nil {
		return err
	}
	changed, err := advance(state, now)
	if err != nil {
		return err
	}
	if !changed {
		return nil
	}
	if err := e.state.PutVaultState(state); err != nil {
		return err
	}
	e.emit(&events.VaultIndexUpdated{Timestamp: now, Index: new(big.Int).Set(state.Index)})
	return nil
}

// SetRate refreshes the index under the old rate up to the switch point, then
// applies the new annual rate and recomputes the cached per-second rate.
// Rates above MaxRateBps fail with ErrRateTooHigh and leave state untouched.
func (e *Engine) SetRate(rateBps uint64, now uint64) error {
	if err := nativecommon.Guard(e.pauses, ModuleName); err != nil {
		return err
	}
	state, err := e.loadState()
	if err != nil {
		return err
	}
	changed, err := advance(state, now)
	if err != nil {
		return err
	}
	oldRate := state.RateBps
	if err := setRate(state, rateBps); err != nil {
		return err
	}
	if err := e.state.PutVaultState(state); err != nil {
		return err
	}
	if changed {
		e.emit(&events.VaultIndexUpdated{Timestamp: now, Index: new(big.Int).Set(state.Index)})
	}
	e.emit(&events.VaultRateUpdated{
		Timestamp:     now,
		OldRateBps:    oldRate,
		NewRateBps:    rateBps,
		RatePerSecond: new(big.Int).Set(state.RatePerSecond),
	})
	return nil
}

// SetCapacity refreshes the index and replaces the capacity ceiling. Lowering
// the ceiling below the current theoretical assets blocks new issuance but
// never claws back existing claims.
func (e *Engine) SetCapacity(capacity *big.Int, now uint64) error {
	if err := nativecommon.Guard(e.pauses, ModuleName); err != nil {
		return err
	}
	if capacity == nil || capacity.Sign() < 0 {
		return errInvalidAmount
	}
	state, err := e.loadState()
	if err != nil {
		return err
	}
	changed, err := advance(state, now)
	if err != nil {
		return err
	}
	state.Capacity = new(big.Int).Set(capacity)
	if err := e.state.PutVaultState(state); err != nil {
		return err
	}
	if changed {
		e.emit(&events.VaultIndexUpdated{Timestamp: now, Index: new(big.Int).Set(state.Index)})
	}
	e.emit(&events.VaultCapacityUpdated{Timestamp: now, Capacity: new(big.Int).Set(capacity)})
	return nil
}

// Deposit moves base assets from the owner into the vault treasury and mints
// shares at the refreshed index, rounding the issued shares down. The minted
// share amount is returned.
func (e *Engine) Deposit(owner crypto.Address, assets *big.Int, now uint64) (*big.Int, error) {
	if err := nativecommon.Guard(e.pauses, ModuleName); err != nil {
		return nil, err
	}
	if assets == nil || assets.Sign() <= 0 {
		return nil, errInvalidAmount
	}
	state, err := e.loadState()
	if err != nil {
		return nil, err
	}
	changed, err := advance(state, now)
	if err != nil {
		return nil, err
	}
	if err := e.checkCapacity(state, assets); err != nil {
		return nil, err
	}
	shares, err := AssetsToShares(assets, state.Index, RoundDown)
	if err != nil {
		return nil, err
	}
	if shares.Sign() == 0 {
		return nil, errZeroShares
	}
	if err := e.settleDeposit(state, owner, assets, shares); err != nil {
		return nil, err
	}
	e.emitMovement(changed, now, state, &events.VaultDeposited{
		Owner:  owner.Bytes(),
		Assets: new(big.Int).Set(assets),
		Shares: new(big.Int).Set(shares),
	})
	return shares, nil
}

// Mint issues exactly the requested shares and charges the owner the asset
// amount required at the refreshed index, rounding the required assets up.
// The charged asset amount is returned.
func (e *Engine) Mint(owner crypto.Address, shares *big.Int, now uint64) (*big.Int, error) {
	if err := nativecommon.Guard(e.pauses, ModuleName); err != nil {
		return nil, err
	}
	if shares == nil || shares.Sign() <= 0 {
		return nil, errInvalidAmount
	}
	state, err := e.loadState()
	if err != nil {
		return nil, err
	}
	changed, err := advance(state, now)
	if err != nil {
		return nil, err
	}
	assets, err := SharesToAssets(shares, state.Index, RoundUp)
	if err != nil {
		return nil, err
	}
	if assets.Sign() == 0 {
		return nil, errInvalidAmount
	}
	if err := e.checkCapacity(state, assets); err != nil {
		return nil, err
	}
	if err := e.settleDeposit(state, owner, assets, shares); err != nil {
		return nil, err
	}
	e.emitMovement(changed, now, state, &events.VaultDeposited{
		Owner:  owner.Bytes(),
		Assets: new(big.Int).Set(assets),
		Shares: new(big.Int).Set(shares),
	})
	return assets, nil
}

// Withdraw pays out the requested asset amount, burning the share cost rounded
// up. The payout is clamped to the treasury's real on-hand balance; a clamp is
// surfaced through a shortfall event, not an error. Returns the shares burned
// and the assets actually paid.
func (e *Engine) Withdraw(owner crypto.Address, assets *big.Int, now uint64) (*big.Int, *big.Int, error) {
	if err := nativecommon.Guard(e.pauses, ModuleName); err != nil {
		return nil, nil, err
	}
	if assets == nil || assets.Sign() <= 0 {
		return nil, nil, errInvalidAmount
	}
	state, err := e.loadState()
	if err != nil {
		return nil, nil, err
	}
	changed, err := advance(state, now)
	if err != nil {
		return nil, nil, err
	}
	payout, err := e.clampToOnHand(state, assets, now)
	if err != nil {
		return nil, nil, err
	}
	if payout.Sign() == 0 {
		return nil, nil, errInsufficientBalance
	}
	shares, err := AssetsToShares(payout, state.Index, RoundUp)
	if err != nil {
		return nil, nil, err
	}
	if err := e.settleWithdraw(state, owner, payout, shares); err != nil {
		return nil, nil, err
	}
	e.emitMovement(changed, now, state, &events.VaultWithdrawn{
		Owner:  owner.Bytes(),
		Assets: new(big.Int).Set(payout),
		Shares: new(big.Int).Set(shares),
	})
	return shares, payout, nil
}

// Redeem burns the requested shares and pays out their asset value rounded
// down, clamped to the treasury's on-hand balance. When clamping occurs, only
// the shares covering the clamped payout are burned so the holder keeps the
// unredeemed remainder of the claim. Returns the shares burned and the assets
// paid.
func (e *Engine) Redeem(owner crypto.Address, shares *big.Int, now uint64) (*big.Int, *big.Int, error) {
	if err := nativecommon.Guard(e.pauses, ModuleName); err != nil {
		return nil, nil, err
	}
	if shares == nil || shares.Sign() <= 0 {
		return nil, nil, errInvalidAmount
	}
	state, err := e.loadState()
	if err != nil {
		return nil, nil, err
	}
	changed, err := advance(state, now)
	if err != nil {
		return nil, nil, err
	}
	assets, err := SharesToAssets(shares, state.Index, RoundDown)
	if err != nil {
		return nil, nil, err
	}
	payout, err := e.clampToOnHand(state, assets, now)
	if err != nil {
		return nil, nil, err
	}
	if payout.Sign() == 0 {
		return nil, nil, errInsufficientBalance
	}
	burned := new(big.Int).Set(shares)
	if payout.Cmp(assets) < 0 {
		burned, err = AssetsToShares(payout, state.Index, RoundUp)
		if err != nil {
			return nil, nil, err
		}
	}
	if err := e.settleWithdraw(state, owner, payout, burned); err != nil {
		return nil, nil, err
	}
	e.emitMovement(changed, now, state, &events.VaultWithdrawn{
		Owner:  owner.Bytes(),
		Assets: new(big.Int).Set(payout),
		Shares: new(big.Int).Set(burned),
	})
	return burned, payout, nil
}

// TransferShares moves shares between holders. The index is refreshed first so
// any preview performed against the transfer observes current valuations.
func (e *Engine) TransferShares(from, to crypto.Address, shares *big.Int, now uint64) error {
	if err := nativecommon.Guard(e.pauses, ModuleName); err != nil {
		return err
	}
	if shares == nil || shares.Sign() <= 0 {
		return errInvalidAmount
	}
	state, err := e.loadState()
	if err != nil {
		return err
	}
	changed, err := advance(state, now)
	if err != nil {
		return err
	}
	fromBal, err := e.balance(e.shareSymbol, from)
	if err != nil {
		return err
	}
	if fromBal.Cmp(shares) < 0 {
		return errInsufficientShares
	}
	toBal, err := e.balance(e.shareSymbol, to)
	if err != nil {
		return err
	}
	newToBal, err := checkedWord(new(big.Int).Add(toBal, shares))
	if err != nil {
		return err
	}
	if err := e.state.PutBalance(e.shareSymbol, from, new(big.Int).Sub(fromBal, shares)); err != nil {
		return err
	}
	if err := e.state.PutBalance(e.shareSymbol, to, newToBal); err != nil {
		return err
	}
	if err := e.state.PutVaultState(state); err != nil {
		return err
	}
	e.emitMovement(changed, now, state, &events.VaultSharesTransferred{
		From:   from.Bytes(),
		To:     to.Bytes(),
		Shares: new(big.Int).Set(shares),
	})
	return nil
}

// Rescue sweeps the full treasury balance of a foreign token to the recipient.
// The base asset and the share token are protected and cannot be swept.
func (e *Engine) Rescue(token string, recipient crypto.Address, now uint64) (*big.Int, error) {
	if err := nativecommon.Guard(e.pauses, ModuleName); err != nil {
		return nil, err
	}
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	token = strings.TrimSpace(token)
	if token == "" || token == e.assetSymbol || token == e.shareSymbol {
		return nil, errProtectedToken
	}
	held, err := e.balance(token, e.moduleAddr)
	if err != nil {
		return nil, err
	}
	if held.Sign() == 0 {
		return nil, errNothingToRescue
	}
	recipientBal, err := e.balance(token, recipient)
	if err != nil {
		return nil, err
	}
	newRecipientBal, err := checkedWord(new(big.Int).Add(recipientBal, held))
	if err != nil {
		return nil, err
	}
	if err := e.state.PutBalance(token, e.moduleAddr, big.NewInt(0)); err != nil {
		return nil, err
	}
	if err := e.state.PutBalance(token, recipient, newRecipientBal); err != nil {
		return nil, err
	}
	e.emit(&events.VaultTokensRescued{
		Timestamp: now,
		Token:     token,
		Recipient: recipient.Bytes(),
		Amount:    new(big.Int).Set(held),
	})
	return held, nil
}

func (e *Engine) checkCapacity(state *VaultState, assets *big.Int) error {
	theoretical, err := SharesToAssets(state.TotalShares, state.Index, RoundDown)
	if err != nil {
		return err
	}
	headroom := MaxIssuable(theoretical, state.Capacity)
	if assets.Cmp(headroom) > 0 {
		return errCapacityExceeded
	}
	return nil
}

func (e *Engine) settleDeposit(state *VaultState, owner crypto.Address, assets, shares *big.Int) error {
	ownerAssets, err := e.balance(e.assetSymbol, owner)
	if err != nil {
		return err
	}
	if ownerAssets.Cmp(assets) < 0 {
		return errInsufficientBalance
	}
	moduleAssets, err := e.balance(e.assetSymbol, e.moduleAddr)
	if err != nil {
		return err
	}
	newModuleAssets, err := checkedWord(new(big.Int).Add(moduleAssets, assets))
	if err != nil {
		return err
	}
	ownerShares, err := e.balance(e.shareSymbol, owner)
	if err != nil {
		return err
	}
	newOwnerShares, err := checkedWord(new(big.Int).Add(ownerShares, shares))
	if err != nil {
		return err
	}
	newTotalShares, err := checkedWord(new(big.Int).Add(state.TotalShares, shares))
	if err != nil {
		return err
	}

	if err := e.state.PutBalance(e.assetSymbol, owner, new(big.Int).Sub(ownerAssets, assets)); err != nil {
		return err
	}
	if err := e.state.PutBalance(e.assetSymbol, e.moduleAddr, newModuleAssets); err != nil {
		return err
	}
	if err := e.state.PutBalance(e.shareSymbol, owner, newOwnerShares); err != nil {
		return err
	}
	state.TotalShares = newTotalShares
	return e.state.PutVaultState(state)
}

func (e *Engine) settleWithdraw(state *VaultState, owner crypto.Address, assets, shares *big.Int) error {
	ownerShares, err := e.balance(e.shareSymbol, owner)
	if err != nil {
		return err
	}
	if ownerShares.Cmp(shares) < 0 {
		return errInsufficientShares
	}
	moduleAssets, err := e.balance(e.assetSymbol, e.moduleAddr)
	if err != nil {
		return err
	}
	if moduleAssets.Cmp(assets) < 0 {
		return errInsufficientBalance
	}
	ownerAssets, err := e.balance(e.assetSymbol, owner)
	if err != nil {
		return err
	}
	newOwnerAssets, err := checkedWord(new(big.Int).Add(ownerAssets, assets))
	if err != nil {
		return err
	}
	if state.TotalShares.Cmp(shares) < 0 {
		return errInsufficientShares
	}

	if err := e.state.PutBalance(e.shareSymbol, owner, new(big.Int).Sub(ownerShares, shares)); err != nil {
		return err
	}
	if err := e.state.PutBalance(e.assetSymbol, e.moduleAddr, new(big.Int).Sub(moduleAssets, assets)); err != nil {
		return err
	}
	if err := e.state.PutBalance(e.assetSymbol, owner, newOwnerAssets); err != nil {
		return err
	}
	state.TotalShares = new(big.Int).Sub(state.TotalShares, shares)
	return e.state.PutVaultState(state)
}

// clampToOnHand caps a requested payout at the treasury's real asset balance
// and surfaces the gap between the theoretical claim and the held balance.
func (e *Engine) clampToOnHand(state *VaultState, requested *big.Int, now uint64) (*big.Int, error) {
	onHand, err := e.balance(e.assetSymbol, e.moduleAddr)
	if err != nil {
		return nil, err
	}
	if requested.Cmp(onHand) <= 0 {
		return new(big.Int).Set(requested), nil
	}
	theoretical, err := SharesToAssets(state.TotalShares, state.Index, RoundDown)
	if err != nil {
		return nil, err
	}
	e.emit(&events.VaultShortfall{
		Timestamp:   now,
		Theoretical: theoretical,
		OnHand:      new(big.Int).Set(onHand),
	})
	return new(big.Int).Set(onHand), nil
}

func (e *Engine) emitMovement(indexChanged bool, now uint64, state *VaultState, evt events.Event) {
	if indexChanged {
		e.emit(&events.VaultIndexUpdated{Timestamp: now, Index: new(big.Int).Set(state.Index)})
	}
	e.emit(evt)
}
