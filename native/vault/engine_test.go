package vault

import (
	"math/big"
	"testing"

	"yieldvault/core/events"
	"yieldvault/crypto"
)

type mockEngineState struct {
	state    *VaultState
	balances map[string]*big.Int
}

func newMockEngineState() *mockEngineState {
	return &mockEngineState{balances: make(map[string]*big.Int)}
}

func (m *mockEngineState) key(symbol string, addr crypto.Address) string {
	return symbol + ":" + string(addr.Bytes())
}

func (m *mockEngineState) VaultState() (*VaultState, error) {
	return m.state, nil
}

func (m *mockEngineState) PutVaultState(state *VaultState) error {
	m.state = state
	return nil
}

func (m *mockEngineState) Balance(symbol string, addr crypto.Address) (*big.Int, error) {
	if bal, ok := m.balances[m.key(symbol, addr)]; ok {
		return new(big.Int).Set(bal), nil
	}
	return big.NewInt(0), nil
}

func (m *mockEngineState) PutBalance(symbol string, addr crypto.Address, amount *big.Int) error {
	m.balances[m.key(symbol, addr)] = new(big.Int).Set(amount)
	return nil
}

func (m *mockEngineState) setBalance(symbol string, addr crypto.Address, amount int64) {
	m.balances[m.key(symbol, addr)] = big.NewInt(amount)
}

type captureEmitter struct {
	emitted []events.Event
}

func (c *captureEmitter) Emit(evt events.Event) {
	c.emitted = append(c.emitted, evt)
}

func (c *captureEmitter) ofType(eventType string) []events.Event {
	var matched []events.Event
	for _, evt := range c.emitted {
		if evt.EventType() == eventType {
			matched = append(matched, evt)
		}
	}
	return matched
}

type stubPauses struct {
	paused bool
}

func (s stubPauses) IsPaused(string) bool { return s.paused }

func makeAddress(prefix crypto.AddressPrefix, suffix byte) crypto.Address {
	raw := make([]byte, 20)
	raw[len(raw)-1] = suffix
	return crypto.MustNewAddress(prefix, raw)
}

const (
	testAsset = "USD"
	testShare = "sUSD"
)

func newTestEngine(capacity int64) (*Engine, *mockEngineState, *captureEmitter) {
	moduleAddr := makeAddress(crypto.ModulePrefix, 0x01)
	engine := NewEngine(moduleAddr, testAsset, testShare)
	state := newMockEngineState()
	state.state = NewVaultState(0, big.NewInt(capacity))
	emitter := &captureEmitter{}
	engine.SetState(state)
	engine.SetEmitter(emitter)
	return engine, state, emitter
}

func TestDepositMintsSharesAtUnitIndex(t *testing.T) {
	engine, state, emitter := newTestEngine(1_000_000)
	owner := makeAddress(crypto.AccountPrefix, 0x02)
	state.setBalance(testAsset, owner, 1_000)

	shares, err := engine.Deposit(owner, big.NewInt(100), 0)
	if err != nil {
		t.Fatalf("deposit: %v", err)
	}
	if shares.Cmp(big.NewInt(100)) != 0 {
		t.Fatalf("unit-index deposit must mint 1:1: got %s", shares)
	}

	ownerAssets, _ := engine.AssetsOf(owner)
	if ownerAssets.Cmp(big.NewInt(900)) != 0 {
		t.Fatalf("owner asset balance: got %s want 900", ownerAssets)
	}
	moduleAssets, _ := engine.AssetsOf(engine.ModuleAddress())
	if moduleAssets.Cmp(big.NewInt(100)) != 0 {
		t.Fatalf("treasury balance: got %s want 100", moduleAssets)
	}
	if state.state.TotalShares.Cmp(big.NewInt(100)) != 0 {
		t.Fatalf("total shares: got %s want 100", state.state.TotalShares)
	}
	if got := emitter.ofType(events.TypeVaultDeposited); len(got) != 1 {
		t.Fatalf("expected one deposit event, got %d", len(got))
	}
}

func TestDepositThenRedeemAfterOneYear(t *testing.T) {
	engine, state, emitter := newTestEngine(1_000_000)
	owner := makeAddress(crypto.AccountPrefix, 0x03)
	state.setBalance(testAsset, owner, 1_000)

	if err := engine.SetRate(1000, 0); err != nil {
		t.Fatalf("set rate: %v", err)
	}
	shares, err := engine.Deposit(owner, big.NewInt(100), 0)
	if err != nil {
		t.Fatalf("deposit: %v", err)
	}
	if shares.Cmp(big.NewInt(100)) != 0 {
		t.Fatalf("expected 100 shares, got %s", shares)
	}

	// Fund the treasury so the accrued claim is fully backed.
	state.setBalance(testAsset, engine.ModuleAddress(), 200)

	burned, payout, err := engine.Redeem(owner, big.NewInt(100), secondsPerYear)
	if err != nil {
		t.Fatalf("redeem: %v", err)
	}
	if burned.Cmp(big.NewInt(100)) != 0 {
		t.Fatalf("expected all shares burned, got %s", burned)
	}
	// 10% APR over exactly one year: payout in [109, 110] after floor
	// rounding against the linear index.
	if payout.Cmp(big.NewInt(109)) < 0 || payout.Cmp(big.NewInt(110)) > 0 {
		t.Fatalf("payout outside [109, 110]: got %s", payout)
	}
	if got := emitter.ofType(events.TypeVaultShortfall); len(got) != 0 {
		t.Fatalf("fully backed redemption must not report a shortfall")
	}
}

func TestLaterDepositorReceivesFewerShares(t *testing.T) {
	engine, state, _ := newTestEngine(1_000_000)
	early := makeAddress(crypto.AccountPrefix, 0x04)
	late := makeAddress(crypto.AccountPrefix, 0x05)
	state.setBalance(testAsset, early, 1_000)
	state.setBalance(testAsset, late, 1_000)

	if err := engine.SetRate(1000, 0); err != nil {
		t.Fatalf("set rate: %v", err)
	}
	earlyShares, err := engine.Deposit(early, big.NewInt(100), 0)
	if err != nil {
		t.Fatalf("early deposit: %v", err)
	}
	lateShares, err := engine.Deposit(late, big.NewInt(100), secondsPerYear)
	if err != nil {
		t.Fatalf("late deposit: %v", err)
	}
	if lateShares.Cmp(earlyShares) >= 0 {
		t.Fatalf("later depositor must receive fewer shares: early %s late %s", earlyShares, lateShares)
	}
}

func TestMintChargesAssetsRoundedUp(t *testing.T) {
	engine, state, _ := newTestEngine(1_000_000)
	owner := makeAddress(crypto.AccountPrefix, 0x06)
	state.setBalance(testAsset, owner, 1_000)

	if err := engine.SetRate(1000, 0); err != nil {
		t.Fatalf("set rate: %v", err)
	}
	if err := engine.Refresh(secondsPerYear); err != nil {
		t.Fatalf("refresh: %v", err)
	}

	assets, err := engine.Mint(owner, big.NewInt(100), secondsPerYear)
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	// The exact cost of 100 shares is just under 110 assets; rounding up
	// must charge the full 110 so minting cannot extract value.
	if assets.Cmp(big.NewInt(110)) != 0 {
		t.Fatalf("mint cost: got %s want 110", assets)
	}
	held, _ := engine.SharesOf(owner)
	if held.Cmp(big.NewInt(100)) != 0 {
		t.Fatalf("minted shares: got %s want 100", held)
	}
}

func TestWithdrawBurnsSharesRoundedUp(t *testing.T) {
	engine, state, _ := newTestEngine(1_000_000)
	owner := makeAddress(crypto.AccountPrefix, 0x07)
	state.setBalance(testAsset, owner, 1_000)

	if err := engine.SetRate(1000, 0); err != nil {
		t.Fatalf("set rate: %v", err)
	}
	if _, err := engine.Deposit(owner, big.NewInt(200), 0); err != nil {
		t.Fatalf("deposit: %v", err)
	}

	burned, payout, err := engine.Withdraw(owner, big.NewInt(100), secondsPerYear)
	if err != nil {
		t.Fatalf("withdraw: %v", err)
	}
	if payout.Cmp(big.NewInt(100)) != 0 {
		t.Fatalf("payout: got %s want 100", payout)
	}
	// 100 assets at ~1.1 ray costs ~90.9 shares; the burn must round up.
	exact, err := AssetsToShares(big.NewInt(100), mustCurrentIndex(t, engine, secondsPerYear), RoundDown)
	if err != nil {
		t.Fatalf("reference conversion: %v", err)
	}
	if burned.Cmp(exact) < 0 {
		t.Fatalf("burned shares rounded down: got %s reference floor %s", burned, exact)
	}
	held, _ := engine.SharesOf(owner)
	want := new(big.Int).Sub(big.NewInt(200), burned)
	if held.Cmp(want) != 0 {
		t.Fatalf("remaining shares: got %s want %s", held, want)
	}
}

func mustCurrentIndex(t *testing.T, engine *Engine, now uint64) *big.Int {
	t.Helper()
	index, err := engine.PeekCurrentIndex(now)
	if err != nil {
		t.Fatalf("peek index: %v", err)
	}
	return index
}

func TestRedeemClampsToOnHandBalance(t *testing.T) {
	engine, state, emitter := newTestEngine(1_000_000)
	owner := makeAddress(crypto.AccountPrefix, 0x08)
	state.setBalance(testAsset, owner, 1_000)

	if err := engine.SetRate(1000, 0); err != nil {
		t.Fatalf("set rate: %v", err)
	}
	if _, err := engine.Deposit(owner, big.NewInt(100), 0); err != nil {
		t.Fatalf("deposit: %v", err)
	}

	// No yield funding: the treasury holds only the 100 deposited while the
	// theoretical claim has grown to ~110.
	burned, payout, err := engine.Redeem(owner, big.NewInt(100), secondsPerYear)
	if err != nil {
		t.Fatalf("redeem: %v", err)
	}
	if payout.Cmp(big.NewInt(100)) != 0 {
		t.Fatalf("payout must clamp to on-hand balance: got %s", payout)
	}
	if burned.Cmp(big.NewInt(100)) >= 0 {
		t.Fatalf("clamped redemption must burn fewer shares than requested: got %s", burned)
	}
	shortfalls := emitter.ofType(events.TypeVaultShortfall)
	if len(shortfalls) != 1 {
		t.Fatalf("expected one shortfall event, got %d", len(shortfalls))
	}
	held, _ := engine.SharesOf(owner)
	want := new(big.Int).Sub(big.NewInt(100), burned)
	if held.Cmp(want) != 0 {
		t.Fatalf("unredeemed shares must remain with the holder: got %s want %s", held, want)
	}
}

func TestDepositRejectedOverCapacity(t *testing.T) {
	engine, state, _ := newTestEngine(150)
	owner := makeAddress(crypto.AccountPrefix, 0x09)
	state.setBalance(testAsset, owner, 1_000)

	if _, err := engine.Deposit(owner, big.NewInt(100), 0); err != nil {
		t.Fatalf("first deposit within capacity: %v", err)
	}
	if _, err := engine.Deposit(owner, big.NewInt(100), 0); err != errCapacityExceeded {
		t.Fatalf("expected capacity rejection, got %v", err)
	}
	if _, err := engine.Deposit(owner, big.NewInt(50), 0); err != nil {
		t.Fatalf("deposit filling remaining capacity: %v", err)
	}
}

func TestSetRateThroughEngine(t *testing.T) {
	engine, state, emitter := newTestEngine(1_000_000)

	if err := engine.SetRate(MaxRateBps+1, 0); err != ErrRateTooHigh {
		t.Fatalf("expected ErrRateTooHigh, got %v", err)
	}
	if state.state.RateBps != 0 {
		t.Fatalf("rejected rate mutated persisted state")
	}

	if err := engine.SetRate(MaxRateBps, 10); err != nil {
		t.Fatalf("set rate at ceiling: %v", err)
	}
	if state.state.RateBps != MaxRateBps {
		t.Fatalf("rate not persisted: got %d", state.state.RateBps)
	}
	if got := emitter.ofType(events.TypeVaultRateUpdated); len(got) != 1 {
		t.Fatalf("expected one rate event, got %d", len(got))
	}
}

func TestRateChangeDoesNotBackdateYield(t *testing.T) {
	engine, state, _ := newTestEngine(1_000_000)
	owner := makeAddress(crypto.AccountPrefix, 0x0a)
	state.setBalance(testAsset, owner, 1_000)

	// A year passes at 0% before the rate is raised; the raise must not
	// retroactively accrue over that year.
	if err := engine.SetRate(1000, secondsPerYear); err != nil {
		t.Fatalf("set rate: %v", err)
	}
	index, err := engine.PeekCurrentIndex(secondsPerYear)
	if err != nil {
		t.Fatalf("peek: %v", err)
	}
	if index.Cmp(ray) != 0 {
		t.Fatalf("yield back-dated across the rate change: index %s", index)
	}
}

func TestTransferSharesMovesBalances(t *testing.T) {
	engine, state, emitter := newTestEngine(1_000_000)
	from := makeAddress(crypto.AccountPrefix, 0x0b)
	to := makeAddress(crypto.AccountPrefix, 0x0c)
	state.setBalance(testAsset, from, 1_000)

	if _, err := engine.Deposit(from, big.NewInt(100), 0); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	if err := engine.TransferShares(from, to, big.NewInt(40), 5); err != nil {
		t.Fatalf("transfer: %v", err)
	}
	fromShares, _ := engine.SharesOf(from)
	toShares, _ := engine.SharesOf(to)
	if fromShares.Cmp(big.NewInt(60)) != 0 || toShares.Cmp(big.NewInt(40)) != 0 {
		t.Fatalf("unexpected share balances: from %s to %s", fromShares, toShares)
	}
	if err := engine.TransferShares(from, to, big.NewInt(100), 5); err != errInsufficientShares {
		t.Fatalf("expected insufficient shares, got %v", err)
	}
	if got := emitter.ofType(events.TypeVaultSharesTransferred); len(got) != 1 {
		t.Fatalf("expected one transfer event, got %d", len(got))
	}
}

func TestRescueSweepsForeignTokenOnly(t *testing.T) {
	engine, state, emitter := newTestEngine(1_000_000)
	recipient := makeAddress(crypto.AccountPrefix, 0x0d)
	state.setBalance("WETH", engine.ModuleAddress(), 75)
	state.setBalance(testAsset, engine.ModuleAddress(), 500)

	if _, err := engine.Rescue(testAsset, recipient, 0); err != errProtectedToken {
		t.Fatalf("base asset must be protected, got %v", err)
	}
	if _, err := engine.Rescue(testShare, recipient, 0); err != errProtectedToken {
		t.Fatalf("share token must be protected, got %v", err)
	}

	swept, err := engine.Rescue("WETH", recipient, 0)
	if err != nil {
		t.Fatalf("rescue: %v", err)
	}
	if swept.Cmp(big.NewInt(75)) != 0 {
		t.Fatalf("swept amount: got %s want 75", swept)
	}
	got, _ := state.Balance("WETH", recipient)
	if got.Cmp(big.NewInt(75)) != 0 {
		t.Fatalf("recipient balance: got %s want 75", got)
	}
	if _, err := engine.Rescue("WETH", recipient, 0); err != errNothingToRescue {
		t.Fatalf("second rescue must find nothing, got %v", err)
	}
	if got := emitter.ofType(events.TypeVaultTokensRescued); len(got) != 1 {
		t.Fatalf("expected one rescue event, got %d", len(got))
	}
}

func TestPauseBlocksMutations(t *testing.T) {
	engine, state, _ := newTestEngine(1_000_000)
	owner := makeAddress(crypto.AccountPrefix, 0x0e)
	state.setBalance(testAsset, owner, 1_000)
	engine.SetPauses(stubPauses{paused: true})

	if _, err := engine.Deposit(owner, big.NewInt(100), 0); err == nil {
		t.Fatalf("paused deposit must be rejected")
	}
	if err := engine.SetRate(100, 0); err == nil {
		t.Fatalf("paused rate change must be rejected")
	}

	engine.SetPauses(stubPauses{})
	if _, err := engine.Deposit(owner, big.NewInt(100), 0); err != nil {
		t.Fatalf("unpaused deposit: %v", err)
	}
}

func TestIndexEventEmittedOncePerTimestamp(t *testing.T) {
	engine, state, emitter := newTestEngine(1_000_000)
	owner := makeAddress(crypto.AccountPrefix, 0x0f)
	state.setBalance(testAsset, owner, 1_000)

	if err := engine.SetRate(1000, 0); err != nil {
		t.Fatalf("set rate: %v", err)
	}
	if err := engine.Refresh(1_000); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if err := engine.Refresh(1_000); err != nil {
		t.Fatalf("repeat refresh: %v", err)
	}
	if _, err := engine.Deposit(owner, big.NewInt(10), 1_000); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	if got := emitter.ofType(events.TypeVaultIndexUpdated); len(got) != 1 {
		t.Fatalf("index event must fire once per persisted change, got %d", len(got))
	}
}

func TestPreviewsMatchExecution(t *testing.T) {
	engine, state, _ := newTestEngine(1_000_000)
	owner := makeAddress(crypto.AccountPrefix, 0x10)
	state.setBalance(testAsset, owner, 10_000)

	if err := engine.SetRate(1000, 0); err != nil {
		t.Fatalf("set rate: %v", err)
	}

	now := uint64(secondsPerYear / 3)
	quoted, err := engine.PreviewDeposit(big.NewInt(1_000), now)
	if err != nil {
		t.Fatalf("preview deposit: %v", err)
	}
	minted, err := engine.Deposit(owner, big.NewInt(1_000), now)
	if err != nil {
		t.Fatalf("deposit: %v", err)
	}
	if quoted.Cmp(minted) != 0 {
		t.Fatalf("preview diverged from execution: quoted %s minted %s", quoted, minted)
	}

	quotedAssets, err := engine.PreviewRedeem(minted, now)
	if err != nil {
		t.Fatalf("preview redeem: %v", err)
	}
	_, payout, err := engine.Redeem(owner, minted, now)
	if err != nil {
		t.Fatalf("redeem: %v", err)
	}
	if quotedAssets.Cmp(payout) != 0 {
		t.Fatalf("redeem preview diverged: quoted %s paid %s", quotedAssets, payout)
	}
}

func TestSetCapacityLoweringBlocksOnlyNewIssuance(t *testing.T) {
	engine, state, _ := newTestEngine(1_000)
	owner := makeAddress(crypto.AccountPrefix, 0x11)
	state.setBalance(testAsset, owner, 10_000)

	if _, err := engine.Deposit(owner, big.NewInt(800), 0); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	if err := engine.SetCapacity(big.NewInt(500), 0); err != nil {
		t.Fatalf("set capacity: %v", err)
	}
	if _, err := engine.Deposit(owner, big.NewInt(1), 0); err != errCapacityExceeded {
		t.Fatalf("deposit above lowered ceiling must fail, got %v", err)
	}
	// Existing claims stay redeemable.
	_, payout, err := engine.Redeem(owner, big.NewInt(800), 0)
	if err != nil {
		t.Fatalf("redeem after lowering capacity: %v", err)
	}
	if payout.Cmp(big.NewInt(800)) != 0 {
		t.Fatalf("existing claim clawed back: got %s", payout)
	}
}
