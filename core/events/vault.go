package events

import (
	"math/big"
	"strconv"

	"yieldvault/core/types"
	"yieldvault/crypto"
)

const (
	// TypeVaultIndexUpdated is emitted whenever a refresh persists a new
	// index or advances the refresh timestamp.
	TypeVaultIndexUpdated = "vault.index_updated"
	// TypeVaultDeposited is emitted after a deposit or mint settles.
	TypeVaultDeposited = "vault.deposited"
	// TypeVaultWithdrawn is emitted after a withdraw or redeem settles.
	TypeVaultWithdrawn = "vault.withdrawn"
	// TypeVaultSharesTransferred is emitted after a share transfer settles.
	TypeVaultSharesTransferred = "vault.shares_transferred"
	// TypeVaultRateUpdated is emitted when the annual rate changes.
	TypeVaultRateUpdated = "vault.rate_updated"
	// TypeVaultCapacityUpdated is emitted when the capacity ceiling changes.
	TypeVaultCapacityUpdated = "vault.capacity_updated"
	// TypeVaultShortfall is emitted when a payout is clamped because the
	// treasury holds less than the theoretical claim.
	TypeVaultShortfall = "vault.shortfall"
	// TypeVaultTokensRescued is emitted when a foreign token balance is
	// swept out of the treasury.
	TypeVaultTokensRescued = "vault.tokens_rescued"
)

func uintAttr(v uint64) string {
	return strconv.FormatUint(v, 10)
}

func bigAttr(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

func addrAttr(raw []byte) string {
	if len(raw) != 20 {
		return ""
	}
	return crypto.MustNewAddress(crypto.AccountPrefix, raw).String()
}

type VaultIndexUpdated struct {
	Timestamp uint64
	Index     *big.Int
}

func (*VaultIndexUpdated) EventType() string { return TypeVaultIndexUpdated }

func (e *VaultIndexUpdated) Event() *types.Event {
	return &types.Event{
		Type: TypeVaultIndexUpdated,
		Attributes: map[string]string{
			"timestamp": uintAttr(e.Timestamp),
			"index":     bigAttr(e.Index),
		},
	}
}

type VaultDeposited struct {
	Owner  []byte
	Assets *big.Int
	Shares *big.Int
}

func (*VaultDeposited) EventType() string { return TypeVaultDeposited }

func (e *VaultDeposited) Event() *types.Event {
	return &types.Event{
		Type: TypeVaultDeposited,
		Attributes: map[string]string{
			"owner":  addrAttr(e.Owner),
			"assets": bigAttr(e.Assets),
			"shares": bigAttr(e.Shares),
		},
	}
}

type VaultWithdrawn struct {
	Owner  []byte
	Assets *big.Int
	Shares *big.Int
}

func (*VaultWithdrawn) EventType() string { return TypeVaultWithdrawn }

func (e *VaultWithdrawn) Event() *types.Event {
	return &types.Event{
		Type: TypeVaultWithdrawn,
		Attributes: map[string]string{
			"owner":  addrAttr(e.Owner),
			"assets": bigAttr(e.Assets),
			"shares": bigAttr(e.Shares),
		},
	}
}

type VaultSharesTransferred struct {
	From   []byte
	To     []byte
	Shares *big.Int
}

func (*VaultSharesTransferred) EventType() string { return TypeVaultSharesTransferred }

func (e *VaultSharesTransferred) Event() *types.Event {
	return &types.Event{
		Type: TypeVaultSharesTransferred,
		Attributes: map[string]string{
			"from":   addrAttr(e.From),
			"to":     addrAttr(e.To),
			"shares": bigAttr(e.Shares),
		},
	}
}

type VaultRateUpdated struct {
	Timestamp     uint64
	OldRateBps    uint64
	NewRateBps    uint64
	RatePerSecond *big.Int
}

func (*VaultRateUpdated) EventType() string { return TypeVaultRateUpdated }

func (e *VaultRateUpdated) Event() *types.Event {
	return &types.Event{
		Type: TypeVaultRateUpdated,
		Attributes: map[string]string{
			"timestamp":     uintAttr(e.Timestamp),
			"oldRateBps":    uintAttr(e.OldRateBps),
			"newRateBps":    uintAttr(e.NewRateBps),
			"ratePerSecond": bigAttr(e.RatePerSecond),
		},
	}
}

type VaultCapacityUpdated struct {
	Timestamp uint64
	Capacity  *big.Int
}

func (*VaultCapacityUpdated) EventType() string { return TypeVaultCapacityUpdated }

func (e *VaultCapacityUpdated) Event() *types.Event {
	return &types.Event{
		Type: TypeVaultCapacityUpdated,
		Attributes: map[string]string{
			"timestamp": uintAttr(e.Timestamp),
			"capacity":  bigAttr(e.Capacity),
		},
	}
}

type VaultShortfall struct {
	Timestamp   uint64
	Theoretical *big.Int
	OnHand      *big.Int
}

func (*VaultShortfall) EventType() string { return TypeVaultShortfall }

func (e *VaultShortfall) Event() *types.Event {
	return &types.Event{
		Type: TypeVaultShortfall,
		Attributes: map[string]string{
			"timestamp":   uintAttr(e.Timestamp),
			"theoretical": bigAttr(e.Theoretical),
			"onHand":      bigAttr(e.OnHand),
		},
	}
}

type VaultTokensRescued struct {
	Timestamp uint64
	Token     string
	Recipient []byte
	Amount    *big.Int
}

func (*VaultTokensRescued) EventType() string { return TypeVaultTokensRescued }

func (e *VaultTokensRescued) Event() *types.Event {
	return &types.Event{
		Type: TypeVaultTokensRescued,
		Attributes: map[string]string{
			"timestamp": uintAttr(e.Timestamp),
			"token":     e.Token,
			"recipient": addrAttr(e.Recipient),
			"amount":    bigAttr(e.Amount),
		},
	}
}
