package vault

import (
	gethcrypto "github.com/ethereum/go-ethereum/crypto"

	"yieldvault/crypto"
)

// ModuleTreasuryAddress derives the deterministic address the vault module
// holds custody under. Deposited assets and the share supply ledger both live
// at this address.
func ModuleTreasuryAddress() crypto.Address {
	digest := gethcrypto.Keccak256([]byte("vault/module/treasury"))
	return crypto.MustNewAddress(crypto.ModulePrefix, digest[12:])
}
