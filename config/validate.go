package config

import (
	"fmt"
	"math/big"
	"strings"

	"yieldvault/crypto"
	vault "yieldvault/native/vault"
)

// Validate checks the semantic constraints the decoder cannot express.
func (c *Config) Validate() error {
	asset := strings.TrimSpace(c.Vault.AssetSymbol)
	share := strings.TrimSpace(c.Vault.ShareSymbol)
	if asset == "" || share == "" {
		return fmt.Errorf("vault: asset and share symbols must be set")
	}
	if asset == share {
		return fmt.Errorf("vault: asset and share symbols must differ")
	}
	if c.Vault.InitialRateBps > vault.MaxRateBps {
		return fmt.Errorf("vault: InitialRateBps %d exceeds ceiling %d", c.Vault.InitialRateBps, vault.MaxRateBps)
	}
	if _, err := c.InitialCapacity(); err != nil {
		return err
	}
	for _, raw := range c.AdminAddresses {
		if _, err := crypto.DecodeAddress(strings.TrimSpace(raw)); err != nil {
			return fmt.Errorf("vault: invalid admin address %q: %w", raw, err)
		}
	}
	return nil
}

// InitialCapacity parses the configured capacity ceiling into base units. An
// empty or zero value keeps the vault closed until an admin raises it.
func (c *Config) InitialCapacity() (*big.Int, error) {
	raw := strings.TrimSpace(c.Vault.InitialCapacityWei)
	if raw == "" {
		return big.NewInt(0), nil
	}
	capacity, ok := new(big.Int).SetString(raw, 10)
	if !ok || capacity.Sign() < 0 {
		return nil, fmt.Errorf("vault: invalid InitialCapacityWei %q", c.Vault.InitialCapacityWei)
	}
	return capacity, nil
}

// AdminAddressBytes decodes the configured admin addresses into raw 20-byte
// form for role seeding.
func (c *Config) AdminAddressBytes() ([][]byte, error) {
	out := make([][]byte, 0, len(c.AdminAddresses))
	for _, raw := range c.AdminAddresses {
		addr, err := crypto.DecodeAddress(strings.TrimSpace(raw))
		if err != nil {
			return nil, fmt.Errorf("vault: invalid admin address %q: %w", raw, err)
		}
		out = append(out, addr.Bytes())
	}
	return out, nil
}
