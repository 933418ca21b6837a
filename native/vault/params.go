package vault

// ModuleName identifies the vault module for pause gating and event scoping.
const ModuleName = "vault"

// MaxRateBps is the safety ceiling for the annual yield rate: 50% APR.
const MaxRateBps uint64 = 5_000

// Role identifiers enforced by the calling layer before admin operations reach
// the engine. The engine itself performs no identity checks.
const (
	RoleVaultAdmin = "ROLE_VAULT_ADMIN"
	RolePauser     = "ROLE_PAUSER"
	RoleRescuer    = "ROLE_RESCUER"
)

// Config captures the runtime configuration for the native vault module.
type Config struct {
	AssetSymbol        string `toml:"AssetSymbol"`
	ShareSymbol        string `toml:"ShareSymbol"`
	InitialRateBps     uint64 `toml:"InitialRateBps"`
	InitialCapacityWei string `toml:"InitialCapacityWei"`
}
