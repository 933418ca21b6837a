package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"yieldvault/crypto"
	vault "yieldvault/native/vault"

	"github.com/BurntSushi/toml"
)

// Config is the on-disk configuration for vaultd.
type Config struct {
	ListenAddress      string   `toml:"ListenAddress"`
	DataDir            string   `toml:"DataDir"`
	Environment        string   `toml:"Environment"`
	LogLevel           string   `toml:"LogLevel"`
	NodeKeystorePath   string   `toml:"NodeKeystorePath"`
	JWTSecretEnv       string   `toml:"JWTSecretEnv"`
	RateLimitPerMinute int      `toml:"RateLimitPerMinute"`
	AuditLogPath       string   `toml:"AuditLogPath"`
	AdminAddresses     []string `toml:"AdminAddresses"`

	Vault     vault.Config `toml:"vault"`
	Telemetry Telemetry    `toml:"telemetry"`
}

// Load reads the configuration at path, creating a default file (and a node
// keystore beside it) when none exists yet.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}

	cfg := &Config{}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}

	if err := ensureKeystore(path, cfg); err != nil {
		return nil, err
	}
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) normalize() {
	if strings.TrimSpace(c.ListenAddress) == "" {
		c.ListenAddress = ":8645"
	}
	if strings.TrimSpace(c.DataDir) == "" {
		c.DataDir = "./vault-data"
	}
	if strings.TrimSpace(c.Environment) == "" {
		c.Environment = "local"
	}
	if strings.TrimSpace(c.LogLevel) == "" {
		c.LogLevel = "info"
	}
	if strings.TrimSpace(c.JWTSecretEnv) == "" {
		c.JWTSecretEnv = "VAULTD_JWT_SECRET"
	}
	if c.RateLimitPerMinute <= 0 {
		c.RateLimitPerMinute = 600
	}
	if c.AdminAddresses == nil {
		c.AdminAddresses = []string{}
	}
	if strings.TrimSpace(c.Vault.AssetSymbol) == "" {
		c.Vault.AssetSymbol = "USD"
	}
	if strings.TrimSpace(c.Vault.ShareSymbol) == "" {
		c.Vault.ShareSymbol = "sUSD"
	}
	if strings.TrimSpace(c.Vault.InitialCapacityWei) == "" {
		c.Vault.InitialCapacityWei = "0"
	}
	c.Telemetry.normalize()
}

// ensureKeystore makes sure the node keystore exists, generating a fresh key
// the first time and persisting the resolved path back into the config file.
func ensureKeystore(configPath string, cfg *Config) error {
	keystorePath := cfg.NodeKeystorePath
	if keystorePath == "" {
		keystorePath = defaultKeystorePath(configPath)
	}

	if _, err := os.Stat(keystorePath); os.IsNotExist(err) {
		key, genErr := crypto.GeneratePrivateKey()
		if genErr != nil {
			return genErr
		}
		if err := crypto.SaveToKeystore(keystorePath, key, ""); err != nil {
			return err
		}
	} else if err != nil {
		return err
	}

	if cfg.NodeKeystorePath != keystorePath {
		cfg.NodeKeystorePath = keystorePath
		return persist(configPath, cfg)
	}
	return nil
}

func createDefault(path string) (*Config, error) {
	key, err := crypto.GeneratePrivateKey()
	if err != nil {
		return nil, err
	}
	keystorePath := defaultKeystorePath(path)
	if err := crypto.SaveToKeystore(keystorePath, key, ""); err != nil {
		return nil, err
	}

	cfg := &Config{NodeKeystorePath: keystorePath}
	cfg.normalize()
	if err := persist(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func persist(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC|os.O_CREATE, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(cfg)
}

func defaultKeystorePath(configPath string) string {
	dir := filepath.Dir(configPath)
	if dir == "." || dir == "" {
		dir = ""
	}
	return filepath.Join(dir, "node.keystore")
}

// JWTSecret resolves the admin auth secret from the configured environment
// variable.
func (c *Config) JWTSecret() ([]byte, error) {
	secret := strings.TrimSpace(os.Getenv(c.JWTSecretEnv))
	if secret == "" {
		return nil, fmt.Errorf("config: environment variable %s is empty; admin RPC requires a JWT secret", c.JWTSecretEnv)
	}
	return []byte(secret), nil
}
