package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"

	"yieldvault/cmd/internal/passphrase"
	"yieldvault/crypto"
)

const (
	passphraseEnv = "VAULT_CLI_PASS"
	jwtSecretEnv  = "VAULTD_JWT_SECRET"
	tokenEnv      = "VAULT_CLI_TOKEN"
)

var rpcEndpoint = defaultRPCEndpoint()

func defaultRPCEndpoint() string {
	if url := strings.TrimSpace(os.Getenv("VAULT_RPC_URL")); url != "" {
		return url
	}
	return "http://127.0.0.1:8645"
}

func main() {
	args := os.Args[1:]
	if len(args) < 1 {
		printUsage()
		return
	}

	switch args[0] {
	case "generate-key":
		if len(args) < 2 {
			fatal("Please provide a keystore path.")
		}
		generateKey(args[1])
	case "show-address":
		if len(args) < 2 {
			fatal("Please provide a keystore path.")
		}
		showAddress(args[1])
	case "mint-token":
		if len(args) < 2 {
			fatal("Please provide a bech32 address for the token subject.")
		}
		ttl := time.Hour
		if len(args) > 2 {
			minutes, err := strconv.Atoi(args[2])
			if err != nil || minutes <= 0 {
				fatal("TTL must be a positive number of minutes.")
			}
			ttl = time.Duration(minutes) * time.Minute
		}
		mintToken(args[1], ttl)
	case "state":
		call("vault_getState", nil)
	case "index":
		call("vault_getIndex", nil)
	case "balance":
		if len(args) < 2 {
			fatal("Please provide a bech32 address.")
		}
		call("vault_balanceOf", map[string]string{"address": args[1]})
	case "deposit":
		if len(args) < 2 {
			fatal("Please provide an asset amount.")
		}
		call("vault_deposit", map[string]string{"assets": args[1]})
	case "withdraw":
		if len(args) < 2 {
			fatal("Please provide an asset amount.")
		}
		call("vault_withdraw", map[string]string{"assets": args[1]})
	case "redeem":
		if len(args) < 2 {
			fatal("Please provide a share amount.")
		}
		call("vault_redeem", map[string]string{"shares": args[1]})
	case "call":
		if len(args) < 2 {
			fatal("Please provide a method name and optional JSON params.")
		}
		var params interface{}
		if len(args) > 2 {
			if err := json.Unmarshal([]byte(args[2]), &params); err != nil {
				fatal(fmt.Sprintf("Invalid JSON params: %v", err))
			}
		}
		call(args[1], params)
	default:
		fmt.Printf("Unknown command: %s\n", args[0])
		printUsage()
	}
}

func fatal(message string) {
	fmt.Fprintln(os.Stderr, "Error:", message)
	os.Exit(1)
}

func printUsage() {
	fmt.Println("Usage: vault-cli <command> [args]")
	fmt.Println()
	fmt.Println("Key management:")
	fmt.Println("  generate-key <path>          Generate a keystore file")
	fmt.Println("  show-address <path>          Print the address of a keystore")
	fmt.Println("  mint-token <address> [ttl]   Mint a bearer token for the address (ttl in minutes)")
	fmt.Println()
	fmt.Println("Vault queries:")
	fmt.Println("  state                        Show the stored vault state")
	fmt.Println("  index                        Show the live accrual index")
	fmt.Println("  balance <address>            Show asset and share balances")
	fmt.Println()
	fmt.Println("Vault transactions (require VAULT_CLI_TOKEN):")
	fmt.Println("  deposit <assets>             Deposit assets for shares")
	fmt.Println("  withdraw <assets>            Withdraw an exact asset amount")
	fmt.Println("  redeem <shares>              Redeem an exact share amount")
	fmt.Println("  call <method> [json-params]  Invoke any vault RPC method")
	fmt.Println()
	fmt.Println("VAULT_RPC_URL overrides the node endpoint (default http://127.0.0.1:8645).")
}

func generateKey(path string) {
	key, err := crypto.GeneratePrivateKey()
	if err != nil {
		fatal(fmt.Sprintf("Failed to generate key: %v", err))
	}
	pass, err := passphrase.NewSource(passphraseEnv).Get()
	if err != nil {
		fatal(err.Error())
	}
	if err := crypto.SaveToKeystore(path, key, pass); err != nil {
		fatal(fmt.Sprintf("Failed to write keystore: %v", err))
	}
	fmt.Println("Keystore written to", path)
	fmt.Println("Address:", key.PubKey().Address().String())
}

func showAddress(path string) {
	pass, err := passphrase.NewSource(passphraseEnv).Get()
	if err != nil {
		fatal(err.Error())
	}
	key, err := crypto.LoadFromKeystore(path, pass)
	if err != nil {
		fatal(fmt.Sprintf("Failed to open keystore: %v", err))
	}
	fmt.Println(key.PubKey().Address().String())
}

// mintToken signs a bearer token for the given subject using the shared HMAC
// secret. The node must be configured with the same secret.
func mintToken(subject string, ttl time.Duration) {
	if _, err := crypto.DecodeAddress(strings.TrimSpace(subject)); err != nil {
		fatal(fmt.Sprintf("Invalid address: %v", err))
	}
	secret := strings.TrimSpace(os.Getenv(jwtSecretEnv))
	if secret == "" {
		fatal(fmt.Sprintf("%s must be set to mint tokens", jwtSecretEnv))
	}
	claims := jwt.MapClaims{
		"sub": strings.TrimSpace(subject),
		"iat": time.Now().Unix(),
		"exp": time.Now().Add(ttl).Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		fatal(fmt.Sprintf("Failed to sign token: %v", err))
	}
	fmt.Println(signed)
}

func call(method string, params interface{}) {
	paramList := []interface{}{}
	if params != nil {
		paramList = append(paramList, params)
	}
	payload, err := json.Marshal(map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  method,
		"params":  paramList,
	})
	if err != nil {
		fatal(fmt.Sprintf("Failed to build request: %v", err))
	}

	req, err := http.NewRequest(http.MethodPost, rpcEndpoint, bytes.NewReader(payload))
	if err != nil {
		fatal(fmt.Sprintf("Failed to build request: %v", err))
	}
	req.Header.Set("Content-Type", "application/json")
	if token := strings.TrimSpace(os.Getenv(tokenEnv)); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := (&http.Client{Timeout: 15 * time.Second}).Do(req)
	if err != nil {
		fatal(fmt.Sprintf("RPC request failed: %v", err))
	}
	defer resp.Body.Close()

	var pretty bytes.Buffer
	decoded := map[string]interface{}{}
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		fatal(fmt.Sprintf("Failed to decode response: %v", err))
	}
	encoder := json.NewEncoder(&pretty)
	encoder.SetIndent("", "  ")
	_ = encoder.Encode(decoded)
	fmt.Print(pretty.String())
}
