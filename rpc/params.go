package rpc

import (
	"encoding/json"
	"fmt"
	"math/big"
	"strings"

	"yieldvault/crypto"
)

// bindParams decodes the single object parameter the vault methods expect.
func bindParams(req *RPCRequest, out interface{}) *RPCError {
	if len(req.Params) != 1 {
		return &RPCError{Code: codeInvalidParams, Message: "exactly one parameter object expected"}
	}
	if err := json.Unmarshal(req.Params[0], out); err != nil {
		return &RPCError{Code: codeInvalidParams, Message: "invalid parameter object", Data: err.Error()}
	}
	return nil
}

func requireNoParams(req *RPCRequest) *RPCError {
	if len(req.Params) != 0 {
		return &RPCError{Code: codeInvalidParams, Message: "no parameters expected"}
	}
	return nil
}

// parseAmount parses a base-10 token amount. Amounts travel as strings so
// 256-bit values survive JSON intact.
func parseAmount(raw string) (*big.Int, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, fmt.Errorf("amount required")
	}
	value, ok := new(big.Int).SetString(trimmed, 10)
	if !ok {
		return nil, fmt.Errorf("invalid amount %q", raw)
	}
	if value.Sign() < 0 {
		return nil, fmt.Errorf("amount must not be negative")
	}
	return value, nil
}

func parseAddress(raw string) (crypto.Address, error) {
	return crypto.DecodeAddress(strings.TrimSpace(raw))
}

func bigString(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}
