package rpc

import (
	"errors"
	"net/http"
	"strings"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"

	"yieldvault/crypto"
	nativecommon "yieldvault/native/common"
)

const authClockSkew = 2 * time.Minute

// authenticate resolves the caller address from the request's bearer token.
// The token must be an HMAC-signed JWT whose sub claim is the caller's
// bech32 address.
func (s *Server) authenticate(r *http.Request) (crypto.Address, *RPCError) {
	if len(s.secret) == 0 {
		return crypto.Address{}, &RPCError{Code: codeUnauthorized, Message: "RPC authentication not configured"}
	}
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if header == "" {
		return crypto.Address{}, &RPCError{Code: codeUnauthorized, Message: "missing Authorization header"}
	}
	scheme, tokenString, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return crypto.Address{}, &RPCError{Code: codeUnauthorized, Message: "Authorization header must use Bearer scheme"}
	}
	tokenString = strings.TrimSpace(tokenString)
	if tokenString == "" {
		return crypto.Address{}, &RPCError{Code: codeUnauthorized, Message: "missing bearer token"}
	}

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return s.secret, nil
	}, jwt.WithLeeway(authClockSkew))
	if err != nil || !token.Valid {
		return crypto.Address{}, &RPCError{Code: codeUnauthorized, Message: "invalid bearer token"}
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return crypto.Address{}, &RPCError{Code: codeUnauthorized, Message: "invalid token claims"}
	}
	subject, _ := claims["sub"].(string)
	addr, err := crypto.DecodeAddress(strings.TrimSpace(subject))
	if err != nil {
		return crypto.Address{}, &RPCError{Code: codeUnauthorized, Message: "token subject is not a valid address"}
	}
	return addr, nil
}

// requireRole authenticates the caller and checks the role grant in state.
func (s *Server) requireRole(r *http.Request, role string) (crypto.Address, *RPCError) {
	caller, authErr := s.authenticate(r)
	if authErr != nil {
		return crypto.Address{}, authErr
	}
	if err := nativecommon.RequireRole(s.store, role, caller.Bytes()); err != nil {
		return crypto.Address{}, &RPCError{Code: codeForbidden, Message: "caller lacks required role", Data: role}
	}
	return caller, nil
}
