package rpc

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	vault "yieldvault/native/vault"
)

type setRateParams struct {
	RateBps uint64 `json:"rateBps"`
}

type setCapacityParams struct {
	Capacity string `json:"capacity"`
}

type rescueParams struct {
	Token     string `json:"token"`
	Recipient string `json:"recipient"`
}

type roleParams struct {
	Role    string `json:"role"`
	Address string `json:"address"`
}

func (s *Server) handleSetRate(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	caller, authErr := s.requireRole(r, vault.RoleVaultAdmin)
	if authErr != nil {
		writeAuthError(w, req, authErr)
		return
	}
	var params setRateParams
	if paramErr := bindParams(req, &params); paramErr != nil {
		writeError(w, http.StatusBadRequest, req.ID, paramErr.Code, paramErr.Message, paramErr.Data)
		return
	}

	s.txMu.Lock()
	err := s.engine.SetRate(params.RateBps, s.now())
	s.txMu.Unlock()

	outcome := "ok"
	if err != nil {
		outcome = "rejected"
	}
	s.audit.record("vault_setRate", caller.String(), outcome,
		slog.String("rateBps", strconv.FormatUint(params.RateBps, 10)))
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, map[string]uint64{"rateBps": params.RateBps})
}

func (s *Server) handleSetCapacity(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	caller, authErr := s.requireRole(r, vault.RoleVaultAdmin)
	if authErr != nil {
		writeAuthError(w, req, authErr)
		return
	}
	var params setCapacityParams
	if paramErr := bindParams(req, &params); paramErr != nil {
		writeError(w, http.StatusBadRequest, req.ID, paramErr.Code, paramErr.Message, paramErr.Data)
		return
	}
	capacity, err := parseAmount(params.Capacity)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}

	s.txMu.Lock()
	err = s.engine.SetCapacity(capacity, s.now())
	s.txMu.Unlock()

	outcome := "ok"
	if err != nil {
		outcome = "rejected"
	}
	s.audit.record("vault_setCapacity", caller.String(), outcome,
		slog.String("capacity", bigString(capacity)))
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, map[string]string{"capacity": bigString(capacity)})
}

func (s *Server) handleSetPaused(w http.ResponseWriter, r *http.Request, req *RPCRequest, paused bool) {
	caller, authErr := s.requireRole(r, vault.RolePauser)
	if authErr != nil {
		writeAuthError(w, req, authErr)
		return
	}
	if paramErr := requireNoParams(req); paramErr != nil {
		writeError(w, http.StatusBadRequest, req.ID, paramErr.Code, paramErr.Message, paramErr.Data)
		return
	}

	s.txMu.Lock()
	err := s.store.SetPaused(vault.ModuleName, paused)
	s.txMu.Unlock()

	method := "vault_pause"
	if !paused {
		method = "vault_unpause"
	}
	outcome := "ok"
	if err != nil {
		outcome = "rejected"
	}
	s.audit.record(method, caller.String(), outcome,
		slog.String("module", vault.ModuleName),
		slog.String("paused", strconv.FormatBool(paused)))
	if err != nil {
		writeError(w, http.StatusInternalServerError, req.ID, codeServerError, "failed to update pause switch", err.Error())
		return
	}
	writeResult(w, req.ID, map[string]bool{"paused": paused})
}

func (s *Server) handleRescue(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	caller, authErr := s.requireRole(r, vault.RoleRescuer)
	if authErr != nil {
		writeAuthError(w, req, authErr)
		return
	}
	var params rescueParams
	if paramErr := bindParams(req, &params); paramErr != nil {
		writeError(w, http.StatusBadRequest, req.ID, paramErr.Code, paramErr.Message, paramErr.Data)
		return
	}
	recipient, err := parseAddress(params.Recipient)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid recipient", err.Error())
		return
	}
	token := strings.TrimSpace(params.Token)

	s.txMu.Lock()
	amount, err := s.engine.Rescue(token, recipient, s.now())
	s.txMu.Unlock()

	outcome := "ok"
	if err != nil {
		outcome = "rejected"
	}
	s.audit.record("vault_rescue", caller.String(), outcome,
		slog.String("token", token),
		slog.String("recipient", recipient.String()),
		slog.String("amount", bigString(amount)))
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, map[string]string{
		"token":     token,
		"recipient": recipient.String(),
		"amount":    bigString(amount),
	})
}

func (s *Server) handleGrantRole(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	s.handleRoleChange(w, r, req, "vault_grantRole", s.store.GrantRole)
}

func (s *Server) handleRevokeRole(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	s.handleRoleChange(w, r, req, "vault_revokeRole", s.store.RevokeRole)
}

func (s *Server) handleRoleChange(w http.ResponseWriter, r *http.Request, req *RPCRequest, method string, apply func(string, []byte) error) {
	caller, authErr := s.requireRole(r, vault.RoleVaultAdmin)
	if authErr != nil {
		writeAuthError(w, req, authErr)
		return
	}
	var params roleParams
	if paramErr := bindParams(req, &params); paramErr != nil {
		writeError(w, http.StatusBadRequest, req.ID, paramErr.Code, paramErr.Message, paramErr.Data)
		return
	}
	role := strings.TrimSpace(params.Role)
	if !validRole(role) {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "unknown role", params.Role)
		return
	}
	addr, err := parseAddress(params.Address)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid address", err.Error())
		return
	}

	s.txMu.Lock()
	err = apply(role, addr.Bytes())
	s.txMu.Unlock()

	outcome := "ok"
	if err != nil {
		outcome = "rejected"
	}
	s.audit.record(method, caller.String(), outcome,
		slog.String("role", role),
		slog.String("address", addr.String()))
	if err != nil {
		writeError(w, http.StatusInternalServerError, req.ID, codeServerError, "failed to update role", err.Error())
		return
	}
	writeResult(w, req.ID, map[string]string{"role": role, "address": addr.String()})
}

func validRole(role string) bool {
	switch role {
	case vault.RoleVaultAdmin, vault.RolePauser, vault.RoleRescuer:
		return true
	}
	return false
}

func writeAuthError(w http.ResponseWriter, req *RPCRequest, rpcErr *RPCError) {
	status := http.StatusUnauthorized
	if rpcErr.Code == codeForbidden {
		status = http.StatusForbidden
	}
	writeError(w, status, req.ID, rpcErr.Code, rpcErr.Message, rpcErr.Data)
}
