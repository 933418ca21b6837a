package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"yieldvault/core/events"
	vault "yieldvault/native/vault"
	"yieldvault/observability"
	vaultstore "yieldvault/state/vault"
)

const (
	jsonRPCVersion  = "2.0"
	maxRequestBytes = 1 << 20 // 1 MiB
)

const (
	codeParseError     = -32700
	codeInvalidRequest = -32600
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
	codeUnauthorized   = -32001
	codeForbidden      = -32002
	codeServerError    = -32000
	codeRateLimited    = -32020
)

// ServerConfig bundles the collaborators the RPC server needs.
type ServerConfig struct {
	Engine             *vault.Engine
	Store              *vaultstore.Store
	Events             *events.Ring
	JWTSecret          []byte
	RateLimitPerMinute int
	AuditLogPath       string
	// Now supplies the vault timestamp for each request. Defaults to wall
	// clock seconds.
	Now func() uint64
}

// Server exposes the vault engine over JSON-RPC with bearer-authenticated
// admin methods.
type Server struct {
	engine *vault.Engine
	store  *vaultstore.Store
	events *events.Ring
	secret []byte
	now    func() uint64
	logger *slog.Logger
	audit  *auditLog

	// txMu serializes mutating engine calls so load-mutate-store cycles in
	// the engine never interleave.
	txMu sync.Mutex

	limiter *clientLimiter
	httpSrv *http.Server
}

// NewServer wires a Server from its collaborators.
func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Engine == nil || cfg.Store == nil {
		return nil, errors.New("rpc: engine and store are required")
	}
	now := cfg.Now
	if now == nil {
		now = func() uint64 { return uint64(time.Now().Unix()) }
	}
	s := &Server{
		engine:  cfg.Engine,
		store:   cfg.Store,
		events:  cfg.Events,
		secret:  cfg.JWTSecret,
		now:     now,
		logger:  slog.Default().With("component", "rpc"),
		limiter: newClientLimiter(cfg.RateLimitPerMinute),
	}
	if cfg.AuditLogPath != "" {
		s.audit = newAuditLog(cfg.AuditLogPath)
	}
	return s, nil
}

// Router assembles the HTTP surface: JSON-RPC at the root, health and
// Prometheus endpoints alongside.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	r.Method(http.MethodPost, "/", otelhttp.NewHandler(http.HandlerFunc(s.handle), "vault.rpc"))
	return r
}

// Start serves the router on addr until the context is cancelled, then shuts
// down gracefully.
func (s *Server) Start(ctx context.Context, addr string) error {
	s.httpSrv = &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.httpSrv.Shutdown(shutdownCtx)
	}
}

type RPCRequest struct {
	JSONRPC string            `json:"jsonrpc"`
	Method  string            `json:"method"`
	Params  []json.RawMessage `json:"params"`
	ID      interface{}       `json:"id"`
}

type RPCResponse struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      interface{} `json:"id"`
	Result  interface{} `json:"result,omitempty"`
	Error   *RPCError   `json:"error,omitempty"`
}

type RPCError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func writeError(w http.ResponseWriter, status int, id interface{}, code int, message string, data interface{}) {
	if status <= 0 {
		status = http.StatusBadRequest
	}
	if status != http.StatusOK {
		w.WriteHeader(status)
	}
	errObj := &RPCError{Code: code, Message: message}
	if data != nil {
		errObj.Data = data
	}
	_ = json.NewEncoder(w).Encode(RPCResponse{JSONRPC: jsonRPCVersion, ID: id, Error: errObj})
}

func writeResult(w http.ResponseWriter, id interface{}, result interface{}) {
	_ = json.NewEncoder(w).Encode(RPCResponse{JSONRPC: jsonRPCVersion, ID: id, Result: result})
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	reader := http.MaxBytesReader(w, r.Body, maxRequestBytes)
	defer func() { _ = reader.Close() }()

	w.Header().Set("Content-Type", "application/json")

	if !s.limiter.allow(r) {
		writeError(w, http.StatusTooManyRequests, nil, codeRateLimited, "rate limit exceeded", nil)
		return
	}

	body, err := io.ReadAll(reader)
	if err != nil {
		status := http.StatusBadRequest
		message := "failed to read request body"
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			status = http.StatusRequestEntityTooLarge
			message = fmt.Sprintf("request body exceeds %d bytes", maxRequestBytes)
		}
		writeError(w, status, nil, codeInvalidRequest, message, err.Error())
		return
	}
	if len(bytes.TrimSpace(body)) == 0 {
		writeError(w, http.StatusBadRequest, nil, codeInvalidRequest, "request body required", nil)
		return
	}

	req := &RPCRequest{}
	if err := json.Unmarshal(body, req); err != nil {
		writeError(w, http.StatusBadRequest, nil, codeParseError, "invalid JSON payload", err.Error())
		return
	}
	if req.JSONRPC != "" && req.JSONRPC != jsonRPCVersion {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidRequest, "unsupported jsonrpc version", req.JSONRPC)
		return
	}
	if req.Method == "" {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidRequest, "method required", nil)
		return
	}

	start := time.Now()
	s.dispatch(w, r, req)
	observability.Vault().RecordOperation(req.Method, "handled", time.Since(start).Seconds())
	s.refreshGauges()
}

// refreshGauges mirrors the stored accounting state into the Prometheus
// registry so dashboards track it without a dedicated poller.
func (s *Server) refreshGauges() {
	state, err := s.engine.State()
	if err != nil {
		return
	}
	m := observability.Vault()
	m.SetIndex(state.Index)
	m.SetRateBps(state.RateBps)
	m.SetCapacity(state.Capacity)
	m.SetTotalShares(state.TotalShares)
}

func (s *Server) dispatch(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	switch req.Method {
	case "vault_getState":
		s.handleGetState(w, r, req)
	case "vault_getIndex":
		s.handleGetIndex(w, r, req)
	case "vault_totalAssets":
		s.handleTotalAssets(w, r, req)
	case "vault_balanceOf":
		s.handleBalanceOf(w, r, req)
	case "vault_previewDeposit":
		s.handlePreviewDeposit(w, r, req)
	case "vault_previewMint":
		s.handlePreviewMint(w, r, req)
	case "vault_previewWithdraw":
		s.handlePreviewWithdraw(w, r, req)
	case "vault_previewRedeem":
		s.handlePreviewRedeem(w, r, req)
	case "vault_maxDeposit":
		s.handleMaxDeposit(w, r, req)
	case "vault_maxMint":
		s.handleMaxMint(w, r, req)
	case "vault_maxRedeem":
		s.handleMaxRedeem(w, r, req)
	case "vault_listEvents":
		s.handleListEvents(w, r, req)
	case "vault_deposit":
		s.handleDeposit(w, r, req)
	case "vault_mint":
		s.handleMint(w, r, req)
	case "vault_withdraw":
		s.handleWithdraw(w, r, req)
	case "vault_redeem":
		s.handleRedeem(w, r, req)
	case "vault_transferShares":
		s.handleTransferShares(w, r, req)
	case "vault_setRate":
		s.handleSetRate(w, r, req)
	case "vault_setCapacity":
		s.handleSetCapacity(w, r, req)
	case "vault_pause":
		s.handleSetPaused(w, r, req, true)
	case "vault_unpause":
		s.handleSetPaused(w, r, req, false)
	case "vault_rescue":
		s.handleRescue(w, r, req)
	case "vault_grantRole":
		s.handleGrantRole(w, r, req)
	case "vault_revokeRole":
		s.handleRevokeRole(w, r, req)
	default:
		writeError(w, http.StatusNotFound, req.ID, codeMethodNotFound, "method not found", req.Method)
	}
}

// writeEngineError maps engine failures onto the JSON-RPC error space. Invalid
// inputs surface as invalid params, everything else as a server error.
func writeEngineError(w http.ResponseWriter, id interface{}, err error) {
	status := http.StatusBadRequest
	code := codeInvalidParams
	if errors.Is(err, vault.ErrOverflow) {
		status = http.StatusInternalServerError
		code = codeServerError
	}
	writeError(w, status, id, code, err.Error(), nil)
}
