package rpc

import (
	"net/http"
)

type txAmountParams struct {
	Assets string `json:"assets,omitempty"`
	Shares string `json:"shares,omitempty"`
}

type transferParams struct {
	To     string `json:"to"`
	Shares string `json:"shares"`
}

type depositResult struct {
	Owner  string `json:"owner"`
	Assets string `json:"assets"`
	Shares string `json:"shares"`
}

type withdrawResult struct {
	Owner        string `json:"owner"`
	SharesBurned string `json:"sharesBurned"`
	AssetsPaid   string `json:"assetsPaid"`
}

func (s *Server) handleDeposit(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	owner, authErr := s.authenticate(r)
	if authErr != nil {
		writeError(w, http.StatusUnauthorized, req.ID, authErr.Code, authErr.Message, authErr.Data)
		return
	}
	var params txAmountParams
	if paramErr := bindParams(req, &params); paramErr != nil {
		writeError(w, http.StatusBadRequest, req.ID, paramErr.Code, paramErr.Message, paramErr.Data)
		return
	}
	assets, err := parseAmount(params.Assets)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}

	s.txMu.Lock()
	shares, err := s.engine.Deposit(owner, assets, s.now())
	s.txMu.Unlock()
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, depositResult{
		Owner:  owner.String(),
		Assets: bigString(assets),
		Shares: bigString(shares),
	})
}

func (s *Server) handleMint(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	owner, authErr := s.authenticate(r)
	if authErr != nil {
		writeError(w, http.StatusUnauthorized, req.ID, authErr.Code, authErr.Message, authErr.Data)
		return
	}
	var params txAmountParams
	if paramErr := bindParams(req, &params); paramErr != nil {
		writeError(w, http.StatusBadRequest, req.ID, paramErr.Code, paramErr.Message, paramErr.Data)
		return
	}
	shares, err := parseAmount(params.Shares)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}

	s.txMu.Lock()
	assets, err := s.engine.Mint(owner, shares, s.now())
	s.txMu.Unlock()
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, depositResult{
		Owner:  owner.String(),
		Assets: bigString(assets),
		Shares: bigString(shares),
	})
}

func (s *Server) handleWithdraw(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	owner, authErr := s.authenticate(r)
	if authErr != nil {
		writeError(w, http.StatusUnauthorized, req.ID, authErr.Code, authErr.Message, authErr.Data)
		return
	}
	var params txAmountParams
	if paramErr := bindParams(req, &params); paramErr != nil {
		writeError(w, http.StatusBadRequest, req.ID, paramErr.Code, paramErr.Message, paramErr.Data)
		return
	}
	assets, err := parseAmount(params.Assets)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}

	s.txMu.Lock()
	burned, paid, err := s.engine.Withdraw(owner, assets, s.now())
	s.txMu.Unlock()
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, withdrawResult{
		Owner:        owner.String(),
		SharesBurned: bigString(burned),
		AssetsPaid:   bigString(paid),
	})
}

func (s *Server) handleRedeem(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	owner, authErr := s.authenticate(r)
	if authErr != nil {
		writeError(w, http.StatusUnauthorized, req.ID, authErr.Code, authErr.Message, authErr.Data)
		return
	}
	var params txAmountParams
	if paramErr := bindParams(req, &params); paramErr != nil {
		writeError(w, http.StatusBadRequest, req.ID, paramErr.Code, paramErr.Message, paramErr.Data)
		return
	}
	shares, err := parseAmount(params.Shares)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}

	s.txMu.Lock()
	burned, paid, err := s.engine.Redeem(owner, shares, s.now())
	s.txMu.Unlock()
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, withdrawResult{
		Owner:        owner.String(),
		SharesBurned: bigString(burned),
		AssetsPaid:   bigString(paid),
	})
}

func (s *Server) handleTransferShares(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	from, authErr := s.authenticate(r)
	if authErr != nil {
		writeError(w, http.StatusUnauthorized, req.ID, authErr.Code, authErr.Message, authErr.Data)
		return
	}
	var params transferParams
	if paramErr := bindParams(req, &params); paramErr != nil {
		writeError(w, http.StatusBadRequest, req.ID, paramErr.Code, paramErr.Message, paramErr.Data)
		return
	}
	to, err := parseAddress(params.To)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid recipient", err.Error())
		return
	}
	shares, err := parseAmount(params.Shares)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}

	s.txMu.Lock()
	err = s.engine.TransferShares(from, to, shares, s.now())
	s.txMu.Unlock()
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, map[string]string{
		"from":   from.String(),
		"to":     to.String(),
		"shares": bigString(shares),
	})
}
