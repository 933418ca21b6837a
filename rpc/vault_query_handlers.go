package rpc

import (
	"math/big"
	"net/http"

	"yieldvault/core/types"
)

type stateResult struct {
	Index         string `json:"index"`
	LastRefresh   uint64 `json:"lastRefresh"`
	RateBps       uint64 `json:"rateBps"`
	RatePerSecond string `json:"ratePerSecond"`
	Capacity      string `json:"capacity"`
	TotalShares   string `json:"totalShares"`
	Paused        bool   `json:"paused"`
}

type indexResult struct {
	Index     string `json:"index"`
	Timestamp uint64 `json:"timestamp"`
}

type amountResult struct {
	Amount string `json:"amount"`
}

type balanceParams struct {
	Address string `json:"address"`
}

type balanceResult struct {
	Address string `json:"address"`
	Assets  string `json:"assets"`
	Shares  string `json:"shares"`
}

type previewParams struct {
	Assets string `json:"assets,omitempty"`
	Shares string `json:"shares,omitempty"`
}

type listEventsParams struct {
	Limit int `json:"limit,omitempty"`
}

func (s *Server) handleListEvents(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	params := listEventsParams{}
	if len(req.Params) > 0 {
		if paramErr := bindParams(req, &params); paramErr != nil {
			writeError(w, http.StatusBadRequest, req.ID, paramErr.Code, paramErr.Message, paramErr.Data)
			return
		}
	}
	if s.events == nil {
		writeResult(w, req.ID, []*types.Event{})
		return
	}
	writeResult(w, req.ID, s.events.Recent(params.Limit))
}

func (s *Server) handleGetState(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	if paramErr := requireNoParams(req); paramErr != nil {
		writeError(w, http.StatusBadRequest, req.ID, paramErr.Code, paramErr.Message, paramErr.Data)
		return
	}
	state, err := s.engine.State()
	if err != nil {
		writeError(w, http.StatusInternalServerError, req.ID, codeServerError, "failed to load vault state", err.Error())
		return
	}
	writeResult(w, req.ID, stateResult{
		Index:         bigString(state.Index),
		LastRefresh:   state.LastRefresh,
		RateBps:       state.RateBps,
		RatePerSecond: bigString(state.RatePerSecond),
		Capacity:      bigString(state.Capacity),
		TotalShares:   bigString(state.TotalShares),
		Paused:        s.store.IsPaused("vault"),
	})
}

func (s *Server) handleGetIndex(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	if paramErr := requireNoParams(req); paramErr != nil {
		writeError(w, http.StatusBadRequest, req.ID, paramErr.Code, paramErr.Message, paramErr.Data)
		return
	}
	now := s.now()
	index, err := s.engine.PeekCurrentIndex(now)
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, indexResult{Index: bigString(index), Timestamp: now})
}

func (s *Server) handleTotalAssets(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	if paramErr := requireNoParams(req); paramErr != nil {
		writeError(w, http.StatusBadRequest, req.ID, paramErr.Code, paramErr.Message, paramErr.Data)
		return
	}
	total, err := s.engine.TotalAssets(s.now())
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, amountResult{Amount: bigString(total)})
}

func (s *Server) handleBalanceOf(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params balanceParams
	if paramErr := bindParams(req, &params); paramErr != nil {
		writeError(w, http.StatusBadRequest, req.ID, paramErr.Code, paramErr.Message, paramErr.Data)
		return
	}
	addr, err := parseAddress(params.Address)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid address", err.Error())
		return
	}
	shares, err := s.engine.SharesOf(addr)
	if err != nil {
		writeError(w, http.StatusInternalServerError, req.ID, codeServerError, "failed to load balance", err.Error())
		return
	}
	assets, err := s.engine.AssetsOf(addr)
	if err != nil {
		writeError(w, http.StatusInternalServerError, req.ID, codeServerError, "failed to load balance", err.Error())
		return
	}
	writeResult(w, req.ID, balanceResult{
		Address: addr.String(),
		Assets:  bigString(assets),
		Shares:  bigString(shares),
	})
}

// previewAmount holds the shared shape of the four preview handlers: parse
// one amount, run one conversion, return one amount.
func (s *Server) previewAmount(w http.ResponseWriter, req *RPCRequest, raw string, convert func(*big.Int, uint64) (*big.Int, error)) {
	value, err := parseAmount(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	out, err := convert(value, s.now())
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, amountResult{Amount: bigString(out)})
}

func (s *Server) handlePreviewDeposit(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params previewParams
	if paramErr := bindParams(req, &params); paramErr != nil {
		writeError(w, http.StatusBadRequest, req.ID, paramErr.Code, paramErr.Message, paramErr.Data)
		return
	}
	s.previewAmount(w, req, params.Assets, s.engine.PreviewDeposit)
}

func (s *Server) handlePreviewMint(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params previewParams
	if paramErr := bindParams(req, &params); paramErr != nil {
		writeError(w, http.StatusBadRequest, req.ID, paramErr.Code, paramErr.Message, paramErr.Data)
		return
	}
	s.previewAmount(w, req, params.Shares, s.engine.PreviewMint)
}

func (s *Server) handlePreviewWithdraw(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params previewParams
	if paramErr := bindParams(req, &params); paramErr != nil {
		writeError(w, http.StatusBadRequest, req.ID, paramErr.Code, paramErr.Message, paramErr.Data)
		return
	}
	s.previewAmount(w, req, params.Assets, s.engine.PreviewWithdraw)
}

func (s *Server) handlePreviewRedeem(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params previewParams
	if paramErr := bindParams(req, &params); paramErr != nil {
		writeError(w, http.StatusBadRequest, req.ID, paramErr.Code, paramErr.Message, paramErr.Data)
		return
	}
	s.previewAmount(w, req, params.Shares, s.engine.PreviewRedeem)
}

func (s *Server) handleMaxDeposit(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	if paramErr := requireNoParams(req); paramErr != nil {
		writeError(w, http.StatusBadRequest, req.ID, paramErr.Code, paramErr.Message, paramErr.Data)
		return
	}
	max, err := s.engine.MaxDeposit(s.now())
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, amountResult{Amount: bigString(max)})
}

func (s *Server) handleMaxMint(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	if paramErr := requireNoParams(req); paramErr != nil {
		writeError(w, http.StatusBadRequest, req.ID, paramErr.Code, paramErr.Message, paramErr.Data)
		return
	}
	max, err := s.engine.MaxMint(s.now())
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, amountResult{Amount: bigString(max)})
}

func (s *Server) handleMaxRedeem(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params balanceParams
	if paramErr := bindParams(req, &params); paramErr != nil {
		writeError(w, http.StatusBadRequest, req.ID, paramErr.Code, paramErr.Message, paramErr.Data)
		return
	}
	addr, err := parseAddress(params.Address)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid address", err.Error())
		return
	}
	max, err := s.engine.MaxRedeemable(addr, s.now())
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, amountResult{Amount: bigString(max)})
}
