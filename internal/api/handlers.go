package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/stablemint/stablemint/internal/engine"
	"github.com/stablemint/stablemint/internal/oracle"
)

// statusFor maps engine errors onto HTTP status codes so clients can
// distinguish validation failures from solvency rejections from oracle
// outages.
func statusFor(err error) int {
	switch {
	case errors.Is(err, engine.ErrInvalidAmount),
		errors.Is(err, engine.ErrTokenNotRegistered):
		return http.StatusBadRequest
	case errors.Is(err, engine.ErrInsufficientCollateral),
		errors.Is(err, engine.ErrInsufficientDebt):
		return http.StatusUnprocessableEntity
	case errors.Is(err, engine.ErrHealthFactorViolation),
		errors.Is(err, engine.ErrPositionHealthy),
		errors.Is(err, engine.ErrLiquidationIneffective),
		errors.Is(err, engine.ErrReentrantCall):
		return http.StatusConflict
	case errors.Is(err, engine.ErrTransferFailed),
		errors.Is(err, engine.ErrMintFailed):
		return http.StatusBadGateway
	case errors.Is(err, oracle.ErrStalePrice):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// parseAmount parses a positive decimal-string amount.
func parseAmount(raw string) (*big.Int, error) {
	amount, ok := new(big.Int).SetString(raw, 10)
	if !ok {
		return nil, fmt.Errorf("%w: %q is not an integer", engine.ErrInvalidAmount, raw)
	}
	return amount, nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respond(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleTokens(w http.ResponseWriter, r *http.Request) {
	s.respond(w, http.StatusOK, map[string]interface{}{
		"tokens": s.engine.RegisteredTokens(),
	})
}

func (s *Server) handleConstants(w http.ResponseWriter, r *http.Request) {
	s.respond(w, http.StatusOK, engine.ProtocolConstants())
}

func (s *Server) handleSolvency(w http.ResponseWriter, r *http.Request) {
	report, err := s.engine.Solvency()
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respond(w, http.StatusOK, map[string]interface{}{
		"total_collateral_usd": report.TotalCollateralUSD.String(),
		"total_debt":           report.TotalDebt.String(),
		"solvent":              report.Solvent,
	})
}

func (s *Server) handleAccount(w http.ResponseWriter, r *http.Request) {
	account := mux.Vars(r)["account"]

	debt, collateralUSD, err := s.engine.AccountInformation(account)
	if err != nil {
		s.respondError(w, err)
		return
	}
	factor, err := s.engine.AccountHealthFactor(account)
	if err != nil {
		s.respondError(w, err)
		return
	}

	s.respond(w, http.StatusOK, map[string]interface{}{
		"account":              account,
		"debt":                 debt.String(),
		"collateral_value_usd": collateralUSD.String(),
		"health_factor":        factor.String(),
	})
}

func (s *Server) handleCollateralBalance(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	balance := s.engine.CollateralBalance(vars["account"], vars["token"])
	s.respond(w, http.StatusOK, map[string]interface{}{
		"account": vars["account"],
		"token":   vars["token"],
		"balance": balance.String(),
	})
}

func (s *Server) handleUsdValue(w http.ResponseWriter, r *http.Request) {
	tokenSymbol := r.URL.Query().Get("token")
	amount, err := parseAmount(r.URL.Query().Get("amount"))
	if err != nil {
		s.respondError(w, err)
		return
	}

	value, err := s.engine.UsdValue(tokenSymbol, amount)
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respond(w, http.StatusOK, map[string]string{
		"token":     tokenSymbol,
		"amount":    amount.String(),
		"usd_value": value.String(),
	})
}

func (s *Server) handleTokenAmount(w http.ResponseWriter, r *http.Request) {
	tokenSymbol := r.URL.Query().Get("token")
	usd, err := parseAmount(r.URL.Query().Get("usd"))
	if err != nil {
		s.respondError(w, err)
		return
	}

	amount, err := s.engine.TokenAmount(tokenSymbol, usd)
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respond(w, http.StatusOK, map[string]string{
		"token":     tokenSymbol,
		"usd_value": usd.String(),
		"amount":    amount.String(),
	})
}

type depositRequest struct {
	Account string `json:"account"`
	Token   string `json:"token"`
	Amount  string `json:"amount"`
}

func (s *Server) handleDeposit(w http.ResponseWriter, r *http.Request) {
	var req depositRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, fmt.Errorf("%w: %v", engine.ErrInvalidAmount, err))
		return
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		s.respondError(w, err)
		return
	}
	if err := s.engine.DepositCollateral(req.Account, req.Token, amount); err != nil {
		s.respondError(w, err)
		return
	}
	s.respond(w, http.StatusOK, nil)
}

type mintRequest struct {
	Account string `json:"account"`
	Amount  string `json:"amount"`
}

func (s *Server) handleMint(w http.ResponseWriter, r *http.Request) {
	var req mintRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, fmt.Errorf("%w: %v", engine.ErrInvalidAmount, err))
		return
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		s.respondError(w, err)
		return
	}
	if err := s.engine.MintDebt(req.Account, amount); err != nil {
		s.respondError(w, err)
		return
	}
	s.respond(w, http.StatusOK, nil)
}

type depositAndMintRequest struct {
	Account          string `json:"account"`
	Token            string `json:"token"`
	CollateralAmount string `json:"collateral_amount"`
	DebtAmount       string `json:"debt_amount"`
}

func (s *Server) handleDepositAndMint(w http.ResponseWriter, r *http.Request) {
	var req depositAndMintRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, fmt.Errorf("%w: %v", engine.ErrInvalidAmount, err))
		return
	}
	collateral, err := parseAmount(req.CollateralAmount)
	if err != nil {
		s.respondError(w, err)
		return
	}
	debt, err := parseAmount(req.DebtAmount)
	if err != nil {
		s.respondError(w, err)
		return
	}
	if err := s.engine.DepositAndMint(req.Account, req.Token, collateral, debt); err != nil {
		s.respondError(w, err)
		return
	}
	s.respond(w, http.StatusOK, nil)
}

func (s *Server) handleRedeem(w http.ResponseWriter, r *http.Request) {
	var req depositRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, fmt.Errorf("%w: %v", engine.ErrInvalidAmount, err))
		return
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		s.respondError(w, err)
		return
	}
	if err := s.engine.RedeemCollateral(req.Account, req.Token, amount); err != nil {
		s.respondError(w, err)
		return
	}
	s.respond(w, http.StatusOK, nil)
}

type burnRequest struct {
	OnBehalfOf string `json:"on_behalf_of"`
	Payer      string `json:"payer"`
	Amount     string `json:"amount"`
}

func (s *Server) handleBurn(w http.ResponseWriter, r *http.Request) {
	var req burnRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, fmt.Errorf("%w: %v", engine.ErrInvalidAmount, err))
		return
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		s.respondError(w, err)
		return
	}
	payer := req.Payer
	if payer == "" {
		payer = req.OnBehalfOf
	}
	if err := s.engine.BurnDebt(req.OnBehalfOf, payer, amount); err != nil {
		s.respondError(w, err)
		return
	}
	s.respond(w, http.StatusOK, nil)
}

func (s *Server) handleRedeemAndBurn(w http.ResponseWriter, r *http.Request) {
	var req depositAndMintRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, fmt.Errorf("%w: %v", engine.ErrInvalidAmount, err))
		return
	}
	collateral, err := parseAmount(req.CollateralAmount)
	if err != nil {
		s.respondError(w, err)
		return
	}
	debt, err := parseAmount(req.DebtAmount)
	if err != nil {
		s.respondError(w, err)
		return
	}
	if err := s.engine.RedeemAndBurn(req.Account, req.Token, collateral, debt); err != nil {
		s.respondError(w, err)
		return
	}
	s.respond(w, http.StatusOK, nil)
}

type liquidateRequest struct {
	Liquidator  string `json:"liquidator"`
	Target      string `json:"target"`
	Token       string `json:"token"`
	DebtToCover string `json:"debt_to_cover"`
}

func (s *Server) handleLiquidate(w http.ResponseWriter, r *http.Request) {
	var req liquidateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, fmt.Errorf("%w: %v", engine.ErrInvalidAmount, err))
		return
	}
	debtToCover, err := parseAmount(req.DebtToCover)
	if err != nil {
		s.respondError(w, err)
		return
	}
	if err := s.engine.Liquidate(req.Liquidator, req.Target, req.Token, debtToCover); err != nil {
		s.respondError(w, err)
		return
	}
	s.respond(w, http.StatusOK, nil)
}
