package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/stablemint/stablemint/internal/engine"
)

// Config defines API server configuration.
type Config struct {
	Enabled    bool   `mapstructure:"enabled"`
	ListenAddr string `mapstructure:"listen_addr"`
}

// Server exposes the engine's query and mutation surface over HTTP.
type Server struct {
	logger *zap.Logger
	config Config
	router *mux.Router
	server *http.Server
	engine *engine.Engine
}

// Response is the JSON envelope for every API reply.
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
	Time    time.Time   `json:"time"`
}

// NewServer creates an API server around an engine.
func NewServer(logger *zap.Logger, config Config, eng *engine.Engine) *Server {
	s := &Server{
		logger: logger,
		config: config,
		engine: eng,
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	r := mux.NewRouter()
	v1 := r.PathPrefix("/api/v1").Subrouter()

	// Read-only surface
	v1.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	v1.HandleFunc("/tokens", s.handleTokens).Methods(http.MethodGet)
	v1.HandleFunc("/constants", s.handleConstants).Methods(http.MethodGet)
	v1.HandleFunc("/solvency", s.handleSolvency).Methods(http.MethodGet)
	v1.HandleFunc("/convert/usd", s.handleUsdValue).Methods(http.MethodGet)
	v1.HandleFunc("/convert/token", s.handleTokenAmount).Methods(http.MethodGet)
	v1.HandleFunc("/accounts/{account}", s.handleAccount).Methods(http.MethodGet)
	v1.HandleFunc("/accounts/{account}/collateral/{token}", s.handleCollateralBalance).Methods(http.MethodGet)
	v1.HandleFunc("/events", s.handleEventStream)

	// Mutating surface
	v1.HandleFunc("/deposit", s.handleDeposit).Methods(http.MethodPost)
	v1.HandleFunc("/mint", s.handleMint).Methods(http.MethodPost)
	v1.HandleFunc("/deposit-and-mint", s.handleDepositAndMint).Methods(http.MethodPost)
	v1.HandleFunc("/redeem", s.handleRedeem).Methods(http.MethodPost)
	v1.HandleFunc("/burn", s.handleBurn).Methods(http.MethodPost)
	v1.HandleFunc("/redeem-and-burn", s.handleRedeemAndBurn).Methods(http.MethodPost)
	v1.HandleFunc("/liquidate", s.handleLiquidate).Methods(http.MethodPost)

	s.router = r
}

// Router exposes the handler for tests.
func (s *Server) Router() http.Handler {
	return s.router
}

// Start begins serving until Stop.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         s.config.ListenAddr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info("Starting API server", zap.String("listen_addr", s.config.ListenAddr))
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("API server error", zap.Error(err))
		}
	}()
	return nil
}

// Stop gracefully shuts the server down.
func (s *Server) Stop(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func (s *Server) respond(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(Response{
		Success: status < http.StatusBadRequest,
		Data:    data,
		Time:    time.Now().UTC(),
	})
}

func (s *Server) respondError(w http.ResponseWriter, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusFor(err))
	_ = json.NewEncoder(w).Encode(Response{
		Success: false,
		Error:   err.Error(),
		Time:    time.Now().UTC(),
	})
}
