package wmd

import (
	"encoding/json"
	"log/slog"
	"math/big"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"wrappedm/native/wrapped"
	"wrappedm/observability"
	"wrappedm/observability/metrics"
)

// Server exposes the read-only query API over the wrapper ledger.
type Server struct {
	engine *wrapped.Engine
	logger *slog.Logger
	router http.Handler
}

// NewServer builds the HTTP surface around a wired engine.
func NewServer(engine *wrapped.Engine, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	srv := &Server{engine: engine, logger: logger}
	srv.router = srv.buildRouter()
	return srv
}

// Handler exposes the configured HTTP router.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(observeRequests)

	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())
	r.Route("/v1", func(api chi.Router) {
		api.Get("/supply", s.handleSupply)
		api.Get("/earning", s.handleEarning)
		api.Get("/accounts/{address}", s.handleAccount)
	})
	return r
}

func observeRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		route := chi.RouteContext(r.Context()).RoutePattern()
		observability.QueryMetrics().Observe(route, ww.Status(), time.Since(start))
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string, err error) {
	if err != nil {
		s.logger.Error(msg, "err", err)
	}
	writeJSON(w, status, map[string]string{"error": msg})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if _, err := s.engine.TotalSupply(); err != nil {
		s.writeError(w, http.StatusServiceUnavailable, "ledger unavailable", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func amountString(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

type supplyResponse struct {
	Total        string `json:"total"`
	NonEarning   string `json:"nonEarning"`
	Earning      string `json:"earning"`
	Principal    string `json:"earningPrincipal"`
	AccruedYield string `json:"accruedYield"`
	Excess       string `json:"excess"`
}

func (s *Server) handleSupply(w http.ResponseWriter, r *http.Request) {
	nonEarning, err := s.engine.TotalNonEarningSupply()
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "query supply", err)
		return
	}
	earning, err := s.engine.TotalEarningSupply()
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "query supply", err)
		return
	}
	principal, err := s.engine.PrincipalOfTotalEarningSupply()
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "query supply", err)
		return
	}
	accrued, err := s.engine.TotalAccruedYield()
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "query supply", err)
		return
	}
	excess, err := s.engine.Excess()
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "query supply", err)
		return
	}

	reg := metrics.Wrapped()
	reg.SetSupply(nonEarning, earning)
	reg.SetExcess(excess)

	writeJSON(w, http.StatusOK, supplyResponse{
		Total:        amountString(new(big.Int).Add(nonEarning, earning)),
		NonEarning:   amountString(nonEarning),
		Earning:      amountString(earning),
		Principal:    amountString(principal),
		AccruedYield: amountString(accrued),
		Excess:       amountString(excess),
	})
}

type earningResponse struct {
	Enabled      bool   `json:"enabled"`
	WasEnabled   bool   `json:"wasEnabled"`
	CurrentIndex string `json:"currentIndex"`
}

func (s *Server) handleEarning(w http.ResponseWriter, r *http.Request) {
	enabled, err := s.engine.IsEarningEnabled()
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "query earning state", err)
		return
	}
	was, err := s.engine.WasEarningEnabled()
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "query earning state", err)
		return
	}
	index, err := s.engine.CurrentIndex()
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "query earning state", err)
		return
	}
	metrics.Wrapped().SetIndex(index)
	writeJSON(w, http.StatusOK, earningResponse{
		Enabled:      enabled,
		WasEnabled:   was,
		CurrentIndex: amountString(index),
	})
}

type accountResponse struct {
	Address          string `json:"address"`
	Earning          bool   `json:"earning"`
	Balance          string `json:"balance"`
	AccruedYield     string `json:"accruedYield"`
	BalanceWithYield string `json:"balanceWithYield"`
	LastIndex        string `json:"lastIndex,omitempty"`
}

func (s *Server) handleAccount(w http.ResponseWriter, r *http.Request) {
	raw := chi.URLParam(r, "address")
	if !common.IsHexAddress(raw) {
		s.writeError(w, http.StatusBadRequest, "invalid address", nil)
		return
	}
	addr := common.HexToAddress(raw)

	earning, err := s.engine.IsEarning(addr)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "query account", err)
		return
	}
	balance, err := s.engine.BalanceOf(addr)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "query account", err)
		return
	}
	yield, err := s.engine.AccruedYieldOf(addr)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "query account", err)
		return
	}
	live, err := s.engine.BalanceWithYieldOf(addr)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "query account", err)
		return
	}

	resp := accountResponse{
		Address:          addr.Hex(),
		Earning:          earning,
		Balance:          amountString(balance),
		AccruedYield:     amountString(yield),
		BalanceWithYield: amountString(live),
	}
	if earning {
		last, err := s.engine.LastIndexOf(addr)
		if err != nil {
			s.writeError(w, http.StatusInternalServerError, "query account", err)
			return
		}
		resp.LastIndex = amountString(last)
	}
	writeJSON(w, http.StatusOK, resp)
}
