package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/radieske/bet-settlement-engine/internal/settlement/coordinator"
	"github.com/radieske/bet-settlement-engine/internal/settlement/domain"
	"github.com/radieske/bet-settlement-engine/internal/settlement/dto"
	"github.com/radieske/bet-settlement-engine/internal/settlement/ledger"
	"github.com/radieske/bet-settlement-engine/internal/settlement/market"
	"github.com/radieske/bet-settlement-engine/internal/settlement/repo"
)

// Coordinator define as operações de liquidação usadas pelos handlers
type Coordinator interface {
	ResolveMatch(ctx context.Context, matchID string) (*coordinator.Report, error)
	ForceResolveMatch(ctx context.Context, matchID string) (*coordinator.Report, error)
	ResolveWager(ctx context.Context, wagerID string) (*coordinator.Resolution, error)
	SweepStale(ctx context.Context) ([]*coordinator.Report, error)
	RetryCredits(ctx context.Context) (int, error)
	CancelWager(ctx context.Context, wagerID string) error
	InFlight(ctx context.Context, matchID string) (bool, error)
}

type WagerReader interface {
	GetWager(ctx context.Context, wagerID string) (*domain.Wager, error)
}

type BalanceReader interface {
	Balance(ctx context.Context, userID string) (int64, error)
}

// Server expõe a API de administração da liquidação
type Server struct {
	log      *zap.Logger
	coord    Coordinator
	wagers   WagerReader
	balances BalanceReader // opcional
}

func NewServer(log *zap.Logger, c Coordinator, w WagerReader, b BalanceReader) *Server {
	return &Server{log: log, coord: c, wagers: w, balances: b}
}

// Router retorna o roteador HTTP com as rotas de administração
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Post("/v1/matches/{id}/resolve", s.resolveMatch)
	r.Post("/v1/matches/{id}/force-resolve", s.forceResolveMatch)
	r.Get("/v1/matches/{id}/in-flight", s.inFlight)
	r.Get("/v1/wagers/{id}", s.getWager)
	r.Post("/v1/wagers/{id}/resolve", s.resolveWager)
	r.Post("/v1/wagers/{id}/cancel", s.cancelWager)
	r.Post("/v1/sweep", s.sweep)
	r.Post("/v1/credits/retry", s.retryCredits)
	r.Get("/v1/users/{id}/balance", s.balance)
	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError traduz erros de domínio em status HTTP
func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, repo.ErrNotFound), errors.Is(err, ledger.ErrWalletNotFound):
		status = http.StatusNotFound
	case errors.Is(err, coordinator.ErrWagerNotPending), errors.Is(err, coordinator.ErrResolutionInFlight):
		status = http.StatusConflict
	default:
		s.log.Error("admin request failed", zap.Error(err))
	}
	writeJSON(w, status, dto.ErrorResponse{Error: err.Error()})
}

func (s *Server) resolveMatch(w http.ResponseWriter, r *http.Request) {
	rep, err := s.coord.ResolveMatch(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

func (s *Server) forceResolveMatch(w http.ResponseWriter, r *http.Request) {
	rep, err := s.coord.ForceResolveMatch(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

func (s *Server) inFlight(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	busy, err := s.coord.InFlight(r.Context(), id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.InFlightResponse{MatchID: id, InFlight: busy})
}

// getWager retorna a aposta com o status de exibição
func (s *Server) getWager(w http.ResponseWriter, r *http.Request) {
	wg, err := s.wagers.GetWager(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toWagerResponse(*wg))
}

func (s *Server) resolveWager(w http.ResponseWriter, r *http.Request) {
	res, err := s.coord.ResolveWager(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) cancelWager(w http.ResponseWriter, r *http.Request) {
	if err := s.coord.CancelWager(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"CANCELLED"}`))
}

func (s *Server) sweep(w http.ResponseWriter, r *http.Request) {
	reps, err := s.coord.SweepStale(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	if reps == nil {
		reps = []*coordinator.Report{}
	}
	writeJSON(w, http.StatusOK, reps)
}

func (s *Server) retryCredits(w http.ResponseWriter, r *http.Request) {
	n, err := s.coord.RetryCredits(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.RetryCreditsResponse{Credited: n})
}

func (s *Server) balance(w http.ResponseWriter, r *http.Request) {
	if s.balances == nil {
		writeJSON(w, http.StatusNotImplemented, dto.ErrorResponse{Error: "balance not available"})
		return
	}
	id := chi.URLParam(r, "id")
	bal, err := s.balances.Balance(r.Context(), id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.BalanceResponse{UserID: id, BalanceCents: bal})
}

func toWagerResponse(w domain.Wager) dto.WagerResponse {
	out := dto.WagerResponse{
		BetID:          w.ID,
		UserID:         w.UserID,
		MatchID:        w.MatchID,
		Market:         w.BetType,
		Selection:      w.Selection,
		MarketKind:     market.Normalize(w.Selection, w.BetType).Kind.String(),
		StakeCents:     w.StakeCents,
		OddValue:       w.OddValue,
		Status:         string(w.DisplayStatus()),
		AwaitingCredit: w.AwaitingCredit(),
	}
	if w.DisplayStatus().Terminal() {
		out.SettledAmount = w.SettledAmountCents
		out.SettledAt = w.SettledAt
	}
	return out
}
