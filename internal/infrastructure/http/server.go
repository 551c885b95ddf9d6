package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"putshield-service/internal/application"
	"putshield-service/internal/domain"
	"putshield-service/internal/volatility"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

// ExpiryRunner is the slice of the settlement job the admin trigger needs.
type ExpiryRunner interface {
	RunOnce(ctx context.Context) (application.SettlementStats, error)
}

type Server struct {
	svc     *application.ProtectionService
	regimes *volatility.RegimeStore
	settler ExpiryRunner
	ping    func(ctx context.Context) error
}

func NewServer(svc *application.ProtectionService, regimes *volatility.RegimeStore, settler ExpiryRunner, ping func(ctx context.Context) error) *Server {
	return &Server{svc: svc, regimes: regimes, settler: settler, ping: ping}
}

type quoteRequest struct {
	HoldingID    string          `json:"holding_id"`
	CoveragePct  decimal.Decimal `json:"coverage_pct"`
	DurationDays int             `json:"duration_days"`
}

func (s *Server) CreateQuote(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	var body quoteRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if body.HoldingID == "" {
		writeError(w, http.StatusBadRequest, "holding_id is required")
		return
	}
	q, err := s.svc.GetQuote(r.Context(), body.HoldingID, body.CoveragePct, body.DurationDays, userID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, q)
}

func (s *Server) GetQuoteCurve(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	holdingID := r.URL.Query().Get("holding_id")
	if holdingID == "" {
		writeError(w, http.StatusBadRequest, "holding_id is required")
		return
	}
	coverage, err := decimal.NewFromString(r.URL.Query().Get("coverage_pct"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "coverage_pct must be a decimal")
		return
	}
	curve, err := s.svc.GetPremiumCurve(r.Context(), holdingID, coverage, userID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"holding_id": holdingID, "curve": curve})
}

func (s *Server) GetQuote(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	cq, err := s.svc.GetCachedQuote(r.Context(), chi.URLParam(r, "id"), userID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cq)
}

func (s *Server) ReserveQuote(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	cq, err := s.svc.ReserveQuote(r.Context(), chi.URLParam(r, "id"), userID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cq)
}

func (s *Server) ReleaseQuote(w http.ResponseWriter, r *http.Request) {
	if _, ok := callerID(w, r); !ok {
		return
	}
	if err := s.svc.ReleaseQuote(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ConsumeQuote is the purchase endpoint: the quote is consumed exactly once
// and a protection is created in its place.
func (s *Server) ConsumeQuote(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	p, err := s.svc.PurchaseProtection(r.Context(), chi.URLParam(r, "id"), userID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

type regimeRequest struct {
	AssetID    string  `json:"asset_id"`
	Multiplier float64 `json:"multiplier"`
}

func (s *Server) SetRegime(w http.ResponseWriter, r *http.Request) {
	var body regimeRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if body.AssetID == "" {
		writeError(w, http.StatusBadRequest, "asset_id is required")
		return
	}
	regime := s.regimes.Set(body.AssetID, body.Multiplier)
	writeJSON(w, http.StatusOK, map[string]any{
		"asset_id":   body.AssetID,
		"multiplier": s.regimes.Get(body.AssetID),
		"regime":     regime,
	})
}

func (s *Server) RunExpiryCheck(w http.ResponseWriter, r *http.Request) {
	stats, err := s.settler.RunOnce(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "expiry check failed")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func callerID(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID := r.Header.Get("X-User-ID")
	if userID == "" {
		writeError(w, http.StatusUnauthorized, "X-User-ID header is required")
		return "", false
	}
	return userID, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type errorBody struct {
	Error  string `json:"error"`
	Action string `json:"action,omitempty"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorBody{Error: msg})
}

func writeErrorAction(w http.ResponseWriter, status int, msg, action string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorBody{Error: msg, Action: action})
}

// writeDomainError maps the domain error taxonomy to HTTP statuses. Expired
// and conflicting quotes carry re-quote guidance so clients know the price
// merely moved on.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrValidation):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, domain.ErrUnauthorized):
		writeError(w, http.StatusForbidden, "quote belongs to another user")
	case errors.Is(err, domain.ErrExpired):
		writeErrorAction(w, http.StatusGone, "quote expired", "request a new quote")
	case errors.Is(err, domain.ErrQuoteInUse):
		writeErrorAction(w, http.StatusConflict, "quote is being processed", "retry or request a new quote")
	case errors.Is(err, domain.ErrConflict):
		writeErrorAction(w, http.StatusConflict, err.Error(), "request a new quote")
	case errors.Is(err, domain.ErrUnavailable):
		writeError(w, http.StatusServiceUnavailable, "pricing temporarily unavailable")
	default:
		writeError(w, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
	}
}
