package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/0xWizop/cypherx-engine/internal/domain"
	"github.com/0xWizop/cypherx-engine/internal/ports"
)

// PoolHandler serves the prediction pool surface: create, join, inspect.
type PoolHandler struct {
	store  ports.PoolStore
	oracle ports.PriceOracle
}

// NewPoolHandler creates a pool handler.
func NewPoolHandler(store ports.PoolStore, oracle ports.PriceOracle) *PoolHandler {
	return &PoolHandler{store: store, oracle: oracle}
}

type createPoolRequest struct {
	TokenAddress string    `json:"tokenAddress"`
	Type         string    `json:"type"`
	ThresholdPct float64   `json:"thresholdPct"`
	EndTime      time.Time `json:"endTime"`
	Liquidity    float64   `json:"liquidity"`
	MaxBetSize   float64   `json:"maxBetSize"`
}

type participantResponse struct {
	Wallet     string    `json:"wallet"`
	Stake      float64   `json:"stake"`
	Prediction string    `json:"prediction"`
	JoinedAt   time.Time `json:"joinedAt"`
	IsWinner   *bool     `json:"isWinner,omitempty"`
	Payout     float64   `json:"payout,omitempty"`
}

type poolResponse struct {
	ID             string                `json:"id"`
	TokenAddress   string                `json:"tokenAddress"`
	Type           string                `json:"type"`
	ThresholdPct   float64               `json:"thresholdPct"`
	StartTime      time.Time             `json:"startTime"`
	EndTime        time.Time             `json:"endTime"`
	StartPrice     float64               `json:"startPrice"`
	Status         string                `json:"status"`
	ExecStatus     string                `json:"execStatus"`
	EndPrice       float64               `json:"endPrice,omitempty"`
	PriceChangePct float64               `json:"priceChangePct,omitempty"`
	Outcome        string                `json:"outcome,omitempty"`
	TotalStaked    float64               `json:"totalStaked"`
	MaxBetSize     float64               `json:"maxBetSize,omitempty"`
	Participants   []participantResponse `json:"participants"`
}

func toPoolResponse(p domain.PredictionPool) poolResponse {
	resp := poolResponse{
		ID:             p.ID,
		TokenAddress:   p.TokenAddress,
		Type:           string(p.Type),
		ThresholdPct:   p.ThresholdPct,
		StartTime:      p.StartTime,
		EndTime:        p.EndTime,
		StartPrice:     p.StartPrice,
		Status:         string(p.Status),
		ExecStatus:     string(p.ExecStatus),
		EndPrice:       p.EndPrice,
		PriceChangePct: p.PriceChangePct,
		Outcome:        string(p.Outcome),
		TotalStaked:    p.TotalStaked,
		MaxBetSize:     p.MaxBetSize,
		Participants:   make([]participantResponse, 0, len(p.Participants)),
	}
	for _, q := range p.Participants {
		resp.Participants = append(resp.Participants, participantResponse{
			Wallet:     q.Wallet,
			Stake:      q.Stake,
			Prediction: string(q.Prediction),
			JoinedAt:   q.JoinedAt,
			IsWinner:   q.IsWinner,
			Payout:     q.Payout,
		})
	}
	return resp
}

// Create handles POST /api/v1/pools. The start price is pinned from the
// oracle at creation; a token without a live feed cannot open a pool.
func (h *PoolHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createPoolRequest
	if !decodeBody(w, r, &req) {
		return
	}

	startPrice, err := h.oracle.GetPrice(r.Context(), strings.ToLower(req.TokenAddress))
	if err != nil || startPrice <= 0 {
		writeError(w, http.StatusUnprocessableEntity, "no live price for token")
		return
	}

	now := time.Now().UTC()
	p := domain.PredictionPool{
		ID:           uuid.NewString(),
		TokenAddress: strings.ToLower(req.TokenAddress),
		Type:         domain.PredictionType(req.Type),
		ThresholdPct: req.ThresholdPct,
		StartTime:    now,
		EndTime:      req.EndTime,
		StartPrice:   startPrice,
		Status:       domain.PoolStatusActive,
		ExecStatus:   domain.ExecStatusPending,
		Liquidity:    req.Liquidity,
		MaxBetSize:   req.MaxBetSize,
	}

	if err := p.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.store.CreatePool(r.Context(), &p); err != nil {
		writeError(w, http.StatusInternalServerError, "create pool failed")
		return
	}
	writeJSON(w, http.StatusCreated, toPoolResponse(p))
}

// Get handles GET /api/v1/pools/{id}.
func (h *PoolHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	p, err := h.store.GetPool(r.Context(), id)
	if errors.Is(err, ports.ErrPoolNotFound) {
		writeError(w, http.StatusNotFound, "pool not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "get pool failed")
		return
	}
	writeJSON(w, http.StatusOK, toPoolResponse(p))
}

type joinPoolRequest struct {
	Wallet     string  `json:"wallet"`
	Stake      float64 `json:"stake"`
	Prediction string  `json:"prediction"`
}

// Join handles POST /api/v1/pools/{id}/join.
func (h *PoolHandler) Join(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	var req joinPoolRequest
	if !decodeBody(w, r, &req) {
		return
	}

	side := domain.BetSide(strings.ToUpper(req.Prediction))
	if side != domain.BetYes && side != domain.BetNo {
		writeError(w, http.StatusBadRequest, "prediction must be YES or NO")
		return
	}

	p, err := h.store.GetPool(r.Context(), id)
	if errors.Is(err, ports.ErrPoolNotFound) {
		writeError(w, http.StatusNotFound, "pool not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "get pool failed")
		return
	}

	if err := p.CanJoin(req.Wallet, req.Stake, time.Now().UTC()); err != nil {
		status := http.StatusBadRequest
		switch {
		case errors.Is(err, domain.ErrPoolClosed):
			status = http.StatusConflict
		case errors.Is(err, domain.ErrAlreadyJoined):
			status = http.StatusConflict
		}
		writeError(w, status, err.Error())
		return
	}

	participant := domain.Participant{
		Wallet:     strings.ToLower(req.Wallet),
		Stake:      req.Stake,
		Prediction: side,
		JoinedAt:   time.Now().UTC(),
	}

	err = h.store.JoinPool(r.Context(), id, participant)
	switch {
	case errors.Is(err, domain.ErrAlreadyJoined):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrPoolClosed):
		writeError(w, http.StatusConflict, err.Error())
	case err != nil:
		writeError(w, http.StatusInternalServerError, "join pool failed")
	default:
		writeJSON(w, http.StatusCreated, participantResponse{
			Wallet:     participant.Wallet,
			Stake:      participant.Stake,
			Prediction: string(participant.Prediction),
			JoinedAt:   participant.JoinedAt,
		})
	}
}
