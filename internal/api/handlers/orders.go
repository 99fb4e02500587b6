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

// OrderHandler serves the conditional-order CRUD surface.
type OrderHandler struct {
	store ports.OrderStore
}

// NewOrderHandler creates an order handler.
func NewOrderHandler(store ports.OrderStore) *OrderHandler {
	return &OrderHandler{store: store}
}

type createOrderRequest struct {
	Wallet         string     `json:"wallet"`
	Type           string     `json:"type"`
	TokenIn        string     `json:"tokenIn"`
	TokenOut       string     `json:"tokenOut"`
	AmountIn       float64    `json:"amountIn"`
	TargetPrice    *float64   `json:"targetPrice,omitempty"`
	StopPrice      *float64   `json:"stopPrice,omitempty"`
	LimitPrice     *float64   `json:"limitPrice,omitempty"`
	SlippageBps    int        `json:"slippageBps"`
	ExpiresAt      *time.Time `json:"expiresAt,omitempty"`
	GoodTillCancel bool       `json:"goodTillCancel"`
}

type orderResponse struct {
	ID             string     `json:"id"`
	Wallet         string     `json:"wallet"`
	Type           string     `json:"type"`
	Status         string     `json:"status"`
	TokenIn        string     `json:"tokenIn"`
	TokenOut       string     `json:"tokenOut"`
	AmountIn       float64    `json:"amountIn"`
	TargetPrice    *float64   `json:"targetPrice,omitempty"`
	StopPrice      *float64   `json:"stopPrice,omitempty"`
	LimitPrice     *float64   `json:"limitPrice,omitempty"`
	SlippageBps    int        `json:"slippageBps"`
	StopArmed      bool       `json:"stopArmed"`
	CheckCount     int        `json:"checkCount"`
	ExpiresAt      *time.Time `json:"expiresAt,omitempty"`
	GoodTillCancel bool       `json:"goodTillCancel"`
	ErrorMessage   string     `json:"errorMessage,omitempty"`
	TxHash         string     `json:"txHash,omitempty"`
	BuyAmount      float64    `json:"buyAmount,omitempty"`
	GasCostUSD     float64    `json:"gasCostUsd,omitempty"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt"`
}

func toOrderResponse(o domain.Order) orderResponse {
	return orderResponse{
		ID:             o.ID,
		Wallet:         o.Wallet,
		Type:           string(o.Type),
		Status:         string(o.Status),
		TokenIn:        o.TokenIn,
		TokenOut:       o.TokenOut,
		AmountIn:       o.AmountIn,
		TargetPrice:    o.TargetPrice,
		StopPrice:      o.StopPrice,
		LimitPrice:     o.LimitPrice,
		SlippageBps:    o.SlippageBps,
		StopArmed:      o.StopArmed,
		CheckCount:     o.CheckCount,
		ExpiresAt:      o.ExpiresAt,
		GoodTillCancel: o.GoodTillCancel,
		ErrorMessage:   o.ErrorMessage,
		TxHash:         o.TxHash,
		BuyAmount:      o.BuyAmount,
		GasCostUSD:     o.GasCostUSD,
		CreatedAt:      o.CreatedAt,
		UpdatedAt:      o.UpdatedAt,
	}
}

// Create handles POST /api/v1/orders.
func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if !decodeBody(w, r, &req) {
		return
	}

	o := domain.Order{
		ID:             uuid.NewString(),
		Wallet:         req.Wallet,
		Type:           domain.OrderType(req.Type),
		TokenIn:        req.TokenIn,
		TokenOut:       req.TokenOut,
		AmountIn:       req.AmountIn,
		TargetPrice:    req.TargetPrice,
		StopPrice:      req.StopPrice,
		LimitPrice:     req.LimitPrice,
		SlippageBps:    req.SlippageBps,
		Status:         domain.OrderStatusPending,
		ExpiresAt:      req.ExpiresAt,
		GoodTillCancel: req.GoodTillCancel,
	}
	o.NormalizeAddresses()

	if err := o.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.store.CreateOrder(r.Context(), &o); err != nil {
		writeError(w, http.StatusInternalServerError, "create order failed")
		return
	}
	writeJSON(w, http.StatusCreated, toOrderResponse(o))
}

// Get handles GET /api/v1/orders/{id}.
func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	o, err := h.store.GetOrder(r.Context(), id)
	if errors.Is(err, ports.ErrOrderNotFound) {
		writeError(w, http.StatusNotFound, "order not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "get order failed")
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(o))
}

// ListByWallet handles GET /api/v1/orders?wallet=0x...
func (h *OrderHandler) ListByWallet(w http.ResponseWriter, r *http.Request) {
	wallet := r.URL.Query().Get("wallet")
	if wallet == "" {
		writeError(w, http.StatusBadRequest, "wallet query parameter required")
		return
	}

	orders, err := h.store.ListOrdersByWallet(r.Context(), strings.ToLower(wallet))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "list orders failed")
		return
	}

	out := make([]orderResponse, 0, len(orders))
	for _, o := range orders {
		out = append(out, toOrderResponse(o))
	}
	writeJSON(w, http.StatusOK, out)
}

type cancelOrderRequest struct {
	Wallet string `json:"wallet"`
}

// Cancel handles DELETE /api/v1/orders/{id}. Only the owner can cancel, and
// only while the order is still pending.
func (h *OrderHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	var req cancelOrderRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Wallet == "" {
		writeError(w, http.StatusBadRequest, "wallet required")
		return
	}

	err := h.store.CancelOrder(r.Context(), id, strings.ToLower(req.Wallet))
	switch {
	case errors.Is(err, ports.ErrOrderNotFound):
		writeError(w, http.StatusNotFound, "order not found")
	case errors.Is(err, ports.ErrNotOwner):
		writeError(w, http.StatusForbidden, "order owned by a different wallet")
	case errors.Is(err, ports.ErrStaleStatus):
		writeError(w, http.StatusConflict, "order is no longer pending")
	case err != nil:
		writeError(w, http.StatusInternalServerError, "cancel order failed")
	default:
		writeJSON(w, http.StatusOK, map[string]string{"status": "cancelled"})
	}
}
