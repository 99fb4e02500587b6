package handlers

import (
	"net/http"

	"github.com/0xWizop/cypherx-engine/internal/application/orders"
	"github.com/0xWizop/cypherx-engine/internal/application/prediction"
)

// JobHandler exposes the engine passes as on-demand jobs. Schedulers hit
// these endpoints instead of embedding a ticker in the process; running
// the same job from several schedulers at once is safe.
type JobHandler struct {
	orders     *orders.Engine
	prediction *prediction.Engine
}

// NewJobHandler creates a job handler.
func NewJobHandler(o *orders.Engine, p *prediction.Engine) *JobHandler {
	return &JobHandler{orders: o, prediction: p}
}

// Monitor handles POST /api/v1/jobs/monitor.
func (h *JobHandler) Monitor(w http.ResponseWriter, r *http.Request) {
	res, err := h.orders.Monitor(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// Execute handles POST /api/v1/jobs/execute.
func (h *JobHandler) Execute(w http.ResponseWriter, r *http.Request) {
	res, err := h.orders.Execute(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// Resolve handles POST /api/v1/jobs/resolve.
func (h *JobHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	res, err := h.prediction.Resolve(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// Payouts handles POST /api/v1/jobs/payouts.
func (h *JobHandler) Payouts(w http.ResponseWriter, r *http.Request) {
	res, err := h.prediction.Payouts(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, res)
}
