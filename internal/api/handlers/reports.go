package handlers

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/0xWizop/cypherx-engine/internal/application/ledger"
)

// ReportHandler serves derived ledger views: positions and tax reports.
type ReportHandler struct {
	ledger *ledger.Service
}

// NewReportHandler creates a report handler.
func NewReportHandler(svc *ledger.Service) *ReportHandler {
	return &ReportHandler{ledger: svc}
}

// Positions handles GET /api/v1/wallets/{wallet}/positions.
func (h *ReportHandler) Positions(w http.ResponseWriter, r *http.Request) {
	wallet := mux.Vars(r)["wallet"]

	positions, err := h.ledger.Positions(r.Context(), wallet)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "build positions failed")
		return
	}
	writeJSON(w, http.StatusOK, positions)
}

// Position handles GET /api/v1/wallets/{wallet}/positions/{token}.
func (h *ReportHandler) Position(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	pos, err := h.ledger.Position(r.Context(), vars["wallet"], vars["token"])
	if err != nil {
		writeError(w, http.StatusInternalServerError, "build position failed")
		return
	}
	writeJSON(w, http.StatusOK, pos)
}

// TaxReport handles GET /api/v1/wallets/{wallet}/tax-report?year=2025.
func (h *ReportHandler) TaxReport(w http.ResponseWriter, r *http.Request) {
	wallet := mux.Vars(r)["wallet"]

	year, err := strconv.Atoi(r.URL.Query().Get("year"))
	if err != nil || year < 2000 || year > 2200 {
		writeError(w, http.StatusBadRequest, "valid year query parameter required")
		return
	}

	report, err := h.ledger.TaxReport(r.Context(), wallet, year)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "build tax report failed")
		return
	}
	writeJSON(w, http.StatusOK, report)
}
