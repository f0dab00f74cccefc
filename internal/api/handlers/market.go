// Package handlers holds the HTTP handlers. They are thin callers of
// the pipeline; all business decisions live below them.
package handlers

import (
	"context"
	"errors"
	"net/http"
	"sort"
	"sync/atomic"
	"time"

	"github.com/gorilla/mux"

	"github.com/marchino/etfwatch/internal/market"
	"github.com/marchino/etfwatch/internal/pipeline"
	"github.com/marchino/etfwatch/pkg/logger"
)

// FundUpdater runs one fund NAV refresh.
type FundUpdater interface {
	Run(ctx context.Context) error
}

// MarketHandler handles the market data API endpoints.
type MarketHandler struct {
	runner      *pipeline.Runner
	fundUpdater FundUpdater
	logger      *logger.Logger

	fundUpdateBusy atomic.Bool
}

// NewMarketHandler creates a market handler.
func NewMarketHandler(runner *pipeline.Runner, fundUpdater FundUpdater, log *logger.Logger) *MarketHandler {
	return &MarketHandler{
		runner:      runner,
		fundUpdater: fundUpdater,
		logger:      log,
	}
}

// InstrumentPayload is one instrument row in the market-status
// response. Role-mapped variations are rendered strings ("N/A" when
// unavailable).
type InstrumentPayload struct {
	Symbol        string            `json:"symbol"`
	Label         string            `json:"label"`
	Price         market.Price      `json:"price"`
	PreviousClose market.Price      `json:"previous_close"`
	DailyChange   market.Price      `json:"daily_change"`
	SnapshotDate  string            `json:"snapshot_date"`
	Status        string            `json:"status"`
	Variations    map[string]string `json:"variations"`
}

// MarketStatusResponse is the aggregate market-status payload, also
// pushed over the websocket feed.
type MarketStatusResponse struct {
	Datetime string `json:"datetime"`
	Status   string `json:"status"` // APERTO / CHIUSO
	Open     bool   `json:"open"`
	Values   struct {
		Source string              `json:"source"`
		Data   []InstrumentPayload `json:"data"`
	} `json:"values"`
}

// MarketStatusPayload shapes a pass output for API and feed consumers.
func MarketStatusPayload(output pipeline.PassOutput) MarketStatusResponse {
	resp := MarketStatusResponse{
		Datetime: time.Now().Format(time.RFC3339),
		Open:     output.MarketOpen,
		Status:   "CHIUSO",
	}
	if output.MarketOpen {
		resp.Status = "APERTO"
	}
	resp.Values.Source = "live"

	symbols := make([]string, 0, len(output.Results))
	for symbol := range output.Results {
		symbols = append(symbols, symbol)
	}
	sort.Strings(symbols)

	for _, symbol := range symbols {
		res := output.Results[symbol]
		row := InstrumentPayload{
			Symbol:        res.Symbol,
			Label:         res.Label,
			Price:         res.Price,
			PreviousClose: res.PreviousClose,
			DailyChange:   res.DailyChange,
			SnapshotDate:  res.SnapshotDate.Format("2006-01-02"),
			Status:        string(res.Status),
			Variations:    make(map[string]string, len(res.Roles)),
		}
		for role, v := range res.Roles {
			row.Variations[role] = v.String()
		}
		resp.Values.Data = append(resp.Values.Data, row)
	}
	return resp
}

// GetMarketStatus runs a synchronous pass and returns the aggregate.
// GET /api/market-status
func (h *MarketHandler) GetMarketStatus(w http.ResponseWriter, r *http.Request) {
	output := h.runner.Run(r.Context())
	respondJSON(w, http.StatusOK, MarketStatusPayload(output))
}

// SubmitUpdate starts a background pass and returns its id.
// POST /api/update-all
func (h *MarketHandler) SubmitUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := h.runner.Submit(context.Background())
	if err != nil {
		if errors.Is(err, pipeline.ErrPassInFlight) {
			respondError(w, http.StatusConflict, err.Error())
			return
		}
		h.logger.WithError(err).Error("Failed to submit update pass")
		respondError(w, http.StatusInternalServerError, "failed to submit update pass")
		return
	}

	respondJSON(w, http.StatusAccepted, map[string]string{
		"pass_id": id,
		"status":  "update started",
	})
}

// GetPassStatus returns the status of a submitted pass.
// GET /api/passes/{id}
func (h *MarketHandler) GetPassStatus(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	status, ok := h.runner.Status(id)
	if !ok {
		respondError(w, http.StatusNotFound, "unknown pass id")
		return
	}
	respondJSON(w, http.StatusOK, status)
}

// SubmitFundUpdate starts a background fund NAV refresh.
// POST /api/update-funds
func (h *MarketHandler) SubmitFundUpdate(w http.ResponseWriter, r *http.Request) {
	if !h.fundUpdateBusy.CompareAndSwap(false, true) {
		respondError(w, http.StatusConflict, "a fund update is already in flight")
		return
	}

	go func() {
		defer h.fundUpdateBusy.Store(false)
		if err := h.fundUpdater.Run(context.Background()); err != nil {
			h.logger.WithError(err).Error("Fund NAV update failed")
		}
	}()

	respondJSON(w, http.StatusAccepted, map[string]string{
		"status": "fund update started",
	})
}
