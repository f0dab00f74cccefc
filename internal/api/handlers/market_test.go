package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"

	"github.com/marchino/etfwatch/internal/market"
	"github.com/marchino/etfwatch/internal/pipeline"
	"github.com/marchino/etfwatch/internal/store"
	"github.com/marchino/etfwatch/internal/variation"
	"github.com/marchino/etfwatch/pkg/logger"
)

type stubSource struct{ price float64 }

func (s stubSource) FetchPrice(context.Context, market.Instrument) (float64, error) {
	return s.price, nil
}

type stubStore struct{}

func (stubStore) ClosestOnOrBefore(context.Context, string, time.Time) (float64, error) {
	return 0, store.ErrNoClose
}

func (stubStore) Upsert(context.Context, store.CloseRow) error { return nil }

type stubCalendar struct{ open bool }

func (c stubCalendar) IsOpen(time.Time) bool { return c.open }

type blockingFundUpdater struct{ release chan struct{} }

func (f *blockingFundUpdater) Run(context.Context) error {
	<-f.release
	return nil
}

func testHandler(open bool) *MarketHandler {
	log := logger.Nop()
	history := stubStore{}
	engine := variation.NewEngine(history, log)
	orch := pipeline.NewOrchestrator(stubSource{price: 110.25}, history, engine, stubCalendar{open: open}, variation.DefaultRoles(), log)
	runner := pipeline.NewRunner(orch, []market.Instrument{
		{Symbol: "VUAA", Label: "Vanguard S&P 500 Acc"},
	}, log)
	return NewMarketHandler(runner, &blockingFundUpdater{release: make(chan struct{})}, log)
}

func TestGetMarketStatus(t *testing.T) {
	h := testHandler(true)

	req := httptest.NewRequest(http.MethodGet, "/api/market-status", nil)
	rec := httptest.NewRecorder()
	h.GetMarketStatus(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var resp MarketStatusResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Status != "APERTO" || !resp.Open {
		t.Errorf("status = %s open = %t, want APERTO/true", resp.Status, resp.Open)
	}
	if resp.Values.Source != "live" {
		t.Errorf("source = %s, want live", resp.Values.Source)
	}
	if len(resp.Values.Data) != 1 {
		t.Fatalf("got %d instruments, want 1", len(resp.Values.Data))
	}

	row := resp.Values.Data[0]
	if row.Symbol != "VUAA" || row.Status != "open" {
		t.Errorf("row = %+v", row)
	}
	// No history: every role renders N/A.
	for role, v := range row.Variations {
		if v != "N/A" {
			t.Errorf("variation %s = %q, want N/A", role, v)
		}
	}
}

func TestGetMarketStatusClosed(t *testing.T) {
	h := testHandler(false)

	rec := httptest.NewRecorder()
	h.GetMarketStatus(rec, httptest.NewRequest(http.MethodGet, "/api/market-status", nil))

	var resp MarketStatusResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Status != "CHIUSO" || resp.Open {
		t.Errorf("status = %s open = %t, want CHIUSO/false", resp.Status, resp.Open)
	}
}

func TestSubmitUpdateAndPollStatus(t *testing.T) {
	h := testHandler(true)

	rec := httptest.NewRecorder()
	h.SubmitUpdate(rec, httptest.NewRequest(http.MethodPost, "/api/update-all", nil))
	if rec.Code != http.StatusAccepted {
		t.Fatalf("submit status = %d, want 202", rec.Code)
	}

	var accepted map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &accepted); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	id := accepted["pass_id"]
	if id == "" {
		t.Fatal("no pass_id in accepted response")
	}

	// Poll until the pass finishes.
	deadline := time.After(2 * time.Second)
	for {
		req := mux.SetURLVars(httptest.NewRequest(http.MethodGet, "/api/passes/"+id, nil), map[string]string{"id": id})
		rec = httptest.NewRecorder()
		h.GetPassStatus(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("poll status = %d, want 200", rec.Code)
		}

		var status pipeline.PassStatus
		if err := json.Unmarshal(rec.Body.Bytes(), &status); err != nil {
			t.Fatalf("decode status: %v", err)
		}
		if status.State == pipeline.PassFinished {
			break
		}
		select {
		case <-deadline:
			t.Fatal("pass never finished")
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestGetPassStatusUnknown(t *testing.T) {
	h := testHandler(true)

	req := mux.SetURLVars(httptest.NewRequest(http.MethodGet, "/api/passes/pass-99", nil), map[string]string{"id": "pass-99"})
	rec := httptest.NewRecorder()
	h.GetPassStatus(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestSubmitFundUpdateConflict(t *testing.T) {
	h := testHandler(true)
	updater := h.fundUpdater.(*blockingFundUpdater)
	defer close(updater.release)

	rec := httptest.NewRecorder()
	h.SubmitFundUpdate(rec, httptest.NewRequest(http.MethodPost, "/api/update-funds", nil))
	if rec.Code != http.StatusAccepted {
		t.Fatalf("first submit = %d, want 202", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.SubmitFundUpdate(rec, httptest.NewRequest(http.MethodPost, "/api/update-funds", nil))
	if rec.Code != http.StatusConflict {
		t.Errorf("second submit = %d, want 409", rec.Code)
	}
}
