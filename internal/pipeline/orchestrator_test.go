package pipeline

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/marchino/etfwatch/internal/market"
	"github.com/marchino/etfwatch/internal/store"
	"github.com/marchino/etfwatch/internal/variation"
	"github.com/marchino/etfwatch/pkg/logger"
)

type fakeSource struct {
	mu     sync.Mutex
	prices map[string]float64 // symbol -> price; missing symbol fails
	block  chan struct{}      // when set, FetchPrice waits on it
}

func (f *fakeSource) FetchPrice(_ context.Context, inst market.Instrument) (float64, error) {
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	price, ok := f.prices[inst.Symbol]
	if !ok {
		return 0, errors.New("quote page unreachable")
	}
	return price, nil
}

type fakeStore struct {
	mu      sync.Mutex
	closes  map[string]float64 // symbol -> previous close
	upserts []store.CloseRow
}

func (f *fakeStore) ClosestOnOrBefore(_ context.Context, symbol string, _ time.Time) (float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if v, ok := f.closes[symbol]; ok {
		return v, nil
	}
	return 0, store.ErrNoClose
}

func (f *fakeStore) Upsert(_ context.Context, row store.CloseRow) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.upserts = append(f.upserts, row)
	return nil
}

func (f *fakeStore) upsertCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.upserts)
}

type fixedCalendar bool

func (c fixedCalendar) IsOpen(time.Time) bool { return bool(c) }

var testInstruments = []market.Instrument{
	{Symbol: "VUAA", Label: "Vanguard S&P 500 Acc"},
	{Symbol: "VWCE", Label: "Vanguard FTSE All-World Acc"},
	{Symbol: "SGLD", Label: "Invesco Physical Gold"},
}

func testOrchestrator(source *fakeSource, history *fakeStore, open bool) *Orchestrator {
	log := logger.Nop()
	engine := variation.NewEngine(history, log)
	orch := NewOrchestrator(source, history, engine, fixedCalendar(open), variation.DefaultRoles(), log)
	orch.now = func() time.Time {
		return time.Date(2025, 3, 12, 10, 0, 0, 0, time.UTC)
	}
	return orch
}

func TestUpdateAllFailureIsolation(t *testing.T) {
	// VWCE has no quote; the other two must still come through.
	source := &fakeSource{prices: map[string]float64{"VUAA": 110, "SGLD": 55}}
	history := &fakeStore{closes: map[string]float64{"VUAA": 100, "SGLD": 50}}

	orch := testOrchestrator(source, history, true)
	output := orch.UpdateAll(context.Background(), testInstruments)

	if len(output.Results) != len(testInstruments) {
		t.Fatalf("got %d results, want %d", len(output.Results), len(testInstruments))
	}

	failed := output.Results["VWCE"]
	if failed.Status != StatusUnavailable {
		t.Errorf("VWCE status = %s, want %s", failed.Status, StatusUnavailable)
	}
	if failed.Price.Available() {
		t.Error("VWCE price available after fetch failure")
	}

	ok := output.Results["VUAA"]
	if ok.Status != StatusOpen {
		t.Errorf("VUAA status = %s, want %s", ok.Status, StatusOpen)
	}
	if price, avail := ok.Price.Value(); !avail || price != 110 {
		t.Errorf("VUAA price = (%.2f, %t), want (110, true)", price, avail)
	}
	if dc, avail := ok.DailyChange.Value(); !avail || dc != 10 {
		t.Errorf("VUAA daily change = (%.2f, %t), want (10, true)", dc, avail)
	}

	// Only the two fetched instruments are persisted.
	if got := history.upsertCount(); got != 2 {
		t.Errorf("upserts = %d, want 2", got)
	}
}

func TestUpdateAllClosedMarketWritesNothing(t *testing.T) {
	source := &fakeSource{prices: map[string]float64{"VUAA": 110, "VWCE": 90, "SGLD": 55}}
	history := &fakeStore{closes: map[string]float64{"VUAA": 100}}

	orch := testOrchestrator(source, history, false)

	// Two passes against a closed market leave the history untouched.
	for i := 0; i < 2; i++ {
		output := orch.UpdateAll(context.Background(), testInstruments)
		if output.MarketOpen {
			t.Fatal("MarketOpen = true, want false")
		}
		for symbol, res := range output.Results {
			if res.Status != StatusClosed {
				t.Errorf("pass %d: %s status = %s, want %s", i, symbol, res.Status, StatusClosed)
			}
		}
	}
	if got := history.upsertCount(); got != 0 {
		t.Errorf("upserts = %d, want 0 with market closed", got)
	}
}

func TestUpdateAllNoHistory(t *testing.T) {
	source := &fakeSource{prices: map[string]float64{"VUAA": 110}}
	history := &fakeStore{}

	orch := testOrchestrator(source, history, true)
	output := orch.UpdateAll(context.Background(), testInstruments[:1])

	res := output.Results["VUAA"]
	if res.PreviousClose.Available() {
		t.Error("previous close available without history")
	}
	if res.DailyChange.Available() {
		t.Error("daily change available without previous close")
	}
	for _, v := range res.Variations {
		if _, ok := v.Pct(); ok {
			t.Errorf("variation %s available without history", v.Code)
		}
	}
	// The fresh snapshot is still written.
	if got := history.upsertCount(); got != 1 {
		t.Errorf("upserts = %d, want 1", got)
	}
}

func TestUpdateAllEmptyInstruments(t *testing.T) {
	orch := testOrchestrator(&fakeSource{}, &fakeStore{}, true)
	output := orch.UpdateAll(context.Background(), nil)
	if len(output.Results) != 0 {
		t.Errorf("got %d results for empty instrument set, want 0", len(output.Results))
	}
}

func TestUpdateAllRoleBinding(t *testing.T) {
	source := &fakeSource{prices: map[string]float64{"VUAA": 110}}
	history := &fakeStore{closes: map[string]float64{"VUAA": 100}}

	orch := testOrchestrator(source, history, true)
	output := orch.UpdateAll(context.Background(), testInstruments[:1])

	res := output.Results["VUAA"]
	display := res.RoleValue(variation.RoleDisplay)
	if display.Code != "1d" {
		t.Errorf("display role bound to %s, want 1d", display.Code)
	}
	report := res.RoleValue(variation.RoleReport)
	if report.Code != "30d" {
		t.Errorf("report role bound to %s, want 30d", report.Code)
	}
	if got := res.RoleValue("nonsense"); got.Code != variation.DefaultPeriodCode {
		t.Errorf("unknown role bound to %s, want %s", got.Code, variation.DefaultPeriodCode)
	}
}

func TestAlertValues(t *testing.T) {
	output := PassOutput{Results: map[string]Result{
		"VUAA": {Roles: map[string]variation.Result{
			variation.RoleAlert: variation.Of("1d", -2.5),
		}},
		"VWCE": {}, // unavailable instrument, no roles computed
	}}

	values := output.AlertValues()
	if len(values) != 2 {
		t.Fatalf("got %d alert values, want 2", len(values))
	}
	if pct, ok := values["VUAA"].Pct(); !ok || pct != -2.5 {
		t.Errorf("VUAA alert value = (%.2f, %t), want (-2.5, true)", pct, ok)
	}
	if _, ok := values["VWCE"].Pct(); ok {
		t.Error("VWCE alert value available, want N/A")
	}
}

func TestRunnerSingleFlight(t *testing.T) {
	source := &fakeSource{
		prices: map[string]float64{"VUAA": 110},
		block:  make(chan struct{}),
	}
	history := &fakeStore{}
	orch := testOrchestrator(source, history, true)
	runner := NewRunner(orch, testInstruments[:1], logger.Nop())

	id, err := runner.Submit(context.Background())
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if _, err := runner.Submit(context.Background()); !errors.Is(err, ErrPassInFlight) {
		t.Fatalf("second Submit() error = %v, want ErrPassInFlight", err)
	}

	status, ok := runner.Status(id)
	if !ok || status.State != PassRunning {
		t.Fatalf("Status(%s) = (%+v, %t), want running", id, status, ok)
	}

	close(source.block)

	deadline := time.After(2 * time.Second)
	for {
		status, _ = runner.Status(id)
		if status.State == PassFinished {
			break
		}
		select {
		case <-deadline:
			t.Fatal("pass never finished")
		case <-time.After(10 * time.Millisecond):
		}
	}
	if !status.MarketOpen {
		t.Error("finished pass MarketOpen = false, want true")
	}

	// A new pass is accepted once the previous one finished.
	if _, err := runner.Submit(context.Background()); err != nil {
		t.Errorf("Submit() after completion error = %v", err)
	}
}

func TestRunnerNotifiesListeners(t *testing.T) {
	source := &fakeSource{prices: map[string]float64{"VUAA": 110}}
	history := &fakeStore{}
	orch := testOrchestrator(source, history, true)
	runner := NewRunner(orch, testInstruments[:1], logger.Nop())

	var got []PassOutput
	runner.OnComplete(func(out PassOutput) { got = append(got, out) })

	output := runner.Run(context.Background())
	if len(got) != 1 {
		t.Fatalf("listener invoked %d times, want 1", len(got))
	}
	if len(got[0].Results) != len(output.Results) {
		t.Errorf("listener saw %d results, want %d", len(got[0].Results), len(output.Results))
	}
}

func TestRunnerUnknownPass(t *testing.T) {
	runner := NewRunner(testOrchestrator(&fakeSource{}, &fakeStore{}, true), nil, logger.Nop())
	if _, ok := runner.Status("pass-99"); ok {
		t.Error("Status(unknown) ok = true, want false")
	}
}
