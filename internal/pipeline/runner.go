package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/marchino/etfwatch/internal/market"
	"github.com/marchino/etfwatch/pkg/logger"
)

// ErrPassInFlight is returned when a pass is already running.
var ErrPassInFlight = errors.New("an update pass is already in flight")

// PassState is the lifecycle state of a submitted pass.
type PassState string

const (
	PassRunning  PassState = "running"
	PassFinished PassState = "finished"
)

// PassStatus describes one submitted pass.
type PassStatus struct {
	ID         string    `json:"id"`
	State      PassState `json:"state"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at,omitempty"`
	MarketOpen bool      `json:"market_open"`
}

// Runner submits update passes with an at-most-one-in-flight
// guarantee, replacing fire-and-forget background execution. Callers
// get a pass id and can poll its status; completion listeners receive
// each finished pass output.
type Runner struct {
	orch        *Orchestrator
	instruments []market.Instrument
	logger      *logger.Logger

	mu        sync.Mutex
	running   bool
	seq       int
	statuses  map[string]*PassStatus
	listeners []func(PassOutput)
}

// NewRunner creates a pass runner.
func NewRunner(orch *Orchestrator, instruments []market.Instrument, log *logger.Logger) *Runner {
	return &Runner{
		orch:        orch,
		instruments: instruments,
		logger:      log,
		statuses:    make(map[string]*PassStatus),
	}
}

// OnComplete registers a listener invoked after every finished pass.
// Must be called before Submit.
func (r *Runner) OnComplete(fn func(PassOutput)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listeners = append(r.listeners, fn)
}

// Submit starts a pass in the background and returns its id, or
// ErrPassInFlight when one is already running.
func (r *Runner) Submit(ctx context.Context) (string, error) {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return "", ErrPassInFlight
	}
	r.running = true
	r.seq++
	id := fmt.Sprintf("pass-%d", r.seq)
	status := &PassStatus{
		ID:        id,
		State:     PassRunning,
		StartedAt: time.Now(),
	}
	r.statuses[id] = status
	r.mu.Unlock()

	go r.run(ctx, id)
	return id, nil
}

// Run executes a pass synchronously, bypassing the in-flight guard.
// Used by callers that need the output immediately.
func (r *Runner) Run(ctx context.Context) PassOutput {
	output := r.orch.UpdateAll(ctx, r.instruments)
	r.notify(output)
	return output
}

// Status returns the status of a submitted pass.
func (r *Runner) Status(id string) (PassStatus, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	status, ok := r.statuses[id]
	if !ok {
		return PassStatus{}, false
	}
	return *status, true
}

func (r *Runner) run(ctx context.Context, id string) {
	defer func() {
		r.mu.Lock()
		r.running = false
		r.mu.Unlock()
	}()

	output := r.orch.UpdateAll(ctx, r.instruments)

	r.mu.Lock()
	if status, ok := r.statuses[id]; ok {
		status.State = PassFinished
		status.FinishedAt = time.Now()
		status.MarketOpen = output.MarketOpen
	}
	r.mu.Unlock()

	r.notify(output)
}

func (r *Runner) notify(output PassOutput) {
	r.mu.Lock()
	listeners := make([]func(PassOutput), len(r.listeners))
	copy(listeners, r.listeners)
	r.mu.Unlock()

	for _, fn := range listeners {
		fn(output)
	}
}
