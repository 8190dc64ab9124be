package automation

import (
	"context"
	"sync"

	"github.com/pkg/errors"

	"github.com/trezcool/masomo-admin/core"
)

// State of a trigger affordance.
type State int

const (
	Idle State = iota
	Executing
	Executed
)

func (s State) String() string {
	switch s {
	case Executing:
		return "executing"
	case Executed:
		return "executed"
	default:
		return "idle"
	}
}

// Executor performs the side effect behind a trigger.
type Executor func(ctx context.Context) error

// ErrNotStarted is returned by Execute when the affordance refused to run.
var ErrNotStarted = errors.New("automation not started")

// Dispatcher runs an Executor at most once per successful execution.
// A failed execution returns the dispatcher to Idle so it can be retried.
type Dispatcher struct {
	Trigger Trigger
	Points  *int

	logger core.Logger
	exec   Executor
	wg     sync.WaitGroup

	mu       sync.Mutex
	state    State
	disabled bool
}

func NewDispatcher(key string, points *int, exec Executor, logger core.Logger) *Dispatcher {
	return &Dispatcher{
		Trigger: ParseTrigger(key),
		Points:  points,
		logger:  logger,
		exec:    exec,
	}
}

func (d *Dispatcher) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

func (d *Dispatcher) Disabled() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.disabled
}

// SetDisabled toggles the disabled flag; it does not change the state.
func (d *Dispatcher) SetDisabled(disabled bool) {
	d.mu.Lock()
	d.disabled = disabled
	d.mu.Unlock()
}

func (d *Dispatcher) Appearance() Appearance { return d.Trigger.Appearance(d.Points) }

// Click starts the executor in the background and reports whether it did.
// Clicks while executing, after success, while disabled or without an executor are ignored.
func (d *Dispatcher) Click(ctx context.Context) bool {
	if !d.start() {
		return false
	}
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		_ = d.run(ctx)
	}()
	return true
}

// Execute is the blocking form of Click. It returns ErrNotStarted when the click is ignored.
func (d *Dispatcher) Execute(ctx context.Context) error {
	if !d.start() {
		return ErrNotStarted
	}
	return d.run(ctx)
}

// Wait blocks until executions started by Click have finished.
func (d *Dispatcher) Wait() { d.wg.Wait() }

func (d *Dispatcher) start() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.state != Idle || d.disabled || d.exec == nil {
		return false
	}
	d.state = Executing
	return true
}

func (d *Dispatcher) run(ctx context.Context) error {
	err := d.exec(ctx)

	d.mu.Lock()
	defer d.mu.Unlock()
	if err != nil {
		d.state = Idle
		d.logger.Error("running automation", err, map[string]interface{}{
			"trigger":  d.Trigger.Key,
			"category": d.Trigger.Category.String(),
		})
		return err
	}
	d.state = Executed
	return nil
}
