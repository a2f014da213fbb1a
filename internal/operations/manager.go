package operations

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ProgressBroadcaster pushes run snapshots to interested clients.
// The WebSocket hub satisfies this.
type ProgressBroadcaster interface {
	BroadcastProgress(snapshot RunSnapshot)
}

// noopBroadcaster is used when no broadcaster is wired
type noopBroadcaster struct{}

func (noopBroadcaster) BroadcastProgress(RunSnapshot) {}

// Manager owns training run execution. At most one run is active at a
// time; concurrent start requests are rejected.
type Manager struct {
	registry    *Registry
	broadcaster ProgressBroadcaster
	logger      *slog.Logger

	mu       sync.RWMutex
	runs     map[string]*RunState
	order    []string
	active   string
	onFinish func(RunSnapshot)
}

// NewManager creates a manager with the given step registry
func NewManager(registry *Registry, broadcaster ProgressBroadcaster, logger *slog.Logger) *Manager {
	if broadcaster == nil {
		broadcaster = noopBroadcaster{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		registry:    registry,
		broadcaster: broadcaster,
		logger:      logger.With(slog.String("component", "operations.manager")),
		runs:        make(map[string]*RunState),
	}
}

// ErrRunInProgress is returned when a run is requested while another
// is active.
var ErrRunInProgress = fmt.Errorf("a training run is already in progress")

// Start begins a new training run and executes it synchronously.
// Callers wanting async behavior run it in a goroutine after the
// returned state confirms acceptance.
func (m *Manager) Start(ctx context.Context, cfg RunConfig) (*RunState, error) {
	steps := m.registry.Steps()
	if len(steps) == 0 {
		return nil, fmt.Errorf("no pipeline steps registered")
	}

	m.mu.Lock()
	if m.active != "" {
		m.mu.Unlock()
		return nil, ErrRunInProgress
	}
	state := NewRunState(uuid.New().String(), cfg, steps)
	m.runs[state.ID] = state
	m.order = append(m.order, state.ID)
	m.active = state.ID
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		m.active = ""
		m.mu.Unlock()
	}()

	m.execute(ctx, state, steps)
	return state, nil
}

// StartAsync begins a run and returns immediately; the pipeline
// executes in a background goroutine. The returned state can be
// polled or watched through the broadcaster.
func (m *Manager) StartAsync(ctx context.Context, cfg RunConfig) (*RunState, error) {
	steps := m.registry.Steps()
	if len(steps) == 0 {
		return nil, fmt.Errorf("no pipeline steps registered")
	}

	m.mu.Lock()
	if m.active != "" {
		m.mu.Unlock()
		return nil, ErrRunInProgress
	}
	state := NewRunState(uuid.New().String(), cfg, steps)
	m.runs[state.ID] = state
	m.order = append(m.order, state.ID)
	m.active = state.ID
	m.mu.Unlock()

	go func() {
		defer func() {
			m.mu.Lock()
			m.active = ""
			m.mu.Unlock()
		}()
		m.execute(ctx, state, steps)
	}()
	return state, nil
}

// OnFinish registers a hook called after every run reaches a terminal
// state. Used to invalidate caches that read the exported artifacts.
func (m *Manager) OnFinish(fn func(RunSnapshot)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onFinish = fn
}

// execute runs all steps in order, marking the remainder skipped
// after the first failure.
func (m *Manager) execute(ctx context.Context, state *RunState, steps []Step) {
	start := time.Now()
	state.SetStatus(RunStatusRunning)
	m.broadcaster.BroadcastProgress(state.Snapshot())

	m.logger.InfoContext(ctx, "training run started",
		slog.String("run_id", state.ID),
		slog.Int("steps", len(steps)))

	var failed bool
	for _, step := range steps {
		ss, _ := state.StepState(step.ID())

		if failed {
			ss.Skip("skipped after earlier failure")
			m.broadcaster.BroadcastProgress(state.Snapshot())
			continue
		}
		if err := ctx.Err(); err != nil {
			ss.Skip("run cancelled")
			state.SetError(err)
			state.SetStatus(RunStatusCancelled)
			m.broadcaster.BroadcastProgress(state.Snapshot())
			failed = true
			continue
		}

		ss.Start()
		m.broadcaster.BroadcastProgress(state.Snapshot())

		m.logger.InfoContext(ctx, "step started",
			slog.String("run_id", state.ID),
			slog.String("step", step.ID()))

		if err := step.Execute(ctx, state); err != nil {
			ss.Fail(err)
			state.SetError(err)
			if ctx.Err() != nil {
				state.SetStatus(RunStatusCancelled)
			} else {
				state.SetStatus(RunStatusFailed)
			}
			failed = true

			m.logger.ErrorContext(ctx, "step failed",
				slog.String("run_id", state.ID),
				slog.String("step", step.ID()),
				slog.String("error", err.Error()))
		} else {
			ss.Complete(step.Name() + " finished")
			m.logger.InfoContext(ctx, "step completed",
				slog.String("run_id", state.ID),
				slog.String("step", step.ID()))
		}
		m.broadcaster.BroadcastProgress(state.Snapshot())
	}

	if !failed {
		state.SetStatus(RunStatusCompleted)
	}
	final := state.Snapshot()
	m.broadcaster.BroadcastProgress(final)

	m.mu.RLock()
	onFinish := m.onFinish
	m.mu.RUnlock()
	if onFinish != nil {
		onFinish(final)
	}

	m.logger.InfoContext(ctx, "training run finished",
		slog.String("run_id", state.ID),
		slog.String("status", string(final.Status)),
		slog.Duration("duration", time.Since(start)))
}

// Get returns the run with the given ID
func (m *Manager) Get(id string) (*RunState, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	state, ok := m.runs[id]
	return state, ok
}

// List returns snapshots of all runs, newest first
func (m *Manager) List() []RunSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]RunSnapshot, 0, len(m.order))
	for i := len(m.order) - 1; i >= 0; i-- {
		out = append(out, m.runs[m.order[i]].Snapshot())
	}
	return out
}

// Active reports whether a run is currently executing
func (m *Manager) Active() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.active != ""
}
