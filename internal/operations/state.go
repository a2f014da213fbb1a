package operations

import (
	"sync"
	"time"

	"houselytics/internal/config"
	"houselytics/internal/dataset"
	"houselytics/internal/regression"
)

// RunStatus represents the overall status of a training run
type RunStatus string

const (
	RunStatusPending   RunStatus = "pending"
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
	RunStatusCancelled RunStatus = "cancelled"
)

// RunConfig carries everything the pipeline steps need to execute
type RunConfig struct {
	Paths *config.Paths
	Model config.ModelConfig
}

// RunState is the shared state of one training run. Steps read the
// products of earlier steps and attach their own.
type RunState struct {
	mu sync.RWMutex

	ID        string     `json:"id"`
	Status    RunStatus  `json:"status"`
	StartTime time.Time  `json:"start_time"`
	EndTime   *time.Time `json:"end_time,omitempty"`
	Error     string     `json:"error,omitempty"`

	steps     []*StepState
	stepIndex map[string]*StepState

	Config RunConfig `json:"-"`

	// Intermediate pipeline products
	RawTable       *dataset.Table     `json:"-"`
	CleanFrame     *dataset.Frame     `json:"-"`
	FeatureColumns []string           `json:"-"`
	TrainMedians   map[string]float64 `json:"-"`
	Model          *regression.Model  `json:"-"`
	Metrics        regression.Metrics `json:"-"`
}

// NewRunState creates a run with pending step states for each step
func NewRunState(id string, cfg RunConfig, steps []Step) *RunState {
	state := &RunState{
		ID:        id,
		Status:    RunStatusPending,
		StartTime: time.Now(),
		Config:    cfg,
		stepIndex: make(map[string]*StepState, len(steps)),
	}
	for _, step := range steps {
		ss := NewStepState(step.ID(), step.Name())
		state.steps = append(state.steps, ss)
		state.stepIndex[step.ID()] = ss
	}
	return state
}

// StepState returns the state for a step ID
func (s *RunState) StepState(id string) (*StepState, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ss, ok := s.stepIndex[id]
	return ss, ok
}

// SetStatus updates the overall run status
func (s *RunState) SetStatus(status RunStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Status = status
	if status == RunStatusCompleted || status == RunStatusFailed || status == RunStatusCancelled {
		now := time.Now()
		s.EndTime = &now
	}
}

// SetError records the failure reason
func (s *RunState) SetError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.Error = err.Error()
	}
}

// Snapshot returns a serializable copy of the entire run state
func (s *RunState) Snapshot() RunSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := RunSnapshot{
		ID:        s.ID,
		Status:    s.Status,
		StartTime: s.StartTime,
		Error:     s.Error,
	}
	if s.EndTime != nil {
		t := *s.EndTime
		snap.EndTime = &t
	}
	for _, ss := range s.steps {
		snap.Steps = append(snap.Steps, ss.Snapshot())
	}

	// Overall progress is the mean of step progress
	if len(snap.Steps) > 0 {
		total := 0.0
		for _, ss := range snap.Steps {
			total += ss.Progress
		}
		snap.Progress = total / float64(len(snap.Steps))
	}
	return snap
}

// RunSnapshot is an immutable copy of a run's state
type RunSnapshot struct {
	ID        string         `json:"id"`
	Status    RunStatus      `json:"status"`
	StartTime time.Time      `json:"start_time"`
	EndTime   *time.Time     `json:"end_time,omitempty"`
	Progress  float64        `json:"progress"`
	Error     string         `json:"error,omitempty"`
	Steps     []StepSnapshot `json:"steps"`
}
