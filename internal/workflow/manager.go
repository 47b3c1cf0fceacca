package workflow

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"barista/internal/config"
	"barista/internal/logging"
	"barista/internal/queue"
	"barista/internal/stage"
)

// StageSet bundles the concrete pipeline handlers the manager orchestrates.
type StageSet struct {
	Profiler    stage.Handler
	Recommender stage.Handler
	Blender     stage.Handler
	Compiler    stage.Handler
	Dispatcher  stage.Handler
}

type pipelineStage struct {
	name             string
	handler          stage.Handler
	startStatus      queue.Status
	processingStatus queue.Status
	doneStatus       queue.Status
}

// Manager drives brews through the pipeline one stage at a time. Brews are
// picked up oldest first, so requests from the same user are processed in
// submission order.
type Manager struct {
	cfg          *config.Config
	store        *queue.Store
	logger       *slog.Logger
	pollInterval time.Duration

	stages        []pipelineStage
	stageByStart  map[queue.Status]pipelineStage
	startStatuses []queue.Status

	mu       sync.RWMutex
	running  bool
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	lastErr  error
	lastBrew *queue.Brew
}

// NewManager constructs a workflow manager.
func NewManager(cfg *config.Config, store *queue.Store, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Manager{
		cfg:          cfg,
		store:        store,
		logger:       logging.NewComponentLogger(logger, "workflow"),
		pollInterval: time.Duration(cfg.Workflow.QueuePollInterval) * time.Second,
	}
}

// Configure registers the pipeline handlers. Must be called before Start.
func (m *Manager) Configure(set StageSet) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.stages = []pipelineStage{
		{name: "profiler", handler: set.Profiler,
			startStatus: queue.StatusPending, processingStatus: queue.StatusProfiling, doneStatus: queue.StatusProfiled},
		{name: "recommender", handler: set.Recommender,
			startStatus: queue.StatusProfiled, processingStatus: queue.StatusRecommending, doneStatus: queue.StatusRecommended},
		{name: "blender", handler: set.Blender,
			startStatus: queue.StatusRecommended, processingStatus: queue.StatusBlending, doneStatus: queue.StatusBlended},
		{name: "compiler", handler: set.Compiler,
			startStatus: queue.StatusBlended, processingStatus: queue.StatusCompiling, doneStatus: queue.StatusCompiled},
		{name: "dispatcher", handler: set.Dispatcher,
			startStatus: queue.StatusCompiled, processingStatus: queue.StatusDispatching, doneStatus: queue.StatusCompleted},
	}
	m.stageByStart = make(map[queue.Status]pipelineStage, len(m.stages))
	m.startStatuses = make([]queue.Status, 0, len(m.stages))
	for _, stg := range m.stages {
		m.stageByStart[stg.startStatus] = stg
		m.startStatuses = append(m.startStatuses, stg.startStatus)
	}
}

// Start begins background processing. Brews left mid-stage by a previous run
// are rolled back to their stage start first.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return errors.New("workflow already running")
	}
	if len(m.stages) == 0 {
		m.mu.Unlock()
		return errors.New("workflow stages not configured")
	}
	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.running = true
	m.wg.Add(1)
	m.mu.Unlock()

	if reset, err := m.store.ResetStuckProcessing(runCtx); err != nil {
		m.logger.Warn("reclaim of in-flight brews failed; stuck brews may remain",
			logging.Error(err))
	} else if reset > 0 {
		m.logger.Info("reclaimed in-flight brews from previous run",
			logging.Int64("count", reset))
	}

	go m.run(runCtx)
	return nil
}

// Stop terminates background processing and waits for completion.
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	cancel := m.cancel
	m.running = false
	m.cancel = nil
	m.mu.Unlock()

	cancel()
	m.wg.Wait()
}

// Running reports whether the manager loop is active.
func (m *Manager) Running() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.running
}

// LastError returns the most recent stage or queue error.
func (m *Manager) LastError() error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastErr
}

// LastBrew returns the brew most recently touched by the manager.
func (m *Manager) LastBrew() *queue.Brew {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastBrew
}

func (m *Manager) setLastError(err error) {
	m.mu.Lock()
	m.lastErr = err
	m.mu.Unlock()
}

func (m *Manager) setLastBrew(brew *queue.Brew) {
	m.mu.Lock()
	copied := *brew
	m.lastBrew = &copied
	m.mu.Unlock()
}
