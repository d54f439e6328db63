package models

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"modelctl/internal/core"
)

// entry is the registry's private copy of a model. All fields of record are
// guarded by Registry.mu; startMu serializes start requests for this model.
type entry struct {
	record  core.ModelRecord
	startMu sync.Mutex
}

// Registry owns every ModelRecord and enforces the lifecycle state machine.
type Registry struct {
	mu      sync.RWMutex
	models  map[string]*entry
	backend core.InferenceBackend
	logger  core.Logger
	now     func() time.Time
}

// RegistryConfig configures a Registry.
type RegistryConfig struct {
	Backend core.InferenceBackend
	Logger  core.Logger
	// Clock overrides time.Now for timestamps and generation timing.
	Clock func() time.Time
}

// NewRegistry creates an empty registry.
func NewRegistry(cfg RegistryConfig) (*Registry, error) {
	if cfg.Backend == nil {
		return nil, fmt.Errorf("backend is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = &core.NopLogger{}
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	return &Registry{
		models:  make(map[string]*entry),
		backend: cfg.Backend,
		logger:  cfg.Logger,
		now:     cfg.Clock,
	}, nil
}

// AddModel registers name in the stopped state. It reports whether a new
// record was created; an existing record is left untouched.
func (r *Registry) AddModel(name string) (bool, string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.models[name]; ok {
		return false, fmt.Sprintf("Model %s already exists (%s)", name, existing.record.State)
	}
	r.models[name] = &entry{record: core.ModelRecord{Name: name, State: core.ModelStateStopped}}
	r.logger.Debug("Registered model %s", name)
	return true, fmt.Sprintf("Model %s added", name)
}

// StartModel moves name through starting to running once the backend has
// the model, pulling it if needed. A running model is left as is; a model in
// the error state is retried.
func (r *Registry) StartModel(ctx context.Context, name string) (string, error) {
	e, err := r.lookup(name)
	if err != nil {
		return "", err
	}

	e.startMu.Lock()
	defer e.startMu.Unlock()

	r.mu.Lock()
	if e.record.State == core.ModelStateRunning {
		r.mu.Unlock()
		return fmt.Sprintf("Model %s is already running", name), nil
	}
	previous := e.record.State
	e.record.State = core.ModelStateStarting
	r.mu.Unlock()

	r.logger.Info("Starting model %s (was %s)", name, previous)
	backendErr := r.backend.EnsureModel(ctx, name)

	r.mu.Lock()
	defer r.mu.Unlock()

	// Starts are serialized by startMu, so anything other than starting
	// here means a stop landed while the backend call ran. The stop wins.
	stopped := e.record.State != core.ModelStateStarting

	if backendErr != nil {
		e.record.ErrorCount++
		if !stopped {
			e.record.State = core.ModelStateError
		}
		r.logger.Error("Failed to start model %s: %v", name, backendErr)
		return "", core.NewAppErrorf(core.ErrCodeBackendUnavailable, backendErr, "failed to start model %s", name)
	}
	if stopped {
		r.logger.Warn("Model %s was stopped while starting", name)
		return "", core.NewAppErrorf(core.ErrCodeInvalidTransition, nil, "model %s was stopped while starting", name)
	}

	e.record.State = core.ModelStateRunning
	e.record.LastUsed = core.UnixSeconds(r.now())
	r.logger.Info("Model %s started", name)
	return fmt.Sprintf("Model %s started successfully", name), nil
}

// StopModel sets name to stopped regardless of its current state. It never
// waits for an in-flight start.
func (r *Registry) StopModel(name string) (string, error) {
	e, err := r.lookup(name)
	if err != nil {
		return "", err
	}

	r.mu.Lock()
	previous := e.record.State
	e.record.State = core.ModelStateStopped
	r.mu.Unlock()

	r.logger.Info("Model %s stopped (was %s)", name, previous)
	return fmt.Sprintf("Model %s stopped", name), nil
}

// ListModels returns copies of all records ordered by name.
func (r *Registry) ListModels() []core.ModelRecord {
	r.mu.RLock()
	defer r.mu.RUnlock()

	records := make([]core.ModelRecord, 0, len(r.models))
	for _, e := range r.models {
		records = append(records, e.record)
	}
	sort.Slice(records, func(i, j int) bool { return records[i].Name < records[j].Name })
	return records
}

// GetModel returns a copy of one record.
func (r *Registry) GetModel(name string) (core.ModelRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.models[name]
	if !ok {
		return core.ModelRecord{}, notFound(name)
	}
	return e.record, nil
}

// Len returns the number of registered models.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.models)
}

// Generate proxies a generation to the backend and folds the outcome into
// the model's statistics.
func (r *Registry) Generate(ctx context.Context, name string, req core.GenerateRequest) (*core.GenerateResponse, error) {
	r.mu.RLock()
	e, ok := r.models[name]
	var state core.ModelState
	if ok {
		state = e.record.State
	}
	r.mu.RUnlock()

	if !ok {
		return nil, notFound(name)
	}
	if state != core.ModelStateRunning {
		return nil, core.NewAppErrorf(core.ErrCodeNotRunning, nil, "model %s is not running", name)
	}

	start := r.now()
	completion, err := r.backend.Generate(ctx, name, req)
	elapsed := r.now().Sub(start).Seconds()

	r.mu.Lock()
	defer r.mu.Unlock()

	if err != nil {
		e.record.ErrorCount++
		r.logger.Error("Generation with %s failed after %.3fs: %v", name, elapsed, err)
		return nil, core.NewAppErrorf(core.ErrCodeBackendUnavailable, err, "backend error for model %s", name)
	}

	e.record.LoadCount++
	e.record.LastUsed = core.UnixSeconds(r.now())
	e.record.AvgResponseTime = nextAverage(e.record.AvgResponseTime, elapsed)

	return &core.GenerateResponse{
		Response:       completion.Text,
		Model:          name,
		TokensUsed:     completion.EvalTokens,
		ProcessingTime: elapsed,
	}, nil
}

// nextAverage halves the distance to the newest sample. It is not a true
// running mean; clients read this value as is.
func nextAverage(prev, sample float64) float64 {
	if prev == 0 {
		return sample
	}
	return (prev + sample) / 2
}

func (r *Registry) lookup(name string) (*entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.models[name]
	if !ok {
		return nil, notFound(name)
	}
	return e, nil
}

func notFound(name string) error {
	return core.NewAppErrorf(core.ErrCodeNotFound, nil, "model %s not found", name)
}
