package instance

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/nerrad567/gray-logic-hass/internal/homeassistant"
)

// Logger defines the logging interface used by the Registry.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// stateReporter is implemented by data sources that expose their
// lifecycle state (both homeassistant sources do, through Store).
type stateReporter interface {
	ConnectionState() homeassistant.ConnectionState
}

// Registry caches instances and the data source attached to each.
//
// The cache is filled by RefreshCache (or Seed) and is the only thing
// read on the request path. All methods are safe for concurrent use.
type Registry struct {
	repo   Repository
	logger Logger

	mu      sync.RWMutex
	cache   map[string]Instance
	sources map[string]homeassistant.DataSource
}

// NewRegistry creates a registry over repo.
func NewRegistry(repo Repository) *Registry {
	return &Registry{
		repo:    repo,
		logger:  noopLogger{},
		cache:   make(map[string]Instance),
		sources: make(map[string]homeassistant.DataSource),
	}
}

// SetLogger sets the logger for the registry.
func (r *Registry) SetLogger(logger Logger) {
	r.logger = logger
}

// RefreshCache reloads every instance from the repository.
func (r *Registry) RefreshCache(ctx context.Context) error {
	instances, err := r.repo.List(ctx)
	if err != nil {
		return fmt.Errorf("loading instances: %w", err)
	}

	cache := make(map[string]Instance, len(instances))
	for _, inst := range instances {
		cache[inst.ID] = inst
	}

	r.mu.Lock()
	r.cache = cache
	r.mu.Unlock()

	r.logger.Info("instance cache refreshed", "count", len(instances))
	return nil
}

// Seed makes the stored instances match seeds: each seed is upserted and
// stored instances missing from seeds are deleted. The cache is refreshed
// afterwards. All seeds are validated before anything is written.
func (r *Registry) Seed(ctx context.Context, seeds []Instance) error {
	keep := make(map[string]bool, len(seeds))
	for i := range seeds {
		if err := seeds[i].Validate(); err != nil {
			return err
		}
		if keep[seeds[i].ID] {
			return fmt.Errorf("%w: duplicate id %q", ErrInvalidInstance, seeds[i].ID)
		}
		keep[seeds[i].ID] = true
	}

	existing, err := r.repo.List(ctx)
	if err != nil {
		return fmt.Errorf("loading instances: %w", err)
	}

	for i := range seeds {
		if err := r.repo.Upsert(ctx, &seeds[i]); err != nil {
			return err
		}
	}

	for _, inst := range existing {
		if keep[inst.ID] {
			continue
		}
		if err := r.repo.Delete(ctx, inst.ID); err != nil && !errors.Is(err, ErrInstanceNotFound) {
			return fmt.Errorf("pruning instance %s: %w", inst.ID, err)
		}
		r.logger.Info("instance removed from config", "id", inst.ID, "name", inst.Name)
	}

	return r.RefreshCache(ctx)
}

// Lookup returns a cached instance.
func (r *Registry) Lookup(id string) (Instance, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	inst, ok := r.cache[id]
	return inst, ok
}

// List returns every cached instance ordered by name, then id.
func (r *Registry) List() []Instance {
	r.mu.RLock()
	instances := make([]Instance, 0, len(r.cache))
	for _, inst := range r.cache {
		instances = append(instances, inst)
	}
	r.mu.RUnlock()

	slices.SortFunc(instances, func(a, b Instance) int {
		if c := strings.Compare(a.Name, b.Name); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return instances
}

// Attach binds a data source to an instance, replacing any previous one.
func (r *Registry) Attach(id string, ds homeassistant.DataSource) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.cache[id]; !ok {
		return fmt.Errorf("attaching %q: %w", id, ErrInstanceNotFound)
	}
	r.sources[id] = ds
	return nil
}

// Detach unbinds and returns the data source of an instance.
func (r *Registry) Detach(id string) (homeassistant.DataSource, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ds, ok := r.sources[id]
	delete(r.sources, id)
	return ds, ok
}

// DataSource returns the data source attached to an instance, whether or
// not it is connected.
func (r *Registry) DataSource(id string) (homeassistant.DataSource, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ds, ok := r.sources[id]
	return ds, ok
}

// Resolve returns an instance together with its connected data source.
// It fails with ErrInstanceNotFound, ErrDisabled, ErrNotAttached or
// ErrNotConnected.
func (r *Registry) Resolve(id string) (Instance, homeassistant.DataSource, error) {
	r.mu.RLock()
	inst, ok := r.cache[id]
	ds, attached := r.sources[id]
	r.mu.RUnlock()

	switch {
	case !ok:
		return Instance{}, nil, ErrInstanceNotFound
	case !inst.Enabled:
		return inst, nil, ErrDisabled
	case !attached:
		return inst, nil, ErrNotAttached
	case !ds.Connected():
		return inst, ds, ErrNotConnected
	}
	return inst, ds, nil
}

// Status is the runtime view of one instance.
type Status struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Kind     Kind   `json:"kind"`
	Enabled  bool   `json:"enabled"`
	Attached bool   `json:"attached"`
	State    string `json:"state"`
	Entities int    `json:"entities"`
}

// Statuses reports every instance with its data source state, ordered as List.
func (r *Registry) Statuses() []Status {
	instances := r.List()

	statuses := make([]Status, 0, len(instances))
	for _, inst := range instances {
		st := Status{
			ID:      inst.ID,
			Name:    inst.Name,
			Kind:    inst.Kind,
			Enabled: inst.Enabled,
			State:   homeassistant.StateDisconnected.String(),
		}
		if ds, ok := r.DataSource(inst.ID); ok {
			st.Attached = true
			st.State = sourceState(ds).String()
			st.Entities = len(ds.Entities())
		}
		statuses = append(statuses, st)
	}
	return statuses
}

func sourceState(ds homeassistant.DataSource) homeassistant.ConnectionState {
	if sr, ok := ds.(stateReporter); ok {
		return sr.ConnectionState()
	}
	if ds.Connected() {
		return homeassistant.StateConnected
	}
	return homeassistant.StateDisconnected
}

// Stats summarises the registry.
type Stats struct {
	Total     int          `json:"total"`
	Enabled   int          `json:"enabled"`
	Attached  int          `json:"attached"`
	Connected int          `json:"connected"`
	ByKind    map[Kind]int `json:"by_kind"`
}

// Stats returns instance counts.
func (r *Registry) Stats() Stats {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stats := Stats{Total: len(r.cache), ByKind: make(map[Kind]int)}
	for id, inst := range r.cache {
		stats.ByKind[inst.Kind]++
		if inst.Enabled {
			stats.Enabled++
		}
		if ds, ok := r.sources[id]; ok {
			stats.Attached++
			if ds.Connected() {
				stats.Connected++
			}
		}
	}
	return stats
}
