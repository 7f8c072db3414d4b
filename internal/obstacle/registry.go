// Package obstacle owns the set of obstacles placed into the world.
package obstacle

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"cp1-controllers/internal/common/apperror"
	"cp1-controllers/internal/environment"
	"cp1-controllers/internal/interfaces"
)

const namePrefix = "Obstacle_"

// Record is one obstacle known to be present in the world.
type Record struct {
	Name     string    `json:"name"`
	Sequence int       `json:"sequence"`
	X        float64   `json:"x"`
	Y        float64   `json:"y"`
	PlacedAt time.Time `json:"placed_at"`
}

// Store persists records so a later process can remove what an earlier one placed.
type Store interface {
	Save(ctx context.Context, r Record) error
	Delete(ctx context.Context, name string) error
	Load(ctx context.Context) ([]Record, error)
}

// Registry places and removes obstacles. The sequence counter and the
// membership map are guarded by one mutex, held across the environment call.
type Registry struct {
	mu      sync.Mutex
	next    int
	records map[string]Record

	env    environment.EntityService
	model  string
	store  Store
	logger interfaces.Logger
}

// NewRegistry creates an empty registry. model is the entity description sent on spawn.
func NewRegistry(env environment.EntityService, model string, logger interfaces.Logger) *Registry {
	return &Registry{
		records: make(map[string]Record),
		env:     env,
		model:   model,
		logger:  logger,
	}
}

// WithStore attaches persistence.
func (r *Registry) WithStore(store Store) *Registry {
	r.store = store
	return r
}

// Restore loads persisted records and moves the counter past the highest sequence.
func (r *Registry) Restore(ctx context.Context) (int, error) {
	if r.store == nil {
		return 0, nil
	}
	loaded, err := r.store.Load(ctx)
	if err != nil {
		return 0, fmt.Errorf("restore obstacles: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rec := range loaded {
		r.records[rec.Name] = rec
		if rec.Sequence >= r.next {
			r.next = rec.Sequence + 1
		}
	}
	return len(loaded), nil
}

// Place spawns a new obstacle at (x, y) and returns its name. A failed spawn
// still consumes the sequence number.
func (r *Registry) Place(ctx context.Context, x, y float64) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	seq := r.next
	r.next++
	name := fmt.Sprintf("%s%d", namePrefix, seq)

	if err := r.env.Spawn(ctx, name, r.model, x, y); err != nil {
		r.logger.Errorf("❌ Failed to place %s at (%.2f, %.2f): %v", name, x, y, err)
		return "", err
	}

	rec := Record{Name: name, Sequence: seq, X: x, Y: y, PlacedAt: time.Now()}
	r.records[name] = rec
	r.persist(ctx, func(s Store) error { return s.Save(ctx, rec) })

	r.logger.Infof("✅ Placed %s at (%.2f, %.2f)", name, x, y)
	return name, nil
}

// Remove deletes a previously placed obstacle. Unknown names fail with
// ObstacleNotFoundError without touching the environment.
func (r *Registry) Remove(ctx context.Context, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.records[name]; !ok {
		err := &apperror.ObstacleNotFoundError{Name: name}
		r.logger.Errorf("%v", err)
		return err
	}

	if err := r.env.Delete(ctx, name); err != nil {
		r.logger.Errorf("❌ Failed to remove %s: %v", name, err)
		return err
	}

	delete(r.records, name)
	r.persist(ctx, func(s Store) error { return s.Delete(ctx, name) })

	r.logger.Infof("✅ Removed %s", name)
	return nil
}

// RemoveAll removes every registered obstacle and returns the names that were removed.
func (r *Registry) RemoveAll(ctx context.Context) ([]string, error) {
	var removed []string
	var firstErr error
	for _, rec := range r.Records() {
		if err := r.Remove(ctx, rec.Name); err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		removed = append(removed, rec.Name)
	}
	return removed, firstErr
}

// Records returns the current obstacles ordered by sequence.
func (r *Registry) Records() []Record {
	r.mu.Lock()
	out := make([]Record, 0, len(r.records))
	for _, rec := range r.records {
		out = append(out, rec)
	}
	r.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Sequence < out[j].Sequence })
	return out
}

// Contains reports whether name is currently registered.
func (r *Registry) Contains(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.records[name]
	return ok
}

// Len returns the number of registered obstacles.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.records)
}

func (r *Registry) persist(ctx context.Context, op func(Store) error) {
	if r.store == nil {
		return
	}
	if err := op(r.store); err != nil {
		r.logger.Warnf("obstacle store update failed: %v", err)
	}
}
