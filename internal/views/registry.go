package views

import (
	"fmt"
	"sync"

	"netdash/internal/dataset"
)

// Recipe renders a filtered table
type Recipe func(t *dataset.Table, opts Options) *View

// Registry maps kinds to recipes
type Registry struct {
	mu      sync.RWMutex
	recipes map[dataset.Kind]Recipe
}

// NewRegistry returns a registry holding the recipes of the six dashboard
// kinds
func NewRegistry() *Registry {
	r := &Registry{recipes: make(map[dataset.Kind]Recipe)}
	r.Register(dataset.Alarms, Alarms)
	r.Register(dataset.Performance, Performance)
	r.Register(dataset.Configuration, Configuration)
	r.Register(dataset.Provision, Provision)
	r.Register(dataset.Availability, Availability)
	r.Register(dataset.Quality, Quality)
	return r
}

// Register sets the recipe of kind
func (r *Registry) Register(kind dataset.Kind, recipe Recipe) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.recipes[kind] = recipe
}

// Render runs the recipe of kind on t
func (r *Registry) Render(kind dataset.Kind, t *dataset.Table, opts Options) (*View, error) {
	r.mu.RLock()
	recipe, ok := r.recipes[kind]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: no view for %q", dataset.ErrUnknownKind, kind)
	}
	return recipe(t, opts), nil
}
