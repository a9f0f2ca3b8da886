package pipeline

import (
	"errors"
	"fmt"
	"slices"
	"sync"
)

// Sentinel errors for the pipeline package.
var (
	// ErrStageAlreadyRegistered is returned when registering a duplicate stage.
	ErrStageAlreadyRegistered = errors.New("stage already registered")

	// ErrStageNotFound is returned for an unknown stage or dependency.
	ErrStageNotFound = errors.New("stage not found")

	// ErrDependencyCycle is returned when stage dependencies form a cycle.
	ErrDependencyCycle = errors.New("dependency cycle detected")
)

// Registry holds the pipeline's stages. Registration order breaks ties
// between stages that are ready at the same time.
type Registry struct {
	mu     sync.RWMutex
	stages map[string]Stage
	order  []string
}

// NewRegistry creates an empty stage registry.
func NewRegistry() *Registry {
	return &Registry{stages: make(map[string]Stage)}
}

// Register adds a stage to the registry.
func (r *Registry) Register(s Stage) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := s.Name()
	if _, exists := r.stages[name]; exists {
		return fmt.Errorf("%w: %s", ErrStageAlreadyRegistered, name)
	}
	r.stages[name] = s
	r.order = append(r.order, name)
	return nil
}

// Get returns a stage by name.
func (r *Registry) Get(name string) (Stage, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.stages[name]
	return s, ok
}

// Names returns all stage names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.order)
}

// GetOrdered returns every stage in dependency order.
func (r *Registry) GetOrdered() ([]Stage, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sorted(r.order)
}

// From returns the named stage and every stage downstream of it, in
// dependency order. Dependencies upstream of name are left out.
func (r *Registry) From(name string) ([]Stage, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if _, ok := r.stages[name]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrStageNotFound, name)
	}

	selected := map[string]bool{name: true}
	for changed := true; changed; {
		changed = false
		for _, n := range r.order {
			if selected[n] {
				continue
			}
			for _, dep := range r.stages[n].Dependencies() {
				if selected[dep] {
					selected[n] = true
					changed = true
					break
				}
			}
		}
	}

	var names []string
	for _, n := range r.order {
		if selected[n] {
			names = append(names, n)
		}
	}
	return r.sorted(names)
}

// sorted orders names with Kahn's algorithm. Dependencies outside names
// count as satisfied but must be registered. Caller holds r.mu.
func (r *Registry) sorted(names []string) ([]Stage, error) {
	in := make(map[string]bool, len(names))
	for _, n := range names {
		in[n] = true
	}

	pending := make(map[string]int, len(names))
	dependents := make(map[string][]string, len(names))
	for _, n := range names {
		for _, dep := range r.stages[n].Dependencies() {
			if _, ok := r.stages[dep]; !ok {
				return nil, fmt.Errorf("%w: stage %q depends on %q", ErrStageNotFound, n, dep)
			}
			if in[dep] {
				pending[n]++
				dependents[dep] = append(dependents[dep], n)
			}
		}
	}

	var queue []string
	for _, n := range names {
		if pending[n] == 0 {
			queue = append(queue, n)
		}
	}

	ordered := make([]Stage, 0, len(names))
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		ordered = append(ordered, r.stages[n])
		for _, d := range dependents[n] {
			if pending[d]--; pending[d] == 0 {
				queue = append(queue, d)
			}
		}
	}

	if len(ordered) != len(names) {
		return nil, ErrDependencyCycle
	}
	return ordered, nil
}

// Validate checks that every dependency is registered and acyclic.
func (r *Registry) Validate() error {
	_, err := r.GetOrdered()
	return err
}
