package service

import (
	"sync"

	"github.com/pkg/errors"
)

// Group starts services in dependency order and stops them in reverse
type Group struct {
	mu       sync.Mutex
	services map[string]Service
	order    []string // Registration order, breaks ties in the sort
	started  []string // Services that completed Start, for rollback
}

// NewGroup creates an empty group
func NewGroup() *Group {
	return &Group{
		services: make(map[string]Service),
	}
}

// Register adds a service to the group
func (g *Group) Register(svc Service) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	name := svc.Name()
	if _, exists := g.services[name]; exists {
		return errors.Errorf("service already registered: %s", name)
	}

	g.services[name] = svc
	g.order = append(g.order, name)
	return nil
}

// Get retrieves a service by name
func (g *Group) Get(name string) (Service, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	svc, ok := g.services[name]
	return svc, ok
}

// StartAll calls Start on all services in topological order
// On failure, already-started services are stopped in reverse order
func (g *Group) StartAll() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	sorted, err := g.topologicalSort()
	if err != nil {
		return err
	}

	g.started = nil
	for _, name := range sorted {
		if err := g.services[name].Start(); err != nil {
			g.stopStarted()
			return errors.Wrapf(err, "service %s start failed", name)
		}
		g.started = append(g.started, name)
	}
	return nil
}

// StopAll calls Stop on started services in reverse order
// Every service is stopped; the first error is returned
func (g *Group) StopAll() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.stopStarted()
}

// Started returns the names of running services in start order
func (g *Group) Started() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.started...)
}

func (g *Group) stopStarted() error {
	var first error
	for i := len(g.started) - 1; i >= 0; i-- {
		name := g.started[i]
		if err := g.services[name].Stop(); err != nil && first == nil {
			first = errors.Wrapf(err, "service %s stop failed", name)
		}
	}
	g.started = nil
	return first
}

// topologicalSort computes start order using Kahn's algorithm
// Returns error if a dependency is missing or circular
func (g *Group) topologicalSort() ([]string, error) {
	inDegree := make(map[string]int, len(g.order))
	dependents := make(map[string][]string) // dep -> services that depend on it

	for _, name := range g.order {
		for _, dep := range g.services[name].Dependencies() {
			if _, exists := g.services[dep]; !exists {
				return nil, errors.Errorf("service %s depends on unregistered service: %s", name, dep)
			}
			inDegree[name]++
			dependents[dep] = append(dependents[dep], name)
		}
	}

	var queue []string
	for _, name := range g.order {
		if inDegree[name] == 0 {
			queue = append(queue, name)
		}
	}

	result := make([]string, 0, len(g.order))
	for len(queue) > 0 {
		name := queue[0]
		queue = queue[1:]
		result = append(result, name)

		for _, dependent := range dependents[name] {
			inDegree[dependent]--
			if inDegree[dependent] == 0 {
				queue = append(queue, dependent)
			}
		}
	}

	if len(result) != len(g.order) {
		return nil, errors.New("circular dependency detected in services")
	}
	return result, nil
}
