// internal/player/registry.go
package player

import (
	"fmt"
	"sync"
)

// Registry tracks live players by container and by instance id. It does
// not own the containers; removing a player leaves its container usable.
type Registry struct {
	mu         sync.RWMutex
	containers map[string]*Player
	instances  map[string]*Player
	order      []*Player
}

var defaultRegistry = NewRegistry()

// DefaultRegistry returns the process-wide registry
func DefaultRegistry() *Registry {
	return defaultRegistry
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{
		containers: make(map[string]*Player),
		instances:  make(map[string]*Player),
	}
}

// register adds p unless its container already has a player. Instances
// with identical configuration share an id; the newest one wins lookups.
func (r *Registry) register(containerID string, p *Player) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.containers[containerID]; ok {
		return fmt.Errorf("%w: container %s", ErrAlreadyInitialized, containerID)
	}

	r.containers[containerID] = p
	r.instances[p.InstanceID()] = p
	r.order = append(r.order, p)
	return nil
}

// Remove drops p from the registry
func (r *Registry) Remove(p *Player) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	containerID := p.container.ID()
	if r.containers[containerID] != p {
		return fmt.Errorf("player %s is not registered", p.InstanceID())
	}
	delete(r.containers, containerID)

	for i, q := range r.order {
		if q == p {
			r.order = append(r.order[:i:i], r.order[i+1:]...)
			break
		}
	}

	if r.instances[p.InstanceID()] == p {
		delete(r.instances, p.InstanceID())
		// Another live player with the same id takes over the lookup
		for i := len(r.order) - 1; i >= 0; i-- {
			if r.order[i].InstanceID() == p.InstanceID() {
				r.instances[p.InstanceID()] = r.order[i]
				break
			}
		}
	}

	return nil
}

// ByContainer returns the player attached to a container
func (r *Registry) ByContainer(containerID string) (*Player, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.containers[containerID]
	return p, ok
}

// Lookup returns the player with instanceID, falling back to the most
// recently registered player when the id is empty or unknown
func (r *Registry) Lookup(instanceID string) (*Player, bool) {
	r.mu.RLock()
	p, ok := r.instances[instanceID]
	r.mu.RUnlock()

	if ok {
		return p, true
	}
	return r.Latest()
}

// Get returns the player with instanceID without falling back
func (r *Registry) Get(instanceID string) (*Player, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.instances[instanceID]
	return p, ok
}

// Latest returns the most recently registered player
func (r *Registry) Latest() (*Player, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if len(r.order) == 0 {
		return nil, false
	}
	return r.order[len(r.order)-1], true
}

// List returns all registered players in registration order
func (r *Registry) List() []*Player {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]*Player(nil), r.order...)
}

// Len returns the number of registered players
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}
