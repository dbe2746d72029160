package strategy

import (
	"fmt"
	"sort"
	"sync"

	"github.com/retail/backend/internal/domain/sales"
	"github.com/retail/backend/internal/domain/shared"
)

// PolicyRegistry manages lot ordering policy registrations
type PolicyRegistry struct {
	mu          sync.RWMutex
	policies    map[string]sales.LotOrderingPolicy
	defaultName string
}

// NewPolicyRegistry creates an empty registry
func NewPolicyRegistry() *PolicyRegistry {
	return &PolicyRegistry{
		policies: make(map[string]sales.LotOrderingPolicy),
	}
}

// Register registers a lot ordering policy
func (r *PolicyRegistry) Register(p sales.LotOrderingPolicy) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := p.Name()
	if _, exists := r.policies[name]; exists {
		return fmt.Errorf("%w: lot policy '%s' already registered", shared.ErrAlreadyExists, name)
	}
	r.policies[name] = p
	return nil
}

// Get returns a policy by name, or the default if name is empty
func (r *PolicyRegistry) Get(name string) (sales.LotOrderingPolicy, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if name == "" {
		name = r.defaultName
		if name == "" {
			return nil, fmt.Errorf("%w: no default lot policy set", shared.ErrNotFound)
		}
	}

	p, exists := r.policies[name]
	if !exists {
		return nil, fmt.Errorf("%w: lot policy '%s' not found", shared.ErrNotFound, name)
	}
	return p, nil
}

// GetOrDefault returns a policy by name, or the default if not found
func (r *PolicyRegistry) GetOrDefault(name string) sales.LotOrderingPolicy {
	p, err := r.Get(name)
	if err != nil {
		p, _ = r.Get("")
	}
	return p
}

// List returns all registered policy names
func (r *PolicyRegistry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.policies))
	for name := range r.policies {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Unregister removes a policy
func (r *PolicyRegistry) Unregister(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.policies[name]; !exists {
		return fmt.Errorf("%w: lot policy '%s' not found", shared.ErrNotFound, name)
	}
	delete(r.policies, name)

	// Clear default if it was this policy
	if r.defaultName == name {
		r.defaultName = ""
	}
	return nil
}

// SetDefault sets the policy used when none is named
func (r *PolicyRegistry) SetDefault(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.policies[name]; !exists {
		return fmt.Errorf("%w: lot policy '%s' not found", shared.ErrNotFound, name)
	}
	r.defaultName = name
	return nil
}

// Default returns the default policy name
func (r *PolicyRegistry) Default() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.defaultName
}

// IsRegistered returns true if a policy with the given name is registered
func (r *PolicyRegistry) IsRegistered(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, exists := r.policies[name]
	return exists
}
