package strategy

import (
	"fmt"
	"sort"
	"sync"

	"github.com/dbcb2b/backend/internal/domain/shared"
	"github.com/dbcb2b/backend/internal/domain/shared/strategy"
)

// StrategyRegistry manages strategy registrations
type StrategyRegistry struct {
	mu                 sync.RWMutex
	pricingStrategies  map[string]strategy.PricingStrategy
	shippingStrategies map[string]strategy.ShippingStrategy
	defaults           map[strategy.StrategyType]string
}

// NewStrategyRegistry creates a new strategy registry
func NewStrategyRegistry() *StrategyRegistry {
	return &StrategyRegistry{
		pricingStrategies:  make(map[string]strategy.PricingStrategy),
		shippingStrategies: make(map[string]strategy.ShippingStrategy),
		defaults:           make(map[strategy.StrategyType]string),
	}
}

// RegisterPricingStrategy registers a pricing strategy
func (r *StrategyRegistry) RegisterPricingStrategy(s strategy.PricingStrategy) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := s.Name()
	if _, exists := r.pricingStrategies[name]; exists {
		return fmt.Errorf("%w: pricing strategy '%s' already registered", shared.ErrAlreadyExists, name)
	}
	r.pricingStrategies[name] = s
	return nil
}

// GetPricingStrategy returns a pricing strategy by name, or the default if name is empty
func (r *StrategyRegistry) GetPricingStrategy(name string) (strategy.PricingStrategy, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if name == "" {
		name = r.defaults[strategy.StrategyTypePricing]
		if name == "" {
			return nil, fmt.Errorf("%w: no default pricing strategy set", shared.ErrNotFound)
		}
	}

	s, exists := r.pricingStrategies[name]
	if !exists {
		return nil, fmt.Errorf("%w: pricing strategy '%s' not found", shared.ErrNotFound, name)
	}
	return s, nil
}

// GetPricingStrategyOrDefault returns a pricing strategy by name, or the default if not found
func (r *StrategyRegistry) GetPricingStrategyOrDefault(name string) strategy.PricingStrategy {
	s, err := r.GetPricingStrategy(name)
	if err != nil {
		s, _ = r.GetPricingStrategy("")
	}
	return s
}

// RegisterShippingStrategy registers a shipping strategy
func (r *StrategyRegistry) RegisterShippingStrategy(s strategy.ShippingStrategy) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := s.Name()
	if _, exists := r.shippingStrategies[name]; exists {
		return fmt.Errorf("%w: shipping strategy '%s' already registered", shared.ErrAlreadyExists, name)
	}
	r.shippingStrategies[name] = s
	return nil
}

// GetShippingStrategy returns a shipping strategy by name, or the default if name is empty
func (r *StrategyRegistry) GetShippingStrategy(name string) (strategy.ShippingStrategy, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if name == "" {
		name = r.defaults[strategy.StrategyTypeShipping]
		if name == "" {
			return nil, fmt.Errorf("%w: no default shipping strategy set", shared.ErrNotFound)
		}
	}

	s, exists := r.shippingStrategies[name]
	if !exists {
		return nil, fmt.Errorf("%w: shipping strategy '%s' not found", shared.ErrNotFound, name)
	}
	return s, nil
}

// GetShippingStrategyOrDefault returns a shipping strategy by name, or the default if not found
func (r *StrategyRegistry) GetShippingStrategyOrDefault(name string) strategy.ShippingStrategy {
	s, err := r.GetShippingStrategy(name)
	if err != nil {
		s, _ = r.GetShippingStrategy("")
	}
	return s
}

// List returns the registered strategy names of a type, sorted
func (r *StrategyRegistry) List(strategyType strategy.StrategyType) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var names []string
	switch strategyType {
	case strategy.StrategyTypePricing:
		for name := range r.pricingStrategies {
			names = append(names, name)
		}
	case strategy.StrategyTypeShipping:
		for name := range r.shippingStrategies {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// Unregister removes a strategy and clears the default if it pointed to it
func (r *StrategyRegistry) Unregister(strategyType strategy.StrategyType, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.isRegisteredLocked(strategyType, name) {
		return fmt.Errorf("%w: %s strategy '%s' not found", shared.ErrNotFound, strategyType, name)
	}
	switch strategyType {
	case strategy.StrategyTypePricing:
		delete(r.pricingStrategies, name)
	case strategy.StrategyTypeShipping:
		delete(r.shippingStrategies, name)
	}
	if r.defaults[strategyType] == name {
		delete(r.defaults, strategyType)
	}
	return nil
}

// SetDefault sets the default strategy for a strategy type
func (r *StrategyRegistry) SetDefault(strategyType strategy.StrategyType, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.isRegisteredLocked(strategyType, name) {
		return fmt.Errorf("%w: strategy '%s' of type '%s' not found", shared.ErrNotFound, name, strategyType)
	}

	r.defaults[strategyType] = name
	return nil
}

// GetDefault returns the default strategy name for a strategy type
func (r *StrategyRegistry) GetDefault(strategyType strategy.StrategyType) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.defaults[strategyType]
}

// HasDefault returns true if a default is set for the strategy type
func (r *StrategyRegistry) HasDefault(strategyType strategy.StrategyType) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.defaults[strategyType] != ""
}

// IsRegistered returns true if a strategy with the given name is registered for the type
func (r *StrategyRegistry) IsRegistered(strategyType strategy.StrategyType, name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.isRegisteredLocked(strategyType, name)
}

// isRegisteredLocked checks registration without locking (caller must hold lock)
func (r *StrategyRegistry) isRegisteredLocked(strategyType strategy.StrategyType, name string) bool {
	switch strategyType {
	case strategy.StrategyTypePricing:
		_, exists := r.pricingStrategies[name]
		return exists
	case strategy.StrategyTypeShipping:
		_, exists := r.shippingStrategies[name]
		return exists
	default:
		return false
	}
}

// Stats returns registration counts for each strategy type
func (r *StrategyRegistry) Stats() map[strategy.StrategyType]int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return map[strategy.StrategyType]int{
		strategy.StrategyTypePricing:  len(r.pricingStrategies),
		strategy.StrategyTypeShipping: len(r.shippingStrategies),
	}
}
