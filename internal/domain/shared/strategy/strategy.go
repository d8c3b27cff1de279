// Package strategy declares the pluggable pricing rules used by catalog
// imports and order shipping.
package strategy

// StrategyType groups strategies that are interchangeable
type StrategyType string

const (
	StrategyTypePricing  StrategyType = "pricing"
	StrategyTypeShipping StrategyType = "shipping"
)

func (t StrategyType) String() string {
	return string(t)
}

// Strategy is implemented by every registered strategy
type Strategy interface {
	Name() string
	Type() StrategyType
	Description() string
}

// BaseStrategy carries the identity fields shared by all strategies
type BaseStrategy struct {
	name         string
	strategyType StrategyType
	description  string
}

func NewBaseStrategy(name string, strategyType StrategyType, description string) BaseStrategy {
	return BaseStrategy{name: name, strategyType: strategyType, description: description}
}

func (s BaseStrategy) Name() string        { return s.name }
func (s BaseStrategy) Type() StrategyType  { return s.strategyType }
func (s BaseStrategy) Description() string { return s.description }
