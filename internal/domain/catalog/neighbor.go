package catalog

import (
	"context"
	"strings"
)

// NeighborProbe describes an unknown SKU by the attributes its row carried
type NeighborProbe struct {
	Name          string
	Appearance    string
	Functionality string
	VATType       VATType
}

// Key groups probes that resolve identically: name|appearance|functionality|vat
func (p NeighborProbe) Key() string {
	return strings.ToLower(strings.Join([]string{
		strings.TrimSpace(p.Name), p.Appearance, p.Functionality, string(p.VATType),
	}, "|"))
}

// NeighborQuery is what a strategy asks the catalog for. Empty attribute
// fields are not constrained. Matching is case-insensitive and limited to
// active products.
type NeighborQuery struct {
	Name          string
	Appearance    string
	Functionality string
	VATType       VATType
}

// NeighborFinder returns the first active product matching q, or nil when none does
type NeighborFinder interface {
	FindNeighbor(ctx context.Context, q NeighborQuery) (*Product, error)
}

// NeighborStrategy turns a probe into a query. ok is false when the probe
// lacks the attributes the strategy needs, in which case it is skipped.
type NeighborStrategy struct {
	Name  string
	Build func(p NeighborProbe) (q NeighborQuery, ok bool)
}

// Strategy names, in resolution order
const (
	NeighborExact    = "exact"
	NeighborRelaxed  = "relaxed"
	NeighborNameOnly = "name_only"
)

// DefaultNeighborStrategies is the ranked list: same grades and VAT, then
// same grades, then name only.
var DefaultNeighborStrategies = []NeighborStrategy{
	{
		Name: NeighborExact,
		Build: func(p NeighborProbe) (NeighborQuery, bool) {
			if p.Appearance == "" || p.Functionality == "" || p.VATType == VATUnset {
				return NeighborQuery{}, false
			}
			return NeighborQuery{Name: p.Name, Appearance: p.Appearance, Functionality: p.Functionality, VATType: p.VATType}, true
		},
	},
	{
		Name: NeighborRelaxed,
		Build: func(p NeighborProbe) (NeighborQuery, bool) {
			if p.Appearance == "" || p.Functionality == "" {
				return NeighborQuery{}, false
			}
			return NeighborQuery{Name: p.Name, Appearance: p.Appearance, Functionality: p.Functionality}, true
		},
	},
	{
		Name: NeighborNameOnly,
		Build: func(p NeighborProbe) (NeighborQuery, bool) {
			return NeighborQuery{Name: p.Name}, true
		},
	},
}

// NeighborMatch is a resolved neighbor and the strategy that found it
type NeighborMatch struct {
	Product  *Product
	Strategy string
}

// NeighborResolver runs strategies in order and stops at the first hit
type NeighborResolver struct {
	finder     NeighborFinder
	strategies []NeighborStrategy
}

// NewNeighborResolver creates a resolver. A nil strategy list uses the defaults.
func NewNeighborResolver(finder NeighborFinder, strategies []NeighborStrategy) *NeighborResolver {
	if strategies == nil {
		strategies = DefaultNeighborStrategies
	}
	return &NeighborResolver{finder: finder, strategies: strategies}
}

// Resolve returns nil without error when no strategy finds a neighbor.
// A probe without a name never matches.
func (r *NeighborResolver) Resolve(ctx context.Context, probe NeighborProbe) (*NeighborMatch, error) {
	probe.Name = strings.TrimSpace(probe.Name)
	if probe.Name == "" {
		return nil, nil
	}
	for _, s := range r.strategies {
		q, ok := s.Build(probe)
		if !ok {
			continue
		}
		p, err := r.finder.FindNeighbor(ctx, q)
		if err != nil {
			return nil, err
		}
		if p != nil {
			return &NeighborMatch{Product: p, Strategy: s.Name}, nil
		}
	}
	return nil, nil
}

// Matches reports whether p satisfies q. Repositories that cannot push the
// query down can filter with it.
func (q NeighborQuery) Matches(p *Product) bool {
	if !p.IsActive || !strings.EqualFold(strings.TrimSpace(p.Name), strings.TrimSpace(q.Name)) {
		return false
	}
	if q.Appearance != "" && !strings.EqualFold(p.Attributes.Appearance, q.Appearance) {
		return false
	}
	if q.Functionality != "" && !strings.EqualFold(p.Attributes.Functionality, q.Functionality) {
		return false
	}
	if q.VATType != VATUnset && p.VATType != q.VATType {
		return false
	}
	return true
}
