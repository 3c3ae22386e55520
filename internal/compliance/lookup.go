// Package compliance resolves a property's jurisdiction and assembles the
// regulatory requirements a transaction there must satisfy.
package compliance

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/jace/internal/jurisdiction"
	"github.com/sells-group/jace/internal/model"
	"github.com/sells-group/jace/internal/store"
)

// RuleFinder is the read side of the rule store used by lookups.
type RuleFinder interface {
	FindOne(ctx context.Context, filter store.RuleFilter) (*model.RuleSet, error)
}

// StaticRules is the in-process fallback rule table.
type StaticRules interface {
	Get(key string) ([]model.Requirement, bool)
}

// Engine performs cascading lookups: verified, active rule sets in the store
// at every cascade level first, then the static table at every level.
type Engine struct {
	finder RuleFinder
	static StaticRules
}

// NewEngine creates an Engine. finder may be nil, in which case only the
// static table is consulted.
func NewEngine(finder RuleFinder, static StaticRules) *Engine {
	return &Engine{finder: finder, static: static}
}

// Lookup returns the requirements for key and the cascade key that matched.
// An unknown jurisdiction yields an empty slice and an empty matched key.
// Store errors are returned as-is and never downgraded to a static lookup.
func (e *Engine) Lookup(ctx context.Context, key, state string) ([]model.Requirement, string, error) {
	candidates := jurisdiction.CascadeKeys(key, state)
	log := zap.L().With(zap.String("jurisdiction", key))

	if e.finder != nil {
		reqs, matched, err := e.lookupStore(ctx, candidates)
		if err != nil {
			return nil, "", err
		}
		if matched != "" {
			log.Info("compliance: store hit", zap.String("matched_key", matched), zap.Int("requirements", len(reqs)))
			return reqs, matched, nil
		}
	}

	if e.static != nil {
		for _, k := range candidates {
			if reqs, ok := e.static.Get(k); ok {
				log.Debug("compliance: static rules hit", zap.String("matched_key", k))
				return reqs, k, nil
			}
		}
	}

	log.Debug("compliance: no rules at any cascade level")
	return []model.Requirement{}, "", nil
}

// lookupStore reads every candidate concurrently and picks the most
// specific rule set with at least one requirement.
func (e *Engine) lookupStore(ctx context.Context, candidates []string) ([]model.Requirement, string, error) {
	found := make([]*model.RuleSet, len(candidates))

	g, gctx := errgroup.WithContext(ctx)
	for i, k := range candidates {
		g.Go(func() error {
			rs, err := e.finder.FindOne(gctx, store.LiveFilter(k))
			if err != nil {
				return eris.Wrapf(err, "compliance: lookup %s", k)
			}
			found[i] = rs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, "", err
	}

	for i, rs := range found {
		// The filter already requires both flags; re-check in case a store
		// implementation ignores part of it.
		if rs == nil || !rs.Live() || len(rs.Requirements) == 0 {
			continue
		}
		reqs := make([]model.Requirement, len(rs.Requirements))
		copy(reqs, rs.Requirements)
		return reqs, candidates[i], nil
	}
	return nil, "", nil
}
