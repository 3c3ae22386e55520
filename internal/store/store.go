// Package store persists Scout rule sets.
package store

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/jace/internal/model"
)

// ErrNotFound is returned when a rule set id does not exist.
var ErrNotFound = eris.New("rule set not found")

// DefaultListLimit caps List results when no limit is given.
const DefaultListLimit = 100

// RuleFilter selects rule sets. Zero-valued fields do not constrain.
type RuleFilter struct {
	JurisdictionKey string `json:"jurisdiction_key,omitempty"`
	State           string `json:"state,omitempty"`
	Verified        *bool  `json:"verified,omitempty"`
	Active          *bool  `json:"active,omitempty"`
	Limit           int    `json:"limit,omitempty"`
}

// LiveFilter matches the verified, active rule set for a jurisdiction key.
func LiveFilter(key string) RuleFilter {
	t := true
	return RuleFilter{JurisdictionKey: key, Verified: &t, Active: &t}
}

// Store defines the rule set collection.
type Store interface {
	// FindOne returns the most recently verified (then researched) rule set
	// matching filter, or nil when none matches.
	FindOne(ctx context.Context, filter RuleFilter) (*model.RuleSet, error)
	// Find lists matching rule sets, newest research first.
	Find(ctx context.Context, filter RuleFilter) ([]model.RuleSet, error)
	// Insert persists a new rule set and assigns its id.
	Insert(ctx context.Context, rs *model.RuleSet) (string, error)
	// Get returns the rule set with id, or ErrNotFound.
	Get(ctx context.Context, id string) (*model.RuleSet, error)
	// Save overwrites an existing rule set, or returns ErrNotFound.
	Save(ctx context.Context, rs *model.RuleSet) error
	// Update applies fn to the rule set under a row lock and saves it.
	Update(ctx context.Context, id string, fn func(*model.RuleSet) error) (*model.RuleSet, error)

	Migrate(ctx context.Context) error
	Close() error
}
