// Package rules holds the static, hand-curated compliance rule table used
// as the fallback of last resort when no verified rule set exists.
package rules

import (
	_ "embed"
	"os"
	"sort"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/jace/internal/model"
)

//go:embed seed_rules.yaml
var seedRules []byte

// Table is an immutable mapping from jurisdiction key to requirements.
// It is safe for concurrent use.
type Table struct {
	rules map[string][]model.Requirement
}

// Load reads the rule table from a YAML file, or from the embedded seed
// rules when path is empty.
func Load(path string) (*Table, error) {
	if path == "" {
		return Parse(seedRules)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "rules: read %s", path)
	}
	return Parse(data)
}

// Default returns the table built from the embedded seed rules.
func Default() *Table {
	t, err := Parse(seedRules)
	if err != nil {
		panic(err)
	}
	return t
}

// Parse builds a table from YAML. Every requirement must have a name and a
// known category and status.
func Parse(data []byte) (*Table, error) {
	var doc struct {
		Jurisdictions map[string][]model.Requirement `yaml:"jurisdictions"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, eris.Wrap(err, "rules: parse yaml")
	}

	t := &Table{rules: make(map[string][]model.Requirement, len(doc.Jurisdictions))}
	for key, reqs := range doc.Jurisdictions {
		for i, r := range reqs {
			if err := r.Validate(); err != nil {
				return nil, eris.Wrapf(err, "rules: %s[%d]", key, i)
			}
			if !r.Category.Valid() {
				return nil, eris.Errorf("rules: %s[%d] %q: unknown category %q", key, i, r.Name, r.Category)
			}
			if !r.Status.Valid() {
				return nil, eris.Errorf("rules: %s[%d] %q: unknown status %q", key, i, r.Name, r.Status)
			}
		}
		t.rules[key] = reqs
	}
	return t, nil
}

// Get returns a copy of the requirements stored under key.
func (t *Table) Get(key string) ([]model.Requirement, bool) {
	reqs, ok := t.rules[key]
	if !ok || len(reqs) == 0 {
		return nil, false
	}
	out := make([]model.Requirement, len(reqs))
	copy(out, reqs)
	return out, true
}

// Keys returns all jurisdiction keys in sorted order.
func (t *Table) Keys() []string {
	keys := make([]string, 0, len(t.rules))
	for k := range t.rules {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Len returns the number of jurisdictions in the table.
func (t *Table) Len() int {
	return len(t.rules)
}
