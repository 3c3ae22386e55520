// Package jurisdiction normalizes address fields into jurisdiction lookup
// keys of the form "STATE:County:City".
package jurisdiction

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Jurisdiction types.
const (
	TypeCity    = "city"
	TypeCounty  = "county"
	TypeState   = "state"
	TypeUnknown = "unknown"
)

// Jurisdiction is a resolved political jurisdiction.
type Jurisdiction struct {
	State   string
	County  string
	City    string
	Key     string
	Display string
	Type    string
}

// Resolve normalizes state, county, and city and builds the lookup key,
// display name, and jurisdiction type. State is trimmed and upper-cased;
// county and city are trimmed and title-cased. Empty inputs never fail: an
// empty state yields the degenerate key "::" which matches nothing.
func Resolve(state, county, city string) Jurisdiction {
	j := Jurisdiction{
		State:  strings.ToUpper(strings.TrimSpace(state)),
		County: titleCase(county),
		City:   titleCase(city),
	}
	j.Key = j.State + ":" + j.County + ":" + j.City

	switch {
	case j.City != "":
		j.Type = TypeCity
		if j.County != "" {
			j.Display = fmt.Sprintf("%s, %s County, %s", j.City, j.County, j.State)
		} else {
			j.Display = fmt.Sprintf("%s, %s", j.City, j.State)
		}
	case j.County != "":
		j.Type = TypeCounty
		j.Display = fmt.Sprintf("%s County, %s (unincorporated)", j.County, j.State)
	default:
		j.Type = TypeState
		j.Display = fmt.Sprintf("%s (statewide)", j.State)
	}
	return j
}

// ParseKey resolves a key previously built by Resolve. Keys with fewer
// than three segments are padded with empty segments.
func ParseKey(key string) Jurisdiction {
	parts := strings.SplitN(key, ":", 3)
	for len(parts) < 3 {
		parts = append(parts, "")
	}
	return Resolve(parts[0], parts[1], parts[2])
}

// StateKey returns the statewide key for a state.
func StateKey(state string) string {
	return strings.ToUpper(strings.TrimSpace(state)) + "::"
}

// CascadeKeys returns the candidate keys for a lookup, most specific first:
// the key itself, the county-level key when the city segment is set, and
// the statewide key. Duplicates are removed while preserving order.
func CascadeKeys(key, state string) []string {
	keys := []string{key}
	parts := strings.Split(key, ":")
	if len(parts) == 3 && parts[2] != "" {
		keys = append(keys, parts[0]+":"+parts[1]+":")
	}
	keys = append(keys, StateKey(state))

	seen := make(map[string]bool, len(keys))
	out := keys[:0]
	for _, k := range keys {
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, k)
	}
	return out
}

func titleCase(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	if s == "" {
		return ""
	}
	return cases.Title(language.Und).String(s)
}
