package store

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/jace/internal/model"
)

// rowScanner is satisfied by pgx.Row, pgx.Rows, *sql.Row, and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRuleSet(row rowScanner) (*model.RuleSet, error) {
	var rs model.RuleSet
	var reqJSON []byte
	err := row.Scan(
		&rs.ID, &rs.State, &rs.County, &rs.City, &rs.JurisdictionKey, &rs.JurisdictionType, &reqJSON, &rs.Source,
		&rs.IsVerified, &rs.IsActive, &rs.ModelUsed, &rs.ResearchTimestamp, &rs.VerifiedBy, &rs.VerificationTimestamp,
		&rs.Notes,
	)
	if err != nil {
		return nil, err
	}
	if len(reqJSON) > 0 {
		if err := json.Unmarshal(reqJSON, &rs.Requirements); err != nil {
			return nil, eris.Wrapf(err, "unmarshal requirements for %s", rs.ID)
		}
	}
	if rs.Requirements == nil {
		rs.Requirements = []model.Requirement{}
	}
	rs.ResearchTimestamp = rs.ResearchTimestamp.UTC()
	if rs.VerificationTimestamp != nil {
		t := rs.VerificationTimestamp.UTC()
		rs.VerificationTimestamp = &t
	}
	return &rs, nil
}

func marshalRequirements(reqs []model.Requirement) ([]byte, error) {
	if reqs == nil {
		reqs = []model.Requirement{}
	}
	data, err := json.Marshal(reqs)
	if err != nil {
		return nil, eris.Wrap(err, "marshal requirements")
	}
	return data, nil
}

// buildFindQuery renders a SELECT over compliance_rules for filter. With
// numbered set, placeholders are $1..$n (PostgreSQL); otherwise "?".
// verifiedFirst orders the most recently verified rule set first.
func buildFindQuery(filter RuleFilter, numbered, verifiedFirst bool) (string, []any) {
	var where []string
	var args []any
	ph := func() string {
		if numbered {
			return fmt.Sprintf("$%d", len(args))
		}
		return "?"
	}

	if filter.JurisdictionKey != "" {
		args = append(args, filter.JurisdictionKey)
		where = append(where, "jurisdiction_key = "+ph())
	}
	if filter.State != "" {
		args = append(args, strings.ToUpper(strings.TrimSpace(filter.State)))
		where = append(where, "state = "+ph())
	}
	if filter.Verified != nil {
		args = append(args, *filter.Verified)
		where = append(where, "is_verified = "+ph())
	}
	if filter.Active != nil {
		args = append(args, *filter.Active)
		where = append(where, "is_active = "+ph())
	}

	query := `SELECT ` + ruleSetColumns + ` FROM compliance_rules`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	if verifiedFirst {
		query += " ORDER BY verification_timestamp DESC NULLS LAST, research_timestamp DESC"
	} else {
		query += " ORDER BY research_timestamp DESC"
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = DefaultListLimit
	}
	args = append(args, limit)
	query += " LIMIT " + ph()
	return query, args
}
