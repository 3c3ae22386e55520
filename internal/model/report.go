package model

import "encoding/json"

// OverallStatus summarizes a compliance check.
type OverallStatus string

// Overall compliance statuses.
const (
	OverallPass                OverallStatus = "PASS"
	OverallActionNeeded        OverallStatus = "ACTION_NEEDED"
	OverallUnknownJurisdiction OverallStatus = "UNKNOWN_JURISDICTION"
)

// ComplianceReport is the transient result of one compliance check.
type ComplianceReport struct {
	JurisdictionKey     string        `json:"jurisdiction_key"`
	JurisdictionDisplay string        `json:"jurisdiction_display"`
	JurisdictionType    string        `json:"jurisdiction_type"`
	MatchedKey          string        `json:"matched_key"`
	OverallStatus       OverallStatus `json:"overall_status"`
	Requirements        []Requirement `json:"requirements"`
	TransactionType     string        `json:"transaction_type,omitempty"`
	Notes               string        `json:"notes,omitempty"`
}

// RequirementCount returns the number of requirements in the report.
func (r ComplianceReport) RequirementCount() int {
	return len(r.Requirements)
}

// ActionItems counts REQUIRED and LIKELY_REQUIRED requirements.
func (r ComplianceReport) ActionItems() int {
	n := 0
	for _, req := range r.Requirements {
		if req.Status.IsActionable() {
			n++
		}
	}
	return n
}

// MarshalJSON adds the derived counts to the serialized report.
func (r ComplianceReport) MarshalJSON() ([]byte, error) {
	type report ComplianceReport
	out := struct {
		report
		RequirementCount int `json:"requirement_count"`
		ActionItems      int `json:"action_items"`
	}{
		report:           report(r),
		RequirementCount: r.RequirementCount(),
		ActionItems:      r.ActionItems(),
	}
	if out.Requirements == nil {
		out.Requirements = []Requirement{}
	}
	return json.Marshal(out)
}
