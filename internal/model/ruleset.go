package model

import (
	"strings"
	"time"
)

// SourceAIScout marks rule sets produced by the Scout pipeline.
const SourceAIScout = "ai_scout"

// RejectedMarker is appended to a rejected rule set's notes.
const RejectedMarker = "[REJECTED]"

// RuleSet is one Scout research run for a single jurisdiction key. It is
// created unverified and inactive; only the verification gate flips the
// flags.
type RuleSet struct {
	ID                    string        `json:"id"`
	State                 string        `json:"state"`
	County                string        `json:"county,omitempty"`
	City                  string        `json:"city,omitempty"`
	JurisdictionKey       string        `json:"jurisdiction_key"`
	JurisdictionType      string        `json:"jurisdiction_type"`
	Requirements          []Requirement `json:"requirements"`
	Source                string        `json:"source"`
	IsVerified            bool          `json:"is_verified"`
	IsActive              bool          `json:"is_active"`
	ModelUsed             string        `json:"model_used,omitempty"`
	ResearchTimestamp     time.Time     `json:"research_timestamp"`
	VerifiedBy            string        `json:"verified_by,omitempty"`
	VerificationTimestamp *time.Time    `json:"verification_timestamp,omitempty"`
	Notes                 string        `json:"notes,omitempty"`
}

// Live reports whether the rule set may be served by compliance lookups.
func (rs *RuleSet) Live() bool {
	return rs.IsVerified && rs.IsActive
}

// MarkVerified promotes the rule set to authoritative.
func (rs *RuleSet) MarkVerified(by string, at time.Time) {
	at = at.UTC()
	rs.IsVerified = true
	rs.IsActive = true
	rs.VerifiedBy = by
	rs.VerificationTimestamp = &at
}

// MarkRejected deactivates the rule set and annotates its notes. The record
// is kept for audit and may still be verified later.
func (rs *RuleSet) MarkRejected() {
	rs.IsVerified = false
	rs.IsActive = false
	if !strings.HasSuffix(rs.Notes, RejectedMarker) {
		rs.Notes = strings.TrimSpace(rs.Notes + " " + RejectedMarker)
	}
}

// AverageConfidence returns the mean confidence across requirements.
func (rs *RuleSet) AverageConfidence() float64 {
	if len(rs.Requirements) == 0 {
		return 0
	}
	var sum float64
	for _, r := range rs.Requirements {
		sum += r.ConfidenceValue()
	}
	return sum / float64(len(rs.Requirements))
}
