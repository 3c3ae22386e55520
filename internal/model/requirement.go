package model

import (
	"math"
	"strings"

	"github.com/rotisserie/eris"
)

// Category classifies a regulatory requirement.
type Category string

// Requirement categories.
const (
	CategoryForm        Category = "FORM"
	CategoryInspection  Category = "INSPECTION"
	CategoryDisclosure  Category = "DISCLOSURE"
	CategoryCertificate Category = "CERTIFICATE"
	CategoryFee         Category = "FEE"
)

// Status indicates whether a requirement applies to a transaction.
type Status string

// Requirement statuses.
const (
	StatusRequired       Status = "REQUIRED"
	StatusLikelyRequired Status = "LIKELY_REQUIRED"
	StatusNotRequired    Status = "NOT_REQUIRED"
	StatusUnknown        Status = "UNKNOWN"
)

var categories = map[string]Category{
	"FORM":        CategoryForm,
	"INSPECTION":  CategoryInspection,
	"DISCLOSURE":  CategoryDisclosure,
	"CERTIFICATE": CategoryCertificate,
	"FEE":         CategoryFee,
}

var statuses = map[string]Status{
	"REQUIRED":        StatusRequired,
	"LIKELY_REQUIRED": StatusLikelyRequired,
	"NOT_REQUIRED":    StatusNotRequired,
	"UNKNOWN":         StatusUnknown,
}

// ParseCategory maps a category name to a Category. Matching is
// case-insensitive; empty or unrecognized names map to CategoryForm.
func ParseCategory(s string) Category {
	if c, ok := categories[strings.ToUpper(strings.TrimSpace(s))]; ok {
		return c
	}
	return CategoryForm
}

// ParseStatus maps a status name to a Status. Matching is case-insensitive;
// empty or unrecognized names map to StatusRequired.
func ParseStatus(s string) Status {
	if st, ok := statuses[strings.ToUpper(strings.TrimSpace(s))]; ok {
		return st
	}
	return StatusRequired
}

// IsActionable reports whether the status obliges the parties to act.
func (s Status) IsActionable() bool {
	return s == StatusRequired || s == StatusLikelyRequired
}

// ErrInvalidRequirement is returned when a requirement fails validation.
var ErrInvalidRequirement = eris.New("invalid requirement")

// Requirement is one regulatory obligation attached to a jurisdiction.
// Confidence and SourceReasoning are only populated for Scout-discovered
// records.
type Requirement struct {
	Name            string   `json:"name" yaml:"name"`
	Code            string   `json:"code,omitempty" yaml:"code"`
	Category        Category `json:"category" yaml:"category"`
	Description     string   `json:"description" yaml:"description"`
	Authority       string   `json:"authority,omitempty" yaml:"authority"`
	Fee             string   `json:"fee,omitempty" yaml:"fee"`
	URL             string   `json:"url,omitempty" yaml:"url"`
	Status          Status   `json:"status" yaml:"status"`
	Notes           string   `json:"notes,omitempty" yaml:"notes"`
	Confidence      *float64 `json:"confidence,omitempty" yaml:"confidence,omitempty"`
	SourceReasoning string   `json:"source_reasoning,omitempty" yaml:"source_reasoning,omitempty"`
}

// Validate checks the requirement invariants: a non-empty name and, when
// present, a confidence within [0, 1]. Out-of-range confidences are
// rejected rather than clamped.
func (r Requirement) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return eris.Wrap(ErrInvalidRequirement, "name is required")
	}
	if r.Confidence != nil {
		c := *r.Confidence
		if math.IsNaN(c) || c < 0 || c > 1 {
			return eris.Wrapf(ErrInvalidRequirement, "confidence %v outside [0, 1] for %q", c, r.Name)
		}
	}
	return nil
}

// NewScoutRequirement builds a validated Scout-discovered requirement.
func NewScoutRequirement(r Requirement, confidence float64) (Requirement, error) {
	r.Confidence = &confidence
	if r.Category == "" {
		r.Category = CategoryForm
	}
	if r.Status == "" {
		r.Status = StatusRequired
	}
	if err := r.Validate(); err != nil {
		return Requirement{}, err
	}
	return r, nil
}

// ConfidenceValue returns the confidence score, or 0 when unset.
func (r Requirement) ConfidenceValue() float64 {
	if r.Confidence == nil {
		return 0
	}
	return *r.Confidence
}

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	_, ok := categories[string(c)]
	return ok
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	_, ok := statuses[string(s)]
	return ok
}
