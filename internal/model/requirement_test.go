package model

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCategory(t *testing.T) {
	tests := []struct {
		in   string
		want Category
	}{
		{"FORM", CategoryForm},
		{"inspection", CategoryInspection},
		{" Disclosure ", CategoryDisclosure},
		{"certificate", CategoryCertificate},
		{"FEE", CategoryFee},
		{"", CategoryForm},
		{"BOGUS", CategoryForm},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseCategory(tt.in), tt.in)
	}
}

func TestParseStatus(t *testing.T) {
	tests := []struct {
		in   string
		want Status
	}{
		{"REQUIRED", StatusRequired},
		{"likely_required", StatusLikelyRequired},
		{"NOT_REQUIRED", StatusNotRequired},
		{"unknown", StatusUnknown},
		{"", StatusRequired},
		{"MAYBE", StatusRequired},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseStatus(tt.in), tt.in)
	}
}

func TestStatusIsActionable(t *testing.T) {
	assert.True(t, StatusRequired.IsActionable())
	assert.True(t, StatusLikelyRequired.IsActionable())
	assert.False(t, StatusNotRequired.IsActionable())
	assert.False(t, StatusUnknown.IsActionable())
}

func TestNewScoutRequirement_Valid(t *testing.T) {
	req, err := NewScoutRequirement(Requirement{Name: "Radon Disclosure"}, 0.9)
	require.NoError(t, err)
	assert.Equal(t, CategoryForm, req.Category)
	assert.Equal(t, StatusRequired, req.Status)
	assert.InDelta(t, 0.9, req.ConfidenceValue(), 1e-9)
}

func TestNewScoutRequirement_Bounds(t *testing.T) {
	for _, c := range []float64{0, 1} {
		_, err := NewScoutRequirement(Requirement{Name: "Edge"}, c)
		assert.NoError(t, err, "confidence %v", c)
	}
	for _, c := range []float64{1.5, -0.1} {
		_, err := NewScoutRequirement(Requirement{Name: "Out of range"}, c)
		require.Error(t, err, "confidence %v", c)
		assert.True(t, errors.Is(err, ErrInvalidRequirement))
	}
}

func TestNewScoutRequirement_MissingName(t *testing.T) {
	_, err := NewScoutRequirement(Requirement{Code: "NO-NAME"}, 0.8)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidRequirement))
	assert.Contains(t, err.Error(), "name is required")
}

func TestRequirementValidate_StaticHasNoConfidence(t *testing.T) {
	req := Requirement{Name: "Transfer Disclosure Statement", Status: StatusRequired}
	assert.NoError(t, req.Validate())
	assert.Zero(t, req.ConfidenceValue())
}
