package compliance

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/sells-group/jace/internal/jurisdiction"
	"github.com/sells-group/jace/internal/model"
)

// Check runs a compliance check for the property address carried by rec.
// A record without an address, or an address without a state, yields an
// UNKNOWN_JURISDICTION report rather than an error.
func (e *Engine) Check(ctx context.Context, rec model.TransactionRecord, transactionType string) (*model.ComplianceReport, error) {
	var state, county, city string
	if rec != nil {
		if addr := rec.Address(); addr != nil {
			state, county, city = addr.JurisdictionFields()
		}
	}
	return e.CheckAddress(ctx, state, county, city, transactionType)
}

// CheckAddress runs a compliance check for explicit address fields. A full
// state name such as "Montana" is mapped to its abbreviation first.
func (e *Engine) CheckAddress(ctx context.Context, state, county, city, transactionType string) (*model.ComplianceReport, error) {
	state = jurisdiction.StateAbbrev(state)
	if state == "" {
		zap.L().Warn("compliance: no state in property address")
		return &model.ComplianceReport{
			JurisdictionDisplay: "Unknown",
			JurisdictionType:    jurisdiction.TypeUnknown,
			OverallStatus:       model.OverallUnknownJurisdiction,
			Requirements:        []model.Requirement{},
			TransactionType:     transactionType,
			Notes:               "No state found in extracted property address.",
		}, nil
	}

	j := jurisdiction.Resolve(state, county, city)
	log := zap.L().With(zap.String("jurisdiction", j.Key))
	log.Info("compliance: resolved jurisdiction", zap.String("display", j.Display), zap.String("type", j.Type))

	reqs, matched, err := e.Lookup(ctx, j.Key, j.State)
	if err != nil {
		return nil, err
	}

	report := &model.ComplianceReport{
		JurisdictionKey:     j.Key,
		JurisdictionDisplay: j.Display,
		JurisdictionType:    j.Type,
		MatchedKey:          matched,
		Requirements:        reqs,
		TransactionType:     transactionType,
	}

	if len(reqs) == 0 {
		report.MatchedKey = ""
		report.OverallStatus = model.OverallUnknownJurisdiction
		report.Notes = fmt.Sprintf("No compliance rules found for %s. This jurisdiction may still have requirements.", j.Display)
		log.Info("compliance: unknown jurisdiction")
		return report, nil
	}

	report.OverallStatus = model.OverallPass
	if report.ActionItems() > 0 {
		report.OverallStatus = model.OverallActionNeeded
	}

	if matched != j.Key {
		m := jurisdiction.ParseKey(matched)
		report.Notes = fmt.Sprintf("No %s-level rules found for %s. Showing %s-level rules for %s.",
			j.Type, j.Display, m.Type, m.Display)
	}

	log.Info("compliance: check complete",
		zap.String("matched_key", matched),
		zap.Int("requirements", report.RequirementCount()),
		zap.Int("action_items", report.ActionItems()),
		zap.String("status", string(report.OverallStatus)))
	return report, nil
}
