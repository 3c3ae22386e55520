package scout

import (
	"context"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/jace/internal/model"
)

// DefaultReviewer is recorded when a verification names no reviewer.
const DefaultReviewer = "admin"

// Updater performs a locked read-modify-write of one rule set. It returns
// an error matching store.ErrNotFound for unknown ids.
type Updater interface {
	Update(ctx context.Context, id string, fn func(*model.RuleSet) error) (*model.RuleSet, error)
}

// Gate is the human review step that promotes or rejects Scout proposals.
type Gate struct {
	store Updater
	now   func() time.Time
}

// NewGate creates a Gate.
func NewGate(store Updater) *Gate {
	return &Gate{store: store, now: time.Now}
}

// Verify marks the rule set verified and active so compliance lookups start
// serving it. A previously rejected rule set can still be verified.
func (g *Gate) Verify(ctx context.Context, id, verifiedBy string) (*model.RuleSet, error) {
	verifiedBy = strings.TrimSpace(verifiedBy)
	if verifiedBy == "" {
		verifiedBy = DefaultReviewer
	}
	rs, err := g.store.Update(ctx, id, func(rs *model.RuleSet) error {
		rs.MarkVerified(verifiedBy, g.now())
		return nil
	})
	if err != nil {
		return nil, eris.Wrapf(err, "scout: verify %s", id)
	}
	zap.L().Info("scout: rule set verified",
		zap.String("id", id),
		zap.String("jurisdiction", rs.JurisdictionKey),
		zap.String("verified_by", verifiedBy))
	return rs, nil
}

// Reject deactivates the rule set and marks its notes. The record is kept
// for audit.
func (g *Gate) Reject(ctx context.Context, id string) (*model.RuleSet, error) {
	rs, err := g.store.Update(ctx, id, func(rs *model.RuleSet) error {
		rs.MarkRejected()
		return nil
	})
	if err != nil {
		return nil, eris.Wrapf(err, "scout: reject %s", id)
	}
	zap.L().Info("scout: rule set rejected", zap.String("id", id), zap.String("jurisdiction", rs.JurisdictionKey))
	return rs, nil
}
