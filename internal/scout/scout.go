// Package scout discovers candidate compliance rules for a jurisdiction with
// a two-pass LLM protocol (research, then verify) and manages their review
// lifecycle. Scout output is never authoritative until a human verifies it.
package scout

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/jace/internal/jurisdiction"
	"github.com/sells-group/jace/internal/llm"
	"github.com/sells-group/jace/internal/model"
)

// ErrStateRequired is returned when a run is requested without a state.
var ErrStateRequired = eris.New("state is required")

// Config tunes the two LLM passes.
type Config struct {
	ResearchTemperature float64
	VerifyTemperature   float64
	// MinConfidence drops verified records scoring below it even when the
	// model kept them.
	MinConfidence float64
	MaxTokens     int
}

// DefaultConfig returns the standard pass settings.
func DefaultConfig() Config {
	return Config{
		ResearchTemperature: 0.1,
		VerifyTemperature:   0,
		MinConfidence:       0.5,
		MaxTokens:           llm.DefaultMaxTokens,
	}
}

// Target names the jurisdiction to research.
type Target struct {
	State  string `json:"state"`
	County string `json:"county,omitempty"`
	City   string `json:"city,omitempty"`
}

// Resolve normalizes the target into a jurisdiction. Full state names are
// mapped to their abbreviation.
func (t Target) Resolve() (jurisdiction.Jurisdiction, error) {
	state := jurisdiction.StateAbbrev(t.State)
	if state == "" {
		return jurisdiction.Jurisdiction{}, ErrStateRequired
	}
	return jurisdiction.Resolve(state, t.County, t.City), nil
}

// Inserter persists a new rule set.
type Inserter interface {
	Insert(ctx context.Context, rs *model.RuleSet) (string, error)
}

// Scout runs research and verify passes against an LLM and stores the
// resulting proposal.
type Scout struct {
	llm   llm.Completer
	store Inserter
	cfg   Config
	now   func() time.Time
}

// New creates a Scout. store may be nil when results are never saved.
func New(completer llm.Completer, store Inserter, cfg Config) *Scout {
	return &Scout{llm: completer, store: store, cfg: cfg, now: time.Now}
}

// Research asks the model for every plausible requirement in j. An empty
// list is a valid answer.
func (s *Scout) Research(ctx context.Context, j jurisdiction.Jurisdiction) ([]json.RawMessage, string, error) {
	log := zap.L().With(zap.String("jurisdiction", j.Key), zap.String("phase", "research"))
	log.Info("scout: research pass", zap.String("target", describe(j)))

	res, err := s.llm.Complete(ctx, llm.Request{
		System:      researchSystemPrompt,
		User:        researchUserPrompt(j),
		Temperature: s.cfg.ResearchTemperature,
		MaxTokens:   s.cfg.MaxTokens,
		Phase:       "research",
	})
	if err != nil {
		return nil, "", eris.Wrap(err, "scout: research pass")
	}
	proposed, err := decodeResearch(res.JSON)
	if err != nil {
		return nil, "", eris.Wrap(err, "scout: research pass")
	}

	log.Info("scout: research pass complete", zap.Int("proposed", len(proposed)))
	return proposed, res.Model, nil
}

// Verify has the model score each proposed requirement and returns the
// records it kept and the ones it removed.
func (s *Scout) Verify(ctx context.Context, j jurisdiction.Jurisdiction, proposed []json.RawMessage) ([]json.RawMessage, []Removed, error) {
	log := zap.L().With(zap.String("jurisdiction", j.Key), zap.String("phase", "verify"))

	user, err := verifyUserPrompt(j, proposed, s.cfg.MinConfidence)
	if err != nil {
		return nil, nil, eris.Wrap(err, "scout: build verify prompt")
	}
	res, err := s.llm.Complete(ctx, llm.Request{
		System:      verifySystemPrompt,
		User:        user,
		Temperature: s.cfg.VerifyTemperature,
		MaxTokens:   s.cfg.MaxTokens,
		Phase:       "verify",
	})
	if err != nil {
		return nil, nil, eris.Wrap(err, "scout: verify pass")
	}
	verified, removed, err := decodeVerify(res.JSON)
	if err != nil {
		return nil, nil, eris.Wrap(err, "scout: verify pass")
	}

	log.Info("scout: verify pass complete", zap.Int("verified", len(verified)), zap.Int("removed", len(removed)))
	return verified, removed, nil
}

// Build parses verified records into an unverified, inactive rule set.
// Records that fail to parse are dropped with a warning; records under
// MinConfidence count as removed.
func (s *Scout) Build(j jurisdiction.Jurisdiction, verified []json.RawMessage, removed []Removed, modelUsed string) *model.RuleSet {
	log := zap.L().With(zap.String("jurisdiction", j.Key))

	reqs := make([]model.Requirement, 0, len(verified))
	removedCount := len(removed)
	for _, raw := range verified {
		req, err := parseRequirement(raw)
		if err != nil {
			log.Warn("scout: dropping unparseable requirement", zap.Error(err))
			continue
		}
		if req.ConfidenceValue() < s.cfg.MinConfidence {
			log.Info("scout: dropping low-confidence requirement",
				zap.String("name", req.Name), zap.Float64("confidence", req.ConfidenceValue()))
			removedCount++
			continue
		}
		reqs = append(reqs, req)
	}

	return &model.RuleSet{
		State:             j.State,
		County:            j.County,
		City:              j.City,
		JurisdictionKey:   j.Key,
		JurisdictionType:  j.Type,
		Requirements:      reqs,
		Source:            model.SourceAIScout,
		ModelUsed:         modelUsed,
		ResearchTimestamp: s.now().UTC(),
		Notes:             fmt.Sprintf("AI Scout discovered %d requirements (%d removed during verification).", len(reqs), removedCount),
	}
}

// Save persists rs as a new proposal.
func (s *Scout) Save(ctx context.Context, rs *model.RuleSet) error {
	if s.store == nil {
		return eris.New("scout: no rule store configured")
	}
	if _, err := s.store.Insert(ctx, rs); err != nil {
		return eris.Wrap(err, "scout: save rule set")
	}
	zap.L().Info("scout: rule set saved",
		zap.String("id", rs.ID),
		zap.String("jurisdiction", rs.JurisdictionKey),
		zap.Int("requirements", len(rs.Requirements)))
	return nil
}

// Run researches t, verifies the candidates, and, when save is set, stores
// the result as an inactive proposal. The two passes run strictly in
// sequence. Any LLM or protocol error fails the run.
func (s *Scout) Run(ctx context.Context, t Target, save bool) (*model.RuleSet, error) {
	j, err := t.Resolve()
	if err != nil {
		return nil, eris.Wrap(err, "scout: run")
	}
	zap.L().Info("scout: starting", zap.String("jurisdiction", j.Key), zap.String("display", j.Display))

	proposed, modelUsed, err := s.Research(ctx, j)
	if err != nil {
		return nil, err
	}
	if len(proposed) == 0 {
		zap.L().Warn("scout: research pass returned no requirements", zap.String("jurisdiction", j.Key))
	}

	verified, removed, err := s.Verify(ctx, j, proposed)
	if err != nil {
		return nil, err
	}

	rs := s.Build(j, verified, removed, modelUsed)
	if save {
		if err := s.Save(ctx, rs); err != nil {
			return nil, err
		}
	}
	return rs, nil
}
