package scout

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/rotisserie/eris"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/sells-group/jace/internal/llm"
	"github.com/sells-group/jace/internal/model"
)

// WorkflowName is the registered name of the Scout workflow.
const WorkflowName = "ScoutWorkflow"

// Activity timeouts. Each activity makes one LLM call bounded by the
// completer's own timeout; these are the outer bounds.
const (
	activityTimeout = 5 * time.Minute
	activityRetries = 3
)

const errTypeMalformed = "MalformedResponse"

// WorkflowInput is the Scout workflow argument.
type WorkflowInput struct {
	Target Target `json:"target"`
	Save   bool   `json:"save"`
}

// ResearchResult is the output of the research activity.
type ResearchResult struct {
	Proposed []json.RawMessage `json:"proposed"`
	Model    string            `json:"model"`
}

// VerifyInput is the argument of the verify activity.
type VerifyInput struct {
	Target   Target            `json:"target"`
	Proposed []json.RawMessage `json:"proposed"`
	Model    string            `json:"model"`
	Save     bool              `json:"save"`
}

// Activities exposes the Scout passes as Temporal activities.
type Activities struct {
	Scout *Scout
}

// ResearchActivity runs the research pass.
func (a *Activities) ResearchActivity(ctx context.Context, t Target) (*ResearchResult, error) {
	j, err := t.Resolve()
	if err != nil {
		return nil, temporal.NewNonRetryableApplicationError(err.Error(), "InvalidTarget", err)
	}
	proposed, modelUsed, err := a.Scout.Research(ctx, j)
	if err != nil {
		return nil, activityError(err)
	}
	return &ResearchResult{Proposed: proposed, Model: modelUsed}, nil
}

// VerifyActivity runs the verify pass, builds the rule set, and saves it.
func (a *Activities) VerifyActivity(ctx context.Context, in VerifyInput) (*model.RuleSet, error) {
	j, err := in.Target.Resolve()
	if err != nil {
		return nil, temporal.NewNonRetryableApplicationError(err.Error(), "InvalidTarget", err)
	}
	verified, removed, err := a.Scout.Verify(ctx, j, in.Proposed)
	if err != nil {
		return nil, activityError(err)
	}
	rs := a.Scout.Build(j, verified, removed, in.Model)
	if in.Save {
		if err := a.Scout.Save(ctx, rs); err != nil {
			return nil, err
		}
	}
	return rs, nil
}

// activityError stops Temporal from retrying a call whose answer was
// malformed; asking again at temperature 0 rarely helps.
func activityError(err error) error {
	if errors.Is(err, llm.ErrMalformedResponse) {
		return temporal.NewNonRetryableApplicationError(err.Error(), errTypeMalformed, err)
	}
	return err
}

// Workflow runs research then verify as two activities so a slow second
// pass does not repeat the first on retry.
func Workflow(ctx workflow.Context, in WorkflowInput) (*model.RuleSet, error) {
	ctx = workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: activityTimeout,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    5 * time.Second,
			BackoffCoefficient: 2,
			MaximumAttempts:    activityRetries,
		},
	})
	log := workflow.GetLogger(ctx)

	var a *Activities
	var research ResearchResult
	if err := workflow.ExecuteActivity(ctx, a.ResearchActivity, in.Target).Get(ctx, &research); err != nil {
		return nil, err
	}
	if len(research.Proposed) == 0 {
		log.Warn("research pass returned no requirements", "state", in.Target.State, "county", in.Target.County, "city", in.Target.City)
	}

	var rs model.RuleSet
	err := workflow.ExecuteActivity(ctx, a.VerifyActivity, VerifyInput{
		Target:   in.Target,
		Proposed: research.Proposed,
		Model:    research.Model,
		Save:     in.Save,
	}).Get(ctx, &rs)
	if err != nil {
		return nil, err
	}
	return &rs, nil
}

// Starter launches Scout workflows on a Temporal cluster.
type Starter struct {
	client    client.Client
	taskQueue string
}

// NewStarter creates a Starter.
func NewStarter(c client.Client, taskQueue string) *Starter {
	return &Starter{client: c, taskQueue: taskQueue}
}

// Start launches a workflow for t and returns its workflow and run ids
// without waiting for the result.
func (s *Starter) Start(ctx context.Context, in WorkflowInput) (string, string, error) {
	j, err := in.Target.Resolve()
	if err != nil {
		return "", "", eris.Wrap(err, "scout: start workflow")
	}
	run, err := s.client.ExecuteWorkflow(ctx, client.StartWorkflowOptions{
		ID:        "scout-" + j.Key + "-" + time.Now().UTC().Format("20060102T150405"),
		TaskQueue: s.taskQueue,
	}, WorkflowName, in)
	if err != nil {
		return "", "", eris.Wrap(err, "scout: start workflow")
	}
	return run.GetID(), run.GetRunID(), nil
}
