package scout

import (
	"errors"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/testsuite"
	"go.temporal.io/sdk/workflow"

	"github.com/sells-group/jace/internal/llm"
	"github.com/sells-group/jace/internal/model"
)

type WorkflowSuite struct {
	suite.Suite
	testsuite.WorkflowTestSuite
}

func TestWorkflowSuite(t *testing.T) {
	suite.Run(t, new(WorkflowSuite))
}

func (s *WorkflowSuite) newEnv(sc *Scout) *testsuite.TestWorkflowEnvironment {
	env := s.NewTestWorkflowEnvironment()
	env.RegisterWorkflowWithOptions(Workflow, workflow.RegisterOptions{Name: WorkflowName})
	env.RegisterActivity(&Activities{Scout: sc})
	return env
}

func (s *WorkflowSuite) TestHappyPath() {
	sc, completer, ins := newTestScout(s.T())
	completer.On("Complete", mock.Anything, phase("research")).Return(result(researchTwo), nil).Once()
	completer.On("Complete", mock.Anything, phase("verify")).Return(result(verifyOneKept), nil).Once()

	env := s.newEnv(sc)
	env.ExecuteWorkflow(WorkflowName, WorkflowInput{
		Target: Target{State: "Montana", County: "Gallatin", City: "Bozeman"},
		Save:   true,
	})

	s.True(env.IsWorkflowCompleted())
	s.Require().NoError(env.GetWorkflowError())

	var rs model.RuleSet
	s.Require().NoError(env.GetWorkflowResult(&rs))
	s.Equal("MT:Gallatin:Bozeman", rs.JurisdictionKey)
	s.Equal("rs-MT:Gallatin:Bozeman", rs.ID)
	s.Len(rs.Requirements, 1)
	s.False(rs.IsVerified)
	s.Len(ins.saved, 1)
}

func (s *WorkflowSuite) TestMalformedIsNotRetried() {
	sc, completer, ins := newTestScout(s.T())
	completer.On("Complete", mock.Anything, phase("research")).Return(result(`{"items": []}`), nil).Once()

	env := s.newEnv(sc)
	env.ExecuteWorkflow(WorkflowName, WorkflowInput{Target: Target{State: "MT"}, Save: true})

	s.True(env.IsWorkflowCompleted())
	err := env.GetWorkflowError()
	s.Require().Error(err)

	var appErr *temporal.ApplicationError
	s.Require().True(errors.As(err, &appErr))
	s.Equal(errTypeMalformed, appErr.Type())
	s.True(appErr.NonRetryable())
	s.Empty(ins.saved)
}

func (s *WorkflowSuite) TestNoSave() {
	sc, completer, ins := newTestScout(s.T())
	completer.On("Complete", mock.Anything, phase("research")).Return(result(researchTwo), nil).Once()
	completer.On("Complete", mock.Anything, phase("verify")).Return(result(verifyOneKept), nil).Once()

	env := s.newEnv(sc)
	env.ExecuteWorkflow(WorkflowName, WorkflowInput{Target: Target{State: "MT", County: "Gallatin", City: "Bozeman"}})

	s.Require().NoError(env.GetWorkflowError())
	var rs model.RuleSet
	s.Require().NoError(env.GetWorkflowResult(&rs))
	s.Empty(rs.ID)
	s.Empty(ins.saved)
}

func TestActivityError(t *testing.T) {
	plain := errors.New("boom")
	assert.Equal(t, plain, activityError(plain))

	var appErr *temporal.ApplicationError
	require.True(t, errors.As(activityError(eris.Wrap(llm.ErrMalformedResponse, "research")), &appErr))
	assert.True(t, appErr.NonRetryable())
}
