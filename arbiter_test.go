package arbiter

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arbiterhq/arbiter/testutil/mocks"
	"github.com/arbiterhq/arbiter/workflow"
)

func TestNew_GatherInfoRoundTrip(t *testing.T) {
	provider := mocks.NewMockProvider().WithResponses(
		`{"has_sufficient_info": false, "missing_information": ["topic"], "follow_up_questions": [], "execution_plan": {"estimated_complexity": "low"}, "confidence_score": 0.4}`,
		"What topic should I cover?\nHow long should it be?",
	)

	engine := New(provider)
	result := engine.ProcessQuery(context.Background(), "Help me write something")

	require.Equal(t, workflow.StatusSuccess, result.Status)
	assert.Equal(t, workflow.ActionGatherInfo, result.Action)
	assert.NotEmpty(t, result.FollowUpQuestions)
}
