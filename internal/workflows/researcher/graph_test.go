package researcher

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"

	"dsa-copilot/internal/tools"
)

// finishingClient always ends its turn with a finish call. Stateless, so it is
// safe for concurrent branches.
type finishingClient struct {
	delay time.Duration
}

func (c *finishingClient) Complete(ctx context.Context, _ []llms.MessageContent, _ ...llms.CallOption) (*llms.ContentChoice, error) {
	if c.delay > 0 {
		select {
		case <-time.After(c.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return &llms.ContentChoice{ToolCalls: []llms.ToolCall{{
		ID:   "f",
		Type: "function",
		FunctionCall: &llms.FunctionCall{
			Name:      tools.FinishName,
			Arguments: `{"summary": "found it"}`,
		},
	}}}, nil
}

func testTable(n int) *QuestionTable {
	table := &QuestionTable{}
	variants := []string{"q00", "q01", "q02", "q03", "q04"}
	for i := 0; i < n; i++ {
		table.Questions = append(table.Questions, Question{
			Prompt:   variants[i%len(variants)],
			Section:  "Section",
			Question: "Question " + string(rune('A'+i)),
		})
	}
	return table
}

func testResearcher(client *finishingClient, table *QuestionTable, joinTimeout time.Duration) *Researcher {
	return &Researcher{
		Research: client,
		Summarizer: &Summarizer{
			Client: &stubClient{content: "ANSWER: Yes\nSOURCE: imprint\nCONFIDENCE: High"},
		},
		Exec:          &tools.Executor{},
		Questions:     table,
		MaxIterations: 3,
		MaxConcurrent: 4,
		JoinTimeout:   joinTimeout,
		Log:           zerolog.Nop(),
	}
}

func TestRunProducesOneAnswerPerQuestion(t *testing.T) {
	r := testResearcher(&finishingClient{}, testTable(5), time.Minute)

	report, err := r.Run(context.Background(), "Acme")
	require.NoError(t, err)
	assert.Equal(t, "Acme", report.CompanyName)
	require.Len(t, report.Answers, 5)
	for i, ans := range report.Answers {
		assert.Equal(t, i, ans.TaskIndex, "answers ordered by question index")
		assert.Equal(t, "Yes", ans.Answer)
	}
}

func TestRunRejectsEmptyCompanyName(t *testing.T) {
	r := testResearcher(&finishingClient{}, testTable(1), time.Minute)
	_, err := r.Run(context.Background(), "   ")
	assert.Error(t, err)
}

func TestRunRejectsEmptyQuestionTable(t *testing.T) {
	r := testResearcher(&finishingClient{}, &QuestionTable{}, time.Minute)
	_, err := r.Run(context.Background(), "Acme")
	assert.Error(t, err)
}

func TestRunJoinDeadlineDegradesSlowBranches(t *testing.T) {
	r := testResearcher(&finishingClient{delay: 500 * time.Millisecond}, testTable(3), 20*time.Millisecond)

	report, err := r.Run(context.Background(), "Acme")
	require.NoError(t, err)
	require.Len(t, report.Answers, 3, "degraded entries fill in for abandoned branches")
	for _, ans := range report.Answers {
		assert.Equal(t, "Error: research timed out", ans.Answer)
		assert.Equal(t, DefaultConfidence, ans.Confidence)
	}
}

// searchingClient never finishes: every turn asks for another web search, so
// branches always run out of iteration budget.
type searchingClient struct{}

func (searchingClient) Complete(_ context.Context, _ []llms.MessageContent, _ ...llms.CallOption) (*llms.ContentChoice, error) {
	return &llms.ContentChoice{ToolCalls: []llms.ToolCall{{
		ID:   "s",
		Type: "function",
		FunctionCall: &llms.FunctionCall{
			Name:      tools.WebSearchName,
			Arguments: `{"queries": ["acme dsa"]}`,
		},
	}}}, nil
}

type stubSearcher struct{}

func (stubSearcher) Search(context.Context, []string, int) (string, error) {
	return "### Results for: acme dsa\nNo results found.\n", nil
}

func TestRunExhaustedBranchesStillSummarize(t *testing.T) {
	r := &Researcher{
		Research: searchingClient{},
		Summarizer: &Summarizer{
			Client: &stubClient{content: "ANSWER: Yes\nSOURCE: imprint\nCONFIDENCE: High"},
		},
		Exec:          &tools.Executor{Searcher: stubSearcher{}, MaxQueries: 3, MaxResults: 3},
		Questions:     testTable(3),
		MaxIterations: 2,
		MaxConcurrent: 2,
		JoinTimeout:   time.Minute,
		Log:           zerolog.Nop(),
	}

	report, err := r.Run(context.Background(), "Acme")
	require.NoError(t, err)
	require.Len(t, report.Answers, 3)
	for _, ans := range report.Answers {
		assert.Equal(t, "Yes", ans.Answer, "exhausted branches summarize instead of degrading")
	}
}

// stallingClient blocks until its context is cancelled and reports that it
// observed the cancellation.
type stallingClient struct {
	once      sync.Once
	cancelled chan struct{}
}

func newStallingClient() *stallingClient {
	return &stallingClient{cancelled: make(chan struct{})}
}

func (c *stallingClient) Complete(ctx context.Context, _ []llms.MessageContent, _ ...llms.CallOption) (*llms.ContentChoice, error) {
	<-ctx.Done()
	c.once.Do(func() { close(c.cancelled) })
	return nil, ctx.Err()
}

func TestRunJoinDeadlineCancelsAbandonedBranches(t *testing.T) {
	client := newStallingClient()
	r := &Researcher{
		Research: client,
		Summarizer: &Summarizer{
			Client: &stubClient{content: "ANSWER: Yes\nSOURCE: s\nCONFIDENCE: High"},
		},
		Exec:          &tools.Executor{},
		Questions:     testTable(2),
		MaxIterations: 3,
		MaxConcurrent: 2,
		JoinTimeout:   20 * time.Millisecond,
		Log:           zerolog.Nop(),
	}

	_, err := r.Run(context.Background(), "Acme")
	require.NoError(t, err)

	select {
	case <-client.cancelled:
	case <-time.After(time.Second):
		t.Fatal("abandoned branches kept calling the backend after the join deadline")
	}
}

func TestRunUnknownVariantDegradesBranch(t *testing.T) {
	table := &QuestionTable{Questions: []Question{
		{Prompt: "does-not-exist", Section: "s", Question: "q"},
	}}
	r := testResearcher(&finishingClient{}, table, time.Minute)

	report, err := r.Run(context.Background(), "Acme")
	require.NoError(t, err)
	require.Len(t, report.Answers, 1)
	assert.Contains(t, report.Answers[0].Answer, "Error:")
}

func TestRunCancelledContextIsFatal(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r := testResearcher(&finishingClient{delay: time.Second}, testTable(2), time.Minute)

	_, err := r.Run(ctx, "Acme")
	assert.ErrorIs(t, err, context.Canceled)
}
