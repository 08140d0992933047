package agent

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"

	"dsa-copilot/internal/tools"
)

type scriptedClient struct {
	responses []scriptedResponse
	calls     int
}

type scriptedResponse struct {
	choice *llms.ContentChoice
	err    error
}

func (c *scriptedClient) Complete(_ context.Context, _ []llms.MessageContent, _ ...llms.CallOption) (*llms.ContentChoice, error) {
	if c.calls >= len(c.responses) {
		return &llms.ContentChoice{Content: "no more script"}, nil
	}
	r := c.responses[c.calls]
	c.calls++
	return r.choice, r.err
}

type fakeSearcher struct {
	result string
	err    error
	gotQ   [][]string
}

func (f *fakeSearcher) Search(_ context.Context, queries []string, _ int) (string, error) {
	f.gotQ = append(f.gotQ, queries)
	return f.result, f.err
}

func searchCall(id, query string) llms.ToolCall {
	return llms.ToolCall{
		ID:   id,
		Type: "function",
		FunctionCall: &llms.FunctionCall{
			Name:      tools.WebSearchName,
			Arguments: `{"queries": ["` + query + `"]}`,
		},
	}
}

func finishCall(id, summary string) llms.ToolCall {
	return llms.ToolCall{
		ID:   id,
		Type: "function",
		FunctionCall: &llms.FunctionCall{
			Name:      tools.FinishName,
			Arguments: `{"summary": "` + summary + `"}`,
		},
	}
}

func seedMessages() []llms.MessageContent {
	return []llms.MessageContent{llms.TextParts(llms.ChatMessageTypeHuman, "investigate")}
}

func newLoop(client *scriptedClient, searcher *fakeSearcher, maxIterations int) *Loop {
	return &Loop{
		Step: Step{Client: client},
		Exec: &tools.Executor{
			Searcher:   searcher,
			MaxQueries: 2,
			MaxResults: 5,
		},
		MaxIterations: maxIterations,
	}
}

func TestLoopTerminatesWithoutToolCalls(t *testing.T) {
	client := &scriptedClient{responses: []scriptedResponse{
		{choice: &llms.ContentChoice{Content: "final answer"}},
	}}
	loop := newLoop(client, &fakeSearcher{}, 3)

	out, err := loop.Run(context.Background(), seedMessages())
	require.NoError(t, err)
	assert.Equal(t, "final answer", out.FinalText)
	assert.Equal(t, 0, out.Iterations)
	assert.False(t, out.Exhausted)
}

func TestLoopAllFinishTurnIsTerminal(t *testing.T) {
	client := &scriptedClient{responses: []scriptedResponse{
		{choice: &llms.ContentChoice{ToolCalls: []llms.ToolCall{
			finishCall("f1", "done"),
			finishCall("f2", "done again"),
		}}},
	}}
	searcher := &fakeSearcher{}
	loop := newLoop(client, searcher, 3)

	out, err := loop.Run(context.Background(), seedMessages())
	require.NoError(t, err)
	assert.Equal(t, 0, out.Iterations)
	assert.Empty(t, searcher.gotQ, "terminal turn must not execute tools")
}

func TestLoopFinishMixedWithSearchStillExecutesTools(t *testing.T) {
	client := &scriptedClient{responses: []scriptedResponse{
		{choice: &llms.ContentChoice{ToolCalls: []llms.ToolCall{
			searchCall("s1", "acme gmbh"),
			finishCall("f1", "premature"),
		}}},
		{choice: &llms.ContentChoice{Content: "done"}},
	}}
	searcher := &fakeSearcher{result: "results"}
	loop := newLoop(client, searcher, 3)

	out, err := loop.Run(context.Background(), seedMessages())
	require.NoError(t, err)
	require.Len(t, searcher.gotQ, 1, "mixed turn executes the whole turn")
	assert.Equal(t, 1, out.Iterations)
	assert.Equal(t, 2, client.calls)
}

func TestLoopStopsAtIterationBudget(t *testing.T) {
	keepSearching := scriptedResponse{choice: &llms.ContentChoice{ToolCalls: []llms.ToolCall{
		searchCall("s", "again"),
	}}}
	client := &scriptedClient{responses: []scriptedResponse{
		keepSearching, keepSearching, keepSearching, keepSearching, keepSearching,
	}}
	searcher := &fakeSearcher{result: "results"}
	loop := newLoop(client, searcher, 2)

	out, err := loop.Run(context.Background(), seedMessages())
	require.NoError(t, err)
	assert.True(t, out.Exhausted)
	assert.Equal(t, 2, out.Iterations)
	assert.Len(t, searcher.gotQ, 2, "budget bounds tool rounds")
}

func TestLoopRetriesBackendFaultWithinBudget(t *testing.T) {
	client := &scriptedClient{responses: []scriptedResponse{
		{err: errors.New("backend unavailable")},
		{choice: &llms.ContentChoice{Content: "recovered"}},
	}}
	loop := newLoop(client, &fakeSearcher{}, 3)

	out, err := loop.Run(context.Background(), seedMessages())
	require.NoError(t, err)
	assert.Equal(t, "recovered", out.FinalText)
	assert.Equal(t, 1, out.Iterations, "a retry consumes one iteration")
}

func TestLoopExhaustsWhenFaultsPersist(t *testing.T) {
	fault := scriptedResponse{err: errors.New("backend unavailable")}
	client := &scriptedClient{responses: []scriptedResponse{fault, fault, fault, fault}}
	loop := newLoop(client, &fakeSearcher{}, 2)

	out, err := loop.Run(context.Background(), seedMessages())
	require.NoError(t, err)
	assert.True(t, out.Exhausted)
}

func TestLoopCancelledContextIsFatal(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	client := &scriptedClient{responses: []scriptedResponse{
		{choice: &llms.ContentChoice{Content: "unreachable"}},
	}}
	loop := newLoop(client, &fakeSearcher{}, 3)

	_, err := loop.Run(ctx, seedMessages())
	assert.ErrorIs(t, err, context.Canceled)
}
