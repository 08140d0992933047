package researcher

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccumulatorAppendKeepsEveryEntry(t *testing.T) {
	acc := &Accumulator{}
	require.NoError(t, acc.Apply(Override{}))

	// Branches complete in arbitrary order; every append must land.
	for _, idx := range []int{3, 0, 2, 1} {
		err := acc.Apply(Append{Answers: []SubQuestionAnswer{{TaskIndex: idx, Answer: "a"}}})
		require.NoError(t, err)
	}
	assert.Equal(t, 4, acc.Len())
}

func TestAccumulatorOverrideDiscardsPriorAppends(t *testing.T) {
	acc := &Accumulator{}
	for i := 0; i < 3; i++ {
		require.NoError(t, acc.Apply(Append{Answers: []SubQuestionAnswer{{TaskIndex: i}}}))
	}
	require.NoError(t, acc.Apply(Override{Answers: []SubQuestionAnswer{{TaskIndex: 9}}}))
	require.Equal(t, 1, acc.Len())
	assert.Equal(t, 9, acc.Answers()[0].TaskIndex)
}

func TestAssembleReportOrdersByTaskIndex(t *testing.T) {
	acc := &Accumulator{}
	for _, idx := range []int{2, 0, 1} {
		require.NoError(t, acc.Apply(Append{Answers: []SubQuestionAnswer{{
			TaskIndex: idx,
			Question:  "q",
			Answer:    "a",
		}}}))
	}

	report := AssembleReport("Acme", acc)
	assert.Equal(t, "Acme", report.CompanyName)
	require.Len(t, report.Answers, 3)
	for i, ans := range report.Answers {
		assert.Equal(t, i, ans.TaskIndex)
	}
}

func TestReportJSONOmitsRawResearch(t *testing.T) {
	acc := &Accumulator{}
	require.NoError(t, acc.Apply(Append{Answers: []SubQuestionAnswer{{
		Question:    "q",
		Answer:      "a",
		Source:      "s",
		Confidence:  "High",
		RawResearch: "should not leak",
	}}}))

	out, err := AssembleReport("Acme", acc).JSON()
	require.NoError(t, err)
	assert.Contains(t, out, `"company_name": "Acme"`)
	assert.NotContains(t, out, "should not leak")
}
