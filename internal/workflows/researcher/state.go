package researcher

import (
	"encoding/json"
	"fmt"
	"sort"
)

// Answer defaults used when the summarizer output is missing a field.
const (
	DefaultAnswer     = "Unable to determine"
	DefaultSource     = "Unknown"
	DefaultConfidence = "Low"
)

// SubTask is one independently answerable research unit. Immutable once
// dispatched; exactly one branch consumes it.
type SubTask struct {
	Index         int
	Question      string
	Section       string
	PromptVariant string
}

// SubQuestionAnswer is the immutable result of one branch. RawResearch holds
// the trace that produced the answer and stays out of the wire payload.
type SubQuestionAnswer struct {
	Section    string `json:"section"`
	Question   string `json:"question"`
	Answer     string `json:"answer"`
	Source     string `json:"source"`
	Confidence string `json:"confidence"`

	RawResearch string `json:"-"`
	TaskIndex   int    `json:"-"`
}

// MergeOp is how branch output enters shared task state. The two variants are
// resolved by exhaustive dispatch in Accumulator.Apply; there is no untyped
// marker-field convention.
type MergeOp interface {
	mergeOp()
}

// Override replaces the accumulated value wholesale. Used once, at task
// initialization, to reset the accumulator; never after dispatch.
type Override struct {
	Answers []SubQuestionAnswer
}

func (Override) mergeOp() {}

// Append concatenates a branch's contribution. Associative and commutative,
// so concurrently completing branches may merge in any order.
type Append struct {
	Answers []SubQuestionAnswer
}

func (Append) mergeOp() {}

// Accumulator is the completed-answers multiset shared across branches. It is
// only ever touched through Apply; branch code never reads or mutates it
// directly.
type Accumulator struct {
	answers []SubQuestionAnswer
}

func (a *Accumulator) Apply(op MergeOp) error {
	switch op := op.(type) {
	case Override:
		a.answers = append([]SubQuestionAnswer(nil), op.Answers...)
	case Append:
		a.answers = append(a.answers, op.Answers...)
	default:
		return fmt.Errorf("unknown merge op %T", op)
	}
	return nil
}

func (a *Accumulator) Len() int {
	return len(a.answers)
}

// Answers returns a copy of the accumulated entries.
func (a *Accumulator) Answers() []SubQuestionAnswer {
	return append([]SubQuestionAnswer(nil), a.answers...)
}

// Report is the final structured payload handed back to the caller.
type Report struct {
	CompanyName string              `json:"company_name"`
	Answers     []SubQuestionAnswer `json:"answers"`
}

// AssembleReport builds the final report from the accumulated answers.
// It is a pure function of its inputs; answers are ordered by their dispatch
// index so the output is identical regardless of branch completion order.
func AssembleReport(companyName string, acc *Accumulator) *Report {
	answers := acc.Answers()
	sort.SliceStable(answers, func(i, j int) bool {
		return answers[i].TaskIndex < answers[j].TaskIndex
	})
	return &Report{CompanyName: companyName, Answers: answers}
}

func (r *Report) JSON() (string, error) {
	raw, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal report: %w", err)
	}
	return string(raw), nil
}
