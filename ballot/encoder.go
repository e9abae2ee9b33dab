// Package ballot turns a voter's per-question choices into the flat field
// vector the ballot circuit expects, derives the ballot mode envelope those
// fields must satisfy, and maps flat result vectors back to per-question
// counts. Encoding and aggregation share the same flattening order; the
// circuit and the on-chain result vector assume it.
package ballot

import (
	"fmt"

	"github.com/vocdoni/davinci-sdk/types"
)

// SentinelAnswer marks a question the voter has not answered yet.
const SentinelAnswer = -1

// ErrIncompleteBallot is returned when encoding is attempted while any
// answer is still the sentinel. It is detected before any cryptographic or
// network work begins.
var ErrIncompleteBallot = fmt.Errorf("ballot is incomplete")

// Encode builds the flat 0/1 field vector for the given answers and the
// ballot mode derived from the question structure. Answers are choice
// indexes, one per question, in question order. Per question it emits an
// all-zero segment of length equal to the question's choice count with a
// single one at the chosen index; segments are concatenated in question
// order.
func Encode(questions []types.Question, answers []int) ([]*types.BigInt, *types.BallotMode, error) {
	if len(questions) == 0 {
		return nil, nil, fmt.Errorf("no questions to encode")
	}
	if len(answers) != len(questions) {
		return nil, nil, fmt.Errorf("got %d answers for %d questions", len(answers), len(questions))
	}
	for i, q := range questions {
		if len(q.Choices) < 2 {
			return nil, nil, fmt.Errorf("question %d has %d choices, at least 2 are required", i, len(q.Choices))
		}
	}
	// the circuit encrypts a fixed number of fields; a selection past that
	// boundary would be silently dropped downstream
	if n := totalChoices(questions); n > types.FieldsPerBallot {
		return nil, nil, fmt.Errorf("questions need %d fields but the ballot fits %d", n, types.FieldsPerBallot)
	}
	// fail fast before touching any crypto
	for i, answer := range answers {
		if answer == SentinelAnswer {
			return nil, nil, fmt.Errorf("%w: question %d has no answer", ErrIncompleteBallot, i)
		}
		if answer < 0 || answer >= len(questions[i].Choices) {
			return nil, nil, fmt.Errorf("answer %d out of range for question %d (%d choices)",
				answer, i, len(questions[i].Choices))
		}
	}

	fields := make([]*types.BigInt, 0, totalChoices(questions))
	for i, q := range questions {
		for choice := range q.Choices {
			if choice == answers[i] {
				fields = append(fields, types.NewInt(1))
			} else {
				fields = append(fields, types.NewInt(0))
			}
		}
	}
	return fields, Mode(questions), nil
}

// Mode derives the ballot mode envelope from the question structure alone:
// maxValue is the largest choice index across questions, maxTotalCost the
// sum of largest indexes, and maxCount the number of questions.
func Mode(questions []types.Question) *types.BallotMode {
	maxValue := 0
	maxTotalCost := 0
	for _, q := range questions {
		if len(q.Choices) == 0 {
			continue
		}
		if len(q.Choices)-1 > maxValue {
			maxValue = len(q.Choices) - 1
		}
		maxTotalCost += len(q.Choices) - 1
	}
	return &types.BallotMode{
		MaxCount:     uint8(len(questions)),
		MaxValue:     types.NewInt(maxValue),
		MinValue:     types.NewInt(0),
		MaxTotalCost: types.NewInt(maxTotalCost),
		MinTotalCost: types.NewInt(0),
		CostExponent: 1,
	}
}

func totalChoices(questions []types.Question) int {
	n := 0
	for _, q := range questions {
		n += len(q.Choices)
	}
	return n
}
