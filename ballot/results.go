package ballot

import (
	"math/big"

	"github.com/vocdoni/davinci-sdk/types"
)

// ChoiceResult is the vote count and integer percentage for a single choice.
type ChoiceResult struct {
	Title      types.MultilingualString `json:"title"`
	Votes      *types.BigInt            `json:"votes"`
	Percentage int                      `json:"percentage"`
}

// QuestionResult groups the choice results of one question.
type QuestionResult struct {
	Title   types.MultilingualString `json:"title"`
	Choices []ChoiceResult           `json:"choices"`
}

// Aggregate maps a flat result vector back to per-question choice counts and
// percentages. Question i occupies the slots
// [sum(choices(j<i)), sum(choices(j<=i))) of the vector, the same flattening
// order Encode uses. Missing or short result data defaults to zero, and a
// question with zero total votes reports all percentages as zero.
func Aggregate(questions []types.Question, results []*types.BigInt) []QuestionResult {
	aggregated := make([]QuestionResult, 0, len(questions))
	offset := 0
	for _, q := range questions {
		votes := make([]*big.Int, len(q.Choices))
		total := new(big.Int)
		for i := range q.Choices {
			votes[i] = new(big.Int)
			if slot := offset + i; slot < len(results) && results[slot] != nil {
				votes[i].Set(results[slot].MathBigInt())
			}
			total.Add(total, votes[i])
		}
		qr := QuestionResult{
			Title:   q.Title,
			Choices: make([]ChoiceResult, len(q.Choices)),
		}
		for i, choice := range q.Choices {
			qr.Choices[i] = ChoiceResult{
				Title:      choice.Title,
				Votes:      (*types.BigInt)(votes[i]),
				Percentage: percentage(votes[i], total),
			}
		}
		aggregated = append(aggregated, qr)
		offset += len(q.Choices)
	}
	return aggregated
}

// percentage returns round(votes/total*100), or 0 when total is zero.
func percentage(votes, total *big.Int) int {
	if total.Sign() == 0 {
		return 0
	}
	// round half up: (votes*200 + total) / (total*2)
	num := new(big.Int).Mul(votes, big.NewInt(200))
	num.Add(num, total)
	den := new(big.Int).Mul(total, big.NewInt(2))
	return int(num.Div(num, den).Int64())
}
