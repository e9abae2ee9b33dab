package ballotproof

import (
	"fmt"
	"math/big"

	gecc "github.com/consensys/gnark-crypto/ecc"

	"github.com/vocdoni/davinci-sdk/types"
	"github.com/vocdoni/davinci-sdk/util"
)

// BallotProofInputs is the payload handed to the wasm helper module to
// compose the circom circuit inputs for a ballot. All big values cross the
// module boundary as decimal strings.
type BallotProofInputs struct {
	Address       types.HexBytes    `json:"address"`
	ProcessID     types.HexBytes    `json:"processID"`
	Secret        types.HexBytes    `json:"secret"`
	EncryptionKey []*types.BigInt   `json:"encryptionKey"`
	K             *types.BigInt     `json:"k"`
	BallotMode    *types.BallotMode `json:"ballotMode"`
	Weight        *types.BigInt     `json:"weight"`
	FieldValues   []*types.BigInt   `json:"fieldValues"`
}

// Valid checks the inputs carry everything the module needs.
func (i *BallotProofInputs) Valid() error {
	switch {
	case len(i.Address) == 0:
		return fmt.Errorf("missing address")
	case len(i.ProcessID) == 0:
		return fmt.Errorf("missing process id")
	case len(i.Secret) == 0:
		return fmt.Errorf("missing secret")
	case len(i.EncryptionKey) != 2:
		return fmt.Errorf("encryption key must have two coordinates")
	case i.K == nil:
		return fmt.Errorf("missing k")
	case i.BallotMode == nil:
		return fmt.Errorf("missing ballot mode")
	case len(i.FieldValues) == 0:
		return fmt.Errorf("missing field values")
	case len(i.FieldValues) > types.FieldsPerBallot:
		return fmt.Errorf("got %d field values, the ballot fits %d", len(i.FieldValues), types.FieldsPerBallot)
	}
	return i.BallotMode.Validate()
}

// CircomInputs is the witness input set of the ballot circuit, every value
// already reduced and stringified by the wasm module.
type CircomInputs struct {
	Fields          []string `json:"fields"`
	MaxCount        string   `json:"max_count"`
	ForceUniqueness string   `json:"force_uniqueness"`
	MaxValue        string   `json:"max_value"`
	MinValue        string   `json:"min_value"`
	MaxTotalCost    string   `json:"max_total_cost"`
	MinTotalCost    string   `json:"min_total_cost"`
	CostExp         string   `json:"cost_exp"`
	CostFromWeight  string   `json:"cost_from_weight"`
	Address         string   `json:"address"`
	Weight          string   `json:"weight"`
	ProcessID       string   `json:"process_id"`
	PK              []string `json:"pk"`
	K               string   `json:"k"`
	Cipherfields    []string `json:"cipherfields"`
	Nullifier       string   `json:"nullifier"`
	Commitment      string   `json:"commitment"`
	Secret          string   `json:"secret"`
	InputsHash      string   `json:"inputs_hash"`
}

// BallotProofResult is what the wasm module returns: the circuit inputs for
// the witness plus the encrypted ballot and the values the sequencer needs
// to verify the resulting proof. VoteID is the value the voter signs to
// prove ownership of the vote.
type BallotProofResult struct {
	ProcessID        types.HexBytes `json:"processID"`
	Address          types.HexBytes `json:"address"`
	Commitment       *types.BigInt  `json:"commitment"`
	Nullifier        *types.BigInt  `json:"nullifier"`
	Ballot           *types.Ballot  `json:"ballot"`
	BallotInputsHash *types.BigInt  `json:"ballotInputsHash"`
	VoteID           types.HexBytes `json:"voteId"`
	CircomInputs     *CircomInputs  `json:"circomInputs"`
}

// RandK generates a fresh random blinding factor for ballot encryption,
// inside the scalar field of the ballot proof curve. A new k must be drawn
// for every encryption attempt.
func RandK() *types.BigInt {
	kBytes := util.RandomBytes(20)
	k := new(big.Int).SetBytes(kBytes)
	return (*types.BigInt)(k).ToFF(gecc.BN254.ScalarField())
}

// NewSecret generates the random secret that binds the vote commitment and
// nullifier to the voter.
func NewSecret() types.HexBytes {
	return util.RandomBytes(16)
}
