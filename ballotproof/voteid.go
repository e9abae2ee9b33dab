package ballotproof

import (
	"fmt"
	"math/big"

	gecc "github.com/consensys/gnark-crypto/ecc"
	"github.com/iden3/go-iden3-crypto/poseidon"

	"github.com/vocdoni/davinci-sdk/types"
)

// voteIDLen is the serialized vote ID size: one field element of the vote
// verifier curve, left padded with zeros.
const voteIDLen = 32

// VoteID derives the identifier of a vote from its ballot inputs hash: the
// hash reduced to the vote verifier curve scalar field and serialized as a
// 32 byte big-endian value. The sequencer identifies the ballot by this
// value, and it is what the voter signs to prove vote ownership.
func VoteID(inputsHash *types.BigInt) (types.HexBytes, error) {
	if inputsHash == nil {
		return nil, fmt.Errorf("ballot inputs hash is required")
	}
	b := inputsHash.ToFF(gecc.BLS12_377.ScalarField()).Bytes()
	if len(b) > voteIDLen {
		b = b[len(b)-voteIDLen:]
	}
	id := make(types.HexBytes, voteIDLen)
	copy(id[voteIDLen-len(b):], b)
	return id, nil
}

// CommitmentAndNullifier derives the vote commitment and nullifier from the
// voter address, the process ID and the voter secret. The commitment is the
// poseidon hash of the three values reduced to the ballot proof curve scalar
// field; the nullifier chains the commitment with the secret.
func CommitmentAndNullifier(address, processID, secret types.HexBytes) (*types.BigInt, *types.BigInt, error) {
	if len(address) == 0 || len(processID) == 0 || len(secret) == 0 {
		return nil, nil, fmt.Errorf("address, processID and secret are required")
	}
	field := gecc.BN254.ScalarField()
	ffSecret := new(types.BigInt).SetBytes(secret).ToFF(field).MathBigInt()
	commitment, err := poseidon.Hash([]*big.Int{
		new(types.BigInt).SetBytes(address).ToFF(field).MathBigInt(),
		new(types.BigInt).SetBytes(processID).ToFF(field).MathBigInt(),
		ffSecret,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to hash commitment: %w", err)
	}
	nullifier, err := poseidon.Hash([]*big.Int{commitment, ffSecret})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to hash nullifier: %w", err)
	}
	return (*types.BigInt)(commitment), (*types.BigInt)(nullifier), nil
}
