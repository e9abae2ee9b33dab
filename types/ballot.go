package types

import (
	"encoding/json"
	"fmt"
)

// Point is an elliptic curve point with affine coordinates encoded as
// decimal strings.
type Point struct {
	X *BigInt `json:"x"`
	Y *BigInt `json:"y"`
}

// Ciphertext is an elgamal encrypted value, a pair of curve points.
type Ciphertext struct {
	C1 *Point `json:"c1"`
	C2 *Point `json:"c2"`
}

// Ballot is the encrypted ballot as produced by the ballot-proof helper and
// submitted to the sequencer. It always carries FieldsPerBallot ciphertexts,
// one per ballot field.
type Ballot struct {
	CurveType   string        `json:"curveType,omitempty"`
	Ciphertexts []*Ciphertext `json:"ciphertexts"`
}

// Valid method checks if the Ballot is well-formed: it must carry exactly
// FieldsPerBallot non-nil ciphertexts with both points set.
func (z *Ballot) Valid() bool {
	if z == nil || len(z.Ciphertexts) != FieldsPerBallot {
		return false
	}
	for _, c := range z.Ciphertexts {
		if c == nil || c.C1 == nil || c.C2 == nil {
			return false
		}
	}
	return true
}

// BigInts returns a slice with FieldsPerBallot*4 BigInts, namely the coords
// of each ciphertext as c1.x, c1.y, c2.x, c2.y.
func (z *Ballot) BigInts() []*BigInt {
	list := []*BigInt{}
	for _, c := range z.Ciphertexts {
		list = append(list, c.C1.X, c.C1.Y, c.C2.X, c.C2.Y)
	}
	return list
}

func (z *Ballot) String() string {
	data, err := json.Marshal(z)
	if err != nil {
		return ""
	}
	return string(data)
}

// CircomProof is a Groth16 proof in circom/snarkjs JSON format, as produced
// by rapidsnark and verified by the sequencer.
type CircomProof struct {
	PiA      []string   `json:"pi_a"`
	PiB      [][]string `json:"pi_b"`
	PiC      []string   `json:"pi_c"`
	Protocol string     `json:"protocol"`
}

// Valid checks the proof carries the three Groth16 points.
func (p *CircomProof) Valid() error {
	if p == nil {
		return fmt.Errorf("proof is nil")
	}
	if len(p.PiA) < 2 || len(p.PiB) < 2 || len(p.PiC) < 2 {
		return fmt.Errorf("proof is missing points")
	}
	return nil
}
