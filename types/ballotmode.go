package types

import (
	"encoding/json"
	"fmt"
)

// FieldsPerBallot is the fixed number of encrypted fields the ballot circuit
// supports. Encoded choice vectors longer than this cannot be proven.
const FieldsPerBallot = 8

// BallotMode is the struct to define the rules of a ballot: how many fields
// it carries, the range each field must stay within, and the constraints on
// the total cost of the selections.
type BallotMode struct {
	MaxCount        uint8   `json:"maxCount"        cbor:"0,keyasint,omitempty"`
	ForceUniqueness bool    `json:"forceUniqueness" cbor:"1,keyasint,omitempty"`
	MaxValue        *BigInt `json:"maxValue"        cbor:"2,keyasint,omitempty"`
	MinValue        *BigInt `json:"minValue"        cbor:"3,keyasint,omitempty"`
	MaxTotalCost    *BigInt `json:"maxTotalCost"    cbor:"4,keyasint,omitempty"`
	MinTotalCost    *BigInt `json:"minTotalCost"    cbor:"5,keyasint,omitempty"`
	CostExponent    uint8   `json:"costExponent"    cbor:"6,keyasint,omitempty"`
	CostFromWeight  bool    `json:"costFromWeight"  cbor:"7,keyasint,omitempty"`
}

// Validate checks the ballot mode is internally consistent.
func (b *BallotMode) Validate() error {
	if int(b.MaxCount) > FieldsPerBallot {
		return fmt.Errorf("maxCount %d is greater than max size %d", b.MaxCount, FieldsPerBallot)
	}
	if b.MaxValue == nil {
		return fmt.Errorf("maxValue is nil")
	}
	if b.MinValue == nil {
		return fmt.Errorf("minValue is nil")
	}
	if b.MaxTotalCost == nil {
		return fmt.Errorf("maxTotalCost is nil")
	}
	if b.MinTotalCost == nil {
		return fmt.Errorf("minTotalCost is nil")
	}
	if b.MinValue.MathBigInt().Cmp(b.MaxValue.MathBigInt()) > 0 {
		return fmt.Errorf("minValue %s is greater than maxValue %s", b.MinValue.String(), b.MaxValue.String())
	}
	if b.MinTotalCost.MathBigInt().Cmp(b.MaxTotalCost.MathBigInt()) > 0 {
		return fmt.Errorf("minTotalCost %s is greater than maxTotalCost %s", b.MinTotalCost.String(), b.MaxTotalCost.String())
	}
	return nil
}

// String returns a string representation of the BallotMode
func (b *BallotMode) String() string {
	data, err := json.Marshal(b)
	if err != nil {
		return ""
	}
	return string(data)
}
