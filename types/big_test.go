package types

import (
	"encoding/json"
	"math/big"
	"testing"

	qt "github.com/frankban/quicktest"
	"github.com/fxamacker/cbor/v2"
)

func TestBigMarshalJSON(t *testing.T) {
	c := qt.New(t)
	bi := NewInt(1234567890)

	data, err := json.Marshal(map[string]*BigInt{"value": bi})
	c.Assert(err, qt.IsNil)
	c.Assert(string(data), qt.Equals, `{"value":"1234567890"}`)

	var decoded map[string]*BigInt
	c.Assert(json.Unmarshal(data, &decoded), qt.IsNil)
	c.Assert(decoded["value"], qt.DeepEquals, bi)
}

func TestBigUnmarshalJSONNumeric(t *testing.T) {
	c := qt.New(t)

	// the wire format is a decimal string, but bare numbers decode too
	var fromString, fromNumber BigInt
	c.Assert(json.Unmarshal([]byte(`"123456789"`), &fromString), qt.IsNil)
	c.Assert(json.Unmarshal([]byte(`123456789`), &fromNumber), qt.IsNil)
	c.Assert(fromString.String(), qt.Equals, "123456789")
	c.Assert(fromNumber.String(), qt.Equals, "123456789")
}

func TestBigCBORRoundTrip(t *testing.T) {
	c := qt.New(t)
	bi := NewInt(1234567890)

	data, err := cbor.Marshal(bi)
	c.Assert(err, qt.IsNil)

	var decoded BigInt
	c.Assert(cbor.Unmarshal(data, &decoded), qt.IsNil)
	c.Assert(decoded.String(), qt.Equals, bi.String())
}

func TestBigSetString(t *testing.T) {
	c := qt.New(t)

	bi, err := new(BigInt).SetString("987654321987654321")
	c.Assert(err, qt.IsNil)
	c.Assert(bi.String(), qt.Equals, "987654321987654321")

	_, err = new(BigInt).SetString("not-a-number")
	c.Assert(err, qt.IsNotNil)
}

func TestBigToFF(t *testing.T) {
	c := qt.New(t)
	field := big.NewInt(97)

	// inside the field, unchanged
	c.Assert(NewInt(42).ToFF(field).String(), qt.Equals, "42")
	// equal to the modulus, wraps to zero
	c.Assert(NewInt(97).ToFF(field).String(), qt.Equals, "0")
	// above the modulus, reduced
	c.Assert(NewInt(100).ToFF(field).String(), qt.Equals, "3")
}
