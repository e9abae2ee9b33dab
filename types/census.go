package types

import (
	"encoding/json"
	"math/big"
)

// CensusOrigin represents the origin of the census used in a voting process.
type CensusOrigin uint8

const (
	CensusOriginUnknown CensusOrigin = iota
	CensusOriginMerkleTreeOffchainStaticV1
	CensusOriginCSPEdDSABN254V1

	CensusOriginNameUnknown                    = "unknown"
	CensusOriginNameMerkleTreeOffchainStaticV1 = "merkle_tree_offchain_static_v1"
	CensusOriginNameCSPEdDSABN254V1            = "csp_eddsa_bn254_v1"

	// CensusRootLength defines the length in bytes of the census root.
	CensusRootLength = 32
)

var supportedCensusOrigins = map[CensusOrigin]string{
	CensusOriginMerkleTreeOffchainStaticV1: CensusOriginNameMerkleTreeOffchainStaticV1,
	CensusOriginCSPEdDSABN254V1:            CensusOriginNameCSPEdDSABN254V1,
}

// Valid checks if the CensusOrigin is a valid value.
func (co CensusOrigin) Valid() bool {
	_, ok := supportedCensusOrigins[co]
	return ok
}

// String returns a string representation of the CensusOrigin.
func (co CensusOrigin) String() string {
	if name, ok := supportedCensusOrigins[co]; ok {
		return name
	}
	return CensusOriginNameUnknown
}

// BigInt converts the CensusOrigin to a *types.BigInt representation.
func (co CensusOrigin) BigInt() *BigInt {
	if !co.Valid() {
		return nil
	}
	return (*BigInt)(new(big.Int).SetUint64(uint64(co)))
}

// Census represents the census used in a voting process. It includes the
// origin, root, and URI of the census.
type Census struct {
	CensusOrigin CensusOrigin `json:"censusOrigin" cbor:"0,keyasint,omitempty"`
	CensusRoot   HexBytes     `json:"censusRoot"   cbor:"2,keyasint,omitempty"`
	// CensusURI points to where the census snapshot can be fetched (merkle
	// tree origins) or where voters can request signatures (CSP origins).
	CensusURI string `json:"censusURI" cbor:"3,keyasint,omitempty"`
}

// CensusProof is the struct to represent a proof of inclusion in the census.
// The voter fetches it from the sequencer and attaches it to the vote to show
// eligibility for the process.
type CensusProof struct {
	// Generic fields
	CensusOrigin CensusOrigin `json:"censusOrigin"`
	Root         HexBytes     `json:"root"`
	Address      HexBytes     `json:"address"`
	Weight       *BigInt      `json:"weight,omitempty"`
	// Merkletree related fields
	Siblings HexBytes `json:"siblings,omitempty"`
	Value    HexBytes `json:"value,omitempty"`
	Index    uint64   `json:"index,omitempty"`
	// CSP related fields
	ProcessID HexBytes `json:"processId,omitempty"`
	PublicKey HexBytes `json:"publicKey,omitempty"`
	Signature HexBytes `json:"signature,omitempty"`
}

// Valid checks that the CensusProof is well-formed
func (cp *CensusProof) Valid() bool {
	if cp == nil || !cp.CensusOrigin.Valid() {
		return false
	}
	switch cp.CensusOrigin {
	case CensusOriginMerkleTreeOffchainStaticV1:
		return cp.Root != nil && cp.Address != nil && cp.Siblings != nil
	case CensusOriginCSPEdDSABN254V1:
		return cp.Root != nil && cp.Address != nil && cp.ProcessID != nil &&
			cp.PublicKey != nil && cp.Signature != nil
	default:
		return false
	}
}

// String returns a string representation of the CensusProof
// in JSON format. It returns an empty string if the JSON marshaling fails.
func (cp *CensusProof) String() string {
	data, err := json.Marshal(cp)
	if err != nil {
		return ""
	}
	return string(data)
}
