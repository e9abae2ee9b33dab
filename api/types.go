package api

import (
	"github.com/google/uuid"

	"github.com/vocdoni/davinci-sdk/types"
)

// CensusParticipant is a participant in a census.
type CensusParticipant struct {
	Key    types.HexBytes `json:"key"`
	Weight *types.BigInt  `json:"weight,omitempty"`
}

// CensusParticipants is the request body to add participants to a census.
type CensusParticipants struct {
	Participants []*CensusParticipant `json:"participants"`
}

// NewCensus is the response returned by the new census endpoint.
type NewCensus struct {
	Census uuid.UUID `json:"census"`
}

// CensusRoot is the response returned by the census root endpoint.
type CensusRoot struct {
	Root types.HexBytes `json:"root"`
}

// CensusSize is the response returned by the census size endpoint.
type CensusSize struct {
	Size uint64 `json:"size"`
}

// Vote is the struct to represent a vote in the system. It will be provided by
// the user to cast a vote in a process.
type Vote struct {
	ProcessID        types.HexBytes     `json:"processId"`
	CensusProof      types.CensusProof  `json:"censusProof"`
	Ballot           *types.Ballot      `json:"ballot"`
	BallotProof      *types.CircomProof `json:"ballotProof"`
	BallotInputsHash *types.BigInt      `json:"ballotInputsHash"`
	Address          types.HexBytes     `json:"address"`
	Signature        types.HexBytes     `json:"signature"`
	VoteID           types.HexBytes     `json:"voteId"`
	Commitment       *types.BigInt      `json:"commitment"`
	Nullifier        *types.BigInt      `json:"nullifier"`
}

// ContractAddresses holds the smart contract addresses needed by the client
type ContractAddresses struct {
	ProcessRegistry      string `json:"process"`
	OrganizationRegistry string `json:"organization"`
	ResultsZKVerifier    string `json:"resultsVerifier"`
}

// SequencerInfo contains any relevant information about the current sequencer for a client.
type SequencerInfo struct {
	CircuitURL           string            `json:"circuitUrl"`
	CircuitHash          string            `json:"circuitHash"`
	WASMhelperURL        string            `json:"ballotProofWasmHelperUrl"`
	WASMhelperHash       string            `json:"ballotProofWasmHelperHash"`
	WASMhelperExecJsURL  string            `json:"ballotProofWasmHelperExecJsUrl"`
	WASMhelperExecJsHash string            `json:"ballotProofWasmHelperExecJsHash"`
	ProvingKeyURL        string            `json:"provingKeyUrl"`
	ProvingKeyHash       string            `json:"provingKeyHash"`
	VerificationKeyURL   string            `json:"verificationKeyUrl"`
	VerificationKeyHash  string            `json:"verificationKeyHash"`
	Contracts            ContractAddresses `json:"contracts"`
	Network              map[string]uint32 `json:"network,omitempty"`
	SequencerAddress     types.HexBytes    `json:"sequencerAddress"`
}

// VoteResponse is the response returned by the vote submission endpoint.
type VoteResponse struct {
	VoteID types.HexBytes `json:"voteId"`
}

// VoteStatusResponse is the response returned by the vote status endpoint.
type VoteStatusResponse struct {
	Status string `json:"status"`
}

// SetMetadataResponse is the response returned by the set metadata endpoint.
type SetMetadataResponse struct {
	Hash types.HexBytes `json:"hash"`
}

// ProcessList is the response returned by the process list endpoint.
type ProcessList struct {
	Processes []types.HexBytes `json:"processes"`
}
