package types

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// ProcessStatus is the lifecycle state of a voting process, as reported by
// the process registry contract and the sequencer.
type ProcessStatus uint8

const (
	ProcessStatusReady    = ProcessStatus(iota) // Process is accepting votes
	ProcessStatusPaused                         // Process is paused
	ProcessStatusEnded                          // Process has ended and waiting for results
	ProcessStatusCanceled                       // Process has been canceled
	ProcessStatusResults                        // Process has results available

	ProcessStatusReadyName    = "ready"
	ProcessStatusPausedName   = "paused"
	ProcessStatusEndedName    = "ended"
	ProcessStatusCanceledName = "canceled"
	ProcessStatusResultsName  = "results"
)

func (s ProcessStatus) String() string {
	switch s {
	case ProcessStatusReady:
		return ProcessStatusReadyName
	case ProcessStatusPaused:
		return ProcessStatusPausedName
	case ProcessStatusEnded:
		return ProcessStatusEndedName
	case ProcessStatusCanceled:
		return ProcessStatusCanceledName
	case ProcessStatusResults:
		return ProcessStatusResultsName
	default:
		return "unknown"
	}
}

type (
	GenericMetadata    map[string]any
	MultilingualString map[string]string
)

// MarshalJSON implements json.Marshaler interface for MultilingualString
// Returns an empty object {} instead of null when the map is nil
func (m MultilingualString) MarshalJSON() ([]byte, error) {
	if m == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(map[string]string(m))
}

type MediaMetadata struct {
	Header string `json:"header" cbor:"0,keyasint,omitempty"`
	Logo   string `json:"logo"   cbor:"1,keyasint,omitempty"`
}

// Choice is one selectable option of a Question.
type Choice struct {
	Title MultilingualString `json:"title" cbor:"0,keyasint,omitempty"`
	Value int                `json:"value" cbor:"1,keyasint,omitempty"`
	Meta  GenericMetadata    `json:"meta"  cbor:"2,keyasint,omitempty"`
}

// Question is one ballot question with its set of choices.
type Question struct {
	Title       MultilingualString `json:"title"       cbor:"0,keyasint,omitempty"`
	Description MultilingualString `json:"description" cbor:"1,keyasint,omitempty"`
	Choices     []Choice           `json:"choices"     cbor:"2,keyasint,omitempty"`
	Meta        GenericMetadata    `json:"meta"        cbor:"3,keyasint,omitempty"`
}

type ProcessType struct {
	Name       string          `json:"name"       cbor:"0,keyasint,omitempty"`
	Properties GenericMetadata `json:"properties" cbor:"1,keyasint,omitempty"`
}

// Metadata is the human-readable description of a voting process, stored
// off-chain and referenced by the process MetadataURI.
type Metadata struct {
	Title       MultilingualString `json:"title"       cbor:"0,keyasint,omitempty"`
	Description MultilingualString `json:"description" cbor:"1,keyasint,omitempty"`
	Media       MediaMetadata      `json:"media"       cbor:"2,keyasint,omitempty"`
	Questions   []Question         `json:"questions"   cbor:"3,keyasint,omitempty"`
	Type        ProcessType        `json:"type"        cbor:"4,keyasint,omitempty"`
	Version     string             `json:"version"     cbor:"5,keyasint,omitempty"`
	Meta        GenericMetadata    `json:"meta"        cbor:"6,keyasint,omitempty"`
}

func (m *Metadata) String() string {
	data, err := json.Marshal(m)
	if err != nil {
		return ""
	}
	return string(data)
}

// Process is a voting process as reported by the sequencer: registry data
// plus live counters.
type Process struct {
	ID                   HexBytes       `json:"id,omitempty"         cbor:"0,keyasint,omitempty"`
	Status               ProcessStatus  `json:"status"               cbor:"1,keyasint,omitempty"`
	OrganizationId       common.Address `json:"organizationId"       cbor:"2,keyasint,omitempty"`
	EncryptionKey        *EncryptionKey `json:"encryptionKey"        cbor:"3,keyasint,omitempty"`
	StateRoot            *BigInt        `json:"stateRoot"            cbor:"4,keyasint,omitempty"`
	Result               []*BigInt      `json:"result"               cbor:"5,keyasint,omitempty"`
	StartTime            time.Time      `json:"startTime"            cbor:"6,keyasint,omitempty"`
	Duration             time.Duration  `json:"duration"             cbor:"7,keyasint,omitempty"`
	MetadataURI          string         `json:"metadataURI"          cbor:"8,keyasint,omitempty"`
	BallotMode           *BallotMode    `json:"ballotMode"           cbor:"9,keyasint,omitempty"`
	Census               *Census        `json:"census"               cbor:"10,keyasint,omitempty"`
	Metadata             *Metadata      `json:"metadata,omitempty"   cbor:"11,keyasint,omitempty"`
	VoteCount            *BigInt        `json:"voteCount"            cbor:"12,keyasint,omitempty"`
	VoteOverwrittenCount *BigInt        `json:"voteOverwrittenCount" cbor:"13,keyasint,omitempty"`
	IsAcceptingVotes     bool           `json:"isAcceptingVotes"     cbor:"14,keyasint,omitempty"`
}

// AcceptingVotes reports whether a vote submitted now could be accepted:
// the process must be in ready status and inside its time window.
func (p *Process) AcceptingVotes(now time.Time) bool {
	if p.Status != ProcessStatusReady {
		return false
	}
	if now.Before(p.StartTime) {
		return false
	}
	if p.Duration > 0 && now.After(p.StartTime.Add(p.Duration)) {
		return false
	}
	return true
}

func (p *Process) String() string {
	data, err := json.Marshal(p)
	if err != nil {
		return ""
	}
	return string(data)
}

// EncryptionKey is the process elgamal public key point used to encrypt
// ballot fields.
type EncryptionKey struct {
	X *BigInt `json:"x" cbor:"0,keyasint,omitempty"`
	Y *BigInt `json:"y" cbor:"1,keyasint,omitempty"`
}

// Validate checks the encryption key has both coordinates set.
func (k *EncryptionKey) Validate() error {
	if k == nil || k.X == nil || k.Y == nil {
		return fmt.Errorf("encryption key is missing coordinates")
	}
	return nil
}

type OrganizationInfo struct {
	ID          common.Address `json:"id,omitempty" cbor:"0,keyasint,omitempty"`
	Name        string         `json:"name"         cbor:"1,keyasint,omitempty"`
	MetadataURI string         `json:"metadataURI"  cbor:"2,keyasint,omitempty"`
}

func (o *OrganizationInfo) String() string {
	data, err := json.Marshal(o)
	if err != nil {
		return ""
	}
	return string(data)
}
