package vote

// Stage is one of the observable steps of a vote submission. It is a
// display state only and never affects control flow.
type Stage int

const (
	// StageIdle means no submission is in progress (the reset state).
	StageIdle Stage = iota - 1
	// StageCensusProof covers fetching the voter's census proof.
	StageCensusProof
	// StageCircuitInputs covers building the circuit inputs.
	StageCircuitInputs
	// StageProofGenerated means the proof is generated and verified.
	StageProofGenerated
	// StageSubmitted means the vote was accepted by the sequencer.
	StageSubmitted
)

func (s Stage) String() string {
	switch s {
	case StageIdle:
		return "idle"
	case StageCensusProof:
		return "census proof"
	case StageCircuitInputs:
		return "circuit inputs"
	case StageProofGenerated:
		return "proof generated"
	case StageSubmitted:
		return "submitted"
	default:
		return "unknown"
	}
}

// Progress reports stage changes of a submission, including the cosmetic
// elapsed wall-clock time since the submission started.
type Progress struct {
	Stage   Stage  `json:"stage"`
	Elapsed string `json:"elapsed"`
}

// ProgressFunc receives progress updates during Submit. It is called
// synchronously, so it must be fast and must not block.
type ProgressFunc func(Progress)
