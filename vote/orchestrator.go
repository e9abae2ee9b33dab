package vote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/vocdoni/davinci-sdk/api"
	"github.com/vocdoni/davinci-sdk/ballot"
	"github.com/vocdoni/davinci-sdk/ballotproof"
	"github.com/vocdoni/davinci-sdk/crypto/ethereum"
	"github.com/vocdoni/davinci-sdk/log"
	"github.com/vocdoni/davinci-sdk/prover"
	"github.com/vocdoni/davinci-sdk/types"
)

var (
	// ErrNotEligible is returned when the process census has no proof for
	// the voter's address. It is distinguishable from transport failures so
	// callers can offer a different remedy (switch wallet).
	ErrNotEligible = fmt.Errorf("address is not in the process census")
	// ErrAlreadyVoted is returned by the eligibility pre-check when the
	// address already cast a vote in the process.
	ErrAlreadyVoted = fmt.Errorf("address has already voted in this process")
	// ErrProcessNotAcceptingVotes is returned when the process is not in a
	// state that accepts ballots.
	ErrProcessNotAcceptingVotes = fmt.Errorf("process is not accepting votes")
)

// Signer signs the raw vote identifier bytes to prove ownership of the
// vote. crypto/ethereum.Signer satisfies it.
type Signer interface {
	Address() common.Address
	Sign(msg []byte) (*ethereum.ECDSASignature, error)
}

// sequencerClient is the slice of api/client.HTTPclient the orchestrator
// uses.
type sequencerClient interface {
	statusAPI
	Info(ctx context.Context) (*api.SequencerInfo, error)
	CensusProof(ctx context.Context, root, key types.HexBytes) (*types.CensusProof, error)
	SubmitVote(ctx context.Context, vote *api.Vote) (types.HexBytes, error)
	HasAddressVoted(ctx context.Context, pid, address types.HexBytes) (bool, error)
}

// proofHelper is the circuit input builder boundary (ballotproof.Helper).
type proofHelper interface {
	Init(ctx context.Context) error
	ProofInputs(ctx context.Context, inputs *ballotproof.BallotProofInputs) (*ballotproof.BallotProofResult, error)
	Close()
}

// proofEngine is the proof generation boundary (prover.Engine).
type proofEngine interface {
	Generate(ctx context.Context, circuit, provingKey prover.Artifact, inputs []byte) (*prover.Proof, error)
	Verify(ctx context.Context, verificationKey prover.Artifact, proof *prover.Proof) error
}

// Orchestrator runs the full vote casting sequence: ballot encoding, census
// proof, circuit inputs, proof generation and verification, signing and
// submission. No step is retried automatically; every failure aborts the
// attempt and the voter must re-invoke.
type Orchestrator struct {
	api     sequencerClient
	engine  proofEngine
	tracker *Tracker

	// newHelper is replaceable in tests
	newHelper func(loaderURL, moduleURL string) proofHelper

	mu        sync.Mutex
	helper    proofHelper
	helperKey string

	onProgress ProgressFunc
}

// NewOrchestrator wires an orchestrator over the sequencer client and the
// proof engine. The wasm helper is created lazily from the artifact URLs
// the sequencer publishes.
func NewOrchestrator(client sequencerClient, engine proofEngine) *Orchestrator {
	return &Orchestrator{
		api:     client,
		engine:  engine,
		tracker: NewTracker(client),
		newHelper: func(loaderURL, moduleURL string) proofHelper {
			return ballotproof.New(loaderURL, moduleURL)
		},
	}
}

// Tracker returns the status tracker used for submitted votes, so its
// polling interval can be tuned.
func (o *Orchestrator) Tracker() *Tracker {
	return o.tracker
}

// OnProgress registers a callback for submission stage changes. The
// callback runs synchronously on the submitting goroutine.
func (o *Orchestrator) OnProgress(fn ProgressFunc) {
	o.onProgress = fn
}

// CheckEligibility verifies the address belongs to the process census and
// has not voted yet, returning its census proof. It fails with
// ErrNotEligible or ErrAlreadyVoted so the submit action can be gated
// before any ballot work starts.
func (o *Orchestrator) CheckEligibility(ctx context.Context, process *types.Process, address common.Address) (*types.CensusProof, error) {
	voted, err := o.api.HasAddressVoted(ctx, process.ID, address.Bytes())
	if err != nil {
		return nil, fmt.Errorf("failed to check previous votes: %w", err)
	}
	if voted {
		return nil, ErrAlreadyVoted
	}
	return o.censusProof(ctx, process, address)
}

// Submit runs the whole casting sequence and, on success, starts tracking
// the vote. The returned Tracking delivers status updates until the vote
// settles or fails; the caller owns its teardown.
func (o *Orchestrator) Submit(
	ctx context.Context,
	signer Signer,
	process *types.Process,
	questions []types.Question,
	answers []int,
) (*SubmittedVote, *Tracking, error) {
	start := time.Now()
	defer o.progress(StageIdle, start)

	// validate answers first, before any network or cryptographic work
	fields, mode, err := ballot.Encode(questions, answers)
	if err != nil {
		return nil, nil, err
	}
	if !process.AcceptingVotes(time.Now()) {
		return nil, nil, ErrProcessNotAcceptingVotes
	}
	if err := process.EncryptionKey.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid process encryption key: %w", err)
	}

	o.progress(StageCensusProof, start)
	censusProof, err := o.censusProof(ctx, process, signer.Address())
	if err != nil {
		return nil, nil, err
	}

	// fresh blinding factor per attempt, never reused or logged
	k := ballotproof.RandK()

	// artifact URLs come from the sequencer and may change per deployment
	info, err := o.api.Info(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to fetch sequencer info: %w", err)
	}

	o.progress(StageCircuitInputs, start)
	weight := types.NewInt(1)
	if censusProof.Weight != nil {
		weight = censusProof.Weight
	}
	helper, err := o.helperFor(info)
	if err != nil {
		return nil, nil, err
	}
	if err := helper.Init(ctx); err != nil {
		return nil, nil, err
	}
	secret := ballotproof.NewSecret()
	proofInputs, err := helper.ProofInputs(ctx, &ballotproof.BallotProofInputs{
		Address:       signer.Address().Bytes(),
		ProcessID:     process.ID,
		Secret:        secret,
		EncryptionKey: []*types.BigInt{process.EncryptionKey.X, process.EncryptionKey.Y},
		K:             k,
		BallotMode:    mode,
		Weight:        weight,
		FieldValues:   fields,
	})
	if err != nil {
		return nil, nil, err
	}

	// the vote id, commitment and nullifier are recomputable from the inputs;
	// a mismatch means the module returned a result for a different vote
	expectedVoteID, err := ballotproof.VoteID(proofInputs.BallotInputsHash)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to derive vote id: %w", err)
	}
	if !bytes.Equal(proofInputs.VoteID, expectedVoteID) {
		return nil, nil, fmt.Errorf("module vote id %s does not match the derived one %s",
			proofInputs.VoteID.String(), expectedVoteID.String())
	}
	commitment, nullifier, err := ballotproof.CommitmentAndNullifier(signer.Address().Bytes(), process.ID, secret)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to derive commitment and nullifier: %w", err)
	}
	if !commitment.Equal(proofInputs.Commitment) || !nullifier.Equal(proofInputs.Nullifier) {
		return nil, nil, fmt.Errorf("module commitment or nullifier does not match the derived ones")
	}

	circomInputs, err := json.Marshal(proofInputs.CircomInputs)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to encode circuit inputs: %w", err)
	}
	proof, err := o.engine.Generate(ctx,
		prover.Artifact{Name: "circuit", URL: info.CircuitURL, Hash: info.CircuitHash},
		prover.Artifact{Name: "proving key", URL: info.ProvingKeyURL, Hash: info.ProvingKeyHash},
		circomInputs)
	if err != nil {
		return nil, nil, err
	}
	// an unverifiable proof is a hard stop, it must never reach the sequencer
	if err := o.engine.Verify(ctx,
		prover.Artifact{Name: "verification key", URL: info.VerificationKeyURL, Hash: info.VerificationKeyHash},
		proof); err != nil {
		return nil, nil, err
	}
	o.progress(StageProofGenerated, start)

	// the signature over the raw vote id bytes proves vote ownership
	signature, err := signer.Sign(proofInputs.VoteID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to sign vote id: %w", err)
	}

	voteID, err := o.api.SubmitVote(ctx, &api.Vote{
		ProcessID:        process.ID,
		CensusProof:      *censusProof,
		Ballot:           proofInputs.Ballot,
		BallotProof:      proof.Proof,
		BallotInputsHash: proofInputs.BallotInputsHash,
		Address:          signer.Address().Bytes(),
		Signature:        signature.Bytes(),
		VoteID:           proofInputs.VoteID,
		Commitment:       proofInputs.Commitment,
		Nullifier:        proofInputs.Nullifier,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to submit vote: %w", err)
	}
	o.progress(StageSubmitted, start)
	log.Infow("vote submitted", "processId", process.ID.String(),
		"voteId", voteID.String(), "elapsed", time.Since(start).String())

	// tracking outlives the submission context
	tracking := o.tracker.Track(context.Background(), process.ID, voteID)
	return &SubmittedVote{VoteID: voteID, Status: StatusPending}, tracking, nil
}

// censusProof fetches the voter's proof of inclusion, mapping a not-found
// answer to ErrNotEligible.
func (o *Orchestrator) censusProof(ctx context.Context, process *types.Process, address common.Address) (*types.CensusProof, error) {
	if process.Census == nil {
		return nil, fmt.Errorf("process carries no census")
	}
	proof, err := o.api.CensusProof(ctx, process.Census.CensusRoot, address.Bytes())
	if err != nil {
		var apiErr api.Error
		if errors.As(err, &apiErr) && apiErr.HTTPstatus == http.StatusNotFound {
			return nil, ErrNotEligible
		}
		return nil, fmt.Errorf("failed to fetch census proof: %w", err)
	}
	return proof, nil
}

// helperFor returns the wasm helper for the artifact URLs the sequencer
// currently publishes, reusing the instantiated one when they are
// unchanged.
func (o *Orchestrator) helperFor(info *api.SequencerInfo) (proofHelper, error) {
	if info.WASMhelperURL == "" {
		return nil, fmt.Errorf("sequencer publishes no ballot proof helper")
	}
	key := info.WASMhelperExecJsURL + "|" + info.WASMhelperURL
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.helper == nil || o.helperKey != key {
		if o.helper != nil {
			// release the native instance of the stale artifacts
			o.helper.Close()
		}
		o.helper = o.newHelper(info.WASMhelperExecJsURL, info.WASMhelperURL)
		o.helperKey = key
	}
	return o.helper, nil
}

// progress reports a stage change with the elapsed wall-clock time. The
// timer is cosmetic and never affects control flow.
func (o *Orchestrator) progress(stage Stage, start time.Time) {
	if o.onProgress == nil {
		return
	}
	o.onProgress(Progress{
		Stage:   stage,
		Elapsed: time.Since(start).Truncate(time.Millisecond).String(),
	})
}
