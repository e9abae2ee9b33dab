package vote

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	qt "github.com/frankban/quicktest"

	"github.com/vocdoni/davinci-sdk/api"
	"github.com/vocdoni/davinci-sdk/ballot"
	"github.com/vocdoni/davinci-sdk/ballotproof"
	"github.com/vocdoni/davinci-sdk/crypto/ethereum"
	"github.com/vocdoni/davinci-sdk/prover"
	"github.com/vocdoni/davinci-sdk/types"
)

type fakeSequencer struct {
	censusProofErr error
	submitErr      error
	hasVoted       bool
	statuses       []Status

	censusProofCalls atomic.Int64
	infoCalls        atomic.Int64
	submitCalls      atomic.Int64
	statusCalls      atomic.Int64
	submitted        *api.Vote
}

func (f *fakeSequencer) Info(context.Context) (*api.SequencerInfo, error) {
	f.infoCalls.Add(1)
	return &api.SequencerInfo{
		CircuitURL:          "http://seq/circuit.wasm",
		ProvingKeyURL:       "http://seq/proving.zkey",
		VerificationKeyURL:  "http://seq/vkey.json",
		WASMhelperURL:       "http://seq/helper.wasm",
		WASMhelperExecJsURL: "http://seq/helper_exec.js",
	}, nil
}

func (f *fakeSequencer) CensusProof(_ context.Context, root, key types.HexBytes) (*types.CensusProof, error) {
	f.censusProofCalls.Add(1)
	if f.censusProofErr != nil {
		return nil, f.censusProofErr
	}
	return &types.CensusProof{
		Root:    root,
		Address: key,
		Weight:  types.NewInt(10),
	}, nil
}

func (f *fakeSequencer) SubmitVote(_ context.Context, vote *api.Vote) (types.HexBytes, error) {
	f.submitCalls.Add(1)
	if f.submitErr != nil {
		return nil, f.submitErr
	}
	f.submitted = vote
	return vote.VoteID, nil
}

func (f *fakeSequencer) VoteStatus(context.Context, types.HexBytes, types.HexBytes) (string, error) {
	n := int(f.statusCalls.Add(1)) - 1
	if n >= len(f.statuses) {
		n = len(f.statuses) - 1
	}
	return string(f.statuses[n]), nil
}

func (f *fakeSequencer) HasAddressVoted(context.Context, types.HexBytes, types.HexBytes) (bool, error) {
	return f.hasVoted, nil
}

type fakeHelper struct {
	initCalls  atomic.Int64
	proofCalls atomic.Int64
	closeCalls atomic.Int64
	initErr    error
	result     *ballotproof.BallotProofResult
	lastInputs *ballotproof.BallotProofInputs
}

func (f *fakeHelper) Init(context.Context) error {
	f.initCalls.Add(1)
	return f.initErr
}

// ProofInputs fills the derivable fields the way the real module does, unless
// the test preset them.
func (f *fakeHelper) ProofInputs(_ context.Context, inputs *ballotproof.BallotProofInputs) (*ballotproof.BallotProofResult, error) {
	f.proofCalls.Add(1)
	f.lastInputs = inputs
	result := *f.result
	if result.VoteID == nil {
		voteID, err := ballotproof.VoteID(result.BallotInputsHash)
		if err != nil {
			return nil, err
		}
		result.VoteID = voteID
	}
	if result.Commitment == nil || result.Nullifier == nil {
		commitment, nullifier, err := ballotproof.CommitmentAndNullifier(inputs.Address, inputs.ProcessID, inputs.Secret)
		if err != nil {
			return nil, err
		}
		result.Commitment, result.Nullifier = commitment, nullifier
	}
	return &result, nil
}

func (f *fakeHelper) Close() {
	f.closeCalls.Add(1)
}

type fakeEngine struct {
	generateCalls atomic.Int64
	verifyCalls   atomic.Int64
	verifyErr     error
}

func (f *fakeEngine) Generate(context.Context, prover.Artifact, prover.Artifact, []byte) (*prover.Proof, error) {
	f.generateCalls.Add(1)
	return &prover.Proof{
		Proof:         &types.CircomProof{Protocol: "groth16"},
		PublicSignals: []string{"1"},
	}, nil
}

func (f *fakeEngine) Verify(context.Context, prover.Artifact, *prover.Proof) error {
	f.verifyCalls.Add(1)
	return f.verifyErr
}

func testProcess() *types.Process {
	return &types.Process{
		ID:     types.HexStringToHexBytesMustUnmarshal("0xabcd"),
		Status: types.ProcessStatusReady,
		EncryptionKey: &types.EncryptionKey{
			X: types.NewInt(100),
			Y: types.NewInt(200),
		},
		Census: &types.Census{
			CensusOrigin: types.CensusOriginMerkleTreeOffchainStaticV1,
			CensusRoot:   types.HexStringToHexBytesMustUnmarshal("0x1122"),
		},
		StartTime:        time.Now().Add(-time.Hour),
		Duration:         24 * time.Hour,
		IsAcceptingVotes: true,
	}
}

func testQuestions() []types.Question {
	return []types.Question{{
		Title: types.MultilingualString{"default": "language"},
		Choices: []types.Choice{
			{Title: types.MultilingualString{"default": "JavaScript"}, Value: 0},
			{Title: types.MultilingualString{"default": "Python"}, Value: 1},
			{Title: types.MultilingualString{"default": "Java"}, Value: 2},
			{Title: types.MultilingualString{"default": "Go"}, Value: 3},
		},
	}}
}

func testOrchestrator(seq *fakeSequencer, helper *fakeHelper, engine *fakeEngine) *Orchestrator {
	if helper.result == nil {
		helper.result = &ballotproof.BallotProofResult{
			Ballot:           &types.Ballot{CurveType: "bjj_gnark"},
			BallotInputsHash: types.NewInt(33),
			CircomInputs:     &ballotproof.CircomInputs{MaxCount: "1"},
		}
	}
	o := NewOrchestrator(seq, engine)
	o.newHelper = func(_, _ string) proofHelper { return helper }
	o.tracker.SetInterval(2 * time.Millisecond)
	return o
}

func TestSubmit(t *testing.T) {
	c := qt.New(t)
	seq := &fakeSequencer{statuses: []Status{StatusPending, StatusVerified, StatusSettled}}
	helper := &fakeHelper{}
	engine := &fakeEngine{}
	o := testOrchestrator(seq, helper, engine)

	var stages []Stage
	o.OnProgress(func(p Progress) { stages = append(stages, p.Stage) })

	signer, err := ethereum.NewSigner()
	c.Assert(err, qt.IsNil)

	submitted, tracking, err := o.Submit(context.Background(), signer, testProcess(), testQuestions(), []int{3})
	c.Assert(err, qt.IsNil)
	c.Assert(submitted.Status, qt.Equals, StatusPending)
	defer tracking.Stop()

	// the submitted payload carries everything the sequencer verifies
	vote := seq.submitted
	c.Assert(vote, qt.IsNotNil)
	c.Assert(vote.ProcessID.String(), qt.Equals, "0xabcd")
	voterAddress := types.HexBytes(signer.Address().Bytes())
	c.Assert(vote.Address.String(), qt.Equals, voterAddress.String())
	c.Assert(vote.BallotInputsHash.String(), qt.Equals, "33")
	c.Assert(vote.CensusProof.Root.String(), qt.Equals, "0x1122")

	// the vote id is the padded field reduction of the ballot inputs hash
	expectedVoteID, err := ballotproof.VoteID(vote.BallotInputsHash)
	c.Assert(err, qt.IsNil)
	c.Assert(vote.VoteID, qt.HasLen, 32)
	c.Assert(vote.VoteID[31], qt.Equals, byte(0x21))
	c.Assert(vote.VoteID, qt.DeepEquals, expectedVoteID)
	c.Assert(submitted.VoteID, qt.DeepEquals, expectedVoteID)

	// commitment and nullifier bind the secret handed to the module
	commitment, nullifier, err := ballotproof.CommitmentAndNullifier(vote.Address, vote.ProcessID, helper.lastInputs.Secret)
	c.Assert(err, qt.IsNil)
	c.Assert(vote.Commitment.Equal(commitment), qt.IsTrue)
	c.Assert(vote.Nullifier.Equal(nullifier), qt.IsTrue)

	// the signature is over the raw vote id bytes
	signature, err := ethereum.BytesToSignature(vote.Signature)
	c.Assert(err, qt.IsNil)
	ok, _ := signature.Verify(vote.VoteID, signer.Address())
	c.Assert(ok, qt.IsTrue)

	// the helper got the encoded ballot and a fresh blinding factor
	c.Assert(helper.lastInputs.K, qt.IsNotNil)
	c.Assert(helper.lastInputs.Weight.String(), qt.Equals, "10")
	c.Assert(helper.lastInputs.FieldValues, qt.HasLen, 4)
	c.Assert(helper.lastInputs.BallotMode.MaxValue.String(), qt.Equals, "3")

	c.Assert(stages, qt.DeepEquals, []Stage{
		StageCensusProof, StageCircuitInputs, StageProofGenerated, StageSubmitted, StageIdle,
	})

	got := collect(c, tracking, 5*time.Second)
	c.Assert(got[len(got)-1], qt.Equals, StatusSettled)
}

func TestSubmitIncompleteBallot(t *testing.T) {
	c := qt.New(t)
	seq := &fakeSequencer{statuses: []Status{StatusPending}}
	helper := &fakeHelper{}
	engine := &fakeEngine{}
	o := testOrchestrator(seq, helper, engine)

	signer, err := ethereum.NewSigner()
	c.Assert(err, qt.IsNil)

	_, _, err = o.Submit(context.Background(), signer, testProcess(), testQuestions(), []int{ballot.SentinelAnswer})
	c.Assert(err, qt.ErrorIs, ballot.ErrIncompleteBallot)

	// fail fast: nothing was fetched, proved or submitted
	c.Assert(seq.censusProofCalls.Load(), qt.Equals, int64(0))
	c.Assert(seq.infoCalls.Load(), qt.Equals, int64(0))
	c.Assert(seq.submitCalls.Load(), qt.Equals, int64(0))
	c.Assert(helper.proofCalls.Load(), qt.Equals, int64(0))
	c.Assert(engine.generateCalls.Load(), qt.Equals, int64(0))
}

func TestSubmitNotEligible(t *testing.T) {
	c := qt.New(t)
	seq := &fakeSequencer{
		statuses:       []Status{StatusPending},
		censusProofErr: api.ErrResourceNotFound.WithErr(fmt.Errorf("key not found")),
	}
	o := testOrchestrator(seq, &fakeHelper{}, &fakeEngine{})

	signer, err := ethereum.NewSigner()
	c.Assert(err, qt.IsNil)

	_, _, err = o.Submit(context.Background(), signer, testProcess(), testQuestions(), []int{0})
	c.Assert(err, qt.ErrorIs, ErrNotEligible)
	c.Assert(seq.submitCalls.Load(), qt.Equals, int64(0))
}

func TestSubmitVerificationFailureAborts(t *testing.T) {
	c := qt.New(t)
	seq := &fakeSequencer{statuses: []Status{StatusPending}}
	engine := &fakeEngine{verifyErr: fmt.Errorf("%w: invalid proof", prover.ErrProofVerification)}
	o := testOrchestrator(seq, &fakeHelper{}, engine)

	signer, err := ethereum.NewSigner()
	c.Assert(err, qt.IsNil)

	_, _, err = o.Submit(context.Background(), signer, testProcess(), testQuestions(), []int{0})
	c.Assert(err, qt.ErrorIs, prover.ErrProofVerification)
	// an unverifiable proof never reaches the sequencer
	c.Assert(seq.submitCalls.Load(), qt.Equals, int64(0))
}

func TestSubmitProcessNotAccepting(t *testing.T) {
	c := qt.New(t)
	o := testOrchestrator(&fakeSequencer{statuses: []Status{StatusPending}}, &fakeHelper{}, &fakeEngine{})

	signer, err := ethereum.NewSigner()
	c.Assert(err, qt.IsNil)

	process := testProcess()
	process.Status = types.ProcessStatusEnded
	_, _, err = o.Submit(context.Background(), signer, process, testQuestions(), []int{0})
	c.Assert(err, qt.ErrorIs, ErrProcessNotAcceptingVotes)
}

func TestSubmitHelperReuse(t *testing.T) {
	c := qt.New(t)
	seq := &fakeSequencer{statuses: []Status{StatusSettled}}
	helper := &fakeHelper{}
	o := testOrchestrator(seq, helper, &fakeEngine{})

	signer, err := ethereum.NewSigner()
	c.Assert(err, qt.IsNil)

	var helpers atomic.Int64
	inner := o.newHelper
	o.newHelper = func(loaderURL, moduleURL string) proofHelper {
		helpers.Add(1)
		return inner(loaderURL, moduleURL)
	}

	for range 3 {
		_, tracking, err := o.Submit(context.Background(), signer, testProcess(), testQuestions(), []int{1})
		c.Assert(err, qt.IsNil)
		tracking.Stop()
	}
	// same artifact URLs reuse the same helper instance
	c.Assert(helpers.Load(), qt.Equals, int64(1))
	c.Assert(helper.initCalls.Load(), qt.Equals, int64(3))
}

func TestSubmitRejectsForeignModuleResult(t *testing.T) {
	c := qt.New(t)

	c.Run("vote id", func(c *qt.C) {
		seq := &fakeSequencer{statuses: []Status{StatusPending}}
		helper := &fakeHelper{result: &ballotproof.BallotProofResult{
			Ballot:           &types.Ballot{CurveType: "bjj_gnark"},
			BallotInputsHash: types.NewInt(33),
			VoteID:           types.HexStringToHexBytesMustUnmarshal("0xc0ffee"),
			CircomInputs:     &ballotproof.CircomInputs{MaxCount: "1"},
		}}
		o := testOrchestrator(seq, helper, &fakeEngine{})

		signer, err := ethereum.NewSigner()
		c.Assert(err, qt.IsNil)

		_, _, err = o.Submit(context.Background(), signer, testProcess(), testQuestions(), []int{0})
		c.Assert(err, qt.ErrorMatches, "module vote id .* does not match the derived one .*")
		c.Assert(seq.submitCalls.Load(), qt.Equals, int64(0))
	})

	c.Run("commitment", func(c *qt.C) {
		seq := &fakeSequencer{statuses: []Status{StatusPending}}
		helper := &fakeHelper{result: &ballotproof.BallotProofResult{
			Commitment:       types.NewInt(11),
			Nullifier:        types.NewInt(22),
			Ballot:           &types.Ballot{CurveType: "bjj_gnark"},
			BallotInputsHash: types.NewInt(33),
			CircomInputs:     &ballotproof.CircomInputs{MaxCount: "1"},
		}}
		o := testOrchestrator(seq, helper, &fakeEngine{})

		signer, err := ethereum.NewSigner()
		c.Assert(err, qt.IsNil)

		_, _, err = o.Submit(context.Background(), signer, testProcess(), testQuestions(), []int{0})
		c.Assert(err, qt.ErrorMatches, "module commitment or nullifier does not match the derived ones")
		c.Assert(seq.submitCalls.Load(), qt.Equals, int64(0))
	})
}

func TestHelperReplacedOnArtifactChange(t *testing.T) {
	c := qt.New(t)
	first := &fakeHelper{}
	second := &fakeHelper{}
	built := 0
	o := NewOrchestrator(&fakeSequencer{}, &fakeEngine{})
	o.newHelper = func(_, _ string) proofHelper {
		built++
		if built == 1 {
			return first
		}
		return second
	}
	infoA := &api.SequencerInfo{WASMhelperURL: "http://seq/a.wasm", WASMhelperExecJsURL: "http://seq/a.js"}
	infoB := &api.SequencerInfo{WASMhelperURL: "http://seq/b.wasm", WASMhelperExecJsURL: "http://seq/b.js"}

	h, err := o.helperFor(infoA)
	c.Assert(err, qt.IsNil)
	again, err := o.helperFor(infoA)
	c.Assert(err, qt.IsNil)
	c.Assert(again, qt.Equals, h)
	c.Assert(first.closeCalls.Load(), qt.Equals, int64(0))

	// new artifact URLs release the stale instance before replacing it
	replaced, err := o.helperFor(infoB)
	c.Assert(err, qt.IsNil)
	c.Assert(replaced, qt.Equals, proofHelper(second))
	c.Assert(first.closeCalls.Load(), qt.Equals, int64(1))
	c.Assert(second.closeCalls.Load(), qt.Equals, int64(0))
}

func TestCheckEligibility(t *testing.T) {
	c := qt.New(t)

	c.Run("eligible", func(c *qt.C) {
		o := testOrchestrator(&fakeSequencer{statuses: []Status{StatusPending}}, &fakeHelper{}, &fakeEngine{})
		signer, err := ethereum.NewSigner()
		c.Assert(err, qt.IsNil)
		proof, err := o.CheckEligibility(context.Background(), testProcess(), signer.Address())
		c.Assert(err, qt.IsNil)
		c.Assert(proof.Weight.String(), qt.Equals, "10")
	})

	c.Run("already voted", func(c *qt.C) {
		o := testOrchestrator(&fakeSequencer{statuses: []Status{StatusPending}, hasVoted: true}, &fakeHelper{}, &fakeEngine{})
		signer, err := ethereum.NewSigner()
		c.Assert(err, qt.IsNil)
		_, err = o.CheckEligibility(context.Background(), testProcess(), signer.Address())
		c.Assert(err, qt.ErrorIs, ErrAlreadyVoted)
	})

	c.Run("not in census", func(c *qt.C) {
		seq := &fakeSequencer{
			statuses:       []Status{StatusPending},
			censusProofErr: api.ErrResourceNotFound.WithErr(fmt.Errorf("key not found")),
		}
		o := testOrchestrator(seq, &fakeHelper{}, &fakeEngine{})
		signer, err := ethereum.NewSigner()
		c.Assert(err, qt.IsNil)
		_, err = o.CheckEligibility(context.Background(), testProcess(), signer.Address())
		c.Assert(err, qt.ErrorIs, ErrNotEligible)
	})
}
