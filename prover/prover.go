// Package prover generates and verifies the Groth16 ballot proof from
// remotely-fetched circom artifacts. Artifacts (circuit wasm, proving key,
// verification key) are fetched lazily, at most once per URL, and their
// sha256 can be pinned against the hashes the sequencer publishes.
package prover

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/iden3/go-rapidsnark/prover"
	rapidtypes "github.com/iden3/go-rapidsnark/types"
	"github.com/iden3/go-rapidsnark/verifier"
	"github.com/iden3/go-rapidsnark/witness"

	"github.com/vocdoni/davinci-sdk/log"
	"github.com/vocdoni/davinci-sdk/types"
)

var (
	// ErrArtifactFetch is returned when an artifact cannot be downloaded.
	// The message names the artifact and its URL.
	ErrArtifactFetch = fmt.Errorf("failed to fetch artifact")
	// ErrIntegrity is returned when a fetched artifact does not match its
	// expected sha256. The message carries both hashes.
	ErrIntegrity = fmt.Errorf("artifact integrity check failed")
	// ErrProofVerification is returned when a generated proof does not
	// verify against the verification key. A vote must never be submitted
	// after it.
	ErrProofVerification = fmt.Errorf("proof verification failed")
)

// Artifact identifies a remote circuit artifact. Hash is an optional sha256
// hex string checked case-insensitively on first fetch.
type Artifact struct {
	Name string
	URL  string
	Hash string
}

// Proof is a Groth16 proof with its public signals, in the circom wire
// format the sequencer expects.
type Proof struct {
	Proof         *types.CircomProof `json:"proof"`
	PublicSignals []string           `json:"publicSignals"`
}

// witnessCalculator is the subset of the circom witness calculator the
// engine uses; replaceable in tests.
type witnessCalculator interface {
	CalculateWTNSBin(inputs map[string]any, sanityCheck bool) ([]byte, error)
}

// Engine fetches circuit artifacts and drives the Groth16 prover. It is
// safe for concurrent use; proof generation itself is serialized because
// the underlying prover is not.
type Engine struct {
	client *http.Client

	mu        sync.Mutex
	artifacts map[string][]byte
	calcs     map[string]witnessCalculator

	// proveMu serializes calls to the raw Groth16 prover, which is not safe
	// for concurrent use (native code can crash when run in parallel).
	proveMu sync.Mutex

	// replaceable in tests
	newCalculator func(wasm []byte) (witnessCalculator, error)
	prove         func(provingKey, wtns []byte) (string, string, error)
	verify        func(proof rapidtypes.ZKProof, verificationKey []byte) error
}

// New creates an Engine with empty caches.
func New() *Engine {
	return &Engine{
		client:    http.DefaultClient,
		artifacts: make(map[string][]byte),
		calcs:     make(map[string]witnessCalculator),
		newCalculator: func(wasm []byte) (witnessCalculator, error) {
			return witness.NewCircom2WitnessCalculator(wasm, true)
		},
		prove:  prover.Groth16ProverRaw,
		verify: verifier.VerifyGroth16,
	}
}

// Generate calculates the witness for the given circuit inputs and produces
// a Groth16 proof. The circuit wasm and proving key are fetched on first
// use and cached by URL; the witness calculator is reused across proofs of
// the same circuit.
func (e *Engine) Generate(ctx context.Context, circuit, provingKey Artifact, inputs []byte) (*Proof, error) {
	calc, err := e.calculator(ctx, circuit)
	if err != nil {
		return nil, err
	}
	zkey, err := e.fetchArtifact(ctx, provingKey)
	if err != nil {
		return nil, err
	}
	parsedInputs, err := witness.ParseInputs(inputs)
	if err != nil {
		return nil, fmt.Errorf("failed to parse circuit inputs: %w", err)
	}
	wtns, err := calc.CalculateWTNSBin(parsedInputs, true)
	if err != nil {
		return nil, fmt.Errorf("failed to calculate witness: %w", err)
	}
	e.proveMu.Lock()
	rawProof, rawPubSignals, err := e.prove(zkey, wtns)
	e.proveMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("failed to generate proof: %w", err)
	}
	proof := new(types.CircomProof)
	if err := json.Unmarshal([]byte(rawProof), proof); err != nil {
		return nil, fmt.Errorf("failed to decode proof: %w", err)
	}
	var pubSignals []string
	if err := json.Unmarshal([]byte(rawPubSignals), &pubSignals); err != nil {
		return nil, fmt.Errorf("failed to decode public signals: %w", err)
	}
	return &Proof{Proof: proof, PublicSignals: pubSignals}, nil
}

// Verify checks the proof against the verification key. It must pass before
// the vote is submitted; a failure is a hard stop for the attempt.
func (e *Engine) Verify(ctx context.Context, verificationKey Artifact, proof *Proof) error {
	vkey, err := e.fetchArtifact(ctx, verificationKey)
	if err != nil {
		return err
	}
	zkProof := rapidtypes.ZKProof{
		Proof: &rapidtypes.ProofData{
			A:        proof.Proof.PiA,
			B:        proof.Proof.PiB,
			C:        proof.Proof.PiC,
			Protocol: proof.Proof.Protocol,
		},
		PubSignals: proof.PublicSignals,
	}
	if err := e.verify(zkProof, vkey); err != nil {
		return fmt.Errorf("%w: %v", ErrProofVerification, err)
	}
	return nil
}

// calculator returns the cached witness calculator for the circuit,
// instantiating it on first use.
func (e *Engine) calculator(ctx context.Context, circuit Artifact) (witnessCalculator, error) {
	e.mu.Lock()
	calc, ok := e.calcs[circuit.URL]
	e.mu.Unlock()
	if ok {
		return calc, nil
	}
	wasm, err := e.fetchArtifact(ctx, circuit)
	if err != nil {
		return nil, err
	}
	calc, err = e.newCalculator(wasm)
	if err != nil {
		return nil, fmt.Errorf("failed to instantiate witness calculator: %w", err)
	}
	e.mu.Lock()
	e.calcs[circuit.URL] = calc
	e.mu.Unlock()
	return calc, nil
}

// fetchArtifact downloads an artifact, caching it by URL. The sha256 pin is
// checked only on the first fetch; cached artifacts are trusted thereafter.
func (e *Engine) fetchArtifact(ctx context.Context, artifact Artifact) ([]byte, error) {
	e.mu.Lock()
	if data, ok := e.artifacts[artifact.URL]; ok {
		e.mu.Unlock()
		return data, nil
	}
	e.mu.Unlock()

	data, err := e.download(ctx, artifact.URL)
	if err != nil {
		return nil, fmt.Errorf("%w %s from %s: %v", ErrArtifactFetch, artifact.Name, artifact.URL, err)
	}
	if artifact.Hash != "" {
		sum := sha256.Sum256(data)
		computed := hex.EncodeToString(sum[:])
		if !strings.EqualFold(computed, artifact.Hash) {
			return nil, fmt.Errorf("%w for %s: expected %s, computed %s",
				ErrIntegrity, artifact.Name, artifact.Hash, computed)
		}
	}
	log.Debugw("fetched circuit artifact", "name", artifact.Name, "url", artifact.URL, "size", len(data))

	e.mu.Lock()
	e.artifacts[artifact.URL] = data
	e.mu.Unlock()
	return data, nil
}

func (e *Engine) download(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := e.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			log.Warnw("error closing artifact response body", "error", err)
		}
	}()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}
