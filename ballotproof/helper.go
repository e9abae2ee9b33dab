// Package ballotproof drives the wasm helper module that turns a voter's
// ballot data into circom circuit inputs. The module is a black box exposing
// a single operation, proofInputs, that takes a JSON payload and answers
// with a {error?, data?} envelope; all cryptographic semantics (ballot
// encryption, commitment, nullifier, inputs hash) live inside it.
package ballotproof

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/vocdoni/davinci-sdk/log"
)

// DefaultInitTimeout bounds how long Init waits for the module entry point
// to become available after fetching the artifacts.
const DefaultInitTimeout = 5 * time.Second

var (
	// ErrNotInitialized is returned by compute operations before a
	// successful Init.
	ErrNotInitialized = fmt.Errorf("ballot proof module is not initialized")
	// ErrModuleLoadTimeout is returned when the module entry point does not
	// become available within the configured timeout.
	ErrModuleLoadTimeout = fmt.Errorf("timeout waiting for ballot proof module")
	// ErrModuleCompute is returned when the module reports an error for a
	// compute operation. The module's message is attached verbatim.
	ErrModuleCompute = fmt.Errorf("ballot proof module error")
	// ErrModuleProtocol is returned when the module answers without a data
	// payload or with one that cannot be decoded.
	ErrModuleProtocol = fmt.Errorf("unexpected ballot proof module response")
)

// moduleRunner abstracts the instantiated wasm module. Implementations are
// not required to be safe for concurrent use; Helper serializes calls.
type moduleRunner interface {
	// ProofInputs invokes the module's single operation with a JSON payload
	// and returns the raw response envelope bytes.
	ProofInputs(payload []byte) ([]byte, error)
	Close()
}

// Helper owns the wasm module lifecycle: it fetches the loader script and
// the binary module (each exactly once, cached by URL), instantiates the
// module and serves compute calls. Concurrent Init calls collapse into a
// single fetch/instantiate; once initialized further calls are no-ops.
type Helper struct {
	loaderURL string
	moduleURL string
	timeout   time.Duration
	client    *http.Client

	// instantiate is replaceable in tests
	instantiate func(module []byte) (moduleRunner, error)
	group       singleflight.Group

	mu        sync.Mutex
	artifacts map[string][]byte
	runner    moduleRunner
}

// New creates a Helper for the given artifact URLs. The module is not
// fetched until Init is called.
func New(loaderURL, moduleURL string) *Helper {
	return &Helper{
		loaderURL:   loaderURL,
		moduleURL:   moduleURL,
		timeout:     DefaultInitTimeout,
		client:      http.DefaultClient,
		instantiate: newWasmRunner,
		artifacts:   make(map[string][]byte),
	}
}

// SetTimeout overrides the init timeout. It must be called before Init.
func (h *Helper) SetTimeout(d time.Duration) *Helper {
	h.timeout = d
	return h
}

// Init fetches the loader and module artifacts and instantiates the module.
// It is idempotent: after a successful call it returns immediately, and
// concurrent callers share a single in-flight initialization.
func (h *Helper) Init(ctx context.Context) error {
	_, err, _ := h.group.Do("init", func() (any, error) {
		h.mu.Lock()
		ready := h.runner != nil
		h.mu.Unlock()
		if ready {
			return nil, nil
		}
		// the loader script is fetched and cached alongside the binary so
		// both artifacts are pinned, but only the binary is instantiated
		if _, err := h.fetchArtifact(ctx, h.loaderURL); err != nil {
			return nil, fmt.Errorf("failed to fetch module loader: %w", err)
		}
		module, err := h.fetchArtifact(ctx, h.moduleURL)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch module binary: %w", err)
		}

		type instantiated struct {
			runner moduleRunner
			err    error
		}
		done := make(chan instantiated, 1)
		go func() {
			runner, err := h.instantiate(module)
			done <- instantiated{runner, err}
		}()
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(h.timeout):
			return nil, fmt.Errorf("%w after %s", ErrModuleLoadTimeout, h.timeout)
		case res := <-done:
			if res.err != nil {
				return nil, fmt.Errorf("failed to instantiate module: %w", res.err)
			}
			h.mu.Lock()
			h.runner = res.runner
			h.mu.Unlock()
			log.Debugw("ballot proof module initialized", "module", h.moduleURL)
		}
		return nil, nil
	})
	return err
}

// ProofInputs marshals the inputs, invokes the module's proofInputs
// operation and decodes its response. It requires a prior successful Init.
func (h *Helper) ProofInputs(ctx context.Context, inputs *BallotProofInputs) (*BallotProofResult, error) {
	h.mu.Lock()
	runner := h.runner
	h.mu.Unlock()
	if runner == nil {
		return nil, ErrNotInitialized
	}
	if err := inputs.Valid(); err != nil {
		return nil, fmt.Errorf("invalid ballot proof inputs: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	payload, err := json.Marshal(inputs)
	if err != nil {
		return nil, fmt.Errorf("failed to encode module inputs: %w", err)
	}
	raw, err := runner.ProofInputs(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrModuleCompute, err)
	}
	var envelope struct {
		Error string `json:"error"`
		Data  string `json:"data"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrModuleProtocol, err)
	}
	if envelope.Error != "" {
		return nil, fmt.Errorf("%w: %s", ErrModuleCompute, envelope.Error)
	}
	if envelope.Data == "" {
		return nil, fmt.Errorf("%w: response carries no data", ErrModuleProtocol)
	}
	result := new(BallotProofResult)
	if err := json.Unmarshal([]byte(envelope.Data), result); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrModuleProtocol, err)
	}
	return result, nil
}

// Close releases the instantiated module, if any.
func (h *Helper) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.runner != nil {
		h.runner.Close()
		h.runner = nil
	}
}

// fetchArtifact downloads an artifact, caching it by URL so every artifact
// is fetched at most once per Helper.
func (h *Helper) fetchArtifact(ctx context.Context, url string) ([]byte, error) {
	h.mu.Lock()
	if data, ok := h.artifacts[url]; ok {
		h.mu.Unlock()
		return data, nil
	}
	h.mu.Unlock()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := h.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			log.Warnw("error closing artifact response body", "error", err)
		}
	}()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d fetching %s", resp.StatusCode, url)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read artifact body: %w", err)
	}
	log.Debugw("fetched module artifact", "url", url, "size", len(data))

	h.mu.Lock()
	h.artifacts[url] = data
	h.mu.Unlock()
	return data, nil
}
