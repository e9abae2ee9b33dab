package ballotproof

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	qt "github.com/frankban/quicktest"

	"github.com/vocdoni/davinci-sdk/types"
)

type fakeRunner struct {
	calls    atomic.Int64
	response []byte
	err      error
}

func (f *fakeRunner) ProofInputs([]byte) ([]byte, error) {
	f.calls.Add(1)
	return f.response, f.err
}

func (f *fakeRunner) Close() {}

func testInputs() *BallotProofInputs {
	return &BallotProofInputs{
		Address:       types.HexBytes{0x01, 0x02},
		ProcessID:     types.HexBytes{0x03, 0x04},
		Secret:        NewSecret(),
		EncryptionKey: []*types.BigInt{types.NewInt(1), types.NewInt(2)},
		K:             RandK(),
		BallotMode: &types.BallotMode{
			MaxCount:     1,
			MaxValue:     types.NewInt(3),
			MinValue:     types.NewInt(0),
			MaxTotalCost: types.NewInt(3),
			MinTotalCost: types.NewInt(0),
			CostExponent: 1,
		},
		Weight:      types.NewInt(1),
		FieldValues: []*types.BigInt{types.NewInt(0), types.NewInt(1)},
	}
}

// artifactServer serves loader and module artifacts counting fetches per path.
func artifactServer(t *testing.T) (*httptest.Server, *sync.Map) {
	t.Helper()
	var counts sync.Map
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n, _ := counts.LoadOrStore(r.URL.Path, new(atomic.Int64))
		n.(*atomic.Int64).Add(1)
		_, err := w.Write([]byte("artifact:" + r.URL.Path))
		qt.Assert(t, err, qt.IsNil)
	}))
	t.Cleanup(srv.Close)
	return srv, &counts
}

func fetches(counts *sync.Map, path string) int64 {
	n, ok := counts.Load(path)
	if !ok {
		return 0
	}
	return n.(*atomic.Int64).Load()
}

func TestInitIdempotence(t *testing.T) {
	c := qt.New(t)
	srv, counts := artifactServer(t)

	var instantiations atomic.Int64
	helper := New(srv.URL+"/loader.js", srv.URL+"/module.wasm")
	helper.instantiate = func([]byte) (moduleRunner, error) {
		instantiations.Add(1)
		return &fakeRunner{}, nil
	}

	c.Assert(helper.Init(context.Background()), qt.IsNil)
	c.Assert(helper.Init(context.Background()), qt.IsNil)

	c.Assert(fetches(counts, "/loader.js"), qt.Equals, int64(1))
	c.Assert(fetches(counts, "/module.wasm"), qt.Equals, int64(1))
	c.Assert(instantiations.Load(), qt.Equals, int64(1))
}

func TestInitCoalescing(t *testing.T) {
	c := qt.New(t)
	srv, counts := artifactServer(t)

	var instantiations atomic.Int64
	helper := New(srv.URL+"/loader.js", srv.URL+"/module.wasm")
	helper.instantiate = func([]byte) (moduleRunner, error) {
		instantiations.Add(1)
		time.Sleep(20 * time.Millisecond)
		return &fakeRunner{}, nil
	}

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Check(helper.Init(context.Background()), qt.IsNil)
		}()
	}
	wg.Wait()

	c.Assert(fetches(counts, "/module.wasm"), qt.Equals, int64(1))
	c.Assert(instantiations.Load(), qt.Equals, int64(1))
}

func TestInitTimeout(t *testing.T) {
	c := qt.New(t)
	srv, _ := artifactServer(t)

	release := make(chan struct{})
	defer close(release)
	helper := New(srv.URL+"/loader.js", srv.URL+"/module.wasm").SetTimeout(20 * time.Millisecond)
	helper.instantiate = func([]byte) (moduleRunner, error) {
		<-release
		return &fakeRunner{}, nil
	}

	err := helper.Init(context.Background())
	c.Assert(err, qt.ErrorIs, ErrModuleLoadTimeout)
}

func TestInitFetchFailure(t *testing.T) {
	c := qt.New(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	helper := New(srv.URL+"/loader.js", srv.URL+"/module.wasm")
	err := helper.Init(context.Background())
	c.Assert(err, qt.ErrorMatches, "failed to fetch module loader: .*404.*")
}

func TestProofInputsNotInitialized(t *testing.T) {
	c := qt.New(t)
	helper := New("http://localhost/loader.js", "http://localhost/module.wasm")

	_, err := helper.ProofInputs(context.Background(), testInputs())
	c.Assert(err, qt.ErrorIs, ErrNotInitialized)
}

func initializedHelper(t *testing.T, runner *fakeRunner) *Helper {
	t.Helper()
	srv, _ := artifactServer(t)
	helper := New(srv.URL+"/loader.js", srv.URL+"/module.wasm")
	helper.instantiate = func([]byte) (moduleRunner, error) { return runner, nil }
	qt.Assert(t, helper.Init(context.Background()), qt.IsNil)
	return helper
}

func TestProofInputs(t *testing.T) {
	c := qt.New(t)

	result := &BallotProofResult{
		ProcessID:        types.HexBytes{0x03, 0x04},
		Address:          types.HexBytes{0x01, 0x02},
		Commitment:       types.NewInt(11),
		Nullifier:        types.NewInt(22),
		BallotInputsHash: types.NewInt(33),
		VoteID:           types.HexBytes{0xaa, 0xbb},
		CircomInputs:     &CircomInputs{MaxCount: "1"},
	}
	data, err := json.Marshal(result)
	c.Assert(err, qt.IsNil)
	envelope, err := json.Marshal(map[string]string{"data": string(data)})
	c.Assert(err, qt.IsNil)

	runner := &fakeRunner{response: envelope}
	helper := initializedHelper(t, runner)

	got, err := helper.ProofInputs(context.Background(), testInputs())
	c.Assert(err, qt.IsNil)
	c.Assert(got.VoteID.String(), qt.Equals, "0xaabb")
	c.Assert(got.Commitment.String(), qt.Equals, "11")
	c.Assert(got.Nullifier.String(), qt.Equals, "22")
	c.Assert(got.CircomInputs.MaxCount, qt.Equals, "1")
	c.Assert(runner.calls.Load(), qt.Equals, int64(1))
}

func TestProofInputsModuleError(t *testing.T) {
	c := qt.New(t)
	runner := &fakeRunner{response: []byte(`{"error":"Error encrypting ballot: bad point"}`)}
	helper := initializedHelper(t, runner)

	_, err := helper.ProofInputs(context.Background(), testInputs())
	c.Assert(err, qt.ErrorIs, ErrModuleCompute)
	c.Assert(err, qt.ErrorMatches, ".*Error encrypting ballot: bad point")
}

func TestProofInputsProtocolError(t *testing.T) {
	c := qt.New(t)

	for _, response := range []string{`{}`, `not json`, `{"data":""}`} {
		runner := &fakeRunner{response: []byte(response)}
		helper := initializedHelper(t, runner)
		_, err := helper.ProofInputs(context.Background(), testInputs())
		c.Assert(err, qt.ErrorIs, ErrModuleProtocol, qt.Commentf("response %q", response))
	}

	// a runner failure is a compute error, not a protocol one
	runner := &fakeRunner{err: fmt.Errorf("trap")}
	helper := initializedHelper(t, runner)
	_, err := helper.ProofInputs(context.Background(), testInputs())
	c.Assert(err, qt.ErrorIs, ErrModuleCompute)
}

func TestProofInputsValidation(t *testing.T) {
	c := qt.New(t)
	helper := initializedHelper(t, &fakeRunner{})

	inputs := testInputs()
	inputs.EncryptionKey = nil
	_, err := helper.ProofInputs(context.Background(), inputs)
	c.Assert(err, qt.ErrorMatches, "invalid ballot proof inputs: .*")

	// the module pads or drops to the circuit field count, so an oversized
	// vector must be rejected before it crosses the boundary
	inputs = testInputs()
	inputs.FieldValues = make([]*types.BigInt, types.FieldsPerBallot+1)
	for i := range inputs.FieldValues {
		inputs.FieldValues[i] = types.NewInt(0)
	}
	_, err = helper.ProofInputs(context.Background(), inputs)
	c.Assert(err, qt.ErrorMatches, "invalid ballot proof inputs: got 9 field values, the ballot fits 8")
}

func TestRandK(t *testing.T) {
	c := qt.New(t)
	k1 := RandK()
	k2 := RandK()
	c.Assert(k1, qt.IsNotNil)
	c.Assert(k1.Equal(k2), qt.IsFalse)
}
