package ballotproof

import (
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/iden3/wasmer-go/wasmer"
)

// wasmRunner executes the helper module with the wasmer runtime. The guest
// exposes a linear-memory ABI: malloc/free manage guest memory, and
// proofInputs(ptr, len) returns a pointer to a response region holding a
// 4-byte little-endian length followed by the JSON envelope bytes.
type wasmRunner struct {
	mu          sync.Mutex
	instance    *wasmer.Instance
	memory      *wasmer.Memory
	proofInputs wasmer.NativeFunction
	malloc      wasmer.NativeFunction
	free        wasmer.NativeFunction
}

func newWasmRunner(module []byte) (moduleRunner, error) {
	engine := wasmer.NewEngine()
	store := wasmer.NewStore(engine)
	compiled, err := wasmer.NewModule(store, module)
	if err != nil {
		return nil, fmt.Errorf("failed to compile module: %w", err)
	}
	instance, err := wasmer.NewInstance(compiled, wasmer.NewImportObject())
	if err != nil {
		return nil, fmt.Errorf("failed to instantiate module: %w", err)
	}
	memory, err := instance.Exports.GetMemory("memory")
	if err != nil {
		return nil, fmt.Errorf("module exports no memory: %w", err)
	}
	runner := &wasmRunner{instance: instance, memory: memory}
	// the entry point must be exported for the module to be usable
	if runner.proofInputs, err = instance.Exports.GetFunction("proofInputs"); err != nil {
		return nil, fmt.Errorf("module entry point not available: %w", err)
	}
	if runner.malloc, err = instance.Exports.GetFunction("malloc"); err != nil {
		return nil, fmt.Errorf("module exports no allocator: %w", err)
	}
	if runner.free, err = instance.Exports.GetFunction("free"); err != nil {
		return nil, fmt.Errorf("module exports no deallocator: %w", err)
	}
	return runner, nil
}

// ProofInputs copies the payload into guest memory, invokes the entry point
// and copies the response out. The instance is not reentrant, so calls are
// serialized.
func (r *wasmRunner) ProofInputs(payload []byte) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ptrValue, err := r.malloc(len(payload))
	if err != nil {
		return nil, fmt.Errorf("guest allocation failed: %w", err)
	}
	inputPtr, ok := toUint32(ptrValue)
	if !ok {
		return nil, fmt.Errorf("guest allocator returned %v", ptrValue)
	}
	data := r.memory.Data()
	if int(inputPtr)+len(payload) > len(data) {
		return nil, fmt.Errorf("guest allocation out of bounds")
	}
	copy(data[inputPtr:], payload)

	resultValue, err := r.proofInputs(inputPtr, len(payload))
	if freeErr := r.freePtr(inputPtr); freeErr != nil && err == nil {
		err = freeErr
	}
	if err != nil {
		return nil, fmt.Errorf("guest call failed: %w", err)
	}
	resultPtr, ok := toUint32(resultValue)
	if !ok {
		return nil, fmt.Errorf("guest call returned %v", resultValue)
	}

	// the call may have grown guest memory, re-read the view
	data = r.memory.Data()
	if int(resultPtr)+4 > len(data) {
		return nil, fmt.Errorf("guest response out of bounds")
	}
	size := binary.LittleEndian.Uint32(data[resultPtr : resultPtr+4])
	start := int(resultPtr) + 4
	if start+int(size) > len(data) {
		return nil, fmt.Errorf("guest response out of bounds")
	}
	response := make([]byte, size)
	copy(response, data[start:start+int(size)])

	if err := r.freePtr(resultPtr); err != nil {
		return nil, err
	}
	return response, nil
}

func (r *wasmRunner) Close() {
	r.instance.Close()
}

func (r *wasmRunner) freePtr(ptr uint32) error {
	if _, err := r.free(ptr); err != nil {
		return fmt.Errorf("guest deallocation failed: %w", err)
	}
	return nil
}

func toUint32(v any) (uint32, bool) {
	switch value := v.(type) {
	case int32:
		return uint32(value), true
	case int64:
		return uint32(value), true
	default:
		return 0, false
	}
}
