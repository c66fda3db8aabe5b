package bytecode

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// Snapshot is a post-mortem copy of machine state, suitable for writing
// to disk after a run.
type Snapshot struct {
	RunID     string  `cbor:"run_id"`
	State     string  `cbor:"state"`
	PC        int     `cbor:"pc"`
	Steps     uint64  `cbor:"steps"`
	Stack     []int32 `cbor:"stack"`
	CallStack []int   `cbor:"call_stack"`
	Memory    []int32 `cbor:"memory"`
	Fault     string  `cbor:"fault,omitempty"`
}

// canonical mode keeps snapshots of identical state byte-identical.
var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("bytecode: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// Snapshot captures the current machine state.
func (vm *VM) Snapshot() *Snapshot {
	s := &Snapshot{
		RunID:     vm.id.String(),
		State:     vm.state.String(),
		PC:        vm.pc,
		Steps:     vm.steps,
		Stack:     vm.Stack(),
		CallStack: vm.CallStack(),
		Memory:    vm.Memory(),
	}
	if vm.fault != nil {
		s.Fault = vm.fault.Error()
	}
	return s
}

// MarshalSnapshot serializes a Snapshot to CBOR bytes.
func MarshalSnapshot(s *Snapshot) ([]byte, error) {
	return cborEncMode.Marshal(s)
}

// UnmarshalSnapshot deserializes a Snapshot from CBOR bytes.
func UnmarshalSnapshot(data []byte) (*Snapshot, error) {
	var s Snapshot
	if err := cbor.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("bytecode: unmarshal snapshot: %w", err)
	}
	return &s, nil
}
