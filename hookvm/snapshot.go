package hookvm

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// ---------------------------------------------------------------------------
// Snapshot: CBOR wire format for the program table
// ---------------------------------------------------------------------------

// cborEncMode uses canonical mode so identical program tables encode to
// identical bytes.
var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("hookvm: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// Snapshot is a serializable copy of a VM's program table, used for
// diagnostics and for carrying loaded programs between contexts.
type Snapshot struct {
	Version  int               `cbor:"version"`
	Programs map[uint32][]byte `cbor:"programs"`
}

// SnapshotVersion is the current snapshot format version.
const SnapshotVersion = 1

// Snapshot copies the VM's program table into a Snapshot.
func (vm *VM) Snapshot() *Snapshot {
	s := &Snapshot{
		Version:  SnapshotVersion,
		Programs: make(map[uint32][]byte, len(vm.programs)),
	}
	for id, code := range vm.programs {
		cp := make([]byte, len(code))
		copy(cp, code)
		s.Programs[id] = cp
	}
	return s
}

// Restore loads every program in the snapshot, overwriting programs already
// stored under the same identifiers.
func (vm *VM) Restore(s *Snapshot) error {
	if s.Version != SnapshotVersion {
		return fmt.Errorf("hookvm: snapshot version %d, want %d", s.Version, SnapshotVersion)
	}
	for id, code := range s.Programs {
		vm.AddProgram(id, code)
	}
	return nil
}

// MarshalSnapshot serializes a Snapshot to CBOR bytes.
func MarshalSnapshot(s *Snapshot) ([]byte, error) {
	return cborEncMode.Marshal(s)
}

// UnmarshalSnapshot deserializes a Snapshot from CBOR bytes.
func UnmarshalSnapshot(data []byte) (*Snapshot, error) {
	var s Snapshot
	if err := cbor.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("hookvm: unmarshal snapshot: %w", err)
	}
	return &s, nil
}
