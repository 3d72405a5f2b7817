package round

import (
	"errors"
	"fmt"

	"github.com/fxamacker/cbor/v2"

	pkgerrors "github.com/rodneyosodo/fedcollab/pkg/errors"
	"github.com/rodneyosodo/fedcollab/pkg/model"
)

// Start is the coordinator's round start signal. The round number lets a
// node detect a desynchronized coordinator instead of silently proceeding.
type Start struct {
	Round int `json:"round" cbor:"round"`
}

// Advert carries a node's current representation to the coordinator's
// gather. The sender identity travels in the payload so the snapshot can be
// keyed by true NodeID rather than by gather position.
type Advert struct {
	From NodeID               `json:"from" cbor:"from"`
	Repr model.Representation `json:"repr" cbor:"repr"`
}

// Snapshot is the complete, round-consistent set of all nodes'
// representations, rebroadcast identically to every node.
type Snapshot struct {
	Round int                             `json:"round" cbor:"round"`
	Reprs map[NodeID]model.Representation `json:"reprs" cbor:"reprs"`
}

// Encode serializes a protocol payload with CBOR.
func Encode(v any) ([]byte, error) {
	data, err := cbor.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode payload: %w", err)
	}

	return data, nil
}

// Decode deserializes a protocol payload. An empty or malformed payload is
// a protocol fault.
func Decode(data []byte, v any) error {
	if len(data) == 0 {
		return fmt.Errorf("empty payload: %w", pkgerrors.ErrProtocol)
	}
	if err := cbor.Unmarshal(data, v); err != nil {
		return errors.Join(pkgerrors.ErrProtocol, err)
	}

	return nil
}
