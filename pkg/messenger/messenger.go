// Package messenger abstracts the point-to-point and all-gather exchanges of
// the round protocol. Implementations guarantee that AllGather releases only
// once every registered node has contributed exactly one message.
package messenger

import (
	"context"

	"github.com/rodneyosodo/fedcollab/round"
)

// Tag names a logical message channel of the round protocol.
type Tag string

const (
	TagRoundStart Tag = "round_start"
	TagReprAdvert Tag = "repr_advert"
	TagReprsShare Tag = "reprs_share"
	TagRoundStats Tag = "round_stats"
)

// Message is one gathered payload together with its sender identity.
type Message struct {
	From round.NodeID
	Data []byte
}

// Messenger is the transport seen by the coordinator and the nodes. Receive
// and AllGather block until satisfied or the context expires; an expired
// gather is fatal for the run, retries belong to the transport itself.
type Messenger interface {
	Send(ctx context.Context, dest round.NodeID, tag Tag, data []byte) error
	Receive(ctx context.Context, from round.NodeID, tag Tag) ([]byte, error)
	AllGather(ctx context.Context, tag Tag) ([]Message, error)
	Disconnect(ctx context.Context) error
}
