package messenger

import (
	"context"
	"errors"
	"fmt"
	"sync"

	pkgerrors "github.com/rodneyosodo/fedcollab/pkg/errors"
	"github.com/rodneyosodo/fedcollab/round"
)

// Hub is an in-process transport: every (destination, sender, tag) triple is
// a buffered channel, so suspension is explicit and no delivery depends on
// goroutine scheduling. One Hub backs a whole simulated run.
type Hub struct {
	participants []round.NodeID

	mu    sync.Mutex
	links map[link]chan []byte
}

type link struct {
	dest, from round.NodeID
	tag        Tag
}

// NewHub registers the client node identities. Registration order is the
// order AllGather returns messages in.
func NewHub(participants []round.NodeID) *Hub {
	return &Hub{
		participants: participants,
		links:        make(map[link]chan []byte),
	}
}

func (h *Hub) channel(l link) chan []byte {
	h.mu.Lock()
	defer h.mu.Unlock()

	ch, ok := h.links[l]
	if !ok {
		ch = make(chan []byte, 1)
		h.links[l] = ch
	}

	return ch
}

// Endpoint returns the Messenger bound to the given identity.
func (h *Hub) Endpoint(id round.NodeID) Messenger {
	return &endpoint{hub: h, id: id}
}

type endpoint struct {
	hub *Hub
	id  round.NodeID
}

func (e *endpoint) Send(ctx context.Context, dest round.NodeID, tag Tag, data []byte) error {
	select {
	case e.hub.channel(link{dest: dest, from: e.id, tag: tag}) <- data:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("send to node %d on %s: %w", dest, tag, errors.Join(pkgerrors.ErrProtocol, ctx.Err()))
	}
}

func (e *endpoint) Receive(ctx context.Context, from round.NodeID, tag Tag) ([]byte, error) {
	select {
	case data := <-e.hub.channel(link{dest: e.id, from: from, tag: tag}):
		return data, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("receive from node %d on %s: %w", from, tag, errors.Join(pkgerrors.ErrProtocol, ctx.Err()))
	}
}

func (e *endpoint) AllGather(ctx context.Context, tag Tag) ([]Message, error) {
	msgs := make([]Message, 0, len(e.hub.participants))
	for _, id := range e.hub.participants {
		data, err := e.Receive(ctx, id, tag)
		if err != nil {
			return nil, fmt.Errorf("gather on %s incomplete after %d of %d: %w", tag, len(msgs), len(e.hub.participants), err)
		}
		msgs = append(msgs, Message{From: id, Data: data})
	}

	return msgs, nil
}

func (e *endpoint) Disconnect(_ context.Context) error {
	return nil
}
