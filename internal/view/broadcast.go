package view

import (
	"context"

	"finboard/pkg/rabbitmq"
)

type Publisher interface {
	Publish(ctx context.Context, msg *rabbitmq.InvalidationMessage) error
}

// Broadcast forwards invalidations to other processes through a broker.
// Origin identifies this process on the wire.
type Broadcast struct {
	Publisher Publisher
	Origin    string
}

func (b Broadcast) Invalidate(ctx context.Context, inv Invalidation) error {
	scopes := make([]string, len(inv.Scopes))
	for i, s := range inv.Scopes {
		scopes[i] = string(s)
	}
	return b.Publisher.Publish(ctx, &rabbitmq.InvalidationMessage{
		Origin:    b.Origin,
		UserID:    inv.UserID,
		Scopes:    scopes,
		Timestamp: inv.At,
	})
}

// Listener applies invalidations broadcast by other processes to a local
// invalidator, normally the view cache. Messages carrying Origin are skipped,
// this process already applied them before publishing.
type Listener struct {
	Local  Invalidator
	Origin string
}

func (l Listener) Handle(ctx context.Context, msg *rabbitmq.InvalidationMessage) error {
	if msg.Origin != "" && msg.Origin == l.Origin {
		return nil
	}
	if msg.UserID == "" {
		return nil
	}
	scopes := make([]Scope, len(msg.Scopes))
	for i, s := range msg.Scopes {
		scopes[i] = Scope(s)
	}
	return l.Local.Invalidate(ctx, Invalidation{
		UserID: msg.UserID,
		Scopes: scopes,
		At:     msg.Timestamp,
	})
}
