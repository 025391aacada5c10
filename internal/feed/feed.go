// Package feed maintains the streaming connection to the token launch
// push feed and turns its messages into typed events.
package feed

import (
	"context"

	"pumpwatch/internal/domain"
)

// Topic names a feed subscription channel.
type Topic string

const (
	TopicNewToken  Topic = "subscribeNewToken"
	TopicMigration Topic = "subscribeMigration"
	TopicTrade     Topic = "subscribeTokenTrade"
)

// unsubscribeMethod maps a subscribe method to its inverse.
func unsubscribeMethod(t Topic) string {
	switch t {
	case TopicNewToken:
		return "unsubscribeNewToken"
	case TopicMigration:
		return "unsubscribeMigration"
	case TopicTrade:
		return "unsubscribeTokenTrade"
	default:
		return ""
	}
}

// Client defines the feed connection interface.
type Client interface {
	// Subscribe opens the requested topics and returns a handle whose
	// channel carries every recognized event until the handle is
	// cancelled or the client closed.
	Subscribe(ctx context.Context, topics ...Topic) (*Subscription, error)

	// IsConnected reports whether a live socket is currently open.
	IsConnected() bool

	// Close tears the connection down permanently. No reconnect is
	// attempted after Close.
	Close() error
}

// Subscription is an explicit handle over a stream of feed events.
type Subscription struct {
	C      <-chan domain.Event
	cancel func()
}

// Cancel detaches the subscription. The channel is closed and no
// further events are delivered. Safe to call more than once.
func (s *Subscription) Cancel() {
	if s.cancel != nil {
		s.cancel()
	}
}
