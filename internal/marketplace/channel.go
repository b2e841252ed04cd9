package marketplace

import (
	"context"

	"github.com/google/uuid"
)

// Channel is one external sales platform. Implementations own the wire
// protocol; the service only sees refs and errors.
type Channel interface {
	Name() string
	// Publish pushes the listing and returns the channel-side reference.
	Publish(ctx context.Context, listing Listing) (string, error)
	// Delist removes the listing from the channel.
	Delist(ctx context.Context, externalRef string) error
}

// simChannel is an in-process channel used until real channel adapters land.
// It accepts every publish and mints a reference.
type simChannel struct {
	name string
}

func (c *simChannel) Name() string { return c.name }

func (c *simChannel) Publish(ctx context.Context, listing Listing) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return c.name + "-" + uuid.NewString(), nil
}

func (c *simChannel) Delist(ctx context.Context, externalRef string) error {
	return ctx.Err()
}

// NewSimChannels builds one simulated channel per configured name.
func NewSimChannels(names []string) []Channel {
	out := make([]Channel, 0, len(names))
	for _, name := range names {
		out = append(out, &simChannel{name: name})
	}
	return out
}
