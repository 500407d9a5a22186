package auth

import (
	"context"
	"errors"

	"voice-broker/internal/channels"
)

type ctxKey int

const ctxChannel ctxKey = iota

// WithChannel stores the channel resolved from the routing token.
func WithChannel(ctx context.Context, ch channels.Channel) context.Context {
	return context.WithValue(ctx, ctxChannel, ch)
}

func ChannelFrom(ctx context.Context) (channels.Channel, error) {
	if ch, ok := ctx.Value(ctxChannel).(channels.Channel); ok && ch.ID != 0 {
		return ch, nil
	}
	return channels.Channel{}, errors.New("channel not in context")
}
