package notify

import (
	"context"

	"github.com/go-redis/redis/v8"
	"golang.org/x/xerrors"
)

// DefaultStream is the name of the stream the events are appended to.
const DefaultStream = "sealbid:events"

// streamClient is the part of the Redis client used by the publisher.
type streamClient interface {
	XAdd(ctx context.Context, a *redis.XAddArgs) *redis.StringCmd
}

// Redis is a publisher that appends the events to a Redis stream so that
// external consumers can follow the ledger.
//
// - implements notify.Publisher
type Redis struct {
	client streamClient
	stream string
	maxLen int64
}

// RedisOption is the type of option to create a Redis publisher.
type RedisOption func(*Redis)

// WithStream sets the name of the stream.
func WithStream(name string) RedisOption {
	return func(r *Redis) {
		r.stream = name
	}
}

// WithMaxLen caps the approximate length of the stream.
func WithMaxLen(n int64) RedisOption {
	return func(r *Redis) {
		r.maxLen = n
	}
}

// NewRedis returns a publisher using the client.
func NewRedis(client *redis.Client, opts ...RedisOption) Redis {
	return newRedis(client, opts...)
}

func newRedis(client streamClient, opts ...RedisOption) Redis {
	r := Redis{
		client: client,
		stream: DefaultStream,
	}

	for _, opt := range opts {
		opt(&r)
	}

	return r
}

// Publish implements notify.Publisher. The event is stored in the stream
// entry under its kind and its JSON encoding.
func (r Redis) Publish(ctx context.Context, e Event) error {
	data, err := e.Encode()
	if err != nil {
		return err
	}

	args := &redis.XAddArgs{
		Stream: r.stream,
		Values: map[string]interface{}{
			"id":    e.ID,
			"kind":  string(e.Kind),
			"event": string(data),
		},
	}

	if r.maxLen > 0 {
		args.MaxLen = r.maxLen
		args.Approx = true
	}

	err = r.client.XAdd(ctx, args).Err()
	if err != nil {
		return xerrors.Errorf("failed to append to stream '%s': %v", r.stream, err)
	}

	return nil
}
