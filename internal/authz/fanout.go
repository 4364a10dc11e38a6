package authz

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

// DefaultInvalidationChannel is the pub/sub channel invalidations travel on.
const DefaultInvalidationChannel = "meridian:authz:invalidate"

// Invalidator is the mutation-side contract: role and assignment services
// call it whenever a change makes cached permission sets stale.
type Invalidator interface {
	Invalidate(ctx context.Context, key Key)
	InvalidatePrincipal(ctx context.Context, principalID string)
	InvalidateAll(ctx context.Context)
}

// LocalInvalidator applies invalidations to a single in-process cache, for
// single-instance deployments and tests.
type LocalInvalidator struct {
	Cache *Cache
}

func (l LocalInvalidator) Invalidate(_ context.Context, key Key) { l.Cache.Invalidate(key) }
func (l LocalInvalidator) InvalidatePrincipal(_ context.Context, principalID string) {
	l.Cache.InvalidatePrincipal(principalID)
}
func (l LocalInvalidator) InvalidateAll(_ context.Context) { l.Cache.InvalidateAll() }

type invalidationMessage struct {
	PrincipalID string `json:"principalId,omitempty"`
	OrgID       string `json:"orgId,omitempty"`
	All         bool   `json:"all,omitempty"`
}

// Fanout broadcasts cache invalidations over redis pub/sub so every instance
// drops its local entry when a mutation lands on any of them. Messages are
// idempotent; the publishing instance also applies them via its own
// subscription, and additionally applies them locally up front so a
// same-instance read after a mutation never sees the stale entry.
type Fanout struct {
	client  *redis.Client
	cache   *Cache
	channel string
	logger  *slog.Logger
}

// NewFanout constructs a Fanout for the given cache. An empty channel uses
// DefaultInvalidationChannel.
func NewFanout(client *redis.Client, cache *Cache, channel string, logger *slog.Logger) *Fanout {
	if channel == "" {
		channel = DefaultInvalidationChannel
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Fanout{client: client, cache: cache, channel: channel, logger: logger}
}

// Invalidate drops the key locally and broadcasts it.
func (f *Fanout) Invalidate(ctx context.Context, key Key) {
	f.cache.Invalidate(key)
	f.publish(ctx, invalidationMessage{PrincipalID: key.PrincipalID, OrgID: key.OrgID})
}

// InvalidatePrincipal drops all of the principal's keys locally and
// broadcasts the principal-wide invalidation.
func (f *Fanout) InvalidatePrincipal(ctx context.Context, principalID string) {
	f.cache.InvalidatePrincipal(principalID)
	f.publish(ctx, invalidationMessage{PrincipalID: principalID})
}

// InvalidateAll drops everything locally and broadcasts a full flush.
func (f *Fanout) InvalidateAll(ctx context.Context) {
	f.cache.InvalidateAll()
	f.publish(ctx, invalidationMessage{All: true})
}

func (f *Fanout) publish(ctx context.Context, msg invalidationMessage) {
	payload, err := json.Marshal(msg)
	if err != nil {
		f.logger.Error("marshal invalidation", slog.Any("error", err))
		return
	}
	if err := f.client.Publish(ctx, f.channel, payload).Err(); err != nil {
		// Local invalidation already happened; remote staleness is bounded
		// by the cache TTL safety net.
		f.logger.Error("publish invalidation", slog.Any("error", err))
	}
}

// Listen subscribes to the invalidation channel and applies messages to the
// local cache until the context is cancelled.
func (f *Fanout) Listen(ctx context.Context) error {
	sub := f.client.Subscribe(ctx, f.channel)
	defer func() { _ = sub.Close() }()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			f.apply([]byte(msg.Payload))
		}
	}
}

func (f *Fanout) apply(payload []byte) {
	var msg invalidationMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		f.logger.Warn("drop malformed invalidation", slog.Any("error", err))
		return
	}
	switch {
	case msg.All:
		f.cache.InvalidateAll()
	case msg.OrgID == "":
		f.cache.InvalidatePrincipal(msg.PrincipalID)
	default:
		f.cache.Invalidate(Key{PrincipalID: msg.PrincipalID, OrgID: msg.OrgID})
	}
}
