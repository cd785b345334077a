package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultDedupTTL = time.Hour

// SendDedup remembers which message a client-supplied id produced so a resend
// is acknowledged without a second append.
// Key format: send:<sender>:<client_id>  Value: <message_id>|<0|1>
type SendDedup struct {
	client *redis.Client
	ttl    time.Duration
}

// NewSendDedup wraps client. A non-positive ttl falls back to one hour.
func NewSendDedup(client *redis.Client, ttl time.Duration) *SendDedup {
	if ttl <= 0 {
		ttl = defaultDedupTTL
	}
	return &SendDedup{client: client, ttl: ttl}
}

// Lookup returns the message id and delivered flag recorded for the pair.
func (d *SendDedup) Lookup(ctx context.Context, sender, clientID string) (string, bool, bool, error) {
	val, err := d.client.Get(ctx, d.key(sender, clientID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, false, nil
	}
	if err != nil {
		return "", false, false, fmt.Errorf("dedup lookup: %w", err)
	}

	id, flag, ok := strings.Cut(val, "|")
	if !ok || id == "" {
		return "", false, false, fmt.Errorf("dedup lookup: corrupt value %q", val)
	}
	return id, flag == "1", true, nil
}

// Remember records the outcome of a send. The first writer wins.
func (d *SendDedup) Remember(ctx context.Context, sender, clientID, id string, delivered bool) error {
	flag := "0"
	if delivered {
		flag = "1"
	}
	if err := d.client.SetNX(ctx, d.key(sender, clientID), id+"|"+flag, d.ttl).Err(); err != nil {
		return fmt.Errorf("dedup remember: %w", err)
	}
	return nil
}

func (d *SendDedup) key(sender, clientID string) string {
	return fmt.Sprintf("send:%s:%s", sender, clientID)
}
