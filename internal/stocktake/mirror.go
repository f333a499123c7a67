package stocktake

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const sessionIndexKey = "stockTakeSessions"

// progressKey namespaces per-session mirrors so concurrent sessions cannot
// cross-write each other's entries.
func progressKey(sessionID string) string {
	return fmt.Sprintf("stockTakeSession_%s", sessionID)
}

// Mirror keeps a local copy of in-flight progress maps in Redis. It is a
// resume fallback only and never authoritative when the remote row has data.
type Mirror struct {
	client *redis.Client
	ttl    time.Duration
}

// NewMirror instantiates the mirror helper.
func NewMirror(client *redis.Client, ttl time.Duration) *Mirror {
	return &Mirror{client: client, ttl: ttl}
}

// SaveProgress stores the progress map for the session and registers the
// session id in the index.
func (m *Mirror) SaveProgress(ctx context.Context, sessionID string, progress map[string]CountEntry) error {
	if m == nil || m.client == nil {
		return nil
	}
	payload, err := json.Marshal(progress)
	if err != nil {
		return err
	}
	if err := m.client.Set(ctx, progressKey(sessionID), payload, m.ttl).Err(); err != nil {
		return err
	}
	return m.client.SAdd(ctx, sessionIndexKey, sessionID).Err()
}

// LoadProgress returns the mirrored progress map, or nil when absent.
func (m *Mirror) LoadProgress(ctx context.Context, sessionID string) (map[string]CountEntry, error) {
	if m == nil || m.client == nil {
		return nil, nil
	}
	raw, err := m.client.Get(ctx, progressKey(sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var progress map[string]CountEntry
	if err := json.Unmarshal(raw, &progress); err != nil {
		return nil, err
	}
	return progress, nil
}

// Delete removes the session's mirror and index entry.
func (m *Mirror) Delete(ctx context.Context, sessionID string) error {
	if m == nil || m.client == nil {
		return nil
	}
	if err := m.client.Del(ctx, progressKey(sessionID)).Err(); err != nil {
		return err
	}
	return m.client.SRem(ctx, sessionIndexKey, sessionID).Err()
}

// Sessions lists the session ids currently mirrored. Used by the sweep job.
func (m *Mirror) Sessions(ctx context.Context) ([]string, error) {
	if m == nil || m.client == nil {
		return nil, nil
	}
	return m.client.SMembers(ctx, sessionIndexKey).Result()
}
