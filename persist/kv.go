package persist

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/newsfold/newsfold/topic"
)

// DefaultBucket is the JetStream key-value bucket for briefings.
const DefaultBucket = "BRIEFINGS"

// Record is one persisted briefing run.
type Record struct {
	UserID    string                `json:"user_id"`
	CreatedAt time.Time             `json:"created_at"`
	Results   []topic.SummaryResult `json:"results"`
}

// KVStore persists briefings in a NATS JetStream key-value bucket, keyed by
// "<user>.<unix-nanos>" so a user's runs sort chronologically.
type KVStore struct {
	kv     jetstream.KeyValue
	logger *slog.Logger
}

// NewKVStore creates (or binds to) the bucket on the given connection.
func NewKVStore(ctx context.Context, nc *nats.Conn, bucket string, logger *slog.Logger) (*KVStore, error) {
	if bucket == "" {
		bucket = DefaultBucket
	}
	if logger == nil {
		logger = slog.Default()
	}

	js, err := jetstream.New(nc)
	if err != nil {
		return nil, fmt.Errorf("create jetstream context: %w", err)
	}

	kv, err := js.CreateOrUpdateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket:      bucket,
		Description: "Completed briefing runs",
	})
	if err != nil {
		return nil, fmt.Errorf("bind briefings bucket %q: %w", bucket, err)
	}

	return &KVStore{kv: kv, logger: logger}, nil
}

// Persist implements Persister.
func (s *KVStore) Persist(ctx context.Context, userID string, results []topic.SummaryResult) error {
	record := Record{
		UserID:    userID,
		CreatedAt: time.Now().UTC(),
		Results:   results,
	}
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal briefing record: %w", err)
	}

	key := fmt.Sprintf("%s.%d", sanitizeKey(userID), record.CreatedAt.UnixNano())
	if _, err := s.kv.Put(ctx, key, data); err != nil {
		return fmt.Errorf("store briefing %s: %w", key, err)
	}

	s.logger.Info("Briefing persisted", "user_id", userID, "key", key, "results", len(results))
	return nil
}

// Latest returns the most recent record for userID, or nil if none exists.
func (s *KVStore) Latest(ctx context.Context, userID string) (*Record, error) {
	prefix := sanitizeKey(userID) + "."

	lister, err := s.kv.ListKeys(ctx)
	if err != nil {
		return nil, fmt.Errorf("list briefing keys: %w", err)
	}

	var latestKey string
	var latestNanos int64
	for key := range lister.Keys() {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		nanos, err := strconv.ParseInt(strings.TrimPrefix(key, prefix), 10, 64)
		if err != nil {
			continue
		}
		if nanos > latestNanos {
			latestNanos = nanos
			latestKey = key
		}
	}
	if latestKey == "" {
		return nil, nil
	}

	entry, err := s.kv.Get(ctx, latestKey)
	if err != nil {
		return nil, fmt.Errorf("get briefing %s: %w", latestKey, err)
	}

	var record Record
	if err := json.Unmarshal(entry.Value(), &record); err != nil {
		return nil, fmt.Errorf("unmarshal briefing %s: %w", latestKey, err)
	}
	return &record, nil
}

// sanitizeKey maps a user ID onto the KV key alphabet. Dots are reserved as
// the key separator.
func sanitizeKey(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	if b.Len() == 0 {
		return "anonymous"
	}
	return b.String()
}
