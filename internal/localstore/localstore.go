package localstore

import (
	"context"
	"encoding/json"
	"fmt"
)

// KV is the persisted per-device store. Values are opaque bytes.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Close() error
}

func SubmissionStateKey(userID string) string {
	return "ladderSubmissionState_" + userID
}

func SnapshotKey(userID string) string {
	return "ladderSnapshot_" + userID
}

// LoadJSON decodes the value at key into dst. found is false when the key is
// absent.
func LoadJSON(ctx context.Context, kv KV, key string, dst any) (bool, error) {
	raw, found, err := kv.Get(ctx, key)
	if err != nil || !found {
		return false, err
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return false, fmt.Errorf("failed to decode %s: %w", key, err)
	}
	return true, nil
}

func SaveJSON(ctx context.Context, kv KV, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}
	return kv.Set(ctx, key, raw)
}
