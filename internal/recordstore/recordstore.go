// Package recordstore persists whole collections of records as JSON text
// under fixed keys of a kv.Storage.
//
// Reads never fail on bad data: a missing slot is seeded with its defaults,
// and a slot whose text is not a JSON array degrades to a copy of the
// defaults while the stored text is left as it was. Writes replace the whole
// slot; there is no merge and no versioning, so the last writer wins.
package recordstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"

	"github.com/vbonduro/canary/internal/kv"
)

// Ensure returns the collection stored under key. When nothing is stored
// yet, defaults is written first. The returned slice never aliases defaults.
func Ensure[T any](ctx context.Context, storage kv.Storage, key string, defaults []T) ([]T, error) {
	stored, found, err := storage.Get(ctx, key)
	if err != nil {
		return nil, err
	}

	if !found || stored == "" {
		if err := Save(ctx, storage, key, defaults); err != nil {
			return nil, err
		}
		return clone(defaults), nil
	}

	records, err := decode[T](stored)
	if err != nil {
		slog.WarnContext(ctx, "stored collection is malformed, using defaults", "key", key, "error", err)
		return clone(defaults), nil
	}
	return records, nil
}

// Save overwrites the slot under key with collection.
func Save[T any](ctx context.Context, storage kv.Storage, key string, collection []T) error {
	if collection == nil {
		collection = []T{}
	}
	data, err := json.Marshal(collection)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}
	if err := storage.Set(ctx, key, string(data)); err != nil {
		return fmt.Errorf("failed to save %s: %w", key, err)
	}
	return nil
}

func decode[T any](text string) ([]T, error) {
	trimmed := bytes.TrimSpace([]byte(text))
	// json.Unmarshal accepts null for a slice; only an array is a collection.
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, fmt.Errorf("not a JSON array")
	}
	records := []T{}
	if err := json.Unmarshal(trimmed, &records); err != nil {
		return nil, err
	}
	return records, nil
}

// clone copies a collection of flat records. Records hold only value fields,
// so a shallow slice copy shares no memory with the source.
func clone[T any](records []T) []T {
	if records == nil {
		return []T{}
	}
	return slices.Clone(records)
}
