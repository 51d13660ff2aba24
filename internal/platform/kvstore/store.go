// Package kvstore provides the key/value persistence used for shopper state snapshots.
// Values are opaque JSON documents; backends only need get, set and remove.
package kvstore

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound is returned by Get when the key holds no value.
var ErrNotFound = errors.New("kvstore: key not found")

// Store persists opaque values by key.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Remove(ctx context.Context, key string) error
}

// Scoped returns a Store that prefixes every key with the given namespace segments.
func Scoped(store Store, segments ...string) Store {
	parts := make([]string, 0, len(segments))
	for _, seg := range segments {
		if seg = strings.Trim(strings.TrimSpace(seg), "/"); seg != "" {
			parts = append(parts, seg)
		}
	}
	if len(parts) == 0 {
		return store
	}
	prefix := strings.Join(parts, "/") + "/"
	if inner, ok := store.(scopedStore); ok {
		return scopedStore{inner: inner.inner, prefix: inner.prefix + prefix}
	}
	return scopedStore{inner: store, prefix: prefix}
}

type scopedStore struct {
	inner  Store
	prefix string
}

func (s scopedStore) Get(ctx context.Context, key string) ([]byte, error) {
	return s.inner.Get(ctx, s.prefix+key)
}

func (s scopedStore) Set(ctx context.Context, key string, value []byte) error {
	return s.inner.Set(ctx, s.prefix+key, value)
}

func (s scopedStore) Remove(ctx context.Context, key string) error {
	return s.inner.Remove(ctx, s.prefix+key)
}

// GetJSON loads key into dst. It reports false without error when the key is absent.
// A decode failure is returned as a *DecodeError so callers can discard the record.
func GetJSON(ctx context.Context, store Store, key string, dst any) (bool, error) {
	data, err := store.Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return false, &DecodeError{Key: key, Err: err}
	}
	return true, nil
}

// SetJSON encodes value and stores it under key.
func SetJSON(ctx context.Context, store Store, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("kvstore: encode %s: %w", key, err)
	}
	return store.Set(ctx, key, data)
}

// DecodeError reports a stored value that could not be decoded.
type DecodeError struct {
	Key string
	Err error
}

// Error implements the error interface.
func (e *DecodeError) Error() string {
	return fmt.Sprintf("kvstore: decode %s: %v", e.Key, e.Err)
}

// Unwrap exposes the underlying error.
func (e *DecodeError) Unwrap() error { return e.Err }

func hashedKey(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}
