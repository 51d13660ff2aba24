package kvstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const defaultFirestoreCollection = "storefront_sessions"

// FirestoreOption customises the FirestoreStore behaviour.
type FirestoreOption func(*FirestoreStore)

// WithCollection overrides the collection holding snapshot documents.
func WithCollection(name string) FirestoreOption {
	return func(store *FirestoreStore) {
		if name != "" {
			store.collection = name
		}
	}
}

// WithExpiry stamps documents with an expires_at field for a Firestore TTL policy.
func WithExpiry(ttl time.Duration) FirestoreOption {
	return func(store *FirestoreStore) {
		if ttl > 0 {
			store.ttl = ttl
		}
	}
}

// WithFirestoreClock overrides the clock used for timestamps.
func WithFirestoreClock(clock func() time.Time) FirestoreOption {
	return func(store *FirestoreStore) {
		if clock != nil {
			store.clock = clock
		}
	}
}

// FirestoreStore implements Store backed by Cloud Firestore. Keys are hashed into
// document ids because they contain path separators.
type FirestoreStore struct {
	client     *firestore.Client
	collection string
	ttl        time.Duration
	clock      func() time.Time
}

// NewFirestoreStore constructs a Firestore-backed store.
func NewFirestoreStore(client *firestore.Client, opts ...FirestoreOption) (*FirestoreStore, error) {
	if client == nil {
		return nil, errors.New("kvstore: firestore client is required")
	}
	store := &FirestoreStore{
		client:     client,
		collection: defaultFirestoreCollection,
		clock:      time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(store)
		}
	}
	return store, nil
}

// Get implements Store.
func (s *FirestoreStore) Get(ctx context.Context, key string) ([]byte, error) {
	snap, err := s.doc(key).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("kvstore: firestore get: %w", err)
	}
	var record firestoreRecord
	if err := snap.DataTo(&record); err != nil {
		return nil, fmt.Errorf("kvstore: firestore decode: %w", err)
	}
	if !record.ExpiresAt.IsZero() && !s.clock().Before(record.ExpiresAt) {
		return nil, ErrNotFound
	}
	return record.Value, nil
}

// Set implements Store.
func (s *FirestoreStore) Set(ctx context.Context, key string, value []byte) error {
	now := s.clock().UTC()
	record := firestoreRecord{
		Key:       key,
		Value:     append([]byte(nil), value...),
		UpdatedAt: now,
	}
	if s.ttl > 0 {
		record.ExpiresAt = now.Add(s.ttl)
	}
	if _, err := s.doc(key).Set(ctx, record); err != nil {
		return fmt.Errorf("kvstore: firestore set: %w", err)
	}
	return nil
}

// Remove implements Store.
func (s *FirestoreStore) Remove(ctx context.Context, key string) error {
	_, err := s.doc(key).Delete(ctx)
	if err != nil && status.Code(err) != codes.NotFound {
		return fmt.Errorf("kvstore: firestore delete: %w", err)
	}
	return nil
}

func (s *FirestoreStore) doc(key string) *firestore.DocumentRef {
	return s.client.Collection(s.collection).Doc(hashedKey(key))
}

type firestoreRecord struct {
	Key       string    `firestore:"key"`
	Value     []byte    `firestore:"value"`
	UpdatedAt time.Time `firestore:"updated_at"`
	ExpiresAt time.Time `firestore:"expires_at,omitempty"`
}
