// Package idempotency remembers which purchase answered an Idempotency-Key so
// a retried request replays the first result instead of buying twice.
//
// A key goes through two states. Begin claims it as pending inside a single
// write transaction, so of two concurrent requests with the same key exactly
// one proceeds. Complete records the purchase, or Release drops the claim
// when the purchase failed and a retry should be allowed. Entries older than
// the TTL are treated as absent and removed by Purge.
package idempotency

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "github.com/boltdb/bolt"
)

const bucketName = "purchase_keys"

// ErrNotFound is returned when no live entry exists for a key.
var ErrNotFound = errors.New("idempotency key not found")

// State is the lifecycle of a claimed key.
type State string

const (
	StatePending State = "pending"
	StateDone    State = "done"
)

// Entry is the value stored per key.
type Entry struct {
	State      State     `json:"state"`
	PurchaseID string    `json:"purchase_id,omitempty"`
	CreatedAt  time.Time `json:"created_at"`

	// Response is the encoded reply sent the first time, replayed verbatim.
	Response json.RawMessage `json:"response,omitempty"`
}

// Store wraps a BoltDB database of idempotency entries.
type Store struct {
	db  *bolt.DB
	ttl time.Duration

	now func() time.Time
}

// New opens (or creates) the database at path.
func New(path string, ttl time.Duration) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create idempotency directory: %w", err)
	}

	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open idempotency store: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucketName))
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create bucket: %w", err)
	}

	return &Store{db: db, ttl: ttl, now: time.Now}, nil
}

// Close releases the database file lock.
func (s *Store) Close() error {
	return s.db.Close()
}

func entryKey(userID, key string) []byte {
	return []byte(userID + "\x00" + key)
}

func (s *Store) live(e *Entry) bool {
	return s.now().Sub(e.CreatedAt) < s.ttl
}

func decode(v []byte) (*Entry, error) {
	var e Entry
	if err := json.Unmarshal(v, &e); err != nil {
		return nil, fmt.Errorf("failed to decode entry: %w", err)
	}
	return &e, nil
}

// Get returns the live entry for the user's key.
func (s *Store) Get(userID, key string) (*Entry, error) {
	var entry *Entry
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket([]byte(bucketName)).Get(entryKey(userID, key))
		if v == nil {
			return ErrNotFound
		}
		e, err := decode(v)
		if err != nil {
			return err
		}
		if !s.live(e) {
			return ErrNotFound
		}
		entry = e
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// Begin claims the key. When a live entry already exists it is returned with
// claimed false and nothing is written.
func (s *Store) Begin(userID, key string) (entry *Entry, claimed bool, err error) {
	err = s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketName))
		k := entryKey(userID, key)

		if v := b.Get(k); v != nil {
			e, err := decode(v)
			if err != nil {
				return err
			}
			if s.live(e) {
				entry = e
				return nil
			}
		}

		e := &Entry{State: StatePending, CreatedAt: s.now()}
		data, err := json.Marshal(e)
		if err != nil {
			return err
		}
		entry, claimed = e, true
		return b.Put(k, data)
	})
	if err != nil {
		return nil, false, err
	}
	return entry, claimed, nil
}

// Complete records the purchase that answered the key and the response to
// replay. response must be JSON.
func (s *Store) Complete(userID, key, purchaseID string, response []byte) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketName))
		k := entryKey(userID, key)

		createdAt := s.now()
		if v := b.Get(k); v != nil {
			if e, err := decode(v); err == nil {
				createdAt = e.CreatedAt
			}
		}

		data, err := json.Marshal(&Entry{
			State:      StateDone,
			PurchaseID: purchaseID,
			CreatedAt:  createdAt,
			Response:   response,
		})
		if err != nil {
			return err
		}
		return b.Put(k, data)
	})
}

// Release drops a claim so the key can be retried.
func (s *Store) Release(userID, key string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(bucketName)).Delete(entryKey(userID, key))
	})
}

// Purge deletes expired entries and returns how many were removed.
func (s *Store) Purge() (int, error) {
	removed := 0
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketName))

		var expired [][]byte
		err := b.ForEach(func(k, v []byte) error {
			e, err := decode(v)
			if err != nil || !s.live(e) {
				expired = append(expired, append([]byte(nil), k...))
			}
			return nil
		})
		if err != nil {
			return err
		}

		for _, k := range expired {
			if err := b.Delete(k); err != nil {
				return err
			}
		}
		removed = len(expired)
		return nil
	})
	return removed, err
}
