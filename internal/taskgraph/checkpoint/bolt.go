package checkpoint

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/boltdb/bolt"
)

var bucketCheckpoints = []byte("taskgraph_checkpoints")

// BoltStore is a BoltDB-backed Checkpointer: a single bucket keyed by
// thread id holding the latest marshalled state.
type BoltStore struct {
	db *bolt.DB
}

// OpenBoltStore opens (and migrates) the checkpoint database at path.
func OpenBoltStore(path string) (*BoltStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create checkpoint dir: %w", err)
		}
	}
	db, err := bolt.Open(path, 0o600, nil)
	if err != nil {
		return nil, fmt.Errorf("open checkpoint db: %w", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketCheckpoints)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create checkpoint bucket: %w", err)
	}
	return &BoltStore{db: db}, nil
}

// Close closes the underlying BoltDB instance.
func (s *BoltStore) Close() error { return s.db.Close() }

func (s *BoltStore) Save(_ context.Context, threadID string, state []byte) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketCheckpoints).Put([]byte(threadID), state)
	})
}

func (s *BoltStore) Load(_ context.Context, threadID string) ([]byte, bool, error) {
	var out []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucketCheckpoints).Get([]byte(threadID))
		if v != nil {
			out = append([]byte(nil), v...)
		}
		return nil
	})
	if err != nil {
		return nil, false, fmt.Errorf("load checkpoint %s: %w", threadID, err)
	}
	return out, out != nil, nil
}

func (s *BoltStore) Delete(_ context.Context, threadID string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketCheckpoints).Delete([]byte(threadID))
	})
}

var _ Checkpointer = (*BoltStore)(nil)
