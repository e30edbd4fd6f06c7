// Package storage persists memory snapshots: item records in a bbolt
// key-value store and their trained vectors in a memory-mapped flat file.
// The memory manager itself owns no storage; this is the persistence
// collaborator wired to its Export/Import surface.
package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.etcd.io/bbolt"

	"github.com/Aikinexis/flint/internal/embed"
	"github.com/Aikinexis/flint/internal/types"
)

var (
	bucketMemories = []byte("memories")
	bucketEmbedder = []byte("embedder")
)

var stateKey = []byte("state")

// SnapshotStore saves and restores a memory manager's exported state.
// Item text and metadata live in memories.db; trained vectors live in
// vectors.bin, keyed by snapshot order.
type SnapshotStore struct {
	db      *bbolt.DB
	vecPath string
}

// OpenSnapshotStore opens (creating if needed) the snapshot files in dir.
func OpenSnapshotStore(dir string) (*SnapshotStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create snapshot dir: %w", err)
	}

	db, err := bbolt.Open(filepath.Join(dir, "memories.db"), 0600, &bbolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, err
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(bucketMemories); err != nil {
			return err
		}
		if _, err := tx.CreateBucketIfNotExists(bucketEmbedder); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &SnapshotStore{db: db, vecPath: filepath.Join(dir, "vectors.bin")}, nil
}

// Save replaces the stored snapshot with the given items and vocabulary.
// Items are stored in slice order so insertion order survives a round trip.
func (s *SnapshotStore) Save(items []types.MemoryItem, vocab embed.State) error {
	err := s.db.Update(func(tx *bbolt.Tx) error {
		if err := tx.DeleteBucket(bucketMemories); err != nil {
			return err
		}
		b, err := tx.CreateBucket(bucketMemories)
		if err != nil {
			return err
		}
		for i, item := range items {
			data, err := json.Marshal(item)
			if err != nil {
				return err
			}
			if err := b.Put([]byte(fmt.Sprintf("%08d", i)), data); err != nil {
				return err
			}
		}

		eb := tx.Bucket(bucketEmbedder)
		state, err := json.Marshal(vocab)
		if err != nil {
			return err
		}
		return eb.Put(stateKey, state)
	})
	if err != nil {
		return err
	}

	return s.saveVectors(items, len(vocab.Terms))
}

func (s *SnapshotStore) saveVectors(items []types.MemoryItem, dim int) error {
	// The file dimension is the vocabulary size; the old file is replaced
	// wholesale since a retrain changes the dimension.
	if err := os.Remove(s.vecPath); err != nil && !os.IsNotExist(err) {
		return err
	}
	if dim == 0 {
		// Untrained snapshot: nothing to persist, vectors are rebuilt by Train.
		return nil
	}

	vf, err := OpenVectorFile(s.vecPath, dim)
	if err != nil {
		return err
	}
	defer vf.Close()

	zero := make(types.Vector, dim)
	for _, item := range items {
		vec := item.Vector
		if len(vec) != dim {
			// Item added after the last train; a zero vector keeps snapshot
			// order aligned with vector index.
			vec = zero
		}
		if _, err := vf.Append(vec); err != nil {
			return err
		}
	}
	return nil
}

// Load reads the stored snapshot. Vectors are reattached when a vector file
// matching the stored vocabulary exists; otherwise items come back without
// vectors and the caller retrains.
func (s *SnapshotStore) Load() ([]types.MemoryItem, embed.State, error) {
	var (
		items []types.MemoryItem
		vocab embed.State
	)
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketMemories)
		if err := b.ForEach(func(_, v []byte) error {
			var item types.MemoryItem
			if err := json.Unmarshal(v, &item); err != nil {
				return err
			}
			items = append(items, item)
			return nil
		}); err != nil {
			return err
		}

		if data := tx.Bucket(bucketEmbedder).Get(stateKey); data != nil {
			return json.Unmarshal(data, &vocab)
		}
		return nil
	})
	if err != nil {
		return nil, embed.State{}, err
	}

	dim := len(vocab.Terms)
	if dim > 0 {
		if _, err := os.Stat(s.vecPath); err == nil {
			if err := s.loadVectors(items, dim); err != nil {
				return nil, embed.State{}, err
			}
		}
	}
	return items, vocab, nil
}

func (s *SnapshotStore) loadVectors(items []types.MemoryItem, dim int) error {
	vf, err := OpenVectorFile(s.vecPath, dim)
	if err != nil {
		return err
	}
	defer vf.Close()

	n := int(vf.Count())
	if n > len(items) {
		n = len(items)
	}
	for i := 0; i < n; i++ {
		vec, err := vf.Get(uint64(i))
		if err != nil {
			return err
		}
		items[i].Vector = vec
	}
	return nil
}

// Close closes the underlying database.
func (s *SnapshotStore) Close() error {
	return s.db.Close()
}
