package revshare

import (
	"bytes"
	"encoding/binary"
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"

	"go.etcd.io/bbolt"
)

var (
	bucketLedger  = []byte("ledger")
	bucketJournal = []byte("journal")

	keyState = []byte("state")
)

// BoltStore persists the ledger in a bbolt database. Each Save is one
// bbolt transaction covering both the state and its journal record.
type BoltStore struct {
	db *bbolt.DB
}

// Compile-time interface check.
var _ Store = (*BoltStore)(nil)

// OpenBoltStore opens or creates the bbolt database at dbPath.
// The parent directory is created if it does not exist.
func OpenBoltStore(dbPath string) (*BoltStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0700); err != nil {
		return nil, fmt.Errorf("revshare: create directory: %w", err)
	}
	db, err := bbolt.Open(dbPath, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("revshare: open bolt db: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, name := range [][]byte{bucketLedger, bucketJournal} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return fmt.Errorf("boltstore: create bucket %q: %w", name, err)
			}
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("revshare: create buckets: %w", err)
	}

	return &BoltStore{db: db}, nil
}

// Close closes the underlying database.
func (s *BoltStore) Close() error { return s.db.Close() }

// seqKey encodes a journal sequence number as an 8-byte big-endian key for sorted storage.
func seqKey(seq uint64) []byte {
	k := make([]byte, 8)
	binary.BigEndian.PutUint64(k, seq)
	return k
}

// Load decodes the saved state.
func (s *BoltStore) Load() (*State, error) {
	var state *State
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketLedger).Get(keyState)
		if data == nil {
			return ErrNoState
		}
		var err error
		state, err = decodeState(data)
		return err
	})
	if err != nil {
		return nil, err
	}
	return state, nil
}

// Save writes state and appends rec to the journal.
func (s *BoltStore) Save(state *State, rec Record) error {
	if state == nil {
		return fmt.Errorf("%w: state", ErrNilParam)
	}
	data, err := encodeState(state)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(&rec); err != nil {
		return fmt.Errorf("boltstore: encode record: %w", err)
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		if err := tx.Bucket(bucketLedger).Put(keyState, data); err != nil {
			return fmt.Errorf("boltstore: put state: %w", err)
		}
		if err := tx.Bucket(bucketJournal).Put(seqKey(rec.Seq), buf.Bytes()); err != nil {
			return fmt.Errorf("boltstore: put record: %w", err)
		}
		return nil
	})
}

// Records returns the journal in sequence order.
func (s *BoltStore) Records() ([]Record, error) {
	var out []Record
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketJournal).ForEach(func(_, v []byte) error {
			var rec Record
			if err := gob.NewDecoder(bytes.NewReader(v)).Decode(&rec); err != nil {
				return fmt.Errorf("boltstore: decode record: %w", err)
			}
			out = append(out, rec)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
