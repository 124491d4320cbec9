// Package store persists analysis results in a Pebble key-value database,
// keyed by analysis id.
package store

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/cockroachdb/pebble"
)

// Key prefixes act as logical buckets in Pebble's flat key space.
var (
	prefixResult = []byte("result:") // result:ID -> JSON result
	prefixDigest = []byte("sha256:") // sha256:HEX:ID -> ID
)

// ErrNotFound is returned for ids with no stored result.
var ErrNotFound = errors.New("result not found")

// Store is a Pebble-backed result store. It is safe for concurrent use.
type Store struct {
	db *pebble.DB
}

// Open opens or creates the store at dir. Pebble holds a lock file while
// open; a handful of retries covers a previous process still releasing it.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create store dir: %w", err)
	}

	var db *pebble.DB
	var err error
	const maxRetries = 4
	for i := 0; i < maxRetries; i++ {
		db, err = pebble.Open(dir, &pebble.Options{})
		if err == nil {
			return &Store{db: db}, nil
		}
		if !strings.Contains(err.Error(), "lock") {
			return nil, fmt.Errorf("open result store %q: %w", dir, err)
		}
		time.Sleep(50 * time.Millisecond * time.Duration(1<<i))
	}
	return nil, fmt.Errorf("acquire result store lock %q after %d attempts: %w", dir, maxRetries, err)
}

// Close releases the database.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Put stores the serialized result for id, indexing it under the content
// digest when one is given.
func (s *Store) Put(id, sha256 string, data []byte) error {
	if id == "" {
		return errors.New("empty result id")
	}
	b := s.db.NewBatch()
	defer b.Close()

	if err := b.Set(resultKey(id), data, nil); err != nil {
		return fmt.Errorf("stage result %s: %w", id, err)
	}
	if sha256 != "" {
		if err := b.Set(digestKey(sha256, id), []byte(id), nil); err != nil {
			return fmt.Errorf("stage digest index %s: %w", id, err)
		}
	}
	if err := b.Commit(pebble.Sync); err != nil {
		return fmt.Errorf("commit result %s: %w", id, err)
	}
	return nil
}

// Get returns the stored result for id.
func (s *Store) Get(id string) ([]byte, error) {
	val, closer, err := s.db.Get(resultKey(id))
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get result %s: %w", id, err)
	}
	defer closer.Close()

	// val is only valid until closer.Close.
	return append([]byte(nil), val...), nil
}

// IDsByDigest returns the ids of every stored analysis of content with the
// given sha256, oldest key first.
func (s *Store) IDsByDigest(sha256 string) ([]string, error) {
	lower := append(append([]byte(nil), prefixDigest...), sha256+":"...)
	upper := incrementLastByte(lower)

	iter, err := s.db.NewIter(&pebble.IterOptions{LowerBound: lower, UpperBound: upper})
	if err != nil {
		return nil, fmt.Errorf("digest iterator: %w", err)
	}
	defer iter.Close()

	var ids []string
	for iter.First(); iter.Valid(); iter.Next() {
		if !bytes.HasPrefix(iter.Key(), lower) {
			break
		}
		ids = append(ids, string(iter.Value()))
	}
	return ids, iter.Error()
}

func resultKey(id string) []byte {
	return append(append([]byte(nil), prefixResult...), id...)
}

func digestKey(sha256, id string) []byte {
	return []byte(fmt.Sprintf("%s%s:%s", prefixDigest, sha256, id))
}

// incrementLastByte returns the smallest key greater than every key with
// prefix p. Prefixes here always end in ':' so there is no overflow.
func incrementLastByte(p []byte) []byte {
	out := append([]byte(nil), p...)
	out[len(out)-1]++
	return out
}
