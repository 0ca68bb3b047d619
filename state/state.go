package state

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"go.etcd.io/bbolt"
)

var (
	ErrNoActivities = errors.New("no activities")
	ErrReadOnly     = errors.New("store is read-only")
	ErrInvalidStart = errors.New("invalid activity start")
)

var (
	catsBucket       = []byte("cats")
	activitiesBucket = []byte("activities")
	scoresBucket     = []byte("scores")
)

// Store is the bbolt database of finalized activities and running scores,
// one nested bucket per cat.
type Store struct {
	DB    *bbolt.DB
	rOnly bool
}

// Open opens (creating if need be) the store at path.
// Opening a writable store takes a file lock that blocks every other opener,
// read-only or not, until it is closed.
func Open(path string, readOnly bool) (*Store, error) {
	if !readOnly {
		if err := os.MkdirAll(filepath.Dir(path), 0770); err != nil {
			return nil, err
		}
	}
	db, err := bbolt.Open(path, 0600, &bbolt.Options{
		ReadOnly: readOnly,
		Timeout:  10 * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("open state db %s: %w", path, err)
	}
	return &Store{DB: db, rOnly: readOnly}, nil
}

func (s *Store) Close() error {
	return s.DB.Close()
}

// ForCat returns the activity database of one cat.
func (s *Store) ForCat(cat string) *CatStore {
	if cat == "" {
		cat = DefaultCat
	}
	return &CatStore{store: s, cat: cat}
}

// DefaultCat names the activities of samples that don't say whose they are.
const DefaultCat = "anonymous"

// Cats lists the cats with stored activities, sorted.
func (s *Store) Cats() ([]string, error) {
	cats := []string{}
	err := s.DB.View(func(tx *bbolt.Tx) error {
		root := tx.Bucket(catsBucket)
		if root == nil {
			return nil
		}
		return root.ForEach(func(k, v []byte) error {
			// Nested buckets have nil values.
			if v == nil {
				cats = append(cats, string(k))
			}
			return nil
		})
	})
	sort.Strings(cats)
	return cats, err
}

// catBucket returns the cat's bucket, creating it (and the root) in writable transactions.
// It returns nil when the cat has no bucket and tx is read-only.
func catBucket(tx *bbolt.Tx, cat string) (*bbolt.Bucket, error) {
	if !tx.Writable() {
		root := tx.Bucket(catsBucket)
		if root == nil {
			return nil, nil
		}
		return root.Bucket([]byte(cat)), nil
	}
	root, err := tx.CreateBucketIfNotExists(catsBucket)
	if err != nil {
		return nil, err
	}
	b, err := root.CreateBucketIfNotExists([]byte(cat))
	if err != nil {
		return nil, err
	}
	if _, err := b.CreateBucketIfNotExists(activitiesBucket); err != nil {
		return nil, err
	}
	if _, err := b.CreateBucketIfNotExists(scoresBucket); err != nil {
		return nil, err
	}
	return b, nil
}
