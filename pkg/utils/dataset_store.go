package utils

import (
	"encoding/json"
	"sync"

	"github.com/dgraph-io/badger/v4"
)

// DatasetStore is a badger-backed cache for movement data: parsed dataset
// rows keyed by source URL, and a seen-record set used to deduplicate the
// live feed across reconnects and restarts.
type DatasetStore struct {
	db        *badger.DB
	seenCache sync.Map
}

const (
	rowsPrefix = "rows/"
	seenPrefix = "seen/"
)

func OpenDatasetStore(path string) (*DatasetStore, error) {
	opts := badger.DefaultOptions(path)
	// Decrease logging verbosity
	opts.Logger = nil
	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}
	return &DatasetStore{db: db}, nil
}

func (s *DatasetStore) Close() error {
	return s.db.Close()
}

// PutRows caches the parsed rows of a dataset under its source key.
func (s *DatasetStore) PutRows(key string, rows []map[string]string) error {
	data, err := json.Marshal(rows)
	if err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(rowsPrefix+key), data)
	})
}

// GetRows returns the cached rows for a dataset key, or nil when absent.
func (s *DatasetStore) GetRows(key string) ([]map[string]string, error) {
	var data []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(rowsPrefix + key))
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if err == badger.ErrKeyNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var rows []map[string]string
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// Seen reports whether a feed record key was marked before. Hits are cached
// in memory since the feed asks about the same hot keys repeatedly.
func (s *DatasetStore) Seen(key string) (bool, error) {
	if _, ok := s.seenCache.Load(key); ok {
		return true, nil
	}
	found := false
	err := s.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get([]byte(seenPrefix + key))
		if err == nil {
			found = true
			return nil
		}
		if err == badger.ErrKeyNotFound {
			return nil
		}
		return err
	})
	if err != nil {
		return false, err
	}
	if found {
		s.seenCache.Store(key, struct{}{})
	}
	return found, nil
}

// MarkSeen records a feed record key.
func (s *DatasetStore) MarkSeen(key string) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(seenPrefix+key), nil)
	})
	if err == nil {
		s.seenCache.Store(key, struct{}{})
	}
	return err
}

// ForEachSeen iterates the stored seen-record keys.
func (s *DatasetStore) ForEachSeen(fn func(key string) error) error {
	return s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(seenPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			if err := fn(string(it.Item().Key()[len(seenPrefix):])); err != nil {
				return err
			}
		}
		return nil
	})
}
