package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"demystifier-backend/pkg/logger"

	bolt "go.etcd.io/bbolt"
)

var preferencesBucket = []byte("preferences")

// BoltStorage keeps preferences in a single bbolt file.
type BoltStorage struct {
	path string
	mu   sync.RWMutex
	db   *bolt.DB
}

func NewBoltStorage(path string) *BoltStorage {
	return &BoltStorage{path: path}
}

func (b *BoltStorage) Init() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.db != nil {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(b.path), 0o755); err != nil {
		return fmt.Errorf("%w: %v", ErrStorageInit, err)
	}

	db, err := bolt.Open(b.path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStorageInit, err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(preferencesBucket)
		return err
	})
	if err != nil {
		_ = db.Close()
		return fmt.Errorf("%w: %v", ErrStorageInit, err)
	}

	b.db = db
	logger.Debugf("Preference storage opened at %s", b.path)
	return nil
}

func (b *BoltStorage) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.db == nil {
		return nil
	}
	err := b.db.Close()
	b.db = nil
	return err
}

func (b *BoltStorage) Get(key string) (string, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.db == nil {
		return "", ErrStoreClosed
	}

	var value string
	found := false
	err := b.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(preferencesBucket).Get([]byte(key))
		if v != nil {
			// v is only valid inside the transaction
			value = string(v)
			found = true
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	if !found {
		return "", ErrPreferenceNotFound
	}
	return value, nil
}

func (b *BoltStorage) Set(key, value string) error {
	if key == "" {
		return ErrInvalidKey
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.db == nil {
		return ErrStoreClosed
	}
	return b.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(preferencesBucket).Put([]byte(key), []byte(value))
	})
}

func (b *BoltStorage) Delete(key string) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.db == nil {
		return ErrStoreClosed
	}
	return b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(preferencesBucket)
		if bucket.Get([]byte(key)) == nil {
			return ErrPreferenceNotFound
		}
		return bucket.Delete([]byte(key))
	})
}
