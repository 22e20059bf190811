// Package bbolt provides a BBolt-backed storage.ObjectStore.
package bbolt

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.etcd.io/bbolt"

	"github.com/paragondesignz/spachat/storage"
)

var bucketObjects = []byte("objects")

type record struct {
	Data        []byte    `json:"data"`
	ContentType string    `json:"content_type"`
	UploadedAt  time.Time `json:"uploaded_at"`
}

// Store implements storage.ObjectStore backed by a BBolt database.
type Store struct {
	db *bbolt.DB
}

var _ storage.ObjectStore = (*Store)(nil)

// NewStore returns a Store backed by the given BBolt database.
func NewStore(db *bbolt.DB) (*Store, error) {
	err := db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketObjects)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("creating objects bucket: %w", err)
	}
	return &Store{db: db}, nil
}

// NewStoreFromFile opens a BBolt database at the given path and returns a new Store.
func NewStoreFromFile(path string, options *bbolt.Options) (*Store, error) {
	db, err := bbolt.Open(path, 0600, options)
	if err != nil {
		return nil, fmt.Errorf("opening bbolt db: %w", err)
	}
	return NewStore(db)
}

// Close closes the underlying BBolt database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Put(_ context.Context, key string, data []byte, contentType string) (storage.ObjectInfo, error) {
	rec := record{
		Data:        data,
		ContentType: contentType,
		UploadedAt:  time.Now().UTC(),
	}
	encoded, err := json.Marshal(rec)
	if err != nil {
		return storage.ObjectInfo{}, fmt.Errorf("encoding object record: %w", err)
	}
	err = s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketObjects).Put([]byte(key), encoded)
	})
	if err != nil {
		return storage.ObjectInfo{}, err
	}
	return rec.info(key), nil
}

func (s *Store) Get(_ context.Context, key string) ([]byte, error) {
	var data []byte
	err := s.db.View(func(tx *bbolt.Tx) error {
		raw := tx.Bucket(bucketObjects).Get([]byte(key))
		if raw == nil {
			return storage.ErrNotFound
		}
		var rec record
		if err := json.Unmarshal(raw, &rec); err != nil {
			return fmt.Errorf("decoding object record: %w", err)
		}
		data = rec.Data
		return nil
	})
	if err != nil {
		return nil, err
	}
	return data, nil
}

func (s *Store) List(_ context.Context, prefix string) ([]storage.ObjectInfo, error) {
	var infos []storage.ObjectInfo
	err := s.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket(bucketObjects).Cursor()
		p := []byte(prefix)
		for k, v := c.Seek(p); k != nil && bytes.HasPrefix(k, p); k, v = c.Next() {
			var rec record
			if err := json.Unmarshal(v, &rec); err != nil {
				return fmt.Errorf("decoding object record %q: %w", k, err)
			}
			infos = append(infos, rec.info(string(k)))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return infos, nil
}

func (s *Store) Delete(_ context.Context, key string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketObjects)
		if b.Get([]byte(key)) == nil {
			return storage.ErrNotFound
		}
		return b.Delete([]byte(key))
	})
}

func (r record) info(key string) storage.ObjectInfo {
	return storage.ObjectInfo{
		Key:         key,
		Size:        int64(len(r.Data)),
		ContentType: r.ContentType,
		UploadedAt:  r.UploadedAt,
	}
}
