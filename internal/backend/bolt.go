package backend

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"
)

// bucketName holds every record. coffer keys are already namespaced by prefix.
var bucketName = []byte("records")

// Bolt is a Backend stored in a single bbolt file.
//
// bbolt takes an exclusive file lock, so a second process opening the same
// file fails after the open timeout instead of corrupting data.
type Bolt struct {
	db   *bolt.DB
	path string
}

// OpenBolt opens or creates the database at path and makes sure the record
// bucket exists.
func OpenBolt(path string) (*Bolt, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, storageErr("create database directory", err)
	}

	db, err := bolt.Open(path, 0600, &bolt.Options{
		Timeout: 1 * time.Second,
	})
	if err != nil {
		return nil, storageErr("open database", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(bucketName); err != nil {
			return fmt.Errorf("failed to create bucket %s: %w", bucketName, err)
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, storageErr("initialize database", err)
	}

	return &Bolt{db: db, path: path}, nil
}

// Path returns the database file location.
func (b *Bolt) Path() string {
	return b.path
}

func (b *Bolt) Get(key string) ([]byte, bool, error) {
	var value []byte
	err := b.db.View(func(tx *bolt.Tx) error {
		bucket, err := recordBucket(tx)
		if err != nil {
			return err
		}
		// Values are only valid for the life of the transaction.
		if v := bucket.Get([]byte(key)); v != nil {
			value = cloneBytes(v)
		}
		return nil
	})
	if err != nil {
		return nil, false, storageErr("get "+key, err)
	}
	return value, value != nil, nil
}

func (b *Bolt) Put(key string, value []byte) error {
	return b.Apply([]Op{Put(key, value)})
}

func (b *Bolt) Delete(key string) error {
	return b.Apply([]Op{Delete(key)})
}

// Keys walks the bucket cursor from prefix, so results come back sorted.
func (b *Bolt) Keys(prefix string) ([]string, error) {
	var keys []string
	err := b.db.View(func(tx *bolt.Tx) error {
		bucket, err := recordBucket(tx)
		if err != nil {
			return err
		}

		p := []byte(prefix)
		c := bucket.Cursor()
		for k, _ := c.Seek(p); k != nil && bytes.HasPrefix(k, p); k, _ = c.Next() {
			keys = append(keys, string(k))
		}
		return nil
	})
	if err != nil {
		return nil, storageErr("list keys", err)
	}
	return keys, nil
}

// Apply runs the whole batch in one read-write transaction.
func (b *Bolt) Apply(ops []Op) error {
	err := b.db.Update(func(tx *bolt.Tx) error {
		bucket, err := recordBucket(tx)
		if err != nil {
			return err
		}

		for _, op := range ops {
			switch op.Kind {
			case OpPut:
				if err := bucket.Put([]byte(op.Key), op.Value); err != nil {
					return fmt.Errorf("put %s: %w", op.Key, err)
				}
			case OpDelete:
				if err := bucket.Delete([]byte(op.Key)); err != nil {
					return fmt.Errorf("delete %s: %w", op.Key, err)
				}
			}
		}
		return nil
	})
	if err != nil {
		return storageErr("apply", err)
	}
	return nil
}

func (b *Bolt) Close() error {
	if err := b.db.Close(); err != nil {
		return storageErr("close database", err)
	}
	return nil
}

func recordBucket(tx *bolt.Tx) (*bolt.Bucket, error) {
	bucket := tx.Bucket(bucketName)
	if bucket == nil {
		return nil, fmt.Errorf("bucket not found: %s", bucketName)
	}
	return bucket, nil
}
