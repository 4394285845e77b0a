package cache

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"Users_Cache/internal/models"

	bolt "go.etcd.io/bbolt"
)

const defaultBoltBucket = "users_cache"

// expiry header: 8 bytes big endian unix nanoseconds
const boltHeaderSize = 8

// BoltCache implements Service on a local bbolt file.
// bbolt serializes writers itself, so no extra locking is needed.
type BoltCache struct {
	db     *bolt.DB
	bucket []byte
	now    func() time.Time
}

// NewBoltCache opens (or creates) the database at path
func NewBoltCache(path string) (*BoltCache, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt database: %w", err)
	}

	bucket := []byte(defaultBoltBucket)
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucket)
		return err
	}); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create bolt bucket: %w", err)
	}

	return &BoltCache{db: db, bucket: bucket, now: time.Now}, nil
}

// Get returns the stored value if present and not expired
func (b *BoltCache) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var out []byte
	err := b.db.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket(b.bucket).Get([]byte(key))
		if raw == nil || b.expired(raw) {
			return models.ErrCacheMiss
		}
		out = append([]byte(nil), raw[boltHeaderSize:]...)
		return nil
	})
	if err != nil {
		if errors.Is(err, models.ErrCacheMiss) {
			return nil, err
		}
		return nil, fmt.Errorf("bolt get failed: %w", err)
	}

	return out, nil
}

// Set stores value with an absolute expiration of now+ttl
func (b *BoltCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if ttl <= 0 {
		return fmt.Errorf("TTL must be positive, got: %v", ttl)
	}

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal value: %w", err)
	}

	buf := make([]byte, boltHeaderSize+len(data))
	binary.BigEndian.PutUint64(buf[:boltHeaderSize], uint64(b.now().Add(ttl).UnixNano()))
	copy(buf[boltHeaderSize:], data)

	if err := b.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(b.bucket).Put([]byte(key), buf)
	}); err != nil {
		return fmt.Errorf("bolt set failed: %w", err)
	}

	return nil
}

// Delete removes a key and reports whether a live entry was removed
func (b *BoltCache) Delete(ctx context.Context, key string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	var removed bool
	err := b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(b.bucket)
		raw := bucket.Get([]byte(key))
		if raw == nil {
			return nil
		}
		removed = !b.expired(raw)
		return bucket.Delete([]byte(key))
	})
	if err != nil {
		return false, fmt.Errorf("bolt delete failed: %w", err)
	}

	return removed, nil
}

// Sweep deletes every expired entry and returns how many were removed
func (b *BoltCache) Sweep(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	var swept int
	err := b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(b.bucket)
		var expiredKeys [][]byte
		if err := bucket.ForEach(func(k, v []byte) error {
			if b.expired(v) {
				expiredKeys = append(expiredKeys, append([]byte(nil), k...))
			}
			return nil
		}); err != nil {
			return err
		}
		for _, k := range expiredKeys {
			if err := bucket.Delete(k); err != nil {
				return err
			}
		}
		swept = len(expiredKeys)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("bolt sweep failed: %w", err)
	}

	return swept, nil
}

// RunSweeper calls Sweep every interval until ctx is done
func (b *BoltCache) RunSweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_, _ = b.Sweep(ctx)
		}
	}
}

// Ping reports whether the database is still open
func (b *BoltCache) Ping(ctx context.Context) error {
	return b.db.View(func(tx *bolt.Tx) error {
		if tx.Bucket(b.bucket) == nil {
			return fmt.Errorf("bolt bucket %q missing", b.bucket)
		}
		return nil
	})
}

// Close closes the underlying database
func (b *BoltCache) Close() error {
	return b.db.Close()
}

func (b *BoltCache) expired(raw []byte) bool {
	if len(raw) < boltHeaderSize {
		return true
	}
	expiresAt := int64(binary.BigEndian.Uint64(raw[:boltHeaderSize]))
	return !b.now().Before(time.Unix(0, expiresAt))
}
