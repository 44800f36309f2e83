// Package redis provides a RecordStore backed by Redis. Each record is one
// JSON value under "<namespace>:memory:<content_hash>", so put/get/delete
// are single-key atomic operations and recovery is a SCAN over the prefix.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/redis/go-redis/v9"

	"github.com/becomeliminal/recall/memory"
)

const scanBatchSize = 100

// Options configures the Redis connection and key layout.
type Options struct {
	// URL is the Redis connection string (e.g. "redis://localhost:6379").
	URL string

	// Namespace prefixes every key. Default: "recall".
	Namespace string

	// ConnectTimeout bounds connection establishment. Default: 5s.
	ConnectTimeout time.Duration

	// ReadTimeout bounds read operations. Default: 30s.
	ReadTimeout time.Duration

	// WriteTimeout bounds write operations. Default: 5s.
	WriteTimeout time.Duration
}

// Store implements memory.RecordStore on go-redis/v9.
type Store struct {
	client *redis.Client
	prefix string

	connectTimeout time.Duration
}

var _ memory.RecordStore = (*Store)(nil)

// New creates a Redis record store. The connection is verified in
// Initialize, not here, so construction never blocks.
func New(opts Options) (*Store, error) {
	if opts.URL == "" {
		opts.URL = "redis://localhost:6379"
	}
	if opts.Namespace == "" {
		opts.Namespace = "recall"
	}
	if opts.ConnectTimeout == 0 {
		opts.ConnectTimeout = 5 * time.Second
	}
	if opts.ReadTimeout == 0 {
		opts.ReadTimeout = 30 * time.Second
	}
	if opts.WriteTimeout == 0 {
		opts.WriteTimeout = 5 * time.Second
	}

	redisOpts, err := redis.ParseURL(opts.URL)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to parse Redis URL")
	}
	redisOpts.DialTimeout = opts.ConnectTimeout
	redisOpts.ReadTimeout = opts.ReadTimeout
	redisOpts.WriteTimeout = opts.WriteTimeout

	return &Store{
		client:         redis.NewClient(redisOpts),
		prefix:         opts.Namespace + ":memory:",
		connectTimeout: opts.ConnectTimeout,
	}, nil
}

// Initialize verifies the connection.
func (s *Store) Initialize(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.connectTimeout)
	defer cancel()

	if err := s.client.Ping(ctx).Err(); err != nil {
		return goerr.Wrap(err, "failed to connect to Redis")
	}
	return nil
}

// Put writes a record keyed by its ContentHash.
func (s *Store) Put(ctx context.Context, rec *memory.MemoryRecord) error {
	if rec == nil || rec.ContentHash == "" {
		return goerr.New("record requires a content hash")
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return goerr.Wrap(err, "failed to marshal record", goerr.V("content_hash", rec.ContentHash))
	}
	if err := s.client.Set(ctx, s.key(rec.ContentHash), data, 0).Err(); err != nil {
		return goerr.Wrap(err, "failed to write record", goerr.V("content_hash", rec.ContentHash))
	}
	return nil
}

// Get returns the record for a hash, or ErrNotFound.
func (s *Store) Get(ctx context.Context, hash string) (*memory.MemoryRecord, error) {
	data, err := s.client.Get(ctx, s.key(hash)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, goerr.Wrap(memory.ErrNotFound, "no record for hash", goerr.V("content_hash", hash))
		}
		return nil, goerr.Wrap(err, "failed to read record", goerr.V("content_hash", hash))
	}

	var rec memory.MemoryRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, goerr.Wrap(err, "failed to unmarshal record", goerr.V("content_hash", hash))
	}
	return &rec, nil
}

// Delete removes the record for a hash; absent hashes are a no-op.
func (s *Store) Delete(ctx context.Context, hash string) error {
	if err := s.client.Del(ctx, s.key(hash)).Err(); err != nil {
		return goerr.Wrap(err, "failed to delete record", goerr.V("content_hash", hash))
	}
	return nil
}

// Scan iterates every record under the namespace prefix.
func (s *Store) Scan(ctx context.Context, fn func(rec *memory.MemoryRecord) error) error {
	iter := s.client.Scan(ctx, 0, s.prefix+"*", scanBatchSize).Iterator()
	for iter.Next(ctx) {
		data, err := s.client.Get(ctx, iter.Val()).Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				// Deleted between SCAN and GET.
				continue
			}
			return goerr.Wrap(err, "failed to read record during scan", goerr.V("key", iter.Val()))
		}

		var rec memory.MemoryRecord
		if err := json.Unmarshal(data, &rec); err != nil {
			return goerr.Wrap(err, "failed to unmarshal record during scan", goerr.V("key", iter.Val()))
		}
		if err := fn(&rec); err != nil {
			return err
		}
	}
	if err := iter.Err(); err != nil {
		return goerr.Wrap(err, "record scan failed")
	}
	return nil
}

// Count returns the number of records under the namespace prefix.
func (s *Store) Count(ctx context.Context) (int64, error) {
	var count int64
	iter := s.client.Scan(ctx, 0, s.prefix+"*", scanBatchSize).Iterator()
	for iter.Next(ctx) {
		count++
	}
	if err := iter.Err(); err != nil {
		return 0, goerr.Wrap(err, "record count failed")
	}
	return count, nil
}

// Close closes the Redis connection.
func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) key(hash string) string {
	return s.prefix + hash
}
