// Package badger keeps sessions in an embedded BadgerDB so a single node can
// run without Redis and still survive restarts.
package badger

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"go.uber.org/zap"

	"github.com/abd-ghreeb/venture-pulse/internal/session"
)

type Config struct {
	Path       string
	InMemory   bool
	SyncWrites bool
	// GCInterval controls value-log garbage collection. Zero disables it.
	GCInterval time.Duration
	Logger     *zap.Logger
}

func InMemoryConfig() Config {
	return Config{InMemory: true}
}

type KV struct {
	db   *badger.DB
	stop chan struct{}
	wg   sync.WaitGroup
}

type zapLogger struct {
	sugar *zap.SugaredLogger
}

func (l zapLogger) Errorf(format string, args ...interface{})   { l.sugar.Errorf(format, args...) }
func (l zapLogger) Warningf(format string, args ...interface{}) { l.sugar.Warnf(format, args...) }
func (l zapLogger) Infof(format string, args ...interface{})    { l.sugar.Debugf(format, args...) }
func (l zapLogger) Debugf(format string, args ...interface{})   { l.sugar.Debugf(format, args...) }

func Open(cfg Config) (*KV, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, errors.New("BADGER_PATH is required for the badger session backend")
	}
	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0o750); err != nil {
			return nil, fmt.Errorf("create badger directory %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.WithSyncWrites(cfg.SyncWrites).WithNumVersionsToKeep(1)
	if cfg.Logger != nil {
		opts = opts.WithLogger(zapLogger{sugar: cfg.Logger.Sugar()})
	} else {
		opts = opts.WithLogger(nil)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger database: %w", err)
	}
	kv := &KV{db: db, stop: make(chan struct{})}
	if cfg.GCInterval > 0 && !cfg.InMemory {
		kv.wg.Add(1)
		go kv.runGC(cfg.GCInterval)
	}
	return kv, nil
}

func (k *KV) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := k.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, session.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return value, nil
}

func (k *KV) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return k.db.Update(func(txn *badger.Txn) error {
		entry := badger.NewEntry([]byte(key), value)
		if ttl > 0 {
			entry = entry.WithTTL(ttl)
		}
		return txn.SetEntry(entry)
	})
}

func (k *KV) Delete(ctx context.Context, key string) error {
	return k.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(key))
	})
}

func (k *KV) Ping(ctx context.Context) error {
	if k.db.IsClosed() {
		return errors.New("badger database is closed")
	}
	return nil
}

func (k *KV) Close() error {
	close(k.stop)
	k.wg.Wait()
	return k.db.Close()
}

func (k *KV) runGC(interval time.Duration) {
	defer k.wg.Done()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-k.stop:
			return
		case <-ticker.C:
			for k.db.RunValueLogGC(0.5) == nil {
			}
		}
	}
}
