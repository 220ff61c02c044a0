package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	jsoniter "github.com/json-iterator/go"
	"github.com/rs/zerolog/log"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var (
	recordPrefix = []byte("record/")
	idPrefix     = []byte("record-id/")
)

type badgerStore struct {
	b *badger.DB
}

var _ Store = &badgerStore{}

func NewBadger(dbPath string) (Store, error) {
	if dbPath == "" {
		return nil, errors.New("db path is empty")
	}

	opts := badger.DefaultOptions(dbPath)
	// Use zerolog as the logger
	opts.Logger = &badgerLoggerAdapter{}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}

	return &badgerStore{b: db}, nil
}

func (b *badgerStore) Close() error {
	return b.b.Close()
}

// Records are keyed by start time so a reverse scan yields the newest first.
func recordKey(r *Record) []byte {
	return fmt.Appendf(nil, "%s%020d/%s", recordPrefix, r.Time.UnixNano(), r.ID)
}

func idKey(id string) []byte {
	return fmt.Appendf(nil, "%s%s", idPrefix, id)
}

func (b *badgerStore) AddRecord(ctx context.Context, record *Record) error {
	if record.ID == "" {
		return errors.New("record id is empty")
	}

	key := recordKey(record)
	return b.b.Update(func(txn *badger.Txn) error {
		bytes, err := json.Marshal(record)
		if err != nil {
			return fmt.Errorf("failed to marshal record %s: %w", record.ID, err)
		}
		if err := txn.Set(key, bytes); err != nil {
			return err
		}
		return txn.Set(idKey(record.ID), key)
	})
}

func (b *badgerStore) GetRecord(ctx context.Context, id string) (*Record, error) {
	var record Record
	if err := b.b.View(func(txn *badger.Txn) error {
		item, err := txn.Get(idKey(id))
		if err != nil {
			return err
		}
		key, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		item, err = txn.Get(key)
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &record)
		})
	}); err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil, err
	}

	return &record, nil
}

func (b *badgerStore) ListRecords(ctx context.Context, limit int) ([]*Record, error) {
	var records []*Record
	err := b.b.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		opts.Prefix = recordPrefix
		it := txn.NewIterator(opts)
		defer it.Close()

		seek := append(append([]byte(nil), recordPrefix...), 0xff)
		for it.Seek(seek); it.ValidForPrefix(recordPrefix); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			if limit > 0 && len(records) >= limit {
				break
			}
			var record Record
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &record)
			}); err != nil {
				return fmt.Errorf("failed to unmarshal record: %s", string(it.Item().Key()))
			}
			records = append(records, &record)
		}
		return nil
	})
	return records, err
}

type badgerLoggerAdapter struct{}

func (l *badgerLoggerAdapter) Errorf(format string, v ...interface{}) {
	log.Error().Msgf(format, v...)
}

func (l *badgerLoggerAdapter) Warningf(format string, v ...interface{}) {
	log.Warn().Msgf(format, v...)
}

func (l *badgerLoggerAdapter) Infof(format string, v ...interface{}) {
	log.Debug().Msgf(format, v...)
}

func (l *badgerLoggerAdapter) Debugf(format string, v ...interface{}) {
	log.Trace().Msgf(format, v...)
}
