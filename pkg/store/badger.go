package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
)

// BadgerStore is an embedded GraphStore on a local badger database. Records
// are stored as JSON values under scope- and time-prefixed keys, so a prefix
// scan yields one scope in append order.
type BadgerStore struct {
	db *badger.DB
}

// NewBadgerStore opens (or creates) a badger database at path.
func NewBadgerStore(path string) (*BadgerStore, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("opening badger store at %s: %w", path, err)
	}
	return &BadgerStore{db: db}, nil
}

func recordKey(scope string, at time.Time, id string) []byte {
	// %020d keeps lexicographic key order aligned with time order.
	return []byte(fmt.Sprintf("rec/%s/%020d/%s", scope, at.UnixNano(), id))
}

func scopePrefix(scope string) []byte {
	return []byte("rec/" + scope + "/")
}

func (b *BadgerStore) Search(ctx context.Context, query string, scope string, limit int) ([]Record, error) {
	needle := strings.ToLower(query)
	var out []Record
	err := b.scan(ctx, scope, func(rec Record) bool {
		if needle != "" && !matches(rec, needle) {
			return true
		}
		out = append(out, rec)
		return limit <= 0 || len(out) < limit
	})
	return out, err
}

func (b *BadgerStore) RetrieveRecent(ctx context.Context, scope string, since time.Time, limit int) ([]Record, error) {
	var out []Record
	err := b.scan(ctx, scope, func(rec Record) bool {
		if !since.IsZero() && rec.At.Before(since) {
			return true
		}
		out = append(out, rec)
		return true
	})
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

func (b *BadgerStore) scan(ctx context.Context, scope string, visit func(Record) bool) error {
	err := b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = scopePrefix(scope)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			var rec Record
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &rec)
			})
			if err != nil {
				return fmt.Errorf("decoding record %s: %w", it.Item().Key(), err)
			}
			if !visit(rec) {
				return nil
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

func (b *BadgerStore) AddRecord(_ context.Context, name string, body map[string]any, scope string, at time.Time) (string, error) {
	rec := Record{
		ID:    uuid.NewString(),
		Name:  name,
		Body:  body,
		Scope: scope,
		At:    at,
	}
	val, err := json.Marshal(rec)
	if err != nil {
		return "", fmt.Errorf("encoding record: %w", err)
	}
	err = b.db.Update(func(txn *badger.Txn) error {
		return txn.Set(recordKey(scope, at, rec.ID), val)
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return rec.ID, nil
}

func (b *BadgerStore) Close() error { return b.db.Close() }
