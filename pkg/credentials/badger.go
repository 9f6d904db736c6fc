package credentials

import (
	"context"
	"errors"
	"fmt"
	"os"

	badger "github.com/dgraph-io/badger/v4"
)

// keyPrefix namespaces the slots inside the database.
const keyPrefix = "credentials:"

func slotKey(slot string) []byte {
	return []byte(keyPrefix + slot)
}

// BadgerStore keeps the three slots as keys in an embedded BadgerDB.
//
// Write and Clear each run inside a single read-write transaction, so the
// slots change together or not at all.
type BadgerStore struct {
	db *badger.DB
}

// NewBadgerStore opens (or creates) a BadgerDB at dir.
func NewBadgerStore(dir string) (*BadgerStore, error) {
	if dir == "" {
		return nil, errors.New("credentials: badger directory is required")
	}
	if err := os.MkdirAll(dir, DirPermissions); err != nil {
		return nil, fmt.Errorf("create badger directory: %w", err)
	}

	opts := badger.DefaultOptions(dir).
		WithLogger(nil).
		WithNumVersionsToKeep(1)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}
	return &BadgerStore{db: db}, nil
}

// NewBadgerStoreInMemory opens a BadgerDB that never touches disk.
func NewBadgerStoreInMemory() (*BadgerStore, error) {
	db, err := badger.Open(badger.DefaultOptions("").WithInMemory(true).WithLogger(nil))
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}
	return &BadgerStore{db: db}, nil
}

func (s *BadgerStore) Read(ctx context.Context) (*Credentials, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	slots := make(map[string]string, len(allSlots))
	err := s.db.View(func(txn *badger.Txn) error {
		for _, slot := range allSlots {
			item, err := txn.Get(slotKey(slot))
			if err == badger.ErrKeyNotFound {
				continue
			}
			if err != nil {
				return err
			}
			if err := item.Value(func(val []byte) error {
				slots[slot] = string(val)
				return nil
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, mapBadgerErr("read", err)
	}
	return fromSlots(slots), nil
}

func (s *BadgerStore) Write(ctx context.Context, creds *Credentials) error {
	if err := validate(creds); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	slots, err := toSlots(creds)
	if err != nil {
		return err
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		for _, slot := range allSlots {
			if err := txn.Set(slotKey(slot), []byte(slots[slot])); err != nil {
				return err
			}
		}
		return nil
	})
	return mapBadgerErr("write", err)
}

func (s *BadgerStore) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	err := s.db.Update(func(txn *badger.Txn) error {
		for _, slot := range allSlots {
			if err := txn.Delete(slotKey(slot)); err != nil {
				return err
			}
		}
		return nil
	})
	return mapBadgerErr("clear", err)
}

func (s *BadgerStore) Close() error {
	return s.db.Close()
}

func mapBadgerErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, badger.ErrDBClosed) {
		return ErrClosed
	}
	return fmt.Errorf("badger %s: %w", op, err)
}
