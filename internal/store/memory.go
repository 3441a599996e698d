package store

import (
	"context"
	"fmt"

	memdb "github.com/hashicorp/go-memdb"
)

const memTable = "hidden_lists"

type memRow struct {
	Key  string
	Data []byte
}

// Memory is a process-local Backend. Lists are lost on restart.
type Memory struct {
	db *memdb.MemDB
}

// NewMemory creates an empty in-memory backend.
func NewMemory() (*Memory, error) {
	schema := &memdb.DBSchema{
		Tables: map[string]*memdb.TableSchema{
			memTable: {
				Name: memTable,
				Indexes: map[string]*memdb.IndexSchema{
					"id": {
						Name:    "id",
						Unique:  true,
						Indexer: &memdb.StringFieldIndex{Field: "Key"},
					},
				},
			},
		},
	}
	db, err := memdb.NewMemDB(schema)
	if err != nil {
		return nil, fmt.Errorf("memdb: %w", err)
	}
	return &Memory{db: db}, nil
}

func (m *Memory) Load(_ context.Context, key string) ([]byte, error) {
	txn := m.db.Txn(false)
	defer txn.Abort()
	raw, err := txn.First(memTable, "id", key)
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, ErrNotFound
	}
	return raw.(*memRow).Data, nil
}

// Update runs fn inside a memdb write transaction; memdb allows a single
// writer at a time.
func (m *Memory) Update(_ context.Context, key string, fn func(old []byte) ([]byte, error)) error {
	txn := m.db.Txn(true)
	defer txn.Abort()
	raw, err := txn.First(memTable, "id", key)
	if err != nil {
		return err
	}
	var old []byte
	if raw != nil {
		old = raw.(*memRow).Data
	}
	data, err := fn(old)
	if err != nil {
		return err
	}
	if err := txn.Insert(memTable, &memRow{Key: key, Data: data}); err != nil {
		return err
	}
	txn.Commit()
	return nil
}

func (m *Memory) Close() error { return nil }
