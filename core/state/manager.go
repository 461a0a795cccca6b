package state

import (
	"errors"
	"fmt"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"

	"idregistry/storage"
)

// Manager stages key-value writes for a single call on top of a durable
// database. Nothing reaches the database until Commit; Discard drops every
// staged change.
//
// Manager is not safe for concurrent use. The node serializes access.
type Manager struct {
	db      storage.Database
	pending map[string]pendingWrite
}

type pendingWrite struct {
	value   []byte
	deleted bool
}

// NewManager creates a state manager operating on the provided database.
func NewManager(db storage.Database) *Manager {
	return &Manager{db: db, pending: make(map[string]pendingWrite)}
}

// kvKey hashes keys with keccak256 so every namespace maps onto a fixed width
// key space in the backing store.
func kvKey(key []byte) []byte {
	return ethcrypto.Keccak256(key)
}

// KVPut stores the provided value under the supplied key using RLP encoding.
func (m *Manager) KVPut(key []byte, value interface{}) error {
	if len(key) == 0 {
		return fmt.Errorf("kv: key must not be empty")
	}
	encoded, err := rlp.EncodeToBytes(value)
	if err != nil {
		return err
	}
	m.pending[string(kvKey(key))] = pendingWrite{value: encoded}
	return nil
}

// KVGet retrieves the value stored under the supplied key and decodes it into
// the provided destination. The boolean return value indicates whether the key
// existed in state. Staged writes are visible before Commit.
func (m *Manager) KVGet(key []byte, out interface{}) (bool, error) {
	if len(key) == 0 {
		return false, fmt.Errorf("kv: key must not be empty")
	}
	hashed := kvKey(key)
	var data []byte
	if staged, ok := m.pending[string(hashed)]; ok {
		if staged.deleted {
			return false, nil
		}
		data = staged.value
	} else {
		stored, err := m.db.Get(hashed)
		if errors.Is(err, storage.ErrNotFound) {
			return false, nil
		}
		if err != nil {
			return false, err
		}
		data = stored
	}
	if len(data) == 0 {
		return false, nil
	}
	if out == nil {
		return true, nil
	}
	if err := rlp.DecodeBytes(data, out); err != nil {
		return false, err
	}
	return true, nil
}

// KVDelete removes the key. Deleting an absent key is a no-op.
func (m *Manager) KVDelete(key []byte) error {
	if len(key) == 0 {
		return fmt.Errorf("kv: key must not be empty")
	}
	m.pending[string(kvKey(key))] = pendingWrite{deleted: true}
	return nil
}

// Dirty reports whether there are staged changes.
func (m *Manager) Dirty() bool {
	return len(m.pending) > 0
}

// Commit writes every staged change in one batch. On failure the staged
// changes are kept so the caller can Discard them.
func (m *Manager) Commit() error {
	if len(m.pending) == 0 {
		return nil
	}
	batch := m.db.NewBatch()
	for key, write := range m.pending {
		if write.deleted {
			batch.Delete([]byte(key))
			continue
		}
		batch.Put([]byte(key), write.value)
	}
	if err := batch.Write(); err != nil {
		return fmt.Errorf("kv: commit: %w", err)
	}
	m.pending = make(map[string]pendingWrite)
	return nil
}

// Discard drops every staged change.
func (m *Manager) Discard() {
	if len(m.pending) == 0 {
		return
	}
	m.pending = make(map[string]pendingWrite)
}
