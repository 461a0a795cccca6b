package registry

import (
	"fmt"

	"github.com/ethereum/go-ethereum/rlp"
)

// storage abstracts the subset of state manager functionality required by the
// registry.
type storage interface {
	KVGet(key []byte, out interface{}) (bool, error)
	KVPut(key []byte, value interface{}) error
	KVDelete(key []byte) error
}

var (
	mappingPrefix  = []byte("registry/mapping/")
	delegatePrefix = []byte("registry/delegate/")
)

// mappingKey encodes the (identity, label) tuple as an RLP list so that no
// two distinct tuples share a key regardless of separator characters.
func mappingKey(canonical, label string) ([]byte, error) {
	encoded, err := rlp.EncodeToBytes([]string{canonical, label})
	if err != nil {
		return nil, fmt.Errorf("registry: encode mapping key: %w", err)
	}
	return append(append([]byte(nil), mappingPrefix...), encoded...), nil
}

func delegateKey(grantor AccountID) []byte {
	return append(append([]byte(nil), delegatePrefix...), grantor...)
}
