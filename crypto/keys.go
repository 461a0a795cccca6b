package crypto

import (
	"crypto/ecdsa"
	"crypto/rand"
	"encoding/hex"
	"errors"

	"github.com/ethereum/go-ethereum/crypto"
)

// AddressLength is the size in bytes of an EVM-style address.
const AddressLength = 20

// Address is a 20-byte secp256k1-derived address.
type Address [AddressLength]byte

// Hex renders the address as a lower-case 0x-prefixed hex string.
func (a Address) Hex() string {
	return "0x" + hex.EncodeToString(a[:])
}

func (a Address) String() string {
	return a.Hex()
}

// --- Key Management ---

type PrivateKey struct {
	*ecdsa.PrivateKey
}

type PublicKey struct {
	*ecdsa.PublicKey
}

func GeneratePrivateKey() (*PrivateKey, error) {
	key, err := ecdsa.GenerateKey(crypto.S256(), rand.Reader)
	if err != nil {
		return nil, err
	}
	return &PrivateKey{key}, nil
}

// Bytes returns the byte representation of the private key.
func (k *PrivateKey) Bytes() []byte {
	return crypto.FromECDSA(k.PrivateKey)
}

func (k *PrivateKey) PubKey() *PublicKey {
	return &PublicKey{&k.PrivateKey.PublicKey}
}

// SignContent signs keccak256(content) and returns the 65-byte
// [R || S || V] signature with V in {0, 1}.
func (k *PrivateKey) SignContent(content []byte) ([]byte, error) {
	if k == nil || k.PrivateKey == nil {
		return nil, errors.New("crypto: nil private key")
	}
	return crypto.Sign(crypto.Keccak256(content), k.PrivateKey)
}

// Address derives the EVM address of the public key.
func (k *PublicKey) Address() Address {
	return PubkeyToAddress(k.PublicKey)
}

// PubkeyToAddress keeps the last 20 bytes of keccak256 over the uncompressed
// public key with its 0x04 format byte stripped.
func PubkeyToAddress(pub *ecdsa.PublicKey) Address {
	var addr Address
	if pub == nil {
		return addr
	}
	uncompressed := crypto.FromECDSAPub(pub)
	if len(uncompressed) != 65 {
		return addr
	}
	digest := crypto.Keccak256(uncompressed[1:])
	copy(addr[:], digest[12:])
	return addr
}

func PrivateKeyFromBytes(b []byte) (*PrivateKey, error) {
	key, err := crypto.ToECDSA(b)
	if err != nil {
		return nil, err
	}
	return &PrivateKey{key}, nil
}

// PrivateKeyFromHex parses a hex encoded private key with an optional 0x prefix.
func PrivateKeyFromHex(s string) (*PrivateKey, error) {
	raw, err := hex.DecodeString(trimHexPrefix(s))
	if err != nil {
		return nil, err
	}
	return PrivateKeyFromBytes(raw)
}
