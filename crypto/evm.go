package crypto

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"strings"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

// SignatureLength is the size of a recoverable signature: 64 bytes of R || S
// followed by a single recovery id byte.
const SignatureLength = 65

const recoveryIDOffset = 64

var (
	// ErrMalformedAddress marks addresses that are not 20 bytes of hex.
	ErrMalformedAddress = errors.New("crypto: malformed evm address")
	// ErrMalformedSignature marks proofs that are not 65 bytes of hex.
	ErrMalformedSignature = errors.New("crypto: malformed signature")
	// ErrRecoveryFailed is returned when no public key can be recovered, the
	// recovery id is out of range, or the signature is malleable.
	ErrRecoveryFailed = errors.New("crypto: public key recovery failed")
	// ErrSignatureMismatch is returned when the recovered address differs
	// from the claimed one.
	ErrSignatureMismatch = errors.New("crypto: signature does not match address")
)

func trimHexPrefix(s string) string {
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		return s[2:]
	}
	return s
}

// ParseAddress decodes a hex address with an optional 0x prefix. Both upper
// and lower case digits are accepted.
func ParseAddress(s string) (Address, error) {
	var addr Address
	raw, err := hex.DecodeString(trimHexPrefix(s))
	if err != nil {
		return addr, fmt.Errorf("%w: %v", ErrMalformedAddress, err)
	}
	if len(raw) != AddressLength {
		return addr, fmt.Errorf("%w: expected %d bytes, got %d", ErrMalformedAddress, AddressLength, len(raw))
	}
	copy(addr[:], raw)
	return addr, nil
}

// ParseSignature decodes a hex recoverable signature with an optional 0x
// prefix.
func ParseSignature(s string) ([]byte, error) {
	raw, err := hex.DecodeString(trimHexPrefix(strings.TrimSpace(s)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedSignature, err)
	}
	if len(raw) != SignatureLength {
		return nil, fmt.Errorf("%w: expected %d bytes, got %d", ErrMalformedSignature, SignatureLength, len(raw))
	}
	return raw, nil
}

// RecoverAddress recovers the signer address of digest. High-S signatures,
// out-of-range scalars and recovery ids other than 0 or 1 are rejected.
func RecoverAddress(digest, sig []byte) (Address, error) {
	var addr Address
	if len(sig) != SignatureLength {
		return addr, ErrMalformedSignature
	}
	r := new(big.Int).SetBytes(sig[:32])
	s := new(big.Int).SetBytes(sig[32:recoveryIDOffset])
	v := sig[recoveryIDOffset]
	if !ethcrypto.ValidateSignatureValues(v, r, s, true) {
		return addr, fmt.Errorf("%w: invalid signature values", ErrRecoveryFailed)
	}
	pub, err := ethcrypto.Ecrecover(digest, sig)
	if err != nil {
		return addr, fmt.Errorf("%w: %v", ErrRecoveryFailed, err)
	}
	if len(pub) != 65 || pub[0] != 0x04 {
		return addr, fmt.Errorf("%w: unexpected public key encoding", ErrRecoveryFailed)
	}
	copy(addr[:], ethcrypto.Keccak256(pub[1:])[12:])
	return addr, nil
}

// VerifyEVMSignature checks that signatureHex is a signature over
// keccak256(payload) by the key behind claimed. A nil payload is treated as
// the empty byte sequence.
func VerifyEVMSignature(claimed string, payload *string, signatureHex string) error {
	expected, err := ParseAddress(claimed)
	if err != nil {
		return err
	}
	sig, err := ParseSignature(signatureHex)
	if err != nil {
		return err
	}
	var data []byte
	if payload != nil {
		data = []byte(*payload)
	}
	recovered, err := RecoverAddress(ethcrypto.Keccak256(data), sig)
	if err != nil {
		return err
	}
	if !bytes.Equal(recovered[:], expected[:]) {
		return ErrSignatureMismatch
	}
	return nil
}
