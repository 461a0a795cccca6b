package registry

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"idregistry/crypto"
)

// AccountID names an account in the host's native namespace.
type AccountID string

func (a AccountID) String() string { return string(a) }

// Validate rejects empty or whitespace-padded account identifiers.
func (a AccountID) Validate() error {
	if a == "" {
		return fmt.Errorf("%w: account required", ErrInvalidIdentity)
	}
	if strings.TrimSpace(string(a)) != string(a) {
		return fmt.Errorf("%w: account %q has surrounding whitespace", ErrInvalidIdentity, string(a))
	}
	return nil
}

// Kind discriminates the Identity variants.
type Kind uint8

const (
	KindNative Kind = iota + 1
	KindForeign
)

func (k Kind) String() string {
	switch k {
	case KindNative:
		return "native"
	case KindForeign:
		return "evm"
	default:
		return "unknown"
	}
}

const (
	nativeTag  = "near|"
	foreignTag = "evm|"
)

// Identity is either a native account or a foreign (EVM) address. The zero
// value is invalid; construct identities with Native or Foreign.
type Identity struct {
	kind  Kind
	value string
}

// Native returns the identity of a native account.
func Native(account AccountID) Identity {
	return Identity{kind: KindNative, value: string(account)}
}

// Foreign returns the identity of an EVM address. The address is kept
// verbatim; it is only decoded when a signature is checked.
func Foreign(address string) Identity {
	return Identity{kind: KindForeign, value: address}
}

func (id Identity) Kind() Kind { return id.kind }

// Account returns the native account and true for native identities.
func (id Identity) Account() (AccountID, bool) {
	if id.kind != KindNative {
		return "", false
	}
	return AccountID(id.value), true
}

// Address returns the foreign address and true for foreign identities.
func (id Identity) Address() (string, bool) {
	if id.kind != KindForeign {
		return "", false
	}
	return id.value, true
}

// Canonical renders the storage key component: "near|<account>" or
// "evm|<address>". The payload follows the tag verbatim, which keeps the
// encoding injective.
func (id Identity) Canonical() string {
	switch id.kind {
	case KindNative:
		return nativeTag + id.value
	case KindForeign:
		return foreignTag + id.value
	default:
		return ""
	}
}

func (id Identity) String() string { return id.Canonical() }

// Validate checks the variant payload. Foreign addresses must decode to 20
// bytes.
func (id Identity) Validate() error {
	switch id.kind {
	case KindNative:
		return AccountID(id.value).Validate()
	case KindForeign:
		if _, err := crypto.ParseAddress(id.value); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidIdentity, err)
		}
		return nil
	default:
		return fmt.Errorf("%w: unknown identity kind", ErrInvalidIdentity)
	}
}

// ParseCanonical is the inverse of Canonical.
func ParseCanonical(s string) (Identity, error) {
	switch {
	case strings.HasPrefix(s, nativeTag):
		return Native(AccountID(s[len(nativeTag):])), nil
	case strings.HasPrefix(s, foreignTag):
		return Foreign(s[len(foreignTag):]), nil
	default:
		return Identity{}, fmt.Errorf("%w: unknown canonical prefix in %q", ErrInvalidIdentity, s)
	}
}

type identityJSON struct {
	AccountID  *string `json:"accountId,omitempty"`
	EvmAddress *string `json:"evmAddress,omitempty"`
}

// MarshalJSON encodes native accounts as {"accountId": ...} and foreign
// addresses as {"evmAddress": ...}.
func (id Identity) MarshalJSON() ([]byte, error) {
	switch id.kind {
	case KindNative:
		return json.Marshal(identityJSON{AccountID: &id.value})
	case KindForeign:
		return json.Marshal(identityJSON{EvmAddress: &id.value})
	default:
		return nil, fmt.Errorf("%w: unknown identity kind", ErrInvalidIdentity)
	}
}

// UnmarshalJSON accepts a bare string (native account), {"accountId": ...}
// or {"evmAddress": ...}.
func (id *Identity) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '"' {
		var account string
		if err := json.Unmarshal(trimmed, &account); err != nil {
			return err
		}
		*id = Native(AccountID(account))
		return nil
	}
	var wire identityJSON
	if err := json.Unmarshal(trimmed, &wire); err != nil {
		return err
	}
	switch {
	case wire.AccountID != nil && wire.EvmAddress != nil:
		return fmt.Errorf("%w: provide exactly one of accountId or evmAddress", ErrInvalidIdentity)
	case wire.AccountID != nil:
		*id = Native(AccountID(*wire.AccountID))
	case wire.EvmAddress != nil:
		*id = Foreign(*wire.EvmAddress)
	default:
		return fmt.Errorf("%w: accountId or evmAddress required", ErrInvalidIdentity)
	}
	return nil
}
