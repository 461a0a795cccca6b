package registry

import (
	"fmt"

	"idregistry/crypto"
)

// delegateView is the read side of the delegation store consulted when a
// caller writes on behalf of another native account.
type delegateView interface {
	IsDelegateOf(grantor, candidate AccountID) (bool, error)
}

// SignatureVerifier checks a recoverable signature over payload against a
// claimed foreign address.
type SignatureVerifier func(claimed string, payload *string, signatureHex string) error

// Resolver authorizes writes and returns the canonical identity used as the
// storage key prefix. It holds no state of its own.
type Resolver struct {
	delegates delegateView
	verify    SignatureVerifier
}

// NewResolver builds a resolver. A nil verifier selects
// crypto.VerifyEVMSignature.
func NewResolver(delegates delegateView, verify SignatureVerifier) *Resolver {
	if verify == nil {
		verify = crypto.VerifyEVMSignature
	}
	return &Resolver{delegates: delegates, verify: verify}
}

// ResolveForWrite decides whether caller may write under requested.
//
//   - nil requested: the caller's own namespace.
//   - native target: the caller itself or the target's current delegate.
//   - foreign address: proof must be a signature over payload (the empty
//     sequence when payload is nil) by the address's key.
func (r *Resolver) ResolveForWrite(requested *Identity, caller AccountID, payload, proof *string) (string, error) {
	if r == nil {
		return "", errNotInitialised
	}
	if requested == nil {
		return Native(caller).Canonical(), nil
	}
	switch requested.Kind() {
	case KindNative:
		target, _ := requested.Account()
		if err := target.Validate(); err != nil {
			return "", err
		}
		if target == caller {
			return requested.Canonical(), nil
		}
		if r.delegates == nil {
			return "", ErrNotDelegate
		}
		ok, err := r.delegates.IsDelegateOf(target, caller)
		if err != nil {
			return "", err
		}
		if !ok {
			return "", fmt.Errorf("%w: %s may not write to %s", ErrNotDelegate, caller, target)
		}
		return requested.Canonical(), nil
	case KindForeign:
		if proof == nil {
			return "", ErrMissingSignature
		}
		address, _ := requested.Address()
		if err := r.verify(address, payload, *proof); err != nil {
			return "", fmt.Errorf("%w: %w", ErrInvalidForeignSignature, err)
		}
		return requested.Canonical(), nil
	default:
		return "", fmt.Errorf("%w: unknown identity kind", ErrInvalidIdentity)
	}
}
