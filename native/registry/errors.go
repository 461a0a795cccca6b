package registry

import "errors"

var (
	// ErrNotDelegate is returned when a caller writes to another native
	// account without being its delegate.
	ErrNotDelegate = errors.New("registry: caller is not a delegate of the target account")
	// ErrMissingSignature is returned for foreign identity writes without a
	// proof.
	ErrMissingSignature = errors.New("registry: signature required for evm identity")
	// ErrInvalidForeignSignature wraps every signature verification failure.
	// The underlying crypto error stays reachable through errors.Is.
	ErrInvalidForeignSignature = errors.New("registry: invalid evm signature")
	// ErrInvalidIdentity marks malformed identities.
	ErrInvalidIdentity = errors.New("registry: invalid identity")

	errNotInitialised = errors.New("registry: not initialised")
)

// IsAuthorizationError reports whether err is a permission failure rather
// than malformed input or a storage fault.
func IsAuthorizationError(err error) bool {
	return errors.Is(err, ErrNotDelegate) ||
		errors.Is(err, ErrMissingSignature) ||
		errors.Is(err, ErrInvalidForeignSignature)
}
