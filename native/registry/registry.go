package registry

import (
	"idregistry/core/events"
)

// Registry stores labeled values under native and foreign identities.
type Registry struct {
	store     storage
	delegates *DelegationStore
	resolver  *Resolver
	emitter   events.Emitter
}

// New constructs a registry over store using the EVM signature verifier.
func New(store storage) *Registry {
	return NewWithVerifier(store, nil)
}

// NewWithVerifier constructs a registry with a custom foreign signature
// verifier. A nil verifier selects the EVM one.
func NewWithVerifier(store storage, verify SignatureVerifier) *Registry {
	delegates := NewDelegationStore(store)
	return &Registry{
		store:     store,
		delegates: delegates,
		resolver:  NewResolver(delegates, verify),
		emitter:   events.NoopEmitter{},
	}
}

// SetEmitter configures the event emitter used by the registry. Passing nil
// resets the emitter to a no-op implementation.
func (r *Registry) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		r.emitter = events.NoopEmitter{}
		return
	}
	r.emitter = emitter
}

// Set writes content under (identity, label) or deletes the entry when
// content is nil. The write is authorized first; on any error nothing is
// mutated.
func (r *Registry) Set(caller AccountID, requested *Identity, label string, content, proof *string) error {
	if r == nil || r.store == nil {
		return errNotInitialised
	}
	if err := caller.Validate(); err != nil {
		return err
	}
	canonical, err := r.resolver.ResolveForWrite(requested, caller, content, proof)
	if err != nil {
		return err
	}
	key, err := mappingKey(canonical, label)
	if err != nil {
		return err
	}
	if content == nil {
		if err := r.store.KVDelete(key); err != nil {
			return err
		}
		r.emitter.Emit(events.RegistryValueDeleted{Identity: canonical, Label: label, Caller: string(caller)})
		return nil
	}
	if err := r.store.KVPut(key, *content); err != nil {
		return err
	}
	r.emitter.Emit(events.RegistryValueSet{Identity: canonical, Label: label, Caller: string(caller)})
	return nil
}

// Get returns the value stored under (identity, label). A missing entry is
// reported through the boolean, never as an error.
func (r *Registry) Get(identity Identity, label string) (string, bool, error) {
	if r == nil || r.store == nil {
		return "", false, errNotInitialised
	}
	key, err := mappingKey(identity.Canonical(), label)
	if err != nil {
		return "", false, err
	}
	var content string
	ok, err := r.store.KVGet(key, &content)
	if err != nil || !ok {
		return "", false, err
	}
	return content, true, nil
}

// Delegate makes target the caller's only delegate, or revokes the current
// one when target is nil.
func (r *Registry) Delegate(caller AccountID, target *AccountID) error {
	if r == nil || r.delegates == nil {
		return errNotInitialised
	}
	if err := caller.Validate(); err != nil {
		return err
	}
	if target != nil {
		if err := target.Validate(); err != nil {
			return err
		}
	}
	if err := r.delegates.SetDelegate(caller, target); err != nil {
		return err
	}
	if target == nil {
		r.emitter.Emit(events.RegistryDelegateRevoked{Grantor: string(caller)})
		return nil
	}
	r.emitter.Emit(events.RegistryDelegateSet{Grantor: string(caller), Delegate: string(*target)})
	return nil
}

// DelegateOf returns grantor's current delegate.
func (r *Registry) DelegateOf(grantor AccountID) (AccountID, bool, error) {
	if r == nil {
		return "", false, errNotInitialised
	}
	return r.delegates.Delegate(grantor)
}
