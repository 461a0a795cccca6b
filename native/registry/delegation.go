package registry

// DelegationStore persists the single current delegate of each grantor.
type DelegationStore struct {
	store storage
}

// NewDelegationStore binds the delegation mapping to the provided storage.
func NewDelegationStore(store storage) *DelegationStore {
	return &DelegationStore{store: store}
}

// SetDelegate replaces the caller's delegate, or removes it when delegate is
// nil. Repeating a call leaves the same state.
func (d *DelegationStore) SetDelegate(caller AccountID, delegate *AccountID) error {
	if d == nil || d.store == nil {
		return errNotInitialised
	}
	key := delegateKey(caller)
	if delegate == nil {
		return d.store.KVDelete(key)
	}
	return d.store.KVPut(key, string(*delegate))
}

// Delegate returns the current delegate of grantor.
func (d *DelegationStore) Delegate(grantor AccountID) (AccountID, bool, error) {
	if d == nil || d.store == nil {
		return "", false, errNotInitialised
	}
	var stored string
	ok, err := d.store.KVGet(delegateKey(grantor), &stored)
	if err != nil || !ok {
		return "", false, err
	}
	return AccountID(stored), true, nil
}

// IsDelegateOf reports whether candidate is grantor's current delegate.
func (d *DelegationStore) IsDelegateOf(grantor, candidate AccountID) (bool, error) {
	current, ok, err := d.Delegate(grantor)
	if err != nil || !ok {
		return false, err
	}
	return current == candidate, nil
}
