package events

const (
	TypeRegistryValueSet        = "registry.set"
	TypeRegistryValueDeleted    = "registry.delete"
	TypeRegistryDelegateSet     = "registry.delegate"
	TypeRegistryDelegateRevoked = "registry.revoke"
)

// RegistryValueSet is emitted when a value is written under an identity.
type RegistryValueSet struct {
	Identity string
	Label    string
	Caller   string
}

// EventType implements the Event interface.
func (RegistryValueSet) EventType() string { return TypeRegistryValueSet }

// Event converts the strongly typed event to the generic representation used by subscribers.
func (e RegistryValueSet) Event() *Record {
	return &Record{
		Type: TypeRegistryValueSet,
		Attributes: map[string]string{
			"identity": e.Identity,
			"label":    e.Label,
			"caller":   e.Caller,
		},
	}
}

// RegistryValueDeleted is emitted when an entry is removed.
type RegistryValueDeleted struct {
	Identity string
	Label    string
	Caller   string
}

// EventType implements the Event interface.
func (RegistryValueDeleted) EventType() string { return TypeRegistryValueDeleted }

// Event converts the strongly typed event to the generic representation used by subscribers.
func (e RegistryValueDeleted) Event() *Record {
	return &Record{
		Type: TypeRegistryValueDeleted,
		Attributes: map[string]string{
			"identity": e.Identity,
			"label":    e.Label,
			"caller":   e.Caller,
		},
	}
}

// RegistryDelegateSet is emitted when a grantor names a delegate.
type RegistryDelegateSet struct {
	Grantor  string
	Delegate string
}

// EventType implements the Event interface.
func (RegistryDelegateSet) EventType() string { return TypeRegistryDelegateSet }

// Event converts the strongly typed event to the generic representation used by subscribers.
func (e RegistryDelegateSet) Event() *Record {
	return &Record{
		Type: TypeRegistryDelegateSet,
		Attributes: map[string]string{
			"grantor":  e.Grantor,
			"delegate": e.Delegate,
		},
	}
}

// RegistryDelegateRevoked is emitted when a grantor clears its delegate.
type RegistryDelegateRevoked struct {
	Grantor string
}

// EventType implements the Event interface.
func (RegistryDelegateRevoked) EventType() string { return TypeRegistryDelegateRevoked }

// Event converts the strongly typed event to the generic representation used by subscribers.
func (e RegistryDelegateRevoked) Event() *Record {
	return &Record{
		Type:       TypeRegistryDelegateRevoked,
		Attributes: map[string]string{"grantor": e.Grantor},
	}
}
