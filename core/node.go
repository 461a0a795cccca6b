package core

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"idregistry/core/events"
	"idregistry/core/state"
	"idregistry/crypto"
	"idregistry/native/registry"
	"idregistry/observability"
	"idregistry/observability/logging"
	"idregistry/storage"
)

// Node hosts the registry on top of a durable database. Every call runs
// against a fresh state manager: staged writes are committed when the call
// succeeds and discarded otherwise, and events only leave the node after a
// successful commit.
type Node struct {
	db      storage.Database
	verify  registry.SignatureVerifier
	sink    events.Emitter
	logger  *slog.Logger
	metrics *observability.RegistryMetrics

	allowMigrate bool
	stream       eventStream

	stateMu sync.Mutex
}

// Option customises a Node.
type Option func(*Node)

// WithEventSink forwards committed events to sink in addition to the log
// and metrics sinks.
func WithEventSink(sink events.Emitter) Option {
	return func(n *Node) { n.sink = sink }
}

// WithLogger overrides the node logger.
func WithLogger(logger *slog.Logger) Option {
	return func(n *Node) {
		if logger != nil {
			n.logger = logger
		}
	}
}

// WithSignatureVerifier replaces the EVM signature verifier.
func WithSignatureVerifier(verify registry.SignatureVerifier) Option {
	return func(n *Node) { n.verify = verify }
}

// WithAllowMigrate starts the node even when the stored schema version
// differs from state.StateVersion.
func WithAllowMigrate(allow bool) Option {
	return func(n *Node) { n.allowMigrate = allow }
}

// NewNode wires a node over db. An unversioned database is stamped with the
// current schema version.
func NewNode(db storage.Database, opts ...Option) (*Node, error) {
	if db == nil {
		return nil, errors.New("core: database required")
	}
	n := &Node{
		db:      db,
		logger:  slog.Default(),
		metrics: observability.Registry(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(n)
		}
	}
	if err := state.EnsureStateVersion(db, n.allowMigrate); err != nil {
		return nil, err
	}
	return n, nil
}

// Close releases the underlying database.
func (n *Node) Close() {
	n.stateMu.Lock()
	defer n.stateMu.Unlock()
	n.db.Close()
}

// mutate runs fn against a fresh registry and commits its writes when fn
// succeeds. Callers must hold stateMu.
func (n *Node) mutate(operation string, fn func(*registry.Registry) error) error {
	manager := state.NewManager(n.db)
	buffer := &events.Buffer{}
	reg := registry.NewWithVerifier(manager, n.verify)
	reg.SetEmitter(buffer)

	if err := fn(reg); err != nil {
		manager.Discard()
		buffer.Reset()
		return err
	}
	if manager.Dirty() {
		start := time.Now()
		if err := manager.Commit(); err != nil {
			manager.Discard()
			buffer.Reset()
			n.logger.Error("registry commit failed", slog.String("operation", operation), slog.Any("error", err))
			return err
		}
		n.metrics.ObserveCommit(operation, time.Since(start))
	}
	buffer.Flush(events.EmitterFunc(n.publish))
	return nil
}

func (n *Node) publish(evt events.Event) {
	observability.Events().RecordEvent(evt.EventType())
	record := evt.Event()
	attrs := make([]any, 0, len(record.Attributes)+1)
	attrs = append(attrs, slog.String("event", record.Type))
	for k, v := range record.Attributes {
		attrs = append(attrs, slog.String(k, v))
	}
	n.logger.Info("registry event", attrs...)
	n.stream.publish(record)
	if n.sink != nil {
		n.sink.Emit(evt)
	}
}

func (n *Node) recordWrite(operation, kind string, err error) {
	n.metrics.RecordWrite(operation, kind, err)
	if err == nil {
		return
	}
	switch {
	case errors.Is(err, registry.ErrNotDelegate):
		n.metrics.RecordAuthFailure("not_delegate")
	case errors.Is(err, registry.ErrMissingSignature):
		n.metrics.RecordAuthFailure("missing_signature")
	case errors.Is(err, crypto.ErrSignatureMismatch):
		n.metrics.RecordAuthFailure("signature_mismatch")
	case errors.Is(err, registry.ErrInvalidForeignSignature):
		n.metrics.RecordAuthFailure("invalid_signature")
	}
}

// RegistrySet writes content under (requested, label) on behalf of caller. A
// nil content deletes the entry. A nil requested identity targets the
// caller's own account.
func (n *Node) RegistrySet(caller registry.AccountID, requested *registry.Identity, label string, content, proof *string) error {
	n.stateMu.Lock()
	defer n.stateMu.Unlock()

	operation := "set"
	if content == nil {
		operation = "delete"
	}
	kind := registry.KindNative.String()
	if requested != nil {
		kind = requested.Kind().String()
	}
	err := n.mutate(operation, func(reg *registry.Registry) error {
		return reg.Set(caller, requested, label, content, proof)
	})
	n.recordWrite(operation, kind, err)
	if err != nil {
		var proofText string
		if proof != nil {
			proofText = *proof
		}
		n.logger.Debug("registry write rejected",
			slog.String("operation", operation),
			slog.String("caller", string(caller)),
			slog.String("label", label),
			logging.MaskField("proof", proofText),
			slog.Any("error", err))
	}
	return err
}

// RegistryGet reads the value stored under (identity, label).
func (n *Node) RegistryGet(identity registry.Identity, label string) (string, bool, error) {
	n.stateMu.Lock()
	defer n.stateMu.Unlock()

	return registry.New(state.NewManager(n.db)).Get(identity, label)
}

// RegistryDelegate replaces caller's delegate with target, or revokes it when
// target is nil.
func (n *Node) RegistryDelegate(caller registry.AccountID, target *registry.AccountID) error {
	n.stateMu.Lock()
	defer n.stateMu.Unlock()

	operation := "delegate"
	if target == nil {
		operation = "revoke"
	}
	err := n.mutate(operation, func(reg *registry.Registry) error {
		return reg.Delegate(caller, target)
	})
	n.recordWrite(operation, registry.KindNative.String(), err)
	return err
}

// RegistryDelegateOf returns grantor's current delegate.
func (n *Node) RegistryDelegateOf(grantor registry.AccountID) (registry.AccountID, bool, error) {
	n.stateMu.Lock()
	defer n.stateMu.Unlock()

	return registry.New(state.NewManager(n.db)).DelegateOf(grantor)
}
