package registry

import (
	"errors"
	"testing"
)

type staticDelegates map[AccountID]AccountID

func (s staticDelegates) IsDelegateOf(grantor, candidate AccountID) (bool, error) {
	current, ok := s[grantor]
	return ok && current == candidate, nil
}

type failingDelegates struct{ err error }

func (f failingDelegates) IsDelegateOf(AccountID, AccountID) (bool, error) {
	return false, f.err
}

func TestResolveForWriteSelf(t *testing.T) {
	verifyCalled := false
	r := NewResolver(staticDelegates{}, func(string, *string, string) error {
		verifyCalled = true
		return nil
	})
	got, err := r.ResolveForWrite(nil, "acc1", ptr("x"), nil)
	if err != nil || got != "near|acc1" {
		t.Fatalf("self resolve: %q %v", got, err)
	}
	got, err = r.ResolveForWrite(ptr(Native("acc1")), "acc1", nil, nil)
	if err != nil || got != "near|acc1" {
		t.Fatalf("explicit self resolve: %q %v", got, err)
	}
	if verifyCalled {
		t.Fatalf("verifier must not run for native identities")
	}
}

func TestResolveForWriteDelegate(t *testing.T) {
	r := NewResolver(staticDelegates{"owner": "helper"}, nil)
	got, err := r.ResolveForWrite(ptr(Native("owner")), "helper", nil, nil)
	if err != nil || got != "near|owner" {
		t.Fatalf("delegate resolve: %q %v", got, err)
	}
	if _, err := r.ResolveForWrite(ptr(Native("owner")), "stranger", nil, nil); !errors.Is(err, ErrNotDelegate) {
		t.Fatalf("expected ErrNotDelegate, got %v", err)
	}
	if _, err := r.ResolveForWrite(ptr(Native("helper")), "owner", nil, nil); !errors.Is(err, ErrNotDelegate) {
		t.Fatalf("expected ErrNotDelegate for reversed roles, got %v", err)
	}
}

func TestResolveForWriteStoreFailure(t *testing.T) {
	boom := errors.New("disk gone")
	r := NewResolver(failingDelegates{err: boom}, nil)
	_, err := r.ResolveForWrite(ptr(Native("owner")), "helper", nil, nil)
	if !errors.Is(err, boom) {
		t.Fatalf("expected store error, got %v", err)
	}
	if errors.Is(err, ErrNotDelegate) {
		t.Fatalf("store failures must not be reported as authorization failures")
	}
}

func TestResolveForWriteForeign(t *testing.T) {
	var gotClaimed, gotSig string
	var gotPayload *string
	r := NewResolver(nil, func(claimed string, payload *string, sig string) error {
		gotClaimed, gotPayload, gotSig = claimed, payload, sig
		return nil
	})
	id := Foreign("0xabc")
	got, err := r.ResolveForWrite(&id, "relay", ptr("content"), ptr("sig"))
	if err != nil || got != "evm|0xabc" {
		t.Fatalf("foreign resolve: %q %v", got, err)
	}
	if gotClaimed != "0xabc" || gotSig != "sig" || gotPayload == nil || *gotPayload != "content" {
		t.Fatalf("verifier received %q %v %q", gotClaimed, gotPayload, gotSig)
	}

	if _, err := r.ResolveForWrite(&id, "relay", ptr("content"), nil); !errors.Is(err, ErrMissingSignature) {
		t.Fatalf("expected ErrMissingSignature, got %v", err)
	}
}

func TestResolveForWriteForeignWrapsVerifierError(t *testing.T) {
	cause := errors.New("bad sig")
	r := NewResolver(nil, func(string, *string, string) error { return cause })
	id := Foreign("0xabc")
	_, err := r.ResolveForWrite(&id, "relay", nil, ptr("sig"))
	if !errors.Is(err, ErrInvalidForeignSignature) || !errors.Is(err, cause) {
		t.Fatalf("expected wrapped verifier error, got %v", err)
	}
	if !IsAuthorizationError(err) {
		t.Fatalf("expected authorization classification")
	}
}

func TestResolveForWriteRejectsZeroIdentity(t *testing.T) {
	r := NewResolver(nil, nil)
	if _, err := r.ResolveForWrite(&Identity{}, "acc1", nil, nil); !errors.Is(err, ErrInvalidIdentity) {
		t.Fatalf("expected ErrInvalidIdentity, got %v", err)
	}
}
