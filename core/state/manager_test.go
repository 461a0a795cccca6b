package state

import (
	"testing"

	"idregistry/storage"
)

type record struct {
	Owner string
	Value string
}

func TestManagerStagesUntilCommit(t *testing.T) {
	db := storage.NewMemDB()
	defer db.Close()
	mgr := NewManager(db)

	if err := mgr.KVPut([]byte("k"), &record{Owner: "acc1", Value: "v"}); err != nil {
		t.Fatalf("put: %v", err)
	}
	if !mgr.Dirty() {
		t.Fatalf("expected staged changes")
	}
	if len(db.Keys()) != 0 {
		t.Fatalf("database written before commit")
	}

	var got record
	ok, err := mgr.KVGet([]byte("k"), &got)
	if err != nil || !ok {
		t.Fatalf("staged read: ok=%v err=%v", ok, err)
	}
	if got.Value != "v" {
		t.Fatalf("unexpected staged value %q", got.Value)
	}

	if err := mgr.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}
	if mgr.Dirty() {
		t.Fatalf("commit must clear staged changes")
	}
	if len(db.Keys()) != 1 {
		t.Fatalf("expected one stored key, got %d", len(db.Keys()))
	}

	fresh := NewManager(db)
	ok, err = fresh.KVGet([]byte("k"), &got)
	if err != nil || !ok {
		t.Fatalf("committed read: ok=%v err=%v", ok, err)
	}
}

func TestManagerDiscardDropsWrites(t *testing.T) {
	db := storage.NewMemDB()
	mgr := NewManager(db)

	if err := mgr.KVPut([]byte("k"), "committed"); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := mgr.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}

	if err := mgr.KVPut([]byte("k"), "overwritten"); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := mgr.KVPut([]byte("other"), "new"); err != nil {
		t.Fatalf("put: %v", err)
	}
	mgr.Discard()

	var value string
	ok, err := mgr.KVGet([]byte("k"), &value)
	if err != nil || !ok {
		t.Fatalf("read after discard: ok=%v err=%v", ok, err)
	}
	if value != "committed" {
		t.Fatalf("expected committed value, got %q", value)
	}
	ok, err = mgr.KVGet([]byte("other"), nil)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if ok {
		t.Fatalf("discarded key must not exist")
	}
}

func TestManagerDeleteShadowsStoredValue(t *testing.T) {
	db := storage.NewMemDB()
	mgr := NewManager(db)

	if err := mgr.KVPut([]byte("k"), "v"); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := mgr.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}
	if err := mgr.KVDelete([]byte("k")); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if ok, _ := mgr.KVGet([]byte("k"), nil); ok {
		t.Fatalf("staged delete must hide stored value")
	}
	if err := mgr.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}
	if len(db.Keys()) != 0 {
		t.Fatalf("expected key removed from database")
	}
}

func TestManagerEmptyStringIsPresent(t *testing.T) {
	mgr := NewManager(storage.NewMemDB())
	if err := mgr.KVPut([]byte("k"), ""); err != nil {
		t.Fatalf("put: %v", err)
	}
	var value string
	ok, err := mgr.KVGet([]byte("k"), &value)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !ok || value != "" {
		t.Fatalf("expected present empty string, got ok=%v value=%q", ok, value)
	}
}

func TestManagerRejectsEmptyKey(t *testing.T) {
	mgr := NewManager(storage.NewMemDB())
	if err := mgr.KVPut(nil, "v"); err == nil {
		t.Fatalf("expected error for empty key")
	}
	if _, err := mgr.KVGet(nil, nil); err == nil {
		t.Fatalf("expected error for empty key")
	}
	if err := mgr.KVDelete(nil); err == nil {
		t.Fatalf("expected error for empty key")
	}
}
