package core

import (
	"testing"

	"github.com/jabolina/go-pvsync/pkg/pvsync/types"
)

func TestBidirectional_PingPongSuppression(t *testing.T) {
	inv := NewInvoker()
	defer inv.Stop()
	a, b := NewBidirectionalPair[int32]("/x", "", "", 1, 2, 0, nil, nil, nil, inv)

	a.Payload()[0] = 5
	if _, err := a.Write(); err != nil {
		t.Fatalf("unexpected error writing on A: %v", err)
	}

	accepted, err := b.ReadNonBlocking()
	if err != nil || !accepted {
		t.Fatalf("expected B to accept A's write: accepted=%v err=%v", accepted, err)
	}
	if b.Payload()[0] != 5 {
		t.Fatalf("got %d, want 5", b.Payload()[0])
	}

	// B did not write back, but even if A's own receiver had something
	// queued (an echo) it must not overwrite A's local value.
	if accepted, _ := a.ReadNonBlocking(); accepted {
		t.Errorf("A should not observe any accepted arrival without B writing")
	}
	if a.Payload()[0] != 5 {
		t.Errorf("A's payload should still hold its own written value 5, got %d", a.Payload()[0])
	}

	b.Payload()[0] = 7
	if _, err := b.Write(); err != nil {
		t.Fatalf("unexpected error writing on B: %v", err)
	}
	accepted, err = a.ReadNonBlocking()
	if err != nil || !accepted {
		t.Fatalf("expected A to accept B's write: accepted=%v err=%v", accepted, err)
	}
	if a.Payload()[0] != 7 {
		t.Errorf("got %d, want 7", a.Payload()[0])
	}
}

func TestBidirectional_WriteDestructivelyAlwaysRejected(t *testing.T) {
	inv := NewInvoker()
	defer inv.Stop()
	a, _ := NewBidirectionalPair[int32]("/x", "", "", 1, 2, 0, nil, nil, nil, inv)

	_, err := a.WriteDestructively()
	if _, ok := err.(*types.RuntimeError); !ok {
		t.Fatalf("expected *RuntimeError, got %v", err)
	}
}

func TestBidirectional_PersistenceOnlyOnControlSide(t *testing.T) {
	inv := NewInvoker()
	defer inv.Stop()
	a, b := NewBidirectionalPair[int32]("/x", "", "", 1, 2, 0, nil, nil, nil, inv)

	sink := &recordingSink{}
	if err := a.SetPersistentDataStorage(sink); err != nil {
		t.Fatalf("expected control-side SetPersistentDataStorage to succeed: %v", err)
	}
	if err := b.SetPersistentDataStorage(sink); err == nil {
		t.Fatalf("expected device-side SetPersistentDataStorage to fail")
	}
}

func TestBidirectional_SharedUniqueID(t *testing.T) {
	inv := NewInvoker()
	defer inv.Stop()
	a, b := NewBidirectionalPair[int32]("/x", "", "", 1, 2, 0, nil, nil, nil, inv)

	if a.UniqueID() != b.UniqueID() {
		t.Errorf("expected both endpoints to share a unique ID, got %d and %d", a.UniqueID(), b.UniqueID())
	}
}

func TestBidirectional_InitialValidityIsFaulty(t *testing.T) {
	inv := NewInvoker()
	defer inv.Stop()
	a, b := NewBidirectionalPair[int32]("/x", "", "", 1, 2, 0, nil, nil, nil, inv)

	if a.Validity() != types.Faulty || b.Validity() != types.Faulty {
		t.Errorf("expected both endpoints to start Faulty, got %v and %v", a.Validity(), b.Validity())
	}
}

type recordingSink struct {
	records []types.PersistedSample
}

func (r *recordingSink) Record(id uint64, name string, elementType types.ElementType, samples []types.PersistedSample) {
	r.records = append(r.records, samples...)
}
