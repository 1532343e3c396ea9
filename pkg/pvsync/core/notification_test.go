package core

import "testing"

type fakeNotifiable uint64

func (f fakeNotifiable) UniqueID() uint64 { return uint64(f) }

func TestNotificationHub_CoalescesRepeatedArms(t *testing.T) {
	hub := NewNotificationHub(4)
	pv := fakeNotifiable(1)

	for i := 0; i < 100; i++ {
		hub.Arm(pv)
	}

	count := 0
	hub.Drain(func(Notifiable) { count++ })
	if count != 1 {
		t.Errorf("expected exactly one coalesced token, got %d", count)
	}
}

func TestNotificationHub_ClearBeforeReadAllowsRearm(t *testing.T) {
	hub := NewNotificationHub(4)
	pv := fakeNotifiable(1)

	hub.Arm(pv)
	n, ok := hub.NextNotification()
	if !ok || n.UniqueID() != 1 {
		t.Fatalf("expected to drain the first token")
	}

	if armed := hub.Arm(pv); !armed {
		t.Errorf("expected a fresh Arm after drain to succeed")
	}
	if _, ok := hub.NextNotification(); !ok {
		t.Errorf("expected a second token after re-arming")
	}
}

func TestNotificationHub_EmptyReturnsFalse(t *testing.T) {
	hub := NewNotificationHub(4)
	if _, ok := hub.NextNotification(); ok {
		t.Errorf("expected NextNotification on empty hub to return false")
	}
}

func TestNotificationHub_DistinctPVsDoNotCoalesceTogether(t *testing.T) {
	hub := NewNotificationHub(4)

	hub.Arm(fakeNotifiable(1))
	hub.Arm(fakeNotifiable(2))

	seen := map[uint64]bool{}
	hub.Drain(func(n Notifiable) { seen[n.UniqueID()] = true })
	if len(seen) != 2 {
		t.Errorf("expected both PVs to produce tokens, got %v", seen)
	}
}
