package core

import "sync"

// Notifiable is anything a NotificationHub can hand back to a drainer: the
// minimal identity needed to look the PV back up without the hub knowing
// about registry or PV types directly.
type Notifiable interface {
	UniqueID() uint64
}

// latch is the per-PV "has a pending token" flag.
// A Sender's listener CAS-es it false->true before enqueuing a token; the
// consumer clears it before reading the PV, not after, so a publish racing
// with a drain always produces a fresh token.
type latch struct {
	pending bool
}

// NotificationHub is the lock-free-in-spirit MPSC token queue for one side
// (control or device) of the registry. Multiple Senders on
// the opposite side may race to call Arm for distinct PVs concurrently;
// exactly one consumer goroutine drains via NextNotification/Drain.
type NotificationHub struct {
	tokens chan Notifiable

	mu      sync.Mutex
	latches map[uint64]*latch
}

// NewNotificationHub builds a hub with room for capacity distinct pending
// tokens. Capacity should be at least the number of PVs registered on this
// side, since coalescing guarantees at most one outstanding token per PV.
func NewNotificationHub(capacity int) *NotificationHub {
	if capacity < 1 {
		capacity = 1
	}
	return &NotificationHub{
		tokens:  make(chan Notifiable, capacity),
		latches: make(map[uint64]*latch),
	}
}

func (h *NotificationHub) latchFor(id uint64) *latch {
	h.mu.Lock()
	defer h.mu.Unlock()
	l, ok := h.latches[id]
	if !ok {
		l = &latch{}
		h.latches[id] = l
	}
	return l
}

// Arm is called whenever n's Sender publishes. It returns true iff this call
// won the latch and therefore enqueued a token for n; false means a token
// for n is already pending and no-op is the correct coalescing behavior.
func (h *NotificationHub) Arm(n Notifiable) bool {
	l := h.latchFor(n.UniqueID())

	h.mu.Lock()
	if l.pending {
		h.mu.Unlock()
		return false
	}
	l.pending = true
	h.mu.Unlock()

	select {
	case h.tokens <- n:
		return true
	default:
		// Hub is saturated (more distinct pending PVs than capacity); drop
		// the latch back to clear so a future publish can re-arm it rather
		// than wedging this PV's notifications forever.
		h.mu.Lock()
		l.pending = false
		h.mu.Unlock()
		return false
	}
}

// NextNotification pops one token, clearing its latch before returning so
// that a publish racing with this drain always produces a new token. It
// returns nil, false when no token is pending.
func (h *NotificationHub) NextNotification() (Notifiable, bool) {
	select {
	case n := <-h.tokens:
		l := h.latchFor(n.UniqueID())
		h.mu.Lock()
		l.pending = false
		h.mu.Unlock()
		return n, true
	default:
		return nil, false
	}
}

// Drain calls fn for every currently pending token, clearing each latch
// before fn runs. It returns the number of tokens processed.
func (h *NotificationHub) Drain(fn func(Notifiable)) int {
	count := 0
	for {
		n, ok := h.NextNotification()
		if !ok {
			return count
		}
		count++
		fn(n)
	}
}
