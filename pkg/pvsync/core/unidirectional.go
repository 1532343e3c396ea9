package core

import (
	"context"
	"sync/atomic"

	"github.com/jabolina/go-pvsync/pkg/pvsync/types"
)

// snapshot is the small, frequently-read slice of a PV's state that must
// stay visible to goroutines other than the one that owns reads or writes:
// monitoring code calling TimeStamp/VersionNumber/Validity concurrently with
// the owning thread's Write/Read. Everything else on Sender/Receiver is
// touched only by the single owning goroutine.
type snapshot struct {
	ts       types.Timestamp
	version  types.Version
	validity types.Validity
}

// Sender is the write-only half of a unidirectional PV pair.
// Exactly one goroutine may call its write methods; TimeStamp, VersionNumber,
// Validity, and the other ProcessVariable accessors may be called from any
// goroutine.
type Sender[T types.Element] struct {
	id                      uint64
	name, unit, description string
	flags                   types.Flags

	queue   *TransportQueue[T]
	current *types.Buffer[T]
	payload []T

	tsSource    types.TimestampSource
	lastVersion types.Version
	validity    types.Validity
	snap        atomicSnapshot

	notifyHub    *NotificationHub
	notifyTarget Notifiable

	persistence types.PersistenceSink
}

// Receiver is the read-only half of a unidirectional PV pair.
type Receiver[T types.Element] struct {
	id                      uint64
	name, unit, description string
	flags                   types.Flags

	queue   *TransportQueue[T]
	current *types.Buffer[T]

	snap atomicSnapshot
}

// atomicSnapshot publishes a *snapshot via an atomic pointer so readers on
// other goroutines never observe a torn combination of timestamp/version/
// validity.
type atomicSnapshot struct {
	ptr atomic.Pointer[snapshot]
}

func (a *atomicSnapshot) store(s snapshot) { a.ptr.Store(&s) }
func (a *atomicSnapshot) load() snapshot {
	if p := a.ptr.Load(); p != nil {
		return *p
	}
	return snapshot{}
}

// NewUnidirectionalPair builds a Sender/Receiver pair sharing one
// TransportQueue of ring capacity queueCapacity for payloads of length n. hub
// and invoker may be nil if this pair's receiver will never be drained via
// notifications or ReadAsync.
func NewUnidirectionalPair[T types.Element](name, unit, description string, n, queueCapacity int, flags types.Flags, tsSource types.TimestampSource, hub *NotificationHub, invoker Invoker) (*Sender[T], *Receiver[T]) {
	if tsSource == nil {
		tsSource = types.SystemClockSource{}
	}
	id := NextPairID()
	queue := NewTransportQueue[T](queueCapacity, n, invoker)

	receiver := &Receiver[T]{
		id:          id,
		name:        name,
		unit:        unit,
		description: description,
		flags:       flags,
		queue:       queue,
		current:     types.NewBuffer[T](n),
	}
	receiver.snap.store(snapshot{validity: types.Faulty})

	sender := &Sender[T]{
		id:          id,
		name:        name,
		unit:        unit,
		description: description,
		flags:       flags,
		queue:       queue,
		current:     types.NewBuffer[T](n),
		payload:     make([]T, n),
		tsSource:    tsSource,
		validity:    types.Ok,
	}
	if hub != nil {
		sender.notifyHub = hub
		sender.notifyTarget = receiver
	}
	return sender, receiver
}

// --- ProcessVariable surface, shared shape ---

func (s *Sender[T]) Name() string               { return s.name }
func (s *Sender[T]) ValueType() types.ElementType { return types.ElementTypeOf[T]() }
func (s *Sender[T]) NumberOfSamples() int        { return len(s.payload) }
func (s *Sender[T]) Unit() string                { return s.unit }
func (s *Sender[T]) Description() string         { return s.description }
func (s *Sender[T]) Readable() bool              { return false }
func (s *Sender[T]) Writeable() bool             { return true }
func (s *Sender[T]) ReadOnly() bool              { return false }
func (s *Sender[T]) UniqueID() uint64             { return s.id }
func (s *Sender[T]) TimeStamp() types.Timestamp   { return s.snap.load().ts }
func (s *Sender[T]) VersionNumber() types.Version { return s.snap.load().version }
func (s *Sender[T]) Validity() types.Validity     { return s.snap.load().validity }

func (r *Receiver[T]) Name() string                { return r.name }
func (r *Receiver[T]) ValueType() types.ElementType { return types.ElementTypeOf[T]() }
func (r *Receiver[T]) NumberOfSamples() int         { return len(r.current.Payload) }
func (r *Receiver[T]) Unit() string                 { return r.unit }
func (r *Receiver[T]) Description() string          { return r.description }
func (r *Receiver[T]) Readable() bool               { return true }
func (r *Receiver[T]) Writeable() bool              { return false }
func (r *Receiver[T]) ReadOnly() bool               { return true }
func (r *Receiver[T]) UniqueID() uint64             { return r.id }
func (r *Receiver[T]) TimeStamp() types.Timestamp   { return r.snap.load().ts }
func (r *Receiver[T]) VersionNumber() types.Version { return r.snap.load().version }
func (r *Receiver[T]) Validity() types.Validity     { return r.snap.load().validity }

// Payload returns the Sender's user-facing, mutable write buffer. Mutate it
// in place, then call Write to publish.
func (s *Sender[T]) Payload() []T { return s.payload }

// Payload returns the Receiver's most recently transferred values. Valid
// only after a successful read.
func (r *Receiver[T]) Payload() []T { return r.current.Payload }

// SetDataValidity sets the validity flag that the next Write call will
// attach to the published Buffer.
func (s *Sender[T]) SetDataValidity(v types.Validity) { s.validity = v }

// SetPersistentDataStorage attaches sink so every future Write also records
// a snapshot of the payload for the Persistence Overlay. A Sender never
// rejects this (unlike BidirectionalEndpoint, which only allows it on the
// control-system side); the error return exists so both types satisfy the
// same interface for the registry's EnablePersistentDataStorage.
func (s *Sender[T]) SetPersistentDataStorage(sink types.PersistenceSink) error {
	s.persistence = sink
	return nil
}

// Write publishes the current contents of Payload() with an auto-generated
// version and the configured TimestampSource's current time. Returns true
// iff a previously-unread value was discarded by the transport queue.
func (s *Sender[T]) Write() (bool, error) {
	return s.write(types.NextVersion(), s.tsSource.Now())
}

// WriteVersioned publishes with an explicit version, which must be strictly
// greater than the version used by the previous Write on this Sender.
func (s *Sender[T]) WriteVersioned(ver types.Version) (bool, error) {
	if !s.lastVersion.Less(ver) {
		return false, types.NewLogicError("write", "explicit version must be strictly greater than the last version")
	}
	return s.write(ver, s.tsSource.Now())
}

func (s *Sender[T]) write(ver types.Version, ts types.Timestamp) (bool, error) {
	if err := s.current.CopyPayloadFrom(s.payload); err != nil {
		return false, err
	}
	s.current.Version = ver
	s.current.Timestamp = ts
	s.current.Validity = s.validity
	s.recordPersistence(s.payload)
	lost := s.queue.PushOverwrite(s.current)
	s.lastVersion = ver
	s.snap.store(snapshot{ts: ts, version: ver, validity: s.validity})
	s.notify()
	return lost, nil
}

// WriteDestructively swaps Payload() directly into the transport queue
// instead of copying it, leaving the Sender's payload holding whatever the
// queue displaced. Requires the MaySendDestructively flag.
func (s *Sender[T]) WriteDestructively() (bool, error) {
	return s.writeDestructively(types.NextVersion(), s.tsSource.Now())
}

// WriteDestructivelyVersioned is WriteDestructively with an explicit
// timestamp and version; the version must be strictly greater than the last
// one used on this Sender.
func (s *Sender[T]) WriteDestructivelyVersioned(ts types.Timestamp, ver types.Version) (bool, error) {
	if !s.lastVersion.Less(ver) {
		return false, types.NewLogicError("writeDestructively", "explicit version must be strictly greater than the last version")
	}
	return s.writeDestructively(ver, ts)
}

func (s *Sender[T]) writeDestructively(ver types.Version, ts types.Timestamp) (bool, error) {
	if !s.flags.Has(types.MaySendDestructively) {
		return false, types.NewLogicError("writeDestructively", "sender does not have the MaySendDestructively flag")
	}
	s.current.Payload, s.payload = s.payload, s.current.Payload
	s.current.Version = ver
	s.current.Timestamp = ts
	s.current.Validity = s.validity
	s.recordPersistence(s.current.Payload)
	lost := s.queue.PushOverwrite(s.current)
	s.lastVersion = ver
	s.snap.store(snapshot{ts: ts, version: ver, validity: s.validity})
	s.notify()
	return lost, nil
}

func (s *Sender[T]) recordPersistence(payload []T) {
	if s.persistence == nil {
		return
	}
	samples := make([]types.PersistedSample, len(payload))
	for i, v := range payload {
		samples[i] = types.PersistedSample{Index: i, Value: v}
	}
	s.persistence.Record(s.id, s.name, types.ElementTypeOf[T](), samples)
}

func (s *Sender[T]) notify() {
	if s.notifyHub == nil {
		return
	}
	s.notifyHub.Arm(s.notifyTarget)
}

// RebindNotifyTarget replaces the Notifiable armed on every future publish.
// NewUnidirectionalPair defaults it to the paired Receiver; a wrapper that
// owns that Receiver (BidirectionalEndpoint's causality filter) must rebind
// it to itself so that drainers observe the filtered endpoint, not the raw
// Receiver underneath it.
func (s *Sender[T]) RebindNotifyTarget(n Notifiable) { s.notifyTarget = n }

// ReadNonBlocking tries a non-blocking dequeue. On success it updates
// Payload, TimeStamp, VersionNumber, and Validity, and returns true.
func (r *Receiver[T]) ReadNonBlocking() (bool, error) {
	if !r.Readable() {
		return false, types.NewLogicError("readNonBlocking", "PV is not readable")
	}
	if !r.queue.Pop(r.current) {
		return false, nil
	}
	r.snap.store(snapshot{ts: r.current.Timestamp, version: r.current.Version, validity: r.current.Validity})
	return true, nil
}

// Read blocks until a value arrives or ctx is cancelled. Disallowed (returns
// LogicError) on a poll-only receiver lacking the WaitForNewData flag.
func (r *Receiver[T]) Read(ctx context.Context) error {
	if !r.flags.Has(types.WaitForNewData) {
		return types.NewLogicError("read", "blocking reads require the WaitForNewData flag")
	}
	if err := r.queue.PopWait(ctx, r.current); err != nil {
		return err
	}
	r.snap.store(snapshot{ts: r.current.Timestamp, version: r.current.Version, validity: r.current.Validity})
	return nil
}

// ReadLatest drains every pending Buffer, keeping only the most recent, and
// reports whether at least one was consumed.
func (r *Receiver[T]) ReadLatest() (bool, error) {
	got := false
	for {
		ok, err := r.ReadNonBlocking()
		if err != nil {
			return got, err
		}
		if !ok {
			return got, nil
		}
		got = true
	}
}

// ReadAsync registers fn to run, deferred on the transport queue's Invoker,
// the next time data becomes available; fn runs after the Receiver's state
// has already been updated by an internal ReadNonBlocking.
func (r *Receiver[T]) ReadAsync(fn func()) {
	r.queue.Then(func() {
		_, _ = r.ReadNonBlocking()
		fn()
	})
}
