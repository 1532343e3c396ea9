package core

import (
	"context"

	"github.com/jabolina/go-pvsync/pkg/pvsync/types"
)

// BidirectionalEndpoint is one half of a bidirectional PV pair: it is built
// from two underlying unidirectional pairs glued antiparallel, and applies a
// version-based causality filter to every
// arrival so a value written locally never echoes back as if it were new.
type BidirectionalEndpoint[T types.Element] struct {
	id                      uint64
	name, unit, description string

	sender   *Sender[T]
	receiver *Receiver[T]
	payload  []T

	localVersion types.Version
	snap         atomicSnapshot

	partner       *BidirectionalEndpoint[T]
	isControlSide bool
	persistence   types.PersistenceSink
}

// NewBidirectionalPair builds two endpoints, A and B, sharing one pair ID.
// A is designated the control-system side: only A may later be given a
// Persistence Overlay via SetPersistentDataStorage. hubA and hubB are the
// notification hubs that learn about arrivals on A and B respectively.
func NewBidirectionalPair[T types.Element](name, unit, description string, n, queueCapacity int, flags types.Flags, tsSource types.TimestampSource, hubA, hubB *NotificationHub, invoker Invoker) (a, b *BidirectionalEndpoint[T]) {
	senderAtoB, receiverAtoB := NewUnidirectionalPair[T](name, unit, description, n, queueCapacity, flags, tsSource, hubB, invoker)
	senderBtoA, receiverBtoA := NewUnidirectionalPair[T](name, unit, description, n, queueCapacity, flags, tsSource, hubA, invoker)

	// Both ends of a bidirectional pair share the same
	// unique ID; we take the A-to-B pair's ID as that shared value.
	id := senderAtoB.UniqueID()

	a = &BidirectionalEndpoint[T]{
		id: id, name: name, unit: unit, description: description,
		sender: senderAtoB, receiver: receiverBtoA,
		payload: make([]T, n), isControlSide: true,
	}
	b = &BidirectionalEndpoint[T]{
		id: id, name: name, unit: unit, description: description,
		sender: senderBtoA, receiver: receiverAtoB,
		payload: make([]T, n), isControlSide: false,
	}
	a.partner, b.partner = b, a
	a.snap.store(snapshot{validity: types.Faulty})
	b.snap.store(snapshot{validity: types.Faulty})

	// The underlying Senders default to arming their own Receiver; rebind
	// them to the owning endpoint so a drainer sees the causality-filtered
	// BidirectionalEndpoint, never the raw Receiver it wraps.
	senderAtoB.RebindNotifyTarget(b)
	senderBtoA.RebindNotifyTarget(a)
	return a, b
}

func (e *BidirectionalEndpoint[T]) Name() string                { return e.name }
func (e *BidirectionalEndpoint[T]) ValueType() types.ElementType { return types.ElementTypeOf[T]() }
func (e *BidirectionalEndpoint[T]) NumberOfSamples() int         { return len(e.payload) }
func (e *BidirectionalEndpoint[T]) Unit() string                 { return e.unit }
func (e *BidirectionalEndpoint[T]) Description() string          { return e.description }
func (e *BidirectionalEndpoint[T]) Readable() bool               { return true }
func (e *BidirectionalEndpoint[T]) Writeable() bool              { return true }
func (e *BidirectionalEndpoint[T]) ReadOnly() bool               { return false }
func (e *BidirectionalEndpoint[T]) UniqueID() uint64             { return e.id }
func (e *BidirectionalEndpoint[T]) TimeStamp() types.Timestamp   { return e.snap.load().ts }
func (e *BidirectionalEndpoint[T]) VersionNumber() types.Version { return e.snap.load().version }
func (e *BidirectionalEndpoint[T]) Validity() types.Validity     { return e.snap.load().validity }

// Payload returns the endpoint's own mutable payload slice: written before
// Write(), and holding the last accepted value after a successful read.
func (e *BidirectionalEndpoint[T]) Payload() []T { return e.payload }

// Partner returns the unique ID of the opposite endpoint of this pair.
func (e *BidirectionalEndpoint[T]) Partner() uint64 { return e.partner.id }

// SetPersistentDataStorage attaches sink to this endpoint's outgoing writes
// and to arrivals accepted by the causality filter. Only the control-system
// endpoint of the pair may carry a sink.
func (e *BidirectionalEndpoint[T]) SetPersistentDataStorage(sink types.PersistenceSink) error {
	if !e.isControlSide {
		return types.NewLogicError("setPersistentDataStorage", "persistence may only be attached to the control-system endpoint of a bidirectional pair")
	}
	e.persistence = sink
	e.sender.SetPersistentDataStorage(sink)
	return nil
}

// Write allocates a new version, copies Payload() into the underlying
// Sender, publishes it, and adopts the written version and timestamp as
// this endpoint's own current state. Returns true iff data was lost on the
// underlying transport queue.
func (e *BidirectionalEndpoint[T]) Write() (bool, error) {
	ver := types.NextVersion()
	copy(e.sender.Payload(), e.payload)
	lost, err := e.sender.WriteVersioned(ver)
	if err != nil {
		return false, err
	}
	e.localVersion = ver
	e.snap.store(snapshot{ts: e.sender.TimeStamp(), version: ver, validity: e.sender.Validity()})
	return lost, nil
}

// WriteDestructively is always rejected on a bidirectional endpoint: moving
// the payload instead of copying it would defeat the causality filter's
// ability to compare against a value still held locally.
func (e *BidirectionalEndpoint[T]) WriteDestructively() (bool, error) {
	return false, types.NewRuntimeError("writeDestructively", "destructive writes are not permitted on bidirectional endpoints")
}

// applyCausalityFilter compares the just-arrived Receiver state against this
// endpoint's own current version. It accepts (adopts payload/timestamp/
// version/validity and updates persistence) only if the arrival is strictly
// newer, and silently discards otherwise — this is what stops a value
// written locally from bouncing back as if it were new.
func (e *BidirectionalEndpoint[T]) applyCausalityFilter() bool {
	arrived := e.receiver.VersionNumber()
	if !e.localVersion.Less(arrived) {
		return false
	}
	copy(e.payload, e.receiver.Payload())
	e.localVersion = arrived
	e.snap.store(snapshot{ts: e.receiver.TimeStamp(), version: arrived, validity: e.receiver.Validity()})
	if e.persistence != nil {
		samples := make([]types.PersistedSample, len(e.payload))
		for i, v := range e.payload {
			samples[i] = types.PersistedSample{Index: i, Value: v}
		}
		e.persistence.Record(e.id, e.name, types.ElementTypeOf[T](), samples)
	}
	return true
}

// ReadNonBlocking pulls at most one Buffer off the underlying Receiver and
// applies the causality filter. It returns true only if a strictly newer
// value was accepted; an echoed or stale arrival returns false even though a
// value was consumed from the queue.
func (e *BidirectionalEndpoint[T]) ReadNonBlocking() (bool, error) {
	ok, err := e.receiver.ReadNonBlocking()
	if err != nil || !ok {
		return false, err
	}
	return e.applyCausalityFilter(), nil
}

// Read blocks until a strictly newer value is accepted or ctx is cancelled,
// transparently skipping any number of echoed/stale arrivals in between.
func (e *BidirectionalEndpoint[T]) Read(ctx context.Context) error {
	for {
		if err := e.receiver.Read(ctx); err != nil {
			return err
		}
		if e.applyCausalityFilter() {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
	}
}

// ReadLatest drains every pending arrival, applying the causality filter to
// each, and leaves Payload() holding the most recent accepted value. It
// reports whether at least one arrival was accepted.
func (e *BidirectionalEndpoint[T]) ReadLatest() (bool, error) {
	accepted := false
	for {
		ok, err := e.receiver.ReadNonBlocking()
		if err != nil {
			return accepted, err
		}
		if !ok {
			return accepted, nil
		}
		if e.applyCausalityFilter() {
			accepted = true
		}
	}
}
