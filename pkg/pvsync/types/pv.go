package types

// Role is the participant a PV was created as; it is fixed at creation and
// determines whether the PV is readable, writeable, or both.
type Role int

const (
	// RoleSender PVs are write-only.
	RoleSender Role = iota
	// RoleReceiver PVs are read-only.
	RoleReceiver
	// RoleSenderReceiver PVs are a bidirectional endpoint: both readable and
	// writeable, glued to a partner via a causality filter.
	RoleSenderReceiver
)

// Direction selects which side of a unidirectional pair is the sender when
// registering a new PV, or indicates a bidirectional pair.
type Direction int

const (
	// ControlSystemToDevice makes the control-system side the Sender.
	ControlSystemToDevice Direction = iota
	// DeviceToControlSystem makes the device side the Sender.
	DeviceToControlSystem
	// Bidirectional constructs a bidirectional pair.
	Bidirectional
)

// Flags configure optional behavior at registration time.
type Flags int

const (
	// WaitForNewData enables blocking reads on the receiving end; its
	// absence means poll-only semantics (Read/PopWait are disallowed).
	WaitForNewData Flags = 1 << iota
	// MaySendDestructively allows the sender to call WriteDestructively.
	MaySendDestructively
)

// Has reports whether f contains flag.
func (f Flags) Has(flag Flags) bool {
	return f&flag != 0
}

// ProcessVariable is the type-erased, named, typed accessor surface common
// to every PV, independent of its generic element type. Concrete
// implementations additionally satisfy a generic, element-typed interface
// (see core.Sender, core.Receiver, core.BidirectionalEndpoint) for the
// read/write operations themselves.
type ProcessVariable interface {
	// Name returns the name exactly as registered; construction does not
	// add a leading "/" or otherwise normalize it.
	Name() string
	ValueType() ElementType
	NumberOfSamples() int
	Unit() string
	Description() string
	Readable() bool
	Writeable() bool
	ReadOnly() bool
	TimeStamp() Timestamp
	VersionNumber() Version
	Validity() Validity
	UniqueID() uint64
}

// ReadablePV is the type-erased surface a sync.Utility needs to drain a
// notified or polled PV without knowing its element type: core.Receiver[T]
// and core.BidirectionalEndpoint[T] both satisfy it for every T, since T
// never appears in these method signatures.
type ReadablePV interface {
	ProcessVariable
	ReadNonBlocking() (bool, error)
	ReadLatest() (bool, error)
}

// WriteablePV is the equivalent type-erased surface for sync.Utility's
// sendAll/send. core.Sender[T] and core.BidirectionalEndpoint[T] both
// satisfy it.
type WriteablePV interface {
	ProcessVariable
	Write() (bool, error)
}
