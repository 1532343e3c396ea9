// Package registry implements the PV registry (PVManager): the single point
// of creation and lookup for process variables.
package registry

import (
	"sync"

	"github.com/jabolina/go-pvsync/pkg/pvsync/core"
	"github.com/jabolina/go-pvsync/pkg/pvsync/definition"
	"github.com/jabolina/go-pvsync/pkg/pvsync/types"
)

// Side selects which half of a registered pair a caller wants: the
// control-system side or the device side.
type Side int

const (
	ControlSide Side = iota
	DeviceSide
)

// persistable is satisfied by both core.Sender and core.BidirectionalEndpoint
// so EnablePersistentDataStorage can attach a sink without a type switch per
// generic instantiation.
type persistable interface {
	SetPersistentDataStorage(types.PersistenceSink) error
}

// PVManager is the single point of creation and lookup for every process
// variable in the process. Registration happens from a single
// initialization goroutine before hand-off; after HandOff only lookups are
// permitted, mirroring the "mutated from a single initialization
// thread... after hand-off only lookup is allowed."
type PVManager struct {
	applicationName string
	logger          types.Logger
	tsSource        types.TimestampSource
	invoker         core.Invoker

	controlHub *core.NotificationHub
	deviceHub  *core.NotificationHub

	mu          sync.Mutex
	handedOff   bool
	control     map[string]types.ProcessVariable
	device      map[string]types.ProcessVariable
	controlAny  map[string]any
	deviceAny   map[string]any
	persistable map[string]persistable // control-side writeable entries, for EnablePersistentDataStorage
}

// NewPVManager builds an empty registry for applicationName. A nil logger
// defaults to definition.NewDefaultLogger(); a nil tsSource defaults to
// types.SystemClockSource.
func NewPVManager(applicationName string, logger types.Logger, tsSource types.TimestampSource) *PVManager {
	if logger == nil {
		logger = definition.NewDefaultLogger()
	}
	if tsSource == nil {
		tsSource = types.SystemClockSource{}
	}
	return &PVManager{
		applicationName: applicationName,
		logger:          logger,
		tsSource:        tsSource,
		invoker:         core.NewInvoker(),
		controlHub:      core.NewNotificationHub(64),
		deviceHub:       core.NewNotificationHub(64),
		control:         make(map[string]types.ProcessVariable),
		device:          make(map[string]types.ProcessVariable),
		controlAny:      make(map[string]any),
		deviceAny:       make(map[string]any),
		persistable:     make(map[string]persistable),
	}
}

// ApplicationName returns the name this registry was constructed with; it
// is also the basename of the persistence file ("<applicationName>.persist").
func (m *PVManager) ApplicationName() string { return m.applicationName }

// ToggleDebug forwards to the underlying Logger's ToggleDebug knob.
func (m *PVManager) ToggleDebug(value bool) bool { return m.logger.ToggleDebug(value) }

// HandOff freezes the registry against further registration. Calling
// CreateProcessArray afterward returns a LogicError.
func (m *PVManager) HandOff() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handedOff = true
}

// Shutdown stops the Invoker backing deferred ReadAsync continuations,
// waiting for every spawned goroutine to return.
func (m *PVManager) Shutdown() {
	m.invoker.Stop()
}

// HasProcessVariable reports whether name was registered, on either side.
func (m *PVManager) HasProcessVariable(name string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.control[name]
	return ok
}

// GetProcessVariable returns the side-appropriate type-erased endpoint for
// name, or false if it was never registered.
func (m *PVManager) GetProcessVariable(side Side, name string) (types.ProcessVariable, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	pv, ok := m.sideMap(side)[name]
	return pv, ok
}

// GetAllProcessVariables returns every registered endpoint on side. Iteration
// order is unspecified.
func (m *PVManager) GetAllProcessVariables(side Side) []types.ProcessVariable {
	m.mu.Lock()
	defer m.mu.Unlock()
	src := m.sideMap(side)
	out := make([]types.ProcessVariable, 0, len(src))
	for _, pv := range src {
		out = append(out, pv)
	}
	return out
}

// NextNotification drains one pending token from side's NotificationHub and
// returns the PV it refers to. Never blocks.
func (m *PVManager) NextNotification(side Side) (types.ProcessVariable, bool) {
	n, ok := m.hubFor(side).NextNotification()
	if !ok {
		return nil, false
	}
	pv, ok := n.(types.ProcessVariable)
	return pv, ok
}

// EnablePersistentDataStorage attaches sink to every writeable control-side
// PV registered so far ("attaches a Persistence Overlay to
// every writeable control-side PV"). PVs registered afterward do not
// automatically pick it up; register persistence-backed PVs before calling
// this, matching the original's construction order.
func (m *PVManager) EnablePersistentDataStorage(sink types.PersistenceSink) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for name, p := range m.persistable {
		if err := p.SetPersistentDataStorage(sink); err != nil {
			m.logger.Warnf("persistence: could not attach overlay to %q: %v", name, err)
		}
	}
}

func (m *PVManager) sideMap(side Side) map[string]types.ProcessVariable {
	if side == ControlSide {
		return m.control
	}
	return m.device
}

func (m *PVManager) anyMap(side Side) map[string]any {
	if side == ControlSide {
		return m.controlAny
	}
	return m.deviceAny
}

func (m *PVManager) hubFor(side Side) *core.NotificationHub {
	if side == ControlSide {
		return m.controlHub
	}
	return m.deviceHub
}

// CreateProcessArray registers a new PV pair named name with payload length
// n. direction selects which side becomes the Sender (or requests a
// bidirectional pair); numberOfBuffers must be >= 2 and sets the underlying
// transport queue's ring capacity to numberOfBuffers-1, per the
// "capacity is K plus one internal slot." initial, if non-nil, seeds the
// Sender's payload before any write; on a poll-only Sender (no
// WaitForNewData flag) an initial value is always published immediately so
// the first poll on the receiving side never blocks.
func CreateProcessArray[T types.Element](m *PVManager, direction types.Direction, name, unit, description string, n int, initial []T, numberOfBuffers int, flags types.Flags) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.handedOff {
		return types.NewLogicError("createProcessArray", "registry already handed off, no further registration allowed")
	}
	if _, exists := m.control[name]; exists {
		m.logger.Warnf("rejected duplicate process variable %q", name)
		return types.NewLogicError("createProcessArray", "duplicate PV name: "+name)
	}
	if numberOfBuffers < 2 {
		return types.NewLogicError("createProcessArray", "numberOfBuffers must be at least 2")
	}
	queueCapacity := numberOfBuffers - 1

	var controlPV, devicePV types.ProcessVariable
	var controlTyped, deviceTyped any

	switch direction {
	case types.ControlSystemToDevice:
		sender, receiver := core.NewUnidirectionalPair[T](name, unit, description, n, queueCapacity, flags, m.tsSource, m.deviceHub, m.invoker)
		seedSender(sender, initial, flags)
		controlPV, controlTyped = sender, sender
		devicePV, deviceTyped = receiver, receiver
		m.persistable[name] = sender
	case types.DeviceToControlSystem:
		sender, receiver := core.NewUnidirectionalPair[T](name, unit, description, n, queueCapacity, flags, m.tsSource, m.controlHub, m.invoker)
		seedSender(sender, initial, flags)
		devicePV, deviceTyped = sender, sender
		controlPV, controlTyped = receiver, receiver
	case types.Bidirectional:
		a, b := core.NewBidirectionalPair[T](name, unit, description, n, queueCapacity, flags, m.tsSource, m.controlHub, m.deviceHub, m.invoker)
		if initial != nil {
			copy(a.Payload(), initial)
			copy(b.Payload(), initial)
		}
		controlPV, controlTyped = a, a
		devicePV, deviceTyped = b, b
		m.persistable[name] = a
	default:
		return types.NewLogicError("createProcessArray", "unknown direction")
	}

	m.control[name] = controlPV
	m.device[name] = devicePV
	m.controlAny[name] = controlTyped
	m.deviceAny[name] = deviceTyped
	m.logger.Infof("registered process variable %q (n=%d)", name, n)
	return nil
}

func seedSender[T types.Element](sender *core.Sender[T], initial []T, flags types.Flags) {
	if initial != nil {
		copy(sender.Payload(), initial)
	}
	if !flags.Has(types.WaitForNewData) {
		sender.Write()
	}
}

// GetSender returns the named PV's Sender[T] endpoint on side. It fails with
// a LogicError if the name is unknown or was not registered as a Sender[T]
// for this element type on this side.
func GetSender[T types.Element](m *PVManager, side Side, name string) (*core.Sender[T], error) {
	v, err := lookupTyped(m, side, name)
	if err != nil {
		return nil, err
	}
	s, ok := v.(*core.Sender[T])
	if !ok {
		return nil, types.NewLogicError("getProcessArray", "type mismatch for PV: "+name)
	}
	return s, nil
}

// GetReceiver returns the named PV's Receiver[T] endpoint on side.
func GetReceiver[T types.Element](m *PVManager, side Side, name string) (*core.Receiver[T], error) {
	v, err := lookupTyped(m, side, name)
	if err != nil {
		return nil, err
	}
	r, ok := v.(*core.Receiver[T])
	if !ok {
		return nil, types.NewLogicError("getProcessArray", "type mismatch for PV: "+name)
	}
	return r, nil
}

// GetBidirectional returns the named PV's BidirectionalEndpoint[T] on side.
func GetBidirectional[T types.Element](m *PVManager, side Side, name string) (*core.BidirectionalEndpoint[T], error) {
	v, err := lookupTyped(m, side, name)
	if err != nil {
		return nil, err
	}
	b, ok := v.(*core.BidirectionalEndpoint[T])
	if !ok {
		return nil, types.NewLogicError("getProcessArray", "type mismatch for PV: "+name)
	}
	return b, nil
}

func lookupTyped(m *PVManager, side Side, name string) (any, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.anyMap(side)[name]
	if !ok {
		return nil, types.NewLogicError("getProcessArray", "no such PV: "+name)
	}
	return v, nil
}
