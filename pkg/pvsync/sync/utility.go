// Package sync provides Utility, the convenience loop body a control-side or
// device-side thread runs each iteration: drain notifications, read what
// arrived, write what changed.
package sync

import (
	"sync"
	"time"

	"github.com/jabolina/go-pvsync/pkg/pvsync/registry"
	"github.com/jabolina/go-pvsync/pkg/pvsync/types"
)

// Utility wraps one side (control or device) of a registry.PVManager. It is
// generic over which side it wraps by holding a registry.Side rather than by
// a Go type parameter, mirroring the split between
// DeviceSynchronizationUtility and ControlSystemSynchronizationUtility in
// original_source/ as one parameterized type instead of two.
type Utility struct {
	manager *registry.PVManager
	side    registry.Side

	mu        sync.Mutex
	listeners map[uint64]func(types.ProcessVariable)
}

// NewUtility builds a Utility operating over side's view of m.
func NewUtility(m *registry.PVManager, side registry.Side) *Utility {
	return &Utility{
		manager:   m,
		side:      side,
		listeners: make(map[uint64]func(types.ProcessVariable)),
	}
}

// AddReceiveNotificationListener registers listener to run after every
// successful read of pv triggered by ReceiveAll or Receive. At most one
// listener is kept per PV; registering again replaces the previous one.
func (u *Utility) AddReceiveNotificationListener(pv types.ProcessVariable, listener func(types.ProcessVariable)) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.listeners[pv.UniqueID()] = listener
}

// RemoveReceiveNotificationListener drops pv's listener, if any.
func (u *Utility) RemoveReceiveNotificationListener(pv types.ProcessVariable) {
	u.mu.Lock()
	defer u.mu.Unlock()
	delete(u.listeners, pv.UniqueID())
}

func (u *Utility) invokeListener(pv types.ProcessVariable) {
	u.mu.Lock()
	listener := u.listeners[pv.UniqueID()]
	u.mu.Unlock()
	if listener != nil {
		listener(pv)
	}
}

// drainOne repeatedly calls ReadNonBlocking on pv, invoking pv's listener
// after each successful read, until the PV reports no further pending data.
// It returns the number of values consumed.
func (u *Utility) drainOne(pv types.ProcessVariable) int {
	readable, ok := pv.(types.ReadablePV)
	if !ok {
		return 0
	}
	count := 0
	for {
		got, err := readable.ReadNonBlocking()
		if err != nil || !got {
			return count
		}
		count++
		u.invokeListener(pv)
	}
}

// ReceiveAll drains the side's notification hub; for every token it reads
// everything currently pending on that PV and runs its listener after each
// successful read. It returns the total number of values consumed.
func (u *Utility) ReceiveAll() int {
	total := 0
	for {
		pv, ok := u.manager.NextNotification(u.side)
		if !ok {
			return total
		}
		total += u.drainOne(pv)
	}
}

// SendAll calls Write on every writeable PV registered on this side.
func (u *Utility) SendAll() error {
	for _, pv := range u.manager.GetAllProcessVariables(u.side) {
		writeable, ok := pv.(types.WriteablePV)
		if !ok {
			continue
		}
		if _, err := writeable.Write(); err != nil {
			return err
		}
	}
	return nil
}

// Receive drains every PV in pvs directly, bypassing the notification hub;
// listeners fire exactly as in ReceiveAll. It returns the total number of
// values consumed.
func (u *Utility) Receive(pvs []types.ProcessVariable) int {
	total := 0
	for _, pv := range pvs {
		total += u.drainOne(pv)
	}
	return total
}

// Send calls Write on every writeable PV in pvs.
func (u *Utility) Send(pvs []types.ProcessVariable) error {
	for _, pv := range pvs {
		writeable, ok := pv.(types.WriteablePV)
		if !ok {
			continue
		}
		if _, err := writeable.Write(); err != nil {
			return err
		}
	}
	return nil
}

// WaitForNotifications calls ReceiveAll repeatedly, sleeping intervalUs
// microseconds between passes, until timeoutUs microseconds have elapsed.
// Non-positive timeoutUs returns immediately after exactly one pass.
func (u *Utility) WaitForNotifications(timeoutUs, intervalUs int64) {
	u.ReceiveAll()
	if timeoutUs <= 0 {
		return
	}
	deadline := time.Now().Add(time.Duration(timeoutUs) * time.Microsecond)
	interval := time.Duration(intervalUs) * time.Microsecond
	if interval <= 0 {
		interval = time.Millisecond
	}
	for time.Now().Before(deadline) {
		time.Sleep(interval)
		u.ReceiveAll()
	}
}
