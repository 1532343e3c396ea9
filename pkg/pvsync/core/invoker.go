package core

import "sync"

// Invoker spawns and tracks the goroutines that run deferred continuations
// (see TransportQueue.Then). Every Spawn starts a fresh goroutine, so a
// continuation does not run on the goroutine that otherwise consumes the
// queue, and the two can run concurrently.
//
// This mirrors a spawn-and-track Invoker / InvokerInstance() pattern used
// elsewhere in this codebase's lineage, reconstructed here from its call
// sites rather than copied from a defining file.
type Invoker interface {
	// Spawn runs f on a new goroutine tracked by this Invoker.
	Spawn(f func())
	// Stop blocks until every goroutine spawned by this Invoker has
	// returned.
	Stop()
}

// goroutineInvoker is the default Invoker: every Spawn call starts a
// tracked goroutine, and Stop waits for all of them.
type goroutineInvoker struct {
	group sync.WaitGroup
}

// NewInvoker returns a ready-to-use Invoker.
func NewInvoker() Invoker {
	return &goroutineInvoker{}
}

func (g *goroutineInvoker) Spawn(f func()) {
	g.group.Add(1)
	go func() {
		defer g.group.Done()
		f()
	}()
}

func (g *goroutineInvoker) Stop() {
	g.group.Wait()
}
