// Package core implements the synchronization primitives bridging the
// device and control-system domains: the bounded transport queue, the
// unidirectional and bidirectional PV pairs built on top of it, the
// notification hub, and the goroutine invoker backing deferred
// continuations.
package core
