package core

import "sync/atomic"

// globalPairCounter hands out the unique, stable, process-wide ID shared by
// both ends of a PV pair. Unidirectional pairs and
// bidirectional pairs both draw from this single counter so IDs stay
// distinct across every pair in the process regardless of kind.
var globalPairCounter atomic.Uint64

// NextPairID returns a fresh unique ID for a newly constructed PV pair. Both
// endpoints of the same pair must be constructed with the same returned
// value; callers generate one ID per pair, not per endpoint.
func NextPairID() uint64 {
	return globalPairCounter.Add(1)
}
