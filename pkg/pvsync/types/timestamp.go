package types

import "time"

// Timestamp is the four-field time representation carried with every
// Buffer. Equality compares all four fields. The zero value equals zero in
// every field.
type Timestamp struct {
	Seconds     uint32
	Nanoseconds uint32
	Index0      uint32
	Index1      uint32
}

// Equal reports whether t and other have identical fields.
func (t Timestamp) Equal(other Timestamp) bool {
	return t == other
}

// TimestampSource produces Timestamps that are non-decreasing across
// successive calls from a single source.
type TimestampSource interface {
	Now() Timestamp
}

// SystemClockSource is a TimestampSource backed by the host's wall clock;
// Index0/Index1 stay zero. Seconds and Nanoseconds come from the wall-clock
// reading, not Go's monotonic clock, so successive calls decrease if the
// wall clock is stepped backwards.
type SystemClockSource struct{}

// Now returns the current wall-clock time as a Timestamp.
func (SystemClockSource) Now() Timestamp {
	now := time.Now()
	return Timestamp{
		Seconds:     uint32(now.Unix()),
		Nanoseconds: uint32(now.Nanosecond()),
	}
}

// CountingTimestampSource is a deterministic TimestampSource for tests,
// mirroring original_source/tests/include/CountingTimeStampSource.h: each
// call returns a Timestamp with Seconds advanced by one.
type CountingTimestampSource struct {
	next uint32
}

// Now returns the next counting Timestamp and advances the internal
// counter. Not safe for concurrent use, matching its single-threaded test
// usage.
func (c *CountingTimestampSource) Now() Timestamp {
	ts := Timestamp{Seconds: c.next}
	c.next++
	return ts
}
