package types

// Validity is the out-of-band, two-valued tag carried with every Buffer.
// Writes propagate it through the transport queue; it is not reset by a
// read, only by a new arrival.
type Validity int

const (
	// Ok marks a Buffer as holding a trustworthy value.
	Ok Validity = iota
	// Faulty marks a Buffer as holding a value that should not be trusted.
	// Receivers start Faulty until their first successful transfer.
	Faulty
)

func (v Validity) String() string {
	if v == Ok {
		return "ok"
	}
	return "faulty"
}
