// Package types holds the data model shared by every other pvsync package:
// version numbers, timestamps, the typed Buffer transferred across the
// transport queue, the process-variable surface, and the two error kinds
// the rest of the module raises.
package types
