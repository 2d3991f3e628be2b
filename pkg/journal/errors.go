// Package journal records timeline mutations in an append-only file so edits
// made through the API survive a restart
package journal

import "errors"

var (
	// ErrCorrupted indicates a CRC mismatch or an impossible length field
	ErrCorrupted = errors.New("journal: corrupted entry")

	// ErrTruncated indicates an entry cut short, usually a torn final write
	ErrTruncated = errors.New("journal: truncated entry")

	// ErrUnknownOp indicates an entry with an op this version cannot apply
	ErrUnknownOp = errors.New("journal: unknown op")

	// ErrClosed indicates an operation on a closed journal
	ErrClosed = errors.New("journal: closed")

	// ErrFailed indicates a journal that could not undo a failed write
	ErrFailed = errors.New("journal: failed")
)
