package chainstore

import "errors"

// Sentinel errors returned by the registry store's operations. Callers in
// the ingester type-switch on these to decide whether to defer a log
// into the pending-log queue.
var (
	// ErrUnknownParent is returned by InsertProvider when the category
	// referenced by parentHash has not been recorded yet.
	ErrUnknownParent = errors.New("chainstore: unknown parent category")
	// ErrUnknownProvider is returned by ApplyNote when no provider row
	// exists for the given hash yet.
	ErrUnknownProvider = errors.New("chainstore: unknown provider")
	// ErrUnknownNoteKey is returned when a note key outside the
	// whitelisted vocabulary reaches ApplyNote.
	ErrUnknownNoteKey = errors.New("chainstore: note key not in whitelist")
	// ErrNotFound is returned by single-row reads that match nothing.
	ErrNotFound = errors.New("chainstore: not found")
)
