package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores and adapters return these
// (optionally wrapped) and services translate them into domain errors:
//   - ErrNotFound: the record or case does not exist
//   - ErrConflict: a uniqueness rule was hit (an active case already exists)
//   - ErrInvalidState: the case is not in a state that allows the operation
//   - ErrUnavailable: a backing service could not be reached
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrInvalidState = errors.New("invalid state")
	ErrUnavailable  = errors.New("unavailable")
)
