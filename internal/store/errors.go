package store

import "errors"

// Error taxonomy shared by every caller of the store. Callers branch with
// errors.Is to turn these into domain-specific messages; anything not covered
// by the first three is a transport failure.
var (
	ErrNotFound         = errors.New("entity not found")
	ErrDuplicateKey     = errors.New("duplicate key")
	ErrInvalidReference = errors.New("invalid reference")
	ErrStoreUnavailable = errors.New("store unavailable")
)
