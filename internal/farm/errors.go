// internal/farm/errors.go
package farm

import "errors"

// Sentinel errors returned by Store and Controller operations. Callers match
// with errors.Is and translate into user-facing replies. None of these are
// fatal; a rejected operation leaves the farm untouched.
var (
	ErrNotFound         = errors.New("farm not found")
	ErrAlreadyMember    = errors.New("user already joined this farm")
	ErrNotMember        = errors.New("user is not part of this farm")
	ErrFull             = errors.New("farm is already full")
	ErrFinalized        = errors.New("farm is finalized")
	ErrDuplicate        = errors.New("player already added")
	ErrUnauthorized     = errors.New("host or organizer only")
	ErrResourceCreation = errors.New("platform resource creation failed")
)
