package pipeline

import "errors"

// Error taxonomy surfaced to callers. Validation and immutability errors are
// terminal; an upload error leaves no partial state, so the caller may retry
// the whole send.
var (
	ErrValidation = errors.New("invalid message draft")
	ErrUpload     = errors.New("attachment upload failed")
	ErrNotFound   = errors.New("message not found")
	ErrImmutable  = errors.New("message cannot be modified")
)
