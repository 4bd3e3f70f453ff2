package apperrors

import "errors"

var (
	ErrNotFound        = errors.New("not found")
	ErrInvalidStatus   = errors.New("invalid application status")
	ErrUnknownProvider = errors.New("unknown ai provider")
	ErrStoreReadOnly   = errors.New("store is not writable")
)
