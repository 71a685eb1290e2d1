package service

import "errors"

// Business errors returned by services. Handlers translate these to the
// wire envelope; clients never retry validation or access failures.
var (
	ErrValidation     = errors.New("validation failed")
	ErrAccessDenied   = errors.New("access denied")
	ErrRoomNotFound   = errors.New("room not found")
	ErrInternalServer = errors.New("internal server error")
)
