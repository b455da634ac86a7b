package model

import "errors"

var (
	ErrTokenInvalid       = errors.New("token invalid")
	ErrRoomNotFound       = errors.New("room not found")
	ErrMalformedRequest   = errors.New("malformed request")
	ErrOwnershipViolation = errors.New("only the room owner may draw the first stroke")
	ErrWriteFailure       = errors.New("write failure")
	ErrTransientEmpty     = errors.New("expected row not found")
)
