package domain

import "errors"

var (
	ErrStreamNotFound     = errors.New("event stream not found")
	ErrEventNotFound      = errors.New("event not found")
	ErrCartNotFound       = errors.New("cart not found")
	ErrCredentialNotFound = errors.New("platform credential not found")
	ErrStopNotSupported   = errors.New("platform does not support remote stop")
)
