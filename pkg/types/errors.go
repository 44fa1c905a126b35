package types

import "errors"

var (
	ErrUnknownEventType = errors.New("unknown event type")
	ErrInvalidRole      = errors.New("invalid role")
	ErrEmptyUserID      = errors.New("empty user id")
)
