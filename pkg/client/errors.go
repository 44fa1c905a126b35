package client

import "errors"

var (
	ErrNilHandler       = errors.New("nil handler")
	ErrMissingIdentity  = errors.New("user has no identifier")
	ErrIneligibleRole   = errors.New("role has no push channel")
	ErrInvalidBaseURL   = errors.New("invalid base URL")
	ErrAlreadyStarted   = errors.New("subscriber already started")
	ErrSubscriberClosed = errors.New("subscriber closed")
)
