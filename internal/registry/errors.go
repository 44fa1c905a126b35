package registry

import "errors"

var (
	ErrNilSender           = errors.New("nil sender")
	ErrDuplicateConnection = errors.New("connection id already tracked")
	ErrUnknownConnection   = errors.New("unknown connection id")
	ErrIneligibleRole      = errors.New("role not eligible for push registration")
	ErrNotRegistered       = errors.New("connection not registered")
	ErrEmptyRoomName       = errors.New("empty room name")
)
