package router

import "errors"

var (
	ErrMissingInstructor = errors.New("submission event without instructor id")
	ErrUnroutableEvent   = errors.New("no routing policy for event")
)
