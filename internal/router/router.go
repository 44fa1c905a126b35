// Package router maps domain events to target rooms. The policy table is
// fixed: submission events go to the owning instructor's identity room, exam
// lifecycle events go to admins.
package router

import (
	"classwire/pkg/types"
)

// ResolveTargets returns the rooms an event must be delivered to.
//
// A newSubmission without an instructor id resolves to nothing: the caller
// drops the event rather than broadcasting one instructor's student data to
// everyone else.
func ResolveTargets(ev types.Event) ([]string, error) {
	switch ev := ev.(type) {
	case types.NewSubmission:
		if ev.InstructorID == "" {
			return nil, ErrMissingInstructor
		}
		return []string{types.InstructorRoom(ev.InstructorID)}, nil
	case types.ExamCreated:
		return []string{types.RoomAdmins}, nil
	case types.ExamStatusChanged:
		return []string{types.RoomAdmins}, nil
	default:
		return nil, ErrUnroutableEvent
	}
}
