package types

import (
	"encoding/json"
	"fmt"
	"time"
)

// Roles known to the system. Only admins and instructors are eligible for
// push registration; students never receive real-time events.
const (
	RoleStudent    = "student"
	RoleInstructor = "instructor"
	RoleAdmin      = "admin"
)

// Event type identifiers as they appear on the wire.
const (
	EventNewSubmission     = "newSubmission"
	EventExamCreated       = "examCreated"
	EventExamStatusChanged = "examStatusChanged"
)

// Broadcast room names. Identity-scoped instructor rooms are derived with
// InstructorRoom.
const (
	RoomAdmins      = "admins"
	RoomInstructors = "instructors"
)

// InstructorRoom returns the identity-scoped room name for an instructor.
func InstructorRoom(userID string) string {
	return "instructor-" + userID
}

// Event is the closed set of domain events carried over the push channel.
// Adding a variant requires touching every type switch over Event, which is
// exactly the point: routing and dispatch stay exhaustive.
type Event interface {
	EventType() string
	domainEvent()
}

// NewSubmission announces a graded exam submission to the exam's owner.
type NewSubmission struct {
	StudentName string  `json:"studentName"`
	Score       float64 `json:"score"`
	ExamTitle   string  `json:"examTitle"`

	// InstructorID is the routing hint, never part of the payload.
	InstructorID string `json:"-"`
}

// ExamCreated announces a newly created exam to admins.
type ExamCreated struct {
	ExamTitle string `json:"examTitle"`
}

// ExamStatusChanged announces an exam status transition to admins.
type ExamStatusChanged struct {
	ExamTitle string `json:"examTitle"`
	NewStatus string `json:"newStatus"`
}

func (NewSubmission) EventType() string     { return EventNewSubmission }
func (ExamCreated) EventType() string       { return EventExamCreated }
func (ExamStatusChanged) EventType() string { return EventExamStatusChanged }

func (NewSubmission) domainEvent()     {}
func (ExamCreated) domainEvent()       {}
func (ExamStatusChanged) domainEvent() {}

// Envelope is the server-to-client wire frame.
type Envelope struct {
	Type      string          `json:"type"`
	Data      json.RawMessage `json:"data"`
	Timestamp time.Time       `json:"timestamp"`
}

// NewEnvelope wraps a domain event for transport.
func NewEnvelope(ev Event) (Envelope, error) {
	data, err := json.Marshal(ev)
	if err != nil {
		return Envelope{}, fmt.Errorf("encoding %s event: %w", ev.EventType(), err)
	}
	return Envelope{
		Type:      ev.EventType(),
		Data:      data,
		Timestamp: time.Now(),
	}, nil
}

// DecodeEvent reconstructs the domain event carried by an envelope.
func DecodeEvent(env Envelope) (Event, error) {
	switch env.Type {
	case EventNewSubmission:
		var ev NewSubmission
		if err := json.Unmarshal(env.Data, &ev); err != nil {
			return nil, fmt.Errorf("decoding %s payload: %w", env.Type, err)
		}
		return ev, nil
	case EventExamCreated:
		var ev ExamCreated
		if err := json.Unmarshal(env.Data, &ev); err != nil {
			return nil, fmt.Errorf("decoding %s payload: %w", env.Type, err)
		}
		return ev, nil
	case EventExamStatusChanged:
		var ev ExamStatusChanged
		if err := json.Unmarshal(env.Data, &ev); err != nil {
			return nil, fmt.Errorf("decoding %s payload: %w", env.Type, err)
		}
		return ev, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEventType, env.Type)
	}
}
