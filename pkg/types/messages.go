package types

import (
	"encoding/json"
	"fmt"
)

// Client-to-server message types.
const (
	MessageRegister           = "register"
	MessageJoinInstructorRoom = "joinInstructorRoom"
)

// ClientMessage is the client-to-server wire frame. Data is decoded per
// message type: a Registration for "register", a bare user id string for
// "joinInstructorRoom".
type ClientMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// Registration binds a live connection to a user identity and role.
type Registration struct {
	UserID string `json:"userId"`
	Role   string `json:"role"`
}

// Validate rejects registrations that would leave the connection un-routable.
func (r Registration) Validate() error {
	if r.UserID == "" {
		return ErrEmptyUserID
	}
	if !IsValidRole(r.Role) {
		return fmt.Errorf("%w: %q", ErrInvalidRole, r.Role)
	}
	return nil
}

// RegisterMessage builds the wire frame for a registration.
func RegisterMessage(reg Registration) (ClientMessage, error) {
	data, err := json.Marshal(reg)
	if err != nil {
		return ClientMessage{}, fmt.Errorf("encoding registration: %w", err)
	}
	return ClientMessage{Type: MessageRegister, Data: data}, nil
}

// JoinInstructorRoomMessage builds the wire frame for an identity-room join.
func JoinInstructorRoomMessage(userID string) (ClientMessage, error) {
	data, err := json.Marshal(userID)
	if err != nil {
		return ClientMessage{}, fmt.Errorf("encoding room join: %w", err)
	}
	return ClientMessage{Type: MessageJoinInstructorRoom, Data: data}, nil
}
