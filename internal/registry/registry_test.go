package registry

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"classwire/pkg/types"
)

type fakeSender struct {
	mu     sync.Mutex
	writes []any
}

func (f *fakeSender) WriteJSON(v any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writes = append(f.writes, v)
	return nil
}

func addConn(t *testing.T, r *Registry, connID string) *fakeSender {
	t.Helper()
	s := &fakeSender{}
	require.NoError(t, r.Add(connID, s))
	return s
}

func TestAdd_RejectsNilAndDuplicates(t *testing.T) {
	r := New(nil)

	assert.ErrorIs(t, r.Add("c1", nil), ErrNilSender)

	addConn(t, r, "c1")
	assert.ErrorIs(t, r.Add("c1", &fakeSender{}), ErrDuplicateConnection)
}

func TestRegister_AdminJoinsAdminRoomOnly(t *testing.T) {
	r := New(nil)
	addConn(t, r, "c1")

	require.NoError(t, r.Register("c1", "a1", types.RoleAdmin))

	assert.Len(t, r.MembersOf(types.RoomAdmins), 1)
	assert.Empty(t, r.MembersOf(types.RoomInstructors))

	userID, role, ok := r.Identity("c1")
	require.True(t, ok)
	assert.Equal(t, "a1", userID)
	assert.Equal(t, types.RoleAdmin, role)
}

func TestRegister_InstructorJoinsRoleAndIdentityRooms(t *testing.T) {
	r := New(nil)
	addConn(t, r, "c1")

	require.NoError(t, r.Register("c1", "i1", types.RoleInstructor))

	assert.Len(t, r.MembersOf(types.RoomInstructors), 1)
	assert.Len(t, r.MembersOf(types.InstructorRoom("i1")), 1)
	assert.Empty(t, r.MembersOf(types.RoomAdmins))
}

func TestRegister_RejectsStudentsAndBadInput(t *testing.T) {
	r := New(nil)
	addConn(t, r, "c1")

	assert.ErrorIs(t, r.Register("c1", "s1", types.RoleStudent), ErrIneligibleRole)
	assert.ErrorIs(t, r.Register("c1", "", types.RoleAdmin), types.ErrEmptyUserID)
	assert.ErrorIs(t, r.Register("c1", "u1", "root"), types.ErrInvalidRole)
	assert.ErrorIs(t, r.Register("missing", "a1", types.RoleAdmin), ErrUnknownConnection)

	// A failed registration leaves the connection un-routable.
	_, _, ok := r.Identity("c1")
	assert.False(t, ok)
	assert.Empty(t, r.MembersOf(types.RoomAdmins))
}

func TestJoinRoom_IsIdempotent(t *testing.T) {
	r := New(nil)
	addConn(t, r, "c1")
	require.NoError(t, r.Register("c1", "i1", types.RoleInstructor))

	room := types.InstructorRoom("i1")
	require.NoError(t, r.JoinRoom("c1", room))
	require.NoError(t, r.JoinRoom("c1", room))

	assert.Len(t, r.MembersOf(room), 1)
}

func TestJoinRoom_RequiresRegistration(t *testing.T) {
	r := New(nil)
	addConn(t, r, "c1")

	assert.ErrorIs(t, r.JoinRoom("c1", "somewhere"), ErrNotRegistered)
	assert.ErrorIs(t, r.JoinRoom("c1", ""), ErrEmptyRoomName)
	assert.ErrorIs(t, r.JoinRoom("nope", "somewhere"), ErrUnknownConnection)
}

func TestRemove_ClearsEveryMembership(t *testing.T) {
	r := New(nil)
	addConn(t, r, "c1")
	addConn(t, r, "c2")
	require.NoError(t, r.Register("c1", "i1", types.RoleInstructor))
	require.NoError(t, r.Register("c2", "i2", types.RoleInstructor))

	r.Remove("c1")

	assert.Len(t, r.MembersOf(types.RoomInstructors), 1)
	assert.Empty(t, r.MembersOf(types.InstructorRoom("i1")))
	assert.Len(t, r.MembersOf(types.InstructorRoom("i2")), 1)
	_, _, ok := r.Identity("c1")
	assert.False(t, ok)

	// Removing again, or removing a connection that never registered, is fine.
	r.Remove("c1")
	addConn(t, r, "c3")
	r.Remove("c3")
}

func TestStats_CountsRoomsAndConnections(t *testing.T) {
	r := New(nil)
	addConn(t, r, "c1")
	addConn(t, r, "c2")
	addConn(t, r, "c3")
	require.NoError(t, r.Register("c1", "a1", types.RoleAdmin))
	require.NoError(t, r.Register("c2", "i1", types.RoleInstructor))

	stats := r.Stats()
	assert.Equal(t, 3, stats["connections"])
	assert.Equal(t, 1, stats[types.RoomAdmins])
	assert.Equal(t, 1, stats[types.RoomInstructors])
	assert.Equal(t, 1, stats[types.InstructorRoom("i1")])
}

func TestRegistry_ConcurrentChurn(t *testing.T) {
	r := New(nil)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			id := fmt.Sprintf("c%d", n)
			s := &fakeSender{}
			if err := r.Add(id, s); err != nil {
				t.Error(err)
				return
			}
			if err := r.Register(id, fmt.Sprintf("i%d", n), types.RoleInstructor); err != nil {
				t.Error(err)
				return
			}
			r.MembersOf(types.RoomInstructors)
			if n%2 == 0 {
				r.Remove(id)
			}
		}(i)
	}
	wg.Wait()

	assert.Len(t, r.MembersOf(types.RoomInstructors), 25)
	assert.Equal(t, 25, r.Stats()["connections"])
}
