package websocket

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"classwire/internal/emitter"
	"classwire/internal/registry"
	"classwire/pkg/types"
)

func testConfig() Config {
	return Config{
		PingInterval: time.Minute,
		ReadTimeout:  2 * time.Minute,
		WriteTimeout: 5 * time.Second,
		SendBuffer:   16,
	}
}

func startServer(t *testing.T) (*registry.Registry, *emitter.Emitter, *httptest.Server) {
	t.Helper()
	reg := registry.New(nil)
	srv := httptest.NewServer(NewHandler(reg, testConfig(), nil))
	t.Cleanup(srv.Close)
	return reg, emitter.New(reg, nil), srv
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func register(t *testing.T, conn *websocket.Conn, userID, role string) {
	t.Helper()
	msg, err := types.RegisterMessage(types.Registration{UserID: userID, Role: role})
	require.NoError(t, err)
	require.NoError(t, conn.WriteJSON(msg))
}

func waitForMembers(t *testing.T, reg *registry.Registry, room string, n int) {
	t.Helper()
	require.Eventually(t, func() bool {
		return len(reg.MembersOf(room)) == n
	}, 2*time.Second, 10*time.Millisecond, "room %s never reached %d members", room, n)
}

func readEnvelope(t *testing.T, conn *websocket.Conn) types.Envelope {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var env types.Envelope
	require.NoError(t, conn.ReadJSON(&env))
	return env
}

func assertSilent(t *testing.T, conn *websocket.Conn) {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(300*time.Millisecond)))
	var env types.Envelope
	assert.Error(t, conn.ReadJSON(&env), "expected no delivery, got %+v", env)
}

func TestSubmissionDeliveredOnlyToOwningInstructor(t *testing.T) {
	reg, em, srv := startServer(t)

	instructorA := dial(t, srv)
	register(t, instructorA, "i1", types.RoleInstructor)
	instructorB := dial(t, srv)
	register(t, instructorB, "i2", types.RoleInstructor)
	waitForMembers(t, reg, types.InstructorRoom("i1"), 1)
	waitForMembers(t, reg, types.InstructorRoom("i2"), 1)

	em.Publish(types.NewSubmission{
		StudentName:  "Alice",
		Score:        87,
		ExamTitle:    "Midterm",
		InstructorID: "i1",
	})

	env := readEnvelope(t, instructorA)
	assert.Equal(t, types.EventNewSubmission, env.Type)
	assert.JSONEq(t,
		`{"studentName":"Alice","score":87,"examTitle":"Midterm"}`,
		string(env.Data))

	assertSilent(t, instructorB)
}

func TestAdminBroadcastSkipsUnregisteredConnections(t *testing.T) {
	reg, em, srv := startServer(t)

	admin := dial(t, srv)
	register(t, admin, "a1", types.RoleAdmin)
	waitForMembers(t, reg, types.RoomAdmins, 1)

	// Connected but never registered: tracked, not routable.
	lurker := dial(t, srv)

	em.Publish(types.ExamCreated{ExamTitle: "Intro to Go"})

	env := readEnvelope(t, admin)
	assert.Equal(t, types.EventExamCreated, env.Type)
	assert.JSONEq(t, `{"examTitle":"Intro to Go"}`, string(env.Data))

	assertSilent(t, lurker)
}

func TestStudentRegistrationIsIgnored(t *testing.T) {
	reg, em, srv := startServer(t)

	student := dial(t, srv)
	register(t, student, "s1", types.RoleStudent)

	admin := dial(t, srv)
	register(t, admin, "a1", types.RoleAdmin)
	waitForMembers(t, reg, types.RoomAdmins, 1)

	em.Publish(types.ExamStatusChanged{ExamTitle: "Midterm", NewStatus: "inactive"})

	readEnvelope(t, admin)
	assertSilent(t, student)
}

func TestJoinInstructorRoomIsIdempotentAndScopedToSelf(t *testing.T) {
	reg, em, srv := startServer(t)

	instructor := dial(t, srv)
	register(t, instructor, "i1", types.RoleInstructor)
	waitForMembers(t, reg, types.InstructorRoom("i1"), 1)

	// Replaying the join (as a reconnecting client does) must not cause
	// duplicate delivery, and joining another instructor's room must be
	// refused.
	join, err := types.JoinInstructorRoomMessage("i1")
	require.NoError(t, err)
	require.NoError(t, instructor.WriteJSON(join))
	foreign, err := types.JoinInstructorRoomMessage("i2")
	require.NoError(t, err)
	require.NoError(t, instructor.WriteJSON(foreign))

	em.Publish(types.NewSubmission{
		StudentName: "Bob", Score: 55, ExamTitle: "Quiz", InstructorID: "i1",
	})

	env := readEnvelope(t, instructor)
	assert.Equal(t, types.EventNewSubmission, env.Type)
	assertSilent(t, instructor)

	assert.Empty(t, reg.MembersOf(types.InstructorRoom("i2")))
}

func TestMalformedFramesLeaveConnectionOpen(t *testing.T) {
	reg, em, srv := startServer(t)

	conn := dial(t, srv)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("not json")))
	require.NoError(t, conn.WriteJSON(types.ClientMessage{Type: "mystery"}))

	register(t, conn, "a1", types.RoleAdmin)
	waitForMembers(t, reg, types.RoomAdmins, 1)

	em.Publish(types.ExamCreated{ExamTitle: "Still here"})
	env := readEnvelope(t, conn)
	assert.Equal(t, types.EventExamCreated, env.Type)
}

func TestDisconnectRemovesEveryMembership(t *testing.T) {
	reg, _, srv := startServer(t)

	conn := dial(t, srv)
	register(t, conn, "i1", types.RoleInstructor)
	waitForMembers(t, reg, types.InstructorRoom("i1"), 1)

	conn.Close()

	require.Eventually(t, func() bool {
		return reg.Stats()["connections"] == 0
	}, 2*time.Second, 10*time.Millisecond)
	assert.Empty(t, reg.MembersOf(types.RoomInstructors))
	assert.Empty(t, reg.MembersOf(types.InstructorRoom("i1")))
}
