package tcp

import (
	"context"
	"encoding/json"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/dmitrijs2005/authcore/internal/logging"
	"github.com/dmitrijs2005/authcore/internal/protocol"
	"github.com/dmitrijs2005/authcore/internal/server/config"
	"github.com/dmitrijs2005/authcore/internal/server/models"
	"github.com/dmitrijs2005/authcore/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/authcore/internal/server/services"
	"github.com/dmitrijs2005/authcore/internal/server/sessions"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type nopLogger struct{}

func (nopLogger) Debug(ctx context.Context, msg string, args ...any) {}
func (nopLogger) Info(ctx context.Context, msg string, args ...any)  {}
func (nopLogger) Warn(ctx context.Context, msg string, args ...any)  {}
func (nopLogger) Error(ctx context.Context, msg string, args ...any) {}
func (nopLogger) With(args ...any) logging.Logger                    { return nopLogger{} }

func newTestServer(t *testing.T) (*Server, *services.AuthService) {
	t.Helper()

	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.BcryptCost = bcrypt.MinCost
	cfg.LoginRateBurst = 1000

	rm := repomanager.NewMemoryRepositoryManager()
	auth := services.NewAuthService(rm.Users(), rm.Attempts(), rm.Audits(), cfg, nopLogger{})
	registry := sessions.NewRegistry()

	return NewServer(cfg, nopLogger{}, auth, registry), auth
}

// dial wires a dispatcher to one end of an in-memory pipe and returns the
// client end. The dispatcher goroutine exits when the client end closes.
func dial(t *testing.T, s *Server) (net.Conn, *protocol.Codec) {
	t.Helper()

	client, server := net.Pipe()
	d := newDispatcher(s, server)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		d.run(ctx)
	}()

	t.Cleanup(func() {
		client.Close()
		<-done
		cancel()
	})

	return client, protocol.NewCodec(client)
}

func roundTrip(t *testing.T, c *protocol.Codec, action protocol.Action, fields map[string]string) *protocol.Response {
	t.Helper()

	require.NoError(t, c.WriteRequest(protocol.NewRequest(action, fields)))
	resp, err := c.ReadResponse()
	require.NoError(t, err)
	return resp
}

func seedUser(t *testing.T, auth *services.AuthService, username, password string, role models.Role) *models.User {
	t.Helper()

	u, err := auth.CreateUser(context.Background(), username, password, "Test User", username+"@example.com", role)
	require.NoError(t, err)
	return u
}

func login(t *testing.T, c *protocol.Codec, username, password string) *protocol.Response {
	t.Helper()

	resp := roundTrip(t, c, protocol.ActionLogin, map[string]string{
		"username": username,
		"password": password,
	})
	require.True(t, resp.Success, resp.Message)
	return resp
}

func TestDispatcherPing(t *testing.T) {
	s, _ := newTestServer(t)
	_, c := dial(t, s)

	resp := roundTrip(t, c, protocol.ActionPing, nil)
	assert.True(t, resp.Success)
	assert.Equal(t, "PONG", resp.Message)
}

func TestDispatcherUnknownAction(t *testing.T) {
	s, _ := newTestServer(t)
	_, c := dial(t, s)

	resp := roundTrip(t, c, "FROBNICATE", nil)
	assert.False(t, resp.Success)
	assert.Equal(t, "unknown action: FROBNICATE", resp.Message)
}

func TestDispatcherMalformedLineKeepsConnection(t *testing.T) {
	s, _ := newTestServer(t)
	conn, c := dial(t, s)

	go func() {
		conn.Write([]byte("this is not json\n"))
	}()
	resp, err := c.ReadResponse()
	require.NoError(t, err)
	assert.False(t, resp.Success)
	assert.Equal(t, "malformed request", resp.Message)

	// the stream is still aligned
	resp = roundTrip(t, c, protocol.ActionPing, nil)
	assert.True(t, resp.Success)
}

func TestDispatcherLoginSuccess(t *testing.T) {
	s, auth := newTestServer(t)
	u := seedUser(t, auth, "alice", "pw1", models.RoleUser)

	_, c := dial(t, s)
	resp := login(t, c, "alice", "pw1")

	assert.Equal(t, "alice", resp.Fields["username"])
	assert.Equal(t, "USER", resp.Fields["role"])
	assert.NotEmpty(t, resp.Fields["token"])
	assert.True(t, s.registry.IsOnline(u.ID))
}

func TestDispatcherLoginWrongPassword(t *testing.T) {
	s, auth := newTestServer(t)
	u := seedUser(t, auth, "alice", "pw1", models.RoleUser)

	_, c := dial(t, s)
	resp := roundTrip(t, c, protocol.ActionLogin, map[string]string{
		"username": "alice",
		"password": "nope",
	})
	assert.False(t, resp.Success)
	assert.Equal(t, "wrong password; consecutive failures: 1/5", resp.Message)
	assert.False(t, s.registry.IsOnline(u.ID))
}

func TestDispatcherLoginMissingField(t *testing.T) {
	s, _ := newTestServer(t)
	_, c := dial(t, s)

	resp := roundTrip(t, c, protocol.ActionLogin, map[string]string{"username": "alice"})
	assert.False(t, resp.Success)
	assert.Equal(t, "missing field: password", resp.Message)
}

func TestDispatcherTokenResume(t *testing.T) {
	s, auth := newTestServer(t)
	seedUser(t, auth, "alice", "pw1", models.RoleUser)

	_, c1 := dial(t, s)
	first := login(t, c1, "alice", "pw1")
	token := first.Fields["token"]
	require.NotEmpty(t, token)

	_, c2 := dial(t, s)
	resp := roundTrip(t, c2, protocol.ActionLogin, map[string]string{"token": token})
	assert.True(t, resp.Success, resp.Message)
	assert.Equal(t, "alice", resp.Fields["username"])
}

func TestDispatcherAuthGating(t *testing.T) {
	s, auth := newTestServer(t)
	seedUser(t, auth, "bob", "pw1", models.RoleUser)

	_, c := dial(t, s)

	resp := roundTrip(t, c, protocol.ActionChangePassword, map[string]string{
		"oldPassword": "pw1", "newPassword": "pw2",
	})
	assert.False(t, resp.Success)
	assert.Equal(t, "not authenticated", resp.Message)

	login(t, c, "bob", "pw1")

	resp = roundTrip(t, c, protocol.ActionAdminListUsers, nil)
	assert.False(t, resp.Success)
	assert.Equal(t, "admin role required", resp.Message)
}

func TestDispatcherAdminFlow(t *testing.T) {
	s, auth := newTestServer(t)
	seedUser(t, auth, "root", "pw1", models.RoleAdmin)

	_, c := dial(t, s)
	login(t, c, "root", "pw1")

	resp := roundTrip(t, c, protocol.ActionAdminCreateUser, map[string]string{
		"username": "carol", "password": "pw2",
		"fullName": "Carol", "email": "carol@example.com", "role": "USER",
	})
	require.True(t, resp.Success, resp.Message)

	resp = roundTrip(t, c, protocol.ActionAdminListUsers, nil)
	require.True(t, resp.Success, resp.Message)

	var records []protocol.UserRecord
	require.NoError(t, json.Unmarshal([]byte(resp.Fields["users"]), &records))
	require.Len(t, records, 2)

	var carol *protocol.UserRecord
	for i := range records {
		if records[i].Username == "carol" {
			carol = &records[i]
		}
	}
	require.NotNil(t, carol)
	assert.Equal(t, "OFFLINE", carol.OnlineState)

	resp = roundTrip(t, c, protocol.ActionAdminSetStatus, map[string]string{
		"id": itoa(carol.ID), "status": "LOCKED",
	})
	require.True(t, resp.Success, resp.Message)

	resp = roundTrip(t, c, protocol.ActionAdminGetUser, map[string]string{"id": itoa(carol.ID)})
	require.True(t, resp.Success, resp.Message)
	assert.Equal(t, "LOCKED", resp.Fields["status"])

	resp = roundTrip(t, c, protocol.ActionAdminEditUser, map[string]string{
		"id": itoa(carol.ID), "fullName": "Carol B.",
	})
	require.True(t, resp.Success, resp.Message)

	resp = roundTrip(t, c, protocol.ActionAdminGetUser, map[string]string{"id": itoa(carol.ID)})
	require.True(t, resp.Success, resp.Message)
	assert.Equal(t, "Carol B.", resp.Fields["fullName"])
	assert.Equal(t, "carol@example.com", resp.Fields["email"])
}

func TestDispatcherAdminSetStatusInvalid(t *testing.T) {
	s, auth := newTestServer(t)
	u := seedUser(t, auth, "root", "pw1", models.RoleAdmin)

	_, c := dial(t, s)
	login(t, c, "root", "pw1")

	resp := roundTrip(t, c, protocol.ActionAdminSetStatus, map[string]string{
		"id": itoa(u.ID), "status": "FROZEN",
	})
	assert.False(t, resp.Success)
	assert.Equal(t, "invalid status: FROZEN", resp.Message)

	resp = roundTrip(t, c, protocol.ActionAdminSetStatus, map[string]string{
		"id": "abc", "status": "LOCKED",
	})
	assert.False(t, resp.Success)
	assert.Equal(t, "invalid id: abc", resp.Message)
}

func TestDispatcherChangePasswordAndProfile(t *testing.T) {
	s, auth := newTestServer(t)
	seedUser(t, auth, "dave", "pw1", models.RoleUser)

	_, c := dial(t, s)
	login(t, c, "dave", "pw1")

	resp := roundTrip(t, c, protocol.ActionChangePassword, map[string]string{
		"oldPassword": "pw1", "newPassword": "pw2",
	})
	require.True(t, resp.Success, resp.Message)

	resp = roundTrip(t, c, protocol.ActionUpdateProfile, map[string]string{
		"fullName": "Dave D.", "email": "dave@example.org",
	})
	require.True(t, resp.Success, resp.Message)
	assert.Equal(t, "Dave D.", resp.Fields["fullName"])
	assert.Equal(t, "dave@example.org", resp.Fields["email"])

	// new password works on a fresh connection
	_, c2 := dial(t, s)
	login(t, c2, "dave", "pw2")
}

func TestDispatcherGetOnlineUsers(t *testing.T) {
	s, auth := newTestServer(t)
	u := seedUser(t, auth, "erin", "pw1", models.RoleUser)

	_, c := dial(t, s)
	login(t, c, "erin", "pw1")

	resp := roundTrip(t, c, protocol.ActionGetOnlineUsers, nil)
	require.True(t, resp.Success, resp.Message)

	var ids []int64
	require.NoError(t, json.Unmarshal([]byte(resp.Fields["ids"]), &ids))
	assert.Equal(t, []int64{u.ID}, ids)
}

func TestDispatcherGetAuditsAndHistory(t *testing.T) {
	s, auth := newTestServer(t)
	seedUser(t, auth, "root", "pw1", models.RoleAdmin)

	_, c := dial(t, s)
	login(t, c, "root", "pw1")

	resp := roundTrip(t, c, protocol.ActionGetAudits, nil)
	require.True(t, resp.Success, resp.Message)

	var audits []protocol.AuditRecord
	require.NoError(t, json.Unmarshal([]byte(resp.Fields["audits"]), &audits))
	require.NotEmpty(t, audits)
	assert.Equal(t, "LOGIN_SUCCESS", audits[0].Action)

	resp = roundTrip(t, c, protocol.ActionGetUserHistory, map[string]string{"username": "root"})
	require.True(t, resp.Success, resp.Message)

	var history protocol.History
	require.NoError(t, json.Unmarshal([]byte(resp.Fields["history"]), &history))
	require.NotEmpty(t, history.Attempts)
	assert.True(t, history.Attempts[0].Success)
	require.NotEmpty(t, history.Audits)
}

func TestDispatcherDisconnectRemovesSession(t *testing.T) {
	s, auth := newTestServer(t)
	u := seedUser(t, auth, "frank", "pw1", models.RoleUser)

	conn, c := dial(t, s)
	login(t, c, "frank", "pw1")
	require.True(t, s.registry.IsOnline(u.ID))

	conn.Close()

	// dispatcher cleanup runs on its own goroutine
	deadline := time.Now().Add(2 * time.Second)
	for s.registry.IsOnline(u.ID) {
		if time.Now().After(deadline) {
			t.Fatal("session not removed after disconnect")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestDispatcherReloginRebindsSession(t *testing.T) {
	s, auth := newTestServer(t)
	u1 := seedUser(t, auth, "gina", "pw1", models.RoleUser)
	u2 := seedUser(t, auth, "hank", "pw1", models.RoleUser)

	_, c := dial(t, s)
	login(t, c, "gina", "pw1")
	require.True(t, s.registry.IsOnline(u1.ID))

	login(t, c, "hank", "pw1")
	assert.False(t, s.registry.IsOnline(u1.ID))
	assert.True(t, s.registry.IsOnline(u2.ID))
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
