package tcp

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"strconv"
	"time"

	"github.com/dmitrijs2005/authcore/internal/logging"
	"github.com/dmitrijs2005/authcore/internal/protocol"
	"github.com/dmitrijs2005/authcore/internal/server/models"
	"github.com/dmitrijs2005/authcore/internal/server/services"
	"github.com/google/uuid"
)

// dispatcher owns one connection: it reads requests, maps each to a policy
// or registry operation, and writes back exactly one response per request in
// order. State machine: connected (user == nil) → authenticated (user set)
// → closed. Cleanup runs exactly once on every exit path.
type dispatcher struct {
	id     string
	conn   net.Conn
	codec  *protocol.Codec
	srv    *Server
	logger logging.Logger

	// user is bound by a successful LOGIN and never unbound until close.
	user *models.User
}

func newDispatcher(s *Server, conn net.Conn) *dispatcher {
	id := uuid.NewString()
	return &dispatcher{
		id:     id,
		conn:   conn,
		codec:  protocol.NewCodec(conn),
		srv:    s,
		logger: s.logger.With("module", "dispatcher", "conn", id, "remote", conn.RemoteAddr().String()),
	}
}

func (d *dispatcher) run(ctx context.Context) {
	defer d.close(ctx)

	d.logger.Info(ctx, "client connected")

	for {
		if d.srv.readTimeout > 0 {
			_ = d.conn.SetReadDeadline(time.Now().Add(d.srv.readTimeout))
		}

		req, err := d.codec.ReadRequest()
		if err != nil {
			if errors.Is(err, protocol.ErrMalformed) {
				// bad line is consumed, the stream is still aligned
				if werr := d.codec.WriteResponse(protocol.NewFail("malformed request")); werr != nil {
					return
				}
				continue
			}
			if !errors.Is(err, io.EOF) {
				d.logger.Warn(ctx, "connection read failed", "error", err)
			}
			return
		}

		if d.user != nil {
			d.srv.registry.Touch(d.user.ID)
		}

		resp := d.dispatch(ctx, req)

		if err := d.codec.WriteResponse(resp); err != nil {
			d.logger.Warn(ctx, "connection write failed", "error", err)
			return
		}
	}
}

// close releases the connection and, when the connection was authenticated,
// removes the bound user from the session registry.
func (d *dispatcher) close(ctx context.Context) {
	if d.user != nil {
		d.srv.registry.Remove(d.user.ID)
		d.logger.Info(ctx, "session closed", "username", d.user.Username)
	} else {
		d.logger.Info(ctx, "client disconnected")
	}
	_ = d.conn.Close()
}

func (d *dispatcher) dispatch(ctx context.Context, req *protocol.Request) *protocol.Response {

	action, ok := protocol.ParseAction(req.Action)
	if !ok {
		return protocol.NewFail("unknown action: " + req.Action)
	}

	switch action {
	case protocol.ActionLogin:
		return d.handleLogin(ctx, req)
	case protocol.ActionAdminListUsers:
		return d.handleAdminListUsers(ctx)
	case protocol.ActionAdminCreateUser:
		return d.handleAdminCreateUser(ctx, req)
	case protocol.ActionAdminSetStatus:
		return d.handleAdminSetStatus(ctx, req)
	case protocol.ActionAdminEditUser:
		return d.handleAdminEditUser(ctx, req)
	case protocol.ActionAdminGetUser:
		return d.handleAdminGetUser(ctx, req)
	case protocol.ActionGetAudits:
		return d.handleGetAudits(ctx)
	case protocol.ActionChangePassword:
		return d.handleChangePassword(ctx, req)
	case protocol.ActionUpdateProfile:
		return d.handleUpdateProfile(ctx, req)
	case protocol.ActionPing:
		return protocol.NewOK("PONG")
	case protocol.ActionGetOnlineUsers:
		return d.handleGetOnlineUsers()
	case protocol.ActionGetUserHistory:
		return d.handleGetUserHistory(ctx, req)
	}

	// unreachable: ParseAction only returns members of the switch above
	return protocol.NewFail("unknown action: " + req.Action)
}

// failure maps a service error to a response: domain failures verbatim,
// anything else logged and answered generically so internals never leak.
func (d *dispatcher) failure(ctx context.Context, err error) *protocol.Response {
	var f *services.Failure
	if errors.As(err, &f) {
		return protocol.NewFail(f.Reason)
	}
	d.logger.Error(ctx, "request failed", "error", err)
	return protocol.NewFail("internal error: request could not be processed")
}

// need verifies required request fields; returns a failure response naming
// the first missing one, or nil.
func need(req *protocol.Request, names ...string) *protocol.Response {
	for _, name := range names {
		if req.Field(name) == "" {
			return protocol.NewFail("missing field: " + name)
		}
	}
	return nil
}

// requireUser gates actions that need a prior LOGIN on this connection.
func (d *dispatcher) requireUser() *protocol.Response {
	if d.user == nil {
		return protocol.NewFail("not authenticated")
	}
	return nil
}

// requireAdmin gates the administrative actions.
func (d *dispatcher) requireAdmin() *protocol.Response {
	if resp := d.requireUser(); resp != nil {
		return resp
	}
	if d.user.Role != models.RoleAdmin {
		return protocol.NewFail("admin role required")
	}
	return nil
}

func (d *dispatcher) sourceAddress() string {
	host, _, err := net.SplitHostPort(d.conn.RemoteAddr().String())
	if err != nil {
		return d.conn.RemoteAddr().String()
	}
	return host
}

func (d *dispatcher) handleLogin(ctx context.Context, req *protocol.Request) *protocol.Response {

	source := d.sourceAddress()

	if !d.srv.limiter.Allow(source) {
		return protocol.NewFail("too many login attempts")
	}

	var (
		res *services.LoginResult
		err error
	)

	if token := req.Field("token"); token != "" {
		res, err = d.srv.auth.LoginWithToken(ctx, token, source)
	} else {
		if resp := need(req, "username", "password"); resp != nil {
			return resp
		}
		res, err = d.srv.auth.Login(ctx, req.Field("username"), req.Field("password"), source)
	}
	if err != nil {
		return d.failure(ctx, err)
	}

	// a re-login on the same connection rebinds the session
	if d.user != nil && d.user.ID != res.User.ID {
		d.srv.registry.Remove(d.user.ID)
	}
	d.user = res.User
	d.srv.registry.Add(res.User.ID, res.User.Username, d.id)

	d.logger.Info(ctx, "login successful", "username", res.User.Username)

	return protocol.NewOK("login successful").
		Set("id", strconv.FormatInt(res.User.ID, 10)).
		Set("username", res.User.Username).
		Set("role", string(res.User.Role)).
		Set("fullName", res.User.FullName).
		Set("email", res.User.Email).
		Set("token", res.Token)
}

func userRecord(u *models.User, online bool) protocol.UserRecord {
	state := "OFFLINE"
	if online {
		state = "ONLINE"
	}
	return protocol.UserRecord{
		ID:          u.ID,
		Username:    u.Username,
		FullName:    u.FullName,
		Email:       u.Email,
		Avatar:      u.AvatarRef,
		Role:        string(u.Role),
		Status:      string(u.Status),
		OnlineState: state,
	}
}

func (d *dispatcher) handleAdminListUsers(ctx context.Context) *protocol.Response {
	if resp := d.requireAdmin(); resp != nil {
		return resp
	}

	list, err := d.srv.auth.ListUsers(ctx)
	if err != nil {
		return d.failure(ctx, err)
	}

	records := make([]protocol.UserRecord, 0, len(list))
	for _, u := range list {
		records = append(records, userRecord(u, d.srv.registry.IsOnline(u.ID)))
	}

	payload, err := json.Marshal(records)
	if err != nil {
		return d.failure(ctx, err)
	}

	return protocol.NewOK("OK").Set("users", string(payload))
}

func (d *dispatcher) handleAdminCreateUser(ctx context.Context, req *protocol.Request) *protocol.Response {
	if resp := d.requireAdmin(); resp != nil {
		return resp
	}
	if resp := need(req, "username", "password", "fullName", "email", "role"); resp != nil {
		return resp
	}

	role, ok := models.ParseRole(req.Field("role"))
	if !ok {
		return protocol.NewFail("invalid role: " + req.Field("role"))
	}

	_, err := d.srv.auth.CreateUser(ctx, req.Field("username"), req.Field("password"),
		req.Field("fullName"), req.Field("email"), role)
	if err != nil {
		return d.failure(ctx, err)
	}

	return protocol.NewOK("user created")
}

func (d *dispatcher) userID(req *protocol.Request) (int64, *protocol.Response) {
	if resp := need(req, "id"); resp != nil {
		return 0, resp
	}
	id, err := strconv.ParseInt(req.Field("id"), 10, 64)
	if err != nil {
		return 0, protocol.NewFail("invalid id: " + req.Field("id"))
	}
	return id, nil
}

func (d *dispatcher) handleAdminSetStatus(ctx context.Context, req *protocol.Request) *protocol.Response {
	if resp := d.requireAdmin(); resp != nil {
		return resp
	}

	id, resp := d.userID(req)
	if resp != nil {
		return resp
	}

	status, ok := models.ParseStatus(req.Field("status"))
	if !ok {
		return protocol.NewFail("invalid status: " + req.Field("status"))
	}

	if err := d.srv.auth.SetStatus(ctx, id, status); err != nil {
		return d.failure(ctx, err)
	}

	return protocol.NewOK("status updated")
}

func (d *dispatcher) handleAdminEditUser(ctx context.Context, req *protocol.Request) *protocol.Response {
	if resp := d.requireAdmin(); resp != nil {
		return resp
	}

	id, resp := d.userID(req)
	if resp != nil {
		return resp
	}

	p := services.EditUserParams{
		FullName: req.Field("fullName"),
		Email:    req.Field("email"),
		Password: req.Field("password"),
	}
	if raw := req.Field("role"); raw != "" {
		role, ok := models.ParseRole(raw)
		if !ok {
			return protocol.NewFail("invalid role: " + raw)
		}
		p.Role = role
	}

	if err := d.srv.auth.EditUser(ctx, id, p); err != nil {
		return d.failure(ctx, err)
	}

	return protocol.NewOK("user updated")
}

func userFields(resp *protocol.Response, u *models.User) *protocol.Response {
	return resp.
		Set("id", strconv.FormatInt(u.ID, 10)).
		Set("username", u.Username).
		Set("fullName", u.FullName).
		Set("email", u.Email).
		Set("role", string(u.Role)).
		Set("status", string(u.Status))
}

func (d *dispatcher) handleAdminGetUser(ctx context.Context, req *protocol.Request) *protocol.Response {
	if resp := d.requireAdmin(); resp != nil {
		return resp
	}

	id, resp := d.userID(req)
	if resp != nil {
		return resp
	}

	user, err := d.srv.auth.GetUser(ctx, id)
	if err != nil {
		return d.failure(ctx, err)
	}

	return userFields(protocol.NewOK("OK"), user)
}

func auditRecords(entries []*models.AuditLog) []protocol.AuditRecord {
	records := make([]protocol.AuditRecord, 0, len(entries))
	for _, e := range entries {
		records = append(records, protocol.AuditRecord{
			ID:        e.ID,
			Username:  e.Username,
			Action:    string(e.Action),
			Details:   e.Details,
			CreatedAt: e.CreatedAt.Format(time.RFC3339),
		})
	}
	return records
}

func (d *dispatcher) handleGetAudits(ctx context.Context) *protocol.Response {
	if resp := d.requireAdmin(); resp != nil {
		return resp
	}

	entries, err := d.srv.auth.Audits(ctx)
	if err != nil {
		return d.failure(ctx, err)
	}

	payload, err := json.Marshal(auditRecords(entries))
	if err != nil {
		return d.failure(ctx, err)
	}

	return protocol.NewOK("OK").Set("audits", string(payload))
}

func (d *dispatcher) handleChangePassword(ctx context.Context, req *protocol.Request) *protocol.Response {
	if resp := d.requireUser(); resp != nil {
		return resp
	}
	if resp := need(req, "oldPassword", "newPassword"); resp != nil {
		return resp
	}

	err := d.srv.auth.ChangePassword(ctx, d.user.ID, req.Field("oldPassword"), req.Field("newPassword"))
	if err != nil {
		return d.failure(ctx, err)
	}

	return protocol.NewOK("password changed")
}

func (d *dispatcher) handleUpdateProfile(ctx context.Context, req *protocol.Request) *protocol.Response {
	if resp := d.requireUser(); resp != nil {
		return resp
	}
	if resp := need(req, "fullName", "email"); resp != nil {
		return resp
	}

	user, err := d.srv.auth.UpdateProfile(ctx, d.user.ID, req.Field("fullName"), req.Field("email"))
	if err != nil {
		return d.failure(ctx, err)
	}
	d.user = user

	return userFields(protocol.NewOK("profile updated"), user)
}

func (d *dispatcher) handleGetOnlineUsers() *protocol.Response {
	ids := d.srv.registry.OnlineIDs()

	payload, err := json.Marshal(ids)
	if err != nil {
		return protocol.NewFail("internal error: request could not be processed")
	}

	return protocol.NewOK("OK").Set("ids", string(payload))
}

func (d *dispatcher) handleGetUserHistory(ctx context.Context, req *protocol.Request) *protocol.Response {
	if resp := need(req, "username"); resp != nil {
		return resp
	}

	att, aud, err := d.srv.auth.UserHistory(ctx, req.Field("username"))
	if err != nil {
		return d.failure(ctx, err)
	}

	history := protocol.History{
		Attempts: make([]protocol.AttemptRecord, 0, len(att)),
		Audits:   auditRecords(aud),
	}
	for _, a := range att {
		history.Attempts = append(history.Attempts, protocol.AttemptRecord{
			ID:            a.ID,
			Username:      a.Username,
			AttemptTime:   a.AttemptTime.Format(time.RFC3339),
			Success:       a.Success,
			SourceAddress: a.SourceAddress,
		})
	}

	payload, err := json.Marshal(history)
	if err != nil {
		return d.failure(ctx, err)
	}

	return protocol.NewOK("OK").Set("history", string(payload))
}
