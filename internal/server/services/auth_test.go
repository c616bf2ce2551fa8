package services

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/dmitrijs2005/authcore/internal/logging"
	"github.com/dmitrijs2005/authcore/internal/server/config"
	"github.com/dmitrijs2005/authcore/internal/server/models"
	"github.com/dmitrijs2005/authcore/internal/server/repositories/repomanager"
	"golang.org/x/crypto/bcrypt"
)

// ---- test logger ----

type nopLogger struct{}

func (n nopLogger) Debug(context.Context, string, ...any) {}
func (n nopLogger) Info(context.Context, string, ...any)  {}
func (n nopLogger) Warn(context.Context, string, ...any)  {}
func (n nopLogger) Error(context.Context, string, ...any) {}
func (n nopLogger) With(...any) logging.Logger            { return n }

// ---- helpers ----

func newTestService(t *testing.T) (*AuthService, repomanager.RepositoryManager) {
	t.Helper()
	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.BcryptCost = bcrypt.MinCost // keep hashing fast in tests

	rm := repomanager.NewMemoryRepositoryManager()
	s := NewAuthService(rm.Users(), rm.Attempts(), rm.Audits(), cfg, nopLogger{})
	return s, rm
}

func mustCreateAlice(t *testing.T, s *AuthService) *models.User {
	t.Helper()
	user, err := s.CreateUser(context.Background(), "alice", "Secr3t!", "Alice A", "a@x.com", models.RoleUser)
	if err != nil {
		t.Fatalf("CreateUser error: %v", err)
	}
	return user
}

func failureReason(t *testing.T, err error) string {
	t.Helper()
	var f *Failure
	if !errors.As(err, &f) {
		t.Fatalf("expected domain failure, got %v", err)
	}
	return f.Reason
}

// ---- tests ----

func TestLogin_SuccessAndLockoutScenario(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()

	mustCreateAlice(t, s)

	res, err := s.Login(ctx, "alice", "Secr3t!", "127.0.0.1")
	if err != nil {
		t.Fatalf("Login error: %v", err)
	}
	if res.User.Username != "alice" || res.User.Role != models.RoleUser {
		t.Fatalf("unexpected user: %+v", res.User)
	}
	if res.Token == "" {
		t.Fatal("expected a session token")
	}
	if res.User.LastLoginAt == nil {
		t.Fatal("expected LastLoginAt to be stamped")
	}

	// four wrong passwords: counted, but not locked yet
	for i := 1; i <= 4; i++ {
		_, err := s.Login(ctx, "alice", "wrong", "127.0.0.1")
		want := fmt.Sprintf("wrong password; consecutive failures: %d/5", i)
		if got := failureReason(t, err); got != want {
			t.Fatalf("attempt %d: got %q, want %q", i, got, want)
		}
	}

	// fifth wrong password locks the account
	_, err = s.Login(ctx, "alice", "wrong", "127.0.0.1")
	if got := failureReason(t, err); got != "account locked due to repeated failed attempts" {
		t.Fatalf("got %q, want lockout message", got)
	}

	user, err := s.GetUser(ctx, res.User.ID)
	if err != nil {
		t.Fatalf("GetUser error: %v", err)
	}
	if user.Status != models.StatusLocked {
		t.Fatalf("expected LOCKED, got %s", user.Status)
	}

	// the correct password no longer helps until an admin resets the status
	_, err = s.Login(ctx, "alice", "Secr3t!", "127.0.0.1")
	if got := failureReason(t, err); got != "account not permitted to log in: LOCKED" {
		t.Fatalf("got %q, want blocked message", got)
	}
}

func TestLogin_UnknownUser(t *testing.T) {
	s, rm := newTestService(t)
	ctx := context.Background()

	_, err := s.Login(ctx, "ghost", "whatever", "127.0.0.1")
	if got := failureReason(t, err); got != "user does not exist" {
		t.Fatalf("got %q", got)
	}

	// the attempt is recorded unbound, for audit/history only
	att, err := rm.Attempts().ListByUsername(ctx, "ghost", 10)
	if err != nil {
		t.Fatalf("ListByUsername error: %v", err)
	}
	if len(att) != 1 || att[0].UserID != nil || att[0].Success {
		t.Fatalf("unexpected attempts: %+v", att)
	}
}

func TestLogin_SuccessResetsFailureCounter(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()

	mustCreateAlice(t, s)

	for i := 0; i < 3; i++ {
		if _, err := s.Login(ctx, "alice", "wrong", "127.0.0.1"); err == nil {
			t.Fatal("expected failure")
		}
	}

	if _, err := s.Login(ctx, "alice", "Secr3t!", "127.0.0.1"); err != nil {
		t.Fatalf("Login error: %v", err)
	}

	// after the reset, four more failures only reach 4/5
	var last error
	for i := 0; i < 4; i++ {
		_, last = s.Login(ctx, "alice", "wrong", "127.0.0.1")
	}
	if got := failureReason(t, last); got != "wrong password; consecutive failures: 4/5" {
		t.Fatalf("got %q, counter was not reset", got)
	}

	user, _ := s.users.GetByUsername(ctx, "alice")
	if user.Status != models.StatusActive {
		t.Fatalf("expected ACTIVE, got %s", user.Status)
	}
}

func TestLogin_BlockedBeforePasswordCheck(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()

	user := mustCreateAlice(t, s)
	if err := s.SetStatus(ctx, user.ID, models.StatusLocked); err != nil {
		t.Fatalf("SetStatus error: %v", err)
	}

	// correct password, still refused with the blocked reason
	_, err := s.Login(ctx, "alice", "Secr3t!", "127.0.0.1")
	if got := failureReason(t, err); got != "account not permitted to log in: LOCKED" {
		t.Fatalf("got %q", got)
	}

	// admin unlock restores access
	if err := s.SetStatus(ctx, user.ID, models.StatusActive); err != nil {
		t.Fatalf("SetStatus error: %v", err)
	}
	if _, err := s.Login(ctx, "alice", "Secr3t!", "127.0.0.1"); err != nil {
		t.Fatalf("Login after unlock error: %v", err)
	}
}

func TestLoginWithToken(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()

	user := mustCreateAlice(t, s)

	res, err := s.Login(ctx, "alice", "Secr3t!", "127.0.0.1")
	if err != nil {
		t.Fatalf("Login error: %v", err)
	}

	resumed, err := s.LoginWithToken(ctx, res.Token, "127.0.0.1")
	if err != nil {
		t.Fatalf("LoginWithToken error: %v", err)
	}
	if resumed.User.ID != user.ID {
		t.Fatalf("resumed wrong user: %+v", resumed.User)
	}

	if _, err := s.LoginWithToken(ctx, "garbage", "127.0.0.1"); err == nil {
		t.Fatal("expected failure for garbage token")
	} else if got := failureReason(t, err); got != "invalid or expired session token" {
		t.Fatalf("got %q", got)
	}

	// a locked account cannot resume either
	if err := s.SetStatus(ctx, user.ID, models.StatusLocked); err != nil {
		t.Fatalf("SetStatus error: %v", err)
	}
	if _, err := s.LoginWithToken(ctx, res.Token, "127.0.0.1"); err == nil {
		t.Fatal("expected failure for locked account")
	}
}

func TestCreateUser_DuplicateUsername(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()

	mustCreateAlice(t, s)

	_, err := s.CreateUser(ctx, "alice", "other", "Other", "o@x.com", models.RoleAdmin)
	if got := failureReason(t, err); got != "username exists" {
		t.Fatalf("got %q", got)
	}
}

func TestChangePassword(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()

	user := mustCreateAlice(t, s)

	err := s.ChangePassword(ctx, user.ID, "nope", "NewPass1")
	if got := failureReason(t, err); got != "old password incorrect" {
		t.Fatalf("got %q", got)
	}

	if err := s.ChangePassword(ctx, user.ID, "Secr3t!", "NewPass1"); err != nil {
		t.Fatalf("ChangePassword error: %v", err)
	}

	if _, err := s.Login(ctx, "alice", "NewPass1", "127.0.0.1"); err != nil {
		t.Fatalf("Login with new password error: %v", err)
	}

	if err := s.ChangePassword(ctx, 9999, "a", "b"); err == nil {
		t.Fatal("expected failure for unknown user")
	}
}

func TestEditUser_PartialUpdate(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()

	user := mustCreateAlice(t, s)

	err := s.EditUser(ctx, user.ID, EditUserParams{Email: "new@x.com", Role: models.RoleAdmin})
	if err != nil {
		t.Fatalf("EditUser error: %v", err)
	}

	got, err := s.GetUser(ctx, user.ID)
	if err != nil {
		t.Fatalf("GetUser error: %v", err)
	}
	if got.Email != "new@x.com" || got.Role != models.RoleAdmin {
		t.Fatalf("unexpected user: %+v", got)
	}
	if got.FullName != "Alice A" {
		t.Fatalf("full name must be unchanged, got %q", got.FullName)
	}

	if err := s.EditUser(ctx, 9999, EditUserParams{}); err == nil {
		t.Fatal("expected failure for unknown user")
	}
}

func TestUpdateProfile_OverwritesBothFields(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()

	user := mustCreateAlice(t, s)

	got, err := s.UpdateProfile(ctx, user.ID, "Alice B", "")
	if err != nil {
		t.Fatalf("UpdateProfile error: %v", err)
	}
	if got.FullName != "Alice B" || got.Email != "" {
		t.Fatalf("unexpected user: %+v", got)
	}
}

func TestUserHistoryAndAudits(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()

	mustCreateAlice(t, s)
	s.Login(ctx, "alice", "wrong", "127.0.0.1")
	s.Login(ctx, "alice", "Secr3t!", "127.0.0.1")

	att, aud, err := s.UserHistory(ctx, "alice")
	if err != nil {
		t.Fatalf("UserHistory error: %v", err)
	}
	// the successful login wiped the failed row
	if len(att) != 1 || !att[0].Success {
		t.Fatalf("unexpected attempts: %+v", att)
	}

	var actions []models.AuditAction
	for _, e := range aud {
		actions = append(actions, e.Action)
		if e.Username != "alice" {
			t.Fatalf("expected resolved username, got %q", e.Username)
		}
	}
	// newest first: LOGIN_SUCCESS, LOGIN_FAILED, ADMIN_CREATE_USER
	if len(actions) != 3 || actions[0] != models.AuditLoginSuccess || actions[2] != models.AuditAdminCreateUser {
		t.Fatalf("unexpected audit actions: %v", actions)
	}

	all, err := s.Audits(ctx)
	if err != nil {
		t.Fatalf("Audits error: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 audit rows, got %d", len(all))
	}
}

func TestEnsureDefaultAdmin(t *testing.T) {
	s, rm := newTestService(t)
	ctx := context.Background()

	if err := s.EnsureDefaultAdmin(ctx, "admin", "admin"); err != nil {
		t.Fatalf("EnsureDefaultAdmin error: %v", err)
	}

	admin, err := rm.Users().GetByUsername(ctx, "admin")
	if err != nil {
		t.Fatalf("GetByUsername error: %v", err)
	}
	if admin.Role != models.RoleAdmin || admin.Status != models.StatusActive {
		t.Fatalf("unexpected admin: %+v", admin)
	}

	// second call is a no-op once any user exists
	if err := s.EnsureDefaultAdmin(ctx, "admin2", "x"); err != nil {
		t.Fatalf("EnsureDefaultAdmin error: %v", err)
	}
	if _, err := rm.Users().GetByUsername(ctx, "admin2"); err == nil {
		t.Fatal("no second admin expected")
	}
}

func TestLockoutWindowExpiry(t *testing.T) {
	s, rm := newTestService(t)
	ctx := context.Background()

	mustCreateAlice(t, s)

	// stale failures outside the window are not counted
	old := time.Now().Add(-2 * time.Hour)
	for i := 0; i < 10; i++ {
		rm.Attempts().Insert(ctx, &models.LoginAttempt{
			Username: "alice", AttemptTime: old, Success: false, SourceAddress: "127.0.0.1",
		})
	}

	_, err := s.Login(ctx, "alice", "wrong", "127.0.0.1")
	if got := failureReason(t, err); got != "wrong password; consecutive failures: 1/5" {
		t.Fatalf("got %q, stale attempts were counted", got)
	}
}
