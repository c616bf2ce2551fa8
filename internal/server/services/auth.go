// Package services contains the auth policy engine: the login state machine
// with its lockout rule, and the administrative user-management operations.
// Every public operation is one atomic unit of work against the persistence
// gateway; operations are serialized relative to each other so that the
// count-then-lock sequence never races with a concurrent login.
package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/authcore/internal/common"
	"github.com/dmitrijs2005/authcore/internal/logging"
	"github.com/dmitrijs2005/authcore/internal/server/auth"
	"github.com/dmitrijs2005/authcore/internal/server/config"
	"github.com/dmitrijs2005/authcore/internal/server/models"
	"github.com/dmitrijs2005/authcore/internal/server/repositories/attempts"
	"github.com/dmitrijs2005/authcore/internal/server/repositories/audits"
	"github.com/dmitrijs2005/authcore/internal/server/repositories/users"
	"golang.org/x/crypto/bcrypt"
)

// auditListLimit bounds the GET_AUDITS / history projections.
const auditListLimit = 500

// LoginResult is what a successful authentication yields: the account and a
// fresh session token the client may use to resume without a password.
type LoginResult struct {
	User  *models.User
	Token string
}

type AuthService struct {
	users    users.Repository
	attempts attempts.Repository
	audits   audits.Repository
	logger   logging.Logger

	secret           []byte
	tokenValidity    time.Duration
	lockoutThreshold int
	lockoutWindow    time.Duration
	bcryptCost       int

	// mu is the policy door: one operation at a time, so no two logins can
	// both observe failedCount == threshold-1 and neither lock the account.
	mu sync.Mutex
}

func NewAuthService(u users.Repository, a attempts.Repository, al audits.Repository,
	cfg *config.Config, l logging.Logger) *AuthService {
	return &AuthService{
		users:            u,
		attempts:         a,
		audits:           al,
		logger:           l.With("module", "auth_service"),
		secret:           []byte(cfg.SecretKey),
		tokenValidity:    cfg.TokenValidityDuration,
		lockoutThreshold: cfg.LockoutThreshold,
		lockoutWindow:    cfg.LockoutWindow,
		bcryptCost:       cfg.BcryptCost,
	}
}

func (s *AuthService) recordAttempt(ctx context.Context, userID *int64, username string, success bool, source string) error {
	return s.attempts.Insert(ctx, &models.LoginAttempt{
		UserID:        userID,
		Username:      username,
		AttemptTime:   time.Now(),
		Success:       success,
		SourceAddress: source,
	})
}

func (s *AuthService) audit(ctx context.Context, userID *int64, action models.AuditAction, details string) error {
	return s.audits.Insert(ctx, &models.AuditLog{
		UserID:    userID,
		Action:    action,
		Details:   details,
		CreatedAt: time.Now(),
	})
}

func (s *AuthService) hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return "", fmt.Errorf("hashing password: %w", err)
	}
	return string(hash), nil
}

func (s *AuthService) checkPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// Login runs the authentication state machine for one attempt:
//
//  1. unknown username → failed attempt recorded unbound, never counted
//     toward any account's lockout;
//  2. non-ACTIVE account → blocked before the password is even checked,
//     without touching the failure counter;
//  3. wrong password → failed attempt recorded, then the trailing-window
//     failure count decides between "wrong password" and force-locking;
//  4. match → successful attempt recorded, prior failed rows for the
//     username wiped, last login stamped, session token minted.
func (s *AuthService) Login(ctx context.Context, username, password, source string) (*LoginResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			if err := s.recordAttempt(ctx, nil, username, false, source); err != nil {
				return nil, err
			}
			if err := s.audit(ctx, nil, models.AuditLoginFailed, fmt.Sprintf("unknown username %q from %s", username, source)); err != nil {
				return nil, err
			}
			return nil, failf("user does not exist")
		}
		return nil, fmt.Errorf("looking up user: %w", err)
	}

	if user.Status != models.StatusActive {
		if err := s.recordAttempt(ctx, &user.ID, username, false, source); err != nil {
			return nil, err
		}
		if err := s.audit(ctx, &user.ID, models.AuditLoginBlocked, fmt.Sprintf("login blocked, status %s, from %s", user.Status, source)); err != nil {
			return nil, err
		}
		return nil, failf("account not permitted to log in: %s", user.Status)
	}

	if !s.checkPassword(user.PasswordHash, password) {
		if err := s.recordAttempt(ctx, &user.ID, username, false, source); err != nil {
			return nil, err
		}
		if err := s.audit(ctx, &user.ID, models.AuditLoginFailed, fmt.Sprintf("wrong password from %s", source)); err != nil {
			return nil, err
		}

		failed, err := s.attempts.CountRecentFailed(ctx, username, s.lockoutWindow)
		if err != nil {
			return nil, err
		}

		if failed >= s.lockoutThreshold {
			user.Status = models.StatusLocked
			user.UpdatedAt = time.Now()
			if err := s.users.Update(ctx, user); err != nil {
				return nil, err
			}
			if err := s.audit(ctx, &user.ID, models.AuditLocked, fmt.Sprintf("locked after %d failed attempts", failed)); err != nil {
				return nil, err
			}
			s.logger.Warn(ctx, "account locked", "username", username, "failed", failed)
			return nil, failf("account locked due to repeated failed attempts")
		}

		return nil, failf("wrong password; consecutive failures: %d/%d", failed, s.lockoutThreshold)
	}

	if err := s.recordAttempt(ctx, &user.ID, username, true, source); err != nil {
		return nil, err
	}
	if err := s.attempts.DeleteFailed(ctx, username); err != nil {
		return nil, err
	}

	now := time.Now()
	user.LastLoginAt = &now
	user.UpdatedAt = now
	if err := s.users.Update(ctx, user); err != nil {
		return nil, err
	}

	if err := s.audit(ctx, &user.ID, models.AuditLoginSuccess, fmt.Sprintf("login from %s", source)); err != nil {
		return nil, err
	}

	token, err := auth.GenerateToken(user.ID, s.secret, s.tokenValidity)
	if err != nil {
		return nil, fmt.Errorf("minting session token: %w", err)
	}

	return &LoginResult{User: user, Token: token}, nil
}

// LoginWithToken authenticates with a previously issued session token.
// Attempt bookkeeping is skipped entirely: no password was presented, so
// nothing counts toward the lockout either way.
func (s *AuthService) LoginWithToken(ctx context.Context, token, source string) (*LoginResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	userID, err := auth.GetUserIDFromToken(token, s.secret)
	if err != nil {
		return nil, failf("invalid or expired session token")
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, failf("user does not exist")
		}
		return nil, fmt.Errorf("looking up user: %w", err)
	}

	if user.Status != models.StatusActive {
		if err := s.audit(ctx, &user.ID, models.AuditLoginBlocked, fmt.Sprintf("token login blocked, status %s, from %s", user.Status, source)); err != nil {
			return nil, err
		}
		return nil, failf("account not permitted to log in: %s", user.Status)
	}

	if err := s.audit(ctx, &user.ID, models.AuditLoginSuccess, fmt.Sprintf("token login from %s", source)); err != nil {
		return nil, err
	}

	fresh, err := auth.GenerateToken(user.ID, s.secret, s.tokenValidity)
	if err != nil {
		return nil, fmt.Errorf("minting session token: %w", err)
	}

	return &LoginResult{User: user, Token: fresh}, nil
}

// CreateUser persists a new ACTIVE account with a hashed password.
func (s *AuthService) CreateUser(ctx context.Context, username, password, fullName, email string, role models.Role) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.createUser(ctx, username, password, fullName, email, role, "")
}

func (s *AuthService) createUser(ctx context.Context, username, password, fullName, email string, role models.Role, note string) (*models.User, error) {
	hash, err := s.hashPassword(password)
	if err != nil {
		return nil, err
	}

	user, err := s.users.Create(ctx, &models.User{
		Username:     username,
		PasswordHash: hash,
		FullName:     fullName,
		Email:        email,
		Role:         role,
		Status:       models.StatusActive,
	})
	if err != nil {
		if errors.Is(err, common.ErrorAlreadyExists) {
			return nil, failf("username exists")
		}
		return nil, err
	}

	details := fmt.Sprintf("created user %q role %s", username, role)
	if note != "" {
		details += " (" + note + ")"
	}
	if err := s.audit(ctx, &user.ID, models.AuditAdminCreateUser, details); err != nil {
		return nil, err
	}

	return user, nil
}

// SetStatus overwrites the account status (admin lock/unlock).
func (s *AuthService) SetStatus(ctx context.Context, userID int64, status models.Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return failf("user not found")
		}
		return fmt.Errorf("looking up user: %w", err)
	}

	user.Status = status
	user.UpdatedAt = time.Now()
	if err := s.users.Update(ctx, user); err != nil {
		return err
	}

	return s.audit(ctx, &user.ID, models.AuditAdminSetStatus, fmt.Sprintf("status of %q set to %s", user.Username, status))
}

// EditUserParams carries the optional admin-edit fields; empty values leave
// the stored field unchanged.
type EditUserParams struct {
	FullName string
	Email    string
	Role     models.Role
	Password string
}

// EditUser applies the supplied fields to an account. A supplied password is
// re-hashed.
func (s *AuthService) EditUser(ctx context.Context, userID int64, p EditUserParams) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return failf("user not found")
		}
		return fmt.Errorf("looking up user: %w", err)
	}

	if p.FullName != "" {
		user.FullName = p.FullName
	}
	if p.Email != "" {
		user.Email = p.Email
	}
	if p.Role != "" {
		user.Role = p.Role
	}
	if p.Password != "" {
		hash, err := s.hashPassword(p.Password)
		if err != nil {
			return err
		}
		user.PasswordHash = hash
	}
	user.UpdatedAt = time.Now()

	if err := s.users.Update(ctx, user); err != nil {
		return err
	}

	return s.audit(ctx, &user.ID, models.AuditAdminEditUser, fmt.Sprintf("edited user %q", user.Username))
}

// ChangePassword verifies the old password before accepting the new one.
func (s *AuthService) ChangePassword(ctx context.Context, userID int64, oldPassword, newPassword string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return failf("user not found")
		}
		return fmt.Errorf("looking up user: %w", err)
	}

	if !s.checkPassword(user.PasswordHash, oldPassword) {
		if err := s.audit(ctx, &user.ID, models.AuditChangePasswordFailed, "old password mismatch"); err != nil {
			return err
		}
		return failf("old password incorrect")
	}

	hash, err := s.hashPassword(newPassword)
	if err != nil {
		return err
	}
	user.PasswordHash = hash
	user.UpdatedAt = time.Now()

	if err := s.users.Update(ctx, user); err != nil {
		return err
	}

	return s.audit(ctx, &user.ID, models.AuditChangePasswordSuccess, "password changed")
}

// UpdateProfile overwrites full name and email unconditionally.
func (s *AuthService) UpdateProfile(ctx context.Context, userID int64, fullName, email string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, failf("user not found")
		}
		return nil, fmt.Errorf("looking up user: %w", err)
	}

	user.FullName = fullName
	user.Email = email
	user.UpdatedAt = time.Now()

	if err := s.users.Update(ctx, user); err != nil {
		return nil, err
	}

	if err := s.audit(ctx, &user.ID, models.AuditUpdateProfile, fmt.Sprintf("profile updated for %q", user.Username)); err != nil {
		return nil, err
	}

	return user, nil
}

// ListUsers is a read-only projection; no audit entry.
func (s *AuthService) ListUsers(ctx context.Context) ([]*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.users.List(ctx)
}

// GetUser is a read-only projection; no audit entry.
func (s *AuthService) GetUser(ctx context.Context, userID int64) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, failf("user not found")
		}
		return nil, fmt.Errorf("looking up user: %w", err)
	}
	return user, nil
}

// Audits returns the newest audit entries, usernames resolved.
func (s *AuthService) Audits(ctx context.Context) ([]*models.AuditLog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.audits.List(ctx, auditListLimit)
}

// UserHistory returns login attempts and audit entries for one username.
// An unknown username yields its (possibly empty) attempt rows and no audits.
func (s *AuthService) UserHistory(ctx context.Context, username string) ([]*models.LoginAttempt, []*models.AuditLog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	att, err := s.attempts.ListByUsername(ctx, username, auditListLimit)
	if err != nil {
		return nil, nil, err
	}

	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return att, nil, nil
		}
		return nil, nil, fmt.Errorf("looking up user: %w", err)
	}

	aud, err := s.audits.ListByUserID(ctx, user.ID, auditListLimit)
	if err != nil {
		return nil, nil, err
	}

	return att, aud, nil
}

// EnsureDefaultAdmin seeds a bootstrap ADMIN account when the user table is
// empty, so a fresh deployment can be administered at all.
func (s *AuthService) EnsureDefaultAdmin(ctx context.Context, username, password string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, err := s.users.Count(ctx)
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}

	if _, err := s.createUser(ctx, username, password, "Administrator", "", models.RoleAdmin, "bootstrap"); err != nil {
		return err
	}

	s.logger.Info(ctx, "seeded bootstrap admin", "username", username)
	return nil
}
