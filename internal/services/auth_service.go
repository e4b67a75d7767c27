package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"

	"github.com/sjperalta/advance-portal/internal/config"
	"github.com/sjperalta/advance-portal/internal/models"
	"github.com/sjperalta/advance-portal/internal/repository"
	"github.com/sjperalta/advance-portal/internal/session"
	"github.com/sjperalta/advance-portal/pkg/logger"
)

const minPasswordLength = 6

var validate = validator.New()

// AuthService handles authentication operations
type AuthService struct {
	userRepo repository.UserRepository
	sessions session.Store
	auditSvc *AuditService
	cfg      *config.Config
}

// NewAuthService creates a new auth service
func NewAuthService(userRepo repository.UserRepository, sessions session.Store, auditSvc *AuditService, cfg *config.Config) *AuthService {
	return &AuthService{
		userRepo: userRepo,
		sessions: sessions,
		auditSvc: auditSvc,
		cfg:      cfg,
	}
}

// LoginResult represents the result of a login attempt
type LoginResult struct {
	Token     string              `json:"-"`
	ExpiresAt time.Time           `json:"expiresAt"`
	User      models.UserResponse `json:"user"`
}

// Authenticate checks credentials. Only active users succeed.
func (s *AuthService) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, ErrCredentialsRequired
	}
	if err := validate.Var(email, "email"); err != nil {
		return nil, ErrInvalidEmail
	}

	user, err := s.userRepo.FindByEmail(ctx, email)
	if repository.IsNotFound(err) {
		return nil, ErrUnknownEmail
	}
	if err != nil {
		return nil, dbError(err)
	}

	if !user.IsActive() {
		return nil, ErrAccountInactive
	}

	if !VerifyPassword(password, user.Password) {
		return nil, ErrInvalidPassword
	}
	return user, nil
}

// Login authenticates a user and opens a session
func (s *AuthService) Login(ctx context.Context, email, password, ip, userAgent string) (*LoginResult, error) {
	log := logger.FromContext(ctx)

	user, err := s.Authenticate(ctx, email, password)
	if err != nil {
		log.Warn("[Auth] Login failed", "email", email, "ip", ip, "reason", Message(err))
		return nil, err
	}

	token, err := session.NewToken()
	if err != nil {
		return nil, &Error{Kind: ErrServer, Message: "Server error occurred", Err: err}
	}

	now := time.Now()
	sess := &session.Session{
		Token:     token,
		UserID:    user.ID,
		IPAddress: ip,
		UserAgent: userAgent,
		CreatedAt: now,
		ExpiresAt: now.Add(s.cfg.SessionTTL),
	}
	if err := s.sessions.Save(ctx, sess); err != nil {
		return nil, &Error{Kind: ErrServer, Message: "Could not start session", Err: err}
	}

	if err := s.userRepo.TouchLastLogin(ctx, user.ID, now); err != nil {
		log.Error("[Auth] Failed to record last login", "user_id", user.ID, "error", err)
	} else {
		user.LastLogin = &now
	}

	log.Info("[Auth] Login", "user_id", user.ID, "ip", ip)
	actor := Actor{UserID: user.ID, Email: user.Email, Role: user.Role, IP: ip, UserAgent: userAgent}
	s.auditSvc.Log(ctx, actor, models.AuditLogin, "User", idString(user.ID), "Logged in")

	return &LoginResult{
		Token:     token,
		ExpiresAt: sess.ExpiresAt,
		User:      user.ToResponse(),
	}, nil
}

// Logout destroys a session. Unknown tokens are ignored.
func (s *AuthService) Logout(ctx context.Context, actor Actor, token string) error {
	if token == "" {
		return nil
	}
	if err := s.sessions.Delete(ctx, token); err != nil {
		return &Error{Kind: ErrServer, Message: "Could not end session", Err: err}
	}
	if actor.UserID != 0 {
		s.auditSvc.Log(ctx, actor, models.AuditLogout, "User", idString(actor.UserID), "Logged out")
	}
	return nil
}

// Resolve returns the user behind a session token. Sessions of users that
// were removed or deactivated are destroyed.
func (s *AuthService) Resolve(ctx context.Context, token string) (*models.User, *session.Session, error) {
	if token == "" {
		return nil, nil, ErrSessionRequired
	}

	sess, err := s.sessions.Get(ctx, token)
	if errors.Is(err, session.ErrNotFound) {
		return nil, nil, ErrSessionRequired
	}
	if err != nil {
		return nil, nil, &Error{Kind: ErrServer, Message: "Server error occurred", Err: err}
	}

	user, err := s.userRepo.FindByID(ctx, sess.UserID)
	if err != nil && !repository.IsNotFound(err) {
		return nil, nil, dbError(err)
	}
	if user == nil || !user.IsActive() {
		_ = s.sessions.Delete(ctx, token)
		return nil, nil, ErrSessionRequired
	}
	return user, sess, nil
}

// CurrentUser returns the actor's user record
func (s *AuthService) CurrentUser(ctx context.Context, actor Actor) (*models.User, error) {
	user, err := s.userRepo.FindByID(ctx, actor.UserID)
	if repository.IsNotFound(err) {
		return nil, ErrSessionRequired
	}
	if err != nil {
		return nil, dbError(err)
	}
	return user, nil
}

// UpdateEmail changes the actor's email after re-checking their password
func (s *AuthService) UpdateEmail(ctx context.Context, actor Actor, newEmail, currentPassword string) (*models.User, error) {
	newEmail = strings.TrimSpace(newEmail)
	if newEmail == "" || currentPassword == "" {
		return nil, validationError("New email and current password are required")
	}
	if err := validate.Var(newEmail, "email"); err != nil {
		return nil, ErrInvalidEmail
	}

	user, err := s.CurrentUser(ctx, actor)
	if err != nil {
		return nil, err
	}
	if !VerifyPassword(currentPassword, user.Password) {
		return nil, ErrCurrentPassword
	}

	taken, err := s.userRepo.EmailTaken(ctx, newEmail, user.ID)
	if err != nil {
		return nil, dbError(err)
	}
	if taken {
		return nil, ErrEmailTaken
	}

	if err := s.userRepo.UpdateEmail(ctx, user.ID, newEmail); err != nil {
		if repository.IsDuplicateKey(err) {
			return nil, ErrEmailTaken
		}
		return nil, dbError(err)
	}

	s.auditSvc.Log(ctx, actor, models.AuditUpdate, "User", idString(user.ID), "Changed email from "+user.Email)
	user.Email = newEmail
	return user, nil
}

// ChangePassword replaces the actor's password after re-checking the current one
func (s *AuthService) ChangePassword(ctx context.Context, actor Actor, currentPassword, newPassword, confirmPassword string) error {
	if currentPassword == "" || newPassword == "" || confirmPassword == "" {
		return validationError("All password fields are required")
	}
	if len(newPassword) < minPasswordLength {
		return ErrPasswordTooShort
	}
	if newPassword != confirmPassword {
		return ErrPasswordMismatch
	}

	user, err := s.CurrentUser(ctx, actor)
	if err != nil {
		return err
	}
	if !VerifyPassword(currentPassword, user.Password) {
		return ErrCurrentPassword
	}

	hash, err := HashPassword(newPassword)
	if err != nil {
		return &Error{Kind: ErrServer, Message: "Server error occurred", Err: err}
	}
	if err := s.userRepo.UpdatePassword(ctx, user.ID, hash); err != nil {
		return dbError(err)
	}

	s.auditSvc.Log(ctx, actor, models.AuditUpdate, "User", idString(user.ID), "Changed password")
	return nil
}

// EnsureAdmin creates an active admin when no user owns email. It reports
// whether a user was created.
func (s *AuthService) EnsureAdmin(ctx context.Context, email, password string) (bool, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return false, nil
	}

	_, err := s.userRepo.FindByEmail(ctx, email)
	if err == nil {
		return false, nil
	}
	if !repository.IsNotFound(err) {
		return false, err
	}

	hash, err := HashPassword(password)
	if err != nil {
		return false, err
	}

	username := email
	if at := strings.Index(email, "@"); at > 0 {
		username = email[:at]
	}
	admin := &models.User{
		Username: username,
		Email:    email,
		Password: hash,
		Role:     models.RoleAdmin,
		Status:   models.StatusActive,
	}
	if err := s.userRepo.Create(ctx, admin); err != nil {
		return false, err
	}
	return true, nil
}

// PurgeExpiredSessions removes sessions past their expiry
func (s *AuthService) PurgeExpiredSessions(ctx context.Context) (int64, error) {
	return s.sessions.Purge(ctx, time.Now())
}

// HashPassword hashes a password using bcrypt
func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(bytes), err
}

// VerifyPassword compares a password with a hash
func VerifyPassword(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}
