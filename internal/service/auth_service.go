package service

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"ideon/internal/auth"
	"ideon/internal/models"
	"ideon/internal/observability"
	"ideon/internal/repository"
	"ideon/internal/validation"
)

// Defaults applied to freshly registered members.
const (
	NewMemberTitle = "New Member"
	NewMemberBio   = "Welcome to Ideon! Edit your profile to add a bio."
	avatarBaseURL  = "https://i.pravatar.cc/150?u="
)

const (
	msgInvalidCredentials = "Invalid email/username or password."
	msgVerifyFirst        = "Please verify your email before logging in."
	msgInvalidCode        = "Invalid or expired code. Please try again."
)

// SessionStore keeps the single persisted logged-in user id.
// *persistence.Store implements it.
type SessionStore interface {
	LoadSession(ctx context.Context) (string, error)
	SaveSession(ctx context.Context, userID string) error
	ClearSession(ctx context.Context) error
}

// VerificationRequiredError is returned by Login for an unverified member so
// the client can resume verification.
type VerificationRequiredError struct {
	UserID string
	Email  string
	err    *models.AppError
}

func (e *VerificationRequiredError) Error() string { return e.err.Error() }
func (e *VerificationRequiredError) Unwrap() error { return e.err }

type AuthService struct {
	users    repository.UserRepository
	hasher   auth.PasswordHasher
	tokens   *auth.TokenIssuer
	codes    auth.CodeGenerator
	sender   auth.CodeSender
	sessions SessionStore
	store    *Store
	now      func() time.Time
}

type AuthServiceConfig struct {
	Hasher   auth.PasswordHasher
	Tokens   *auth.TokenIssuer
	Codes    auth.CodeGenerator
	Sender   auth.CodeSender
	Sessions SessionStore
	Now      func() time.Time
}

type SignUpInput struct {
	Name            string `json:"name"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
}

// Session is a logged-in member with a bearer token.
type Session struct {
	Token string              `json:"token"`
	User  models.UserSnapshot `json:"user"`
}

// PendingVerification is returned after signup and resend.
type PendingVerification struct {
	UserID    string        `json:"userId"`
	Email     string        `json:"email"`
	ExpiresAt models.Millis `json:"expiresAt"`
}

func NewAuthService(users repository.UserRepository, store *Store, cfg AuthServiceConfig) *AuthService {
	s := &AuthService{
		users:    users,
		hasher:   cfg.Hasher,
		tokens:   cfg.Tokens,
		codes:    cfg.Codes,
		sender:   cfg.Sender,
		sessions: cfg.Sessions,
		store:    store,
		now:      cfg.Now,
	}
	if s.hasher == nil {
		s.hasher = auth.NewBcryptHasher()
	}
	if s.codes == nil {
		s.codes = auth.RandomCode
	}
	if s.sender == nil {
		s.sender = auth.LogSender{}
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// Login authenticates by email or display name, both case-insensitive.
func (s *AuthService) Login(ctx context.Context, identifier, password string) (*Session, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" || password == "" {
		return nil, models.NewValidationError("Email/username and password are required.")
	}

	user, err := s.users.GetByIdentifier(ctx, identifier)
	if err != nil {
		if models.ErrorCode(err) == models.CodeNotFound {
			observability.AuthEvents.WithLabelValues("login", "unknown_user").Inc()
			return nil, models.NewUnauthorizedError(msgInvalidCredentials)
		}
		return nil, err
	}

	ok, rehash := s.hasher.Compare(password, user.Password)
	if !ok {
		observability.AuthEvents.WithLabelValues("login", "bad_password").Inc()
		return nil, models.NewUnauthorizedError(msgInvalidCredentials)
	}
	if rehash {
		s.upgradeHash(ctx, user, password)
	}

	if !user.EmailVerified {
		observability.AuthEvents.WithLabelValues("login", "unverified").Inc()
		return nil, &VerificationRequiredError{
			UserID: user.ID,
			Email:  user.Email,
			err:    models.NewUnauthorizedError(msgVerifyFirst),
		}
	}

	observability.AuthEvents.WithLabelValues("login", "ok").Inc()
	return s.startSession(ctx, user)
}

// upgradeHash replaces a legacy stored password with bcrypt. Failures only
// cost the upgrade, never the login.
func (s *AuthService) upgradeHash(ctx context.Context, user *models.User, password string) {
	hashed, err := s.hasher.Hash(password)
	if err == nil {
		unlock := s.store.LockUsers()
		var current *models.User
		if current, err = s.users.GetByID(ctx, user.ID); err == nil {
			current.Password = hashed
			err = s.users.Update(ctx, current)
		}
		unlock()
	}
	if err != nil {
		observability.GlobalLogger.WarnContext(ctx, "legacy password upgrade failed",
			slog.String("user_id", user.ID),
			slog.String("error", err.Error()),
		)
	}
}

// SignUp registers an unverified member and sends a verification code.
func (s *AuthService) SignUp(ctx context.Context, in SignUpInput) (*PendingVerification, error) {
	name := validation.StripMarkup(in.Name)
	email := strings.TrimSpace(in.Email)

	if err := validation.ValidateDisplayName(name); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if err := validation.ValidateEmail(email); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if err := validation.ValidatePasswordConfirmation(in.Password, in.ConfirmPassword); err != nil {
		return nil, models.NewValidationError(err.Error())
	}

	hashed, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	user, expires, err := s.register(ctx, name, email, hashed)
	if err != nil {
		return nil, err
	}

	s.deliver(ctx, user)
	observability.AuthEvents.WithLabelValues("signup", "ok").Inc()
	return &PendingVerification{UserID: user.ID, Email: user.Email, ExpiresAt: expires}, nil
}

// register checks both unique keys and inserts the member in one step under
// the member write lock.
func (s *AuthService) register(ctx context.Context, name, email, hashed string) (*models.User, models.Millis, error) {
	unlock := s.store.LockUsers()
	defer unlock()

	if taken, err := exists(ctx, s.users.GetByEmail, email); err != nil {
		return nil, 0, err
	} else if taken {
		observability.AuthEvents.WithLabelValues("signup", "email_taken").Inc()
		return nil, 0, models.NewConflictError("Email already in use.")
	}
	if taken, err := exists(ctx, s.users.GetByName, name); err != nil {
		return nil, 0, err
	} else if taken {
		observability.AuthEvents.WithLabelValues("signup", "name_taken").Inc()
		return nil, 0, models.NewConflictError("Username already taken.")
	}

	id := s.store.NewID("user")
	user := &models.User{
		ID:            id,
		Name:          name,
		AvatarURL:     avatarBaseURL + id,
		Title:         NewMemberTitle,
		Email:         email,
		Bio:           NewMemberBio,
		Password:      hashed,
		EmailVerified: false,
	}
	expires, err := s.issueCode(user)
	if err != nil {
		return nil, 0, err
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, 0, err
	}
	return user, expires, nil
}

// Verify checks the code, marks the member verified and logs them in.
// A member who is already verified holds no code, so every attempt fails.
func (s *AuthService) Verify(ctx context.Context, userID, code string) (*Session, error) {
	unlock := s.store.LockUsers()
	defer unlock()

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if models.ErrorCode(err) == models.CodeNotFound {
			return nil, models.NewNotFoundError("User", userID)
		}
		return nil, err
	}

	code = strings.TrimSpace(code)
	valid := validation.ValidateVerificationCode(code) == nil &&
		user.VerificationCode != nil &&
		*user.VerificationCode == code &&
		user.VerificationCodeExpires != nil &&
		s.now().Before(user.VerificationCodeExpires.Time())
	if !valid {
		observability.AuthEvents.WithLabelValues("verify", "invalid_code").Inc()
		return nil, models.NewValidationError(msgInvalidCode)
	}

	user.EmailVerified = true
	user.VerificationCode = nil
	user.VerificationCodeExpires = nil
	if err := s.users.Update(ctx, user); err != nil {
		return nil, err
	}
	if _, err := s.store.PropagateUserUpdate(ctx, user); err != nil {
		return nil, err
	}

	observability.AuthEvents.WithLabelValues("verify", "ok").Inc()
	return s.startSession(ctx, user)
}

// ResendCode issues a fresh code for an unverified member.
func (s *AuthService) ResendCode(ctx context.Context, userID string) (*PendingVerification, error) {
	unlock := s.store.LockUsers()
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		unlock()
		return nil, err
	}
	if user.EmailVerified {
		unlock()
		return nil, models.NewValidationError("Email is already verified.")
	}
	expires, err := s.issueCode(user)
	if err == nil {
		err = s.users.Update(ctx, user)
	}
	unlock()
	if err != nil {
		return nil, err
	}

	s.deliver(ctx, user)
	observability.AuthEvents.WithLabelValues("resend", "ok").Inc()
	return &PendingVerification{UserID: user.ID, Email: user.Email, ExpiresAt: expires}, nil
}

// Logout forgets the persisted session and the member's open views.
func (s *AuthService) Logout(ctx context.Context, userID string) error {
	s.store.DropView(userID)
	current, err := s.sessions.LoadSession(ctx)
	if err != nil {
		return err
	}
	if current != "" && current != userID {
		return nil
	}
	observability.AuthEvents.WithLabelValues("logout", "ok").Inc()
	return s.sessions.ClearSession(ctx)
}

// RestoreSession resolves the persisted logged-in id. An id that no longer
// resolves, or resolves to an unverified member, is cleared and (nil, nil)
// is returned.
func (s *AuthService) RestoreSession(ctx context.Context) (*models.User, error) {
	id, err := s.sessions.LoadSession(ctx)
	if err != nil || id == "" {
		return nil, err
	}
	user, err := s.users.GetByID(ctx, id)
	if err != nil && models.ErrorCode(err) != models.CodeNotFound {
		return nil, err
	}
	if user == nil || !user.EmailVerified {
		observability.GlobalLogger.InfoContext(ctx, "clearing stale session", slog.String("user_id", id))
		return nil, s.sessions.ClearSession(ctx)
	}
	return user, nil
}

// CurrentUser returns the verified member behind a session token subject.
func (s *AuthService) CurrentUser(ctx context.Context, userID string) (*models.UserSnapshot, error) {
	user, err := actor(ctx, s.users, userID)
	if err != nil {
		return nil, err
	}
	if !user.EmailVerified {
		return nil, models.NewUnauthorizedError(msgVerifyFirst)
	}
	snap := user.Snapshot()
	return &snap, nil
}

func (s *AuthService) startSession(ctx context.Context, user *models.User) (*Session, error) {
	token, err := s.tokens.Issue(user.ID, user.Name)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	if err := s.sessions.SaveSession(ctx, user.ID); err != nil {
		observability.GlobalLogger.WarnContext(ctx, "session not persisted",
			slog.String("user_id", user.ID),
			slog.String("error", err.Error()),
		)
	}
	return &Session{Token: token, User: user.Snapshot()}, nil
}

func (s *AuthService) issueCode(user *models.User) (models.Millis, error) {
	code, err := s.codes()
	if err != nil {
		return 0, models.NewInternalError(err)
	}
	expires := models.MillisOf(s.now().Add(auth.CodeTTL))
	user.VerificationCode = &code
	user.VerificationCodeExpires = &expires
	return expires, nil
}

// deliver sends the current code. Delivery problems are logged; the member
// can always ask for a resend.
func (s *AuthService) deliver(ctx context.Context, user *models.User) {
	if err := s.sender.SendCode(ctx, user.Name, user.Email, *user.VerificationCode); err != nil {
		observability.GlobalLogger.ErrorContext(ctx, "verification code delivery failed",
			slog.String("user_id", user.ID),
			slog.String("error", err.Error()),
		)
	}
}

func exists(ctx context.Context, lookup func(context.Context, string) (*models.User, error), key string) (bool, error) {
	_, err := lookup(ctx, key)
	if err == nil {
		return true, nil
	}
	if models.ErrorCode(err) == models.CodeNotFound {
		return false, nil
	}
	return false, err
}
