package service

import (
	"context"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"rentacar-backend/internal/domain"
	"rentacar-backend/internal/logger"
	"rentacar-backend/internal/repository"
	"rentacar-backend/internal/security"
)

// ErrInvalidCredentials is returned for an unknown email and for a wrong
// password alike.
var ErrInvalidCredentials = domain.NewUnauthenticatedError("invalid email or password")

type RegisterInput struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Phone    string `json:"phone"`
}

type AuthToken struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
}

type authService struct {
	store    repository.Store
	tokens   security.TokenManager
	activity *ActivityRecorder
}

func NewAuthService(store repository.Store, tokens security.TokenManager, activity *ActivityRecorder) AuthService {
	return &authService{store: store, tokens: tokens, activity: activity}
}

// Register creates a client account and signs it in.
func (s *authService) Register(ctx context.Context, in RegisterInput) (*domain.User, *AuthToken, error) {
	logger.EnterMethod("authService.Register", "email", in.Email)

	in.Name, in.Email, in.Phone = strings.TrimSpace(in.Name), normalizeEmail(in.Email), strings.TrimSpace(in.Phone)
	fields := map[string]string{}
	if in.Name == "" {
		fields["name"] = "name is required"
	}
	if !validEmail(in.Email) {
		fields["email"] = "a valid email address is required"
	}
	if !security.ValidPassword(in.Password) {
		fields["password"] = "password must be at least 8 characters"
	}
	if len(fields) > 0 {
		return nil, nil, domain.NewValidationError("VALIDATION_FAILED", "invalid registration", fields)
	}

	hash, err := security.HashPassword(in.Password)
	if err != nil {
		return nil, nil, domain.NewPersistenceError(err)
	}
	user := &domain.User{
		Name:         in.Name,
		Email:        in.Email,
		PasswordHash: hash,
		Phone:        in.Phone,
		Role:         domain.UserRoleClient,
	}

	err = s.activity.InTx(ctx, s.store, nil, func(tx repository.Store, record RecordFunc) error {
		if err := tx.Users().Create(ctx, user); err != nil {
			return emailTaken(err)
		}
		return record(domain.ActivityEvent{
			Actor:    domain.Actor{UserID: user.ID, Role: user.Role},
			Action:   domain.ActionUserRegistered,
			Severity: domain.SeveritySuccess,
			Detail:   fmt.Sprintf("New client registered: %s <%s>", user.Name, user.Email),
		})
	})
	if err != nil {
		logger.ExitMethodWithError("authService.Register", err, "email", in.Email)
		return nil, nil, err
	}

	token, err := s.issue(user)
	if err != nil {
		return nil, nil, err
	}
	logger.ExitMethod("authService.Register", "userID", user.ID)
	return user, token, nil
}

func (s *authService) Login(ctx context.Context, email, password string) (*domain.User, *AuthToken, error) {
	user, err := s.store.Users().GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if domain.IsNotFound(err) {
			return nil, nil, ErrInvalidCredentials
		}
		return nil, nil, err
	}
	if !security.CheckPassword(user.PasswordHash, password) {
		logger.Warn("Failed login attempt", "userID", user.ID)
		return nil, nil, ErrInvalidCredentials
	}

	token, err := s.issue(user)
	if err != nil {
		return nil, nil, err
	}
	return user, token, nil
}

func (s *authService) issue(user *domain.User) (*AuthToken, error) {
	access, expiresAt, err := s.tokens.GenerateAccessToken(user)
	if err != nil {
		return nil, domain.NewPersistenceError(fmt.Errorf("sign access token: %w", err))
	}
	return &AuthToken{AccessToken: access, TokenType: "Bearer", ExpiresAt: expiresAt}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validEmail(email string) bool {
	addr, err := mail.ParseAddress(email)
	return err == nil && addr.Address == email
}

// emailTaken reports a duplicate user as a field error on email.
func emailTaken(err error) error {
	if e := domain.AsError(err); e.Kind == domain.ErrorKindConflict && e.Code == "DUPLICATE" {
		conflict := domain.NewConflictError("EMAIL_TAKEN", "an account with this email already exists")
		conflict.Fields = map[string]string{"email": "email is already registered"}
		return conflict
	}
	return err
}
