package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/abduss/easyshare/internal/config"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const (
	minPasswordLength = 6
	maxPasswordLength = 72 // bcrypt limit
	maxUsernameLength = 64

	// passwordSymbols is the set a password must draw at least one character from.
	passwordSymbols = "!@#$%^&*"

	sessionAudience = "easyshare-web"
)

// userStore abstracts the persistence layer.
type userStore interface {
	CreateUser(ctx context.Context, username, passwordHash string) (User, error)
	FindUserByUsername(ctx context.Context, username string) (User, error)
}

// Service encapsulates account use cases.
type Service struct {
	store    userStore
	cfg      config.AuthConfig
	nowFunc  func() time.Time
	idIssuer string
	parser   *jwt.Parser

	dummyOnce sync.Once
	dummyHash []byte
}

// NewService creates a Service with dependencies.
func NewService(store userStore, cfg config.AuthConfig) *Service {
	return &Service{
		store:    store,
		cfg:      cfg,
		nowFunc:  time.Now,
		idIssuer: "easyshare",
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}),
			jwt.WithAudience(sessionAudience),
			jwt.WithExpirationRequired(),
		),
	}
}

// RegisterInput carries data for account registration.
type RegisterInput struct {
	Username        string
	Password        string
	ConfirmPassword string
}

// SessionClaims describes the identity carried by a validated session token.
type SessionClaims struct {
	UserID    uuid.UUID
	Username  string
	ExpiresAt time.Time
}

// Register validates the input, hashes the password and persists the account.
func (s *Service) Register(ctx context.Context, input RegisterInput) (User, error) {
	if err := validateUsername(input.Username); err != nil {
		return User{}, err
	}
	if input.Password != input.ConfirmPassword {
		return User{}, ErrPasswordMismatch
	}
	if err := ValidatePassword(input.Password); err != nil {
		return User{}, err
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(input.Password), s.cfg.BcryptCost)
	if err != nil {
		return User{}, fmt.Errorf("hash password: %w", err)
	}

	user, err := s.store.CreateUser(ctx, input.Username, string(hashedPassword))
	if err != nil {
		if errors.Is(err, ErrDuplicateUsername) {
			return User{}, ErrDuplicateUsername
		}
		return User{}, fmt.Errorf("create user: %w", err)
	}

	return user.SafeUser(), nil
}

// Authenticate checks a username/password pair against the stored hash.
func (s *Service) Authenticate(ctx context.Context, username, password string) (User, error) {
	if username == "" || password == "" || len(password) > maxPasswordLength {
		return User{}, ErrInvalidCredentials
	}

	user, err := s.store.FindUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			// spend the same bcrypt work as a real comparison
			_ = bcrypt.CompareHashAndPassword(s.dummy(), []byte(password))
			return User{}, ErrInvalidCredentials
		}
		return User{}, fmt.Errorf("find user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return User{}, ErrInvalidCredentials
	}

	return user.SafeUser(), nil
}

// IssueSession signs a session token for the user.
func (s *Service) IssueSession(user User) (Session, error) {
	now := s.nowFunc()
	expiresAt := now.Add(s.cfg.SessionTTL)

	claims := jwt.MapClaims{
		"sub":      user.ID.String(),
		"iss":      s.idIssuer,
		"aud":      sessionAudience,
		"iat":      now.Unix(),
		"exp":      expiresAt.Unix(),
		"username": user.Username,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.cfg.SessionSecret))
	if err != nil {
		return Session{}, fmt.Errorf("sign session: %w", err)
	}

	return Session{Token: signed, ExpiresAt: expiresAt}, nil
}

// ValidateSession verifies the token signature and expiry and extracts the identity.
func (s *Service) ValidateSession(tokenString string) (SessionClaims, error) {
	if strings.TrimSpace(tokenString) == "" {
		return SessionClaims{}, ErrUnauthorized
	}

	parsed, err := s.parser.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		return []byte(s.cfg.SessionSecret), nil
	})
	if err != nil || !parsed.Valid {
		return SessionClaims{}, ErrUnauthorized
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return SessionClaims{}, ErrUnauthorized
	}

	sub, err := claims.GetSubject()
	if err != nil {
		return SessionClaims{}, ErrUnauthorized
	}
	userID, err := uuid.Parse(sub)
	if err != nil {
		return SessionClaims{}, ErrUnauthorized
	}

	username, _ := claims["username"].(string)
	if username == "" {
		return SessionClaims{}, ErrUnauthorized
	}

	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil || exp.Time.Before(s.nowFunc()) {
		return SessionClaims{}, ErrUnauthorized
	}

	return SessionClaims{
		UserID:    userID,
		Username:  username,
		ExpiresAt: exp.Time,
	}, nil
}

func (s *Service) dummy() []byte {
	s.dummyOnce.Do(func() {
		hash, err := bcrypt.GenerateFromPassword([]byte("easyshare-placeholder"), s.cfg.BcryptCost)
		if err == nil {
			s.dummyHash = hash
		}
	})
	return s.dummyHash
}

// ValidatePassword enforces the password policy: at least six characters with
// an ASCII uppercase letter, an ASCII lowercase letter and one of !@#$%^&*.
func ValidatePassword(password string) error {
	if utf8.RuneCountInString(password) < minPasswordLength || len(password) > maxPasswordLength {
		return ErrWeakPassword
	}

	var hasUpper, hasLower, hasSymbol bool
	for _, r := range password {
		switch {
		case r >= 'A' && r <= 'Z':
			hasUpper = true
		case r >= 'a' && r <= 'z':
			hasLower = true
		case strings.ContainsRune(passwordSymbols, r):
			hasSymbol = true
		}
	}

	if !hasUpper || !hasLower || !hasSymbol {
		return ErrWeakPassword
	}
	return nil
}

func validateUsername(username string) error {
	if strings.TrimSpace(username) == "" || username != strings.TrimSpace(username) {
		return ErrInvalidUsername
	}
	if utf8.RuneCountInString(username) > maxUsernameLength {
		return ErrInvalidUsername
	}
	for _, r := range username {
		if unicode.IsControl(r) {
			return ErrInvalidUsername
		}
	}
	return nil
}
