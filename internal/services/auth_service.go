package services

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"blog/internal/models"
	"blog/internal/passwords"
	"blog/internal/repositories"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

const (
	// tokenBytes is the entropy of a token key; keys are hex encoded to 40 chars.
	tokenBytes = 20

	// maxPasswordBytes is the longest input bcrypt accepts.
	maxPasswordBytes = 72
)

// AccountInput carries the client-editable fields of a user account.
type AccountInput struct {
	Username  string `json:"username" form:"username" validate:"required,max=150,username"`
	Password  string `json:"password" form:"password" validate:"required,max=72"`
	Email     string `json:"email" form:"email" validate:"omitempty,email,max=254"`
	FirstName string `json:"first_name" form:"first_name" validate:"omitempty,max=150"`
	LastName  string `json:"last_name" form:"last_name" validate:"omitempty,max=150"`
}

// AuthConfig tunes token lifetime and hashing cost.
type AuthConfig struct {
	TokenTTL   time.Duration // Zero disables expiry
	BcryptCost int           // Zero means bcrypt.DefaultCost
}

// AuthService handles registration, login, logout and token authentication.
type AuthService struct {
	users      repositories.UserRepository
	tokens     repositories.TokenRepository
	events     EventPublisher
	policy     *passwords.Validator
	tokenTTL   time.Duration
	bcryptCost int
	now        func() time.Time
}

// NewAuthService creates a new AuthService. events may be nil.
func NewAuthService(users repositories.UserRepository, tokens repositories.TokenRepository, events EventPublisher, cfg AuthConfig) *AuthService {
	cost := cfg.BcryptCost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	return &AuthService{
		users:      users,
		tokens:     tokens,
		events:     events,
		policy:     passwords.NewValidator(),
		tokenTTL:   cfg.TokenTTL,
		bcryptCost: cost,
		now:        time.Now,
	}
}

// Register validates in, hashes the password and stores a new user.
func (s *AuthService) Register(ctx context.Context, in AccountInput) (*models.User, error) {
	if err := s.validateAccount(ctx, in, 0); err != nil {
		return nil, err
	}

	hash, err := s.hashPassword(in.Password)
	if err != nil {
		return nil, err
	}
	user := &models.User{
		Username:  in.Username,
		Email:     optional(in.Email),
		Password:  hash,
		FirstName: in.FirstName,
		LastName:  in.LastName,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, storeError(err, "failed to register user")
	}

	logrus.WithFields(logrus.Fields{"user_id": user.ID, "username": user.Username}).Info("user registered")
	publish(s.events, EventUserRegistered, UserEvent{UserID: user.ID, Username: user.Username})
	return user, nil
}

// Login checks the credentials and returns the user's token, issuing one
// if the user has none. Unknown users and wrong passwords are reported
// identically.
func (s *AuthService) Login(ctx context.Context, username, password string) (*models.Token, error) {
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	token, err := s.issueToken(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	if err := s.users.TouchLastLogin(ctx, user.ID); err != nil {
		logrus.WithError(err).WithField("user_id", user.ID).Warn("failed to record last login")
	}
	token.User = *user
	return token, nil
}

// Logout deletes the token the caller authenticated with.
func (s *AuthService) Logout(ctx context.Context, token *models.Token) error {
	if token == nil {
		return ErrNoCredentials
	}
	if err := s.tokens.Delete(ctx, token.Key); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return ErrInvalidToken
		}
		return fmt.Errorf("failed to delete token: %w", err)
	}
	logrus.WithField("user_id", token.UserID).Info("user logged out")
	return nil
}

// Authenticate resolves a token key to its owner.
func (s *AuthService) Authenticate(ctx context.Context, key string) (*models.User, *models.Token, error) {
	if key == "" {
		return nil, nil, ErrNoCredentials
	}
	token, err := s.tokens.GetByKey(ctx, key)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, nil, ErrInvalidToken
		}
		return nil, nil, fmt.Errorf("failed to look up token: %w", err)
	}
	if token.Expired(s.tokenTTL, s.now()) {
		if err := s.tokens.Delete(ctx, token.Key); err != nil && !errors.Is(err, repositories.ErrNotFound) {
			logrus.WithError(err).WithField("user_id", token.UserID).Warn("failed to delete expired token")
		}
		return nil, nil, ErrTokenExpired
	}
	if !token.User.IsActive {
		return nil, nil, ErrUserInactive
	}
	user := token.User
	return &user, token, nil
}

// EnsureSuperuser creates a superuser named username unless a user with
// that name already exists.
func (s *AuthService) EnsureSuperuser(ctx context.Context, username, email, password string) (*models.User, error) {
	existing, err := s.users.GetByUsername(ctx, username)
	if err == nil {
		if !existing.IsSuperuser {
			return nil, fmt.Errorf("user %s exists but is not a superuser", username)
		}
		return existing, nil
	}
	if !errors.Is(err, repositories.ErrNotFound) {
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	in := AccountInput{Username: username, Password: password, Email: email}
	if err := s.validateAccount(ctx, in, 0); err != nil {
		return nil, err
	}
	hash, err := s.hashPassword(password)
	if err != nil {
		return nil, err
	}
	user := &models.User{
		Username:    username,
		Email:       optional(email),
		Password:    hash,
		IsSuperuser: true,
		IsStaff:     true,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, storeError(err, "failed to create superuser")
	}
	logrus.WithField("username", username).Info("superuser created")
	return user, nil
}

// issueToken returns the user's live token, minting one when absent or
// expired. A concurrent login that wins the insert race is reused.
func (s *AuthService) issueToken(ctx context.Context, userID uint) (*models.Token, error) {
	existing, err := s.tokens.GetByUserID(ctx, userID)
	switch {
	case err == nil && !existing.Expired(s.tokenTTL, s.now()):
		return existing, nil
	case err == nil:
		if err := s.tokens.Delete(ctx, existing.Key); err != nil && !errors.Is(err, repositories.ErrNotFound) {
			return nil, fmt.Errorf("failed to rotate expired token: %w", err)
		}
	case !errors.Is(err, repositories.ErrNotFound):
		return nil, fmt.Errorf("failed to look up token: %w", err)
	}

	key, err := generateKey()
	if err != nil {
		return nil, err
	}
	token := &models.Token{Key: key, UserID: userID}
	if err := s.tokens.Create(ctx, token); err != nil {
		if errors.Is(err, repositories.ErrDuplicate) {
			winner, lookupErr := s.tokens.GetByUserID(ctx, userID)
			if lookupErr != nil {
				return nil, fmt.Errorf("failed to reuse concurrent token: %w", lookupErr)
			}
			return winner, nil
		}
		return nil, fmt.Errorf("failed to create token: %w", err)
	}
	return token, nil
}

// validateAccount checks field rules, the password policy and email
// uniqueness. excludeID is the user being edited, or zero.
func (s *AuthService) validateAccount(ctx context.Context, in AccountInput, excludeID uint) error {
	verr := &ValidationError{}
	if err := validateStruct(in, verr); err != nil {
		return err
	}

	if !verr.Has("password") && len(in.Password) > maxPasswordBytes {
		verr.Add("password", fmt.Sprintf("Ensure this field has no more than %d bytes.", maxPasswordBytes))
	}
	if !verr.Has("password") {
		attrs := []passwords.Attribute{
			{Name: "username", Value: in.Username},
			{Name: "first name", Value: in.FirstName},
			{Name: "last name", Value: in.LastName},
			{Name: "email address", Value: in.Email},
		}
		for _, msg := range s.policy.Validate(in.Password, attrs...) {
			verr.Add("password", msg)
		}
	}

	if in.Email != "" && !verr.Has("email") {
		taken, err := s.users.EmailTaken(ctx, in.Email, excludeID)
		if err != nil {
			return fmt.Errorf("failed to check email: %w", err)
		}
		if taken {
			verr.Add("email", "Email already taken.")
		}
	}
	return verr.orNil()
}

func (s *AuthService) hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

func generateKey() (string, error) {
	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// storeError maps repository write failures onto the service taxonomy.
func storeError(err error, msg string) error {
	switch {
	case errors.Is(err, repositories.ErrDuplicate):
		return fmt.Errorf("%s: %w", msg, ErrConflict)
	case errors.Is(err, repositories.ErrNotFound):
		return ErrNotFound
	default:
		return fmt.Errorf("%s: %w", msg, err)
	}
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
