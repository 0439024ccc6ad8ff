package services_test

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"blog/internal/models"
	"blog/internal/repositories"
	"blog/internal/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

var (
	errUserNotFound  = fmt.Errorf("user with username nobody: %w", repositories.ErrNotFound)
	errTokenNotFound = fmt.Errorf("token: %w", repositories.ErrNotFound)
)

func newAuthService(users *MockUserRepository, tokens *MockTokenRepository, events services.EventPublisher, ttl time.Duration) *services.AuthService {
	return services.NewAuthService(users, tokens, events, services.AuthConfig{
		TokenTTL:   ttl,
		BcryptCost: bcrypt.MinCost,
	})
}

func hashed(t *testing.T, password string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(hash)
}

func TestAuthService_Register(t *testing.T) {
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		users, tokens, events := new(MockUserRepository), new(MockTokenRepository), new(MockPublisher)
		authService := newAuthService(users, tokens, events, 0)

		users.On("EmailTaken", mock.Anything, "test@example.com", uint(0)).Return(false, nil).Once()
		users.On("Create", mock.Anything, mock.MatchedBy(func(u *models.User) bool {
			return u.Username == "testuser" &&
				u.Email != nil && *u.Email == "test@example.com" &&
				bcrypt.CompareHashAndPassword([]byte(u.Password), []byte("testpassword123")) == nil
		})).Run(func(args mock.Arguments) {
			args.Get(1).(*models.User).ID = 1
		}).Return(nil).Once()
		events.On("Publish", services.EventUserRegistered, services.UserEvent{UserID: 1, Username: "testuser"}).Return(nil).Once()

		user, err := authService.Register(ctx, services.AccountInput{
			Username: "testuser",
			Email:    "test@example.com",
			Password: "testpassword123",
		})
		require.NoError(t, err)
		assert.Equal(t, uint(1), user.ID)
		assert.NotEqual(t, "testpassword123", user.Password, "password is stored hashed")
		users.AssertExpectations(t)
		events.AssertExpectations(t)
	})

	t.Run("email already taken", func(t *testing.T) {
		users, tokens := new(MockUserRepository), new(MockTokenRepository)
		authService := newAuthService(users, tokens, nil, 0)

		users.On("EmailTaken", mock.Anything, "test@example.com", uint(0)).Return(true, nil).Once()

		_, err := authService.Register(ctx, services.AccountInput{
			Username: "another",
			Email:    "test@example.com",
			Password: "testpassword123",
		})
		var verr *services.ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, []string{"Email already taken."}, verr.Fields["email"])
		users.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("weak password", func(t *testing.T) {
		users, tokens := new(MockUserRepository), new(MockTokenRepository)
		authService := newAuthService(users, tokens, nil, 0)

		_, err := authService.Register(ctx, services.AccountInput{Username: "testuser", Password: "1234"})
		var verr *services.ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Contains(t, verr.Fields["password"], "This password is too short. It must contain at least 8 characters.")
		assert.Contains(t, verr.Fields["password"], "This password is entirely numeric.")
		users.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("password over the bcrypt byte limit", func(t *testing.T) {
		users, tokens := new(MockUserRepository), new(MockTokenRepository)
		authService := newAuthService(users, tokens, nil, 0)

		password := strings.Repeat("пароль", 5) + strings.Repeat("Ж", 10) // 40 runes, 80 bytes
		_, err := authService.Register(ctx, services.AccountInput{Username: "ivan", Password: password})
		var verr *services.ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, []string{"Ensure this field has no more than 72 bytes."}, verr.Fields["password"])
		users.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("missing and malformed fields", func(t *testing.T) {
		users, tokens := new(MockUserRepository), new(MockTokenRepository)
		authService := newAuthService(users, tokens, nil, 0)

		_, err := authService.Register(ctx, services.AccountInput{Username: "bad name!", Email: "not-an-email"})
		var verr *services.ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, []string{"This field is required."}, verr.Fields["password"])
		assert.Equal(t, []string{"Enter a valid email address."}, verr.Fields["email"])
		assert.Len(t, verr.Fields["username"], 1)
		users.AssertExpectations(t)
	})

	t.Run("duplicate username surfaces as conflict", func(t *testing.T) {
		users, tokens := new(MockUserRepository), new(MockTokenRepository)
		authService := newAuthService(users, tokens, nil, 0)

		users.On("Create", mock.Anything, mock.AnythingOfType("*models.User")).
			Return(fmt.Errorf("failed to create user testuser: %w", repositories.ErrDuplicate)).Once()

		_, err := authService.Register(ctx, services.AccountInput{Username: "testuser", Password: "testpassword123"})
		assert.ErrorIs(t, err, services.ErrConflict)
		users.AssertExpectations(t)
	})
}

func TestAuthService_Login(t *testing.T) {
	ctx := context.Background()
	user := &models.User{ID: 7, Username: "testuser", Password: hashed(t, "testpassword123"), IsActive: true}

	t.Run("issues a new token", func(t *testing.T) {
		users, tokens := new(MockUserRepository), new(MockTokenRepository)
		authService := newAuthService(users, tokens, nil, 0)

		users.On("GetByUsername", mock.Anything, "testuser").Return(user, nil).Once()
		tokens.On("GetByUserID", mock.Anything, uint(7)).Return(nil, errTokenNotFound).Once()
		tokens.On("Create", mock.Anything, mock.MatchedBy(func(tok *models.Token) bool {
			return tok.UserID == 7 && len(tok.Key) == 40
		})).Return(nil).Once()
		users.On("TouchLastLogin", mock.Anything, uint(7)).Return(nil).Once()

		token, err := authService.Login(ctx, "testuser", "testpassword123")
		require.NoError(t, err)
		assert.Len(t, token.Key, 40)
		assert.Equal(t, "testuser", token.User.Username)
		users.AssertExpectations(t)
		tokens.AssertExpectations(t)
	})

	t.Run("reuses the existing token", func(t *testing.T) {
		users, tokens := new(MockUserRepository), new(MockTokenRepository)
		authService := newAuthService(users, tokens, nil, 0)
		existing := &models.Token{Key: "existing-key", UserID: 7, Created: time.Now().Add(-24 * time.Hour)}

		users.On("GetByUsername", mock.Anything, "testuser").Return(user, nil).Once()
		tokens.On("GetByUserID", mock.Anything, uint(7)).Return(existing, nil).Once()
		users.On("TouchLastLogin", mock.Anything, uint(7)).Return(nil).Once()

		token, err := authService.Login(ctx, "testuser", "testpassword123")
		require.NoError(t, err)
		assert.Equal(t, "existing-key", token.Key)
		tokens.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("reuses the token of a concurrent login", func(t *testing.T) {
		users, tokens := new(MockUserRepository), new(MockTokenRepository)
		authService := newAuthService(users, tokens, nil, 0)
		winner := &models.Token{Key: "winner-key", UserID: 7}

		users.On("GetByUsername", mock.Anything, "testuser").Return(user, nil).Once()
		tokens.On("GetByUserID", mock.Anything, uint(7)).Return(nil, errTokenNotFound).Once()
		tokens.On("Create", mock.Anything, mock.AnythingOfType("*models.Token")).
			Return(fmt.Errorf("failed to create token: %w", repositories.ErrDuplicate)).Once()
		tokens.On("GetByUserID", mock.Anything, uint(7)).Return(winner, nil).Once()
		users.On("TouchLastLogin", mock.Anything, uint(7)).Return(nil).Once()

		token, err := authService.Login(ctx, "testuser", "testpassword123")
		require.NoError(t, err)
		assert.Equal(t, "winner-key", token.Key)
		tokens.AssertExpectations(t)
	})

	t.Run("rotates an expired token", func(t *testing.T) {
		users, tokens := new(MockUserRepository), new(MockTokenRepository)
		authService := newAuthService(users, tokens, nil, time.Hour)
		stale := &models.Token{Key: "stale-key", UserID: 7, Created: time.Now().Add(-2 * time.Hour)}

		users.On("GetByUsername", mock.Anything, "testuser").Return(user, nil).Once()
		tokens.On("GetByUserID", mock.Anything, uint(7)).Return(stale, nil).Once()
		tokens.On("Delete", mock.Anything, "stale-key").Return(nil).Once()
		tokens.On("Create", mock.Anything, mock.AnythingOfType("*models.Token")).Return(nil).Once()
		users.On("TouchLastLogin", mock.Anything, uint(7)).Return(nil).Once()

		token, err := authService.Login(ctx, "testuser", "testpassword123")
		require.NoError(t, err)
		assert.NotEqual(t, "stale-key", token.Key)
		tokens.AssertExpectations(t)
	})

	t.Run("wrong password", func(t *testing.T) {
		users, tokens := new(MockUserRepository), new(MockTokenRepository)
		authService := newAuthService(users, tokens, nil, 0)

		users.On("GetByUsername", mock.Anything, "testuser").Return(user, nil).Once()

		token, err := authService.Login(ctx, "testuser", "wrongpassword")
		assert.ErrorIs(t, err, services.ErrInvalidCredentials)
		assert.Nil(t, token)
		tokens.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("unknown user is indistinguishable", func(t *testing.T) {
		users, tokens := new(MockUserRepository), new(MockTokenRepository)
		authService := newAuthService(users, tokens, nil, 0)

		users.On("GetByUsername", mock.Anything, "nobody").Return(nil, errUserNotFound).Once()

		_, err := authService.Login(ctx, "nobody", "testpassword123")
		assert.ErrorIs(t, err, services.ErrInvalidCredentials)
		users.AssertExpectations(t)
	})
}

func TestAuthService_Authenticate(t *testing.T) {
	ctx := context.Background()
	active := models.User{ID: 7, Username: "testuser", IsActive: true}

	t.Run("valid token", func(t *testing.T) {
		users, tokens := new(MockUserRepository), new(MockTokenRepository)
		authService := newAuthService(users, tokens, nil, 0)
		tokens.On("GetByKey", mock.Anything, "good").Return(&models.Token{Key: "good", UserID: 7, User: active}, nil).Once()

		user, token, err := authService.Authenticate(ctx, "good")
		require.NoError(t, err)
		assert.Equal(t, uint(7), user.ID)
		assert.Equal(t, "good", token.Key)
	})

	t.Run("empty key", func(t *testing.T) {
		authService := newAuthService(new(MockUserRepository), new(MockTokenRepository), nil, 0)
		_, _, err := authService.Authenticate(ctx, "")
		assert.ErrorIs(t, err, services.ErrNoCredentials)
		assert.ErrorIs(t, err, services.ErrUnauthorized)
	})

	t.Run("unknown key", func(t *testing.T) {
		users, tokens := new(MockUserRepository), new(MockTokenRepository)
		authService := newAuthService(users, tokens, nil, 0)
		tokens.On("GetByKey", mock.Anything, "bogus").Return(nil, errTokenNotFound).Once()

		_, _, err := authService.Authenticate(ctx, "bogus")
		assert.ErrorIs(t, err, services.ErrInvalidToken)
		assert.ErrorIs(t, err, services.ErrUnauthorized)
	})

	t.Run("inactive user", func(t *testing.T) {
		users, tokens := new(MockUserRepository), new(MockTokenRepository)
		authService := newAuthService(users, tokens, nil, 0)
		inactive := active
		inactive.IsActive = false
		tokens.On("GetByKey", mock.Anything, "good").Return(&models.Token{Key: "good", UserID: 7, User: inactive}, nil).Once()

		_, _, err := authService.Authenticate(ctx, "good")
		assert.ErrorIs(t, err, services.ErrUserInactive)
	})

	t.Run("expired token is deleted", func(t *testing.T) {
		users, tokens := new(MockUserRepository), new(MockTokenRepository)
		authService := newAuthService(users, tokens, nil, time.Hour)
		stale := &models.Token{Key: "stale", UserID: 7, User: active, Created: time.Now().Add(-2 * time.Hour)}
		tokens.On("GetByKey", mock.Anything, "stale").Return(stale, nil).Once()
		tokens.On("Delete", mock.Anything, "stale").Return(nil).Once()

		_, _, err := authService.Authenticate(ctx, "stale")
		assert.ErrorIs(t, err, services.ErrTokenExpired)
		tokens.AssertExpectations(t)
	})
}

func TestAuthService_Logout(t *testing.T) {
	ctx := context.Background()

	users, tokens := new(MockUserRepository), new(MockTokenRepository)
	authService := newAuthService(users, tokens, nil, 0)
	token := &models.Token{Key: "good", UserID: 7}

	tokens.On("Delete", mock.Anything, "good").Return(nil).Once()
	assert.NoError(t, authService.Logout(ctx, token))

	tokens.On("Delete", mock.Anything, "good").Return(errTokenNotFound).Once()
	assert.ErrorIs(t, authService.Logout(ctx, token), services.ErrInvalidToken)

	assert.ErrorIs(t, authService.Logout(ctx, nil), services.ErrNoCredentials)
	tokens.AssertExpectations(t)
}

func TestAuthService_EnsureSuperuser(t *testing.T) {
	ctx := context.Background()

	t.Run("creates the superuser", func(t *testing.T) {
		users, tokens := new(MockUserRepository), new(MockTokenRepository)
		authService := newAuthService(users, tokens, nil, 0)

		users.On("GetByUsername", mock.Anything, "admin").Return(nil, errUserNotFound).Once()
		users.On("EmailTaken", mock.Anything, "admin@example.com", uint(0)).Return(false, nil).Once()
		users.On("Create", mock.Anything, mock.MatchedBy(func(u *models.User) bool {
			return u.Username == "admin" && u.IsSuperuser && u.IsStaff
		})).Return(nil).Once()

		user, err := authService.EnsureSuperuser(ctx, "admin", "admin@example.com", "adminpassword123")
		require.NoError(t, err)
		assert.True(t, user.IsSuperuser)
		users.AssertExpectations(t)
	})

	t.Run("existing superuser is kept", func(t *testing.T) {
		users, tokens := new(MockUserRepository), new(MockTokenRepository)
		authService := newAuthService(users, tokens, nil, 0)
		admin := &models.User{ID: 1, Username: "admin", IsSuperuser: true}

		users.On("GetByUsername", mock.Anything, "admin").Return(admin, nil).Once()

		user, err := authService.EnsureSuperuser(ctx, "admin", "", "adminpassword123")
		require.NoError(t, err)
		assert.Equal(t, admin, user)
		users.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("existing regular user is refused", func(t *testing.T) {
		users, tokens := new(MockUserRepository), new(MockTokenRepository)
		authService := newAuthService(users, tokens, nil, 0)

		users.On("GetByUsername", mock.Anything, "admin").Return(&models.User{ID: 2, Username: "admin"}, nil).Once()

		_, err := authService.EnsureSuperuser(ctx, "admin", "", "adminpassword123")
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "not a superuser")
	})
}
