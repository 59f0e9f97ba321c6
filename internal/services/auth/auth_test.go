package services_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	customjwt "github.com/magabrotheeeer/affirmation-service/internal/lib/jwt"
	"github.com/magabrotheeeer/affirmation-service/internal/lib/password"
	"github.com/magabrotheeeer/affirmation-service/internal/models"
	services "github.com/magabrotheeeer/affirmation-service/internal/services/auth"
	"github.com/magabrotheeeer/affirmation-service/internal/storage/repository"
)

type UserRepoMock struct {
	mock.Mock
}

func (m *UserRepoMock) RegisterUser(ctx context.Context, user models.User) (string, error) {
	args := m.Called(ctx, user)
	return args.String(0), args.Error(1)
}

func (m *UserRepoMock) GetUserByIdentifier(ctx context.Context, identifier string) (*models.User, error) {
	args := m.Called(ctx, identifier)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

type JwtMakerMock struct {
	mock.Mock
}

func (m *JwtMakerMock) GenerateToken(userUID, username, role string) (string, error) {
	args := m.Called(userUID, username, role)
	return args.String(0), args.Error(1)
}

func (m *JwtMakerMock) ParseToken(token string) (*customjwt.CustomClaims, error) {
	args := m.Called(token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*customjwt.CustomClaims), args.Error(1)
}

func TestAuthService_Register(t *testing.T) {
	tests := []struct {
		name        string
		password    string
		setupMocks  func(r *UserRepoMock)
		wantUserUID string
		wantErr     error
		errMsg      string
	}{
		{
			name:     "successful registration",
			password: "password123",
			setupMocks: func(r *UserRepoMock) {
				r.On("RegisterUser", mock.Anything, mock.MatchedBy(func(user models.User) bool {
					return user.Email == "test@example.com" &&
						user.Username == "testuser" &&
						user.PasswordHash != "" &&
						user.PasswordHash != "password123" &&
						user.Role == models.RoleUser
				})).Return("some-uuid-string", nil).Once()
			},
			wantUserUID: "some-uuid-string",
		},
		{
			name:     "duplicate user",
			password: "password123",
			setupMocks: func(r *UserRepoMock) {
				r.On("RegisterUser", mock.Anything, mock.Anything).
					Return("", repository.ErrUserExists).Once()
			},
			wantErr: services.ErrUserExists,
		},
		{
			name:       "password longer than bcrypt accepts",
			password:   strings.Repeat("p", 73),
			setupMocks: func(*UserRepoMock) {},
			wantErr:    services.ErrPasswordTooLong,
		},
		{
			name:     "repository error",
			password: "password123",
			setupMocks: func(r *UserRepoMock) {
				r.On("RegisterUser", mock.Anything, mock.Anything).Return("", errors.New("db error")).Once()
			},
			errMsg: "db error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(UserRepoMock)
			svc := services.NewAuthService(repo, new(JwtMakerMock))
			tt.setupMocks(repo)

			got, err := svc.Register(context.Background(), "test@example.com", "testuser", tt.password)
			switch {
			case tt.wantErr != nil:
				assert.ErrorIs(t, err, tt.wantErr)
			case tt.errMsg != "":
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
			default:
				require.NoError(t, err)
				assert.Equal(t, tt.wantUserUID, got)
			}
			repo.AssertExpectations(t)
		})
	}
}

func TestAuthService_Login(t *testing.T) {
	rawPassword := "correctpassword"
	hashedPassword, err := password.GetHash(rawPassword)
	require.NoError(t, err)

	testUser := &models.User{
		UUID:         "uid-1",
		Email:        "test@example.com",
		Username:     "testuser",
		PasswordHash: hashedPassword,
		Role:         models.RoleAdmin,
	}

	tests := []struct {
		name       string
		identifier string
		password   string
		setupMocks func(r *UserRepoMock, j *JwtMakerMock)
		wantToken  string
		wantRole   string
		wantErr    error
		errMsg     string
	}{
		{
			name:       "login by email",
			identifier: "test@example.com",
			password:   rawPassword,
			setupMocks: func(r *UserRepoMock, j *JwtMakerMock) {
				r.On("GetUserByIdentifier", mock.Anything, "test@example.com").Return(testUser, nil).Once()
				j.On("GenerateToken", "uid-1", "testuser", models.RoleAdmin).Return("jwt-token-123", nil).Once()
			},
			wantToken: "jwt-token-123",
			wantRole:  models.RoleAdmin,
		},
		{
			name:       "unknown user",
			identifier: "nonexistent",
			password:   "password",
			setupMocks: func(r *UserRepoMock, _ *JwtMakerMock) {
				r.On("GetUserByIdentifier", mock.Anything, "nonexistent").Return(nil, repository.ErrNotFound).Once()
			},
			wantErr: services.ErrInvalidCredentials,
		},
		{
			name:       "wrong password",
			identifier: "testuser",
			password:   "wrongpassword",
			setupMocks: func(r *UserRepoMock, _ *JwtMakerMock) {
				r.On("GetUserByIdentifier", mock.Anything, "testuser").Return(testUser, nil).Once()
			},
			wantErr: services.ErrInvalidCredentials,
		},
		{
			name:       "token generation error",
			identifier: "testuser",
			password:   rawPassword,
			setupMocks: func(r *UserRepoMock, j *JwtMakerMock) {
				r.On("GetUserByIdentifier", mock.Anything, "testuser").Return(testUser, nil).Once()
				j.On("GenerateToken", "uid-1", "testuser", models.RoleAdmin).Return("", errors.New("token error")).Once()
			},
			errMsg: "token error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(UserRepoMock)
			jwtMock := new(JwtMakerMock)
			svc := services.NewAuthService(repo, jwtMock)
			tt.setupMocks(repo, jwtMock)

			token, role, err := svc.Login(context.Background(), tt.identifier, tt.password)
			switch {
			case tt.wantErr != nil:
				assert.ErrorIs(t, err, tt.wantErr)
			case tt.errMsg != "":
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
			default:
				require.NoError(t, err)
				assert.Equal(t, tt.wantToken, token)
				assert.Equal(t, tt.wantRole, role)
			}
			repo.AssertExpectations(t)
			jwtMock.AssertExpectations(t)
		})
	}
}

func TestAuthService_ValidateToken(t *testing.T) {
	validClaims := &customjwt.CustomClaims{
		Username: "testuser",
		Role:     models.RoleUser,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "uid-1",
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}

	tests := []struct {
		name     string
		token    string
		claims   *customjwt.CustomClaims
		parseErr error
		wantUser *models.User
	}{
		{
			name:     "valid token",
			token:    "valid-token",
			claims:   validClaims,
			wantUser: &models.User{UUID: "uid-1", Username: "testuser", Role: models.RoleUser},
		},
		{
			name:     "expired token",
			token:    "expired-token",
			parseErr: errors.New("token expired"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			jwtMock := new(JwtMakerMock)
			if tt.claims != nil {
				jwtMock.On("ParseToken", tt.token).Return(tt.claims, nil).Once()
			} else {
				jwtMock.On("ParseToken", tt.token).Return(nil, tt.parseErr).Once()
			}
			svc := services.NewAuthService(new(UserRepoMock), jwtMock)

			user, err := svc.ValidateToken(context.Background(), tt.token)
			if tt.parseErr != nil {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.wantUser, user)
			jwtMock.AssertExpectations(t)
		})
	}
}
