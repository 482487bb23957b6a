package service

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/certified-copy-api/internal/models"
	appErrors "github.com/noah-isme/certified-copy-api/pkg/errors"
)

// DemoPassword is shared by every demo account.
const DemoPassword = "demo123"

// AuthConfig defines configuration for authentication flows.
type AuthConfig struct {
	AccessTokenSecret string
	AccessTokenExpiry time.Duration
	Issuer            string
}

// AuthService signs demo users into their portal and validates the issued tokens.
type AuthService struct {
	users     map[string]models.DemoUser
	validator *validator.Validate
	logger    *zap.Logger
	config    AuthConfig
	now       func() time.Time
}

// DemoUsers returns the fixed credential table with bcrypt-hashed passwords.
func DemoUsers() ([]models.DemoUser, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(DemoPassword), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash demo password: %w", err)
	}
	return []models.DemoUser{
		{Username: "citizen", PasswordHash: hash, Role: models.RoleCitizen, Name: "Rahul Sharma"},
		{Username: "staff", PasswordHash: hash, Role: models.RoleStaff, Name: "Priya Verma"},
		{Username: "admin", PasswordHash: hash, Role: models.RoleAdmin, Name: "Amit Kumar"},
	}, nil
}

// NewAuthService constructs an AuthService over a credential table.
func NewAuthService(users []models.DemoUser, validate *validator.Validate, logger *zap.Logger, config AuthConfig) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if config.AccessTokenExpiry <= 0 {
		config.AccessTokenExpiry = 8 * time.Hour
	}
	if config.Issuer == "" {
		config.Issuer = "certified-copy-api"
	}
	table := make(map[string]models.DemoUser, len(users))
	for _, u := range users {
		table[u.Username] = u
	}
	return &AuthService{users: table, validator: validate, logger: logger, config: config, now: time.Now}
}

// Login authenticates a user for the requested portal. A valid user signing into
// another role's portal gets the same error as a wrong password.
func (s *AuthService) Login(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid login payload")
	}

	user, ok := s.users[req.Username]
	if !ok || user.Role != req.Role {
		s.logger.Info("login rejected", zap.String("username", req.Username), zap.String("portal", string(req.Role)))
		return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "invalid credentials for this portal")
	}
	if err := bcrypt.CompareHashAndPassword(user.PasswordHash, []byte(req.Password)); err != nil {
		s.logger.Info("login rejected", zap.String("username", req.Username), zap.String("portal", string(req.Role)))
		return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "invalid credentials for this portal")
	}

	token, err := s.generateAccessToken(user)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create access token")
	}

	s.logger.Info("login succeeded", zap.String("username", user.Username), zap.String("role", string(user.Role)))
	return &models.LoginResponse{
		AccessToken: token,
		ExpiresIn:   int64(s.config.AccessTokenExpiry.Seconds()),
		User:        models.UserInfo{Username: user.Username, Role: user.Role, Name: user.Name},
	}, nil
}

// ValidateToken parses and validates an access token returning the claims.
func (s *AuthService) ValidateToken(tokenString string) (*models.JWTClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &models.JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.config.AccessTokenSecret), nil
	}, jwt.WithIssuer(s.config.Issuer), jwt.WithTimeFunc(s.now))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid token")
	}

	claims, ok := token.Claims.(*models.JWTClaims)
	if !ok || !token.Valid || !claims.Role.Valid() {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token claims")
	}
	return claims, nil
}

func (s *AuthService) generateAccessToken(user models.DemoUser) (string, error) {
	issuedAt := s.now().UTC()
	claims := &models.JWTClaims{
		Username: user.Username,
		Role:     user.Role,
		Name:     user.Name,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.config.Issuer,
			Subject:   user.Username,
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(s.config.AccessTokenExpiry)),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			NotBefore: jwt.NewNumericDate(issuedAt),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.config.AccessTokenSecret))
}
