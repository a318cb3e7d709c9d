package service

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/tutor-cockpit-api/internal/models"
	appErrors "github.com/noah-isme/tutor-cockpit-api/pkg/errors"
)

// ownerSubject is the JWT subject of the single dashboard owner.
const ownerSubject = "owner"

type authSettingsRepository interface {
	Get(ctx context.Context) (*models.AuthSettings, error)
	Initialize(ctx context.Context, hash string, ts time.Time) (bool, error)
	SetPassphrase(ctx context.Context, hash string, ts time.Time) error
	BumpTokenVersion(ctx context.Context, ts time.Time) error
}

// AuthConfig defines configuration for authentication flows.
type AuthConfig struct {
	AccessTokenSecret string
	AccessTokenExpiry time.Duration
	Issuer            string
	BcryptCost        int
}

// AuthService guards the dashboard behind a single passphrase.
type AuthService struct {
	repo      authSettingsRepository
	validator *validator.Validate
	logger    *zap.Logger
	config    AuthConfig
	now       func() time.Time
}

// NewAuthService constructs an AuthService instance.
func NewAuthService(repo authSettingsRepository, validate *validator.Validate, logger *zap.Logger, config AuthConfig) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if config.AccessTokenExpiry <= 0 {
		config.AccessTokenExpiry = 24 * time.Hour
	}
	if config.BcryptCost == 0 {
		config.BcryptCost = bcrypt.DefaultCost
	}
	return &AuthService{repo: repo, validator: validate, logger: logger, config: config, now: time.Now}
}

// Status reports whether first-run setup already happened.
func (s *AuthService) Status(ctx context.Context) (*models.AuthStatus, error) {
	settings, err := s.repo.Get(ctx)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load auth settings")
	}
	return &models.AuthStatus{Initialized: settings.Initialized()}, nil
}

// Login checks the passphrase and issues an access token. The very first
// login stores the supplied passphrase.
func (s *AuthService) Login(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "invalid login payload")
	}

	settings, err := s.repo.Get(ctx)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load auth settings")
	}

	firstLogin := false
	if !settings.Initialized() {
		hash, err := s.hash(req.Passphrase)
		if err != nil {
			return nil, err
		}
		stored, err := s.repo.Initialize(ctx, hash, s.now().UTC())
		if err != nil {
			return nil, appErrors.Internal(err, "failed to store passphrase")
		}
		if !stored {
			return nil, appErrors.Clone(appErrors.ErrConflict, "passphrase was set concurrently, retry login")
		}
		firstLogin = true
		s.logger.Info("passphrase initialised", zap.String("ip", req.IP))
	} else if err := bcrypt.CompareHashAndPassword([]byte(*settings.PassphraseHash), []byte(req.Passphrase)); err != nil {
		s.logger.Warn("login rejected", zap.String("ip", req.IP), zap.String("user_agent", req.UserAgent))
		return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "invalid passphrase")
	}

	token, issuedAt, err := s.generateAccessToken(settings.TokenVersion)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to create access token")
	}

	return &models.LoginResponse{
		AccessToken: token,
		ExpiresIn:   int64(s.config.AccessTokenExpiry.Seconds()),
		IssuedAt:    issuedAt,
		FirstLogin:  firstLogin,
	}, nil
}

// Logout invalidates every token issued so far.
func (s *AuthService) Logout(ctx context.Context) error {
	if err := s.repo.BumpTokenVersion(ctx, s.now().UTC()); err != nil {
		return appErrors.Internal(err, "failed to revoke tokens")
	}
	return nil
}

// ChangePassphrase rotates the passphrase after verifying the old one.
func (s *AuthService) ChangePassphrase(ctx context.Context, req models.ChangePassphraseRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Validation(err, "invalid change passphrase payload")
	}

	settings, err := s.repo.Get(ctx)
	if err != nil {
		return appErrors.Internal(err, "failed to load auth settings")
	}
	if !settings.Initialized() {
		return appErrors.Clone(appErrors.ErrNotReady, "passphrase has not been set yet")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(*settings.PassphraseHash), []byte(req.OldPassphrase)); err != nil {
		return appErrors.Clone(appErrors.ErrForbidden, "old passphrase does not match")
	}

	return s.SetPassphrase(ctx, req.NewPassphrase)
}

// SetPassphrase overwrites the stored passphrase without checking the old one.
func (s *AuthService) SetPassphrase(ctx context.Context, passphrase string) error {
	if err := s.validator.Var(passphrase, "required,min=4"); err != nil {
		return appErrors.Validation(err, "passphrase must be at least 4 characters")
	}
	hash, err := s.hash(passphrase)
	if err != nil {
		return err
	}
	if err := s.repo.SetPassphrase(ctx, hash, s.now().UTC()); err != nil {
		return appErrors.Internal(err, "failed to update passphrase")
	}
	s.logger.Info("passphrase updated")
	return nil
}

// ValidateToken parses an access token and checks it has not been revoked.
func (s *AuthService) ValidateToken(ctx context.Context, tokenString string) (*models.JWTClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &models.JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.config.AccessTokenSecret), nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid token")
	}

	claims, ok := token.Claims.(*models.JWTClaims)
	if !ok || !token.Valid {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token claims")
	}

	settings, err := s.repo.Get(ctx)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load auth settings")
	}
	if claims.Version != settings.TokenVersion {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "token has been revoked")
	}
	return claims, nil
}

func (s *AuthService) hash(passphrase string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(passphrase), s.config.BcryptCost)
	if err != nil {
		return "", appErrors.Internal(err, "failed to hash passphrase")
	}
	return string(hash), nil
}

func (s *AuthService) generateAccessToken(version int) (string, time.Time, error) {
	issuedAt := s.now().UTC()
	claims := &models.JWTClaims{
		Version: version,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.config.Issuer,
			Subject:   ownerSubject,
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(s.config.AccessTokenExpiry)),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			NotBefore: jwt.NewNumericDate(issuedAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.config.AccessTokenSecret))
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, issuedAt, nil
}
