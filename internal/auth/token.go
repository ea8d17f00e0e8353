package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	apperrors "github.com/spec-kit/storefront-bff/pkg/util"
)

// DefaultTokenTTL applies when TokenConfig.TTL is not positive.
const DefaultTokenTTL = 24 * time.Hour

// ErrTokenInvalid is returned for every token that fails validation. The
// underlying cause is only logged.
var ErrTokenInvalid = errors.New("token invalid")

// ConfigurationError reports unusable signing configuration.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("auth configuration: %s %s", e.Field, e.Reason)
}

// TokenConfig is the immutable signing configuration.
type TokenConfig struct {
	Secret   string
	Issuer   string
	Audience string
	TTL      time.Duration
}

// Option customizes a TokenService.
type Option func(*TokenService)

// WithClock replaces the wall clock used for issuing and expiry checks.
func WithClock(now func() time.Time) Option {
	return func(s *TokenService) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets the logger used for validation diagnostics.
func WithLogger(logger *zap.Logger) Option {
	return func(s *TokenService) {
		if logger != nil {
			s.logger = logger.Named("tokens")
		}
	}
}

// TokenService issues and validates HS256 bearer tokens.
type TokenService struct {
	secret   []byte
	issuer   string
	audience string
	ttl      time.Duration
	now      func() time.Time
	logger   *zap.Logger
	parser   *jwt.Parser
}

type tokenClaims struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// NewTokenService validates cfg and builds the service.
func NewTokenService(cfg TokenConfig, opts ...Option) (*TokenService, error) {
	if cfg.Secret == "" {
		return nil, &ConfigurationError{Field: "secret", Reason: "is required"}
	}
	if cfg.Issuer == "" {
		return nil, &ConfigurationError{Field: "issuer", Reason: "is required"}
	}
	if cfg.Audience == "" {
		return nil, &ConfigurationError{Field: "audience", Reason: "is required"}
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}

	s := &TokenService{
		secret:   []byte(cfg.Secret),
		issuer:   cfg.Issuer,
		audience: cfg.Audience,
		ttl:      ttl,
		now:      time.Now,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.parser = jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.issuer),
		jwt.WithAudience(s.audience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	return s, nil
}

// TTL returns the configured token lifetime.
func (s *TokenService) TTL() time.Duration {
	return s.ttl
}

// Issue signs a token for the subject and returns it with its expiry.
func (s *TokenService) Issue(subjectID int64, email string, role Role) (string, time.Time, error) {
	details := map[string]any{}
	if subjectID <= 0 {
		details["subjectId"] = "subjectId must be positive"
	}
	if email == "" {
		details["email"] = "email is required"
	}
	if role == "" {
		details["role"] = "role is required"
	}
	if len(details) > 0 {
		return "", time.Time{}, apperrors.NewValidationError("invalid token claims", details)
	}

	issuedAt := jwt.NewNumericDate(s.now())
	expiresAt := jwt.NewNumericDate(issuedAt.Add(s.ttl))
	claims := &tokenClaims{
		Email: email,
		Role:  string(role),
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   strconv.FormatInt(subjectID, 10),
			Issuer:    s.issuer,
			Audience:  jwt.ClaimStrings{s.audience},
			IssuedAt:  issuedAt,
			ExpiresAt: expiresAt,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, expiresAt.Time, nil
}

// Validate verifies signature, algorithm, issuer, audience and expiry, then
// returns the caller identity. Any failure yields ErrTokenInvalid.
func (s *TokenService) Validate(tokenStr string) (*Identity, error) {
	if tokenStr == "" {
		return nil, ErrTokenInvalid
	}

	claims := &tokenClaims{}
	parsed, err := s.parser.ParseWithClaims(tokenStr, claims, func(*jwt.Token) (interface{}, error) {
		return s.secret, nil
	})
	if err != nil || !parsed.Valid {
		s.logger.Debug("token rejected", zap.Error(err))
		return nil, ErrTokenInvalid
	}

	subjectID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil || subjectID <= 0 {
		s.logger.Debug("token rejected", zap.String("cause", "subject is not a positive integer"))
		return nil, ErrTokenInvalid
	}
	if claims.Email == "" || claims.Role == "" {
		s.logger.Debug("token rejected", zap.String("cause", "missing email or role"))
		return nil, ErrTokenInvalid
	}

	identity := &Identity{
		subjectID: subjectID,
		email:     claims.Email,
		role:      Role(claims.Role),
		tokenID:   claims.ID,
		expiresAt: claims.ExpiresAt.Time,
	}
	if claims.IssuedAt != nil {
		identity.issuedAt = claims.IssuedAt.Time
	}
	return identity, nil
}
