package security

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"secbank-cbs/internal/config"
	"secbank-cbs/pkg/clock"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const refreshTokenType = "refresh"

// Claims is the JWT payload. Access tokens leave Type empty.
type Claims struct {
	Username string `json:"username,omitempty"`
	Email    string `json:"email,omitempty"`
	BranchID *uint  `json:"branchId,omitempty"`
	Type     string `json:"type,omitempty"`
	jwt.RegisteredClaims
}

// TokenService signs and checks HS256 tokens. It holds no mutable state.
type TokenService struct {
	secret []byte
	cfg    config.JWTConfig
	clock  clock.Clock
	logger *slog.Logger
}

func NewTokenService(cfg config.JWTConfig, clk clock.Clock, logger *slog.Logger) *TokenService {
	if clk == nil {
		clk = clock.System{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &TokenService{secret: []byte(cfg.Secret), cfg: cfg, clock: clk, logger: logger}
}

// AccessTTLSeconds is reported to clients as expiresIn.
func (s *TokenService) AccessTTLSeconds() int64 {
	return int64(s.cfg.AccessTTL.Seconds())
}

func (s *TokenService) IssueAccessToken(p *Principal) (string, error) {
	now := s.clock.Now()
	claims := Claims{
		Username: p.Username,
		Email:    p.Email,
		BranchID: p.BranchID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(uint64(p.UserID), 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.AccessTTL)),
			ID:        uuid.NewString(),
		},
	}
	return s.sign(claims)
}

func (s *TokenService) IssueRefreshToken(p *Principal) (string, error) {
	now := s.clock.Now()
	claims := Claims{
		Type: refreshTokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(uint64(p.UserID), 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.RefreshTTL)),
			ID:        uuid.NewString(),
		},
	}
	return s.sign(claims)
}

func (s *TokenService) sign(claims Claims) (string, error) {
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Validate reports whether token is well-formed, HMAC-signed with our key,
// unexpired and names a subject. Failures are logged, never returned.
func (s *TokenService) Validate(token string) bool {
	_, err := s.parse(token)
	if err != nil {
		s.logger.Warn("jwt rejected", "reason", rejectReason(err), "error", err)
		return false
	}
	return true
}

// IsRefreshToken reports whether token is valid and was issued as a refresh token.
func (s *TokenService) IsRefreshToken(token string) bool {
	claims, err := s.parse(token)
	if err != nil {
		return false
	}
	return claims.Type == refreshTokenType
}

// SubjectUserID returns the user id in the subject of a valid token.
func (s *TokenService) SubjectUserID(token string) (uint, error) {
	claims, err := s.parse(token)
	if err != nil {
		return 0, err
	}
	id, err := strconv.ParseUint(claims.Subject, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid token subject %q: %w", claims.Subject, err)
	}
	return uint(id), nil
}

var errEmptySubject = errors.New("token has no subject")

func (s *TokenService) parse(token string) (*Claims, error) {
	if token == "" {
		return nil, jwt.ErrTokenMalformed
	}
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg(), jwt.SigningMethodHS384.Alg(), jwt.SigningMethodHS512.Alg()}),
		jwt.WithTimeFunc(s.clock.Now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, err
	}
	if claims.Subject == "" {
		return nil, errEmptySubject
	}
	return claims, nil
}

func rejectReason(err error) string {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return "expired"
	case errors.Is(err, jwt.ErrTokenMalformed):
		return "malformed"
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
		return "unsupported"
	case errors.Is(err, errEmptySubject):
		return "empty claims"
	}
	return "invalid"
}
