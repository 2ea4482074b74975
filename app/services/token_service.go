// Package services provides external service integrations and technical concerns like tokens
package services

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/synergydash/synergy-backend/utils"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Token service error constants
var (
	ErrTokenExpired = errors.New("token has expired")
	ErrTokenInvalid = errors.New("invalid token")
	ErrTokenRevoked = errors.New("token has been revoked")
)

// TokenService handles admin JWT generation and validation for the
// counter-override endpoints
type TokenService interface {
	GenerateAdminToken(actorName string) (string, error)
	ValidateAdminToken(token string) (*AdminTokenClaims, error)
	RevokeToken(token string) error
	IsTokenRevoked(tokenID string) bool
}

// AdminTokenClaims represents claims for admin JWTs
type AdminTokenClaims struct {
	ActorName string    `json:"actor_name"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
	TokenID   string    `json:"jti"`
}

// TokenServiceImpl implements TokenService with HMAC signing
type TokenServiceImpl struct {
	secretKey      []byte
	accessTokenTTL time.Duration
	issuer         string
	audience       string

	mu            sync.RWMutex
	revokedTokens map[string]time.Time // token ID -> expiry, pruned lazily
}

// NewTokenService creates a new token service
func NewTokenService(secretKey string, accessTokenTTL time.Duration, issuer, audience string) TokenService {
	if accessTokenTTL <= 0 {
		accessTokenTTL = utils.AdminTokenTTL
	}
	return &TokenServiceImpl{
		secretKey:      []byte(secretKey),
		accessTokenTTL: accessTokenTTL,
		issuer:         issuer,
		audience:       audience,
		revokedTokens:  make(map[string]time.Time),
	}
}

// GenerateAdminToken issues a signed token identifying the operator
func (s *TokenServiceImpl) GenerateAdminToken(actorName string) (string, error) {
	now := utils.UTCNow()
	claims := jwt.MapClaims{
		"actor_name": actorName,
		"iss":        s.issuer,
		"aud":        s.audience,
		"iat":        now.Unix(),
		"exp":        now.Add(s.accessTokenTTL).Unix(),
		"jti":        uuid.New().String(),
		"token_type": "admin_access",
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secretKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign admin token: %w", err)
	}
	return signed, nil
}

// ValidateAdminToken parses and verifies a token, rejecting revoked ones
func (s *TokenServiceImpl) ValidateAdminToken(tokenString string) (*AdminTokenClaims, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secretKey, nil
	}, jwt.WithIssuer(s.issuer), jwt.WithAudience(s.audience))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, ErrTokenInvalid
	}

	tokenType, _ := claims["token_type"].(string)
	if tokenType != "admin_access" {
		return nil, ErrTokenInvalid
	}

	tokenID, _ := claims["jti"].(string)
	if tokenID == "" {
		return nil, ErrTokenInvalid
	}
	if s.IsTokenRevoked(tokenID) {
		return nil, ErrTokenRevoked
	}

	actorName, _ := claims["actor_name"].(string)

	result := &AdminTokenClaims{
		ActorName: actorName,
		TokenID:   tokenID,
	}
	if iat, err := claims.GetIssuedAt(); err == nil && iat != nil {
		result.IssuedAt = iat.Time
	}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		result.ExpiresAt = exp.Time
	}
	return result, nil
}

// RevokeToken marks a token as unusable until its natural expiry
func (s *TokenServiceImpl) RevokeToken(tokenString string) error {
	claims, err := s.ValidateAdminToken(tokenString)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.revokedTokens[claims.TokenID] = claims.ExpiresAt
	s.pruneLocked()
	return nil
}

// IsTokenRevoked checks the revocation set
func (s *TokenServiceImpl) IsTokenRevoked(tokenID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	expiry, found := s.revokedTokens[tokenID]
	if !found {
		return false
	}
	return !utils.IsExpired(expiry)
}

// pruneLocked drops revocation entries whose tokens already expired.
// Callers must hold the write lock.
func (s *TokenServiceImpl) pruneLocked() {
	for id, expiry := range s.revokedTokens {
		if utils.IsExpired(expiry) {
			delete(s.revokedTokens, id)
		}
	}
}
