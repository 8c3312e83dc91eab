package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/associacao-ensino/inscricoes-backend/internal/config"
	"github.com/associacao-ensino/inscricoes-backend/internal/model"
	"github.com/associacao-ensino/inscricoes-backend/internal/repository"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
)

// Common auth errors.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrTokenRevoked       = errors.New("token revoked")
)

// Claims extends JWT standard claims with the caller's identity and roles.
type Claims struct {
	jwt.RegisteredClaims
	UserID string       `json:"user_id"`
	Email  string       `json:"email"`
	Roles  []model.Role `json:"roles"`
}

// Caller converts the claims into the identity passed to workflows.
func (c *Claims) Caller() model.Caller {
	id, _ := uuid.Parse(c.UserID)
	return model.Caller{UserID: id, Email: c.Email, Roles: c.Roles}
}

// AuthService handles authentication, JWT, and token revocation.
type AuthService struct {
	cfg      *config.Config
	rdb      *redis.Client
	profiles ProfileStore
}

// NewAuthService creates a new AuthService.
func NewAuthService(cfg *config.Config, rdb *redis.Client, profiles ProfileStore) *AuthService {
	return &AuthService{cfg: cfg, rdb: rdb, profiles: profiles}
}

// HashPassword hashes a password with the configured bcrypt cost.
func (s *AuthService) HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cfg.BcryptCost)
	return string(hash), err
}

// CheckPassword compares a plaintext password against a bcrypt hash.
func (s *AuthService) CheckPassword(hash, password string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return ErrInvalidCredentials
	}
	return nil
}

// Login authenticates a staff account and issues a token.
func (s *AuthService) Login(ctx context.Context, req model.LoginRequest) (*model.LoginResponse, error) {
	profile, err := s.profiles.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, storeError("auth.login", "Utilizador", err)
	}
	if !profile.Active {
		return nil, ErrInvalidCredentials
	}
	if err := s.CheckPassword(profile.PasswordHash, req.Password); err != nil {
		return nil, err
	}

	token, err := s.GenerateToken(profile)
	if err != nil {
		return nil, err
	}
	return &model.LoginResponse{Token: token, User: *profile}, nil
}

// GenerateToken creates a JWT carrying the profile's roles.
func (s *AuthService) GenerateToken(profile *model.UserProfile) (string, error) {
	now := time.Now()

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			Subject:   profile.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.JWTExpiry)),
		},
		UserID: profile.ID.String(),
		Email:  profile.Email,
		Roles:  profile.Roles,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.cfg.JWTSecret))
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// ValidateToken parses and validates a JWT, returning the claims.
func (s *AuthService) ValidateToken(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(s.cfg.JWTSecret), nil
	})
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token claims")
	}
	if _, err := uuid.Parse(claims.UserID); err != nil {
		return nil, errors.New("invalid subject")
	}

	return claims, nil
}

// ValidateSession rejects tokens issued before the user's last password
// reset. A missing marker means every unexpired token is valid.
func (s *AuthService) ValidateSession(ctx context.Context, claims *Claims) error {
	raw, err := s.rdb.Get(ctx, config.CacheKey.UserSessionKey(claims.UserID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return fmt.Errorf("check session: %w", err)
	}
	validAfter, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil
	}
	if claims.IssuedAt == nil || claims.IssuedAt.Unix() < validAfter {
		return ErrTokenRevoked
	}
	return nil
}

// RevokeTokens invalidates every token issued to a user until now.
func (s *AuthService) RevokeTokens(ctx context.Context, userID uuid.UUID) error {
	key := config.CacheKey.UserSessionKey(userID.String())
	// Tokens carry second precision; +1 also rejects one issued this second.
	validAfter := time.Now().Unix() + 1
	return s.rdb.Set(ctx, key, validAfter, s.cfg.JWTExpiry).Err()
}
