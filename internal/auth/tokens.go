package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var ErrInvalidToken = errors.New("invalid token")

// RefreshTokenStore persists the single live refresh token of a user.
type RefreshTokenStore interface {
	SetRefreshToken(ctx context.Context, userID uuid.UUID, token *string) error
}

type Claims struct {
	UserID string `json:"userId"`
	jwt.RegisteredClaims
}

type TokenConfig struct {
	AccessSecret  string
	RefreshSecret string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
}

type TokenPair struct {
	AccessToken      string
	AccessExpiresAt  time.Time
	RefreshToken     string
	RefreshExpiresAt time.Time
}

// AccessGrant is a freshly minted access token.
type AccessGrant struct {
	Token     string
	UserID    uuid.UUID
	ExpiresAt time.Time
}

type TokenService struct {
	cfg   TokenConfig
	store RefreshTokenStore
	now   func() time.Time
}

func NewTokenService(cfg TokenConfig, store RefreshTokenStore) *TokenService {
	return &TokenService{cfg: cfg, store: store, now: time.Now}
}

func (s *TokenService) AccessTTL() time.Duration  { return s.cfg.AccessTTL }
func (s *TokenService) RefreshTTL() time.Duration { return s.cfg.RefreshTTL }

func (s *TokenService) sign(uid uuid.UUID, secret string, ttl time.Duration) (string, time.Time, error) {
	now := s.now()
	exp := now.Add(ttl)
	c := Claims{
		UserID: uid.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			ExpiresAt: jwt.NewNumericDate(exp),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString([]byte(secret))
	if err != nil {
		return "", time.Time{}, err
	}
	return tok, exp, nil
}

func (s *TokenService) parse(raw, secret string) (uuid.UUID, error) {
	if raw == "" {
		return uuid.Nil, ErrInvalidToken
	}
	tok, err := jwt.ParseWithClaims(raw, &Claims{}, func(t *jwt.Token) (any, error) {
		// block alg confusion
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return []byte(secret), nil
	}, jwt.WithTimeFunc(s.now), jwt.WithExpirationRequired())
	if err != nil {
		return uuid.Nil, ErrInvalidToken
	}
	c, ok := tok.Claims.(*Claims)
	if !ok || !tok.Valid {
		return uuid.Nil, ErrInvalidToken
	}
	uid, err := uuid.Parse(c.UserID)
	if err != nil {
		return uuid.Nil, ErrInvalidToken
	}
	return uid, nil
}

// IssueTokens mints an access/refresh pair and stores the refresh token on the
// user, replacing whatever was there.
func (s *TokenService) IssueTokens(ctx context.Context, uid uuid.UUID) (TokenPair, error) {
	access, accessExp, err := s.sign(uid, s.cfg.AccessSecret, s.cfg.AccessTTL)
	if err != nil {
		return TokenPair{}, fmt.Errorf("sign access token: %w", err)
	}
	refresh, refreshExp, err := s.sign(uid, s.cfg.RefreshSecret, s.cfg.RefreshTTL)
	if err != nil {
		return TokenPair{}, fmt.Errorf("sign refresh token: %w", err)
	}

	if err := s.store.SetRefreshToken(ctx, uid, &refresh); err != nil {
		return TokenPair{}, fmt.Errorf("store refresh token: %w", err)
	}

	return TokenPair{
		AccessToken:      access,
		AccessExpiresAt:  accessExp,
		RefreshToken:     refresh,
		RefreshExpiresAt: refreshExp,
	}, nil
}

// VerifyAccess checks signature and expiry only.
func (s *TokenService) VerifyAccess(raw string) (uuid.UUID, error) {
	return s.parse(raw, s.cfg.AccessSecret)
}

func (s *TokenService) VerifyRefresh(raw string) (uuid.UUID, error) {
	return s.parse(raw, s.cfg.RefreshSecret)
}

// RotateFromRefresh mints a new access token from a valid refresh token.
// The refresh token itself is left as is.
func (s *TokenService) RotateFromRefresh(raw string) (AccessGrant, error) {
	uid, err := s.VerifyRefresh(raw)
	if err != nil {
		return AccessGrant{}, err
	}
	tok, exp, err := s.sign(uid, s.cfg.AccessSecret, s.cfg.AccessTTL)
	if err != nil {
		return AccessGrant{}, fmt.Errorf("sign access token: %w", err)
	}
	return AccessGrant{Token: tok, UserID: uid, ExpiresAt: exp}, nil
}

// Revoke clears the stored refresh token of the user.
func (s *TokenService) Revoke(ctx context.Context, uid uuid.UUID) error {
	if err := s.store.SetRefreshToken(ctx, uid, nil); err != nil {
		return fmt.Errorf("clear refresh token: %w", err)
	}
	return nil
}
