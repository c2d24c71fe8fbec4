package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	tokenKindAccess  = "access"
	tokenKindRefresh = "refresh"
)

// TokenPair is an access token plus the refresh token that renews it.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// claims extends the registered JWT claims with the token kind so a refresh
// token can never be presented as an access token or vice versa.
type claims struct {
	jwt.RegisteredClaims
	Kind string `json:"kind"`
}

func (s *Service) issueTokenPair(userID uuid.UUID) (*TokenPair, error) {
	access, err := s.signToken(userID, tokenKindAccess, s.accessTTL)
	if err != nil {
		return nil, err
	}
	refresh, err := s.signToken(userID, tokenKindRefresh, s.refreshTTL)
	if err != nil {
		return nil, err
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

func (s *Service) signToken(userID uuid.UUID, kind string, ttl time.Duration) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Kind: kind,
	})
	return token.SignedString(s.signingKey)
}

func (s *Service) parseToken(tokenString, wantKind string) (uuid.UUID, error) {
	var c claims
	token, err := jwt.ParseWithClaims(tokenString, &c, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return s.signingKey, nil
	})
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return uuid.Nil, ErrExpiredToken
	case err != nil:
		return uuid.Nil, errors.Join(ErrInvalidToken, err)
	case !token.Valid:
		return uuid.Nil, ErrInvalidToken
	}

	if c.Kind != wantKind {
		if wantKind == tokenKindRefresh {
			return uuid.Nil, ErrNotRefreshToken
		}
		return uuid.Nil, ErrInvalidToken
	}

	userID, err := uuid.Parse(c.Subject)
	if err != nil {
		return uuid.Nil, errors.Join(ErrInvalidToken, err)
	}
	return userID, nil
}
