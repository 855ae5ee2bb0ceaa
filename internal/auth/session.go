package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims bind a resume token to the room/nickname/avatar tuple the client
// persists locally for automatic rejoin.
type Claims struct {
	Room     string `json:"room"`
	Nickname string `json:"nickname"`
	Avatar   string `json:"avatar"`
	jwt.RegisteredClaims
}

// Config holds resume token signing configuration.
type Config struct {
	Secret []byte
	Issuer string
	TTL    time.Duration
}

// Service issues and validates resume tokens.
type Service struct {
	cfg Config
}

// NewService builds a token service.
func NewService(cfg Config) *Service {
	if cfg.TTL == 0 {
		cfg.TTL = 24 * time.Hour
	}
	return &Service{cfg: cfg}
}

// Issue creates a resume token for a seated player.
func (s *Service) Issue(room, nickname, avatar string) (string, error) {
	now := time.Now()
	claims := Claims{
		Room:     room,
		Nickname: nickname,
		Avatar:   avatar,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.cfg.Issuer,
			ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.TTL)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.cfg.Secret)
}

// Validate parses a resume token and checks its signature and expiry.
func (s *Service) Validate(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.cfg.Secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}
	if s.cfg.Issuer != "" && claims.Issuer != s.cfg.Issuer {
		return nil, fmt.Errorf("invalid issuer")
	}
	return claims, nil
}
