package service

import (
	"fmt"
	"strconv"
	"time"

	"wallet-settlement-gateway/internal/core/domain"
	"wallet-settlement-gateway/internal/core/ports"

	"github.com/golang-jwt/jwt/v5"
)

// JWTTokenService implements ports.TokenService using HS256 JWT. Tokens carry
// the player id as subject plus the session kind and bank/game context; the
// provider treats them as opaque bearer tokens.
type JWTTokenService struct {
	secret []byte
	expiry time.Duration
	issuer string
}

// NewJWTTokenService creates a new JWT token service.
func NewJWTTokenService(secret string, expiry time.Duration, issuer string) *JWTTokenService {
	return &JWTTokenService{
		secret: []byte(secret),
		expiry: expiry,
		issuer: issuer,
	}
}

// Generate creates a signed session token for the given player.
func (s *JWTTokenService) Generate(playerID int64, kind domain.SessionKind, bankID, gameID string) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(s.expiry)

	claims := jwt.MapClaims{
		"sub":  strconv.FormatInt(playerID, 10),
		"kind": string(kind),
		"iat":  now.Unix(),
		"exp":  expiresAt.Unix(),
		"iss":  s.issuer,
	}
	if bankID != "" {
		claims["bank_id"] = bankID
	}
	if gameID != "" {
		claims["game_id"] = gameID
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("signing token: %w", err)
	}

	return tokenString, expiresAt, nil
}

// Decode parses and validates a session token, returning its claims.
func (s *JWTTokenService) Decode(tokenString string) (*ports.TokenClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("parsing token: %w", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}

	sub, ok := claims["sub"].(string)
	if !ok {
		return nil, fmt.Errorf("missing subject claim")
	}
	playerID, err := strconv.ParseInt(sub, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid player id in token: %w", err)
	}

	kind, _ := claims["kind"].(string)
	bankID, _ := claims["bank_id"].(string)
	gameID, _ := claims["game_id"].(string)

	return &ports.TokenClaims{
		PlayerID: playerID,
		Kind:     domain.SessionKind(kind),
		BankID:   bankID,
		GameID:   gameID,
	}, nil
}
