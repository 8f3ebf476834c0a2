package services

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/AnshRaj112/laundry-backend/internal/models"
	"github.com/AnshRaj112/laundry-backend/pkg/utils"
)

// TokenTTL is how long an issued token stays valid.
const TokenTTL = 24 * time.Hour

type tokenCodec interface {
	encode(p models.TokenPayload) (string, error)
	decode(token string, now time.Time) (models.TokenPayload, error)
}

// TokenService issues and verifies stateless bearer tokens. There is no
// revocation; a token is good until it expires.
type TokenService struct {
	codec tokenCodec
	now   func() time.Time
}

// NewHMACTokenService signs tokens as HS256 JWTs.
func NewHMACTokenService(secret string, now func() time.Time) (*TokenService, error) {
	if secret == "" {
		return nil, errors.New("token secret is empty")
	}
	return newTokenService(jwtCodec{secret: []byte(secret)}, now), nil
}

// NewSealedTokenService encrypts the payload with AES-256-GCM.
func NewSealedTokenService(key []byte, now func() time.Time) (*TokenService, error) {
	if len(key) != 32 {
		return nil, errors.New("sealed tokens need a 32-byte key")
	}
	return newTokenService(sealedCodec{key: key}, now), nil
}

func newTokenService(codec tokenCodec, now func() time.Time) *TokenService {
	if now == nil {
		now = time.Now
	}
	return &TokenService{codec: codec, now: now}
}

func (s *TokenService) Issue(user models.User) (string, error) {
	return s.codec.encode(models.TokenPayload{
		UserID:    user.ID,
		Email:     user.Email,
		ExpiresAt: s.now().Add(TokenTTL).UTC(),
	})
}

// Verify returns the payload of a well-formed, authentic, unexpired token.
// Anything else is reported as absent.
func (s *TokenService) Verify(token string) (models.TokenPayload, bool) {
	if token == "" {
		return models.TokenPayload{}, false
	}
	p, err := s.codec.decode(token, s.now())
	if err != nil || p.UserID == "" {
		return models.TokenPayload{}, false
	}
	return p, true
}

type tokenClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

type jwtCodec struct {
	secret []byte
}

func (c jwtCodec) encode(p models.TokenPayload) (string, error) {
	claims := tokenClaims{
		Email: p.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   p.UserID,
			ExpiresAt: jwt.NewNumericDate(p.ExpiresAt),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
}

func (c jwtCodec) decode(token string, now time.Time) (models.TokenPayload, error) {
	var claims tokenClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return c.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(func() time.Time { return now }),
	)
	if err != nil {
		return models.TokenPayload{}, err
	}
	return models.TokenPayload{
		UserID:    claims.Subject,
		Email:     claims.Email,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

var errTokenExpired = errors.New("token expired")

type sealedCodec struct {
	key []byte
}

func (c sealedCodec) encode(p models.TokenPayload) (string, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return "", err
	}
	return utils.Seal(data, c.key)
}

func (c sealedCodec) decode(token string, now time.Time) (models.TokenPayload, error) {
	data, err := utils.Open(token, c.key)
	if err != nil {
		return models.TokenPayload{}, err
	}
	var p models.TokenPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return models.TokenPayload{}, err
	}
	if !now.Before(p.ExpiresAt) {
		return models.TokenPayload{}, errTokenExpired
	}
	return p, nil
}
