package editor

import (
	"fmt"
	"time"

	apperrors "deal-service/pkg/errors"

	"github.com/golang-jwt/jwt/v5"
)

const (
	msgUnexpectedSigningMethod = "unexpected signing method: %v"
	msgTokenParseFailed        = "token parsing failed: %w"
	msgInvalidTokenClaims      = "invalid token claims"
)

// Config is the editing-capability payload handed to the document server.
// The whole payload doubles as the JWT claim set, so the server can verify
// that nothing was altered in transit.
type Config struct {
	Document     Document     `json:"document"`
	DocumentType DocumentType `json:"documentType"`
	EditorConfig EditorConfig `json:"editorConfig"`
	Width        string       `json:"width"`
	Height       string       `json:"height"`
	Type         string       `json:"type"`
}

type Document struct {
	FileType    string      `json:"fileType"`
	Key         string      `json:"key"`
	Title       string      `json:"title"`
	URL         string      `json:"url"`
	Permissions Permissions `json:"permissions"`
}

type Permissions struct {
	Edit     bool `json:"edit"`
	Download bool `json:"download"`
	Print    bool `json:"print"`
}

type EditorConfig struct {
	Mode          string        `json:"mode"`
	Lang          string        `json:"lang"`
	CallbackURL   string        `json:"callbackUrl"`
	User          User          `json:"user"`
	Customization Customization `json:"customization"`
}

type User struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type Customization struct {
	Autosave  bool   `json:"autosave"`
	Forcesave bool   `json:"forcesave"`
	Goback    Goback `json:"goback"`
}

type Goback struct {
	URL string `json:"url"`
}

type claims struct {
	Config
	jwt.RegisteredClaims
}

// TokenService signs and verifies capability tokens with the secret shared
// with the document server.
type TokenService struct {
	secret []byte
	expiry time.Duration
}

func NewTokenService(secret string, expiry time.Duration) *TokenService {
	return &TokenService{
		secret: []byte(secret),
		expiry: expiry,
	}
}

func (s *TokenService) Sign(cfg Config) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		Config: cfg,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(s.expiry)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	})
	return token.SignedString(s.secret)
}

// Verify checks the signature on a round-tripped capability token and returns
// the embedded config. Any failure is an auth error; callers must not act on
// the payload.
func (s *TokenService) Verify(tokenString string) (*Config, error) {
	token, err := jwt.ParseWithClaims(tokenString, &claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf(msgUnexpectedSigningMethod, token.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))

	if err != nil {
		return nil, apperrors.Unauthorized(fmt.Errorf(msgTokenParseFailed, err).Error())
	}

	c, ok := token.Claims.(*claims)
	if !ok || !token.Valid {
		return nil, apperrors.Unauthorized(msgInvalidTokenClaims)
	}

	return &c.Config, nil
}
