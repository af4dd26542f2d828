/*
Package auth implements the manager passcode gate.

MODEL:
  There is one shared numeric PIN for the whole site. Its bcrypt hash is
  kept in the settings store under PINSettingKey. Until a manager changes
  it, the configured default PIN is accepted.

  A correct PIN is exchanged for a short-lived HS256 token. Management
  endpoints require "Authorization: Bearer <token>".

  The punch terminal itself is not gated.
*/
package auth

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/nobel/timebank/timebank"
)

// PINSettingKey is where the PIN hash lives in the settings store.
const PINSettingKey = "manager_pin_hash"

const (
	issuer      = "timebank"
	managerRole = "manager"
	pinLength   = 4
)

var (
	ErrInvalidPIN   = errors.New("invalid PIN")
	ErrPINFormat    = errors.New("PIN must be exactly 4 digits")
	ErrTokenExpired = errors.New("token expired")
	ErrTokenInvalid = errors.New("token invalid")
)

// Claims identify a manager session.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Gate verifies PINs and issues session tokens.
type Gate struct {
	settings   timebank.SettingsStore
	secret     []byte
	ttl        time.Duration
	defaultPIN string

	// Cost is the bcrypt cost used when a PIN is changed.
	Cost int
	Now  func() time.Time
}

// NewGate creates a gate. An empty secret is replaced by a random one, so
// tokens do not survive a restart.
func NewGate(settings timebank.SettingsStore, secret string, ttl time.Duration, defaultPIN string) (*Gate, error) {
	key := []byte(secret)
	if len(key) == 0 {
		key = make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			return nil, fmt.Errorf("generate token secret: %w", err)
		}
	}
	return &Gate{
		settings:   settings,
		secret:     key,
		ttl:        ttl,
		defaultPIN: defaultPIN,
		Cost:       bcrypt.DefaultCost,
		Now:        time.Now,
	}, nil
}

// VerifyPIN returns ErrInvalidPIN unless pin matches the current PIN.
func (g *Gate) VerifyPIN(ctx context.Context, pin string) error {
	hash, ok, err := g.settings.GetSetting(ctx, PINSettingKey)
	if err != nil {
		return fmt.Errorf("load PIN: %w", err)
	}
	if !ok {
		if g.defaultPIN != "" && subtle.ConstantTimeCompare([]byte(pin), []byte(g.defaultPIN)) == 1 {
			return nil
		}
		return ErrInvalidPIN
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(pin)); err != nil {
		return ErrInvalidPIN
	}
	return nil
}

// Login exchanges a PIN for a session token.
func (g *Gate) Login(ctx context.Context, pin string) (string, time.Time, error) {
	if err := g.VerifyPIN(ctx, pin); err != nil {
		return "", time.Time{}, err
	}
	return g.issue()
}

// SetPIN stores a new PIN without checking the old one. Used by the admin
// CLI, which already has direct access to the database.
func (g *Gate) SetPIN(ctx context.Context, pin string) error {
	if !validPIN(pin) {
		return ErrPINFormat
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(pin), g.Cost)
	if err != nil {
		return fmt.Errorf("hash PIN: %w", err)
	}
	return g.settings.SetSetting(ctx, PINSettingKey, string(hash))
}

// ChangePIN replaces the PIN after verifying the current one.
func (g *Gate) ChangePIN(ctx context.Context, current, next string) error {
	if err := g.VerifyPIN(ctx, current); err != nil {
		return err
	}
	return g.SetPIN(ctx, next)
}

func (g *Gate) issue() (string, time.Time, error) {
	now := g.Now()
	expires := now.Add(g.ttl)
	claims := Claims{
		Role: managerRole,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(g.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return token, expires, nil
}

// ParseToken validates a session token.
func (g *Gate) ParseToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrTokenInvalid
		}
		return g.secret, nil
	}, jwt.WithTimeFunc(g.Now), jwt.WithIssuer(issuer))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.Role != managerRole {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}

func validPIN(pin string) bool {
	if len(pin) != pinLength {
		return false
	}
	for _, r := range pin {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
