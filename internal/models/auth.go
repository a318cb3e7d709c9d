package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// AuthSettings is the single-row store for the owner's passphrase.
type AuthSettings struct {
	PassphraseHash *string   `db:"passphrase_hash"`
	TokenVersion   int       `db:"token_version"`
	UpdatedAt      time.Time `db:"updated_at"`
}

// Initialized reports whether a passphrase has been set.
func (s *AuthSettings) Initialized() bool {
	return s != nil && s.PassphraseHash != nil && *s.PassphraseHash != ""
}

// LoginRequest holds the passphrase used to unlock the dashboard.
type LoginRequest struct {
	Passphrase string `json:"passphrase" validate:"required,min=4"`
	IP         string `json:"-"`
	UserAgent  string `json:"-"`
}

// LoginResponse returns the issued access token.
type LoginResponse struct {
	AccessToken string    `json:"access_token"`
	ExpiresIn   int64     `json:"expires_in"`
	IssuedAt    time.Time `json:"issued_at"`
	FirstLogin  bool      `json:"first_login"`
}

// ChangePassphraseRequest payload for rotating the passphrase.
type ChangePassphraseRequest struct {
	OldPassphrase string `json:"old_passphrase" validate:"required"`
	NewPassphrase string `json:"new_passphrase" validate:"required,min=4"`
}

// AuthStatus tells the client whether first-run setup is pending.
type AuthStatus struct {
	Initialized bool `json:"initialized"`
}

// JWTClaims represents the JWT payload for access tokens.
type JWTClaims struct {
	Version int `json:"ver"`
	jwt.RegisteredClaims
}
