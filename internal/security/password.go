package security

import (
	"crypto/subtle"
	"errors"

	"golang.org/x/crypto/bcrypt"
)

type BcryptConfig struct {
	Cost      int // bcrypt.DefaultCost when zero
	MinLength int // 6 when zero
}

func HashPassword(plain string, cfg *BcryptConfig) (string, error) {
	minLen := 6
	cost := bcrypt.DefaultCost

	if cfg != nil {
		if cfg.MinLength > 0 {
			minLen = cfg.MinLength
		}
		if cfg.Cost > 0 {
			cost = cfg.Cost
		}
	}

	if len(plain) < minLen {
		return "", ErrPasswordTooShort
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(plain), cost)
	if err != nil {
		return "", err
	}

	return string(hash), nil
}

func ComparePassword(hash, plain string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain))
}

// Credentials holds the single operator account the console logs in with.
type Credentials struct {
	username string
	hash     string
}

// NewCredentials builds the operator account. A non-empty passwordHash wins over password;
// the plain password is hashed once here and never kept.
func NewCredentials(username, password, passwordHash string, cfg *BcryptConfig) (*Credentials, error) {
	if username == "" {
		return nil, errors.New("security: empty operator username")
	}
	if passwordHash != "" {
		if _, err := bcrypt.Cost([]byte(passwordHash)); err != nil {
			return nil, err
		}
		return &Credentials{username: username, hash: passwordHash}, nil
	}

	hash, err := HashPassword(password, cfg)
	if err != nil {
		return nil, err
	}

	return &Credentials{username: username, hash: hash}, nil
}

// Verify returns ErrInvalidCredentials for any mismatch.
func (c *Credentials) Verify(username, password string) error {
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(c.username)) == 1
	// always run bcrypt so a wrong username costs the same as a wrong password
	passErr := ComparePassword(c.hash, password)
	if !userOK || passErr != nil {
		return ErrInvalidCredentials
	}
	return nil
}
