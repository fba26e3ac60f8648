package security

import "errors"

// ErrInvalidCredentials is the only error a failed login reports, whichever part was wrong.
var ErrInvalidCredentials = errors.New("invalid credentials")

var ErrPasswordTooShort = errors.New("admin password below minimum length")
