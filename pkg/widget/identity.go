package widget

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

const (
	visitorPrefix   = "user_"
	visitorAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"
)

// NewVisitorID returns "user_" followed by 9 characters from [a-z0-9].
func NewVisitorID() (string, error) {
	suffix, err := randomAlnum(9)
	if err != nil {
		return "", fmt.Errorf("visitor id: %w", err)
	}
	return visitorPrefix + suffix, nil
}

// randomAlnum returns n characters drawn uniformly from visitorAlphabet.
func randomAlnum(n int) (string, error) {
	// largest multiple of len(alphabet) below 256; bytes above it would bias the draw
	const limit = 256 - 256%len(visitorAlphabet)

	out := make([]byte, 0, n)
	buf := make([]byte, n+n/4+1)
	for len(out) < n {
		if _, err := io.ReadFull(rand.Reader, buf); err != nil {
			return "", fmt.Errorf("read random: %w", err)
		}
		for _, b := range buf {
			if int(b) >= limit {
				continue
			}
			out = append(out, visitorAlphabet[int(b)%len(visitorAlphabet)])
			if len(out) == n {
				break
			}
		}
	}
	return string(out), nil
}

// FileIdentity keeps the visitor id in a file so the same device reuses it across sessions.
type FileIdentity struct {
	Path string
}

// DefaultIdentityPath is <user config dir>/support-relay/visitor_id.
func DefaultIdentityPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "support-relay", "visitor_id")
}

// Load returns the stored id, generating and saving one on first use.
func (f FileIdentity) Load() (string, error) {
	b, err := os.ReadFile(f.Path)
	if err == nil {
		if id := strings.TrimSpace(string(b)); id != "" {
			return id, nil
		}
	} else if !errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("read identity: %w", err)
	}

	id, err := NewVisitorID()
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(f.Path), 0o700); err != nil {
		return "", fmt.Errorf("create identity dir: %w", err)
	}
	if err := os.WriteFile(f.Path, []byte(id+"\n"), 0o600); err != nil {
		return "", fmt.Errorf("write identity: %w", err)
	}

	return id, nil
}
