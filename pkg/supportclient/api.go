// Package supportclient talks to the support relay: the query API over HTTP and the realtime channel
// over a websocket.
package supportclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cwrk-planet/support-relay/pkg/protocol"
)

var ErrUnauthorized = errors.New("invalid credentials")

// StatusError is returned for any non-2xx answer other than a failed login.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("support api: status %d", e.Code)
	}
	return fmt.Sprintf("support api: status %d: %s", e.Code, e.Message)
}

type Options struct {
	BaseURL string
	Timeout time.Duration
	// HTTPClient overrides the default client; Timeout is ignored then.
	HTTPClient *http.Client
}

type API struct {
	base string
	http *http.Client
}

func NewAPI(opts Options) *API {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{
			Timeout: opts.Timeout,
			Transport: &http.Transport{
				DialContext:     (&net.Dialer{Timeout: 5 * time.Second}).DialContext,
				MaxIdleConns:    16,
				IdleConnTimeout: 90 * time.Second,
			},
		}
	}

	return &API{base: strings.TrimRight(opts.BaseURL, "/"), http: hc}
}

func (a *API) BaseURL() string { return a.base }

// Login returns the admin token. Wrong credentials yield ErrUnauthorized.
func (a *API) Login(ctx context.Context, username, password string) (string, error) {
	var out protocol.LoginResponse
	err := a.do(ctx, http.MethodPost, "/api/login", protocol.LoginRequest{Username: username, Password: password}, &out)
	var se *StatusError
	if errors.As(err, &se) && se.Code == http.StatusUnauthorized {
		return "", ErrUnauthorized
	}
	if err != nil {
		return "", err
	}
	if !out.Success || out.Token == "" {
		return "", ErrUnauthorized
	}

	return out.Token, nil
}

func (a *API) ListChats(ctx context.Context) ([]protocol.Chat, error) {
	out := []protocol.Chat{}
	if err := a.do(ctx, http.MethodGet, "/api/chats", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (a *API) ListMessages(ctx context.Context, userID string) ([]protocol.Message, error) {
	out := []protocol.Message{}
	if err := a.do(ctx, http.MethodGet, "/api/messages/"+url.PathEscape(userID), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (a *API) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, a.base+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := a.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{Code: resp.StatusCode, Message: errorMessage(resp.Body)}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s %s: decode response: %w", method, path, err)
	}

	return nil
}

// errorMessage reads {"error": ...} or {"message": ...} bodies.
func errorMessage(r io.Reader) string {
	var body struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.NewDecoder(io.LimitReader(r, 4<<10)).Decode(&body); err != nil {
		return ""
	}
	if body.Error != "" {
		return body.Error
	}
	return body.Message
}
