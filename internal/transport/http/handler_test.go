package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/cwrk-planet/support-relay/internal/domain"
	"github.com/cwrk-planet/support-relay/internal/repository/memory"
	"github.com/cwrk-planet/support-relay/internal/security"
	"github.com/cwrk-planet/support-relay/internal/service"
	"github.com/cwrk-planet/support-relay/pkg/protocol"

	"golang.org/x/crypto/bcrypt"
)

func newTestRouter(t *testing.T) (http.Handler, *service.ChatService) {
	t.Helper()
	store := memory.New()
	chat := service.NewChatService(store, store, store)

	creds, err := security.NewCredentials("admin", "admin123", "", &security.BcryptConfig{Cost: bcrypt.MinCost})
	if err != nil {
		t.Fatal(err)
	}
	auth := service.NewAuthService(creds, security.NewJWTSigner([]byte("k"), "support-relay", time.Hour, 0), nil)

	return NewRouter(Deps{Handler: NewHandler(chat, auth)}), chat
}

func do(h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestLogin(t *testing.T) {
	h, _ := newTestRouter(t)

	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantToken  bool
		wantMsg    string
	}{
		{"valid", `{"username":"admin","password":"admin123"}`, http.StatusOK, true, ""},
		{"wrong password", `{"username":"admin","password":"admin"}`, http.StatusUnauthorized, false, "Invalid credentials"},
		{"wrong user", `{"username":"root","password":"admin123"}`, http.StatusUnauthorized, false, "Invalid credentials"},
		{"empty object", `{}`, http.StatusUnauthorized, false, "Invalid credentials"},
		{"malformed", `{"username":`, http.StatusBadRequest, false, "Invalid request body"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(h, http.MethodPost, "/api/login", tt.body)
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d (%s)", rec.Code, tt.wantStatus, rec.Body.String())
			}
			var resp protocol.LoginResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatal(err)
			}
			if resp.Success != tt.wantToken || (resp.Token != "") != tt.wantToken || resp.Message != tt.wantMsg {
				t.Fatalf("unexpected response %+v", resp)
			}
		})
	}
}

func TestListChatsAndMessages(t *testing.T) {
	h, chat := newTestRouter(t)
	ctx := context.Background()

	rec := do(h, http.MethodGet, "/api/chats", "")
	if rec.Code != http.StatusOK || strings.TrimSpace(rec.Body.String()) != "[]" {
		t.Fatalf("empty chats = %d %q", rec.Code, rec.Body.String())
	}

	_, _, _ = chat.EnsureUser(ctx, "quiet")
	_, _, _ = chat.EnsureUser(ctx, "user_abc123")
	if _, err := chat.SendMessage(ctx, "user_abc123", "Hello", domain.SenderUser, nil); err != nil {
		t.Fatal(err)
	}

	rec = do(h, http.MethodGet, "/api/chats", "")
	var chats []protocol.Chat
	if err := json.Unmarshal(rec.Body.Bytes(), &chats); err != nil {
		t.Fatal(err)
	}
	if len(chats) != 2 || chats[0].ID != "user_abc123" || chats[0].Preview() != "Hello" {
		t.Fatalf("chats = %+v", chats)
	}
	if len(chats[1].Messages) != 0 || !strings.Contains(rec.Body.String(), `"name":null`) {
		t.Fatalf("quiet chat rendered wrong: %s", rec.Body.String())
	}

	rec = do(h, http.MethodGet, "/api/messages/user_abc123", "")
	var msgs []protocol.Message
	if err := json.Unmarshal(rec.Body.Bytes(), &msgs); err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 1 || msgs[0].Content != "Hello" || msgs[0].Sender != "user" {
		t.Fatalf("messages = %+v", msgs)
	}

	rec = do(h, http.MethodGet, "/api/messages/nobody", "")
	if rec.Code != http.StatusOK || strings.TrimSpace(rec.Body.String()) != "[]" {
		t.Fatalf("unknown user = %d %q", rec.Code, rec.Body.String())
	}
}

type brokenQuerier struct{}

func (brokenQuerier) ListChats(context.Context) ([]service.ChatSummary, error) {
	return nil, errors.New("db down")
}

func (brokenQuerier) ListMessages(context.Context, string) ([]domain.Message, error) {
	return nil, errors.New("db down")
}

func TestQueryFailuresAreGeneric500(t *testing.T) {
	h := NewRouter(Deps{Handler: NewHandler(brokenQuerier{}, nil)})

	rec := do(h, http.MethodGet, "/api/chats", "")
	if rec.Code != http.StatusInternalServerError || !strings.Contains(rec.Body.String(), "Failed to fetch chats") {
		t.Fatalf("chats = %d %q", rec.Code, rec.Body.String())
	}
	rec = do(h, http.MethodGet, "/api/messages/u", "")
	if rec.Code != http.StatusInternalServerError || strings.Contains(rec.Body.String(), "db down") {
		t.Fatalf("messages = %d %q", rec.Code, rec.Body.String())
	}
}

func TestBannerHealthAndCORS(t *testing.T) {
	h, _ := newTestRouter(t)

	if rec := do(h, http.MethodGet, "/", ""); rec.Body.String() != banner {
		t.Fatalf("banner = %q", rec.Body.String())
	}
	if rec := do(h, http.MethodGet, "/healthz", ""); rec.Code != http.StatusOK {
		t.Fatalf("healthz = %d", rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/chats", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Fatalf("missing CORS header: %v", rec.Header())
	}
}
