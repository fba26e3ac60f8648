package httputil

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewJSONHandler(&buf, nil)))
	t.Cleanup(func() { slog.SetDefault(prev) })
	return &buf
}

func TestMiddlewareRequestID(t *testing.T) {
	var seen string
	h := MiddlewareRequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = RequestIDFromContext(r.Context())
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if seen == "" || rec.Header().Get(HeaderRequestID) != seen {
		t.Fatalf("generated id %q, header %q", seen, rec.Header().Get(HeaderRequestID))
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderRequestID, "abc")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if seen != "abc" || rec.Header().Get(HeaderRequestID) != "abc" {
		t.Fatalf("incoming id not kept: %q", seen)
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderRequestID, "bad id\twith spaces")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if seen == "bad id\twith spaces" || len(seen) != 36 {
		t.Fatalf("unusable id must be replaced, got %q", seen)
	}
}

func TestMiddlewareLogging_RedactsSecrets(t *testing.T) {
	logs := captureLogs(t)

	var body []byte
	h := MiddlewareRequestID(MiddlewareLogging(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ = io.ReadAll(r.Body)
		Error(w, http.StatusUnauthorized, "nope")
	})))

	req := httptest.NewRequest(http.MethodPost, "/api/login", strings.NewReader(`{"username":"admin","password":"admin123"}`))
	req.Header.Set("Content-Type", "application/json")
	h.ServeHTTP(httptest.NewRecorder(), req)

	if !strings.Contains(string(body), "admin123") {
		t.Fatal("handler must still see the original body")
	}

	var line map[string]any
	if err := json.Unmarshal(logs.Bytes(), &line); err != nil {
		t.Fatalf("log line: %v (%s)", err, logs.String())
	}
	if line["status"] != float64(http.StatusUnauthorized) || line["path"] != "/api/login" {
		t.Fatalf("unexpected log %v", line)
	}
	if strings.Contains(logs.String(), "admin123") {
		t.Fatalf("password leaked into log: %s", logs.String())
	}
	if line["req_id"] == "" {
		t.Fatal("missing req_id")
	}
}

func TestJSONAndError(t *testing.T) {
	rec := httptest.NewRecorder()
	JSON(rec, http.StatusOK, []int{1, 2})
	if rec.Header().Get("Content-Type") != "application/json; charset=utf-8" || strings.TrimSpace(rec.Body.String()) != "[1,2]" {
		t.Fatalf("JSON wrote %q", rec.Body.String())
	}

	rec = httptest.NewRecorder()
	Error(rec, http.StatusInternalServerError, "Failed to fetch chats")
	if rec.Code != 500 || strings.TrimSpace(rec.Body.String()) != `{"error":"Failed to fetch chats"}` {
		t.Fatalf("Error wrote %d %q", rec.Code, rec.Body.String())
	}
}

func TestRedactJSON(t *testing.T) {
	got := redactJSON([]byte(`{"a":{"Token":"x"},"list":[{"password":"p"}]}`))
	if strings.Contains(got, `"x"`) || strings.Contains(got, `"p"`) {
		t.Fatalf("not redacted: %s", got)
	}
	if redactJSON([]byte("not json")) != "not json" {
		t.Fatal("non-JSON body should pass through")
	}
}
