package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/cwrk-planet/support-relay/internal/domain"
	"github.com/cwrk-planet/support-relay/internal/security"
	"github.com/cwrk-planet/support-relay/internal/service"
	"github.com/cwrk-planet/support-relay/internal/transport/dto"
	"github.com/cwrk-planet/support-relay/pkg/httputil"
	"github.com/cwrk-planet/support-relay/pkg/protocol"

	"github.com/go-chi/chi/v5"
)

const maxLoginBody = 4 << 10

type ChatQuerier interface {
	ListChats(ctx context.Context) ([]service.ChatSummary, error)
	ListMessages(ctx context.Context, userID string) ([]domain.Message, error)
}

type Authenticator interface {
	Login(ctx context.Context, username, password string) (*service.LoginResult, error)
}

type Handler struct {
	chats ChatQuerier
	auth  Authenticator
}

func NewHandler(chats ChatQuerier, auth Authenticator) *Handler {
	return &Handler{chats: chats, auth: auth}
}

// POST /api/login
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var in protocol.LoginRequest
	if err := httputil.DecodeJSON(r, &in, maxLoginBody); err != nil {
		httputil.JSON(w, http.StatusBadRequest, protocol.LoginResponse{Success: false, Message: "Invalid request body"})
		return
	}

	res, err := h.auth.Login(r.Context(), in.Username, in.Password)
	switch {
	case errors.Is(err, security.ErrInvalidCredentials):
		httputil.JSON(w, http.StatusUnauthorized, protocol.LoginResponse{Success: false, Message: "Invalid credentials"})
		return
	case err != nil:
		slog.Error("http.login failed", slog.Any("err", err))
		httputil.JSON(w, http.StatusInternalServerError, protocol.LoginResponse{Success: false, Message: "Login failed"})
		return
	}

	httputil.JSON(w, http.StatusOK, protocol.LoginResponse{Success: true, Token: res.AccessToken})
}

// GET /api/chats
func (h *Handler) ListChats(w http.ResponseWriter, r *http.Request) {
	chats, err := h.chats.ListChats(r.Context())
	if err != nil {
		httputil.Error(w, http.StatusInternalServerError, "Failed to fetch chats")
		return
	}

	httputil.JSON(w, http.StatusOK, dto.Chats(chats))
}

// GET /api/messages/{userId}
func (h *Handler) ListMessages(w http.ResponseWriter, r *http.Request) {
	msgs, err := h.chats.ListMessages(r.Context(), chi.URLParam(r, "userId"))
	if err != nil {
		httputil.Error(w, http.StatusInternalServerError, "Failed to fetch messages")
		return
	}

	httputil.JSON(w, http.StatusOK, dto.Messages(msgs))
}
