package protocol

import "time"

type Message struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	Sender    string    `json:"sender"`
	CreatedAt time.Time `json:"createdAt"`
	UserID    string    `json:"userId"`
}

// Chat is one entry of the admin chat list: a visitor with at most its latest message.
type Chat struct {
	ID        string    `json:"id"`
	Name      *string   `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
	Messages  []Message `json:"messages"`
	Online    *bool     `json:"online,omitempty"`
}

// Preview returns the latest message content, or "" when the visitor has not written yet.
func (c Chat) Preview() string {
	if len(c.Messages) == 0 {
		return ""
	}
	return c.Messages[0].Content
}

type SendMessage struct {
	UserID  string `json:"userId"`
	Content string `json:"content"`
	Sender  string `json:"sender"`
}

type Typing struct {
	UserID string `json:"userId"`
	Typing bool   `json:"typing"`
	Sender string `json:"sender"`
}

// ChatUpdated is broadcast when a visitor first appears (ID/Name/CreatedAt set, as a User) or
// after every stored message (LastMessage set).
type ChatUpdated struct {
	UserID      string     `json:"userId"`
	ID          string     `json:"id,omitempty"`
	Name        *string    `json:"name,omitempty"`
	CreatedAt   *time.Time `json:"createdAt,omitempty"`
	LastMessage *Message   `json:"lastMessage,omitempty"`
}

type MessageAck struct {
	Ref     string  `json:"ref"`
	Message Message `json:"message"`
}

type Error struct {
	Ref   string `json:"ref,omitempty"`
	Error string `json:"error"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Success bool   `json:"success"`
	Token   string `json:"token,omitempty"`
	Message string `json:"message,omitempty"`
}
