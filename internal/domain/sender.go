package domain

// Sender tags who wrote a message. The store accepts any value; only user and admin are produced by
// the bundled clients.
type Sender string

const (
	SenderUser  Sender = "user"
	SenderAdmin Sender = "admin"
)

func (s Sender) IsKnown() bool {
	return s == SenderUser || s == SenderAdmin
}
