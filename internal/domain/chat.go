package domain

import "time"

// Chat is a visitor with its most recent message, if any.
type Chat struct {
	User   User
	Latest *Message
}

// ActivityAt is the instant the admin list sorts by: the latest message, or the user's creation.
func (c Chat) ActivityAt() time.Time {
	if c.Latest != nil {
		return c.Latest.CreatedAt
	}
	return c.User.CreatedAt
}
