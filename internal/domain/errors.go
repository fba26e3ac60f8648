package domain

import "errors"

var (
	ErrEmptyUserID  = errors.New("empty user id")
	ErrEmptyContent = errors.New("empty message")
	ErrUserNotFound = errors.New("user not found")
)
