package domain

import "errors"

var (
	ErrAuthFailed         = errors.New("authentication failed")
	ErrStoreUnavailable   = errors.New("store unavailable")
	ErrMalformedPayload   = errors.New("malformed payload")
	ErrConnClosed         = errors.New("connection closed")
	ErrSendQueueFull      = errors.New("send queue full")
	ErrUserExists         = errors.New("user already exists")
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidCredentials = errors.New("invalid credentials")
)
