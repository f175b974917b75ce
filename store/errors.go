package store

import "errors"

// Sentinel errors the handlers translate into HTTP responses.
var (
	ErrVisitorNotFound  = errors.New("visitor not found")
	ErrPageViewNotFound = errors.New("page view not found")
	ErrDuplicateEmail   = errors.New("email is already on the waitlist")
)
