package service

import "errors"

var (
	ErrItemNotFound = errors.New("item not found")
	ErrBidNotFound  = errors.New("bid not found")

	// ErrServiceUnavailable surfaces an exhausted transient failure
	// (storage down, commit failed repeatedly). It is never a business
	// rejection; callers must not report it as one.
	ErrServiceUnavailable = errors.New("service temporarily unavailable")
)
