package services

import "errors"

var (
	ErrNoIdentity      = errors.New("no signed-in user")
	ErrFetchFailed     = errors.New("ladder fetch failed")
	ErrSuperseded      = errors.New("ladder request superseded by a newer one")
	ErrViewClosed      = errors.New("ladder view closed")
	ErrSubmissionWrite = errors.New("ladder submission write failed")
	ErrInvalidProfile  = errors.New("invalid profile update")
)
