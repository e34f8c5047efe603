package service

import "errors"

// Attempt engine errors. Handlers map them to response codes with errors.Is.
var (
	ErrTestNotFound         = errors.New("test not found")
	ErrNotAvailable         = errors.New("test is not available at this time")
	ErrAttemptLimitExceeded = errors.New("attempt limit reached for this test")
	ErrAttemptExpired       = errors.New("attempt time is over")
	ErrPersistenceConflict  = errors.New("attempt was modified concurrently, try again")
	ErrAttemptNotFound      = errors.New("attempt not found")
	ErrAttemptNotActive     = errors.New("attempt is not in progress")
	ErrQuestionNotInTest    = errors.New("question does not belong to this test")
)
