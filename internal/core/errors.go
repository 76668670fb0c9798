package core

import "errors"

var (
	// ErrInvalidCredentials means the username/password pair did not verify.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrNotAuthenticated means a session operation requires a prior login.
	ErrNotAuthenticated = errors.New("not authenticated")

	// ErrClassification wraps classifier failures, including timeouts. No
	// record is persisted when it is returned.
	ErrClassification = errors.New("classification failed")
)
