package account

import "errors"

var (
	ErrUserNotFound   = errors.New("user not found")
	ErrStorageFailure = errors.New("account storage failure")
)
