package replay

import "errors"

var (
	ErrCodeAlreadyUsed  = errors.New("code already used")
	ErrStoreUnavailable = errors.New("replay store unavailable")
)
