package settings

import "errors"

var (
	ErrInvalidOptions      = errors.New("invalid second-factor options")
	ErrProviderUnavailable = errors.New("option store unavailable")
)
