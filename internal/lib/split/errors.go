package split

import (
	"errors"
)

var (
	// ErrBadConfig wraps every validation failure so callers can treat all of
	// them as fatal configuration errors with a single errors.Is check.
	ErrBadConfig = errors.New("invalid split configuration")

	ErrUnknownStrategy = errors.New("unknown machine target strategy")
	ErrUnknownPolicy   = errors.New("unknown rounding policy")
)
