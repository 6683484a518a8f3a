package policy

import "errors"

var (
	// ErrUnknownPolicy is returned when a policy index does not exist
	ErrUnknownPolicy = errors.New("unknown policy")

	// ErrUnknownRule is returned when a rule name cannot be parsed
	ErrUnknownRule = errors.New("unknown rule")

	// ErrUnknownHook is returned when an override names a hook that does not exist
	ErrUnknownHook = errors.New("unknown hook")
)
