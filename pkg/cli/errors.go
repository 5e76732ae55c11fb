package cli

import "errors"

// Common CLI errors
var (
	ErrNotDirectory = errors.New("not a directory")
	ErrTooManyArgs  = errors.New("at most one start URL may be given")
)
