package vector

import "errors"

var (
	ErrFrozen        = errors.New("vector table is frozen")
	ErrInvalidLayout = errors.New("invalid vector table layout")
)
