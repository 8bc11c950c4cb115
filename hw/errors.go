package hw

import "errors"

var (
	ErrUnmapped  = errors.New("unmapped register address")
	ErrUnknownOp = errors.New("unknown op")
	ErrNoLoad    = errors.New("store without a preceding load")
	ErrWindow    = errors.New("bad address window")
)
