package plan

import "errors"

var (
	ErrEmptyGroup = errors.New("no masks to merge")
	ErrNoProgram  = errors.New("empty program")
	ErrMalformed  = errors.New("malformed program")
)
