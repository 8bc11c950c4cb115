package bitfield

import "errors"

var (
	ErrUnsupportedWidth = errors.New("unsupported register width")
	ErrRegisterMismatch = errors.New("masks belong to different registers")
	ErrUnknownAccess    = errors.New("unknown access mode")
)
