package frame

import "errors"

var (
	ErrTooShort       = errors.New("frame: buffer shorter than header")
	ErrInconsistentLen = errors.New("frame: payload length inconsistent with buffer")
	ErrBadClass       = errors.New("frame: invalid protocol class")
)
