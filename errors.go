package framestream

import (
	"errors"
	"fmt"
)

var (
	ErrOutOfRange   = errors.New("position out of range")
	ErrInvalidInput = errors.New("invalid input")
	ErrUnsupported  = fmt.Errorf("read-only frame stream: %w", errors.ErrUnsupported)
)
