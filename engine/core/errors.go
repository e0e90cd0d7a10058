package core

import (
	"errors"
)

var (
	ErrUnknownLogLevel = errors.New("unknown log level")
	ErrUnknown         = errors.New("unknown")
)
