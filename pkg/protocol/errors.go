package protocol

import (
	"errors"
	"fmt"
)

// ErrNonRetryable marks a node failure that retrying cannot fix.
var ErrNonRetryable = errors.New("non-retryable node failure")

// ErrInvalidConfig is returned when a node cannot be created from its configuration.
var ErrInvalidConfig = fmt.Errorf("%w: invalid node configuration", ErrNonRetryable)
