package message

import (
	"errors"
	"fmt"
)

// ErrVersion is wrapped when a message carries a version this package
// cannot decode.
var ErrVersion = errors.New("unsupported message version")

func versionError(what string, v uint8) error {
	return fmt.Errorf("%s version %d: %w", what, v, ErrVersion)
}
