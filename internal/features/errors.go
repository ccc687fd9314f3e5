package features

import (
	"errors"
	"fmt"
)

// ErrBadInputTick is returned when a tick violates the Feature Engine's
// input contract: non-finite fields, non-positive price, negative
// volume, or a timestamp regression within the symbol.
var ErrBadInputTick = errors.New("bad input tick")

func badTick(reason string) error {
	return fmt.Errorf("%w: %s", ErrBadInputTick, reason)
}
