package confirm

import "errors"

// ErrEmptyPreWindow is returned when a candidate arrives with no buffered
// feature records inside its pre-window to build a baseline from.
var ErrEmptyPreWindow = errors.New("confirm: empty pre-window")
