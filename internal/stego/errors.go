package stego

import "errors"

// ErrCapacity means the payload cannot be mapped onto the carrier, either the
// frame is too small for the coefficient layout or there are too few frames.
var ErrCapacity = errors.New("payload does not fit the carrier")
