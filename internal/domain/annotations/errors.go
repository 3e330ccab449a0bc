package annotations

import "errors"

// ErrNotFound indicates no annotation record exists for the image identifier.
var ErrNotFound = errors.New("annotation record not found")
