package coordinate

import "errors"

// ErrInvalid marks a record that fails boundary validation. Callers match it
// with errors.Is; the wrapping message carries the specific field.
var ErrInvalid = errors.New("invalid coordinate")
