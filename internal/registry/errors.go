package registry

import "errors"

// ErrDuplicateName is returned when a rename targets a name that is already
// taken in the uniqueness scope. It is a decision point for the caller, not
// a hard failure: pick another name or overwrite the existing record.
var ErrDuplicateName = errors.New("coordinate name already in use")
