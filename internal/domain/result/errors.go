package result

import "errors"

// ErrCorruptState is returned by a StateStore when persisted state cannot be
// decoded. Callers log it and continue with empty state.
var ErrCorruptState = errors.New("stored state is malformed")
