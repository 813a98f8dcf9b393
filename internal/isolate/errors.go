package isolate

import "errors"

// Returned when the isolated process could not be started or supervised,
// as opposed to the launched command itself exiting non-zero.
var ErrProcess = errors.New("process failure")
