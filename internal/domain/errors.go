package domain

import "errors"

// ErrNotFound covers missing reports and reports the caller may not see.
var ErrNotFound = errors.New("not found")
