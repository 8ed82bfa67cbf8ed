package model

import "github.com/m-mizutani/goerr/v2"

// ErrNotFound is wrapped by repository backends when a requested record
// does not exist. Callers match it with errors.Is.
var ErrNotFound = goerr.New("record not found")
