// Package store holds the SQL repositories for conversations, messages,
// diagram versions, and modification audit records.
package store

import (
	"errors"
)

// ErrNotFound is returned when a referenced record does not exist. Callers
// surface it as a "not found" condition rather than a pipeline failure.
var ErrNotFound = errors.New("record not found")
