// internal/pageindex/errors.go
package pageindex

import (
	"errors"
	"fmt"
)

// ErrElementNotFound is the sentinel matched by every failed element lookup.
var ErrElementNotFound = errors.New("element not found")

// ElementNotFoundError reports an id lookup that matched no element.
type ElementNotFoundError struct {
	ID string
}

func (e *ElementNotFoundError) Error() string {
	return fmt.Sprintf("no element with id '%s'", e.ID)
}

// Is makes errors.Is(err, ErrElementNotFound) succeed.
func (e *ElementNotFoundError) Is(target error) bool {
	return target == ErrElementNotFound
}
