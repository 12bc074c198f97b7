// internal/browser/jsbind/errors.go
package jsbind

import "fmt"

// ScriptError reports an inline script or a callback that threw or failed to
// compile. The recorder keeps going after a script error, like a browser does.
type ScriptError struct {
	// Source names what failed, e.g. "inline script #2" or "load handler".
	Source string
	Err    error
}

func (e *ScriptError) Error() string {
	return fmt.Sprintf("%s: %v", e.Source, e.Err)
}

// Unwrap provides the underlying goja error for use with errors.As.
func (e *ScriptError) Unwrap() error {
	return e.Err
}

// InvalidSelectorError is thrown into scripts for selectors that cannot be
// translated or evaluated.
type InvalidSelectorError struct {
	Selector string
}

func (e *InvalidSelectorError) Error() string {
	return fmt.Sprintf("invalid selector '%s'", e.Selector)
}
