// internal/browser/session/context.go
package session

import "context"

// CombineContext derives a context from primary, keeping its values, that is
// also cancelled when secondary is done. chromedp actions need the values of
// the tab context while the caller's context carries the deadline.
func CombineContext(primary, secondary context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancelCause(primary)
	stop := context.AfterFunc(secondary, func() {
		cancel(context.Cause(secondary))
	})
	return ctx, func() {
		stop()
		cancel(context.Canceled)
	}
}
