package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/goleak"
)

type ctxKey struct{}

func TestCombineContext(t *testing.T) {
	defer goleak.VerifyNone(t)

	t.Run("keeps primary values", func(t *testing.T) {
		primary := context.WithValue(context.Background(), ctxKey{}, "tab")
		ctx, cancel := CombineContext(primary, context.Background())
		defer cancel()
		assert.Equal(t, "tab", ctx.Value(ctxKey{}))
	})

	t.Run("secondary cancels", func(t *testing.T) {
		secondary, cancelSecondary := context.WithTimeout(context.Background(), 10*time.Millisecond)
		defer cancelSecondary()
		ctx, cancel := CombineContext(context.Background(), secondary)
		defer cancel()

		select {
		case <-ctx.Done():
		case <-time.After(time.Second):
			t.Fatal("combined context was not cancelled")
		}
		assert.True(t, errors.Is(context.Cause(ctx), context.DeadlineExceeded))
	})

	t.Run("primary cancels", func(t *testing.T) {
		primary, cancelPrimary := context.WithCancel(context.Background())
		ctx, cancel := CombineContext(primary, context.Background())
		defer cancel()
		cancelPrimary()
		<-ctx.Done()
		assert.ErrorIs(t, ctx.Err(), context.Canceled)
	})

	t.Run("cancel func releases", func(t *testing.T) {
		ctx, cancel := CombineContext(context.Background(), context.Background())
		cancel()
		<-ctx.Done()
	})
}
