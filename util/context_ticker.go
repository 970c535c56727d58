package util

import (
	"context"
	"time"
)

// ContextTick invokes onTick immediately and then once per interval until
// ctx is cancelled. The immediate call means periodic maintenance starts
// working right after boot instead of idling for a full interval.
func ContextTick(ctx context.Context, interval time.Duration, onTick func()) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if ctx.Err() != nil {
			return
		}

		onTick()

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
