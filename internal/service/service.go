package service

import (
	"context"
	"time"
)

// storeTimeout bounds every database call issued by the services, so a
// slow store surfaces as an unavailable error instead of stalling the
// caller's connection.
var storeTimeout = 5 * time.Second

// SetStoreTimeout overrides the store call deadline (from config)
func SetStoreTimeout(d time.Duration) {
	if d > 0 {
		storeTimeout = d
	}
}

func storeCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, storeTimeout)
}
