package groutine

import (
	"context"
	"runtime/debug"
	"runtime/pprof"

	"github.com/sirupsen/logrus"
)

type ctxKey string

const goroutineNameKey ctxKey = "goroutine_name"

// PanicHandler is called with the goroutine name and recovered value when a
// goroutine started by Go panics. Tests may replace it.
var PanicHandler = func(name string, recovered any) {
	logrus.WithFields(logrus.Fields{
		"goroutine": name,
		"panic":     recovered,
		"stack":     string(debug.Stack()),
	}).Error("Goroutine panicked")
}

// Go starts a named goroutine. The name is attached as a pprof label and is
// available to fn through GetName. A panic in fn is recovered and handed to
// PanicHandler instead of crashing the process.
//
//	groutine.Go(ctx, "vario-events", func(ctx context.Context) {
//	    // work
//	})
//
// If parentCtx is nil, context.Background() is used.
func Go(parentCtx context.Context, name string, fn func(ctx context.Context)) {
	if parentCtx == nil {
		parentCtx = context.Background()
	}

	labels := pprof.Labels("goroutine_name", name)

	go pprof.Do(parentCtx, labels, func(ctx context.Context) {
		defer func() {
			if r := recover(); r != nil {
				PanicHandler(name, r)
			}
		}()
		ctx = context.WithValue(ctx, goroutineNameKey, name)
		fn(ctx)
	})
}

// GetName retrieves the goroutine name from the context.
func GetName(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v := ctx.Value(goroutineNameKey); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}
