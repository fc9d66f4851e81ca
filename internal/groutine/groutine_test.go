package groutine

import (
	"context"
	"runtime/pprof"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGoNamesGoroutine(t *testing.T) {
	type observed struct {
		name  string
		label string
	}
	done := make(chan observed, 1)

	Go(nil, "vario-events", func(ctx context.Context) {
		label, _ := pprof.Label(ctx, "goroutine_name")
		done <- observed{name: GetName(ctx), label: label}
	})

	select {
	case got := <-done:
		assert.Equal(t, "vario-events", got.name)
		assert.Equal(t, "vario-events", got.label, "pprof label MUST carry the goroutine name")
	case <-time.After(time.Second):
		t.Fatal("goroutine did not run")
	}
}

func TestGoRecoversPanic(t *testing.T) {
	type recovered struct {
		name  string
		value any
	}
	got := make(chan recovered, 1)

	prev := PanicHandler
	PanicHandler = func(name string, r any) { got <- recovered{name, r} }
	t.Cleanup(func() { PanicHandler = prev })

	Go(context.Background(), "faulty", func(context.Context) {
		panic("boom")
	})

	select {
	case r := <-got:
		assert.Equal(t, "faulty", r.name)
		assert.Equal(t, "boom", r.value)
	case <-time.After(time.Second):
		require.Fail(t, "panic was not reported")
	}
}

func TestGetNameWithoutName(t *testing.T) {
	assert.Empty(t, GetName(nil)) //nolint:staticcheck
	assert.Empty(t, GetName(context.Background()))
}
