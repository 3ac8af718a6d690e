package service

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type countingReloader struct {
	calls atomic.Int32
	err   error
}

func (r *countingReloader) Reload() error {
	r.calls.Add(1)
	return r.err
}

func TestReloadServiceRunsOnStartAndTicks(t *testing.T) {
	target := &countingReloader{}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	NewReloadService(target, 10*time.Millisecond).Start(ctx)
	assert.Eventually(t, func() bool { return target.calls.Load() >= 3 }, time.Second, 5*time.Millisecond)

	cancel()
	time.Sleep(30 * time.Millisecond)
	stopped := target.calls.Load()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, stopped, target.calls.Load(), "ctx 结束后不应继续重载")
}

func TestReloadServiceWithoutInterval(t *testing.T) {
	target := &countingReloader{err: errors.New("missing file")}
	NewReloadService(target, 0).Start(context.Background())

	assert.Eventually(t, func() bool { return target.calls.Load() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, int32(1), target.calls.Load())
}
