package wait

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestUntilImmediate(t *testing.T) {
	var calls int32
	err := Until(context.Background(), Options{Timeout: time.Second, Interval: time.Hour}, func(context.Context) (bool, error) {
		atomic.AddInt32(&calls, 1)
		return true, nil
	})
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestUntilEventually(t *testing.T) {
	var calls int32
	start := time.Now()
	err := Until(context.Background(), Options{Timeout: 2 * time.Second, Interval: 10 * time.Millisecond}, func(context.Context) (bool, error) {
		return atomic.AddInt32(&calls, 1) >= 4, nil
	})
	require.NoError(t, err)
	assert.Equal(t, int32(4), atomic.LoadInt32(&calls))
	assert.Less(t, time.Since(start), time.Second)
}

func TestUntilTimeout(t *testing.T) {
	flaky := errors.New("selector not found")
	err := Until(context.Background(), Options{Timeout: 50 * time.Millisecond, Interval: 5 * time.Millisecond}, func(context.Context) (bool, error) {
		return false, flaky
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTimeout)
	assert.ErrorIs(t, err, flaky)

	var te *TimeoutError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, 50*time.Millisecond, te.Timeout)
}

func TestUntilPermanent(t *testing.T) {
	fatal := errors.New("page crashed")
	var calls int32
	err := Until(context.Background(), Options{Timeout: time.Second, Interval: time.Millisecond}, func(context.Context) (bool, error) {
		atomic.AddInt32(&calls, 1)
		return false, Permanent(fatal)
	})
	assert.Equal(t, fatal, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestUntilParentCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	err := Until(ctx, Options{Timeout: 5 * time.Second, Interval: 5 * time.Millisecond}, func(context.Context) (bool, error) {
		return false, nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, ErrTimeout)
}

func TestPermanentNil(t *testing.T) {
	assert.NoError(t, Permanent(nil))
}

func TestFor(t *testing.T) {
	err := For(context.Background(), 30*time.Millisecond, func(context.Context) (bool, error) {
		return false, nil
	})
	assert.ErrorIs(t, err, ErrTimeout)
}
