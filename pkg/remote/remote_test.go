package remote

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/6999-web/teaching-research-data-intergrated-management-platform-sub000/config"
)

func fastPolicy(n int) config.RetryConfig {
	return config.RetryConfig{MaxAttempts: n, InitialInterval: time.Millisecond, MaxInterval: 2 * time.Millisecond}
}

func TestRetry_StopsAtMaxAttempts(t *testing.T) {
	calls := 0
	retries := 0
	err := Retry(context.Background(), fastPolicy(3), func(int) error {
		calls++
		return Classify(&StatusError{Code: 503})
	}, func(int, error, time.Duration) { retries++ })

	assert.Error(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, 2, retries)
}

func TestRetry_4xxIsPermanent(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), fastPolicy(3), func(int) error {
		calls++
		return Classify(&StatusError{Code: 400, Body: "bad request"})
	}, nil)

	var se *StatusError
	assert.True(t, errors.As(err, &se))
	assert.Equal(t, 400, se.Code)
	assert.Equal(t, 1, calls)
}

func TestRetry_SucceedsAfterTransient(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), fastPolicy(3), func(attempt int) error {
		calls++
		if attempt < 2 {
			return Classify(&net.OpError{Op: "dial", Err: errors.New("connection refused")})
		}
		return nil
	}, nil)

	assert.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestClassify(t *testing.T) {
	assert.Nil(t, Classify(nil))
	assert.Equal(t, context.DeadlineExceeded, Classify(context.DeadlineExceeded))

	plain := errors.New("json: bad")
	assert.NotEqual(t, plain, Classify(plain))
	assert.ErrorIs(t, Classify(plain), plain)
}

func TestIsTransient(t *testing.T) {
	assert.True(t, IsTransient(&StatusError{Code: 502}))
	assert.False(t, IsTransient(&StatusError{Code: 404}))
	assert.True(t, IsTransient(context.DeadlineExceeded))
	assert.False(t, IsTransient(errors.New("x")))
	assert.False(t, IsTransient(nil))
}
