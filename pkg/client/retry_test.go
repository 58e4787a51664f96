package client

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestDefaultRetryConfig(t *testing.T) {
	config := DefaultRetryConfig()

	if config.InitialBackoff != 1*time.Second {
		t.Errorf("InitialBackoff = %v, want 1s", config.InitialBackoff)
	}
	if config.MaxBackoff != 30*time.Second {
		t.Errorf("MaxBackoff = %v, want 30s", config.MaxBackoff)
	}
	if config.BackoffMultiplier != 2.0 {
		t.Errorf("BackoffMultiplier = %v, want 2.0", config.BackoffMultiplier)
	}
}

func TestRetryConfigForErrorClass(t *testing.T) {
	tests := []struct {
		name            string
		errorClass      ErrorClass
		expectedInitial time.Duration
		expectedMax     time.Duration
	}{
		{"server error config", ErrorClassServer, 1 * time.Second, 10 * time.Second},
		{"network error config", ErrorClassNetwork, 2 * time.Second, 30 * time.Second},
		{"unknown error class uses default", "", 1 * time.Second, 30 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := RetryConfigForErrorClass(tt.errorClass)

			if config.InitialBackoff != tt.expectedInitial {
				t.Errorf("InitialBackoff = %v, want %v", config.InitialBackoff, tt.expectedInitial)
			}
			if config.MaxBackoff != tt.expectedMax {
				t.Errorf("MaxBackoff = %v, want %v", config.MaxBackoff, tt.expectedMax)
			}
		})
	}
}

func TestRetrier_Backoff(t *testing.T) {
	r := retrier{maxAttempts: 10}

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{1, 1 * time.Second},
		{2, 2 * time.Second},
		{3, 4 * time.Second},
		{4, 8 * time.Second},
		{5, 10 * time.Second},
		{9, 10 * time.Second},
	}

	for _, tt := range tests {
		if got := r.backoff(ErrorClassServer, tt.attempt); got != tt.want {
			t.Errorf("backoff(server, %d) = %v, want %v", tt.attempt, got, tt.want)
		}
	}

	fast := retrier{maxAttempts: 3, initialBackoff: time.Millisecond}
	if got := fast.backoff(ErrorClassNetwork, 2); got != 2*time.Millisecond {
		t.Errorf("backoff with override = %v, want 2ms", got)
	}
}

func serverClass(error) ErrorClass { return ErrorClassServer }

func TestRetrier_Success(t *testing.T) {
	callCount := 0
	err := retrier{maxAttempts: 3, initialBackoff: time.Millisecond}.do(context.Background(), func() error {
		callCount++
		return nil
	}, serverClass)

	if err != nil {
		t.Errorf("Expected no error, got %v", err)
	}
	if callCount != 1 {
		t.Errorf("Expected 1 call, got %d", callCount)
	}
}

func TestRetrier_SuccessAfterRetry(t *testing.T) {
	callCount := 0
	err := retrier{maxAttempts: 3, initialBackoff: time.Millisecond}.do(context.Background(), func() error {
		callCount++
		if callCount < 3 {
			return errors.New("temporary error")
		}
		return nil
	}, serverClass)

	if err != nil {
		t.Errorf("Expected no error, got %v", err)
	}
	if callCount != 3 {
		t.Errorf("Expected 3 calls, got %d", callCount)
	}
}

func TestRetrier_MaxAttemptsExhausted(t *testing.T) {
	callCount := 0
	testErr := errors.New("persistent error")
	err := retrier{maxAttempts: 3, initialBackoff: time.Millisecond}.do(context.Background(), func() error {
		callCount++
		return testErr
	}, serverClass)

	if !errors.Is(err, ErrRetryExhausted) {
		t.Errorf("Expected ErrRetryExhausted, got %v", err)
	}
	if !errors.Is(err, testErr) {
		t.Errorf("Expected wrapped original error, got %v", err)
	}
	if callCount != 3 {
		t.Errorf("Expected 3 calls (MaxAttempts), got %d", callCount)
	}
}

func TestRetrier_SingleAttemptReturnsOriginalError(t *testing.T) {
	callCount := 0
	testErr := errors.New("server error")
	err := retrier{maxAttempts: 1}.do(context.Background(), func() error {
		callCount++
		return testErr
	}, serverClass)

	if err != testErr {
		t.Errorf("Expected original error, got %v", err)
	}
	if callCount != 1 {
		t.Errorf("Expected 1 call, got %d", callCount)
	}
}

func TestRetrier_NonRetryableClasses(t *testing.T) {
	for _, class := range []ErrorClass{ErrorClassClient, ErrorClassRateLimit} {
		t.Run(string(class), func(t *testing.T) {
			callCount := 0
			testErr := errors.New("permanent")
			err := retrier{maxAttempts: 5, initialBackoff: time.Millisecond}.do(context.Background(), func() error {
				callCount++
				return testErr
			}, func(error) ErrorClass { return class })

			if callCount != 1 {
				t.Errorf("Expected 1 call, got %d", callCount)
			}
			if errors.Is(err, ErrRetryExhausted) {
				t.Error("Should not return ErrRetryExhausted when no retry was attempted")
			}
			if !errors.Is(err, testErr) {
				t.Errorf("Expected original error, got %v", err)
			}
		})
	}
}

func TestRetrier_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	callCount := 0
	err := retrier{maxAttempts: 3, initialBackoff: time.Hour}.do(ctx, func() error {
		callCount++
		cancel()
		return errors.New("temporary error")
	}, serverClass)

	if !errors.Is(err, ErrContextCancelled) {
		t.Errorf("Expected ErrContextCancelled, got %v", err)
	}
	if callCount != 1 {
		t.Errorf("Expected 1 call before cancellation, got %d", callCount)
	}
}
