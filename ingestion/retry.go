// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package ingestion

import (
	"context"
	"log/slog"
	"time"

	"github.com/poiesic/lectern/ai"
)

// Backoff returns the delay after failed attempt (zero-based) of the batch
// with the given index.
type Backoff func(attempt, batchIndex int) time.Duration

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// DefaultBackoff waits 2^attempt seconds plus 100ms per (batchIndex mod 5).
func DefaultBackoff(attempt, batchIndex int) time.Duration {
	return time.Duration(1<<attempt)*time.Second + time.Duration(batchIndex%5)*100*time.Millisecond
}

// Sleep waits for d, returning early with the context error if ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	select {
	case <-ctx.Done():
		timer.Stop()
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// retryRateLimited runs operation up to maxAttempts times. Only rate-limit
// errors are retried; anything else is returned immediately. After the last
// attempt the final error is returned.
func retryRateLimited(ctx context.Context, operation func(context.Context) error, maxAttempts int, delay func(attempt int) time.Duration, sleep SleepFunc, logger *slog.Logger) error {
	if maxAttempts <= 0 {
		return ErrInvalidMaxAttempts
	}

	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = operation(ctx)
		if lastErr == nil {
			if attempt > 0 {
				logger.Debug("operation succeeded after retry", "attempt", attempt+1)
			}
			return nil
		}

		if !ai.IsRateLimited(lastErr) || attempt == maxAttempts-1 {
			return lastErr
		}

		wait := delay(attempt)
		logger.Warn("rate limited, retrying", "attempt", attempt+1, "maxAttempts", maxAttempts, "delay", wait)
		if err := sleep(ctx, wait); err != nil {
			return err
		}
	}
	return lastErr
}
