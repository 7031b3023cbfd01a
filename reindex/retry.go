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
package reindex

import (
	"context"
	"log/slog"
	"time"
)

// Retry runs op until it succeeds or maxAttempts is reached, sleeping
// baseDelay, 2*baseDelay, 4*baseDelay and so on between attempts. The
// error of the last attempt is returned; cancellation of ctx returns
// ctx.Err() instead.
func Retry(ctx context.Context, maxAttempts int, baseDelay time.Duration, op func(context.Context) error) error {
	if maxAttempts <= 0 {
		return ErrInvalidMaxAttempts
	}

	var err error
	for attempt := range maxAttempts {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		if err = op(ctx); err == nil {
			if attempt > 0 {
				slog.Debug("operation succeeded after retry", "attempt", attempt+1)
			}
			return nil
		}
		slog.Debug("operation failed", "attempt", attempt+1, "maxAttempts", maxAttempts, "err", err)

		if attempt == maxAttempts-1 {
			break
		}

		timer := time.NewTimer(baseDelay << attempt)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	return err
}
