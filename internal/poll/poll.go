/*
 *     Copyright 2025 The CNAI Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *      http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package poll

import (
	"context"
	"errors"
	"fmt"
	"time"

	retry "github.com/avast/retry-go/v4"
)

// ErrTimeout is returned when the condition is not met within the policy timeout.
var ErrTimeout = errors.New("timed out waiting for condition")

var errNotReady = errors.New("condition not met")

// Condition reports whether the awaited state is reached. A returned error
// aborts the polling.
type Condition func(ctx context.Context) (bool, error)

// Policy polls a condition at a fixed interval until it holds or the timeout elapses.
type Policy struct {
	Interval time.Duration
	Timeout  time.Duration

	// Timer overrides the clock used between attempts.
	Timer retry.Timer
}

// Attempts returns how many times the condition is checked, at least once.
func (p Policy) Attempts() uint {
	if p.Interval <= 0 {
		return 1
	}

	return uint(p.Timeout/p.Interval) + 1
}

// Until checks the condition until it holds. It returns ErrTimeout once every
// attempt failed or the timeout elapsed, and the context error when ctx is done first.
// The timeout is a deadline for the whole polling, slow attempts included.
func (p Policy) Until(ctx context.Context, cond Condition) error {
	pollCtx, cancel := context.WithCancel(ctx)
	if p.Timeout > 0 {
		pollCtx, cancel = context.WithTimeout(ctx, p.Timeout)
	}
	defer cancel()

	opts := []retry.Option{
		retry.Context(pollCtx),
		retry.Attempts(p.Attempts()),
		retry.Delay(p.Interval),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			return errors.Is(err, errNotReady)
		}),
	}
	if p.Timer != nil {
		opts = append(opts, retry.WithTimer(p.Timer))
	}

	err := retry.Do(func() error {
		ok, err := cond(pollCtx)
		if err != nil {
			return err
		}
		if !ok {
			return errNotReady
		}

		return nil
	}, opts...)

	switch {
	case err == nil:
		return nil
	case ctx.Err() != nil:
		return ctx.Err()
	case errors.Is(err, errNotReady), pollCtx.Err() != nil:
		return fmt.Errorf("%w after %s", ErrTimeout, p.Timeout)
	default:
		return err
	}
}
