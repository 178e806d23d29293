package rate

import (
	"errors"
	"fmt"
)

// ErrRateLimited means the attempt budget for a key is spent until its
// window expires.
var ErrRateLimited = errors.New("rate: attempt budget exhausted")

// ErrRedisUnavailable wraps every Redis failure seen by the limiter.
var ErrRedisUnavailable = errors.New("rate: redis unavailable")

func unavailable(err error) error {
	return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
}
