package httpx

import (
	"math/rand"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

var rng = struct {
	mu sync.Mutex
	r  *rand.Rand
}{
	r: rand.New(rand.NewSource(time.Now().UnixNano())),
}

// Jitter returns a uniformly random duration in [0, max].
func Jitter(max time.Duration) time.Duration {
	if max <= 0 {
		return 0
	}
	rng.mu.Lock()
	n := rng.r.Int63n(int64(max) + 1)
	rng.mu.Unlock()
	return time.Duration(n)
}

// RetryAfter parses a Retry-After header value given either as seconds or as
// an HTTP date.
func RetryAfter(v string) (time.Duration, bool) {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0, false
	}
	if n, err := strconv.Atoi(v); err == nil && n >= 0 {
		return time.Duration(n) * time.Second, true
	}
	if t, err := http.ParseTime(v); err == nil {
		d := time.Until(t)
		if d < 0 {
			d = 0
		}
		return d, true
	}
	return 0, false
}
