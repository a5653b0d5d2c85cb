package transcribe

import "sync"

// Breaker stops a batch after Threshold consecutive transcription failures,
// so a broken model is not invoked for every remaining file.
type Breaker struct {
	mu        sync.Mutex
	failures  int
	threshold int
}

// NewBreaker creates a breaker with the given threshold; <= 0 means 3.
func NewBreaker(threshold int) *Breaker {
	if threshold <= 0 {
		threshold = 3
	}
	return &Breaker{threshold: threshold}
}

// Record counts a failure (err != nil) or resets the count on success.
func (b *Breaker) Record(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err != nil {
		b.failures++
		return
	}
	b.failures = 0
}

// Tripped reports whether the threshold has been reached.
func (b *Breaker) Tripped() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.failures >= b.threshold
}

// Failures returns the current consecutive failure count.
func (b *Breaker) Failures() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.failures
}
