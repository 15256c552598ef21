package throttle

import (
	"sync"
	"time"
)

type BucketConf struct {
	Burst     int           `json:"burst"`     // maximum number of tokens in the bucket
	Increment int           `json:"increment"` // how many tokens to add each period
	Period    time.Duration `json:"-"`         // how often to add Increment
	PeriodSec int           `json:"period_sec"`
}

// Normalize fills Period from PeriodSec and guards against a zero period
func (c *BucketConf) Normalize() {
	if c.Period <= 0 {
		c.Period = time.Duration(c.PeriodSec) * time.Second
	}
	if c.Period <= 0 {
		c.Period = time.Second
	}
	if c.Increment <= 0 {
		c.Increment = 1
	}
	if c.Burst <= 0 {
		c.Burst = 1
	}
}

type Bucket[K comparable] struct {
	mu        sync.Mutex // protects access to bucket state
	tokens    int
	lastCheck time.Time
	conf      *BucketConf
}

// refill tokens
// Since this modifies the bucket's state, this should be wrapped by mutex lock/unlock
func (b *Bucket[K]) refill(now time.Time) {
	elapsed := now.Sub(b.lastCheck)
	if elapsed >= b.conf.Period {
		times := int(elapsed / b.conf.Period)
		b.tokens += times * b.conf.Increment
		if b.tokens > b.conf.Burst {
			b.tokens = b.conf.Burst
		}
		b.lastCheck = b.lastCheck.Add(time.Duration(times) * b.conf.Period)
	}
}

func (b *Bucket[K]) Allow(now time.Time) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.refill(now)
	if b.tokens <= 0 {
		return false
	}
	b.tokens--
	return true
}

// RetryAfter is the wait until the next token arrives
func (b *Bucket[K]) RetryAfter(now time.Time) time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()
	wait := b.lastCheck.Add(b.conf.Period).Sub(now)
	if wait < 0 {
		return 0
	}
	return wait
}

func (b *Bucket[K]) idleSince() time.Time {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastCheck
}

type BucketGroup[K comparable] struct {
	conf    *BucketConf
	buckets sync.Map // K -> *Bucket[K]
}

func (g *BucketGroup[K]) GetBucket(id K) (*Bucket[K], bool) {
	bAny, ok := g.buckets.Load(id)
	if !ok {
		return nil, false
	}
	return bAny.(*Bucket[K]), true
}

// bucket returns the bucket of id, creating a full one on first sight
func (g *BucketGroup[K]) bucket(id K, now time.Time) *Bucket[K] {
	if b, ok := g.GetBucket(id); ok {
		return b
	}
	bAny, _ := g.buckets.LoadOrStore(id, &Bucket[K]{
		tokens:    g.conf.Burst,
		lastCheck: now,
		conf:      g.conf,
	})
	return bAny.(*Bucket[K])
}
