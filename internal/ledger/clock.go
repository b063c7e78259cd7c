package ledger

import (
	"sync/atomic"
	"time"
)

// Clock supplies the wall time stamped on ModifiedAt.
type Clock interface {
	Now() time.Time
}

// SystemClock reads time.Now in UTC.
type SystemClock struct{}

// Now returns the current UTC time.
func (SystemClock) Now() time.Time {
	return time.Now().UTC()
}

// sequence is a monotonic mutation counter.
//
// Wall clocks can repeat or step backwards, so entries also carry the seq of
// their last mutation. List sorts by ModifiedAt and breaks ties with seq,
// which keeps "most recent first" exact even for mutations in the same tick.
type sequence struct {
	seq atomic.Int64
}

// resumeAt moves the counter forward to start. It never moves backwards.
func (s *sequence) resumeAt(start int64) {
	if start > s.seq.Load() {
		s.seq.Store(start)
	}
}

// next returns the next sequence number and increments the counter.
func (s *sequence) next() int64 {
	return s.seq.Add(1)
}
