// Package perfstats accumulates timings of repeated operations, such as decoding
// the images of a dataset.
package perfstats

import (
	"sync"
	"time"
)

// Accumulate samples of how long something took.
// A TimeAccumulator may be shared by multiple goroutines.
type TimeAccumulator struct {
	mutex   sync.Mutex
	samples int64
	total   time.Duration
	longest time.Duration
}

func (a *TimeAccumulator) Reset() {
	a.mutex.Lock()
	defer a.mutex.Unlock()
	a.samples = 0
	a.total = 0
	a.longest = 0
}

func (a *TimeAccumulator) AddSample(v time.Duration) {
	a.mutex.Lock()
	defer a.mutex.Unlock()
	a.samples++
	a.total += v
	a.longest = max(a.longest, v)
}

// Time runs fn and records how long it took
func (a *TimeAccumulator) Time(fn func() error) error {
	start := time.Now()
	err := fn()
	a.AddSample(time.Since(start))
	return err
}

// TimeSummary is a snapshot of a TimeAccumulator
type TimeSummary struct {
	Samples int64
	Total   time.Duration
	Average time.Duration
	Longest time.Duration
}

func (a *TimeAccumulator) Summary() TimeSummary {
	a.mutex.Lock()
	defer a.mutex.Unlock()
	s := TimeSummary{
		Samples: a.samples,
		Total:   a.total,
		Longest: a.longest,
	}
	if a.samples != 0 {
		s.Average = time.Duration(a.total.Nanoseconds() / a.samples)
	}
	return s
}
