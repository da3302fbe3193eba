package dataset

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/cyclopcam/milvehicles/pkg/perfstats"
	"golang.org/x/sync/errgroup"
)

// Loader splits a Dataset into batches.
// A Loader is not safe for concurrent use, but several Loaders may share one Dataset.
type Loader struct {
	ds        *Dataset
	batchSize int
	shuffle   bool
	workers   int
	rng       *rand.Rand
	order     []int

	LoadTime perfstats.TimeAccumulator // Time taken by Dataset.Get, per sample
}

type LoaderOptions struct {
	BatchSize int   // Samples per batch. The last batch may be smaller.
	Shuffle   bool  // Shuffle the sample order on creation, and on every call to Shuffle()
	Seed      int64 // Seed for shuffling. Zero means time based.
	Workers   int   // Number of goroutines that load the samples of one batch. Values below 1 mean 1.
}

func NewLoader(ds *Dataset, opt LoaderOptions) (*Loader, error) {
	if opt.BatchSize <= 0 {
		return nil, fmt.Errorf("Invalid batch size %v", opt.BatchSize)
	}
	seed := opt.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	l := &Loader{
		ds:        ds,
		batchSize: opt.BatchSize,
		shuffle:   opt.Shuffle,
		workers:   max(opt.Workers, 1),
		rng:       rand.New(rand.NewSource(seed)),
		order:     make([]int, ds.Len()),
	}
	for i := range l.order {
		l.order[i] = i
	}
	l.Shuffle()
	return l, nil
}

// Shuffle reorders the samples for a new epoch. It does nothing if shuffling is disabled.
func (l *Loader) Shuffle() {
	if !l.shuffle {
		return
	}
	l.rng.Shuffle(len(l.order), func(i, j int) {
		l.order[i], l.order[j] = l.order[j], l.order[i]
	})
}

// Batches returns the number of batches per epoch
func (l *Loader) Batches() int {
	return (len(l.order) + l.batchSize - 1) / l.batchSize
}

// Indices returns the dataset indices that make up batch b
func (l *Loader) Indices(b int) []int {
	start := b * l.batchSize
	end := min(start+l.batchSize, len(l.order))
	return l.order[start:end]
}

// Batch loads and collates batch b.
// If any sample fails to load, the whole batch fails with that sample's error.
func (l *Loader) Batch(b int) (*Batch, error) {
	if b < 0 || b >= l.Batches() {
		return nil, fmt.Errorf("Batch %v out of range [0, %v)", b, l.Batches())
	}
	indices := l.Indices(b)
	samples := make([]*Sample, len(indices))

	var g errgroup.Group
	g.SetLimit(l.workers)
	for i, idx := range indices {
		g.Go(func() error {
			return l.LoadTime.Time(func() error {
				s, err := l.ds.Get(idx)
				if err != nil {
					return err
				}
				samples[i] = s
				return nil
			})
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return Collate(samples)
}

// Each calls fn for every batch of one epoch, in order, stopping at the first error
func (l *Loader) Each(fn func(b int, batch *Batch) error) error {
	for b := 0; b < l.Batches(); b++ {
		batch, err := l.Batch(b)
		if err != nil {
			return err
		}
		if err := fn(b, batch); err != nil {
			return err
		}
	}
	return nil
}
