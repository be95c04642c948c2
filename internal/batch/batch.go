// Package batch holds the ordered samples of one acquisition run.
package batch

import (
	"errors"
	"sync"

	"mindtv/internal/models"
)

var (
	ErrBatchClosed   = errors.New("batch closed")
	ErrAlreadyClosed = errors.New("batch already closed")
)

// Batch is the open, append-only side. The engine owns it while a run is active.
type Batch struct {
	mu      sync.Mutex
	samples []models.Sample
	closed  bool
}

// New returns an empty open batch.
func New() *Batch {
	return &Batch{samples: make([]models.Sample, 0, 256)}
}

// Append adds s at the end. It fails with ErrBatchClosed after Close.
func (b *Batch) Append(s models.Sample) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrBatchClosed
	}
	b.samples = append(b.samples, s)
	return nil
}

// Len is safe to call from other goroutines while the batch is filling.
func (b *Batch) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.samples)
}

// Close seals the batch and hands the samples over. Only the first call succeeds.
func (b *Batch) Close() (*Closed, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, ErrAlreadyClosed
	}
	b.closed = true
	out := &Closed{samples: b.samples}
	b.samples = nil
	return out, nil
}

// Closed is an immutable batch; any number of goroutines may read it.
type Closed struct {
	samples []models.Sample
}

// FromSamples builds a closed batch from already validated samples, e.g. rows loaded from storage.
func FromSamples(samples []models.Sample) *Closed {
	cp := make([]models.Sample, len(samples))
	copy(cp, samples)
	return &Closed{samples: cp}
}

func (c *Closed) Len() int { return len(c.samples) }

func (c *Closed) At(i int) models.Sample { return c.samples[i] }

// Samples returns a copy of the samples in arrival order.
func (c *Closed) Samples() []models.Sample {
	cp := make([]models.Sample, len(c.samples))
	copy(cp, c.samples)
	return cp
}
