package service

import (
	"context"
	"time"
)

const defaultStatusInterval = time.Second

type statusSource interface {
	Status(ctx context.Context) Status
}

type statusSink interface {
	PublishStatus(Status)
	Subscribers() int
}

// StatusBroadcaster pushes status snapshots to live subscribers while a run
// is active, plus one final snapshot after it ends.
type StatusBroadcaster struct {
	src  statusSource
	sink statusSink
	tick time.Duration
}

func NewStatusBroadcaster(src statusSource, sink statusSink, tick time.Duration) *StatusBroadcaster {
	if tick <= 0 {
		tick = defaultStatusInterval
	}
	return &StatusBroadcaster{src: src, sink: sink, tick: tick}
}

// Run ticks at the configured interval until ctx is canceled.
func (b *StatusBroadcaster) Run(ctx context.Context) {
	t := time.NewTicker(b.tick)
	defer t.Stop()

	var last Status
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			st := b.src.Status(ctx)
			if b.sink.Subscribers() == 0 {
				last = st
				continue
			}
			if st.Running() || changed(last, st) {
				b.sink.PublishStatus(st)
			}
			last = st
		}
	}
}

func changed(prev, cur Status) bool {
	return prev.State != cur.State || prev.SessionID != cur.SessionID || prev.Label != cur.Label
}
