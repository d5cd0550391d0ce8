// Package testutil provides builders for reconstruction test events.
package testutil

import (
	"github.com/zjrosen/pflow/internal/content"
	"github.com/zjrosen/pflow/internal/event"
)

// Builder accumulates hits and tracks for one event.
type Builder struct {
	index  int
	hits   []content.CaloHitParameters
	tracks []content.TrackParameters
}

// NewBuilder starts an event with the given index.
func NewBuilder(index int) *Builder {
	return &Builder{index: index}
}

// WithHit adds an ECal hit at (x, y, 0) with optional configuration.
func (b *Builder) WithHit(x, y float64, opts ...HitOption) *Builder {
	h := defaultHit(x, y)
	for _, opt := range opts {
		opt(&h)
	}
	b.hits = append(b.hits, h)
	return b
}

// WithHitLine adds n hits spaced step apart along x, starting at (x, y)
// in layer 0 and going one layer deeper per hit. The energy is split evenly.
func (b *Builder) WithHitLine(x, y, step float64, n int, energy float64) *Builder {
	for i := 0; i < n; i++ {
		b.WithHit(x+float64(i)*step, y, Energy(energy/float64(n)), Layer(uint32(i)))
	}
	return b
}

// WithTrack adds a track with momentum p whose ECal state sits at the first
// hit position, or at the origin when there are no hits.
func (b *Builder) WithTrack(p content.Vector, opts ...TrackOption) *Builder {
	t := content.TrackParameters{Momentum: p, Charge: 1, StateAtECal: content.TrackState{Momentum: p}}
	if len(b.hits) > 0 {
		t.StateAtECal.Position = b.hits[0].Position
	}
	for _, opt := range opts {
		opt(&t)
	}
	b.tracks = append(b.tracks, t)
	return b
}

// Build returns the event.
func (b *Builder) Build() event.Event {
	return event.Event{
		Index:    b.index,
		CaloHits: append([]content.CaloHitParameters(nil), b.hits...),
		Tracks:   append([]content.TrackParameters(nil), b.tracks...),
	}
}
