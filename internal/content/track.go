package content

import "fmt"

// TrackState is a track position and momentum at some reference surface.
type TrackState struct {
	Position Vector `yaml:"position"`
	Momentum Vector `yaml:"momentum"`
}

// TrackParameters describe a reconstructed track as read from an event.
type TrackParameters struct {
	Momentum    Vector       `yaml:"momentum"`
	Charge      int          `yaml:"charge"`
	StateAtECal TrackState   `yaml:"state_at_ecal"`
	Projections []TrackState `yaml:"projections,omitempty"`
}

// Track is an immutable charged-particle track.
type Track struct {
	Momentum    Vector
	Charge      int
	StateAtECal TrackState
	Projections []TrackState
}

// NewTrack validates p and builds a track.
func NewTrack(p TrackParameters) (*Track, error) {
	if p.Momentum.Mag() == 0 {
		return nil, fmt.Errorf("track momentum is zero")
	}
	if p.Charge < -1 || p.Charge > 1 {
		return nil, fmt.Errorf("track charge %d out of range", p.Charge)
	}
	if p.StateAtECal.Momentum.Mag() == 0 {
		p.StateAtECal.Momentum = p.Momentum
	}
	return &Track{
		Momentum:    p.Momentum,
		Charge:      p.Charge,
		StateAtECal: p.StateAtECal,
		Projections: append([]TrackState(nil), p.Projections...),
	}, nil
}

// States returns the ECal state followed by every calorimeter projection.
func (t *Track) States() []TrackState {
	return append([]TrackState{t.StateAtECal}, t.Projections...)
}

func (t *Track) Merge(*Track) error { return ErrNotMergeable }

func (t *Track) IsEmpty() bool { return false }
