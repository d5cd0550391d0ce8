package content

import (
	"errors"
	"fmt"
	"math"
	"slices"

	"github.com/zjrosen/pflow/internal/arena"
)

// ClusterHit is a cluster's view of one of its calo hits. Hits never change
// after creation, so the cached fields stay valid while the hit is alive.
type ClusterHit struct {
	Hit         arena.Handle
	Position    Vector
	Energy      float64
	PseudoLayer uint32
}

// HitOf builds the ClusterHit for a managed calo hit.
func HitOf(h arena.Handle, hit *CaloHit) ClusterHit {
	return ClusterHit{Hit: h, Position: hit.Position, Energy: hit.Energy, PseudoLayer: hit.PseudoLayer}
}

// ClusterParameters seed a new cluster with one or more hits.
type ClusterParameters struct {
	Hits []ClusterHit
}

// Cluster is a group of calo hits plus the tracks associated with it.
type Cluster struct {
	hits     []ClusterHit
	index    map[arena.Handle]struct{}
	energy   float64
	weighted Vector
	tracks   []arena.Handle
}

var ErrDuplicateHit = errors.New("hit already in cluster")

// NewCluster builds a cluster from p.
func NewCluster(p ClusterParameters) (*Cluster, error) {
	if len(p.Hits) == 0 {
		return nil, errors.New("cluster needs at least one hit")
	}
	c := &Cluster{index: make(map[arena.Handle]struct{}, len(p.Hits))}
	for _, h := range p.Hits {
		if err := c.AddHit(h); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// AddHit adds h to the cluster.
func (c *Cluster) AddHit(h ClusterHit) error {
	if _, ok := c.index[h.Hit]; ok {
		return fmt.Errorf("%w: %v", ErrDuplicateHit, h.Hit)
	}
	c.add(h)
	return nil
}

// add appends a hit known not to be in the cluster.
func (c *Cluster) add(h ClusterHit) {
	c.index[h.Hit] = struct{}{}
	c.hits = append(c.hits, h)
	c.energy += h.Energy
	c.weighted = c.weighted.Add(h.Position.Scale(h.Energy))
}

// ContainsHit reports whether h belongs to the cluster.
func (c *Cluster) ContainsHit(h arena.Handle) bool {
	_, ok := c.index[h]
	return ok
}

// Hits returns the hits ordered by pseudo layer, then insertion order.
func (c *Cluster) Hits() []ClusterHit {
	out := slices.Clone(c.hits)
	slices.SortStableFunc(out, func(a, b ClusterHit) int {
		switch {
		case a.PseudoLayer < b.PseudoLayer:
			return -1
		case a.PseudoLayer > b.PseudoLayer:
			return 1
		}
		return 0
	})
	return out
}

// HitHandles returns the handles of the cluster's hits in insertion order.
func (c *Cluster) HitHandles() []arena.Handle {
	out := make([]arena.Handle, len(c.hits))
	for i, h := range c.hits {
		out[i] = h.Hit
	}
	return out
}

func (c *Cluster) NHits() int { return len(c.hits) }

// Energy is the summed hit energy.
func (c *Cluster) Energy() float64 { return c.energy }

// Centroid is the energy-weighted mean hit position. Clusters without energy
// use the plain mean.
func (c *Cluster) Centroid() Vector {
	if len(c.hits) == 0 {
		return Vector{}
	}
	if c.energy > 0 {
		return c.weighted.Scale(1 / c.energy)
	}
	var sum Vector
	for _, h := range c.hits {
		sum = sum.Add(h.Position)
	}
	return sum.Scale(1 / float64(len(c.hits)))
}

// InnerPseudoLayer returns the lowest pseudo layer with a hit.
func (c *Cluster) InnerPseudoLayer() uint32 {
	if len(c.hits) == 0 {
		return 0
	}
	inner := uint32(math.MaxUint32)
	for _, h := range c.hits {
		inner = min(inner, h.PseudoLayer)
	}
	return inner
}

// OuterPseudoLayer returns the highest pseudo layer with a hit.
func (c *Cluster) OuterPseudoLayer() uint32 {
	var outer uint32
	for _, h := range c.hits {
		outer = max(outer, h.PseudoLayer)
	}
	return outer
}

// AddTrack associates a track with the cluster. It is a no-op for a track
// that is already associated.
func (c *Cluster) AddTrack(t arena.Handle) {
	if !slices.Contains(c.tracks, t) {
		c.tracks = append(c.tracks, t)
	}
}

// RemoveTrack drops an association and reports whether it existed.
func (c *Cluster) RemoveTrack(t arena.Handle) bool {
	i := slices.Index(c.tracks, t)
	if i < 0 {
		return false
	}
	c.tracks = slices.Delete(c.tracks, i, i+1)
	return true
}

// ClearTracks drops every track association.
func (c *Cluster) ClearTracks() { c.tracks = nil }

// Tracks returns the associated tracks in association order.
func (c *Cluster) Tracks() []arena.Handle { return slices.Clone(c.tracks) }

// Merge moves other's hits and track associations into c. Clusters sharing
// a hit are rejected and c is left unchanged.
func (c *Cluster) Merge(other *Cluster) error {
	if other == c {
		return errors.New("cannot merge a cluster into itself")
	}
	for _, h := range other.hits {
		if c.ContainsHit(h.Hit) {
			return fmt.Errorf("%w: %v", ErrDuplicateHit, h.Hit)
		}
	}
	for _, h := range other.hits {
		c.add(h)
	}
	for _, t := range other.tracks {
		c.AddTrack(t)
	}
	return nil
}

// IsEmpty reports a cluster without hits.
func (c *Cluster) IsEmpty() bool { return len(c.hits) == 0 }

// TrackDistance returns the smallest perpendicular distance between a hit in
// the first maxSearchLayer pseudo layers and the line of any track state,
// ignoring hits further than parallelCut along the track. It reports false
// when no hit qualifies.
func (c *Cluster) TrackDistance(t *Track, maxSearchLayer uint32, parallelCut float64) (float64, bool) {
	if len(c.hits) == 0 || c.InnerPseudoLayer() > maxSearchLayer {
		return 0, false
	}
	best := math.MaxFloat64
	found := false
	for _, state := range t.States() {
		dir := state.Momentum.Unit()
		for _, h := range c.hits {
			if h.PseudoLayer > maxSearchLayer {
				continue
			}
			diff := h.Position.Sub(state.Position)
			if math.Abs(dir.Dot(diff)) > parallelCut {
				continue
			}
			if d := dir.Cross(diff).Mag(); d < best {
				best, found = d, true
			}
		}
	}
	return best, found
}
