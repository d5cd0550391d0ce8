package content

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zjrosen/pflow/internal/arena"
)

func hitHandles(n int) []arena.Handle {
	store := arena.New[int]()
	hs := make([]arena.Handle, n)
	for i := range hs {
		hs[i] = store.Create(i)
	}
	return hs
}

func TestNewCaloHit(t *testing.T) {
	tests := []struct {
		name    string
		params  CaloHitParameters
		wantErr bool
	}{
		{name: "valid", params: CaloHitParameters{Energy: 1, CellSize: 10, Detector: HCal}},
		{name: "default detector", params: CaloHitParameters{Energy: 1, CellSize: 10}},
		{name: "negative energy", params: CaloHitParameters{Energy: -1, CellSize: 10}, wantErr: true},
		{name: "zero cell", params: CaloHitParameters{Energy: 1}, wantErr: true},
		{name: "unknown detector", params: CaloHitParameters{Energy: 1, CellSize: 10, Detector: "muon"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hit, err := NewCaloHit(tt.params)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.NotEmpty(t, hit.Detector)
			require.False(t, hit.IsEmpty())
			require.ErrorIs(t, hit.Merge(hit), ErrNotMergeable)
		})
	}
}

func TestNewTrack(t *testing.T) {
	_, err := NewTrack(TrackParameters{})
	require.Error(t, err)

	_, err = NewTrack(TrackParameters{Momentum: Vector{Z: 1}, Charge: 2})
	require.Error(t, err)

	tr, err := NewTrack(TrackParameters{Momentum: Vector{Z: 5}, Charge: -1})
	require.NoError(t, err)
	require.Equal(t, Vector{Z: 5}, tr.StateAtECal.Momentum)
	require.Len(t, tr.States(), 1)
}

func TestCluster_EnergyAndCentroid(t *testing.T) {
	hs := hitHandles(2)
	c, err := NewCluster(ClusterParameters{Hits: []ClusterHit{
		{Hit: hs[0], Position: Vector{X: 0}, Energy: 1, PseudoLayer: 3},
		{Hit: hs[1], Position: Vector{X: 3}, Energy: 2, PseudoLayer: 1},
	}})
	require.NoError(t, err)

	require.InDelta(t, 3.0, c.Energy(), 1e-9)
	require.InDelta(t, 2.0, c.Centroid().X, 1e-9)
	require.Equal(t, uint32(1), c.InnerPseudoLayer())
	require.Equal(t, uint32(3), c.OuterPseudoLayer())
	require.Equal(t, hs[1], c.Hits()[0].Hit)
	require.False(t, c.IsEmpty())

	require.ErrorIs(t, c.AddHit(ClusterHit{Hit: hs[0], Energy: 5}), ErrDuplicateHit)
	require.InDelta(t, 3.0, c.Energy(), 1e-9)
}

func TestNewCluster_Validation(t *testing.T) {
	_, err := NewCluster(ClusterParameters{})
	require.Error(t, err)

	h := hitHandles(1)[0]
	_, err = NewCluster(ClusterParameters{Hits: []ClusterHit{{Hit: h}, {Hit: h}}})
	require.ErrorIs(t, err, ErrDuplicateHit)
}

func TestCluster_MergeIsAtomic(t *testing.T) {
	hs := hitHandles(3)
	a, err := NewCluster(ClusterParameters{Hits: []ClusterHit{{Hit: hs[0], Energy: 1}}})
	require.NoError(t, err)
	b, err := NewCluster(ClusterParameters{Hits: []ClusterHit{{Hit: hs[1], Energy: 2}, {Hit: hs[0], Energy: 1}}})
	require.NoError(t, err)

	require.ErrorIs(t, a.Merge(b), ErrDuplicateHit)
	require.Equal(t, 1, a.NHits())
	require.InDelta(t, 1.0, a.Energy(), 1e-9)

	c, err := NewCluster(ClusterParameters{Hits: []ClusterHit{{Hit: hs[2], Energy: 4}}})
	require.NoError(t, err)
	c.AddTrack(hs[0])
	require.NoError(t, a.Merge(c))
	require.Equal(t, 2, a.NHits())
	require.InDelta(t, 5.0, a.Energy(), 1e-9)
	require.Equal(t, []arena.Handle{hs[0]}, a.Tracks())
	require.Error(t, a.Merge(a))
}

func TestCluster_TrackAssociations(t *testing.T) {
	hs := hitHandles(2)
	c, err := NewCluster(ClusterParameters{Hits: []ClusterHit{{Hit: hs[0], Energy: 1}}})
	require.NoError(t, err)

	c.AddTrack(hs[1])
	c.AddTrack(hs[1])
	require.Len(t, c.Tracks(), 1)
	require.True(t, c.RemoveTrack(hs[1]))
	require.False(t, c.RemoveTrack(hs[1]))

	c.AddTrack(hs[1])
	c.ClearTracks()
	require.Empty(t, c.Tracks())
}

func TestCluster_TrackDistance(t *testing.T) {
	hs := hitHandles(2)
	c, err := NewCluster(ClusterParameters{Hits: []ClusterHit{
		{Hit: hs[0], Position: Vector{X: 3, Z: 10}, Energy: 1, PseudoLayer: 1},
		{Hit: hs[1], Position: Vector{X: 1, Z: 500}, Energy: 1, PseudoLayer: 2},
	}})
	require.NoError(t, err)

	track, err := NewTrack(TrackParameters{
		Momentum:    Vector{Z: 10},
		StateAtECal: TrackState{Position: Vector{}, Momentum: Vector{Z: 10}},
	})
	require.NoError(t, err)

	// the second hit is closer but beyond the parallel cut
	d, ok := c.TrackDistance(track, 10, 100)
	require.True(t, ok)
	require.InDelta(t, 3.0, d, 1e-9)

	d, ok = c.TrackDistance(track, 10, 1000)
	require.True(t, ok)
	require.InDelta(t, 1.0, d, 1e-9)

	_, ok = c.TrackDistance(track, 0, 1000)
	require.False(t, ok)
}

func TestVector(t *testing.T) {
	v := Vector{X: 3, Y: 4}
	require.InDelta(t, 5.0, v.Mag(), 1e-9)
	require.InDelta(t, 1.0, v.Unit().Mag(), 1e-9)
	require.Equal(t, Vector{}, Vector{}.Unit())
	require.Equal(t, Vector{Z: 1}, Vector{X: 1}.Cross(Vector{Y: 1}))
	require.Equal(t, "(3.00, 4.00, 0.00)", v.String())
}
