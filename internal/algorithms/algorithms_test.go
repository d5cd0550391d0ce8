package algorithms

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"pgregory.net/rapid"

	"github.com/zjrosen/pflow/internal/arena"
	"github.com/zjrosen/pflow/internal/content"
	"github.com/zjrosen/pflow/internal/pipeline"
	"github.com/zjrosen/pflow/internal/status"
	"github.com/zjrosen/pflow/internal/testutil"
	"github.com/zjrosen/pflow/internal/tracing"
)

func primary(sep any) pipeline.AlgorithmConfig {
	return pipeline.AlgorithmConfig{
		Type:     TypePrimaryClustering,
		Name:     "primary",
		Settings: map[string]any{"cluster_list_name": "Clusters"},
		Daughters: []pipeline.AlgorithmConfig{{
			Type: TypeClustering, Name: "coarse", Settings: map[string]any{"max_hit_separation": sep},
		}},
	}
}

func newInstance(t *testing.T, opts []pipeline.Option, algs ...pipeline.AlgorithmConfig) *pipeline.Instance {
	t.Helper()
	cfg := pipeline.DefaultConfig()
	cfg.Algorithms = algs
	inst, err := pipeline.NewInstance(cfg, NewRegistry(), opts...)
	require.NoError(t, err)
	return inst
}

func energies(res *pipeline.Result) []float64 {
	out := make([]float64, 0, len(res.ClusterDetails))
	for _, c := range res.ClusterDetails {
		out = append(out, math.Round(c.Energy*1000)/1000)
	}
	return out
}

func TestRegister(t *testing.T) {
	reg := NewRegistry()
	require.Equal(t, []string{
		TypeClusterMerging, TypeClustering, TypePrimaryClustering, TypeReclustering, TypeTrackClusterAssociation,
	}, reg.Types())
	require.ErrorIs(t, Register(reg), status.ErrAlreadyPresent)
}

func TestPrimaryClusteringAndAssociation(t *testing.T) {
	inst := newInstance(t, nil, primary(50), pipeline.AlgorithmConfig{Type: TypeTrackClusterAssociation, Name: "assoc"})

	res, err := inst.ProcessEvent(context.Background(), testutil.SplitShower())
	require.NoError(t, err)

	require.Equal(t, "Clusters", res.Clusters.Current)
	require.Equal(t, []pipeline.ListSummary{{Name: "Clusters", Objects: 2, Saved: true}}, res.Clusters.Lists)
	require.Equal(t, []float64{9, 2}, energies(res))
	require.Equal(t, 1, res.ClusterDetails[0].Tracks)
	require.Equal(t, 0, res.ClusterDetails[1].Tracks)
	require.Equal(t, uint32(1), res.ClusterDetails[0].InnerLayer)
	require.Equal(t, uint32(3), res.ClusterDetails[0].OuterLayer)
}

func TestPrimaryClustering_KeepsCurrent(t *testing.T) {
	cfg := primary(50)
	cfg.Settings["replace_current"] = false
	inst := newInstance(t, nil, cfg)

	res, err := inst.ProcessEvent(context.Background(), testutil.SplitShower())
	require.NoError(t, err)
	require.Equal(t, "NullList", res.Clusters.Current)
	l, ok := res.Clusters.Named("Clusters")
	require.True(t, ok)
	require.Equal(t, 2, l.Objects)
}

func TestReclustering_SplitsOverweightCluster(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))

	inst := newInstance(t, []pipeline.Option{pipeline.WithTracer(tp.Tracer("test"))},
		primary(50),
		pipeline.AlgorithmConfig{Type: TypeTrackClusterAssociation, Name: "assoc"},
		pipeline.AlgorithmConfig{
			Type: TypeReclustering, Name: "recluster",
			Daughters: []pipeline.AlgorithmConfig{
				{Type: TypeClustering, Name: "fine", Settings: map[string]any{"max_hit_separation": "20"}},
			},
		},
	)

	res, err := inst.ProcessEvent(context.Background(), testutil.SplitShower())
	require.NoError(t, err)

	require.Equal(t, []pipeline.ListSummary{{Name: "Clusters", Objects: 3, Saved: true}}, res.Clusters.Lists)
	require.Equal(t, []float64{5, 4, 2}, energies(res))
	require.Equal(t, 1, res.ClusterDetails[0].Tracks)
	require.Equal(t, 0, res.ClusterDetails[1].Tracks)

	hits, ok := res.Hits.Named(pipeline.DefaultInputCaloHitList)
	require.True(t, ok)
	require.Equal(t, 6, hits.Objects)
	require.Len(t, res.Hits.Lists, 1)
	require.Len(t, res.Tracks.Lists, 1)

	var chosen bool
	for _, s := range sr.Ended() {
		for _, ev := range s.Events() {
			if ev.Name == tracing.EventReclusterChosen {
				chosen = true
			}
		}
	}
	require.True(t, chosen)
}

func TestReclustering_CompatibleClusterUntouched(t *testing.T) {
	ev := testutil.SplitShower()
	ev.CaloHits = append(ev.CaloHits[:3], ev.CaloHits[5])

	inst := newInstance(t, nil,
		primary(50),
		pipeline.AlgorithmConfig{Type: TypeTrackClusterAssociation},
		pipeline.AlgorithmConfig{
			Type:      TypeReclustering,
			Daughters: []pipeline.AlgorithmConfig{{Type: TypeClustering, Settings: map[string]any{"max_hit_separation": 1}}},
		},
	)
	res, err := inst.ProcessEvent(context.Background(), ev)
	require.NoError(t, err)
	require.Equal(t, []float64{5, 2}, energies(res))
	require.Equal(t, 1, res.ClusterDetails[0].Tracks)
}

func TestClusterMerging(t *testing.T) {
	ev := testutil.NewBuilder(0).
		WithHit(1850, 0, testutil.Energy(2)).
		WithHit(1850, 30).
		WithHit(1850, 500, testutil.Energy(4)).
		Build()
	inst := newInstance(t, nil, primary(10), pipeline.AlgorithmConfig{Type: TypeClusterMerging})

	res, err := inst.ProcessEvent(context.Background(), ev)
	require.NoError(t, err)
	require.Equal(t, []float64{4, 3}, energies(res))
	require.Equal(t, 2, res.ClusterDetails[1].Hits)
}

func TestClustering_NeedsCurrentList(t *testing.T) {
	inst := newInstance(t, nil, pipeline.AlgorithmConfig{Type: TypeClustering})

	res, err := inst.ProcessEvent(context.Background(), testutil.SplitShower())
	require.ErrorIs(t, err, status.ErrNotInitialized)
	require.False(t, status.IsFatal(err))
	require.NotNil(t, res)
	require.Empty(t, res.ClusterDetails)
}

func TestSettingsErrors(t *testing.T) {
	tests := []struct {
		name string
		cfg  pipeline.AlgorithmConfig
	}{
		{"negative separation", pipeline.AlgorithmConfig{Type: TypeClustering, Settings: map[string]any{"max_hit_separation": -1}}},
		{"unknown key", pipeline.AlgorithmConfig{Type: TypeTrackClusterAssociation, Settings: map[string]any{"cone": 3}}},
		{"primary without daughter", pipeline.AlgorithmConfig{Type: TypePrimaryClustering}},
		{"primary with empty list name", func() pipeline.AlgorithmConfig {
			c := primary(50)
			c.Settings["cluster_list_name"] = ""
			return c
		}()},
		{"reclustering without daughters", pipeline.AlgorithmConfig{Type: TypeReclustering}},
		{"merging with zero distance", pipeline.AlgorithmConfig{Type: TypeClusterMerging, Settings: map[string]any{"max_centroid_distance": 0}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := pipeline.DefaultConfig()
			cfg.Algorithms = []pipeline.AlgorithmConfig{tt.cfg}
			_, err := pipeline.NewInstance(cfg, NewRegistry())
			require.Error(t, err)
		})
	}
}

func TestAssociation_Closest(t *testing.T) {
	a := &TrackClusterAssociation{}
	require.NoError(t, a.Initialize(nil, pipeline.AlgorithmConfig{}))

	track, err := content.NewTrack(content.TrackParameters{
		Momentum:    content.Vector{X: 5},
		StateAtECal: content.TrackState{Position: content.Vector{X: 1850}},
	})
	require.NoError(t, err)

	cluster := func(y, energy float64) *content.Cluster {
		c, err := content.NewCluster(content.ClusterParameters{Hits: []content.ClusterHit{{
			Position:    content.Vector{X: 1855, Y: y},
			Energy:      energy,
			PseudoLayer: 1,
		}}})
		require.NoError(t, err)
		return c
	}

	high, low := handleN(1), handleN(2)
	clusters := map[arena.Handle]*content.Cluster{high: cluster(8, 3), low: cluster(1, 0.1)}
	got, ok := a.closest(track, []arena.Handle{high, low}, clusters)
	require.True(t, ok)
	require.Equal(t, high, got)

	clusters[high] = cluster(15, 3)
	got, ok = a.closest(track, []arena.Handle{high, low}, clusters)
	require.True(t, ok)
	require.Equal(t, low, got)

	clusters[low] = cluster(12, 0.1)
	_, ok = a.closest(track, []arena.Handle{high, low}, clusters)
	require.False(t, ok)
}

// handleN returns the n-th handle of a fresh store.
func handleN(n int) arena.Handle {
	s := arena.New[int]()
	var h arena.Handle
	for i := 0; i < n; i++ {
		h = s.Create(i)
	}
	return h
}

func TestGroupByProximity(t *testing.T) {
	at := func(x float64) content.ClusterHit { return content.ClusterHit{Position: content.Vector{X: x}} }
	groups := groupByProximity([]content.ClusterHit{at(0), at(100), at(8), at(16), at(108)}, 10)
	require.Len(t, groups, 2)
	require.Equal(t, []content.ClusterHit{at(0), at(8), at(16)}, groups[0])
	require.Equal(t, []content.ClusterHit{at(100), at(108)}, groups[1])

	require.Empty(t, groupByProximity(nil, 10))
}

func TestGroupByProximity_Properties(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(0, 30).Draw(t, "n")
		maxDist := rapid.Float64Range(1, 50).Draw(t, "maxDist")
		hits := make([]content.ClusterHit, n)
		for i := range hits {
			hits[i] = content.ClusterHit{
				Hit: handleN(i + 1),
				Position: content.Vector{
					X: rapid.Float64Range(0, 200).Draw(t, "x"),
					Y: rapid.Float64Range(0, 200).Draw(t, "y"),
				},
			}
		}

		groupOf := make(map[arena.Handle]int)
		total := 0
		for g, group := range groupByProximity(hits, maxDist) {
			if len(group) == 0 {
				t.Fatalf("empty group %d", g)
			}
			for _, h := range group {
				if _, dup := groupOf[h.Hit]; dup {
					t.Fatalf("hit %v in two groups", h.Hit)
				}
				groupOf[h.Hit] = g
				total++
			}
		}
		if total != n {
			t.Fatalf("grouped %d of %d hits", total, n)
		}
		for i := range hits {
			for j := i + 1; j < n; j++ {
				if hits[i].Position.Sub(hits[j].Position).Mag() < maxDist && groupOf[hits[i].Hit] != groupOf[hits[j].Hit] {
					t.Fatalf("close hits %d and %d split", i, j)
				}
			}
		}
	})
}
