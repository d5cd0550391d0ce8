package algorithms

import (
	"context"
	"math"

	"github.com/zjrosen/pflow/internal/arena"
	"github.com/zjrosen/pflow/internal/content"
	"github.com/zjrosen/pflow/internal/log"
	"github.com/zjrosen/pflow/internal/pipeline"
)

// AssociationSettings configure TrackClusterAssociation.
type AssociationSettings struct {
	// LowEnergyCut separates clusters that are only matched when no more
	// energetic cluster is close enough.
	LowEnergyCut            float64 `mapstructure:"low_energy_cut"`
	MaxTrackClusterDistance float64 `mapstructure:"max_track_cluster_distance"`
	MaxSearchLayer          uint32  `mapstructure:"max_search_layer"`
	ParallelDistanceCut     float64 `mapstructure:"parallel_distance_cut"`
}

// TrackClusterAssociation replaces every association in the current cluster
// list: each current track is attached to its closest cluster.
type TrackClusterAssociation struct {
	settings AssociationSettings
}

func (a *TrackClusterAssociation) Initialize(_ *pipeline.API, cfg pipeline.AlgorithmConfig) error {
	a.settings = AssociationSettings{
		LowEnergyCut:            0.2,
		MaxTrackClusterDistance: 10,
		MaxSearchLayer:          10,
		ParallelDistanceCut:     100,
	}
	return pipeline.DecodeSettings(cfg.Settings, &a.settings)
}

func (a *TrackClusterAssociation) Run(_ context.Context, api *pipeline.API) error {
	_, tracks, err := api.Tracks.GetCurrentList()
	if err != nil {
		return err
	}
	_, handles, err := api.Clusters.GetCurrentList()
	if err != nil {
		return err
	}
	if err := api.RemoveAllTrackClusterAssociations(); err != nil {
		return err
	}
	clusters := loadClusters(api, handles)

	associated := 0
	for _, th := range tracks {
		track, err := api.Tracks.Object(th)
		if err != nil {
			return err
		}
		match, ok := a.closest(track, handles, clusters)
		if !ok {
			continue
		}
		if err := api.Clusters.Modify(match, func(c *content.Cluster) error {
			c.AddTrack(th)
			return nil
		}); err != nil {
			return err
		}
		associated++
	}
	log.Debug(log.CatAlgo, "tracks associated", "algorithm", api.Name(), "tracks", len(tracks), "associated", associated)
	return nil
}

// closest picks the nearest cluster above the low-energy cut, falling back to
// the nearest one below it. Both must be within MaxTrackClusterDistance.
func (a *TrackClusterAssociation) closest(t *content.Track, order []arena.Handle, clusters map[arena.Handle]*content.Cluster) (arena.Handle, bool) {
	var best, bestLow arena.Handle
	minDist, minLowDist := math.MaxFloat64, math.MaxFloat64

	for _, h := range order {
		c, ok := clusters[h]
		if !ok {
			continue
		}
		d, ok := c.TrackDistance(t, a.settings.MaxSearchLayer, a.settings.ParallelDistanceCut)
		if !ok {
			continue
		}
		if c.Energy() > a.settings.LowEnergyCut {
			if d < minDist {
				minDist, best = d, h
			}
		} else if d < minLowDist {
			minLowDist, bestLow = d, h
		}
	}

	switch {
	case minDist < a.settings.MaxTrackClusterDistance:
		return best, true
	case minLowDist < a.settings.MaxTrackClusterDistance:
		return bestLow, true
	default:
		return arena.Handle{}, false
	}
}
