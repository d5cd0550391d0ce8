package algorithms

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/zjrosen/pflow/internal/arena"
	"github.com/zjrosen/pflow/internal/log"
	"github.com/zjrosen/pflow/internal/pipeline"
	"github.com/zjrosen/pflow/internal/status"
)

// MergingSettings configure ClusterMerging.
type MergingSettings struct {
	MaxCentroidDistance float64 `mapstructure:"max_centroid_distance"`
}

// ClusterMerging folds clusters of the current list into more energetic
// neighbours whose centroid lies within MaxCentroidDistance.
type ClusterMerging struct {
	settings MergingSettings
}

func (m *ClusterMerging) Initialize(_ *pipeline.API, cfg pipeline.AlgorithmConfig) error {
	m.settings = MergingSettings{MaxCentroidDistance: 100}
	if err := pipeline.DecodeSettings(cfg.Settings, &m.settings); err != nil {
		return err
	}
	if m.settings.MaxCentroidDistance <= 0 {
		return fmt.Errorf("max_centroid_distance must be positive, got %g", m.settings.MaxCentroidDistance)
	}
	return nil
}

func (m *ClusterMerging) Run(_ context.Context, api *pipeline.API) error {
	_, handles, err := api.Clusters.GetCurrentList()
	if err != nil {
		return err
	}
	clusters := loadClusters(api, handles)

	order := make([]arena.Handle, 0, len(clusters))
	for _, h := range handles {
		if _, ok := clusters[h]; ok {
			order = append(order, h)
		}
	}
	sort.SliceStable(order, func(i, j int) bool {
		return clusters[order[i]].Energy() > clusters[order[j]].Energy()
	})

	merged := 0
	gone := make(map[arena.Handle]bool)
	for i, keep := range order {
		if gone[keep] {
			continue
		}
		for _, discard := range order[i+1:] {
			if gone[discard] {
				continue
			}
			kc, dc := clusters[keep], clusters[discard]
			if kc.Centroid().Sub(dc.Centroid()).Mag() >= m.settings.MaxCentroidDistance {
				continue
			}
			err := api.Clusters.MergeAndDeleteObjects(keep, discard)
			if errors.Is(err, status.ErrFailure) {
				log.Warn(log.CatAlgo, "clusters not merged", "algorithm", api.Name(), "keep", keep, "discard", discard, "error", err)
				continue
			}
			if err != nil {
				return err
			}
			gone[discard] = true
			merged++
		}
	}
	log.Debug(log.CatAlgo, "clusters merged", "algorithm", api.Name(), "clusters", len(order), "merged", merged)
	return nil
}
