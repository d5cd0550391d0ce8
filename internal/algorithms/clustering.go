package algorithms

import (
	"context"
	"fmt"

	"github.com/zjrosen/pflow/internal/arena"
	"github.com/zjrosen/pflow/internal/content"
	"github.com/zjrosen/pflow/internal/listmgr"
	"github.com/zjrosen/pflow/internal/log"
	"github.com/zjrosen/pflow/internal/pipeline"
	"github.com/zjrosen/pflow/internal/status"
)

// ClusteringSettings configure Clustering.
type ClusteringSettings struct {
	// MaxHitSeparation is the largest distance in mm at which two hits join
	// the same cluster.
	MaxHitSeparation float64 `mapstructure:"max_hit_separation"`
	// MinHits drops groups with fewer hits.
	MinHits int `mapstructure:"min_hits"`
}

// Clustering groups the hits of the current hit list by proximity and
// creates one cluster per group in the current cluster list.
type Clustering struct {
	settings ClusteringSettings
}

func (c *Clustering) Initialize(_ *pipeline.API, cfg pipeline.AlgorithmConfig) error {
	c.settings = ClusteringSettings{MaxHitSeparation: 50, MinHits: 1}
	if err := pipeline.DecodeSettings(cfg.Settings, &c.settings); err != nil {
		return err
	}
	if c.settings.MaxHitSeparation <= 0 {
		return fmt.Errorf("max_hit_separation must be positive, got %g", c.settings.MaxHitSeparation)
	}
	return nil
}

func (c *Clustering) Run(_ context.Context, api *pipeline.API) error {
	list, err := api.Clusters.GetCurrentListName()
	if err != nil {
		return err
	}
	if list == listmgr.NullList {
		return status.New(status.NotInitialized, TypeClustering, "no current cluster list to cluster into")
	}

	_, handles, err := api.Hits.GetCurrentList()
	if err != nil {
		return err
	}
	hits := make([]content.ClusterHit, 0, len(handles))
	for _, h := range handles {
		hit, err := api.Hits.Object(h)
		if err != nil {
			return err
		}
		hits = append(hits, content.HitOf(h, hit))
	}

	created := 0
	for _, group := range groupByProximity(hits, c.settings.MaxHitSeparation) {
		if len(group) < c.settings.MinHits {
			continue
		}
		if _, err := api.Clusters.CreateObject(content.ClusterParameters{Hits: group}); err != nil {
			return err
		}
		created++
	}
	log.Debug(log.CatAlgo, "clustered hits", "algorithm", api.Name(), "list", list, "hits", len(hits), "clusters", created)
	return nil
}

// groupByProximity returns the connected components of hits, linking any two
// closer than maxDist. Groups are ordered by their first hit.
func groupByProximity(hits []content.ClusterHit, maxDist float64) [][]content.ClusterHit {
	parent := make([]int, len(hits))
	for i := range parent {
		parent[i] = i
	}
	var find func(int) int
	find = func(i int) int {
		if parent[i] != i {
			parent[i] = find(parent[i])
		}
		return parent[i]
	}

	for i := range hits {
		for j := i + 1; j < len(hits); j++ {
			if hits[i].Position.Sub(hits[j].Position).Mag() < maxDist {
				a, b := find(i), find(j)
				if a != b {
					parent[max(a, b)] = min(a, b)
				}
			}
		}
	}

	index := make(map[int]int)
	var groups [][]content.ClusterHit
	for i, h := range hits {
		root := find(i)
		g, ok := index[root]
		if !ok {
			g = len(groups)
			index[root] = g
			groups = append(groups, nil)
		}
		groups[g] = append(groups[g], h)
	}
	return groups
}

// loadClusters loads the clusters behind handles, skipping any that no
// longer exist.
func loadClusters(api *pipeline.API, handles []arena.Handle) map[arena.Handle]*content.Cluster {
	out := make(map[arena.Handle]*content.Cluster, len(handles))
	for _, h := range handles {
		if c, err := api.Clusters.Object(h); err == nil {
			out[h] = c
		}
	}
	return out
}
