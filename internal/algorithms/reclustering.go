package algorithms

import (
	"context"
	"errors"
	"math"
	"slices"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/zjrosen/pflow/internal/arena"
	"github.com/zjrosen/pflow/internal/content"
	"github.com/zjrosen/pflow/internal/log"
	"github.com/zjrosen/pflow/internal/pipeline"
	"github.com/zjrosen/pflow/internal/tracing"
)

// ReclusteringSettings configure Reclustering.
type ReclusteringSettings struct {
	// ChiCut is the track-cluster compatibility above which a cluster is
	// reclustered.
	ChiCut float64 `mapstructure:"chi_cut"`
	// EnergyResolution is the stochastic term a in sigma(E) = a * sqrt(E).
	EnergyResolution float64 `mapstructure:"energy_resolution"`
}

// Reclustering revisits clusters whose energy disagrees with the momentum of
// their associated track. Each daughter clustering proposes a candidate; the
// candidate whose leading cluster best matches the track is kept.
type Reclustering struct {
	settings  ReclusteringSettings
	daughters []string
}

func (r *Reclustering) Initialize(api *pipeline.API, cfg pipeline.AlgorithmConfig) error {
	r.settings = ReclusteringSettings{ChiCut: 2, EnergyResolution: 0.6}
	if err := pipeline.DecodeSettings(cfg.Settings, &r.settings); err != nil {
		return err
	}
	if r.settings.EnergyResolution <= 0 {
		return errors.New("energy_resolution must be positive")
	}
	names, err := api.CreateDaughterAlgorithms(cfg.Daughters)
	if err != nil {
		return err
	}
	if len(names) == 0 {
		return errors.New("reclustering needs at least one clustering daughter")
	}
	r.daughters = names
	return nil
}

func (r *Reclustering) chi(energy, momentum float64) float64 {
	return (energy - momentum) / (r.settings.EnergyResolution * math.Sqrt(momentum))
}

func (r *Reclustering) Run(ctx context.Context, api *pipeline.API) error {
	_, tracks, err := api.Tracks.GetCurrentList()
	if err != nil {
		return err
	}

	reclustered := 0
	for _, th := range tracks {
		track, err := api.Tracks.Object(th)
		if err != nil {
			return err
		}
		ch, cluster, ok := associatedCluster(api, th)
		if !ok {
			continue
		}
		momentum := track.Momentum.Mag()
		chi := r.chi(cluster.Energy(), momentum)
		if math.Abs(chi) < r.settings.ChiCut {
			continue
		}

		changed, err := r.recluster(ctx, api, th, ch, momentum, chi)
		if err != nil {
			return err
		}
		if changed {
			reclustered++
		}
	}
	log.Debug(log.CatAlgo, "reclustering done", "algorithm", api.Name(), "tracks", len(tracks), "reclustered", reclustered)
	return nil
}

// recluster runs every daughter over one cluster and keeps the best
// candidate. It reports whether the original cluster was replaced.
func (r *Reclustering) recluster(ctx context.Context, api *pipeline.API, th, ch arena.Handle, momentum, chi float64) (bool, error) {
	original, err := api.InitializeReclustering([]arena.Handle{th}, []arena.Handle{ch})
	if err != nil {
		return false, err
	}

	best, bestChi := original, chi
	var bestLead arena.Handle
	for _, d := range r.daughters {
		list, handles, err := api.RunClusteringAlgorithm(ctx, d)
		if err != nil {
			return false, err
		}
		lead, energy, ok := leadingCluster(api, handles)
		if !ok {
			continue
		}
		if c := r.chi(energy, momentum); math.Abs(c) < math.Abs(bestChi) {
			best, bestChi, bestLead = list, c, lead
		}
	}

	if err := api.EndReclustering(best); err != nil {
		return false, err
	}
	trace.SpanFromContext(ctx).AddEvent(tracing.EventReclusterChosen, trace.WithAttributes(
		attribute.String(tracing.AttrListName, best),
		attribute.Float64(tracing.AttrReclusterChi, bestChi),
	))
	if best == original {
		return false, nil
	}
	return true, api.Clusters.Modify(bestLead, func(c *content.Cluster) error {
		c.AddTrack(th)
		return nil
	})
}

func associatedCluster(api *pipeline.API, track arena.Handle) (arena.Handle, *content.Cluster, bool) {
	_, handles, err := api.Clusters.GetCurrentList()
	if err != nil {
		return arena.Handle{}, nil, false
	}
	for _, h := range handles {
		c, err := api.Clusters.Object(h)
		if err != nil {
			continue
		}
		if slices.Contains(c.Tracks(), track) {
			return h, c, true
		}
	}
	return arena.Handle{}, nil, false
}

func leadingCluster(api *pipeline.API, handles []arena.Handle) (arena.Handle, float64, bool) {
	var (
		lead   arena.Handle
		found  bool
		energy float64
	)
	for _, h := range handles {
		c, err := api.Clusters.Object(h)
		if err != nil {
			continue
		}
		if !found || c.Energy() > energy {
			lead, energy, found = h, c.Energy(), true
		}
	}
	return lead, energy, found
}
