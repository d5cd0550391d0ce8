package algorithms

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/zjrosen/pflow/internal/log"
	"github.com/zjrosen/pflow/internal/pipeline"
	"github.com/zjrosen/pflow/internal/tracing"
)

// PrimaryClusteringSettings configure PrimaryClustering.
type PrimaryClusteringSettings struct {
	// ClusterListName is the permanent list the clusters are saved into.
	ClusterListName string `mapstructure:"cluster_list_name"`
	// ReplaceCurrent makes the saved list current for the rest of the event.
	ReplaceCurrent bool `mapstructure:"replace_current"`
}

// PrimaryClustering runs its single clustering daughter into a temporary
// list and saves the result under a permanent name.
type PrimaryClustering struct {
	settings PrimaryClusteringSettings
	daughter string
}

func (p *PrimaryClustering) Initialize(api *pipeline.API, cfg pipeline.AlgorithmConfig) error {
	p.settings = PrimaryClusteringSettings{ClusterListName: "PrimaryClusters", ReplaceCurrent: true}
	if err := pipeline.DecodeSettings(cfg.Settings, &p.settings); err != nil {
		return err
	}
	if p.settings.ClusterListName == "" {
		return fmt.Errorf("cluster_list_name must not be empty")
	}
	if len(cfg.Daughters) != 1 {
		return fmt.Errorf("%s needs exactly one clustering daughter, got %d", TypePrimaryClustering, len(cfg.Daughters))
	}
	name, err := api.CreateDaughterAlgorithm(cfg.Daughters[0])
	if err != nil {
		return err
	}
	p.daughter = name
	return nil
}

func (p *PrimaryClustering) Run(ctx context.Context, api *pipeline.API) error {
	list, clusters, err := api.RunClusteringAlgorithm(ctx, p.daughter)
	if err != nil {
		return err
	}
	if err := api.Clusters.SaveObjects(p.settings.ClusterListName, list); err != nil {
		return err
	}
	trace.SpanFromContext(ctx).AddEvent(tracing.EventListSaved, trace.WithAttributes(
		attribute.String(tracing.AttrListName, p.settings.ClusterListName),
		attribute.Int(tracing.AttrListCount, len(clusters)),
	))
	log.Debug(log.CatAlgo, "primary clusters saved", "algorithm", api.Name(), "list", p.settings.ClusterListName, "clusters", len(clusters))

	if p.settings.ReplaceCurrent {
		return api.Clusters.ReplaceCurrentAndAlgorithmInput(p.settings.ClusterListName)
	}
	return nil
}
