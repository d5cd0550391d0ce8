// Package algorithms provides the reference reconstruction algorithms.
//
// They are ordinary consumers of the pipeline API and show how the list
// manager is meant to be used: clustering into the current list, saving a
// temporary result under a permanent name, associating tracks with clusters,
// merging and reclustering.
package algorithms

import (
	"errors"

	"github.com/zjrosen/pflow/internal/pipeline"
)

// Algorithm type names.
const (
	TypeClustering              = "Clustering"
	TypePrimaryClustering       = "PrimaryClustering"
	TypeTrackClusterAssociation = "TrackClusterAssociation"
	TypeClusterMerging          = "ClusterMerging"
	TypeReclustering            = "Reclustering"
)

// Register adds every reference algorithm to reg.
func Register(reg *pipeline.Registry) error {
	return errors.Join(
		reg.Register(TypeClustering, func() pipeline.Algorithm { return &Clustering{} }),
		reg.Register(TypePrimaryClustering, func() pipeline.Algorithm { return &PrimaryClustering{} }),
		reg.Register(TypeTrackClusterAssociation, func() pipeline.Algorithm { return &TrackClusterAssociation{} }),
		reg.Register(TypeClusterMerging, func() pipeline.Algorithm { return &ClusterMerging{} }),
		reg.Register(TypeReclustering, func() pipeline.Algorithm { return &Reclustering{} }),
	)
}

// NewRegistry returns a registry holding every reference algorithm.
func NewRegistry() *pipeline.Registry {
	reg := pipeline.NewRegistry()
	if err := Register(reg); err != nil {
		panic(err)
	}
	return reg
}
