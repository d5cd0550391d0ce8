package pipeline

import (
	"errors"
	"slices"

	"github.com/zjrosen/pflow/internal/arena"
	"github.com/zjrosen/pflow/internal/log"
	"github.com/zjrosen/pflow/internal/status"
)

// reclusterState remembers where the objects under reclustering came from.
type reclusterState struct {
	clusterSource string
	hitSource     string
	trackSource   string

	original  string
	hitTemp   string
	trackTemp string

	candidates []string
}

// InitializeReclustering takes clusters, their hits and tracks out of the
// current lists into temporary lists of the caller's scope and makes those
// current. It returns the temporary list holding the original clusters,
// which is the first reclustering candidate. Further candidates come from
// RunClusteringAlgorithm; EndReclustering keeps one of them.
func (a *API) InitializeReclustering(tracks, clusters []arena.Handle) (string, error) {
	const op = "InitializeReclustering"
	if a.node.recluster != nil {
		return "", status.New(status.Failure, op, "reclustering already in progress in %q", a.node.id)
	}
	if len(clusters) == 0 {
		return "", status.New(status.InvalidParameter, op, "no clusters to recluster")
	}

	st := &reclusterState{}
	var err error
	if st.clusterSource, err = a.Clusters.GetCurrentListName(); err != nil {
		return "", err
	}
	if st.hitSource, err = a.Hits.GetCurrentListName(); err != nil {
		return "", err
	}
	if st.trackSource, err = a.Tracks.GetCurrentListName(); err != nil {
		return "", err
	}

	var hits []arena.Handle
	for _, h := range clusters {
		c, err := a.Clusters.Object(h)
		if err != nil {
			return "", err
		}
		hits = append(hits, c.HitHandles()...)
	}

	if st.original, err = a.Clusters.MoveToTemporaryAndSetCurrent(st.clusterSource, clusters); err != nil {
		return "", err
	}
	st.candidates = []string{st.original}

	if len(hits) > 0 {
		if st.hitTemp, err = a.Hits.MoveToTemporaryAndSetCurrent(st.hitSource, hits); err != nil {
			return "", errors.Join(err, a.rollback(st))
		}
	}
	if len(tracks) > 0 {
		if st.trackTemp, err = a.Tracks.MoveToTemporaryAndSetCurrent(st.trackSource, tracks); err != nil {
			return "", errors.Join(err, a.rollback(st))
		}
	}

	a.node.recluster = st
	log.Debug(log.CatPipeline, "reclustering started",
		"algorithm", a.node.id, "source", st.clusterSource, "original", st.original, "clusters", len(clusters))
	return st.original, nil
}

// Reclustering reports whether the caller has a reclustering in progress.
func (a *API) Reclustering() bool {
	return a.node.recluster != nil
}

// EndReclustering returns the clusters of the selected candidate list to the
// list reclustering started from and deletes every other candidate with
// its clusters. Hits and tracks return to their lists, which become current
// again.
func (a *API) EndReclustering(selected string) error {
	const op = "EndReclustering"
	st := a.node.recluster
	if st == nil {
		return status.New(status.NotInitialized, op, "no reclustering in progress in %q", a.node.id)
	}
	if !slices.Contains(st.candidates, selected) {
		return status.New(status.NotFound, op, "%q is not a reclustering candidate", selected)
	}
	if err := a.inst.clusters.ReturnObjects(a.node.id, st.clusterSource, selected); err != nil {
		return err
	}
	a.node.recluster = nil

	var errs []error
	for _, name := range st.candidates {
		if _, err := a.Clusters.GetList(name); err != nil {
			continue
		}
		errs = append(errs, a.Clusters.DeleteTemporaryList(name))
	}
	errs = append(errs, a.restoreInputs(st))

	log.Debug(log.CatPipeline, "reclustering ended",
		"algorithm", a.node.id, "selected", selected, "candidates", len(st.candidates))
	return errors.Join(errs...)
}

// rollback undoes a partially initialized reclustering.
func (a *API) rollback(st *reclusterState) error {
	return errors.Join(
		a.inst.clusters.ReturnObjects(a.node.id, st.clusterSource, st.original),
		a.Clusters.DeleteTemporaryList(st.original),
		a.restoreInputs(st))
}

// restoreInputs returns hits and tracks to their source lists and makes the
// source lists of all three types current again.
func (a *API) restoreInputs(st *reclusterState) error {
	var errs []error
	if st.hitTemp != "" {
		errs = append(errs,
			a.inst.hits.ReturnObjects(a.node.id, st.hitSource, st.hitTemp),
			a.Hits.DeleteTemporaryList(st.hitTemp))
	}
	if st.trackTemp != "" {
		errs = append(errs,
			a.inst.tracks.ReturnObjects(a.node.id, st.trackSource, st.trackTemp),
			a.Tracks.DeleteTemporaryList(st.trackTemp))
	}
	errs = append(errs,
		a.Hits.TemporarilyReplaceCurrent(st.hitSource),
		a.Tracks.TemporarilyReplaceCurrent(st.trackSource),
		a.Clusters.TemporarilyReplaceCurrent(st.clusterSource))
	return errors.Join(errs...)
}
