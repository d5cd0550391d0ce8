package pipeline

import (
	"context"

	"github.com/zjrosen/pflow/internal/arena"
	"github.com/zjrosen/pflow/internal/content"
	"github.com/zjrosen/pflow/internal/listmgr"
	"github.com/zjrosen/pflow/internal/status"
)

// API is what an algorithm sees of the pipeline. The three content views are
// bound to the algorithm's scope.
type API struct {
	Hits     HitAPI
	Tracks   TrackAPI
	Clusters ClusterAPI

	inst *Instance
	node *node
}

func (i *Instance) newAPI(n *node) *API {
	return &API{
		Hits:     i.hits.View(n.id),
		Tracks:   i.tracks.View(n.id),
		Clusters: i.clusters.View(n.id),
		inst:     i,
		node:     n,
	}
}

// Name returns the algorithm instance name, which is also its scope id.
func (a *API) Name() string { return string(a.node.id) }

// Type returns the registered type of the algorithm.
func (a *API) Type() string { return a.node.typ }

// CreateDaughterAlgorithm creates and initializes a daughter of the calling
// algorithm and returns its name.
func (a *API) CreateDaughterAlgorithm(cfg AlgorithmConfig) (string, error) {
	d, err := a.inst.createAlgorithm(cfg, a.node)
	if err != nil {
		return "", err
	}
	return string(d.id), nil
}

// CreateDaughterAlgorithms creates every daughter in cfgs, in order.
func (a *API) CreateDaughterAlgorithms(cfgs []AlgorithmConfig) ([]string, error) {
	names := make([]string, 0, len(cfgs))
	for _, cfg := range cfgs {
		name, err := a.CreateDaughterAlgorithm(cfg)
		if err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, nil
}

func (a *API) daughter(op, name string) (*node, error) {
	d, ok := a.node.daughters[name]
	if !ok {
		return nil, status.New(status.NotFound, op, "%q is not a daughter of %q", name, a.node.id)
	}
	return d, nil
}

// RunDaughterAlgorithm runs the named daughter in its own scope. A Suspended
// daughter keeps its input list and temporary-name counter until it is run
// again with Finished or the caller's own scope finishes.
func (a *API) RunDaughterAlgorithm(ctx context.Context, name string, completion listmgr.Completion) error {
	const op = "RunDaughterAlgorithm"
	d, err := a.daughter(op, name)
	if err != nil {
		return err
	}
	if completion != listmgr.Suspended && completion != listmgr.Finished {
		return status.New(status.InvalidParameter, op, "invalid completion %d", int(completion))
	}

	err = a.inst.runNode(ctx, d, completion)
	if completion == listmgr.Suspended && err == nil {
		a.node.suspended[name] = d
	} else if completion == listmgr.Finished {
		delete(a.node.suspended, name)
	}
	return err
}

// RunClusteringAlgorithm creates an empty temporary cluster list in the
// caller's scope, makes it current and runs the named daughter into it. It
// returns the list and the clusters the daughter created. The list stays
// current and is deleted when the caller's scope exits unless it is saved.
func (a *API) RunClusteringAlgorithm(ctx context.Context, name string) (string, []arena.Handle, error) {
	if _, err := a.daughter("RunClusteringAlgorithm", name); err != nil {
		return "", nil, err
	}
	list, err := a.Clusters.MakeTemporaryAndSetCurrent()
	if err != nil {
		return "", nil, err
	}
	if err := a.RunDaughterAlgorithm(ctx, name, listmgr.Finished); err != nil {
		return "", nil, err
	}
	handles, err := a.Clusters.GetList(list)
	if err != nil {
		return "", nil, err
	}
	if st := a.node.recluster; st != nil {
		st.candidates = append(st.candidates, list)
	}
	return list, handles, nil
}

// RemoveAllTrackClusterAssociations clears the tracks of every cluster in the
// current cluster list.
func (a *API) RemoveAllTrackClusterAssociations() error {
	_, clusters, err := a.Clusters.GetCurrentList()
	if err != nil {
		return err
	}
	for _, h := range clusters {
		if err := a.Clusters.Modify(h, func(c *content.Cluster) error {
			c.ClearTracks()
			return nil
		}); err != nil {
			return err
		}
	}
	return nil
}
