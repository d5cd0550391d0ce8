package pipeline

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zjrosen/pflow/internal/arena"
	"github.com/zjrosen/pflow/internal/listmgr"
	"github.com/zjrosen/pflow/internal/status"
)

// reclusterSetup saves one cluster holding every hit into "Clusters" and
// makes it current.
func reclusterSetup(api *API) (arena.Handle, error) {
	tmp, err := api.Clusters.MakeTemporaryAndSetCurrent()
	if err != nil {
		return arena.Handle{}, err
	}
	c, err := clusterAllHits(api)
	if err != nil {
		return arena.Handle{}, err
	}
	if err := api.Clusters.SaveObjects("Clusters", tmp); err != nil {
		return arena.Handle{}, err
	}
	return c, api.Clusters.ReplaceCurrentAndAlgorithmInput("Clusters")
}

func newReclusterInstance(t *testing.T, run func(ctx context.Context, api *API) error) *Instance {
	t.Helper()
	reg := newTestRegistry(t, map[string]*stubAlgorithm{
		"recluster": {
			init: func(api *API, _ AlgorithmConfig) error {
				_, err := api.CreateDaughterAlgorithm(AlgorithmConfig{Type: "each", Name: "each"})
				return err
			},
			run: run,
		},
		"each": {run: clusterEachHit},
	})
	inst, err := NewInstance(configWith(AlgorithmConfig{Type: "recluster", Name: "rc"}), reg)
	require.NoError(t, err)
	return inst
}

func TestReclustering_SelectCandidate(t *testing.T) {
	var original arena.Handle
	inst := newReclusterInstance(t, func(ctx context.Context, api *API) error {
		var err error
		original, err = reclusterSetup(api)
		if err != nil {
			return err
		}
		_, tracks, err := api.Tracks.GetCurrentList()
		if err != nil {
			return err
		}

		orig, err := api.InitializeReclustering(tracks, []arena.Handle{original})
		if err != nil {
			return err
		}
		require.True(t, api.Reclustering())
		require.Equal(t, "rc_1", orig)

		current, err := api.Clusters.GetCurrentListName()
		require.NoError(t, err)
		require.Equal(t, orig, current)

		hitList, hits, err := api.Hits.GetCurrentList()
		require.NoError(t, err)
		require.Equal(t, "rc_0", hitList)
		require.Len(t, hits, 3)
		inputHits, err := api.Hits.GetList(DefaultInputCaloHitList)
		require.NoError(t, err)
		require.Empty(t, inputHits)

		trackList, err := api.Tracks.GetCurrentListName()
		require.NoError(t, err)
		require.Equal(t, "rc_0", trackList)

		candidate, handles, err := api.RunClusteringAlgorithm(ctx, "each")
		if err != nil {
			return err
		}
		require.Len(t, handles, 3)

		if err := api.EndReclustering(candidate); err != nil {
			return err
		}
		require.False(t, api.Reclustering())

		_, err = api.Clusters.Object(original)
		require.ErrorIs(t, err, status.ErrNotFound)
		_, err = api.Clusters.GetList(orig)
		require.ErrorIs(t, err, status.ErrNotFound)
		_, err = api.Clusters.GetList(candidate)
		require.ErrorIs(t, err, status.ErrNotFound)

		current, err = api.Clusters.GetCurrentListName()
		require.NoError(t, err)
		require.Equal(t, "Clusters", current)
		hitList, err = api.Hits.GetCurrentListName()
		require.NoError(t, err)
		require.Equal(t, DefaultInputCaloHitList, hitList)
		return nil
	})

	res, err := inst.ProcessEvent(context.Background(), testEvent())
	require.NoError(t, err)

	clusters, ok := res.Clusters.Named("Clusters")
	require.True(t, ok)
	require.Equal(t, 3, clusters.Objects)
	hits, ok := res.Hits.Named(DefaultInputCaloHitList)
	require.True(t, ok)
	require.Equal(t, 3, hits.Objects)
	tracks, ok := res.Tracks.Named(DefaultInputTrackList)
	require.True(t, ok)
	require.Equal(t, 1, tracks.Objects)
	require.Len(t, res.Hits.Lists, 1)
	require.Len(t, res.Tracks.Lists, 1)
}

func TestReclustering_KeepOriginal(t *testing.T) {
	var original arena.Handle
	inst := newReclusterInstance(t, func(ctx context.Context, api *API) error {
		var err error
		if original, err = reclusterSetup(api); err != nil {
			return err
		}
		orig, err := api.InitializeReclustering(nil, []arena.Handle{original})
		if err != nil {
			return err
		}
		if _, _, err := api.RunClusteringAlgorithm(ctx, "each"); err != nil {
			return err
		}
		return api.EndReclustering(orig)
	})

	res, err := inst.ProcessEvent(context.Background(), testEvent())
	require.NoError(t, err)
	require.Equal(t, []ListSummary{{Name: "Clusters", Objects: 1, Saved: true}}, res.Clusters.Lists)
	require.Equal(t, original, res.ClusterDetails[0].Handle)
	require.Equal(t, 3, res.ClusterDetails[0].Hits)
	require.Equal(t, 1, res.Clusters.Objects)
}

func TestReclustering_EndedAtScopeExit(t *testing.T) {
	var original arena.Handle
	inst := newReclusterInstance(t, func(ctx context.Context, api *API) error {
		var err error
		if original, err = reclusterSetup(api); err != nil {
			return err
		}
		if _, err := api.InitializeReclustering(nil, []arena.Handle{original}); err != nil {
			return err
		}
		_, _, err = api.RunClusteringAlgorithm(ctx, "each")
		return err
	})

	res, err := inst.ProcessEvent(context.Background(), testEvent())
	require.NoError(t, err)
	require.Len(t, res.ClusterDetails, 1)
	require.Equal(t, original, res.ClusterDetails[0].Handle)

	hits, _, clusters := inst.Snapshots()
	require.Empty(t, clusters.Scopes)
	require.Equal(t, 3, hits.Objects)
}

func TestReclustering_Errors(t *testing.T) {
	inst := newReclusterInstance(t, func(ctx context.Context, api *API) error {
		require.ErrorIs(t, api.EndReclustering("rc_0"), status.ErrNotInitialized)

		_, err := api.InitializeReclustering(nil, nil)
		require.ErrorIs(t, err, status.ErrInvalidParameter)

		c, err := reclusterSetup(api)
		if err != nil {
			return err
		}
		orig, err := api.InitializeReclustering(nil, []arena.Handle{c})
		require.NoError(t, err)

		_, err = api.InitializeReclustering(nil, []arena.Handle{c})
		require.ErrorIs(t, err, status.ErrFailure)
		require.ErrorIs(t, api.EndReclustering("Clusters"), status.ErrNotFound)

		// The failed call leaves reclustering in progress.
		require.True(t, api.Reclustering())
		return api.EndReclustering(orig)
	})

	_, err := inst.ProcessEvent(context.Background(), testEvent())
	require.NoError(t, err)
}

func TestReclustering_StaleClusterRejected(t *testing.T) {
	inst := newReclusterInstance(t, func(ctx context.Context, api *API) error {
		c, err := reclusterSetup(api)
		if err != nil {
			return err
		}
		require.NoError(t, api.Clusters.DeleteObject(c))

		_, err = api.InitializeReclustering(nil, []arena.Handle{c})
		require.ErrorIs(t, err, status.ErrNotFound)
		require.False(t, api.Reclustering())
		return nil
	})

	_, err := inst.ProcessEvent(context.Background(), testEvent())
	require.NoError(t, err)

	_, _, clusters := inst.Snapshots()
	require.Equal(t, "Clusters", clusters.Current)
	require.NotContains(t, clusters.Scopes, listmgr.ScopeID("rc"))
}

func TestReclustering_TemporarySourceStaysTemporary(t *testing.T) {
	var inst *Instance
	inst = newReclusterInstance(t, func(ctx context.Context, api *API) error {
		tmp, err := api.Clusters.MakeTemporaryAndSetCurrent()
		if err != nil {
			return err
		}
		c, err := clusterAllHits(api)
		if err != nil {
			return err
		}
		if _, err := api.InitializeReclustering(nil, []arena.Handle{c}); err != nil {
			return err
		}
		candidate, _, err := api.RunClusteringAlgorithm(ctx, "each")
		if err != nil {
			return err
		}
		if err := api.EndReclustering(candidate); err != nil {
			return err
		}

		members, err := api.Clusters.GetList(tmp)
		require.NoError(t, err)
		require.Len(t, members, 3)

		hits, _, clusters := inst.Snapshots()
		require.True(t, clusters.Temporary(tmp))
		require.NotContains(t, clusters.Saved, tmp)
		require.NotContains(t, hits.Saved, DefaultInputCaloHitList)
		return nil
	})

	res, err := inst.ProcessEvent(context.Background(), testEvent())
	require.NoError(t, err)
	require.Empty(t, res.Clusters.Lists)
	require.Zero(t, res.Clusters.Objects)

	hits, ok := res.Hits.Named(DefaultInputCaloHitList)
	require.True(t, ok)
	require.Equal(t, 3, hits.Objects)
	require.False(t, hits.Saved)
}
