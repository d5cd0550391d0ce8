package pipeline

import (
	"slices"
	"sort"

	"github.com/zjrosen/pflow/internal/arena"
	"github.com/zjrosen/pflow/internal/content"
	"github.com/zjrosen/pflow/internal/listmgr"
)

// Result summarizes the manager state after an event.
type Result struct {
	Event    int
	Hits     ManagerSummary
	Tracks   ManagerSummary
	Clusters ManagerSummary

	// ClusterDetails covers every cluster in every non-null cluster list,
	// ordered by list name and then by decreasing energy.
	ClusterDetails []ClusterSummary
}

// ManagerSummary lists the named lists of one manager.
type ManagerSummary struct {
	Current string
	Objects int
	Lists   []ListSummary
}

// ListSummary describes one named list.
type ListSummary struct {
	Name    string
	Objects int
	Saved   bool
}

// ClusterSummary describes one cluster.
type ClusterSummary struct {
	List       string
	Handle     arena.Handle
	Hits       int
	Tracks     int
	Energy     float64
	Centroid   content.Vector
	InnerLayer uint32
	OuterLayer uint32
}

// Snapshots returns the state of the hit, track and cluster managers.
func (i *Instance) Snapshots() (hits, tracks, clusters listmgr.Snapshot) {
	return i.hits.Snapshot(), i.tracks.Snapshot(), i.clusters.Snapshot()
}

func summarize(s listmgr.Snapshot) ManagerSummary {
	out := ManagerSummary{Current: s.Current, Objects: s.Objects}
	for name, hs := range s.Lists {
		if name == nullListName {
			continue
		}
		out.Lists = append(out.Lists, ListSummary{
			Name:    name,
			Objects: len(hs),
			Saved:   slices.Contains(s.Saved, name),
		})
	}
	sort.Slice(out.Lists, func(a, b int) bool { return out.Lists[a].Name < out.Lists[b].Name })
	return out
}

func (i *Instance) result(index int) *Result {
	hits, tracks, clusters := i.Snapshots()
	res := &Result{
		Event:    index,
		Hits:     summarize(hits),
		Tracks:   summarize(tracks),
		Clusters: summarize(clusters),
	}

	for _, ls := range res.Clusters.Lists {
		var details []ClusterSummary
		for _, h := range clusters.Lists[ls.Name] {
			c, err := i.clusters.Object(h)
			if err != nil {
				continue
			}
			details = append(details, ClusterSummary{
				List:       ls.Name,
				Handle:     h,
				Hits:       c.NHits(),
				Tracks:     len(c.Tracks()),
				Energy:     c.Energy(),
				Centroid:   c.Centroid(),
				InnerLayer: c.InnerPseudoLayer(),
				OuterLayer: c.OuterPseudoLayer(),
			})
		}
		sort.SliceStable(details, func(a, b int) bool { return details[a].Energy > details[b].Energy })
		res.ClusterDetails = append(res.ClusterDetails, details...)
	}
	return res
}

// Named returns the summary of list name, if present.
func (m ManagerSummary) Named(name string) (ListSummary, bool) {
	for _, l := range m.Lists {
		if l.Name == name {
			return l, true
		}
	}
	return ListSummary{}, false
}
