package presentation

import (
	"math"

	"github.com/zjrosen/pflow/internal/pipeline"
)

// ResultDTO represents one processed event for presentation
type ResultDTO struct {
	Event    int          `json:"event"`
	Error    string       `json:"error,omitempty"`
	Hits     ManagerDTO   `json:"calo_hits"`
	Tracks   ManagerDTO   `json:"tracks"`
	Clusters ManagerDTO   `json:"clusters"`
	Details  []ClusterDTO `json:"cluster_details,omitempty"`
	// Changes counts list-manager changes; set only with the change-log flag.
	Changes int `json:"changes,omitempty"`
}

// ManagerDTO represents the named lists of one manager
type ManagerDTO struct {
	Current string    `json:"current"`
	Objects int       `json:"objects"`
	Lists   []ListDTO `json:"lists"`
}

// ListDTO represents one named list
type ListDTO struct {
	Name    string `json:"name"`
	Objects int    `json:"objects"`
	Saved   bool   `json:"saved"`
}

// ClusterDTO represents one cluster
type ClusterDTO struct {
	List       string     `json:"list"`
	Handle     string     `json:"handle"`
	Hits       int        `json:"hits"`
	Tracks     int        `json:"tracks"`
	Energy     float64    `json:"energy"`
	Centroid   [3]float64 `json:"centroid"`
	InnerLayer uint32     `json:"inner_layer"`
	OuterLayer uint32     `json:"outer_layer"`
}

// FromResult converts a pipeline result. A nil result (an aborted event)
// yields a DTO carrying only the index and the error.
func FromResult(index int, res *pipeline.Result, err error) ResultDTO {
	dto := ResultDTO{Event: index}
	if err != nil {
		dto.Error = err.Error()
	}
	if res == nil {
		return dto
	}
	dto.Hits = fromManager(res.Hits)
	dto.Tracks = fromManager(res.Tracks)
	dto.Clusters = fromManager(res.Clusters)
	for _, c := range res.ClusterDetails {
		dto.Details = append(dto.Details, ClusterDTO{
			List:       c.List,
			Handle:     c.Handle.String(),
			Hits:       c.Hits,
			Tracks:     c.Tracks,
			Energy:     round(c.Energy),
			Centroid:   [3]float64{round(c.Centroid.X), round(c.Centroid.Y), round(c.Centroid.Z)},
			InnerLayer: c.InnerLayer,
			OuterLayer: c.OuterLayer,
		})
	}
	return dto
}

func fromManager(m pipeline.ManagerSummary) ManagerDTO {
	out := ManagerDTO{Current: m.Current, Objects: m.Objects, Lists: make([]ListDTO, 0, len(m.Lists))}
	for _, l := range m.Lists {
		out.Lists = append(out.Lists, ListDTO{Name: l.Name, Objects: l.Objects, Saved: l.Saved})
	}
	return out
}

func round(f float64) float64 {
	return math.Round(f*1000) / 1000
}
