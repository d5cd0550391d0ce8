package presentation

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/stretchr/testify/require"

	"github.com/zjrosen/pflow/internal/content"
	"github.com/zjrosen/pflow/internal/pipeline"
)

func sampleResult() *pipeline.Result {
	return &pipeline.Result{
		Event: 3,
		Hits: pipeline.ManagerSummary{Current: "CaloHits", Objects: 4, Lists: []pipeline.ListSummary{
			{Name: "CaloHits", Objects: 4, Saved: true},
		}},
		Tracks: pipeline.ManagerSummary{Current: "Tracks", Objects: 1, Lists: []pipeline.ListSummary{
			{Name: "Tracks", Objects: 1, Saved: true},
		}},
		Clusters: pipeline.ManagerSummary{Current: "PrimaryClusters", Objects: 2, Lists: []pipeline.ListSummary{
			{Name: "PrimaryClusters", Objects: 2, Saved: true},
		}},
		ClusterDetails: []pipeline.ClusterSummary{
			{List: "PrimaryClusters", Hits: 3, Tracks: 1, Energy: 7.12345, Centroid: content.Vector{X: 1850.0004}, InnerLayer: 1, OuterLayer: 4},
			{List: "PrimaryClusters", Hits: 1, Energy: 2, InnerLayer: 2, OuterLayer: 2},
		},
	}
}

func TestFromResult(t *testing.T) {
	dto := FromResult(3, sampleResult(), nil)
	require.Equal(t, 3, dto.Event)
	require.Empty(t, dto.Error)
	require.Equal(t, "PrimaryClusters", dto.Clusters.Current)
	require.Len(t, dto.Details, 2)
	require.InDelta(t, 7.123, dto.Details[0].Energy, 1e-9)
	require.InDelta(t, 1850.0, dto.Details[0].Centroid[0], 1e-9)
}

func TestFromResult_Aborted(t *testing.T) {
	dto := FromResult(5, nil, errors.New("boom"))
	require.Equal(t, ResultDTO{Event: 5, Error: "boom"}, dto)
}

func TestFormatResults_JSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewFormatter(&buf).FormatResults([]ResultDTO{FromResult(3, sampleResult(), nil)}))

	var decoded []map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	require.Len(t, decoded, 1)
	require.EqualValues(t, 3, decoded[0]["event"])
	require.NotContains(t, decoded[0], "error")
	require.Contains(t, decoded[0], "cluster_details")
}

func TestFormatSummary(t *testing.T) {
	var buf bytes.Buffer
	results := []ResultDTO{
		FromResult(3, sampleResult(), nil),
		FromResult(4, nil, errors.New("fatal: deleting NullList")),
	}
	require.NoError(t, NewFormatter(&buf).FormatSummary(results))

	out := buf.String()
	require.Contains(t, out, "Event 3")
	require.Contains(t, out, "PrimaryClusters")
	require.Contains(t, out, "current, saved")
	require.Contains(t, out, "7.12")
	require.Contains(t, out, "1-4")
	require.Contains(t, out, "Event 4")
	require.Contains(t, out, "error: fatal: deleting NullList")
}

func TestFormatAlgorithms(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewFormatter(&buf).FormatAlgorithms([]string{"A", "B"}))
	require.Equal(t, []string{"A", "B"}, strings.Fields(buf.String()))
}

func TestRenderTable_Aligns(t *testing.T) {
	out := renderTable([][]string{{"a", "b"}, {"long", "x"}}, func(int) lipgloss.Style { return lipgloss.NewStyle() })
	lines := strings.Split(out, "\n")
	require.Len(t, lines, 2)
	require.Equal(t, strings.Index(lines[0], "b"), strings.Index(lines[1], "x"))
}
