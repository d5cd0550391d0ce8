// Package pipeline runs reconstruction algorithms over events.
//
// An Instance owns one list manager per object type (calo hits, tracks and
// clusters) and brackets every algorithm invocation with EnterScope and
// ExitScope on all three. Algorithms only ever see an *API: scoped content
// views plus the daughter-algorithm and reclustering helpers.
package pipeline

import (
	"context"
	"time"

	"github.com/zjrosen/pflow/internal/cachemanager"
	"github.com/zjrosen/pflow/internal/content"
	"github.com/zjrosen/pflow/internal/listmgr"
	"github.com/zjrosen/pflow/internal/status"
)

type (
	HitManager     = listmgr.Manager[*content.CaloHit, content.CaloHitParameters]
	TrackManager   = listmgr.Manager[*content.Track, content.TrackParameters]
	ClusterManager = listmgr.Manager[*content.Cluster, content.ClusterParameters]

	HitAPI     = listmgr.ContentAPI[*content.CaloHit, content.CaloHitParameters]
	TrackAPI   = listmgr.ContentAPI[*content.Track, content.TrackParameters]
	ClusterAPI = listmgr.ContentAPI[*content.Cluster, content.ClusterParameters]
)

const nullListName = listmgr.NullList

// Algorithm is a reconstruction step.
//
// Initialize is called once when the instance is created, inside the
// algorithm's own scope; it decodes settings and creates daughters. Run is
// called once per event, or once per RunDaughterAlgorithm call for daughters.
type Algorithm interface {
	Initialize(api *API, cfg AlgorithmConfig) error
	Run(ctx context.Context, api *API) error
}

// Event outcomes reported to Metrics.
const (
	OutcomeOK      = "ok"
	OutcomeFailed  = "failed"
	OutcomeAborted = "aborted"
)

// Metrics receives pipeline and manager measurements. internal/metrics
// provides the Prometheus implementation.
type Metrics interface {
	listmgr.Recorder
	RecordEvent(outcome string, d time.Duration)
	RecordAlgorithm(algorithm string, d time.Duration)
	RecordCache(s cachemanager.Stats)
}

type nopMetrics struct{}

func (nopMetrics) RecordOperation(string, string, status.Code) {}
func (nopMetrics) RecordSize(string, int, int)                 {}
func (nopMetrics) RecordEvent(string, time.Duration)           {}
func (nopMetrics) RecordAlgorithm(string, time.Duration)       {}
func (nopMetrics) RecordCache(cachemanager.Stats)              {}
