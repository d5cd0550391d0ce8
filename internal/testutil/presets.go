package testutil

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zjrosen/pflow/internal/content"
	"github.com/zjrosen/pflow/internal/event"
)

// SplitShower has a 5 GeV track along x whose shower picks up a nearby
// 4 GeV neutral deposit, plus an isolated 2 GeV deposit.
func SplitShower() event.Event {
	return NewBuilder(3).
		WithHitLine(1850, 0, 5, 3, 5).
		WithHit(1850, 40, Energy(2)).
		WithHit(1855, 40, Energy(2), Layer(1)).
		WithHit(1850, 500, Energy(2)).
		WithTrack(content.Vector{X: 5}, AtECal(content.Vector{X: 1850})).
		Build()
}

// WriteEvents stores events in a temporary event file and returns its path.
func WriteEvents(t *testing.T, events ...event.Event) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "events.yaml")
	require.NoError(t, event.WriteFile(path, events))
	return path
}
