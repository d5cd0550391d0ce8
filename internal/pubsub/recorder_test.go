package pubsub

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRecorder_KeepsOrder(t *testing.T) {
	rec := NewRecorder[string]()
	rec.Publish(CreatedEvent, "a")
	rec.Publish(DeletedEvent, "b")

	events := rec.Events()
	require.Len(t, events, 2)
	require.Equal(t, "a", events[0].Payload)
	require.Equal(t, uint64(2), events[1].Seq)

	rec.Reset()
	require.Empty(t, rec.Events())
}

func TestFanout_SkipsNil(t *testing.T) {
	a := NewRecorder[int]()
	b := NewRecorder[int]()

	Fanout[int]{a, nil, b}.Publish(UpdatedEvent, 7)

	require.Len(t, a.Events(), 1)
	require.Len(t, b.Events(), 1)
}
