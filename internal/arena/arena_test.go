package arena

import (
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestStore_CreateGet(t *testing.T) {
	s := New[string]()

	h := s.Create("cluster")
	require.False(t, h.IsZero())

	got, ok := s.Get(h)
	require.True(t, ok)
	require.Equal(t, "cluster", got)
	require.Equal(t, 1, s.Len())
}

func TestStore_DestroyInvalidatesHandle(t *testing.T) {
	s := New[int]()
	h := s.Create(7)

	require.True(t, s.Destroy(h))
	require.False(t, s.Contains(h))
	require.False(t, s.Destroy(h), "double destroy must be rejected")

	_, ok := s.Get(h)
	require.False(t, ok)
	require.Equal(t, 0, s.Len())
}

func TestStore_ReusedSlotRejectsStaleHandle(t *testing.T) {
	s := New[int]()
	old := s.Create(1)
	require.True(t, s.Destroy(old))

	fresh := s.Create(2)
	require.NotEqual(t, old, fresh)
	require.False(t, s.Contains(old))

	got, ok := s.Get(fresh)
	require.True(t, ok)
	require.Equal(t, 2, got)
}

func TestStore_ZeroHandle(t *testing.T) {
	s := New[int]()
	s.Create(1)

	var h Handle
	require.True(t, h.IsZero())
	require.False(t, s.Contains(h))
}

func TestStore_Reset(t *testing.T) {
	s := New[int]()
	a := s.Create(1)
	b := s.Create(2)

	s.Reset()
	require.Equal(t, 0, s.Len())
	require.False(t, s.Contains(a))
	require.False(t, s.Contains(b))

	c := s.Create(3)
	require.True(t, s.Contains(c))
	require.NotEqual(t, a, c)
	require.NotEqual(t, b, c)
}

func TestProperty_HandlesNeverAlias(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		s := New[int]()
		live := make(map[Handle]int)
		var dead []Handle

		steps := rapid.IntRange(1, 200).Draw(t, "steps")
		for i := 0; i < steps; i++ {
			if len(live) == 0 || rapid.Bool().Draw(t, "create") {
				h := s.Create(i)
				_, dup := live[h]
				require.False(t, dup, "handle %v issued twice", h)
				live[h] = i
				continue
			}
			for h := range live {
				require.True(t, s.Destroy(h))
				delete(live, h)
				dead = append(dead, h)
				break
			}
		}

		require.Equal(t, len(live), s.Len())
		for h, v := range live {
			got, ok := s.Get(h)
			require.True(t, ok)
			require.Equal(t, v, got)
		}
		for _, h := range dead {
			require.False(t, s.Contains(h))
		}
	})
}
