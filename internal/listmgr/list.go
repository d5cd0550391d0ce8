package listmgr

import (
	"slices"

	"github.com/zjrosen/pflow/internal/arena"
)

// objectList is an insertion-ordered set of handles.
type objectList struct {
	order []arena.Handle
	index map[arena.Handle]struct{}
}

func newObjectList() *objectList {
	return &objectList{index: make(map[arena.Handle]struct{})}
}

func (l *objectList) len() int {
	return len(l.order)
}

func (l *objectList) contains(h arena.Handle) bool {
	_, ok := l.index[h]
	return ok
}

// add appends h; it reports false when h is already present.
func (l *objectList) add(h arena.Handle) bool {
	if l.contains(h) {
		return false
	}
	l.index[h] = struct{}{}
	l.order = append(l.order, h)
	return true
}

func (l *objectList) remove(h arena.Handle) bool {
	if !l.contains(h) {
		return false
	}
	delete(l.index, h)
	if i := slices.Index(l.order, h); i >= 0 {
		l.order = slices.Delete(l.order, i, i+1)
	}
	return true
}

// removeSet drops every handle in set with a single pass over the order.
func (l *objectList) removeSet(set map[arena.Handle]struct{}) {
	if len(set) == 0 {
		return
	}
	l.order = slices.DeleteFunc(l.order, func(h arena.Handle) bool {
		_, drop := set[h]
		if drop {
			delete(l.index, h)
		}
		return drop
	})
}

// handles returns a copy of the members in insertion order.
func (l *objectList) handles() []arena.Handle {
	return slices.Clone(l.order)
}

// intersect returns the members of sel that are in l, deduplicated and in sel order.
func (l *objectList) intersect(sel []arena.Handle) []arena.Handle {
	seen := make(map[arena.Handle]struct{}, len(sel))
	out := make([]arena.Handle, 0, len(sel))
	for _, h := range sel {
		if _, dup := seen[h]; dup || !l.contains(h) {
			continue
		}
		seen[h] = struct{}{}
		out = append(out, h)
	}
	return out
}
