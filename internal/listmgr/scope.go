package listmgr

import (
	"fmt"
	"sort"

	"github.com/zjrosen/pflow/internal/status"
)

// ScopeID identifies an algorithm instance. It is stable across the repeated
// invocations of that instance within an event and is used as the prefix of
// the instance's temporary list names.
type ScopeID string

// Completion states how an algorithm phase ended. It is a required argument
// of ExitScope.
type Completion int

const (
	// Suspended keeps the scope record: a later stage of the same instance
	// continues with the same input list and name counter.
	Suspended Completion = iota + 1
	// Finished drops the scope record; the next entry starts afresh.
	Finished
)

func (c Completion) String() string {
	switch c {
	case Suspended:
		return "suspended"
	case Finished:
		return "finished"
	default:
		return "invalid"
	}
}

type scopeRecord struct {
	inputList string
	temporary map[string]struct{}
	created   uint64
}

func (s *scopeRecord) temporaryNames() []string {
	names := make([]string, 0, len(s.temporary))
	for name := range s.temporary {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// scopeTracker holds one record per open algorithm scope.
type scopeTracker struct {
	scopes map[ScopeID]*scopeRecord
}

func newScopeTracker() *scopeTracker {
	return &scopeTracker{scopes: make(map[ScopeID]*scopeRecord)}
}

// enter opens a scope for id recording current as its input list.
// It reports false, and changes nothing, when the scope is already open.
func (t *scopeTracker) enter(id ScopeID, current string) bool {
	if _, ok := t.scopes[id]; ok {
		return false
	}
	t.scopes[id] = &scopeRecord{
		inputList: current,
		temporary: make(map[string]struct{}),
	}
	return true
}

func (t *scopeTracker) get(op string, id ScopeID) (*scopeRecord, error) {
	s, ok := t.scopes[id]
	if !ok {
		return nil, status.New(status.NotFound, op, "no open scope for algorithm %q", id)
	}
	return s, nil
}

// nextTemporaryName returns "<id>_<n>" for the first counter value whose name
// is not taken, advancing the counter past it.
func (t *scopeTracker) nextTemporaryName(s *scopeRecord, id ScopeID, taken func(string) bool) string {
	for {
		name := fmt.Sprintf("%s_%d", id, s.created)
		s.created++
		if !taken(name) {
			return name
		}
	}
}

func (t *scopeTracker) record(s *scopeRecord, name string) {
	s.temporary[name] = struct{}{}
}

func (t *scopeTracker) unrecord(s *scopeRecord, name string) bool {
	if _, ok := s.temporary[name]; !ok {
		return false
	}
	delete(s.temporary, name)
	return true
}

// owner returns the scope that has name in its temporary set.
func (t *scopeTracker) owner(name string) (ScopeID, bool) {
	for id, s := range t.scopes {
		if _, ok := s.temporary[name]; ok {
			return id, true
		}
	}
	return "", false
}

func (t *scopeTracker) remove(id ScopeID) {
	delete(t.scopes, id)
}

func (t *scopeTracker) reset() {
	t.scopes = make(map[ScopeID]*scopeRecord)
}
