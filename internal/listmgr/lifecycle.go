package listmgr

import (
	"sort"

	"github.com/zjrosen/pflow/internal/arena"
	"github.com/zjrosen/pflow/internal/log"
	"github.com/zjrosen/pflow/internal/pubsub"
	"github.com/zjrosen/pflow/internal/status"
)

var _ Lifecycle = (*Manager[nopContent, struct{}])(nil)

// nopContent exists only for the interface assertion above.
type nopContent struct{}

func (nopContent) Merge(nopContent) error { return nil }
func (nopContent) IsEmpty() bool          { return true }

// RegisterAlgorithm makes id known to the manager. Registration opens the
// scope used during the algorithm's own initialization.
func (m *Manager[C, P]) RegisterAlgorithm(id ScopeID) error {
	return m.EnterScope(id)
}

// EnterScope opens a scope for id with the current list as its input list.
// Entering a scope that is already open keeps the existing record.
func (m *Manager[C, P]) EnterScope(id ScopeID) (err error) {
	defer func() { m.observe("EnterScope", err) }()

	if id == "" {
		return status.New(status.InvalidParameter, "EnterScope", "empty algorithm id")
	}
	if m.scopes.enter(id, m.reg.current) {
		m.publish(pubsub.CreatedEvent, Change{Kind: ScopeEntered, Scope: id, List: m.reg.current})
		log.Debug(log.CatScope, "scope entered", "manager", m.name, "scope", id, "input", m.reg.current)
	}
	return nil
}

// ExitScope deletes every temporary list of id together with its objects and
// restores id's input list as current. A Finished scope is forgotten; a
// Suspended one keeps its input list and name counter.
func (m *Manager[C, P]) ExitScope(id ScopeID, completion Completion) (err error) {
	const op = "ExitScope"
	defer func() { m.observe(op, err) }()

	if completion != Suspended && completion != Finished {
		return status.New(status.InvalidParameter, op, "invalid completion %d", int(completion))
	}
	s, ok := m.scopes.scopes[id]
	if !ok {
		return status.New(status.Fatal, op, "no open scope for algorithm %q", id)
	}

	var deleted int
	for _, name := range s.temporaryNames() {
		if !m.reg.exists(name) {
			log.Warn(log.CatScope, "temporary list vanished before scope exit", "manager", m.name, "scope", id, "list", name)
			continue
		}
		if err := m.deleteList(name, id); err != nil {
			return err
		}
		deleted++
	}
	clear(s.temporary)
	m.restoreCurrent(s.inputList)

	if completion == Finished {
		m.scopes.remove(id)
	}

	m.publish(pubsub.DeletedEvent, Change{Kind: ScopeExited, Scope: id, List: m.reg.current, Objects: deleted})
	log.Debug(log.CatScope, "scope exited",
		"manager", m.name, "scope", id, "completion", completion, "temporary_lists", deleted, "current", m.reg.current)
	return nil
}

// PendingDeletion returns the objects ExitScope(id) would destroy, grouped by
// temporary list in name order.
func (m *Manager[C, P]) PendingDeletion(id ScopeID) ([]arena.Handle, error) {
	s, err := m.scopes.get("PendingDeletion", id)
	if err != nil {
		return nil, err
	}
	var out []arena.Handle
	for _, name := range s.temporaryNames() {
		if l, ok := m.reg.lists[name]; ok {
			out = append(out, l.order...)
		}
	}
	return out, nil
}

// CreateNamedList registers an empty persistent list. The pipeline uses it
// for the input lists of each event.
func (m *Manager[C, P]) CreateNamedList(name string) (err error) {
	defer func() { m.observe("CreateNamedList", err) }()

	if err := m.reg.createNamedList(name); err != nil {
		return err
	}
	m.publish(pubsub.CreatedEvent, Change{Kind: ListCreated, List: name})
	return nil
}

// SetCurrent makes an existing list current.
func (m *Manager[C, P]) SetCurrent(name string) (err error) {
	defer func() { m.observe("SetCurrent", err) }()

	if err := m.reg.setCurrent(name); err != nil {
		return err
	}
	m.publish(pubsub.UpdatedEvent, Change{Kind: CurrentChanged, List: name})
	return nil
}

// ResetForNextEvent destroys every object and list and closes every scope.
func (m *Manager[C, P]) ResetForNextEvent() {
	m.store.Reset()
	m.reg = newRegistry()
	m.scopes.reset()
	clear(m.saved)
	m.publish(pubsub.DeletedEvent, Change{Kind: ManagerReset, List: NullList})
	m.observe("ResetForNextEvent", nil)
}

// Snapshot is a read-only copy of the manager state.
type Snapshot struct {
	Current string
	Lists   map[string][]arena.Handle
	Saved   []string
	Scopes  map[ScopeID]ScopeSnapshot
	Objects int
}

// ScopeSnapshot describes one open scope.
type ScopeSnapshot struct {
	InputList string
	Temporary []string
	Created   uint64
}

// Snapshot copies the current state.
func (m *Manager[C, P]) Snapshot() Snapshot {
	snap := Snapshot{
		Current: m.reg.current,
		Lists:   make(map[string][]arena.Handle, len(m.reg.lists)),
		Scopes:  make(map[ScopeID]ScopeSnapshot, len(m.scopes.scopes)),
		Objects: m.store.Len(),
	}
	for name, l := range m.reg.lists {
		snap.Lists[name] = l.handles()
	}
	for name := range m.saved {
		snap.Saved = append(snap.Saved, name)
	}
	sort.Strings(snap.Saved)
	for id, s := range m.scopes.scopes {
		snap.Scopes[id] = ScopeSnapshot{
			InputList: s.inputList,
			Temporary: s.temporaryNames(),
			Created:   s.created,
		}
	}
	return snap
}

// Temporary reports whether name is a temporary list of any open scope.
func (s Snapshot) Temporary(name string) bool {
	for _, sc := range s.Scopes {
		for _, t := range sc.Temporary {
			if t == name {
				return true
			}
		}
	}
	return false
}
