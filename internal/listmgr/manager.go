package listmgr

import (
	"github.com/zjrosen/pflow/internal/arena"
	"github.com/zjrosen/pflow/internal/log"
	"github.com/zjrosen/pflow/internal/pubsub"
	"github.com/zjrosen/pflow/internal/status"
)

// Manager is the scoped list manager for one object type.
// It is owned by a single reconstruction instance and is not safe for
// concurrent use.
type Manager[C Content[C], P any] struct {
	name     string
	factory  Factory[C, P]
	store    *arena.Store[C]
	reg      *registry
	scopes   *scopeTracker
	saved    map[string]struct{}
	events   pubsub.Publisher[Change]
	recorder Recorder
}

// Option configures a Manager.
type Option func(*options)

type options struct {
	events   pubsub.Publisher[Change]
	recorder Recorder
}

// WithPublisher publishes a Change for every structural change.
func WithPublisher(p pubsub.Publisher[Change]) Option {
	return func(o *options) { o.events = p }
}

// WithRecorder reports operation outcomes and sizes to r.
func WithRecorder(r Recorder) Option {
	return func(o *options) { o.recorder = r }
}

// New creates a manager named name (e.g. "clusters") that builds objects with factory.
func New[C Content[C], P any](name string, factory Factory[C, P], opts ...Option) *Manager[C, P] {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	return &Manager[C, P]{
		name:     name,
		factory:  factory,
		store:    arena.New[C](),
		reg:      newRegistry(),
		scopes:   newScopeTracker(),
		saved:    make(map[string]struct{}),
		events:   o.events,
		recorder: o.recorder,
	}
}

// Name returns the manager name.
func (m *Manager[C, P]) Name() string {
	return m.name
}

// View returns the content-facing API bound to the scope id.
func (m *Manager[C, P]) View(id ScopeID) ContentAPI[C, P] {
	return &scopedView[C, P]{m: m, id: id}
}

// ---------------------------------------------------------------------------
// Objects
// ---------------------------------------------------------------------------

// CreateObject builds an object from params into the current list.
func (m *Manager[C, P]) CreateObject(params P) (h arena.Handle, err error) {
	defer func() { m.observe("CreateObject", err) }()

	if m.reg.current == NullList {
		return arena.Handle{}, status.New(status.NotInitialized, "CreateObject", "current %s list is the null list", m.name)
	}
	content, ferr := m.factory(params)
	if ferr != nil {
		return arena.Handle{}, status.Wrap(status.InvalidParameter, "CreateObject", ferr)
	}
	h = m.store.Create(content)
	m.reg.insert(m.reg.current, h)
	return h, nil
}

// Object returns the content behind h.
func (m *Manager[C, P]) Object(h arena.Handle) (C, error) {
	c, ok := m.store.Get(h)
	if !ok {
		return c, status.New(status.NotFound, "Object", "%s object %v", m.name, h)
	}
	return c, nil
}

// Modify runs fn against the object behind h.
func (m *Manager[C, P]) Modify(h arena.Handle, fn func(C) error) (err error) {
	defer func() { m.observe("Modify", err) }()

	c, err := m.Object(h)
	if err != nil {
		return err
	}
	if ferr := fn(c); ferr != nil {
		return status.Wrap(status.Failure, "Modify", ferr)
	}
	return nil
}

// Owner returns the list h is filed in.
func (m *Manager[C, P]) Owner(h arena.Handle) (string, bool) {
	name, ok := m.reg.owner[h]
	return name, ok
}

// ---------------------------------------------------------------------------
// Lists
// ---------------------------------------------------------------------------

// GetCurrentListName returns the name of the current list.
func (m *Manager[C, P]) GetCurrentListName() (string, error) {
	if m.reg.current == "" {
		return "", status.New(status.NotInitialized, "GetCurrentListName", "no current %s list", m.name)
	}
	return m.reg.current, nil
}

// GetCurrentList returns the current list name and its members.
func (m *Manager[C, P]) GetCurrentList() (string, []arena.Handle, error) {
	name, err := m.GetCurrentListName()
	if err != nil {
		return "", nil, err
	}
	hs, err := m.GetList(name)
	return name, hs, err
}

// GetList returns a copy of the members of name in insertion order.
func (m *Manager[C, P]) GetList(name string) ([]arena.Handle, error) {
	l, err := m.reg.getList("GetList", name)
	if err != nil {
		return nil, err
	}
	return l.handles(), nil
}

// ListNames returns every registered list name, sorted.
func (m *Manager[C, P]) ListNames() []string {
	return m.reg.names()
}

// GetAlgorithmInputList returns the list that was current when id's scope
// was entered, or the current list when id has no open scope.
func (m *Manager[C, P]) GetAlgorithmInputList(id ScopeID) (string, []arena.Handle, error) {
	name := m.inputListName(id)
	hs, err := m.GetList(name)
	return name, hs, err
}

func (m *Manager[C, P]) inputListName(id ScopeID) string {
	if s, ok := m.scopes.scopes[id]; ok {
		return s.inputList
	}
	return m.reg.current
}

// MakeTemporaryAndSetCurrent creates an empty temporary list owned by id's
// scope and makes it current.
func (m *Manager[C, P]) MakeTemporaryAndSetCurrent(id ScopeID) (name string, err error) {
	const op = "MakeTemporaryAndSetCurrent"
	defer func() { m.observe(op, err) }()

	s, err := m.scopes.get(op, id)
	if err != nil {
		return "", err
	}
	name = m.makeTemporary(s, id)
	m.setCurrent(name)
	return name, nil
}

// MoveToTemporaryAndSetCurrent moves the members of selection that are in
// source into a new temporary list owned by id's scope and makes it current.
// Source must be the current list. Selected objects not in it are ignored;
// unselected ones stay behind.
func (m *Manager[C, P]) MoveToTemporaryAndSetCurrent(id ScopeID, source string, selection []arena.Handle) (name string, err error) {
	const op = "MoveToTemporaryAndSetCurrent"
	defer func() { m.observe(op, err) }()

	if len(selection) == 0 {
		return "", status.New(status.InvalidParameter, op, "empty selection")
	}
	s, err := m.scopes.get(op, id)
	if err != nil {
		return "", err
	}
	src, err := m.reg.getList(op, source)
	if err != nil {
		return "", err
	}
	if source != m.reg.current {
		return "", status.New(status.InvalidParameter, op, "list %q is not the current list %q", source, m.reg.current)
	}

	moving := src.intersect(selection)
	name = m.makeTemporary(s, id)
	for _, h := range moving {
		m.reg.move(h, source, name)
	}
	m.setCurrent(name)

	log.Debug(log.CatLists, "moved objects to temporary list",
		"manager", m.name, "source", source, "list", name, "moved", len(moving), "ignored", len(selection)-len(moving))
	return name, nil
}

func (m *Manager[C, P]) makeTemporary(s *scopeRecord, id ScopeID) string {
	name := m.scopes.nextTemporaryName(s, id, m.reg.exists)
	m.reg.lists[name] = newObjectList()
	m.scopes.record(s, name)
	m.publish(pubsub.CreatedEvent, Change{Kind: ListCreated, List: name, Scope: id})
	log.Debug(log.CatLists, "temporary list created", "manager", m.name, "scope", id, "list", name)
	return name
}

// SaveObjects moves every object in source into target, creating target if
// needed, and exempts target from id's scope cleanup.
func (m *Manager[C, P]) SaveObjects(id ScopeID, target, source string) (err error) {
	defer func() { m.observe("SaveObjects", err) }()
	return m.save("SaveObjects", id, target, source, nil)
}

// SaveObjectsSubset is SaveObjects restricted to the members of subset that
// are in source. Objects left in source keep their fate.
func (m *Manager[C, P]) SaveObjectsSubset(id ScopeID, target, source string, subset []arena.Handle) (err error) {
	const op = "SaveObjectsSubset"
	defer func() { m.observe(op, err) }()

	if len(subset) == 0 {
		return status.New(status.InvalidParameter, op, "empty subset")
	}
	return m.save(op, id, target, source, subset)
}

func (m *Manager[C, P]) save(op string, id ScopeID, target, source string, subset []arena.Handle) error {
	s, err := m.scopes.get(op, id)
	if err != nil {
		return err
	}
	src, err := m.reg.getList(op, source)
	if err != nil {
		return err
	}
	switch {
	case target == "":
		return status.New(status.InvalidParameter, op, "empty target list name")
	case target == NullList:
		return status.New(status.InvalidParameter, op, "cannot save into the null list")
	case target == source:
		return status.New(status.InvalidParameter, op, "target and source are both %q", source)
	}

	moving := src.handles()
	if subset != nil {
		moving = src.intersect(subset)
	}

	if !m.reg.exists(target) {
		m.reg.lists[target] = newObjectList()
		m.publish(pubsub.CreatedEvent, Change{Kind: ListCreated, List: target, Scope: id})
	}
	for _, h := range moving {
		m.reg.move(h, source, target)
	}

	m.scopes.unrecord(s, target)
	if _, temp := m.scopes.owner(target); !temp {
		m.saved[target] = struct{}{}
	}

	m.publish(pubsub.UpdatedEvent, Change{Kind: ListSaved, List: target, Scope: id, Objects: len(moving)})
	log.Debug(log.CatLists, "objects saved", "manager", m.name, "scope", id, "source", source, "target", target, "count", len(moving))
	return nil
}

// ReturnObjects moves every object in source back into target. Unlike
// SaveObjects it leaves the temporary and saved status of both lists alone,
// so a temporary target is still cleaned up when its scope exits.
func (m *Manager[C, P]) ReturnObjects(id ScopeID, target, source string) (err error) {
	const op = "ReturnObjects"
	defer func() { m.observe(op, err) }()

	src, err := m.reg.getList(op, source)
	if err != nil {
		return err
	}
	if _, err := m.reg.getList(op, target); err != nil {
		return err
	}
	if target == source {
		return status.New(status.InvalidParameter, op, "target and source are both %q", source)
	}

	moving := src.handles()
	for _, h := range moving {
		m.reg.move(h, source, target)
	}
	m.publish(pubsub.UpdatedEvent, Change{Kind: ObjectsReturned, List: target, Scope: id, Objects: len(moving)})
	log.Debug(log.CatLists, "objects returned", "manager", m.name, "scope", id, "source", source, "target", target, "count", len(moving))
	return nil
}

// TemporarilyReplaceCurrent makes name current until the enclosing scope exits.
func (m *Manager[C, P]) TemporarilyReplaceCurrent(name string) (err error) {
	const op = "TemporarilyReplaceCurrent"
	defer func() { m.observe(op, err) }()

	if _, err := m.reg.getList(op, name); err != nil {
		return err
	}
	m.setCurrent(name)
	return nil
}

// ReplaceCurrentAndAlgorithmInput makes a persistent list current and the
// input list of every open scope, so the change outlives scope exits.
func (m *Manager[C, P]) ReplaceCurrentAndAlgorithmInput(id ScopeID, name string) (err error) {
	const op = "ReplaceCurrentAndAlgorithmInput"
	defer func() { m.observe(op, err) }()

	if _, err := m.scopes.get(op, id); err != nil {
		return err
	}
	if _, err := m.reg.getList(op, name); err != nil {
		return err
	}
	if name == NullList {
		return status.New(status.InvalidParameter, op, "the null list cannot become an input list")
	}
	if owner, temp := m.scopes.owner(name); temp {
		return status.New(status.InvalidParameter, op, "list %q is temporary in scope %q", name, owner)
	}

	for _, s := range m.scopes.scopes {
		s.inputList = name
	}
	m.setCurrent(name)
	return nil
}

// ResetCurrentToAlgorithmInput makes id's input list current again.
func (m *Manager[C, P]) ResetCurrentToAlgorithmInput(id ScopeID) error {
	name := m.inputListName(id)
	if !m.reg.exists(name) {
		name = NullList
	}
	m.setCurrent(name)
	return nil
}

// DropCurrent makes the null list current, disabling object creation.
func (m *Manager[C, P]) DropCurrent() {
	m.setCurrent(NullList)
}

func (m *Manager[C, P]) setCurrent(name string) {
	if m.reg.current == name {
		return
	}
	m.reg.current = name
	m.publish(pubsub.UpdatedEvent, Change{Kind: CurrentChanged, List: name})
}

// ---------------------------------------------------------------------------
// Deletion and merging
// ---------------------------------------------------------------------------

// DeleteObject deletes h from the current list.
func (m *Manager[C, P]) DeleteObject(h arena.Handle) error {
	return m.DeleteObjectsFrom([]arena.Handle{h}, m.reg.current)
}

// DeleteObjectFrom deletes h from list.
func (m *Manager[C, P]) DeleteObjectFrom(h arena.Handle, list string) error {
	return m.DeleteObjectsFrom([]arena.Handle{h}, list)
}

// DeleteObjects deletes hs from the current list.
func (m *Manager[C, P]) DeleteObjects(hs []arena.Handle) error {
	return m.DeleteObjectsFrom(hs, m.reg.current)
}

// DeleteObjectsFrom removes hs from list and destroys them. Nothing is
// deleted unless every handle is a member of list.
func (m *Manager[C, P]) DeleteObjectsFrom(hs []arena.Handle, list string) (err error) {
	const op = "DeleteObjects"
	defer func() { m.observe(op, err) }()

	l, err := m.reg.getList(op, list)
	if err != nil {
		return err
	}
	set := make(map[arena.Handle]struct{}, len(hs))
	for _, h := range hs {
		if !l.contains(h) {
			return status.New(status.NotFound, op, "%s object %v not in list %q", m.name, h, list)
		}
		set[h] = struct{}{}
	}
	m.destroy(list, set)
	return nil
}

// DeleteEmptyObjects deletes every object in list whose content is empty and
// returns how many were deleted.
func (m *Manager[C, P]) DeleteEmptyObjects(list string) (n int, err error) {
	const op = "DeleteEmptyObjects"
	defer func() { m.observe(op, err) }()

	l, err := m.reg.getList(op, list)
	if err != nil {
		return 0, err
	}
	set := make(map[arena.Handle]struct{})
	for _, h := range l.order {
		if c, ok := m.store.Get(h); ok && c.IsEmpty() {
			set[h] = struct{}{}
		}
	}
	m.destroy(list, set)
	return len(set), nil
}

func (m *Manager[C, P]) destroy(list string, set map[arena.Handle]struct{}) {
	if len(set) == 0 {
		return
	}
	m.reg.evict(list, set)
	for h := range set {
		m.store.Destroy(h)
	}
	m.publish(pubsub.DeletedEvent, Change{Kind: ObjectsDeleted, List: list, Objects: len(set)})
}

// MergeAndDeleteObjects merges discard into keep, both in the current list,
// then deletes discard.
func (m *Manager[C, P]) MergeAndDeleteObjects(keep, discard arena.Handle) error {
	return m.MergeAndDeleteObjectsFrom(keep, discard, m.reg.current, m.reg.current)
}

// MergeAndDeleteObjectsFrom merges discard (in discardList) into keep (in
// keepList) and deletes discard. A failed merge deletes nothing.
func (m *Manager[C, P]) MergeAndDeleteObjectsFrom(keep, discard arena.Handle, keepList, discardList string) (err error) {
	const op = "MergeAndDeleteObjects"
	defer func() { m.observe(op, err) }()

	if keep == discard {
		return status.New(status.InvalidParameter, op, "cannot merge %s object %v into itself", m.name, keep)
	}
	kl, err := m.reg.getList(op, keepList)
	if err != nil {
		return err
	}
	dl, err := m.reg.getList(op, discardList)
	if err != nil {
		return err
	}
	if !kl.contains(keep) {
		return status.New(status.NotFound, op, "%s object %v not in list %q", m.name, keep, keepList)
	}
	if !dl.contains(discard) {
		return status.New(status.NotFound, op, "%s object %v not in list %q", m.name, discard, discardList)
	}

	kc, _ := m.store.Get(keep)
	dc, _ := m.store.Get(discard)
	if merr := kc.Merge(dc); merr != nil {
		return status.Wrap(status.Failure, op, merr)
	}
	m.destroy(discardList, map[arena.Handle]struct{}{discard: {}})
	return nil
}

// DeleteTemporaryList deletes one of id's temporary lists with its objects.
// If it was current, id's input list becomes current.
func (m *Manager[C, P]) DeleteTemporaryList(id ScopeID, name string) (err error) {
	const op = "DeleteTemporaryList"
	defer func() { m.observe(op, err) }()

	s, err := m.scopes.get(op, id)
	if err != nil {
		return err
	}
	if _, ok := s.temporary[name]; !ok {
		return status.New(status.NotFound, op, "list %q is not a temporary list of %q", name, id)
	}

	wasCurrent := m.reg.current == name
	if err := m.deleteList(name, id); err != nil {
		return err
	}
	m.scopes.unrecord(s, name)
	if wasCurrent {
		m.restoreCurrent(s.inputList)
	}
	return nil
}

// RemoveEmptyList removes an empty list and forgets any temporary or saved
// status it had.
func (m *Manager[C, P]) RemoveEmptyList(id ScopeID, name string) (err error) {
	const op = "RemoveEmptyList"
	defer func() { m.observe(op, err) }()

	if name == NullList {
		return status.New(status.Fatal, op, "the null list cannot be removed")
	}
	s, err := m.scopes.get(op, id)
	if err != nil {
		return err
	}
	l, err := m.reg.getList(op, name)
	if err != nil {
		return err
	}
	if l.len() > 0 {
		return status.New(status.InvalidParameter, op, "list %q holds %d objects", name, l.len())
	}

	wasCurrent := m.reg.current == name
	if err := m.deleteList(name, id); err != nil {
		return err
	}
	if owner, ok := m.scopes.owner(name); ok {
		m.scopes.unrecord(m.scopes.scopes[owner], name)
	}
	delete(m.saved, name)
	if wasCurrent {
		m.restoreCurrent(s.inputList)
	}
	return nil
}

func (m *Manager[C, P]) deleteList(name string, id ScopeID) error {
	l, err := m.reg.getList("DeleteList", name)
	if err != nil {
		return err
	}
	n := l.len()
	wasCurrent := m.reg.current == name
	if err := m.reg.deleteList(name, func(h arena.Handle) { m.store.Destroy(h) }); err != nil {
		return err
	}
	m.publish(pubsub.DeletedEvent, Change{Kind: ListDeleted, List: name, Scope: id, Objects: n})
	if wasCurrent {
		m.publish(pubsub.UpdatedEvent, Change{Kind: CurrentChanged, List: NullList})
	}
	log.Debug(log.CatLists, "list deleted", "manager", m.name, "scope", id, "list", name, "objects", n)
	return nil
}

// restoreCurrent makes name current, falling back to the null list when name
// no longer exists.
func (m *Manager[C, P]) restoreCurrent(name string) {
	if !m.reg.exists(name) {
		log.Warn(log.CatLists, "restore target missing, dropping current list", "manager", m.name, "list", name)
		name = NullList
	}
	m.setCurrent(name)
}

// ---------------------------------------------------------------------------
// Notifications
// ---------------------------------------------------------------------------

func (m *Manager[C, P]) publish(t pubsub.EventType, c Change) {
	if m.events == nil {
		return
	}
	c.Manager = m.name
	m.events.Publish(t, c)
}

func (m *Manager[C, P]) observe(op string, err error) {
	if m.recorder == nil {
		return
	}
	m.recorder.RecordOperation(m.name, op, status.CodeOf(err))
	m.recorder.RecordSize(m.name, len(m.reg.lists), m.reg.objectCount())
}
