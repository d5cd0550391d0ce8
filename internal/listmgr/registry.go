package listmgr

import (
	"sort"

	"github.com/zjrosen/pflow/internal/arena"
	"github.com/zjrosen/pflow/internal/status"
)

// NullList is the reserved, permanently empty list. While it is current no
// objects can be created.
const NullList = "NullList"

// registry maps list names to lists and tracks the current list.
// It knows nothing about scopes; those are layered above in Manager.
type registry struct {
	lists   map[string]*objectList
	owner   map[arena.Handle]string
	current string
}

func newRegistry() *registry {
	r := &registry{
		lists: make(map[string]*objectList),
		owner: make(map[arena.Handle]string),
	}
	r.lists[NullList] = newObjectList()
	r.current = NullList
	return r
}

func (r *registry) exists(name string) bool {
	_, ok := r.lists[name]
	return ok
}

func (r *registry) createNamedList(name string) error {
	if name == "" {
		return status.New(status.InvalidParameter, "CreateNamedList", "empty list name")
	}
	if r.exists(name) {
		return status.New(status.AlreadyPresent, "CreateNamedList", "list %q", name)
	}
	r.lists[name] = newObjectList()
	return nil
}

func (r *registry) getList(op, name string) (*objectList, error) {
	l, ok := r.lists[name]
	if !ok {
		return nil, status.New(status.NotFound, op, "list %q", name)
	}
	return l, nil
}

func (r *registry) setCurrent(name string) error {
	if !r.exists(name) {
		return status.New(status.NotFound, "SetCurrent", "list %q", name)
	}
	r.current = name
	return nil
}

// deleteList removes name and hands every resident object to destroy.
// If name was current, the null list becomes current.
func (r *registry) deleteList(name string, destroy func(arena.Handle)) error {
	if name == NullList {
		return status.New(status.Fatal, "DeleteList", "the null list cannot be deleted")
	}
	l, err := r.getList("DeleteList", name)
	if err != nil {
		return err
	}
	for _, h := range l.order {
		delete(r.owner, h)
		destroy(h)
	}
	delete(r.lists, name)
	if r.current == name {
		r.current = NullList
	}
	return nil
}

// insert files a new object in name. The caller guarantees name exists.
func (r *registry) insert(name string, h arena.Handle) {
	r.lists[name].add(h)
	r.owner[h] = name
}

// move transfers h between two existing lists.
func (r *registry) move(h arena.Handle, from, to string) {
	r.lists[from].remove(h)
	r.lists[to].add(h)
	r.owner[h] = to
}

// evict removes the handles in set from name and forgets their owner.
func (r *registry) evict(name string, set map[arena.Handle]struct{}) {
	r.lists[name].removeSet(set)
	for h := range set {
		delete(r.owner, h)
	}
}

func (r *registry) names() []string {
	names := make([]string, 0, len(r.lists))
	for name := range r.lists {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (r *registry) objectCount() int {
	return len(r.owner)
}
