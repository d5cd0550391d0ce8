package listmgr

import "github.com/zjrosen/pflow/internal/arena"

var _ ContentAPI[nopContent, struct{}] = (*scopedView[nopContent, struct{}])(nil)

// scopedView binds a Manager to one algorithm scope. Algorithms hold a
// scopedView only through ContentAPI, so the lifecycle operations stay out of
// their reach.
type scopedView[C Content[C], P any] struct {
	m  *Manager[C, P]
	id ScopeID
}

func (v *scopedView[C, P]) CreateObject(params P) (arena.Handle, error) {
	return v.m.CreateObject(params)
}

func (v *scopedView[C, P]) Object(h arena.Handle) (C, error) {
	return v.m.Object(h)
}

func (v *scopedView[C, P]) Modify(h arena.Handle, fn func(C) error) error {
	return v.m.Modify(h, fn)
}

func (v *scopedView[C, P]) GetCurrentListName() (string, error) {
	return v.m.GetCurrentListName()
}

func (v *scopedView[C, P]) GetCurrentList() (string, []arena.Handle, error) {
	return v.m.GetCurrentList()
}

func (v *scopedView[C, P]) GetAlgorithmInputList() (string, []arena.Handle, error) {
	return v.m.GetAlgorithmInputList(v.id)
}

func (v *scopedView[C, P]) GetList(name string) ([]arena.Handle, error) {
	return v.m.GetList(name)
}

func (v *scopedView[C, P]) MakeTemporaryAndSetCurrent() (string, error) {
	return v.m.MakeTemporaryAndSetCurrent(v.id)
}

func (v *scopedView[C, P]) MoveToTemporaryAndSetCurrent(source string, selection []arena.Handle) (string, error) {
	return v.m.MoveToTemporaryAndSetCurrent(v.id, source, selection)
}

func (v *scopedView[C, P]) SaveObjects(target, source string) error {
	return v.m.SaveObjects(v.id, target, source)
}

func (v *scopedView[C, P]) SaveObjectsSubset(target, source string, subset []arena.Handle) error {
	return v.m.SaveObjectsSubset(v.id, target, source, subset)
}

func (v *scopedView[C, P]) TemporarilyReplaceCurrent(name string) error {
	return v.m.TemporarilyReplaceCurrent(name)
}

func (v *scopedView[C, P]) ReplaceCurrentAndAlgorithmInput(name string) error {
	return v.m.ReplaceCurrentAndAlgorithmInput(v.id, name)
}

func (v *scopedView[C, P]) ResetCurrentToAlgorithmInput() error {
	return v.m.ResetCurrentToAlgorithmInput(v.id)
}

func (v *scopedView[C, P]) DropCurrent() {
	v.m.DropCurrent()
}

func (v *scopedView[C, P]) DeleteObject(h arena.Handle) error {
	return v.m.DeleteObject(h)
}

func (v *scopedView[C, P]) DeleteObjectFrom(h arena.Handle, list string) error {
	return v.m.DeleteObjectFrom(h, list)
}

func (v *scopedView[C, P]) DeleteObjects(hs []arena.Handle) error {
	return v.m.DeleteObjects(hs)
}

func (v *scopedView[C, P]) DeleteObjectsFrom(hs []arena.Handle, list string) error {
	return v.m.DeleteObjectsFrom(hs, list)
}

func (v *scopedView[C, P]) DeleteEmptyObjects(list string) (int, error) {
	return v.m.DeleteEmptyObjects(list)
}

func (v *scopedView[C, P]) MergeAndDeleteObjects(keep, discard arena.Handle) error {
	return v.m.MergeAndDeleteObjects(keep, discard)
}

func (v *scopedView[C, P]) MergeAndDeleteObjectsFrom(keep, discard arena.Handle, keepList, discardList string) error {
	return v.m.MergeAndDeleteObjectsFrom(keep, discard, keepList, discardList)
}

func (v *scopedView[C, P]) DeleteTemporaryList(name string) error {
	return v.m.DeleteTemporaryList(v.id, name)
}

func (v *scopedView[C, P]) RemoveEmptyList(name string) error {
	return v.m.RemoveEmptyList(v.id, name)
}
