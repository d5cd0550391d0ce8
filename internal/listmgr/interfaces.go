package listmgr

import (
	"github.com/zjrosen/pflow/internal/arena"
	"github.com/zjrosen/pflow/internal/status"
)

// Content is the contract a managed object type satisfies.
// Merge folds other into the receiver and must leave the receiver untouched
// when it returns an error.
type Content[C any] interface {
	Merge(other C) error
	IsEmpty() bool
}

// Factory constructs object content from creation parameters.
type Factory[C any, P any] func(params P) (C, error)

// Recorder observes manager activity. internal/metrics provides the
// Prometheus implementation.
type Recorder interface {
	RecordOperation(manager, op string, code status.Code)
	RecordSize(manager string, lists, objects int)
}

// ChangeKind describes a list-manager change notification.
type ChangeKind string

const (
	ListCreated     ChangeKind = "list_created"
	ListDeleted     ChangeKind = "list_deleted"
	ListSaved       ChangeKind = "list_saved"
	ObjectsReturned ChangeKind = "objects_returned"
	CurrentChanged  ChangeKind = "current_changed"
	ObjectsDeleted  ChangeKind = "objects_deleted"
	ScopeEntered    ChangeKind = "scope_entered"
	ScopeExited     ChangeKind = "scope_exited"
	ManagerReset    ChangeKind = "manager_reset"
)

// Change is the payload published for every structural change.
type Change struct {
	Manager string
	Kind    ChangeKind
	List    string
	Scope   ScopeID
	Objects int
}

// Lifecycle is the privileged surface used by the pipeline that owns the
// manager. Algorithms never receive it.
type Lifecycle interface {
	Name() string
	RegisterAlgorithm(id ScopeID) error
	EnterScope(id ScopeID) error
	ExitScope(id ScopeID, completion Completion) error
	PendingDeletion(id ScopeID) ([]arena.Handle, error)
	ReturnObjects(id ScopeID, target, source string) error
	CreateNamedList(name string) error
	SetCurrent(name string) error
	ResetForNextEvent()
	Snapshot() Snapshot
}

// ContentAPI is the operation surface an algorithm receives, bound to the
// algorithm's own scope.
type ContentAPI[C Content[C], P any] interface {
	CreateObject(params P) (arena.Handle, error)
	Object(h arena.Handle) (C, error)
	Modify(h arena.Handle, fn func(C) error) error

	GetCurrentListName() (string, error)
	GetCurrentList() (string, []arena.Handle, error)
	GetAlgorithmInputList() (string, []arena.Handle, error)
	GetList(name string) ([]arena.Handle, error)

	MakeTemporaryAndSetCurrent() (string, error)
	MoveToTemporaryAndSetCurrent(source string, selection []arena.Handle) (string, error)
	SaveObjects(target, source string) error
	SaveObjectsSubset(target, source string, subset []arena.Handle) error
	TemporarilyReplaceCurrent(name string) error
	ReplaceCurrentAndAlgorithmInput(name string) error
	ResetCurrentToAlgorithmInput() error
	DropCurrent()

	DeleteObject(h arena.Handle) error
	DeleteObjectFrom(h arena.Handle, list string) error
	DeleteObjects(hs []arena.Handle) error
	DeleteObjectsFrom(hs []arena.Handle, list string) error
	DeleteEmptyObjects(list string) (int, error)
	MergeAndDeleteObjects(keep, discard arena.Handle) error
	MergeAndDeleteObjectsFrom(keep, discard arena.Handle, keepList, discardList string) error

	DeleteTemporaryList(name string) error
	RemoveEmptyList(name string) error
}
