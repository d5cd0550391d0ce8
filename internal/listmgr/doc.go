// Package listmgr implements the scoped object list manager that reconstruction
// algorithms run on top of.
//
// A Manager owns every object of one type (calo hits, tracks, clusters) in an
// arena and files each object in exactly one named list. One list is current:
// objects are created into it and operations that name no list act on it. The
// reserved NullList is permanently empty; while it is current no objects may
// be created.
//
// # Scopes
//
// Each algorithm instance is identified by a ScopeID. The pipeline brackets
// every algorithm phase with EnterScope and ExitScope. A scope records the
// list that was current on entry (the algorithm input list) and the temporary
// lists the algorithm created. ExitScope deletes the temporary lists that were
// never saved, together with the objects still in them, and restores the
// current list. With Finished the scope record is dropped; with Suspended it
// is kept so the next stage of the same instance continues its bookkeeping.
//
//	UNSCOPED --EnterScope--> ACTIVE --operations--> ACTIVE
//	ACTIVE --ExitScope(Suspended)--> ACTIVE
//	ACTIVE --ExitScope(Finished)--> UNSCOPED
//
// # Access
//
// The pipeline drives a Manager through the Lifecycle interface. Algorithms
// only ever receive a ContentAPI bound to their own scope, so they cannot open
// or close scopes, reset the manager or create lists outside their scope.
//
// # Invariants
//
// After every operation:
//   - an object handle is resident in at most one list
//   - list names are unique and the null list exists
//   - a temporary name stays in its scope's temporary set until saved or deleted
//   - objects are only created while the current list is not the null list
//   - the current list always names an existing list
//
// Operations validate their arguments before mutating anything, so a failed
// call leaves the manager unchanged.
package listmgr
