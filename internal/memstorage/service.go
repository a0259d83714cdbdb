// Package memstorage holds every database/collection in memory and
// dispatches logical plans to them, generalizing the teacher's
// StorageEngine/TableMetaData catalog (pkg/storage/engine.go) from a
// single-table model to the spec's database → collection hierarchy.
package memstorage

import (
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.etcd.io/bbolt"

	"github.com/bobboyms/docengine/internal/collection"
	"github.com/bobboyms/docengine/internal/dberrors"
	"github.com/bobboyms/docengine/internal/dlog"
	"github.com/bobboyms/docengine/internal/document"
	"github.com/bobboyms/docengine/internal/indexengine"
	"github.com/bobboyms/docengine/internal/planner"
)

// Statement is one already-translated unit of work handed to
// ExecutePlan: either a DDL node executed inline, or a DML logical
// plan forwarded to the owning collection's executor.
type Statement struct {
	Kind       planner.NodeKind
	Database   string
	Collection string
	Plan       *planner.LogicalPlan
	Params     map[string]interface{}
	Limit      int64 // -1 means unbounded, matching physop.LimitBudget
}

// Result is whatever ExecutePlan produced.
type Result struct {
	Docs         []*document.Document
	CreatedIndex *indexengine.Index
	Cursor       uuid.UUID
	Size         int
}

// DiskOpener lazily opens (or returns) the bbolt handle backing a
// collection's disk-kind indexes. internal/diskmgr supplies the real
// implementation; tests and early wiring may pass nil, in which case
// only Memory-kind indexes are usable, matching indexengine.Engine's
// own nil-diskDB tolerance.
type DiskOpener func(database, collectionName string) (*bbolt.DB, error)

// Service owns every database/collection's catalog membership and the
// collection executors dispatching work into them, guarded by one
// sync.RWMutex — the direct generalization of the teacher's
// StorageEngine.metaMu, which also only ever guards metadata, never
// document bodies.
type Service struct {
	mu         sync.RWMutex
	databases  map[string]*Database
	executors  map[QualifiedName]*executor
	diskOpener DiskOpener
	logger     zerolog.Logger
}

// NewService creates an empty in-memory storage service.
func NewService(logger zerolog.Logger, diskOpener DiskOpener) *Service {
	return &Service{
		databases:  make(map[string]*Database),
		executors:  make(map[QualifiedName]*executor),
		diskOpener: diskOpener,
		logger:     dlog.Actor(logger, "memstorage"),
	}
}

// CreateDatabase registers an empty database.
func (s *Service) CreateDatabase(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.databases[name]; exists {
		return &dberrors.DatabaseAlreadyExistsError{Name: name}
	}
	s.databases[name] = newDatabase(name)
	return nil
}

// DropDatabase removes a database and stops every executor for its
// collections, marking each collection's Context dropped first so any
// straggling in-flight call observes CollectionDropped rather than a
// closed channel.
func (s *Service) DropDatabase(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	db, ok := s.databases[name]
	if !ok {
		return &dberrors.DatabaseNotExistsError{Name: name}
	}
	for collName := range db.Collections {
		qn := QualifiedName{Database: name, Collection: collName}
		if ex, ok := s.executors[qn]; ok {
			ex.ctx.Dropped.Store(true)
			ex.stop()
			delete(s.executors, qn)
		}
	}
	delete(s.databases, name)
	return nil
}

// CreateCollection registers an empty collection and spins up its
// executor goroutine.
func (s *Service) CreateCollection(database, collName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	db, ok := s.databases[database]
	if !ok {
		return &dberrors.DatabaseNotExistsError{Name: database}
	}
	if _, exists := db.Collections[collName]; exists {
		return &dberrors.CollectionAlreadyExistsError{Database: database, Collection: collName}
	}

	var diskDB *bbolt.DB
	if s.diskOpener != nil {
		db, err := s.diskOpener(database, collName)
		if err != nil {
			return dberrors.Wrap(err, "open disk backing for collection")
		}
		diskDB = db
	}

	ctx := collection.New(database, collName, diskDB)
	qn := QualifiedName{Database: database, Collection: collName}
	s.executors[qn] = newExecutor(ctx, s.logger)
	db.Collections[collName] = struct{}{}
	return nil
}

// DropCollection marks the collection dropped and retires its
// executor.
func (s *Service) DropCollection(database, collName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	db, ok := s.databases[database]
	if !ok {
		return &dberrors.DatabaseNotExistsError{Name: database}
	}
	if _, exists := db.Collections[collName]; !exists {
		return &dberrors.CollectionNotExistsError{Database: database, Collection: collName}
	}
	qn := QualifiedName{Database: database, Collection: collName}
	if ex, ok := s.executors[qn]; ok {
		ex.ctx.Dropped.Store(true)
		ex.stop()
		delete(s.executors, qn)
	}
	delete(db.Collections, collName)
	return nil
}

// Collection returns the live collection.Context for (database,
// collName), used by the dispatcher for cursor operations that don't
// go through a logical plan.
func (s *Service) Collection(database, collName string) (*collection.Context, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ex, ok := s.executors[QualifiedName{Database: database, Collection: collName}]
	if !ok {
		return nil, &dberrors.CollectionNotExistsError{Database: database, Collection: collName}
	}
	return ex.ctx, nil
}

// ExecutePlan dispatches stmt by its root node kind: DDL executes
// inline under the write lock; everything else forwards to the
// collection's own executor mailbox, per spec.md §4.7.
func (s *Service) ExecutePlan(stmt *Statement) (*Result, error) {
	return s.execute(stmt, false)
}

// ExecutePlanCursor is ExecutePlan plus binding a cursor to the
// resulting documents in the same mailbox round-trip, used by the
// dispatcher's find/find_one entry points.
func (s *Service) ExecutePlanCursor(stmt *Statement) (*Result, error) {
	return s.execute(stmt, true)
}

func (s *Service) execute(stmt *Statement, openCursor bool) (*Result, error) {
	switch stmt.Kind {
	case planner.CreateDatabase:
		return &Result{}, s.CreateDatabase(stmt.Database)
	case planner.DropDatabase:
		return &Result{}, s.DropDatabase(stmt.Database)
	case planner.CreateCollection:
		return &Result{}, s.CreateCollection(stmt.Database, stmt.Collection)
	case planner.DropCollection:
		return &Result{}, s.DropCollection(stmt.Database, stmt.Collection)
	}

	s.mu.RLock()
	ex, ok := s.executors[QualifiedName{Database: stmt.Database, Collection: stmt.Collection}]
	s.mu.RUnlock()
	if !ok {
		return nil, &dberrors.CollectionNotExistsError{Database: stmt.Database, Collection: stmt.Collection}
	}

	docs, created, cursor, size, err := ex.submitCursor(stmt.Plan, stmt.Params, stmt.Limit, openCursor)
	if err != nil {
		return nil, err
	}
	return &Result{Docs: docs, CreatedIndex: created, Cursor: cursor, Size: size}, nil
}

// Size returns a collection's current document count, computed inside
// its executor's own goroutine so it never races a concurrent mutation
// on the same collection.
func (s *Service) Size(database, collName string) (int, error) {
	s.mu.RLock()
	ex, ok := s.executors[QualifiedName{Database: database, Collection: collName}]
	s.mu.RUnlock()
	if !ok {
		return 0, &dberrors.CollectionNotExistsError{Database: database, Collection: collName}
	}
	return ex.submitSize(), nil
}

// CloseCursor releases a cursor bound to sid, routed through the
// owning collection's executor mailbox like every other access to its
// collection.Context.
func (s *Service) CloseCursor(database, collName string, sid uuid.UUID) error {
	s.mu.RLock()
	ex, ok := s.executors[QualifiedName{Database: database, Collection: collName}]
	s.mu.RUnlock()
	if !ok {
		return &dberrors.CollectionNotExistsError{Database: database, Collection: collName}
	}
	ex.submitCloseCursor(sid)
	return nil
}
