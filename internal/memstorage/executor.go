package memstorage

import (
	"strconv"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/bobboyms/docengine/internal/collection"
	"github.com/bobboyms/docengine/internal/document"
	"github.com/bobboyms/docengine/internal/indexengine"
	"github.com/bobboyms/docengine/internal/physop"
	"github.com/bobboyms/docengine/internal/planner"
)

// request is one call queued on a collection executor's mailbox. Most
// requests carry a plan to translate and execute; closeCursor and
// sizeQuery are admin commands that skip translation entirely but
// still need to run inside the executor's own goroutine, since
// collection.Context carries no internal lock of its own and relies
// entirely on the mailbox for linearization (per spec.md §5).
type request struct {
	plan        *planner.LogicalPlan
	params      map[string]interface{}
	limit       int64
	openCursor  bool
	closeCursor *uuid.UUID
	sizeQuery   bool
	reply       chan response
}

type response struct {
	docs         []*document.Document
	createdIndex *indexengine.Index
	cursor       uuid.UUID
	size         int
	err          error
}

// executor linearizes every physical-plan execution against one
// collection.Context through a single goroutine reading its own
// mailbox channel, per spec.md §5's "pooled executor actor" —
// realized here as one goroutine per collection rather than a shared
// pool, since the teacher has no actor framework to borrow a
// scheduler from and a channel-per-collection is the simplest
// faithful rendition of REDESIGN FLAGS' "goroutines + channels".
type executor struct {
	ctx     *collection.Context
	mailbox chan *request
	done    chan struct{}
	logger  zerolog.Logger
}

func newExecutor(ctx *collection.Context, logger zerolog.Logger) *executor {
	e := &executor{
		ctx:     ctx,
		mailbox: make(chan *request, 64),
		done:    make(chan struct{}),
		logger:  logger,
	}
	go e.run()
	return e
}

func (e *executor) run() {
	defer close(e.done)
	for req := range e.mailbox {
		if req.closeCursor != nil {
			e.ctx.CloseCursor(*req.closeCursor)
			req.reply <- response{size: e.ctx.Size()}
			continue
		}
		if req.sizeQuery {
			req.reply <- response{size: e.ctx.Size()}
			continue
		}

		docs, created, err := e.execute(req.plan, req.params, req.limit)
		if err != nil {
			req.reply <- response{err: err}
			continue
		}
		var cursor uuid.UUID
		if req.openCursor {
			ids := make([]string, 0, len(docs))
			for _, doc := range docs {
				ids = append(ids, docID(doc))
			}
			cursor, err = e.ctx.OpenCursorOn(ids)
			if err != nil {
				req.reply <- response{err: err}
				continue
			}
		}
		req.reply <- response{docs: docs, createdIndex: created, cursor: cursor, size: e.ctx.Size(), err: err}
	}
}

func docID(doc *document.Document) string {
	switch {
	case doc.IsString("/_id"):
		v, _ := doc.GetString("/_id")
		return v
	case doc.IsInt64("/_id"):
		v, _ := doc.GetInt64("/_id")
		return strconv.FormatInt(v, 10)
	case doc.IsUint64("/_id"):
		v, _ := doc.GetUint64("/_id")
		return strconv.FormatUint(v, 10)
	default:
		return ""
	}
}

func (e *executor) execute(plan *planner.LogicalPlan, params map[string]interface{}, limit int64) ([]*document.Document, *indexengine.Index, error) {
	op, err := planner.Translate(plan)
	if err != nil {
		return nil, nil, err
	}
	budget := &physop.LimitBudget{Remaining: limit}
	execCtx := &physop.ExecContext{Source: e.ctx, Params: params, Limit: budget}
	if err := op.Execute(execCtx); err != nil {
		e.logger.Error().Err(err).Str("collection", e.ctx.Name).Msg("plan execution failed")
		return nil, nil, err
	}
	var created *indexengine.Index
	if ci, ok := op.(*physop.CreateIndex); ok {
		created = ci.Created
	}
	return op.Output(), created, nil
}

// submit enqueues plan on the executor's mailbox and blocks for the
// reply, giving the caller ordinary call/return semantics over what
// is internally a channel send/receive.
func (e *executor) submit(plan *planner.LogicalPlan, params map[string]interface{}, limit int64) ([]*document.Document, *indexengine.Index, int, error) {
	docs, created, _, size, err := e.submitCursor(plan, params, limit, false)
	return docs, created, size, err
}

// submitCursor is submit plus the option to bind a cursor to the
// plan's result set in the same mailbox round-trip, so the cursor's
// snapshot is guaranteed to match what the caller was shown. size is
// always the collection's post-execution size, computed inside the
// executor's own goroutine rather than by the caller reading
// collection state from outside the mailbox.
func (e *executor) submitCursor(plan *planner.LogicalPlan, params map[string]interface{}, limit int64, openCursor bool) ([]*document.Document, *indexengine.Index, uuid.UUID, int, error) {
	reply := make(chan response, 1)
	e.mailbox <- &request{plan: plan, params: params, limit: limit, openCursor: openCursor, reply: reply}
	res := <-reply
	return res.docs, res.createdIndex, res.cursor, res.size, res.err
}

// submitSize asks the executor for its collection's current size,
// still routed through the mailbox so it never races a concurrent
// insert/delete being applied by the same goroutine.
func (e *executor) submitSize() int {
	reply := make(chan response, 1)
	e.mailbox <- &request{sizeQuery: true, reply: reply}
	return (<-reply).size
}

// submitCloseCursor releases sid's cursor from inside the executor's
// goroutine.
func (e *executor) submitCloseCursor(sid uuid.UUID) {
	reply := make(chan response, 1)
	e.mailbox <- &request{closeCursor: &sid, reply: reply}
	<-reply
}

// stop drains the mailbox and waits for the goroutine to exit, used
// when a collection is dropped.
func (e *executor) stop() {
	close(e.mailbox)
	<-e.done
}
