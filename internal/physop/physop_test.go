package physop

import (
	"testing"

	"github.com/bobboyms/docengine/internal/document"
	"github.com/bobboyms/docengine/internal/indexengine"
	"github.com/bobboyms/docengine/internal/types"
)

// fakeSource is a minimal in-memory Source for exercising operators
// without depending on internal/collection (which itself depends on
// physop).
type fakeSource struct {
	order []string
	docs  map[string]*document.Document
	idx   *indexengine.Engine
	alloc *document.Allocator
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		docs:  make(map[string]*document.Document),
		idx:   indexengine.NewEngine(nil),
		alloc: document.NewAllocator(),
	}
}

func (f *fakeSource) Documents() []*document.Document {
	out := make([]*document.Document, 0, len(f.order))
	for _, id := range f.order {
		out = append(out, f.docs[id])
	}
	return out
}

func (f *fakeSource) DocByID(id string) (*document.Document, bool) {
	d, ok := f.docs[id]
	return d, ok
}

func (f *fakeSource) Index() *indexengine.Engine { return f.idx }

func (f *fakeSource) InsertDoc(doc *document.Document) error {
	id := docID(doc)
	if _, exists := f.docs[id]; !exists {
		f.order = append(f.order, id)
	}
	f.docs[id] = doc
	return nil
}

func (f *fakeSource) DeleteDoc(id string) error {
	delete(f.docs, id)
	for i, oid := range f.order {
		if oid == id {
			f.order = append(f.order[:i], f.order[i+1:]...)
			break
		}
	}
	return nil
}

func (f *fakeSource) Allocator() *document.Allocator { return f.alloc }

func mustDoc(t *testing.T, js string) *document.Document {
	t.Helper()
	d, err := document.FromJSON(js)
	if err != nil {
		t.Fatalf("FromJSON(%q): %v", js, err)
	}
	return d
}

func seed(t *testing.T, src *fakeSource, docs ...string) {
	t.Helper()
	for _, js := range docs {
		d := mustDoc(t, js)
		if err := src.InsertDoc(d); err != nil {
			t.Fatalf("seed insert: %v", err)
		}
	}
}

func TestScan_WithPredicate(t *testing.T) {
	src := newFakeSource()
	seed(t, src, `{"_id":"1","age":20}`, `{"_id":"2","age":40}`, `{"_id":"3","age":50}`)

	s := &Scan{Predicate: &Compare{Ptr: "/age", Op: ExprGte, Param: "min"}}
	ctx := &ExecContext{Source: src, Params: map[string]interface{}{"min": int64(40)}, Limit: &LimitBudget{Remaining: -1}}
	if err := s.Execute(ctx); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if len(s.Output()) != 2 {
		t.Fatalf("got %d docs, want 2", len(s.Output()))
	}
}

func TestMatch_AndOr(t *testing.T) {
	src := newFakeSource()
	seed(t, src, `{"_id":"1","age":20,"active":true}`, `{"_id":"2","age":40,"active":false}`, `{"_id":"3","age":40,"active":true}`)

	scan := &Scan{}
	match := &Match{Child: scan, Expr: &And{Children: []Expr{
		&Compare{Ptr: "/age", Op: ExprEq, Param: "age"},
		&Compare{Ptr: "/active", Op: ExprEq, Param: "active"},
	}}}
	ctx := &ExecContext{Source: src, Params: map[string]interface{}{"age": int64(40), "active": true}, Limit: &LimitBudget{Remaining: -1}}
	if err := match.Execute(ctx); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if len(match.Output()) != 1 {
		t.Fatalf("got %d docs, want 1", len(match.Output()))
	}
}

func TestAggregate_SumAvgCount(t *testing.T) {
	src := newFakeSource()
	seed(t, src, `{"_id":"1","score":10}`, `{"_id":"2","score":20}`, `{"_id":"3","score":30}`)
	ctx := &ExecContext{Source: src, Params: map[string]interface{}{}, Limit: &LimitBudget{Remaining: -1}}

	sum := &Aggregate{Child: &Scan{}, Kind: AggSum, Key: "/score"}
	if err := sum.Execute(ctx); err != nil {
		t.Fatalf("sum: %v", err)
	}
	v, err := sum.Output()[0].GetFloat64("/value")
	if err != nil || v != 60 {
		t.Fatalf("sum = (%v,%v), want 60", v, err)
	}

	count := &Aggregate{Child: &Scan{}, Kind: AggCount}
	if err := count.Execute(ctx); err != nil {
		t.Fatalf("count: %v", err)
	}
	c, err := count.Output()[0].GetInt64("/count")
	if err != nil || c != 3 {
		t.Fatalf("count = (%v,%v), want 3", c, err)
	}
}

func TestMerge_AndOrNot(t *testing.T) {
	src := newFakeSource()
	seed(t, src, `{"_id":"1","age":20}`, `{"_id":"2","age":40}`, `{"_id":"3","age":60}`)
	ctx := &ExecContext{Source: src, Params: map[string]interface{}{}, Limit: &LimitBudget{Remaining: -1}}

	left := &Match{Child: &Scan{}, Expr: &Compare{Ptr: "/age", Op: ExprGte, Param: "lo"}}
	right := &Match{Child: &Scan{}, Expr: &Compare{Ptr: "/age", Op: ExprLte, Param: "hi"}}
	ctx.Params["lo"] = int64(30)
	ctx.Params["hi"] = int64(50)

	and := &Merge{Kind: MergeAnd, Left: left, Right: right}
	if err := and.Execute(ctx); err != nil {
		t.Fatalf("and: %v", err)
	}
	if len(and.Output()) != 1 {
		t.Fatalf("and got %d, want 1", len(and.Output()))
	}

	or := &Merge{Kind: MergeOr, Left: &Match{Child: &Scan{}, Expr: left.Expr}, Right: &Match{Child: &Scan{}, Expr: right.Expr}}
	if err := or.Execute(ctx); err != nil {
		t.Fatalf("or: %v", err)
	}
	if len(or.Output()) != 3 {
		t.Fatalf("or got %d, want 3", len(or.Output()))
	}

	not := &Merge{Kind: MergeNot, Left: &Match{Child: &Scan{}, Expr: left.Expr}}
	if err := not.Execute(ctx); err != nil {
		t.Fatalf("not: %v", err)
	}
	if len(not.Output()) != 1 {
		t.Fatalf("not got %d, want 1", len(not.Output()))
	}
}

func TestInsertUpdateDelete(t *testing.T) {
	src := newFakeSource()
	ctx := &ExecContext{Source: src, Params: map[string]interface{}{}, Limit: &LimitBudget{Remaining: -1}}

	ins := &Insert{Docs: []*document.Document{mustDoc(t, `{"_id":"1","count":1}`)}}
	if err := ins.Execute(ctx); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if len(src.Documents()) != 1 {
		t.Fatalf("expected 1 document after insert")
	}

	upd := &Update{Child: &Scan{}, UpdateDoc: mustDoc(t, `{"$inc":{"/count":5}}`)}
	if err := upd.Execute(ctx); err != nil {
		t.Fatalf("update: %v", err)
	}
	if len(upd.Output()) != 1 {
		t.Fatalf("expected 1 changed document")
	}
	v, _ := src.docs["1"].GetInt64("/count")
	if v != 6 {
		t.Fatalf("count = %d, want 6", v)
	}

	del := &Delete{Child: &Scan{}}
	if err := del.Execute(ctx); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if len(src.Documents()) != 0 {
		t.Fatalf("expected 0 documents after delete")
	}
}

func TestUpdate_UpsertWhenEmpty(t *testing.T) {
	src := newFakeSource()
	ctx := &ExecContext{Source: src, Params: map[string]interface{}{}, Limit: &LimitBudget{Remaining: -1}}

	upd := &Update{
		Child:     &Match{Child: &Scan{}, Expr: &Compare{Ptr: "/name", Op: ExprEq, Param: "name"}},
		UpdateDoc: mustDoc(t, `{"$set":{"/name":"ada","/_id":"new"}}`),
		Upsert:    true,
	}
	ctx.Params["name"] = "ghost"
	if err := upd.Execute(ctx); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if len(src.Documents()) != 1 {
		t.Fatalf("expected upsert to insert a document")
	}
}

func TestCreateIndexAndRange(t *testing.T) {
	src := newFakeSource()
	seed(t, src, `{"_id":"1","status":"open"}`, `{"_id":"2","status":"closed"}`)

	ci := &CreateIndex{Name: "by_status", Keys: []string{"/status"}, Compare: indexengine.Eq, Kind: indexengine.Memory}
	ctx := &ExecContext{Source: src, Params: map[string]interface{}{}, Limit: &LimitBudget{Remaining: -1}}
	if err := ci.Execute(ctx); err != nil {
		t.Fatalf("create index: %v", err)
	}

	di := &DropIndex{ID: ci.Created.ID}
	if err := di.Execute(ctx); err != nil {
		t.Fatalf("drop index: %v", err)
	}
	if _, ok := src.idx.FindByID(ci.Created.ID); ok {
		t.Fatalf("expected index to be gone after drop")
	}
}

func TestIndexScan_UsesIndexRange(t *testing.T) {
	src := newFakeSource()
	seed(t, src,
		`{"_id":"1","count":10}`,
		`{"_id":"2","count":95}`,
		`{"_id":"3","count":91}`,
	)

	ci := &CreateIndex{Name: "by_count", Keys: []string{"/count"}, Compare: indexengine.Gte, Kind: indexengine.Memory}
	ctx := &ExecContext{Source: src, Params: map[string]interface{}{}, Limit: &LimitBudget{Remaining: -1}}
	if err := ci.Execute(ctx); err != nil {
		t.Fatalf("create index: %v", err)
	}

	scan := &IndexScan{Index: ci.Created, Compare: indexengine.Gte, Key: types.IntKey(90)}
	if err := scan.Execute(ctx); err != nil {
		t.Fatalf("index scan: %v", err)
	}
	if len(scan.Output()) != 2 {
		t.Fatalf("got %d docs, want 2", len(scan.Output()))
	}
}

func TestSort(t *testing.T) {
	src := newFakeSource()
	seed(t, src, `{"_id":"1","age":30}`, `{"_id":"2","age":10}`, `{"_id":"3","age":20}`)
	ctx := &ExecContext{Source: src, Params: map[string]interface{}{}, Limit: &LimitBudget{Remaining: -1}}

	s := &Sort{Child: &Scan{}, Key: "/age"}
	if err := s.Execute(ctx); err != nil {
		t.Fatalf("sort: %v", err)
	}
	var ages []int64
	for _, d := range s.Output() {
		v, _ := d.GetInt64("/age")
		ages = append(ages, v)
	}
	if ages[0] != 10 || ages[1] != 20 || ages[2] != 30 {
		t.Fatalf("ages = %v, want ascending 10,20,30", ages)
	}
}

func TestGroup(t *testing.T) {
	src := newFakeSource()
	seed(t, src,
		`{"_id":"1","dept":"eng","pay":100}`,
		`{"_id":"2","dept":"eng","pay":200}`,
		`{"_id":"3","dept":"sales","pay":50}`,
	)
	ctx := &ExecContext{Source: src, Params: map[string]interface{}{}, Limit: &LimitBudget{Remaining: -1}}

	g := &Group{
		Child: &Scan{},
		IDKey: "/dept",
		Accumulators: []GroupAccumulator{
			{Field: "total", Kind: AggSum, Key: "/pay"},
			{Field: "n", Kind: AggCount},
		},
	}
	if err := g.Execute(ctx); err != nil {
		t.Fatalf("group: %v", err)
	}
	if len(g.Output()) != 2 {
		t.Fatalf("got %d groups, want 2", len(g.Output()))
	}
	found := false
	for _, d := range g.Output() {
		id, _ := d.GetString("/_id")
		if id == "eng" {
			found = true
			total, _ := d.GetFloat64("/total")
			n, _ := d.GetInt64("/n")
			if total != 300 || n != 2 {
				t.Fatalf("eng group = (total=%v,n=%v), want (300,2)", total, n)
			}
		}
	}
	if !found {
		t.Fatalf("expected an eng group")
	}
}
