package physop

import (
	"github.com/bobboyms/docengine/internal/document"
	"github.com/bobboyms/docengine/internal/tape"
)

// AggregateKind selects which accumulator an Aggregate operator runs.
type AggregateKind int

const (
	AggCount AggregateKind = iota
	AggSum
	AggMin
	AggMax
	AggAvg
)

// Aggregate is the count/sum/min/max/avg family of spec.md §4.4: it
// both exposes Documents() (a one-row output, `{"count": N}` and
// friends) and Value(tape) (the scalar itself appended to a
// caller-provided tape, for use inside a larger expression without
// round-tripping through JSON).
type Aggregate struct {
	base
	Child Operator
	Kind  AggregateKind
	Key   string // JSON Pointer; unused for AggCount

	result float64
	count  int64
	valid  bool
}

func (a *Aggregate) Execute(ctx *ExecContext) error {
	if err := a.Child.Execute(ctx); err != nil {
		return err
	}
	docs := a.Child.Output()

	switch a.Kind {
	case AggCount:
		a.count = int64(len(docs))
		a.valid = true
	case AggSum, AggAvg:
		var sum float64
		for _, doc := range docs {
			v, ok, err := numericAt(doc, a.Key)
			if err != nil {
				return err
			}
			if !ok {
				continue
			}
			sum += v
			a.count++
		}
		a.result = sum
		if a.Kind == AggAvg && a.count > 0 {
			a.result = sum / float64(a.count)
		}
		a.valid = true
	case AggMin, AggMax:
		first := true
		for _, doc := range docs {
			v, ok, err := numericAt(doc, a.Key)
			if err != nil {
				return err
			}
			if !ok {
				continue
			}
			if first || (a.Kind == AggMin && v < a.result) || (a.Kind == AggMax && v > a.result) {
				a.result = v
				first = false
			}
		}
		a.valid = !first
	}

	out := document.New()
	switch a.Kind {
	case AggCount:
		if err := out.Set("/count", a.count); err != nil {
			return err
		}
	default:
		if a.valid {
			if err := out.Set("/value", a.result); err != nil {
				return err
			}
		}
	}
	a.out = []*document.Document{out}
	return nil
}

// Value appends the aggregate's scalar result onto t, returning a
// reference usable by a caller building a larger tape-backed result.
func (a *Aggregate) Value(t *tape.Tape) (tape.Ref, error) {
	if a.Kind == AggCount {
		return t.AppendInt64(a.count), nil
	}
	if !a.valid {
		return t.AppendNull(), nil
	}
	return t.AppendFloat64(a.result), nil
}

func numericAt(doc *document.Document, ptr string) (float64, bool, error) {
	switch {
	case doc.IsInt64(ptr):
		v, err := doc.GetInt64(ptr)
		return float64(v), err == nil, err
	case doc.IsUint64(ptr):
		v, err := doc.GetUint64(ptr)
		return float64(v), err == nil, err
	case doc.IsFloat64(ptr):
		v, err := doc.GetFloat64(ptr)
		return v, err == nil, err
	default:
		return 0, false, nil
	}
}
