package physop

import (
	"regexp"

	"github.com/bobboyms/docengine/internal/document"
)

// CompareOp is a Match leaf's comparison kind, matching spec.md §4.4's
// expression-tree leaf set exactly.
type CompareOp int

const (
	ExprEq CompareOp = iota
	ExprNe
	ExprLt
	ExprLte
	ExprGt
	ExprGte
)

// Expr is one node of a Match expression tree. Leaves compare a
// document field against a parameter resolved at evaluation time (not
// baked into the tree), so a single plan can be reused across calls
// with different parameter values.
type Expr interface {
	Eval(doc *document.Document, params map[string]interface{}) (bool, error)
}

// Compare is a leaf: the field at Ptr compared against params[Param].
type Compare struct {
	Ptr   string
	Op    CompareOp
	Param string
}

func (c *Compare) Eval(doc *document.Document, params map[string]interface{}) (bool, error) {
	lit := document.New()
	if err := lit.Set("/v", params[c.Param]); err != nil {
		return false, err
	}
	res, err := doc.Compare(c.Ptr, lit, "/v")
	if err != nil {
		return false, err
	}
	switch c.Op {
	case ExprEq:
		return res == document.CmpEqual, nil
	case ExprNe:
		return res != document.CmpEqual, nil
	case ExprLt:
		return res == document.Less, nil
	case ExprLte:
		return res != document.Greater, nil
	case ExprGt:
		return res == document.Greater, nil
	case ExprGte:
		return res != document.Less, nil
	default:
		return false, nil
	}
}

// Regex is a leaf matching the string field at Ptr against the pattern
// string stored under params[Param], compiled on each evaluation.
type Regex struct {
	Ptr   string
	Param string
}

func (r *Regex) Eval(doc *document.Document, params map[string]interface{}) (bool, error) {
	if !doc.IsString(r.Ptr) {
		return false, nil
	}
	v, err := doc.GetString(r.Ptr)
	if err != nil {
		return false, err
	}
	pattern, _ := params[r.Param].(string)
	re, err := regexp.Compile(pattern)
	if err != nil {
		return false, err
	}
	return re.MatchString(v), nil
}

// And is a conjunction union over child expressions.
type And struct{ Children []Expr }

func (a *And) Eval(doc *document.Document, params map[string]interface{}) (bool, error) {
	for _, c := range a.Children {
		ok, err := c.Eval(doc, params)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

// Or is a disjunction union over child expressions.
type Or struct{ Children []Expr }

func (o *Or) Eval(doc *document.Document, params map[string]interface{}) (bool, error) {
	for _, c := range o.Children {
		ok, err := c.Eval(doc, params)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}

// Not negates its single child.
type Not struct{ Child Expr }

func (n *Not) Eval(doc *document.Document, params map[string]interface{}) (bool, error) {
	ok, err := n.Child.Eval(doc, params)
	if err != nil {
		return false, err
	}
	return !ok, nil
}
