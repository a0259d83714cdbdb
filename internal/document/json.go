package document

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/bobboyms/docengine/internal/tape"
	"github.com/bobboyms/docengine/internal/trie"
)

// FromJSON parses text (a strict JSON object at the root) into a new root
// document whose immutable tape holds every scalar the source contained.
// Object key order is preserved via token-level decoding rather than
// decoding into a Go map, which would lose it.
func FromJSON(text string) (*Document, error) {
	dec := json.NewDecoder(strings.NewReader(text))
	dec.UseNumber()

	imm := tape.New()
	root, err := parseJSONValue(dec, imm)
	if err != nil {
		return nil, err
	}
	if root.Kind() != trie.Object {
		return nil, fmt.Errorf("document root must be a JSON object")
	}
	return &Document{
		immutable: imm,
		mutable:   tape.New(),
		root:      root,
		alloc:     NewAllocator(),
	}, nil
}

func parseJSONValue(dec *json.Decoder, t *tape.Tape) (*trie.Node, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	return parseJSONToken(dec, tok, t)
}

func parseJSONToken(dec *json.Decoder, tok json.Token, t *tape.Tape) (*trie.Node, error) {
	switch v := tok.(type) {
	case json.Delim:
		switch v {
		case '{':
			node := trie.NewObject()
			for dec.More() {
				keyTok, err := dec.Token()
				if err != nil {
					return nil, err
				}
				key, ok := keyTok.(string)
				if !ok {
					return nil, fmt.Errorf("expected object key, got %v", keyTok)
				}
				child, err := parseJSONValue(dec, t)
				if err != nil {
					return nil, err
				}
				node.Set(key, child)
			}
			if _, err := dec.Token(); err != nil { // consume '}'
				return nil, err
			}
			return node, nil
		case '[':
			node := trie.NewArray()
			for dec.More() {
				child, err := parseJSONValue(dec, t)
				if err != nil {
					return nil, err
				}
				node.Append(child)
			}
			if _, err := dec.Token(); err != nil { // consume ']'
				return nil, err
			}
			return node, nil
		}
	case bool:
		return trie.NewLeaf(trie.Immutable, t.AppendBool(v)), nil
	case nil:
		return trie.NewLeaf(trie.Immutable, t.AppendNull()), nil
	case string:
		return trie.NewLeaf(trie.Immutable, t.AppendString(v)), nil
	case json.Number:
		return parseJSONNumber(t, v)
	}
	return nil, fmt.Errorf("unexpected JSON token %v", tok)
}

func parseJSONNumber(t *tape.Tape, n json.Number) (*trie.Node, error) {
	s := string(n)
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return trie.NewLeaf(trie.Immutable, t.AppendInt64(i)), nil
	}
	if u, err := strconv.ParseUint(s, 10, 64); err == nil {
		return trie.NewLeaf(trie.Immutable, t.AppendUint64(u)), nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid JSON number %q: %w", s, err)
	}
	return trie.NewLeaf(trie.Immutable, t.AppendFloat64(f)), nil
}

// ToJSON renders d losslessly for every supported scalar except 128-bit
// integers, which serialize to the placeholder literal "hugeint" (spec's
// known gap, see DESIGN.md).
func (d *Document) ToJSON() (string, error) {
	bufPtr := d.alloc.acquireBuffer()
	defer d.alloc.releaseBuffer(bufPtr)

	buf, err := d.writeJSONNode((*bufPtr)[:0], d.root)
	if err != nil {
		return "", err
	}
	return string(buf), nil
}

func (d *Document) writeJSONNode(buf []byte, n *trie.Node) ([]byte, error) {
	switch n.Kind() {
	case trie.Object:
		buf = append(buf, '{')
		for i, key := range n.Keys() {
			if i > 0 {
				buf = append(buf, ',')
			}
			kb, err := json.Marshal(key)
			if err != nil {
				return nil, err
			}
			buf = append(buf, kb...)
			buf = append(buf, ':')
			child, _ := n.Get(key)
			var err2 error
			buf, err2 = d.writeJSONNode(buf, child)
			if err2 != nil {
				return nil, err2
			}
		}
		return append(buf, '}'), nil
	case trie.Array:
		buf = append(buf, '[')
		for i, child := range n.Elements() {
			if i > 0 {
				buf = append(buf, ',')
			}
			var err error
			buf, err = d.writeJSONNode(buf, child)
			if err != nil {
				return nil, err
			}
		}
		return append(buf, ']'), nil
	default:
		return d.writeJSONScalar(buf, n)
	}
}

func (d *Document) writeJSONScalar(buf []byte, n *trie.Node) ([]byte, error) {
	t := d.tapeFor(n.Origin())
	el := t.Get(n.Ref())
	switch el.Physical {
	case tape.Null:
		return append(buf, "null"...), nil
	case tape.BoolTrue:
		return append(buf, "true"...), nil
	case tape.BoolFalse:
		return append(buf, "false"...), nil
	case tape.Int128:
		return append(buf, `"hugeint"`...), nil
	case tape.Uint8, tape.Uint16, tape.Uint32, tape.Uint64:
		return strconv.AppendUint(buf, el.U64, 10), nil
	case tape.Float32, tape.Float64:
		return strconv.AppendFloat(buf, el.F64, 'g', -1, 64), nil
	case tape.String:
		sb, err := json.Marshal(t.String(el))
		if err != nil {
			return nil, err
		}
		return append(buf, sb...), nil
	default:
		return strconv.AppendInt(buf, el.I64, 10), nil
	}
}
