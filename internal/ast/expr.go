package ast

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Expr is a rule expression. Only the types in this file implement it.
type Expr interface {
	exprNode()
}

// Lit is a literal scalar.
type Lit struct {
	Value Value
}

// Ref reads a value from the evaluation context.
type Ref struct {
	Path  string
	Scope RefScope
	Field string // cell field, param name or payload key
}

// Binary applies Op to Left and Right.
type Binary struct {
	Op    Op
	Left  Expr
	Right Expr
}

// Not negates the truthiness of Arg.
type Not struct {
	Arg Expr
}

// HasTag tests whether the current cell carries Tag.
type HasTag struct {
	Tag string
}

// Neighbors aggregates over the current cell's topological neighbours.
// With Agg count and no Field it counts neighbours (carrying Tag, if set);
// sum and mean aggregate Field over the same set.
type Neighbors struct {
	Tag   string
	Scope Scope
	Agg   Agg
	Field string
}

// Random yields a deterministic pseudo-random number in [0, 1).
type Random struct{}

func (Lit) exprNode()       {}
func (Ref) exprNode()       {}
func (Binary) exprNode()    {}
func (Not) exprNode()       {}
func (HasTag) exprNode()    {}
func (Neighbors) exprNode() {}
func (Random) exprNode()    {}

// RefScope is the namespace a Ref reads from.
type RefScope int

const (
	RefCell RefScope = iota + 1
	RefParam
	RefDocstep
	RefEventType
	RefEventPayload
)

// CellFields lists the readable cell fields.
var CellFields = []string{"content", "mediaId", "dynamic", "density", "salience", "index", "row", "col", "id"}

// NumericCellFields lists the writable numeric cell fields.
var NumericCellFields = []string{"dynamic", "density", "salience"}

func isCellField(name string, fields []string) bool {
	for _, f := range fields {
		if f == name {
			return true
		}
	}
	return false
}

// ParseRef parses a reference path such as "cell.density" or "param.speed".
func ParseRef(path string) (Ref, error) {
	head, rest, _ := strings.Cut(path, ".")
	switch head {
	case "cell":
		if !isCellField(rest, CellFields) {
			return Ref{}, fmt.Errorf("unknown cell field %q in ref %q", rest, path)
		}
		return Ref{Path: path, Scope: RefCell, Field: rest}, nil
	case "param":
		if rest == "" {
			return Ref{}, fmt.Errorf("missing parameter name in ref %q", path)
		}
		return Ref{Path: path, Scope: RefParam, Field: rest}, nil
	case "docstep":
		if rest != "" {
			break
		}
		return Ref{Path: path, Scope: RefDocstep}, nil
	case "event":
		if rest == "type" {
			return Ref{Path: path, Scope: RefEventType}, nil
		}
		if key, ok := strings.CutPrefix(rest, "payload."); ok && key != "" {
			return Ref{Path: path, Scope: RefEventPayload, Field: key}, nil
		}
	}
	return Ref{}, fmt.Errorf("unknown ref path %q", path)
}

// Op is a binary operator.
type Op int

const (
	OpAdd Op = iota + 1
	OpSub
	OpMul
	OpDiv
	OpMod
	OpEq
	OpNe
	OpLt
	OpLe
	OpGt
	OpGe
	OpAnd
	OpOr
)

var opNames = map[Op]string{
	OpAdd: "+", OpSub: "-", OpMul: "*", OpDiv: "/", OpMod: "%",
	OpEq: "==", OpNe: "!=", OpLt: "<", OpLe: "<=", OpGt: ">", OpGe: ">=",
	OpAnd: "and", OpOr: "or",
}

func (o Op) String() string { return opNames[o] }

// ParseOp maps an operator token to an Op.
func ParseOp(s string) (Op, error) {
	for op, name := range opNames {
		if name == s {
			return op, nil
		}
	}
	return 0, fmt.Errorf("unknown operator %q", s)
}

// Scope selects the neighbourhood shape.
type Scope int

const (
	ScopeAll  Scope = iota + 1 // Moore neighbourhood
	ScopeOrth                  // von Neumann neighbourhood
)

// Agg is a neighbour aggregation.
type Agg int

const (
	AggCount Agg = iota + 1
	AggSum
	AggMean
)

type rawExpr struct {
	Kind  string          `json:"kind"`
	Value json.RawMessage `json:"value"`
	Path  string          `json:"path"`
	Op    string          `json:"op"`
	Left  json.RawMessage `json:"left"`
	Right json.RawMessage `json:"right"`
	Arg   json.RawMessage `json:"arg"`
	Tag   string          `json:"tag"`
	Scope string          `json:"scope"`
	Agg   string          `json:"agg"`
	Field string          `json:"field"`
}

// DecodeExpr decodes an expression. A bare JSON scalar is a literal.
func DecodeExpr(data json.RawMessage) (Expr, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil, nil
	}
	if data[0] != '{' {
		var v Value
		if err := json.Unmarshal(data, &v); err != nil {
			return nil, fmt.Errorf("expression: %w", err)
		}
		return Lit{Value: v}, nil
	}

	var raw rawExpr
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("expression: %w", err)
	}

	switch raw.Kind {
	case "lit":
		var v Value
		if len(raw.Value) > 0 {
			if err := json.Unmarshal(raw.Value, &v); err != nil {
				return nil, fmt.Errorf("lit: %w", err)
			}
		}
		return Lit{Value: v}, nil
	case "ref":
		return ParseRef(raw.Path)
	case "binary":
		op, err := ParseOp(raw.Op)
		if err != nil {
			return nil, err
		}
		left, err := DecodeExpr(raw.Left)
		if err != nil {
			return nil, fmt.Errorf("binary %s left: %w", raw.Op, err)
		}
		right, err := DecodeExpr(raw.Right)
		if err != nil {
			return nil, fmt.Errorf("binary %s right: %w", raw.Op, err)
		}
		if left == nil || right == nil {
			return nil, fmt.Errorf("binary %s requires left and right operands", raw.Op)
		}
		return Binary{Op: op, Left: left, Right: right}, nil
	case "not":
		arg, err := DecodeExpr(raw.Arg)
		if err != nil {
			return nil, fmt.Errorf("not: %w", err)
		}
		if arg == nil {
			return nil, fmt.Errorf("not requires an argument")
		}
		return Not{Arg: arg}, nil
	case "hasTag":
		if raw.Tag == "" {
			return nil, fmt.Errorf("hasTag requires a tag")
		}
		return HasTag{Tag: raw.Tag}, nil
	case "neighbors":
		return decodeNeighbors(raw)
	case "random":
		return Random{}, nil
	}
	return nil, fmt.Errorf("unknown expression kind %q", raw.Kind)
}

func decodeNeighbors(raw rawExpr) (Expr, error) {
	n := Neighbors{Tag: raw.Tag, Field: raw.Field, Scope: ScopeAll, Agg: AggCount}
	switch raw.Scope {
	case "", "all":
	case "orth":
		n.Scope = ScopeOrth
	default:
		return nil, fmt.Errorf("unknown neighbors scope %q", raw.Scope)
	}
	switch raw.Agg {
	case "", "count":
	case "sum":
		n.Agg = AggSum
	case "mean":
		n.Agg = AggMean
	default:
		return nil, fmt.Errorf("unknown neighbors aggregation %q", raw.Agg)
	}
	if n.Agg != AggCount && !isCellField(n.Field, NumericCellFields) {
		return nil, fmt.Errorf("neighbors %s requires a numeric field, got %q", raw.Agg, n.Field)
	}
	return n, nil
}
