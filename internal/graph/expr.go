package graph

import (
	"math"
	"strconv"
	"strings"
)

// Env resolves referenced cells during evaluation
type Env interface {
	Value(ref Ref) Value
}

// Expr is a formula that can be rendered for a spreadsheet and evaluated
// in-process. Refs lists every cell the formula reads.
type Expr interface {
	Render() string
	Eval(env Env) Value
	Refs() []Ref
}

type numberExpr float64

// Const is a numeric literal
func Const(v float64) Expr { return numberExpr(v) }

func (n numberExpr) Render() string {
	return strconv.FormatFloat(float64(n), 'f', -1, 64)
}
func (n numberExpr) Eval(Env) Value { return NumberValue(float64(n)) }
func (n numberExpr) Refs() []Ref    { return nil }

type textExpr string

// Str is a text literal
func Str(s string) Expr { return textExpr(s) }

func (t textExpr) Render() string {
	return `"` + strings.ReplaceAll(string(t), `"`, `""`) + `"`
}
func (t textExpr) Eval(Env) Value { return TextValue(string(t)) }
func (t textExpr) Refs() []Ref    { return nil }

type refExpr Ref

// Cell reads another cell
func Cell(ref Ref) Expr { return refExpr(ref) }

func (r refExpr) Render() string     { return Ref(r).String() }
func (r refExpr) Eval(env Env) Value { return env.Value(Ref(r)) }
func (r refExpr) Refs() []Ref        { return []Ref{Ref(r)} }

// Cells turns refs into expressions
func Cells(refs []Ref) []Expr {
	out := make([]Expr, len(refs))
	for i, r := range refs {
		out[i] = Cell(r)
	}
	return out
}

func collectRefs(args []Expr) []Ref {
	var out []Ref
	for _, a := range args {
		out = append(out, a.Refs()...)
	}
	return out
}

func renderArgs(args []Expr) string {
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = a.Render()
	}
	return strings.Join(parts, ",")
}

type funcExpr struct {
	name string
	args []Expr
	eval func(vals []float64) float64
}

func (f funcExpr) Render() string { return f.name + "(" + renderArgs(f.args) + ")" }
func (f funcExpr) Refs() []Ref    { return collectRefs(f.args) }
func (f funcExpr) Eval(env Env) Value {
	vals := make([]float64, len(f.args))
	for i, a := range f.args {
		vals[i] = a.Eval(env).Float()
	}
	return NumberValue(f.eval(vals))
}

// Sum adds its arguments. An empty Sum renders as 0.
func Sum(args ...Expr) Expr {
	if len(args) == 0 {
		return Const(0)
	}
	return funcExpr{name: "SUM", args: args, eval: func(vals []float64) float64 {
		var total float64
		for _, v := range vals {
			total += v
		}
		return total
	}}
}

// Min returns the smallest argument
func Min(args ...Expr) Expr {
	return funcExpr{name: "MIN", args: args, eval: func(vals []float64) float64 {
		out := math.Inf(1)
		for _, v := range vals {
			out = math.Min(out, v)
		}
		if math.IsInf(out, 1) {
			return 0
		}
		return out
	}}
}

// Max returns the largest argument
func Max(args ...Expr) Expr {
	return funcExpr{name: "MAX", args: args, eval: func(vals []float64) float64 {
		out := math.Inf(-1)
		for _, v := range vals {
			out = math.Max(out, v)
		}
		if math.IsInf(out, -1) {
			return 0
		}
		return out
	}}
}

type rangeSum Range

// SumRange adds a column block
func SumRange(r Range) Expr {
	if r.To < r.From {
		return Const(0)
	}
	return rangeSum(r)
}

func (r rangeSum) Render() string { return "SUM(" + Range(r).String() + ")" }
func (r rangeSum) Refs() []Ref    { return Range(r).Refs() }
func (r rangeSum) Eval(env Env) Value {
	var total float64
	for _, ref := range Range(r).Refs() {
		total += env.Value(ref).Float()
	}
	return NumberValue(total)
}

type binaryExpr struct {
	op   string
	a, b Expr
	eval func(a, b Value) Value
}

func (e binaryExpr) Render() string     { return "(" + e.a.Render() + e.op + e.b.Render() + ")" }
func (e binaryExpr) Refs() []Ref        { return collectRefs([]Expr{e.a, e.b}) }
func (e binaryExpr) Eval(env Env) Value { return e.eval(e.a.Eval(env), e.b.Eval(env)) }

func arith(op string, f func(a, b float64) float64) func(a, b Expr) Expr {
	return func(a, b Expr) Expr {
		return binaryExpr{op: op, a: a, b: b, eval: func(x, y Value) Value {
			return NumberValue(f(x.Float(), y.Float()))
		}}
	}
}

var (
	// Add returns a+b
	Add = arith("+", func(a, b float64) float64 { return a + b })
	// Sub returns a-b
	Sub = arith("-", func(a, b float64) float64 { return a - b })
	// Mul returns a*b
	Mul = arith("*", func(a, b float64) float64 { return a * b })
)

// Eq compares two values, text case-insensitively
func Eq(a, b Expr) Expr {
	return binaryExpr{op: "=", a: a, b: b, eval: func(x, y Value) Value {
		return boolValue(x.Equal(y))
	}}
}

// Le is a <= b
func Le(a, b Expr) Expr {
	return binaryExpr{op: "<=", a: a, b: b, eval: func(x, y Value) Value {
		return boolValue(x.Float() <= y.Float())
	}}
}

type divExpr struct{ a, b Expr }

// Div divides a by b and yields 0 for a zero divisor
func Div(a, b Expr) Expr { return divExpr{a: a, b: b} }

func (d divExpr) Render() string {
	return "IF(" + d.b.Render() + "=0,0," + d.a.Render() + "/" + d.b.Render() + ")"
}
func (d divExpr) Refs() []Ref { return collectRefs([]Expr{d.a, d.b}) }
func (d divExpr) Eval(env Env) Value {
	b := d.b.Eval(env).Float()
	if b == 0 {
		return NumberValue(0)
	}
	return NumberValue(d.a.Eval(env).Float() / b)
}

type ifExpr struct{ cond, then, els Expr }

// If evaluates then when cond is non-zero, else els
func If(cond, then, els Expr) Expr { return ifExpr{cond: cond, then: then, els: els} }

func (e ifExpr) Render() string {
	return "IF(" + e.cond.Render() + "," + e.then.Render() + "," + e.els.Render() + ")"
}
func (e ifExpr) Refs() []Ref { return collectRefs([]Expr{e.cond, e.then, e.els}) }
func (e ifExpr) Eval(env Env) Value {
	if e.cond.Eval(env).Float() != 0 {
		return e.then.Eval(env)
	}
	return e.els.Eval(env)
}

type lookupExpr struct {
	key    Expr
	keys   Range
	values Range
}

// Lookup finds key in the keys column and returns the value on the same row
// of the values column, 0 when absent. It renders as INDEX/MATCH.
func Lookup(key Expr, keys, values Range) Expr {
	return lookupExpr{key: key, keys: keys, values: values}
}

func (l lookupExpr) Render() string {
	return "IFERROR(INDEX(" + l.values.String() + ",MATCH(" + l.key.Render() + "," + l.keys.String() + ",0)),0)"
}

func (l lookupExpr) Refs() []Ref {
	refs := append([]Ref{}, l.key.Refs()...)
	refs = append(refs, l.keys.Refs()...)
	return append(refs, l.values.Refs()...)
}

func (l lookupExpr) Eval(env Env) Value {
	key := l.key.Eval(env)
	values := l.values.Refs()
	for i, ref := range l.keys.Refs() {
		if i >= len(values) {
			break
		}
		if env.Value(ref).Equal(key) {
			return env.Value(values[i])
		}
	}
	return NumberValue(0)
}
