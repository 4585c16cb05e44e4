package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRef_String(t *testing.T) {
	assert.Equal(t, "'Max Muster'!H12", At("Max Muster", 8, 12).String())
	assert.Equal(t, "'O''Brien'!A1", At("O'Brien", 1, 1).String())
	assert.Equal(t, "'S'!C2:C5", Column("S", 3, 2, 5).String())
	assert.Len(t, Column("S", 3, 2, 5).Refs(), 4)
}

func TestExpr_Render(t *testing.T) {
	a := At("A", 1, 1)
	b := At("B", 2, 3)

	tests := []struct {
		name string
		expr Expr
		want string
	}{
		{name: "sum", expr: Sum(Cell(a), Cell(b)), want: "SUM('A'!A1,'B'!B3)"},
		{name: "empty sum", expr: Sum(), want: "0"},
		{name: "transferred", expr: Max(Const(0), Min(Cell(a), Sub(Const(0), Cell(b)))), want: "MAX(0,MIN('A'!A1,(0-'B'!B3)))"},
		{name: "if text compare", expr: If(Eq(Cell(a), Str(`Bob "B"`)), Cell(b), Const(0)), want: `IF(('A'!A1="Bob ""B"""),'B'!B3,0)`},
		{name: "div", expr: Div(Cell(a), Cell(b)), want: "IF('B'!B3=0,0,'A'!A1/'B'!B3)"},
		{name: "lookup", expr: Lookup(Const(2), Column("R", 1, 2, 4), Column("R", 3, 2, 4)), want: "IFERROR(INDEX('R'!C2:C4,MATCH(2,'R'!A2:A4,0)),0)"},
		{name: "range", expr: SumRange(Column("S", 2, 5, 7)), want: "SUM('S'!B5:B7)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.expr.Render())
		})
	}
}

func TestGraph_Recalculate(t *testing.T) {
	g := New()
	hours := At("A", 1, 1)
	adj := At("A", 2, 1)
	transferred := At("A", 3, 1)
	effective := At("A", 4, 1)

	g.SetLiteral(hours, NumberValue(12))
	g.SetLiteral(adj, NumberValue(0), Editable())
	// define dependents before their inputs to exercise ordering
	g.SetFormula(effective, Sub(Cell(hours), Cell(transferred)))
	g.SetFormula(transferred, Max(Const(0), Min(Cell(hours), Sub(Const(0), Cell(adj)))))

	require.NoError(t, g.Recalculate())
	assert.Equal(t, 0.0, g.Value(transferred).Float())
	assert.Equal(t, 12.0, g.Value(effective).Float())

	for _, tc := range []struct{ adj, want float64 }{
		{adj: -5, want: 5},
		{adj: -100, want: 12},
		{adj: 7, want: 0},
		{adj: -0.5, want: 0.5},
	} {
		_, err := g.Set(adj, NumberValue(tc.adj))
		require.NoError(t, err)
		got := g.Value(transferred).Float()
		assert.Equal(t, tc.want, got)
		assert.GreaterOrEqual(t, got, 0.0)
		assert.LessOrEqual(t, got, 12.0)
		assert.Equal(t, 12-tc.want, g.Value(effective).Float())
	}
}

func TestGraph_SetRecomputesOnlyDependents(t *testing.T) {
	g := New()
	x := At("S", 1, 1)
	y := At("S", 1, 2)
	fx := At("S", 2, 1)
	fy := At("S", 2, 2)
	total := At("S", 3, 1)

	g.SetLiteral(x, NumberValue(1), Editable())
	g.SetLiteral(y, NumberValue(2), Editable())
	g.SetFormula(fx, Mul(Cell(x), Const(10)))
	g.SetFormula(fy, Mul(Cell(y), Const(10)))
	g.SetFormula(total, Sum(Cell(fx), Cell(fy)))
	require.NoError(t, g.Recalculate())
	assert.Equal(t, 30.0, g.Value(total).Float())

	recomputed, err := g.Set(x, NumberValue(5))
	require.NoError(t, err)
	assert.Equal(t, []Ref{fx, total}, recomputed)
	assert.Equal(t, 70.0, g.Value(total).Float())
	assert.Equal(t, []Ref{total}, g.Dependents(fx))
}

func TestGraph_Errors(t *testing.T) {
	t.Run("cycle", func(t *testing.T) {
		g := New()
		a, b := At("S", 1, 1), At("S", 1, 2)
		g.SetFormula(a, Add(Cell(b), Const(1)))
		g.SetFormula(b, Add(Cell(a), Const(1)))
		assert.ErrorIs(t, g.Recalculate(), ErrCycle)
	})

	t.Run("pending reference", func(t *testing.T) {
		g := New()
		cum := At("S", 1, 1)
		g.SetPending(cum, "cumulative:1:2025-07")
		assert.ErrorIs(t, g.Recalculate(), ErrPendingReference)

		resolved := g.ResolvePending(func(key string) (Expr, bool) {
			if key == "cumulative:1:2025-07" {
				return Const(700), true
			}
			return nil, false
		})
		assert.Equal(t, 1, resolved)
		require.NoError(t, g.Recalculate())
		assert.Equal(t, 700.0, g.Value(cum).Float())
	})

	t.Run("not editable", func(t *testing.T) {
		g := New()
		ref := At("S", 1, 1)
		g.SetFormula(ref, Const(1))
		_, err := g.Set(ref, NumberValue(2))
		assert.ErrorIs(t, err, ErrNotEditable)

		_, err = g.Set(At("S", 9, 9), NumberValue(2))
		assert.ErrorIs(t, err, ErrUnknownCell)
	})

	t.Run("dropdown rejects other values", func(t *testing.T) {
		g := New()
		ref := At("S", 1, 1)
		g.SetLiteral(ref, Value{}, Editable(), Dropdown("Anna", "Bob"))
		_, err := g.Set(ref, TextValue("Carl"))
		assert.ErrorIs(t, err, ErrInvalidOption)
		_, err = g.Set(ref, TextValue("bob"))
		assert.NoError(t, err)
	})
}

func TestLookup_Eval(t *testing.T) {
	g := New()
	for i, rate := range []float64{10, 20, 30} {
		g.SetLiteral(At("R", 1, i+2), NumberValue(float64(i+1)))
		g.SetLiteral(At("R", 2, i+2), NumberValue(rate))
	}
	id := At("E", 1, 1)
	g.SetLiteral(id, NumberValue(2), Editable())
	rate := At("E", 2, 1)
	g.SetFormula(rate, Lookup(Cell(id), Column("R", 1, 2, 4), Column("R", 2, 2, 4)))

	require.NoError(t, g.Recalculate())
	assert.Equal(t, 20.0, g.Value(rate).Float())

	_, err := g.Set(id, NumberValue(9))
	require.NoError(t, err)
	assert.Equal(t, 0.0, g.Value(rate).Float())
}
