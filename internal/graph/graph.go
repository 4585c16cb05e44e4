package graph

import (
	"fmt"
	"sort"
)

// Node is one cell of the graph: a literal, a formula or a pending placeholder
type Node struct {
	Ref      Ref
	Expr     Expr
	Value    Value
	Editable bool
	Options  []string
	Format   string
	Flag     string
	Pending  string
}

// Option configures a node on creation
type Option func(*Node)

// Editable marks a node as a user input
func Editable() Option {
	return func(n *Node) { n.Editable = true }
}

// Dropdown restricts an editable node to a closed set of values
func Dropdown(options ...string) Option {
	return func(n *Node) { n.Options = append([]string(nil), options...) }
}

// Format sets the spreadsheet number format, e.g. "0.00"
func Format(format string) Option {
	return func(n *Node) { n.Format = format }
}

// Flagged attaches a visible marker to a node
func Flagged(marker string) Option {
	return func(n *Node) { n.Flag = marker }
}

// Graph holds every cell of a report and recomputes formulas in
// dependency order. It is not safe for concurrent use.
type Graph struct {
	nodes      map[Ref]*Node
	insertion  []Ref
	dependents map[Ref][]Ref
	order      map[Ref]int
	dirty      bool
}

// New creates an empty graph
func New() *Graph {
	return &Graph{
		nodes:      make(map[Ref]*Node),
		dependents: make(map[Ref][]Ref),
		order:      make(map[Ref]int),
		dirty:      true,
	}
}

func (g *Graph) put(ref Ref, opts []Option) *Node {
	n, ok := g.nodes[ref]
	if !ok {
		n = &Node{Ref: ref}
		g.nodes[ref] = n
		g.insertion = append(g.insertion, ref)
	}
	for _, opt := range opts {
		opt(n)
	}
	g.dirty = true
	return n
}

// SetLiteral stores a fixed value
func (g *Graph) SetLiteral(ref Ref, v Value, opts ...Option) *Node {
	n := g.put(ref, opts)
	n.Expr, n.Pending, n.Value = nil, "", v
	return n
}

// SetFormula stores a computed cell
func (g *Graph) SetFormula(ref Ref, expr Expr, opts ...Option) *Node {
	n := g.put(ref, opts)
	n.Expr, n.Pending = expr, ""
	return n
}

// SetPending stores a placeholder whose formula is only known once every
// sheet exists. key identifies what the placeholder stands for.
func (g *Graph) SetPending(ref Ref, key string, opts ...Option) *Node {
	n := g.put(ref, opts)
	n.Expr, n.Pending = nil, key
	return n
}

// ResolvePending replaces placeholders with the formulas returned by resolve
// and returns how many were resolved. Unknown keys stay pending.
func (g *Graph) ResolvePending(resolve func(key string) (Expr, bool)) int {
	var resolved int
	for _, ref := range g.insertion {
		n := g.nodes[ref]
		if n.Pending == "" {
			continue
		}
		expr, ok := resolve(n.Pending)
		if !ok {
			continue
		}
		n.Expr, n.Pending = expr, ""
		resolved++
	}
	if resolved > 0 {
		g.dirty = true
	}
	return resolved
}

// Node returns the node at ref
func (g *Graph) Node(ref Ref) (*Node, bool) {
	n, ok := g.nodes[ref]
	return n, ok
}

// Value returns the current value at ref; undefined cells are empty
func (g *Graph) Value(ref Ref) Value {
	if n, ok := g.nodes[ref]; ok {
		return n.Value
	}
	return Value{}
}

// Nodes returns every node in insertion order
func (g *Graph) Nodes() []*Node {
	out := make([]*Node, len(g.insertion))
	for i, ref := range g.insertion {
		out[i] = g.nodes[ref]
	}
	return out
}

// Dependents returns the cells that read ref directly
func (g *Graph) Dependents(ref Ref) []Ref {
	return g.dependents[ref]
}

func (g *Graph) rebuildEdges() {
	g.dependents = make(map[Ref][]Ref)
	for _, ref := range g.insertion {
		n := g.nodes[ref]
		if n.Expr == nil {
			continue
		}
		seen := make(map[Ref]struct{})
		for _, dep := range n.Expr.Refs() {
			if _, dup := seen[dep]; dup {
				continue
			}
			seen[dep] = struct{}{}
			if _, ok := g.nodes[dep]; ok {
				g.dependents[dep] = append(g.dependents[dep], ref)
			}
		}
	}
}

// Recalculate rebuilds the dependency index and evaluates every formula in
// topological order.
func (g *Graph) Recalculate() error {
	for _, ref := range g.insertion {
		if key := g.nodes[ref].Pending; key != "" {
			return fmt.Errorf("%w: %s at %s", ErrPendingReference, key, ref)
		}
	}

	g.rebuildEdges()

	indegree := make(map[Ref]int, len(g.nodes))
	for _, deps := range g.dependents {
		for _, d := range deps {
			indegree[d]++
		}
	}

	queue := make([]Ref, 0, len(g.nodes))
	for _, ref := range g.insertion {
		if indegree[ref] == 0 {
			queue = append(queue, ref)
		}
	}

	order := make(map[Ref]int, len(g.nodes))
	for len(queue) > 0 {
		ref := queue[0]
		queue = queue[1:]
		order[ref] = len(order)
		g.evaluate(ref)
		for _, d := range g.dependents[ref] {
			indegree[d]--
			if indegree[d] == 0 {
				queue = append(queue, d)
			}
		}
	}

	if len(order) != len(g.nodes) {
		for _, ref := range g.insertion {
			if _, ok := order[ref]; !ok {
				return fmt.Errorf("%w: involving %s", ErrCycle, ref)
			}
		}
	}

	g.order = order
	g.dirty = false
	return nil
}

func (g *Graph) evaluate(ref Ref) {
	n := g.nodes[ref]
	if n.Expr != nil {
		n.Value = n.Expr.Eval(g)
	}
}

// Set writes a user value into an editable cell and recomputes only the
// cells that transitively depend on it. It returns the recomputed cells in
// evaluation order.
func (g *Graph) Set(ref Ref, v Value) ([]Ref, error) {
	n, ok := g.nodes[ref]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCell, ref)
	}
	if !n.Editable {
		return nil, fmt.Errorf("%w: %s", ErrNotEditable, ref)
	}
	if len(n.Options) > 0 && v.Kind != Empty && !allowed(n.Options, v) {
		return nil, fmt.Errorf("%w: %q at %s", ErrInvalidOption, v.String(), ref)
	}
	if g.dirty {
		if err := g.Recalculate(); err != nil {
			return nil, err
		}
	}

	n.Expr, n.Value = nil, v

	affected := make(map[Ref]struct{})
	stack := append([]Ref(nil), g.dependents[ref]...)
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if _, seen := affected[cur]; seen {
			continue
		}
		affected[cur] = struct{}{}
		stack = append(stack, g.dependents[cur]...)
	}

	recomputed := make([]Ref, 0, len(affected))
	for r := range affected {
		recomputed = append(recomputed, r)
	}
	sort.Slice(recomputed, func(i, j int) bool {
		return g.order[recomputed[i]] < g.order[recomputed[j]]
	})
	for _, r := range recomputed {
		g.evaluate(r)
	}
	return recomputed, nil
}

func allowed(options []string, v Value) bool {
	for _, o := range options {
		if TextValue(o).Equal(v) {
			return true
		}
	}
	return false
}
