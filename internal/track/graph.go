// internal/track/graph.go
//
// Directed track graph for the 4×N Tâb board.
// Responsibilities:
//   - Linear cell ids (id = row*cols + col) and coordinate helpers.
//   - Fixed circuit construction (one out-edge per cell, two at the corner).
//   - Exact k-step reachability with edge pruning during expansion.
//
// Notes:
//   - The graph is drawn in the frame of the player whose start row is 3.
//     The opposite player walks it through Rotate.
//   - A Graph is immutable once New returns; share it freely.
package track

import "sort"

// Rows is fixed: the circuit always spans four rows.
const Rows = 4

// Cell is a board coordinate.
type Cell struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

// Graph holds forward single-step edges keyed by cell id.
type Graph struct {
	cols  int
	edges [][]int
}

// New builds the circuit for a board with the given number of columns.
//
// Row 0: right→left, leftmost descends to (1,0).
// Row 1: left→right, rightmost branches up to (0,N-1) and down to (2,N-1).
// Row 2: right→left, leftmost ascends to (1,0).
// Row 3: left→right, rightmost ascends to (2,N-1).
func New(cols int) *Graph {
	if cols < 1 {
		cols = 1
	}
	g := &Graph{cols: cols, edges: make([][]int, Rows*cols)}
	last := cols - 1

	for c := last; c > 0; c-- {
		g.AddEdge(Cell{0, c}, Cell{0, c - 1})
	}
	g.AddEdge(Cell{0, 0}, Cell{1, 0})

	for c := 0; c < last; c++ {
		g.AddEdge(Cell{1, c}, Cell{1, c + 1})
	}
	g.AddEdge(Cell{1, last}, Cell{0, last})
	g.AddEdge(Cell{1, last}, Cell{2, last})

	for c := last; c > 0; c-- {
		g.AddEdge(Cell{2, c}, Cell{2, c - 1})
	}
	g.AddEdge(Cell{2, 0}, Cell{1, 0})

	for c := 0; c < last; c++ {
		g.AddEdge(Cell{3, c}, Cell{3, c + 1})
	}
	g.AddEdge(Cell{3, last}, Cell{2, last})
	return g
}

// Cols returns the board width.
func (g *Graph) Cols() int { return g.cols }

// Len returns the number of nodes.
func (g *Graph) Len() int { return len(g.edges) }

// Contains reports whether c lies on the board.
func (g *Graph) Contains(c Cell) bool {
	return c.Row >= 0 && c.Row < Rows && c.Col >= 0 && c.Col < g.cols
}

// ID maps a cell to its linear index. Callers check Contains first.
func (g *Graph) ID(c Cell) int { return c.Row*g.cols + c.Col }

// CellOf is the inverse of ID.
func (g *Graph) CellOf(id int) Cell { return Cell{Row: id / g.cols, Col: id % g.cols} }

// Rotate turns a cell by 180°, switching between the two players' frames.
// Rotate is its own inverse.
func (g *Graph) Rotate(c Cell) Cell {
	return Cell{Row: Rows - 1 - c.Row, Col: g.cols - 1 - c.Col}
}

// AddEdge adds a forward edge; out-of-bounds endpoints are ignored.
func (g *Graph) AddEdge(from, to Cell) {
	if !g.Contains(from) || !g.Contains(to) {
		return
	}
	g.AddEdgeID(g.ID(from), g.ID(to))
}

// AddEdgeID is AddEdge in id form.
func (g *Graph) AddEdgeID(from, to int) {
	if from < 0 || from >= len(g.edges) || to < 0 || to >= len(g.edges) {
		return
	}
	for _, n := range g.edges[from] {
		if n == to {
			return
		}
	}
	g.edges[from] = append(g.edges[from], to)
}

// Neighbors returns the ids one forward step from id, in ascending order.
func (g *Graph) Neighbors(id int) []int {
	if id < 0 || id >= len(g.edges) {
		return nil
	}
	out := append([]int(nil), g.edges[id]...)
	sort.Ints(out)
	return out
}

// KStepReachable returns the ids reachable from start in exactly k hops.
// allow, when non-nil, is consulted for every edge while expanding; a
// rejected edge is never followed. The result is sorted.
func (g *Graph) KStepReachable(start, k int, allow func(from, to int) bool) []int {
	if start < 0 || start >= len(g.edges) || k < 0 {
		return nil
	}
	frontier := map[int]struct{}{start: {}}
	for step := 0; step < k; step++ {
		next := make(map[int]struct{})
		for id := range frontier {
			for _, n := range g.edges[id] {
				if allow != nil && !allow(id, n) {
					continue
				}
				next[n] = struct{}{}
			}
		}
		if len(next) == 0 {
			return nil
		}
		frontier = next
	}
	out := make([]int, 0, len(frontier))
	for id := range frontier {
		out = append(out, id)
	}
	sort.Ints(out)
	return out
}
