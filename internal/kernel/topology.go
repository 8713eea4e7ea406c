package kernel

import "github.com/cbassuarez/flux/internal/ast"

var (
	mooreOffsets = [][2]int{{-1, -1}, {-1, 0}, {-1, 1}, {0, -1}, {0, 1}, {1, -1}, {1, 0}, {1, 1}}
	orthOffsets  = [][2]int{{-1, 0}, {0, -1}, {0, 1}, {1, 0}}
)

// neighbors appends the linear indices adjacent to cell i. The order is
// fixed so aggregations are reproducible. There is no wraparound.
func neighbors(g *GridState, i int, scope ast.Scope, dst []int) []int {
	switch g.Topology {
	case TopologyLinear:
		if i > 0 {
			dst = append(dst, i-1)
		}
		if i+1 < len(g.Cells) {
			dst = append(dst, i+1)
		}
		return dst
	case TopologyGrid:
		offsets := mooreOffsets
		if scope == ast.ScopeOrth {
			offsets = orthOffsets
		}
		row, col := g.Position(i)
		for _, off := range offsets {
			if j, ok := g.Index(row+off[0], col+off[1]); ok {
				dst = append(dst, j)
			}
		}
	}
	return dst
}
