package graph

import (
	"fmt"

	"github.com/goodnatureofminers/txancestry-backend/internal/ancestry/model"
)

// accumulator owns the graph under construction and the visited set.
// It is only touched from the merge step, never from workers.
type accumulator struct {
	graph    *model.Graph
	visited  map[string]struct{}
	maxNodes int
}

func newAccumulator(root string, maxDepth, maxNodes int) *accumulator {
	return &accumulator{
		graph: &model.Graph{
			Root:     root,
			MaxDepth: maxDepth,
		},
		visited:  make(map[string]struct{}),
		maxNodes: maxNodes,
	}
}

// addNode marks tx visited and records it at depth. It reports false when
// tx was discovered earlier.
func (a *accumulator) addNode(tx *model.Transaction, depth int) (bool, error) {
	if _, ok := a.visited[tx.TxID]; ok {
		return false, nil
	}
	if a.maxNodes > 0 && len(a.graph.Nodes) >= a.maxNodes {
		return false, fmt.Errorf("%w: limit %d reached at %s", ErrBudgetExceeded, a.maxNodes, tx.TxID)
	}
	a.visited[tx.TxID] = struct{}{}
	a.graph.Nodes = append(a.graph.Nodes, model.Node{
		TxID:  tx.TxID,
		Depth: depth,
		Tx:    *tx,
	})
	return true, nil
}

func (a *accumulator) addEdge(e model.Edge) {
	a.graph.Edges = append(a.graph.Edges, e)
}

func (a *accumulator) addNotice(n model.Notice) {
	a.graph.Notices = append(a.graph.Notices, n)
}
