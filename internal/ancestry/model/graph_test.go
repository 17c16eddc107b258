package model

import (
	"testing"

	"github.com/lightningnetwork/lnd/fn/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGraph_EdgesBetweenKeepsParallelEdges(t *testing.T) {
	g := &Graph{
		Root:  "b",
		Nodes: []Node{{TxID: "b"}, {TxID: "a", Depth: 1}},
		Edges: []Edge{
			{Source: "a", Target: "b", Vin: 0, Vout: 0, Value: 10},
			{Source: "a", Target: "b", Vin: 1, Vout: 1, Value: 20},
			{Source: "c", Target: "b", Vin: 2, Vout: 0, Value: 30},
		},
	}

	edges := g.EdgesBetween("a", "b")
	require.Len(t, edges, 2)
	assert.Equal(t, uint32(0), edges[0].Vout)
	assert.Equal(t, uint32(1), edges[1].Vout)

	assert.Equal(t, []string{"b", "a"}, g.NodeIDs())
	n, ok := g.Node("a")
	require.True(t, ok)
	assert.Equal(t, 1, n.Depth)
	_, ok = g.Node("zz")
	assert.False(t, ok)
}

func TestGraph_Empty(t *testing.T) {
	var nilGraph *Graph
	assert.True(t, nilGraph.Empty())
	assert.True(t, (&Graph{Root: "a"}).Empty())
	assert.False(t, (&Graph{Nodes: []Node{{TxID: "a"}}}).Empty())
}

func TestTransaction_Output(t *testing.T) {
	tx := Transaction{
		TxID: "a",
		Outputs: []TransactionOutput{
			{Index: 0, Value: 5, Address: fn.Some("addr0")},
			{Index: 1, Value: 7},
		},
	}

	out, ok := tx.Output(1)
	require.True(t, ok)
	assert.Equal(t, uint32(1), out.Index)
	assert.True(t, out.Address.IsNone())

	_, ok = tx.Output(2)
	assert.False(t, ok)
}

func TestTransactionInput_IsCoinbase(t *testing.T) {
	assert.True(t, TransactionInput{Coinbase: "04ffff001d"}.IsCoinbase())
	assert.False(t, TransactionInput{Prev: fn.Some(OutPoint{TxID: "a", Vout: 1})}.IsCoinbase())
}
