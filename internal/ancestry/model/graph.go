package model

import (
	"github.com/btcsuite/btcd/btcutil"
	"github.com/lightningnetwork/lnd/fn/v2"
)

// NoticeReason explains why an input did not produce an edge.
type NoticeReason string

var (
	// NoticePrevNotFound marks an input whose previous transaction is unknown to the oracle.
	NoticePrevNotFound NoticeReason = "prev_not_found"
	// NoticePrevMalformed marks an input whose previous transaction could not be decoded.
	NoticePrevMalformed NoticeReason = "prev_malformed"
	// NoticePrevRPCError marks an input whose previous transaction lookup failed with an RPC error.
	NoticePrevRPCError NoticeReason = "prev_rpc_error"
	// NoticeVoutOutOfRange marks an input spending an output index the previous transaction lacks.
	NoticeVoutOutOfRange NoticeReason = "vout_out_of_range"
	// NoticeAddressMissing marks an input spending an output without a decodable address.
	NoticeAddressMissing NoticeReason = "address_missing"
)

// Node is a transaction discovered during traversal.
type Node struct {
	TxID  string
	Depth int
	Tx    Transaction
}

// Edge is a fund flow from the funding transaction (Source) to the spending
// transaction (Target). Vin is the spending input index, Vout the spent output.
type Edge struct {
	Source  string
	Target  string
	Vin     uint32
	Vout    uint32
	Address fn.Option[string]
	Value   btcutil.Amount
}

// Notice records an input skipped during traversal.
type Notice struct {
	TxID     string
	Vin      uint32
	PrevTxID string
	Vout     uint32
	Reason   NoticeReason
	Detail   string
}

// Graph is the ancestry graph of Root, explored up to MaxDepth hops.
type Graph struct {
	Root     string
	MaxDepth int
	Nodes    []Node
	Edges    []Edge
	Notices  []Notice
}

// Empty reports whether the graph has no nodes.
func (g *Graph) Empty() bool {
	return g == nil || len(g.Nodes) == 0
}

// Node looks up a node by transaction id.
func (g *Graph) Node(txid string) (Node, bool) {
	for _, n := range g.Nodes {
		if n.TxID == txid {
			return n, true
		}
	}
	return Node{}, false
}

// NodeIDs returns node ids in insertion order.
func (g *Graph) NodeIDs() []string {
	ids := make([]string, 0, len(g.Nodes))
	for _, n := range g.Nodes {
		ids = append(ids, n.TxID)
	}
	return ids
}

// EdgesBetween returns all parallel edges from source to target.
func (g *Graph) EdgesBetween(source, target string) []Edge {
	var edges []Edge
	for _, e := range g.Edges {
		if e.Source == source && e.Target == target {
			edges = append(edges, e)
		}
	}
	return edges
}
