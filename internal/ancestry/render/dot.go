package render

import (
	"fmt"
	"io"

	"github.com/emicklei/dot"
	"github.com/goodnatureofminers/txancestry-backend/internal/ancestry/model"
)

// NewDOT builds g as a Graphviz digraph with funds flowing left to right.
// The root is drawn as a double octagon.
func NewDOT(g *model.Graph) *dot.Graph {
	out := dot.NewGraph(dot.Directed)
	out.Attr("rankdir", "LR")
	out.NodeInitializer(func(n dot.Node) {
		n.Attr("shape", "box")
		n.Attr("fontname", "monospace")
	})
	if g == nil {
		return out
	}
	if g.Root != "" {
		out.Attr("label", "ancestry of "+shortTxID(g.Root))
	}

	for _, n := range g.Nodes {
		node := out.Node(n.TxID).Label(fmt.Sprintf("%s\ndepth %d", shortTxID(n.TxID), n.Depth))
		if n.TxID == g.Root {
			node.Attr("shape", "doubleoctagon")
		}
	}
	for _, e := range g.Edges {
		label := FormatBTC(e.Value) + " BTC"
		if addr := e.Address.UnwrapOr(""); addr != "" {
			label = addr + "\n" + label
		}
		out.Edge(out.Node(e.Source), out.Node(e.Target)).Label(label)
	}
	return out
}

// WriteDOT writes the Graphviz form of g to w.
func WriteDOT(w io.Writer, g *model.Graph) error {
	_, err := io.WriteString(w, NewDOT(g).String())
	return err
}

func shortTxID(txid string) string {
	if len(txid) <= 16 {
		return txid
	}
	return txid[:8] + "…" + txid[len(txid)-8:]
}
