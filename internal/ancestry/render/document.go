// Package render turns ancestry graphs into JSON documents and Graphviz
// diagrams.
package render

import (
	"github.com/btcsuite/btcd/btcutil"
	"github.com/goodnatureofminers/txancestry-backend/internal/ancestry/model"
	"github.com/lightningnetwork/lnd/fn/v2"
	"github.com/shopspring/decimal"
)

// Document is the node-link JSON form of an ancestry graph. Edges between
// the same pair of transactions are told apart by Key.
type Document struct {
	Directed   bool        `json:"directed"`
	Multigraph bool        `json:"multigraph"`
	Root       string      `json:"root"`
	Depth      int         `json:"depth"`
	Nodes      []NodeDoc   `json:"nodes"`
	Edges      []EdgeDoc   `json:"edges"`
	Notices    []NoticeDoc `json:"notices"`
}

// NodeDoc is one transaction in the document.
type NodeDoc struct {
	ID       string      `json:"id"`
	Depth    int         `json:"depth"`
	Hash     string      `json:"hash"`
	Version  uint32      `json:"version"`
	Size     uint32      `json:"size"`
	VSize    uint32      `json:"vsize"`
	Weight   uint32      `json:"weight"`
	LockTime uint32      `json:"locktime"`
	Vin      []InputDoc  `json:"vin"`
	Vout     []OutputDoc `json:"vout"`
}

// InputDoc is a transaction input. Coinbase inputs carry no txid or vout.
type InputDoc struct {
	TxID     *string `json:"txid,omitempty"`
	Vout     *uint32 `json:"vout,omitempty"`
	Coinbase string  `json:"coinbase,omitempty"`
	Sequence uint32  `json:"sequence"`
}

// OutputDoc is a transaction output with its value in BTC and satoshis.
type OutputDoc struct {
	N        uint32  `json:"n"`
	Value    string  `json:"value"`
	Satoshis int64   `json:"satoshis"`
	Address  *string `json:"address"`
	Type     string  `json:"type,omitempty"`
}

// EdgeDoc is the transfer of one spent output to the transaction spending it.
type EdgeDoc struct {
	Source   string  `json:"source"`
	Target   string  `json:"target"`
	Key      int     `json:"key"`
	Address  *string `json:"from_address"`
	Value    string  `json:"value"`
	Satoshis int64   `json:"satoshis"`
	TxID     string  `json:"txid"`
	Vin      uint32  `json:"vin"`
	Vout     uint32  `json:"vout"`
}

// NoticeDoc explains an input whose edge was left out.
type NoticeDoc struct {
	TxID     string `json:"txid"`
	Vin      uint32 `json:"vin"`
	PrevTxID string `json:"prev_txid"`
	Vout     uint32 `json:"vout"`
	Reason   string `json:"reason"`
	Detail   string `json:"detail,omitempty"`
}

// FormatBTC renders amt in BTC with all eight decimals.
func FormatBTC(amt btcutil.Amount) string {
	return decimal.New(int64(amt), -8).StringFixed(8)
}

// NewDocument converts g. Slices are never nil so they encode as [].
func NewDocument(g *model.Graph) Document {
	doc := Document{
		Directed:   true,
		Multigraph: true,
		Nodes:      []NodeDoc{},
		Edges:      []EdgeDoc{},
		Notices:    []NoticeDoc{},
	}
	if g == nil {
		return doc
	}
	doc.Root = g.Root
	doc.Depth = g.MaxDepth

	for _, n := range g.Nodes {
		doc.Nodes = append(doc.Nodes, nodeDoc(n))
	}

	type pair struct{ source, target string }
	keys := make(map[pair]int)
	for _, e := range g.Edges {
		p := pair{e.Source, e.Target}
		doc.Edges = append(doc.Edges, EdgeDoc{
			Source:   e.Source,
			Target:   e.Target,
			Key:      keys[p],
			Address:  optional(e.Address),
			Value:    FormatBTC(e.Value),
			Satoshis: int64(e.Value),
			TxID:     e.Source,
			Vin:      e.Vin,
			Vout:     e.Vout,
		})
		keys[p]++
	}

	for _, n := range g.Notices {
		doc.Notices = append(doc.Notices, NoticeDoc{
			TxID:     n.TxID,
			Vin:      n.Vin,
			PrevTxID: n.PrevTxID,
			Vout:     n.Vout,
			Reason:   string(n.Reason),
			Detail:   n.Detail,
		})
	}
	return doc
}

func nodeDoc(n model.Node) NodeDoc {
	doc := NodeDoc{
		ID:       n.TxID,
		Depth:    n.Depth,
		Hash:     n.Tx.Hash,
		Version:  n.Tx.Version,
		Size:     n.Tx.Size,
		VSize:    n.Tx.VSize,
		Weight:   n.Tx.Weight,
		LockTime: n.Tx.LockTime,
		Vin:      make([]InputDoc, 0, len(n.Tx.Inputs)),
		Vout:     make([]OutputDoc, 0, len(n.Tx.Outputs)),
	}
	for _, in := range n.Tx.Inputs {
		input := InputDoc{Sequence: in.Sequence, Coinbase: in.Coinbase}
		in.Prev.WhenSome(func(prev model.OutPoint) {
			input.TxID = &prev.TxID
			input.Vout = &prev.Vout
		})
		doc.Vin = append(doc.Vin, input)
	}
	for _, out := range n.Tx.Outputs {
		doc.Vout = append(doc.Vout, OutputDoc{
			N:        out.Index,
			Value:    FormatBTC(out.Value),
			Satoshis: int64(out.Value),
			Address:  optional(out.Address),
			Type:     out.ScriptType,
		})
	}
	return doc
}

func optional(o fn.Option[string]) *string {
	if o.IsNone() {
		return nil
	}
	v := o.UnwrapOr("")
	return &v
}
