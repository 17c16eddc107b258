// Package model defines domain models for transaction ancestry graphs.
package model

import (
	"github.com/btcsuite/btcd/btcutil"
	"github.com/lightningnetwork/lnd/fn/v2"
)

// OutPoint references a single output of a previous transaction.
type OutPoint struct {
	TxID string
	Vout uint32
}

// Transaction is a decoded transaction as resolved from the oracle.
type Transaction struct {
	TxID     string
	Hash     string
	Version  uint32
	Size     uint32
	VSize    uint32
	Weight   uint32
	LockTime uint32
	Inputs   []TransactionInput
	Outputs  []TransactionOutput
}

// TransactionInput spends a previous output. Prev is empty for coinbase inputs.
type TransactionInput struct {
	Index    uint32
	Prev     fn.Option[OutPoint]
	Sequence uint32
	Coinbase string
}

// IsCoinbase reports whether the input has no previous transaction.
func (in TransactionInput) IsCoinbase() bool {
	return in.Prev.IsNone()
}

// TransactionOutput is an output created by a transaction. Address is empty
// when the script has no decodable destination.
type TransactionOutput struct {
	Index      uint32
	Value      btcutil.Amount
	Address    fn.Option[string]
	ScriptType string
}

// Output returns the output at position vout.
func (t *Transaction) Output(vout uint32) (TransactionOutput, bool) {
	if uint64(vout) >= uint64(len(t.Outputs)) {
		return TransactionOutput{}, false
	}
	return t.Outputs[vout], true
}
