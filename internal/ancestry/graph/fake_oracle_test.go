package graph

import (
	"context"
	"fmt"
	"sync"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/goodnatureofminers/txancestry-backend/internal/ancestry/model"
	"github.com/goodnatureofminers/txancestry-backend/internal/ancestry/oracle"
	"github.com/lightningnetwork/lnd/fn/v2"
)

// fakeOracle serves transactions from memory and counts resolutions.
type fakeOracle struct {
	mu    sync.Mutex
	txs   map[string]*model.Transaction
	errs  map[string]error
	calls map[string]int
}

func newFakeOracle(txs ...*model.Transaction) *fakeOracle {
	f := &fakeOracle{
		txs:   make(map[string]*model.Transaction),
		errs:  make(map[string]error),
		calls: make(map[string]int),
	}
	for _, tx := range txs {
		f.txs[tx.TxID] = tx
	}
	return f
}

func (f *fakeOracle) fail(txid string, err error) *fakeOracle {
	f.errs[txid] = err
	return f
}

func (f *fakeOracle) Resolve(ctx context.Context, txid string) (*model.Transaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	f.calls[txid]++
	f.mu.Unlock()

	if err, ok := f.errs[txid]; ok {
		return nil, err
	}
	tx, ok := f.txs[txid]
	if !ok {
		return nil, &oracle.Error{Kind: oracle.KindNotFound, Op: "getrawtransaction", TxID: txid}
	}
	return tx, nil
}

func (f *fakeOracle) callCount(txid string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[txid]
}

func (f *fakeOracle) totalCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	total := 0
	for _, n := range f.calls {
		total += n
	}
	return total
}

func spend(txid string, vout uint32) model.OutPoint {
	return model.OutPoint{TxID: txid, Vout: vout}
}

// newTx builds a transaction with the given number of addressed outputs,
// output i carrying (i+1)*1000 satoshis.
func newTx(id string, outputs int, prevs ...model.OutPoint) *model.Transaction {
	tx := &model.Transaction{TxID: id, Hash: id, Version: 2}
	for i, prev := range prevs {
		tx.Inputs = append(tx.Inputs, model.TransactionInput{
			Index: uint32(i),
			Prev:  fn.Some(prev),
		})
	}
	for i := 0; i < outputs; i++ {
		tx.Outputs = append(tx.Outputs, model.TransactionOutput{
			Index:      uint32(i),
			Value:      btcutil.Amount((i + 1) * 1000),
			Address:    fn.Some(fmt.Sprintf("addr-%s-%d", id, i)),
			ScriptType: "pubkeyhash",
		})
	}
	return tx
}

func coinbaseTx(id string, outputs int) *model.Transaction {
	tx := newTx(id, outputs)
	tx.Inputs = []model.TransactionInput{{
		Index:    0,
		Prev:     fn.None[model.OutPoint](),
		Coinbase: "03a08601",
	}}
	return tx
}
