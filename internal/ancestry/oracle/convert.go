package oracle

import (
	"errors"
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/btcjson"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/goodnatureofminers/txancestry-backend/internal/ancestry/model"
	"github.com/goodnatureofminers/txancestry-backend/pkg/safe"
	"github.com/lightningnetwork/lnd/fn/v2"
)

var errEmptyTxID = errors.New("missing txid")

// ToAmount converts a BTC value as reported by the node into satoshis.
func ToAmount(value float64) (btcutil.Amount, error) {
	amt, err := btcutil.NewAmount(value)
	if err != nil {
		return 0, err
	}
	if amt < 0 {
		return 0, fmt.Errorf("negative amount: %d", amt)
	}
	return amt, nil
}

// Converter validates decoded node results and maps them to model transactions.
type Converter struct {
	decoder ScriptDecoder
}

// NewConverter constructs a Converter that resolves output addresses with decoder.
func NewConverter(decoder ScriptDecoder) *Converter {
	return &Converter{decoder: decoder}
}

// Convert maps src into a model.Transaction. When want is non-empty the
// decoded txid must match it, ignoring case. The result carries the txid in
// the lower case form the node reports.
func (c *Converter) Convert(src *btcjson.TxRawResult, want string) (*model.Transaction, error) {
	if src == nil {
		return nil, errors.New("empty result")
	}
	if src.Txid == "" {
		return nil, errEmptyTxID
	}
	if want != "" && !strings.EqualFold(src.Txid, want) {
		return nil, fmt.Errorf("decoded txid %s does not match requested %s", src.Txid, want)
	}

	version, err := safe.Uint32(src.Version)
	if err != nil {
		return nil, fmt.Errorf("tx %s version: %w", src.Txid, err)
	}
	size, err := safe.Uint32(src.Size)
	if err != nil {
		return nil, fmt.Errorf("tx %s size: %w", src.Txid, err)
	}
	vsize, err := safe.Uint32(src.Vsize)
	if err != nil {
		return nil, fmt.Errorf("tx %s vsize: %w", src.Txid, err)
	}
	weight, err := safe.Uint32(src.Weight)
	if err != nil {
		return nil, fmt.Errorf("tx %s weight: %w", src.Txid, err)
	}

	inputs, err := c.convertInputs(src)
	if err != nil {
		return nil, err
	}
	outputs, err := c.convertOutputs(src)
	if err != nil {
		return nil, err
	}

	return &model.Transaction{
		TxID:     strings.ToLower(src.Txid),
		Hash:     src.Hash,
		Version:  version,
		Size:     size,
		VSize:    vsize,
		Weight:   weight,
		LockTime: src.LockTime,
		Inputs:   inputs,
		Outputs:  outputs,
	}, nil
}

func (c *Converter) convertInputs(src *btcjson.TxRawResult) ([]model.TransactionInput, error) {
	inputs := make([]model.TransactionInput, 0, len(src.Vin))
	for idx, vin := range src.Vin {
		index, err := safe.Index(idx)
		if err != nil {
			return nil, fmt.Errorf("tx %s input: %w", src.Txid, err)
		}

		input := model.TransactionInput{
			Index:    index,
			Sequence: vin.Sequence,
			Prev:     fn.None[model.OutPoint](),
		}
		if vin.IsCoinBase() {
			input.Coinbase = vin.Coinbase
			inputs = append(inputs, input)
			continue
		}
		if _, err := chainhash.NewHashFromStr(vin.Txid); err != nil || vin.Txid == "" {
			return nil, fmt.Errorf("tx %s input %d references invalid txid %q", src.Txid, idx, vin.Txid)
		}
		input.Prev = fn.Some(model.OutPoint{TxID: vin.Txid, Vout: vin.Vout})
		inputs = append(inputs, input)
	}
	return inputs, nil
}

func (c *Converter) convertOutputs(src *btcjson.TxRawResult) ([]model.TransactionOutput, error) {
	outputs := make([]model.TransactionOutput, 0, len(src.Vout))
	for idx, vout := range src.Vout {
		index, err := safe.Index(idx)
		if err != nil {
			return nil, fmt.Errorf("tx %s output: %w", src.Txid, err)
		}
		if vout.N != index {
			return nil, fmt.Errorf("tx %s output %d reports index %d", src.Txid, idx, vout.N)
		}
		if vout.Value < 0 {
			return nil, fmt.Errorf("tx %s output %d negative value: %f", src.Txid, idx, vout.Value)
		}
		value, err := ToAmount(vout.Value)
		if err != nil {
			return nil, fmt.Errorf("tx %s output %d value: %w", src.Txid, idx, err)
		}

		address := fn.None[string]()
		// Undecodable scripts are not malformed transactions; the output
		// simply has no address.
		if addr, err := c.decoder.decodeAddress(vout.ScriptPubKey); err == nil && addr != "" {
			address = fn.Some(addr)
		}

		outputs = append(outputs, model.TransactionOutput{
			Index:      index,
			Value:      value,
			Address:    address,
			ScriptType: vout.ScriptPubKey.Type,
		})
	}
	return outputs, nil
}
