package oracle

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/btcjson"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/txscript"
	"github.com/goodnatureofminers/txancestry-backend/internal/ancestry/model"
)

// scriptDecoder extracts the destination address of an output.
type scriptDecoder struct {
	params *chaincfg.Params
}

// NewScriptDecoder initializes a decoder that renders addresses for the given network.
func NewScriptDecoder(network model.Network) (ScriptDecoder, error) {
	params, err := chainParamsForNetwork(network)
	if err != nil {
		return nil, err
	}
	return &scriptDecoder{params: params}, nil
}

// decodeAddress prefers what the node already rendered and falls back to
// parsing the script. It returns "" for scripts without a standard address.
func (d *scriptDecoder) decodeAddress(pk btcjson.ScriptPubKeyResult) (string, error) {
	if pk.Address != "" {
		return pk.Address, nil
	}
	if len(pk.Addresses) > 0 {
		return pk.Addresses[0], nil
	}
	if pk.Hex == "" {
		return "", nil
	}

	script, err := hex.DecodeString(pk.Hex)
	if err != nil {
		return "", fmt.Errorf("decode script hex: %w", err)
	}
	_, addrs, _, err := txscript.ExtractPkScriptAddrs(script, d.params)
	if err != nil {
		return "", err
	}
	if len(addrs) == 0 {
		return "", nil
	}
	return addrs[0].EncodeAddress(), nil
}

func chainParamsForNetwork(network model.Network) (*chaincfg.Params, error) {
	switch strings.ToLower(string(network)) {
	case "main", "mainnet", "bitcoin":
		return &chaincfg.MainNetParams, nil
	case "testnet", "testnet3", "test":
		return &chaincfg.TestNet3Params, nil
	case "regtest":
		return &chaincfg.RegressionNetParams, nil
	case "signet":
		return &chaincfg.SigNetParams, nil
	default:
		return nil, fmt.Errorf("unsupported network %q", network)
	}
}
