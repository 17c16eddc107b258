package oracle

import (
	"errors"
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

// ErrInvalidTxID is returned for identifiers that cannot be a transaction hash.
var ErrInvalidTxID = errors.New("invalid transaction id")

// NormalizeTxID checks that txid is a 64 character hex digest and returns it
// in lower case, the form the node reports. Existence is left to the node.
func NormalizeTxID(txid string) (string, error) {
	if len(txid) != chainhash.MaxHashStringSize {
		return "", fmt.Errorf("%w: expected %d hex characters, got %d", ErrInvalidTxID, chainhash.MaxHashStringSize, len(txid))
	}
	if _, err := chainhash.NewHashFromStr(txid); err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidTxID, err)
	}
	return strings.ToLower(txid), nil
}
