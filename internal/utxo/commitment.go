package utxo

import (
	"encoding/binary"

	"github.com/Klingon-tech/klingnet-ledger/pkg/crypto"
	"github.com/Klingon-tech/klingnet-ledger/pkg/tx"
	"github.com/Klingon-tech/klingnet-ledger/pkg/types"
)

// Commitment computes a merkle root over all UTXOs in the pool.
// Entries are hashed in outpoint order. Returns a zero hash for an empty pool.
func Commitment(pool *Pool) types.Hash {
	hashes := make([]types.Hash, 0, pool.Len())
	pool.ForEach(func(op types.Outpoint, out tx.Output) error {
		hashes = append(hashes, hashUTXO(op, out))
		return nil
	})
	return merkleRoot(hashes)
}

// hashUTXO produces a deterministic BLAKE3 hash of a pool entry.
// Format: txid(32) | index(4) | value(8) | pubkey
func hashUTXO(op types.Outpoint, out tx.Output) types.Hash {
	var buf []byte
	buf = append(buf, op.TxID[:]...)
	buf = binary.LittleEndian.AppendUint32(buf, op.Index)
	buf = binary.LittleEndian.AppendUint64(buf, uint64(out.Value))
	return crypto.HashParts(buf, out.PubKey)
}

// merkleRoot pairwise hashes leaves, duplicating the last one on odd
// levels, until one hash remains.
func merkleRoot(leaves []types.Hash) types.Hash {
	if len(leaves) == 0 {
		return types.Hash{}
	}

	level := make([]types.Hash, len(leaves))
	copy(level, leaves)

	for len(level) > 1 {
		if len(level)%2 != 0 {
			level = append(level, level[len(level)-1])
		}
		next := make([]types.Hash, len(level)/2)
		for i := 0; i < len(level); i += 2 {
			next[i/2] = crypto.HashConcat(level[i], level[i+1])
		}
		level = next
	}
	return level[0]
}
