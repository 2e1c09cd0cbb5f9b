// Copyright (c) 2024-2026 The Umbra developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/btcsuite/btcd/wire"
	"github.com/syndtr/goleveldb/leveldb"
	ldberrors "github.com/syndtr/goleveldb/leveldb/errors"
	"github.com/syndtr/goleveldb/leveldb/util"
	"github.com/umbrasuite/umbd/internal/progresslog"
)

const (
	// blockHdrSize is the size of a serialized block header on the wire.
	blockHdrSize = 80

	// blockHdrKeySize is the size of a header index key.  It consists of
	// the single byte prefix, the 8-byte big-endian block height, and the
	// 32-byte block hash.
	blockHdrKeySize = 1 + 8 + 32
)

// blockHdrKeyPrefix is the key prefix under which all block headers are
// stored.  The height is encoded big endian immediately after it so that
// iterating the keyspace in order visits headers in ascending height order,
// which guarantees every parent is loaded before any of its children.
var blockHdrKeyPrefix = []byte("h")

// blockHdrKey returns the database key for the header of the given block
// node.
func blockHdrKey(node *blockNode) []byte {
	key := make([]byte, blockHdrKeySize)
	key[0] = blockHdrKeyPrefix[0]
	binary.BigEndian.PutUint64(key[1:9], uint64(node.height))
	copy(key[9:], node.hash[:])
	return key
}

// convertLdbErr wraps the underlying leveldb error in a ContextError with a
// kind that distinguishes corrupted stores from other database failures.
func convertLdbErr(ldbErr error, desc string) ContextError {
	kind := ErrChainStoreFail
	if ldberrors.IsCorrupted(ldbErr) {
		kind = ErrChainStoreCorruption
	}
	return contextError(kind, fmt.Sprintf("%s: %v", desc, ldbErr))
}

// dbPutBlockNode stores the serialized header for the given block node in the
// header index keyspace.
func dbPutBlockNode(db *leveldb.DB, node *blockNode) error {
	header := node.Header()
	buf := bytes.NewBuffer(make([]byte, 0, blockHdrSize))
	if err := header.Serialize(buf); err != nil {
		return AssertError(fmt.Sprintf("dbPutBlockNode: failed to "+
			"serialize header %v: %v", node.hash, err))
	}

	err := db.Put(blockHdrKey(node), buf.Bytes(), nil)
	if err != nil {
		str := fmt.Sprintf("failed to store header %v", node.hash)
		return convertLdbErr(err, str)
	}
	return nil
}

// loadBlockIndex reconstructs the in-memory block index from the headers in
// the provided database and returns the node with the most cumulative proof
// of work along with the number of headers loaded.
//
// The genesis node must already exist in the provided index since all stored
// headers ultimately connect back to it.  Headers whose parent is not present
// indicate a corrupted store.
func loadBlockIndex(db *leveldb.DB, genesisNode *blockNode, index *blockIndex) (*blockNode, int, error) {
	bestNode := genesisNode
	numLoaded := 0
	progressLogger := progresslog.New("Loaded", log)
	iter := db.NewIterator(util.BytesPrefix(blockHdrKeyPrefix), nil)
	defer iter.Release()
	for iter.Next() {
		serialized := iter.Value()
		if len(serialized) != blockHdrSize {
			str := fmt.Sprintf("block header index entry %x is "+
				"malformed (%d bytes)", iter.Key(),
				len(serialized))
			return nil, 0, contextError(ErrChainStoreCorruption,
				str)
		}

		var header wire.BlockHeader
		err := header.Deserialize(bytes.NewReader(serialized))
		if err != nil {
			str := fmt.Sprintf("failed to deserialize header for "+
				"index entry %x: %v", iter.Key(), err)
			return nil, 0, contextError(ErrChainStoreCorruption,
				str)
		}

		// The genesis header is stored like any other and is already
		// in the index.
		blockHash := header.BlockHash()
		if index.HaveBlock(&blockHash) {
			continue
		}

		// Height ordered iteration means the parent must already have
		// been loaded.
		parent := index.LookupNode(&header.PrevBlock)
		if parent == nil {
			str := fmt.Sprintf("header %v references unknown "+
				"parent %v", blockHash, header.PrevBlock)
			return nil, 0, contextError(ErrChainStoreCorruption,
				str)
		}

		node := newBlockNode(&header, parent)
		index.AddNode(node)
		numLoaded++
		progressLogger.LogProgress(node.height, header.Timestamp, false)

		if node.workSum.Cmp(bestNode.workSum) > 0 {
			bestNode = node
		}
	}
	if err := iter.Error(); err != nil {
		return nil, 0, convertLdbErr(err, "failed to iterate header "+
			"index")
	}

	return bestNode, numLoaded, nil
}
