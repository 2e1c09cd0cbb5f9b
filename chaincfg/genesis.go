// Copyright (c) 2024-2026 The Umbra developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chaincfg

import (
	"time"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
)

// genesisMerkleRoot is the hash of the first transaction in the genesis block
// for all Umbra networks.
var genesisMerkleRoot = newHashFromStr("66aa7bd4a7f91d6b7c2f6e2b9c4e0a3d" +
	"58c1b70e9f3a2d84165e8c09b2d4f7a1")

var (
	// mainNetGenesisHeader defines the first block header of the main
	// network chain.
	mainNetGenesisHeader = wire.BlockHeader{
		Version:    1,
		PrevBlock:  chainhash.Hash{}, // All zeroes.
		MerkleRoot: genesisMerkleRoot,
		Timestamp:  time.Unix(1703462400, 0), // Dec 25, 2023 UTC
		Bits:       0x1d00ffff,
		Nonce:      0x18aea41a,
	}

	// mainNetGenesisHash is the hash of the first block in the block chain
	// for the main network.
	mainNetGenesisHash = mainNetGenesisHeader.BlockHash()

	// testNetGenesisHeader defines the first block header of the test
	// network chain.
	testNetGenesisHeader = wire.BlockHeader{
		Version:    1,
		PrevBlock:  chainhash.Hash{},
		MerkleRoot: genesisMerkleRoot,
		Timestamp:  time.Unix(1703548800, 0), // Dec 26, 2023 UTC
		Bits:       0x1d00ffff,
		Nonce:      0x2a9c5e11,
	}

	// testNetGenesisHash is the hash of the first block in the block chain
	// for the test network.
	testNetGenesisHash = testNetGenesisHeader.BlockHash()

	// regNetGenesisHeader defines the first block header of the regression
	// test network chain.
	regNetGenesisHeader = wire.BlockHeader{
		Version:    1,
		PrevBlock:  chainhash.Hash{},
		MerkleRoot: genesisMerkleRoot,
		Timestamp:  time.Unix(1703548800, 0), // Dec 26, 2023 UTC
		Bits:       0x207fffff,
		Nonce:      0,
	}

	// regNetGenesisHash is the hash of the first block in the block chain
	// for the regression test network.
	regNetGenesisHash = regNetGenesisHeader.BlockHash()
)

// newHashFromStr converts the passed big-endian hex string into a
// chainhash.Hash.  It only differs from the one available in chainhash in
// that it panics on an error since it will only (and must only) be called
// with hard-coded, and therefore known good, hashes.
func newHashFromStr(hexStr string) chainhash.Hash {
	hash, err := chainhash.NewHashFromStr(hexStr)
	if err != nil {
		panic(err)
	}
	return *hash
}
