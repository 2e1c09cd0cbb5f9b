// Copyright (c) 2024-2026 The Umbra developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"fmt"
	"sync"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/decred/dcrd/container/lru"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/umbrasuite/umbd/chaincfg"
)

// zeroHash is the zero value for a chainhash.Hash and is defined as a package
// level variable to avoid the need to create a new instance every time a
// check is needed.
var zeroHash = &chainhash.Hash{}

// BestState houses information about the current best block and other info
// related to the state of the main chain as it exists from the point of view
// of the current best block.
//
// The BestSnapshot method can be used to obtain access to this information in
// a concurrent safe manner and the data will not be changed out from under
// the caller when chain state changes occur since the function name implies
// it is a snapshot.
type BestState struct {
	Hash         chainhash.Hash // The hash of the block.
	PrevHash     chainhash.Hash // The previous block hash.
	Height       int64          // The height of the block.
	BlockVersion int32          // The version of the block.
	MedianTime   int64          // Median time as per CalcPastMedianTime.
}

// newBestState returns a new best stats instance for the given block node.
func newBestState(node *blockNode) *BestState {
	prevHash := *zeroHash
	if node.parent != nil {
		prevHash = node.parent.hash
	}
	return &BestState{
		Hash:         node.hash,
		PrevHash:     prevHash,
		Height:       node.height,
		BlockVersion: node.version,
		MedianTime:   node.CalcPastMedianTime().Unix(),
	}
}

// Config is a descriptor which specifies the blockchain instance
// configuration.
type Config struct {
	// ChainParams identifies which chain parameters the chain is
	// associated with.
	//
	// This field is required.
	ChainParams *chaincfg.Params

	// DB defines the database which houses the persistent header index.
	//
	// This field is optional.  When it is not provided, the header index
	// exists purely in memory and is lost when the process exits.
	DB *leveldb.DB
}

// BlockChain provides functions for working with the Umbra block chain.  It
// includes functionality such as maintaining the header index over all known
// branches, selecting the branch with the most cumulative proof of work as
// the main chain, and evaluating the threshold states of consensus rule
// change deployments.
type BlockChain struct {
	// The following fields are set when the instance is created and can't
	// be changed afterwards, so there is no need to protect them with a
	// separate mutex.
	chainParams         *chaincfg.Params
	db                  *leveldb.DB
	deploymentData      map[string]deploymentInfo
	knownDeploymentBits uint32

	// chainLock protects concurrent access to the vast majority of the
	// fields below this point.  In particular, every threshold state
	// computation, including population of the per-deployment caches, is
	// performed while it is held so that an in-flight ancestor walk can
	// never observe a branch switch.
	chainLock sync.RWMutex

	// index houses the entire block index in memory.  The block index is
	// a tree-shaped structure.
	index *blockIndex

	// bestChain tracks the current active chain by making use of an
	// efficient chain view.  It also houses the flat view of the active
	// branch for height based lookups.
	bestChain *chainView

	// These fields house the state used to warn the node operator about
	// unrecognized version bits signaling.  They are protected by
	// chainLock.
	unknownVerCache  *lru.Map[chainhash.Hash, WarningLevel]
	unknownVerWarned map[WarningLevel]bool
}

// ChainParams returns the network parameters of the chain.
func (b *BlockChain) ChainParams() *chaincfg.Params {
	return b.chainParams
}

// HeaderByHash returns the block header identified by the given hash or an
// error if it doesn't exist.  Note that this will return headers from both
// the main chain and any side chains.
//
// This function is safe for concurrent access.
func (b *BlockChain) HeaderByHash(hash *chainhash.Hash) (wire.BlockHeader, error) {
	node := b.index.LookupNode(hash)
	if node == nil {
		return wire.BlockHeader{}, unknownBlockError(hash)
	}
	return node.Header(), nil
}

// MainChainHasBlock returns whether or not the block with the given hash is
// in the main chain.
//
// This function is safe for concurrent access.
func (b *BlockChain) MainChainHasBlock(hash *chainhash.Hash) bool {
	b.chainLock.RLock()
	node := b.index.LookupNode(hash)
	contains := node != nil && b.bestChain.Contains(node)
	b.chainLock.RUnlock()
	return contains
}

// BestSnapshot returns information about the current best chain block and
// related state as of the current point in time.  The returned instance must
// be treated as immutable since it is shared by all callers.
//
// This function is safe for concurrent access.
func (b *BlockChain) BestSnapshot() *BestState {
	b.chainLock.RLock()
	snapshot := newBestState(b.bestChain.Tip())
	b.chainLock.RUnlock()
	return snapshot
}

// maybeUpdateBestChain potentially reorganizes the best chain to the provided
// block node when it has strictly more cumulative work than the current best
// chain tip.
//
// This function MUST be called with the chain state lock held (for writes).
func (b *BlockChain) maybeUpdateBestChain(node *blockNode) {
	curTip := b.bestChain.Tip()
	if node.workSum.Cmp(curTip.workSum) <= 0 {
		return
	}

	// Log reorganizations that do not simply extend the current tip since
	// they may indicate a double spend attempt is underway or that there
	// is a wider network issue.
	if node.parent != curTip {
		fork := b.bestChain.FindFork(node)
		if fork != nil {
			log.Infof("REORGANIZE: chain forks at %v (height %v)",
				fork.hash, fork.height)
		}
		log.Infof("REORGANIZE: old best chain tip was %v (height %v)",
			curTip.hash, curTip.height)
	}

	b.bestChain.SetTip(node)
	log.Debugf("New best chain tip %v (height %v)", node.hash, node.height)

	// The unknown version survey applies to the active branch only.
	b.warnUnknownVersions(node)
}

// ProcessBlockHeader accepts the provided block header into the block index
// after performing the contextual checks that can be made from headers alone,
// extends or reorganizes the best chain as dictated by cumulative proof of
// work, and persists the header when a database is configured.
//
// Full block validation, including proof of work verification against the
// required difficulty, is the responsibility of the caller.
//
// This function is safe for concurrent access.
func (b *BlockChain) ProcessBlockHeader(header *wire.BlockHeader) error {
	b.chainLock.Lock()
	defer b.chainLock.Unlock()

	blockHash := header.BlockHash()
	if b.index.HaveBlock(&blockHash) {
		str := fmt.Sprintf("already have block %v", blockHash)
		return ruleError(ErrDuplicateBlock, str)
	}

	parent := b.index.LookupNode(&header.PrevBlock)
	if parent == nil {
		str := fmt.Sprintf("previous block %s is unknown",
			header.PrevBlock)
		return ruleError(ErrMissingParent, str)
	}

	// Ensure the timestamp for the block header is after the median time
	// of the last several blocks (medianTimeBlocks).
	medianTime := parent.CalcPastMedianTime()
	if !header.Timestamp.After(medianTime) {
		str := fmt.Sprintf("block timestamp of %v is not after "+
			"expected %v", header.Timestamp, medianTime)
		return ruleError(ErrTimeTooOld, str)
	}

	node := newBlockNode(header, parent)
	b.index.AddNode(node)
	if b.db != nil {
		if err := dbPutBlockNode(b.db, node); err != nil {
			return err
		}
	}

	b.maybeUpdateBestChain(node)
	return nil
}

// initThresholdCaches populates the threshold state caches for every defined
// deployment as of the current best chain tip.  This ensures the caches are
// immediately usable without large backwards scans on the first query after
// a restart and surfaces operator warnings for unrecognized signaling that
// took place while the node was down.
//
// This function MUST be called with the chain state lock held (for writes).
func (b *BlockChain) initThresholdCaches() {
	tip := b.bestChain.Tip()
	for id := range b.deploymentData {
		deployment := b.deploymentData[id]
		state := b.deploymentState(tip, &deployment)
		log.Debugf("Deployment %q threshold state as of block %v "+
			"(height %v): %v", id, tip.hash, tip.height, state)
	}

	b.warnUnknownVersions(tip)
}

// New returns a BlockChain instance using the provided configuration details.
func New(config *Config) (*BlockChain, error) {
	// Enforce required config fields and reject malformed deployment
	// tables before any block is processed against them.
	params := config.ChainParams
	if params == nil {
		return nil, AssertError("blockchain.New chain parameters nil")
	}
	if err := chaincfg.ValidateDeployments(params); err != nil {
		return nil, err
	}

	// Generate a deployment ID map from the provided params along with a
	// mask of every version bit claimed by the deployment table.
	deploymentData, err := extractDeployments(params)
	if err != nil {
		return nil, err
	}
	var knownBits uint32
	for _, deployment := range deploymentData {
		knownBits |= uint32(1) << deployment.deployment.BitNumber
	}

	// Create a genesis block node and block index populated with it.
	genesisNode := newBlockNode(&params.GenesisHeader, nil)
	index := newBlockIndex()
	index.AddNode(genesisNode)

	b := &BlockChain{
		chainParams:         params,
		db:                  config.DB,
		deploymentData:      deploymentData,
		knownDeploymentBits: knownBits,
		index:               index,
		bestChain:           newChainView(genesisNode),
		unknownVerCache: lru.NewMap[chainhash.Hash, WarningLevel](
			unknownVerCacheSize),
		unknownVerWarned: make(map[WarningLevel]bool),
	}

	// Load any headers from the persistent header index and set the best
	// chain to the branch with the most cumulative work among them.
	if b.db != nil {
		bestNode, numLoaded, err := loadBlockIndex(b.db, genesisNode,
			b.index)
		if err != nil {
			return nil, err
		}
		if numLoaded > 0 {
			log.Infof("Loaded %d block headers (best %v, height "+
				"%d)", numLoaded, bestNode.hash,
				bestNode.height)
		}
		b.bestChain.SetTip(bestNode)
	}

	b.chainLock.Lock()
	b.initThresholdCaches()
	b.chainLock.Unlock()

	log.Infof("Chain initialized (%s, tip %v, height %d)", params.Name,
		b.bestChain.Tip().hash, b.bestChain.Height())
	return b, nil
}
