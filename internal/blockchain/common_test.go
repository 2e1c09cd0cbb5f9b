// Copyright (c) 2024-2026 The Umbra developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"bytes"
	"encoding/gob"
	"math"
	mrand "math/rand"
	"testing"
	"time"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/decred/dcrd/container/lru"
	"github.com/umbrasuite/umbd/chaincfg"
)

// cloneParams returns a deep copy of the provided parameters so the caller is
// free to modify them without worrying about interfering with other tests.
func cloneParams(params *chaincfg.Params) *chaincfg.Params {
	// Encode via gob.
	buf := new(bytes.Buffer)
	enc := gob.NewEncoder(buf)
	enc.Encode(params)

	// Decode via gob to make a deep copy.
	var paramsCopy chaincfg.Params
	dec := gob.NewDecoder(buf)
	dec.Decode(&paramsCopy)
	return &paramsCopy
}

// findDeployment finds the provided deployment ID within the deployments of
// the provided parameters and either returns the deployment or uses the mock
// testing instance to stop the test if it is not found.
func findDeployment(t *testing.T, params *chaincfg.Params, deploymentID string) *chaincfg.ConsensusDeployment {
	t.Helper()

	for i := range params.Deployments {
		if params.Deployments[i].Id == deploymentID {
			return &params.Deployments[i]
		}
	}

	t.Fatalf("unable to find deployment ID %s in params", deploymentID)
	panic("unreachable")
}

// removeDeploymentTimeConstraints modifies the passed deployment to remove the
// voting time constraints by making it always available and never expire.
//
// NOTE: This will mutate the passed deployment, so ensure this function is
// only called with parameters that are not globally available.
func removeDeploymentTimeConstraints(deployment *chaincfg.ConsensusDeployment) {
	deployment.StartTime = 0
	deployment.ExpireTime = math.MaxInt64
}

// newFakeChain returns a chain that is usable for synthetic tests.  It is
// important to note that this chain has no database associated with it, so
// it is not usable with all functions and the tests must take care when making
// use of it.
func newFakeChain(params *chaincfg.Params) *BlockChain {
	// Create a genesis block node and block index populated with it for use
	// when creating the fake chain below.
	node := newBlockNode(&params.GenesisHeader, nil)
	index := newBlockIndex()
	index.AddNode(node)

	// Generate a deployment ID map from the provided params along with the
	// mask of bits claimed by them.
	deploymentData, err := extractDeployments(params)
	if err != nil {
		panic(err)
	}
	var knownBits uint32
	for _, deployment := range deploymentData {
		knownBits |= uint32(1) << deployment.deployment.BitNumber
	}

	return &BlockChain{
		chainParams:         params,
		deploymentData:      deploymentData,
		knownDeploymentBits: knownBits,
		index:               index,
		bestChain:           newChainView(node),
		unknownVerCache: lru.NewMap[chainhash.Hash, WarningLevel](
			unknownVerCacheSize),
		unknownVerWarned: make(map[WarningLevel]bool),
	}
}

// testNoncePrng provides a deterministic prng for the nonce in generated fake
// nodes.  This ensures that the nodes have unique hashes.
var testNoncePrng = mrand.New(mrand.NewSource(0))

// newFakeNode creates a block node connected to the passed parent with the
// provided fields populated and fake values for the other fields.
func newFakeNode(parent *blockNode, blockVersion int32, bits uint32, timestamp time.Time) *blockNode {
	// Make up a header and create a block node from it.
	var prevHash chainhash.Hash
	if parent != nil {
		prevHash = parent.hash
	}
	header := &wire.BlockHeader{
		Version:   blockVersion,
		PrevBlock: prevHash,
		Bits:      bits,
		Timestamp: timestamp,
		Nonce:     testNoncePrng.Uint32(),
	}
	return newBlockNode(header, parent)
}

// chainedFakeNodes returns the specified number of nodes constructed such that
// each subsequent node points to the previous one to create a chain.  The first
// node will point to the passed parent which can be nil if desired.
func chainedFakeNodes(parent *blockNode, numNodes int) []*blockNode {
	nodes := make([]*blockNode, numNodes)
	tip := parent
	blockTime := time.Now()
	if tip != nil {
		blockTime = time.Unix(tip.timestamp, 0)
	}
	for i := 0; i < numNodes; i++ {
		blockTime = blockTime.Add(time.Second)
		node := newFakeNode(tip, 1, 0, blockTime)
		tip = node

		nodes[i] = node
	}
	return nodes
}

// chainedFakeSkipListNodes returns the specified number of nodes populated with
// only the fields specifically needed to test the skip list functionality and
// constructed such that each subsequent node points to the previous one to
// create a chain.  The first node will point to the passed parent which can be
// nil if desired.
//
// This is used over the chainedFakeNodes function for skip list testing because
// the skip list tests involve large numbers of nodes which take much longer to
// create with all of the other fields populated by said function.
func chainedFakeSkipListNodes(parent *blockNode, numNodes int) []*blockNode {
	nodes := make([]*blockNode, numNodes)
	for i := 0; i < numNodes; i++ {
		var height int64
		if parent != nil {
			height = parent.height + 1
		}
		node := &blockNode{parent: parent, height: height}
		if parent != nil {
			node.skipToAncestor = parent.Ancestor(calcSkipListHeight(height))
		}
		parent = node

		nodes[i] = node
	}
	return nodes
}

// branchTip is a convenience function to grab the tip of a chain of block
// nodes created via chainedFakeNodes.
func branchTip(nodes []*blockNode) *blockNode {
	return nodes[len(nodes)-1]
}

// appendFakeNode creates a new fake node with the provided block version and
// a timestamp one second after the current best tip, then extends the fake
// chain with it.
func appendFakeNode(bc *BlockChain, blockVersion int32) *blockNode {
	tip := bc.bestChain.Tip()
	blockTime := time.Unix(tip.timestamp, 0).Add(time.Second)
	node := newFakeNode(tip, blockVersion, 0, blockTime)
	bc.index.AddNode(node)
	bc.bestChain.SetTip(node)
	return node
}
