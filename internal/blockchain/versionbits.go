// Copyright (c) 2024-2026 The Umbra developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"fmt"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/umbrasuite/umbd/chaincfg"
)

const (
	// vbTopBits defines the bits to set in the version to signal that the
	// version bits scheme is being used.
	vbTopBits = 0x20000000

	// vbTopMask is the bitmask to use to determine whether or not the
	// version bits scheme is in use.  Blocks whose version does not match
	// vbTopBits under this mask never signal anything, which reserves the
	// bitfield for exclusive use by the deployment mechanism and avoids
	// colliding with legacy version numbers.
	vbTopMask = 0xe0000000

	// vbNumBits is the total number of bits available for use with the
	// version bits scheme.
	vbNumBits = 29

	// unknownVerNumToCheck is the number of previous blocks to consider
	// when checking for a threshold of unknown block versions for the
	// purposes of warning the user.
	unknownVerNumToCheck = 100

	// unknownVerAdvisoryNum is the number of blocks within the checked
	// window that signal an unrecognized bit at which an advisory warning
	// is raised.
	unknownVerAdvisoryNum = unknownVerNumToCheck / 2

	// unknownVerSevereNum is the number of blocks within the checked
	// window that signal an unrecognized bit at which a severe warning is
	// raised.
	unknownVerSevereNum = unknownVerNumToCheck * 3 / 4

	// unknownVerCacheSize is the number of per-tip unknown version survey
	// results to keep in memory.
	unknownVerCacheSize = 32
)

// WarningLevel represents the severity of the advisory raised when recent
// blocks signal version bits the local deployment table does not recognize.
type WarningLevel byte

// Constants that define the supported warning levels, in increasing order of
// severity.
const (
	// WarnNone means no meaningful number of recent blocks signal
	// unrecognized bits.
	WarnNone WarningLevel = iota

	// WarnAdvisory means a majority of the recent block window signals
	// bits the local deployment table does not track, so the node software
	// is likely out of date.
	WarnAdvisory

	// WarnSevere means enough of the recent block window signals unknown
	// bits that an unknown rule change is likely to activate, or already
	// has.
	WarnSevere
)

// warningLevelStrings is a map of WarningLevel values back to their constant
// names for pretty printing.
var warningLevelStrings = map[WarningLevel]string{
	WarnNone:     "WarnNone",
	WarnAdvisory: "WarnAdvisory",
	WarnSevere:   "WarnSevere",
}

// String returns the WarningLevel as a human-readable name.
func (level WarningLevel) String() string {
	if s := warningLevelStrings[level]; s != "" {
		return s
	}
	return fmt.Sprintf("Unknown WarningLevel (%d)", int(level))
}

// deploymentChecker provides a thresholdConditionChecker which can be used to
// test a specific deployment rule.  This is required for properly detecting
// and activating consensus rule changes.
type deploymentChecker struct {
	deployment *chaincfg.ConsensusDeployment
	chain      *BlockChain
}

// Ensure the deploymentChecker type implements the thresholdConditionChecker
// interface.
var _ thresholdConditionChecker = deploymentChecker{}

// BeginTime returns the unix timestamp for the median block time after which
// voting on a rule change starts (at the next window).
//
// This is part of the thresholdConditionChecker interface implementation.
func (c deploymentChecker) BeginTime() uint64 {
	return c.deployment.StartTime
}

// EndTime returns the unix timestamp for the median block time after which an
// attempted rule change fails if it has not already been locked in or
// activated.
//
// This is part of the thresholdConditionChecker interface implementation.
func (c deploymentChecker) EndTime() uint64 {
	return c.deployment.ExpireTime
}

// RuleChangeActivationThreshold is the number of blocks for which the
// condition must be true in order to lock in a rule change.
//
// This implementation returns the value defined by the chain params the
// checker is associated with.
//
// This is part of the thresholdConditionChecker interface implementation.
func (c deploymentChecker) RuleChangeActivationThreshold() uint32 {
	return c.chain.chainParams.RuleChangeActivationThreshold
}

// MinerConfirmationWindow is the number of blocks in each threshold state
// evaluation window.
//
// This implementation returns the value defined by the chain params the
// checker is associated with.
//
// This is part of the thresholdConditionChecker interface implementation.
func (c deploymentChecker) MinerConfirmationWindow() uint32 {
	return c.chain.chainParams.MinerConfirmationWindow
}

// Condition returns true when the specific bit defined by the deployment
// associated with the checker is set and the version bits top bits pattern is
// present.
//
// This is part of the thresholdConditionChecker interface implementation.
func (c deploymentChecker) Condition(node *blockNode) bool {
	conditionMask := uint32(1) << c.deployment.BitNumber
	version := uint32(node.version)
	return version&vbTopMask == vbTopBits && version&conditionMask != 0
}

// calcNextBlockVersion calculates the expected version of the block after the
// passed previous block node based on the state of started and locked in rule
// change deployments.
//
// This function differs from the exported CalcNextBlockVersion in that the
// exported version uses the provided block hash to locate the previous block
// node while this function accepts any block node.
//
// This function MUST be called with the chain state lock held (for writes).
func (b *BlockChain) calcNextBlockVersion(prevNode *blockNode) int32 {
	// Set the appropriate bits for each actively defined rule deployment
	// that is either in the process of being voted on, or locked in for
	// the activation at the next threshold window change.  Locked in
	// deployments keep signaling until the rules take effect.
	expectedVersion := uint32(vbTopBits)
	for id := range b.deploymentData {
		deployment := b.deploymentData[id]
		state := b.deploymentState(prevNode, &deployment)
		if state == ThresholdStarted || state == ThresholdLockedIn {
			expectedVersion |= uint32(1) << deployment.deployment.BitNumber
		}
	}
	return int32(expectedVersion)
}

// CalcNextBlockVersion calculates the expected version of the block after the
// provided block hash based on the state of started and locked in rule change
// deployments.  It is used both when assembling a new block and when
// reporting the recommended version to external block producers.
//
// This function is safe for concurrent access.
func (b *BlockChain) CalcNextBlockVersion(prevHash *chainhash.Hash) (int32, error) {
	prevNode := b.index.LookupNode(prevHash)
	if prevNode == nil {
		return 0, unknownBlockError(prevHash)
	}

	b.chainLock.Lock()
	version := b.calcNextBlockVersion(prevNode)
	b.chainLock.Unlock()
	return version, nil
}

// checkUnknownVersions surveys the rolling window of the most recent blocks
// ending at the provided node and returns the warning level implied by the
// number of them that signal at least one version bit the deployment table
// does not claim.
//
// This function MUST be called with the chain state lock held (for writes).
func (b *BlockChain) checkUnknownVersions(node *blockNode) WarningLevel {
	// Determine the mask of bits no tracked deployment claims.  Anything
	// set under this mask in a version bits block is unrecognized
	// signaling.
	unknownBitsMask := uint32(1<<vbNumBits-1) &^ b.knownDeploymentBits

	numUpgraded := uint32(0)
	for i := uint32(0); i < unknownVerNumToCheck && node != nil; i++ {
		version := uint32(node.version)
		if version&vbTopMask == vbTopBits &&
			version&unknownBitsMask != 0 {

			numUpgraded++
		}
		node = node.parent
	}

	switch {
	case numUpgraded >= unknownVerSevereNum:
		return WarnSevere
	case numUpgraded >= unknownVerAdvisoryNum:
		return WarnAdvisory
	}
	return WarnNone
}

// warnUnknownVersions logs a warning when a high enough percentage of the
// most recent blocks on the branch ending at the provided node signal version
// bits the deployment table does not recognize.  Each warning level is only
// logged once per process lifetime.
//
// This function MUST be called with the chain state lock held (for writes).
func (b *BlockChain) warnUnknownVersions(node *blockNode) {
	if b.unknownVerWarned[WarnSevere] {
		return
	}

	level := b.unknownVersionsLevel(node)
	if level == WarnNone || b.unknownVerWarned[level] {
		return
	}
	switch level {
	case WarnAdvisory:
		log.Warnf("Unknown version bits are being signaled by a "+
			"majority of the last %d blocks.  New rules might be "+
			"voted on soon.  Consider upgrading.",
			unknownVerNumToCheck)
	case WarnSevere:
		log.Warnf("Unknown version bits are being signaled by most "+
			"of the last %d blocks.  Unknown rules are likely to "+
			"activate or may already be in effect.  Upgrade as "+
			"soon as possible.", unknownVerNumToCheck)
	}
	b.unknownVerWarned[level] = true
}

// unknownVersionsLevel returns the warning level implied by the unknown
// version signaling within the rolling window of blocks ending at the
// provided node.  Results are memoized per branch tip since the survey is
// repeated for every block connection.
//
// This function MUST be called with the chain state lock held (for writes).
func (b *BlockChain) unknownVersionsLevel(node *blockNode) WarningLevel {
	if level, ok := b.unknownVerCache.Get(node.hash); ok {
		return level
	}

	level := b.checkUnknownVersions(node)
	b.unknownVerCache.Put(node.hash, level)
	return level
}

// CheckWarnings returns the current warning level for unrecognized version
// bits signaling within the rolling window of the most recent blocks on the
// current best chain.  This is purely advisory for the node operator and
// never affects validation outcomes.
//
// This function is safe for concurrent access.
func (b *BlockChain) CheckWarnings() WarningLevel {
	b.chainLock.Lock()
	level := b.unknownVersionsLevel(b.bestChain.Tip())
	b.chainLock.Unlock()
	return level
}
