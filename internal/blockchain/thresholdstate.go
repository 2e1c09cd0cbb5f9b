// Copyright (c) 2024-2026 The Umbra developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"fmt"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/umbrasuite/umbd/chaincfg"
)

// ThresholdState defines the various threshold states used when voting on
// consensus rule changes.
type ThresholdState byte

// These constants are used to identify specific threshold states.
const (
	// ThresholdInvalid is an invalid state and exists for use as the zero
	// value in error paths.
	ThresholdInvalid ThresholdState = iota

	// ThresholdDefined is the initial state for each deployment and is the
	// state for the window that contains the genesis block by definition
	// for all deployments.
	ThresholdDefined

	// ThresholdStarted is the state for a deployment once its start time
	// has been reached.
	ThresholdStarted

	// ThresholdLockedIn is the state for a deployment during the window
	// which is after the ThresholdStarted state window in which the number
	// of blocks that signaled the deployment met or exceeded the required
	// activation threshold.
	ThresholdLockedIn

	// ThresholdActive is the state for a deployment for all blocks after a
	// window in which the deployment was in the ThresholdLockedIn state.
	ThresholdActive

	// ThresholdFailed is the state for a deployment once its expiration
	// time has been reached and it did not reach the ThresholdLockedIn
	// state.
	ThresholdFailed
)

// thresholdStateStrings is a map of ThresholdState values back to their
// constant names for pretty printing.
var thresholdStateStrings = map[ThresholdState]string{
	ThresholdInvalid:  "ThresholdInvalid",
	ThresholdDefined:  "ThresholdDefined",
	ThresholdStarted:  "ThresholdStarted",
	ThresholdLockedIn: "ThresholdLockedIn",
	ThresholdActive:   "ThresholdActive",
	ThresholdFailed:   "ThresholdFailed",
}

// String returns the ThresholdState as a human-readable name.
func (t ThresholdState) String() string {
	if s := thresholdStateStrings[t]; s != "" {
		return s
	}
	return fmt.Sprintf("Unknown ThresholdState (%d)", int(t))
}

// thresholdConditionChecker provides a generic interface that is invoked to
// determine when a consensus rule change threshold should be changed.
type thresholdConditionChecker interface {
	// BeginTime returns the unix timestamp for the median block time after
	// which voting on a rule change starts (at the next window).
	BeginTime() uint64

	// EndTime returns the unix timestamp for the median block time after
	// which an attempted rule change fails if it has not already been
	// locked in or activated.
	EndTime() uint64

	// RuleChangeActivationThreshold is the number of blocks for which the
	// condition must be true in order to lock in a rule change.
	RuleChangeActivationThreshold() uint32

	// MinerConfirmationWindow is the number of blocks in each threshold
	// state evaluation window.
	MinerConfirmationWindow() uint32

	// Condition returns whether or not the rule change activation
	// condition has been met for the given block.  This typically involves
	// checking whether or not the bit associated with the condition is
	// set, but can be more complex as needed.
	Condition(*blockNode) bool
}

// thresholdStateCache provides a type to cache the threshold states of each
// threshold window for a set of IDs.
//
// Entries are keyed by the hash of the final block of a window, so states
// computed for one branch of the block tree can never be silently reused for
// another branch across a reorganization.  Entries that belong to abandoned
// branches simply become unreachable.
type thresholdStateCache struct {
	entries map[chainhash.Hash]ThresholdState
}

// Lookup returns the threshold state associated with the given hash along
// with a boolean that indicates whether or not it is valid.
func (c *thresholdStateCache) Lookup(hash *chainhash.Hash) (ThresholdState, bool) {
	state, ok := c.entries[*hash]
	return state, ok
}

// Update updates the cache to contain the provided hash to threshold state
// mapping.
//
// The threshold state is a pure function of chain history, so an existing
// entry that disagrees with a fresh computation for the same block means
// branch identity handling is broken and panics.
func (c *thresholdStateCache) Update(hash *chainhash.Hash, state ThresholdState) {
	if existing, ok := c.entries[*hash]; ok {
		if existing != state {
			panicf("threshold state cache entry for %v changed from "+
				"%v to %v", hash, existing, state)
		}
		return
	}

	c.entries[*hash] = state
}

// newThresholdCache returns a new cache to be used when calculating threshold
// states.
func newThresholdCache() thresholdStateCache {
	return thresholdStateCache{
		entries: make(map[chainhash.Hash]ThresholdState),
	}
}

// deploymentInfo houses the ready-to-use details of a single consensus
// deployment that is tracked by the chain instance.
type deploymentInfo struct {
	// deployment is the network parameter record the info was created
	// from.
	deployment *chaincfg.ConsensusDeployment

	// forcedState optionally contains a threshold state to use for all
	// queries rather than evaluating the signaling machinery.  It is only
	// set for deployments configured with one of the time sentinels.
	forcedState ThresholdState

	// cache caches the computed threshold states for the deployment keyed
	// by the final block of each evaluation window.
	cache *thresholdStateCache
}

// extractDeployments returns a map of all deployment ids within the provided
// params to a deployment info instance for each along with any per-deployment
// forced state implied by the configured time sentinels.
func extractDeployments(params *chaincfg.Params) (map[string]deploymentInfo, error) {
	deploymentData := make(map[string]deploymentInfo, len(params.Deployments))
	for i := range params.Deployments {
		deployment := &params.Deployments[i]
		if _, ok := deploymentData[deployment.Id]; ok {
			return nil, AssertError(fmt.Sprintf("extractDeployments: "+
				"duplicate deployment id %s", deployment.Id))
		}

		var forcedState ThresholdState
		switch deployment.StartTime {
		case chaincfg.StartTimeAlwaysActive:
			forcedState = ThresholdActive
		case chaincfg.StartTimeNeverActive:
			forcedState = ThresholdFailed
		}

		cache := newThresholdCache()
		deploymentData[deployment.Id] = deploymentInfo{
			deployment:  deployment,
			forcedState: forcedState,
			cache:       &cache,
		}
	}

	return deploymentData, nil
}

// thresholdStateTransition returns the threshold state for the window that
// begins after the provided node given the state of the previous window.  The
// provided node must be the final node of the previous window.
func thresholdStateTransition(state ThresholdState, prevNode *blockNode, checker thresholdConditionChecker) ThresholdState {
	confirmationWindow := int64(checker.MinerConfirmationWindow())
	switch state {
	case ThresholdDefined:
		// The deployment of the rule change fails if it expires before
		// it is accepted and locked in.
		medianTime := uint64(prevNode.CalcPastMedianTime().Unix())
		if medianTime >= checker.EndTime() {
			state = ThresholdFailed
			break
		}

		// The state for the rule moves to the started state once its
		// start time has been reached (and it hasn't already expired
		// per the above).
		if medianTime >= checker.BeginTime() {
			state = ThresholdStarted
		}

	case ThresholdStarted:
		// The timeout check takes precedence over the lock in check,
		// so the deployment fails when it expires even if the
		// signaling threshold was also met within the same window.
		medianTime := uint64(prevNode.CalcPastMedianTime().Unix())
		if medianTime >= checker.EndTime() {
			state = ThresholdFailed
			break
		}

		// At this point, the rule change is still being voted on by
		// the miners, so iterate backwards through the just-completed
		// window to count all of the votes in it.
		var count uint32
		countNode := prevNode
		for i := int64(0); i < confirmationWindow; i++ {
			if checker.Condition(countNode) {
				count++
			}
			countNode = countNode.parent
		}

		// The state is locked in if the number of blocks in the window
		// that voted for the rule change meets the activation
		// threshold.
		if count >= checker.RuleChangeActivationThreshold() {
			state = ThresholdLockedIn
		}

	case ThresholdLockedIn:
		// The new rule becomes active one window after it was locked
		// in regardless of the signaling content of that window.
		state = ThresholdActive

	// Nothing to do if the previous state is active or failed since they
	// are both terminal states.
	case ThresholdActive:
	case ThresholdFailed:
	}

	return state
}

// nextThresholdState returns the current rule change threshold state for the
// block AFTER the given node for the provided condition checker.  The cache
// is used to ensure the threshold states for previous windows are only
// calculated once.
//
// This function MUST be called with the chain state lock held (for writes).
func (b *BlockChain) nextThresholdState(prevNode *blockNode, checker thresholdConditionChecker, cache *thresholdStateCache) ThresholdState {
	// The threshold state for the window that contains the genesis block
	// is defined by definition.  This also handles queries before the
	// genesis block which resolve to the defined state rather than an
	// error.
	confirmationWindow := int64(checker.MinerConfirmationWindow())
	if prevNode == nil || prevNode.height+1 < confirmationWindow {
		return ThresholdDefined
	}

	// Get the ancestor that is the final block of the previous
	// confirmation window in order to get its threshold state.  This can
	// be done because the state is the same for all blocks within a given
	// window.
	prevNode = prevNode.Ancestor(prevNode.height -
		(prevNode.height+1)%confirmationWindow)

	// Iterate backwards through each of the previous confirmation windows
	// to find the most recently cached threshold state.
	var neededStates []*blockNode
	for prevNode != nil {
		// Nothing more to do if the state of the block is already
		// cached.
		if _, ok := cache.Lookup(&prevNode.hash); ok {
			break
		}

		// The start and expiration times are based on the median block
		// time, so calculate it now.
		medianTime := prevNode.CalcPastMedianTime()

		// The state is simply defined if the start time hasn't been
		// reached yet.
		if uint64(medianTime.Unix()) < checker.BeginTime() {
			cache.Update(&prevNode.hash, ThresholdDefined)
			break
		}

		// Add this node to the list of nodes that need the state
		// calculated and cached.
		neededStates = append(neededStates, prevNode)

		// Get the ancestor that is the final block of the previous
		// confirmation window.
		prevNode = prevNode.RelativeAncestor(confirmationWindow)
	}

	// Start with the threshold state for the most recent confirmation
	// window that has a cached state.
	state := ThresholdDefined
	if prevNode != nil {
		var ok bool
		state, ok = cache.Lookup(&prevNode.hash)
		if !ok {
			// A cache entry is guaranteed to exist due to the above
			// code and the code below relies on it, so assert the
			// assumption.
			panicf("threshold state cache lookup failed for %v",
				prevNode.hash)
		}
	}

	// Since each threshold state depends on the state of the previous
	// window, iterate starting from the oldest unknown window.
	for neededNum := len(neededStates) - 1; neededNum >= 0; neededNum-- {
		prevNode := neededStates[neededNum]
		state = thresholdStateTransition(state, prevNode, checker)

		// Update the cache to avoid recalculating the state in the
		// future.
		cache.Update(&prevNode.hash, state)
	}

	return state
}

// deploymentState returns the current rule change threshold state for the
// block AFTER the given node for the provided deployment.
//
// Deployments configured with one of the time sentinels short circuit the
// signaling machinery entirely: always active deployments report active for
// every block at or above their minimum activation height and never active
// deployments report failed everywhere.
//
// This function MUST be called with the chain state lock held (for writes).
func (b *BlockChain) deploymentState(prevNode *blockNode, deployment *deploymentInfo) ThresholdState {
	if deployment.forcedState != ThresholdInvalid {
		if deployment.forcedState == ThresholdActive && prevNode != nil &&
			prevNode.height+1 < deployment.deployment.MinActivationHeight {

			return ThresholdDefined
		}
		return deployment.forcedState
	}

	checker := deploymentChecker{deployment: deployment.deployment, chain: b}
	return b.nextThresholdState(prevNode, checker, deployment.cache)
}

// NextThresholdState returns the current rule change threshold state of the
// given deployment ID for the block AFTER the provided block hash.
//
// This function is safe for concurrent access.
func (b *BlockChain) NextThresholdState(prevHash *chainhash.Hash, deploymentID string) (ThresholdState, error) {
	node := b.index.LookupNode(prevHash)
	if node == nil {
		return ThresholdInvalid, unknownBlockError(prevHash)
	}

	deployment, ok := b.deploymentData[deploymentID]
	if !ok {
		return ThresholdInvalid, unknownDeploymentError(deploymentID)
	}

	b.chainLock.Lock()
	state := b.deploymentState(node, &deployment)
	b.chainLock.Unlock()
	return state, nil
}

// IsDeploymentActive returns whether or not the rules of the provided
// deployment ID are active for the block AFTER the provided block hash.  This
// is the channel by which validation code selects the rule set that applies
// at a given height.
//
// This function is safe for concurrent access.
func (b *BlockChain) IsDeploymentActive(prevHash *chainhash.Hash, deploymentID string) (bool, error) {
	state, err := b.NextThresholdState(prevHash, deploymentID)
	if err != nil {
		return false, err
	}
	return state == ThresholdActive, nil
}
