// Copyright (c) 2024-2026 The Umbra developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chaincfg

import (
	"errors"
	"fmt"
)

var (
	errDuplicateDeploymentID = errors.New("duplicate deployment id")
	errDuplicateBit          = errors.New("duplicate deployment bit")
	errBitOutOfRange         = errors.New("deployment bit out of range")
	errInvalidTimes          = errors.New("start time is not before expire " +
		"time")
	errMismatchedSentinels = errors.New("start and expire time sentinels " +
		"do not match")
	errInvalidMinActivation = errors.New("minimum activation height set " +
		"on a deployment that is not always active")
	errInvalidThreshold = errors.New("activation threshold exceeds the " +
		"confirmation window")
)

// maxDeploymentBit is the highest bit number a deployment may signal with.
// The three bits above it form the version bits top bits pattern and are
// reserved by the signaling scheme itself.
const maxDeploymentBit = 28

// isSentinelTime returns whether or not the provided deployment start time is
// one of the sentinel values that bypass version bits signaling.
func isSentinelTime(startTime uint64) bool {
	return startTime == StartTimeAlwaysActive ||
		startTime == StartTimeNeverActive
}

// validateDeployment checks an individual deployment record for internal
// consistency.
func validateDeployment(deployment *ConsensusDeployment) error {
	if deployment.BitNumber > maxDeploymentBit {
		return errBitOutOfRange
	}

	// Deployments configured with a sentinel start time must use the same
	// sentinel for the expire time since there is no signaling window.
	if isSentinelTime(deployment.StartTime) {
		if deployment.ExpireTime != deployment.StartTime {
			return errMismatchedSentinels
		}

		// The minimum activation height gates forced activation, so it
		// has no meaning for a deployment that can never activate.
		if deployment.StartTime == StartTimeNeverActive &&
			deployment.MinActivationHeight != 0 {

			return errInvalidMinActivation
		}
		return nil
	}

	if deployment.MinActivationHeight != 0 {
		return errInvalidMinActivation
	}
	if deployment.StartTime >= deployment.ExpireTime {
		return errInvalidTimes
	}
	return nil
}

// ValidateDeployments ensures the deployment table and associated activation
// parameters of the provided network parameters are well formed.  It must be
// invoked for any custom parameters before any block is processed against
// them since a malformed table leads to consensus ambiguity rather than a
// recoverable runtime failure.
func ValidateDeployments(params *Params) error {
	if params.RuleChangeActivationThreshold >
		params.MinerConfirmationWindow {

		return fmt.Errorf("%s: %w", params.Name, errInvalidThreshold)
	}

	ids := make(map[string]struct{}, len(params.Deployments))
	bits := make(map[uint8]struct{}, len(params.Deployments))
	for i := range params.Deployments {
		deployment := &params.Deployments[i]
		if err := validateDeployment(deployment); err != nil {
			return fmt.Errorf("%s: deployment %q: %w", params.Name,
				deployment.Id, err)
		}

		if _, ok := ids[deployment.Id]; ok {
			return fmt.Errorf("%s: deployment %q: %w", params.Name,
				deployment.Id, errDuplicateDeploymentID)
		}
		ids[deployment.Id] = struct{}{}

		if _, ok := bits[deployment.BitNumber]; ok {
			return fmt.Errorf("%s: deployment %q: %w", params.Name,
				deployment.Id, errDuplicateBit)
		}
		bits[deployment.BitNumber] = struct{}{}
	}

	return nil
}

func init() {
	// Reject malformed hard-coded deployment tables before anything is
	// able to process blocks against them.
	allParams := []*Params{MainNetParams(), TestNetParams(), RegNetParams()}
	for _, params := range allParams {
		if err := ValidateDeployments(params); err != nil {
			panic(err)
		}
	}
}
