// Copyright (c) 2024-2026 The Umbra developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chaincfg

import (
	"math"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
)

// These constants are the network identification magic numbers for each
// supported Umbra network.
const (
	// MainNet represents the main Umbra network.
	MainNet wire.BitcoinNet = 0x7d5bb1a4

	// TestNet represents the public Umbra test network.
	TestNet wire.BitcoinNet = 0x2e8f3c07

	// RegNet represents the Umbra regression test network.  It is intended
	// for use by developers running private instances under their full
	// control.
	RegNet wire.BitcoinNet = 0xc3e14b92
)

// Constants that define the deployment identifiers for the supported
// consensus rule change deployments.
const (
	// DeploymentIDCompactSigs is the deployment identifier for the
	// aggregated compact signatures soft fork.
	DeploymentIDCompactSigs = "compactsigs"

	// DeploymentIDHeaderCommitments is the deployment identifier for the
	// header commitments soft fork.
	DeploymentIDHeaderCommitments = "headercommitments"

	// DeploymentIDTestDummy is the deployment identifier for the test
	// deployment that is tracked on the test networks to exercise the
	// deployment machinery without changing any rules.
	DeploymentIDTestDummy = "testdummy"
)

// The following constants are sentinel values for the StartTime and
// ExpireTime fields of a consensus deployment that bypass the normal version
// bits signaling mechanism.
const (
	// StartTimeAlwaysActive is a sentinel value for the deployment start
	// time which, when paired with the same value for the expire time,
	// makes the associated rules unconditionally active for every block at
	// or above the deployment's minimum activation height.  It is
	// primarily useful on test networks where rules must be active from
	// the start without miner signaling.
	StartTimeAlwaysActive uint64 = math.MaxUint64

	// StartTimeNeverActive is a sentinel value for the deployment start
	// time which, when paired with the same value for the expire time,
	// makes the associated rules permanently fail without any signaling
	// window ever opening.  It is useful for disabling a deployment on a
	// given network while keeping its bit reserved.
	StartTimeNeverActive uint64 = math.MaxUint64 - 1
)

// ConsensusDeployment defines details related to a specific consensus rule
// change that is voted in by miners setting the associated bit in the block
// header version field.  The parameters of a deployment are immutable for the
// life of the network once any blocks have been produced under them since
// changing them retroactively would cause consensus ambiguity.
type ConsensusDeployment struct {
	// Id uniquely identifies the deployment on a given network and is the
	// handle callers use to query its threshold state.
	Id string

	// BitNumber defines the specific bit number within the block header
	// version field the deployment is signaled with.  It must be in the
	// range [0, 28] and unique among all deployments concurrently tracked
	// by a network.
	BitNumber uint8

	// StartTime is the median block time after which signaling for the
	// deployment starts, as a unix timestamp.  It may also be one of the
	// StartTimeAlwaysActive or StartTimeNeverActive sentinels, in which
	// case ExpireTime must be set to the same sentinel.
	StartTime uint64

	// ExpireTime is the median block time after which the deployment
	// attempt fails if it has not already locked in, as a unix timestamp.
	ExpireTime uint64

	// MinActivationHeight is the minimum block height the deployment
	// rules may become active at.  It only applies to deployments using
	// the StartTimeAlwaysActive sentinel and is zero otherwise.
	MinActivationHeight int64
}

// Params defines an Umbra network by its parameters.  These parameters may be
// used by applications to differentiate networks as well as addresses and
// keys for one network from those intended for use on another network.
type Params struct {
	// Name defines a human-readable identifier for the network.
	Name string

	// Net defines the magic bytes used to identify the network.
	Net wire.BitcoinNet

	// GenesisHeader defines the first block header of the chain.
	GenesisHeader wire.BlockHeader

	// GenesisHash is the starting block hash.
	GenesisHash chainhash.Hash

	// PowLimitBits defines the highest allowed proof of work value for a
	// block in compact form.
	PowLimitBits uint32

	// MinerConfirmationWindow is the number of blocks in each threshold
	// state evaluation window.  Threshold states are defined only as of
	// window boundaries, so it is also the granularity at which rule
	// changes activate.  It matches the difficulty retarget interval.
	MinerConfirmationWindow uint32

	// RuleChangeActivationThreshold is the number of blocks within a
	// single window which must signal a deployment in order for it to lock
	// in.  It is typically 95% of MinerConfirmationWindow on the main
	// network and lower on test networks to allow for faster activation.
	RuleChangeActivationThreshold uint32

	// Deployments enumerates the consensus rule change deployments the
	// network tracks.  The slice must not be mutated after the parameters
	// are created.
	Deployments []ConsensusDeployment
}

var (
	// mainNetParams defines the network parameters for the main Umbra
	// network.
	mainNetParams = Params{
		Name:          "mainnet",
		Net:           MainNet,
		GenesisHeader: mainNetGenesisHeader,
		GenesisHash:   mainNetGenesisHash,
		PowLimitBits:  0x1d00ffff,

		MinerConfirmationWindow:       2016,
		RuleChangeActivationThreshold: 1916, // 95% of 2016

		Deployments: []ConsensusDeployment{{
			Id:         DeploymentIDCompactSigs,
			BitNumber:  0,
			StartTime:  1767225600, // Jan 1, 2026 UTC
			ExpireTime: 1798761600, // Jan 1, 2027 UTC
		}, {
			Id:         DeploymentIDHeaderCommitments,
			BitNumber:  1,
			StartTime:  1772323200, // Mar 1, 2026 UTC
			ExpireTime: 1803859200, // Mar 1, 2027 UTC
		}},
	}

	// testNetParams defines the network parameters for the public Umbra
	// test network.
	testNetParams = Params{
		Name:          "testnet",
		Net:           TestNet,
		GenesisHeader: testNetGenesisHeader,
		GenesisHash:   testNetGenesisHash,
		PowLimitBits:  0x1d00ffff,

		MinerConfirmationWindow:       2016,
		RuleChangeActivationThreshold: 1512, // 75% of 2016

		Deployments: []ConsensusDeployment{{
			Id:         DeploymentIDCompactSigs,
			BitNumber:  0,
			StartTime:  1764547200, // Dec 1, 2025 UTC
			ExpireTime: 1796083200, // Dec 1, 2026 UTC
		}, {
			Id:         DeploymentIDHeaderCommitments,
			BitNumber:  1,
			StartTime:  1769904000, // Feb 1, 2026 UTC
			ExpireTime: 1801440000, // Feb 1, 2027 UTC
		}, {
			Id:         DeploymentIDTestDummy,
			BitNumber:  28,
			StartTime:  1764547200, // Dec 1, 2025 UTC
			ExpireTime: 1796083200, // Dec 1, 2026 UTC
		}},
	}

	// regNetParams defines the network parameters for the regression test
	// network.  Rules that are unconditionally required are configured
	// with the always active sentinel so no signaling is needed on
	// private instances.
	regNetParams = Params{
		Name:          "regnet",
		Net:           RegNet,
		GenesisHeader: regNetGenesisHeader,
		GenesisHash:   regNetGenesisHash,
		PowLimitBits:  0x207fffff,

		MinerConfirmationWindow:       144,
		RuleChangeActivationThreshold: 108, // 75% of 144

		Deployments: []ConsensusDeployment{{
			Id:         DeploymentIDCompactSigs,
			BitNumber:  0,
			StartTime:  StartTimeAlwaysActive,
			ExpireTime: StartTimeAlwaysActive,
		}, {
			Id:         DeploymentIDTestDummy,
			BitNumber:  28,
			StartTime:  0,
			ExpireTime: math.MaxInt64, // Never expires.
		}},
	}
)

// MainNetParams returns the network parameters for the main Umbra network.
func MainNetParams() *Params {
	return &mainNetParams
}

// TestNetParams returns the network parameters for the public Umbra test
// network.
func TestNetParams() *Params {
	return &testNetParams
}

// RegNetParams returns the network parameters for the regression test
// network.
func RegNetParams() *Params {
	return &regNetParams
}
