// Copyright (c) 2024-2026 The Umbra developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"testing"
	"time"

	"github.com/umbrasuite/umbd/chaincfg"
)

// TestWarningLevelStringer tests the stringized output for the WarningLevel
// type.
func TestWarningLevelStringer(t *testing.T) {
	tests := []struct {
		in   WarningLevel
		want string
	}{
		{WarnNone, "WarnNone"},
		{WarnAdvisory, "WarnAdvisory"},
		{WarnSevere, "WarnSevere"},
		{0xff, "Unknown WarningLevel (255)"},
	}

	for i, test := range tests {
		result := test.in.String()
		if result != test.want {
			t.Errorf("String #%d\n got: %s want: %s", i, result,
				test.want)
			continue
		}
	}
}

// TestCalcNextBlockVersion ensures the block version recommended for the next
// block sets exactly the bits of the deployments that are being voted on or
// are locked in, on top of the version bits base, and releases them once the
// rules are active.
func TestCalcNextBlockVersion(t *testing.T) {
	const deploymentID = chaincfg.DeploymentIDTestDummy
	params := cloneParams(chaincfg.RegNetParams())
	deployment := findDeployment(t, params, deploymentID)
	removeDeploymentTimeConstraints(deployment)

	confirmationWindow := int(params.MinerConfirmationWindow)
	deploymentBit := uint32(1) << deployment.BitNumber
	signalVersion := int32(vbTopBits | deploymentBit)

	tests := []struct {
		name     string
		numNodes int  // num fake nodes to create
		signal   bool // whether the created nodes signal the bit
		version  int32
	}{{
		// The deployment is defined for the window that contains the
		// genesis block, so nothing is signaled yet.
		name:    "genesis window",
		version: int32(vbTopBits),
	}, {
		// The deployment moves to started at the first window
		// boundary, so its bit is recommended from then on.
		name:     "started",
		numNodes: confirmationWindow - 1,
		version:  signalVersion,
	}, {
		// The bit keeps being signaled while the deployment is locked
		// in even though the outcome is already decided.
		name:     "locked in keeps signaling",
		numNodes: confirmationWindow,
		signal:   true,
		version:  signalVersion,
	}, {
		// The bit is released once the rules are active.
		name:     "active releases the bit",
		numNodes: confirmationWindow,
		version:  int32(vbTopBits),
	}}

	bc := newFakeChain(params)
	node := bc.bestChain.Tip()
	for _, test := range tests {
		for i := 0; i < test.numNodes; i++ {
			version := int32(vbTopBits)
			if test.signal {
				version = signalVersion
			}
			node = appendFakeNode(bc, version)
		}

		version, err := bc.CalcNextBlockVersion(&node.hash)
		if err != nil {
			t.Fatalf("%s: unexpected err: %v", test.name, err)
		}
		if version != test.version {
			t.Errorf("%s: mismatched version - got: 0x%08x, "+
				"want: 0x%08x", test.name, version,
				test.version)
			continue
		}
	}
}

// TestDeploymentCondition ensures the deployment condition only counts blocks
// that both use the version bits scheme and set the deployment bit.
func TestDeploymentCondition(t *testing.T) {
	params := chaincfg.RegNetParams()
	bc := newFakeChain(params)
	deployment := findDeployment(t, params, chaincfg.DeploymentIDTestDummy)
	checker := deploymentChecker{deployment: deployment, chain: bc}
	deploymentBit := uint32(1) << deployment.BitNumber

	tests := []struct {
		name    string
		version int32
		want    bool
	}{{
		name:    "top bits with deployment bit",
		version: int32(vbTopBits | deploymentBit),
		want:    true,
	}, {
		name:    "top bits without deployment bit",
		version: int32(vbTopBits),
		want:    false,
	}, {
		name:    "deployment bit without top bits",
		version: int32(deploymentBit),
		want:    false,
	}, {
		name:    "legacy version",
		version: 4,
		want:    false,
	}, {
		name:    "top bits pattern broken by high bit",
		version: int32(uint32(0x40000000) | vbTopBits | deploymentBit),
		want:    false,
	}}

	for _, test := range tests {
		node := newFakeNode(nil, test.version, 0, time.Now())
		if got := checker.Condition(node); got != test.want {
			t.Errorf("%s: mismatched condition - got: %v, want: "+
				"%v", test.name, got, test.want)
		}
	}
}

// TestCheckWarnings ensures the unknown version signaling survey raises the
// expected warning level for various mixes of recent block versions.
func TestCheckWarnings(t *testing.T) {
	// The main network params track deployments on bits 0 and 1, so bit
	// 27 is unclaimed and serves as the unknown bit for the test.
	params := chaincfg.MainNetParams()
	unknownVersion := int32(vbTopBits | uint32(1)<<27)
	knownVersion := int32(vbTopBits | 0x03)

	tests := []struct {
		name       string
		numUnknown int // num nodes signaling an unclaimed bit
		level      WarningLevel
	}{{
		name:       "no unknown signaling",
		numUnknown: 0,
		level:      WarnNone,
	}, {
		name:       "below advisory threshold",
		numUnknown: unknownVerAdvisoryNum - 1,
		level:      WarnNone,
	}, {
		name:       "at advisory threshold",
		numUnknown: unknownVerAdvisoryNum,
		level:      WarnAdvisory,
	}, {
		name:       "below severe threshold",
		numUnknown: unknownVerSevereNum - 1,
		level:      WarnAdvisory,
	}, {
		name:       "at severe threshold",
		numUnknown: unknownVerSevereNum,
		level:      WarnSevere,
	}, {
		name:       "entire window unknown",
		numUnknown: unknownVerNumToCheck,
		level:      WarnSevere,
	}}

	for _, test := range tests {
		// Build a fresh chain whose most recent blocks contain the
		// requested number of unknown signals.  Blocks that signal
		// claimed bits never count toward the level no matter how
		// recent they are.
		bc := newFakeChain(params)
		for i := 0; i < unknownVerNumToCheck; i++ {
			version := knownVersion
			if i < test.numUnknown {
				version = unknownVersion
			}
			appendFakeNode(bc, version)
		}

		if level := bc.CheckWarnings(); level != test.level {
			t.Errorf("%s: mismatched warning level - got: %v, "+
				"want: %v", test.name, level, test.level)
			continue
		}
	}
}

// TestWarnUnknownVersions ensures each warning level is only logged once by
// tracking the per-level warned flags.
func TestWarnUnknownVersions(t *testing.T) {
	params := chaincfg.MainNetParams()
	unknownVersion := int32(vbTopBits | uint32(1)<<27)

	bc := newFakeChain(params)
	node := bc.bestChain.Tip()
	addNodes := func(numNodes int, version int32) {
		for i := 0; i < numNodes; i++ {
			node = appendFakeNode(bc, version)
		}
	}

	// No unknown signaling yet, so neither level fires.
	addNodes(unknownVerNumToCheck, int32(vbTopBits))
	bc.warnUnknownVersions(node)
	if bc.unknownVerWarned[WarnAdvisory] || bc.unknownVerWarned[WarnSevere] {
		t.Fatal("warned flags set without unknown signaling")
	}

	// Push the window to the advisory threshold.
	addNodes(unknownVerAdvisoryNum, unknownVersion)
	bc.warnUnknownVersions(node)
	if !bc.unknownVerWarned[WarnAdvisory] {
		t.Fatal("advisory warned flag not set at advisory threshold")
	}
	if bc.unknownVerWarned[WarnSevere] {
		t.Fatal("severe warned flag set below severe threshold")
	}

	// Push the window to the severe threshold.
	addNodes(unknownVerSevereNum-unknownVerAdvisoryNum, unknownVersion)
	bc.warnUnknownVersions(node)
	if !bc.unknownVerWarned[WarnSevere] {
		t.Fatal("severe warned flag not set at severe threshold")
	}
}
