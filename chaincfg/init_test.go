// Copyright (c) 2024-2026 The Umbra developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chaincfg

import (
	"errors"
	"math"
	"testing"
)

// testParams returns a minimal set of well-formed network parameters with the
// provided deployments for use in the validation tests below.
func testParams(deployments []ConsensusDeployment) *Params {
	return &Params{
		Name:                          "validationtest",
		MinerConfirmationWindow:       2016,
		RuleChangeActivationThreshold: 1916,
		Deployments:                   deployments,
	}
}

// TestValidateDeployments ensures malformed deployment tables are rejected
// with the expected errors and that well-formed tables are accepted.
func TestValidateDeployments(t *testing.T) {
	tests := []struct {
		name        string
		params      *Params
		expectedErr error
	}{{
		name:        "empty table",
		params:      testParams(nil),
		expectedErr: nil,
	}, {
		name: "single well-formed deployment",
		params: testParams([]ConsensusDeployment{{
			Id:         "upgrade1",
			BitNumber:  0,
			StartTime:  1000,
			ExpireTime: 2000,
		}}),
		expectedErr: nil,
	}, {
		name: "well-formed always active sentinel",
		params: testParams([]ConsensusDeployment{{
			Id:                  "upgrade1",
			BitNumber:           5,
			StartTime:           StartTimeAlwaysActive,
			ExpireTime:          StartTimeAlwaysActive,
			MinActivationHeight: 100,
		}}),
		expectedErr: nil,
	}, {
		name: "well-formed never active sentinel",
		params: testParams([]ConsensusDeployment{{
			Id:         "upgrade1",
			BitNumber:  5,
			StartTime:  StartTimeNeverActive,
			ExpireTime: StartTimeNeverActive,
		}}),
		expectedErr: nil,
	}, {
		name: "bit out of range",
		params: testParams([]ConsensusDeployment{{
			Id:         "upgrade1",
			BitNumber:  29,
			StartTime:  1000,
			ExpireTime: 2000,
		}}),
		expectedErr: errBitOutOfRange,
	}, {
		name: "start time equal to expire time",
		params: testParams([]ConsensusDeployment{{
			Id:         "upgrade1",
			BitNumber:  0,
			StartTime:  2000,
			ExpireTime: 2000,
		}}),
		expectedErr: errInvalidTimes,
	}, {
		name: "start time after expire time",
		params: testParams([]ConsensusDeployment{{
			Id:         "upgrade1",
			BitNumber:  0,
			StartTime:  3000,
			ExpireTime: 2000,
		}}),
		expectedErr: errInvalidTimes,
	}, {
		name: "mismatched sentinel times",
		params: testParams([]ConsensusDeployment{{
			Id:         "upgrade1",
			BitNumber:  0,
			StartTime:  StartTimeAlwaysActive,
			ExpireTime: math.MaxInt64,
		}}),
		expectedErr: errMismatchedSentinels,
	}, {
		name: "min activation height on never active sentinel",
		params: testParams([]ConsensusDeployment{{
			Id:                  "upgrade1",
			BitNumber:           5,
			StartTime:           StartTimeNeverActive,
			ExpireTime:          StartTimeNeverActive,
			MinActivationHeight: 100,
		}}),
		expectedErr: errInvalidMinActivation,
	}, {
		name: "min activation height without sentinel",
		params: testParams([]ConsensusDeployment{{
			Id:                  "upgrade1",
			BitNumber:           0,
			StartTime:           1000,
			ExpireTime:          2000,
			MinActivationHeight: 100,
		}}),
		expectedErr: errInvalidMinActivation,
	}, {
		name: "duplicate deployment id",
		params: testParams([]ConsensusDeployment{{
			Id:         "upgrade1",
			BitNumber:  0,
			StartTime:  1000,
			ExpireTime: 2000,
		}, {
			Id:         "upgrade1",
			BitNumber:  1,
			StartTime:  1000,
			ExpireTime: 2000,
		}}),
		expectedErr: errDuplicateDeploymentID,
	}, {
		name: "duplicate deployment bit",
		params: testParams([]ConsensusDeployment{{
			Id:         "upgrade1",
			BitNumber:  7,
			StartTime:  1000,
			ExpireTime: 2000,
		}, {
			Id:         "upgrade2",
			BitNumber:  7,
			StartTime:  1000,
			ExpireTime: 2000,
		}}),
		expectedErr: errDuplicateBit,
	}, {
		name: "threshold exceeds window",
		params: func() *Params {
			params := testParams(nil)
			params.RuleChangeActivationThreshold = 2017
			return params
		}(),
		expectedErr: errInvalidThreshold,
	}}

	for _, test := range tests {
		err := ValidateDeployments(test.params)
		if !errors.Is(err, test.expectedErr) {
			t.Errorf("%q: unexpected error -- got %v, want %v",
				test.name, err, test.expectedErr)
		}
	}
}
