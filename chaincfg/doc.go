// Copyright (c) 2024-2026 The Umbra developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

/*
Package chaincfg defines chain configuration parameters.

In addition to the main Umbra network, which is intended for the transfer of
value among real people, there are two other networks: a public test network
and a regression test network.  These networks are incompatible with each
other (each sharing a different genesis block) and software should handle
errors where input intended for one network is used on an application instance
running on a different network.

Each Params instance enumerates, among other things, the consensus rule change
deployments the network currently tracks via version bits signaling.  The
deployment tables are pure data consumed by the generic threshold state
machine in the internal blockchain package, so adding a new soft fork to a
network is a matter of adding a record here rather than writing new transition
code.  The tables are validated when the package is initialized and the
process will not start with a malformed table.

For library consumers that construct custom parameters, ValidateDeployments
performs the same checks and must be used to reject a malformed table before
any block is processed against it.
*/
package chaincfg
