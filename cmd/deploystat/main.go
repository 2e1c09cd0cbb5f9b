// Copyright (c) 2024-2026 The Umbra developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// deploystat reports the threshold state of every consensus rule change
// deployment as of the tip of a stored header chain, along with the block
// version a miner should use for the next block and the current unknown
// version signaling warning level.
package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/decred/slog"
	flags "github.com/jessevdk/go-flags"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/umbrasuite/umbd/chaincfg"
	"github.com/umbrasuite/umbd/internal/blockchain"
	"github.com/umbrasuite/umbd/internal/version"
)

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

type config struct {
	DBPath     string `short:"b" long:"db" description:"path to the block header store; omitted means an empty in-memory chain"`
	TestNet    bool   `long:"testnet" description:"use the test network"`
	RegNet     bool   `long:"regnet" description:"use the regression test network"`
	DebugLevel string `short:"d" long:"debuglevel" description:"logging level (one of: trace, debug, info, warn, error, critical)"`
	Version    bool   `short:"V" long:"version" description:"display version information and exit"`
}

// chainParams returns the network parameters selected by the config or an
// error when more than one network is requested.
func (cfg *config) chainParams() (*chaincfg.Params, error) {
	if cfg.TestNet && cfg.RegNet {
		return nil, errors.New("the testnet and regnet params may not " +
			"be used together")
	}
	switch {
	case cfg.TestNet:
		return chaincfg.TestNetParams(), nil
	case cfg.RegNet:
		return chaincfg.RegNetParams(), nil
	}
	return chaincfg.MainNetParams(), nil
}

func main() {
	cfg := config{
		DebugLevel: "warn",
	}
	parser := flags.NewParser(&cfg, flags.Default)
	if _, err := parser.Parse(); err != nil {
		var e *flags.Error
		if errors.As(err, &e) && e.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}

	if cfg.Version {
		fmt.Printf("deploystat version %s\n", version.String())
		os.Exit(0)
	}

	params, err := cfg.chainParams()
	if err != nil {
		fatalf("%v", err)
	}

	// Route chain logging to stderr at the requested level so the report
	// on stdout stays machine readable.
	backend := slog.NewBackend(os.Stderr)
	logger := backend.Logger("CHAN")
	level, ok := slog.LevelFromString(cfg.DebugLevel)
	if !ok {
		fatalf("invalid debug level %q", cfg.DebugLevel)
	}
	logger.SetLevel(level)
	blockchain.UseLogger(logger)

	var db *leveldb.DB
	if cfg.DBPath != "" {
		var err error
		db, err = leveldb.OpenFile(cfg.DBPath, nil)
		if err != nil {
			fatalf("unable to open header store %q: %v", cfg.DBPath,
				err)
		}
		defer db.Close()
	}

	chain, err := blockchain.New(&blockchain.Config{
		ChainParams: params,
		DB:          db,
	})
	if err != nil {
		fatalf("unable to initialize chain: %v", err)
	}

	best := chain.BestSnapshot()
	fmt.Printf("Network: %s\n", params.Name)
	fmt.Printf("Best block: %v (height %d)\n", best.Hash, best.Height)
	fmt.Printf("Median time: %v\n", time.Unix(best.MedianTime, 0).UTC())

	fmt.Println("\nDeployments:")
	for i := range params.Deployments {
		deployment := &params.Deployments[i]
		state, err := chain.NextThresholdState(&best.Hash,
			deployment.Id)
		if err != nil {
			fatalf("unable to query deployment %q: %v",
				deployment.Id, err)
		}
		fmt.Printf("  %-20s bit %-2d %v\n", deployment.Id,
			deployment.BitNumber, state)
	}

	nextVersion, err := chain.CalcNextBlockVersion(&best.Hash)
	if err != nil {
		fatalf("unable to calculate next block version: %v", err)
	}
	fmt.Printf("\nNext block version: 0x%08x\n", nextVersion)
	fmt.Printf("Warning level: %v\n", chain.CheckWarnings())
}
