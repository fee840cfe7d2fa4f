// Package config is the boundary layer that reads environment variables and
// flags into explicit parameters. The core packages (txbuilder, submission,
// tpu, jito, pipeline) never read the environment directly; only cmd/solpipe-demo
// constructs a config.ExecuteParams and passes it down, keeping the library
// packages themselves free of any dependency on the process environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/arcsign/solpipe/feeestimator"
	"github.com/arcsign/solpipe/jito"
)

// ExecuteParams holds everything one pipeline.Execute call needs, gathered
// from the process environment at startup.
type ExecuteParams struct {
	RPCEndpoints []string
	WSEndpoint   string // optional

	KeypairPath string

	Mnemonic           string
	MnemonicPassphrase string
	HDAccount          uint32

	Strategy    string
	Fanout      int
	JitoRegion  jito.Region
	TipLamports uint64
	TipAccount  string // base58; empty disables the tip transaction

	PriorityFeeLevel feeestimator.Level

	Destination    string
	AmountLamports uint64

	JitoHTTPTimeout time.Duration
}

// Load reads an ExecuteParams from the process environment. Defaults match
// the values a careful operator would pick for a single mainnet transfer;
// every field can be overridden.
func Load() (ExecuteParams, error) {
	p := ExecuteParams{
		Strategy:         envOr("SOLPIPE_STRATEGY", "standard"),
		Fanout:           envIntOr("SOLPIPE_FANOUT", 4),
		JitoRegion:       jito.Region(envOr("SOLPIPE_JITO_REGION", string(jito.RegionMainnet))),
		PriorityFeeLevel: feeestimator.Level(envOr("SOLPIPE_PRIORITY_FEE", string(feeestimator.LevelMedium))),
		JitoHTTPTimeout:  5 * time.Second,
	}

	rpcCSV := os.Getenv("SOLPIPE_RPC_ENDPOINTS")
	if rpcCSV == "" {
		return ExecuteParams{}, fmt.Errorf("config: SOLPIPE_RPC_ENDPOINTS is required")
	}
	p.RPCEndpoints = splitCSV(rpcCSV)

	p.WSEndpoint = os.Getenv("SOLPIPE_WS_ENDPOINT")

	p.KeypairPath = os.Getenv("SOLPIPE_KEYPAIR_PATH")
	p.Mnemonic = os.Getenv("SOLPIPE_MNEMONIC")
	if p.KeypairPath == "" && p.Mnemonic == "" {
		return ExecuteParams{}, fmt.Errorf("config: one of SOLPIPE_KEYPAIR_PATH or SOLPIPE_MNEMONIC is required")
	}
	if p.KeypairPath != "" && p.Mnemonic != "" {
		return ExecuteParams{}, fmt.Errorf("config: SOLPIPE_KEYPAIR_PATH and SOLPIPE_MNEMONIC are mutually exclusive")
	}
	p.MnemonicPassphrase = os.Getenv("SOLPIPE_MNEMONIC_PASSPHRASE")
	hdAccount, err := strconv.ParseUint(envOr("SOLPIPE_HD_ACCOUNT", "0"), 10, 32)
	if err != nil {
		return ExecuteParams{}, fmt.Errorf("config: SOLPIPE_HD_ACCOUNT: %w", err)
	}
	p.HDAccount = uint32(hdAccount)

	p.Destination = os.Getenv("SOLPIPE_DESTINATION")
	if p.Destination == "" {
		return ExecuteParams{}, fmt.Errorf("config: SOLPIPE_DESTINATION is required")
	}

	amount, err := strconv.ParseUint(envOr("SOLPIPE_AMOUNT_LAMPORTS", "0"), 10, 64)
	if err != nil {
		return ExecuteParams{}, fmt.Errorf("config: SOLPIPE_AMOUNT_LAMPORTS: %w", err)
	}
	p.AmountLamports = amount

	tip, err := strconv.ParseUint(envOr("SOLPIPE_TIP_LAMPORTS", "0"), 10, 64)
	if err != nil {
		return ExecuteParams{}, fmt.Errorf("config: SOLPIPE_TIP_LAMPORTS: %w", err)
	}
	p.TipLamports = tip
	p.TipAccount = os.Getenv("SOLPIPE_TIP_ACCOUNT")

	return p, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func splitCSV(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
