// Package txbuilder assembles compiled instructions into one or more
// size-constrained, signed, versioned transactions with priority-fee and
// compute-budget injection.
package txbuilder

import (
	"context"
	"crypto/sha256"
	"fmt"
	"sync"

	"github.com/gagliardetto/solana-go"
	"github.com/rs/zerolog/log"

	"github.com/arcsign/solpipe/chainerr"
	"github.com/arcsign/solpipe/feeestimator"
	"github.com/arcsign/solpipe/rpcclient"
	"github.com/arcsign/solpipe/signer"
)

// WireSizeLimit is the maximum serialized transaction size.
const WireSizeLimit = 1232

// lookupTableOverheadBytes is the fixed per-table cost of referencing an ALT
// in the message header; a table is only worth including when the bytes it
// saves by replacing 32-byte keys with 1-byte indices exceed this.
const lookupTableOverheadBytes = 34

// Builder assembles a versioned (v0) transaction. Every mutator returns a new
// value rather than modifying the receiver in place.
type Builder struct {
	feePayer             solana.PublicKey
	instructions         []solana.Instruction
	blockhash            solana.Hash
	blockhashSet         bool
	lastValidBlockHeight uint64
	lookupTables         []solana.PublicKey
	priorityFee          feeestimator.PriceConfig
	fixedComputeUnits    *uint32

	signers  *signer.Set
	rpc      *rpcclient.Client
	simCache *simulationCache
}

// simulationCache memoizes SimulateTransaction results by signing-payload
// hash so repeated simulates of an identical message share one RPC round
// trip. The compute-unit probe's message carries no compute-budget
// instructions, so it never shares an entry with a later Simulate of the
// finished transaction. It is a
// shared pointer copied across every mutator-produced Builder value, not
// builder state itself, so it does not break the mutators' value semantics.
type simulationCache struct {
	mu      sync.Mutex
	entries map[[32]byte]SimulationOutcome
}

// New starts a builder bound to an RPC client and a signer set; the signer
// set's fee payer becomes the builder's fee payer.
func New(rpc *rpcclient.Client, signers *signer.Set) Builder {
	return Builder{
		rpc:         rpc,
		signers:     signers,
		feePayer:    signers.FeePayerAddress(),
		priorityFee: feeestimator.PriceConfig{Level: feeestimator.LevelMedium},
		simCache:    &simulationCache{entries: make(map[[32]byte]SimulationOutcome)},
	}
}

func (b Builder) WithFeePayer(payer solana.PublicKey) Builder {
	b.feePayer = payer
	return b
}

func (b Builder) AddInstruction(ix solana.Instruction) Builder {
	b.instructions = append(append([]solana.Instruction(nil), b.instructions...), ix)
	return b
}

func (b Builder) AddInstructions(ixs []solana.Instruction) Builder {
	b.instructions = append(append([]solana.Instruction(nil), b.instructions...), ixs...)
	return b
}

func (b Builder) WithBlockhashLifetime(blockhash solana.Hash, lastValidBlockHeight uint64) Builder {
	b.blockhash = blockhash
	b.blockhashSet = true
	b.lastValidBlockHeight = lastValidBlockHeight
	return b
}

func (b Builder) WithLookupTables(addresses []solana.PublicKey) Builder {
	b.lookupTables = append([]solana.PublicKey(nil), addresses...)
	return b
}

func (b Builder) WithPriorityFee(cfg feeestimator.PriceConfig) Builder {
	b.priorityFee = cfg
	return b
}

// WithComputeUnits pins a fixed compute-unit limit. Passing nil restores
// auto-estimation from a pre-flight simulation.
func (b Builder) WithComputeUnits(fixed *uint32) Builder {
	b.fixedComputeUnits = fixed
	return b
}

// SizeInfo reports the wire-size budget for the transaction as it currently
// stands, estimated by constructing a probe transaction with placeholder
// (zero) signatures.
type SizeInfo struct {
	Size         int
	Limit        int
	Remaining    int
	PercentUsed  float64
	CanFitMore   bool
}

// GetSizeInfo estimates wire size without fetching a blockhash or signing.
func (b Builder) GetSizeInfo(ctx context.Context) (SizeInfo, error) {
	probeHash := b.blockhash
	if !b.blockhashSet {
		probeHash = solana.Hash{}
	}

	tx, err := b.assemble(ctx, probeHash, b.lookupTables)
	if err != nil {
		return SizeInfo{}, err
	}

	wire, err := tx.MarshalBinary()
	if err != nil {
		return SizeInfo{}, fmt.Errorf("txbuilder: marshal probe transaction: %w", err)
	}

	size := len(wire)
	remaining := WireSizeLimit - size
	if remaining < 0 {
		remaining = 0
	}

	return SizeInfo{
		Size:        size,
		Limit:       WireSizeLimit,
		Remaining:   remaining,
		PercentUsed: float64(size) / float64(WireSizeLimit) * 100,
		CanFitMore:  size < WireSizeLimit,
	}, nil
}

// SimulationOutcome is the result of a pre-flight simulation.
type SimulationOutcome struct {
	OK             bool
	UnitsConsumed  *uint64
	Err            error
	Logs           []string
}

// Simulate signs the transaction and submits it through the simulation RPC
// method, never landing it on-chain.
func (b Builder) Simulate(ctx context.Context) (SimulationOutcome, error) {
	tx, _, err := b.buildSignedTransaction(ctx)
	if err != nil {
		return SimulationOutcome{}, err
	}
	return b.simulateCached(ctx, tx)
}

// simulateCached runs SimulateTransaction, keyed by a hash of the message's
// signing payload so repeat simulates of the identical payload through this
// builder (or any value derived from it) don't double-charge an RPC round
// trip.
func (b Builder) simulateCached(ctx context.Context, tx *solana.Transaction) (SimulationOutcome, error) {
	msgBytes, err := tx.Message.MarshalBinary()
	if err != nil {
		return SimulationOutcome{}, fmt.Errorf("txbuilder: marshal payload for simulation cache key: %w", err)
	}
	key := sha256.Sum256(msgBytes)

	b.simCache.mu.Lock()
	if cached, ok := b.simCache.entries[key]; ok {
		b.simCache.mu.Unlock()
		return cached, nil
	}
	b.simCache.mu.Unlock()

	resp, err := b.rpc.SimulateTransaction(ctx, tx)
	if err != nil {
		return SimulationOutcome{}, chainerr.NewRpcError(0, err.Error(), err)
	}

	outcome := SimulationOutcome{Logs: resp.Value.Logs}
	if resp.Value.UnitsConsumed != nil {
		outcome.UnitsConsumed = resp.Value.UnitsConsumed
	}
	if resp.Value.Err != nil {
		outcome.Err = fmt.Errorf("simulation error: %v", resp.Value.Err)
	} else {
		outcome.OK = true
	}

	b.simCache.mu.Lock()
	b.simCache.entries[key] = outcome
	b.simCache.mu.Unlock()

	return outcome, nil
}

// BuildSigned finalizes the transaction: injects compute-budget
// instructions, fetches a blockhash if one was never pinned, compresses
// lookup tables, signs with every required signer, and serializes.
func (b Builder) BuildSigned(ctx context.Context) ([]byte, solana.Signature, error) {
	tx, sig, err := b.buildSignedTransaction(ctx)
	if err != nil {
		return nil, solana.Signature{}, err
	}
	wire, err := tx.MarshalBinary()
	if err != nil {
		return nil, solana.Signature{}, fmt.Errorf("txbuilder: marshal signed transaction: %w", err)
	}
	return wire, sig, nil
}

// SubmissionOutcome is what a Submitter reports for one Execute call.
type SubmissionOutcome struct {
	Confirmed   bool
	Signature   solana.Signature
	RoundsCount int
}

// Submitter is implemented by the submission engine. The builder only
// needs to hand off signed wire bytes, the transaction's own signature, and
// the blockhash lifetime bound; it never depends on the engine's internals.
type Submitter interface {
	Execute(ctx context.Context, wireBytes []byte, signature solana.Signature, lastValidBlockHeight uint64) (SubmissionOutcome, error)
}

// Execute builds and signs the transaction, then delegates to the submission
// engine.
func (b Builder) Execute(ctx context.Context, submitter Submitter) (SubmissionOutcome, error) {
	blockhash, lastValid, err := b.resolveBlockhash(ctx)
	if err != nil {
		return SubmissionOutcome{}, err
	}
	b = b.WithBlockhashLifetime(blockhash, lastValid)

	wire, sig, err := b.BuildSigned(ctx)
	if err != nil {
		return SubmissionOutcome{}, err
	}
	return submitter.Execute(ctx, wire, sig, lastValid)
}

func (b Builder) buildSignedTransaction(ctx context.Context) (*solana.Transaction, solana.Signature, error) {
	blockhash, lastValid, err := b.resolveBlockhash(ctx)
	if err != nil {
		return nil, solana.Signature{}, err
	}

	acceptedTables := b.compressLookupTables(ctx)

	unitLimit, unitPrice, err := b.resolveComputeBudget(ctx, blockhash, acceptedTables)
	if err != nil {
		return nil, solana.Signature{}, err
	}

	budgetInstructions := feeestimator.BuildComputeBudgetInstructions(unitLimit, unitPrice)
	allInstructions := append(append([]solana.Instruction(nil), budgetInstructions...), b.instructions...)

	withBudget := b
	withBudget.instructions = allInstructions

	tx, err := withBudget.assemble(ctx, blockhash, acceptedTables)
	if err != nil {
		return nil, solana.Signature{}, err
	}
	tx.Message.RecentBlockhash = blockhash
	_ = lastValid

	wire, err := tx.MarshalBinary()
	if err != nil {
		return nil, solana.Signature{}, fmt.Errorf("txbuilder: marshal unsigned transaction: %w", err)
	}
	if len(wire) > WireSizeLimit {
		return nil, solana.Signature{}, chainerr.NewTransactionTooLargeError(len(wire), WireSizeLimit)
	}

	if err := b.sign(ctx, tx); err != nil {
		return nil, solana.Signature{}, err
	}

	sig := solana.Signature{}
	if len(tx.Signatures) > 0 {
		sig = tx.Signatures[0]
	}

	return tx, sig, nil
}

func (b Builder) assemble(ctx context.Context, blockhash solana.Hash, tables []solana.PublicKey) (*solana.Transaction, error) {
	opts := []solana.TransactionOption{solana.TransactionPayer(b.feePayer)}
	if len(tables) > 0 {
		addrTables, err := b.resolveTableContents(ctx, tables)
		if err != nil {
			return nil, err
		}
		if len(addrTables) > 0 {
			opts = append(opts, solana.TransactionAddressTables(addrTables))
		}
	}

	tx, err := solana.NewTransaction(b.instructions, blockhash, opts...)
	if err != nil {
		return nil, chainerr.NewCompilationError("", "assemble transaction", err)
	}
	return tx, nil
}

func (b Builder) resolveBlockhash(ctx context.Context) (solana.Hash, uint64, error) {
	if b.blockhashSet {
		return b.blockhash, b.lastValidBlockHeight, nil
	}
	result, err := b.rpc.GetLatestBlockhash(ctx)
	if err != nil {
		return solana.Hash{}, 0, chainerr.NewRpcError(0, err.Error(), err)
	}
	return result.Value.Blockhash, result.Value.LastValidBlockHeight, nil
}

// resolveComputeBudget picks the unit-limit and unit-price for this build.
// When no fixed unit limit was pinned, it runs a throwaway simulation of the
// instructions without any compute-budget instructions purely to read back
// consumption.
func (b Builder) resolveComputeBudget(ctx context.Context, blockhash solana.Hash, tables []solana.PublicKey) (uint32, uint64, error) {
	price := b.priorityFee
	if price.Percentile != nil && len(price.RecentFees) == 0 {
		fees, err := b.rpc.GetRecentPrioritizationFees(ctx, []solana.PublicKey{b.feePayer})
		if err == nil {
			price.RecentFees = fees
		}
	}
	unitPrice := feeestimator.ResolveUnitPrice(price)

	if b.fixedComputeUnits != nil {
		return feeestimator.ResolveUnitLimit(b.fixedComputeUnits, nil), unitPrice, nil
	}

	probe := b
	probe.instructions = append([]solana.Instruction(nil), b.instructions...)
	tx, err := probe.assemble(ctx, blockhash, tables)
	if err != nil {
		return 0, 0, err
	}

	outcome, err := b.simulateCached(ctx, tx)
	var consumed *uint32
	if err == nil && outcome.UnitsConsumed != nil {
		v := uint32(*outcome.UnitsConsumed)
		consumed = &v
	}
	return feeestimator.ResolveUnitLimit(nil, consumed), unitPrice, nil
}

// compressLookupTables filters the candidate ALT addresses down to those
// worth including: net byte savings must exceed the per-table overhead.
// Tables whose fetch fails are dropped with a warning, not treated as fatal.
func (b Builder) compressLookupTables(ctx context.Context) []solana.PublicKey {
	var accepted []solana.PublicKey
	for _, table := range b.lookupTables {
		addrs, err := b.fetchLookupTableAddresses(ctx, table)
		if err != nil {
			log.Warn().Err(err).Str("table", table.String()).Msg("dropping unreachable lookup table")
			continue
		}

		referenced := b.countReferencedKeys(addrs)
		if referenced == 0 {
			continue
		}
		savings := referenced * (32 - 1)
		if savings > lookupTableOverheadBytes {
			accepted = append(accepted, table)
		}
	}
	return accepted
}

func (b Builder) countReferencedKeys(tableAddrs []solana.PublicKey) int {
	referenced := 0
	inTable := make(map[solana.PublicKey]bool, len(tableAddrs))
	for _, a := range tableAddrs {
		inTable[a] = true
	}
	seen := map[solana.PublicKey]bool{}
	for _, ix := range b.instructions {
		for _, acct := range ix.Accounts() {
			if seen[acct.PublicKey] {
				continue
			}
			seen[acct.PublicKey] = true
			if inTable[acct.PublicKey] {
				referenced++
			}
		}
	}
	return referenced
}

func (b Builder) sign(ctx context.Context, tx *solana.Transaction) error {
	required := b.requiredSigners()

	missing := b.signers.Missing(required)
	if len(missing) > 0 {
		return chainerr.NewSignerMissingError(missing[0].String())
	}

	msgBytes, err := tx.Message.MarshalBinary()
	if err != nil {
		return fmt.Errorf("txbuilder: marshal signing payload: %w", err)
	}

	index := make(map[solana.PublicKey]int, len(tx.Message.AccountKeys))
	for i, k := range tx.Message.AccountKeys {
		index[k] = i
	}

	// Fee-payer signs first to stabilize signature ordering.
	ordered := append([]solana.PublicKey{b.feePayer}, excluding(required, b.feePayer)...)
	for _, addr := range ordered {
		sg, ok := b.signers.Lookup(addr)
		if !ok {
			continue
		}
		sig, err := sg.Sign(ctx, msgBytes)
		if err != nil {
			return fmt.Errorf("txbuilder: sign with %s: %w", addr, err)
		}
		if idx, ok := index[addr]; ok && idx < len(tx.Signatures) {
			tx.Signatures[idx] = sig
		}
	}

	return nil
}

// requiredSigners collects every signer account referenced by the
// instructions, plus the fee payer, in first-seen order.
func (b Builder) requiredSigners() []solana.PublicKey {
	seen := map[solana.PublicKey]bool{b.feePayer: true}
	required := []solana.PublicKey{b.feePayer}
	for _, ix := range b.instructions {
		for _, acct := range ix.Accounts() {
			if acct.IsSigner && !seen[acct.PublicKey] {
				seen[acct.PublicKey] = true
				required = append(required, acct.PublicKey)
			}
		}
	}
	return required
}

func excluding(addrs []solana.PublicKey, exclude solana.PublicKey) []solana.PublicKey {
	out := make([]solana.PublicKey, 0, len(addrs))
	for _, a := range addrs {
		if !a.Equals(exclude) {
			out = append(out, a)
		}
	}
	return out
}
