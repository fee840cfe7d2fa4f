package txbuilder

import (
	"context"
	"crypto/sha256"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arcsign/solpipe/signer"
)

type memSigner struct {
	addr solana.PublicKey
	priv solana.PrivateKey
}

func newMemSigner() memSigner {
	wallet := solana.NewWallet()
	return memSigner{addr: wallet.PublicKey(), priv: wallet.PrivateKey}
}

func (s memSigner) Address() solana.PublicKey { return s.addr }

func (s memSigner) Sign(ctx context.Context, message []byte) (solana.Signature, error) {
	return s.priv.Sign(message)
}

func testBuilder(t *testing.T) (Builder, memSigner) {
	t.Helper()
	payer := newMemSigner()
	set := signer.NewSet(payer.Address(), payer)
	b := New(nil, set)
	return b, payer
}

func TestWithFeePayerOverridesDefault(t *testing.T) {
	b, _ := testBuilder(t)
	other := solana.NewWallet().PublicKey()
	b2 := b.WithFeePayer(other)

	assert.True(t, b2.feePayer.Equals(other))
	assert.False(t, b.feePayer.Equals(other), "original builder must stay unchanged")
}

func TestAddInstructionIsImmutable(t *testing.T) {
	b, payer := testBuilder(t)
	dest := solana.NewWallet().PublicKey()
	ix := system.NewTransferInstruction(1000, payer.Address(), dest).Build()

	b2 := b.AddInstruction(ix)

	assert.Len(t, b.instructions, 0)
	require.Len(t, b2.instructions, 1)
}

func TestGetSizeInfoReportsRemainingBudget(t *testing.T) {
	b, payer := testBuilder(t)
	dest := solana.NewWallet().PublicKey()
	ix := system.NewTransferInstruction(1000, payer.Address(), dest).Build()

	b = b.AddInstruction(ix).WithBlockhashLifetime(solana.Hash{}, 1000)

	info, err := b.GetSizeInfo(context.Background())
	require.NoError(t, err)

	assert.Greater(t, info.Size, 0)
	assert.Equal(t, WireSizeLimit, info.Limit)
	assert.True(t, info.CanFitMore)
	assert.Equal(t, WireSizeLimit-info.Size, info.Remaining)
}

func TestRequiredSignersIncludesFeePayerFirst(t *testing.T) {
	b, payer := testBuilder(t)
	other := newMemSigner()
	dest := solana.NewWallet().PublicKey()

	ix := system.NewTransferInstruction(1000, other.Address(), dest).Build()
	b = b.AddInstruction(ix)

	required := b.requiredSigners()
	require.NotEmpty(t, required)
	assert.True(t, required[0].Equals(payer.Address()))
	assert.Contains(t, required, other.Address())
}

func TestSignFailsWhenASignerIsMissing(t *testing.T) {
	b, payer := testBuilder(t)
	strangerDest := solana.NewWallet().PublicKey()
	stranger := newMemSigner()

	ix := system.NewTransferInstruction(1000, stranger.Address(), strangerDest).Build()
	b = b.AddInstruction(ix).WithBlockhashLifetime(solana.Hash{}, 1000)

	tx, err := solana.NewTransaction(
		append([]solana.Instruction{ix}),
		solana.Hash{},
		solana.TransactionPayer(payer.Address()),
	)
	require.NoError(t, err)

	err = b.sign(context.Background(), tx)
	require.Error(t, err)
}

func TestCountReferencedKeysCountsDistinctAccountsInTable(t *testing.T) {
	b, payer := testBuilder(t)
	dest := solana.NewWallet().PublicKey()
	ix := system.NewTransferInstruction(1000, payer.Address(), dest).Build()
	b = b.AddInstruction(ix)

	count := b.countReferencedKeys([]solana.PublicKey{dest})
	assert.Equal(t, 1, count)

	countNone := b.countReferencedKeys([]solana.PublicKey{solana.NewWallet().PublicKey()})
	assert.Equal(t, 0, countNone)
}

func TestSimulateCachedReturnsCachedOutcomeWithoutCallingRPC(t *testing.T) {
	b, payer := testBuilder(t)
	dest := solana.NewWallet().PublicKey()
	ix := system.NewTransferInstruction(1000, payer.Address(), dest).Build()
	b = b.AddInstruction(ix).WithBlockhashLifetime(solana.Hash{}, 1000)

	tx, err := solana.NewTransaction(
		[]solana.Instruction{ix},
		solana.Hash{},
		solana.TransactionPayer(payer.Address()),
	)
	require.NoError(t, err)

	msgBytes, err := tx.Message.MarshalBinary()
	require.NoError(t, err)
	key := sha256.Sum256(msgBytes)

	want := SimulationOutcome{OK: true, UnitsConsumed: ptrUint64(1234)}
	b.simCache.entries[key] = want

	// b.rpc is nil; a cache miss here would panic on the nil RPC client, so a
	// successful, non-panicking call that returns the seeded outcome proves
	// the cache was consulted before touching the RPC client.
	got, err := b.simulateCached(context.Background(), tx)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func ptrUint64(v uint64) *uint64 { return &v }
