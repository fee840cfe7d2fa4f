package pipeline

import (
	"context"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arcsign/solpipe/signer"
	"github.com/arcsign/solpipe/txbuilder"
)

type stubSigner struct {
	addr solana.PublicKey
}

func (s stubSigner) Address() solana.PublicKey { return s.addr }
func (s stubSigner) Sign(ctx context.Context, message []byte) (solana.Signature, error) {
	return solana.Signature{}, nil
}

func TestDispatchRejectsUnknownStrategy(t *testing.T) {
	payer := solana.NewWallet().PublicKey()
	set := signer.NewSet(payer, stubSigner{addr: payer})
	builder := txbuilder.New(nil, set)

	_, err := dispatch(context.Background(), "quantum", builder, Params{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown strategy")
}

func TestUltraStrategyRequiresTPUClient(t *testing.T) {
	payer := solana.NewWallet().PublicKey()
	set := signer.NewSet(payer, stubSigner{addr: payer})
	builder := txbuilder.New(nil, set)

	_, err := runTPUAndRPC(context.Background(), builder, Params{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "TPU client")
}

func TestEconomicalStrategyRequiresJitoClient(t *testing.T) {
	payer := solana.NewWallet().PublicKey()
	set := signer.NewSet(payer, stubSigner{addr: payer})
	builder := txbuilder.New(nil, set)

	_, err := runJitoOnly(context.Background(), builder, Params{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Jito client")
}

func TestFastStrategyRequiresJitoClient(t *testing.T) {
	payer := solana.NewWallet().PublicKey()
	set := signer.NewSet(payer, stubSigner{addr: payer})
	builder := txbuilder.New(nil, set)

	_, err := runJitoRacingRPC(context.Background(), builder, Params{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Jito client")
}
