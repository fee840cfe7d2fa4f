package txbuilder

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// lookupTableMetaSize is the fixed header size preceding the address list in
// an on-chain address-lookup-table account (discriminator, deactivation
// slot, last-extended slot/index, optional authority, and padding).
const lookupTableMetaSize = 56

// fetchLookupTableAddresses reads and decodes the address list stored in an
// on-chain lookup table account.
func (b Builder) fetchLookupTableAddresses(ctx context.Context, table solana.PublicKey) ([]solana.PublicKey, error) {
	info, err := b.rpc.GetAddressLookupTable(ctx, table)
	if err != nil {
		return nil, fmt.Errorf("txbuilder: fetch lookup table %s: %w", table, err)
	}
	if info == nil || info.Value == nil {
		return nil, fmt.Errorf("txbuilder: lookup table %s not found", table)
	}

	raw := info.Value.Data.GetBinary()
	if len(raw) <= lookupTableMetaSize {
		return nil, nil
	}

	body := raw[lookupTableMetaSize:]
	count := len(body) / 32
	addrs := make([]solana.PublicKey, 0, count)
	for i := 0; i < count; i++ {
		var pk solana.PublicKey
		copy(pk[:], body[i*32:(i+1)*32])
		addrs = append(addrs, pk)
	}
	return addrs, nil
}

// resolveTableContents builds the address map solana.TransactionAddressTables
// expects: each table's full entry list, keyed by the table account itself.
// The message compiler resolves writable/readonly per key from instruction
// usage, so no split is needed here.
func (b Builder) resolveTableContents(ctx context.Context, tables []solana.PublicKey) (map[solana.PublicKey]solana.PublicKeySlice, error) {
	out := make(map[solana.PublicKey]solana.PublicKeySlice, len(tables))
	for _, table := range tables {
		addrs, err := b.fetchLookupTableAddresses(ctx, table)
		if err != nil {
			continue
		}
		out[table] = solana.PublicKeySlice(addrs)
	}
	return out, nil
}
