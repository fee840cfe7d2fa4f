package submission

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOnChainErrorPreservesRawValue(t *testing.T) {
	raw := map[string]interface{}{"InstructionError": []interface{}{0, "Custom"}}
	err := &onChainError{value: raw}

	assert.Equal(t, "transaction landed with an on-chain error", err.Error())
	assert.Equal(t, raw, err.Value())
}

func TestNewCorrelatorAllowsNilSubscriptionClient(t *testing.T) {
	c := NewCorrelator(nil, nil)
	assert.NotNil(t, c)
	assert.Nil(t, c.ws)
}
