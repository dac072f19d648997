package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetChain(t *testing.T) {
	btc, ok := GetChain(BTC)
	require.True(t, ok)
	assert.Equal(t, uint32(40), btc.CLTVDelta)
	assert.Equal(t, 1e8, btc.SubunitFactor)

	ltc, ok := GetChain(LTC)
	require.True(t, ok)
	assert.Equal(t, uint32(576), ltc.CLTVDelta)

	_, ok = GetChain(Currency("DOGE"))
	assert.False(t, ok)
}

func TestMustGetChainPanicsOnUnknown(t *testing.T) {
	assert.Panics(t, func() {
		MustGetChain(Currency("XMR"))
	})
}

func TestCurrencyValid(t *testing.T) {
	assert.True(t, BTC.Valid())
	assert.True(t, LTC.Valid())
	assert.False(t, Currency("ETH").Valid())
}

func TestPairSupported(t *testing.T) {
	assert.True(t, PairSupported("LTC/BTC"))
	assert.False(t, PairSupported("BTC/LTC"))
	assert.False(t, PairSupported("ETH/BTC"))
}

func TestListCurrencies(t *testing.T) {
	list := ListCurrencies()
	assert.Len(t, list, 2)
	assert.Contains(t, list, BTC)
	assert.Contains(t, list, LTC)
}
