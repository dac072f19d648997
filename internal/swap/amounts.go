package swap

import (
	"math"

	"github.com/dexnode/swapcore/internal/config"
)

// computeAmounts applies the amount formulas, using each currency's own
// configured subunit factor rather than one chain-wide constant. quantity
// is in the supported pair's base currency and price is quote per base, so
// the side receiving the base currency gets quantity and the other side
// gets quantity * price, each in its own currency's subunits.
func computeAmounts(quantity, price float64, takerCurrency, makerCurrency config.Currency) (takerAmount, makerAmount int64) {
	takerChain := config.MustGetChain(takerCurrency)
	makerChain := config.MustGetChain(makerCurrency)

	base, _, _ := splitPairID(config.SupportedPair)
	if takerCurrency == base {
		takerAmount = roundInt64(quantity * takerChain.SubunitFactor)
		makerAmount = roundInt64(quantity * price * makerChain.SubunitFactor)
	} else {
		takerAmount = roundInt64(quantity * price * takerChain.SubunitFactor)
		makerAmount = roundInt64(quantity * makerChain.SubunitFactor)
	}
	return takerAmount, makerAmount
}

func roundInt64(v float64) int64 {
	return int64(math.Round(v))
}

// scaleMakerCLTVDelta scales the taker-leg's observed end-to-end route
// timelock into the maker chain's own blocks, then adds the maker chain's
// local safety margin (its own final-hop delta). f is the ratio of the two
// chains' configured final-hop deltas, used as a proxy for relative
// block-time speed: a policy choice, not a law of physics. The deltas come
// from the two config.Chain values passed in rather than inlined magic
// numbers; config.Chain.BlockTimeSeconds is not consulted.
func scaleMakerCLTVDelta(btcChain, ltcChain config.Chain, routeCLTVDelta uint32, makerCurrency config.Currency) uint32 {
	f := float64(ltcChain.CLTVDelta) / float64(btcChain.CLTVDelta)

	switch makerCurrency {
	case config.BTC:
		return btcChain.CLTVDelta + uint32(math.Round(float64(routeCLTVDelta)/f))
	case config.LTC:
		return ltcChain.CLTVDelta + uint32(math.Round(float64(routeCLTVDelta)*f))
	default:
		panic("swap: scaleMakerCLTVDelta called with unsupported maker currency")
	}
}
