package oracle

import (
	"math/bits"

	"ArenaVault/internal/ledger"
	"ArenaVault/internal/logger"
)

// Scale is the fixed-point scale for prices. A price is the
// common-denomination value of ONE BASE UNIT of an asset, scaled by
// 1e9. Amounts everywhere in the ledger are raw base units, so a
// basket's total value comes out in base units of the common
// denomination, directly comparable to the exit floor.
const Scale = 1_000_000_000

// Source quotes the common-denomination unit price of an asset.
// A source that cannot quote the asset returns an error; the adapter
// falls through to the next source in priority order.
type Source interface {
	// Name identifies the source in logs.
	Name() string
	// Quote returns the unit price of the asset at Scale.
	Quote(asset ledger.AssetID) (uint64, error)
}

// Adapter values reward baskets by querying an ordered chain of price
// sources. The first source returning a positive quote wins.
type Adapter struct {
	sources []Source
}

// NewAdapter creates an adapter over the given source chain. Order is
// priority order.
func NewAdapter(sources ...Source) *Adapter {
	return &Adapter{sources: sources}
}

// TotalValue returns the common-denomination value of the basket.
// If any asset cannot be priced the whole call fails; partial totals
// are never returned.
func (a *Adapter) TotalValue(assets []ledger.AssetID, amounts []uint64) (uint64, error) {
	if len(assets) != len(amounts) {
		return 0, ledger.ErrLengthMismatch
	}

	var total uint64

	for i, asset := range assets {
		price, err := a.quote(asset)
		if err != nil {
			return 0, err
		}

		value, err := scaledMul(amounts[i], price)
		if err != nil {
			return 0, err
		}

		total, err = safeAdd(total, value)
		if err != nil {
			return 0, err
		}
	}

	return total, nil
}

// quote tries each source in priority order and takes the first
// positive price.
func (a *Adapter) quote(asset ledger.AssetID) (uint64, error) {
	for _, src := range a.sources {
		price, err := src.Quote(asset)
		if err != nil {
			logger.Debug("price source miss", "source", src.Name(), "asset", asset, "error", err)
			continue
		}

		if price > 0 {
			return price, nil
		}
	}

	return 0, &ledger.Error{
		Code: ledger.CodePriceUnavailable,
		Msg:  "no configured source quoted asset " + asset.String(),
	}
}

// scaledMul returns amount * price / Scale using a 128-bit
// intermediate, failing when the result itself overflows uint64.
func scaledMul(amount, price uint64) (uint64, error) {
	hi, lo := bits.Mul64(amount, price)
	if hi >= Scale {
		return 0, &ledger.Error{Code: ledger.CodePriceUnavailable, Msg: "basket value overflows"}
	}

	quo, _ := bits.Div64(hi, lo, Scale)

	return quo, nil
}

// safeAdd returns a + b, failing on overflow instead of wrapping.
func safeAdd(a, b uint64) (uint64, error) {
	sum := a + b
	if sum < a {
		return 0, &ledger.Error{Code: ledger.CodePriceUnavailable, Msg: "basket value overflows"}
	}

	return sum, nil
}
