package oracle

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"ArenaVault/internal/ledger"
)

// defaultVenueTimeout bounds a single quote request.
const defaultVenueTimeout = 5 * time.Second

// VenueSource quotes prices from an upstream HTTP price venue. Venue
// APIs are heterogeneous: not every asset is addressable the same way,
// so the source tries a fixed sequence of query shapes and takes the
// first positive answer. Exact-asset forms come first, generic fallback
// forms last.
type VenueSource struct {
	name     string
	baseURL  string
	symbols  map[ledger.AssetID]string // optional asset → venue symbol table
	decimals uint                      // venue price decimals, normalized to Scale
	client   *http.Client
}

// NewVenueSource creates a venue source. decimals is the venue's price
// decimal count; quotes are rescaled to the internal 1e9 fixed point
// explicitly, never assumed equal.
func NewVenueSource(name, baseURL string, symbols map[ledger.AssetID]string, decimals uint) *VenueSource {
	return &VenueSource{
		name:     name,
		baseURL:  baseURL,
		symbols:  symbols,
		decimals: decimals,
		client:   &http.Client{Timeout: defaultVenueTimeout},
	}
}

// Name implements Source.
func (v *VenueSource) Name() string {
	return v.name
}

// quoteResponse is the venue's JSON answer shape.
type quoteResponse struct {
	Price uint64 `json:"price"`
}

// Quote implements Source. Query shapes, in priority order:
//  1. /price/id/<hex asset id>
//  2. /price/symbol/<symbol>        (only when a symbol mapping exists)
//  3. /price?asset=<hex asset id>
func (v *VenueSource) Quote(asset ledger.AssetID) (uint64, error) {
	idHex := hex.EncodeToString(asset[:])

	urls := []string{
		v.baseURL + "/price/id/" + idHex,
	}

	if symbol, ok := v.symbols[asset]; ok {
		urls = append(urls, v.baseURL+"/price/symbol/"+symbol)
	}

	urls = append(urls, v.baseURL+"/price?asset="+idHex)

	var lastErr error

	for _, url := range urls {
		price, err := v.fetch(url)
		if err != nil {
			lastErr = err
			continue
		}

		if price > 0 {
			return v.normalize(price)
		}
	}

	if lastErr == nil {
		lastErr = fmt.Errorf("venue returned no positive quote")
	}

	return 0, fmt.Errorf("quote %s from %s:\n%w", asset, v.name, lastErr)
}

// fetch performs a GET request and decodes the JSON quote.
func (v *VenueSource) fetch(url string) (uint64, error) {
	resp, err := v.client.Get(url)
	if err != nil {
		return 0, fmt.Errorf("GET %s:\n%w", url, err)
	}
	defer func() { io.Copy(io.Discard, resp.Body); resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("GET %s: status %d", url, resp.StatusCode)
	}

	var q quoteResponse
	if err := json.NewDecoder(resp.Body).Decode(&q); err != nil {
		return 0, fmt.Errorf("decode quote from %s:\n%w", url, err)
	}

	return q.Price, nil
}

// normalize rescales a venue price to the internal fixed point.
func (v *VenueSource) normalize(price uint64) (uint64, error) {
	const internalDecimals = 9

	switch {
	case v.decimals == internalDecimals:
		return price, nil

	case v.decimals < internalDecimals:
		factor := pow10(internalDecimals - v.decimals)
		scaled := price * factor
		if scaled/factor != price {
			return 0, fmt.Errorf("scaled price overflows: %d * 10^%d", price, internalDecimals-v.decimals)
		}
		return scaled, nil

	default:
		return price / pow10(v.decimals-internalDecimals), nil
	}
}

// pow10 returns 10^n for small n.
func pow10(n uint) uint64 {
	result := uint64(1)
	for i := uint(0); i < n; i++ {
		result *= 10
	}

	return result
}

// StaticSource quotes from a fixed in-memory table. Used as the tail of
// a fallback chain and in tests.
type StaticSource struct {
	name   string
	prices map[ledger.AssetID]uint64
}

// NewStaticSource creates a static source with the given price table.
func NewStaticSource(name string, prices map[ledger.AssetID]uint64) *StaticSource {
	return &StaticSource{name: name, prices: prices}
}

// Name implements Source.
func (s *StaticSource) Name() string {
	return s.name
}

// Quote implements Source.
func (s *StaticSource) Quote(asset ledger.AssetID) (uint64, error) {
	price, ok := s.prices[asset]
	if !ok {
		return 0, fmt.Errorf("asset %s not in static table", asset)
	}

	return price, nil
}
