package providers

import (
	"context"
	"math"
	"net/url"
	"strings"

	"github.com/sawpanic/coinscope/internal/domain/market"
)

// DexScreener aggregates a token's pools across decentralized exchanges
type DexScreener struct {
	client *Client
}

func NewDexScreener(client *Client) *DexScreener {
	return &DexScreener{client: client}
}

type dexPair struct {
	ChainID   string `json:"chainId"`
	DexID     string `json:"dexId"`
	BaseToken struct {
		Symbol string `json:"symbol"`
	} `json:"baseToken"`
	Liquidity struct {
		USD float64 `json:"usd"`
	} `json:"liquidity"`
	Volume struct {
		H24 float64 `json:"h24"`
	} `json:"volume"`
	Txns struct {
		H24 struct {
			Buys  int64 `json:"buys"`
			Sells int64 `json:"sells"`
		} `json:"h24"`
	} `json:"txns"`
}

type dexSearch struct {
	Pairs []dexPair `json:"pairs"`
}

// Token returns DEX metrics for pools whose base token is symbol.
// ErrNotFound means no pool matched.
func (d *DexScreener) Token(ctx context.Context, symbol string) (*market.DEXMetrics, error) {
	params := url.Values{}
	params.Set("q", symbol)

	var resp dexSearch
	if err := d.client.getJSON(ctx, "/latest/dex/search", params, &resp); err != nil {
		return nil, err
	}

	var pools []dexPair
	for _, p := range resp.Pairs {
		if strings.EqualFold(p.BaseToken.Symbol, symbol) {
			pools = append(pools, p)
		}
	}
	if len(pools) == 0 {
		return nil, ErrNotFound
	}
	return aggregateDEX(pools), nil
}

func aggregateDEX(pools []dexPair) *market.DEXMetrics {
	var liquidity, volume float64
	var buys, sells int64
	dexes := make(map[string]struct{})
	for _, p := range pools {
		liquidity += p.Liquidity.USD
		volume += p.Volume.H24
		buys += p.Txns.H24.Buys
		sells += p.Txns.H24.Sells
		dexes[p.ChainID+"/"+p.DexID] = struct{}{}
	}

	m := &market.DEXMetrics{
		HasData:            true,
		LiquidityScore:     liquidityScore(liquidity),
		VolumeQualityScore: volumeQualityScore(liquidity, volume),
		BuyPressurePct:     50,
		DEXCount:           len(dexes),
		TxCount24h:         buys + sells,
	}
	if total := buys + sells; total > 0 {
		m.BuyPressurePct = float64(buys) / float64(total) * 100
	}
	return m
}

// liquidityScore maps pooled USD liquidity onto 0..100 logarithmically,
// $1k scoring 0 and $10M or more scoring 100.
func liquidityScore(usd float64) float64 {
	if usd <= 1_000 {
		return 0
	}
	return math.Min((math.Log10(usd)-3)/4, 1) * 100
}

// volumeQualityScore rates daily turnover (volume/liquidity). Healthy pools
// turn over between half and three times their depth; far above that
// suggests wash trading.
func volumeQualityScore(liquidity, volume float64) float64 {
	if liquidity <= 0 || volume <= 0 {
		return 0
	}
	turnover := volume / liquidity
	switch {
	case turnover > 10:
		return 20
	case turnover > 3:
		return 60
	case turnover >= 0.5:
		return 90
	case turnover >= 0.2:
		return 70
	case turnover >= 0.05:
		return 40
	default:
		return 10
	}
}
