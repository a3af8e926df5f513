package providers

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sawpanic/coinscope/internal/domain/market"
)

// CoinGecko serves market-cap rankings and global market data
type CoinGecko struct {
	client *Client
}

func NewCoinGecko(client *Client) *CoinGecko {
	return &CoinGecko{client: client}
}

const (
	coinGeckoPageSize = 250
	developerDataTTL  = 12 * time.Hour
)

type coinGeckoMarket struct {
	ID             string  `json:"id"`
	Symbol         string  `json:"symbol"`
	Name           string  `json:"name"`
	MarketCapRank  int     `json:"market_cap_rank"`
	CurrentPrice   float64 `json:"current_price"`
	MarketCap      float64 `json:"market_cap"`
	TotalVolume    float64 `json:"total_volume"`
	PriceChange24h float64 `json:"price_change_percentage_24h_in_currency"`
	PriceChange7d  float64 `json:"price_change_percentage_7d_in_currency"`
}

type coinGeckoCoin struct {
	DeveloperData *struct {
		Forks                   int `json:"forks"`
		Stars                   int `json:"stars"`
		PullRequestContributors int `json:"pull_request_contributors"`
		CommitCount4Weeks       int `json:"commit_count_4_weeks"`
	} `json:"developer_data"`
}

// GlobalData is the slice of /global the scan needs
type GlobalData struct {
	BTCDominance       float64 `json:"btc_dominance"`
	MarketCapChange24h float64 `json:"market_cap_change_24h"`
}

type coinGeckoGlobal struct {
	Data struct {
		MarketCapPercentage map[string]float64 `json:"market_cap_percentage"`
		MarketCapChange24h  float64            `json:"market_cap_change_percentage_24h_usd"`
	} `json:"data"`
}

// Markets returns the top n coins by market cap as base snapshots. Coins
// without a rank or a price are skipped.
func (g *CoinGecko) Markets(ctx context.Context, n int) ([]market.CoinSnapshot, error) {
	if n <= 0 {
		return nil, nil
	}

	out := make([]market.CoinSnapshot, 0, n)
	for page := 1; len(out) < n; page++ {
		params := url.Values{}
		params.Set("vs_currency", "usd")
		params.Set("order", "market_cap_desc")
		params.Set("per_page", strconv.Itoa(coinGeckoPageSize))
		params.Set("page", strconv.Itoa(page))
		params.Set("price_change_percentage", "24h,7d")
		params.Set("sparkline", "false")

		var rows []coinGeckoMarket
		if err := g.client.getJSON(ctx, "/coins/markets", params, &rows); err != nil {
			return nil, fmt.Errorf("markets page %d: %w", page, err)
		}
		for _, r := range rows {
			if r.MarketCapRank <= 0 || r.CurrentPrice <= 0 {
				continue
			}
			out = append(out, r.snapshot())
			if len(out) == n {
				break
			}
		}
		if len(rows) < coinGeckoPageSize {
			break
		}
	}
	return out, nil
}

func (r coinGeckoMarket) snapshot() market.CoinSnapshot {
	var vm float64
	if r.MarketCap > 0 {
		vm = r.TotalVolume / r.MarketCap
	}
	return market.CoinSnapshot{
		ID:             r.ID,
		Symbol:         strings.ToUpper(r.Symbol),
		Name:           r.Name,
		Rank:           r.MarketCapRank,
		Price:          r.CurrentPrice,
		PriceChange24h: r.PriceChange24h,
		PriceChange7d:  r.PriceChange7d,
		VolumeToMcap:   vm,
		MarketCap:      r.MarketCap,
		Sector:         market.SectorUnknown,
	}
}

// Global returns BTC dominance and the 24h total market-cap change
func (g *CoinGecko) Global(ctx context.Context) (GlobalData, error) {
	var resp coinGeckoGlobal
	if err := g.client.getJSON(ctx, "/global", nil, &resp); err != nil {
		return GlobalData{}, err
	}
	btc, ok := resp.Data.MarketCapPercentage["btc"]
	if !ok {
		return GlobalData{}, fmt.Errorf("global: btc dominance missing")
	}
	return GlobalData{
		BTCDominance:       btc,
		MarketCapChange24h: resp.Data.MarketCapChange24h,
	}, nil
}

// Developer returns repository statistics for a coin id. Coins without a
// tracked repository return ErrNotFound.
func (g *CoinGecko) Developer(ctx context.Context, id string) (*market.DeveloperActivity, error) {
	if id == "" {
		return nil, fmt.Errorf("developer data: %w", ErrNotFound)
	}
	params := url.Values{}
	params.Set("localization", "false")
	params.Set("tickers", "false")
	params.Set("market_data", "false")
	params.Set("community_data", "false")
	params.Set("developer_data", "true")
	params.Set("sparkline", "false")

	var resp coinGeckoCoin
	if err := g.client.getJSONTTL(ctx, "/coins/"+url.PathEscape(id), params, &resp, developerDataTTL); err != nil {
		return nil, err
	}
	d := resp.DeveloperData
	if d == nil || d.Forks+d.Stars+d.PullRequestContributors+d.CommitCount4Weeks == 0 {
		return nil, fmt.Errorf("developer data for %s: %w", id, ErrNotFound)
	}
	return &market.DeveloperActivity{
		Commits4w:    d.CommitCount4Weeks,
		Contributors: d.PullRequestContributors,
		Stars:        d.Stars,
	}, nil
}
