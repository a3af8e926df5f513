package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/sawpanic/coinscope/internal/domain/indicators"
	"github.com/sawpanic/coinscope/internal/domain/market"
)

// Binance is the reference exchange: listings, tickers, candles and trades
type Binance struct {
	client *Client
}

func NewBinance(client *Client) *Binance {
	return &Binance{client: client}
}

type binanceExchangeInfo struct {
	Symbols []struct {
		Symbol     string `json:"symbol"`
		Status     string `json:"status"`
		BaseAsset  string `json:"baseAsset"`
		QuoteAsset string `json:"quoteAsset"`
	} `json:"symbols"`
}

type binanceTicker struct {
	Symbol    string  `json:"symbol"`
	HighPrice float64 `json:"highPrice,string"`
	LowPrice  float64 `json:"lowPrice,string"`
	Count     int64   `json:"count"`
}

type binanceAggTrade struct {
	Price        float64 `json:"p,string"`
	Qty          float64 `json:"q,string"`
	Time         int64   `json:"T"`
	BuyerIsMaker bool    `json:"m"`
}

// ExchangeInfo maps base asset to trading pair for every pair quoted in
// quote that is currently trading.
func (b *Binance) ExchangeInfo(ctx context.Context, quote string) (map[string]string, error) {
	var info binanceExchangeInfo
	if err := b.client.getJSON(ctx, "/api/v3/exchangeInfo", nil, &info); err != nil {
		return nil, err
	}
	pairs := make(map[string]string, len(info.Symbols))
	for _, s := range info.Symbols {
		if s.Status != "TRADING" || s.QuoteAsset != quote {
			continue
		}
		pairs[s.BaseAsset] = s.Symbol
	}
	return pairs, nil
}

// Ticker24h returns the rolling 24h statistics of a listed pair
func (b *Binance) Ticker24h(ctx context.Context, pair string) (*market.ExchangeListing, error) {
	params := url.Values{}
	params.Set("symbol", pair)

	var t binanceTicker
	if err := b.client.getJSON(ctx, "/api/v3/ticker/24hr", params, &t); err != nil {
		return nil, err
	}
	return &market.ExchangeListing{
		IsListed:      true,
		Pair:          pair,
		TradeCount24h: t.Count,
		High24h:       t.HighPrice,
		Low24h:        t.LowPrice,
	}, nil
}

// Klines returns candles oldest first
func (b *Binance) Klines(ctx context.Context, pair, interval string, limit int) ([]market.Kline, error) {
	params := url.Values{}
	params.Set("symbol", pair)
	params.Set("interval", interval)
	params.Set("limit", strconv.Itoa(limit))

	var rows [][]json.RawMessage
	if err := b.client.getJSON(ctx, "/api/v3/klines", params, &rows); err != nil {
		return nil, err
	}

	klines := make([]market.Kline, 0, len(rows))
	for i, row := range rows {
		if len(row) < 6 {
			return nil, fmt.Errorf("kline %d: %d fields", i, len(row))
		}
		var openMs int64
		if err := json.Unmarshal(row[0], &openMs); err != nil {
			return nil, fmt.Errorf("kline %d open time: %w", i, err)
		}
		var vals [5]float64
		for j := range vals {
			v, err := rawFloat(row[j+1])
			if err != nil {
				return nil, fmt.Errorf("kline %d field %d: %w", i, j+1, err)
			}
			vals[j] = v
		}
		klines = append(klines, market.Kline{
			OpenTime: time.UnixMilli(openMs).UTC(),
			Open:     vals[0],
			High:     vals[1],
			Low:      vals[2],
			Close:    vals[3],
			Volume:   vals[4],
		})
	}
	return klines, nil
}

// AggTrades returns the most recent aggregated trades, oldest first
func (b *Binance) AggTrades(ctx context.Context, pair string, limit int) ([]indicators.Trade, error) {
	params := url.Values{}
	params.Set("symbol", pair)
	params.Set("limit", strconv.Itoa(limit))

	var rows []binanceAggTrade
	if err := b.client.getJSON(ctx, "/api/v3/aggTrades", params, &rows); err != nil {
		return nil, err
	}

	trades := make([]indicators.Trade, len(rows))
	for i, r := range rows {
		trades[i] = indicators.Trade{
			Price: r.Price,
			Qty:   r.Qty,
			IsBuy: !r.BuyerIsMaker, // maker buyer means the taker sold
			Time:  time.UnixMilli(r.Time).UTC(),
		}
	}
	return trades, nil
}

// rawFloat accepts both quoted and bare JSON numbers
func rawFloat(raw json.RawMessage) (float64, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strconv.ParseFloat(s, 64)
	}
	var f float64
	err := json.Unmarshal(raw, &f)
	return f, err
}
