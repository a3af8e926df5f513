package market

import "time"

// Sector is the catalog label attached to a coin
type Sector string

// SectorUnknown marks coins missing from the sector catalog
const SectorUnknown Sector = "Unknown"

// Known reports whether the sector came from the catalog
func (s Sector) Known() bool {
	return s != "" && s != SectorUnknown
}

// VolumeCharacter classifies who dominates traded volume
type VolumeCharacter string

const (
	CharacterWhale    VolumeCharacter = "WHALE_DOMINATED"
	CharacterRetail   VolumeCharacter = "RETAIL_DOMINATED"
	CharacterBalanced VolumeCharacter = "BALANCED"
)

// Kline is a single daily OHLCV candle
type Kline struct {
	OpenTime time.Time `json:"open_time"`
	Open     float64   `json:"open"`
	High     float64   `json:"high"`
	Low      float64   `json:"low"`
	Close    float64   `json:"close"`
	Volume   float64   `json:"volume"`
}

// ExchangeListing describes the coin on the reference exchange
type ExchangeListing struct {
	IsListed      bool    `json:"is_listed"`
	Pair          string  `json:"pair"`
	TradeCount24h int64   `json:"trade_count_24h"`
	High24h       float64 `json:"high_24h"`
	Low24h        float64 `json:"low_24h"`
}

// WhaleActivity summarises large trades over a recent trade window
type WhaleActivity struct {
	LargeBuys      int     `json:"large_buys"`
	LargeSells     int     `json:"large_sells"`
	BuyPressure    float64 `json:"buy_pressure"`     // 0..1 share of large-trade volume that bought
	PriceImpactPct float64 `json:"price_impact_pct"` // absolute % move across the window
}

// DEXMetrics is the aggregated decentralized-exchange view of a token
type DEXMetrics struct {
	HasData            bool    `json:"has_dex_data"`
	LiquidityScore     float64 `json:"liquidity_score"`
	VolumeQualityScore float64 `json:"volume_quality_score"`
	BuyPressurePct     float64 `json:"buy_pressure_pct"`
	DEXCount           int     `json:"dex_count"`
	TxCount24h         int64   `json:"tx_count_24h"`
}

// DeveloperActivity holds repository statistics
type DeveloperActivity struct {
	Commits4w    int `json:"commits_4w"`
	Contributors int `json:"contributors"`
	Stars        int `json:"stars"`
}

// ExchangeFlow is net token movement into exchanges, positive means inflow
type ExchangeFlow struct {
	NetFlow24hUSD float64 `json:"net_flow_24h_usd"`
	NetFlow7dUSD  float64 `json:"net_flow_7d_usd"`
}

// VolumeProfile is derived from an intraday volume-by-price histogram
type VolumeProfile struct {
	POC           float64 `json:"poc"`
	ValueAreaLow  float64 `json:"value_area_low"`
	ValueAreaHigh float64 `json:"value_area_high"`
}

// SmartVolume is trade volume bucketed by trade size
type SmartVolume struct {
	WhaleVolume   float64         `json:"whale_volume"`
	MidVolume     float64         `json:"mid_volume"`
	RetailVolume  float64         `json:"retail_volume"`
	WhaleBuyRatio float64         `json:"whale_buy_ratio"`
	Character     VolumeCharacter `json:"character"`
}

// CoinSnapshot is the immutable per-scan input for one coin. Optional
// datasets are nil when the collaborator had nothing for the coin.
type CoinSnapshot struct {
	ID             string  `json:"id,omitempty"` // market data provider id
	Symbol         string  `json:"symbol"`
	Name           string  `json:"name"`
	Rank           int     `json:"rank"`
	Price          float64 `json:"price"`
	PriceChange24h float64 `json:"price_change_24h"`
	PriceChange7d  float64 `json:"price_change_7d"`
	VolumeToMcap   float64 `json:"volume_to_mcap"`
	MarketCap      float64 `json:"market_cap"`
	Sector         Sector  `json:"sector"`

	Listing     *ExchangeListing   `json:"listing,omitempty"`
	Klines      []Kline            `json:"klines,omitempty"`
	Whale       *WhaleActivity     `json:"whale,omitempty"`
	DEX         *DEXMetrics        `json:"dex,omitempty"`
	Developer   *DeveloperActivity `json:"developer,omitempty"`
	Flow        *ExchangeFlow      `json:"flow,omitempty"`
	Profile     *VolumeProfile     `json:"volume_profile,omitempty"`
	SmartVolume *SmartVolume       `json:"smart_volume,omitempty"`
}

// Listed reports whether the coin trades on the reference exchange
func (c CoinSnapshot) Listed() bool {
	return c.Listing != nil && c.Listing.IsListed
}

// HasDEXData reports whether DEX metrics are present
func (c CoinSnapshot) HasDEXData() bool {
	return c.DEX != nil && c.DEX.HasData
}

// FearGreed is the fear & greed index reading
type FearGreed struct {
	Value          int    `json:"value"`
	Classification string `json:"classification"`
}

// MarketConditions is scan-wide macro context
type MarketConditions struct {
	BTCDominance       float64   `json:"btc_dominance"`
	FearGreed          FearGreed `json:"fear_greed"`
	DominanceChange24h float64   `json:"dominance_change_24h"`
}

// NeutralConditions is used when macro data could not be fetched
func NeutralConditions() MarketConditions {
	return MarketConditions{
		BTCDominance: 50,
		FearGreed:    FearGreed{Value: 50, Classification: "Neutral"},
	}
}
