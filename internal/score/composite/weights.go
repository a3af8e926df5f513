package composite

import (
	"fmt"
	"math"

	"github.com/sawpanic/coinscope/internal/domain/market"
)

// Weights splits raw strength between the price, volume and DEX scores
type Weights struct {
	Price  float64 `yaml:"price" json:"price"`
	Volume float64 `yaml:"volume" json:"volume"`
	DEX    float64 `yaml:"dex" json:"dex"`
}

// Sum returns the total weight
func (w Weights) Sum() float64 {
	return w.Price + w.Volume + w.DEX
}

// Validate ensures weights are non-negative and sum to 1.0
func (w Weights) Validate() error {
	if w.Price < 0 || w.Volume < 0 || w.DEX < 0 {
		return fmt.Errorf("negative weight in %+v", w)
	}
	if sum := w.Sum(); math.Abs(sum-1.0) > 0.001 {
		return fmt.Errorf("weights sum to %.3f, expected 1.0", sum)
	}
	return nil
}

// Range bounds a value; nil ends are open
type Range struct {
	Min *float64 `yaml:"min,omitempty" json:"min,omitempty"`
	Max *float64 `yaml:"max,omitempty" json:"max,omitempty"`
}

// Contains reports whether v lies within the range
func (r Range) Contains(v float64) bool {
	if r.Min != nil && v < *r.Min {
		return false
	}
	if r.Max != nil && v > *r.Max {
		return false
	}
	return true
}

// Criteria pre-filters candidates before scoring
type Criteria struct {
	MinRank         int             `yaml:"min_rank" json:"min_rank,omitempty"`
	MaxRank         int             `yaml:"max_rank" json:"max_rank,omitempty"` // 0 means unbounded
	MinVolumeToMcap float64         `yaml:"min_volume_to_mcap" json:"min_volume_to_mcap,omitempty"`
	Change7d        Range           `yaml:"change_7d" json:"change_7d"`
	Change24h       Range           `yaml:"change_24h" json:"change_24h"`
	Sectors         []market.Sector `yaml:"sectors" json:"sectors,omitempty"` // empty means all
}

// Matches reports whether the coin passes every criterion
func (c Criteria) Matches(coin market.CoinSnapshot) bool {
	if c.MinRank > 0 && coin.Rank < c.MinRank {
		return false
	}
	if c.MaxRank > 0 && (coin.Rank <= 0 || coin.Rank > c.MaxRank) {
		return false
	}
	if coin.VolumeToMcap < c.MinVolumeToMcap {
		return false
	}
	if !c.Change7d.Contains(coin.PriceChange7d) || !c.Change24h.Contains(coin.PriceChange24h) {
		return false
	}
	if len(c.Sectors) == 0 {
		return true
	}
	for _, s := range c.Sectors {
		if s == coin.Sector {
			return true
		}
	}
	return false
}

// StrategyProfile is a named weight variant plus its candidate filter
type StrategyProfile struct {
	Description string   `yaml:"description" json:"description"`
	Weights     Weights  `yaml:"weights" json:"weights"`
	Criteria    Criteria `yaml:"criteria" json:"criteria"`
}

// DefaultStrategy is used when no or an unknown strategy is requested
const DefaultStrategy = "balanced"

// DefaultStrategies returns the built-in balanced, momentum and value profiles
func DefaultStrategies() map[string]StrategyProfile {
	return map[string]StrategyProfile{
		"balanced": {
			Description: "Even mix of price action and volume",
			Weights:     Weights{Price: 0.50, Volume: 0.35, DEX: 0.15},
		},
		"momentum": {
			Description: "Favour coins already moving",
			Weights:     Weights{Price: 0.60, Volume: 0.30, DEX: 0.10},
		},
		"value": {
			Description: "Favour volume and on-chain activity over price",
			Weights:     Weights{Price: 0.30, Volume: 0.40, DEX: 0.30},
		},
	}
}

// DynamicWeights shifts weight between price and volume with the macro backdrop
type DynamicWeights struct {
	Enabled            bool    `yaml:"enabled" json:"enabled"`
	Shift              float64 `yaml:"shift" json:"shift"`
	FearBelow          int     `yaml:"fear_below" json:"fear_below"`
	AltSeasonDominance float64 `yaml:"alt_season_dominance" json:"alt_season_dominance"`
	AltSeasonChange    float64 `yaml:"alt_season_change" json:"alt_season_change"`
}

// Adjust applies the macro shifts. Extreme fear favours volume, alt season
// favours price. The sum of the weights is preserved.
func (d DynamicWeights) Adjust(w Weights, mc market.MarketConditions) Weights {
	if !d.Enabled || d.Shift <= 0 {
		return w
	}
	if fg := mc.FearGreed.Value; fg > 0 && fg < d.FearBelow {
		s := math.Min(d.Shift, w.Price)
		w.Price -= s
		w.Volume += s
	}
	if mc.BTCDominance > 0 && mc.BTCDominance < d.AltSeasonDominance && mc.DominanceChange24h < d.AltSeasonChange {
		s := math.Min(d.Shift, w.Volume)
		w.Volume -= s
		w.Price += s
	}
	return w
}
