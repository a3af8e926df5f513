package composite

import (
	"errors"
	"fmt"
)

// SectorRules maps a sector's mean score to a multiplier
type SectorRules struct {
	MinMembers     int     `yaml:"min_members" json:"min_members"`
	HotAbove       float64 `yaml:"hot_above" json:"hot_above"`
	HotMultiplier  float64 `yaml:"hot_multiplier" json:"hot_multiplier"`
	WarmAbove      float64 `yaml:"warm_above" json:"warm_above"`
	WarmMultiplier float64 `yaml:"warm_multiplier" json:"warm_multiplier"`
	ColdBelow      float64 `yaml:"cold_below" json:"cold_below"`
	ColdMultiplier float64 `yaml:"cold_multiplier" json:"cold_multiplier"`
}

// Multiplier returns the multiplier for a sector with the given mean score
func (s SectorRules) Multiplier(mean float64) float64 {
	switch {
	case mean > s.HotAbove:
		return s.HotMultiplier
	case mean > s.WarmAbove:
		return s.WarmMultiplier
	case mean < s.ColdBelow:
		return s.ColdMultiplier
	default:
		return 1.0
	}
}

// AccumulationBonus rewards extreme accumulation readings
type AccumulationBonus struct {
	Threshold  float64 `yaml:"threshold" json:"threshold"`
	Multiplier float64 `yaml:"multiplier" json:"multiplier"`
}

// Config is the full tabulated ranker configuration
type Config struct {
	Strategies      map[string]StrategyProfile `yaml:"-" json:"strategies"`
	DynamicWeights  DynamicWeights             `yaml:"dynamic_weights" json:"dynamic_weights"`
	StructureWeight float64                    `yaml:"structure_weight" json:"structure_weight"`
	Categories      []CategoryThreshold        `yaml:"categories" json:"categories"`
	Sector          SectorRules                `yaml:"sector" json:"sector"`
	Accumulation    AccumulationBonus          `yaml:"accumulation_bonus" json:"accumulation_bonus"`
	SignalLimit     int                        `yaml:"signal_limit" json:"signal_limit"`
}

// DefaultConfig returns the production scoring tables
func DefaultConfig() Config {
	return Config{
		Strategies: DefaultStrategies(),
		DynamicWeights: DynamicWeights{
			Enabled:            true,
			Shift:              0.05,
			FearBelow:          25,
			AltSeasonDominance: 45,
			AltSeasonChange:    -0.5,
		},
		StructureWeight: 0.3,
		Categories:      DefaultCategories(),
		Sector: SectorRules{
			MinMembers:     2,
			HotAbove:       65,
			HotMultiplier:  1.15,
			WarmAbove:      58,
			WarmMultiplier: 1.07,
			ColdBelow:      45,
			ColdMultiplier: 0.9,
		},
		Accumulation: AccumulationBonus{Threshold: 75, Multiplier: 1.15},
		SignalLimit:  5,
	}
}

// Validate checks the tables are internally consistent
func (c Config) Validate() error {
	if len(c.Strategies) == 0 {
		return errors.New("no strategies configured")
	}
	if _, ok := c.Strategies[DefaultStrategy]; !ok {
		return fmt.Errorf("missing %q strategy", DefaultStrategy)
	}
	for name, s := range c.Strategies {
		if err := s.Weights.Validate(); err != nil {
			return fmt.Errorf("strategy %s: %w", name, err)
		}
	}
	if len(c.Categories) == 0 {
		return errors.New("no category thresholds")
	}
	for i := 1; i < len(c.Categories); i++ {
		if c.Categories[i].Min >= c.Categories[i-1].Min {
			return fmt.Errorf("category thresholds must descend: %s (%.2f) after %s (%.2f)",
				c.Categories[i].Category, c.Categories[i].Min, c.Categories[i-1].Category, c.Categories[i-1].Min)
		}
	}
	if c.Sector.MinMembers < 1 {
		return errors.New("sector.min_members must be at least 1")
	}
	if c.Sector.ColdBelow > c.Sector.WarmAbove || c.Sector.WarmAbove > c.Sector.HotAbove {
		return errors.New("sector thresholds must ascend cold <= warm <= hot")
	}
	if c.SignalLimit <= 0 {
		return errors.New("signal_limit must be positive")
	}
	if c.Accumulation.Multiplier <= 0 {
		return errors.New("accumulation_bonus.multiplier must be positive")
	}
	return nil
}
