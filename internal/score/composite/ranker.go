package composite

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/sawpanic/coinscope/internal/decision"
	"github.com/sawpanic/coinscope/internal/domain/market"
	"github.com/sawpanic/coinscope/internal/score/factors"
)

// ScoreBreakdown is the per-coin scoring output
type ScoreBreakdown struct {
	Price        float64                    `json:"price"`     // 0-70
	Volume       float64                    `json:"volume"`    // 0-100
	Position     float64                    `json:"position"`  // 0-60
	Risk         float64                    `json:"risk"`      // 0-100
	Developer    float64                    `json:"developer"` // 0-100
	DEX          float64                    `json:"dex"`       // 0-100
	Structure    float64                    `json:"structure"` // -20..30
	Flow         float64                    `json:"flow"`      // 0-100
	Accumulation factors.AccumulationResult `json:"accumulation"`
	Timing       factors.TimingResult       `json:"timing"`

	Weights           Weights `json:"weights"`
	RawStrength       float64 `json:"raw_strength"`
	QualityMultiplier float64 `json:"quality_multiplier"`
	BaseScore         float64 `json:"base_score"`
	SectorMultiplier  float64 `json:"sector_multiplier"`
	AccumulationBonus bool    `json:"accumulation_bonus"`

	TotalScore float64               `json:"total_score"`
	Category   Category              `json:"category"`
	Signals    []string              `json:"signals"`
	Action     decision.ActionSignal `json:"action_signal"`
	RiskReward decision.RiskReward   `json:"risk_reward"`
	Flags      decision.Flags        `json:"flags"`
}

// RankedCoin is a listed coin with its breakdown and ranking position
type RankedCoin struct {
	Position   int                 `json:"position"`
	Symbol     string              `json:"symbol"`
	Name       string              `json:"name"`
	MarketRank int                 `json:"market_rank"`
	Price      float64             `json:"price"`
	Change24h  float64             `json:"price_change_24h"`
	Change7d   float64             `json:"price_change_7d"`
	Sector     market.Sector       `json:"sector"`
	Breakdown  ScoreBreakdown      `json:"breakdown"`
	Snapshot   market.CoinSnapshot `json:"-"`
}

// Ranker turns snapshots into ranked, categorised coins. It holds no
// mutable state and is safe for concurrent use.
type Ranker struct {
	cfg Config
}

// NewRanker creates a ranker over the given tables
func NewRanker(cfg Config) *Ranker {
	if len(cfg.Strategies) == 0 {
		cfg.Strategies = DefaultStrategies()
	}
	if len(cfg.Categories) == 0 {
		cfg.Categories = DefaultCategories()
	}
	if cfg.SignalLimit <= 0 {
		cfg.SignalLimit = 5
	}
	return &Ranker{cfg: cfg}
}

// Config returns the ranker tables
func (r *Ranker) Config() Config {
	return r.cfg
}

// Profile resolves a strategy name, falling back to the default strategy
func (r *Ranker) Profile(strategy string) (string, StrategyProfile) {
	if p, ok := r.cfg.Strategies[strategy]; ok {
		return strategy, p
	}
	return DefaultStrategy, r.cfg.Strategies[DefaultStrategy]
}

// Weights returns the strategy weights after macro adjustment
func (r *Ranker) Weights(strategy string, mc market.MarketConditions) Weights {
	_, p := r.Profile(strategy)
	return r.cfg.DynamicWeights.Adjust(p.Weights, mc)
}

// candidate carries first-pass results into the sector pass
type candidate struct {
	coin      market.CoinSnapshot
	breakdown ScoreBreakdown
	timed     float64
	higherLow bool

	price, volume, position, risk, flow, dex factors.Result
}

// Score evaluates a single coin without sector context. ok is false when
// the coin is not listed and therefore not rankable.
func (r *Ranker) Score(c market.CoinSnapshot, mc market.MarketConditions, strategy string) (ScoreBreakdown, bool) {
	if !c.Listed() {
		return ScoreBreakdown{}, false
	}
	cand := r.evaluate(c, mc, r.Weights(strategy, mc), nil)
	r.finalize(&cand, mc, 1.0)
	return cand.breakdown, true
}

// Rank filters, scores and sorts a scan universe. Unlisted coins and coins
// failing the strategy criteria are dropped.
func (r *Ranker) Rank(coins []market.CoinSnapshot, mc market.MarketConditions, strategy string) []RankedCoin {
	cands := r.firstPass(coins, mc, strategy)

	multipliers := r.sectorMultipliers(cands)
	for i := range cands {
		r.finalize(&cands[i], mc, multipliers[cands[i].coin.Sector])
	}

	sort.SliceStable(cands, func(i, j int) bool {
		a, b := cands[i].breakdown.TotalScore, cands[j].breakdown.TotalScore
		if a != b {
			return a > b
		}
		return cands[i].coin.Symbol < cands[j].coin.Symbol
	})

	ranked := make([]RankedCoin, len(cands))
	for i, cand := range cands {
		c := cand.coin
		ranked[i] = RankedCoin{
			Position:   i + 1,
			Symbol:     c.Symbol,
			Name:       c.Name,
			MarketRank: c.Rank,
			Price:      c.Price,
			Change24h:  c.PriceChange24h,
			Change7d:   c.PriceChange7d,
			Sector:     c.Sector,
			Breakdown:  cand.breakdown,
			Snapshot:   c,
		}
	}
	return ranked
}

// firstPass applies the strategy criteria and scores every listed coin up
// to its timed score. Sector peers come from the filtered universe.
func (r *Ranker) firstPass(coins []market.CoinSnapshot, mc market.MarketConditions, strategy string) []candidate {
	_, profile := r.Profile(strategy)
	weights := r.cfg.DynamicWeights.Adjust(profile.Weights, mc)

	universe := make([]market.CoinSnapshot, 0, len(coins))
	for _, c := range coins {
		if profile.Criteria.Matches(c) {
			universe = append(universe, c)
		}
	}
	peers := peerChanges(universe)

	cands := make([]candidate, 0, len(universe))
	for i, c := range universe {
		if !c.Listed() {
			continue
		}
		cands = append(cands, r.evaluate(c, mc, weights, peers(i)))
	}
	return cands
}

// evaluate runs every factor scorer and computes the timed score
func (r *Ranker) evaluate(c market.CoinSnapshot, mc market.MarketConditions, w Weights, peers []float64) candidate {
	cand := candidate{
		coin:     c,
		price:    factors.PriceMomentum(c),
		volume:   factors.VolumeActivity(c),
		position: factors.MarketPosition(c),
		risk:     factors.Risk(c, mc),
		flow:     factors.ExchangeFlowScore(c),
		dex:      factors.DEXScore(c),
	}
	dev := factors.DeveloperScore(c)
	structure := factors.MarketStructure(c)
	if facts, ok := factors.AnalyzeStructure(c.Klines); ok {
		cand.higherLow = facts.HigherLow
	}

	b := ScoreBreakdown{
		Price:        cand.price.Score,
		Volume:       cand.volume.Score,
		Position:     cand.position.Score,
		Risk:         cand.risk.Score,
		Developer:    dev.Score,
		DEX:          cand.dex.Score,
		Structure:    structure.Score,
		Flow:         cand.flow.Score,
		Accumulation: factors.Accumulation(factors.AccumulationInputFrom(c)),
		Timing:       factors.Timing(c, mc, peers),
		Weights:      w,
	}

	b.RawStrength = b.Price*w.Price + b.Volume*w.Volume + b.DEX*w.DEX
	b.QualityMultiplier = 1 + (b.Position-50)/100 - (b.Risk-50)/100 + b.Developer/200
	b.BaseScore = b.RawStrength*b.QualityMultiplier + b.Structure*r.cfg.StructureWeight

	cand.breakdown = b
	cand.timed = b.BaseScore * b.Timing.Multiplier
	return cand
}

// finalize applies sector and accumulation multipliers, clamps, classifies
// and runs the decision layer.
func (r *Ranker) finalize(cand *candidate, mc market.MarketConditions, sectorMult float64) {
	if sectorMult == 0 {
		sectorMult = 1.0
	}
	b := &cand.breakdown
	b.SectorMultiplier = sectorMult

	score := cand.timed * sectorMult
	if b.Accumulation.Score > r.cfg.Accumulation.Threshold && r.cfg.Accumulation.Multiplier > 0 {
		score *= r.cfg.Accumulation.Multiplier
		b.AccumulationBonus = true
	}

	b.TotalScore = round2(factors.Clamp(score, 0, 100))
	b.Category = Classify(b.TotalScore, r.cfg.Categories)
	b.Signals = r.signals(cand)

	c := cand.coin
	b.Flags = decision.FlagsFor(c, cand.higherLow)
	in := decision.Input{
		Symbol:           c.Symbol,
		Price:            c.Price,
		Rank:             c.Rank,
		Change24h:        c.PriceChange24h,
		Change7d:         c.PriceChange7d,
		VolumeToMcap:     c.VolumeToMcap,
		Momentum:         b.TotalScore,
		Timing:           b.Timing.Score,
		TimingMultiplier: b.Timing.Multiplier,
		Risk:             b.Risk,
		SectorMultiplier: sectorMult,
		BTCDominance:     mc.BTCDominance,
		FearGreed:        mc.FearGreed.Value,
		Flags:            b.Flags,
	}
	b.Action = decision.Evaluate(in)
	b.RiskReward = decision.EstimateRiskReward(in)
}

// peerChanges returns a lookup of the 7d changes of the other coins sharing
// a known sector with coin i.
func peerChanges(universe []market.CoinSnapshot) func(i int) []float64 {
	bySector := make(map[market.Sector][]int)
	for i, c := range universe {
		if c.Sector.Known() {
			bySector[c.Sector] = append(bySector[c.Sector], i)
		}
	}
	return func(i int) []float64 {
		members := bySector[universe[i].Sector]
		if !universe[i].Sector.Known() || len(members) < 2 {
			return nil
		}
		out := make([]float64, 0, len(members)-1)
		for _, j := range members {
			if j != i {
				out = append(out, universe[j].PriceChange7d)
			}
		}
		return out
	}
}

func round2(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}
