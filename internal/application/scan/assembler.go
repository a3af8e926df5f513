package scan

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/sawpanic/coinscope/internal/config"
	"github.com/sawpanic/coinscope/internal/domain/indicators"
	"github.com/sawpanic/coinscope/internal/domain/market"
	applog "github.com/sawpanic/coinscope/internal/log"
	"github.com/sawpanic/coinscope/internal/providers"
	"github.com/sawpanic/coinscope/internal/score/composite"
)

// MarketSource ranks coins by market cap and reports global data
type MarketSource interface {
	Markets(ctx context.Context, n int) ([]market.CoinSnapshot, error)
	Global(ctx context.Context) (providers.GlobalData, error)
}

// ExchangeSource is the reference exchange
type ExchangeSource interface {
	ExchangeInfo(ctx context.Context, quote string) (map[string]string, error)
	Ticker24h(ctx context.Context, pair string) (*market.ExchangeListing, error)
	Klines(ctx context.Context, pair, interval string, limit int) ([]market.Kline, error)
	AggTrades(ctx context.Context, pair string, limit int) ([]indicators.Trade, error)
}

type DEXSource interface {
	Token(ctx context.Context, symbol string) (*market.DEXMetrics, error)
}

type SentimentSource interface {
	Latest(ctx context.Context) (market.FearGreed, error)
}

// DeveloperSource looks up repository activity by market data id
type DeveloperSource interface {
	Developer(ctx context.Context, id string) (*market.DeveloperActivity, error)
}

// Sources are the collaborators an Assembler pulls from. DEX, Sentiment
// and Developer are optional.
type Sources struct {
	Markets   MarketSource
	Exchange  ExchangeSource
	DEX       DEXSource
	Sentiment SentimentSource
	Developer DeveloperSource
}

// SourcesFrom adapts a provider set, leaving disabled providers unset.
// Developer lookups follow scan.developer_data.
func SourcesFrom(set *providers.Set, cfg config.ScanConfig) Sources {
	var src Sources
	if set.CoinGecko != nil {
		src.Markets = set.CoinGecko
		if cfg.DeveloperData {
			src.Developer = set.CoinGecko
		}
	}
	if set.Binance != nil {
		src.Exchange = set.Binance
	}
	if set.DexScreener != nil {
		src.DEX = set.DexScreener
	}
	if set.FearGreed != nil {
		src.Sentiment = set.FearGreed
	}
	return src
}

// Assembler builds CoinSnapshots from live providers
type Assembler struct {
	src      Sources
	cfg      config.ScanConfig
	sectors  config.SectorCatalog
	progress io.Writer
	sleep    func(ctx context.Context, d time.Duration) error
}

// NewAssembler creates an assembler. progress may be nil.
func NewAssembler(src Sources, cfg config.ScanConfig, sectors config.SectorCatalog, progress io.Writer) (*Assembler, error) {
	if src.Markets == nil || src.Exchange == nil {
		return nil, fmt.Errorf("assembler needs a market source and an exchange source")
	}
	return &Assembler{
		src:      src,
		cfg:      cfg,
		sectors:  sectors,
		progress: progress,
		sleep:    sleepCtx,
	}, nil
}

// Universe fetches the market-cap universe, attaches sectors and returns
// the coins matching criteria together with scan-wide conditions.
func (a *Assembler) Universe(ctx context.Context, criteria composite.Criteria) ([]market.CoinSnapshot, market.MarketConditions, error) {
	all, err := a.src.Markets.Markets(ctx, a.cfg.UniverseSize)
	if err != nil {
		return nil, market.MarketConditions{}, fmt.Errorf("fetch universe: %w", err)
	}
	a.sectors.Apply(all)

	var btcChange float64
	for _, c := range all {
		if c.Symbol == "BTC" {
			btcChange = c.PriceChange24h
			break
		}
	}
	mc := a.Conditions(ctx, btcChange)

	out := make([]market.CoinSnapshot, 0, len(all))
	for _, c := range all {
		if criteria.Matches(c) {
			out = append(out, c)
		}
	}
	log.Info().
		Int("fetched", len(all)).
		Int("matched", len(out)).
		Float64("btc_dominance", mc.BTCDominance).
		Int("fear_greed", mc.FearGreed.Value).
		Msg("Universe built")
	return out, mc, nil
}

// Conditions reads macro data, falling back to neutral values for anything
// that could not be fetched.
func (a *Assembler) Conditions(ctx context.Context, btcChange24h float64) market.MarketConditions {
	mc := market.NeutralConditions()

	if g, err := a.src.Markets.Global(ctx); err != nil {
		log.Warn().Err(err).Msg("Global market data unavailable, using neutral dominance")
	} else {
		mc.BTCDominance = g.BTCDominance
		mc.DominanceChange24h = DominanceDrift(g.BTCDominance, btcChange24h, g.MarketCapChange24h)
	}

	if a.src.Sentiment != nil {
		if fg, err := a.src.Sentiment.Latest(ctx); err != nil {
			log.Warn().Err(err).Msg("Fear & greed unavailable, using neutral reading")
		} else {
			mc.FearGreed = fg
		}
	}
	return mc
}

// DominanceDrift estimates the 24h change in BTC dominance (percentage
// points) from BTC's own move and the total market-cap move.
func DominanceDrift(dominance, btcChangePct, totalChangePct float64) float64 {
	if btcChangePct <= -100 || totalChangePct <= -100 {
		return 0
	}
	prev := dominance * (1 + totalChangePct/100) / (1 + btcChangePct/100)
	return dominance - prev
}

// Enrich fills the exchange, trade, DEX and developer datasets of every coin. Coins
// are processed in batches of BatchSize with at most Concurrency requests
// in flight, pausing BatchDelay between batches. A failed dataset leaves
// that field nil; only cancellation and a missing listing table abort.
func (a *Assembler) Enrich(ctx context.Context, coins []market.CoinSnapshot) ([]market.CoinSnapshot, error) {
	pairs, err := a.src.Exchange.ExchangeInfo(ctx, a.cfg.QuoteAsset)
	if err != nil {
		return nil, fmt.Errorf("fetch listings: %w", err)
	}

	out := make([]market.CoinSnapshot, len(coins))
	copy(out, coins)

	batch := a.cfg.BatchSize
	if batch <= 0 {
		batch = len(out)
	}
	progress := applog.NewProgressIndicator(a.progress, "Fetching market data", len(out))

	for start := 0; start < len(out); start += batch {
		if start > 0 {
			if err := a.sleep(ctx, a.cfg.BatchDelay()); err != nil {
				progress.Fail(err.Error())
				return nil, err
			}
		}
		end := start + batch
		if end > len(out) {
			end = len(out)
		}

		g, gctx := errgroup.WithContext(ctx)
		if a.cfg.Concurrency > 0 {
			g.SetLimit(a.cfg.Concurrency)
		}
		for i := start; i < end; i++ {
			c := &out[i]
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				a.enrichOne(gctx, c, pairs)
				progress.Increment()
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			progress.Fail(err.Error())
			return nil, err
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	progress.Finish(fmt.Sprintf("%d coins", len(out)))
	return out, nil
}

func (a *Assembler) enrichOne(ctx context.Context, c *market.CoinSnapshot, pairs map[string]string) {
	pair, ok := pairs[c.Symbol]
	if !ok {
		c.Listing = &market.ExchangeListing{IsListed: false}
		return
	}

	logger := log.With().Str("symbol", c.Symbol).Str("pair", pair).Logger()

	listing, err := a.src.Exchange.Ticker24h(ctx, pair)
	if err != nil {
		logger.Warn().Err(err).Msg("24h ticker unavailable")
		listing = &market.ExchangeListing{IsListed: true, Pair: pair}
	}
	c.Listing = listing

	if klines, err := a.src.Exchange.Klines(ctx, pair, "1d", a.cfg.KlineDays); err != nil {
		logger.Warn().Err(err).Msg("Daily klines unavailable")
	} else {
		c.Klines = klines
	}

	if hourly, err := a.src.Exchange.Klines(ctx, pair, "1h", a.cfg.ProfileHours); err != nil {
		logger.Warn().Err(err).Msg("Hourly klines unavailable")
	} else if profile, ok := indicators.BuildVolumeProfile(hourly, a.cfg.ProfileBins); ok {
		c.Profile = profile
	}

	if trades, err := a.src.Exchange.AggTrades(ctx, pair, a.cfg.TradeLimit); err != nil {
		logger.Warn().Err(err).Msg("Trades unavailable")
	} else {
		c.Whale = indicators.DeriveWhaleActivity(trades, a.cfg.WhaleNotionalUSD)
		c.SmartVolume = indicators.ClassifySmartVolume(trades, a.cfg.WhaleNotionalUSD, a.cfg.RetailNotionalUSD)
	}

	if a.src.Developer != nil && c.ID != "" {
		dev, err := a.src.Developer.Developer(ctx, c.ID)
		switch {
		case errors.Is(err, providers.ErrNotFound):
			logger.Debug().Msg("No tracked repository")
		case err != nil:
			logger.Warn().Err(err).Msg("Developer activity unavailable")
		default:
			c.Developer = dev
		}
	}

	if a.src.DEX == nil {
		return
	}
	dex, err := a.src.DEX.Token(ctx, c.Symbol)
	switch {
	case errors.Is(err, providers.ErrNotFound):
		logger.Debug().Msg("No DEX pools")
	case err != nil:
		logger.Warn().Err(err).Msg("DEX metrics unavailable")
	default:
		c.DEX = dex
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
