package config

import (
	"strings"

	"github.com/sawpanic/coinscope/internal/domain/market"
)

// SectorCatalog maps upper-case symbols to their sector label
type SectorCatalog map[string]market.Sector

// Lookup returns the sector of a symbol or SectorUnknown
func (sc SectorCatalog) Lookup(symbol string) market.Sector {
	if s, ok := sc[strings.ToUpper(symbol)]; ok && s != "" {
		return s
	}
	return market.SectorUnknown
}

// Apply stamps sectors onto snapshots that do not carry one already
func (sc SectorCatalog) Apply(coins []market.CoinSnapshot) {
	for i := range coins {
		if !coins[i].Sector.Known() {
			coins[i].Sector = sc.Lookup(coins[i].Symbol)
		}
	}
}

func defaultSectors() SectorCatalog {
	groups := map[market.Sector][]string{
		"Layer1":         {"BTC", "ETH", "SOL", "ADA", "AVAX", "DOT", "NEAR", "ATOM", "APT", "SUI", "SEI", "TON", "TRX", "ALGO", "ICP", "HBAR", "KAS", "INJ"},
		"Layer2":         {"MATIC", "POL", "ARB", "OP", "IMX", "STRK", "MNT", "METIS", "ZK"},
		"DeFi":           {"UNI", "AAVE", "MKR", "LDO", "CRV", "COMP", "SNX", "SUSHI", "1INCH", "DYDX", "PENDLE", "JUP", "RUNE", "CAKE", "GMX"},
		"AI":             {"FET", "RNDR", "RENDER", "TAO", "AGIX", "OCEAN", "WLD", "AKT", "ARKM"},
		"Gaming":         {"AXS", "SAND", "MANA", "GALA", "ENJ", "ILV", "BEAM", "PIXEL", "YGG"},
		"Meme":           {"DOGE", "SHIB", "PEPE", "WIF", "BONK", "FLOKI", "BOME", "MEME"},
		"Infrastructure": {"LINK", "GRT", "FIL", "AR", "THETA", "PYTH", "TIA", "STX", "QNT"},
		"Exchange":       {"BNB", "OKB", "CRO", "LEO", "KCS", "GT"},
		"Payments":       {"XRP", "XLM", "LTC", "BCH", "XMR", "ZEC", "DASH"},
	}

	sc := make(SectorCatalog)
	for sector, symbols := range groups {
		for _, s := range symbols {
			sc[s] = sector
		}
	}
	return sc
}
