package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/shopspring/decimal"

	"github.com/sawpanic/coinscope/internal/application/scan"
	"github.com/sawpanic/coinscope/internal/score/composite"
)

const (
	rowFormat    = "%3s  %-8s %-12s %14s %9s %9s %7s  %s  %s\n"
	categoryPad  = 11
	tableSectors = 3
)

var categoryOrder = []composite.Category{
	composite.CategoryHot,
	composite.CategoryStrong,
	composite.CategoryPromising,
	composite.CategoryInteresting,
	composite.CategoryNeutral,
	composite.CategoryWeak,
}

var categoryColors = map[composite.Category][]color.Attribute{
	composite.CategoryHot:         {color.FgRed, color.Bold},
	composite.CategoryStrong:      {color.FgYellow, color.Bold},
	composite.CategoryPromising:   {color.FgGreen},
	composite.CategoryInteresting: {color.FgCyan},
	composite.CategoryNeutral:     {color.FgWhite},
	composite.CategoryWeak:        {color.FgHiBlack},
}

// EmitTable writes a terminal report: market context, ranked rows and a
// category/sector footer.
func (e *Emitter) EmitTable(w io.Writer, res *scan.Result) error {
	bold := e.paint(color.Bold)
	mc := res.Conditions

	var b strings.Builder
	fmt.Fprintf(&b, "%s  strategy=%s  source=%s  scan=%s  %s\n",
		bold.Sprint("COINSCOPE"), res.Strategy, res.Source, shortID(res.ID),
		res.StartedAt.UTC().Format("2006-01-02 15:04 MST"))
	fmt.Fprintf(&b, "Market: BTC dominance %s%% (%s 24h) | Fear & Greed %d (%s)\n\n",
		decimal.NewFromFloat(mc.BTCDominance).StringFixed(2),
		signed(mc.DominanceChange24h), mc.FearGreed.Value, mc.FearGreed.Classification)

	fmt.Fprintf(&b, rowFormat, "#", "SYMBOL", "SECTOR", "PRICE", "24H", "7D", "SCORE",
		fmt.Sprintf("%-*s", categoryPad, "CATEGORY"), "ACTION")
	for _, rc := range e.rows(res) {
		bd := rc.Breakdown
		fmt.Fprintf(&b, rowFormat,
			fmt.Sprint(rc.Position),
			rc.Symbol,
			string(rc.Sector),
			formatPrice(rc.Price),
			e.change(rc.Change24h, 9),
			e.change(rc.Change7d, 9),
			decimal.NewFromFloat(bd.TotalScore).StringFixed(1),
			e.paint(categoryColors[bd.Category]...).Sprintf("%-*s", categoryPad, bd.Category),
			bd.Action.Action,
		)
	}

	st := res.Stats
	fmt.Fprintf(&b, "\nRanked %d coins | average %s | %d at or above %s\n",
		st.Count, decimal.NewFromFloat(st.AverageScore).StringFixed(2),
		st.AboveThreshold, decimal.NewFromFloat(st.Threshold).StringFixed(0))

	var cats []string
	for _, c := range categoryOrder {
		if n := st.Categories[c]; n > 0 {
			cats = append(cats, fmt.Sprintf("%s %d", e.paint(categoryColors[c]...).Sprint(c), n))
		}
	}
	if len(cats) > 0 {
		fmt.Fprintf(&b, "Categories: %s\n", strings.Join(cats, "  "))
	}

	if len(res.Sectors) > 0 {
		var secs []string
		for i, s := range res.Sectors {
			if i == tableSectors {
				break
			}
			secs = append(secs, fmt.Sprintf("%s %s (x%s)", s.Sector,
				decimal.NewFromFloat(s.MeanScore).StringFixed(1),
				decimal.NewFromFloat(s.Multiplier).StringFixed(2)))
		}
		fmt.Fprintf(&b, "Leading sectors: %s\n", strings.Join(secs, ", "))
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// paint returns a color that honours the emitter's Color option regardless
// of terminal detection
func (e *Emitter) paint(attrs ...color.Attribute) *color.Color {
	c := color.New(attrs...)
	if e.opts.Color {
		c.EnableColor()
	} else {
		c.DisableColor()
	}
	return c
}

// change right-aligns a signed percentage to width before colouring it
func (e *Emitter) change(p float64, width int) string {
	s := fmt.Sprintf("%*s", width, signed(p)+"%")
	switch {
	case p > 0:
		return e.paint(color.FgGreen).Sprint(s)
	case p < 0:
		return e.paint(color.FgRed).Sprint(s)
	default:
		return s
	}
}

func signed(p float64) string {
	s := decimal.NewFromFloat(p).StringFixed(2)
	if p > 0 {
		return "+" + s
	}
	return s
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
