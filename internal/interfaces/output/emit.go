package output

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/sawpanic/coinscope/internal/application/scan"
	"github.com/sawpanic/coinscope/internal/domain/market"
	"github.com/sawpanic/coinscope/internal/score/composite"
)

// Format selects how a scan is rendered
type Format string

const (
	FormatTable Format = "table"
	FormatJSON  Format = "json"
	FormatCSV   Format = "csv"
)

// ParseFormat accepts table, json or csv in any case
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatTable, FormatJSON, FormatCSV:
		return f, nil
	case "":
		return FormatTable, nil
	default:
		return "", fmt.Errorf("unknown output format %q (want table, json or csv)", s)
	}
}

// Options tune the emitter
type Options struct {
	Color bool
	Top   int // rows in table/csv output; 0 means all
}

type Emitter struct {
	opts Options
}

func NewEmitter(opts Options) *Emitter {
	return &Emitter{opts: opts}
}

// Emit renders res to w in the given format
func (e *Emitter) Emit(w io.Writer, res *scan.Result, format Format) error {
	switch format {
	case FormatJSON:
		return e.EmitJSON(w, res)
	case FormatCSV:
		return e.EmitCSV(w, res)
	case FormatTable, "":
		return e.EmitTable(w, res)
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}

// WriteFile renders res into path, replacing any existing file
func (e *Emitter) WriteFile(path string, res *scan.Result, format Format) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := e.Emit(file, res, format); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

var csvHeader = []string{
	"Position", "Symbol", "Name", "Sector", "MarketRank", "Price", "Change24h", "Change7d",
	"TotalScore", "Category", "Action", "Confidence",
	"PriceScore", "VolumeScore", "PositionScore", "Risk", "Developer", "DEX", "Structure", "Flow",
	"RawStrength", "QualityMultiplier", "SectorMultiplier", "AccumulationBonus", "Signals",
}

// EmitCSV writes one row per ranked coin with the full breakdown
func (e *Emitter) EmitCSV(w io.Writer, res *scan.Result) error {
	writer := csv.NewWriter(w)

	if err := writer.Write(csvHeader); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	for _, rc := range e.rows(res) {
		b := rc.Breakdown
		record := []string{
			strconv.Itoa(rc.Position),
			rc.Symbol,
			rc.Name,
			string(rc.Sector),
			strconv.Itoa(rc.MarketRank),
			formatPrice(rc.Price),
			fmt.Sprintf("%.2f", rc.Change24h),
			fmt.Sprintf("%.2f", rc.Change7d),
			fmt.Sprintf("%.2f", b.TotalScore),
			string(b.Category),
			string(b.Action.Action),
			string(b.Action.Confidence),
			fmt.Sprintf("%.2f", b.Price),
			fmt.Sprintf("%.2f", b.Volume),
			fmt.Sprintf("%.2f", b.Position),
			fmt.Sprintf("%.2f", b.Risk),
			fmt.Sprintf("%.2f", b.Developer),
			fmt.Sprintf("%.2f", b.DEX),
			fmt.Sprintf("%.2f", b.Structure),
			fmt.Sprintf("%.2f", b.Flow),
			fmt.Sprintf("%.3f", b.RawStrength),
			fmt.Sprintf("%.3f", b.QualityMultiplier),
			fmt.Sprintf("%.3f", b.SectorMultiplier),
			strconv.FormatBool(b.AccumulationBonus),
			strings.Join(b.Signals, "; "),
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	return writer.Error()
}

// explainDocument is the JSON rendering of a scan
type explainDocument struct {
	Metadata explainMetadata            `json:"metadata"`
	Stats    composite.Stats            `json:"stats"`
	Sectors  []composite.SectorStrength `json:"sectors,omitempty"`
	Coins    []composite.RankedCoin     `json:"coins"`
}

type explainMetadata struct {
	ScanID     string                  `json:"scan_id"`
	Strategy   string                  `json:"strategy"`
	Source     string                  `json:"source"`
	StartedAt  time.Time               `json:"started_at"`
	FinishedAt time.Time               `json:"finished_at"`
	Conditions market.MarketConditions `json:"conditions"`
	Steps      map[string]int64        `json:"step_ms,omitempty"`
}

// EmitJSON writes the scan, its statistics and every ranked coin
func (e *Emitter) EmitJSON(w io.Writer, res *scan.Result) error {
	doc := explainDocument{
		Metadata: explainMetadata{
			ScanID:     res.ID,
			Strategy:   res.Strategy,
			Source:     res.Source,
			StartedAt:  res.StartedAt,
			FinishedAt: res.FinishedAt,
			Conditions: res.Conditions,
		},
		Stats:   res.Stats,
		Sectors: res.Sectors,
		Coins:   e.rows(res),
	}
	if len(res.Durations) > 0 {
		doc.Metadata.Steps = make(map[string]int64, len(res.Durations))
		for step, d := range res.Durations {
			doc.Metadata.Steps[step] = d.Milliseconds()
		}
	}
	if doc.Coins == nil {
		doc.Coins = []composite.RankedCoin{}
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(doc); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}

func (e *Emitter) rows(res *scan.Result) []composite.RankedCoin {
	if e.opts.Top > 0 && len(res.Ranked) > e.opts.Top {
		return res.Ranked[:e.opts.Top]
	}
	return res.Ranked
}

// formatPrice keeps more decimals for sub-cent coins
func formatPrice(p float64) string {
	d := decimal.NewFromFloat(p)
	switch {
	case p >= 1:
		return d.StringFixed(2)
	case p >= 0.01:
		return d.StringFixed(4)
	default:
		return d.StringFixed(8)
	}
}
