package output

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sawpanic/coinscope/internal/application/scan"
	"github.com/sawpanic/coinscope/internal/decision"
	"github.com/sawpanic/coinscope/internal/domain/market"
	"github.com/sawpanic/coinscope/internal/score/composite"
)

func sampleResult() *scan.Result {
	ranked := []composite.RankedCoin{
		{
			Position: 1, Symbol: "SOL", Name: "Solana", Sector: "Layer1", MarketRank: 5,
			Price: 142.5, Change24h: 4.2, Change7d: 11.8,
			Breakdown: composite.ScoreBreakdown{
				TotalScore: 71.4, Category: composite.CategoryHot,
				Signals: []string{"Strong momentum", "Healthy volume"},
				Action:  decision.ActionSignal{Action: decision.Buy, Confidence: decision.ConfidenceHigh},
			},
		},
		{
			Position: 2, Symbol: "PEPE", Name: "Pepe", Sector: "Meme", MarketRank: 30,
			Price: 0.0000123, Change24h: -3.1, Change7d: 0,
			Breakdown: composite.ScoreBreakdown{
				TotalScore: 38.2, Category: composite.CategoryNeutral,
				Action: decision.ActionSignal{Action: decision.Watch, Confidence: decision.ConfidenceLow},
			},
		},
	}
	return &scan.Result{
		ID:         "0f8fad5b-d9cb-469f-a165-70867728950e",
		StartedAt:  time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
		FinishedAt: time.Date(2025, 3, 1, 12, 0, 3, 0, time.UTC),
		Strategy:   "balanced",
		Source:     scan.SourceOffline,
		Conditions: market.MarketConditions{
			BTCDominance:       52.4,
			DominanceChange24h: -0.12,
			FearGreed:          market.FearGreed{Value: 38, Classification: "Fear"},
		},
		Ranked:  ranked,
		Stats:   composite.Summarize(ranked, composite.DefaultAboveThreshold),
		Sectors: []composite.SectorStrength{{Sector: "Layer1", Members: 3, MeanScore: 58.3, Multiplier: 1.05}},
		Durations: map[string]time.Duration{
			scan.StepRank: 1500 * time.Millisecond,
		},
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"", FormatTable, false},
		{"table", FormatTable, false},
		{" JSON ", FormatJSON, false},
		{"csv", FormatCSV, false},
		{"xml", "", true},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
	}
}

func TestEmitTable_Plain(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewEmitter(Options{}).Emit(&buf, sampleResult(), FormatTable))
	out := buf.String()

	assert.NotContains(t, out, "\x1b[")
	assert.Contains(t, out, "scan=0f8fad5b")
	assert.Contains(t, out, "BTC dominance 52.40% (-0.12 24h)")
	assert.Contains(t, out, "Fear & Greed 38 (Fear)")
	assert.Contains(t, out, "142.50")
	assert.Contains(t, out, "0.00001230")
	assert.Contains(t, out, "+4.20%")
	assert.Contains(t, out, "HOT")
	assert.Contains(t, out, "Ranked 2 coins | average 54.80 | 1 at or above 60")
	assert.Contains(t, out, "Categories: HOT 1  NEUTRAL 1")
	assert.Contains(t, out, "Leading sectors: Layer1 58.3 (x1.05)")

	lines := strings.Split(out, "\n")
	var rows []string
	for _, l := range lines {
		if strings.Contains(l, "SOL") || strings.Contains(l, "PEPE") || strings.Contains(l, "SYMBOL") {
			rows = append(rows, l)
		}
	}
	require.Len(t, rows, 3)
	// fixed-width columns keep the score column aligned
	assert.Equal(t, strings.Index(rows[0], "SCORE")+5, strings.Index(rows[1], "71.4")+4)
}

func TestEmitTable_Color(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewEmitter(Options{Color: true}).EmitTable(&buf, sampleResult()))
	assert.Contains(t, buf.String(), "\x1b[")
}

func TestEmitTable_Top(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewEmitter(Options{Top: 1}).EmitTable(&buf, sampleResult()))
	assert.Contains(t, buf.String(), "SOL")
	assert.NotContains(t, buf.String(), "PEPE")
}

func TestEmitCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewEmitter(Options{}).EmitCSV(&buf, sampleResult()))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, csvHeader, records[0])
	for _, r := range records {
		assert.Len(t, r, len(csvHeader))
	}

	sol := records[1]
	assert.Equal(t, "1", sol[0])
	assert.Equal(t, "SOL", sol[1])
	assert.Equal(t, "142.50", sol[5])
	assert.Equal(t, "71.40", sol[8])
	assert.Equal(t, "HOT", sol[9])
	assert.Equal(t, "BUY", sol[10])
	assert.Equal(t, "Strong momentum; Healthy volume", sol[len(sol)-1])
	assert.Equal(t, "0.00001230", records[2][5])
}

func TestEmitJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewEmitter(Options{}).EmitJSON(&buf, sampleResult()))

	var doc struct {
		Metadata struct {
			ScanID string           `json:"scan_id"`
			Source string           `json:"source"`
			Steps  map[string]int64 `json:"step_ms"`
		} `json:"metadata"`
		Stats composite.Stats        `json:"stats"`
		Coins []composite.RankedCoin `json:"coins"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &doc))
	assert.Equal(t, "offline", doc.Metadata.Source)
	assert.Equal(t, int64(1500), doc.Metadata.Steps[scan.StepRank])
	assert.Equal(t, 2, doc.Stats.Count)
	require.Len(t, doc.Coins, 2)
	assert.Equal(t, decision.Buy, doc.Coins[0].Breakdown.Action.Action)
}

func TestEmitJSON_EmptyScan(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewEmitter(Options{}).EmitJSON(&buf, &scan.Result{ID: "x"}))
	assert.Contains(t, buf.String(), `"coins": []`)
}

func TestWriteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scan.csv")
	require.NoError(t, NewEmitter(Options{}).WriteFile(path, sampleResult(), FormatCSV))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "Position,Symbol"))

	assert.Error(t, NewEmitter(Options{}).WriteFile(filepath.Join(t.TempDir(), "missing", "x.csv"), sampleResult(), FormatCSV))
}

func TestFormatPrice(t *testing.T) {
	assert.Equal(t, "64250.00", formatPrice(64250))
	assert.Equal(t, "0.4521", formatPrice(0.45213))
	assert.Equal(t, "0.00000089", formatPrice(0.00000089))
}
