package scan

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/sawpanic/coinscope/internal/domain/market"
)

// OfflineInput is a recorded scan input: macro conditions plus snapshots
type OfflineInput struct {
	Conditions *market.MarketConditions `json:"conditions,omitempty"`
	Coins      []market.CoinSnapshot    `json:"coins"`
}

// LoadInput reads an OfflineInput file
func LoadInput(path string) (*OfflineInput, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open input: %w", err)
	}
	defer f.Close()

	in, err := ReadInput(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return in, nil
}

// ReadInput decodes and validates an OfflineInput. Missing conditions
// become neutral.
func ReadInput(r io.Reader) (*OfflineInput, error) {
	var in OfflineInput
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&in); err != nil {
		return nil, fmt.Errorf("decode input: %w", err)
	}
	if in.Conditions == nil {
		mc := market.NeutralConditions()
		in.Conditions = &mc
	}

	seen := make(map[string]struct{}, len(in.Coins))
	for i, c := range in.Coins {
		switch {
		case c.Symbol == "":
			return nil, fmt.Errorf("coin %d: symbol is required", i)
		case c.Rank <= 0:
			return nil, fmt.Errorf("coin %s: rank must be positive", c.Symbol)
		case c.Price <= 0:
			return nil, fmt.Errorf("coin %s: price must be positive", c.Symbol)
		case c.VolumeToMcap < 0:
			return nil, fmt.Errorf("coin %s: volume_to_mcap cannot be negative", c.Symbol)
		}
		if _, dup := seen[c.Symbol]; dup {
			return nil, fmt.Errorf("coin %s: duplicate symbol", c.Symbol)
		}
		seen[c.Symbol] = struct{}{}
	}
	return &in, nil
}
