package persistence

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTimeRange_Valid(t *testing.T) {
	base := time.Date(2025, 9, 7, 10, 0, 0, 0, time.UTC)
	tests := []struct {
		name  string
		tr    TimeRange
		valid bool
	}{
		{"valid_range", TimeRange{From: base, To: base.Add(time.Hour)}, true},
		{"same_time", TimeRange{From: base, To: base}, true},
		{"zero_times", TimeRange{}, true},
		{"inverted", TimeRange{From: base, To: base.Add(-time.Minute)}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.valid, tt.tr.Valid())
		})
	}
}
