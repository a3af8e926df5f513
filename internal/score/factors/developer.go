package factors

import "github.com/sawpanic/coinscope/internal/domain/market"

var (
	commitTiers      = Tiers{{100, 60}, {50, 45}, {20, 30}, {5, 15}, {0, 5}}
	contributorTiers = Tiers{{50, 20}, {20, 15}, {10, 10}, {3, 5}}
	starTiers        = Tiers{{10000, 20}, {5000, 15}, {1000, 10}, {100, 5}}
)

// DeveloperScore scores repository activity (0-100); zero without data
func DeveloperScore(c market.CoinSnapshot) Result {
	d := c.Developer
	if d == nil {
		return Result{}
	}

	var r Result
	score := commitTiers.Above(float64(d.Commits4w)) +
		contributorTiers.Above(float64(d.Contributors)) +
		starTiers.Above(float64(d.Stars))
	if d.Commits4w > 50 {
		r.note("Active development")
	}
	r.Score = Clamp(score, 0, 100)
	return r
}
