package composite

// Category is the ordinal bucket of a total score
type Category string

const (
	CategoryHot         Category = "HOT"
	CategoryStrong      Category = "STRONG"
	CategoryPromising   Category = "PROMISING"
	CategoryInteresting Category = "INTERESTING"
	CategoryNeutral     Category = "NEUTRAL"
	CategoryWeak        Category = "WEAK"
)

// CategoryThreshold assigns Category to scores at or above Min
type CategoryThreshold struct {
	Min      float64  `yaml:"min" json:"min"`
	Category Category `yaml:"category" json:"category"`
}

// DefaultCategories is ordered from the highest threshold down
func DefaultCategories() []CategoryThreshold {
	return []CategoryThreshold{
		{70, CategoryHot},
		{60, CategoryStrong},
		{50, CategoryPromising},
		{40, CategoryInteresting},
		{30, CategoryNeutral},
	}
}

// Classify returns the first category whose threshold the score meets
func Classify(score float64, table []CategoryThreshold) Category {
	for _, t := range table {
		if score >= t.Min {
			return t.Category
		}
	}
	return CategoryWeak
}
