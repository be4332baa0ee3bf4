package models

// LevelBucket is a labelled range of mastery levels
type LevelBucket struct {
	Label string `json:"label"`
	Min   int    `json:"min"`
	Max   int    `json:"max"`
	Count int    `json:"count"`
}

// LevelBuckets returns the empty histogram buckets used for statistics
func LevelBuckets() []LevelBucket {
	return []LevelBucket{
		{Label: "new", Min: 0, Max: 0},
		{Label: "1-9", Min: 1, Max: 9},
		{Label: "10-24", Min: 10, Max: 24},
		{Label: "25-49", Min: 25, Max: 49},
		{Label: "50-99", Min: 50, Max: 99},
		{Label: "mastered", Min: 100, Max: MaxLevel},
	}
}

// Stats summarises the collection. Verb records are not counted as
// practisable items, their forms are.
type Stats struct {
	Total      int           `json:"total"`
	InLearning int           `json:"in_learning"`
	ByKind     map[Kind]int  `json:"by_kind"`
	Levels     []LevelBucket `json:"levels"`
}
