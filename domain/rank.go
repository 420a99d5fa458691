package domain

// Rank is the title earned for a week's completion percentage.
type Rank struct {
	Threshold int
	Name      string
	Class     string
}

// Ranks is ordered by ascending threshold.
var Ranks = []Rank{
	{Threshold: 0, Name: "Ronin", Class: "rank-ronin"},
	{Threshold: 20, Name: "Samurai", Class: "rank-samurai"},
	{Threshold: 40, Name: "Shogun", Class: "rank-shogun"},
	{Threshold: 60, Name: "Daimyo", Class: "rank-daimyo"},
	{Threshold: 80, Name: "Apex Warrior", Class: "rank-apex"},
	{Threshold: 100, Name: "Apex Legend", Class: "rank-legend"},
}

// RankForPercent picks the rank with the largest threshold not above percent.
func RankForPercent(percent int) Rank {
	r := Ranks[0]
	for _, rank := range Ranks {
		if percent >= rank.Threshold {
			r = rank
		}
	}
	return r
}

// CompletionPercent is done/total as a whole percentage, rounded half up.
// An empty week is 0%.
func CompletionPercent(done, total int) int {
	if total <= 0 {
		return 0
	}
	return roundHalfUp(float64(done) / float64(total) * 100)
}

func roundHalfUp(f float64) int {
	n := int(f)
	if f-float64(n) >= 0.5 {
		n++
	}
	return n
}
