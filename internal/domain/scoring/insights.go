package scoring

import (
	"math"
	"sort"
)

const podiumSize = 3

// CategoryInsight summarizes how often a category reaches the podium across
// many assessments.
type CategoryInsight struct {
	Name         string `json:"name"`
	TimesInTop3  int    `json:"times_in_top3"`
	TimesFirst   int    `json:"times_first"`
	TimesSecond  int    `json:"times_second"`
	TimesThird   int    `json:"times_third"`
	AverageScore int    `json:"average_score"`
}

// Aggregate computes podium statistics over rankings. The result is sorted
// by TimesInTop3 descending; ties keep first-seen order.
func Aggregate(rankings []Ranking) []CategoryInsight {
	index := make(map[string]int)
	var out []CategoryInsight
	sums := make([]int, 0)

	for _, r := range rankings {
		for pos, e := range r.Top(podiumSize) {
			i, ok := index[e.Name]
			if !ok {
				i = len(out)
				index[e.Name] = i
				out = append(out, CategoryInsight{Name: e.Name})
				sums = append(sums, 0)
			}
			out[i].TimesInTop3++
			sums[i] += e.Total
			switch pos {
			case 0:
				out[i].TimesFirst++
			case 1:
				out[i].TimesSecond++
			case 2:
				out[i].TimesThird++
			}
		}
	}

	for i := range out {
		out[i].AverageScore = int(math.Round(float64(sums[i]) / float64(out[i].TimesInTop3)))
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].TimesInTop3 > out[j].TimesInTop3
	})
	return out
}
