package smoke

import (
	"fmt"

	"github.com/google/go-cmp/cmp"
	"github.com/tidwall/gjson"

	"github.com/okian/dons/internal/domain/scoring"
)

// parseRanking extracts the ranking array from a response body.
func parseRanking(body []byte) scoring.Ranking {
	var out scoring.Ranking
	gjson.GetBytes(body, "ranking").ForEach(func(_, e gjson.Result) bool {
		out = append(out, scoring.Entry{
			Name:    e.Get("name").String(),
			Total:   int(e.Get("total").Int()),
			Percent: int(e.Get("percent").Int()),
		})
		return true
	})
	return out
}

// verifyRanking compares a served ranking against the local engine.
func verifyRanking(want scoring.Ranking, body []byte) error {
	got := parseRanking(body)
	if diff := cmp.Diff(want, got); diff != "" {
		return fmt.Errorf("ranking mismatch (-want +got):\n%s", diff)
	}
	return nil
}
