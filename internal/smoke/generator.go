package smoke

import (
	"fmt"
	"math/rand/v2"

	"github.com/google/uuid"

	"github.com/okian/dons/internal/domain/questionnaire"
)

// Generate builds n complete submissions with random answers.
func Generate(cfg *Config, bank *questionnaire.Bank, n int) []Submission {
	rng := rand.New(rand.NewPCG(uint64(cfg.Seed), uint64(n)))
	items := bank.ItemIDs()

	out := make([]Submission, n)
	for i := range out {
		answers := make(map[int]int, len(items))
		for _, id := range items {
			answers[id] = int(questionnaire.Levels[rng.IntN(len(questionnaire.Levels))])
		}
		s := Submission{
			SubmissionID: uuid.NewString(),
			Name:         fmt.Sprintf("Smoke Participant %d", i+1),
			Organization: cfg.Organization,
			Answers:      answers,
		}
		if cfg.WithEmail {
			s.Email = fmt.Sprintf("smoke+%d@example.com", i+1)
		}
		out[i] = s
	}
	return out
}

// toAnswers converts the wire form to the domain form.
func toAnswers(m map[int]int) questionnaire.Answers {
	a := make(questionnaire.Answers, len(m))
	for k, v := range m {
		a[k] = questionnaire.Level(v)
	}
	return a
}
