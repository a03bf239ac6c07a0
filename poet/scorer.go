package poet

import "strings"

// Scorer rates a poem's stylistic fit on a 0..1 scale. Scoring is advisory:
// a nil or failing scorer never blocks a cycle from committing.
type Scorer interface {
	Score(poem string) (float64, error)
}

// LexicalScorer is a deterministic heuristic for Bukowski-style fit. It
// rewards short lines, plain vocabulary and concrete everyday imagery, and
// penalizes ornate diction.
type LexicalScorer struct{}

var concreteWords = []string{
	"beer", "bar", "whiskey", "cigarette", "ashtray", "racetrack",
	"rent", "landlady", "factory", "streets", "drunk", "bottle",
	"kitchen", "gutter", "typewriter", "cheap", "dirty", "broke",
}

var ornateWords = []string{
	"ethereal", "gossamer", "celestial", "resplendent", "verily",
	"whilst", "thee", "thou", "effulgent", "sublime",
}

func (LexicalScorer) Score(poem string) (float64, error) {
	lower := strings.ToLower(poem)
	lines := nonBlankLines(poem)
	if len(lines) == 0 {
		return 0, nil
	}

	score := 0.4

	// Short lines read as plain speech.
	total := 0
	for _, line := range lines {
		total += len(line)
	}
	if avg := total / len(lines); avg <= 40 {
		score += 0.2
	} else if avg <= 55 {
		score += 0.1
	}

	for _, w := range concreteWords {
		if strings.Contains(lower, w) {
			score += 0.05
		}
	}
	for _, w := range ornateWords {
		if strings.Contains(lower, w) {
			score -= 0.1
		}
	}

	if score < 0 {
		score = 0
	}
	if score > 1 {
		score = 1
	}
	return score, nil
}

func nonBlankLines(s string) []string {
	var out []string
	for _, line := range strings.Split(s, "\n") {
		if strings.TrimSpace(line) != "" {
			out = append(out, line)
		}
	}
	return out
}
