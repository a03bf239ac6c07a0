package poet

import (
	"fmt"
	"strings"

	"poetloop/domain"
)

const (
	labelPoem  = "POEM:"
	labelTitle = "TITLE:"
	labelNext  = "NEXT:"

	maxTitleWords = 6
	maxNextChars  = 300
	poemLineWidth = 60
)

// generation is one parsed model output: the poem, its title, and the handoff
// prompt for the next cycle.
type generation struct {
	Poem       string
	Title      string
	NextPrompt string
}

// parseGeneration extracts the three labeled sections from a raw model
// response. Labels must all be present and appear in POEM, TITLE, NEXT order;
// each section must be non-empty after trimming. Violations are reported as
// domain.ErrMalformedGeneration so callers can treat them uniformly.
func parseGeneration(raw string) (*generation, error) {
	poemIdx := strings.Index(raw, labelPoem)
	titleIdx := strings.Index(raw, labelTitle)
	nextIdx := strings.Index(raw, labelNext)

	if poemIdx < 0 || titleIdx < 0 || nextIdx < 0 {
		return nil, fmt.Errorf("%w: missing POEM, TITLE or NEXT label", domain.ErrMalformedGeneration)
	}
	if !(poemIdx < titleIdx && titleIdx < nextIdx) {
		return nil, fmt.Errorf("%w: labels out of order", domain.ErrMalformedGeneration)
	}

	poem := strings.TrimSpace(raw[poemIdx+len(labelPoem) : titleIdx])
	title := strings.TrimSpace(raw[titleIdx+len(labelTitle) : nextIdx])
	next := strings.TrimSpace(raw[nextIdx+len(labelNext):])

	if poem == "" {
		return nil, fmt.Errorf("%w: empty poem", domain.ErrMalformedGeneration)
	}
	if title == "" {
		return nil, fmt.Errorf("%w: empty title", domain.ErrMalformedGeneration)
	}
	if next == "" {
		return nil, fmt.Errorf("%w: empty next prompt", domain.ErrMalformedGeneration)
	}
	if len(strings.Fields(title)) > maxTitleWords {
		return nil, fmt.Errorf("%w: title exceeds %d words", domain.ErrMalformedGeneration, maxTitleWords)
	}
	if len([]rune(next)) > maxNextChars {
		next = string([]rune(next)[:maxNextChars])
	}

	return &generation{
		Poem:       formatPoemLines(poem),
		Title:      title,
		NextPrompt: next,
	}, nil
}

// formatPoemLines rewraps each poem line to the display width, breaking on
// word boundaries. Blank lines are preserved as stanza separators.
func formatPoemLines(poem string) string {
	var out []string
	for _, line := range strings.Split(poem, "\n") {
		line = strings.TrimRight(line, " \t")
		if strings.TrimSpace(line) == "" {
			out = append(out, "")
			continue
		}
		out = append(out, wrapLine(line, poemLineWidth)...)
	}
	return strings.Join(out, "\n")
}

func wrapLine(line string, width int) []string {
	words := strings.Fields(line)
	var wrapped []string
	var cur strings.Builder
	for _, word := range words {
		if cur.Len() == 0 {
			cur.WriteString(word)
			continue
		}
		if cur.Len()+1+len(word) > width {
			wrapped = append(wrapped, cur.String())
			cur.Reset()
			cur.WriteString(word)
			continue
		}
		cur.WriteByte(' ')
		cur.WriteString(word)
	}
	if cur.Len() > 0 {
		wrapped = append(wrapped, cur.String())
	}
	return wrapped
}
