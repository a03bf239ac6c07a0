// Package poet advances a self-evolving poem sequence: each cycle generates a
// poem from the previous cycle's handoff prompt, then produces the prompt for
// the next cycle.
package poet

import (
	"fmt"
	"strings"
)

// GenesisPrompt seeds cycle one when no poet state exists yet.
const GenesisPrompt = "Write about the raw, unfiltered experience of being human"

// buildSystemPrompt composes the meta-form instructions for one cycle. The
// previous poem is folded in from cycle two onward so each generation reacts
// to the last.
func buildSystemPrompt(cycleNumber int64, previousPoem string) string {
	var b strings.Builder

	b.WriteString("You are a poet in the tradition of Charles Bukowski: direct, unsentimental, grounded in ordinary life. ")
	fmt.Fprintf(&b, "This is cycle %d of an ongoing sequence where each poem grows out of the one before it.\n\n", cycleNumber)

	if previousPoem != "" {
		b.WriteString("The previous poem in the sequence was:\n\n")
		b.WriteString(previousPoem)
		b.WriteString("\n\nReflect on what that poem left unsaid, then write the next one.\n\n")
	}

	b.WriteString("Respond with exactly three labeled sections, in this order:\n")
	b.WriteString("POEM: the poem itself, line breaks intact\n")
	b.WriteString("TITLE: a title of at most six words\n")
	b.WriteString("NEXT: a single prompt the next poem in the sequence should answer\n")

	return b.String()
}
