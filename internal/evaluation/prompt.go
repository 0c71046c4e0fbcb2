package evaluation

import (
	"fmt"
	"strings"

	"github.com/daikw/protoeval/internal/persona"
)

func personaHeader(p persona.Profile) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are the '%s' persona.\n\n", p.Name)
	b.WriteString("Persona details:\n")
	fmt.Fprintf(&b, "- Description: %s\n", p.Description)
	fmt.Fprintf(&b, "- Characteristics: %s\n\n", p.Characteristics)
	return b.String()
}

// SinglePrompt asks for a five-part critique of one screen
func SinglePrompt(p persona.Profile) string {
	return personaHeader(p) +
		`Evaluate the attached prototype screen from this persona's point of view.

Answer in the following format:
1. Overall impression (score from 1 to 10)
2. Strengths (three)
3. Weaknesses (three)
4. Suggestions for improvement (three)
5. The element this persona would care about most

Give concrete, practical feedback.`
}

// ComparisonPrompt asks for a six-part comparison of variant A against variant B
func ComparisonPrompt(p persona.Profile) string {
	return personaHeader(p) +
		`Compare the two attached prototype screens. The first image is variant A, the second is variant B.

Answer in the following format:
1. Preferred variant: A or B
2. Preference split: A vs B (for example 70% vs 30%)
3. Reasons for the choice (three, concretely)
4. Pros and cons of variant A
5. Pros and cons of variant B
6. Final recommendation from this persona's perspective

Back your answer with objective, specific evidence.`
}
