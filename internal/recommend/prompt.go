package recommend

import (
	"fmt"
	"sort"
	"strings"

	"barista/internal/params"
	"barista/internal/profile"
	"barista/internal/queue"
)

// SystemPrompt instructs the model to act as a recipe generator constrained
// to the declared parameter space. The schema is rendered from the live
// field declarations so prompt and validator can never drift apart.
func SystemPrompt() string {
	var b strings.Builder
	b.WriteString("You are an espresso brewing expert. ")
	b.WriteString("Translate the customer's taste request into machine brewing parameters.\n\n")
	b.WriteString("Respond with a single JSON object containing exactly these keys, all numeric:\n")
	for _, field := range params.Schema() {
		fmt.Fprintf(&b, "- %q: %s, between %g and %g (default %g)\n",
			field.Name, field.Unit, field.Min, field.Max, field.Default)
	}
	b.WriteString("\nNo prose, no markdown, no units inside values. ")
	b.WriteString("If the request gives you nothing to work with, return the defaults.")
	return b.String()
}

// BuildUserPrompt renders the customer request plus learned preferences into
// the user message. The request text is passed through verbatim; taste hints
// are appended as guidance the model may weigh against the request.
func BuildUserPrompt(requestText string, serving queue.ServingSize, prof profile.Profile) string {
	var b strings.Builder
	requestText = strings.TrimSpace(requestText)
	if requestText == "" {
		requestText = "no specific request, a good everyday espresso"
	}
	fmt.Fprintf(&b, "Customer request: %s\n", requestText)
	fmt.Fprintf(&b, "Serving size: %s\n", serving)

	if !prof.IsNeutral() {
		b.WriteString("\nLearned preferences from this customer's past ratings:\n")
		names := make([]string, 0, len(prof.Hints))
		for name := range prof.Hints {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			hint := prof.Hints[name]
			fmt.Fprintf(&b, "- %s (confidence %.2f)\n", hint.Label, hint.Confidence)
		}
		b.WriteString("Weigh these against the request; the request wins on conflict.\n")
	}
	return b.String()
}
