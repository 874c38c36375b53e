package cmdutil

import (
	"fmt"
	"io"
	"strings"

	"github.com/papercomputeco/counsel/pkg/chat"
	"github.com/papercomputeco/counsel/pkg/cliui"
)

// PrintSources writes the cited sources of an answer, one per line.
func PrintSources(w io.Writer, sources []chat.Source) {
	if len(sources) == 0 {
		return
	}

	fmt.Fprintf(w, "\n%s\n", cliui.HeadingStyle.Render("Sources"))
	for _, s := range sources {
		fmt.Fprintf(w, "  %s %s\n", cliui.DimStyle.Render("•"), FormatSource(s))
	}
}

// PrintSuggestions writes the suggested follow-up questions, numbered from 1.
func PrintSuggestions(w io.Writer, questions []string) {
	if len(questions) == 0 {
		return
	}

	fmt.Fprintf(w, "\n%s\n", cliui.HeadingStyle.Render("Suggested questions"))
	for i, q := range questions {
		fmt.Fprintf(w, "  %s %s\n", cliui.KeyStyle.Render(fmt.Sprintf("%d.", i+1)), q)
	}
}

// FormatSource renders a source as "<source>, art. <n>".
func FormatSource(s chat.Source) string {
	name := strings.TrimSpace(s.Source)
	article := strings.TrimSpace(s.ArticleNumber)
	switch {
	case article == "":
		return name
	case name == "":
		return "art. " + article
	default:
		return name + ", art. " + article
	}
}
