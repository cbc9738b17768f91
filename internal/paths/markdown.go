package paths

import (
	"fmt"
	"strings"
	"time"

	"github.com/ayush/skillpath/backend/internal/models"
)

// RenderMarkdown formats a stored path as a Markdown document.
func RenderMarkdown(p *models.LearningPath) []byte {
	var b strings.Builder

	fmt.Fprintf(&b, "# %s\n\n", p.Title)
	if p.Description != "" {
		fmt.Fprintf(&b, "%s\n\n", p.Description)
	}
	fmt.Fprintf(&b, "_Saved %s_\n", p.CreatedAt.UTC().Format(time.RFC1123))

	for i, s := range p.Steps {
		fmt.Fprintf(&b, "\n## %d. %s\n\n", i+1, s.Title)
		if s.Description != "" {
			fmt.Fprintf(&b, "%s\n", s.Description)
		}
		if len(s.Resources) > 0 {
			b.WriteString("\nResources:\n\n")
			for _, r := range s.Resources {
				fmt.Fprintf(&b, "- %s\n", r)
			}
		}
	}
	return []byte(b.String())
}
