package assemble

import (
	"fmt"
	"strings"

	"github.com/Aikinexis/flint/internal/types"
)

// FormatPrompt renders a context bundle as a single delimited string suitable
// for direct inclusion in a generation prompt. Pure function of the bundle.
func FormatPrompt(b types.ContextBundle) string {
	var sb strings.Builder

	if b.NearestHeading != "" {
		sb.WriteString("[Current section: ")
		sb.WriteString(b.NearestHeading)
		sb.WriteString("]\n\n")
	}

	if len(b.Related) > 0 {
		sb.WriteString("[Related sections]\n")
		for i, r := range b.Related {
			fmt.Fprintf(&sb, "%d. %s\n", i+1, r.Text)
		}
		sb.WriteString("\n")
	}

	if b.LocalBefore != "" {
		sb.WriteString("[Text before cursor]\n")
		sb.WriteString(b.LocalBefore)
		sb.WriteString("\n\n")
	}

	if b.LocalAfter != "" {
		sb.WriteString("[Text after cursor]\n")
		sb.WriteString(b.LocalAfter)
		sb.WriteString("\n")
	}

	return strings.TrimRight(sb.String(), "\n")
}
