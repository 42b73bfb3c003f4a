// AngelaMos | 2026
// text.go

package worker

import (
	"regexp"
	"strings"

	"github.com/carterperez-dev/playvault/internal/access"
)

// ImageMarker stands in for images found on a page.
const ImageMarker = "**[IMAGE]**"

var paragraphBreak = regexp.MustCompile(`\n\s*\n`)

// Paragraphs splits raw page text on blank lines and collapses whitespace
// inside each paragraph. Empty paragraphs are dropped.
func Paragraphs(text string) []string {
	var out []string
	for _, p := range paragraphBreak.Split(text, -1) {
		if cleaned := strings.Join(strings.Fields(p), " "); cleaned != "" {
			out = append(out, cleaned)
		}
	}
	return out
}

func CountWords(text string) int {
	return len(strings.Fields(text))
}

// LimitWords keeps whole paragraphs while they fit under the ceiling. If the
// first paragraph alone is over the ceiling it is cut to exactly that many
// words. Paragraphs are joined with a blank line.
func LimitWords(paragraphs []string, ceiling access.Ceiling) string {
	if ceiling.Unlimited {
		return strings.Join(paragraphs, "\n\n")
	}

	limit := int(max(ceiling.Limit, 0))
	var kept []string
	total := 0

	for _, p := range paragraphs {
		n := CountWords(p)
		if total+n <= limit {
			kept = append(kept, p)
			total += n
			continue
		}
		if len(kept) == 0 {
			words := strings.Fields(p)
			kept = append(kept, strings.Join(words[:limit], " "))
		}
		break
	}

	return strings.Join(kept, "\n\n")
}
