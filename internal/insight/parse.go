package insight

import (
	"strings"

	"github.com/insightloop/dataqual/pkg/constants"
)

// ParseResponse extracts the assessment and recommendation list from a
// generator response following the ASSESSMENT / RECOMMENDATIONS format.
// An empty assessment signals an unusable response to the caller.
func ParseResponse(text string) (string, []string) {
	parts := strings.SplitN(text, "RECOMMENDATIONS:", 2)

	assessment := strings.TrimSpace(strings.Replace(parts[0], "ASSESSMENT:", "", 1))

	var recommendations []string
	if len(parts) == 2 {
		for _, line := range strings.Split(parts[1], "\n") {
			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}
			if !startsWithListMarker(line) {
				continue
			}
			cleaned := strings.TrimSpace(strings.TrimLeft(line, "0123456789.-*) "))
			if cleaned == "" {
				continue
			}
			recommendations = append(recommendations, cleaned)
			if len(recommendations) == constants.MaxRecommendations {
				break
			}
		}
	}

	return assessment, recommendations
}

func startsWithListMarker(line string) bool {
	if line[0] >= '0' && line[0] <= '9' {
		return true
	}
	return strings.HasPrefix(line, "-") || strings.HasPrefix(line, "*")
}
