package supervisor

import (
	"strconv"
	"strings"

	"github.com/mlandt/touchline/internal/agent"
)

// ParseFixtureID extracts the hand-off marker from an agent reply. The rule
// is strict: first line only, literal "fixture_id:" prefix, integer suffix.
// Anything else means no id was resolved; a malformed marker is never an
// error.
func ParseFixtureID(text string) (int64, bool) {
	first := text
	if i := strings.IndexByte(first, '\n'); i >= 0 {
		first = first[:i]
	}
	first = strings.TrimSpace(first)

	if !strings.HasPrefix(first, agent.FixtureIDMarkerPrefix) {
		return 0, false
	}
	suffix := strings.TrimSpace(first[len(agent.FixtureIDMarkerPrefix):])
	id, err := strconv.ParseInt(suffix, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
