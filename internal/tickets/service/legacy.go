package tickets

import (
	"strings"
)

const (
	legacyIDPrefix = "Ticket ID:"
	legacySection  = "---"
)

// parseLegacyPayload reads the text payload printed on tickets issued
// before group codes existed: one section per ticket, separated by "---",
// each holding a "Ticket ID: <id>" line.
func parseLegacyPayload(code string) ([]string, bool) {
	if !strings.Contains(code, legacyIDPrefix) || !strings.Contains(code, legacySection) {
		return nil, false
	}

	var ids []string
	for _, section := range strings.Split(code, legacySection) {
		for _, line := range strings.Split(section, "\n") {
			line = strings.TrimSpace(line)
			if !strings.HasPrefix(line, legacyIDPrefix) {
				continue
			}
			if id := strings.TrimSpace(strings.TrimPrefix(line, legacyIDPrefix)); id != "" {
				ids = append(ids, id)
			}
			break
		}
	}
	return ids, len(ids) > 0
}
