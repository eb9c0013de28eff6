package pipeline

import (
	"strings"

	"Foresight/internal/domain/models"
)

// GapDeriver keeps the first gap per non-empty topic, up to Max gaps.
// Max <= 0 means no cap.
type GapDeriver struct {
	Max int
}

func (d GapDeriver) Derive(c models.Critique) []models.Gap {
	seen := make(map[string]struct{}, len(c.Gaps))
	var out []models.Gap
	for _, g := range c.Gaps {
		g.Topic = strings.TrimSpace(g.Topic)
		if g.Topic == "" {
			continue
		}
		if _, ok := seen[g.Topic]; ok {
			continue
		}
		seen[g.Topic] = struct{}{}
		out = append(out, g)
		if d.Max > 0 && len(out) == d.Max {
			break
		}
	}
	return out
}
