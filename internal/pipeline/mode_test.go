package pipeline

import (
	"testing"

	"Foresight/internal/domain/models"

	"github.com/stretchr/testify/assert"
)

func TestSelect(t *testing.T) {
	t.Parallel()

	deep := Select("comprehensive")
	assert.Equal(t, models.ModeComprehensive, deep.Mode)
	assert.True(t, deep.CritiqueEnabled)
	assert.True(t, deep.FollowupEnabled)

	for _, m := range []string{"", "fast", "FAST", "Comprehensive", "comprehensive ", "deep", "null"} {
		cfg := Select(m)
		assert.Equal(t, models.ModeFast, cfg.Mode, "mode %q", m)
		assert.False(t, cfg.CritiqueEnabled, "mode %q", m)
		assert.False(t, cfg.FollowupEnabled, "mode %q", m)
	}
}
