package pipeline

import "Foresight/internal/domain/models"

// OrchestratorConfig holds which optional stages a run executes. It is
// chosen once at INIT.
type OrchestratorConfig struct {
	Mode            models.Mode
	CritiqueEnabled bool
	FollowupEnabled bool
}

// Select maps a mode string to a configuration. Only an exact
// "comprehensive" enables critique; anything else, including "", is fast.
func Select(mode string) OrchestratorConfig {
	if models.Mode(mode) == models.ModeComprehensive {
		return OrchestratorConfig{Mode: models.ModeComprehensive, CritiqueEnabled: true, FollowupEnabled: true}
	}
	return OrchestratorConfig{Mode: models.ModeFast}
}
