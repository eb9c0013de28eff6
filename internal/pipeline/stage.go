package pipeline

import "fmt"

type Stage string

const (
	StageInit                Stage = "INIT"
	StageResearching         Stage = "RESEARCHING"
	StageAggregating         Stage = "AGGREGATING"
	StageCritiquing          Stage = "CRITIQUING"
	StageFollowupResearching Stage = "FOLLOWUP_RESEARCHING"
	StageReAggregating       Stage = "RE_AGGREGATING"
	StageDone                Stage = "DONE"
	StageFailed              Stage = "FAILED"
)

// CRITIQUING and FOLLOWUP_RESEARCHING may exit straight to DONE when they
// degrade or have nothing to do.
var allowedTransitions = map[Stage]map[Stage]struct{}{
	StageInit: {
		StageResearching: {},
		StageFailed:      {},
	},
	StageResearching: {
		StageAggregating: {},
		StageFailed:      {},
	},
	StageAggregating: {
		StageCritiquing: {},
		StageDone:       {},
		StageFailed:     {},
	},
	StageCritiquing: {
		StageFollowupResearching: {},
		StageDone:                {},
		StageFailed:              {},
	},
	StageFollowupResearching: {
		StageReAggregating: {},
		StageDone:          {},
		StageFailed:        {},
	},
	StageReAggregating: {
		StageDone:   {},
		StageFailed: {},
	},
	StageDone:   {},
	StageFailed: {},
}

func ValidateStage(s Stage) error {
	if _, ok := allowedTransitions[s]; !ok {
		return fmt.Errorf("invalid stage: %q", s)
	}
	return nil
}

func ValidateTransition(from, to Stage) error {
	if err := ValidateStage(from); err != nil {
		return err
	}
	if err := ValidateStage(to); err != nil {
		return err
	}
	if _, ok := allowedTransitions[from][to]; !ok {
		return fmt.Errorf("invalid stage transition: %s -> %s", from, to)
	}
	return nil
}

// Terminal reports whether no transition leaves s.
func (s Stage) Terminal() bool {
	return len(allowedTransitions[s]) == 0
}
