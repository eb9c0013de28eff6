package pipeline

import "testing"

func TestValidateTransition_ValidMatrix(t *testing.T) {
	t.Parallel()

	valid := [][2]Stage{
		{StageInit, StageResearching},
		{StageResearching, StageAggregating},
		{StageAggregating, StageDone},
		{StageAggregating, StageCritiquing},
		{StageCritiquing, StageFollowupResearching},
		{StageCritiquing, StageDone},
		{StageFollowupResearching, StageReAggregating},
		{StageFollowupResearching, StageDone},
		{StageReAggregating, StageDone},
		{StageInit, StageFailed},
		{StageResearching, StageFailed},
		{StageReAggregating, StageFailed},
	}
	for _, pair := range valid {
		if err := ValidateTransition(pair[0], pair[1]); err != nil {
			t.Fatalf("expected valid transition %s->%s, got %v", pair[0], pair[1], err)
		}
	}
}

func TestValidateTransition_InvalidTransitions(t *testing.T) {
	t.Parallel()

	invalid := [][2]Stage{
		{StageInit, StageAggregating},
		{StageResearching, StageCritiquing},
		{StageDone, StageFailed},
		{StageFailed, StageResearching},
		{StageCritiquing, StageReAggregating},
		{Stage("BOGUS"), StageDone},
	}
	for _, pair := range invalid {
		if err := ValidateTransition(pair[0], pair[1]); err == nil {
			t.Fatalf("expected invalid transition %s->%s", pair[0], pair[1])
		}
	}
}

func TestStageTerminal(t *testing.T) {
	t.Parallel()

	for _, s := range []Stage{StageDone, StageFailed} {
		if !s.Terminal() {
			t.Fatalf("%s should be terminal", s)
		}
	}
	for _, s := range []Stage{StageInit, StageResearching, StageAggregating, StageCritiquing, StageFollowupResearching, StageReAggregating} {
		if s.Terminal() {
			t.Fatalf("%s should not be terminal", s)
		}
	}
}
