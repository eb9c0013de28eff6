package pipeline

import "Foresight/internal/domain/models"

// OrderingPolicy splits research topics into waves. Topics inside a wave are
// collected concurrently; waves run in order and later waves see the
// findings of earlier ones.
type OrderingPolicy interface {
	Plan(mode models.Mode, topics []string) [][]string
}

type ParallelOrdering struct{}

func (ParallelOrdering) Plan(_ models.Mode, topics []string) [][]string {
	if len(topics) == 0 {
		return nil
	}
	return [][]string{append([]string(nil), topics...)}
}

type SequentialOrdering struct{}

func (SequentialOrdering) Plan(_ models.Mode, topics []string) [][]string {
	waves := make([][]string, 0, len(topics))
	for _, t := range topics {
		waves = append(waves, []string{t})
	}
	return waves
}

// DependencyOrdering layers topics so that each one runs after the topics it
// depends on. Dependencies outside the requested set are ignored; topics
// caught in a cycle run together in a final wave.
type DependencyOrdering struct {
	DependsOn map[string][]string
}

func (d DependencyOrdering) Plan(_ models.Mode, topics []string) [][]string {
	present := make(map[string]bool, len(topics))
	for _, t := range topics {
		present[t] = true
	}
	pending := make(map[string]int, len(topics))
	for _, t := range topics {
		n := 0
		for _, dep := range d.DependsOn[t] {
			if present[dep] && dep != t {
				n++
			}
		}
		pending[t] = n
	}

	done := make(map[string]bool, len(topics))
	var waves [][]string
	for len(done) < len(topics) {
		var wave []string
		for _, t := range topics {
			if !done[t] && pending[t] == 0 {
				wave = append(wave, t)
			}
		}
		if len(wave) == 0 {
			for _, t := range topics {
				if !done[t] {
					wave = append(wave, t)
				}
			}
			return append(waves, wave)
		}
		for _, t := range wave {
			done[t] = true
		}
		for _, t := range topics {
			if done[t] {
				continue
			}
			for _, dep := range d.DependsOn[t] {
				if present[dep] && dep != t && contains(wave, dep) {
					pending[t]--
				}
			}
		}
		waves = append(waves, wave)
	}
	return waves
}

// ModeOrdering picks a policy per mode; a nil entry falls back to parallel.
type ModeOrdering struct {
	Fast          OrderingPolicy
	Comprehensive OrderingPolicy
}

func (m ModeOrdering) Plan(mode models.Mode, topics []string) [][]string {
	p := m.Fast
	if mode == models.ModeComprehensive {
		p = m.Comprehensive
	}
	if p == nil {
		p = ParallelOrdering{}
	}
	return p.Plan(mode, topics)
}

// OrderingByName resolves "parallel", "sequential" or "dependency".
func OrderingByName(name string, dependsOn map[string][]string) OrderingPolicy {
	switch name {
	case "sequential":
		return SequentialOrdering{}
	case "dependency":
		return DependencyOrdering{DependsOn: dependsOn}
	default:
		return ParallelOrdering{}
	}
}

func contains(xs []string, s string) bool {
	for _, x := range xs {
		if x == s {
			return true
		}
	}
	return false
}
