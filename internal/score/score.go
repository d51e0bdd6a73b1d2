// Package score implements scoring: a pure function from a
// Report (and the static check weights) to a Score, plus project-level
// merge across repositories.
package score

import (
	"github.com/cncf/clomonitor-go/internal/linter/check"
	"github.com/cncf/clomonitor-go/internal/model"
)

// sectionWeights are the fixed, by-convention section weights for the
// global score.
var sectionWeights = map[model.Section]uint32{
	model.SectionDocumentation: 30,
	model.SectionLicense:       20,
	model.SectionBestPractices: 20,
	model.SectionSecurity:      15,
	model.SectionLegal:         5,
}

// Scorer computes section and global scores from a Report, using the
// weights declared in a check Registry.
type Scorer struct {
	registry check.Registry
}

// New returns a Scorer bound to the given check registry.
func New(reg check.Registry) *Scorer { return &Scorer{registry: reg} }

// Score computes the Score for a single repository's Report: each
// section is the weighted share of its passing checks, and the global
// score is the weighted average of the evaluated sections.
func (s *Scorer) Score(r *model.Report) *model.Score {
	out := &model.Score{}
	var globalNum, globalDen float64

	for _, section := range model.Sections {
		num, den := 0.0, 0.0
		for id, co := range r.Data[section] {
			meta, ok := s.registry[id]
			if !ok {
				continue
			}
			value, evaluated := model.Outcome(co)
			if !evaluated {
				continue
			}
			w := float64(meta.Weight)
			den += w
			num += w * float64(value)
		}
		if den == 0 {
			continue
		}
		sectionScore := num / den * 100
		sw := sectionWeights[section]
		out.SetSectionValue(section, round2(sectionScore), sw)
		globalNum += sectionScore * float64(sw)
		globalDen += float64(sw)
	}

	if globalDen > 0 {
		out.Global = round2(globalNum / globalDen)
	}
	out.GlobalWeight = sumWeights(out)
	return out
}

func sumWeights(s *model.Score) uint32 {
	var total uint32
	for _, section := range model.Sections {
		if _, ok := s.SectionValue(section); ok {
			total += sectionWeights[section]
		}
	}
	return total
}

// MergeProject computes a project's score as the weighted mean of its
// repositories' scores (each repository weighted equally), skipping
// missing sections.
func MergeProject(scores []*model.Score) *model.Score {
	if len(scores) == 0 {
		return nil
	}
	out := &model.Score{}
	var globalSum float64
	var globalCount int

	for _, section := range model.Sections {
		var sum float64
		var count int
		for _, sc := range scores {
			if v, ok := sc.SectionValue(section); ok {
				sum += v
				count++
			}
		}
		if count == 0 {
			continue
		}
		out.SetSectionValue(section, round2(sum/float64(count)), sectionWeights[section])
	}
	for _, sc := range scores {
		globalSum += sc.Global
		globalCount++
	}
	if globalCount > 0 {
		out.Global = round2(globalSum / float64(globalCount))
	}
	out.GlobalWeight = sumWeights(out)
	return out
}

func round2(v float64) float64 {
	return float64(int(v*100+0.5)) / 100
}
