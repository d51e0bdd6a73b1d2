package check

import (
	"github.com/cncf/clomonitor-go/internal/model"
)

// Func is a single check's implementation. It receives the shared Input
// and returns the outcome, or an error which the engine converts into a
// CheckOutput{Failed: true}.
type Func func(in *Input) (*model.CheckOutput, error)

// Meta is a check's static declaration: a stable id, weight, the check
// sets it participates in, and an optional scorecard sub-check name.
type Meta struct {
	ID            string
	Section       model.Section
	Weight        int
	CheckSets     []model.CheckSet
	ScorecardName string
	Run           Func
}

// Registry is the full check catalogue, keyed by check id.
type Registry map[string]Meta

// Engine runs a Registry's checks against an Input, producing a Report.
type Engine struct {
	registry Registry
}

// NewEngine returns an Engine bound to the given check catalogue.
func NewEngine(reg Registry) *Engine { return &Engine{registry: reg} }

// Registry exposes the engine's bound check catalogue, e.g. for the
// scorer to read weights from.
func (e *Engine) Registry() Registry { return e.registry }

// Run evaluates every check in the registry against in, applying the
// skip → exemption → invoke pipeline uniformly and then
// the inter-check exemption post-processing pass.
func (e *Engine) Run(in *Input) *model.Report {
	report := model.NewReport()

	for id, meta := range e.registry {
		out := e.runOne(meta, in)
		if out == nil {
			continue // skipped: absent from the report, scored as n/a
		}
		report.Set(meta.Section, id, out)
	}

	applyInterCheckExemptions(report)
	return report
}

func (e *Engine) runOne(meta Meta, in *Input) *model.CheckOutput {
	// 1. Check-set gating: skip iff the repository's sets never intersect
	// the check's declared sets.
	if !intersects(meta.CheckSets, in.CheckSets) {
		return nil
	}

	// 2. Per-repository exemption declared in .clomonitor.yml.
	if ex, ok := in.ClomonitorYML.FindExemption(meta.ID); ok {
		return &model.CheckOutput{Exempt: true, ExemptionReason: ex.Reason}
	}

	// 3. Invoke the check's implementation.
	out, err := meta.Run(in)
	if err != nil {
		return &model.CheckOutput{Failed: true, FailReason: err.Error()}
	}
	if out == nil {
		return &model.CheckOutput{Failed: true, FailReason: "check returned no output"}
	}
	return out
}

func intersects(declared, have []model.CheckSet) bool {
	if len(declared) == 0 {
		return false
	}
	for _, d := range declared {
		for _, h := range have {
			if d == h {
				return true
			}
		}
	}
	return false
}

// applyInterCheckExemptions implements the two symmetric cross-check
// implications: CLA/DCO and Slack-presence/GitHub-Discussions. When one
// of a pair passes or is exempt and the other has neither passed nor been
// exempted (it is absent or failed), the other is marked exempt.
func applyInterCheckExemptions(r *model.Report) {
	exemptIfPassedOrExempt(r, model.SectionBestPractices, "cla", "dco", "CLA check passed")
	exemptIfPassedOrExempt(r, model.SectionBestPractices, "dco", "cla", "DCO check passed")
	exemptIfPassedOrExempt(r, model.SectionBestPractices, "slack_presence", "github_discussions", "Slack presence check passed")
	exemptIfPassedOrExempt(r, model.SectionBestPractices, "github_discussions", "slack_presence", "GitHub Discussions check passed")
}

func exemptIfPassedOrExempt(r *model.Report, section model.Section, trigger, target, reason string) {
	t, ok := r.Get(section, trigger)
	if !ok || !(t.Passed || t.Exempt) {
		return
	}
	d, ok := r.Get(section, target)
	if ok && (d.Passed || d.Exempt) {
		return
	}
	r.Set(section, target, &model.CheckOutput{Exempt: true, ExemptionReason: reason})
}
