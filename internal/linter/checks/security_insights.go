package checks

import (
	"github.com/cncf/clomonitor-go/internal/linter/check"
	"github.com/cncf/clomonitor-go/internal/model"
)

// securityInsightsSelfAssessment passes iff the repository's
// SECURITY-INSIGHTS.yml declares a self-assessment evidence URL that is
// reachable (HTTP 200), wiring the security-artifacts.self-assessment.
// evidence-url field.
func securityInsightsSelfAssessment() check.Func {
	return func(in *check.Input) (*model.CheckOutput, error) {
		if in.SecurityInsights == nil {
			return &model.CheckOutput{}, nil
		}
		url := in.SecurityInsights.SecurityArtifacts.SelfAssessment.EvidenceURL
		if url == "" {
			return &model.CheckOutput{}, nil
		}
		out, err := remoteContentMatches(url)(in)
		if err != nil || out == nil || !out.Passed {
			return out, err
		}
		if policyURL := in.SecurityInsights.Dependencies.EnvDependenciesPolicy.PolicyURL; policyURL != "" {
			out.Value = map[string]string{"dependencies_policy_url": policyURL}
		}
		return out, nil
	}
}
